package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"sniper_bot/internal/helper"
	"sniper_bot/internal/models"
)

func (t *Telegram) handleUpdate(ctx context.Context, upd tgbot.Update) {
	if upd.CallbackQuery != nil {
		t.handleCallback(upd.CallbackQuery)
		return
	}

	msg := upd.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}
	// чужие чаты игнорируем
	if t.cfg.Telegram.ChatID != 0 && msg.Chat.ID != t.cfg.Telegram.ChatID {
		return
	}
	if t.cmds == nil {
		return
	}

	switch msg.Command() {
	case "open":
		go t.handleOpen(ctx, msg.CommandArguments())
	case "close":
		go t.handleClose(ctx, msg.CommandArguments())
	case "status":
		t.Send(t.cmds.Status())
	case "balance":
		// статус начинается со строки баланса
		st := t.cmds.Status()
		if i := strings.IndexByte(st, '\n'); i > 0 {
			st = st[:i]
		}
		t.Send(st)
	case "history":
		go t.handleHistory(ctx, msg.CommandArguments())
	case "help", "start":
		t.Send("Команды:\n" +
			"/open SYMBOL long|short [маржа] [плечо] — открыть позицию\n" +
			"/close SYMBOL — закрыть позицию рыночным\n" +
			"/status — счёт и открытые позиции\n" +
			"/balance — только баланс\n" +
			"/history [n] — последние закрытые сделки")
	}
}

// /open eth long 100 10
func (t *Telegram) handleOpen(ctx context.Context, args string) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		t.Send("⚠️ Формат: /open SYMBOL long|short [маржа] [плечо]")
		return
	}

	sym := helper.NormSymbol(fields[0])

	var side models.Side
	switch strings.ToLower(fields[1]) {
	case "long", "buy":
		side = models.SideLong
	case "short", "sell":
		side = models.SideShort
	default:
		t.Sendf("⚠️ Непонятная сторона %q, жду long или short", fields[1])
		return
	}

	dec := models.Decision{
		ID:     fmt.Sprintf("tg-%d", time.Now().UnixNano()),
		Symbol: sym,
		Action: side,
		Source: "TELEGRAM",
	}
	if len(fields) > 2 {
		dec.MarginUSD, _ = strconv.ParseFloat(fields[2], 64)
	}
	if len(fields) > 3 {
		dec.Leverage, _ = strconv.Atoi(fields[3])
	}

	prompt := fmt.Sprintf("🔔 Открыть %s %s?", side, sym)
	if dec.MarginUSD > 0 {
		prompt += fmt.Sprintf(" маржа %.0f USDT", dec.MarginUSD)
	}
	if dec.Leverage > 0 {
		prompt += fmt.Sprintf(" x%d", dec.Leverage)
	}
	if !t.Confirm(ctx, prompt, 30*time.Second) {
		return
	}

	if !t.cmds.Submit(dec) {
		t.Send("⚠️ Очередь решений переполнена, попробуй позже")
	}
}

func (t *Telegram) handleClose(ctx context.Context, args string) {
	sym := strings.TrimSpace(args)
	if sym == "" {
		t.Send("⚠️ Формат: /close SYMBOL")
		return
	}
	msg, _ := t.cmds.CloseManual(ctx, sym)
	t.Send(msg)
}

func (t *Telegram) handleHistory(ctx context.Context, args string) {
	n := 10
	if v, err := strconv.Atoi(strings.TrimSpace(args)); err == nil && v > 0 {
		n = v
	}

	recs, err := t.history.Recent(ctx, n)
	if err != nil {
		t.Sendf("❗️ История недоступна: %v", err)
		return
	}
	if len(recs) == 0 {
		t.Send("📭 Закрытых сделок ещё нет")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📜 Последние сделки (%d):\n", len(recs))
	for _, r := range recs {
		fmt.Fprintf(&b, "- %s %s %s | %.4f -> %.4f | %+.2f USDT | %s\n",
			r.Time.Format("02.01 15:04"), r.Symbol, r.Side, r.Entry, r.Exit, r.PnL, r.Reason)
	}
	t.Send(b.String())
}

func (t *Telegram) handleCallback(cb *tgbot.CallbackQuery) {
	if t == nil || t.bot == nil || cb == nil {
		return
	}

	// ответ Telegram для остановки спиннера
	_, _ = t.bot.Request(tgbot.NewCallback(cb.ID, ""))

	data := cb.Data // ожидаем CONF::token / REJ::token
	var verb, token string
	for i := 0; i < len(data); i++ {
		if i+1 < len(data) && data[i] == ':' && data[i+1] == ':' {
			verb, token = data[:i], data[i+2:]
			break
		}
	}
	if verb == "" || token == "" {
		return
	}

	t.mu.Lock()
	p, ok := t.pendings[token]
	t.mu.Unlock()
	if !ok {
		return
	}

	accepted := verb == "CONF"
	p.ch <- accepted
	close(p.ch)

	status := "Отклонено"
	emoji := "❌"
	if accepted {
		status = "Подтверждено"
		emoji = "✅"
	}

	_ = t.editReplyMarkupRemove(t.cfg.Telegram.ChatID, p.msgID)
	_ = t.editText(t.cfg.Telegram.ChatID, p.msgID, fmt.Sprintf("%s\n\n%s %s", p.prompt, emoji, status))

	t.drop(token)
}
