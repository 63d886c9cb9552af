package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"sniper_bot/internal/models"
	"sniper_bot/internal/modules/config"
)

type pending struct {
	ch     chan bool
	msgID  int
	prompt string
}

// Commands — что телеграм умеет просить у раннера.
type Commands interface {
	Submit(dec models.Decision) bool
	CloseManual(ctx context.Context, symbol string) (string, bool)
	Status() string
}

// History — чтение закрытых сделок для /history.
type History interface {
	Recent(ctx context.Context, n int) ([]models.TradeRecord, error)
}

// Telegram — нотификации в один чат плюс команды управления ботом.
type Telegram struct {
	bot     *tgbot.BotAPI
	cfg     *config.Config
	cmds    Commands
	history History

	mu       sync.Mutex
	pendings map[string]*pending
}

func NewTelegram(cfg *config.Config, history History) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}

	return &Telegram{
		bot:      b,
		cfg:      cfg,
		history:  history,
		pendings: make(map[string]*pending),
	}, nil
}

// SetCommands навешивается после сборки графа: раннер получает нотифайер
// при создании, а команды подключаются сюда уже готовыми.
func (t *Telegram) SetCommands(cmds Commands) { t.cmds = cmds }

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.cfg.Telegram.ChatID == 0 {
		return
	}
	_, _ = t.bot.Send(tgbot.NewMessage(t.cfg.Telegram.ChatID, msg))
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

func (t *Telegram) editReplyMarkupRemove(chatID int64, msgID int) error {
	rm := tgbot.InlineKeyboardMarkup{InlineKeyboard: [][]tgbot.InlineKeyboardButton{}}
	edit := tgbot.NewEditMessageReplyMarkup(chatID, msgID, rm)
	_, err := t.bot.Request(edit)
	return err
}

func (t *Telegram) editText(chatID int64, msgID int, text string) error {
	edit := tgbot.NewEditMessageText(chatID, msgID, text)
	_, err := t.bot.Request(edit)
	return err
}

// Confirm — сообщение с кнопками и ожиданием callback.
func (t *Telegram) Confirm(ctx context.Context, prompt string, timeout time.Duration) bool {
	if t == nil || t.bot == nil || t.cfg.Telegram.ChatID == 0 {
		return true
	}
	chatID := t.cfg.Telegram.ChatID

	token := fmt.Sprintf("%d", time.Now().UnixNano())
	p := &pending{
		ch:     make(chan bool, 1),
		prompt: prompt,
	}

	t.mu.Lock()
	t.pendings[token] = p
	t.mu.Unlock()

	btnYes := tgbot.NewInlineKeyboardButtonData("✅ Войти", "CONF::"+token)
	btnNo := tgbot.NewInlineKeyboardButtonData("❌ Пропустить", "REJ::"+token)
	kb := tgbot.NewInlineKeyboardMarkup(tgbot.NewInlineKeyboardRow(btnYes, btnNo))

	msg := tgbot.NewMessage(chatID, prompt)
	msg.ReplyMarkup = kb

	sent, _ := t.bot.Send(msg)
	p.msgID = sent.MessageID

	tmr := time.NewTimer(timeout)
	defer tmr.Stop()

	select {
	case ok := <-p.ch:
		return ok
	case <-tmr.C:
		_ = t.editReplyMarkupRemove(chatID, p.msgID)
		_ = t.editText(chatID, p.msgID, fmt.Sprintf("%s\n\n⏳ Таймаут", prompt))
		t.drop(token)
		return false
	case <-ctx.Done():
		_ = t.editReplyMarkupRemove(chatID, p.msgID)
		_ = t.editText(chatID, p.msgID, fmt.Sprintf("%s\n\n⛔️ Отменено", prompt))
		t.drop(token)
		return false
	}
}

func (t *Telegram) drop(token string) {
	t.mu.Lock()
	delete(t.pendings, token)
	t.mu.Unlock()
}

// Start: long-polling для messages + callback_query.
func (t *Telegram) Start(ctx context.Context) {
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd := <-updates:
				t.handleUpdate(ctx, upd)
			}
		}
	}()
}

func (t *Telegram) Stop() {}
