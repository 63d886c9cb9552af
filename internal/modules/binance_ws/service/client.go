package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"sniper_bot/internal/market"
	"sniper_bot/internal/models"
	"sniper_bot/internal/modules/config"
	healthsrv "sniper_bot/internal/modules/health/service"
	"sniper_bot/pkg/logger"
)

const (
	reconnectDelay = 5 * time.Second
	pingEvery      = 30 * time.Second
	tickerStream   = "!miniTicker@arr"
)

// Book — то, через что прокатываются тики (позиционный учёт).
type Book interface {
	Tick(symbol string, price float64) (models.PositionEvent, bool)
}

type ctlMsg struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

// Client — один сокет на всё: батч-тикер всегда, kline-стримы по подписке.
// Писать в сокет может только sender-горутина; Subscribe/Unsubscribe
// кладут команды в очередь, которую она разгребает.
type Client struct {
	cfg      *config.Config
	registry *market.Registry
	book     Book
	health   *healthsrv.State

	dialer *websocket.Dialer

	mu     sync.Mutex
	subs   map[string]struct{} // symbol -> подписаны на kline
	nextID int64

	ctl chan ctlMsg
}

func NewClient(cfg *config.Config, registry *market.Registry, book Book, health *healthsrv.State) *Client {
	return &Client{
		cfg:      cfg,
		registry: registry,
		book:     book,
		health:   health,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		subs:     make(map[string]struct{}),
		ctl:      make(chan ctlMsg, 64),
	}
}

func klineStream(symbol string) string {
	return strings.ToLower(symbol) + "@kline_1m"
}

// Subscribe ставит символ в стрим. Повторный вызов — no-op.
func (c *Client) Subscribe(symbol string) {
	c.mu.Lock()
	if _, ok := c.subs[symbol]; ok {
		c.mu.Unlock()
		return
	}
	c.subs[symbol] = struct{}{}
	c.nextID++
	msg := ctlMsg{Method: "SUBSCRIBE", Params: []string{klineStream(symbol)}, ID: c.nextID}
	c.mu.Unlock()

	c.push(msg)
	logger.Info("[WS] subscribe %s", symbol)
}

func (c *Client) Unsubscribe(symbol string) {
	c.mu.Lock()
	if _, ok := c.subs[symbol]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.subs, symbol)
	c.nextID++
	msg := ctlMsg{Method: "UNSUBSCRIBE", Params: []string{klineStream(symbol)}, ID: c.nextID}
	c.mu.Unlock()

	c.push(msg)
	logger.Info("[WS] unsubscribe %s", symbol)
}

func (c *Client) push(msg ctlMsg) {
	select {
	case c.ctl <- msg:
	default:
		logger.Error("[WS] очередь команд переполнена, кадр %s %v потерян", msg.Method, msg.Params)
	}
}

func (c *Client) Subscribed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.subs))
	for s := range c.subs {
		out = append(out, s)
	}
	return out
}

// Start держит соединение живым: dial, подписка, чтение.
// Любой обрыв — фиксированная пауза и реконнект с ресабскрайбом.
func (c *Client) Start(ctx context.Context, out chan<- models.PositionEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, _, err := c.dialer.DialContext(ctx, c.cfg.Binance.WsURL, nil)
		if err != nil {
			logger.Error("[WS] dial %s: %v", c.cfg.Binance.WsURL, err)
			if !sleepCtx(ctx, reconnectDelay) {
				return
			}
			continue
		}

		c.health.SetWSConnected(true)
		logger.Info("[WS] подключились, подписок: %d", len(c.Subscribed()))

		senderStop := make(chan struct{})
		go c.sender(ctx, conn, senderStop)

		c.readLoop(ctx, conn, out)

		close(senderStop)
		_ = conn.Close()
		c.health.SetWSConnected(false)

		if !sleepCtx(ctx, reconnectDelay) {
			return
		}
	}
}

// sender — единственный писатель в сокет: стартовая подписка,
// очередь команд, keepalive ping.
func (c *Client) sender(ctx context.Context, conn *websocket.Conn, stop <-chan struct{}) {
	params := []string{tickerStream}
	for _, s := range c.Subscribed() {
		params = append(params, klineStream(s))
	}
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.mu.Unlock()
	if err := writeJSON(conn, ctlMsg{Method: "SUBSCRIBE", Params: params, ID: id}); err != nil {
		logger.Error("[WS] стартовая подписка: %v", err)
		return
	}

	ping := time.NewTicker(pingEvery)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case msg := <-c.ctl:
			if err := writeJSON(conn, msg); err != nil {
				logger.Error("[WS] write %s: %v", msg.Method, err)
				return
			}
		case <-ping.C:
			_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	bs, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, bs)
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- models.PositionEvent) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Error("[WS] read: %v", err)
			return
		}

		kind, tick, stats := DecodeFrame(msg)
		switch kind {
		case FrameKline:
			c.onKline(ctx, tick, out)
		case FrameTickerBatch:
			c.onTickers(stats)
		}
	}
}

func (c *Client) onKline(ctx context.Context, tick models.CandleTick, out chan<- models.PositionEvent) {
	buf := c.registry.Get(tick.Symbol)
	buf.UpdateCandle(tick.Close, tick.Start, tick.Closed)
	c.health.TouchTick(time.Now())

	ev, emit := c.book.Tick(tick.Symbol, tick.Close)
	if !emit {
		return
	}
	select {
	case out <- ev:
	case <-ctx.Done():
	}
}

// 24h-изменения раскладываем только по уже известным буферам,
// батч-тикер шлёт весь рынок.
func (c *Client) onTickers(stats []models.TickerStat) {
	for _, st := range stats {
		if buf, ok := c.registry.Peek(st.Symbol); ok {
			buf.SetChange24h(st.Change24h)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
