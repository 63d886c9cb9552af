package service

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/bytedance/sonic"

	"sniper_bot/internal/models"
)

// FrameKind — что пришло по сокету.
type FrameKind int

const (
	FrameUnknown FrameKind = iota
	FrameKline
	FrameTickerBatch
)

type klinePayload struct {
	Event  string `json:"e"`
	Symbol string `json:"s"`
	K      struct {
		Close  string `json:"c"`
		Closed bool   `json:"x"`
		Start  int64  `json:"t"` // миллисекунды
	} `json:"k"`
}

type miniTicker struct {
	Event  string `json:"e"`
	Symbol string `json:"s"`
	Close  string `json:"c"`
	Open   string `json:"o"`
}

// DecodeFrame разбирает сырой кадр стрима. Поддерживаем и голый payload,
// и обёртку combined-стрима {"stream":..., "data":{...}}.
// Непонятные кадры (ответы на SUBSCRIBE, pong и т.п.) — FrameUnknown.
func DecodeFrame(msg []byte) (FrameKind, models.CandleTick, []models.TickerStat) {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := sonic.Unmarshal(msg, &env); err == nil && len(env.Data) > 0 {
		msg = env.Data
	}

	msg = bytes.TrimSpace(msg)
	if len(msg) == 0 {
		return FrameUnknown, models.CandleTick{}, nil
	}

	if msg[0] == '[' {
		var batch []miniTicker
		if err := sonic.Unmarshal(msg, &batch); err != nil {
			return FrameUnknown, models.CandleTick{}, nil
		}
		stats := make([]models.TickerStat, 0, len(batch))
		for _, t := range batch {
			if t.Event != "24hrMiniTicker" || t.Symbol == "" {
				continue
			}
			// у miniTicker нет готового процента, считаем из open/close
			cl, err1 := strconv.ParseFloat(t.Close, 64)
			op, err2 := strconv.ParseFloat(t.Open, 64)
			if err1 != nil || err2 != nil || op == 0 {
				continue
			}
			stats = append(stats, models.TickerStat{
				Symbol:    t.Symbol,
				Change24h: (cl - op) / op * 100,
			})
		}
		if len(stats) == 0 {
			return FrameUnknown, models.CandleTick{}, nil
		}
		return FrameTickerBatch, models.CandleTick{}, stats
	}

	var kl klinePayload
	if err := sonic.Unmarshal(msg, &kl); err != nil {
		return FrameUnknown, models.CandleTick{}, nil
	}
	if kl.Event != "kline" || kl.Symbol == "" {
		return FrameUnknown, models.CandleTick{}, nil
	}
	price, err := strconv.ParseFloat(kl.K.Close, 64)
	if err != nil || price <= 0 {
		return FrameUnknown, models.CandleTick{}, nil
	}

	return FrameKline, models.CandleTick{
		Symbol: kl.Symbol,
		Close:  price,
		Start:  kl.K.Start / 1000,
		Closed: kl.K.Closed,
	}, nil
}
