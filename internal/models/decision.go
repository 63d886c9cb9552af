package models

// Decision — готовое торговое решение от внешнего источника
// (новостной пайплайн, ручная команда). DecisionID связывает открытие,
// тики и закрытие с исходным событием.
type Decision struct {
	ID              string
	Symbol          string
	Action          Side
	MarginUSD       float64
	Leverage        int
	TPPct           float64
	SLPct           float64
	ValidityMinutes int
	Reason          string
	Source          string // "MANUAL" / "TELEGRAM" / ...
}

// OrderResult — исход реального ордера на бирже.
type OrderResult int

const (
	OrderOpened OrderResult = iota
	OrderRejected
	OrderTpSlFailed // ордер открыт, но TP/SL не встали — бот ведёт позицию сам
	OrderNotConnected
)

func (r OrderResult) String() string {
	switch r {
	case OrderOpened:
		return "OPENED"
	case OrderRejected:
		return "REJECTED"
	case OrderTpSlFailed:
		return "TPSL_FAILED"
	case OrderNotConnected:
		return "NOT_CONNECTED"
	default:
		return "UNKNOWN"
	}
}

// TradeParams — параметры реального ордера для биржевого адаптера.
type TradeParams struct {
	Symbol    string
	Side      Side
	Price     float64
	MarginUSD float64
	Leverage  float64
	TPPct     float64
	SLPct     float64
}

// SymbolFilters — биржевые шаги квантования по инструменту.
type SymbolFilters struct {
	StepSize    float64
	TickSize    float64
	MinQty      float64
	MinNotional float64
}
