package models

import "time"

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type CloseReason string

const (
	ReasonTakeProfit CloseReason = "TAKE PROFIT"
	ReasonStopLoss   CloseReason = "STOP LOSS"
	ReasonTimeLimit  CloseReason = "TIME LIMIT"
	ReasonManual     CloseReason = "MANUAL"
)

// Position — открытая позиция. Ключ = нормализованный символ ("btcusdt"),
// не больше одной позиции на символ.
type Position struct {
	Symbol   string
	Side     Side
	Entry    float64
	Current  float64
	TP       float64
	SL       float64
	Qty      float64 // margin * leverage / entry
	Margin   float64
	Leverage float64

	// экстремумы в благоприятную сторону, двигаются только туда
	HighestPx float64
	LowestPx  float64

	PnL float64 // пересчитывается на каждом тике

	OpenedAt time.Time
	ExpiryAt time.Time

	DecisionID string

	// стадии трейлинга, чтобы не дёргать стоп каждый тик
	MovedToBE    bool
	LockedProfit bool
}

// TradeRecord — закрытая сделка в истории.
type TradeRecord struct {
	Time   time.Time
	Symbol string
	Side   Side
	Entry  float64
	Exit   float64
	Qty    float64
	PnL    float64
	Reason CloseReason
}
