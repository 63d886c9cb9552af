package models

// PositionEvent — то, что уходит во внешние синки (лог, телеграм, история)
// на каждом заметном событии леджера: открытие, сдвиг стопа, закрытие.
type PositionEvent struct {
	Message  string
	Severity Severity

	// заполнено только при закрытии
	ClosedSymbol string
	Reason       CloseReason
	Record       *TradeRecord

	PnL        float64
	PeakPrice  float64
	DecisionID string
}
