package models

// CandleTick — минутная свеча из стрима (или её промежуточное обновление).
type CandleTick struct {
	Symbol string
	Close  float64
	Start  int64 // unix seconds
	Closed bool  // свеча закрыта, можно класть в историю
}

// HistCandle — закрытая свеча из REST-бэкфилла.
type HistCandle struct {
	Close float64
	Ts    int64 // unix seconds
}

// TickerStat — 24h изменение из батч-тикера.
type TickerStat struct {
	Symbol    string
	Change24h float64
}
