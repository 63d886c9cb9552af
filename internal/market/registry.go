package market

import (
	"sync"

	"sniper_bot/internal/models"
)

// Registry — буферы по символу. Get создаёт лениво (первый тик из стрима),
// Peek не создаёт — для свипера и статусных команд.
type Registry struct {
	mu      sync.RWMutex
	buffers map[string]*Buffer
}

func NewRegistry() *Registry {
	return &Registry{buffers: make(map[string]*Buffer)}
}

func (r *Registry) Get(symbol string) *Buffer {
	r.mu.RLock()
	b, ok := r.buffers[symbol]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok = r.buffers[symbol]; ok {
		return b
	}
	b = NewBuffer()
	r.buffers[symbol] = b
	return b
}

func (r *Registry) Peek(symbol string) (*Buffer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.buffers[symbol]
	return b, ok
}

func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.buffers))
	for s := range r.buffers {
		out = append(out, s)
	}
	return out
}

// Backfill заливает исторические минутки и суточное изменение в буфер.
// Свечи должны идти по возрастанию времени — так их отдаёт REST.
func (r *Registry) Backfill(symbol string, hist []models.HistCandle, change24h float64) {
	b := r.Get(symbol)
	for _, h := range hist {
		b.UpdateCandle(h.Close, h.Ts, true)
	}
	b.SetChange24h(change24h)
}
