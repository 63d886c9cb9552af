package notify

import (
	"context"
	"log"
	"time"
)

// Stdout — заглушка, всё логирует и всегда подтверждает.
// Используется, когда токен Telegram не задан.
type Stdout struct{}

func NewStdout() *Stdout                           { return &Stdout{} }
func (s *Stdout) Send(msg string)                  { log.Println(msg) }
func (s *Stdout) Sendf(format string, args ...any) { log.Printf(format, args...) }
func (s *Stdout) Confirm(ctx context.Context, prompt string, timeout time.Duration) bool {
	log.Printf("CONFIRM (auto-yes): %s", prompt)
	return true
}
