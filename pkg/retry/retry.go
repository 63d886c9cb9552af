package retry

import (
	"context"
	"time"
)

// Config конфигурация для retry логики: фиксированная задержка между
// попытками, без экспоненты — для бэкфилла и REST-запросов к бирже
// этого достаточно.
type Config struct {
	// MaxRetries - максимальное количество попыток (включая первую)
	MaxRetries int

	// Delay - задержка между попытками
	Delay time.Duration

	// OnRetry - callback перед каждой повторной попыткой
	OnRetry func(attempt int, err error)
}

// DefaultConfig - 3 попытки с паузой в секунду
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		Delay:      time.Second,
	}
}

func (c *Config) validate() {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.Delay <= 0 {
		c.Delay = time.Second
	}
}

// Do выполняет операцию с повторными попытками.
// Возвращает nil при первом успехе, иначе последнюю ошибку.
func Do(ctx context.Context, operation func() error, cfg Config) error {
	cfg.validate()

	var lastErr error
	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return lastErr
			}
			return ctx.Err()
		default:
		}

		if lastErr = operation(); lastErr == nil {
			return nil
		}

		if attempt >= cfg.MaxRetries-1 {
			break
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, lastErr)
		}

		select {
		case <-time.After(cfg.Delay):
		case <-ctx.Done():
			return lastErr
		}
	}
	return lastErr
}

// DoWithResult - то же самое для операций с результатом.
func DoWithResult[T any](ctx context.Context, operation func() (T, error), cfg Config) (T, error) {
	var out T
	err := Do(ctx, func() error {
		var opErr error
		out, opErr = operation()
		return opErr
	}, cfg)
	return out, err
}
