package main

import (
	"context"

	"go.uber.org/fx"

	"sniper_bot/internal/ledger"
	"sniper_bot/internal/modules/binance_client"
	"sniper_bot/internal/modules/binance_ws"
	"sniper_bot/internal/modules/config"
	"sniper_bot/internal/modules/health"
	"sniper_bot/internal/modules/postgres"
	"sniper_bot/internal/repo/trades"
	"sniper_bot/internal/runner"
	"sniper_bot/internal/sweeper"
	"sniper_bot/pkg/logger"
	"sniper_bot/pkg/tracing"

	telegram "sniper_bot/internal/modules/telegram_bot"
)

func main() {
	logger.Init()
	logger.SetServiceName("sniper_bot")
	tracing.SetServiceName("sniper_bot")

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		postgres.Module(),
		ledger.Module(),
		binance_client.Module(),
		binance_ws.Module(),
		sweeper.Module(),
		runner.Module(),
		trades.Module(),
		telegram.Module(),
		health.Module(),
		fx.Invoke(initTracing),
	)
	app.Run()
}

// Jaeger опционален: без агента работаем на noop-трейсере.
func initTracing(lc fx.Lifecycle) {
	_, closeTracer, err := tracing.InitTracer(tracing.Config{Host: "127.0.0.1", Port: 6831})
	if err != nil {
		logger.Error("[TRACE] jaeger не поднялся: %v", err)
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closeTracer()
			return nil
		},
	})
}
