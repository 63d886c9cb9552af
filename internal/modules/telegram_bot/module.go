package telegram

import (
	"context"

	"go.uber.org/fx"

	"sniper_bot/internal/modules/config"
	"sniper_bot/internal/modules/telegram_bot/service"
	"sniper_bot/internal/notify"
	"sniper_bot/internal/runner"
	"sniper_bot/pkg/logger"
)

func Module() fx.Option {
	return fx.Module("telegram",
		// Без токена живём на stdout-заглушке — бот работает, алерты в лог.
		fx.Provide(
			func(cfg *config.Config, store runner.TradeStore) (*service.Telegram, runner.Notifier, error) {
				if cfg.Telegram.Token == "" {
					logger.Info("[TG] токен не задан, нотификации в stdout")
					return nil, notify.NewStdout(), nil
				}
				t, err := service.NewTelegram(cfg, store)
				if err != nil {
					return nil, nil, err
				}
				return t, t, nil
			},
		),
		fx.Invoke(
			func(lc fx.Lifecycle, t *service.Telegram, r *runner.Runner) {
				if t == nil {
					return
				}
				t.SetCommands(r)

				ctx, cancel := context.WithCancel(context.Background())
				lc.Append(fx.Hook{
					OnStart: func(context.Context) error {
						t.Start(ctx)
						return nil
					},
					OnStop: func(context.Context) error {
						cancel()
						t.Stop()
						return nil
					},
				})
			},
		),
	)
}
