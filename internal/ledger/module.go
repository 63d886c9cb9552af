package ledger

import (
	"go.uber.org/fx"

	"sniper_bot/internal/market"
	"sniper_bot/internal/modules/config"
)

// Module — бумажный учёт позиций и реестр рыночных буферов.
func Module() fx.Option {
	return fx.Module("ledger",
		fx.Provide(
			func(cfg *config.Config) *Ledger {
				return New(Config{
					StartBalance:   cfg.StartBalance,
					BETriggerPct:   cfg.BETriggerPct,
					BEOffsetPct:    cfg.BEOffsetPct,
					LockTriggerPct: cfg.LockTriggerPct,
					LockOffsetPct:  cfg.LockOffsetPct,
				})
			},
			market.NewRegistry,
		),
	)
}
