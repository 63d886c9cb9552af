package binance_client

import (
	"go.uber.org/fx"

	"sniper_bot/internal/modules/binance_client/service"
)

// Module — REST-клиент биржи для реальных ордеров и бэкфилла.
func Module() fx.Option {
	return fx.Module("binance_client",
		fx.Provide(
			service.NewClient,
		),
	)
}
