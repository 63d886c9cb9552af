package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"sniper_bot/internal/helper"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
	binanceKeyENV     = "BINANCE_API_KEY"
	binanceSecretENV  = "BINANCE_API_SECRET"
)

// Config ...
type Config struct {
	Telegram struct {
		Token  string `mapstructure:"token"`
		ChatID int64  `mapstructure:"chat_id"`
	} `mapstructure:"telegram"`
	DB string `mapstructure:"db_dsn"`

	Binance struct {
		APIKey    string `mapstructure:"api_key"`
		APISecret string `mapstructure:"api_secret"`
		RestURL   string `mapstructure:"rest_url"`
		WsURL     string `mapstructure:"ws_url"`
		Real      bool   `mapstructure:"real"` // false — только бумажный учёт
	} `mapstructure:"binance"`

	// Бумажный счёт и трейлинг
	StartBalance   float64 `mapstructure:"start_balance"`
	BETriggerPct   float64 `mapstructure:"be_trigger_pct"`
	BEOffsetPct    float64 `mapstructure:"be_offset_pct"`
	LockTriggerPct float64 `mapstructure:"lock_trigger_pct"`
	LockOffsetPct  float64 `mapstructure:"lock_offset_pct"`

	// Дефолты сделки, если решение их не задало
	DefaultMarginUSD float64 `mapstructure:"default_margin_usd"`
	DefaultLeverage  float64 `mapstructure:"default_leverage"`
	DefaultTPPct     float64 `mapstructure:"default_tp_pct"`
	DefaultSLPct     float64 `mapstructure:"default_sl_pct"`
	DefaultValidity  int     `mapstructure:"default_validity_min"`

	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	StaleAfter    time.Duration `mapstructure:"stale_after"`

	PairsFile string `mapstructure:"pairs_file"`
	// Белый список символов из PairsFile; пустой — торгуем что пришлёт решение
	Watchlist []string
}

func NewConfig() (*Config, error) {
	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}

	v := viper.New()
	v.SetConfigFile("configs/" + configFileName)

	v.SetDefault("start_balance", 10_000.0)
	v.SetDefault("be_trigger_pct", 0.8)
	v.SetDefault("be_offset_pct", 0.15)
	v.SetDefault("lock_trigger_pct", 1.5)
	v.SetDefault("lock_offset_pct", 1.0)

	v.SetDefault("default_margin_usd", 100.0)
	v.SetDefault("default_leverage", 10.0)
	v.SetDefault("default_tp_pct", 2.0)
	v.SetDefault("default_sl_pct", 1.0)
	v.SetDefault("default_validity_min", 60)

	v.SetDefault("sweep_interval", "2s")
	v.SetDefault("stale_after", "3m")

	v.SetDefault("binance.rest_url", "https://fapi.binance.com")
	v.SetDefault("binance.ws_url", "wss://fstream.binance.com/ws")

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "read config file")
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "decode config file")
	}

	// секреты только из окружения, файл их не перекрывает
	if token := os.Getenv(tokenTelegramENV); token != "" {
		config.Telegram.Token = token
	}
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		config.DB = dsn
	}
	if key := os.Getenv(binanceKeyENV); key != "" {
		config.Binance.APIKey = key
	}
	if secret := os.Getenv(binanceSecretENV); secret != "" {
		config.Binance.APISecret = secret
	}

	if config.PairsFile != "" {
		watch, err := loadPairs(config.PairsFile)
		if err != nil {
			return nil, err
		}
		config.Watchlist = watch
	}

	return &config, nil
}

type pairsFile struct {
	Pairs []string `yaml:"pairs"`
}

func loadPairs(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open pairs file")
	}
	defer func() {
		_ = file.Close()
	}()

	var pf pairsFile
	if err = yaml.NewDecoder(file).Decode(&pf); err != nil {
		return nil, errors.Wrap(err, "decode pairs file")
	}

	out := make([]string, 0, len(pf.Pairs))
	for _, p := range pf.Pairs {
		if s := helper.NormSymbol(p); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// InWatchlist — пустой список разрешает всё.
func (c *Config) InWatchlist(symbol string) bool {
	if len(c.Watchlist) == 0 {
		return true
	}
	symbol = strings.ToUpper(symbol)
	for _, w := range c.Watchlist {
		if w == symbol {
			return true
		}
	}
	return false
}
