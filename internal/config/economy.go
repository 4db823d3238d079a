package config

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EconomyConfig holds the tunable parameters of the virtual economy. All
// values can be overridden through environment variables or the .env file.
type EconomyConfig struct {
	DefaultCreditLimit decimal.Decimal
	StartingCash       decimal.Decimal
	MinimumDueFloor    decimal.Decimal
	MinimumDuePercent  decimal.Decimal
	GraceDays          int
	DefaultAPR         decimal.Decimal
	MaxTurnsPerMonth   int
}

// LoadEconomyConfig returns economy configuration with defaults.
func LoadEconomyConfig() *EconomyConfig {
	viper.SetDefault("economy.credit_limit", 1500.00)
	viper.SetDefault("economy.starting_cash", 1000.00)
	viper.SetDefault("economy.minimum_due_floor", 5.00)
	viper.SetDefault("economy.minimum_due_percent", 0.10)
	viper.SetDefault("economy.grace_days", 7)
	viper.SetDefault("economy.default_apr", 0.199)
	viper.SetDefault("economy.max_turns_per_month", 10)

	return &EconomyConfig{
		DefaultCreditLimit: decimal.NewFromFloat(viper.GetFloat64("economy.credit_limit")),
		StartingCash:       decimal.NewFromFloat(viper.GetFloat64("economy.starting_cash")),
		MinimumDueFloor:    decimal.NewFromFloat(viper.GetFloat64("economy.minimum_due_floor")),
		MinimumDuePercent:  decimal.NewFromFloat(viper.GetFloat64("economy.minimum_due_percent")),
		GraceDays:          viper.GetInt("economy.grace_days"),
		DefaultAPR:         decimal.NewFromFloat(viper.GetFloat64("economy.default_apr")),
		MaxTurnsPerMonth:   viper.GetInt("economy.max_turns_per_month"),
	}
}
