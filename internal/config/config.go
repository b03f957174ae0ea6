package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// QualificationEntry configures one automatic loyalty tier threshold.
type QualificationEntry struct {
	Tier      string          `json:"tier" validate:"required"`
	MinSpend  decimal.Decimal `json:"minSpend"`
	MinOrders int             `json:"minOrders" validate:"gte=0"`
}

// BracketEntry configures one in-tier rate bracket keyed by cart total.
type BracketEntry struct {
	MinTotal decimal.Decimal `json:"minTotal"`
	Rate     decimal.Decimal `json:"rate"`
}

// SurchargeEntry configures the surcharge for one payment method.
type SurchargeEntry struct {
	Rate    decimal.Decimal `json:"rate"`
	Taxable bool            `json:"taxable"`
}

// DynamicRuleEntry configures one quantity-breakpoint pricing rule.
type DynamicRuleEntry struct {
	MinQty     int             `json:"minQty" validate:"gte=1"`
	Kind       string          `json:"kind" validate:"oneof=percent fixed"`
	PercentBps int32           `json:"percentBps" validate:"gte=0,lte=10000"`
	Value      decimal.Decimal `json:"value"`
}

// Config holds the pricing rule tables and ambient settings loaded from the
// environment. Scalars come from plain env vars, rule tables from JSON env
// blobs.
type Config struct {
	AppEnv           string
	LogFormat        string
	LogLevel         string
	MetricsNamespace string

	DefaultManualRate decimal.Decimal
	Qualifications    []QualificationEntry `validate:"dive"`
	Brackets          map[string][]BracketEntry
	SurchargeRates    map[string]SurchargeEntry
	SurchargeMin      decimal.Decimal
	SurchargeMax      decimal.Decimal
	DynamicRules      map[string][]DynamicRuleEntry `validate:"dive,dive"`
}

// Load reads configuration from environment variables and optional .env files.
// Rule tables are optional: an absent table simply configures no discounts or
// surcharges of that kind.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:            valueOrDefault(k.String("APP_ENV"), "development"),
		LogFormat:         valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:          valueOrDefault(k.String("LOG_LEVEL"), "info"),
		MetricsNamespace:  valueOrDefault(k.String("METRICS_NAMESPACE"), "pricing"),
		DefaultManualRate: parseDecimal(k.String("PRICING_DEFAULT_MANUAL_RATE"), "0.1"),
		SurchargeMin:      parseDecimal(k.String("PRICING_SURCHARGE_MIN"), "0"),
		SurchargeMax:      parseDecimal(k.String("PRICING_SURCHARGE_MAX"), "0"),
	}

	if err := decodeTable(k.String("PRICING_TIER_QUALIFICATIONS"), &cfg.Qualifications); err != nil {
		return nil, fmt.Errorf("PRICING_TIER_QUALIFICATIONS: %w", err)
	}
	if err := decodeTable(k.String("PRICING_TIER_BRACKETS"), &cfg.Brackets); err != nil {
		return nil, fmt.Errorf("PRICING_TIER_BRACKETS: %w", err)
	}
	if err := decodeTable(k.String("PRICING_SURCHARGE_RATES"), &cfg.SurchargeRates); err != nil {
		return nil, fmt.Errorf("PRICING_SURCHARGE_RATES: %w", err)
	}
	if err := decodeTable(k.String("PRICING_DYNAMIC_RULES"), &cfg.DynamicRules); err != nil {
		return nil, fmt.Errorf("PRICING_DYNAMIC_RULES: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func decodeTable(raw string, out any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("decode json table: %w", err)
	}
	return nil
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDecimal(value, fallback string) decimal.Decimal {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := decimal.NewFromString(base)
	if err != nil {
		d, _ = decimal.NewFromString(fallback)
	}
	return d
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
