package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/vladislavdragonenkov/retail/internal/service/tier"
)

// Config описывает настройки запуска приложения. Все значения читаются из
// переменных окружения с префиксом RETAIL_; отсутствующие получают дефолты.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	// PostgresDSN пустой — хранилище in-memory (локальная разработка).
	PostgresDSN string
	// KafkaBrokers пустой — события не публикуются.
	KafkaBrokers []string

	TierRules tier.Rules
}

// DefaultConfig возвращает конфигурацию для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",
		TierRules:   tier.DefaultRules(),
	}
}

// LoadConfig строит конфигурацию из окружения поверх дефолтов.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("RETAIL_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("RETAIL_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("RETAIL_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("RETAIL_KAFKA_BROKERS"); v != "" {
		for _, broker := range strings.Split(v, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
			}
		}
	}

	var err error
	if cfg.TierRules.SilverMinProfitMinor, err = envInt64("RETAIL_TIER_SILVER_MIN_MINOR", cfg.TierRules.SilverMinProfitMinor); err != nil {
		return Config{}, err
	}
	if cfg.TierRules.GoldMinProfitMinor, err = envInt64("RETAIL_TIER_GOLD_MIN_MINOR", cfg.TierRules.GoldMinProfitMinor); err != nil {
		return Config{}, err
	}
	if cfg.TierRules.PlatinumMinProfitMinor, err = envInt64("RETAIL_TIER_PLATINUM_MIN_MINOR", cfg.TierRules.PlatinumMinProfitMinor); err != nil {
		return Config{}, err
	}

	if cfg.TierRules.SilverMinProfitMinor > cfg.TierRules.GoldMinProfitMinor ||
		cfg.TierRules.GoldMinProfitMinor > cfg.TierRules.PlatinumMinProfitMinor {
		return Config{}, fmt.Errorf("tier thresholds must be non-decreasing: silver=%d gold=%d platinum=%d",
			cfg.TierRules.SilverMinProfitMinor, cfg.TierRules.GoldMinProfitMinor, cfg.TierRules.PlatinumMinProfitMinor)
	}

	return cfg, nil
}

func envInt64(name string, fallback int64) (int64, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return parsed, nil
}
