// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all runtime configuration for the offers service.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	// Outbound channels.
	KafkaBrokers  []string
	TelegramToken string

	// Vendor endpoints. Empty base URL disables the adapter for that source.
	MegamartBaseURL   string
	MegamartAPIKey    string
	FlashdealsBaseURL string
	BazaarBaseURL     string
	BazaarFeedURL     string

	// Normalisation.
	ReportingCurrency string
	RatesURL          string

	// Content blacklist. Comma-separated keywords; patterns are Go regexps.
	BlacklistEnabled  bool
	BlacklistKeywords []string
	BlacklistPatterns []string

	RetentionDays int
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	retention := 14
	if s := os.Getenv("RETENTION_DAYS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("RETENTION_DAYS must be a positive integer, got %q", s)
		}
		retention = v
	}

	currency := os.Getenv("REPORTING_CURRENCY")
	if currency == "" {
		currency = "USD"
	}

	port := os.Getenv("OFFERS_PORT")
	if port == "" {
		port = "8083"
	}

	return &Config{
		Port:              port,
		DatabaseURL:       dbURL,
		RedisURL:          redisURL,
		KafkaBrokers:      splitList(os.Getenv("KAFKA_BROKERS")),
		TelegramToken:     os.Getenv("TELEGRAM_BOT_TOKEN"),
		MegamartBaseURL:   os.Getenv("MEGAMART_BASE_URL"),
		MegamartAPIKey:    os.Getenv("MEGAMART_API_KEY"),
		FlashdealsBaseURL: os.Getenv("FLASHDEALS_BASE_URL"),
		BazaarBaseURL:     os.Getenv("BAZAAR_BASE_URL"),
		BazaarFeedURL:     os.Getenv("BAZAAR_FEED_URL"),
		ReportingCurrency: currency,
		RatesURL:          os.Getenv("EXCHANGE_RATES_URL"),
		BlacklistEnabled:  os.Getenv("BLACKLIST_ENABLED") == "true",
		BlacklistKeywords: splitList(os.Getenv("BLACKLIST_KEYWORDS")),
		BlacklistPatterns: splitList(os.Getenv("BLACKLIST_PATTERNS")),
		RetentionDays:     retention,
	}, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
