// Package rates resolves exchange rates into the reporting currency.
//
// Resolution order: Redis cache → remote JSON endpoint (retry-wrapped) →
// static fallback table. The static table keeps normalisation working when
// the rate provider is down; its values only need to be in the right
// ballpark, since a stale rate still yields a valid discount percentage.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"dealradar/offers-service/internal/retry"
)

const cacheKeyPrefix = "fx:"

// staticFallback maps currency -> units per USD.
var staticFallback = map[string]float64{
	"USD": 1.0,
	"EUR": 0.92,
	"GBP": 0.79,
	"BRL": 5.4,
	"CNY": 7.2,
}

// Cache is an injectable exchange-rate source with a Redis-backed TTL cache.
type Cache struct {
	rdb       *redis.Client
	client    *http.Client
	endpoint  string // e.g. https://open.er-api.com/v6/latest/USD
	reporting string
	ttl       time.Duration
	policy    retry.Policy
}

// New constructs a Cache. endpoint may be empty, in which case only the
// static fallback is used.
func New(rdb *redis.Client, endpoint, reporting string, ttl time.Duration) *Cache {
	return &Cache{
		rdb:       rdb,
		client:    &http.Client{Timeout: 10 * time.Second},
		endpoint:  endpoint,
		reporting: reporting,
		ttl:       ttl,
		policy:    retry.DefaultPolicy(),
	}
}

// Reporting returns the reporting currency code.
func (c *Cache) Reporting() string { return c.reporting }

// Convert settles amount from currency into the reporting currency.
// It never fails: when no live or cached rate is obtainable the static
// fallback applies, and an unknown currency converts at 1:1 with a warning.
func (c *Cache) Convert(ctx context.Context, amount float64, currency string) float64 {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" || currency == c.reporting {
		return amount
	}
	rate := c.rate(ctx, currency)
	if rate <= 0 {
		log.Printf("[rates] no rate for %s, converting 1:1", currency)
		return amount
	}
	return amount / rate
}

// rate returns units of currency per one unit of the reporting currency.
func (c *Cache) rate(ctx context.Context, currency string) float64 {
	key := cacheKeyPrefix + c.reporting + ":" + currency

	if c.rdb != nil {
		if s, err := c.rdb.Get(ctx, key).Result(); err == nil {
			if v, err := strconv.ParseFloat(s, 64); err == nil && v > 0 {
				return v
			}
		}
	}

	if c.endpoint != "" {
		if v, err := c.fetch(ctx, currency); err == nil && v > 0 {
			if c.rdb != nil {
				if err := c.rdb.Set(ctx, key, strconv.FormatFloat(v, 'f', -1, 64), c.ttl).Err(); err != nil {
					log.Printf("[rates] cache write failed: %v", err)
				}
			}
			return v
		} else if err != nil {
			log.Printf("[rates] fetch failed for %s: %v — using static fallback", currency, err)
		}
	}

	return staticFallback[currency]
}

type ratesResponse struct {
	Rates map[string]float64 `json:"rates"`
}

func (c *Cache) fetch(ctx context.Context, currency string) (float64, error) {
	var out float64
	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
		if err != nil {
			return err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("http GET: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return &retry.StatusError{Code: resp.StatusCode}
		}

		var parsed ratesResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return fmt.Errorf("json unmarshal: %w", err)
		}
		v, ok := parsed.Rates[currency]
		if !ok {
			return fmt.Errorf("rate for %s missing from response", currency)
		}
		out = v
		return nil
	})
	return out, err
}
