// dealradar offers-service — collects discounted-product listings from
// external marketplaces and redistributes them to per-tenant channels on a
// configurable schedule.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"dealradar/offers-service/internal/affiliate"
	"dealradar/offers-service/internal/automation"
	"dealradar/offers-service/internal/collector"
	"dealradar/offers-service/internal/config"
	"dealradar/offers-service/internal/db"
	"dealradar/offers-service/internal/dispatch"
	"dealradar/offers-service/internal/filter"
	"dealradar/offers-service/internal/model"
	"dealradar/offers-service/internal/rates"
	"dealradar/offers-service/internal/runner"
	"dealradar/offers-service/internal/source"
	"dealradar/offers-service/internal/store"
)

func main() {
	log.Println("[offers-service] starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[offers-service] config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[offers-service] postgres: %v", err)
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("[offers-service] redis: %v", err)
	}
	defer rdb.Close()

	// ── Shared plumbing ────────────────────────────────────────────────
	rateCache := rates.New(rdb, cfg.RatesURL, cfg.ReportingCurrency, time.Hour)
	affClient := affiliate.NewClient(rdb, 24*time.Hour)
	norm := source.Normalizer{Rates: rateCache, Affiliate: affClient}

	blacklist, err := filter.New(cfg.BlacklistEnabled, cfg.BlacklistKeywords, cfg.BlacklistPatterns)
	if err != nil {
		log.Fatalf("[offers-service] blacklist: %v", err)
	}

	adapters := []source.Adapter{
		source.NewMegamart(cfg.MegamartBaseURL, cfg.MegamartAPIKey, norm),
		source.NewFlashdeals(cfg.FlashdealsBaseURL, norm),
		source.NewBazaar(cfg.BazaarBaseURL, cfg.BazaarFeedURL, norm),
	}

	// ── Stores ─────────────────────────────────────────────────────────
	offers := store.NewOffers(pool)
	ledger := store.NewLedger(pool)
	tenantsRepo := store.NewTenants(pool)
	attempts := store.NewAttempts(rdb)

	// ── Channel senders ────────────────────────────────────────────────
	senders := make(map[string]dispatch.Sender)
	if cfg.TelegramToken != "" {
		tg, err := dispatch.NewTelegramSender(cfg.TelegramToken)
		if err != nil {
			log.Fatalf("[offers-service] telegram: %v", err)
		}
		senders["telegram"] = tg
	}
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := dispatch.NewKafkaSender(cfg.KafkaBrokers)
		if err != nil {
			log.Fatalf("[offers-service] kafka: %v", err)
		}
		defer kafka.Close()
		senders["kafka"] = kafka
	}
	registry := dispatch.NewRegistry(senders)

	// ── Engines ────────────────────────────────────────────────────────
	orchestrator := collector.New(adapters, blacklist, offers, ledger, nil)
	scheduler := automation.New(offers, registry, attempts, nil)
	jobs := runner.New(tenantsRepo)

	withConfig := func(fn func(ctx context.Context, t model.Tenant, ac model.AutomationConfig)) func(context.Context, model.Tenant) error {
		return func(ctx context.Context, t model.Tenant) error {
			ac, err := tenantsRepo.LoadConfig(ctx, t.ID)
			if err != nil {
				return fmt.Errorf("load automation config: %w", err)
			}
			fn(ctx, t, ac)
			return nil
		}
	}

	// ── Cron wiring ────────────────────────────────────────────────────
	var retentionMu sync.Mutex
	var lastRetention time.Time

	c := cron.New(cron.WithLogger(cron.DefaultLogger))

	mustAdd := func(spec string, fn func()) {
		if _, err := c.AddFunc(spec, fn); err != nil {
			log.Fatalf("[offers-service] cron %q: %v", spec, err)
		}
	}

	mustAdd("@every 1m", func() {
		jobs.RunForActiveTenants(ctx, "dispatch-tick", withConfig(func(ctx context.Context, t model.Tenant, ac model.AutomationConfig) {
			scheduler.Tick(ctx, ac, time.Now())
		}))
	})

	mustAdd("@hourly", func() {
		jobs.RunForActiveTenants(ctx, "hourly-plan", withConfig(func(ctx context.Context, t model.Tenant, ac model.AutomationConfig) {
			scheduler.Plan(ctx, ac, time.Now())
		}))
	})

	mustAdd("@every 6h", func() {
		jobs.RunForActiveTenants(ctx, "collection-sweep", withConfig(func(ctx context.Context, t model.Tenant, ac model.AutomationConfig) {
			orchestrator.CollectAll(ctx, t, ac)
		}))
	})

	mustAdd("@every 1h", func() {
		retentionMu.Lock()
		due := runner.ShouldRunNow(lastRetention, 24*time.Hour, time.Now())
		if due {
			lastRetention = time.Now()
		}
		retentionMu.Unlock()
		if !due {
			return
		}
		n, err := offers.DeactivateOlderThan(ctx, cfg.RetentionDays)
		if err != nil {
			log.Printf("[offers-service] retention sweep: %v", err)
			return
		}
		log.Printf("[offers-service] retention sweep deactivated %d offer(s)", n)
	})

	c.Start()
	defer c.Stop()
	log.Println("[offers-service] cron started")

	// Populate the backlog without waiting for the first 6h tick.
	go jobs.RunForActiveTenants(ctx, "collection-startup", withConfig(func(ctx context.Context, t model.Tenant, ac model.AutomationConfig) {
		orchestrator.CollectAll(ctx, t, ac)
	}))

	go startHealthServer(cfg.Port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("[offers-service] shutdown signal received, stopping")
	cancel()
	log.Println("[offers-service] stopped gracefully")
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

func startHealthServer(port string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(healthResponse{
			Status:  "ok",
			Service: "offers-service",
			Version: "1.2.0",
		})
	})

	addr := fmt.Sprintf(":%s", port)
	log.Printf("[offers-service] health endpoint on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("[offers-service] health server: %v", err)
	}
}
