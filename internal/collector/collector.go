// Package collector orchestrates offer acquisition across source adapters:
// strategy cascades, daily idempotency, normalisation, content filtering
// and persistence.
package collector

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"dealradar/offers-service/internal/filter"
	"dealradar/offers-service/internal/model"
	"dealradar/offers-service/internal/source"
)

// OfferStore is the slice of the offer repository the collector needs.
type OfferStore interface {
	Upsert(ctx context.Context, o *model.Offer) (bool, error)
}

// BatchLedger is the daily idempotency record per (source, calendar day).
type BatchLedger interface {
	GetOrCreate(ctx context.Context, sourceKey, day string) (model.BatchEntry, error)
	Complete(ctx context.Context, sourceKey, day string, count int) error
	Fail(ctx context.Context, sourceKey, day, errMsg string) error
}

// Summary is the per-source breakdown of one collection pass.
type Summary struct {
	BySource map[string]int
	Total    int
}

// Orchestrator fans out across adapters and persists surviving offers.
type Orchestrator struct {
	adapters  []source.Adapter
	blacklist *filter.Blacklist
	offers    OfferStore
	ledger    BatchLedger
	now       func() time.Time
}

// New constructs an Orchestrator. now is injectable for tests; nil means
// time.Now.
func New(adapters []source.Adapter, blacklist *filter.Blacklist, offers OfferStore, ledger BatchLedger, now func() time.Time) *Orchestrator {
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		adapters:  adapters,
		blacklist: blacklist,
		offers:    offers,
		ledger:    ledger,
		now:       now,
	}
}

// CollectAll fans out CollectFromSource concurrently across the sources the
// tenant has enabled and waits for every branch. A tenant with collection
// disabled gets an all-zero summary without any network call.
func (o *Orchestrator) CollectAll(ctx context.Context, tenant model.Tenant, cfg model.AutomationConfig) Summary {
	summary := Summary{BySource: make(map[string]int)}

	enabled := o.enabledAdapters(cfg)
	for _, a := range enabled {
		summary.BySource[a.Name()] = 0
	}
	if !cfg.CollectionEnabled {
		log.Printf("[collector] tenant %s: collection disabled, skipping", tenant.ID)
		return summary
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, a := range enabled {
		wg.Add(1)
		go func(a source.Adapter) {
			defer wg.Done()
			count := o.CollectFromSource(ctx, tenant, a)
			mu.Lock()
			summary.BySource[a.Name()] = count
			summary.Total += count
			mu.Unlock()
		}(a)
	}
	wg.Wait()

	log.Printf("[collector] tenant %s: collected %d offers (%v)", tenant.ID, summary.Total, summary.BySource)
	return summary
}

// CollectFromSource runs the full cascade for one adapter and returns the
// number of offers persisted. A faulting source never aborts collection for
// other sources or tenants: every failure path, panics included, collapses
// to a zero count and a log line.
func (o *Orchestrator) CollectFromSource(ctx context.Context, tenant model.Tenant, a source.Adapter) (count int) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[collector] tenant %s source %s: panic recovered: %v", tenant.ID, a.Name(), r)
			count = 0
		}
	}()

	var (
		candidates []model.RawCandidate
		seen       = make(map[string]bool)
		dailyCount int
	)

	for _, strat := range a.Strategies() {
		if strat.Daily {
			// Daily strategies persist inside the ledger guard so the stored
			// count stays meaningful on the idempotent short-circuit.
			n, err := o.WithDailyIdempotency(ctx, a.Name()+":"+strat.Name, o.day(), func(ctx context.Context) (int, error) {
				batch, err := a.FetchCandidates(ctx, strat)
				if err != nil {
					return 0, err
				}
				return o.persist(ctx, tenant, a, dedupe(batch, seen)), nil
			})
			if err != nil {
				log.Printf("[collector] tenant %s source %s strategy %s failed: %v — trying next strategy",
					tenant.ID, a.Name(), strat.Name, err)
				continue
			}
			dailyCount += n
			continue
		}

		batch, err := a.FetchCandidates(ctx, strat)
		if err != nil {
			log.Printf("[collector] tenant %s source %s strategy %s failed: %v — trying next strategy",
				tenant.ID, a.Name(), strat.Name, err)
			continue
		}
		candidates = append(candidates, dedupe(batch, seen)...)
	}

	return o.persist(ctx, tenant, a, candidates) + dailyCount
}

// persist normalises, filters and upserts candidates, returning how many
// offers were actually written. Validation failures are dropped silently.
func (o *Orchestrator) persist(ctx context.Context, tenant model.Tenant, a source.Adapter, candidates []model.RawCandidate) int {
	if len(candidates) == 0 {
		return 0
	}

	offers := make([]*model.Offer, 0, len(candidates))
	for _, c := range candidates {
		offer, ok := a.Normalize(ctx, c)
		if !ok {
			continue
		}
		offer.TenantID = tenant.ID
		offers = append(offers, offer)
	}

	offers = o.blacklist.Apply(offers)

	written := 0
	for _, offer := range offers {
		ok, err := o.offers.Upsert(ctx, offer)
		if err != nil {
			log.Printf("[collector] tenant %s: upsert failed for %q: %v", tenant.ID, offer.Title, err)
			continue
		}
		if ok {
			written++
		}
	}
	return written
}

// WithDailyIdempotency runs fn at most once per (sourceKey, day). A
// completed entry short-circuits with the stored count; pending and failed
// entries let fn run again, so only a confirmed success is skipped.
func (o *Orchestrator) WithDailyIdempotency(ctx context.Context, sourceKey, day string, fn func(ctx context.Context) (int, error)) (int, error) {
	entry, err := o.ledger.GetOrCreate(ctx, sourceKey, day)
	if err != nil {
		return 0, fmt.Errorf("ledger lookup for %s/%s: %w", sourceKey, day, err)
	}
	if entry.Status == model.BatchCompleted {
		log.Printf("[collector] batch %s/%s already completed (%d items) — skipping", sourceKey, day, entry.ItemsCount)
		return entry.ItemsCount, nil
	}

	count, err := fn(ctx)
	if err != nil {
		if ferr := o.ledger.Fail(ctx, sourceKey, day, err.Error()); ferr != nil {
			log.Printf("[collector] ledger fail-write for %s/%s: %v", sourceKey, day, ferr)
		}
		return 0, err
	}

	if cerr := o.ledger.Complete(ctx, sourceKey, day, count); cerr != nil {
		return count, fmt.Errorf("ledger complete for %s/%s: %w", sourceKey, day, cerr)
	}
	return count, nil
}

func (o *Orchestrator) enabledAdapters(cfg model.AutomationConfig) []source.Adapter {
	if len(cfg.Filters.EnabledSources) == 0 {
		return o.adapters
	}
	enabled := make(map[string]bool, len(cfg.Filters.EnabledSources))
	for _, s := range cfg.Filters.EnabledSources {
		enabled[s] = true
	}
	var out []source.Adapter
	for _, a := range o.adapters {
		if enabled[a.Name()] {
			out = append(out, a)
		}
	}
	return out
}

func (o *Orchestrator) day() string {
	return o.now().UTC().Format("2006-01-02")
}

// dedupe drops candidates whose source-native ID was already seen in this
// pass. Candidates without an external ID pass through; the store's upsert
// key catches those.
func dedupe(batch []model.RawCandidate, seen map[string]bool) []model.RawCandidate {
	out := batch[:0]
	for _, c := range batch {
		if c.ExternalID != "" {
			if seen[c.ExternalID] {
				continue
			}
			seen[c.ExternalID] = true
		}
		out = append(out, c)
	}
	return out
}
