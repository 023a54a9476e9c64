// Package automation turns each tenant's offer backlog into a time-ordered
// stream of channel posts, honouring active hours, interval vs.
// smart-distribution modes and peak-hour prioritisation.
package automation

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"dealradar/offers-service/internal/dispatch"
	"dealradar/offers-service/internal/model"
)

// maxDispatchAttempts bounds how often one offer is retried when a channel
// keeps failing (e.g. misconfigured chat ID).
const maxDispatchAttempts = 5

// OfferStore is the slice of the offer repository the scheduler needs.
type OfferStore interface {
	QueryEligible(ctx context.Context, tenantID string, f model.OfferFilters) ([]model.Offer, error)
	MarkPosted(ctx context.Context, offerID string) error
}

// AttemptCounter tracks bounded per-offer dispatch attempts.
type AttemptCounter interface {
	Count(ctx context.Context, offerID string) (int, error)
	Bump(ctx context.Context, offerID string) (int, error)
}

// tenantState is the in-memory scheduling state for one tenant. Ticks are
// independent, idempotent invocations keyed by now; this state only carries
// the last post time and the pre-computed slots between them.
type tenantState struct {
	lastPost time.Time
	planHour time.Time   // hour the current slot plan belongs to
	slots    []time.Time // pending smart-distribution timestamps, ascending
}

// Scheduler drives per-tenant posting. One instance serves all tenants;
// the process is the single scheduling authority per deployment.
type Scheduler struct {
	offers   OfferStore
	sender   dispatch.Sender
	attempts AttemptCounter

	mu    sync.Mutex
	state map[string]*tenantState
	rnd   *rand.Rand
}

// New constructs a Scheduler. rnd may be nil (seeded from the clock);
// tests pass a fixed source for deterministic plans.
func New(offers OfferStore, sender dispatch.Sender, attempts AttemptCounter, rnd *rand.Rand) *Scheduler {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Scheduler{
		offers:   offers,
		sender:   sender,
		attempts: attempts,
		state:    make(map[string]*tenantState),
		rnd:      rnd,
	}
}

// Tick runs one scheduling pass for the tenant at the given instant and
// returns how many offers were dispatched. Outside the active window, or
// with automation off, it does nothing.
func (s *Scheduler) Tick(ctx context.Context, cfg model.AutomationConfig, now time.Time) int {
	if !cfg.IsActive || !InActiveWindow(cfg, now.Hour()) {
		return 0
	}

	if cfg.PostsPerHour > 0 {
		return s.tickSmart(ctx, cfg, now)
	}
	return s.tickInterval(ctx, cfg, now)
}

// tickInterval posts one offer whenever intervalMinutes have elapsed since
// the last post. A tenant with no recorded post yet is due immediately.
func (s *Scheduler) tickInterval(ctx context.Context, cfg model.AutomationConfig, now time.Time) int {
	st := s.tenant(cfg.TenantID)
	interval := time.Duration(cfg.IntervalMinutes) * time.Minute

	s.mu.Lock()
	due := st.lastPost.IsZero() || now.Sub(st.lastPost) >= interval
	s.mu.Unlock()
	if !due {
		return 0
	}

	if !s.dispatchOne(ctx, cfg, now) {
		return 0
	}
	s.mu.Lock()
	st.lastPost = now
	s.mu.Unlock()
	return 1
}

// tickSmart dispatches any planned slot whose timestamp has arrived. The
// plan for the current hour is generated on the hourly Plan call, or here
// lazily when a tick lands on an hour that has no plan yet.
func (s *Scheduler) tickSmart(ctx context.Context, cfg model.AutomationConfig, now time.Time) int {
	s.ensurePlan(cfg, now)
	st := s.tenant(cfg.TenantID)

	s.mu.Lock()
	var due int
	for due < len(st.slots) && !st.slots[due].After(now) {
		due++
	}
	st.slots = st.slots[due:]
	s.mu.Unlock()

	dispatched := 0
	for i := 0; i < due; i++ {
		if s.dispatchOne(ctx, cfg, now) {
			dispatched++
			s.mu.Lock()
			st.lastPost = now
			s.mu.Unlock()
		}
	}
	return dispatched
}

// Plan pre-computes the tenant's posting slots for the hour containing now.
// Safe to call every hour boundary and redundantly; a fresh plan replaces
// the stale one only when the hour actually changed.
func (s *Scheduler) Plan(ctx context.Context, cfg model.AutomationConfig, now time.Time) {
	if !cfg.IsActive || cfg.PostsPerHour <= 0 || !InActiveWindow(cfg, now.Hour()) {
		return
	}
	s.ensurePlan(cfg, now)
}

func (s *Scheduler) ensurePlan(cfg model.AutomationConfig, now time.Time) {
	hour := now.Truncate(time.Hour)
	st := s.tenant(cfg.TenantID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if st.planHour.Equal(hour) {
		return
	}
	st.planHour = hour
	st.slots = PlanSlots(cfg, hour, s.rnd)
	log.Printf("[automation] tenant %s: planned %d slot(s) for hour %s",
		cfg.TenantID, len(st.slots), hour.Format("15:04"))
}

// dispatchOne selects the best eligible offer and sends it to every enabled
// channel. The offer is marked posted only when all channels accepted it;
// a partial or full failure leaves it eligible and bumps its bounded
// attempt counter.
func (s *Scheduler) dispatchOne(ctx context.Context, cfg model.AutomationConfig, now time.Time) bool {
	if len(cfg.EnabledChannels) == 0 {
		return false
	}

	pool, err := s.offers.QueryEligible(ctx, cfg.TenantID, cfg.Filters)
	if err != nil {
		log.Printf("[automation] tenant %s: queryEligible: %v", cfg.TenantID, err)
		return false
	}
	pool = FilterEligible(pool, cfg.Filters)
	pool = s.dropExhausted(ctx, pool)

	offer := SelectOffer(pool, cfg, now)
	if offer == nil {
		return false
	}

	allSent := true
	for _, ch := range cfg.EnabledChannels {
		if err := s.sender.Send(ctx, *offer, ch); err != nil {
			log.Printf("[automation] tenant %s: send %q to channel %s failed: %v",
				cfg.TenantID, offer.Title, ch.ID, err)
			allSent = false
		}
	}

	if !allSent {
		if s.attempts != nil {
			if n, err := s.attempts.Bump(ctx, offer.ID); err != nil {
				log.Printf("[automation] tenant %s: attempt bump: %v", cfg.TenantID, err)
			} else if n >= maxDispatchAttempts {
				log.Printf("[automation] tenant %s: offer %s reached %d dispatch attempts — parking it",
					cfg.TenantID, offer.ID, n)
			}
		}
		return false
	}

	if err := s.offers.MarkPosted(ctx, offer.ID); err != nil {
		log.Printf("[automation] tenant %s: markPosted %s: %v", cfg.TenantID, offer.ID, err)
		return false
	}
	log.Printf("[automation] tenant %s: posted %q (%.0f%% off) to %d channel(s)",
		cfg.TenantID, offer.Title, offer.DiscountPercentage, len(cfg.EnabledChannels))
	return true
}

// dropExhausted removes offers whose dispatch attempt budget is spent.
func (s *Scheduler) dropExhausted(ctx context.Context, pool []model.Offer) []model.Offer {
	if s.attempts == nil {
		return pool
	}
	kept := pool[:0]
	for _, o := range pool {
		n, err := s.attempts.Count(ctx, o.ID)
		if err != nil {
			log.Printf("[automation] attempt count for %s: %v", o.ID, err)
			kept = append(kept, o)
			continue
		}
		if n < maxDispatchAttempts {
			kept = append(kept, o)
		}
	}
	return kept
}

func (s *Scheduler) tenant(id string) *tenantState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.state[id]
	if !ok {
		st = &tenantState{}
		s.state[id] = st
	}
	return st
}
