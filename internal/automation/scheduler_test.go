package automation_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"dealradar/offers-service/internal/automation"
	"dealradar/offers-service/internal/model"
)

// ─── Test doubles ──────────────────────────────────────────────────────────

type fakeOffers struct {
	pool   []model.Offer
	posted []string
}

func (f *fakeOffers) QueryEligible(_ context.Context, _ string, _ model.OfferFilters) ([]model.Offer, error) {
	// Return only what is still unposted, like the real store.
	var out []model.Offer
	for _, o := range f.pool {
		if !contains(f.posted, o.ID) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOffers) MarkPosted(_ context.Context, id string) error {
	f.posted = append(f.posted, id)
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type fakeSender struct {
	sent    []string
	failAll bool
}

func (f *fakeSender) Send(_ context.Context, o model.Offer, _ model.ChannelConfig) error {
	if f.failAll {
		return errors.New("channel unavailable")
	}
	f.sent = append(f.sent, o.ID)
	return nil
}

type fakeAttempts struct {
	counts map[string]int
}

func newFakeAttempts() *fakeAttempts { return &fakeAttempts{counts: make(map[string]int)} }

func (f *fakeAttempts) Count(_ context.Context, id string) (int, error) { return f.counts[id], nil }
func (f *fakeAttempts) Bump(_ context.Context, id string) (int, error) {
	f.counts[id]++
	return f.counts[id], nil
}

func baseConfig() model.AutomationConfig {
	return model.AutomationConfig{
		TenantID:              "t1",
		IsActive:              true,
		StartHour:             8,
		EndHour:               22,
		IntervalMinutes:       30,
		DiscountWeightVsSales: 50,
		EnabledChannels:       []model.ChannelConfig{{ID: "c1", Type: "telegram", Target: "1"}},
	}
}

func eligibleOffer(id string) model.Offer {
	return model.Offer{
		ID: id, TenantID: "t1", Title: "deal " + id,
		DiscountPercentage: 40, CurrentPrice: 30, SourceName: "megamart",
		IsActive: true, CreatedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 1, hour, min, 0, 0, time.UTC)
}

func newScheduler(offers *fakeOffers, sender *fakeSender, attempts *fakeAttempts) *automation.Scheduler {
	var ac automation.AttemptCounter
	if attempts != nil {
		ac = attempts
	}
	return automation.New(offers, sender, ac, rand.New(rand.NewSource(1)))
}

// ─── Gate ──────────────────────────────────────────────────────────────────

func TestTick_OutsideActiveWindowDoesNothing(t *testing.T) {
	offers := &fakeOffers{pool: []model.Offer{eligibleOffer("o1")}}
	sender := &fakeSender{}
	s := newScheduler(offers, sender, nil)

	if got := s.Tick(context.Background(), baseConfig(), at(23, 0)); got != 0 {
		t.Errorf("tick at 23:00 with window [8,22) dispatched %d", got)
	}
	if len(sender.sent) != 0 {
		t.Errorf("nothing should have been sent, got %v", sender.sent)
	}
}

func TestTick_InactiveConfigDoesNothing(t *testing.T) {
	offers := &fakeOffers{pool: []model.Offer{eligibleOffer("o1")}}
	s := newScheduler(offers, &fakeSender{}, nil)

	cfg := baseConfig()
	cfg.IsActive = false
	if got := s.Tick(context.Background(), cfg, at(12, 0)); got != 0 {
		t.Errorf("inactive config dispatched %d", got)
	}
}

func TestTick_OvernightWindowWraps(t *testing.T) {
	cfg := baseConfig()
	cfg.StartHour, cfg.EndHour = 22, 6

	cases := []struct {
		hour   int
		active bool
	}{
		{23, true}, {3, true}, {12, false}, {22, true}, {6, false},
	}
	for _, c := range cases {
		offers := &fakeOffers{pool: []model.Offer{eligibleOffer("o1")}}
		s := newScheduler(offers, &fakeSender{}, nil)
		got := s.Tick(context.Background(), cfg, at(c.hour, 0))
		if (got > 0) != c.active {
			t.Errorf("hour %d: dispatched=%d, want active=%v", c.hour, got, c.active)
		}
	}
}

// ─── Interval mode ─────────────────────────────────────────────────────────

func TestTick_IntervalThrottlesCloseTicks(t *testing.T) {
	offers := &fakeOffers{pool: []model.Offer{eligibleOffer("o1"), eligibleOffer("o2")}}
	sender := &fakeSender{}
	s := newScheduler(offers, sender, nil)
	cfg := baseConfig() // intervalMinutes=30

	total := s.Tick(context.Background(), cfg, at(10, 0))
	total += s.Tick(context.Background(), cfg, at(10, 10))
	if total > 1 {
		t.Errorf("ticks 10 minutes apart dispatched %d, want at most 1", total)
	}
}

func TestTick_IntervalElapsedDispatchesExactlyOne(t *testing.T) {
	offers := &fakeOffers{pool: []model.Offer{eligibleOffer("o1"), eligibleOffer("o2")}}
	sender := &fakeSender{}
	s := newScheduler(offers, sender, nil)
	cfg := baseConfig()

	first := s.Tick(context.Background(), cfg, at(10, 0)) // primes lastPost
	if first != 1 {
		t.Fatalf("first tick dispatched %d, want 1", first)
	}
	if got := s.Tick(context.Background(), cfg, at(10, 10)); got != 0 {
		t.Errorf("tick inside the interval dispatched %d", got)
	}
	if got := s.Tick(context.Background(), cfg, at(10, 35)); got != 1 {
		t.Errorf("tick 35 minutes after last post dispatched %d, want exactly 1", got)
	}
}

// ─── Smart distribution mode ───────────────────────────────────────────────

func TestTick_SmartModeDispatchesDueSlots(t *testing.T) {
	offers := &fakeOffers{pool: []model.Offer{
		eligibleOffer("o1"), eligibleOffer("o2"), eligibleOffer("o3"), eligibleOffer("o4"),
	}}
	sender := &fakeSender{}
	s := newScheduler(offers, sender, nil)

	cfg := baseConfig()
	cfg.PostsPerHour = 3

	s.Plan(context.Background(), cfg, at(10, 0))

	// By the end of the hour every slot is due.
	got := s.Tick(context.Background(), cfg, at(10, 59))
	if got != 3 {
		t.Errorf("end-of-hour tick dispatched %d, want all 3 planned slots", got)
	}

	// The same hour never dispatches more than its plan.
	if again := s.Tick(context.Background(), cfg, at(10, 59)); again != 0 {
		t.Errorf("re-tick in the same hour dispatched %d more", again)
	}
}

func TestTick_SmartModeSpreadsAcrossTicks(t *testing.T) {
	offers := &fakeOffers{pool: []model.Offer{
		eligibleOffer("o1"), eligibleOffer("o2"), eligibleOffer("o3"), eligibleOffer("o4"),
	}}
	sender := &fakeSender{}
	s := newScheduler(offers, sender, nil)

	cfg := baseConfig()
	cfg.PostsPerHour = 2

	s.Plan(context.Background(), cfg, at(10, 0))
	mid := s.Tick(context.Background(), cfg, at(10, 30))
	end := s.Tick(context.Background(), cfg, at(10, 59))

	if mid+end != 2 {
		t.Errorf("hour total = %d, want exactly postsPerHour=2", mid+end)
	}
}

// ─── Dispatch failures ─────────────────────────────────────────────────────

func TestTick_FailedSendLeavesOfferEligible(t *testing.T) {
	offers := &fakeOffers{pool: []model.Offer{eligibleOffer("o1")}}
	sender := &fakeSender{failAll: true}
	attempts := newFakeAttempts()
	s := newScheduler(offers, sender, attempts)

	got := s.Tick(context.Background(), baseConfig(), at(10, 0))
	if got != 0 {
		t.Errorf("failed dispatch counted as %d posts", got)
	}
	if len(offers.posted) != 0 {
		t.Errorf("offer must stay unposted after a send failure, got %v", offers.posted)
	}
	if attempts.counts["o1"] != 1 {
		t.Errorf("attempt counter = %d, want 1", attempts.counts["o1"])
	}
}

func TestTick_ExhaustedOfferIsParked(t *testing.T) {
	offers := &fakeOffers{pool: []model.Offer{eligibleOffer("o1")}}
	sender := &fakeSender{failAll: true}
	attempts := newFakeAttempts()
	attempts.counts["o1"] = 5 // budget already spent
	s := newScheduler(offers, sender, attempts)

	s.Tick(context.Background(), baseConfig(), at(10, 0))
	if attempts.counts["o1"] != 5 {
		t.Errorf("parked offer must not be retried, counter went to %d", attempts.counts["o1"])
	}
}

func TestTick_NoChannelsMeansNoDispatch(t *testing.T) {
	offers := &fakeOffers{pool: []model.Offer{eligibleOffer("o1")}}
	s := newScheduler(offers, &fakeSender{}, nil)

	cfg := baseConfig()
	cfg.EnabledChannels = nil
	if got := s.Tick(context.Background(), cfg, at(10, 0)); got != 0 {
		t.Errorf("dispatched %d with no channels configured", got)
	}
}
