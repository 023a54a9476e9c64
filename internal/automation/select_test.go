package automation_test

import (
	"math/rand"
	"testing"
	"time"

	"dealradar/offers-service/internal/automation"
	"dealradar/offers-service/internal/model"
)

func offer(id, source string, discount float64, sales int) model.Offer {
	return model.Offer{
		ID: id, SourceName: source, DiscountPercentage: discount,
		SalesVolume: sales, CurrentPrice: 50, IsActive: true,
		CreatedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

// ─── FilterEligible ────────────────────────────────────────────────────────

func TestFilterEligible_SourceAndDiscountMismatch(t *testing.T) {
	pool := []model.Offer{
		offer("a", "amazon", 15, 100),     // source ok, discount too small
		offer("b", "aliexpress", 30, 100), // discount ok, source not enabled
	}
	f := model.OfferFilters{MinDiscount: 20, EnabledSources: []string{"amazon"}}

	got := automation.FilterEligible(pool, f)
	if len(got) != 0 {
		t.Fatalf("expected empty pool, got %d offers", len(got))
	}
	if sel := automation.SelectOffer(got, model.AutomationConfig{DiscountWeightVsSales: 50}, time.Now()); sel != nil {
		t.Errorf("selection over empty pool must be nil, got %v", sel.ID)
	}
}

func TestFilterEligible_MaxPriceZeroMeansUnlimited(t *testing.T) {
	pool := []model.Offer{offer("a", "megamart", 30, 10)}
	pool[0].CurrentPrice = 9999

	if got := automation.FilterEligible(pool, model.OfferFilters{}); len(got) != 1 {
		t.Errorf("maxPrice=0 must not filter by price")
	}
	if got := automation.FilterEligible(pool, model.OfferFilters{MaxPrice: 100}); len(got) != 0 {
		t.Errorf("maxPrice=100 must drop a 9999 offer")
	}
}

func TestFilterEligible_CategoryEmptyMeansAll(t *testing.T) {
	pool := []model.Offer{offer("a", "megamart", 30, 10)}
	pool[0].Category = "tools"

	if got := automation.FilterEligible(pool, model.OfferFilters{}); len(got) != 1 {
		t.Errorf("empty categories must pass everything")
	}
	if got := automation.FilterEligible(pool, model.OfferFilters{EnabledCategories: []string{"toys"}}); len(got) != 0 {
		t.Errorf("non-matching category must be dropped")
	}
}

func TestFilterEligible_DropsPostedAndInactive(t *testing.T) {
	a := offer("a", "megamart", 30, 10)
	a.IsPosted = true
	b := offer("b", "megamart", 30, 10)
	b.IsActive = false

	if got := automation.FilterEligible([]model.Offer{a, b}, model.OfferFilters{}); len(got) != 0 {
		t.Errorf("posted/inactive offers must never be selected, got %d", len(got))
	}
}

// ─── SelectOffer ───────────────────────────────────────────────────────────

func TestSelectOffer_PeakBiasPrefersBigDiscount(t *testing.T) {
	pool := []model.Offer{
		offer("bestseller", "megamart", 10, 1000),
		offer("bargain", "megamart", 50, 10),
	}
	cfg := model.AutomationConfig{
		DiscountWeightVsSales:        80,
		PeakHours:                    []model.PeakHour{{Start: 18, End: 20, Priority: 10}},
		PrioritizeBigDiscountsInPeak: true,
	}
	now := time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)

	got := automation.SelectOffer(pool, cfg, now)
	if got == nil || got.ID != "bargain" {
		t.Fatalf("expected the 50%%-discount offer in peak, got %v", got)
	}
}

func TestSelectOffer_SalesWeightedBlendPrefersBestseller(t *testing.T) {
	pool := []model.Offer{
		offer("bestseller", "megamart", 10, 1000),
		offer("bargain", "megamart", 12, 5),
	}
	cfg := model.AutomationConfig{DiscountWeightVsSales: 10} // 90% weight on sales

	got := automation.SelectOffer(pool, cfg, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	if got == nil || got.ID != "bestseller" {
		t.Fatalf("expected the bestseller with sales-heavy blend, got %v", got)
	}
}

func TestSelectOffer_TieBreaksOnNewest(t *testing.T) {
	older := offer("older", "megamart", 30, 0)
	newer := offer("newer", "megamart", 30, 0)
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)

	got := automation.SelectOffer([]model.Offer{older, newer}, model.AutomationConfig{DiscountWeightVsSales: 100}, time.Now())
	if got == nil || got.ID != "newer" {
		t.Fatalf("tie must break toward the most recently collected offer, got %v", got)
	}
}

// ─── Active window ─────────────────────────────────────────────────────────

func TestInActiveWindow(t *testing.T) {
	cases := []struct {
		start, end, hour int
		want             bool
	}{
		{8, 22, 8, true},
		{8, 22, 21, true},
		{8, 22, 22, false},
		{8, 22, 23, false},
		{8, 22, 3, false},
		{22, 6, 23, true}, // overnight
		{22, 6, 3, true},
		{22, 6, 12, false},
		{0, 0, 15, true}, // equal bounds: always on
	}
	for _, c := range cases {
		cfg := model.AutomationConfig{StartHour: c.start, EndHour: c.end}
		if got := automation.InActiveWindow(cfg, c.hour); got != c.want {
			t.Errorf("window [%d,%d) hour %d = %v, want %v", c.start, c.end, c.hour, got, c.want)
		}
	}
}

// ─── PlanSlots ─────────────────────────────────────────────────────────────

func TestPlanSlots_CountAndBounds(t *testing.T) {
	cfg := model.AutomationConfig{PostsPerHour: 4}
	hour := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	slots := automation.PlanSlots(cfg, hour, rand.New(rand.NewSource(7)))
	if len(slots) != 4 {
		t.Fatalf("got %d slots, want 4", len(slots))
	}
	for i, s := range slots {
		if s.Before(hour) || !s.Before(hour.Add(time.Hour)) {
			t.Errorf("slot %d (%s) escapes the hour", i, s)
		}
		if i > 0 && s.Before(slots[i-1]) {
			t.Errorf("slots must be ascending: %s after %s", slots[i-1], s)
		}
	}
}

func TestPlanSlots_PeakPriorityBoostsCount(t *testing.T) {
	cfg := model.AutomationConfig{
		PostsPerHour: 3,
		PeakHours:    []model.PeakHour{{Start: 18, End: 20, Priority: 10}},
	}
	rnd := rand.New(rand.NewSource(7))

	offPeak := automation.PlanSlots(cfg, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), rnd)
	inPeak := automation.PlanSlots(cfg, time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC), rnd)

	if len(offPeak) != 3 {
		t.Errorf("off-peak slots = %d, want 3", len(offPeak))
	}
	if len(inPeak) != 6 {
		t.Errorf("priority-10 peak must double the slots: got %d, want 6", len(inPeak))
	}
}

func TestPlanSlots_ZeroPostsPerHour(t *testing.T) {
	if got := automation.PlanSlots(model.AutomationConfig{}, time.Now(), rand.New(rand.NewSource(1))); got != nil {
		t.Errorf("interval-mode config must plan no slots, got %d", len(got))
	}
}
