package automation

import (
	"time"

	"dealradar/offers-service/internal/model"
)

// FilterEligible applies the tenant's offer filters to the pool. The store
// query already narrows by these same predicates; applying them again here
// keeps the selection policy self-contained and testable against any pool.
func FilterEligible(pool []model.Offer, f model.OfferFilters) []model.Offer {
	sources := toSet(f.EnabledSources)
	categories := toSet(f.EnabledCategories)

	kept := make([]model.Offer, 0, len(pool))
	for _, o := range pool {
		if o.IsPosted || !o.IsActive {
			continue
		}
		if o.DiscountPercentage < f.MinDiscount {
			continue
		}
		if f.MaxPrice > 0 && o.CurrentPrice > f.MaxPrice {
			continue
		}
		if len(sources) > 0 && !sources[o.SourceName] {
			continue
		}
		if len(categories) > 0 && !categories[o.Category] {
			continue
		}
		kept = append(kept, o)
	}
	return kept
}

// SelectOffer ranks the pool by a weighted blend of normalised discount and
// normalised sales volume and returns the winner, or nil for an empty pool.
//
// The blend weight toward discount is discountWeightVsSales/100; inside a
// peak window the prioritise flags shift it a further 0.2 toward their
// signal. Ties break toward the most recently collected offer, which keeps
// dispatch ordering deterministic for a given pool and now.
func SelectOffer(pool []model.Offer, cfg model.AutomationConfig, now time.Time) *model.Offer {
	if len(pool) == 0 {
		return nil
	}

	w := float64(cfg.DiscountWeightVsSales) / 100
	if _, inPeak := PeakWindow(cfg, now.Hour()); inPeak {
		if cfg.PrioritizeBigDiscountsInPeak {
			w += 0.2
		}
		if cfg.PrioritizeBestSellersInPeak {
			w -= 0.2
		}
		w = clamp01(w)
	}

	var maxDiscount, maxSales float64
	for _, o := range pool {
		if o.DiscountPercentage > maxDiscount {
			maxDiscount = o.DiscountPercentage
		}
		if float64(o.SalesVolume) > maxSales {
			maxSales = float64(o.SalesVolume)
		}
	}

	var best *model.Offer
	var bestScore float64
	for i := range pool {
		o := &pool[i]
		score := 0.0
		if maxDiscount > 0 {
			score += w * (o.DiscountPercentage / maxDiscount)
		}
		if maxSales > 0 {
			score += (1 - w) * (float64(o.SalesVolume) / maxSales)
		}
		if best == nil || score > bestScore ||
			(score == bestScore && o.CreatedAt.After(best.CreatedAt)) {
			best = o
			bestScore = score
		}
	}
	return best
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[s] = true
	}
	return set
}
