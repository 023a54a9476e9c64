package source

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"dealradar/offers-service/internal/affiliate"
	"dealradar/offers-service/internal/model"
	"dealradar/offers-service/internal/rates"
)

// minDiscountPercentage is the floor below which a candidate is not worth
// posting and is rejected at normalisation time, before it can be persisted.
const minDiscountPercentage = 5

// Normalizer holds the shared normalisation pipeline embedded by every
// adapter: currency settlement, discount computation, affiliate link
// construction and validation.
type Normalizer struct {
	SourceName string
	Rates      *rates.Cache
	Affiliate  *affiliate.Client
	Now        func() time.Time // defaults to time.Now
}

// Normalize implements the Adapter normalisation contract on behalf of the
// embedding adapter.
func (n *Normalizer) Normalize(ctx context.Context, c model.RawCandidate) (*model.Offer, bool) {
	title := strings.TrimSpace(c.Title)
	if title == "" || c.ProductURL == "" {
		return nil, false
	}
	if c.Price <= 0 {
		return nil, false
	}

	reporting := "USD"
	current := c.Price
	original := c.OriginalPrice
	if n.Rates != nil {
		reporting = n.Rates.Reporting()
		current = n.Rates.Convert(ctx, c.Price, c.Currency)
		original = n.Rates.Convert(ctx, c.OriginalPrice, c.Currency)
	}

	// Vendors occasionally report a stale or missing list price; reconcile
	// so originalPrice >= currentPrice always holds.
	if original < current {
		original = current
	}

	discount := original - current
	pct := 0.0
	if original > 0 {
		pct = math.Round(discount/original*100*100) / 100
	}
	if pct < minDiscountPercentage {
		return nil, false
	}

	now := time.Now()
	if n.Now != nil {
		now = n.Now()
	}

	affiliateURL := c.ProductURL
	if n.Affiliate != nil {
		affiliateURL = n.Affiliate.Link(ctx, n.SourceName, c.ProductURL)
	}

	return &model.Offer{
		ID:                 uuid.NewString(),
		Title:              title,
		Description:        strings.TrimSpace(c.Description),
		Currency:           reporting,
		OriginalPrice:      round2(original),
		CurrentPrice:       round2(current),
		Discount:           round2(discount),
		DiscountPercentage: pct,
		SourceName:         n.SourceName,
		Category:           c.Category,
		ProductURL:         c.ProductURL,
		AffiliateURL:       affiliateURL,
		ImageURL:           c.ImageURL,
		Rating:             c.Rating,
		ReviewCount:        c.ReviewCount,
		SalesVolume:        c.SalesVolume,
		Brand:              c.Brand,
		CouponCodes:        c.CouponCodes,
		IsActive:           true,
		IsPosted:           false,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
