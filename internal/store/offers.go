// Package store contains the pgx-backed persistence layer: offers, the
// daily batch ledger, tenants and their automation configs.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"dealradar/offers-service/internal/model"
)

// Offers is the durable offer repository.
type Offers struct {
	pool *pgxpool.Pool
}

// NewOffers returns an offer repository over the given pool.
func NewOffers(pool *pgxpool.Pool) *Offers {
	return &Offers{pool: pool}
}

// Upsert writes the offer, updating in place when the same product already
// exists for the tenant (keyed by tenant_id + product_url). Returns true
// when a row was written or updated.
func (r *Offers) Upsert(ctx context.Context, o *model.Offer) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO offers (
		   id, tenant_id, title, description, currency,
		   original_price, current_price, discount, discount_percentage,
		   source_name, category, product_url, affiliate_url, image_url,
		   rating, review_count, sales_volume, brand, coupon_codes,
		   is_active, is_posted, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
		 ON CONFLICT (tenant_id, product_url) DO UPDATE SET
		   title = EXCLUDED.title,
		   description = EXCLUDED.description,
		   original_price = EXCLUDED.original_price,
		   current_price = EXCLUDED.current_price,
		   discount = EXCLUDED.discount,
		   discount_percentage = EXCLUDED.discount_percentage,
		   category = EXCLUDED.category,
		   affiliate_url = EXCLUDED.affiliate_url,
		   image_url = EXCLUDED.image_url,
		   rating = EXCLUDED.rating,
		   review_count = EXCLUDED.review_count,
		   sales_volume = EXCLUDED.sales_volume,
		   brand = EXCLUDED.brand,
		   coupon_codes = EXCLUDED.coupon_codes,
		   is_active = true,
		   updated_at = now()`,
		o.ID, o.TenantID, o.Title, o.Description, o.Currency,
		o.OriginalPrice, o.CurrentPrice, o.Discount, o.DiscountPercentage,
		o.SourceName, o.Category, o.ProductURL, o.AffiliateURL, o.ImageURL,
		o.Rating, o.ReviewCount, o.SalesVolume, o.Brand, o.CouponCodes,
		o.IsActive, o.IsPosted, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("upsert offer: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// QueryEligible returns the tenant's unposted, active offers matching the
// filters, newest first.
func (r *Offers) QueryEligible(ctx context.Context, tenantID string, f model.OfferFilters) ([]model.Offer, error) {
	q := `SELECT id, tenant_id, title, description, currency,
	             original_price, current_price, discount, discount_percentage,
	             source_name, category, product_url, affiliate_url, image_url,
	             rating, review_count, sales_volume, brand, coupon_codes,
	             is_active, is_posted, created_at, updated_at
	      FROM offers
	      WHERE tenant_id = $1
	        AND is_posted = false
	        AND is_active = true
	        AND discount_percentage >= $2`
	args := []any{tenantID, f.MinDiscount}

	if f.MaxPrice > 0 {
		args = append(args, f.MaxPrice)
		q += fmt.Sprintf(" AND current_price <= $%d", len(args))
	}
	if len(f.EnabledSources) > 0 {
		args = append(args, f.EnabledSources)
		q += fmt.Sprintf(" AND source_name = ANY($%d)", len(args))
	}
	if len(f.EnabledCategories) > 0 {
		args = append(args, f.EnabledCategories)
		q += fmt.Sprintf(" AND category = ANY($%d)", len(args))
	}
	q += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("queryEligible: %w", err)
	}
	defer rows.Close()

	var offers []model.Offer
	for rows.Next() {
		var o model.Offer
		if err := rows.Scan(
			&o.ID, &o.TenantID, &o.Title, &o.Description, &o.Currency,
			&o.OriginalPrice, &o.CurrentPrice, &o.Discount, &o.DiscountPercentage,
			&o.SourceName, &o.Category, &o.ProductURL, &o.AffiliateURL, &o.ImageURL,
			&o.Rating, &o.ReviewCount, &o.SalesVolume, &o.Brand, &o.CouponCodes,
			&o.IsActive, &o.IsPosted, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("queryEligible scan: %w", err)
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

// MarkPosted flips is_posted after a successful dispatch.
func (r *Offers) MarkPosted(ctx context.Context, offerID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE offers SET is_posted = true, updated_at = now() WHERE id = $1`, offerID)
	if err != nil {
		return fmt.Errorf("markPosted: %w", err)
	}
	return nil
}

// DeactivateOlderThan soft-deletes offers not touched for the given number
// of days and returns how many rows it affected.
func (r *Offers) DeactivateOlderThan(ctx context.Context, days int) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE offers SET is_active = false, updated_at = now()
		 WHERE is_active = true
		   AND updated_at < now() - make_interval(days => $1)`, days)
	if err != nil {
		return 0, fmt.Errorf("deactivateOlderThan: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
