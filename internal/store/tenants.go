package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"dealradar/offers-service/internal/model"
)

// Tenants reads tenant rows and their automation configs. Config writes go
// through the admin surface, so this repository is read-only.
type Tenants struct {
	pool *pgxpool.Pool
}

// NewTenants returns a tenant repository over the given pool.
func NewTenants(pool *pgxpool.Pool) *Tenants {
	return &Tenants{pool: pool}
}

// ActiveTenants returns all tenants flagged active.
func (r *Tenants) ActiveTenants(ctx context.Context) ([]model.Tenant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, is_active FROM tenants WHERE is_active = true ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query tenants: %w", err)
	}
	defer rows.Close()

	var tenants []model.Tenant
	for rows.Next() {
		var t model.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.IsActive); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// LoadConfig returns the tenant's automation config. Structured sub-fields
// (peak hours, filters, channels) live in JSONB columns.
func (r *Tenants) LoadConfig(ctx context.Context, tenantID string) (model.AutomationConfig, error) {
	var (
		cfg                              model.AutomationConfig
		peakJSON, filtersJSON, chansJSON []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT tenant_id, is_active, collection_enabled, start_hour, end_hour,
		        interval_minutes, posts_per_hour, peak_hours, filters,
		        prioritize_best_sellers_in_peak, prioritize_big_discounts_in_peak,
		        discount_weight_vs_sales, enabled_channels
		 FROM automation_configs
		 WHERE tenant_id = $1`,
		tenantID,
	).Scan(&cfg.TenantID, &cfg.IsActive, &cfg.CollectionEnabled, &cfg.StartHour, &cfg.EndHour,
		&cfg.IntervalMinutes, &cfg.PostsPerHour, &peakJSON, &filtersJSON,
		&cfg.PrioritizeBestSellersInPeak, &cfg.PrioritizeBigDiscountsInPeak,
		&cfg.DiscountWeightVsSales, &chansJSON)
	if err != nil {
		return model.AutomationConfig{}, fmt.Errorf("load config for %s: %w", tenantID, err)
	}

	if len(peakJSON) > 0 {
		if err := json.Unmarshal(peakJSON, &cfg.PeakHours); err != nil {
			return model.AutomationConfig{}, fmt.Errorf("peak_hours for %s: %w", tenantID, err)
		}
	}
	if len(filtersJSON) > 0 {
		if err := json.Unmarshal(filtersJSON, &cfg.Filters); err != nil {
			return model.AutomationConfig{}, fmt.Errorf("filters for %s: %w", tenantID, err)
		}
	}
	if len(chansJSON) > 0 {
		if err := json.Unmarshal(chansJSON, &cfg.EnabledChannels); err != nil {
			return model.AutomationConfig{}, fmt.Errorf("enabled_channels for %s: %w", tenantID, err)
		}
	}
	return cfg, nil
}
