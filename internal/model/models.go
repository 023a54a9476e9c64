// Package model defines shared data structures for the offers service.
package model

import "time"

// RawCandidate is an unvalidated deal as returned by a source adapter's fetch.
// Prices are still in the source's native currency at this point.
type RawCandidate struct {
	ExternalID    string
	Title         string
	Description   string
	Brand         string
	Category      string
	Price         float64
	OriginalPrice float64
	Currency      string
	ProductURL    string
	ImageURL      string
	Rating        float64
	ReviewCount   int
	SalesVolume   int
	CouponCodes   []string
}

// Offer is a normalised, persisted deal record. Prices are settled to the
// reporting currency before the record is ever written.
type Offer struct {
	ID                 string    `json:"id"`
	TenantID           string    `json:"tenantId"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Currency           string    `json:"currency"`
	OriginalPrice      float64   `json:"originalPrice"`
	CurrentPrice       float64   `json:"currentPrice"`
	Discount           float64   `json:"discount"`
	DiscountPercentage float64   `json:"discountPercentage"`
	SourceName         string    `json:"sourceName"`
	Category           string    `json:"category"`
	ProductURL         string    `json:"productUrl"`
	AffiliateURL       string    `json:"affiliateUrl"`
	ImageURL           string    `json:"imageUrl,omitempty"`
	Rating             float64   `json:"rating,omitempty"`
	ReviewCount        int       `json:"reviewCount,omitempty"`
	SalesVolume        int       `json:"salesVolume,omitempty"`
	Brand              string    `json:"brand,omitempty"`
	CouponCodes        []string  `json:"couponCodes,omitempty"`
	IsActive           bool      `json:"isActive"`
	IsPosted           bool      `json:"isPosted"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// BatchStatus is the lifecycle state of a daily collection batch.
type BatchStatus string

const (
	BatchPending   BatchStatus = "pending"
	BatchCompleted BatchStatus = "completed"
	BatchFailed    BatchStatus = "failed"
)

// BatchEntry mirrors one collection_batches row. The (SourceName, BatchDay)
// pair is unique: at most one batch per source per calendar day.
type BatchEntry struct {
	SourceName   string
	BatchDay     string // "2006-01-02"
	Status       BatchStatus
	ItemsCount   int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PeakHour is a sub-window of the active hours with elevated posting priority.
type PeakHour struct {
	Start    int `json:"start"`
	End      int `json:"end"`
	Priority int `json:"priority"` // 1–10
}

// OfferFilters narrows the eligible offer pool for a tenant.
// Empty slices mean "no restriction".
type OfferFilters struct {
	EnabledSources    []string `json:"enabledSources"`
	MinDiscount       float64  `json:"minDiscount"`
	MaxPrice          float64  `json:"maxPrice"`
	EnabledCategories []string `json:"enabledCategories"`
}

// ChannelConfig identifies one delivery target for posted offers.
type ChannelConfig struct {
	ID     string `json:"id"`
	Type   string `json:"type"`   // "telegram" or "kafka"
	Target string `json:"target"` // chat ID or topic name
}

// AutomationConfig is the per-tenant posting configuration, read every
// scheduling tick and mutated only through the admin surface.
type AutomationConfig struct {
	TenantID                     string          `json:"tenantId"`
	IsActive                     bool            `json:"isActive"`
	CollectionEnabled            bool            `json:"collectionEnabled"`
	StartHour                    int             `json:"startHour"` // 0–23
	EndHour                      int             `json:"endHour"`   // may be < StartHour (overnight window)
	IntervalMinutes              int             `json:"intervalMinutes"`
	PostsPerHour                 int             `json:"postsPerHour"` // > 0 switches to smart distribution
	PeakHours                    []PeakHour      `json:"peakHours"`
	Filters                      OfferFilters    `json:"filters"`
	PrioritizeBestSellersInPeak  bool            `json:"prioritizeBestSellersInPeak"`
	PrioritizeBigDiscountsInPeak bool            `json:"prioritizeBigDiscountsInPeak"`
	DiscountWeightVsSales        int             `json:"discountWeightVsSales"` // 0–100
	EnabledChannels              []ChannelConfig `json:"enabledChannels"`
}

// Tenant is an isolated customer account.
type Tenant struct {
	ID       string
	Name     string
	IsActive bool
}
