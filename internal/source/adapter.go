// Package source implements offer acquisition from external marketplaces.
//
// Each marketplace gets one Adapter. The orchestrator depends only on the
// Adapter interface and treats everything behind it as opaque: vendor paths,
// response shapes and scraping rules never leak upward.
package source

import (
	"context"

	"dealradar/offers-service/internal/model"
)

// Strategy names one acquisition method for a source. Strategies for a
// source are ranked: the orchestrator walks them in order, and the
// exhaustion of one is not fatal.
type Strategy struct {
	Name string
	// Daily marks an expensive, naturally daily-grained strategy. The
	// orchestrator runs these behind the batch ledger so they execute at
	// most once per calendar day.
	Daily bool
}

// Adapter is the boundary for one marketplace.
type Adapter interface {
	// Name is the stable source identifier stored on offers and ledger rows.
	Name() string

	// Strategies returns the ranked acquisition cascade for this source.
	Strategies() []Strategy

	// FetchCandidates runs one strategy, paginating internally, and returns
	// raw candidates. Network failures surface as errors (the orchestrator
	// wraps each call in the retry primitive via the strategy cascade).
	FetchCandidates(ctx context.Context, strategy Strategy) ([]model.RawCandidate, error)

	// Normalize converts a raw candidate into a persistable Offer, settling
	// currency and computing the discount. ok=false means validation failed
	// and the candidate is silently dropped.
	Normalize(ctx context.Context, c model.RawCandidate) (*model.Offer, bool)
}
