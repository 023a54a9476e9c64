// Package runner iterates active tenants and isolates per-tenant failures,
// so one broken tenant never aborts a job for the rest.
package runner

import (
	"context"
	"fmt"
	"log"
	"time"

	"dealradar/offers-service/internal/model"
)

// TenantSource lists the tenants a job should cover.
type TenantSource interface {
	ActiveTenants(ctx context.Context) ([]model.Tenant, error)
}

// Report summarises one job run across tenants.
type Report struct {
	Succeeded int
	Failed    int
	Elapsed   time.Duration
}

// Runner executes per-tenant actions sequentially. Sequential on purpose:
// the vendor APIs behind collection are rate-limited, and tenant count is
// the multiplier on outbound request volume.
type Runner struct {
	tenants TenantSource
}

// New constructs a Runner.
func New(tenants TenantSource) *Runner {
	return &Runner{tenants: tenants}
}

// RunForActiveTenants invokes action once per active tenant. Errors and
// panics are caught at the tenant boundary, logged with tenant identity,
// and counted — never propagated.
func (r *Runner) RunForActiveTenants(ctx context.Context, jobName string, action func(ctx context.Context, t model.Tenant) error) Report {
	start := time.Now()
	var rep Report

	tenants, err := r.tenants.ActiveTenants(ctx)
	if err != nil {
		log.Printf("[runner] %s: loading tenants failed: %v", jobName, err)
		rep.Elapsed = time.Since(start)
		return rep
	}

	for _, t := range tenants {
		if err := r.runOne(ctx, t, action); err != nil {
			log.Printf("[runner] %s: tenant %s (%s) failed: %v", jobName, t.ID, t.Name, err)
			rep.Failed++
			continue
		}
		rep.Succeeded++
	}

	rep.Elapsed = time.Since(start)
	log.Printf("[runner] %s done — ok=%d failed=%d elapsed=%s",
		jobName, rep.Succeeded, rep.Failed, rep.Elapsed.Round(time.Millisecond))
	return rep
}

func (r *Runner) runOne(ctx context.Context, t model.Tenant, action func(ctx context.Context, t model.Tenant) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return action(ctx, t)
}
