package runner_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"dealradar/offers-service/internal/model"
	"dealradar/offers-service/internal/runner"
)

type staticTenants []model.Tenant

func (s staticTenants) ActiveTenants(context.Context) ([]model.Tenant, error) {
	return s, nil
}

type failingTenants struct{}

func (failingTenants) ActiveTenants(context.Context) ([]model.Tenant, error) {
	return nil, errors.New("db down")
}

func tenants(ids ...string) staticTenants {
	out := make(staticTenants, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Tenant{ID: id, Name: id, IsActive: true})
	}
	return out
}

func TestRunForActiveTenants_AllSucceed(t *testing.T) {
	r := runner.New(tenants("a", "b", "c"))
	var visited []string

	rep := r.RunForActiveTenants(context.Background(), "collect", func(_ context.Context, tn model.Tenant) error {
		visited = append(visited, tn.ID)
		return nil
	})

	if rep.Succeeded != 3 || rep.Failed != 0 {
		t.Errorf("report = %+v, want 3 succeeded", rep)
	}
	if len(visited) != 3 {
		t.Errorf("visited %v, want all three tenants", visited)
	}
}

func TestRunForActiveTenants_ErrorDoesNotAbortLoop(t *testing.T) {
	r := runner.New(tenants("a", "bad", "c"))

	rep := r.RunForActiveTenants(context.Background(), "collect", func(_ context.Context, tn model.Tenant) error {
		if tn.ID == "bad" {
			return errors.New("boom")
		}
		return nil
	})

	if rep.Succeeded != 2 || rep.Failed != 1 {
		t.Errorf("report = %+v, want 2 succeeded / 1 failed", rep)
	}
}

func TestRunForActiveTenants_PanicIsContained(t *testing.T) {
	r := runner.New(tenants("a", "panicky", "c"))
	var afterPanic bool

	rep := r.RunForActiveTenants(context.Background(), "dispatch", func(_ context.Context, tn model.Tenant) error {
		switch tn.ID {
		case "panicky":
			panic("tenant exploded")
		case "c":
			afterPanic = true
		}
		return nil
	})

	if rep.Failed != 1 {
		t.Errorf("panic must count as a failure: %+v", rep)
	}
	if !afterPanic {
		t.Error("tenants after the panicking one must still run")
	}
}

func TestRunForActiveTenants_TenantLoadFailure(t *testing.T) {
	r := runner.New(failingTenants{})
	rep := r.RunForActiveTenants(context.Background(), "collect", func(context.Context, model.Tenant) error {
		t.Error("action must not run when tenants cannot be loaded")
		return nil
	})
	if rep.Succeeded != 0 || rep.Failed != 0 {
		t.Errorf("report = %+v, want all-zero", rep)
	}
}

func TestShouldRunNow(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		lastRun time.Time
		cadence time.Duration
		now     time.Time
		want    bool
	}{
		{"never ran", time.Time{}, time.Hour, base, true},
		{"cadence elapsed", base, time.Hour, base.Add(time.Hour), true},
		{"cadence exceeded", base, time.Hour, base.Add(2 * time.Hour), true},
		{"too early", base, time.Hour, base.Add(30 * time.Minute), false},
		{"daily sweep due", base, 24 * time.Hour, base.Add(25 * time.Hour), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := runner.ShouldRunNow(c.lastRun, c.cadence, c.now); got != c.want {
				t.Errorf("ShouldRunNow = %v, want %v", got, c.want)
			}
		})
	}
}
