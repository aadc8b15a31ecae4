package models

import (
	"context"
	"errors"
	"testing"
)

type fakeReacher struct {
	provider string
	reach    error
	models   []Model
}

func (f *fakeReacher) Provider() string { return f.provider }
func (f *fakeReacher) Ping(ctx context.Context) error { return f.reach }
func (f *fakeReacher) Models(ctx context.Context) ([]Model, error) { return f.models, nil }

func TestCatalog_RefreshMarksReachability(t *testing.T) {
	c := NewCatalog(TierAll)
	c.Register(&fakeReacher{provider: "anthropic", models: []Model{{Provider: "anthropic", ID: "claude"}}})
	c.Register(&fakeReacher{provider: "openai", reach: errors.New("down")})

	c.Refresh(context.Background())

	if !c.IsReachable("anthropic") {
		t.Error("expected anthropic reachable")
	}
	if c.IsReachable("openai") {
		t.Error("expected openai unreachable")
	}
	if !c.IsAvailable("anthropic", "claude") {
		t.Error("expected claude available")
	}
	if c.IsAvailable("openai", "gpt") {
		t.Error("unreachable provider's models must not be available")
	}
}

func TestCatalog_TierFreeFiltersPaidModels(t *testing.T) {
	c := NewCatalog(TierFree)
	c.Register(&fakeReacher{provider: "anthropic", models: []Model{
		{Provider: "anthropic", ID: "free-model", FreeTier: true},
		{Provider: "anthropic", ID: "paid-model", PriceIn: 3, PriceOut: 15},
	}})

	c.Refresh(context.Background())

	if !c.IsAvailable("anthropic", "free-model") {
		t.Error("expected free model available")
	}
	if c.IsAvailable("anthropic", "paid-model") {
		t.Error("expected paid model filtered out in FREE tier")
	}
}

func TestCatalog_ListAvailableOnlyReachable(t *testing.T) {
	c := NewCatalog(TierAll)
	c.Register(&fakeReacher{provider: "a", models: []Model{{Provider: "a", ID: "m1"}}})
	c.Register(&fakeReacher{provider: "b", reach: errors.New("down"), models: []Model{{Provider: "b", ID: "m2"}}})
	c.Refresh(context.Background())

	got := c.ListAvailable()
	if len(got) != 1 || got[0].ID != "m1" {
		t.Errorf("ListAvailable() = %+v, want only m1", got)
	}
}
