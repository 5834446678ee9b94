package service

import (
	"context"
	"errors"
	"testing"
)

func TestTenantServiceIssueAndResolve(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	tenant := f.createTenant(t, "acme", true)

	token, expiresAt, err := f.tenants.IssueToken(ctx, "acme", false)
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}
	if token == "" || expiresAt.IsZero() {
		t.Fatalf("token and expiry should be set")
	}
	state, err := f.tenants.ResolveToken(ctx, token)
	if err != nil {
		t.Fatalf("resolve token failed: %v", err)
	}
	if state.TenantID != tenant.ID || state.Code != "acme" {
		t.Fatalf("unexpected tenant state: %+v", state)
	}

	empty, err := f.tenants.ResolveToken(ctx, "  ")
	if err != nil || empty != nil {
		t.Fatalf("empty token should resolve to nil, got %+v %v", empty, err)
	}
}

func TestTenantServiceRotateRevokesOldToken(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	f.createTenant(t, "acme", true)

	oldToken, _, err := f.tenants.IssueToken(ctx, "acme", false)
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}
	newToken, _, err := f.tenants.IssueToken(ctx, "acme", true)
	if err != nil {
		t.Fatalf("rotate token failed: %v", err)
	}
	if _, err := f.tenants.ResolveToken(ctx, oldToken); !errors.Is(err, ErrTenantInactive) {
		t.Fatalf("old token want ErrTenantInactive got %v", err)
	}
	if _, err := f.tenants.ResolveToken(ctx, newToken); err != nil {
		t.Fatalf("new token should resolve: %v", err)
	}
}

func TestTenantServiceErrors(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	f.createTenant(t, "paused", false)

	if _, _, err := f.tenants.IssueToken(ctx, "missing", false); !errors.Is(err, ErrTenantNotFound) {
		t.Fatalf("want ErrTenantNotFound got %v", err)
	}
	if _, _, err := f.tenants.IssueToken(ctx, "paused", false); !errors.Is(err, ErrTenantInactive) {
		t.Fatalf("want ErrTenantInactive got %v", err)
	}
	if _, err := f.tenants.ResolveToken(ctx, "garbage.token.value"); !errors.Is(err, ErrTenantTokenInvalid) {
		t.Fatalf("want ErrTenantTokenInvalid got %v", err)
	}

	other := NewTenantService(f.tenants.cfg, f.tenantsRepo)
	other.cfg.SecretKey = "another-secret"
	f.createTenant(t, "acme", true)
	foreign, _, err := other.IssueToken(ctx, "acme", false)
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}
	if _, err := f.tenants.ResolveToken(ctx, foreign); !errors.Is(err, ErrTenantTokenInvalid) {
		t.Fatalf("foreign signature want ErrTenantTokenInvalid got %v", err)
	}
}

func TestTenantServiceDeactivatedAfterIssue(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	tenant := f.createTenant(t, "acme", true)
	token, _, err := f.tenants.IssueToken(ctx, "acme", false)
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}
	tenant.IsActive = false
	if err := f.tenantsRepo.Update(ctx, tenant); err != nil {
		t.Fatalf("update tenant failed: %v", err)
	}
	if _, err := f.tenants.ResolveToken(ctx, token); !errors.Is(err, ErrTenantInactive) {
		t.Fatalf("want ErrTenantInactive got %v", err)
	}
}
