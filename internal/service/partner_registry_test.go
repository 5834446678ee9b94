package service

import (
	"context"
	"errors"
	"testing"

	"github.com/postback-hub/internal/models"
)

func TestPartnerRegistryResolveEndpoint(t *testing.T) {
	f := setupServiceTest(t)

	cases := []struct {
		path string
		code string
		err  error
	}{
		{path: "digenesia", code: "digenesia"},
		{path: "/digenesia/", code: "digenesia"},
		{path: "involve/asia", code: "involveasia"},
		{path: "involveasia", code: "involveasia"},
		{path: "ghost", err: ErrPartnerNotFound},
		{path: "involve/ghost", err: ErrPartnerNotFound},
		{path: "", err: ErrPartnerNotFound},
	}
	for _, tc := range cases {
		entry, err := f.registry.ResolveEndpoint(tc.path)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Fatalf("path %q want %v got %v", tc.path, tc.err, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("path %q resolve failed: %v", tc.path, err)
		}
		if entry.Code != tc.code {
			t.Fatalf("path %q want %s got %s", tc.path, tc.code, entry.Code)
		}
	}
}

func TestPartnerRegistrySkipsInvalidConfig(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	bad := &models.Partner{
		Code:             "broken",
		Name:             "Broken",
		EndpointPath:     "broken",
		ParameterMapping: models.ParameterMapping{"not_a_field": {"x"}},
		IsActive:         true,
	}
	if err := f.db.Create(bad).Error; err != nil {
		t.Fatalf("create partner failed: %v", err)
	}
	if err := f.registry.Reload(ctx); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if _, err := f.registry.ResolvePartner("broken"); !errors.Is(err, ErrPartnerNotFound) {
		t.Fatalf("invalid partner should be skipped, got %v", err)
	}
	if _, err := f.registry.ResolvePartner("digenesia"); err != nil {
		t.Fatalf("valid partners should stay loaded: %v", err)
	}
	if len(f.registry.List()) != 2 {
		t.Fatalf("want 2 partners, got %d", len(f.registry.List()))
	}
}

func TestPartnerRegistrySavePartnerRefreshesSnapshot(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	before := f.registry.LoadedAt()

	err := f.registry.SavePartner(ctx, &models.Partner{
		Code:             "newnet",
		Name:             "New Net",
		EndpointPath:     "new/net",
		ParameterMapping: models.ParameterMapping{"conversion_id": {"txn"}},
		AckFormat:        "text",
		IsActive:         true,
	})
	if err != nil {
		t.Fatalf("save partner failed: %v", err)
	}
	entry, err := f.registry.ResolveEndpoint("new/net")
	if err != nil {
		t.Fatalf("new partner should resolve: %v", err)
	}
	if entry.AckFormat != "text" {
		t.Fatalf("ack format want text got %s", entry.AckFormat)
	}
	if f.registry.LoadedAt().Before(before) {
		t.Fatalf("snapshot should be replaced")
	}

	err = f.registry.SavePartner(ctx, &models.Partner{
		Code:      "newnet2",
		AckFormat: "xml",
	})
	if !errors.Is(err, ErrPartnerConfigInvalid) {
		t.Fatalf("want ErrPartnerConfigInvalid got %v", err)
	}
}

func TestValidatePartnerConfig(t *testing.T) {
	cases := []struct {
		name    string
		partner *models.Partner
		ok      bool
	}{
		{name: "nil", partner: nil},
		{name: "blank code", partner: &models.Partner{Code: " "}},
		{name: "empty aliases", partner: &models.Partner{Code: "a", ParameterMapping: models.ParameterMapping{"payout": {}}}},
		{name: "blank alias", partner: &models.Partner{Code: "a", ParameterMapping: models.ParameterMapping{"payout": {" "}}}},
		{name: "unknown required", partner: &models.Partner{Code: "a", RequiredFields: []string{"nope"}}},
		{name: "negative retention", partner: &models.Partner{Code: "a", RetentionDays: -1}},
		{name: "valid", partner: &models.Partner{Code: "a", RequiredFields: []string{"payout"}, AckFormat: "JSON"}, ok: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePartnerConfig(tc.partner)
			if tc.ok && err != nil {
				t.Fatalf("want valid got %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrPartnerConfigInvalid) {
				t.Fatalf("want ErrPartnerConfigInvalid got %v", err)
			}
		})
	}
}
