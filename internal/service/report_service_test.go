package service

import (
	"context"
	"testing"
	"time"

	"github.com/postback-hub/internal/models"
)

func seedConversion(t *testing.T, f *serviceFixture, partnerCode, conversionID string, receivedAt time.Time, tenantID *uint) {
	t.Helper()
	partner, err := f.registry.ResolvePartner(partnerCode)
	if err != nil {
		t.Fatalf("resolve partner failed: %v", err)
	}
	row := &models.Conversion{
		PartnerID:    partner.ID,
		TenantID:     tenantID,
		ConversionID: conversionID,
		RawData:      models.JSON{"conversion_id": conversionID},
		ReceivedAt:   receivedAt,
	}
	if err := f.db.Create(row).Error; err != nil {
		t.Fatalf("seed conversion failed: %v", err)
	}
}

func TestReportServiceFilters(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	tenant := f.createTenant(t, "acme", true)
	now := time.Now().UTC()

	seedConversion(t, f, "digenesia", "D1", now.Add(-48*time.Hour), nil)
	seedConversion(t, f, "digenesia", "D2", now.Add(-time.Hour), &tenant.ID)
	seedConversion(t, f, "involveasia", "I1", now.Add(-time.Hour), nil)

	report := NewReportService(f.registry, f.tenantsRepo, f.conversions)

	rows, total, err := report.GetConversions(ctx, ConversionQuery{PartnerCode: "digenesia", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("want 2 digenesia rows, got total=%d len=%d", total, len(rows))
	}
	if rows[0].ConversionID != "D2" {
		t.Fatalf("rows should be newest first, got %s", rows[0].ConversionID)
	}

	from := now.Add(-24 * time.Hour)
	_, total, err = report.GetConversions(ctx, ConversionQuery{From: &from, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("want 2 recent rows, got %d", total)
	}

	rows, total, err = report.GetConversions(ctx, ConversionQuery{TenantCode: "acme", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if total != 1 || rows[0].ConversionID != "D2" {
		t.Fatalf("tenant filter mismatch: total=%d", total)
	}

	rows, total, err = report.GetConversions(ctx, ConversionQuery{PartnerCode: "ghost"})
	if err != nil || total != 0 || len(rows) != 0 {
		t.Fatalf("unknown partner should return empty result, got total=%d err=%v", total, err)
	}
	_, total, err = report.GetConversions(ctx, ConversionQuery{TenantCode: "nobody"})
	if err != nil || total != 0 {
		t.Fatalf("unknown tenant should return empty result, got total=%d err=%v", total, err)
	}
}
