package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/postback-hub/internal/models"
)

func TestRetentionServicePurgesExpiredOnly(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	if err := f.db.Model(&models.Partner{}).Where("code = ?", "digenesia").Update("retention_days", 7).Error; err != nil {
		t.Fatalf("update retention failed: %v", err)
	}
	if err := f.registry.Reload(ctx); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		seedConversion(t, f, "digenesia", fmt.Sprintf("OLD-%d", i), now.AddDate(0, 0, -30), nil)
	}
	seedConversion(t, f, "digenesia", "FRESH", now.Add(-time.Hour), nil)
	// retention_days 为 0 的合作方不清理
	seedConversion(t, f, "involveasia", "KEEP", now.AddDate(0, 0, -365), nil)

	retention := NewRetentionService(f.registry, f.conversions, nil, 2)
	purged, err := retention.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if purged != 5 {
		t.Fatalf("want 5 purged, got %d", purged)
	}

	var left []models.Conversion
	if err := f.db.Order("conversion_id ASC").Find(&left).Error; err != nil {
		t.Fatalf("list conversions failed: %v", err)
	}
	if len(left) != 2 || left[0].ConversionID != "FRESH" || left[1].ConversionID != "KEEP" {
		t.Fatalf("unexpected remaining rows: %+v", left)
	}

	purged, err = retention.PurgeExpired(ctx)
	if err != nil || purged != 0 {
		t.Fatalf("second run should purge nothing, got %d %v", purged, err)
	}
}

func TestRetentionServicePurgesExpiredObservations(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	if err := f.db.Model(&models.Partner{}).Where("code = ?", "digenesia").Update("retention_days", 7).Error; err != nil {
		t.Fatalf("update retention failed: %v", err)
	}
	if err := f.registry.Reload(ctx); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	partner, err := f.registry.ResolvePartner("digenesia")
	if err != nil {
		t.Fatalf("resolve partner failed: %v", err)
	}

	now := time.Now().UTC()
	seedConversion(t, f, "digenesia", "LIVE", now.Add(-time.Hour), nil)
	if _, err := f.conversions.MarkDuplicateObserved(ctx, partner.ID, "LIVE", "stale-observation", now.AddDate(0, 0, -30)); err != nil {
		t.Fatalf("mark stale observation failed: %v", err)
	}
	if _, err := f.conversions.MarkDuplicateObserved(ctx, partner.ID, "LIVE", "recent-observation", now); err != nil {
		t.Fatalf("mark recent observation failed: %v", err)
	}

	retention := NewRetentionService(f.registry, f.conversions, nil, 10)
	if _, err := retention.PurgeExpired(ctx); err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	var keys []string
	if err := f.db.Model(&models.DuplicateObservation{}).Pluck("observation_key", &keys).Error; err != nil {
		t.Fatalf("list observations failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "recent-observation" {
		t.Fatalf("only the recent observation should remain, got %v", keys)
	}
}
