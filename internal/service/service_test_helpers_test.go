package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/postback-hub/internal/config"
	"github.com/postback-hub/internal/models"
	"github.com/postback-hub/internal/queue"
	"github.com/postback-hub/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type serviceFixture struct {
	db          *gorm.DB
	partners    *repository.GormPartnerRepository
	tenantsRepo *repository.GormTenantRepository
	identities  *repository.GormIdentityRepository
	conversions *repository.GormConversionRepository
	registry    *PartnerRegistry
	identity    *IdentityResolver
	tenants     *TenantService
	postback    *PostbackService
}

func setupServiceTest(t *testing.T) *serviceFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := models.Migrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	if err := models.InitDefaultPartners(db); err != nil {
		t.Fatalf("init default partners failed: %v", err)
	}
	for _, name := range []string{"web", "ios"} {
		if err := db.Create(&models.Platform{Name: name, IsActive: true}).Error; err != nil {
			t.Fatalf("create platform failed: %v", err)
		}
	}

	f := &serviceFixture{
		db:          db,
		partners:    repository.NewPartnerRepository(db),
		tenantsRepo: repository.NewTenantRepository(db),
		identities:  repository.NewIdentityRepository(db),
		conversions: repository.NewConversionRepository(db),
	}
	f.registry = NewPartnerRegistry(f.partners)
	if err := f.registry.Reload(context.Background()); err != nil {
		t.Fatalf("registry reload failed: %v", err)
	}
	f.identity = NewIdentityResolver(f.identities)
	f.tenants = NewTenantService(config.TenantAuthConfig{
		SecretKey:   "service-test-secret",
		ExpireHours: 24,
	}, f.tenantsRepo)

	f.postback = f.newPostback(t, nil)
	return f
}

// newPostback 以夹具默认依赖创建回调服务，override 可替换个别依赖
func (f *serviceFixture) newPostback(t *testing.T, override func(opts *PostbackServiceOptions)) *PostbackService {
	t.Helper()
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}
	opts := PostbackServiceOptions{
		Registry:    f.registry,
		Identity:    f.identity,
		Tenants:     f.tenants,
		Conversions: f.conversions,
		QueueClient: queueClient,
		Timeout:     5 * time.Second,
	}
	if override != nil {
		override(&opts)
	}
	return NewPostbackService(opts)
}

// counterValue 汇总指定计数器中某个标签取值的计数
func counterValue(t *testing.T, registry *prometheus.Registry, name, labelName, labelValue string) float64 {
	t.Helper()
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics failed: %v", err)
	}
	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == labelName && label.GetValue() == labelValue {
					total += metric.GetCounter().GetValue()
				}
			}
		}
	}
	return total
}

// countConversions 统计当前库中的转化记录数
func (f *serviceFixture) countConversions(t *testing.T) int64 {
	t.Helper()
	var count int64
	if err := f.db.Model(&models.Conversion{}).Count(&count).Error; err != nil {
		t.Fatalf("count conversions failed: %v", err)
	}
	return count
}

// createTenant 创建测试租户
func (f *serviceFixture) createTenant(t *testing.T, code string, active bool) *models.Tenant {
	t.Helper()
	tenant := &models.Tenant{Code: code, Name: code, TokenVersion: 1, IsActive: active}
	if err := f.tenantsRepo.Create(context.Background(), tenant); err != nil {
		t.Fatalf("create tenant failed: %v", err)
	}
	return tenant
}
