package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/postback-hub/internal/config"
	"github.com/postback-hub/internal/models"
	"github.com/postback-hub/internal/provider"
	"github.com/postback-hub/internal/repository"
	"github.com/postback-hub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAdminHandlerTest(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:admin_handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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

	tenantRepo := repository.NewTenantRepository(db)
	conversionRepo := repository.NewConversionRepository(db)
	identityRepo := repository.NewIdentityRepository(db)
	registry := service.NewPartnerRegistry(repository.NewPartnerRepository(db))
	if err := registry.Reload(context.Background()); err != nil {
		t.Fatalf("registry reload failed: %v", err)
	}
	container := &provider.Container{
		Config:           &config.Config{},
		TenantRepo:       tenantRepo,
		ConversionRepo:   conversionRepo,
		IdentityRepo:     identityRepo,
		PartnerRegistry:  registry,
		IdentityResolver: service.NewIdentityResolver(identityRepo),
		TenantService: service.NewTenantService(config.TenantAuthConfig{
			SecretKey:   "admin-test-secret",
			ExpireHours: 1,
		}, tenantRepo),
		ReportService: service.NewReportService(registry, tenantRepo, conversionRepo),
	}

	h := New(container)
	router := gin.New()
	router.POST("/registry/reload", h.ReloadRegistry)
	router.GET("/partners", h.ListPartners)
	router.PUT("/partners/:code", h.SavePartner)
	router.GET("/conversions", h.ListConversions)
	router.POST("/tenants/:code/token", h.IssueTenantToken)
	return router, db
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListConversionsPaginates(t *testing.T) {
	router, db := setupAdminHandlerTest(t)
	for i := 0; i < 3; i++ {
		row := &models.Conversion{
			PartnerID:    1,
			ConversionID: fmt.Sprintf("L-%d", i),
			RawData:      models.JSON{},
			ReceivedAt:   time.Now().UTC(),
		}
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("create conversion failed: %v", err)
		}
	}

	w := serve(router, httptest.NewRequest(http.MethodGet, "/conversions?page=1&page_size=2", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d body=%s", w.Code, w.Body.String())
	}
	var body struct {
		Data       []models.Conversion `json:"data"`
		Pagination struct {
			Total     int64 `json:"total"`
			TotalPage int64 `json:"total_page"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if len(body.Data) != 2 || body.Pagination.Total != 3 || body.Pagination.TotalPage != 2 {
		t.Fatalf("pagination mismatch: len=%d total=%d pages=%d", len(body.Data), body.Pagination.Total, body.Pagination.TotalPage)
	}
}

func TestListConversionsRejectsBadTime(t *testing.T) {
	router, _ := setupAdminHandlerTest(t)
	w := serve(router, httptest.NewRequest(http.MethodGet, "/conversions?from=yesterday", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status want 400 got %d", w.Code)
	}
}

func TestIssueTenantToken(t *testing.T) {
	router, db := setupAdminHandlerTest(t)
	if err := db.Create(&models.Tenant{Code: "acme", Name: "Acme", TokenVersion: 1, IsActive: true}).Error; err != nil {
		t.Fatalf("create tenant failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/tenants/acme/token", strings.NewReader(`{"rotate":true}`))
	req.Header.Set("Content-Type", "application/json")
	w := serve(router, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d body=%s", w.Code, w.Body.String())
	}
	var body struct {
		Data struct {
			TenantCode string `json:"tenant_code"`
			Token      string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if body.Data.TenantCode != "acme" || body.Data.Token == "" {
		t.Fatalf("unexpected token response: %s", w.Body.String())
	}

	var tenant models.Tenant
	if err := db.Where("code = ?", "acme").First(&tenant).Error; err != nil {
		t.Fatalf("load tenant failed: %v", err)
	}
	if tenant.TokenVersion != 2 {
		t.Fatalf("rotate should bump token version, got %d", tenant.TokenVersion)
	}

	w = serve(router, httptest.NewRequest(http.MethodPost, "/tenants/nobody/token", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown tenant want 404 got %d", w.Code)
	}
}

func TestReloadRegistryAndListPartners(t *testing.T) {
	router, _ := setupAdminHandlerTest(t)
	w := serve(router, httptest.NewRequest(http.MethodPost, "/registry/reload", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("reload want 200 got %d body=%s", w.Code, w.Body.String())
	}
	w = serve(router, httptest.NewRequest(http.MethodGet, "/partners", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list want 200 got %d", w.Code)
	}
	var body struct {
		Data struct {
			Partners []service.PartnerEntry `json:"partners"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if len(body.Data.Partners) != 2 || body.Data.Partners[0].Code != "digenesia" {
		t.Fatalf("unexpected partner list: %s", w.Body.String())
	}
}

func TestToAppError(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{err: service.ErrTenantNotFound, code: http.StatusNotFound},
		{err: service.ErrTenantInactive, code: http.StatusForbidden},
		{err: fmt.Errorf("%w: bad alias", service.ErrPartnerConfigInvalid), code: http.StatusBadRequest},
		{err: fmt.Errorf("%w: dial tcp", service.ErrStoreUnavailable), code: http.StatusServiceUnavailable},
		{err: context.Canceled, code: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := toAppError(tc.err); got == nil || got.Code != tc.code {
			t.Fatalf("error %v want code %d got %+v", tc.err, tc.code, got)
		}
	}
	if toAppError(nil) != nil {
		t.Fatalf("nil error should map to nil")
	}
}

func TestSavePartnerValidatesAndReloads(t *testing.T) {
	router, _ := setupAdminHandlerTest(t)

	body := `{"name":"Acme Ads","endpoint_path":"acme/cb","parameter_mapping":{"conversion_id":["txid"],"payout":["amt"]},"ack_format":"text"}`
	req := httptest.NewRequest(http.MethodPut, "/partners/AcmeAds", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := serve(router, req)
	if w.Code != http.StatusOK {
		t.Fatalf("save want 200 got %d body=%s", w.Code, w.Body.String())
	}

	w = serve(router, httptest.NewRequest(http.MethodGet, "/partners", nil))
	if !strings.Contains(w.Body.String(), `"code":"acmeads"`) || !strings.Contains(w.Body.String(), `"endpoint_path":"acme/cb"`) {
		t.Fatalf("saved partner should be in registry snapshot: %s", w.Body.String())
	}

	bad := `{"name":"Broken","parameter_mapping":{"payout":[]}}`
	req = httptest.NewRequest(http.MethodPut, "/partners/broken", strings.NewReader(bad))
	req.Header.Set("Content-Type", "application/json")
	w = serve(router, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid mapping want 400 got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/partners/nameless", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	if w = serve(router, req); w.Code != http.StatusBadRequest {
		t.Fatalf("missing name want 400 got %d", w.Code)
	}
}
