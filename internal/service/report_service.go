package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/postback-hub/internal/models"
	"github.com/postback-hub/internal/repository"
)

// ConversionQuery 转化报表查询条件
type ConversionQuery struct {
	PartnerCode   string
	TenantCode    string
	ConversionID  string
	From          *time.Time
	To            *time.Time
	DuplicateOnly bool
	Page          int
	PageSize      int
}

// ReportService 转化记录只读查询
type ReportService struct {
	registry    *PartnerRegistry
	tenants     repository.TenantRepository
	conversions repository.ConversionRepository
}

// NewReportService 创建报表服务
func NewReportService(registry *PartnerRegistry, tenants repository.TenantRepository, conversions repository.ConversionRepository) *ReportService {
	return &ReportService{registry: registry, tenants: tenants, conversions: conversions}
}

// GetConversions 按合作方/租户/时间范围查询转化
// 未知的合作方或租户编码返回空结果，不报错。
func (s *ReportService) GetConversions(ctx context.Context, query ConversionQuery) ([]models.Conversion, int64, error) {
	filter := repository.ConversionListFilter{
		Page:          query.Page,
		PageSize:      query.PageSize,
		ConversionID:  strings.TrimSpace(query.ConversionID),
		ReceivedFrom:  query.From,
		ReceivedTo:    query.To,
		DuplicateOnly: query.DuplicateOnly,
	}
	if code := strings.TrimSpace(query.PartnerCode); code != "" {
		partner, ok := s.registry.lookupCode(code)
		if !ok {
			return []models.Conversion{}, 0, nil
		}
		filter.PartnerID = partner.ID
	}
	if code := strings.TrimSpace(query.TenantCode); code != "" {
		tenant, err := s.tenants.GetByCode(ctx, code)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if tenant == nil {
			return []models.Conversion{}, 0, nil
		}
		filter.TenantID = tenant.ID
	}

	rows, total, err := s.conversions.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return rows, total, nil
}
