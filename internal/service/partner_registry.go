package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/postback-hub/internal/constants"
	"github.com/postback-hub/internal/logger"
	"github.com/postback-hub/internal/models"
	"github.com/postback-hub/internal/repository"
)

// PartnerEntry 注册表中的合作方只读视图
type PartnerEntry struct {
	ID                 uint                    `json:"id"`
	Code               string                  `json:"code"`
	Name               string                  `json:"name"`
	EndpointPath       string                  `json:"endpoint_path"`
	Mapping            models.ParameterMapping `json:"parameter_mapping"`
	RequiredFields     []string                `json:"required_fields"`
	AckFormat          string                  `json:"ack_format"`
	IsActive           bool                    `json:"is_active"`
	RateLimitPerMinute int                     `json:"rate_limit_per_minute"`
	RetentionDays      int                     `json:"retention_days"`
}

type partnerSnapshot struct {
	byCode   map[string]*PartnerEntry
	byPath   map[string]*PartnerEntry
	loadedAt time.Time
}

// PartnerRegistry 合作方注册表
// 启动时加载为不可变快照，Reload 整体替换；请求路径只读快照，无锁。
type PartnerRegistry struct {
	repo     repository.PartnerRepository
	snapshot atomic.Pointer[partnerSnapshot]
}

// NewPartnerRegistry 创建合作方注册表
func NewPartnerRegistry(repo repository.PartnerRepository) *PartnerRegistry {
	registry := &PartnerRegistry{repo: repo}
	registry.snapshot.Store(&partnerSnapshot{
		byCode: map[string]*PartnerEntry{},
		byPath: map[string]*PartnerEntry{},
	})
	return registry
}

// Reload 从存储重新加载全部合作方并原子替换快照
// 配置非法的合作方会被跳过并告警，不影响其他合作方。
func (r *PartnerRegistry) Reload(ctx context.Context) error {
	partners, err := r.repo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	next := &partnerSnapshot{
		byCode:   make(map[string]*PartnerEntry, len(partners)),
		byPath:   make(map[string]*PartnerEntry, len(partners)),
		loadedAt: time.Now(),
	}
	for i := range partners {
		partner := &partners[i]
		if err := ValidatePartnerConfig(partner); err != nil {
			logger.Warnw("partner_registry_skip_invalid",
				"partner_code", partner.Code,
				"error", err,
			)
			continue
		}
		entry := buildPartnerEntry(partner)
		next.byCode[entry.Code] = entry
		if existing, ok := next.byPath[entry.EndpointPath]; ok && existing.Code != entry.Code {
			logger.Warnw("partner_registry_endpoint_conflict",
				"endpoint_path", entry.EndpointPath,
				"partner_code", entry.Code,
				"existing_partner_code", existing.Code,
			)
			continue
		}
		next.byPath[entry.EndpointPath] = entry
	}

	r.snapshot.Store(next)
	logger.Infow("partner_registry_reloaded", "partner_count", len(next.byCode))
	return nil
}

// ResolvePartner 根据编码解析合作方
func (r *PartnerRegistry) ResolvePartner(code string) (*PartnerEntry, error) {
	entry, ok := r.snapshot.Load().byCode[strings.ToLower(strings.TrimSpace(code))]
	return checkPartnerEntry(entry, ok)
}

// lookupCode 不区分启停状态，供只读查询使用
func (r *PartnerRegistry) lookupCode(code string) (*PartnerEntry, bool) {
	entry, ok := r.snapshot.Load().byCode[strings.ToLower(strings.TrimSpace(code))]
	return entry, ok && entry != nil
}

// ResolveEndpoint 根据回调路径（前缀之后的部分）解析合作方
// 优先匹配自定义路径，其次把单段路径视为合作方编码。
func (r *PartnerRegistry) ResolveEndpoint(path string) (*PartnerEntry, error) {
	normalized := models.NormalizeEndpointPath(path)
	if normalized == "" {
		return nil, ErrPartnerNotFound
	}
	snapshot := r.snapshot.Load()
	if entry, ok := snapshot.byPath[normalized]; ok {
		return checkPartnerEntry(entry, true)
	}
	if !strings.Contains(normalized, "/") {
		entry, ok := snapshot.byCode[normalized]
		return checkPartnerEntry(entry, ok)
	}
	return nil, ErrPartnerNotFound
}

// List 返回当前快照中的全部合作方（按编码排序）
func (r *PartnerRegistry) List() []PartnerEntry {
	snapshot := r.snapshot.Load()
	entries := make([]PartnerEntry, 0, len(snapshot.byCode))
	for _, entry := range snapshot.byCode {
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Code < entries[j].Code
	})
	return entries
}

// LoadedAt 快照加载时间
func (r *PartnerRegistry) LoadedAt() time.Time {
	return r.snapshot.Load().loadedAt
}

// SavePartner 校验并写入合作方配置（运维写入口），随后刷新快照
func (r *PartnerRegistry) SavePartner(ctx context.Context, partner *models.Partner) error {
	if err := ValidatePartnerConfig(partner); err != nil {
		return err
	}
	existing, err := r.repo.GetByCode(ctx, partner.Code)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if existing == nil {
		err = r.repo.Create(ctx, partner)
	} else {
		partner.ID = existing.ID
		partner.CreatedAt = existing.CreatedAt
		err = r.repo.Update(ctx, partner)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return r.Reload(ctx)
}

// ValidatePartnerConfig 校验合作方映射配置
func ValidatePartnerConfig(partner *models.Partner) error {
	if partner == nil || strings.TrimSpace(partner.Code) == "" {
		return fmt.Errorf("%w: code required", ErrPartnerConfigInvalid)
	}
	for field, aliases := range partner.ParameterMapping {
		if !constants.IsCanonicalField(field) {
			return fmt.Errorf("%w: unknown canonical field %q", ErrPartnerConfigInvalid, field)
		}
		if len(aliases) == 0 {
			return fmt.Errorf("%w: empty alias list for %q", ErrPartnerConfigInvalid, field)
		}
		for _, alias := range aliases {
			if strings.TrimSpace(alias) == "" {
				return fmt.Errorf("%w: blank alias for %q", ErrPartnerConfigInvalid, field)
			}
		}
	}
	for _, field := range partner.RequiredFields {
		if !constants.IsCanonicalField(field) {
			return fmt.Errorf("%w: unknown required field %q", ErrPartnerConfigInvalid, field)
		}
	}
	switch strings.ToLower(strings.TrimSpace(partner.AckFormat)) {
	case "", constants.AckFormatJSON, constants.AckFormatText:
	default:
		return fmt.Errorf("%w: unsupported ack_format %q", ErrPartnerConfigInvalid, partner.AckFormat)
	}
	if partner.RateLimitPerMinute < 0 || partner.RetentionDays < 0 {
		return fmt.Errorf("%w: negative limit", ErrPartnerConfigInvalid)
	}
	return nil
}

func buildPartnerEntry(partner *models.Partner) *PartnerEntry {
	code := strings.ToLower(strings.TrimSpace(partner.Code))
	path := models.NormalizeEndpointPath(partner.EndpointPath)
	if path == "" {
		path = code
	}
	// 为空时由接入层使用 postback.default_ack_format
	ackFormat := strings.ToLower(strings.TrimSpace(partner.AckFormat))
	required := make([]string, len(partner.RequiredFields))
	copy(required, partner.RequiredFields)
	return &PartnerEntry{
		ID:                 partner.ID,
		Code:               code,
		Name:               partner.Name,
		EndpointPath:       path,
		Mapping:            partner.ParameterMapping.Clone(),
		RequiredFields:     required,
		AckFormat:          ackFormat,
		IsActive:           partner.IsActive,
		RateLimitPerMinute: partner.RateLimitPerMinute,
		RetentionDays:      partner.RetentionDays,
	}
}

func checkPartnerEntry(entry *PartnerEntry, ok bool) (*PartnerEntry, error) {
	if !ok || entry == nil {
		return nil, ErrPartnerNotFound
	}
	if !entry.IsActive {
		return nil, ErrPartnerInactive
	}
	return entry, nil
}
