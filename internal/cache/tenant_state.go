package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/postback-hub/internal/models"
)

const tenantStateCacheTTL = 10 * time.Minute

// TenantAuthState 租户鉴权快照，避免每次回调都查询租户表
type TenantAuthState struct {
	TenantID     uint   `json:"tenant_id"`
	Code         string `json:"code"`
	TokenVersion uint64 `json:"token_version"`
	IsActive     bool   `json:"is_active"`
	UpdatedAt    int64  `json:"updated_at"`
}

func tenantStateKey(code string) string {
	return fmt.Sprintf("auth:tenant:%s", strings.ToLower(strings.TrimSpace(code)))
}

// BuildTenantAuthState 从租户模型构建鉴权快照
func BuildTenantAuthState(tenant *models.Tenant) *TenantAuthState {
	if tenant == nil {
		return nil
	}
	return &TenantAuthState{
		TenantID:     tenant.ID,
		Code:         tenant.Code,
		TokenVersion: tenant.TokenVersion,
		IsActive:     tenant.IsActive,
		UpdatedAt:    time.Now().Unix(),
	}
}

// GetTenantAuthState 获取租户鉴权快照
func GetTenantAuthState(ctx context.Context, code string) (*TenantAuthState, bool, error) {
	if strings.TrimSpace(code) == "" {
		return nil, false, nil
	}
	var state TenantAuthState
	hit, err := GetJSON(ctx, tenantStateKey(code), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

// SetTenantAuthState 写入租户鉴权快照
func SetTenantAuthState(ctx context.Context, state *TenantAuthState) error {
	if state == nil || state.TenantID == 0 {
		return nil
	}
	return SetJSON(ctx, tenantStateKey(state.Code), state, tenantStateCacheTTL)
}

// DelTenantAuthState 删除租户鉴权快照
func DelTenantAuthState(ctx context.Context, code string) error {
	if strings.TrimSpace(code) == "" {
		return nil
	}
	return Del(ctx, tenantStateKey(code))
}
