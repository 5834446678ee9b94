package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const identityCacheTTL = 24 * time.Hour

// IdentityKind 身份类型
type IdentityKind string

const (
	IdentitySource   IdentityKind = "source"
	IdentityPlatform IdentityKind = "platform"
)

// IdentityEntry 已解析的名称 -> ID 映射
// 多个 API 实例共享，唯一性仍以数据库为准
type IdentityEntry struct {
	ID        uint  `json:"id"`
	UpdatedAt int64 `json:"updated_at"`
}

func identityKey(kind IdentityKind, name string) string {
	return fmt.Sprintf("identity:%s:%s", kind, strings.TrimSpace(name))
}

// GetIdentityID 获取共享缓存中的身份 ID
func GetIdentityID(ctx context.Context, kind IdentityKind, name string) (uint, bool, error) {
	if strings.TrimSpace(name) == "" {
		return 0, false, nil
	}
	var entry IdentityEntry
	hit, err := GetJSON(ctx, identityKey(kind, name), &entry)
	if err != nil || !hit || entry.ID == 0 {
		return 0, false, err
	}
	return entry.ID, true, nil
}

// SetIdentityID 写入共享缓存
func SetIdentityID(ctx context.Context, kind IdentityKind, name string, id uint) error {
	if strings.TrimSpace(name) == "" || id == 0 {
		return nil
	}
	entry := IdentityEntry{ID: id, UpdatedAt: time.Now().Unix()}
	return SetJSON(ctx, identityKey(kind, name), entry, identityCacheTTL)
}
