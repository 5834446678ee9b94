package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/postback-hub/internal/cache"
	"github.com/postback-hub/internal/constants"
	"github.com/postback-hub/internal/logger"
	"github.com/postback-hub/internal/repository"
)

// IdentityResolver 来源/平台名称解析
// 本地 sync.Map 为读多写少的名称缓存，Redis 为可选的跨实例共享层，唯一性由数据库保证。
type IdentityResolver struct {
	repo      repository.IdentityRepository
	sources   sync.Map // name -> uint
	platforms sync.Map // name -> uint
}

// NewIdentityResolver 创建身份解析器
func NewIdentityResolver(repo repository.IdentityRepository) *IdentityResolver {
	return &IdentityResolver{repo: repo}
}

// Warm 从存储预热本地缓存
func (r *IdentityResolver) Warm(ctx context.Context) error {
	sources, err := r.repo.ListSources(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	for _, source := range sources {
		r.sources.Store(source.Name, source.ID)
	}
	platforms, err := r.repo.ListPlatforms(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	for _, platform := range platforms {
		if platform.IsActive {
			r.platforms.Store(platform.Name, platform.ID)
		}
	}
	logger.Infow("identity_cache_warmed", "source_count", len(sources), "platform_count", len(platforms))
	return nil
}

// Reload 丢弃本地缓存并重新预热
func (r *IdentityResolver) Reload(ctx context.Context) error {
	r.sources.Range(func(key, _ any) bool {
		r.sources.Delete(key)
		return true
	})
	r.platforms.Range(func(key, _ any) bool {
		r.platforms.Delete(key)
		return true
	})
	return r.Warm(ctx)
}

// ResolveSource 解析来源名称，首次出现时原子创建
// 并发首次出现的同名来源最终得到同一个 ID。
func (r *IdentityResolver) ResolveSource(ctx context.Context, partnerID uint, name string) (uint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, nil
	}
	if len(name) > constants.SourceNameMaxLength {
		return 0, fmt.Errorf("%w: %w", ErrSourceResolveFailed, ErrFieldTooLong)
	}
	if id, ok := r.sources.Load(name); ok {
		return id.(uint), nil
	}
	if id, hit, err := cache.GetIdentityID(ctx, cache.IdentitySource, name); err == nil && hit {
		r.sources.Store(name, id)
		return id, nil
	}

	source, err := r.repo.CreateOrGetSource(ctx, partnerID, name)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, ErrPostbackTimeout
		}
		return 0, fmt.Errorf("%w: %v", ErrSourceResolveFailed, err)
	}
	r.sources.Store(name, source.ID)
	if err := cache.SetIdentityID(ctx, cache.IdentitySource, name, source.ID); err != nil {
		logger.Warnw("identity_shared_cache_write_failed", "kind", cache.IdentitySource, "name", name, "error", err)
	}
	return source.ID, nil
}

// ResolvePlatform 解析平台名称，平台只读不自动创建
func (r *IdentityResolver) ResolvePlatform(ctx context.Context, name string) (uint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, nil
	}
	if id, ok := r.platforms.Load(name); ok {
		return id.(uint), nil
	}
	platform, err := r.repo.GetPlatformByName(ctx, name)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, ErrPostbackTimeout
		}
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if platform == nil || !platform.IsActive {
		return 0, ErrPlatformNotFound
	}
	r.platforms.Store(name, platform.ID)
	return platform.ID, nil
}
