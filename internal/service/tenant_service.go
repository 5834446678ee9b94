package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/postback-hub/internal/cache"
	"github.com/postback-hub/internal/config"
	"github.com/postback-hub/internal/logger"
	"github.com/postback-hub/internal/repository"

	"github.com/golang-jwt/jwt/v5"
)

// TenantService 租户令牌签发与解析
type TenantService struct {
	cfg  config.TenantAuthConfig
	repo repository.TenantRepository
}

// NewTenantService 创建租户服务
func NewTenantService(cfg config.TenantAuthConfig, repo repository.TenantRepository) *TenantService {
	return &TenantService{cfg: cfg, repo: repo}
}

// TenantClaims 租户令牌声明
type TenantClaims struct {
	TenantCode   string `json:"tenant_code"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// IssueToken 为租户签发回调令牌；rotate 为 true 时先递增版本使旧令牌失效
func (s *TenantService) IssueToken(ctx context.Context, code string, rotate bool) (string, time.Time, error) {
	tenant, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if tenant == nil {
		return "", time.Time{}, ErrTenantNotFound
	}
	if !tenant.IsActive {
		return "", time.Time{}, ErrTenantInactive
	}
	if rotate {
		tenant.TokenVersion++
		if err := s.repo.Update(ctx, tenant); err != nil {
			return "", time.Time{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if err := cache.DelTenantAuthState(ctx, tenant.Code); err != nil {
			logger.Warnw("tenant_auth_state_invalidate_failed", "tenant_code", tenant.Code, "error", err)
		}
	}

	now := time.Now()
	expiresAt := now.Add(time.Duration(s.cfg.ExpireHours) * time.Hour)
	claims := TenantClaims{
		TenantCode:   tenant.Code,
		TokenVersion: tenant.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   tenant.Code,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken 校验签名与有效期
func (s *TenantService) ParseToken(tokenString string) (*TenantClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &TenantClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.SecretKey), nil
	})
	if err != nil {
		return nil, ErrTenantTokenInvalid
	}
	claims, ok := token.Claims.(*TenantClaims)
	if !ok || !token.Valid || strings.TrimSpace(claims.TenantCode) == "" {
		return nil, ErrTenantTokenInvalid
	}
	return claims, nil
}

// ResolveToken 解析回调携带的租户令牌，返回租户 ID
// 空令牌表示未使用租户层，返回 nil。
func (s *TenantService) ResolveToken(ctx context.Context, tokenString string) (*cache.TenantAuthState, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, nil
	}
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}

	state, hit, err := cache.GetTenantAuthState(ctx, claims.TenantCode)
	if err != nil {
		logger.Warnw("tenant_auth_state_cache_read_failed", "tenant_code", claims.TenantCode, "error", err)
	}
	if !hit || state == nil {
		tenant, err := s.repo.GetByCode(ctx, claims.TenantCode)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, ErrPostbackTimeout
			}
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if tenant == nil {
			return nil, ErrTenantTokenInvalid
		}
		state = cache.BuildTenantAuthState(tenant)
		if err := cache.SetTenantAuthState(ctx, state); err != nil {
			logger.Warnw("tenant_auth_state_cache_write_failed", "tenant_code", tenant.Code, "error", err)
		}
	}

	// 版本落后说明令牌已被轮换
	if !state.IsActive || state.TokenVersion != claims.TokenVersion {
		return nil, ErrTenantInactive
	}
	return state, nil
}
