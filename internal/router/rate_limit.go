package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/postback-hub/internal/cache"
	"github.com/postback-hub/internal/http/response"
	"github.com/postback-hub/internal/logger"
	"github.com/postback-hub/internal/metrics"
	"github.com/postback-hub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const partnerRateLimitWindowSeconds = 60

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
}

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

// RateLimitMiddleware Redis 固定窗口限流中间件
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
			c.Next()
			return
		}

		key := ""
		if keyFunc != nil {
			key = strings.TrimSpace(keyFunc(c))
		}
		if key == "" {
			key = c.ClientIP()
		}

		allowed, waitSeconds, err := takeRateLimitToken(c.Request.Context(), client, rule, key)
		if err != nil {
			response.Error(c, response.CodeServiceUnavailable, "rate limit unavailable")
			c.Abort()
			return
		}
		if !allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", waitSeconds))
			response.Error(c, response.CodeTooManyRequests, fmt.Sprintf("too many requests, retry after %ds", waitSeconds))
			c.Abort()
			return
		}

		c.Next()
	}
}

// PartnerRateLimitMiddleware 按合作方 rate_limit_per_minute 限流
// 未知合作方直接放行由接入处理器返回 404；Redis 异常时放行，避免丢失转化。
func PartnerRateLimitMiddleware(client *redis.Client, registry *service.PartnerRegistry, m *metrics.PostbackMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || registry == nil {
			c.Next()
			return
		}
		partner, err := registry.ResolveEndpoint(c.Param("endpoint"))
		if err != nil || partner.RateLimitPerMinute <= 0 {
			c.Next()
			return
		}
		rule := RateLimitRule{
			Prefix:        "ratelimit:postback",
			WindowSeconds: partnerRateLimitWindowSeconds,
			MaxRequests:   partner.RateLimitPerMinute,
		}
		allowed, waitSeconds, err := takeRateLimitToken(c.Request.Context(), client, rule, partner.Code)
		if err != nil {
			logger.Warnw("postback_rate_limit_unavailable",
				"request_id", getRequestID(c),
				"partner_code", partner.Code,
				"error", err,
			)
			c.Next()
			return
		}
		if !allowed {
			m.ObservePostback(partner.Code, metrics.OutcomeRateLimited, 0)
			logger.Infow("postback_rate_limited",
				"request_id", getRequestID(c),
				"partner_code", partner.Code,
				"limit_per_minute", partner.RateLimitPerMinute,
			)
			c.Header("Retry-After", fmt.Sprintf("%d", waitSeconds))
			response.Error(c, response.CodeTooManyRequests, fmt.Sprintf("too many requests, retry after %ds", waitSeconds))
			c.Abort()
			return
		}
		c.Next()
	}
}

func takeRateLimitToken(ctx context.Context, client *redis.Client, rule RateLimitRule, key string) (bool, int, error) {
	if rule.Prefix != "" {
		key = fmt.Sprintf("%s:%s", rule.Prefix, key)
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	result, err := rateLimitScript.Run(ctx, client, []string{cache.BuildKey(key)}, rule.WindowSeconds).Result()
	if err != nil {
		return false, 0, err
	}
	values, ok := result.([]interface{})
	if !ok || len(values) < 2 {
		return false, 0, fmt.Errorf("unexpected rate limit result %T", result)
	}
	count, ok := toInt64(values[0])
	if !ok {
		return false, 0, fmt.Errorf("unexpected rate limit counter %T", values[0])
	}
	if count <= int64(rule.MaxRequests) {
		return true, 0, nil
	}
	ttlSeconds, _ := toInt64(values[1])
	waitSeconds := int(ttlSeconds)
	if waitSeconds < 1 {
		waitSeconds = rule.WindowSeconds
	}
	if waitSeconds < 1 {
		waitSeconds = 1
	}
	return false, waitSeconds, nil
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int16:
		return int64(v), true
	case int8:
		return int64(v), true
	case uint64:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint8:
		return int64(v), true
	case float64:
		return int64(v), true
	case float32:
		return int64(v), true
	default:
		return 0, false
	}
}
