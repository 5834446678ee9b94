package router

import (
	"net/http"

	"github.com/postback-hub/internal/cache"
	"github.com/postback-hub/internal/config"
	adminhandlers "github.com/postback-hub/internal/http/handlers/admin"
	publichandlers "github.com/postback-hub/internal/http/handlers/public"
	"github.com/postback-hub/internal/http/response"
	"github.com/postback-hub/internal/logger"
	"github.com/postback-hub/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.Z()
	r := gin.New()

	// 初始化 Handler（按公开/运维分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisClient := cache.Client()
	adminRule := RateLimitRule{
		Prefix:        "ratelimit:admin",
		WindowSeconds: 60,
		MaxRequests:   120,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// 合作方回调：{prefix}/{code} 或自定义 endpoint_path
	postback := r.Group(cfg.Postback.PathPrefix)
	postback.Use(PartnerRateLimitMiddleware(redisClient, c.PartnerRegistry, c.Metrics))
	{
		postback.GET("/*endpoint", publicHandler.ReceivePostback)
		postback.POST("/*endpoint", publicHandler.ReceivePostback)
	}

	// 运维接口
	admin := r.Group("/api/v1/admin")
	admin.Use(RateLimitMiddleware(redisClient, adminRule, KeyByIP), AdminKeyMiddleware(c.AdminAuth))
	{
		admin.POST("/registry/reload", adminHandler.ReloadRegistry)
		admin.GET("/partners", adminHandler.ListPartners)
		admin.PUT("/partners/:code", adminHandler.SavePartner)
		admin.GET("/conversions", adminHandler.ListConversions)
		admin.POST("/tenants/:code/token", adminHandler.IssueTenantToken)
	}

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// 健康检查
	r.GET("/healthz", publicHandler.Healthz)

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, "route not found")
	})

	return r
}
