package public

import (
	"context"
	"time"

	"github.com/postback-hub/internal/cache"
	"github.com/postback-hub/internal/http/response"
	"github.com/postback-hub/internal/models"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// Healthz 存活检查：数据库不可用时返回 503，Redis 仅作提示
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	data := gin.H{"db": "ok", "redis": "disabled"}
	if err := models.Ping(ctx); err != nil {
		requestLog(c).Warnw("healthz_db_ping_failed", "error", err)
		response.ErrorWithData(c, response.CodeServiceUnavailable, "store unavailable", gin.H{"db": "down"})
		return
	}
	if cache.Enabled() {
		data["redis"] = "ok"
		if err := cache.Ping(ctx); err != nil {
			requestLog(c).Warnw("healthz_redis_ping_failed", "error", err)
			data["redis"] = "down"
		}
	}
	if h.PartnerRegistry != nil {
		data["partners"] = len(h.PartnerRegistry.List())
		data["registry_loaded_at"] = h.PartnerRegistry.LoadedAt()
	}
	response.Success(c, data)
}
