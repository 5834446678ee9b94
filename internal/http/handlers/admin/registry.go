package admin

import (
	"context"
	"strings"
	"time"

	"github.com/postback-hub/internal/constants"
	"github.com/postback-hub/internal/http/response"
	"github.com/postback-hub/internal/models"

	"github.com/gin-gonic/gin"
)

const reloadTimeout = 30 * time.Second

// ReloadRegistry 重新加载合作方注册表与身份缓存
func (h *Handler) ReloadRegistry(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), reloadTimeout)
	defer cancel()

	if err := h.PartnerRegistry.Reload(ctx); err != nil {
		respondServiceError(c, err)
		return
	}
	if err := h.IdentityResolver.Reload(ctx); err != nil {
		respondServiceError(c, err)
		return
	}
	partners := h.PartnerRegistry.List()
	requestLog(c).Infow("admin_registry_reloaded", "partner_count", len(partners))
	response.Success(c, gin.H{
		"partner_count": len(partners),
		"loaded_at":     h.PartnerRegistry.LoadedAt(),
	})
}

// ListPartners 当前注册表快照
func (h *Handler) ListPartners(c *gin.Context) {
	response.Success(c, gin.H{
		"partners":  h.PartnerRegistry.List(),
		"loaded_at": h.PartnerRegistry.LoadedAt(),
	})
}

// SavePartnerRequest 合作方配置写入请求
type SavePartnerRequest struct {
	Name               string              `json:"name" binding:"required"`
	EndpointPath       string              `json:"endpoint_path"`
	ParameterMapping   map[string][]string `json:"parameter_mapping"`
	RequiredFields     []string            `json:"required_fields"`
	AckFormat          string              `json:"ack_format"`
	IsActive           *bool               `json:"is_active"`
	RateLimitPerMinute int                 `json:"rate_limit_per_minute"`
	RetentionDays      int                 `json:"retention_days"`
}

// SavePartner 新增或覆盖合作方配置，校验通过后刷新注册表
// PUT /api/v1/admin/partners/:code
func (h *Handler) SavePartner(c *gin.Context) {
	code := strings.ToLower(strings.TrimSpace(c.Param("code")))
	if code == "" {
		respondError(c, response.CodeBadRequest, "partner code required", nil)
		return
	}
	var req SavePartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "request body invalid", nil)
		return
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	ackFormat := strings.ToLower(strings.TrimSpace(req.AckFormat))
	if ackFormat == "" {
		ackFormat = constants.AckFormatJSON
	}
	partner := &models.Partner{
		Code:               code,
		Name:               strings.TrimSpace(req.Name),
		EndpointPath:       req.EndpointPath,
		ParameterMapping:   models.ParameterMapping(req.ParameterMapping),
		RequiredFields:     models.StringArray(req.RequiredFields),
		AckFormat:          ackFormat,
		IsActive:           isActive,
		RateLimitPerMinute: req.RateLimitPerMinute,
		RetentionDays:      req.RetentionDays,
	}
	if partner.ParameterMapping == nil {
		partner.ParameterMapping = models.ParameterMapping{}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), reloadTimeout)
	defer cancel()
	if err := h.PartnerRegistry.SavePartner(ctx, partner); err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_partner_saved", "partner_code", partner.Code, "endpoint_path", partner.EndpointPath, "is_active", partner.IsActive)
	response.Success(c, gin.H{
		"partner":   partner,
		"loaded_at": h.PartnerRegistry.LoadedAt(),
	})
}
