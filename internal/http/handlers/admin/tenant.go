package admin

import (
	"strings"

	"github.com/postback-hub/internal/http/response"

	"github.com/gin-gonic/gin"
)

// IssueTenantTokenRequest 签发租户令牌请求
type IssueTenantTokenRequest struct {
	Rotate bool `json:"rotate"`
}

// IssueTenantToken 为租户签发回调令牌，rotate=true 时旧令牌全部失效
func (h *Handler) IssueTenantToken(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		respondError(c, response.CodeBadRequest, "tenant code required", nil)
		return
	}
	var req IssueTenantTokenRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "request body invalid", nil)
			return
		}
	}
	token, expiresAt, err := h.TenantService.IssueToken(c.Request.Context(), code, req.Rotate)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_tenant_token_issued", "tenant_code", code, "rotate", req.Rotate, "expires_at", expiresAt)
	response.Success(c, gin.H{
		"tenant_code": strings.ToLower(code),
		"token":       token,
		"expires_at":  expiresAt,
	})
}
