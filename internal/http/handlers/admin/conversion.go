package admin

import (
	"strconv"
	"strings"
	"time"

	handlershared "github.com/postback-hub/internal/http/handlers/shared"
	"github.com/postback-hub/internal/http/response"
	"github.com/postback-hub/internal/service"

	"github.com/gin-gonic/gin"
)

// ListConversions 转化报表查询
// GET /api/v1/admin/conversions?partner_code=&tenant_code=&from=&to=&duplicate_only=&page=&page_size=
func (h *Handler) ListConversions(c *gin.Context) {
	page, pageSize := handlershared.PaginationFromQuery(c)

	from, ok := parseTimeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := parseTimeQuery(c, "to")
	if !ok {
		return
	}
	duplicateOnly, _ := strconv.ParseBool(strings.TrimSpace(c.Query("duplicate_only")))

	rows, total, err := h.ReportService.GetConversions(c.Request.Context(), service.ConversionQuery{
		PartnerCode:   c.Query("partner_code"),
		TenantCode:    c.Query("tenant_code"),
		ConversionID:  c.Query("conversion_id"),
		From:          from,
		To:            to,
		DuplicateOnly: duplicateOnly,
		Page:          page,
		PageSize:      pageSize,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, response.NewPagination(page, pageSize, total))
}

// parseTimeQuery 支持 RFC3339 与 2006-01-02
func parseTimeQuery(c *gin.Context, key string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return &parsed, true
		}
	}
	respondError(c, response.CodeBadRequest, key+" invalid", nil)
	return nil, false
}
