package admin

import (
	"errors"

	handlershared "github.com/postback-hub/internal/http/handlers/shared"
	"github.com/postback-hub/internal/http/response"
	"github.com/postback-hub/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

// respondServiceError 运维接口统一的业务错误映射
func respondServiceError(c *gin.Context, err error) {
	handlershared.RespondAppError(c, toAppError(err))
}

func toAppError(err error) *response.AppError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrTenantNotFound):
		return response.WrapError(response.CodeNotFound, "tenant not found", nil)
	case errors.Is(err, service.ErrTenantInactive):
		return response.WrapError(response.CodeForbidden, "tenant inactive", nil)
	case errors.Is(err, service.ErrPartnerConfigInvalid):
		return response.WrapError(response.CodeBadRequest, "partner config invalid", nil)
	case errors.Is(err, service.ErrStoreUnavailable):
		return response.WrapError(response.CodeServiceUnavailable, "store unavailable", err)
	default:
		return response.WrapError(response.CodeInternal, "internal error", err)
	}
}
