package public

import (
	"errors"

	handlershared "github.com/postback-hub/internal/http/handlers/shared"
	"github.com/postback-hub/internal/http/response"
	"github.com/postback-hub/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			handlershared.RespondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	handlershared.RespondError(c, fallbackCode, fallbackMsg, err)
}

// 消息只描述错误类别，不回显内部细节
var postbackErrorRules = []mappedHandlerError{
	{target: errPostbackBodyTooLarge, code: response.CodeRequestTooLarge, msg: "request body too large"},
	{target: errPostbackBodyInvalid, code: response.CodeBadRequest, msg: "request body invalid"},
	{target: service.ErrPostbackParamsEmpty, code: response.CodeBadRequest, msg: "postback parameters empty"},
	{target: service.ErrConversionIDRequired, code: response.CodeBadRequest, msg: "conversion_id required"},
	{target: service.ErrConversionIDInvalid, code: response.CodeBadRequest, msg: "conversion_id invalid"},
	{target: service.ErrRequiredFieldMissing, code: response.CodeBadRequest, msg: "required field missing"},
	{target: service.ErrAmountInvalid, code: response.CodeBadRequest, msg: "amount invalid"},
	{target: service.ErrCurrencyInvalid, code: response.CodeBadRequest, msg: "currency invalid"},
	{target: service.ErrEventTimeInvalid, code: response.CodeBadRequest, msg: "event_time invalid"},
	{target: service.ErrFieldTooLong, code: response.CodeBadRequest, msg: "field value too long"},
	{target: service.ErrPartnerNotFound, code: response.CodeNotFound, msg: "partner not found"},
	{target: service.ErrPartnerInactive, code: response.CodeForbidden, msg: "partner inactive"},
	{target: service.ErrPlatformNotFound, code: response.CodeNotFound, msg: "platform not found"},
	{target: service.ErrTenantTokenInvalid, code: response.CodeUnauthorized, msg: "tenant token invalid"},
	{target: service.ErrTenantInactive, code: response.CodeForbidden, msg: "tenant inactive"},
	{target: service.ErrPostbackTimeout, code: response.CodeGatewayTimeout, msg: "postback processing timeout"},
	{target: service.ErrStoreUnavailable, code: response.CodeServiceUnavailable, msg: "store unavailable"},
}
