package response

const (
	CodeOK                 = 0
	CodeBadRequest         = 400
	CodeUnauthorized       = 401
	CodeForbidden          = 403
	CodeNotFound           = 404
	CodeRequestTooLarge    = 413
	CodeTooManyRequests    = 429
	CodeInternal           = 500
	CodeServiceUnavailable = 503
	CodeGatewayTimeout     = 504
)

// HTTPStatus 业务错误码即 HTTP 状态码，非法值按 500 处理
func HTTPStatus(code int) int {
	if code >= 400 && code <= 599 {
		return code
	}
	return CodeInternal
}
