package response

import "strconv"

// AppError 接口错误：Code 同时是 HTTP 状态码，Message 是返回给调用方的固定文案
// Err 只进日志，不出现在响应里。
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	text := strconv.Itoa(e.Code) + " " + e.Message
	if e.Err == nil {
		return text
	}
	return text + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Status 响应使用的 HTTP 状态码
func (e *AppError) Status() int {
	if e == nil {
		return CodeInternal
	}
	return HTTPStatus(e.Code)
}

// ShouldLog 5xx 且带原始错误时需要记录
func (e *AppError) ShouldLog() bool {
	return e != nil && e.Err != nil && e.Status() >= 500
}

// WrapError 包装错误，文案为空时按状态码补齐
func WrapError(code int, message string, err error) *AppError {
	if message == "" {
		message = defaultMessage(code)
	}
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func defaultMessage(code int) string {
	switch HTTPStatus(code) {
	case CodeBadRequest:
		return "bad request"
	case CodeUnauthorized:
		return "unauthorized"
	case CodeForbidden:
		return "forbidden"
	case CodeNotFound:
		return "not found"
	case CodeRequestTooLarge:
		return "request body too large"
	case CodeTooManyRequests:
		return "too many requests"
	case CodeServiceUnavailable:
		return "service unavailable"
	case CodeGatewayTimeout:
		return "timeout"
	default:
		return "internal error"
	}
}
