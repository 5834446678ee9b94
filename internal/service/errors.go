package service

import "errors"

// 回调参数校验
var (
	ErrPostbackParamsEmpty  = errors.New("postback parameters empty")
	ErrConversionIDRequired = errors.New("conversion_id required")
	ErrConversionIDInvalid  = errors.New("conversion_id invalid")
	ErrRequiredFieldMissing = errors.New("required field missing")
	ErrAmountInvalid        = errors.New("amount invalid")
	ErrCurrencyInvalid      = errors.New("currency invalid")
	ErrEventTimeInvalid     = errors.New("event_time invalid")
	ErrFieldTooLong         = errors.New("field value too long")
)

// 注册表/身份解析
var (
	ErrPartnerNotFound      = errors.New("partner not found")
	ErrPartnerInactive      = errors.New("partner inactive")
	ErrPartnerConfigInvalid = errors.New("partner config invalid")
	ErrPlatformNotFound     = errors.New("platform not found")
	ErrSourceResolveFailed  = errors.New("source resolve failed")
)

// 租户令牌与运维鉴权
var (
	ErrTenantTokenInvalid = errors.New("tenant token invalid")
	ErrTenantInactive     = errors.New("tenant inactive")
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrAdminKeyInvalid    = errors.New("admin key invalid")
)

// 存储/时限
var (
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrPostbackTimeout  = errors.New("postback processing timeout")
)
