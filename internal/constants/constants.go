package constants

// 标准字段常量（映射后的内部字段名）
const (
	FieldConversionID = "conversion_id"
	FieldOfferID      = "offer_id"
	FieldOfferName    = "offer_name"
	FieldSaleAmount   = "sale_amount"
	FieldPayout       = "payout"
	FieldCurrency     = "currency"
	FieldClickID      = "click_id"
	FieldMediaID      = "media_id"
	FieldAffSub1      = "aff_sub1"
	FieldAffSub2      = "aff_sub2"
	FieldAffSub3      = "aff_sub3"
	FieldAffSub4      = "aff_sub4"
	FieldAffSub5      = "aff_sub5"
	FieldSource       = "source"
	FieldPlatform     = "platform"
	FieldEventTime    = "event_time"
	FieldStatus       = "status"
)

// CanonicalFields 全部标准字段（按声明顺序）
var CanonicalFields = []string{
	FieldConversionID,
	FieldOfferID,
	FieldOfferName,
	FieldSaleAmount,
	FieldPayout,
	FieldCurrency,
	FieldClickID,
	FieldMediaID,
	FieldAffSub1,
	FieldAffSub2,
	FieldAffSub3,
	FieldAffSub4,
	FieldAffSub5,
	FieldSource,
	FieldPlatform,
	FieldEventTime,
	FieldStatus,
}

// IsCanonicalField 判断是否为标准字段
func IsCanonicalField(name string) bool {
	for _, field := range CanonicalFields {
		if field == name {
			return true
		}
	}
	return false
}

// 回调确认格式常量
const (
	AckFormatJSON = "json"
	AckFormatText = "text"
	AckTextOK     = "OK"
)

// 转化状态常量
const (
	ConversionStatusPending  = "pending"
	ConversionStatusApproved = "approved"
	ConversionStatusRejected = "rejected"
)

// 回调处理阶段（用于日志）
const (
	PostbackStageReceived     = "received"
	PostbackStageValidated    = "validated"
	PostbackStageResolved     = "resolved"
	PostbackStageNormalized   = "normalized"
	PostbackStagePersisted    = "persisted"
	PostbackStageDuplicate    = "duplicate"
	PostbackStageAcknowledged = "acknowledged"
	PostbackStageRejected     = "rejected"
	PostbackStageFailed       = "failed"
)

// 回调参数常量
const (
	PostbackTokenParam  = "token"
	PostbackTokenHeader = "X-Postback-Token"
	AdminKeyHeader      = "X-Admin-Key"
)

// 字段长度限制，与 conversions 表列宽一致
const (
	ConversionIDMaxLength = 128
	SourceNameMaxLength   = 128
	PlatformNameMaxLength = 128
	CanonicalValueMaxLen  = 512
	// 金额、币种与时间经解析校验后存储，原始串只做上限保护
	ParsedValueMaxLen = 64
)

var canonicalFieldMaxLength = map[string]int{
	FieldConversionID: ConversionIDMaxLength,
	FieldOfferID:      128,
	FieldOfferName:    512,
	FieldSaleAmount:   ParsedValueMaxLen,
	FieldPayout:       ParsedValueMaxLen,
	FieldCurrency:     ParsedValueMaxLen,
	FieldClickID:      255,
	FieldMediaID:      128,
	FieldAffSub1:      512,
	FieldAffSub2:      512,
	FieldAffSub3:      512,
	FieldAffSub4:      512,
	FieldAffSub5:      512,
	FieldSource:       SourceNameMaxLength,
	FieldPlatform:     PlatformNameMaxLength,
	FieldEventTime:    ParsedValueMaxLen,
	FieldStatus:       32,
}

// FieldMaxLength 标准字段允许的最大字节数
func FieldMaxLength(field string) int {
	if limit, ok := canonicalFieldMaxLength[field]; ok {
		return limit
	}
	return CanonicalValueMaxLen
}

// 队列常量
const (
	QueueDefault                  = "default"
	QueueCritical                 = "critical"
	TaskConversionEnrich          = "conversion:enrich"
	TaskConversionDuplicateObserv = "conversion:duplicate_observed"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "pb"
)

// 默认路由前缀
const (
	PostbackPathPrefixDefault = "/postback"
)
