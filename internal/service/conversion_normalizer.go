package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/postback-hub/internal/constants"
	"github.com/postback-hub/internal/models"
)

// ParamBag 原始回调参数（查询串与请求体合并后）
type ParamBag map[string][]string

// First 返回键的第一个非空值（已去除首尾空白）
func (b ParamBag) First(key string) string {
	for _, value := range b[key] {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// Without 返回去掉指定键后的副本
func (b ParamBag) Without(keys ...string) ParamBag {
	out := make(ParamBag, len(b))
	for key, values := range b {
		out[key] = values
	}
	for _, key := range keys {
		delete(out, key)
	}
	return out
}

// Raw 原样转换为可存储的 JSON：单值为字符串，重复键为字符串数组
func (b ParamBag) Raw() models.JSON {
	raw := make(models.JSON, len(b))
	for key, values := range b {
		switch len(values) {
		case 0:
			raw[key] = ""
		case 1:
			raw[key] = values[0]
		default:
			copied := make([]string, len(values))
			copy(copied, values)
			raw[key] = copied
		}
	}
	return raw
}

// NormalizedConversion 映射并校验后的标准字段
type NormalizedConversion struct {
	Fields       map[string]string
	ConversionID string
	SaleAmount   *models.Money
	Payout       *models.Money
	Currency     string
	EventTime    *time.Time
	Status       string
}

// Get 获取标准字段值
func (n *NormalizedConversion) Get(field string) string {
	if n == nil {
		return ""
	}
	return n.Fields[field]
}

var eventTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// NormalizeConversion 按合作方映射把参数转换为标准字段并逐项校验
// 每个标准字段取候选字段名中第一个非空值，校验失败立即返回。
func NormalizeConversion(partner *PartnerEntry, bag ParamBag) (*NormalizedConversion, error) {
	if partner == nil {
		return nil, ErrPartnerNotFound
	}
	if len(bag) == 0 {
		return nil, ErrPostbackParamsEmpty
	}

	fields := make(map[string]string, len(constants.CanonicalFields))
	for _, field := range constants.CanonicalFields {
		value := firstAliasValue(bag, partner.Mapping.Aliases(field))
		if value == "" {
			continue
		}
		fields[field] = value
	}

	out := &NormalizedConversion{Fields: fields}

	conversionID := fields[constants.FieldConversionID]
	if conversionID == "" {
		return nil, ErrConversionIDRequired
	}
	if len(conversionID) > constants.ConversionIDMaxLength || hasControlChars(conversionID) {
		return nil, ErrConversionIDInvalid
	}
	out.ConversionID = conversionID

	for _, field := range partner.RequiredFields {
		if fields[field] == "" {
			return nil, fmt.Errorf("%w: %s", ErrRequiredFieldMissing, field)
		}
	}
	// 按声明顺序检查，超长值在入库前拒绝
	for _, field := range constants.CanonicalFields {
		if len(fields[field]) > constants.FieldMaxLength(field) {
			return nil, fmt.Errorf("%w: %s", ErrFieldTooLong, field)
		}
	}

	var err error
	if out.SaleAmount, err = parseAmountField(fields, constants.FieldSaleAmount); err != nil {
		return nil, err
	}
	if out.Payout, err = parseAmountField(fields, constants.FieldPayout); err != nil {
		return nil, err
	}

	if currency := fields[constants.FieldCurrency]; currency != "" {
		normalized, ok := normalizeCurrency(currency)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrCurrencyInvalid, currency)
		}
		out.Currency = normalized
		fields[constants.FieldCurrency] = normalized
	}

	if raw := fields[constants.FieldEventTime]; raw != "" {
		eventTime, ok := parseEventTime(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrEventTimeInvalid, raw)
		}
		out.EventTime = &eventTime
	}

	if status := fields[constants.FieldStatus]; status != "" {
		out.Status = strings.ToLower(status)
		fields[constants.FieldStatus] = out.Status
	}
	return out, nil
}

// ToModel 组装待持久化的转化记录
func (n *NormalizedConversion) ToModel(partnerID uint, raw models.JSON, receivedAt time.Time) *models.Conversion {
	return &models.Conversion{
		PartnerID:    partnerID,
		ConversionID: n.ConversionID,
		OfferID:      n.Get(constants.FieldOfferID),
		OfferName:    n.Get(constants.FieldOfferName),
		SaleAmount:   n.SaleAmount,
		Payout:       n.Payout,
		Currency:     n.Currency,
		ClickID:      n.Get(constants.FieldClickID),
		MediaID:      n.Get(constants.FieldMediaID),
		AffSub1:      n.Get(constants.FieldAffSub1),
		AffSub2:      n.Get(constants.FieldAffSub2),
		AffSub3:      n.Get(constants.FieldAffSub3),
		AffSub4:      n.Get(constants.FieldAffSub4),
		AffSub5:      n.Get(constants.FieldAffSub5),
		SourceName:   n.Get(constants.FieldSource),
		PlatformName: n.Get(constants.FieldPlatform),
		EventTime:    n.EventTime,
		Status:       n.Status,
		RawData:      raw,
		ReceivedAt:   receivedAt,
	}
}

func firstAliasValue(bag ParamBag, aliases []string) string {
	for _, alias := range aliases {
		if value := bag.First(alias); value != "" {
			return value
		}
	}
	return ""
}

func parseAmountField(fields map[string]string, field string) (*models.Money, error) {
	raw := fields[field]
	if raw == "" {
		return nil, nil
	}
	amount, err := models.ParseMoney(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAmountInvalid, field)
	}
	return &amount, nil
}

func normalizeCurrency(raw string) (string, bool) {
	if len(raw) != 3 {
		return "", false
	}
	for _, r := range raw {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return "", false
		}
	}
	return strings.ToUpper(raw), true
}

func parseEventTime(raw string) (time.Time, bool) {
	if isAllDigits(raw) {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		// 13 位按毫秒处理
		if value > 1e12 {
			return time.UnixMilli(value).UTC(), true
		}
		return time.Unix(value, 0).UTC(), true
	}
	for _, layout := range eventTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func hasControlChars(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}
