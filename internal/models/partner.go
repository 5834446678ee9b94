package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ParameterMapping 标准字段 -> 按优先级排列的合作方字段名
type ParameterMapping map[string][]string

// Value 实现 driver.Valuer 接口
func (m ParameterMapping) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan 实现 sql.Scanner 接口
func (m *ParameterMapping) Scan(value interface{}) error {
	raw, err := scanBytes(value)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		*m = ParameterMapping{}
		return nil
	}
	return json.Unmarshal(raw, m)
}

// Aliases 返回标准字段的候选字段名，未配置时退回标准字段名本身
func (m ParameterMapping) Aliases(field string) []string {
	if aliases, ok := m[field]; ok && len(aliases) > 0 {
		return aliases
	}
	return []string{field}
}

// Clone 深拷贝，用于构建只读快照
func (m ParameterMapping) Clone() ParameterMapping {
	out := make(ParameterMapping, len(m))
	for field, aliases := range m {
		copied := make([]string, len(aliases))
		copy(copied, aliases)
		out[field] = copied
	}
	return out
}

// Partner 合作方（联盟网络）配置表
type Partner struct {
	ID                 uint             `gorm:"primarykey" json:"id"`                                         // 主键
	Code               string           `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`            // 合作方编码（路由默认段）
	Name               string           `gorm:"type:varchar(128);not null" json:"name"`                       // 名称
	EndpointPath       string           `gorm:"type:varchar(255);uniqueIndex;not null" json:"endpoint_path"`  // 回调路径（相对前缀，默认等于编码）
	ParameterMapping   ParameterMapping `gorm:"type:json;not null" json:"parameter_mapping"`                  // 参数映射
	RequiredFields     StringArray      `gorm:"type:json" json:"required_fields"`                             // 额外必填标准字段
	AckFormat          string           `gorm:"type:varchar(16);not null;default:json" json:"ack_format"`     // 确认格式 json/text
	IsActive           bool             `gorm:"not null;index" json:"is_active"`                              // 是否启用
	RateLimitPerMinute int              `gorm:"not null;default:0" json:"rate_limit_per_minute"`              // 每分钟限流（0 不限）
	RetentionDays      int              `gorm:"not null;default:0" json:"retention_days"`                     // 转化保留天数（0 永久）
	CreatedAt          time.Time        `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt          time.Time        `json:"updated_at"`                                                   // 更新时间
}

// TableName 指定表名
func (Partner) TableName() string {
	return "partners"
}

// BeforeSave 未配置自定义路径时以编码作为回调路径，保证路径唯一约束
func (p *Partner) BeforeSave(tx *gorm.DB) error {
	p.Code = strings.ToLower(strings.TrimSpace(p.Code))
	p.EndpointPath = NormalizeEndpointPath(p.EndpointPath)
	if p.EndpointPath == "" {
		p.EndpointPath = p.Code
	}
	return nil
}

// NormalizeEndpointPath 统一为无首尾斜杠的小写路径
func NormalizeEndpointPath(path string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(path), "/"))
}
