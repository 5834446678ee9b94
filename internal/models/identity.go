package models

import "time"

// Source 流量来源，首次出现时自动创建
type Source struct {
	ID        uint      `gorm:"primarykey" json:"id"`                              // 主键
	Name      string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"name"` // 来源名称（全局唯一）
	PartnerID uint      `gorm:"index;not null" json:"partner_id"`                  // 首次上报的合作方
	CreatedAt time.Time `json:"created_at"`                                        // 创建时间
}

// TableName 指定表名
func (Source) TableName() string {
	return "sources"
}

// Platform 投放平台，仅由运维预置
type Platform struct {
	ID        uint      `gorm:"primarykey" json:"id"`                              // 主键
	Name      string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"name"` // 平台名称
	PartnerID *uint     `gorm:"index" json:"partner_id"`                           // 所属合作方（可选）
	IsActive  bool      `gorm:"not null" json:"is_active"`                         // 是否启用
	CreatedAt time.Time `json:"created_at"`                                        // 创建时间
}

// TableName 指定表名
func (Platform) TableName() string {
	return "platforms"
}

// Tenant 租户（可选层）
type Tenant struct {
	ID           uint      `gorm:"primarykey" json:"id"`                             // 主键
	Code         string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"` // 租户编码
	Name         string    `gorm:"type:varchar(128);not null" json:"name"`           // 名称
	TokenVersion uint64    `gorm:"not null;default:1" json:"token_version"`          // 令牌版本（递增即吊销旧令牌）
	IsActive     bool      `gorm:"not null" json:"is_active"`                        // 是否启用
	CreatedAt    time.Time `json:"created_at"`                                       // 创建时间
	UpdatedAt    time.Time `json:"updated_at"`                                       // 更新时间
}

// TableName 指定表名
func (Tenant) TableName() string {
	return "tenants"
}
