package models

import "time"

// Conversion 转化记录，(partner_id, conversion_id) 唯一
type Conversion struct {
	ID              uint       `gorm:"primarykey" json:"id"`                                                                  // 主键
	PartnerID       uint       `gorm:"not null;uniqueIndex:idx_conversions_partner_conversion,priority:1" json:"partner_id"` // 合作方ID
	TenantID        *uint      `gorm:"index" json:"tenant_id"`                                                                // 租户ID
	SourceID        *uint      `gorm:"index" json:"source_id"`                                                                // 来源ID（解析失败时为空，异步回填）
	PlatformID      *uint      `gorm:"index" json:"platform_id"`                                                              // 平台ID
	ConversionID    string     `gorm:"type:varchar(128);not null;uniqueIndex:idx_conversions_partner_conversion,priority:2" json:"conversion_id"`
	OfferID         string     `gorm:"type:varchar(128);index" json:"offer_id"`
	OfferName       string     `gorm:"type:varchar(512)" json:"offer_name"`
	SaleAmount      *Money     `gorm:"type:decimal(20,4)" json:"sale_amount"`
	Payout          *Money     `gorm:"type:decimal(20,4)" json:"payout"`
	Currency        string     `gorm:"type:varchar(3)" json:"currency"`
	ClickID         string     `gorm:"type:varchar(255);index" json:"click_id"`
	MediaID         string     `gorm:"type:varchar(128)" json:"media_id"`
	AffSub1         string     `gorm:"type:varchar(512)" json:"aff_sub1"`
	AffSub2         string     `gorm:"type:varchar(512)" json:"aff_sub2"`
	AffSub3         string     `gorm:"type:varchar(512)" json:"aff_sub3"`
	AffSub4         string     `gorm:"type:varchar(512)" json:"aff_sub4"`
	AffSub5         string     `gorm:"type:varchar(512)" json:"aff_sub5"`
	SourceName      string     `gorm:"type:varchar(128)" json:"source_name"`   // 回调上报的来源名称
	PlatformName    string     `gorm:"type:varchar(128)" json:"platform_name"` // 回调上报的平台名称
	EventTime       *time.Time `gorm:"index" json:"event_time"`                // 合作方上报的发生时间
	Status          string     `gorm:"type:varchar(32)" json:"status"`
	RawData         JSON       `gorm:"type:json;not null" json:"raw_data"`              // 原始参数（原样保存）
	IsDuplicate     bool       `gorm:"not null;default:false" json:"is_duplicate"`      // 是否收到过重复投递
	DuplicateCount  int        `gorm:"not null;default:0" json:"duplicate_count"`       // 重复投递次数
	LastDuplicateAt *time.Time `json:"last_duplicate_at"`                               // 最近一次重复投递时间
	ReceivedAt      time.Time  `gorm:"not null;index" json:"received_at"`               // 首次接收时间
}

// TableName 指定表名
func (Conversion) TableName() string {
	return "conversions"
}
