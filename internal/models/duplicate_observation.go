package models

import "time"

// DuplicateObservation 已计数的重复投递，observation_key 唯一
// 队列任务重试时凭此跳过计数，过期记录随保留期一起清理。
type DuplicateObservation struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	PartnerID      uint      `gorm:"not null;index:idx_duplicate_observations_partner_observed,priority:1" json:"partner_id"`
	ConversionID   string    `gorm:"type:varchar(128);not null" json:"conversion_id"`
	ObservationKey string    `gorm:"type:varchar(128);not null;uniqueIndex" json:"observation_key"`
	ObservedAt     time.Time `gorm:"not null;index:idx_duplicate_observations_partner_observed,priority:2" json:"observed_at"`
}

// TableName 指定表名
func (DuplicateObservation) TableName() string {
	return "conversion_duplicate_observations"
}
