package repository

import "time"

// ConversionListFilter 查询转化列表的过滤条件
type ConversionListFilter struct {
	Page          int
	PageSize      int
	PartnerID     uint
	TenantID      uint
	ConversionID  string
	ReceivedFrom  *time.Time
	ReceivedTo    *time.Time
	DuplicateOnly bool
}
