package repository

import "gorm.io/gorm"

// 报表单页上限，接口层之外的调用同样受限
const maxPageSize = 500

// applyPagination 应用分页参数；pageSize 不大于 0 时不分页
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}
