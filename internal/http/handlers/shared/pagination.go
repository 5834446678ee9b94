package shared

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// 报表接口分页默认值与上限
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PaginationFromQuery 读取 page 与 page_size 查询参数，非法值按默认处理
func PaginationFromQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(strings.TrimSpace(c.Query("page")))
	pageSize, _ := strconv.Atoi(strings.TrimSpace(c.Query("page_size")))
	return NormalizePagination(page, pageSize)
}

// NormalizePagination 归一化分页参数
func NormalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize <= 0:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}
	return page, pageSize
}
