package metrics

import (
	"strings"

	"gorm.io/gorm"
	gormprom "gorm.io/plugin/prometheus"
)

// UseDBMetrics 注册连接池指标到默认注册器，由 /metrics 统一暴露
func UseDBMetrics(db *gorm.DB, dbName string) error {
	if db == nil {
		return nil
	}
	name := strings.TrimSpace(dbName)
	if name == "" {
		name = "postback"
	}
	return db.Use(gormprom.New(gormprom.Config{
		DBName:          name,
		RefreshInterval: 15,
		StartServer:     false,
	}))
}
