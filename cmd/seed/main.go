package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/postback-hub/internal/config"
	"github.com/postback-hub/internal/logger"
	"github.com/postback-hub/internal/models"
	"github.com/postback-hub/internal/repository"
	"github.com/postback-hub/internal/service"
)

func main() {
	var (
		platformList string
		tenantList   string
		adminKey     string
	)
	flag.StringVar(&platformList, "platforms", "web,ios,android", "预置平台名称，逗号分隔")
	flag.StringVar(&tenantList, "tenants", "", "预置租户编码，逗号分隔")
	flag.StringVar(&adminKey, "admin-key", "", "生成 admin.key_hash（不写库）")
	flag.Parse()

	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 内置合作方
	if err := models.InitDefaultPartners(models.DB); err != nil {
		stdLog.Fatalf("Failed to seed partners: %v", err)
	}

	ctx := context.Background()
	identityRepo := repository.NewIdentityRepository(models.DB)
	tenantRepo := repository.NewTenantRepository(models.DB)

	// 平台
	for _, name := range splitList(platformList) {
		existing, err := identityRepo.GetPlatformByName(ctx, name)
		if err != nil {
			stdLog.Printf("Failed to query platform %s: %v", name, err)
			continue
		}
		if existing != nil {
			stdLog.Printf("Platform already exists: %s", name)
			continue
		}
		if err := identityRepo.CreatePlatform(ctx, &models.Platform{Name: name, IsActive: true}); err != nil {
			stdLog.Printf("Failed to create platform %s: %v", name, err)
		} else {
			stdLog.Printf("Created platform: %s", name)
		}
	}

	// 租户
	for _, code := range splitList(tenantList) {
		code = strings.ToLower(code)
		existing, err := tenantRepo.GetByCode(ctx, code)
		if err != nil {
			stdLog.Printf("Failed to query tenant %s: %v", code, err)
			continue
		}
		if existing != nil {
			stdLog.Printf("Tenant already exists: %s", code)
			continue
		}
		tenant := &models.Tenant{Code: code, Name: code, TokenVersion: 1, IsActive: true}
		if err := tenantRepo.Create(ctx, tenant); err != nil {
			stdLog.Printf("Failed to create tenant %s: %v", code, err)
		} else {
			stdLog.Printf("Created tenant: %s", code)
		}
	}

	if strings.TrimSpace(adminKey) != "" {
		hash, err := service.HashAdminKey(adminKey)
		if err != nil {
			stdLog.Fatalf("Failed to hash admin key: %v", err)
		}
		fmt.Printf("admin.key_hash: %q\n", hash)
	}

	stdLog.Printf("Seed completed")
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
