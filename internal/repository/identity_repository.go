package repository

import (
	"context"
	"errors"

	"github.com/postback-hub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IdentityRepository 来源/平台数据访问接口
type IdentityRepository interface {
	CreateOrGetSource(ctx context.Context, partnerID uint, name string) (*models.Source, error)
	ListSources(ctx context.Context) ([]models.Source, error)
	GetPlatformByName(ctx context.Context, name string) (*models.Platform, error)
	ListPlatforms(ctx context.Context) ([]models.Platform, error)
	CreatePlatform(ctx context.Context, platform *models.Platform) error
}

// GormIdentityRepository GORM 实现
type GormIdentityRepository struct {
	db *gorm.DB
}

// NewIdentityRepository 创建来源/平台仓库
func NewIdentityRepository(db *gorm.DB) *GormIdentityRepository {
	return &GormIdentityRepository{db: db}
}

// CreateOrGetSource 原子插入（名称冲突时不做任何事），再读取胜出的那一行
// 并发调用方最终拿到同一条记录。
func (r *GormIdentityRepository) CreateOrGetSource(ctx context.Context, partnerID uint, name string) (*models.Source, error) {
	db := r.db.WithContext(ctx)
	row := models.Source{Name: name, PartnerID: partnerID}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}
	var source models.Source
	if err := db.Where("name = ?", name).First(&source).Error; err != nil {
		return nil, err
	}
	return &source, nil
}

// ListSources 获取全部来源（缓存预热）
func (r *GormIdentityRepository) ListSources(ctx context.Context) ([]models.Source, error) {
	var sources []models.Source
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&sources).Error; err != nil {
		return nil, err
	}
	return sources, nil
}

// GetPlatformByName 根据名称获取平台
func (r *GormIdentityRepository) GetPlatformByName(ctx context.Context, name string) (*models.Platform, error) {
	var platform models.Platform
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&platform).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &platform, nil
}

// ListPlatforms 获取全部平台（缓存预热）
func (r *GormIdentityRepository) ListPlatforms(ctx context.Context) ([]models.Platform, error) {
	var platforms []models.Platform
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&platforms).Error; err != nil {
		return nil, err
	}
	return platforms, nil
}

// CreatePlatform 创建平台（仅运维/种子使用）
func (r *GormIdentityRepository) CreatePlatform(ctx context.Context, platform *models.Platform) error {
	return r.db.WithContext(ctx).Create(platform).Error
}
