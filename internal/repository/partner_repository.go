package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/postback-hub/internal/models"

	"gorm.io/gorm"
)

// PartnerRepository 合作方数据访问接口
type PartnerRepository interface {
	ListAll(ctx context.Context) ([]models.Partner, error)
	GetByCode(ctx context.Context, code string) (*models.Partner, error)
	Create(ctx context.Context, partner *models.Partner) error
	Update(ctx context.Context, partner *models.Partner) error
}

// GormPartnerRepository GORM 实现
type GormPartnerRepository struct {
	db *gorm.DB
}

// NewPartnerRepository 创建合作方仓库
func NewPartnerRepository(db *gorm.DB) *GormPartnerRepository {
	return &GormPartnerRepository{db: db}
}

// ListAll 获取全部合作方（含停用），用于构建注册表快照
func (r *GormPartnerRepository) ListAll(ctx context.Context) ([]models.Partner, error) {
	var partners []models.Partner
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&partners).Error; err != nil {
		return nil, err
	}
	return partners, nil
}

// GetByCode 根据编码获取合作方
func (r *GormPartnerRepository) GetByCode(ctx context.Context, code string) (*models.Partner, error) {
	var partner models.Partner
	code = strings.ToLower(strings.TrimSpace(code))
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&partner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &partner, nil
}

// Create 创建合作方
func (r *GormPartnerRepository) Create(ctx context.Context, partner *models.Partner) error {
	return r.db.WithContext(ctx).Create(partner).Error
}

// Update 更新合作方
func (r *GormPartnerRepository) Update(ctx context.Context, partner *models.Partner) error {
	return r.db.WithContext(ctx).Save(partner).Error
}
