package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/postback-hub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversionRepository 转化记录数据访问接口
type ConversionRepository interface {
	InsertIfAbsent(ctx context.Context, conversion *models.Conversion) (bool, error)
	GetByKey(ctx context.Context, partnerID uint, conversionID string) (*models.Conversion, error)
	MarkDuplicateObserved(ctx context.Context, partnerID uint, conversionID, observationKey string, at time.Time) (int64, error)
	BackfillSource(ctx context.Context, partnerID uint, conversionID string, sourceID uint) (bool, error)
	List(ctx context.Context, filter ConversionListFilter) ([]models.Conversion, int64, error)
	PurgeReceivedBefore(ctx context.Context, partnerID uint, before time.Time, limit int) (int64, error)
	PurgeObservationsBefore(ctx context.Context, partnerID uint, before time.Time, limit int) (int64, error)
}

var errDuplicateTargetMissing = errors.New("duplicate target missing")

// GormConversionRepository GORM 实现
type GormConversionRepository struct {
	db *gorm.DB
}

// NewConversionRepository 创建转化记录仓库
func NewConversionRepository(db *gorm.DB) *GormConversionRepository {
	return &GormConversionRepository{db: db}
}

// InsertIfAbsent 单条语句原子插入，(partner_id, conversion_id) 冲突时不写入
// 返回 true 表示新插入，false 表示已存在（重复投递）。
func (r *GormConversionRepository) InsertIfAbsent(ctx context.Context, conversion *models.Conversion) (bool, error) {
	if conversion == nil {
		return false, errors.New("missing conversion")
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "partner_id"}, {Name: "conversion_id"}},
		DoNothing: true,
	}).Create(conversion)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetByKey 根据幂等键获取转化
func (r *GormConversionRepository) GetByKey(ctx context.Context, partnerID uint, conversionID string) (*models.Conversion, error) {
	var conversion models.Conversion
	err := r.db.WithContext(ctx).
		Where("partner_id = ? AND conversion_id = ?", partnerID, conversionID).
		First(&conversion).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conversion, nil
}

// MarkDuplicateObserved 记录一次重复投递，只更新重复观测字段
// 同一 observationKey 只计数一次；返回 0 表示已计数过或转化不存在。
// observationKey 为空时直接累加。
func (r *GormConversionRepository) MarkDuplicateObserved(ctx context.Context, partnerID uint, conversionID, observationKey string, at time.Time) (int64, error) {
	observationKey = strings.TrimSpace(observationKey)
	if observationKey == "" {
		return incrementDuplicate(r.db.WithContext(ctx), partnerID, conversionID, at)
	}
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		observation := &models.DuplicateObservation{
			PartnerID:      partnerID,
			ConversionID:   conversionID,
			ObservationKey: observationKey,
			ObservedAt:     at,
		}
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "observation_key"}},
			DoNothing: true,
		}).Create(observation)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		n, err := incrementDuplicate(tx, partnerID, conversionID, at)
		if err != nil {
			return err
		}
		if n == 0 {
			// 回滚观测记录，转化补写后仍可计数
			return errDuplicateTargetMissing
		}
		affected = n
		return nil
	})
	if errors.Is(err, errDuplicateTargetMissing) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func incrementDuplicate(db *gorm.DB, partnerID uint, conversionID string, at time.Time) (int64, error) {
	result := db.Model(&models.Conversion{}).
		Where("partner_id = ? AND conversion_id = ?", partnerID, conversionID).
		UpdateColumns(map[string]interface{}{
			"is_duplicate":      true,
			"duplicate_count":   gorm.Expr("duplicate_count + ?", 1),
			"last_duplicate_at": at,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// BackfillSource 仅在 source_id 为空时回填来源
func (r *GormConversionRepository) BackfillSource(ctx context.Context, partnerID uint, conversionID string, sourceID uint) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Conversion{}).
		Where("partner_id = ? AND conversion_id = ? AND source_id IS NULL", partnerID, conversionID).
		UpdateColumn("source_id", sourceID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// List 转化列表（只读报表查询）
func (r *GormConversionRepository) List(ctx context.Context, filter ConversionListFilter) ([]models.Conversion, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Conversion{})

	if filter.PartnerID != 0 {
		query = query.Where("partner_id = ?", filter.PartnerID)
	}
	if filter.TenantID != 0 {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if conversionID := strings.TrimSpace(filter.ConversionID); conversionID != "" {
		query = query.Where("conversion_id = ?", conversionID)
	}
	if filter.ReceivedFrom != nil {
		query = query.Where("received_at >= ?", *filter.ReceivedFrom)
	}
	if filter.ReceivedTo != nil {
		query = query.Where("received_at < ?", *filter.ReceivedTo)
	}
	if filter.DuplicateOnly {
		query = query.Where("is_duplicate = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var conversions []models.Conversion
	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("received_at DESC, id DESC").Find(&conversions).Error; err != nil {
		return nil, 0, err
	}
	return conversions, total, nil
}

// PurgeReceivedBefore 按批删除指定合作方早于 before 的转化
func (r *GormConversionRepository) PurgeReceivedBefore(ctx context.Context, partnerID uint, before time.Time, limit int) (int64, error) {
	if limit <= 0 {
		return 0, nil
	}
	db := r.db.WithContext(ctx)
	batch := db.Model(&models.Conversion{}).
		Select("id").
		Where("partner_id = ? AND received_at < ?", partnerID, before).
		Order("id ASC").
		Limit(limit)
	result := db.Where("id IN (?)", batch).Delete(&models.Conversion{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// PurgeObservationsBefore 按批删除指定合作方早于 before 的重复观测记录
func (r *GormConversionRepository) PurgeObservationsBefore(ctx context.Context, partnerID uint, before time.Time, limit int) (int64, error) {
	if limit <= 0 {
		return 0, nil
	}
	db := r.db.WithContext(ctx)
	batch := db.Model(&models.DuplicateObservation{}).
		Select("id").
		Where("partner_id = ? AND observed_at < ?", partnerID, before).
		Order("id ASC").
		Limit(limit)
	result := db.Where("id IN (?)", batch).Delete(&models.DuplicateObservation{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
