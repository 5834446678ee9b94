package service

import (
	"context"
	"time"

	"github.com/postback-hub/internal/logger"
	"github.com/postback-hub/internal/metrics"
	"github.com/postback-hub/internal/repository"
)

// 单个合作方一轮清理的最大批次数，剩余部分留给下一轮
const retentionMaxBatches = 100

// RetentionService 按合作方 retention_days 清理过期转化
type RetentionService struct {
	registry    *PartnerRegistry
	conversions repository.ConversionRepository
	metrics     *metrics.PostbackMetrics
	batchSize   int
	now         func() time.Time
}

// NewRetentionService 创建保留期清理服务
func NewRetentionService(registry *PartnerRegistry, conversions repository.ConversionRepository, m *metrics.PostbackMetrics, batchSize int) *RetentionService {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &RetentionService{
		registry:    registry,
		conversions: conversions,
		metrics:     m,
		batchSize:   batchSize,
		now:         time.Now,
	}
}

// PurgeExpired 执行一轮清理，返回删除总数
// retention_days 为 0 的合作方永久保留。
func (s *RetentionService) PurgeExpired(ctx context.Context) (int64, error) {
	var total int64
	for _, partner := range s.registry.List() {
		if partner.RetentionDays <= 0 {
			continue
		}
		cutoff := s.now().UTC().AddDate(0, 0, -partner.RetentionDays)
		purged, err := s.purgeBatches(ctx, func(ctx context.Context) (int64, error) {
			return s.conversions.PurgeReceivedBefore(ctx, partner.ID, cutoff, s.batchSize)
		})
		total += purged
		s.metrics.AddRetentionPurged(partner.Code, purged)
		if err != nil {
			logger.Warnw("retention_purge_failed", "partner_code", partner.Code, "purged", purged, "error", err)
			return total, err
		}
		if purged > 0 {
			logger.Infow("retention_purged", "partner_code", partner.Code, "purged", purged, "cutoff", cutoff)
		}
		observations, err := s.purgeBatches(ctx, func(ctx context.Context) (int64, error) {
			return s.conversions.PurgeObservationsBefore(ctx, partner.ID, cutoff, s.batchSize)
		})
		if err != nil {
			logger.Warnw("retention_purge_observations_failed", "partner_code", partner.Code, "purged", observations, "error", err)
			return total, err
		}
	}
	return total, nil
}

func (s *RetentionService) purgeBatches(ctx context.Context, purge func(ctx context.Context) (int64, error)) (int64, error) {
	var purged int64
	for i := 0; i < retentionMaxBatches; i++ {
		if err := ctx.Err(); err != nil {
			return purged, err
		}
		affected, err := purge(ctx)
		if err != nil {
			return purged, err
		}
		purged += affected
		if affected < int64(s.batchSize) {
			break
		}
	}
	return purged, nil
}
