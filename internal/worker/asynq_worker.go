package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/postback-hub/internal/logger"
	"github.com/postback-hub/internal/provider"
	"github.com/postback-hub/internal/queue"
	"github.com/postback-hub/internal/service"

	"github.com/hibiken/asynq"
)

const (
	taskResultOK      = "ok"
	taskResultSkipped = "skipped"
	taskResultRetry   = "retry"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskConversionEnrich, c.handleConversionEnrich)
	mux.HandleFunc(queue.TaskConversionDuplicateObserved, c.handleDuplicateObserved)
}

// handleConversionEnrich 新转化后置处理：回填来源并发出分析通知
func (c *Consumer) handleConversionEnrich(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_conversion_enrich_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ConversionEnrichPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_conversion_enrich_unmarshal_failed", "error", err)
		return err
	}
	if payload.PartnerID == 0 || strings.TrimSpace(payload.ConversionID) == "" {
		logger.Debugw("worker_conversion_enrich_skip_invalid_payload", "partner_id", payload.PartnerID, "conversion_id", payload.ConversionID)
		c.Metrics.IncTask(queue.TaskConversionEnrich, taskResultSkipped)
		return nil
	}
	log := logger.SW(
		"request_id", payload.RequestID,
		"partner_code", payload.PartnerCode,
		"conversion_id", payload.ConversionID,
	)

	if name := strings.TrimSpace(payload.SourceName); name != "" {
		err := c.backfillSource(ctx, payload, name)
		switch {
		case err == nil:
		case errors.Is(err, service.ErrFieldTooLong):
			// 名称本身非法，重试无意义
			log.Warnw("worker_conversion_enrich_source_invalid", "source", name, "error", err)
			c.Metrics.IncTask(queue.TaskConversionEnrich, taskResultSkipped)
			return nil
		default:
			log.Warnw("worker_conversion_enrich_backfill_failed", "source", name, "error", err)
			c.Metrics.IncTask(queue.TaskConversionEnrich, taskResultRetry)
			return err
		}
	}

	log.Infow("conversion_analytics_notified", "source_backfilled", payload.SourceName != "")
	c.Metrics.IncTask(queue.TaskConversionEnrich, taskResultOK)
	return nil
}

func (c *Consumer) backfillSource(ctx context.Context, payload queue.ConversionEnrichPayload, name string) error {
	record, err := c.ConversionRepo.GetByKey(ctx, payload.PartnerID, payload.ConversionID)
	if err != nil {
		return err
	}
	if record == nil || record.SourceID != nil {
		// 已被保留期清理或已回填
		return nil
	}
	sourceID, err := c.IdentityResolver.ResolveSource(ctx, payload.PartnerID, name)
	if err != nil {
		return err
	}
	updated, err := c.ConversionRepo.BackfillSource(ctx, payload.PartnerID, payload.ConversionID, sourceID)
	if err != nil {
		return err
	}
	logger.Infow("worker_conversion_source_backfilled",
		"partner_code", payload.PartnerCode,
		"conversion_id", payload.ConversionID,
		"source_id", sourceID,
		"updated", updated,
	)
	return nil
}

// handleDuplicateObserved 记录重复投递次数与时间
func (c *Consumer) handleDuplicateObserved(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_duplicate_observed_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.DuplicateObservedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_duplicate_observed_unmarshal_failed", "error", err)
		return err
	}
	if payload.PartnerID == 0 || strings.TrimSpace(payload.ConversionID) == "" {
		logger.Debugw("worker_duplicate_observed_skip_invalid_payload", "partner_id", payload.PartnerID, "conversion_id", payload.ConversionID)
		c.Metrics.IncTask(queue.TaskConversionDuplicateObserved, taskResultSkipped)
		return nil
	}
	// 旧任务没有 observation_id，退回到 asynq 任务 ID，二者在重试间保持不变
	observationKey := strings.TrimSpace(payload.ObservationID)
	if observationKey == "" {
		observationKey, _ = asynq.GetTaskID(ctx)
	}
	affected, err := c.ConversionRepo.MarkDuplicateObserved(ctx, payload.PartnerID, payload.ConversionID, observationKey, payload.ObservedAt)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			logger.Debugw("worker_duplicate_observed_canceled", "conversion_id", payload.ConversionID)
		default:
			logger.Warnw("worker_duplicate_observed_update_failed",
				"partner_code", payload.PartnerCode,
				"conversion_id", payload.ConversionID,
				"error", err,
			)
		}
		c.Metrics.IncTask(queue.TaskConversionDuplicateObserved, taskResultRetry)
		return err
	}
	if affected == 0 {
		logger.Debugw("worker_duplicate_observed_skip", "partner_code", payload.PartnerCode, "conversion_id", payload.ConversionID, "observation_key", observationKey)
		c.Metrics.IncTask(queue.TaskConversionDuplicateObserved, taskResultSkipped)
		return nil
	}
	c.Metrics.IncTask(queue.TaskConversionDuplicateObserved, taskResultOK)
	return nil
}
