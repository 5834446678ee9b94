package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/postback-hub/internal/constants"
	"github.com/postback-hub/internal/logger"
	"github.com/postback-hub/internal/metrics"
	"github.com/postback-hub/internal/queue"
	"github.com/postback-hub/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const enqueueTimeout = time.Second

// PostbackService 回调接入主流程
// RECEIVED -> VALIDATED -> RESOLVED -> NORMALIZED -> PERSISTED|DUPLICATE，每个请求最多一次写入。
type PostbackService struct {
	registry    *PartnerRegistry
	identity    *IdentityResolver
	tenants     *TenantService
	conversions repository.ConversionRepository
	queueClient *queue.Client
	metrics     *metrics.PostbackMetrics
	dispatcher  *taskDispatcher
	timeout     time.Duration
	now         func() time.Time
}

// PostbackServiceOptions 回调服务依赖
type PostbackServiceOptions struct {
	Registry    *PartnerRegistry
	Identity    *IdentityResolver
	Tenants     *TenantService
	Conversions repository.ConversionRepository
	QueueClient *queue.Client
	Metrics     *metrics.PostbackMetrics
	Timeout     time.Duration
	// EnqueueConcurrency 后台投递的在途上限
	EnqueueConcurrency int
}

// NewPostbackService 创建回调服务
func NewPostbackService(opts PostbackServiceOptions) *PostbackService {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &PostbackService{
		registry:    opts.Registry,
		identity:    opts.Identity,
		tenants:     opts.Tenants,
		conversions: opts.Conversions,
		queueClient: opts.QueueClient,
		metrics:     opts.Metrics,
		dispatcher:  newTaskDispatcher(opts.EnqueueConcurrency, enqueueTimeout),
		timeout:     timeout,
		now:         time.Now,
	}
}

// PostbackInput 一次回调请求
type PostbackInput struct {
	RequestID    string
	EndpointPath string // 前缀之后的路径
	Params       ParamBag
	Token        string // 请求头中的租户令牌，为空时读取参数 token
}

// PostbackResult 回调处理结果
type PostbackResult struct {
	Partner      *PartnerEntry
	RecordID     uint
	ConversionID string
	Duplicate    bool
	SourceID     *uint
}

// Ingest 处理一次回调；返回错误时不会产生任何持久化副作用（来源自动创建除外）
func (s *PostbackService) Ingest(ctx context.Context, input PostbackInput) (result *PostbackResult, err error) {
	started := s.now()
	log := logger.SW("request_id", input.RequestID, "endpoint", input.EndpointPath)
	partnerCode := ""
	defer func() {
		s.metrics.ObservePostback(partnerCode, outcomeOf(result, err), s.now().Sub(started))
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	log.Debugw("postback_stage", "stage", constants.PostbackStageReceived, "param_count", len(input.Params))

	if len(input.Params) == 0 {
		logRejected(log, constants.PostbackStageValidated, ErrPostbackParamsEmpty)
		return nil, ErrPostbackParamsEmpty
	}
	log.Debugw("postback_stage", "stage", constants.PostbackStageValidated)

	partner, err := s.registry.ResolveEndpoint(input.EndpointPath)
	if err != nil {
		logRejected(log, constants.PostbackStageResolved, err)
		return nil, err
	}
	partnerCode = partner.Code
	log = log.With("partner_code", partner.Code)

	token := strings.TrimSpace(input.Token)
	if token == "" {
		token = input.Params.First(constants.PostbackTokenParam)
	}
	var tenantID *uint
	if s.tenants != nil && token != "" {
		tenant, err := s.tenants.ResolveToken(ctx, token)
		if err != nil {
			err = s.classifyStoreError(ctx, err)
			logRejected(log, constants.PostbackStageResolved, err)
			return nil, err
		}
		if tenant != nil {
			id := tenant.TenantID
			tenantID = &id
			log = log.With("tenant_code", tenant.Code)
		}
	}
	log.Debugw("postback_stage", "stage", constants.PostbackStageResolved)

	normalized, err := NormalizeConversion(partner, input.Params.Without(constants.PostbackTokenParam))
	if err != nil {
		logRejected(log, constants.PostbackStageNormalized, err)
		return nil, err
	}
	log = log.With("conversion_id", normalized.ConversionID)

	// 平台只读，先于来源解析，保证拒绝时没有任何写入
	var platformID *uint
	if name := normalized.Get(constants.FieldPlatform); name != "" {
		id, err := s.identity.ResolvePlatform(ctx, name)
		if err != nil {
			err = s.classifyStoreError(ctx, err)
			logRejected(log, constants.PostbackStageNormalized, err, "platform", name)
			return nil, err
		}
		platformID = &id
	}

	var sourceID *uint
	if name := normalized.Get(constants.FieldSource); name != "" {
		id, err := s.identity.ResolveSource(ctx, partner.ID, name)
		switch {
		case err == nil:
			sourceID = &id
		case errors.Is(err, ErrPostbackTimeout) || errors.Is(ctx.Err(), context.DeadlineExceeded):
			log.Warnw("postback_failed", "stage", constants.PostbackStageNormalized, "error", err)
			return nil, ErrPostbackTimeout
		default:
			// 来源解析失败不丢数据：source_id 留空入库，由后置任务重试回填
			s.metrics.IncIdentityFailure(partner.Code, metrics.IdentityKindSource)
			log.Warnw("identity_source_resolve_failed", "source", name, "error", err)
		}
	}
	log.Debugw("postback_stage", "stage", constants.PostbackStageNormalized)

	record := normalized.ToModel(partner.ID, input.Params.Raw(), s.now().UTC())
	record.TenantID = tenantID
	record.SourceID = sourceID
	record.PlatformID = platformID

	stored, err := s.conversions.InsertIfAbsent(ctx, record)
	if err != nil {
		err = s.classifyStoreError(ctx, err)
		log.Errorw("postback_failed", "stage", constants.PostbackStagePersisted, "error", err)
		return nil, err
	}

	result = &PostbackResult{
		Partner:      partner,
		ConversionID: normalized.ConversionID,
		Duplicate:    !stored,
		SourceID:     sourceID,
	}
	if stored {
		result.RecordID = record.ID
		log.Infow("postback_persisted", "stage", constants.PostbackStagePersisted, "record_id", record.ID)
		s.enqueueEnrich(log, partner, normalized, sourceID, input.RequestID)
	} else {
		log.Infow("postback_duplicate", "stage", constants.PostbackStageDuplicate)
		s.enqueueDuplicate(log, partner, normalized.ConversionID, input.RequestID)
	}
	return result, nil
}

func (s *PostbackService) enqueueEnrich(log *zap.SugaredLogger, partner *PartnerEntry, normalized *NormalizedConversion, sourceID *uint, requestID string) {
	payload := queue.ConversionEnrichPayload{
		PartnerID:    partner.ID,
		PartnerCode:  partner.Code,
		ConversionID: normalized.ConversionID,
		RequestID:    requestID,
	}
	if sourceID == nil {
		payload.SourceName = normalized.Get(constants.FieldSource)
	}
	s.dispatch(log, queue.TaskConversionEnrich, func(ctx context.Context) error {
		return s.queueClient.EnqueueConversionEnrich(ctx, payload)
	})
}

func (s *PostbackService) enqueueDuplicate(log *zap.SugaredLogger, partner *PartnerEntry, conversionID, requestID string) {
	payload := queue.DuplicateObservedPayload{
		PartnerID:     partner.ID,
		PartnerCode:   partner.Code,
		ConversionID:  conversionID,
		ObservationID: uuid.NewString(),
		ObservedAt:    s.now().UTC(),
		RequestID:     requestID,
	}
	s.dispatch(log, queue.TaskConversionDuplicateObserved, func(ctx context.Context) error {
		return s.queueClient.EnqueueDuplicateObserved(ctx, payload)
	})
}

// dispatch 后台投递，失败或满载只记录指标与日志，不影响已返回的应答
func (s *PostbackService) dispatch(log *zap.SugaredLogger, task string, enqueue func(ctx context.Context) error) {
	if !s.queueClient.Enabled() {
		return
	}
	accepted := s.dispatcher.dispatch(func(ctx context.Context) {
		if err := enqueue(ctx); err != nil {
			s.metrics.IncEnqueueFailure(task)
			log.Warnw("postback_enqueue_failed", "task", task, "error", err)
		}
	})
	if !accepted {
		s.metrics.IncEnqueueFailure(task)
		log.Warnw("postback_enqueue_dropped", "task", task, "reason", "dispatcher_busy_or_closed")
	}
}

// Close 停止后台投递并等待在途任务，ctx 到期时放弃等待
func (s *PostbackService) Close(ctx context.Context) error {
	if s == nil || s.dispatcher == nil {
		return nil
	}
	return s.dispatcher.drain(ctx)
}

// classifyStoreError 把超时与存储错误归一为哨兵错误，业务错误原样返回
func (s *PostbackService) classifyStoreError(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrPostbackTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ErrPostbackTimeout
	case isPostbackBusinessError(err):
		return err
	case errors.Is(err, ErrStoreUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

func isPostbackBusinessError(err error) bool {
	for _, target := range []error{
		ErrPartnerNotFound,
		ErrPartnerInactive,
		ErrPlatformNotFound,
		ErrTenantTokenInvalid,
		ErrTenantInactive,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func logRejected(log *zap.SugaredLogger, stage string, err error, kv ...interface{}) {
	fields := append([]interface{}{"stage", stage, "error", err}, kv...)
	if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrPostbackTimeout) {
		log.Warnw("postback_failed", fields...)
		return
	}
	log.Infow("postback_rejected", fields...)
}

func outcomeOf(result *PostbackResult, err error) string {
	switch {
	case err == nil && result != nil && result.Duplicate:
		return metrics.OutcomeDuplicate
	case err == nil:
		return metrics.OutcomePersisted
	case errors.Is(err, ErrPostbackTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(err, ErrStoreUnavailable):
		return metrics.OutcomeFailed
	default:
		return metrics.OutcomeRejected
	}
}
