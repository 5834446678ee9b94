package provider

import (
	"context"
	"time"

	"github.com/postback-hub/internal/cache"
	"github.com/postback-hub/internal/config"
	"github.com/postback-hub/internal/logger"
	"github.com/postback-hub/internal/metrics"
	"github.com/postback-hub/internal/models"
	"github.com/postback-hub/internal/queue"
	"github.com/postback-hub/internal/repository"
	"github.com/postback-hub/internal/service"
)

const warmupTimeout = 10 * time.Second

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Metrics     *metrics.PostbackMetrics

	// Repositories
	PartnerRepo    repository.PartnerRepository
	TenantRepo     repository.TenantRepository
	IdentityRepo   repository.IdentityRepository
	ConversionRepo repository.ConversionRepository

	// Services
	PartnerRegistry  *service.PartnerRegistry
	IdentityResolver *service.IdentityResolver
	TenantService    *service.TenantService
	AdminAuth        *service.AdminAuth
	PostbackService  *service.PostbackService
	ReportService    *service.ReportService
	RetentionService *service.RetentionService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端，未启用时为空操作客户端
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient, _ = queue.NewClient(nil)
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}
	if cfg.Metrics.Enabled {
		c.Metrics = metrics.Postback()
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	// 3. 加载注册表与身份缓存
	c.warmup()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.PartnerRepo = repository.NewPartnerRepository(db)
	c.TenantRepo = repository.NewTenantRepository(db)
	c.IdentityRepo = repository.NewIdentityRepository(db)
	c.ConversionRepo = repository.NewConversionRepository(db)
}

func (c *Container) initServices() {
	c.PartnerRegistry = service.NewPartnerRegistry(c.PartnerRepo)
	c.IdentityResolver = service.NewIdentityResolver(c.IdentityRepo)
	c.TenantService = service.NewTenantService(c.Config.TenantAuth, c.TenantRepo)
	c.AdminAuth = service.NewAdminAuth(c.Config.Admin.KeyHash)
	c.PostbackService = service.NewPostbackService(service.PostbackServiceOptions{
		Registry:    c.PartnerRegistry,
		Identity:    c.IdentityResolver,
		Tenants:     c.TenantService,
		Conversions: c.ConversionRepo,
		QueueClient: c.QueueClient,
		Metrics:     c.Metrics,
		Timeout:     c.Config.Postback.Timeout(),

		EnqueueConcurrency: c.Config.Postback.EnqueueConcurrency,
	})
	c.ReportService = service.NewReportService(c.PartnerRegistry, c.TenantRepo, c.ConversionRepo)
	c.RetentionService = service.NewRetentionService(c.PartnerRegistry, c.ConversionRepo, c.Metrics, c.Config.Retention.BatchSize)
}

func (c *Container) warmup() {
	ctx, cancel := context.WithTimeout(context.Background(), warmupTimeout)
	defer cancel()
	if err := c.PartnerRegistry.Reload(ctx); err != nil {
		logger.Errorw("provider_load_partner_registry_failed", "error", err)
		panic(err)
	}
	if err := c.IdentityResolver.Warm(ctx); err != nil {
		// 身份缓存可按需回源，预热失败不阻塞启动
		logger.Warnw("provider_warm_identity_cache_failed", "error", err)
	}
}

// Close 等待后台投递结束，再释放队列客户端与 Redis 连接
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var drainErr error
	if c.PostbackService != nil {
		if drainErr = c.PostbackService.Close(ctx); drainErr != nil {
			logger.Warnw("provider_drain_postback_tasks_failed", "error", drainErr)
		}
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
	return drainErr
}
