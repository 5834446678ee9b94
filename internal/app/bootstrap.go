package app

import (
	"context"
	"errors"

	"github.com/postback-hub/internal/config"
	"github.com/postback-hub/internal/logger"
	"github.com/postback-hub/internal/provider"
	"github.com/postback-hub/internal/router"
	"github.com/postback-hub/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, *provider.Container, error) {
	if cfg == nil {
		return nil, nil, errors.New("config is nil")
	}

	container := provider.NewContainer(cfg)

	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		httpService := NewHTTPService(addr, engine, HTTPTimeoutsFromConfig(cfg))
		services = append(services, httpService)
	}

	// 初始化 Worker 服务（队列关闭时 all 模式只启动 HTTP）
	if mode == ModeWorker || (mode == ModeAll && cfg.Queue.Enabled) {
		consumer := worker.NewConsumer(container)
		workerService, err := worker.NewService(cfg, consumer)
		if err != nil {
			closeContainer(cfg, container)
			return nil, nil, err
		}
		services = append(services, workerService)
	} else if mode == ModeAll {
		logger.Warnw("app_worker_skipped_queue_disabled")
	}

	// 如果没有服务被启动（例如模式错误或配置导致都没起），应该报错或至少打日志
	if len(services) == 0 {
		closeContainer(cfg, container)
		return nil, nil, errors.New("no services initialized (check mode and config)")
	}

	runner := NewRunner(services...)
	// 服务全部停止后再等待回调的后台投递，最后关闭队列与缓存连接
	runner.OnStop(container.Close)
	return runner, container, nil
}

func closeContainer(cfg *config.Config, container *provider.Container) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()
	_ = container.Close(ctx)
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, _, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
