package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/postback-hub/internal/config"
)

const minWriteTimeout = 15 * time.Second

// HTTPTimeouts 服务端连接时限
type HTTPTimeouts struct {
	ReadHeader time.Duration
	Read       time.Duration
	Write      time.Duration
	Idle       time.Duration
}

// HTTPTimeoutsFromConfig 由回调处理时限推导连接时限
// 读取整个请求不超过请求头时限加一次回调时限，写出应答至少留 15 秒给运维报表。
func HTTPTimeoutsFromConfig(cfg *config.Config) HTTPTimeouts {
	readHeader := 5 * time.Second
	idle := 60 * time.Second
	postback := 3 * time.Second
	if cfg != nil {
		if cfg.Server.ReadHeaderTimeoutSeconds > 0 {
			readHeader = time.Duration(cfg.Server.ReadHeaderTimeoutSeconds) * time.Second
		}
		if cfg.Server.IdleTimeoutSeconds > 0 {
			idle = time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second
		}
		postback = cfg.Postback.Timeout()
	}
	write := 2 * postback
	if write < minWriteTimeout {
		write = minWriteTimeout
	}
	return HTTPTimeouts{
		ReadHeader: readHeader,
		Read:       readHeader + postback,
		Write:      write,
		Idle:       idle,
	}
}

// HTTPService HTTP 接入服务
type HTTPService struct {
	name   string
	server *http.Server
}

// NewHTTPService 创建 HTTP 服务
func NewHTTPService(addr string, handler http.Handler, timeouts HTTPTimeouts) *HTTPService {
	return &HTTPService{
		name: "http",
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
			ReadTimeout:       timeouts.Read,
			WriteTimeout:      timeouts.Write,
			IdleTimeout:       timeouts.Idle,
		},
	}
}

// Name 服务名称
func (s *HTTPService) Name() string {
	if s == nil || s.name == "" {
		return "http"
	}
	return s.name
}

// Start 监听并阻塞，正常关闭时返回 nil
func (s *HTTPService) Start(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("http server not initialized")
	}
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 停止接收新连接，等待在途请求写完应答
func (s *HTTPService) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
