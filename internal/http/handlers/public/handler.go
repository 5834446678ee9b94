package public

import "github.com/postback-hub/internal/provider"

// Handler 公开接口处理器入口
// 说明：合作方回调与健康检查，不做登录鉴权。
type Handler struct {
	*provider.Container
}

// New 创建公开接口处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
