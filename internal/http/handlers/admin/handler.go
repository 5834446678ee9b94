package admin

import "github.com/postback-hub/internal/provider"

// Handler 运维接口处理器入口
// 说明：该处理器仅用于 X-Admin-Key 保护的运维 API。
type Handler struct {
	*provider.Container
}

// New 创建运维处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
