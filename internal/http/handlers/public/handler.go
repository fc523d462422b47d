package public

import "github.com/youche-next/internal/provider"

// Handler 买家侧接口处理器入口
// 说明：该处理器仅用于买家 API 与渠道回调。
type Handler struct {
	*provider.Container
}

// New 创建买家侧处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
