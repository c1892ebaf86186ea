package public

import "github.com/dealmint/internal/provider"

// Handler 公开接口处理器入口
// 说明：领取、核销与活动浏览接口，无需商户身份。
type Handler struct {
	*provider.Container
}

// New 创建公开接口处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
