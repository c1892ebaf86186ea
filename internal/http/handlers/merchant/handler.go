package merchant

import "github.com/dealmint/internal/provider"

// Handler 商户接口处理器，需商户 JWT
type Handler struct {
	*provider.Container
}

// New 创建商户接口处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
