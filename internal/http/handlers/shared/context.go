package shared

import (
	"strings"

	"github.com/dealmint/internal/constants"
	"github.com/dealmint/internal/http/response"

	"github.com/gin-gonic/gin"
)

// MerchantID 读取鉴权中间件写入的商户标识，缺失时直接返回 401。
func MerchantID(c *gin.Context) (string, bool) {
	value, exists := c.Get(constants.ContextKeyMerchantID)
	if !exists {
		RespondError(c, response.CodeUnauthorized, KindUnauthorized, nil)
		return "", false
	}
	merchantID, ok := value.(string)
	if !ok || strings.TrimSpace(merchantID) == "" {
		RespondError(c, response.CodeUnauthorized, KindUnauthorized, nil)
		return "", false
	}
	return merchantID, true
}
