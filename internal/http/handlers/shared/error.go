package shared

import (
	"errors"

	"github.com/dealmint/internal/http/response"
	"github.com/dealmint/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 错误类型名称，作为响应 msg 返回
const (
	KindInvalidRequest          = "InvalidRequest"
	KindUnauthorized            = "Unauthorized"
	KindNotFound                = "NotFound"
	KindInactive                = "Inactive"
	KindSoldOut                 = "SoldOut"
	KindAlreadyClaimed          = "AlreadyClaimed"
	KindClaimNotFound           = "ClaimNotFound"
	KindMalformedTicket         = "MalformedTicket"
	KindTicketExpired           = "TicketExpired"
	KindUnknownTicket           = "UnknownTicket"
	KindAlreadyRedeemed         = "AlreadyRedeemed"
	KindOwnershipMismatch       = "OwnershipMismatch"
	KindVerificationUnavailable = "VerificationUnavailable"
	KindIssuanceUnavailable     = "IssuanceUnavailable"
	KindInvalidPromotion        = "InvalidPromotion"
	KindInternal                = "InternalError"
)

// MappedError 定义业务错误到接口错误响应的映射关系。
type MappedError struct {
	Target error
	Code   int
	Kind   string
}

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context, kv ...interface{}) *zap.SugaredLogger {
	if c == nil || c.Request == nil {
		return logger.SW(kv...)
	}
	return logger.C(c.Request.Context(), kv...)
}

// RespondError 返回错误响应；有原始错误时记录日志，kv 为附加日志字段。
func RespondError(c *gin.Context, code int, kind string, err error, kv ...interface{}) {
	appErr := response.WrapError(code, kind, err)
	if err != nil {
		fields := append([]interface{}{"code", appErr.Code, "kind", appErr.Message, "error", err}, kv...)
		if code >= response.CodeInternal {
			RequestLog(c).Errorw("handler_error", fields...)
		} else {
			RequestLog(c).Warnw("handler_error", fields...)
		}
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// RespondMappedError 按规则顺序匹配错误，未命中时使用兜底响应。
func RespondMappedError(c *gin.Context, err error, rules []MappedError, kv ...interface{}) {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			RespondError(c, rule.Code, rule.Kind, nil)
			return
		}
	}
	RespondError(c, response.CodeInternal, KindInternal, err, kv...)
}

// ConcatMappedErrors 合并多组映射规则。
func ConcatMappedErrors(groups ...[]MappedError) []MappedError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]MappedError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}
