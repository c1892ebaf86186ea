package public

import (
	"github.com/dealmint/internal/http/handlers/shared"
	"github.com/dealmint/internal/http/response"
	"github.com/dealmint/internal/ticket"

	"github.com/gin-gonic/gin"
)

// RedeemRequest 核销请求
type RedeemRequest struct {
	EncodedTicket string `json:"encoded_ticket" binding:"required"`
}

// Redeem 核销凭证
func (h *Handler) Redeem(c *gin.Context) {
	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, shared.KindMalformedTicket, nil)
		return
	}
	if _, err := h.RedemptionService.Redeem(c.Request.Context(), req.EncodedTicket); err != nil {
		shared.RespondMappedError(c, err, redemptionErrorRules, ticketLogFields(req.EncodedTicket)...)
		return
	}
	response.Success(c, gin.H{})
}

// ticketLogFields 仅输出可审计字段，不记录凭证原文
func ticketLogFields(encoded string) []interface{} {
	t, err := ticket.Decode(encoded)
	if err != nil {
		return nil
	}
	return []interface{}{
		"promotion_id", t.PromotionID,
		"claimant_id", t.ClaimantID,
		"nonce_fp", t.Fingerprint(),
	}
}
