package public

import (
	"strings"

	"github.com/dealmint/internal/http/handlers/shared"
	"github.com/dealmint/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ClaimRequest 领取请求
type ClaimRequest struct {
	PromotionID string `json:"promotion_id" binding:"required"`
	ClaimantID  string `json:"claimant_id" binding:"required"`
}

// CreateClaim 领取优惠券并返回核销凭证
func (h *Handler) CreateClaim(c *gin.Context) {
	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, shared.KindInvalidRequest, nil)
		return
	}
	result, err := h.ClaimService.Claim(c.Request.Context(), req.PromotionID, req.ClaimantID)
	if err != nil {
		shared.RespondMappedError(c, err, claimErrorRules,
			"promotion_id", req.PromotionID,
			"claimant_id", req.ClaimantID,
		)
		return
	}
	response.Success(c, result)
}

// ReissueTicket 为已领取的优惠券补发新凭证
func (h *Handler) ReissueTicket(c *gin.Context) {
	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, shared.KindInvalidRequest, nil)
		return
	}
	result, err := h.ClaimService.Reissue(c.Request.Context(), req.PromotionID, req.ClaimantID)
	if err != nil {
		shared.RespondMappedError(c, err, reissueErrorRules,
			"promotion_id", req.PromotionID,
			"claimant_id", req.ClaimantID,
		)
		return
	}
	response.Success(c, result)
}

// ListClaims 查询领取人的领取记录
func (h *Handler) ListClaims(c *gin.Context) {
	claimantID := strings.TrimSpace(c.Query("claimant_id"))
	if claimantID == "" {
		shared.RespondError(c, response.CodeBadRequest, shared.KindInvalidRequest, nil)
		return
	}
	page, pageSize := shared.ParsePagination(c)
	claims, total, err := h.ClaimService.ListClaims(c.Request.Context(), claimantID, page, pageSize)
	if err != nil {
		shared.RespondMappedError(c, err, claimErrorRules, "claimant_id", claimantID)
		return
	}
	response.SuccessWithPage(c, claims, shared.BuildPagination(page, pageSize, total))
}
