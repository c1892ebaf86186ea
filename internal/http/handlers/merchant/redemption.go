package merchant

import (
	"github.com/dealmint/internal/http/handlers/shared"
	"github.com/dealmint/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ListRedemptions 查询活动核销台账
func (h *Handler) ListRedemptions(c *gin.Context) {
	merchantID, ok := shared.MerchantID(c)
	if !ok {
		return
	}
	promotionID := c.Param("id")
	page, pageSize := shared.ParsePagination(c)
	items, total, err := h.RedemptionService.ListRedemptions(c.Request.Context(), merchantID, promotionID, page, pageSize)
	if err != nil {
		shared.RespondMappedError(c, err, ledgerErrorRules, "merchant_id", merchantID, "promotion_id", promotionID)
		return
	}
	response.SuccessWithPage(c, items, shared.BuildPagination(page, pageSize, total))
}
