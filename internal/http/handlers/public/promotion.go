package public

import (
	"github.com/dealmint/internal/http/handlers/shared"
	"github.com/dealmint/internal/http/response"
	"github.com/dealmint/internal/service"

	"github.com/gin-gonic/gin"
)

// ListPromotions 分页查询已发行的活动
func (h *Handler) ListPromotions(c *gin.Context) {
	page, pageSize := shared.ParsePagination(c)
	items, total, err := h.PromotionService.List(c.Request.Context(), service.PromotionListInput{
		Page:     page,
		PageSize: pageSize,
		Tag:      c.Query("tag"),
		Search:   c.Query("search"),
	})
	if err != nil {
		shared.RespondError(c, response.CodeInternal, shared.KindInternal, err)
		return
	}
	response.SuccessWithPage(c, items, shared.BuildPagination(page, pageSize, total))
}

// GetPromotion 获取活动详情
func (h *Handler) GetPromotion(c *gin.Context) {
	id := c.Param("id")
	snapshot, err := h.PromotionService.Get(c.Request.Context(), id)
	if err != nil {
		shared.RespondMappedError(c, err, promotionReadErrorRules, "promotion_id", id)
		return
	}
	response.Success(c, snapshot)
}
