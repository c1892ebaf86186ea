package merchant

import (
	"errors"
	"time"

	"github.com/dealmint/internal/http/handlers/shared"
	"github.com/dealmint/internal/http/response"
	"github.com/dealmint/internal/models"
	"github.com/dealmint/internal/service"

	"github.com/gin-gonic/gin"
)

// CreatePromotionRequest 创建活动请求
type CreatePromotionRequest struct {
	Title       string         `json:"title" binding:"required"`
	Description string         `json:"description"`
	ImageURL    string         `json:"image_url"`
	Tags        []string       `json:"tags"`
	Discount    models.Percent `json:"discount"`
	TotalSupply int            `json:"total_supply" binding:"required"`
	ExpiresAt   time.Time      `json:"expires_at" binding:"required"`
	AssetRef    string         `json:"asset_ref"`
	MetadataURI string         `json:"metadata_uri"`
}

// CreatePromotion 创建活动
func (h *Handler) CreatePromotion(c *gin.Context) {
	merchantID, ok := shared.MerchantID(c)
	if !ok {
		return
	}
	var req CreatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, shared.KindInvalidRequest, nil)
		return
	}
	promotion, err := h.PromotionService.Create(c.Request.Context(), service.CreatePromotionInput{
		MerchantID:  merchantID,
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Tags:        req.Tags,
		Discount:    req.Discount,
		TotalSupply: req.TotalSupply,
		ExpiresAt:   req.ExpiresAt,
		AssetRef:    req.AssetRef,
		MetadataURI: req.MetadataURI,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidPromotion) {
			shared.RespondError(c, response.CodeBadRequest, shared.KindInvalidPromotion, nil)
			shared.RequestLog(c, "merchant_id", merchantID).Infow("merchant_promotion_rejected", "reason", err)
			return
		}
		shared.RespondMappedError(c, err, promotionCreateErrorRules, "merchant_id", merchantID)
		return
	}
	response.Success(c, promotion)
}

// ListPromotions 查询商户自己的活动，包含未发行活动
func (h *Handler) ListPromotions(c *gin.Context) {
	merchantID, ok := shared.MerchantID(c)
	if !ok {
		return
	}
	page, pageSize := shared.ParsePagination(c)
	items, total, err := h.PromotionService.List(c.Request.Context(), service.PromotionListInput{
		Page:       page,
		PageSize:   pageSize,
		MerchantID: merchantID,
		Tag:        c.Query("tag"),
		Search:     c.Query("search"),
	})
	if err != nil {
		shared.RespondError(c, response.CodeInternal, shared.KindInternal, err, "merchant_id", merchantID)
		return
	}
	response.SuccessWithPage(c, items, shared.BuildPagination(page, pageSize, total))
}
