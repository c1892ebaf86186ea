package models

import (
	"strings"
	"time"

	"github.com/dealmint/internal/constants"
	"github.com/dealmint/internal/logger"
)

// DemoPromotionOptions 演示活动参数
type DemoPromotionOptions struct {
	MerchantID  string
	Title       string
	TotalSupply int
	Discount    int64
	AssetRef    string
	TTL         time.Duration
}

// EnsureDemoPromotion 若商户尚无活动则创建一个已发行的演示活动
func EnsureDemoPromotion(opts DemoPromotionOptions) (*Promotion, error) {
	merchantID := strings.TrimSpace(opts.MerchantID)
	if merchantID == "" {
		merchantID = "demo-merchant"
	}

	var existing Promotion
	err := DB.Where("merchant_id = ?", merchantID).Order("created_at desc").Limit(1).Find(&existing).Error
	if err != nil {
		return nil, err
	}
	if existing.ID != "" {
		logger.Infow("demo_promotion_exists", "promotion_id", existing.ID, "merchant_id", merchantID)
		return &existing, nil
	}

	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = "Demo 20% off"
	}
	supply := opts.TotalSupply
	if supply <= 0 {
		supply = 100
	}
	discount := opts.Discount
	if discount < constants.DiscountMin || discount > constants.DiscountMax {
		discount = 20
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	assetRef := strings.TrimSpace(opts.AssetRef)
	if assetRef == "" {
		assetRef = "demo-asset"
	}

	promotion := &Promotion{
		MerchantID:     merchantID,
		Title:          title,
		Discount:       NewPercentFromInt(discount),
		TotalSupply:    supply,
		ExpiresAt:      time.Now().UTC().Add(ttl),
		AssetRef:       &assetRef,
		IssuanceStatus: constants.IssuanceStatusIssued,
		Tags:           StringArray{"demo"},
	}
	if err := DB.Create(promotion).Error; err != nil {
		return nil, err
	}
	logger.Warnw("demo_promotion_created", "promotion_id", promotion.ID, "merchant_id", merchantID, "asset_ref", assetRef)
	return promotion, nil
}
