package cache

import (
	"context"
	"fmt"
	"time"
)

const defaultPromotionCacheTTL = 15 * time.Second

// PromotionSnapshot 活动读缓存快照，仅用于展示，领取流程始终读库
type PromotionSnapshot struct {
	ID             string    `json:"id"`
	MerchantID     string    `json:"merchant_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	ImageURL       string    `json:"image_url"`
	Tags           []string  `json:"tags"`
	Discount       string    `json:"discount"`
	TotalSupply    int       `json:"total_supply"`
	ClaimedCount   int       `json:"claimed_count"`
	Remaining      int       `json:"remaining"`
	Status         string    `json:"status"`
	ExpiresAt      time.Time `json:"expires_at"`
	AssetRef       string    `json:"asset_ref,omitempty"`
	MetadataURI    string    `json:"metadata_uri,omitempty"`
	IssuanceStatus string    `json:"issuance_status"`
	CreatedAt      time.Time `json:"created_at"`
}

func promotionKey(id string) string {
	return fmt.Sprintf("promotion:%s", id)
}

// GetPromotion 读取活动快照
func GetPromotion(ctx context.Context, id string) (*PromotionSnapshot, bool, error) {
	var snapshot PromotionSnapshot
	hit, err := GetJSON(ctx, promotionKey(id), &snapshot)
	if err != nil || !hit {
		return nil, false, err
	}
	return &snapshot, true, nil
}

// SetPromotion 写入活动快照
func SetPromotion(ctx context.Context, snapshot *PromotionSnapshot, ttl time.Duration) error {
	if snapshot == nil || snapshot.ID == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultPromotionCacheTTL
	}
	return SetJSON(ctx, promotionKey(snapshot.ID), snapshot, ttl)
}

// InvalidatePromotion 删除活动快照
func InvalidatePromotion(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return Del(ctx, promotionKey(id))
}
