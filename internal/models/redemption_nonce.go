package models

import (
	"time"

	"gorm.io/gorm"
)

// RedemptionNonce 一次性核销凭证记录，保留用于审计与防重放
type RedemptionNonce struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	AssetRef    string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_nonces_asset_nonce,priority:1" json:"asset_ref"`
	Nonce       string     `gorm:"type:varchar(128);not null;uniqueIndex:idx_nonces_asset_nonce,priority:2" json:"-"`
	PromotionID string     `gorm:"type:varchar(36);not null;index" json:"promotion_id"`
	ClaimantID  string     `gorm:"type:varchar(128);not null;index" json:"claimant_id"`
	IssuedAt    time.Time  `gorm:"not null" json:"issued_at"`
	ExpiresAt   time.Time  `gorm:"not null;index" json:"expires_at"`
	Consumed    bool       `gorm:"not null;default:false;index" json:"consumed"`
	ConsumedAt  *time.Time `json:"consumed_at"`
}

// TableName 指定表名
func (RedemptionNonce) TableName() string {
	return "redemption_nonces"
}

// BeforeCreate 统一时间为 UTC，过期比较依赖一致的存储格式
func (n *RedemptionNonce) BeforeCreate(tx *gorm.DB) error {
	n.IssuedAt = n.IssuedAt.UTC()
	n.ExpiresAt = n.ExpiresAt.UTC()
	return nil
}
