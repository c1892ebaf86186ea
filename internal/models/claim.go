package models

import (
	"time"

	"gorm.io/gorm"
)

// Claim 领取记录，同一活动同一领取人仅一条
type Claim struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	PromotionID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_claims_promotion_claimant,priority:1" json:"promotion_id"`
	ClaimantID  string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_claims_promotion_claimant,priority:2;index:idx_claims_claimant" json:"claimant_id"`
	AssetRef    string    `gorm:"type:varchar(255);not null" json:"asset_ref"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (Claim) TableName() string {
	return "claims"
}

// BeforeCreate 统一时间为 UTC
func (c *Claim) BeforeCreate(tx *gorm.DB) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return nil
}
