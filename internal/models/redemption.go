package models

import (
	"time"

	"gorm.io/gorm"
)

// Redemption 核销成功记录，每个 nonce 与每个 (活动, 领取人) 各至多一条
type Redemption struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	PromotionID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_redemptions_promotion_claimant,priority:1" json:"promotion_id"`
	ClaimantID  string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_redemptions_promotion_claimant,priority:2;index" json:"claimant_id"`
	AssetRef    string    `gorm:"type:varchar(255);not null" json:"asset_ref"`
	Nonce       string    `gorm:"type:varchar(128);not null;uniqueIndex" json:"-"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (Redemption) TableName() string {
	return "redemptions"
}

// BeforeCreate 统一时间为 UTC
func (r *Redemption) BeforeCreate(tx *gorm.DB) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return nil
}
