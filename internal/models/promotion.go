package models

import (
	"strings"
	"time"

	"github.com/dealmint/internal/constants"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Promotion 商户发行的限量优惠活动
type Promotion struct {
	ID             string      `gorm:"primarykey;type:varchar(36)" json:"id"`                                    // 主键（UUID）
	MerchantID     string      `gorm:"type:varchar(128);index;not null" json:"merchant_id"`                      // 商户标识
	Title          string      `gorm:"type:varchar(200);not null" json:"title"`                                  // 标题
	Description    string      `gorm:"type:text" json:"description"`                                             // 描述
	ImageURL       string      `gorm:"type:varchar(500)" json:"image_url"`                                       // 图片地址
	Tags           StringArray `gorm:"type:json" json:"tags"`                                                    // 标签
	Discount       Percent     `gorm:"type:decimal(5,2);not null" json:"discount"`                               // 折扣百分比
	TotalSupply    int         `gorm:"not null" json:"total_supply"`                                             // 发行总量
	ClaimedCount   int         `gorm:"not null;default:0" json:"claimed_count"`                                  // 已领取数量，仅通过条件更新变化
	ExpiresAt      time.Time   `gorm:"index;not null" json:"expires_at"`                                         // 过期时间
	AssetRef       *string     `gorm:"type:varchar(255)" json:"asset_ref"`                                       // 资产模板引用，发行完成前为空
	MetadataURI    *string     `gorm:"type:varchar(500)" json:"metadata_uri"`                                    // 元数据地址
	IssuanceStatus string      `gorm:"type:varchar(16);index;not null;default:pending" json:"issuance_status"`   // 发行状态
	IssuanceError  string      `gorm:"type:varchar(500)" json:"issuance_error,omitempty"`                        // 发行失败原因
	CreatedAt      time.Time   `gorm:"index" json:"created_at"`                                                  // 创建时间
	UpdatedAt      time.Time   `json:"updated_at"`                                                               // 更新时间
}

// TableName 指定表名
func (Promotion) TableName() string {
	return "promotions"
}

// BeforeCreate 生成主键并统一时间为 UTC
func (p *Promotion) BeforeCreate(tx *gorm.DB) error {
	if strings.TrimSpace(p.ID) == "" {
		p.ID = uuid.NewString()
	}
	if p.IssuanceStatus == "" {
		p.IssuanceStatus = constants.IssuanceStatusPending
	}
	p.ExpiresAt = p.ExpiresAt.UTC()
	return nil
}

// StatusAt 计算派生状态：先判断过期，再判断售罄
func (p *Promotion) StatusAt(now time.Time) string {
	if !now.Before(p.ExpiresAt) {
		return constants.PromotionStatusExpired
	}
	if p.ClaimedCount >= p.TotalSupply {
		return constants.PromotionStatusSoldOut
	}
	return constants.PromotionStatusActive
}

// Remaining 剩余可领取数量
func (p *Promotion) Remaining() int {
	if p.ClaimedCount >= p.TotalSupply {
		return 0
	}
	return p.TotalSupply - p.ClaimedCount
}

// Issued 资产是否已发行完成
func (p *Promotion) Issued() bool {
	return p.IssuanceStatus == constants.IssuanceStatusIssued && p.AssetRef != nil && strings.TrimSpace(*p.AssetRef) != ""
}

// AssetRefValue 返回资产引用，未发行时为空串
func (p *Promotion) AssetRefValue() string {
	if p.AssetRef == nil {
		return ""
	}
	return *p.AssetRef
}
