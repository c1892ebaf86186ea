package repository

import (
	"context"
	"errors"

	"github.com/dealmint/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RedemptionRepository 核销记录数据访问接口
type RedemptionRepository interface {
	Record(ctx context.Context, redemption *models.Redemption) (bool, error)
	GetByNonce(ctx context.Context, nonce string) (*models.Redemption, error)
	List(ctx context.Context, filter RedemptionListFilter) ([]models.Redemption, int64, error)
	WithTx(tx *gorm.DB) RedemptionRepository
}

// GormRedemptionRepository GORM 实现
type GormRedemptionRepository struct {
	db *gorm.DB
}

// NewRedemptionRepository 创建核销记录仓库
func NewRedemptionRepository(db *gorm.DB) *GormRedemptionRepository {
	return &GormRedemptionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRedemptionRepository) WithTx(tx *gorm.DB) RedemptionRepository {
	if tx == nil {
		return r
	}
	return &GormRedemptionRepository{db: tx}
}

// Record 依赖 nonce 与 (promotion_id, claimant_id) 唯一索引写入，任一冲突返回 false
func (r *GormRedemptionRepository) Record(ctx context.Context, redemption *models.Redemption) (bool, error) {
	if redemption == nil {
		return false, errors.New("redemption is nil")
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(redemption)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// GetByNonce 按 nonce 获取核销记录
func (r *GormRedemptionRepository) GetByNonce(ctx context.Context, nonce string) (*models.Redemption, error) {
	var redemption models.Redemption
	if err := r.db.WithContext(ctx).Where("nonce = ?", nonce).First(&redemption).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &redemption, nil
}

// List 获取活动的核销记录
func (r *GormRedemptionRepository) List(ctx context.Context, filter RedemptionListFilter) ([]models.Redemption, int64, error) {
	var redemptions []models.Redemption
	query := r.db.WithContext(ctx).Model(&models.Redemption{})
	if filter.PromotionID != "" {
		query = query.Where("promotion_id = ?", filter.PromotionID)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("id desc").Find(&redemptions).Error; err != nil {
		return nil, 0, err
	}
	return redemptions, total, nil
}
