package repository

import (
	"context"
	"errors"

	"github.com/dealmint/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClaimRepository 领取记录数据访问接口
type ClaimRepository interface {
	InsertIfAbsent(ctx context.Context, claim *models.Claim) (bool, *models.Claim, error)
	Get(ctx context.Context, promotionID, claimantID string) (*models.Claim, error)
	List(ctx context.Context, filter ClaimListFilter) ([]models.Claim, int64, error)
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ClaimRepository
}

// GormClaimRepository GORM 实现
type GormClaimRepository struct {
	db *gorm.DB
}

// NewClaimRepository 创建领取记录仓库
func NewClaimRepository(db *gorm.DB) *GormClaimRepository {
	return &GormClaimRepository{db: db}
}

// WithTx 绑定事务
func (r *GormClaimRepository) WithTx(tx *gorm.DB) ClaimRepository {
	if tx == nil {
		return r
	}
	return &GormClaimRepository{db: tx}
}

// Transaction 执行事务
func (r *GormClaimRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

// InsertIfAbsent 依赖 (promotion_id, claimant_id) 唯一索引插入，冲突时返回已有记录
func (r *GormClaimRepository) InsertIfAbsent(ctx context.Context, claim *models.Claim) (bool, *models.Claim, error) {
	if claim == nil {
		return false, nil, errors.New("claim is nil")
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(claim)
	if result.Error != nil {
		return false, nil, result.Error
	}
	if result.RowsAffected == 1 {
		return true, nil, nil
	}
	existing, err := r.Get(ctx, claim.PromotionID, claim.ClaimantID)
	if err != nil {
		return false, nil, err
	}
	return false, existing, nil
}

// Get 按活动与领取人获取领取记录
func (r *GormClaimRepository) Get(ctx context.Context, promotionID, claimantID string) (*models.Claim, error) {
	var claim models.Claim
	err := r.db.WithContext(ctx).
		Where("promotion_id = ? AND claimant_id = ?", promotionID, claimantID).
		First(&claim).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &claim, nil
}

// List 获取领取人的领取记录
func (r *GormClaimRepository) List(ctx context.Context, filter ClaimListFilter) ([]models.Claim, int64, error) {
	var claims []models.Claim
	query := r.db.WithContext(ctx).Model(&models.Claim{})
	if filter.ClaimantID != "" {
		query = query.Where("claimant_id = ?", filter.ClaimantID)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("id desc").Find(&claims).Error; err != nil {
		return nil, 0, err
	}
	return claims, total, nil
}
