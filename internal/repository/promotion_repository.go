package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/dealmint/internal/constants"
	"github.com/dealmint/internal/models"

	"gorm.io/gorm"
)

// PromotionRepository 活动数据访问接口
type PromotionRepository interface {
	GetByID(ctx context.Context, id string) (*models.Promotion, error)
	Create(ctx context.Context, promotion *models.Promotion) error
	List(ctx context.Context, filter PromotionListFilter) ([]models.Promotion, int64, error)
	IncrementClaimedCount(ctx context.Context, id string) (bool, error)
	DecrementClaimedCount(ctx context.Context, id string) (bool, error)
	MarkIssued(ctx context.Context, id, assetRef, metadataURI string) (bool, error)
	MarkIssuanceFailed(ctx context.Context, id, reason string) error
	WithTx(tx *gorm.DB) PromotionRepository
}

// GormPromotionRepository GORM 实现
type GormPromotionRepository struct {
	db *gorm.DB
}

// NewPromotionRepository 创建活动仓库
func NewPromotionRepository(db *gorm.DB) *GormPromotionRepository {
	return &GormPromotionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPromotionRepository) WithTx(tx *gorm.DB) PromotionRepository {
	if tx == nil {
		return r
	}
	return &GormPromotionRepository{db: tx}
}

// GetByID 根据ID获取活动
func (r *GormPromotionRepository) GetByID(ctx context.Context, id string) (*models.Promotion, error) {
	var promotion models.Promotion
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&promotion).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &promotion, nil
}

// Create 创建活动
func (r *GormPromotionRepository) Create(ctx context.Context, promotion *models.Promotion) error {
	return r.db.WithContext(ctx).Create(promotion).Error
}

// List 获取活动列表
func (r *GormPromotionRepository) List(ctx context.Context, filter PromotionListFilter) ([]models.Promotion, int64, error) {
	var promotions []models.Promotion
	query := r.db.WithContext(ctx).Model(&models.Promotion{})

	if merchantID := strings.TrimSpace(filter.MerchantID); merchantID != "" {
		query = query.Where("merchant_id = ?", merchantID)
	}
	if filter.OnlyIssued {
		query = query.Where("issuance_status = ?", constants.IssuanceStatusIssued)
	}
	if tag := strings.TrimSpace(filter.Tag); tag != "" {
		cond, arg := jsonArrayContainsByDialect(dbDialectName(r.db), "tags", tag)
		query = query.Where(cond, arg)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		cond, count := buildLikeConditionByDialect(dbDialectName(r.db), []string{"title", "description"})
		query = query.Where(cond, repeatLikeArgs("%"+search+"%", count)...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("created_at desc").Order("id desc").Find(&promotions).Error; err != nil {
		return nil, 0, err
	}
	return promotions, total, nil
}

// IncrementClaimedCount 条件自增已领取数，超出总量时返回 false
func (r *GormPromotionRepository) IncrementClaimedCount(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Promotion{}).
		Where("id = ? AND claimed_count < total_supply", id).
		UpdateColumn("claimed_count", gorm.Expr("claimed_count + ?", 1))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// DecrementClaimedCount 补偿回退已领取数
func (r *GormPromotionRepository) DecrementClaimedCount(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Promotion{}).
		Where("id = ? AND claimed_count > 0", id).
		UpdateColumn("claimed_count", gorm.Expr("claimed_count - ?", 1))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkIssued 记录发行结果，仅对未发行的活动生效
func (r *GormPromotionRepository) MarkIssued(ctx context.Context, id, assetRef, metadataURI string) (bool, error) {
	updates := map[string]interface{}{
		"asset_ref":       assetRef,
		"issuance_status": constants.IssuanceStatusIssued,
		"issuance_error":  "",
	}
	if strings.TrimSpace(metadataURI) != "" {
		updates["metadata_uri"] = metadataURI
	}
	result := r.db.WithContext(ctx).Model(&models.Promotion{}).
		Where("id = ? AND issuance_status <> ?", id, constants.IssuanceStatusIssued).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkIssuanceFailed 记录发行失败
func (r *GormPromotionRepository) MarkIssuanceFailed(ctx context.Context, id, reason string) error {
	if len(reason) > 500 {
		reason = reason[:500]
	}
	return r.db.WithContext(ctx).Model(&models.Promotion{}).
		Where("id = ? AND issuance_status <> ?", id, constants.IssuanceStatusIssued).
		Updates(map[string]interface{}{
			"issuance_status": constants.IssuanceStatusFailed,
			"issuance_error":  reason,
		}).Error
}
