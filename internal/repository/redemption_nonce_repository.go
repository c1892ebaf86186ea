package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dealmint/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNonceCollision (asset_ref, nonce) 已存在，调用方需重新生成 nonce
var ErrNonceCollision = errors.New("redemption nonce collision")

// ConsumeResult 条件消费结果
type ConsumeResult int

const (
	ConsumeResultConsumed ConsumeResult = iota + 1
	ConsumeResultAlreadyConsumed
	ConsumeResultNotFound
	ConsumeResultExpired
)

// String 返回结果名称
func (r ConsumeResult) String() string {
	switch r {
	case ConsumeResultConsumed:
		return "consumed"
	case ConsumeResultAlreadyConsumed:
		return "already_consumed"
	case ConsumeResultNotFound:
		return "not_found"
	case ConsumeResultExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// RedemptionNonceRepository 核销凭证数据访问接口
type RedemptionNonceRepository interface {
	Insert(ctx context.Context, nonce *models.RedemptionNonce) error
	Get(ctx context.Context, assetRef, nonce string) (*models.RedemptionNonce, error)
	ConsumeIfLive(ctx context.Context, assetRef, nonce string, now time.Time) (ConsumeResult, error)
	RollbackConsumption(ctx context.Context, assetRef, nonce string) (bool, error)
	HasConsumed(ctx context.Context, promotionID, claimantID string) (bool, error)
	WithTx(tx *gorm.DB) RedemptionNonceRepository
}

// GormRedemptionNonceRepository GORM 实现
type GormRedemptionNonceRepository struct {
	db *gorm.DB
}

// NewRedemptionNonceRepository 创建核销凭证仓库
func NewRedemptionNonceRepository(db *gorm.DB) *GormRedemptionNonceRepository {
	return &GormRedemptionNonceRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRedemptionNonceRepository) WithTx(tx *gorm.DB) RedemptionNonceRepository {
	if tx == nil {
		return r
	}
	return &GormRedemptionNonceRepository{db: tx}
}

// Insert 依赖 (asset_ref, nonce) 唯一索引插入
func (r *GormRedemptionNonceRepository) Insert(ctx context.Context, nonce *models.RedemptionNonce) error {
	if nonce == nil {
		return errors.New("redemption nonce is nil")
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(nonce)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNonceCollision
	}
	return nil
}

// Get 获取核销凭证
func (r *GormRedemptionNonceRepository) Get(ctx context.Context, assetRef, nonce string) (*models.RedemptionNonce, error) {
	var record models.RedemptionNonce
	err := r.db.WithContext(ctx).
		Where("asset_ref = ? AND nonce = ?", assetRef, nonce).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// ConsumeIfLive 单条条件更新标记已消费，未命中时回读区分原因
func (r *GormRedemptionNonceRepository) ConsumeIfLive(ctx context.Context, assetRef, nonce string, now time.Time) (ConsumeResult, error) {
	now = now.UTC()
	result := r.db.WithContext(ctx).Model(&models.RedemptionNonce{}).
		Where("asset_ref = ? AND nonce = ? AND consumed = ? AND expires_at > ?", assetRef, nonce, false, now).
		Updates(map[string]interface{}{
			"consumed":    true,
			"consumed_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 1 {
		return ConsumeResultConsumed, nil
	}

	record, err := r.Get(ctx, assetRef, nonce)
	if err != nil {
		return 0, err
	}
	switch {
	case record == nil:
		return ConsumeResultNotFound, nil
	case record.Consumed:
		return ConsumeResultAlreadyConsumed, nil
	case !now.Before(record.ExpiresAt):
		return ConsumeResultExpired, nil
	default:
		// 条件更新未命中但回读时已被补偿回退，视为被并发请求占用
		return ConsumeResultAlreadyConsumed, nil
	}
}

// RollbackConsumption 补偿回退消费标记
func (r *GormRedemptionNonceRepository) RollbackConsumption(ctx context.Context, assetRef, nonce string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.RedemptionNonce{}).
		Where("asset_ref = ? AND nonce = ? AND consumed = ?", assetRef, nonce, true).
		Updates(map[string]interface{}{
			"consumed":    false,
			"consumed_at": nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// HasConsumed 判断领取记录下是否存在未回退的已消费凭证
func (r *GormRedemptionNonceRepository) HasConsumed(ctx context.Context, promotionID, claimantID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RedemptionNonce{}).
		Where("promotion_id = ? AND claimant_id = ? AND consumed = ?", promotionID, claimantID, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
