package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dealmint/internal/constants"
	"github.com/dealmint/internal/events"
	"github.com/dealmint/internal/logger"
	"github.com/dealmint/internal/metrics"
	"github.com/dealmint/internal/models"
	"github.com/dealmint/internal/oracle"
	"github.com/dealmint/internal/repository"
	"github.com/dealmint/internal/ticket"

	"go.uber.org/zap"
)

const compensationNonce = "nonce_consumption"

// RedeemResult 核销结果
type RedeemResult struct {
	PromotionID string    `json:"promotion_id"`
	ClaimantID  string    `json:"claimant_id"`
	AssetRef    string    `json:"asset_ref"`
	RedeemedAt  time.Time `json:"redeemed_at"`
}

// RedemptionServiceOptions 核销服务依赖
type RedemptionServiceOptions struct {
	PromotionRepo  repository.PromotionRepository
	NonceRepo      repository.RedemptionNonceRepository
	RedemptionRepo repository.RedemptionRepository
	Oracle         oracle.Oracle
	Publisher      events.Publisher
	Metrics        *metrics.Recorder
	Now            func() time.Time
}

// RedemptionService 核销服务
type RedemptionService struct {
	promotionRepo  repository.PromotionRepository
	nonceRepo      repository.RedemptionNonceRepository
	redemptionRepo repository.RedemptionRepository
	oracle         oracle.Oracle
	publisher      events.Publisher
	metrics        *metrics.Recorder
	now            func() time.Time
}

// NewRedemptionService 创建核销服务
func NewRedemptionService(opts RedemptionServiceOptions) *RedemptionService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &RedemptionService{
		promotionRepo:  opts.PromotionRepo,
		nonceRepo:      opts.NonceRepo,
		redemptionRepo: opts.RedemptionRepo,
		oracle:         opts.Oracle,
		publisher:      publisher,
		metrics:        opts.Metrics,
		now:            now,
	}
}

// Redeem 核销凭证：先原子消费 nonce，再校验持有权，最后写入核销记录
func (s *RedemptionService) Redeem(ctx context.Context, encoded string) (*RedeemResult, error) {
	result, err := s.redeem(ctx, encoded)
	s.metrics.RedemptionOutcome(outcomeLabel(err))
	return result, err
}

func (s *RedemptionService) redeem(ctx context.Context, encoded string) (*RedeemResult, error) {
	t, err := ticket.Decode(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTicket, err)
	}
	now := s.now()
	if !t.IsLive(now) {
		return nil, ErrTicketExpired
	}

	nonceHex := t.NonceHex()
	log := logger.C(ctx,
		"promotion_id", t.PromotionID,
		"claimant_id", t.ClaimantID,
		"nonce_fp", t.Fingerprint(),
	)

	// 凭证中的活动与领取人必须与签发记录一致
	record, err := s.nonceRepo.Get(ctx, t.AssetRef, nonceHex)
	if err != nil {
		return nil, err
	}
	if record == nil || record.PromotionID != t.PromotionID || record.ClaimantID != t.ClaimantID {
		return nil, ErrUnknownTicket
	}
	// 同一领取记录下已有凭证被消费（核销成功、持有权不符或校验中）时不再受理其它凭证
	settled, err := s.nonceRepo.HasConsumed(ctx, t.PromotionID, t.ClaimantID)
	if err != nil {
		return nil, err
	}
	if settled {
		return nil, ErrAlreadyRedeemed
	}

	consumed, err := s.nonceRepo.ConsumeIfLive(ctx, t.AssetRef, nonceHex, now)
	if err != nil {
		return nil, err
	}
	switch consumed {
	case repository.ConsumeResultConsumed:
	case repository.ConsumeResultAlreadyConsumed:
		return nil, ErrAlreadyRedeemed
	case repository.ConsumeResultExpired:
		return nil, ErrTicketExpired
	default:
		return nil, ErrUnknownTicket
	}

	started := time.Now()
	owned, err := s.oracle.VerifyOwnership(ctx, t.ClaimantID, t.AssetRef)
	if err != nil {
		s.metrics.OracleLatency("unavailable", time.Since(started))
		log.Warnw("redemption_oracle_unavailable", "error", err)
		s.rollbackConsumption(ctx, t.AssetRef, nonceHex, log)
		return nil, fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}
	if !owned {
		s.metrics.OracleLatency("not_owned", time.Since(started))
		log.Infow("redemption_ownership_mismatch")
		return nil, ErrOwnershipMismatch
	}
	s.metrics.OracleLatency("owned", time.Since(started))

	redemption := &models.Redemption{
		PromotionID: t.PromotionID,
		ClaimantID:  t.ClaimantID,
		AssetRef:    t.AssetRef,
		Nonce:       nonceHex,
		CreatedAt:   now,
	}
	inserted, err := s.redemptionRepo.Record(ctx, redemption)
	if err != nil {
		log.Errorw("redemption_record_failed", "error", err)
		s.rollbackConsumption(ctx, t.AssetRef, nonceHex, log)
		return nil, err
	}
	if !inserted {
		return nil, ErrAlreadyRedeemed
	}

	log.Infow("redemption_recorded")
	if err := s.publisher.Publish(ctx, events.Event{
		Type:        constants.EventCouponRedeemed,
		PromotionID: t.PromotionID,
		ClaimantID:  t.ClaimantID,
		AssetRef:    t.AssetRef,
		NonceFP:     t.Fingerprint(),
		OccurredAt:  now,
	}); err != nil {
		log.Warnw("event_publish_failed", "event_type", constants.EventCouponRedeemed, "error", err)
	}

	return &RedeemResult{
		PromotionID: t.PromotionID,
		ClaimantID:  t.ClaimantID,
		AssetRef:    t.AssetRef,
		RedeemedAt:  redemption.CreatedAt,
	}, nil
}

// ListRedemptions 查询商户活动的核销记录
func (s *RedemptionService) ListRedemptions(ctx context.Context, merchantID, promotionID string, page, pageSize int) ([]models.Redemption, int64, error) {
	promotion, err := s.promotionRepo.GetByID(ctx, strings.TrimSpace(promotionID))
	if err != nil {
		return nil, 0, err
	}
	if promotion == nil || promotion.MerchantID != merchantID {
		return nil, 0, ErrPromotionNotFound
	}
	return s.redemptionRepo.List(ctx, repository.RedemptionListFilter{
		Page:        page,
		PageSize:    pageSize,
		PromotionID: promotion.ID,
	})
}

// rollbackConsumption 校验未完成时恢复 nonce，允许持有人重试
func (s *RedemptionService) rollbackConsumption(ctx context.Context, assetRef, nonceHex string, log *zap.SugaredLogger) {
	restored, err := s.nonceRepo.RollbackConsumption(context.WithoutCancel(ctx), assetRef, nonceHex)
	s.metrics.Compensation(compensationNonce, err == nil && restored)
	if err != nil {
		log.Errorw("redemption_rollback_failed", "error", err)
		return
	}
	if !restored {
		log.Warnw("redemption_rollback_skipped")
	}
}
