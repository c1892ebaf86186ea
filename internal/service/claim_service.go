package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dealmint/internal/constants"
	"github.com/dealmint/internal/events"
	"github.com/dealmint/internal/logger"
	"github.com/dealmint/internal/metrics"
	"github.com/dealmint/internal/models"
	"github.com/dealmint/internal/repository"
	"github.com/dealmint/internal/ticket"

	"gorm.io/gorm"
)

const (
	maxNonceAttempts   = 3
	maxClaimantIDLen   = 128
	defaultTicketTTL   = 2 * time.Minute
	compensationSupply = "claimed_count"
)

// ClaimResult 领取或补发凭证的结果
type ClaimResult struct {
	PromotionID   string    `json:"promotion_id"`
	EncodedTicket string    `json:"encoded_ticket"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// ClaimServiceOptions 领取服务依赖
type ClaimServiceOptions struct {
	PromotionRepo repository.PromotionRepository
	ClaimRepo     repository.ClaimRepository
	NonceRepo     repository.RedemptionNonceRepository
	Codec         *ticket.Codec
	TicketTTL     time.Duration
	Publisher     events.Publisher
	Metrics       *metrics.Recorder
}

// ClaimService 领取服务
type ClaimService struct {
	promotionRepo repository.PromotionRepository
	claimRepo     repository.ClaimRepository
	nonceRepo     repository.RedemptionNonceRepository
	codec         *ticket.Codec
	ticketTTL     time.Duration
	publisher     events.Publisher
	metrics       *metrics.Recorder
}

// NewClaimService 创建领取服务
func NewClaimService(opts ClaimServiceOptions) *ClaimService {
	codec := opts.Codec
	if codec == nil {
		codec = ticket.NewCodec()
	}
	ttl := opts.TicketTTL
	if ttl <= 0 {
		ttl = defaultTicketTTL
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &ClaimService{
		promotionRepo: opts.PromotionRepo,
		claimRepo:     opts.ClaimRepo,
		nonceRepo:     opts.NonceRepo,
		codec:         codec,
		ticketTTL:     ttl,
		publisher:     publisher,
		metrics:       opts.Metrics,
	}
}

// Claim 领取优惠券并签发一次性核销凭证
func (s *ClaimService) Claim(ctx context.Context, promotionID, claimantID string) (*ClaimResult, error) {
	result, err := s.claim(ctx, promotionID, claimantID)
	s.metrics.ClaimOutcome(outcomeLabel(err))
	return result, err
}

func (s *ClaimService) claim(ctx context.Context, promotionID, claimantID string) (*ClaimResult, error) {
	promotionID, claimantID, err := normalizeClaimInput(promotionID, claimantID)
	if err != nil {
		return nil, err
	}

	promotion, err := s.promotionRepo.GetByID(ctx, promotionID)
	if err != nil {
		return nil, err
	}
	if promotion == nil {
		return nil, ErrPromotionNotFound
	}
	if !promotion.Issued() {
		return nil, ErrPromotionInactive
	}
	switch promotion.StatusAt(s.codec.Now()) {
	case constants.PromotionStatusExpired:
		return nil, ErrPromotionInactive
	case constants.PromotionStatusSoldOut:
		return nil, ErrPromotionSoldOut
	}

	reserved, err := s.promotionRepo.IncrementClaimedCount(ctx, promotion.ID)
	if err != nil {
		return nil, err
	}
	if !reserved {
		return nil, ErrPromotionSoldOut
	}

	assetRef := promotion.AssetRefValue()
	var issued ticket.Ticket
	var encoded string
	err = s.claimRepo.Transaction(ctx, func(tx *gorm.DB) error {
		inserted, _, err := s.claimRepo.WithTx(tx).InsertIfAbsent(ctx, &models.Claim{
			PromotionID: promotion.ID,
			ClaimantID:  claimantID,
			AssetRef:    assetRef,
		})
		if err != nil {
			return err
		}
		if !inserted {
			return ErrAlreadyClaimed
		}
		issued, encoded, err = s.issueTicket(ctx, s.nonceRepo.WithTx(tx), promotion.ID, assetRef, claimantID)
		return err
	})
	if err != nil {
		s.releaseReservation(ctx, promotion.ID, claimantID, err)
		return nil, err
	}

	logger.C(ctx,
		"promotion_id", promotion.ID,
		"claimant_id", claimantID,
		"nonce_fp", issued.Fingerprint(),
	).Infow("claim_issued")
	s.publish(ctx, events.Event{
		Type:        constants.EventCouponClaimed,
		PromotionID: promotion.ID,
		ClaimantID:  claimantID,
		AssetRef:    assetRef,
		NonceFP:     issued.Fingerprint(),
		OccurredAt:  s.codec.Now(),
	})

	return &ClaimResult{
		PromotionID:   promotion.ID,
		EncodedTicket: encoded,
		ExpiresAt:     issued.ExpiresAt,
	}, nil
}

// Reissue 为已领取的优惠券签发新的核销凭证，旧凭证在各自过期前仍然有效；
// 领取记录下已有凭证被消费后拒绝签发
func (s *ClaimService) Reissue(ctx context.Context, promotionID, claimantID string) (*ClaimResult, error) {
	promotionID, claimantID, err := normalizeClaimInput(promotionID, claimantID)
	if err != nil {
		return nil, err
	}
	claim, err := s.claimRepo.Get(ctx, promotionID, claimantID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, ErrClaimNotFound
	}
	settled, err := s.nonceRepo.HasConsumed(ctx, claim.PromotionID, claim.ClaimantID)
	if err != nil {
		return nil, err
	}
	if settled {
		return nil, ErrAlreadyRedeemed
	}
	promotion, err := s.promotionRepo.GetByID(ctx, promotionID)
	if err != nil {
		return nil, err
	}
	if promotion == nil {
		return nil, ErrPromotionNotFound
	}
	if promotion.StatusAt(s.codec.Now()) == constants.PromotionStatusExpired {
		return nil, ErrPromotionInactive
	}

	issued, encoded, err := s.issueTicket(ctx, s.nonceRepo, claim.PromotionID, claim.AssetRef, claim.ClaimantID)
	if err != nil {
		return nil, err
	}
	logger.C(ctx,
		"promotion_id", claim.PromotionID,
		"claimant_id", claim.ClaimantID,
		"nonce_fp", issued.Fingerprint(),
	).Infow("claim_ticket_reissued")
	return &ClaimResult{
		PromotionID:   claim.PromotionID,
		EncodedTicket: encoded,
		ExpiresAt:     issued.ExpiresAt,
	}, nil
}

// ListClaims 查询领取人的领取记录
func (s *ClaimService) ListClaims(ctx context.Context, claimantID string, page, pageSize int) ([]models.Claim, int64, error) {
	claimantID = strings.TrimSpace(claimantID)
	if claimantID == "" {
		return nil, 0, ErrInvalidClaimRequest
	}
	return s.claimRepo.List(ctx, repository.ClaimListFilter{
		Page:       page,
		PageSize:   pageSize,
		ClaimantID: claimantID,
	})
}

// issueTicket 生成凭证并落库 nonce，碰撞时重新生成
func (s *ClaimService) issueTicket(ctx context.Context, nonces repository.RedemptionNonceRepository, promotionID, assetRef, claimantID string) (ticket.Ticket, string, error) {
	for attempt := 1; attempt <= maxNonceAttempts; attempt++ {
		issuedAt := s.codec.Now()
		issued, err := s.codec.Issue(promotionID, assetRef, claimantID, s.ticketTTL)
		if err != nil {
			return ticket.Ticket{}, "", err
		}
		encoded, err := ticket.Encode(issued)
		if err != nil {
			return ticket.Ticket{}, "", err
		}
		err = nonces.Insert(ctx, &models.RedemptionNonce{
			AssetRef:    assetRef,
			Nonce:       issued.NonceHex(),
			PromotionID: promotionID,
			ClaimantID:  claimantID,
			IssuedAt:    issuedAt,
			ExpiresAt:   issued.ExpiresAt,
		})
		if errors.Is(err, repository.ErrNonceCollision) {
			logger.C(ctx, "promotion_id", promotionID, "attempt", attempt).Warnw("claim_nonce_collision")
			continue
		}
		if err != nil {
			return ticket.Ticket{}, "", err
		}
		return issued, encoded, nil
	}
	return ticket.Ticket{}, "", ErrNonceExhausted
}

// releaseReservation 领取失败后归还已预占的库存
func (s *ClaimService) releaseReservation(ctx context.Context, promotionID, claimantID string, cause error) {
	released, err := s.promotionRepo.DecrementClaimedCount(context.WithoutCancel(ctx), promotionID)
	s.metrics.Compensation(compensationSupply, err == nil && released)
	log := logger.C(ctx, "promotion_id", promotionID, "claimant_id", claimantID, "cause", cause)
	if err != nil {
		log.Errorw("claim_reservation_release_failed", "error", err)
		return
	}
	if !released {
		log.Warnw("claim_reservation_release_skipped")
		return
	}
	if !errors.Is(cause, ErrAlreadyClaimed) {
		log.Warnw("claim_reservation_released")
	}
}

func (s *ClaimService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.C(ctx, "event_type", event.Type, "promotion_id", event.PromotionID, "error", err).Warnw("event_publish_failed")
	}
}

func normalizeClaimInput(promotionID, claimantID string) (string, string, error) {
	promotionID = strings.TrimSpace(promotionID)
	claimantID = strings.TrimSpace(claimantID)
	if promotionID == "" || claimantID == "" || len(claimantID) > maxClaimantIDLen {
		return "", "", ErrInvalidClaimRequest
	}
	return promotionID, claimantID, nil
}
