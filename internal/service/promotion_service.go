package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dealmint/internal/cache"
	"github.com/dealmint/internal/constants"
	"github.com/dealmint/internal/issuance"
	"github.com/dealmint/internal/logger"
	"github.com/dealmint/internal/models"
	"github.com/dealmint/internal/queue"
	"github.com/dealmint/internal/repository"
)

const (
	maxPromotionTitleLen = 200
	maxPromotionTags     = 10
)

// CreatePromotionInput 创建活动参数
type CreatePromotionInput struct {
	MerchantID  string
	Title       string
	Description string
	ImageURL    string
	Tags        []string
	Discount    models.Percent
	TotalSupply int
	ExpiresAt   time.Time
	AssetRef    string
	MetadataURI string
}

// PromotionListInput 活动列表查询参数
type PromotionListInput struct {
	Page       int
	PageSize   int
	MerchantID string
	Tag        string
	Search     string
}

// PromotionServiceOptions 活动服务依赖
type PromotionServiceOptions struct {
	PromotionRepo repository.PromotionRepository
	Issuer        issuance.Issuer
	Queue         *queue.Client
	CacheTTL      time.Duration
	Now           func() time.Time
}

// PromotionService 活动服务
type PromotionService struct {
	promotionRepo repository.PromotionRepository
	issuer        issuance.Issuer
	queue         *queue.Client
	cacheTTL      time.Duration
	now           func() time.Time
}

// NewPromotionService 创建活动服务
func NewPromotionService(opts PromotionServiceOptions) *PromotionService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &PromotionService{
		promotionRepo: opts.PromotionRepo,
		issuer:        opts.Issuer,
		queue:         opts.Queue,
		cacheTTL:      opts.CacheTTL,
		now:           now,
	}
}

// Create 创建活动；未提供资产引用时交由发行服务异步发行
func (s *PromotionService) Create(ctx context.Context, input CreatePromotionInput) (*models.Promotion, error) {
	promotion, err := s.buildPromotion(input)
	if err != nil {
		return nil, err
	}
	pending := promotion.AssetRef == nil
	if pending && s.issuer == nil {
		return nil, ErrIssuanceUnavailable
	}
	if err := s.promotionRepo.Create(ctx, promotion); err != nil {
		return nil, err
	}
	logger.C(ctx,
		"promotion_id", promotion.ID,
		"merchant_id", promotion.MerchantID,
		"issuance_status", promotion.IssuanceStatus,
	).Infow("promotion_created")

	if !pending {
		return promotion, nil
	}
	if s.queue.Enabled() {
		err := s.queue.EnqueuePromotionIssue(queue.PromotionIssuePayload{PromotionID: promotion.ID})
		if err == nil {
			return promotion, nil
		}
		logger.C(ctx, "promotion_id", promotion.ID, "error", err).Warnw("promotion_issue_enqueue_failed")
	}
	if err := s.ProcessIssuance(ctx, promotion.ID); err != nil {
		logger.C(ctx, "promotion_id", promotion.ID, "error", err).Warnw("promotion_issue_inline_failed")
	}
	refreshed, err := s.promotionRepo.GetByID(ctx, promotion.ID)
	if err != nil || refreshed == nil {
		return promotion, err
	}
	return refreshed, nil
}

// ProcessIssuance 调用发行服务并记录结果，失败时返回错误以便任务重试
func (s *PromotionService) ProcessIssuance(ctx context.Context, promotionID string) error {
	promotion, err := s.promotionRepo.GetByID(ctx, promotionID)
	if err != nil {
		return err
	}
	if promotion == nil {
		logger.C(ctx, "promotion_id", promotionID).Warnw("promotion_issue_skip_not_found")
		return nil
	}
	if promotion.Issued() {
		return nil
	}
	if s.issuer == nil {
		return ErrIssuanceUnavailable
	}

	result, err := s.issuer.Issue(ctx, issuance.Request{
		PromotionID: promotion.ID,
		MerchantID:  promotion.MerchantID,
		Title:       promotion.Title,
		Description: promotion.Description,
		ImageURL:    promotion.ImageURL,
		Tags:        []string(promotion.Tags),
		Discount:    promotion.Discount.String(),
		TotalSupply: promotion.TotalSupply,
		ExpiresAt:   promotion.ExpiresAt,
	})
	if err != nil {
		if markErr := s.promotionRepo.MarkIssuanceFailed(context.WithoutCancel(ctx), promotion.ID, err.Error()); markErr != nil {
			logger.C(ctx, "promotion_id", promotion.ID, "error", markErr).Errorw("promotion_issue_mark_failed_error")
		}
		return fmt.Errorf("issue promotion %s: %w", promotion.ID, err)
	}

	applied, err := s.promotionRepo.MarkIssued(ctx, promotion.ID, result.AssetRef, result.MetadataURI)
	if err != nil {
		return err
	}
	if err := cache.InvalidatePromotion(ctx, promotion.ID); err != nil {
		logger.C(ctx, "promotion_id", promotion.ID, "error", err).Warnw("promotion_cache_invalidate_failed")
	}
	logger.C(ctx,
		"promotion_id", promotion.ID,
		"asset_ref", result.AssetRef,
		"applied", applied,
	).Infow("promotion_issued")
	return nil
}

// Get 读取活动详情，优先命中短期缓存
func (s *PromotionService) Get(ctx context.Context, id string) (*cache.PromotionSnapshot, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrPromotionNotFound
	}
	if snapshot, hit, err := cache.GetPromotion(ctx, id); err == nil && hit {
		return snapshot, nil
	} else if err != nil {
		logger.C(ctx, "promotion_id", id, "error", err).Warnw("promotion_cache_read_failed")
	}

	promotion, err := s.promotionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if promotion == nil {
		return nil, ErrPromotionNotFound
	}
	snapshot := s.snapshot(promotion)
	if err := cache.SetPromotion(ctx, snapshot, s.cacheTTL); err != nil {
		logger.C(ctx, "promotion_id", id, "error", err).Warnw("promotion_cache_write_failed")
	}
	return snapshot, nil
}

// List 分页查询活动；未指定商户时只返回已发行活动
func (s *PromotionService) List(ctx context.Context, input PromotionListInput) ([]cache.PromotionSnapshot, int64, error) {
	merchantID := strings.TrimSpace(input.MerchantID)
	promotions, total, err := s.promotionRepo.List(ctx, repository.PromotionListFilter{
		Page:       input.Page,
		PageSize:   input.PageSize,
		MerchantID: merchantID,
		Tag:        strings.ToLower(strings.TrimSpace(input.Tag)),
		Search:     input.Search,
		OnlyIssued: merchantID == "",
	})
	if err != nil {
		return nil, 0, err
	}
	items := make([]cache.PromotionSnapshot, 0, len(promotions))
	for i := range promotions {
		items = append(items, *s.snapshot(&promotions[i]))
	}
	return items, total, nil
}

func (s *PromotionService) snapshot(p *models.Promotion) *cache.PromotionSnapshot {
	tags := []string(p.Tags)
	if tags == nil {
		tags = []string{}
	}
	metadataURI := ""
	if p.MetadataURI != nil {
		metadataURI = *p.MetadataURI
	}
	return &cache.PromotionSnapshot{
		ID:             p.ID,
		MerchantID:     p.MerchantID,
		Title:          p.Title,
		Description:    p.Description,
		ImageURL:       p.ImageURL,
		Tags:           tags,
		Discount:       p.Discount.String(),
		TotalSupply:    p.TotalSupply,
		ClaimedCount:   p.ClaimedCount,
		Remaining:      p.Remaining(),
		Status:         p.StatusAt(s.now()),
		ExpiresAt:      p.ExpiresAt,
		AssetRef:       p.AssetRefValue(),
		MetadataURI:    metadataURI,
		IssuanceStatus: p.IssuanceStatus,
		CreatedAt:      p.CreatedAt,
	}
}

func (s *PromotionService) buildPromotion(input CreatePromotionInput) (*models.Promotion, error) {
	merchantID := strings.TrimSpace(input.MerchantID)
	if merchantID == "" {
		return nil, fmt.Errorf("%w: merchant is required", ErrInvalidPromotion)
	}
	title := strings.TrimSpace(input.Title)
	if title == "" || utf8.RuneCountInString(title) > maxPromotionTitleLen {
		return nil, fmt.Errorf("%w: title must be 1-%d characters", ErrInvalidPromotion, maxPromotionTitleLen)
	}
	if !input.Discount.InRange(constants.DiscountMin, constants.DiscountMax) {
		return nil, fmt.Errorf("%w: discount must be between %d and %d", ErrInvalidPromotion, constants.DiscountMin, constants.DiscountMax)
	}
	if input.TotalSupply < 1 {
		return nil, fmt.Errorf("%w: total supply must be positive", ErrInvalidPromotion)
	}
	if !input.ExpiresAt.After(s.now()) {
		return nil, fmt.Errorf("%w: expiry must be in the future", ErrInvalidPromotion)
	}
	tags := normalizeTags(input.Tags)
	if len(tags) > maxPromotionTags {
		return nil, fmt.Errorf("%w: at most %d tags", ErrInvalidPromotion, maxPromotionTags)
	}

	promotion := &models.Promotion{
		MerchantID:     merchantID,
		Title:          title,
		Description:    strings.TrimSpace(input.Description),
		ImageURL:       strings.TrimSpace(input.ImageURL),
		Tags:           models.StringArray(tags),
		Discount:       input.Discount,
		TotalSupply:    input.TotalSupply,
		ExpiresAt:      input.ExpiresAt.UTC(),
		IssuanceStatus: constants.IssuanceStatusPending,
	}
	if assetRef := strings.TrimSpace(input.AssetRef); assetRef != "" {
		promotion.AssetRef = &assetRef
		promotion.IssuanceStatus = constants.IssuanceStatusIssued
	}
	if metadataURI := strings.TrimSpace(input.MetadataURI); metadataURI != "" {
		promotion.MetadataURI = &metadataURI
	}
	return promotion, nil
}

func normalizeTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}
	return result
}
