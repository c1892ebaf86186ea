package worker

import (
	"context"
	"errors"

	"github.com/dealmint/internal/logger"
	"github.com/dealmint/internal/queue"
	"github.com/dealmint/internal/service"

	"github.com/hibiken/asynq"
)

// PromotionIssuer 资产发行处理接口
type PromotionIssuer interface {
	ProcessIssuance(ctx context.Context, promotionID string) error
}

// Consumer 异步任务消费者
type Consumer struct {
	promotions PromotionIssuer
}

// NewConsumer 创建消费者
func NewConsumer(promotions PromotionIssuer) *Consumer {
	return &Consumer{promotions: promotions}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskPromotionIssue, c.handlePromotionIssue)
}

func (c *Consumer) handlePromotionIssue(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.promotions == nil || task == nil {
		logger.Debugw("worker_promotion_issue_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParsePromotionIssuePayload(task)
	if err != nil {
		logger.Warnw("worker_promotion_issue_invalid_payload", "error", err)
		return asynq.SkipRetry
	}
	if err := c.promotions.ProcessIssuance(ctx, payload.PromotionID); err != nil {
		if errors.Is(err, service.ErrIssuanceUnavailable) {
			logger.Errorw("worker_promotion_issue_no_issuer", "promotion_id", payload.PromotionID)
			return asynq.SkipRetry
		}
		logger.Warnw("worker_promotion_issue_failed", "promotion_id", payload.PromotionID, "error", err)
		return err
	}
	return nil
}
