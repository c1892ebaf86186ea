package queue

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/dealmint/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskPromotionIssue 活动资产发行任务
	TaskPromotionIssue = constants.TaskPromotionIssue
)

// PromotionIssuePayload 资产发行任务载荷
type PromotionIssuePayload struct {
	PromotionID string `json:"promotion_id"`
}

// NewPromotionIssueTask 创建资产发行任务
func NewPromotionIssueTask(payload PromotionIssuePayload) (*asynq.Task, error) {
	if strings.TrimSpace(payload.PromotionID) == "" {
		return nil, errors.New("promotion id is required")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPromotionIssue, body), nil
}

// ParsePromotionIssuePayload 解析资产发行任务载荷
func ParsePromotionIssuePayload(task *asynq.Task) (PromotionIssuePayload, error) {
	var payload PromotionIssuePayload
	if task == nil {
		return payload, errors.New("task is nil")
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, err
	}
	if strings.TrimSpace(payload.PromotionID) == "" {
		return payload, errors.New("promotion id is required")
	}
	return payload, nil
}
