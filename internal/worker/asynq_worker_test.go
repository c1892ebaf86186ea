package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/dealmint/internal/queue"
	"github.com/dealmint/internal/service"

	"github.com/hibiken/asynq"
)

type issuerStub struct {
	ids []string
	err error
}

func (s *issuerStub) ProcessIssuance(_ context.Context, promotionID string) error {
	s.ids = append(s.ids, promotionID)
	return s.err
}

func newIssueTask(t *testing.T, id string) *asynq.Task {
	t.Helper()
	task, err := queue.NewPromotionIssueTask(queue.PromotionIssuePayload{PromotionID: id})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	return task
}

func TestHandlePromotionIssueDelegates(t *testing.T) {
	stub := &issuerStub{}
	consumer := NewConsumer(stub)

	if err := consumer.handlePromotionIssue(context.Background(), newIssueTask(t, "p-1")); err != nil {
		t.Fatalf("handle task failed: %v", err)
	}
	if len(stub.ids) != 1 || stub.ids[0] != "p-1" {
		t.Fatalf("unexpected delegated ids: %v", stub.ids)
	}
}

func TestHandlePromotionIssueRetriesTransientFailure(t *testing.T) {
	transient := errors.New("issuer timeout")
	consumer := NewConsumer(&issuerStub{err: transient})

	err := consumer.handlePromotionIssue(context.Background(), newIssueTask(t, "p-1"))
	if !errors.Is(err, transient) {
		t.Fatalf("transient failure should be returned for retry, got %v", err)
	}
}

func TestHandlePromotionIssueSkipsRetryWhenUnrecoverable(t *testing.T) {
	consumer := NewConsumer(&issuerStub{err: service.ErrIssuanceUnavailable})
	if err := consumer.handlePromotionIssue(context.Background(), newIssueTask(t, "p-1")); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}

	bad := asynq.NewTask(queue.TaskPromotionIssue, []byte(`not-json`))
	if err := consumer.handlePromotionIssue(context.Background(), bad); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry for bad payload, got %v", err)
	}
}

func TestRegisterNilSafe(t *testing.T) {
	var consumer *Consumer
	consumer.Register(asynq.NewServeMux())
	NewConsumer(&issuerStub{}).Register(nil)
}
