package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dealmint/internal/constants"

	"github.com/segmentio/kafka-go"
)

type captureWriter struct {
	messages []kafka.Message
	closed   bool
}

func (w *captureWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *captureWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherKeysByPromotion(t *testing.T) {
	writer := &captureWriter{}
	p := newKafkaPublisherWithWriter(writer)

	err := p.Publish(context.Background(), Event{
		Type:        constants.EventCouponRedeemed,
		PromotionID: "promo-1",
		ClaimantID:  "wallet-1",
		AssetRef:    "asset-1",
		NonceFP:     "abcd",
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if len(writer.messages) != 1 {
		t.Fatalf("messages want 1 got %d", len(writer.messages))
	}
	msg := writer.messages[0]
	if string(msg.Key) != "promo-1" {
		t.Fatalf("unexpected key: %s", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != constants.EventCouponRedeemed {
		t.Fatalf("unexpected headers: %+v", msg.Headers)
	}
	var decoded Event
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode payload failed: %v", err)
	}
	if decoded.OccurredAt.IsZero() || decoded.NonceFP != "abcd" {
		t.Fatalf("unexpected payload: %+v", decoded)
	}

	if err := p.Close(); err != nil || !writer.closed {
		t.Fatalf("close failed: %v", err)
	}
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	if err := p.Publish(context.Background(), Event{}); err != nil {
		t.Fatalf("noop publish failed: %v", err)
	}
}
