// Package events 发布领取与核销领域事件。
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dealmint/internal/logger"

	"github.com/segmentio/kafka-go"
)

// Event 领域事件，nonce 仅以指纹形式出现
type Event struct {
	Type        string    `json:"type"`
	PromotionID string    `json:"promotion_id"`
	ClaimantID  string    `json:"claimant_id"`
	AssetRef    string    `json:"asset_ref"`
	NonceFP     string    `json:"nonce_fp,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher 事件发布接口
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NoopPublisher 未启用事件时使用
type NoopPublisher struct{}

// Publish 丢弃事件
func (NoopPublisher) Publish(context.Context, Event) error { return nil }

// Close 无资源需要释放
func (NoopPublisher) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher 以 promotion_id 为 key 写入 Kafka，保证同一活动内有序
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher 创建异步 Kafka 发布者
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		Async:                  true,
		AllowAutoTopicCreation: true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warnw("event_publish_failed", "topic", topic, "count", len(messages), "error", err)
			}
		},
	}
	return &KafkaPublisher{writer: writer}
}

func newKafkaPublisherWithWriter(writer messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// Publish 序列化并写入事件
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.PromotionID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	})
}

// Close 刷新并关闭 writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
