// Package events 领域事件发布；失败只记日志，不影响主流程。
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"adaayien/internal/core/config"
)

const (
	UserRegistered    = "user.registered"
	UserVerified      = "user.verified"
	FabricCreated     = "fabric.created"
	FabricDeleted     = "fabric.deleted"
	AdminPostFeatured = "admin.post_featured"
	AdminPostDeleted  = "admin.post_deleted"
)

type Event struct {
	Type    string         `json:"type"`
	Key     string         `json:"key"` // 分区键，一般是实体 id
	At      time.Time      `json:"at"`
	Payload map[string]any `json:"payload,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event)
	Close() error
}

func New(cfg config.Events, l *zap.Logger) Publisher {
	l = l.Named("events")
	if len(cfg.Brokers) == 0 {
		return &Log{l: l}
	}
	return NewKafka(cfg.Brokers, cfg.Topic, l)
}

// Log 未配置 broker 时只写日志
type Log struct{ l *zap.Logger }

func NewLog(l *zap.Logger) *Log { return &Log{l: l} }

func (p *Log) Publish(_ context.Context, e Event) {
	p.l.Info("event", zap.String("type", e.Type), zap.String("key", e.Key), zap.Any("payload", e.Payload))
}

func (p *Log) Close() error { return nil }

type Kafka struct {
	w *kafka.Writer
	l *zap.Logger
}

func NewKafka(brokers []string, topic string, l *zap.Logger) *Kafka {
	return &Kafka{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			BatchTimeout:           10 * time.Millisecond,
			WriteTimeout:           5 * time.Second,
			AllowAutoTopicCreation: true,
		},
		l: l,
	}
}

func (p *Kafka) Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	b, err := json.Marshal(e)
	if err != nil {
		p.l.Warn("event marshal failed", zap.String("type", e.Type), zap.Error(err))
		return
	}
	msg := kafka.Message{
		Key:     []byte(e.Key),
		Value:   b,
		Headers: []kafka.Header{{Key: "type", Value: []byte(e.Type)}},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		p.l.Warn("event publish failed", zap.String("type", e.Type), zap.String("key", e.Key), zap.Error(err))
	}
}

func (p *Kafka) Close() error { return p.w.Close() }
