package events

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"payment-settlement-go/internal/models"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	TypeSettled = "payment.settled"
	TypeFailed  = "payment.failed"
)

// SettlementEvent is published once per finished settlement attempt.
type SettlementEvent struct {
	Type       string    `json:"type"`
	UserId     string    `json:"user_id"`
	TxHash     string    `json:"tx_hash,omitempty"`
	Batch      bool      `json:"batch"`
	Recipients []string  `json:"recipients,omitempty"`
	TotalWei   string    `json:"total_wei,omitempty"`
	MerchantId string    `json:"merchant_id,omitempty"`
	OrderId    string    `json:"order_id,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// SettledEvent describes committed records sharing one transaction.
func SettledEvent(userId string, records []models.TransactionRecord, now time.Time) SettlementEvent {
	e := SettlementEvent{Type: TypeSettled, UserId: userId, Batch: len(records) > 1, Timestamp: now}
	total := new(big.Int)
	for _, r := range records {
		if amount, ok := new(big.Int).SetString(r.Amount, 10); ok {
			total.Add(total, amount)
		}
		e.Recipients = append(e.Recipients, r.To)
		e.TxHash = r.TxHash
		if r.Merchant != nil {
			e.MerchantId, e.OrderId = r.Merchant.MerchantId, r.Merchant.OrderId
		}
	}
	e.TotalWei = total.String()
	return e
}

// FailedEvent describes an attempt that ended without committed records.
func FailedEvent(userId, txHash, reason string, now time.Time) SettlementEvent {
	return SettlementEvent{Type: TypeFailed, UserId: userId, TxHash: txHash, Error: reason, Timestamp: now}
}

// Publisher emits settlement events for downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event SettlementEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher writes to topic on the comma-separated brokers.
func NewKafkaPublisher(brokers, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(splitBrokers(brokers)...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event SettlementEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal settlement event: %w", err)
	}

	key := event.TxHash
	if key == "" {
		key = event.UserId
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}

	zap.L().Debug("Settlement event published",
		zap.String("type", event.Type),
		zap.String("user_id", event.UserId),
		zap.String("tx_hash", event.TxHash))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops events when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, SettlementEvent) error { return nil }
func (NoopPublisher) Close() error                                   { return nil }

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
