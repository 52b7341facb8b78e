// internal/notification/channels/kafka.go
package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kprom"
)

// KafkaConfig configures the outbound-message producer.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// outboundMessage is the record consumed by the messaging gateway.
type outboundMessage struct {
	To      string          `json:"to"`
	Payload json.RawMessage `json:"payload"`
	SentAt  time.Time       `json:"sent_at"`
}

// KafkaSender publishes MESSAGE notifications (WhatsApp/SMS) to a topic
// keyed by phone number, so one recipient's messages stay ordered.
type KafkaSender struct {
	client *kgo.Client
	logger *slog.Logger
}

// NewKafkaSender connects a producer. metrics may be nil.
func NewKafkaSender(cfg KafkaConfig, metrics *kprom.Metrics, logger *slog.Logger) (*KafkaSender, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5 * time.Millisecond),
	}
	if metrics != nil {
		opts = append(opts, kgo.WithHooks(metrics))
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("kafka: create producer: %w", err)
	}
	return &KafkaSender{client: client, logger: logger}, nil
}

// Ping checks broker connectivity.
func (s *KafkaSender) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Send produces the message and waits for the broker ack.
func (s *KafkaSender) Send(ctx context.Context, target, payload string) error {
	value, err := encodeOutbound(target, payload)
	if err != nil {
		return err
	}
	record := &kgo.Record{Key: []byte(target), Value: value}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("kafka: produce to %s: %w", target, err)
	}
	return nil
}

// Close flushes and closes the producer.
func (s *KafkaSender) Close() {
	s.client.Close()
}

func encodeOutbound(target, payload string) ([]byte, error) {
	raw := json.RawMessage(payload)
	if !json.Valid(raw) {
		quoted, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("kafka: encode payload: %w", err)
		}
		raw = quoted
	}
	value, err := json.Marshal(outboundMessage{To: target, Payload: raw, SentAt: time.Now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("kafka: encode message: %w", err)
	}
	return value, nil
}
