package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"raffle/pkg/logger"

	"github.com/IBM/sarama"
)

// Publisher delivers ticket events to whoever listens for them
type Publisher interface {
	Publish(ctx context.Context, event *TicketEvent) error
	Close() error
}

// KafkaProducerConfig contains configuration for the Kafka ticket event producer
type KafkaProducerConfig struct {
	Brokers          []string
	TicketTopic      string
	RetryMax         int
	TimeoutMs        int
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
	MaxMessageBytes  int
}

// DefaultKafkaProducerConfig returns a default producer configuration
func DefaultKafkaProducerConfig() *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:          []string{"localhost:9092"},
		TicketTopic:      "ticket-events",
		RetryMax:         3,
		TimeoutMs:        10000,
		RequiredAcks:     sarama.WaitForAll,
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
		MaxMessageBytes:  1000000, // 1MB
	}
}

// SaramaConfig builds the sarama configuration for cfg
func (cfg *KafkaProducerConfig) SaramaConfig() *sarama.Config {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = cfg.RequiredAcks
	saramaConfig.Producer.Compression = cfg.CompressionType
	saramaConfig.Producer.Retry.Max = cfg.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	saramaConfig.Producer.Idempotent = cfg.IdempotentWrites
	saramaConfig.Producer.MaxMessageBytes = cfg.MaxMessageBytes

	// idempotent producer requires a single in-flight request
	if cfg.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	// Hash partitioner keeps a holder's events ordered
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	return saramaConfig
}

// KafkaPublisher publishes ticket events to Kafka
type KafkaPublisher struct {
	producer sarama.SyncProducer
	config   *KafkaProducerConfig
	log      *logger.Logger
}

// NewKafkaPublisher connects a sync producer to the configured brokers
func NewKafkaPublisher(cfg *KafkaProducerConfig) (*KafkaPublisher, error) {
	if cfg == nil {
		cfg = DefaultKafkaProducerConfig()
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka publisher: no brokers configured")
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, cfg.SaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	logger.GetDefault().Info("📤 Kafka ticket event producer created",
		slog.String("brokers", strings.Join(cfg.Brokers, ",")),
		slog.String("topic", cfg.TicketTopic),
	)
	return NewKafkaPublisherWithProducer(producer, cfg), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer (a mock in tests)
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, cfg *KafkaProducerConfig) *KafkaPublisher {
	if cfg == nil {
		cfg = DefaultKafkaProducerConfig()
	}
	return &KafkaPublisher{
		producer: producer,
		config:   cfg,
		log:      logger.GetDefault(),
	}
}

// Publish sends one event and waits for the broker acknowledgement
func (kp *KafkaPublisher) Publish(ctx context.Context, event *TicketEvent) error {
	if event == nil {
		return errors.New("publish: nil event")
	}

	messageBytes, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal ticket event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     kp.config.TicketTopic,
		Key:       sarama.StringEncoder(event.GetPartitionKey()),
		Value:     sarama.ByteEncoder(messageBytes),
		Headers:   kp.createHeaders(event),
		Timestamp: event.OccurredAt,
	}

	partition, offset, err := kp.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send ticket event to Kafka: %w", err)
	}

	kp.log.DebugContext(ctx, "Ticket event published",
		slog.String("topic", kp.config.TicketTopic),
		slog.Int("partition", int(partition)),
		slog.Int64("offset", offset),
		slog.String("type", string(event.Type)),
		slog.String("event_id", event.ID.String()),
	)
	return nil
}

func (kp *KafkaPublisher) createHeaders(event *TicketEvent) []sarama.RecordHeader {
	headers := []sarama.RecordHeader{
		{Key: []byte("event_id"), Value: []byte(event.ID.String())},
		{Key: []byte("event_type"), Value: []byte(event.Type)},
		{Key: []byte("producer"), Value: []byte("raffle-tickets")},
		{Key: []byte("occurred_at"), Value: []byte(event.OccurredAt.Format(time.RFC3339))},
	}

	if event.PaymentID != "" {
		headers = append(headers, sarama.RecordHeader{
			Key:   []byte("payment_id"),
			Value: []byte(event.PaymentID),
		})
	}

	return headers
}

// Close closes the Kafka producer
func (kp *KafkaPublisher) Close() error {
	if kp.producer == nil {
		return nil
	}
	if err := kp.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	kp.log.Info("📤 Kafka ticket event producer closed")
	return nil
}

// NoopPublisher drops every event; used when Kafka is disabled
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *TicketEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
