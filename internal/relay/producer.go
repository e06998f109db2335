// Package relay mirrors accepted chat messages to a Kafka topic so other
// systems can consume the room feed. The hub keeps working when the mirror
// fails; publishing is best effort.
package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/Tyrowin/chatroom/internal/chat"
)

// Producer publishes chat messages to one topic, keyed by sender.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   zerolog.Logger
}

// NewProducer connects a synchronous producer to brokers.
func NewProducer(brokers []string, topic string, logger zerolog.Logger) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 3
	cfg.ClientID = "chatroom"

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	logger.Info().Strs("brokers", brokers).Str("topic", topic).Msg("Kafka producer created")

	return NewProducerFrom(producer, topic, logger), nil
}

// NewProducerFrom wraps an existing sarama producer.
func NewProducerFrom(producer sarama.SyncProducer, topic string, logger zerolog.Logger) *Producer {
	return &Producer{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// Publish sends msg as JSON. It returns ctx's error without publishing when
// ctx is already done.
func (p *Producer) Publish(ctx context.Context, msg chat.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(msg.Sender),
		Value:     sarama.ByteEncoder(value),
		Timestamp: msg.SentAt,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}

	p.logger.Debug().
		Str("topic", p.topic).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("Message mirrored")
	return nil
}

// Close flushes and closes the underlying producer.
func (p *Producer) Close() error {
	return p.producer.Close()
}
