package relay

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatroom/internal/chat"
)

func sampleMessage() chat.Message {
	return chat.Message{
		Sender: "Ana",
		Body:   "oi",
		SentAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

// TestPublishSendsJSON checks the payload written to the topic.
func TestPublishSendsJSON(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got chat.Message
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if !got.SameAs(sampleMessage()) {
			return errors.New("unexpected message payload")
		}
		return nil
	})

	producer := NewProducerFrom(mock, "chat-messages", zerolog.Nop())
	require.NoError(t, producer.Publish(context.Background(), sampleMessage()))
	require.NoError(t, producer.Close())
}

// TestPublishWrapsFailure surfaces broker errors to the caller.
func TestPublishWrapsFailure(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	producer := NewProducerFrom(mock, "chat-messages", zerolog.Nop())
	err := producer.Publish(context.Background(), sampleMessage())

	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, producer.Close())
}

// TestPublishCancelledContext skips publishing once the context is done.
func TestPublishCancelledContext(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	producer := NewProducerFrom(mock, "chat-messages", zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, producer.Publish(ctx, sampleMessage()), context.Canceled)
	require.NoError(t, producer.Close())
}
