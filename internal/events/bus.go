package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Bus is the in-process event channel between the workflow engine and the
// notification dispatcher. Publishing never blocks on delivery: the gochannel
// buffer absorbs bursts and the dispatcher consumes on its own goroutines.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger *slog.Logger
}

// NewBus creates the in-process pub/sub with a bounded buffer.
func NewBus(bufferSize int64, logger *slog.Logger) *Bus {
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            bufferSize,
		Persistent:                     false,
		BlockPublishUntilSubscriberAck: false,
	}, watermill.NewSlogLogger(logger))

	return &Bus{pubsub: pubsub, logger: logger}
}

// Publish marshals the event and places it on the submission events topic.
// Per-topic publish order is preserved by the gochannel transport, which is
// what gives the dispatcher its per-submission FIFO guarantee.
func (b *Bus) Publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", event.Type)

	if err := b.pubsub.Publish(TopicSubmissionEvents, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe returns the stream of submission events for a consumer.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, TopicSubmissionEvents)
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}
