package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/PabloGalante/farum-engine/internal/domain"
	"github.com/PabloGalante/farum-engine/internal/observability"
)

// Envelope is the wire form of a domain.Event.
type Envelope struct {
	Topic       string          `json:"topic"`
	UserID      domain.UserID   `json:"user_id"`
	PublishedAt time.Time       `json:"published_at"`
	Payload     json.RawMessage `json:"payload"`
}

// Handler consumes one event. Errors are logged, the message is acked anyway.
type Handler func(ctx context.Context, env Envelope) error

// Bus is an in-process pub/sub built on watermill's Go channel transport.
// It implements domain.EventPublisher.
type Bus struct {
	pubsub *gochannel.GoChannel
	wg     sync.WaitGroup
}

func NewBus() *Bus {
	logger := watermill.NewSlogLogger(observability.Logger().With("component", "events"))
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger),
	}
}

func (b *Bus) Publish(ctx context.Context, evt domain.Event) error {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return fault.Wrap(err, fctx.With(ctx), fmsg.With("encoding event payload"))
	}

	body, err := json.Marshal(Envelope{
		Topic:       evt.Topic,
		UserID:      evt.UserID,
		PublishedAt: time.Now().UTC(),
		Payload:     payload,
	})
	if err != nil {
		return fault.Wrap(err, fctx.With(ctx), fmsg.With("encoding event"))
	}

	msg := message.NewMessage(watermill.NewUUID(), body)
	msg.Metadata.Set("user_id", string(evt.UserID))
	if id := observability.RequestIDFromContext(ctx); id != "" {
		msg.Metadata.Set("request_id", id)
	}

	if err := b.pubsub.Publish(evt.Topic, msg); err != nil {
		return fault.Wrap(err, fctx.With(ctx), fmsg.With("publishing "+evt.Topic))
	}
	return nil
}

// Subscribe runs h for every event on topic until ctx is cancelled or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context, topic string, h Handler) error {
	msgs, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return fault.Wrap(err, fctx.With(ctx), fmsg.With("subscribing to "+topic))
	}

	log := observability.LoggerFromContext(ctx).With("topic", topic)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range msgs {
			var env Envelope
			if err := json.Unmarshal(msg.Payload, &env); err != nil {
				log.Warn("dropping malformed event", "message_id", msg.UUID, "error", err)
				msg.Ack()
				continue
			}

			if err := h(msg.Context(), env); err != nil {
				log.Warn("event handler failed", "message_id", msg.UUID, "error", err)
			}
			msg.Ack()
		}
	}()

	return nil
}

// Close stops delivery and waits for the subscriber goroutines.
func (b *Bus) Close() error {
	err := b.pubsub.Close()
	b.wg.Wait()
	return err
}

// LogEvents subscribes an audit logger to the given topics.
func LogEvents(ctx context.Context, b *Bus, topics ...string) error {
	log := observability.LoggerFromContext(ctx)
	for _, topic := range topics {
		err := b.Subscribe(ctx, topic, func(_ context.Context, env Envelope) error {
			log.Info("domain event",
				"topic", env.Topic,
				"user_id", env.UserID,
				"payload", string(env.Payload))
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// AllTopics lists every topic the engine publishes.
var AllTopics = []string{
	domain.TopicCrisisDetected,
	domain.TopicSessionEnded,
	domain.TopicLevelUp,
	domain.TopicAchievementUnlocked,
}
