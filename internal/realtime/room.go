package realtime

import (
	"context"
	"log/slog"
	"time"

	"registration-service/internal/pubsub"
	"registration-service/internal/registration"
)

// Room is the single admin channel. It satisfies registration.Notifier so it
// can be handed to the service directly when there is one instance.
type Room struct {
	broker *pubsub.Broker[registration.Event]
	logger *slog.Logger
	now    func() time.Time
}

func NewRoom(bufferSize int, logger *slog.Logger) *Room {
	return &Room{
		broker: pubsub.NewBrokerWithBuffer[registration.Event](bufferSize),
		logger: logger,
		now:    time.Now,
	}
}

func (r *Room) Name() string { return "admin-room" }

func (r *Room) NotifyCreated(_ context.Context, reg registration.Registration) error {
	r.Broadcast(registration.NewEvent(reg, r.now()))
	return nil
}

// Broadcast delivers ev to every joined member. Members with a full buffer miss it.
func (r *Room) Broadcast(ev registration.Event) {
	delivered, dropped := r.broker.Publish(pubsub.CreatedEvent, ev)
	if dropped > 0 {
		r.logger.Warn("admin room members missed an event",
			"id", ev.ID,
			"delivered", delivered,
			"dropped", dropped,
		)
		return
	}
	r.logger.Debug("broadcast new registration", "id", ev.ID, "delivered", delivered)
}

// Join subscribes until ctx ends.
func (r *Room) Join(ctx context.Context) <-chan pubsub.Event[registration.Event] {
	return r.broker.Subscribe(ctx)
}

func (r *Room) Members() int {
	return r.broker.SubscriberCount()
}

func (r *Room) Close() {
	r.broker.Close()
}
