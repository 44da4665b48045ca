package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"registration-service/internal/metrics"
	"registration-service/internal/registration"

	"github.com/nats-io/nats.go"
)

// Connect opens a NATS connection that reconnects indefinitely and logs
// connection state changes.
func Connect(url, name string, logger *slog.Logger) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
}

// Producer publishes new registrations to NATS so every instance can
// forward them to its local admin room.
type Producer struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
	now     func() time.Time
}

func NewProducer(conn *nats.Conn, subject string, logger *slog.Logger) *Producer {
	logger.Info("NATS producer initialized", "subject", subject)

	return &Producer{
		conn:    conn,
		subject: subject,
		logger:  logger,
		now:     time.Now,
	}
}

func (p *Producer) Name() string { return "nats" }

// NotifyCreated hands the event to the client's outbound buffer and returns.
func (p *Producer) NotifyCreated(_ context.Context, reg registration.Registration) error {
	data, err := json.Marshal(registration.NewEvent(reg, p.now()))
	if err != nil {
		return err
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		return err
	}

	p.logger.Debug("new registration published to NATS", "subject", p.subject, "id", reg.ID)
	return nil
}

// Broadcaster is the local fan-out target of consumed events.
type Broadcaster interface {
	Broadcast(ev registration.Event)
}

type Consumer struct {
	conn    *nats.Conn
	sub     *nats.Subscription
	subject string
	target  Broadcaster
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewConsumer(conn *nats.Conn, subject string, target Broadcaster, logger *slog.Logger, m *metrics.Metrics) *Consumer {
	return &Consumer{
		conn:    conn,
		subject: subject,
		target:  target,
		logger:  logger,
		metrics: m,
	}
}

// Start subscribes and returns once the subscription is registered with the server.
func (c *Consumer) Start() error {
	sub, err := c.conn.Subscribe(c.subject, func(msg *nats.Msg) {
		start := time.Now()

		var ev registration.Event
		err := json.Unmarshal(msg.Data, &ev)
		if err == nil && ev.ID == "" {
			err = errMissingID
		}
		c.metrics.RecordNotification(context.Background(), "nats-consumer", time.Since(start), err)
		if err != nil {
			c.logger.Error("dropping undecodable registration event", "subject", msg.Subject, "error", err)
			return
		}

		c.target.Broadcast(ev)
	})
	if err != nil {
		return err
	}
	if err := c.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return err
	}

	c.sub = sub
	c.logger.Info("NATS consumer started", "subject", c.subject)
	return nil
}

func (c *Consumer) Close() error {
	if c.sub != nil {
		return c.sub.Unsubscribe()
	}
	return nil
}

// HealthCheck verifies NATS connection is healthy
func (c *Consumer) HealthCheck() error {
	if c.conn == nil {
		return nats.ErrConnectionClosed
	}

	if !c.conn.IsConnected() {
		return nats.ErrDisconnected
	}

	return nil
}
