// Package amqp wires the Dispatcher to the durable upstream queue the
// backend producer publishes notices onto, via a watermill router
// configured with this service's qos and durability contract.
package amqp

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx"

	"github.com/boq-project/notify-dispatch/internal/service"
	"github.com/boq-project/notify-dispatch/internal/shutdown"
)

// QueueNotify is the upstream queue the backend producer publishes every
// notice onto.
const QueueNotify = "notify_queue"

// Dispatcher is the subset of service.Dispatcher the consumer depends on.
type Dispatcher interface {
	ProcessNotice(ctx context.Context, raw []byte) error
}

// Consumer drives notices from QueueNotify through the Dispatcher. It acks
// a delivery only once ProcessNotice returns successfully; a
// DeserializationError is also acked (redelivering malformed bytes cannot
// help), while any other error nacks for redelivery.
type Consumer struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewConsumer constructs a Consumer.
func NewConsumer(d *service.Dispatcher, logger *slog.Logger) *Consumer {
	return &Consumer{dispatcher: d, logger: logger}
}

// Handle is the watermill handler function bound to QueueNotify. A nil
// return acks; a non-nil return nacks and lets watermill's AMQP subscriber
// requeue the delivery.
func (c *Consumer) Handle(msg *message.Message) error {
	err := c.dispatcher.ProcessNotice(msg.Context(), msg.Payload)
	if err == nil {
		return nil
	}

	if service.IsDeserializationError(err) {
		c.logger.ErrorContext(msg.Context(), "consumer: dropping undecodable notice", "err", err, "msg_id", msg.UUID)
		return nil
	}

	c.logger.ErrorContext(msg.Context(), "consumer: notice processing failed, will retry", "err", err, "msg_id", msg.UUID)
	return err
}

// RegisterRouter builds the watermill router, subscribes it to QueueNotify
// through sub, and attaches it to the fx lifecycle. Router run failures
// trip latch so the whole process shuts down rather than running with a
// dead consume loop.
func RegisterRouter(lc fx.Lifecycle, c *Consumer, sub message.Subscriber, logger *slog.Logger, latch *shutdown.Latch) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, err
	}

	router.AddNoPublisherHandler(
		"notify-dispatch.notify_queue",
		QueueNotify,
		sub,
		c.Handle,
	)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			latch.OnError(func() error {
				return router.Run(context.Background())
			})
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return router.Close()
		},
	})

	return router, nil
}
