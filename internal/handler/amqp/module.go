package amqp

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	wmamqp "github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx"

	"github.com/boq-project/notify-dispatch/config"
	pubsubadapter "github.com/boq-project/notify-dispatch/internal/adapter/pubsub"
)

// Module provides the AMQP consumer and the watermill subscriber it reads
// from.
var Module = fx.Module("amqp-handler",
	fx.Provide(
		NewConsumer,
		NewSubscriber,
		RegisterRouter,
	),
	fx.Invoke(func(*message.Router) {}),
)

// NewSubscriber builds the watermill subscriber bound to QueueNotify with
// this service's durability and qos contract.
func NewSubscriber(cfg *config.Config, logger *slog.Logger) (message.Subscriber, error) {
	amqpCfg := pubsubadapter.NewConsumerConfig(cfg.RabbitMQURI())
	return wmamqp.NewSubscriber(amqpCfg, watermill.NewSlogLogger(logger))
}
