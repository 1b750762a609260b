// Package pubsub adapts the transport-agnostic watermill message.Publisher
// and message.Subscriber interfaces onto a RabbitMQ connection, configured
// to match this service's wire contract: durable queues declared up front,
// a bounded prefetch window, and routing straight through the broker's
// default exchange by queue name rather than a fanout/topic exchange.
package pubsub

import (
	amqp "github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
)

// ConsumerTag is the tag every consumer on this service registers under.
// It is fixed rather than randomized per instance so broker-side
// management tooling can tell at a glance which consumer is ours.
const ConsumerTag = "consumer"

// DefaultPrefetchCount bounds how many unacked deliveries the broker will
// hand this process at once, per the service's qos contract.
const DefaultPrefetchCount = 100

// NewConsumerConfig returns an amqp.Config for subscribing to a durable,
// already-named queue: no exchange binding (the caller names the queue
// directly), durable declare, and the shared prefetch window.
func NewConsumerConfig(amqpURI string) amqp.Config {
	cfg := amqp.NewDurableQueueConfig(amqpURI)
	cfg.Consume.Qos.PrefetchCount = DefaultPrefetchCount
	cfg.Consume.Consumer = ConsumerTag
	return cfg
}

// NewPublisherConfig returns an amqp.Config for publishing to the broker's
// default exchange, routed by queue name, with persistent delivery so a
// broker restart cannot silently drop a pending offline notification.
func NewPublisherConfig(amqpURI string) amqp.Config {
	cfg := amqp.NewDurableQueueConfig(amqpURI)
	cfg.Publish.Mandatory = false
	return cfg
}
