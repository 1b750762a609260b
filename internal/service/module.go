package service

import (
	"log/slog"

	wmamqp "github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx"

	"github.com/boq-project/notify-dispatch/config"
	pubsubadapter "github.com/boq-project/notify-dispatch/internal/adapter/pubsub"
	"github.com/boq-project/notify-dispatch/internal/domain/avatar"
	boqmessage "github.com/boq-project/notify-dispatch/internal/domain/message"
	"github.com/boq-project/notify-dispatch/internal/service/session"
)

// Module provides the Dispatcher and everything it depends on: the avatar
// resolver, the downstream notification publisher and emitter, and the
// stub session authenticator.
var Module = fx.Module("service",
	fx.Provide(
		NewAvatarResolver,
		fx.Annotate(
			func(r *avatar.Resolver) boqmessage.AvatarResolver { return r },
			fx.As(new(boqmessage.AvatarResolver)),
		),
		NewNotificationPublisher,
		NewNotificationEmitter,
		NewDispatcher,
		func() session.Authenticator { return session.StubAuthenticator{} },
	),
)

// NewAvatarResolver constructs the avatar.Resolver from configuration.
func NewAvatarResolver(cfg *config.Config) (*avatar.Resolver, error) {
	salt := ""
	if s := cfg.Secrets(); s != nil {
		salt = s.AvatarSalt
	}
	return avatar.New(avatar.Config{
		GravatarEnabled:    cfg.GravatarEnabled,
		DefaultGravatarURI: cfg.DefaultGravatarURI,
		AvatarSalt:         salt,
		Medium:             cfg.AvatarMedium,
		CacheSize:          cfg.AvatarCacheSize,
	})
}

// NewNotificationPublisher constructs the watermill publisher used to
// fan offline notifications out to the two downstream exchanges.
func NewNotificationPublisher(cfg *config.Config, logger *slog.Logger) (message.Publisher, error) {
	amqpCfg := pubsubadapter.NewPublisherConfig(cfg.RabbitMQURI())
	return wmamqp.NewPublisher(amqpCfg, watermill.NewSlogLogger(logger))
}
