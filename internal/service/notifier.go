package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sony/gobreaker/v2"

	"github.com/boq-project/notify-dispatch/internal/domain/notification"
	"github.com/boq-project/notify-dispatch/internal/domain/types"
)

const (
	// TopicMissedMessageMobilePush is the downstream queue mobile push
	// workers consume from.
	TopicMissedMessageMobilePush = "missedmessage_mobile_notifications"
	// TopicMissedMessageEmail is the downstream queue the email digest
	// worker consumes from.
	TopicMissedMessageEmail = "missedmessage_emails"
)

// pushNoticePayload is the envelope published to the mobile push exchange.
// The "add" type tag matches the shape a push bouncer also uses for
// removal notices on the same topic, even though this dispatcher only ever
// emits additions.
type pushNoticePayload struct {
	Type                  string                `json:"type"`
	UserProfileId         types.UserId          `json:"user_profile_id"`
	MessageId             types.MessageId       `json:"message_id"`
	Trigger               notification.Trigger  `json:"trigger"`
	MentionedUserGroupId  *types.UserGroupId    `json:"mentioned_user_group_id,omitempty"`
}

// emailNoticePayload is the envelope published to the email digest
// exchange. Unlike the push envelope it carries no type tag: the email
// worker only ever consumes one kind of message from this topic.
type emailNoticePayload struct {
	UserProfileId        types.UserId         `json:"user_profile_id"`
	MessageId            types.MessageId      `json:"message_id"`
	Trigger              notification.Trigger `json:"trigger"`
	MentionedUserGroupId *types.UserGroupId   `json:"mentioned_user_group_id,omitempty"`
}

// NotificationEmitter publishes offline-notification envelopes to the two
// downstream exchanges. Every publish is fire-and-forget from the
// dispatcher's perspective: a failure here must never abort or delay
// fan-out to the rest of a message's recipients, so every error is
// swallowed into a log line after being given the chance to trip the
// circuit breaker.
type NotificationEmitter struct {
	publisher message.Publisher
	logger    *slog.Logger

	pushBreaker  *gobreaker.CircuitBreaker[any]
	emailBreaker *gobreaker.CircuitBreaker[any]
}

// NewNotificationEmitter constructs a NotificationEmitter. Each downstream
// topic gets its own breaker so a wedged mobile-push pipeline doesn't trip
// email delivery, and vice versa.
func NewNotificationEmitter(publisher message.Publisher, logger *slog.Logger) *NotificationEmitter {
	settings := func(name string) gobreaker.Settings {
		return gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    30 * time.Second,
			Timeout:     15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		}
	}
	return &NotificationEmitter{
		publisher:    publisher,
		logger:       logger,
		pushBreaker:  gobreaker.NewCircuitBreaker[any](settings("missedmessage-push")),
		emailBreaker: gobreaker.NewCircuitBreaker[any](settings("missedmessage-email")),
	}
}

// EmitPush publishes a mobile push notification envelope.
func (n *NotificationEmitter) EmitPush(ctx context.Context, userID types.UserId, msgID types.MessageId, trigger notification.Trigger, mentionedUserGroupId *types.UserGroupId) {
	payload := pushNoticePayload{
		Type:                 "add",
		UserProfileId:        userID,
		MessageId:            msgID,
		Trigger:              trigger,
		MentionedUserGroupId: mentionedUserGroupId,
	}
	n.emit(ctx, n.pushBreaker, TopicMissedMessageMobilePush, userID, payload)
}

// EmitEmail publishes an email digest notification envelope.
func (n *NotificationEmitter) EmitEmail(ctx context.Context, userID types.UserId, msgID types.MessageId, trigger notification.Trigger, mentionedUserGroupId *types.UserGroupId) {
	payload := emailNoticePayload{
		UserProfileId:        userID,
		MessageId:            msgID,
		Trigger:              trigger,
		MentionedUserGroupId: mentionedUserGroupId,
	}
	n.emit(ctx, n.emailBreaker, TopicMissedMessageEmail, userID, payload)
}

func (n *NotificationEmitter) emit(ctx context.Context, breaker *gobreaker.CircuitBreaker[any], topic string, userID types.UserId, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.ErrorContext(ctx, "notifier: failed to marshal payload", "err", err, "topic", topic)
		return
	}

	_, err = breaker.Execute(func() (any, error) {
		msg := message.NewMessage(watermill.NewUUID(), body)
		msg.SetContext(ctx)
		return nil, n.publisher.Publish(topic, msg)
	})
	if err != nil {
		n.logger.ErrorContext(ctx, "notifier: publish failed, notification dropped", "err", err, "topic", topic, "user_id", userID)
	}
}
