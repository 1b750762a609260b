// Package service hosts the notice-processing pipeline: the Dispatcher
// that turns one AMQP notice into queue deliveries and offline
// notifications, and the NotificationEmitter it publishes those
// notifications through.
package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/boq-project/notify-dispatch/internal/domain/message"
	"github.com/boq-project/notify-dispatch/internal/domain/notice"
	"github.com/boq-project/notify-dispatch/internal/domain/notification"
	"github.com/boq-project/notify-dispatch/internal/domain/registry"
	"github.com/boq-project/notify-dispatch/internal/domain/types"
)

// Dispatcher implements the notice-processing pipeline: ProcessNotice is
// the single entry point both the AMQP consumer and the HTTP fallback
// route call.
type Dispatcher struct {
	registry *registry.Registry
	avatars  message.AvatarResolver
	emitter  *NotificationEmitter
	logger   *slog.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(reg *registry.Registry, avatars message.AvatarResolver, emitter *NotificationEmitter, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		avatars:  avatars,
		emitter:  emitter,
		logger:   logger,
	}
}

// ProcessNotice decodes raw and routes it to the handler for its event
// type. Only a genuinely undecodable notice returns an error (wrapped as
// *DeserializationError so callers can distinguish "drop, don't retry"
// from every other failure mode, which this method otherwise swallows
// into a log line and still reports success for).
func (d *Dispatcher) ProcessNotice(ctx context.Context, raw []byte) error {
	n, err := notice.Parse(raw)
	if err != nil {
		return NewDeserializationError(err)
	}

	eventType, err := n.EventType()
	if err != nil {
		return NewDeserializationError(err)
	}

	switch eventType {
	case notice.EventTypeMessage:
		return d.processMessageEvent(ctx, n)
	case notice.EventTypeCleanupQueue:
		return d.processCleanupQueue(n)
	case notice.EventTypeUpdateMessage, notice.EventTypeDeleteMessage,
		notice.EventTypePresence, notice.EventTypeCustomProfileFields:
		// Not yet implemented: traced and dropped rather than retried.
		d.logger.DebugContext(ctx, "dispatcher: dropping unimplemented event kind", "type", eventType)
		return nil
	default:
		d.logger.WarnContext(ctx, "dispatcher: unknown event type", "type", eventType)
		return nil
	}
}

func (d *Dispatcher) processCleanupQueue(n notice.Notice) error {
	ev, err := n.DecodeCleanupQueue()
	if err != nil {
		return NewDeserializationError(err)
	}
	d.registry.Remove(ev.QueueId)
	return nil
}

func (d *Dispatcher) processMessageEvent(ctx context.Context, n notice.Notice) error {
	ev, users, err := n.DecodeMessageEvent()
	if err != nil {
		return NewDeserializationError(err)
	}

	wide := ev.Message
	isDirectMessage := wide.RecipientType == "private" || wide.RecipientType == "huddle"

	sets := notification.NewUserIdSets(
		ev.OnlinePushUserIds, ev.PMMentionPushDisabledUserIds, ev.PMMentionEmailDisabledUserIds,
		ev.StreamPushUserIds, ev.StreamEmailUserIds,
		ev.TopicWildcardMentionUserIds, ev.StreamWildcardMentionUserIds,
		ev.FollowedTopicPushUserIds, ev.FollowedTopicEmailUserIds,
		ev.TopicWildcardMentionInFollowedTopicUserIds, ev.StreamWildcardMentionInFollowedTopicUserIds,
		ev.MutedSenderUserIds, ev.AllBotUserIds,
		ev.DisableExternalNotifications,
	)

	presenceIdle := make(map[types.UserId]struct{}, len(ev.PresenceIdle))
	for _, id := range ev.PresenceIdle {
		presenceIdle[id] = struct{}{}
	}

	flavorCache := make(map[message.MessageFlavor]message.Message)
	processed := make(map[types.UserId]struct{}, len(users.Entries))

	for _, entry := range users.Entries {
		d.enqueueMessageToClient(ctx, wide, entry, sets, isDirectMessage, presenceIdle, flavorCache)
		processed[entry.Id] = struct{}{}
	}

	// Realm-wide public-stream fan-out: every queue subscribed to "all
	// streams" in this realm gets the message too, unless it was already
	// handled above or the stream is invite-only (invite-only visibility
	// is resolved per-recipient, never realm-wide).
	if wide.StreamId != nil && !wide.InviteOnly {
		for _, q := range d.registry.QueuesForRealmAllStreams(wide.RealmId) {
			if _, done := processed[q.UserId]; done {
				continue
			}
			d.enqueueMessageToClient(ctx, wide, notice.UserRecipientEntry{Id: q.UserId}, sets, isDirectMessage, presenceIdle, flavorCache)
			processed[q.UserId] = struct{}{}
		}
	}

	return nil
}

// enqueueMessageToClient delivers one message to every queue belonging to
// entry.Id and, once per recipient, decides whether an offline
// notification is owed.
func (d *Dispatcher) enqueueMessageToClient(
	ctx context.Context,
	wide message.WideMessage,
	entry notice.UserRecipientEntry,
	sets notification.UserIdSets,
	isDirectMessage bool,
	presenceIdle map[types.UserId]struct{},
	flavorCache map[message.MessageFlavor]message.Message,
) {
	for _, q := range d.registry.QueuesForUser(entry.Id) {
		if !q.AcceptsMessages {
			continue
		}
		if wide.Sender.IsMirrorDummy && strings.EqualFold(q.ClientTypeName, wide.SendingClientTypeName) {
			// Anti-mirror-loop guard: don't echo a mirrored message back to
			// the bridge that just relayed it.
			continue
		}

		flavor := message.MessageFlavor{ApplyMarkdown: q.ApplyMarkdown, ClientGravatar: q.ClientGravatar}
		msg, ok := flavorCache[flavor]
		if !ok {
			msg = message.Finalize(wide, flavor, d.avatars)
			flavorCache[flavor] = msg
		}
		msgCopy := msg
		msgCopy.InviteOnlyStream = message.InviteOnlyStreamFlag(wide, q.ClientTypeName)

		if !q.AcceptsEvent(&msgCopy, wide.SenderId) {
			continue
		}
		q.Push(&msgCopy)
	}

	_, idleByPresence := presenceIdle[entry.Id]
	d.maybeEnqueueNotifications(ctx, wide, entry, sets, isDirectMessage, idleByPresence)
}

// maybeEnqueueNotifications derives this recipient's notification
// eligibility and, for each of push and email independently, emits an
// offline notification if a trigger fired.
func (d *Dispatcher) maybeEnqueueNotifications(
	ctx context.Context,
	wide message.WideMessage,
	entry notice.UserRecipientEntry,
	sets notification.UserIdSets,
	isDirectMessage bool,
	idleByPresence bool,
) {
	idle := d.receiverIsOffZulip(entry.Id) || idleByPresence
	data := notification.NewUserMessageData(entry.Id, wide.SenderId, entry.Flags, isDirectMessage, sets)

	if trigger, ok := data.PushNotificationTrigger(idle); ok {
		d.emitter.EmitPush(ctx, entry.Id, wide.Id, trigger, entry.MentionedUserGroupId)
	}
	if trigger, ok := data.EmailNotificationTrigger(idle); ok {
		d.emitter.EmitEmail(ctx, entry.Id, wide.Id, trigger, entry.MentionedUserGroupId)
	}
}

// receiverIsOffZulip reports whether userID currently holds no queue that
// accepts message events — the dispatcher's notion of "offline" for
// notification-gating purposes, backed directly by the registry rather
// than any separate presence subsystem. A user with queues subscribed only
// to non-message events still counts as off-Zulip.
func (d *Dispatcher) receiverIsOffZulip(userID types.UserId) bool {
	return !d.registry.HasMessageQueue(userID)
}
