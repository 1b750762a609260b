// Package notice decodes the AMQP envelope the backend producer publishes
// onto the upstream notify queue: a tagged event body plus a recipient list
// whose shape depends on the event's own vintage.
package notice

import (
	"encoding/json"
	"fmt"

	"github.com/boq-project/notify-dispatch/internal/domain/message"
	"github.com/boq-project/notify-dispatch/internal/domain/types"
)

// Notice is the raw envelope as it arrives on the wire: {"event": ..,
// "users": ..}. Both fields are kept as raw JSON until the event's own
// "type" tag is known, because the correct shape for "users" depends on it
// — a plain event needs no such decision deferred, but a recipient list
// only decodes correctly once we know whether we're looking at the current
// per-recipient-flags shape or the legacy bare-id-list shape.
type Notice struct {
	Event json.RawMessage `json:"event"`
	Users json.RawMessage `json:"users"`
}

// Parse decodes the outer envelope without touching either raw field.
func Parse(raw []byte) (Notice, error) {
	var n Notice
	if err := json.Unmarshal(raw, &n); err != nil {
		return Notice{}, fmt.Errorf("notice: malformed envelope: %w", err)
	}
	return n, nil
}

// eventTag is the minimal shape every event body carries, used only to
// decide how to decode the rest of Event and Users.
type eventTag struct {
	Type string `json:"type"`
}

// EventType peeks at the event's "type" field without decoding the rest of
// the body.
func (n Notice) EventType() (string, error) {
	var tag eventTag
	if err := json.Unmarshal(n.Event, &tag); err != nil {
		return "", fmt.Errorf("notice: malformed event tag: %w", err)
	}
	return tag.Type, nil
}

const (
	EventTypeMessage              = "message"
	EventTypeUpdateMessage        = "update_message"
	EventTypeDeleteMessage        = "delete_message"
	EventTypePresence             = "presence"
	EventTypeCustomProfileFields  = "custom_profile_fields"
	EventTypeCleanupQueue         = "cleanup_queue"
)

// UserRecipientEntry is one recipient under the current "users" shape: a
// user id plus the per-user flags and mention bookkeeping the backend has
// already computed for this message.
type UserRecipientEntry struct {
	Id                   types.UserId        `json:"id"`
	Flags                types.MessageFlags  `json:"flags"`
	MentionedUserGroupId *types.UserGroupId  `json:"mentioned_user_group_id,omitempty"`
}

// MessageUsers is the deferred-decoded "users" field of a message event. It
// is an untagged union on the wire: either a list of UserRecipientEntry
// objects (current shape) or a bare list of integer user ids (legacy
// shape, pre-dating per-recipient flags). Decode tries the current shape
// first and falls back to the legacy shape only on a type mismatch.
type MessageUsers struct {
	Entries []UserRecipientEntry
	Legacy  bool
}

func (u *MessageUsers) UnmarshalJSON(data []byte) error {
	var current []UserRecipientEntry
	if err := json.Unmarshal(data, &current); err == nil {
		u.Entries = current
		u.Legacy = false
		return nil
	}

	var legacyIds []types.UserId
	if err := json.Unmarshal(data, &legacyIds); err != nil {
		return fmt.Errorf("notice: users field matches neither current nor legacy shape: %w", err)
	}
	u.Entries = make([]UserRecipientEntry, len(legacyIds))
	for i, id := range legacyIds {
		u.Entries[i] = UserRecipientEntry{Id: id}
	}
	u.Legacy = true
	return nil
}

// MessageEvent is the decoded body of an EventTypeMessage notice: the
// message itself plus the realm-wide UserIdSets membership needed to
// derive notification eligibility for each recipient. Each field decodes
// from the single JSON name in its tag; alternate spellings of the same key
// (for example dm_mention_* for pm_mention_*, or topic for subject) are not
// read.
type MessageEvent struct {
	Type    string             `json:"type"`
	Message message.WideMessage `json:"message"`

	OnlinePushUserIds                           []types.UserId `json:"online_push_user_ids"`
	PMMentionPushDisabledUserIds                []types.UserId `json:"pm_mention_push_disabled_user_ids"`
	PMMentionEmailDisabledUserIds                []types.UserId `json:"pm_mention_email_disabled_user_ids"`
	StreamPushUserIds                           []types.UserId `json:"stream_push_user_ids"`
	StreamEmailUserIds                          []types.UserId `json:"stream_email_user_ids"`
	TopicWildcardMentionUserIds                 []types.UserId `json:"topic_wildcard_mention_user_ids"`
	StreamWildcardMentionUserIds                []types.UserId `json:"stream_wildcard_mention_user_ids"`
	FollowedTopicPushUserIds                    []types.UserId `json:"followed_topic_push_user_ids"`
	FollowedTopicEmailUserIds                   []types.UserId `json:"followed_topic_email_user_ids"`
	TopicWildcardMentionInFollowedTopicUserIds  []types.UserId `json:"topic_wildcard_mention_in_followed_topic_user_ids"`
	StreamWildcardMentionInFollowedTopicUserIds []types.UserId `json:"stream_wildcard_mention_in_followed_topic_user_ids"`
	MutedSenderUserIds                          []types.UserId `json:"muted_sender_user_ids"`
	AllBotUserIds                               []types.UserId `json:"all_bot_user_ids"`

	// PresenceIdle lists recipients the producer already determined to be
	// idle via presence tracking, independent of whether they currently
	// hold an open queue. A recipient is idle if either this membership or
	// the registry's off-Zulip check says so.
	PresenceIdle []types.UserId `json:"presence_idle_user_ids,omitempty"`

	// DisableExternalNotifications is a scalar on the event template: when
	// true, nobody in this fan-out gets a push or email notification for
	// the message, regardless of any other trigger.
	DisableExternalNotifications bool `json:"disable_external_notifications,omitempty"`
}

// DecodeMessageEvent decodes Event as a MessageEvent and Users under its
// matching shape.
func (n Notice) DecodeMessageEvent() (*MessageEvent, *MessageUsers, error) {
	var ev MessageEvent
	if err := json.Unmarshal(n.Event, &ev); err != nil {
		return nil, nil, fmt.Errorf("notice: malformed message event: %w", err)
	}

	var users MessageUsers
	if len(n.Users) > 0 {
		if err := json.Unmarshal(n.Users, &users); err != nil {
			return nil, nil, fmt.Errorf("notice: malformed users field: %w", err)
		}
	}
	return &ev, &users, nil
}

// CleanupQueueEvent is the payload naming a single queue to remove from the
// registry.
type CleanupQueueEvent struct {
	Type    string         `json:"type"`
	QueueId types.QueueId  `json:"queue_id"`
	UserId  types.UserId   `json:"user_id"`
}

// DecodeCleanupQueue decodes Event as a CleanupQueueEvent.
func (n Notice) DecodeCleanupQueue() (*CleanupQueueEvent, error) {
	var ev CleanupQueueEvent
	if err := json.Unmarshal(n.Event, &ev); err != nil {
		return nil, fmt.Errorf("notice: malformed cleanup_queue event: %w", err)
	}
	return &ev, nil
}
