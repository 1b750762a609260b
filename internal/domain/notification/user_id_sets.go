package notification

import "github.com/boq-project/notify-dispatch/internal/domain/types"

// idSet is a membership-only set; the dispatcher never iterates it, so a
// plain map[T]struct{} is preferred over a sorted slice.
type idSet[T comparable] map[T]struct{}

func newIDSet[T comparable](ids []T) idSet[T] {
	s := make(idSet[T], len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s idSet[T]) has(id T) bool {
	_, ok := s[id]
	return ok
}

// UserIdSets bundles the realm-wide membership sets needed to derive
// per-user notification eligibility for one message. It is computed once
// per fan-out (not once per recipient) and handed to NewUserMessageData for
// every recipient in turn.
type UserIdSets struct {
	OnlinePushUserIds                           idSet[types.UserId]
	PMMentionPushDisabledUserIds                idSet[types.UserId]
	PMMentionEmailDisabledUserIds                idSet[types.UserId]
	StreamPushUserIds                           idSet[types.UserId]
	StreamEmailUserIds                          idSet[types.UserId]
	TopicWildcardMentionUserIds                 idSet[types.UserId]
	StreamWildcardMentionUserIds                idSet[types.UserId]
	FollowedTopicPushUserIds                    idSet[types.UserId]
	FollowedTopicEmailUserIds                   idSet[types.UserId]
	TopicWildcardMentionInFollowedTopicUserIds  idSet[types.UserId]
	StreamWildcardMentionInFollowedTopicUserIds idSet[types.UserId]
	MutedSenderUserIds                          idSet[types.UserId]
	AllBotUserIds                               idSet[types.UserId]

	// DisableExternalNotifications is a scalar carried on the event
	// template itself, not a per-user set: when true, nobody in this
	// fan-out receives a push or email notification for the message.
	DisableExternalNotifications bool
}

// NewUserIdSets builds a UserIdSets from plain id slices, the shape the
// AMQP envelope carries them in, plus the disable_external_notifications
// scalar. Any nil slice is treated as empty.
func NewUserIdSets(
	onlinePush, pmPushDisabled, pmEmailDisabled,
	streamPush, streamEmail,
	topicWildcard, streamWildcard,
	followedPush, followedEmail,
	topicWildcardFollowed, streamWildcardFollowed,
	mutedSenders, allBots []types.UserId,
	disableExternalNotifications bool,
) UserIdSets {
	return UserIdSets{
		OnlinePushUserIds:                           newIDSet(onlinePush),
		PMMentionPushDisabledUserIds:                newIDSet(pmPushDisabled),
		PMMentionEmailDisabledUserIds:                newIDSet(pmEmailDisabled),
		StreamPushUserIds:                           newIDSet(streamPush),
		StreamEmailUserIds:                          newIDSet(streamEmail),
		TopicWildcardMentionUserIds:                 newIDSet(topicWildcard),
		StreamWildcardMentionUserIds:                newIDSet(streamWildcard),
		FollowedTopicPushUserIds:                    newIDSet(followedPush),
		FollowedTopicEmailUserIds:                   newIDSet(followedEmail),
		TopicWildcardMentionInFollowedTopicUserIds:  newIDSet(topicWildcardFollowed),
		StreamWildcardMentionInFollowedTopicUserIds: newIDSet(streamWildcardFollowed),
		MutedSenderUserIds:                          newIDSet(mutedSenders),
		AllBotUserIds:                               newIDSet(allBots),
		DisableExternalNotifications:                disableExternalNotifications,
	}
}
