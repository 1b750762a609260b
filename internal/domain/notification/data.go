package notification

import "github.com/boq-project/notify-dispatch/internal/domain/types"

// UserMessageNotificationsData is the fully-derived notification eligibility
// for one (user, message) pair. Every field is computed once, up front, from
// the message's flags and the fan-out's UserIdSets, so the trigger-selection
// methods below never need to re-derive anything — they only read booleans.
type UserMessageNotificationsData struct {
	UserId types.UserId

	IsBot    bool
	IsMuted  bool
	IsOnline bool

	Sender               bool
	DirectMessage        bool
	Mentioned            bool
	TopicWildcardMention bool
	StreamWildcardMention bool

	TopicWildcardMentionInFollowedTopic  bool
	StreamWildcardMentionInFollowedTopic bool

	OnlinePushEnabled bool

	PMPushNotify   bool
	PMEmailNotify  bool
	StreamPush     bool
	StreamEmail    bool
	FollowedPush   bool
	FollowedEmail  bool

	DisableExternalNotifications bool
}

// NewUserMessageData derives eligibility for one recipient from the
// message's per-user flags and the fan-out-wide UserIdSets. A bot recipient
// short-circuits to a record with only IsBot set and every other boolean
// false: bots never receive push or email notifications regardless of flags.
func NewUserMessageData(
	userID types.UserId,
	senderID types.UserId,
	flags types.MessageFlags,
	isDirectMessage bool,
	sets UserIdSets,
) UserMessageNotificationsData {
	if sets.AllBotUserIds.has(userID) {
		return UserMessageNotificationsData{UserId: userID, IsBot: true}
	}

	d := UserMessageNotificationsData{
		UserId:                       userID,
		IsMuted:                      sets.MutedSenderUserIds.has(userID),
		IsOnline:                     sets.OnlinePushUserIds.has(userID),
		Sender:                       userID == senderID,
		DisableExternalNotifications: sets.DisableExternalNotifications,

		DirectMessage:        isDirectMessage,
		Mentioned:            flags.Has(types.FlagMentioned) || flags.Has(types.FlagActiveMention),
		TopicWildcardMention: flags.Has(types.FlagTopicWildcardMentioned) && sets.TopicWildcardMentionUserIds.has(userID),
		StreamWildcardMention: flags.Has(types.FlagStreamWildcardMentioned) && sets.StreamWildcardMentionUserIds.has(userID),

		TopicWildcardMentionInFollowedTopic:  flags.Has(types.FlagTopicWildcardMentioned) && sets.TopicWildcardMentionInFollowedTopicUserIds.has(userID),
		StreamWildcardMentionInFollowedTopic: flags.Has(types.FlagStreamWildcardMentioned) && sets.StreamWildcardMentionInFollowedTopicUserIds.has(userID),

		OnlinePushEnabled: sets.OnlinePushUserIds.has(userID),

		PMPushNotify:  !sets.PMMentionPushDisabledUserIds.has(userID),
		PMEmailNotify: !sets.PMMentionEmailDisabledUserIds.has(userID),
		StreamPush:    sets.StreamPushUserIds.has(userID),
		StreamEmail:   sets.StreamEmailUserIds.has(userID),
		FollowedPush:  sets.FollowedTopicPushUserIds.has(userID),
		FollowedEmail: sets.FollowedTopicEmailUserIds.has(userID),
	}

	return d
}

// TriviallyShouldNotNotify reports cheap reasons to skip notification
// computation entirely before running trigger selection: bots, the
// message's own sender, a muted sender, or the event's
// disable_external_notifications scalar being set.
func (d UserMessageNotificationsData) TriviallyShouldNotNotify() bool {
	return d.IsBot || d.Sender || d.IsMuted || d.DisableExternalNotifications
}

// PushNotificationTrigger selects the push trigger for this recipient, or
// ("", false) if no push notification should be sent. idle reports whether
// the recipient counts as away (the dispatcher sets it when the recipient
// holds no message-accepting queue or is listed as idle by presence); push
// additionally fires while not idle if OnlinePushEnabled is set.
func (d UserMessageNotificationsData) PushNotificationTrigger(idle bool) (Trigger, bool) {
	if d.TriviallyShouldNotNotify() {
		return "", false
	}
	if !idle && !d.OnlinePushEnabled {
		return "", false
	}

	switch {
	case d.DirectMessage:
		if !d.PMPushNotify {
			return "", false
		}
		return TriggerDirectMessage, true
	case d.Mentioned:
		return TriggerMentioned, true
	case d.TopicWildcardMentionInFollowedTopic:
		return TriggerTopicWildcardMentionInFollowedTopic, true
	case d.StreamWildcardMentionInFollowedTopic:
		return TriggerStreamWildcardMentionInFollowedTopic, true
	case d.TopicWildcardMention:
		return TriggerTopicWildcardMention, true
	case d.StreamWildcardMention:
		return TriggerStreamWildcardMention, true
	case d.FollowedPush:
		return TriggerFollowedTopic, true
	case d.StreamPush:
		return TriggerStream, true
	}
	return "", false
}

// EmailNotificationTrigger selects the email trigger for this recipient, or
// ("", false) if no email notification should be sent. Unlike push, email
// notifications are gated on idle alone — OnlinePushEnabled has no email
// equivalent.
func (d UserMessageNotificationsData) EmailNotificationTrigger(idle bool) (Trigger, bool) {
	if d.TriviallyShouldNotNotify() || !idle {
		return "", false
	}

	switch {
	case d.DirectMessage:
		if !d.PMEmailNotify {
			return "", false
		}
		return TriggerDirectMessage, true
	case d.Mentioned:
		return TriggerMentioned, true
	case d.TopicWildcardMentionInFollowedTopic:
		return TriggerTopicWildcardMentionInFollowedTopic, true
	case d.StreamWildcardMentionInFollowedTopic:
		return TriggerStreamWildcardMentionInFollowedTopic, true
	case d.TopicWildcardMention:
		return TriggerTopicWildcardMention, true
	case d.StreamWildcardMention:
		return TriggerStreamWildcardMention, true
	case d.FollowedEmail:
		return TriggerFollowedTopic, true
	case d.StreamEmail:
		return TriggerStream, true
	}
	return "", false
}
