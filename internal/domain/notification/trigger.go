package notification

// Trigger names the reason an offline notification (push or email) is being
// sent for a message. Order matters: selection always walks triggers from
// most to least specific and stops at the first match.
type Trigger string

const (
	TriggerDirectMessage                       Trigger = "direct_message"
	TriggerMentioned                           Trigger = "mentioned"
	TriggerTopicWildcardMentionInFollowedTopic Trigger = "topic_wildcard_mention_in_followed_topic"
	TriggerStreamWildcardMentionInFollowedTopic Trigger = "stream_wildcard_mention_in_followed_topic"
	TriggerTopicWildcardMention                Trigger = "topic_wildcard_mention"
	TriggerStreamWildcardMention                Trigger = "stream_wildcard_mention"
	TriggerFollowedTopic                       Trigger = "followed_topic_email"
	TriggerStream                               Trigger = "stream_email"
)
