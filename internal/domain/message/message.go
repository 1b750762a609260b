// Package message models the wire-format message payload as it travels
// from the backend producer through the dispatcher to per-client event
// queues, including the per-client "flavor" transform (markdown vs.
// pre-rendered HTML, gravatar URL strategy) applied at fan-out time.
package message

import (
	"strings"
	"time"

	"github.com/boq-project/notify-dispatch/internal/domain/types"
)

// SenderInfo carries the subset of sender identity needed to materialize a
// client-facing message: display name, email (subject to realm visibility
// policy), and avatar inputs.
type SenderInfo struct {
	UserId        types.UserId `json:"id"`
	FullName      string       `json:"full_name"`
	DeliveryEmail string       `json:"delivery_email"`
	AvatarSource  string       `json:"avatar_source"` // "G" gravatar, "U" user-uploaded
	AvatarVersion int          `json:"avatar_version"`
	IsMirrorDummy bool         `json:"is_mirror_dummy"`
}

// WideMessage is the realm-wide, not-yet-flavored representation of a
// message as the backend producer emits it: one copy per message,
// regardless of how many recipients or client flavors will consume it.
type WideMessage struct {
	Id              types.MessageId `json:"id"`
	SenderId        types.UserId    `json:"sender_id"`
	Sender          SenderInfo      `json:"sender"`
	RealmId         types.RealmId   `json:"realm_id"`
	StreamId        *int64          `json:"stream_id,omitempty"` // nil for direct messages
	InviteOnly      bool            `json:"invite_only"`
	Topic           string          `json:"subject"`
	ContentHTML     string          `json:"content"`
	ContentMarkdown string          `json:"content_markdown"`
	Timestamp       time.Time       `json:"timestamp"`
	RecipientType   string          `json:"type"` // "stream", "private", "huddle"
	IsMeMessage     bool            `json:"is_me_message"`

	// SendingClientTypeName is the client_type name the sender posted
	// through, e.g. "zephyr_mirror". It is only meaningful in combination
	// with Sender.IsMirrorDummy and exists solely to prevent delivering a
	// mirrored message back to the mirror bridge that relayed it.
	SendingClientTypeName string `json:"client"`

	// SenderEmailAddressVisibility controls whether the sender's delivery
	// email is forwarded to recipients at all, which in turn forces
	// client_gravatar off in every materialized payload: a client can't
	// compute a gravatar hash for an email it was never given.
	SenderEmailAddressVisibility EmailVisibility `json:"sender_email_address_visibility"`
}

// MessageFlavor is the 2-bit cache key distinguishing client-visible
// renderings of the same WideMessage: whether content is pre-rendered to
// HTML (apply_markdown) and whether the client wants the server to resolve
// gravatar URLs itself (client_gravatar).
type MessageFlavor struct {
	ApplyMarkdown  bool
	ClientGravatar bool
}

// Message is one client-flavored materialization of a WideMessage, ready to
// be placed into a recipient's event queue.
type Message struct {
	Id            types.MessageId
	SenderId      types.UserId
	SenderFullName string
	SenderEmail   string
	AvatarURL     *string
	StreamId      *int64
	Topic         string
	Content       string
	IsHTML        bool
	Timestamp     time.Time
	RecipientType string

	// InviteOnlyStream is set per receiving queue, never cached as part of
	// the flavor-shared payload: true iff the queue's client_type_name
	// contains "mirror" and the message came from an invite-only stream.
	// It exists purely so Zephyr-mirroring bots know not to republish.
	InviteOnlyStream bool `json:"invite_only_stream,omitempty"`
}

// AvatarResolver resolves a display avatar URL for a sender under a given
// flavor. Implementations decide gravatar vs. uploaded-avatar policy; see
// the avatar package for the concrete implementation.
type AvatarResolver interface {
	Resolve(sender SenderInfo, realmID types.RealmId, clientGravatar bool) *string
}

// EmailVisibility controls whether SenderEmail is populated verbatim or
// left empty.
type EmailVisibility int

const (
	EmailVisibilityEveryone EmailVisibility = iota
	EmailVisibilityRestricted
)

// Finalize materializes a Message for one flavor of a WideMessage. It is
// pure given its inputs, which lets callers memoize it per MessageFlavor
// within a single fan-out instead of recomputing per recipient. Finalize
// only applies the flavor and the sender's email visibility policy; it does
// no recipient filtering, and the caller applies each queue's narrow to the
// returned Message afterwards.
func Finalize(wide WideMessage, flavor MessageFlavor, avatars AvatarResolver) Message {
	content := wide.ContentMarkdown
	if flavor.ApplyMarkdown {
		content = wide.ContentHTML
	}

	// A client can't compute a gravatar hash for an email it was never
	// given, so restricted visibility forces the server-computed path
	// regardless of what the client asked for.
	clientGravatar := flavor.ClientGravatar && wide.SenderEmailAddressVisibility == EmailVisibilityEveryone
	avatarURL := avatars.Resolve(wide.Sender, wide.RealmId, clientGravatar)

	email := wide.Sender.DeliveryEmail
	if wide.SenderEmailAddressVisibility != EmailVisibilityEveryone {
		email = ""
	}

	return Message{
		Id:             wide.Id,
		SenderId:       wide.SenderId,
		SenderFullName: wide.Sender.FullName,
		SenderEmail:    email,
		AvatarURL:      avatarURL,
		StreamId:       wide.StreamId,
		Topic:          wide.Topic,
		Content:        content,
		IsHTML:         flavor.ApplyMarkdown,
		Timestamp:      wide.Timestamp,
		RecipientType:  wide.RecipientType,
	}
}

// InviteOnlyStreamFlag reports the invite_only_stream value a receiving
// queue's Message record should carry: true iff the queue's
// client_type_name contains "mirror" and wide came from an invite-only
// stream. It is metadata only, computed per queue, never a delivery gate —
// per-recipient visibility into an invite-only stream is the backend
// producer's decision, already reflected in who is listed as a recipient.
func InviteOnlyStreamFlag(wide WideMessage, clientTypeName string) bool {
	return wide.InviteOnly && strings.Contains(strings.ToLower(clientTypeName), "mirror")
}
