package message

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boq-project/notify-dispatch/internal/domain/types"
)

type constAvatars struct{ url *string }

func (c constAvatars) Resolve(sender SenderInfo, realmID types.RealmId, clientGravatar bool) *string {
	return c.url
}

func TestFinalize_AppliesMarkdownFlavor(t *testing.T) {
	wide := WideMessage{
		Id:              1,
		SenderId:        9,
		Sender:          SenderInfo{UserId: 9, FullName: "Alice", DeliveryEmail: "alice@example.com"},
		RealmId:         5,
		Topic:           "general",
		ContentHTML:     "<p>hi</p>",
		ContentMarkdown: "hi",
		Timestamp:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		RecipientType:   "stream",
	}

	rendered := Finalize(wide, MessageFlavor{ApplyMarkdown: true}, constAvatars{})
	assert.Equal(t, "<p>hi</p>", rendered.Content)
	assert.True(t, rendered.IsHTML)

	raw := Finalize(wide, MessageFlavor{ApplyMarkdown: false}, constAvatars{})
	assert.Equal(t, "hi", raw.Content)
	assert.False(t, raw.IsHTML)
}

func TestFinalize_RestrictedVisibilityHidesEmail(t *testing.T) {
	wide := WideMessage{
		Sender:                       SenderInfo{DeliveryEmail: "alice@example.com"},
		SenderEmailAddressVisibility: EmailVisibilityRestricted,
	}
	got := Finalize(wide, MessageFlavor{}, constAvatars{})
	assert.Empty(t, got.SenderEmail)

	wide.SenderEmailAddressVisibility = EmailVisibilityEveryone
	visible := Finalize(wide, MessageFlavor{}, constAvatars{})
	assert.Equal(t, "alice@example.com", visible.SenderEmail)
}

func TestFinalize_RestrictedVisibilityForcesGravatarOff(t *testing.T) {
	url := "https://example.com/a.png"
	wide := WideMessage{
		Sender:                       SenderInfo{},
		SenderEmailAddressVisibility: EmailVisibilityRestricted,
	}

	var seen bool
	got := Finalize(wide, MessageFlavor{ClientGravatar: true}, recordingAvatars{url: &url, saw: &seen})
	require.NotNil(t, got.AvatarURL)
	assert.False(t, seen, "client_gravatar must be forced off when visibility isn't Everyone")
}

type recordingAvatars struct {
	url *string
	saw *bool
}

func (r recordingAvatars) Resolve(sender SenderInfo, realmID types.RealmId, clientGravatar bool) *string {
	*r.saw = clientGravatar
	return r.url
}

func TestInviteOnlyStreamFlag(t *testing.T) {
	open := WideMessage{InviteOnly: false}
	assert.False(t, InviteOnlyStreamFlag(open, "zephyr_mirror"))

	closed := WideMessage{InviteOnly: true}
	assert.False(t, InviteOnlyStreamFlag(closed, "website"))
	assert.True(t, InviteOnlyStreamFlag(closed, "ZEPHYR_MIRROR"))
	assert.True(t, InviteOnlyStreamFlag(closed, "irc_mirror"))
}

func TestFinalize_AvatarResolverReceivesFlavorGravatarFlag(t *testing.T) {
	url := "https://example.com/a.png"
	wide := WideMessage{Sender: SenderInfo{}}
	var seen bool
	got := Finalize(wide, MessageFlavor{ClientGravatar: true}, recordingAvatars{url: &url, saw: &seen})
	require.NotNil(t, got.AvatarURL)
	assert.Equal(t, url, *got.AvatarURL)
	assert.True(t, seen, "client_gravatar from the flavor must reach the resolver when visibility is Everyone")
}
