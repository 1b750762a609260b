package notification

import (
	"testing"

	"github.com/boq-project/notify-dispatch/internal/domain/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserMessageData_BotShortCircuit(t *testing.T) {
	sets := NewUserIdSets(nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil,
		[]types.UserId{42}, false)

	d := NewUserMessageData(42, 1, nil, true, sets)

	require.True(t, d.IsBot)
	trig, ok := d.PushNotificationTrigger(true)
	assert.False(t, ok)
	assert.Empty(t, trig)
	_, ok = d.EmailNotificationTrigger(true)
	assert.False(t, ok)
}

func TestPushNotificationTrigger_Priority(t *testing.T) {
	sets := NewUserIdSets(
		nil, nil, nil,
		[]types.UserId{7}, []types.UserId{7},
		nil, nil,
		nil, nil,
		nil, nil,
		nil, nil,
		false,
	)

	flags := types.MessageFlags{types.FlagMentioned}
	d := NewUserMessageData(7, 1, flags, false, sets)

	trig, ok := d.PushNotificationTrigger(true)
	require.True(t, ok)
	assert.Equal(t, TriggerMentioned, trig)
}

func TestPushNotificationTrigger_StreamFallsBackWhenNoMention(t *testing.T) {
	sets := NewUserIdSets(
		nil, nil, nil,
		[]types.UserId{7}, []types.UserId{7},
		nil, nil, nil, nil, nil, nil, nil, nil,
		false,
	)

	d := NewUserMessageData(7, 1, nil, false, sets)

	trig, ok := d.PushNotificationTrigger(true)
	require.True(t, ok)
	assert.Equal(t, TriggerStream, trig)
}

func TestPushNotificationTrigger_OnlineGatedByOnlinePushEnabled(t *testing.T) {
	sets := NewUserIdSets(
		nil, nil, nil,
		[]types.UserId{7}, []types.UserId{7},
		nil, nil, nil, nil, nil, nil, nil, nil,
		false,
	)
	d := NewUserMessageData(7, 1, nil, false, sets)

	_, ok := d.PushNotificationTrigger(false)
	assert.False(t, ok, "online recipient without OnlinePushEnabled must not be pushed")
}

func TestEmailNotificationTrigger_RequiresIdle(t *testing.T) {
	sets := NewUserIdSets(nil, nil, nil, nil, []types.UserId{7}, nil, nil, nil, nil, nil, nil, nil, nil, false)
	d := NewUserMessageData(7, 1, nil, false, sets)

	_, ok := d.EmailNotificationTrigger(false)
	assert.False(t, ok)

	trig, ok := d.EmailNotificationTrigger(true)
	require.True(t, ok)
	assert.Equal(t, TriggerStream, trig)
}

func TestTriviallyShouldNotNotify_SenderMutedAndDisabled(t *testing.T) {
	sets := UserIdSets{}
	sender := NewUserMessageData(1, 1, nil, true, sets)
	assert.True(t, sender.TriviallyShouldNotNotify())

	muted := NewUserMessageData(2, 1, nil, true, NewUserIdSets(
		nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil,
		[]types.UserId{2}, nil, false,
	))
	assert.True(t, muted.TriviallyShouldNotNotify())

	disabled := NewUserMessageData(3, 1, nil, true, NewUserIdSets(
		nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, true,
	))
	assert.True(t, disabled.TriviallyShouldNotNotify())

	ordinary := NewUserMessageData(4, 1, nil, true, sets)
	assert.False(t, ordinary.TriviallyShouldNotNotify())
}
