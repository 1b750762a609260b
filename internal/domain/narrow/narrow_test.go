package narrow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/boq-project/notify-dispatch/internal/domain/message"
)

func TestMatches_StreamAndTopicConjunction(t *testing.T) {
	streamID := int64(12)
	m := message.Message{StreamId: &streamID, Topic: "release"}

	n := Narrow{
		{Operator: OperatorStream, Operand: "12"},
		{Operator: OperatorTopic, Operand: "release"},
	}
	assert.True(t, n.Matches(m, 0))

	wrongTopic := Narrow{
		{Operator: OperatorStream, Operand: "12"},
		{Operator: OperatorTopic, Operand: "other"},
	}
	assert.False(t, wrongTopic.Matches(m, 0))
}

func TestMatches_NegatedTerm(t *testing.T) {
	streamID := int64(12)
	m := message.Message{StreamId: &streamID}

	n := Narrow{{Operator: OperatorStream, Operand: "99", Negated: true}}
	assert.True(t, n.Matches(m, 0))

	n2 := Narrow{{Operator: OperatorStream, Operand: "12", Negated: true}}
	assert.False(t, n2.Matches(m, 0))
}

func TestMatches_IsResolvedPrefix(t *testing.T) {
	resolved := message.Message{Topic: "✔ release"}
	unresolved := message.Message{Topic: "release"}

	n := Narrow{{Operator: OperatorIs, Operand: "resolved"}}
	assert.True(t, n.Matches(resolved, 0))
	assert.False(t, n.Matches(unresolved, 0))
}

func TestMatches_IsDM(t *testing.T) {
	dm := message.Message{RecipientType: "private"}
	stream := message.Message{RecipientType: "stream"}

	n := Narrow{{Operator: OperatorIs, Operand: "dm"}}
	assert.True(t, n.Matches(dm, 0))
	assert.False(t, n.Matches(stream, 0))
}

func TestMatches_UnknownOperatorIsPermissive(t *testing.T) {
	m := message.Message{}
	n := Narrow{{Operator: "near", Operand: "1"}}
	assert.True(t, n.Matches(m, 0))
}
