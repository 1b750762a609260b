// Package narrow implements matching against a client-supplied narrow
// filter: a conjunction of operator/operand pairs describing the subset of
// messages a queue wants delivered ("stream:general", "is:mentioned", ...).
package narrow

import (
	"strconv"
	"strings"

	"github.com/boq-project/notify-dispatch/internal/domain/message"
)

// Operator names the left-hand side of one narrow term.
type Operator string

const (
	OperatorStream Operator = "stream"
	OperatorTopic  Operator = "topic"
	OperatorSender Operator = "sender"
	OperatorIs     Operator = "is"
)

// resolvedTopicPrefix marks a topic as administratively resolved; is:resolved
// matches any topic carrying this prefix.
const resolvedTopicPrefix = "✔ "

// Term is one operator/operand pair. Negated terms (what the client calls
// "-stream:general") invert the match.
type Term struct {
	Operator Operator
	Operand  string
	Negated  bool
}

// Narrow is a conjunction of Terms: a message matches only if every term
// matches (after accounting for negation).
type Narrow []Term

// Matches reports whether m satisfies every term in the narrow. Unknown
// operators match permissively — treated as "no opinion", never as an
// exclusion — so that queues built against a newer operator vocabulary
// than this dispatcher knows about still receive traffic.
func (n Narrow) Matches(m message.Message, senderID int64) bool {
	for _, t := range n {
		if !termMatches(t, m, senderID) {
			return false
		}
	}
	return true
}

func termMatches(t Term, m message.Message, senderID int64) bool {
	ok := matchOperand(t, m, senderID)
	if t.Negated {
		return !ok
	}
	return ok
}

func matchOperand(t Term, m message.Message, senderID int64) bool {
	switch t.Operator {
	case OperatorStream:
		if m.StreamId == nil {
			return false
		}
		id, err := strconv.ParseInt(t.Operand, 10, 64)
		if err != nil {
			return true // unparseable operand: permissive pass
		}
		return *m.StreamId == id

	case OperatorTopic:
		return strings.EqualFold(strings.TrimPrefix(m.Topic, resolvedTopicPrefix), t.Operand)

	case OperatorSender:
		id, err := strconv.ParseInt(t.Operand, 10, 64)
		if err != nil {
			return true
		}
		return int64(m.SenderId) == id || id == senderID

	case OperatorIs:
		return matchIs(t.Operand, m)

	default:
		return true
	}
}

func matchIs(operand string, m message.Message) bool {
	switch strings.ToLower(operand) {
	case "dm", "private":
		return m.RecipientType == "private" || m.RecipientType == "huddle"
	case "resolved":
		return strings.HasPrefix(m.Topic, resolvedTopicPrefix)
	case "mentioned", "alerted", "starred", "unread":
		// These depend on per-user flags not carried on message.Message,
		// so they pass permissively here; no flag-based filtering is
		// applied to them anywhere in the dispatch path.
		return true
	default:
		return true
	}
}
