package domain

import (
	"net/url"
	"strings"
)

// ActivityType distinguishes user utterances from synthetic or channel events.
type ActivityType string

const (
	// ActivityMessage carries user text that goes through the recognizer.
	ActivityMessage ActivityType = "message"
	// ActivityEvent carries a named event matched against Event rules.
	ActivityEvent ActivityType = "event"
)

// Activity is one inbound unit delivered by a channel adapter.
type Activity struct {
	ID             string       `json:"id,omitempty"`
	Type           ActivityType `json:"type,omitempty"`
	ChannelID      string       `json:"channel_id"`
	ConversationID string       `json:"conversation_id"`
	UserID         string       `json:"user_id"`
	Text           string       `json:"text,omitempty"`

	// Name is the event name when Type is ActivityEvent.
	Name string `json:"name,omitempty"`

	// Value is an optional payload for event activities.
	Value any `json:"value,omitempty"`
}

// IsMessage reports whether the activity carries user text.
// An empty Type is treated as a message.
func (a Activity) IsMessage() bool {
	return a.Type == "" || a.Type == ActivityMessage
}

// HasInput reports whether the activity carries something a trigger or a
// suspended step can consume.
func (a Activity) HasInput() bool {
	if a.IsMessage() {
		return strings.TrimSpace(a.Text) != ""
	}
	return a.Name != ""
}

// ConversationKey identifies the conversation for locking and logging.
// Identity components are path-escaped so distinct pairs never collide.
func (a Activity) ConversationKey() string {
	return url.PathEscape(a.ChannelID) + "/" + url.PathEscape(a.ConversationID)
}

// Message is an outbound reply emitted by the engine.
type Message struct {
	Text string `json:"text"`

	// Dialog and Step identify the producer, for tracing.
	Dialog string   `json:"dialog,omitempty"`
	Step   StepKind `json:"step,omitempty"`
}

// TurnResult is what a completed turn hands back to the channel adapter.
type TurnResult struct {
	Messages []Message `json:"messages"`

	// Suspended is true when a step is waiting for the next inbound turn.
	Suspended bool `json:"suspended"`

	// Ended is true when the root dialog was ended during this turn.
	Ended bool `json:"ended,omitempty"`

	// Unhandled is true when no rule matched the input.
	Unhandled bool `json:"unhandled,omitempty"`

	// ActiveDialog is the dialog on top of the stack after the turn.
	ActiveDialog string `json:"active_dialog,omitempty"`
}

// Texts returns the text of every outbound message in order.
func (r *TurnResult) Texts() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Messages))
	for _, m := range r.Messages {
		out = append(out, m.Text)
	}
	return out
}
