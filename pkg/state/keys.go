package state

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
)

// Scope names addressable from property paths.
const (
	ScopeTurn         = "turn"
	ScopeDialog       = "dialog"
	ScopeConversation = "conversation"
	ScopeUser         = "user"
)

// Keys are the storage keys of the persisted scopes of one activity.
type Keys struct {
	Conversation string
	User         string
	Dialog       string
}

// KeysFor derives storage keys from the channel and the conversation and
// user identities of an activity. Each identity is path-escaped, so an ID
// containing "/" cannot address another conversation's keys.
func KeysFor(a domain.Activity) Keys {
	channel := url.PathEscape(a.ChannelID)
	conv := channel + "/conversations/" + url.PathEscape(a.ConversationID)
	return Keys{
		Conversation: conv,
		User:         channel + "/users/" + url.PathEscape(a.UserID),
		Dialog:       conv + "/dialogState",
	}
}

// All returns the keys in a stable order.
func (k Keys) All() []string {
	return []string{k.Conversation, k.User, k.Dialog}
}

// SplitPath splits "scope.a.b" into the scope name and the remaining segments.
func SplitPath(path string) (string, []string, error) {
	if path == "" {
		return "", nil, fmt.Errorf("%w: empty path", domain.ErrInvalidPath)
	}
	parts := strings.Split(path, ".")
	for _, p := range parts {
		if p == "" {
			return "", nil, fmt.Errorf("%w: %q has an empty segment", domain.ErrInvalidPath, path)
		}
	}
	switch parts[0] {
	case ScopeTurn, ScopeDialog, ScopeConversation, ScopeUser:
		return parts[0], parts[1:], nil
	default:
		return "", nil, fmt.Errorf("%w: unknown scope %q in %q", domain.ErrInvalidPath, parts[0], path)
	}
}

// lookup walks segments through nested maps.
func lookup(root map[string]any, segments []string) (any, bool) {
	var cur any = root
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// assign writes value at segments, creating intermediate maps.
func assign(root map[string]any, segments []string, value any) error {
	cur := root
	for i, seg := range segments[:len(segments)-1] {
		next, ok := cur[seg]
		if !ok || next == nil {
			m := make(map[string]any)
			cur[seg] = m
			cur = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %s is not an object", domain.ErrInvalidPath, strings.Join(segments[:i+1], "."))
		}
		cur = m
	}
	cur[segments[len(segments)-1]] = value
	return nil
}

// remove deletes the value at segments. Missing paths are not an error.
func remove(root map[string]any, segments []string) bool {
	parent, ok := lookup(root, segments[:len(segments)-1])
	if !ok {
		return false
	}
	m, ok := parent.(map[string]any)
	if !ok {
		return false
	}
	last := segments[len(segments)-1]
	if _, exists := m[last]; !exists {
		return false
	}
	delete(m, last)
	return true
}
