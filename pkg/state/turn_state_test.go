package state_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/adapters/memory"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/ports"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var activity = domain.Activity{ChannelID: "test", ConversationID: "c1", UserID: "u1", Text: "hi"}

// countingStore records reads so lazy loading can be asserted.
type countingStore struct {
	ports.Storage
	reads [][]string
}

func (c *countingStore) Read(ctx context.Context, keys []string) (map[string]ports.StoreItem, error) {
	c.reads = append(c.reads, keys)
	return c.Storage.Read(ctx, keys)
}

func TestKeysFor(t *testing.T) {
	k := state.KeysFor(activity)
	assert.Equal(t, "test/conversations/c1", k.Conversation)
	assert.Equal(t, "test/users/u1", k.User)
	assert.Equal(t, "test/conversations/c1/dialogState", k.Dialog)
}

func TestKeysFor_EscapesIdentities(t *testing.T) {
	nested := domain.Activity{ChannelID: "test", ConversationID: "c1/dialogState", UserID: "u1"}
	k := state.KeysFor(nested)
	assert.Equal(t, "test/conversations/c1%2FdialogState", k.Conversation)
	assert.NotEqual(t, state.KeysFor(activity).Dialog, k.Conversation)

	a := state.KeysFor(domain.Activity{ChannelID: "a/conversations/b", ConversationID: "c", UserID: "u"})
	b := state.KeysFor(domain.Activity{ChannelID: "a", ConversationID: "b/conversations/c", UserID: "u"})
	for _, ka := range a.All() {
		assert.NotContains(t, b.All(), ka)
	}

	assert.NotEqual(t,
		domain.Activity{ChannelID: "a/b", ConversationID: "c"}.ConversationKey(),
		domain.Activity{ChannelID: "a", ConversationID: "b/c"}.ConversationKey(),
	)
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path    string
		scope   string
		rest    []string
		wantErr bool
	}{
		{"user.name", "user", []string{"name"}, false},
		{"conversation.a.b", "conversation", []string{"a", "b"}, false},
		{"turn", "turn", []string{}, false},
		{"session.x", "", nil, true},
		{"user..x", "", nil, true},
		{"", "", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			scope, rest, err := state.SplitPath(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.scope, scope)
			assert.Equal(t, tt.rest, rest)
		})
	}
}

func TestTurnState_LazyLoad(t *testing.T) {
	store := &countingStore{Storage: memory.NewStore()}
	ctx := context.Background()

	ts := state.New(store, activity)
	assert.Empty(t, store.reads, "nothing is read before first access")

	_, _, err := ts.Get(ctx, "user.name")
	require.NoError(t, err)
	_, _, err = ts.Get(ctx, "user.age")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"test/users/u1"}}, store.reads, "a scope is read once per turn")
}

func TestTurnState_SetCreatesIntermediateObjects(t *testing.T) {
	ctx := context.Background()
	ts := state.New(memory.NewStore(), activity)

	require.NoError(t, ts.Set(ctx, "conversation.profile.address.city", "Lisbon"))

	v, ok, err := ts.Get(ctx, "conversation.profile.address.city")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Lisbon", v)

	err = ts.Set(ctx, "conversation.profile.address.city.zip", "1000")
	assert.ErrorIs(t, err, domain.ErrInvalidPath)
}

func TestTurnState_SaveOnlyDirtyScopes(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	ts := state.New(store, activity)
	_, _, err := ts.Get(ctx, "conversation.topic")
	require.NoError(t, err)
	require.NoError(t, ts.Set(ctx, "user.name", "Ada"))
	require.NoError(t, ts.Set(ctx, "turn.scratch", 1))

	assert.Equal(t, []string{"test/users/u1"}, ts.Dirty())
	require.NoError(t, ts.Save(ctx))

	keys, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"test/users/u1"}, keys, "turn scope and clean scopes are not written")

	next := state.New(store, activity)
	v, ok, err := next.Get(ctx, "user.name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Ada", v)

	_, ok, err = next.Get(ctx, "turn.scratch")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTurnState_NumbersRoundTrip(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	ts := state.New(store, activity)
	require.NoError(t, ts.Set(ctx, "user.count", 42))
	require.NoError(t, ts.Save(ctx))

	next := state.New(store, activity)
	v, _, err := next.Get(ctx, "user.count")
	require.NoError(t, err)
	assert.Equal(t, json.Number("42"), v)

	count, ok, err := state.NewProperty[int]("user.count").Get(ctx, next)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 42, count)
}

func TestTurnState_ConflictingSave(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	first := state.New(store, activity)
	second := state.New(store, activity)

	require.NoError(t, first.Set(ctx, "conversation.n", 1))
	require.NoError(t, second.Set(ctx, "conversation.n", 2))

	require.NoError(t, first.Save(ctx))
	err := second.Save(ctx)
	assert.ErrorIs(t, err, domain.ErrStorageConflict)
	assert.ErrorIs(t, err, ports.ErrConflict)

	check := state.New(store, activity)
	v, _, err := check.Get(ctx, "conversation.n")
	require.NoError(t, err)
	assert.Equal(t, json.Number("1"), v, "the losing turn does not overwrite the winner")
}

func TestTurnState_SequentialSavesKeepEtags(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	ts := state.New(store, activity)
	require.NoError(t, ts.Set(ctx, "user.a", 1))
	require.NoError(t, ts.Save(ctx))
	require.NoError(t, ts.Set(ctx, "user.b", 2))
	assert.NoError(t, ts.Save(ctx), "a second save uses the etag returned by the first")
}

func TestTurnState_DialogScopeIsActiveFrameLocals(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	ts := state.New(store, activity)
	err := ts.Set(ctx, "dialog.step", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidPath, "no frame, no dialog scope")

	stack, err := ts.Stack(ctx)
	require.NoError(t, err)
	stack.Push(domain.NewFrame("root"))
	require.NoError(t, ts.Set(ctx, "dialog.step", 1))

	stack.Push(domain.NewFrame("child"))
	_, ok, err := ts.Get(ctx, "dialog.step")
	require.NoError(t, err)
	assert.False(t, ok, "a child frame does not see its parent's locals")

	require.NoError(t, ts.Save(ctx))

	next := state.New(store, activity)
	restored, err := next.Stack(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"root", "child"}, restored.Dialogs())
	assert.Equal(t, json.Number("1"), restored.Frames[0].Locals["step"])
}

func TestTurnState_UnchangedStackIsNotRewritten(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	ts := state.New(store, activity)
	stack, err := ts.Stack(ctx)
	require.NoError(t, err)
	stack.Push(domain.NewFrame("root"))
	require.NoError(t, ts.Save(ctx))

	next := state.New(store, activity)
	_, err = next.Stack(ctx)
	require.NoError(t, err)
	assert.Empty(t, next.Dirty())
}

func TestTurnState_ResetStack(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	ts := state.New(store, activity)
	stack, err := ts.Stack(ctx)
	require.NoError(t, err)
	stack.Push(domain.NewFrame("root"))
	require.NoError(t, ts.Save(ctx))

	next := state.New(store, activity)
	require.NoError(t, next.ResetStack(ctx))
	require.NoError(t, next.Save(ctx))

	check := state.New(store, activity)
	restored, err := check.Stack(ctx)
	require.NoError(t, err)
	assert.True(t, restored.Empty())
}

func TestTurnState_ScopesView(t *testing.T) {
	ctx := context.Background()
	ts := state.New(memory.NewStore(), activity)
	require.NoError(t, ts.Set(ctx, "turn.text", "hi"))

	scopes, err := ts.Scopes(ctx)
	require.NoError(t, err)
	assert.Contains(t, scopes, state.ScopeTurn)
	assert.Contains(t, scopes, state.ScopeDialog)
	assert.Contains(t, scopes, state.ScopeConversation)
	assert.Contains(t, scopes, state.ScopeUser)
	assert.Equal(t, "hi", scopes[state.ScopeTurn].(map[string]any)["text"])
}
