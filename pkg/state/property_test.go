package state_test

import (
	"context"
	"testing"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/adapters/memory"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func TestProperty_StructRoundTrip(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	prop := state.NewProperty[profile]("user.profile")

	ts := state.New(store, activity)
	require.NoError(t, prop.Set(ctx, ts, profile{Name: "Ada", Age: 36}))

	got, ok, err := prop.Get(ctx, ts)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, profile{Name: "Ada", Age: 36}, got)

	require.NoError(t, ts.Save(ctx))

	next := state.New(store, activity)
	got, ok, err = prop.Get(ctx, next)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, profile{Name: "Ada", Age: 36}, got, "decoded from the persisted map")
}

func TestProperty_GetOrDefault(t *testing.T) {
	ctx := context.Background()
	ts := state.New(memory.NewStore(), activity)

	v, err := state.NewProperty[string]("conversation.topic").GetOr(ctx, ts, "none")
	require.NoError(t, err)
	assert.Equal(t, "none", v)
}

func TestProperty_Delete(t *testing.T) {
	ctx := context.Background()
	ts := state.New(memory.NewStore(), activity)
	prop := state.NewProperty[string]("user.name")

	require.NoError(t, prop.Set(ctx, ts, "Ada"))
	require.NoError(t, prop.Delete(ctx, ts))

	_, ok, err := prop.Get(ctx, ts)
	require.NoError(t, err)
	assert.False(t, ok)
}
