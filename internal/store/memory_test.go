package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryFindAbsentReturnsNil(t *testing.T) {
	m := NewMemory()

	e, err := m.FindByKey(context.Background(), KindUser, map[string]any{"email": "a@b.com"})
	require.NoError(t, err)
	require.Nil(t, e)
}

func TestMemoryCreateAndFind(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	created, err := m.Create(ctx, KindUser, map[string]any{"email": "a@b.com", "clearance": ""})
	require.NoError(t, err)
	require.NotEqual(t, created.ID.String(), "")

	found, err := m.FindByKey(ctx, KindUser, map[string]any{"email": "a@b.com"})
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, created.ID, found.ID)

	// a partial key must match on every field
	miss, err := m.FindByKey(ctx, KindUser, map[string]any{"email": "a@b.com", "clearance": "admin"})
	require.NoError(t, err)
	require.Nil(t, miss)
}

func TestMemorySaveOverwrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	e, err := m.Create(ctx, KindUser, map[string]any{"email": "a@b.com", "clearance": ""})
	require.NoError(t, err)

	e.Fields["clearance"] = "admin"
	require.NoError(t, m.Save(ctx, e, EmptyMetadata()))

	found, err := m.FindByKey(ctx, KindUser, map[string]any{"email": "a@b.com"})
	require.NoError(t, err)
	require.Equal(t, "admin", found.Fields["clearance"])
	require.Equal(t, 1, m.Count(KindUser))
	require.Equal(t, 1, m.Saves())
}

func TestMemoryWithError(t *testing.T) {
	boom := errors.New("boom")
	m := NewMemory().WithError(boom)

	_, err := m.Create(context.Background(), KindUser, map[string]any{})
	require.ErrorIs(t, err, boom)

	_, err = m.FindByKey(context.Background(), KindUser, map[string]any{})
	require.ErrorIs(t, err, boom)
}

func TestEntityExtra(t *testing.T) {
	e := &Entity{Fields: map[string]any{}}
	extra := e.Extra()
	extra["k"] = "v"
	require.Equal(t, "v", e.Extra()["k"])

	e.SetExtra(map[string]any{"x": 1})
	require.Equal(t, 1, e.Extra()["x"])
}
