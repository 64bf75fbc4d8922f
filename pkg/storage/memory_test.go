package storage_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/absmach/colearn/pkg/errors"
	"github.com/absmach/colearn/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGet(t *testing.T) {
	ctx := context.Background()
	s := storage.NewInMemoryStorage()

	require.NoError(t, s.Create(ctx, "k", "v"))
	assert.ErrorIs(t, s.Create(ctx, "k", "v2"), errors.ErrEntityExists)
	assert.ErrorIs(t, s.Create(ctx, "", "v"), errors.ErrEmptyKey)

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s := storage.NewInMemoryStorage()

	assert.ErrorIs(t, s.Update(ctx, "k", "v"), errors.ErrNotFound)
	require.NoError(t, s.Create(ctx, "k", "v"))
	require.NoError(t, s.Update(ctx, "k", "v2"))

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestListPrefix(t *testing.T) {
	ctx := context.Background()
	s := storage.NewInMemoryStorage()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Create(ctx, fmt.Sprintf("r1/a%d", i), i))
	}
	require.NoError(t, s.Create(ctx, "r2/a0", 99))

	vals, total, err := s.ListPrefix(ctx, "r1/", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), total)
	// Lexical key order keeps listings deterministic.
	assert.Equal(t, []any{0, 1, 2, 3, 4}, vals)

	vals, total, err = s.ListPrefix(ctx, "r1/", 3, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), total)
	assert.Equal(t, []any{3, 4}, vals)

	_, total, err = s.ListPrefix(ctx, "r3/", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), total)
}
