package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRoundTrip(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "backups/postgres/a.sql", []byte("one")))
	require.NoError(t, s.Write(ctx, "backups/postgres/a.sql", []byte("two")), "overwrite is allowed")

	data, err := s.Read(ctx, "backups/postgres/a.sql")
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	ok, err := s.Exists(ctx, "backups/postgres/a.sql")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, "backups/postgres/b.sql")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalReadMissing(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = s.Read(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalList(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "backups/mysql/b.sql", []byte("x")))
	require.NoError(t, s.Write(ctx, "backups/postgres/a.sql", []byte("x")))

	keys, err := s.List(ctx, "backups")
	require.NoError(t, err)
	assert.Equal(t, []string{"backups/mysql/b.sql", "backups/postgres/a.sql"}, keys)

	keys, err = s.List(ctx, "backups/postgres")
	require.NoError(t, err)
	assert.Equal(t, []string{"backups/postgres/a.sql"}, keys)

	keys, err = s.List(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
