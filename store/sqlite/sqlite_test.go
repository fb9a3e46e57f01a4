package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/unistore/retry"
	"github.com/spetersoncode/unistore/store"
)

func openTemp(t *testing.T, opts ...Option) (*Adapter, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	a, err := Open(path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, path
}

func TestAdapter(t *testing.T) {
	ctx := context.Background()

	t.Run("get set delete", func(t *testing.T) {
		a, _ := openTemp(t)

		_, ok, err := a.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, a.Set(ctx, "k", "v1"))
		require.NoError(t, a.Set(ctx, "k", "v2"))
		v, ok, err := a.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "v2", v)

		require.NoError(t, a.Delete(ctx, "k"))
		require.NoError(t, a.Delete(ctx, "k"))
		_, ok, err = a.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("keys are sorted", func(t *testing.T) {
		a, _ := openTemp(t, WithTable("custom_kv"))
		require.NoError(t, a.Set(ctx, "b", "2"))
		require.NoError(t, a.Set(ctx, "a", "1"))

		keys, err := a.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, keys)
	})

	t.Run("in memory", func(t *testing.T) {
		a, err := Open(":memory:")
		require.NoError(t, err)
		defer a.Close()

		require.NoError(t, a.Set(ctx, "k", "v"))
		v, ok, err := a.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "v", v)
	})

	t.Run("closed", func(t *testing.T) {
		a, _ := openTemp(t)
		require.NoError(t, a.Close())
		require.NoError(t, a.Close())

		_, _, err := a.Get(ctx, "k")
		assert.ErrorIs(t, err, store.ErrAdapterClosed)
		assert.ErrorIs(t, a.Set(ctx, "k", "v"), store.ErrAdapterClosed)
		assert.ErrorIs(t, a.Delete(ctx, "k"), store.ErrAdapterClosed)
		_, err = a.Keys(ctx)
		assert.ErrorIs(t, err, store.ErrAdapterClosed)
	})
}

func TestAdapter_StoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	policies := store.Policies{
		"session": store.Persist(),
		"prefs":   store.Exclude("draft"),
		"cache":   store.Skip(),
	}

	a, err := Open(path)
	require.NoError(t, err)
	s := store.New(store.State{}, store.WithAdapter(a), store.WithPolicies(policies))
	s.Set(store.State{
		"session": "abc",
		"prefs":   map[string]any{"theme": "dark", "draft": "unsent"},
		"cache":   "transient",
	})
	require.True(t, s.Flush())
	s.SetPersist("cache", "stale")
	s.Destroy()
	require.NoError(t, a.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	restored := store.New(store.State{}, store.WithAdapter(reopened), store.WithPolicies(policies))
	defer restored.Destroy()

	assert.Equal(t, store.State{
		"session": "abc",
		"prefs":   map[string]any{"theme": "dark"},
	}, restored.Get())

	keys, err := reopened.Keys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{store.PersistPrefix + "prefs", store.PersistPrefix + "session"}, keys)
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))

	plain := errors.New("constraint failed")
	assert.Equal(t, plain, classify(plain))
	assert.False(t, retry.IsTransient(classify(plain)))
}
