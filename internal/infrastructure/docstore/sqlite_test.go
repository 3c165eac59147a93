package docstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eslsoft/quizstats/internal/infrastructure/database"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, cleanup, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(cleanup)

	logger, _ := test.NewNullLogger()
	store := NewSQLiteStore(db, logger)
	require.NoError(t, store.Init(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

type recorder struct {
	mu    sync.Mutex
	snaps []*Snapshot
	ch    chan *Snapshot
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan *Snapshot, 16)}
}

func (r *recorder) onChange(s *Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
	r.ch <- s
}

func (r *recorder) next(t *testing.T) *Snapshot {
	t.Helper()
	select {
	case s := <-r.ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func (r *recorder) none(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case s := <-r.ch:
		t.Fatalf("unexpected snapshot: %+v", s)
	case <-time.After(wait):
	}
}

func TestSQLiteStoreGetSet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	ref := Doc("users", "u1")

	snap, err := store.Get(ctx, ref)
	require.NoError(t, err)
	assert.False(t, snap.Exists)

	require.NoError(t, store.Set(ctx, ref, map[string]any{"xpPoints": 10, "email": "a@b.c"}))
	snap, err = store.Get(ctx, ref)
	require.NoError(t, err)
	require.True(t, snap.Exists)
	assert.Equal(t, float64(10), snap.Data["xpPoints"])
	assert.False(t, snap.UpdateTime.IsZero())

	first := snap.UpdateTime
	require.NoError(t, store.Set(ctx, ref, map[string]any{"lives": 3}))
	snap, err = store.Get(ctx, ref)
	require.NoError(t, err)
	_, hasXP := snap.Field("xpPoints")
	assert.False(t, hasXP, "set replaces the whole document")
	assert.True(t, snap.UpdateTime.After(first))
}

func TestSQLiteStoreUpdate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	ref := Doc("users", "u1")

	err := store.Update(ctx, ref, map[string]any{"xpPoints": 1})
	assert.ErrorIs(t, err, ErrNotFound)
	snap, err := store.Get(ctx, ref)
	require.NoError(t, err)
	assert.False(t, snap.Exists, "update must not create a document")

	require.NoError(t, store.Set(ctx, ref, map[string]any{"xpPoints": 1, "lives": 5}))
	require.NoError(t, store.Update(ctx, ref, map[string]any{"xpPoints": 42}))
	snap, err = store.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, float64(42), snap.Data["xpPoints"])
	assert.Equal(t, float64(5), snap.Data["lives"])
}

func TestSQLiteStoreTransaction(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	ref := Doc("users", "u1")
	require.NoError(t, store.Set(ctx, ref, map[string]any{"lives": 5}))

	abort := errors.New("abort")
	err := store.Transaction(ctx, ref, func(snap *Snapshot) (map[string]any, error) {
		return map[string]any{"lives": 0}, abort
	})
	assert.ErrorIs(t, err, abort)
	snap, err := store.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, float64(5), snap.Data["lives"])

	require.NoError(t, store.Transaction(ctx, ref, func(snap *Snapshot) (map[string]any, error) {
		lives, _ := snap.Field("lives")
		return map[string]any{"lives": lives.(float64) - 1}, nil
	}))
	snap, err = store.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, float64(4), snap.Data["lives"])

	before := snap.UpdateTime
	require.NoError(t, store.Transaction(ctx, ref, func(*Snapshot) (map[string]any, error) { return nil, nil }))
	snap, err = store.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, before, snap.UpdateTime, "nil fields leave the document untouched")
}

func TestSQLiteStoreWatch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	ref := Doc("userProgress", "u1")

	rec := newRecorder()
	unsubscribe, err := store.Watch(ctx, ref, rec.onChange, func(err error) { t.Errorf("watch error: %v", err) })
	require.NoError(t, err)

	initial := rec.next(t)
	assert.False(t, initial.Exists, "initial snapshot is delivered even when the document is absent")

	require.NoError(t, store.Set(ctx, ref, map[string]any{"totalXP": 100}))
	changed := rec.next(t)
	require.True(t, changed.Exists)
	assert.Equal(t, float64(100), changed.Data["totalXP"])

	require.NoError(t, store.Set(ctx, Doc("userProgress", "other"), map[string]any{"totalXP": 1}))
	rec.none(t, 100*time.Millisecond)

	unsubscribe()
	unsubscribe()
	require.Eventually(t, func() bool { return store.hub.count(ref) == 0 }, time.Second, 10*time.Millisecond)

	require.NoError(t, store.Set(ctx, ref, map[string]any{"totalXP": 200}))
	rec.none(t, 100*time.Millisecond)
}

func TestSQLiteStoreWatchStopsWithContext(t *testing.T) {
	store := newTestStore(t)
	ref := Doc("users", "u1")
	ctx, cancel := context.WithCancel(context.Background())

	rec := newRecorder()
	_, err := store.Watch(ctx, ref, rec.onChange, nil)
	require.NoError(t, err)
	rec.next(t)

	cancel()
	require.Eventually(t, func() bool { return store.hub.count(ref) == 0 }, time.Second, 10*time.Millisecond)
}

func TestSQLiteStoreClosed(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Close())

	_, err := store.Get(context.Background(), Doc("users", "u1"))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = store.Watch(context.Background(), Doc("users", "u1"), nil, nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRefValidation(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), Doc("users", ""))
	assert.ErrorIs(t, err, ErrInvalidRef)
	_, err = store.Get(context.Background(), Doc("users", "a/b"))
	assert.ErrorIs(t, err, ErrInvalidRef)

	ref, ok := parseRef("users/u1")
	assert.True(t, ok)
	assert.Equal(t, Doc("users", "u1"), ref)
	_, ok = parseRef("nocollection")
	assert.False(t, ok)
}
