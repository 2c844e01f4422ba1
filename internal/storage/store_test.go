package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/lyric-warden/internal/core"
)

func TestMemoryStoreDrafts(t *testing.T) {
	ctx := context.Background()

	t.Run("upsert assigns an id on insert", func(t *testing.T) {
		store := NewMemoryStore()
		draft := &core.ReportDraft{PRNumber: 1, PRTitle: "song", Report: "a"}
		require.NoError(t, store.UpsertDraft(ctx, draft))
		assert.NotZero(t, draft.ID)
	})

	t.Run("upsert with an id replaces the row", func(t *testing.T) {
		store := NewMemoryStore()
		draft := &core.ReportDraft{PRNumber: 1, PRTitle: "song", Report: "a"}
		require.NoError(t, store.UpsertDraft(ctx, draft))

		draft.Report = "b"
		require.NoError(t, store.UpsertDraft(ctx, draft))

		drafts, err := store.ListDrafts(ctx)
		require.NoError(t, err)
		require.Len(t, drafts, 1)
		assert.Equal(t, "b", drafts[0].Report)
	})

	t.Run("find matches by number", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.UpsertDraft(ctx, &core.ReportDraft{PRNumber: 7, PRTitle: "x", Report: "a"}))

		found, err := store.FindDraft(ctx, 7, "different title")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "a", found.Report)
	})

	t.Run("find falls back to title for number-less drafts", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.UpsertDraft(ctx, &core.ReportDraft{PRNumber: 0, PRTitle: "song.ttml", Report: "a"}))

		found, err := store.FindDraft(ctx, 0, "song.ttml")
		require.NoError(t, err)
		require.NotNil(t, found)

		missing, err := store.FindDraft(ctx, 0, "other.ttml")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("returned drafts do not alias the stored rows", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.UpsertDraft(ctx, &core.ReportDraft{PRNumber: 1, Report: "a"}))

		found, err := store.FindDraft(ctx, 1, "")
		require.NoError(t, err)
		found.Report = "mutated"

		again, err := store.FindDraft(ctx, 1, "")
		require.NoError(t, err)
		assert.Equal(t, "a", again.Report)
	})

	t.Run("delete removes the draft", func(t *testing.T) {
		store := NewMemoryStore()
		draft := &core.ReportDraft{PRNumber: 1, Report: "a"}
		require.NoError(t, store.UpsertDraft(ctx, draft))
		require.NoError(t, store.DeleteDraft(ctx, draft.ID))

		drafts, err := store.ListDrafts(ctx)
		require.NoError(t, err)
		assert.Empty(t, drafts)
	})
}

func TestMemoryStoreStashState(t *testing.T) {
	ctx := context.Background()
	key := core.SessionKey{PRNumber: 3, FileName: "song.ttml"}

	t.Run("missing key yields nil", func(t *testing.T) {
		store := NewMemoryStore()
		state, err := store.GetStashState(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, state)
	})

	t.Run("round trip", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.PutStashState(ctx, key, &core.StashState{
			Submitted:     []string{"w1", "w2"},
			LastSelection: []string{"w1"},
		}))

		state, err := store.GetStashState(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, state)
		assert.Equal(t, []string{"w1", "w2"}, state.Submitted)
		assert.Equal(t, []string{"w1"}, state.LastSelection)
	})

	t.Run("keys are scoped by PR and file", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.PutStashState(ctx, key, &core.StashState{Submitted: []string{"w1"}}))

		other, err := store.GetStashState(ctx, core.SessionKey{PRNumber: 3, FileName: "other.ttml"})
		require.NoError(t, err)
		assert.Nil(t, other)
	})

	t.Run("stored state does not alias caller slices", func(t *testing.T) {
		store := NewMemoryStore()
		submitted := []string{"w1"}
		require.NoError(t, store.PutStashState(ctx, key, &core.StashState{Submitted: submitted}))
		submitted[0] = "mutated"

		state, err := store.GetStashState(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []string{"w1"}, state.Submitted)
	})
}
