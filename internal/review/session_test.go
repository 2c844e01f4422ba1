package review

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/lyric-warden/internal/core"
	"github.com/sevigo/lyric-warden/internal/lyric"
	"github.com/sevigo/lyric-warden/internal/storage"
)

type fakePusher struct {
	pushed   int
	stopped  int
	lastDoc  *lyric.Document
	lastSess core.ReviewSession
	err      error
}

func (f *fakePusher) Push(_ context.Context, session core.ReviewSession, doc *lyric.Document) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}
	f.pushed++
	f.lastSess = session
	f.lastDoc = doc
	return func() { f.stopped++ }, nil
}

// reentrantPusher runs a callback from inside Push, standing in for push
// callbacks that read controller state.
type reentrantPusher struct {
	inner  fakePusher
	during func()
}

func (p *reentrantPusher) Push(ctx context.Context, session core.ReviewSession, doc *lyric.Document) (func(), error) {
	if p.during != nil {
		p.during()
	}
	return p.inner.Push(ctx, session, doc)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(pusher UpdatePusher) *Controller {
	return NewController(storage.NewMemoryStore(), pusher, core.ToolEdit, testLogger())
}

func reviewSession(pr int, file string) core.ReviewSession {
	return core.ReviewSession{PRNumber: pr, PRTitle: "song", FileName: file, Source: core.SourceReview}
}

func TestControllerFreezeCapture(t *testing.T) {
	doc := makeDoc(lyric.Line{Words: []lyric.Word{word("w1", "Hello", 0, 500)}})

	t.Run("captures on save-file name match", func(t *testing.T) {
		c := newTestController(&fakePusher{})
		c.Start(context.Background(), reviewSession(1, "song.ttml"))
		require.Nil(t, c.FreezeSnapshot())

		c.ObserveDocument(doc, "song.ttml", "p1")
		freeze := c.FreezeSnapshot()
		require.NotNil(t, freeze)
		assert.Equal(t, 1, freeze.PRNumber)
		assert.Equal(t, "song.ttml", freeze.FileName)
	})

	t.Run("captures on project identity change", func(t *testing.T) {
		c := newTestController(&fakePusher{})
		c.ObserveDocument(doc, "other.ttml", "p1")
		c.Start(context.Background(), reviewSession(1, "song.ttml"))

		c.ObserveDocument(doc.Clone(), "other.ttml", "p2")
		assert.NotNil(t, c.FreezeSnapshot())
	})

	t.Run("captures on document identity change", func(t *testing.T) {
		c := newTestController(&fakePusher{})
		c.ObserveDocument(doc, "other.ttml", "p1")
		c.Start(context.Background(), reviewSession(1, "song.ttml"))

		c.ObserveDocument(doc.Clone(), "other.ttml", "p1")
		assert.NotNil(t, c.FreezeSnapshot())
	})

	t.Run("does not capture while the trigger is unmet", func(t *testing.T) {
		c := newTestController(&fakePusher{})
		c.ObserveDocument(doc, "other.ttml", "p1")
		c.Start(context.Background(), reviewSession(1, "song.ttml"))

		c.ObserveDocument(doc, "other.ttml", "p1")
		assert.Nil(t, c.FreezeSnapshot())
	})

	t.Run("captures at most once per session", func(t *testing.T) {
		c := newTestController(&fakePusher{})
		c.Start(context.Background(), reviewSession(1, "song.ttml"))
		c.ObserveDocument(doc, "song.ttml", "p1")
		first := c.FreezeSnapshot()
		require.NotNil(t, first)

		edited := doc.Clone()
		edited.Lines[0].Words[0].StartTime = 250
		c.ObserveDocument(edited, "song.ttml", "p1")

		assert.Same(t, first, c.FreezeSnapshot())
		assert.Equal(t, int64(250), c.StagedSnapshot().Lines[0].Words[0].StartTime)
	})

	t.Run("freeze does not alias the live document", func(t *testing.T) {
		c := newTestController(&fakePusher{})
		c.Start(context.Background(), reviewSession(1, "song.ttml"))
		live := doc.Clone()
		c.ObserveDocument(live, "song.ttml", "p1")

		live.Lines[0].Words[0].StartTime = 999
		assert.Equal(t, int64(0), c.FreezeSnapshot().Data.Lines[0].Words[0].StartTime)
	})
}

func TestControllerStart(t *testing.T) {
	doc := makeDoc(lyric.Line{Words: []lyric.Word{word("w1", "Hello", 0, 500)}})

	t.Run("same key restart preserves the freeze", func(t *testing.T) {
		c := newTestController(&fakePusher{})
		c.Start(context.Background(), reviewSession(1, "song.ttml"))
		c.ObserveDocument(doc, "song.ttml", "p1")
		freeze := c.FreezeSnapshot()
		require.NotNil(t, freeze)

		c.Start(context.Background(), reviewSession(1, "song.ttml"))
		assert.Same(t, freeze, c.FreezeSnapshot())
	})

	t.Run("different key resets snapshot state", func(t *testing.T) {
		c := newTestController(&fakePusher{})
		c.Start(context.Background(), reviewSession(1, "song.ttml"))
		c.ObserveDocument(doc, "song.ttml", "p1")
		require.NotNil(t, c.FreezeSnapshot())

		c.Start(context.Background(), reviewSession(2, "other.ttml"))
		assert.Nil(t, c.FreezeSnapshot())
		assert.Nil(t, c.StagedSnapshot())
		assert.Empty(t, c.Candidates())
	})
}

func TestControllerCompleteReview(t *testing.T) {
	ctx := context.Background()
	base := makeDoc(lyric.Line{Words: []lyric.Word{
		word("w1", "Hello", 0, 500),
		word("w2", "world", 500, 1000),
	}})

	t.Run("merges edit report into the PR draft", func(t *testing.T) {
		c := newTestController(&fakePusher{})
		c.Start(ctx, reviewSession(7, "song.ttml"))
		c.ObserveDocument(base, "song.ttml", "p1")

		edited := base.Clone()
		edited.Lines[0].Words[1].Text = "World"
		c.ObserveDocument(edited, "song.ttml", "p1")

		draft, err := c.Complete(ctx)
		require.NoError(t, err)
		require.NotNil(t, draft)
		assert.Equal(t, 7, draft.PRNumber)
		assert.Contains(t, draft.Report, "「world」改为「World」")
		assert.Nil(t, c.Session())
	})

	t.Run("sync tool mode appends the time-axis report", func(t *testing.T) {
		c := newTestController(&fakePusher{})
		c.Start(ctx, reviewSession(8, "song.ttml"))
		c.ObserveDocument(base, "song.ttml", "p1")
		c.SetToolMode(core.ToolSync)

		edited := base.Clone()
		edited.Lines[0].Words[0].StartTime = 100
		c.ObserveDocument(edited, "song.ttml", "p1")

		draft, err := c.Complete(ctx)
		require.NoError(t, err)
		require.NotNil(t, draft)
		assert.Contains(t, draft.Report, "【时间轴调整】")
	})

	t.Run("edit tool mode omits timing changes", func(t *testing.T) {
		c := newTestController(&fakePusher{})
		c.Start(ctx, reviewSession(9, "song.ttml"))
		c.ObserveDocument(base, "song.ttml", "p1")

		edited := base.Clone()
		edited.Lines[0].Words[0].StartTime = 100
		c.ObserveDocument(edited, "song.ttml", "p1")

		draft, err := c.Complete(ctx)
		require.NoError(t, err)
		require.NotNil(t, draft)
		assert.Empty(t, draft.Report)
	})

	t.Run("successive completions accumulate on one draft", func(t *testing.T) {
		store := storage.NewMemoryStore()
		c := NewController(store, &fakePusher{}, core.ToolEdit, testLogger())

		run := func(newText string) {
			c.Start(ctx, reviewSession(10, "song.ttml"))
			c.ObserveDocument(base, "song.ttml", "p1")
			edited := base.Clone()
			edited.Lines[0].Words[1].Text = newText
			c.ObserveDocument(edited, "song.ttml", "p1")
			_, err := c.Complete(ctx)
			require.NoError(t, err)
		}
		run("World")
		run("WORLD")

		drafts, err := store.ListDrafts(ctx)
		require.NoError(t, err)
		require.Len(t, drafts, 1)
		assert.Contains(t, drafts[0].Report, "「world」改为「World」")
		assert.Contains(t, drafts[0].Report, "「world」改为「WORLD」")
	})

	t.Run("completing with no session is an error", func(t *testing.T) {
		c := newTestController(&fakePusher{})
		_, err := c.Complete(ctx)
		assert.Error(t, err)
	})

	t.Run("tool mode reverts to default after completion", func(t *testing.T) {
		c := newTestController(&fakePusher{})
		c.Start(ctx, reviewSession(11, "song.ttml"))
		c.ObserveDocument(base, "song.ttml", "p1")
		c.SetToolMode(core.ToolSync)

		_, err := c.Complete(ctx)
		require.NoError(t, err)
		assert.Equal(t, core.ToolEdit, c.ToolMode())
	})
}

func TestControllerCompleteUpdate(t *testing.T) {
	ctx := context.Background()
	doc := makeDoc(lyric.Line{Words: []lyric.Word{word("w1", "Hello", 0, 500)}})

	t.Run("delegates to the pusher and clears the session", func(t *testing.T) {
		pusher := &fakePusher{}
		c := newTestController(pusher)
		session := core.ReviewSession{PRNumber: 5, PRTitle: "song", FileName: "song.ttml", Source: core.SourceUpdate}
		c.Start(ctx, session)
		c.ObserveDocument(doc, "song.ttml", "p1")

		draft, err := c.Complete(ctx)
		require.NoError(t, err)
		assert.Nil(t, draft)
		assert.Equal(t, 1, pusher.pushed)
		assert.Equal(t, 5, pusher.lastSess.PRNumber)
		require.NotNil(t, pusher.lastDoc)
		assert.Nil(t, c.Session())
	})

	t.Run("cancel stops the background poll", func(t *testing.T) {
		pusher := &fakePusher{}
		c := newTestController(pusher)
		session := core.ReviewSession{PRNumber: 5, FileName: "song.ttml", Source: core.SourceUpdate}
		c.Start(ctx, session)
		c.ObserveDocument(doc, "song.ttml", "p1")
		_, err := c.Complete(ctx)
		require.NoError(t, err)
		require.Zero(t, pusher.stopped)

		c.Cancel()
		assert.Equal(t, 1, pusher.stopped)
	})

	t.Run("controller reads stay available during the push", func(t *testing.T) {
		pusher := &reentrantPusher{}
		c := newTestController(pusher)
		var seen *core.ReviewSession
		pusher.during = func() { seen = c.Session() }
		c.Start(ctx, core.ReviewSession{PRNumber: 5, FileName: "song.ttml", Source: core.SourceUpdate})
		c.ObserveDocument(doc, "song.ttml", "p1")

		_, err := c.Complete(ctx)
		require.NoError(t, err)
		require.NotNil(t, seen)
		assert.Equal(t, 5, seen.PRNumber)
	})

	t.Run("cancel during the push stops its poll", func(t *testing.T) {
		pusher := &reentrantPusher{}
		c := newTestController(pusher)
		pusher.during = c.Cancel
		c.Start(ctx, core.ReviewSession{PRNumber: 5, FileName: "song.ttml", Source: core.SourceUpdate})
		c.ObserveDocument(doc, "song.ttml", "p1")

		_, err := c.Complete(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, pusher.inner.stopped)
		assert.Nil(t, c.Session())
	})

	t.Run("starting a new session stops the previous poll", func(t *testing.T) {
		pusher := &fakePusher{}
		c := newTestController(pusher)
		c.Start(ctx, core.ReviewSession{PRNumber: 5, FileName: "song.ttml", Source: core.SourceUpdate})
		c.ObserveDocument(doc, "song.ttml", "p1")
		_, err := c.Complete(ctx)
		require.NoError(t, err)

		c.Start(ctx, reviewSession(6, "next.ttml"))
		assert.Equal(t, 1, pusher.stopped)
	})

	t.Run("push failure keeps the session", func(t *testing.T) {
		pusher := &fakePusher{err: assert.AnError}
		c := newTestController(pusher)
		c.Start(ctx, core.ReviewSession{PRNumber: 5, FileName: "song.ttml", Source: core.SourceUpdate})
		c.ObserveDocument(doc, "song.ttml", "p1")

		_, err := c.Complete(ctx)
		assert.Error(t, err)
		assert.NotNil(t, c.Session())
	})
}
