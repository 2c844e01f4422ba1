package push

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/lyric-warden/internal/core"
	"github.com/sevigo/lyric-warden/internal/github"
	"github.com/sevigo/lyric-warden/internal/lyric"
)

// fakeClient is a scriptable github.Client. Unused operations fail loudly.
type fakeClient struct {
	mu sync.Mutex

	prDetail    *github.PullRequestDetail
	prErr       error
	prCalls     int
	prSequence  []string
	comments    []github.Comment
	commentErr  error
	gistErr     error
	gistFiles   map[string]string
	posted      []string
	postColl    error
	gistRawURLs map[string]string
}

func (f *fakeClient) GetPullRequest(_ context.Context, _, _ string, _ int) (*github.PullRequestDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prCalls++
	if len(f.prSequence) > 0 {
		sha := f.prSequence[0]
		if len(f.prSequence) > 1 {
			f.prSequence = f.prSequence[1:]
		}
		return &github.PullRequestDetail{Number: 1, HeadSHA: sha, HTMLURL: "https://github.com/o/r/pull/1"}, nil
	}
	if f.prErr != nil {
		return nil, f.prErr
	}
	return f.prDetail, nil
}

func (f *fakeClient) ListPullRequests(context.Context, string, string) ([]core.PullRequest, error) {
	return nil, errors.New("not scripted")
}

func (f *fakeClient) ListPullRequestFiles(context.Context, string, string, int) ([]string, error) {
	return nil, errors.New("not scripted")
}

func (f *fakeClient) ListCommentsSince(context.Context, string, string, int, time.Time) ([]github.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commentErr != nil {
		return nil, f.commentErr
	}
	return f.comments, nil
}

func (f *fakeClient) CreateComment(_ context.Context, _, _ string, _ int, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postColl != nil {
		return f.postColl
	}
	f.posted = append(f.posted, body)
	return nil
}

func (f *fakeClient) CreateGist(_ context.Context, _ string, _ bool, files map[string]string) (*github.GistResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gistErr != nil {
		return nil, f.gistErr
	}
	f.gistFiles = files
	rawURLs := f.gistRawURLs
	if rawURLs == nil {
		rawURLs = make(map[string]string, len(files))
		for name := range files {
			rawURLs[name] = "https://gist.example/raw/" + name
		}
	}
	return &github.GistResult{ID: "g1", RawURLs: rawURLs}, nil
}

func (f *fakeClient) GetAuthenticatedUser(context.Context) (string, error) {
	return "", errors.New("not scripted")
}

func (f *fakeClient) IsCollaborator(context.Context, string, string, string) (bool, error) {
	return false, errors.New("not scripted")
}

func (f *fakeClient) ListLabels(context.Context, string, string) ([]core.ReviewLabel, error) {
	return nil, errors.New("not scripted")
}

func (f *fakeClient) postedComments() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.posted))
	copy(out, f.posted)
	return out
}

type declineConfirmer struct{}

func (declineConfirmer) Confirm(context.Context, string, string) (bool, error) { return false, nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSession() core.ReviewSession {
	return core.ReviewSession{PRNumber: 1, PRTitle: "song", FileName: "song.ttml", Source: core.SourceUpdate}
}

func testDoc() *lyric.Document {
	return &lyric.Document{Lines: []lyric.Line{{
		StartTime: 0, EndTime: 1000,
		Words: []lyric.Word{{ID: "w1", Text: "Hello", StartTime: 0, EndTime: 1000}},
	}}}
}

func newTestOrchestrator(gh github.Client, token string, callbacks Callbacks) *Orchestrator {
	return NewOrchestrator(gh, token, "o", "r", "github-actions", 10*time.Millisecond, AutoConfirm{}, callbacks, testLogger())
}

func TestPushPreconditions(t *testing.T) {
	t.Run("missing token fails immediately", func(t *testing.T) {
		gh := &fakeClient{}
		o := newTestOrchestrator(gh, "  ", Callbacks{})

		_, err := o.Push(context.Background(), testSession(), testDoc())
		assert.ErrorIs(t, err, ErrMissingToken)
		assert.Zero(t, gh.prCalls)
	})

	t.Run("declined confirmation aborts without side effects", func(t *testing.T) {
		gh := &fakeClient{}
		o := NewOrchestrator(gh, "tok", "o", "r", "github-actions", 10*time.Millisecond, declineConfirmer{}, Callbacks{}, testLogger())

		_, err := o.Push(context.Background(), testSession(), testDoc())
		assert.ErrorIs(t, err, ErrDeclined)
		assert.Empty(t, gh.postedComments())
	})
}

func TestPushUploadAndComment(t *testing.T) {
	t.Run("uploads serialized lyric and posts the update command", func(t *testing.T) {
		gh := &fakeClient{prDetail: &github.PullRequestDetail{Number: 1, HeadSHA: "base"}}
		afterPush := false
		o := newTestOrchestrator(gh, "tok", Callbacks{OnAfterPush: func() { afterPush = true }})

		stop, err := o.Push(context.Background(), testSession(), testDoc())
		require.NoError(t, err)
		defer stop()

		require.Contains(t, gh.gistFiles, "song.ttml")
		assert.Contains(t, gh.gistFiles["song.ttml"], "<tt")

		posted := gh.postedComments()
		require.Len(t, posted, 1)
		assert.Equal(t, "/update https://gist.example/raw/song.ttml", posted[0])
		assert.True(t, afterPush)
	})

	t.Run("gist failure aborts via OnError", func(t *testing.T) {
		gh := &fakeClient{prDetail: &github.PullRequestDetail{Number: 1}, gistErr: errors.New("boom")}
		var got error
		o := newTestOrchestrator(gh, "tok", Callbacks{OnError: func(err error) { got = err }})

		_, err := o.Push(context.Background(), testSession(), testDoc())
		assert.Error(t, err)
		assert.Error(t, got)
		assert.Empty(t, gh.postedComments())
	})

	t.Run("comment failure aborts via OnError", func(t *testing.T) {
		gh := &fakeClient{prDetail: &github.PullRequestDetail{Number: 1}, postColl: errors.New("403")}
		var got error
		o := newTestOrchestrator(gh, "tok", Callbacks{OnError: func(err error) { got = err }})

		_, err := o.Push(context.Background(), testSession(), testDoc())
		assert.Error(t, err)
		assert.Error(t, got)
	})

	t.Run("PR status fetch failure is non-fatal", func(t *testing.T) {
		gh := &fakeClient{prErr: errors.New("network down")}
		o := newTestOrchestrator(gh, "tok", Callbacks{})

		stop, err := o.Push(context.Background(), testSession(), testDoc())
		require.NoError(t, err)
		stop()
	})
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestPollOutcomes(t *testing.T) {
	t.Run("head SHA change signals success", func(t *testing.T) {
		gh := &fakeClient{prSequence: []string{"base", "base", "changed"}}
		success := make(chan struct{})
		o := newTestOrchestrator(gh, "tok", Callbacks{OnSuccess: func() { close(success) }})

		stop, err := o.Push(context.Background(), testSession(), testDoc())
		require.NoError(t, err)
		defer stop()

		waitFor(t, success, "success callback")
	})

	t.Run("null baseline adopts the first observed SHA", func(t *testing.T) {
		// The pre-push fetch fails, so the poll starts without a baseline.
		gh := &fakeClient{prErr: errors.New("network down")}
		success := make(chan struct{})
		o := newTestOrchestrator(gh, "tok", Callbacks{OnSuccess: func() { close(success) }})

		stop, err := o.Push(context.Background(), testSession(), testDoc())
		require.NoError(t, err)
		defer stop()

		// First observed SHA becomes the baseline without signaling success.
		gh.mu.Lock()
		gh.prErr = nil
		gh.prSequence = []string{"abc123"}
		gh.mu.Unlock()

		select {
		case <-success:
			t.Fatal("adopting the baseline must not signal success")
		case <-time.After(100 * time.Millisecond):
		}

		// A subsequent different SHA does.
		gh.mu.Lock()
		gh.prSequence = []string{"def456"}
		gh.mu.Unlock()
		waitFor(t, success, "success callback")
	})

	t.Run("automation comment signals failure with a cleaned message", func(t *testing.T) {
		gh := &fakeClient{
			prSequence: []string{"base"},
			comments: []github.Comment{{
				Author: "github-actions",
				Body:   "无法更新!,歌词文件校验失败\n详细日志……",
			}},
		}
		failure := make(chan struct{})
		var gotMessage string
		o := newTestOrchestrator(gh, "tok", Callbacks{OnFailure: func(message, _ string) {
			gotMessage = message
			close(failure)
		}})

		stop, err := o.Push(context.Background(), testSession(), testDoc())
		require.NoError(t, err)
		defer stop()

		waitFor(t, failure, "failure callback")
		assert.Equal(t, "歌词文件校验失败", gotMessage)
	})

	t.Run("comments from other users are ignored", func(t *testing.T) {
		gh := &fakeClient{
			prSequence: []string{"base", "changed"},
			comments:   []github.Comment{{Author: "random-user", Body: "looks broken"}},
		}
		success := make(chan struct{})
		failed := false
		o := newTestOrchestrator(gh, "tok", Callbacks{
			OnSuccess: func() { close(success) },
			OnFailure: func(string, string) { failed = true },
		})

		stop, err := o.Push(context.Background(), testSession(), testDoc())
		require.NoError(t, err)
		defer stop()

		waitFor(t, success, "success callback")
		assert.False(t, failed)
	})

	t.Run("stop silences the poll", func(t *testing.T) {
		gh := &fakeClient{prSequence: []string{"base", "changed"}}
		fired := make(chan struct{}, 1)
		o := newTestOrchestrator(gh, "tok", Callbacks{OnSuccess: func() { fired <- struct{}{} }})

		stop, err := o.Push(context.Background(), testSession(), testDoc())
		require.NoError(t, err)
		stop()
		stop() // idempotent

		select {
		case <-fired:
			t.Fatal("stopped poll must not fire callbacks")
		case <-time.After(100 * time.Millisecond):
		}
	})
}
