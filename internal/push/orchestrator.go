// Package push implements the update-push workflow: uploading a corrected
// lyric file for an existing pull request and watching the remote automation
// apply it. One push walks through confirm → fetch PR status → upload
// content → post command comment → poll for completion.
package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sevigo/lyric-warden/internal/core"
	"github.com/sevigo/lyric-warden/internal/github"
	"github.com/sevigo/lyric-warden/internal/lyric"
)

var (
	// ErrMissingToken is returned when no authentication token is configured.
	ErrMissingToken = errors.New("no authentication token configured")
	// ErrDeclined is returned when the user rejects the confirmation prompt.
	ErrDeclined = errors.New("update push declined")
)

// Confirmer gates the push behind an explicit user decision. Server
// deployments auto-confirm; the CLI prompts on the terminal.
type Confirmer interface {
	Confirm(ctx context.Context, title, description string) (bool, error)
}

// AutoConfirm is a Confirmer that always proceeds.
type AutoConfirm struct{}

func (AutoConfirm) Confirm(context.Context, string, string) (bool, error) { return true, nil }

// Callbacks receive the orchestrator's terminal outcomes. All fields are
// optional. OnAfterPush fires as soon as the command comment has been posted,
// regardless of how the remote automation eventually finishes, so the caller
// can reset local state immediately. OnFailure carries a diagnosed remote
// failure message plus the PR URL; OnError carries undiagnosed fatal step
// failures with no further detail.
type Callbacks struct {
	OnAfterPush func()
	OnSuccess   func()
	OnFailure   func(message, prURL string)
	OnError     func(err error)
}

// Orchestrator drives update pushes against one lyric repository.
type Orchestrator struct {
	gh              github.Client
	logger          *slog.Logger
	token           string
	owner           string
	repo            string
	automationLogin string
	pollInterval    time.Duration
	confirmer       Confirmer
	callbacks       Callbacks
}

// NewOrchestrator creates an update-push orchestrator. pollInterval controls
// the completion poll; zero selects the 20-second default.
func NewOrchestrator(gh github.Client, token, owner, repo, automationLogin string, pollInterval time.Duration, confirmer Confirmer, callbacks Callbacks, logger *slog.Logger) *Orchestrator {
	if pollInterval <= 0 {
		pollInterval = 20 * time.Second
	}
	if automationLogin == "" {
		automationLogin = "github-actions"
	}
	if confirmer == nil {
		confirmer = AutoConfirm{}
	}
	return &Orchestrator{
		gh:              gh,
		logger:          logger,
		token:           token,
		owner:           owner,
		repo:            repo,
		automationLogin: automationLogin,
		pollInterval:    pollInterval,
		confirmer:       confirmer,
		callbacks:       callbacks,
	}
}

// Push uploads the document as the PR's corrected lyric file and posts the
// update command comment. On success it starts a background completion poll
// and returns a stop function the caller must invoke on session teardown; an
// unstopped poll keeps running silently in the background.
//
// The PR-status fetch before the upload is best-effort: when it fails the
// poll starts without a baseline head SHA and adopts the first SHA it
// observes instead of treating it as a change.
func (o *Orchestrator) Push(ctx context.Context, session core.ReviewSession, doc *lyric.Document) (func(), error) {
	token := strings.TrimSpace(o.token)
	if token == "" {
		o.logger.Error("update push rejected: no token configured", "pr", session.PRNumber)
		return nil, ErrMissingToken
	}

	ok, err := o.confirmer.Confirm(ctx,
		"确认修改完成",
		fmt.Sprintf("确认后将上传歌词并回复 PR #%d。", session.PRNumber))
	if err != nil {
		return nil, fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		return nil, ErrDeclined
	}

	baseHeadSHA := ""
	prURL := fmt.Sprintf("https://github.com/%s/%s/pull/%d", o.owner, o.repo, session.PRNumber)
	if detail, err := o.gh.GetPullRequest(ctx, o.owner, o.repo, session.PRNumber); err == nil {
		baseHeadSHA = detail.HeadSHA
		if detail.HTMLURL != "" {
			prURL = detail.HTMLURL
		}
	} else {
		o.logger.Warn("failed to fetch PR status before push, proceeding without baseline",
			"pr", session.PRNumber, "error", err)
	}

	rawURL, err := o.uploadContent(ctx, session, doc)
	if err != nil {
		o.fail(err)
		return nil, err
	}

	if err := o.gh.CreateComment(ctx, o.owner, o.repo, session.PRNumber,
		fmt.Sprintf("/update %s", rawURL)); err != nil {
		err = fmt.Errorf("failed to post update comment: %w", err)
		o.fail(err)
		return nil, err
	}

	if o.callbacks.OnAfterPush != nil {
		o.callbacks.OnAfterPush()
	}
	o.logger.Info("update pushed", "pr", session.PRNumber, "raw_url", rawURL)

	return o.startPoll(session.PRNumber, baseHeadSHA, prURL, time.Now()), nil
}

func (o *Orchestrator) fail(err error) {
	o.logger.Error("update push failed", "error", err)
	if o.callbacks.OnError != nil {
		o.callbacks.OnError(err)
	}
}

// uploadContent serializes the document in the PR's original file format and
// uploads it as a secret gist, returning the raw content URL.
func (o *Orchestrator) uploadContent(ctx context.Context, session core.ReviewSession, doc *lyric.Document) (string, error) {
	fileName := strings.TrimSpace(session.FileName)
	if fileName == "" {
		fileName = "lyric.ttml"
	}
	content := lyric.Serialize(doc, fileName)

	gist, err := o.gh.CreateGist(ctx,
		fmt.Sprintf("lyric-warden update for PR #%d %s", session.PRNumber, session.PRTitle),
		false,
		map[string]string{fileName: content})
	if err != nil {
		return "", fmt.Errorf("failed to upload content: %w", err)
	}
	rawURL := gist.RawURLs[fileName]
	if rawURL == "" {
		for _, url := range gist.RawURLs {
			rawURL = url
			break
		}
	}
	if rawURL == "" {
		return "", fmt.Errorf("gist upload returned no raw content URL")
	}
	return rawURL, nil
}

// reasonClause strips a leading "reason," clause up to the first comma
// (fullwidth or ASCII) from an automation failure line.
var reasonClause = regexp.MustCompile(`^[^，,]+[，,]\s*`)

// startPoll watches the PR until the automation reports failure or the head
// commit changes. Transient fetch errors are logged and retried on the next
// tick. The returned function stops the poll; calling it more than once is
// safe.
func (o *Orchestrator) startPoll(prNumber int, baseHeadSHA, prURL string, startedAt time.Time) func() {
	stopCh := make(chan struct{})
	var once sync.Once
	stop := func() { once.Do(func() { close(stopCh) }) }

	go func() {
		ticker := time.NewTicker(o.pollInterval)
		defer ticker.Stop()

		lastHeadSHA := baseHeadSHA
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
			}
			// A stop issued before this tick always wins, even when both
			// channels were ready at once.
			select {
			case <-stopCh:
				return
			default:
			}

			ctx, cancel := context.WithTimeout(context.Background(), o.pollInterval)
			if message, found := o.checkFailureComment(ctx, prNumber, startedAt); found {
				cancel()
				stop()
				if o.callbacks.OnFailure != nil {
					o.callbacks.OnFailure(message, prURL)
				}
				return
			}

			if detail, err := o.gh.GetPullRequest(ctx, o.owner, o.repo, prNumber); err != nil {
				o.logger.Debug("poll tick: PR detail fetch failed", "pr", prNumber, "error", err)
			} else if detail.HeadSHA != "" {
				if lastHeadSHA == "" {
					// No baseline was captured before the push; adopt the
					// first observed SHA rather than treating it as a change.
					lastHeadSHA = detail.HeadSHA
				} else if detail.HeadSHA != lastHeadSHA {
					cancel()
					stop()
					o.logger.Info("update applied", "pr", prNumber, "head_sha", detail.HeadSHA)
					if o.callbacks.OnSuccess != nil {
						o.callbacks.OnSuccess()
					}
					return
				}
			}
			cancel()
		}
	}()
	return stop
}

// checkFailureComment looks for an automation-authored comment posted after
// the push started. Its first line, minus the leading reason clause, is the
// authoritative failure message.
func (o *Orchestrator) checkFailureComment(ctx context.Context, prNumber int, startedAt time.Time) (string, bool) {
	comments, err := o.gh.ListCommentsSince(ctx, o.owner, o.repo, prNumber, startedAt)
	if err != nil {
		o.logger.Debug("poll tick: comment fetch failed", "pr", prNumber, "error", err)
		return "", false
	}
	for _, comment := range comments {
		if !strings.EqualFold(comment.Author, o.automationLogin) {
			continue
		}
		firstLine := strings.TrimSpace(strings.SplitN(comment.Body, "\n", 2)[0])
		firstLine = strings.TrimSuffix(firstLine, "\r")
		if firstLine == "" {
			continue
		}
		message := reasonClause.ReplaceAllString(firstLine, "")
		if message == "" {
			message = firstLine
		}
		return message, true
	}
	return "", false
}
