package review

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sevigo/lyric-warden/internal/core"
	"github.com/sevigo/lyric-warden/internal/lyric"
	"github.com/sevigo/lyric-warden/internal/storage"
)

// Freeze is the immutable baseline snapshot a review session diffs against.
// It is captured once per session, when the target file has loaded into the
// editor, and replaced wholesale when a new session begins.
type Freeze struct {
	PRNumber int             `json:"prNumber"`
	FileName string          `json:"fileName"`
	Data     *lyric.Document `json:"data"`
}

// UpdatePusher is the seam between the session controller and the update-push
// workflow. Completing an update-source session delegates here instead of
// producing a report. The returned stop function terminates the background
// status poll; the controller owns it and stops it on session teardown.
type UpdatePusher interface {
	Push(ctx context.Context, session core.ReviewSession, doc *lyric.Document) (stop func(), err error)
}

// Controller owns the single active review session and everything derived
// from it: the freeze and staged snapshots, sync-change candidates, and the
// pending stash. All methods are safe for concurrent use; state transitions
// run under one mutex so derived collections are always recomputed from a
// consistent snapshot rather than patched incrementally.
type Controller struct {
	mu     sync.Mutex
	logger *slog.Logger
	store  storage.Store
	pusher UpdatePusher

	defaultMode core.ToolMode
	toolMode    core.ToolMode

	session    *core.ReviewSession
	sessionKey core.SessionKey
	freeze     *Freeze
	staged     *lyric.Document

	// Freeze-capture bookkeeping. The live document is populated
	// asynchronously after the session is set, so readiness is detected via
	// observable proxies: save-file name match, project identity change, or
	// document identity change since session start.
	pending          bool
	pendingProjectID string
	pendingDoc       *lyric.Document

	live          *lyric.Document
	liveProjectID string

	candidates []SyncChangeCandidate
	stashItems []StashItem
	selected   map[string]struct{}

	submitted     map[core.SessionKey]map[string]struct{}
	lastSelection map[core.SessionKey][]string

	stopPoll func()
}

// NewController creates a session controller backed by the given store for
// draft and stash-state persistence. defaultMode is the tool mode restored
// after a session completes or is cancelled.
func NewController(store storage.Store, pusher UpdatePusher, defaultMode core.ToolMode, logger *slog.Logger) *Controller {
	return &Controller{
		logger:        logger,
		store:         store,
		pusher:        pusher,
		defaultMode:   defaultMode,
		toolMode:      defaultMode,
		selected:      make(map[string]struct{}),
		submitted:     make(map[core.SessionKey]map[string]struct{}),
		lastSelection: make(map[core.SessionKey][]string),
	}
}

// Start activates a review session. Starting a session whose (prNumber,
// fileName) key differs from the currently tracked one resets all snapshot
// state and arms the freeze-capture trigger; restarting the same key is a
// no-op so an in-flight session is not disturbed.
func (c *Controller) Start(ctx context.Context, session core.ReviewSession) {
	c.mu.Lock()
	defer c.mu.Unlock()

	nextKey := session.Key()
	if c.session != nil && c.sessionKey == nextKey {
		c.session = &session
		return
	}
	c.stopPollLocked()
	c.session = &session
	c.sessionKey = nextKey
	c.pending = true
	c.pendingProjectID = c.liveProjectID
	c.pendingDoc = c.live
	c.freeze = nil
	c.staged = nil
	c.loadStashStateLocked(ctx, nextKey)
	c.recomputeLocked()
	c.logger.Info("review session set",
		"pr", session.PRNumber, "file", session.FileName, "source", session.Source)
}

// loadStashStateLocked pulls persisted submitted/selection sets for the key
// into the in-memory maps. Store failures degrade to empty state.
func (c *Controller) loadStashStateLocked(ctx context.Context, key core.SessionKey) {
	if _, ok := c.submitted[key]; ok {
		return
	}
	state, err := c.store.GetStashState(ctx, key)
	if err != nil {
		c.logger.Warn("failed to load stash state", "key", key.String(), "error", err)
		return
	}
	if state == nil {
		return
	}
	set := make(map[string]struct{}, len(state.Submitted))
	for _, id := range state.Submitted {
		set[id] = struct{}{}
	}
	c.submitted[key] = set
	if len(state.LastSelection) > 0 {
		c.lastSelection[key] = state.LastSelection
	}
}

// ObserveDocument must be called by the owning application every time the
// live document changes, including project switches. It drives freeze
// capture (at most once per session) and unconditional staged refresh for
// the session's PR, then recomputes all derived state.
func (c *Controller) ObserveDocument(doc *lyric.Document, saveFileName, projectID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.live = doc
	c.liveProjectID = projectID

	if c.session == nil {
		return
	}

	if c.pending {
		fileReady := saveFileName == c.session.FileName ||
			projectID != c.pendingProjectID ||
			doc != c.pendingDoc
		if fileReady {
			snapshot := doc.Clone()
			c.freeze = &Freeze{
				PRNumber: c.session.PRNumber,
				FileName: c.session.FileName,
				Data:     snapshot,
			}
			c.staged = snapshot
			c.pending = false
			c.logger.Info("freeze captured", "pr", c.session.PRNumber, "file", c.session.FileName)
		}
	} else if c.freeze != nil && c.freeze.PRNumber == c.session.PRNumber {
		c.staged = doc.Clone()
	}
	c.recomputeLocked()
}

// recomputeLocked rebuilds candidates, pending stash items, and the selection
// from the current freeze/staged pair. Previously submitted word fields never
// re-enter the pending stash for the same session key.
func (c *Controller) recomputeLocked() {
	if c.session == nil || c.freeze == nil {
		c.candidates = nil
		c.stashItems = nil
		c.selected = make(map[string]struct{})
		return
	}
	staged := c.staged
	if staged == nil {
		staged = c.live
	}
	c.candidates = SyncChanges(c.freeze.Data, staged)

	submitted := c.submitted[c.sessionKey]
	var items []StashItem
	for _, cand := range c.candidates {
		if _, done := submitted[cand.WordID]; done {
			continue
		}
		if cand.NewStart != cand.OldStart {
			items = append(items, StashItem{WordID: cand.WordID, Field: FieldStartTime})
		}
		if cand.NewEnd != cand.OldEnd {
			items = append(items, StashItem{WordID: cand.WordID, Field: FieldEndTime})
		}
	}
	c.stashItems = items

	// Drop selections whose items no longer exist (e.g. reverted edits).
	available := make(map[string]struct{}, len(items))
	for _, item := range items {
		available[item.WordID] = struct{}{}
	}
	for id := range c.selected {
		if _, ok := available[id]; !ok {
			delete(c.selected, id)
		}
	}
}

// Complete finishes the active session. Review-source sessions build a report
// (edit-only, or edit plus sync when the sync tool is active), merge it into
// the PR's existing draft, and persist the result. Update-source sessions
// delegate to the update pusher and produce no report. Either way the session
// slot is cleared and the tool mode reverts to the default.
func (c *Controller) Complete(ctx context.Context) (*core.ReportDraft, error) {
	c.mu.Lock()

	session := c.session
	if session == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("no active review session")
	}

	if session.Source == core.SourceUpdate {
		staged := c.staged
		if staged == nil {
			staged = c.live
		}
		// Push blocks on user confirmation and several network calls, so it
		// runs outside the lock; controller reads stay responsive and push
		// callbacks may call back into the controller.
		c.mu.Unlock()
		stop, err := c.pusher.Push(ctx, *session, staged)
		if err != nil {
			return nil, fmt.Errorf("update push failed: %w", err)
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.session != session {
			// A different session took over while the push was in flight;
			// its state wins and this poll stops.
			stop()
			return nil, nil
		}
		c.stopPoll = stop
		c.clearSessionLocked()
		return nil, nil
	}
	defer c.mu.Unlock()

	freezeData := c.live
	if c.freeze != nil {
		freezeData = c.freeze.Data
	}
	staged := c.staged
	if staged == nil {
		staged = c.live
	}

	editReport := EditReport(freezeData, staged)
	report := editReport
	if c.toolMode == core.ToolSync {
		candidates := SyncChanges(freezeData, staged)
		var syncReport string
		if len(c.stashItems) > 0 {
			syncReport = SyncReportFromStash(candidates, c.stashItems)
		} else {
			syncReport = SyncReport(candidates)
		}
		report = MergeReports(editReport, syncReport)
	}

	draft, err := c.mergeDraftLocked(ctx, session.PRNumber, session.PRTitle, report)
	if err != nil {
		return nil, err
	}
	c.clearSessionLocked()
	return draft, nil
}

// mergeDraftLocked merges a new report fragment into the PR's existing draft
// (matched by number, or by title for number-less remote sessions) and
// persists the result.
func (c *Controller) mergeDraftLocked(ctx context.Context, prNumber int, prTitle, report string) (*core.ReportDraft, error) {
	prior, err := c.store.FindDraft(ctx, prNumber, prTitle)
	if err != nil {
		return nil, fmt.Errorf("failed to look up draft: %w", err)
	}
	draft := &core.ReportDraft{PRNumber: prNumber, PRTitle: prTitle}
	if prior != nil {
		draft.ID = prior.ID
		draft.Report = MergeReports(prior.Report, report)
	} else {
		draft.Report = MergeReports(report)
	}
	if err := c.store.UpsertDraft(ctx, draft); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	return draft, nil
}

// Cancel clears the session and all in-flight stash state without producing
// a report, and stops any background poll left over from an update push.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopPollLocked()
	c.clearSessionLocked()
	c.logger.Info("review session cancelled")
}

func (c *Controller) clearSessionLocked() {
	c.session = nil
	c.sessionKey = core.SessionKey{}
	c.pending = false
	c.freeze = nil
	c.staged = nil
	c.candidates = nil
	c.stashItems = nil
	c.selected = make(map[string]struct{})
	c.toolMode = c.defaultMode
}

func (c *Controller) stopPollLocked() {
	if c.stopPoll != nil {
		c.stopPoll()
		c.stopPoll = nil
	}
}

// SetToolMode switches the active editor tool; the completion path inspects
// it to decide whether timing changes are reported.
func (c *Controller) SetToolMode(mode core.ToolMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toolMode = mode
}

// ToolMode returns the currently active tool mode.
func (c *Controller) ToolMode() core.ToolMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.toolMode
}

// Session returns a copy of the active session, or nil when idle.
func (c *Controller) Session() *core.ReviewSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	copied := *c.session
	return &copied
}

// FreezeSnapshot returns the captured baseline, or nil before capture.
func (c *Controller) FreezeSnapshot() *Freeze {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.freeze
}

// StagedSnapshot returns the latest staged document, or nil before capture.
func (c *Controller) StagedSnapshot() *lyric.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.staged
}

// Candidates returns the current sync-change candidates.
func (c *Controller) Candidates() []SyncChangeCandidate {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SyncChangeCandidate, len(c.candidates))
	copy(out, c.candidates)
	return out
}
