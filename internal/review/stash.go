package review

import (
	"context"
	"sort"

	"github.com/sevigo/lyric-warden/internal/core"
)

// StashCardItem is one labeled word inside a stash display card.
type StashCardItem struct {
	WordID string `json:"wordId"`
	Label  string `json:"label"`
}

// StashCard groups one or two adjacent pending changes for presentation.
// Adjacency is decided by document order, not line membership, so a card can
// span a line boundary.
type StashCard struct {
	Lines []int           `json:"lines"`
	Items []StashCardItem `json:"items"`
}

// StashView is the full state a stash dialog needs to render.
type StashView struct {
	Cards     []StashCard `json:"cards"`
	Selected  []string    `json:"selected"`
	ItemCount int         `json:"itemCount"`
}

type displayItem struct {
	lineNumber int
	wordID     string
	label      string
	orderIndex int
}

// buildCardsLocked derives the display cards from the pending stash: one
// display entry per distinct word, sorted by document order from the freeze
// snapshot, then greedily paired when order indices are consecutive.
func (c *Controller) buildCardsLocked() []StashCard {
	candidateByID := make(map[string]SyncChangeCandidate, len(c.candidates))
	for _, cand := range c.candidates {
		candidateByID[cand.WordID] = cand
	}

	orderSource := c.live
	if c.freeze != nil {
		orderSource = c.freeze.Data
	}
	orderIndex := map[string]int{}
	if orderSource != nil {
		orderIndex = orderSource.WordOrderIndex()
	}

	var items []displayItem
	seen := make(map[string]struct{})
	for _, stashItem := range c.stashItems {
		cand, ok := candidateByID[stashItem.WordID]
		if !ok {
			continue
		}
		if _, dup := seen[stashItem.WordID]; dup {
			continue
		}
		seen[stashItem.WordID] = struct{}{}
		label := cand.Word
		if label == "" {
			label = "(空白)"
		}
		order, ok := orderIndex[stashItem.WordID]
		if !ok {
			order = int(^uint(0) >> 1)
		}
		items = append(items, displayItem{
			lineNumber: cand.LineNumber,
			wordID:     stashItem.WordID,
			label:      label,
			orderIndex: order,
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].orderIndex < items[j].orderIndex
	})

	var cards []StashCard
	for i := 0; i < len(items); {
		a := items[i]
		if i+1 < len(items) && items[i+1].orderIndex == a.orderIndex+1 {
			b := items[i+1]
			lines := []int{a.lineNumber}
			if b.lineNumber != a.lineNumber {
				lines = append(lines, b.lineNumber)
			}
			cards = append(cards, StashCard{
				Lines: lines,
				Items: []StashCardItem{
					{WordID: a.wordID, Label: a.label},
					{WordID: b.wordID, Label: b.label},
				},
			})
			i += 2
			continue
		}
		cards = append(cards, StashCard{
			Lines: []int{a.lineNumber},
			Items: []StashCardItem{{WordID: a.wordID, Label: a.label}},
		})
		i++
	}
	return cards
}

// OpenStash restores the last explicit selection for the session key (minus
// items no longer pending) and returns the current stash view.
func (c *Controller) OpenStash() StashView {
	c.mu.Lock()
	defer c.mu.Unlock()

	if last, ok := c.lastSelection[c.sessionKey]; ok && len(c.selected) == 0 {
		available := make(map[string]struct{}, len(c.stashItems))
		for _, item := range c.stashItems {
			available[item.WordID] = struct{}{}
		}
		for _, id := range last {
			if _, ok := available[id]; ok {
				c.selected[id] = struct{}{}
			}
		}
	}
	return c.stashViewLocked()
}

// StashState returns the current stash view without touching the selection.
func (c *Controller) StashState() StashView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stashViewLocked()
}

func (c *Controller) stashViewLocked() StashView {
	selected := make([]string, 0, len(c.selected))
	for id := range c.selected {
		selected = append(selected, id)
	}
	sort.Strings(selected)
	return StashView{
		Cards:     c.buildCardsLocked(),
		Selected:  selected,
		ItemCount: len(c.stashItems),
	}
}

// ToggleStashItem flips a word's membership in the selection set and records
// the selection as the session key's last explicit choice.
func (c *Controller) ToggleStashItem(wordID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.selected[wordID]; ok {
		delete(c.selected, wordID)
	} else {
		c.selected[wordID] = struct{}{}
	}
	c.rememberSelectionLocked()
}

func (c *Controller) rememberSelectionLocked() {
	if c.sessionKey.IsZero() || len(c.selected) == 0 {
		return
	}
	selection := make([]string, 0, len(c.selected))
	for id := range c.selected {
		selection = append(selection, id)
	}
	sort.Strings(selection)
	c.lastSelection[c.sessionKey] = selection
}

// RemoveSelected drops the selected items from the pending stash without
// submitting them. They will not be flagged again unless their timing
// changes further.
func (c *Controller) RemoveSelected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var kept []StashItem
	for _, item := range c.stashItems {
		if _, ok := c.selected[item.WordID]; !ok {
			kept = append(kept, item)
		}
	}
	c.stashItems = kept
}

// ClearStash empties the entire pending stash and the selection.
func (c *Controller) ClearStash() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stashItems = nil
	c.selected = make(map[string]struct{})
}

// ConfirmStash builds a sync report from exactly the selected items, merges
// it into the PR's draft, marks the items as submitted for the session key so
// they never re-enter the pending stash, and removes them from the pending
// set. Unselected items stay pending. Confirming with an empty selection is a
// no-op, not an error.
func (c *Controller) ConfirmStash(ctx context.Context) (*core.ReportDraft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var selectedItems []StashItem
	for _, item := range c.stashItems {
		if _, ok := c.selected[item.WordID]; ok {
			selectedItems = append(selectedItems, item)
		}
	}
	if len(selectedItems) == 0 {
		return nil, nil
	}

	report := SyncReportFromStash(c.candidates, selectedItems)

	var prNumber int
	var prTitle string
	if c.session != nil {
		prNumber = c.session.PRNumber
		prTitle = c.session.PRTitle
	}
	draft, err := c.mergeDraftLocked(ctx, prNumber, prTitle, report)
	if err != nil {
		return nil, err
	}

	if !c.sessionKey.IsZero() {
		submitted, ok := c.submitted[c.sessionKey]
		if !ok {
			submitted = make(map[string]struct{})
			c.submitted[c.sessionKey] = submitted
		}
		for _, item := range selectedItems {
			submitted[item.WordID] = struct{}{}
		}
		c.rememberSelectionLocked()
		c.persistStashStateLocked(ctx)
	}

	var remaining []StashItem
	for _, item := range c.stashItems {
		if _, ok := c.selected[item.WordID]; !ok {
			remaining = append(remaining, item)
		}
	}
	c.stashItems = remaining
	c.selected = make(map[string]struct{})
	return draft, nil
}

// persistStashStateLocked mirrors the in-memory submitted/selection sets for
// the active key to the store. Failures are logged, not surfaced; the
// in-memory state remains authoritative for the process lifetime.
func (c *Controller) persistStashStateLocked(ctx context.Context) {
	submitted := make([]string, 0, len(c.submitted[c.sessionKey]))
	for id := range c.submitted[c.sessionKey] {
		submitted = append(submitted, id)
	}
	sort.Strings(submitted)
	state := &core.StashState{
		Submitted:     submitted,
		LastSelection: c.lastSelection[c.sessionKey],
	}
	if err := c.store.PutStashState(ctx, c.sessionKey, state); err != nil {
		c.logger.Warn("failed to persist stash state",
			"key", c.sessionKey.String(), "error", err)
	}
}

// PendingStashItems returns a copy of the pending stash.
func (c *Controller) PendingStashItems() []StashItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]StashItem, len(c.stashItems))
	copy(out, c.stashItems)
	return out
}
