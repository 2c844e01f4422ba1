package core

import "time"

// ReportDraft is the accumulated textual review report for one pull request.
// Drafts are merged across multiple editing and stash-confirmation rounds
// before the reviewer publishes them.
type ReportDraft struct {
	ID        int64     `json:"id"`
	PRNumber  int       `json:"prNumber"`
	PRTitle   string    `json:"prTitle"`
	Report    string    `json:"report"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Matches reports whether this draft belongs to the given PR. Drafts for
// numbered PRs match by number; drafts created from remote files (number 0)
// fall back to the title.
func (d *ReportDraft) Matches(prNumber int, prTitle string) bool {
	if prNumber != 0 {
		return d.PRNumber == prNumber
	}
	return d.PRTitle == prTitle
}

// StashState is the per-session-key bookkeeping that must survive re-opening
// the same PR: word IDs already submitted in a confirmed stash round, and the
// reviewer's last explicit selection.
type StashState struct {
	Submitted     []string `json:"submitted"`
	LastSelection []string `json:"lastSelection"`
}
