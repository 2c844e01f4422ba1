// Package core defines the essential data structures shared across the
// application: review sessions, report drafts, and pull request views. These
// types are deliberately free of behavior so every layer can depend on them
// without coupling.
package core

import "fmt"

// SessionSource distinguishes a plain review of a pull request's lyric file
// from a correction/update pass that will push new content back to the PR.
type SessionSource string

const (
	SourceReview SessionSource = "review"
	SourceUpdate SessionSource = "update"
)

// ToolMode mirrors the editor tool the reviewer currently has active. The
// completion path builds a different report depending on it.
type ToolMode string

const (
	ToolEdit   ToolMode = "edit"
	ToolSync   ToolMode = "sync"
	ToolReview ToolMode = "review"
)

// ReviewSession identifies one "reviewing a pull request's lyric file" pass.
// At most one session is active per controller at any time.
type ReviewSession struct {
	PRNumber int           `json:"prNumber"`
	PRTitle  string        `json:"prTitle"`
	FileName string        `json:"fileName"`
	Source   SessionSource `json:"source"`
}

// Key returns the composite identity used to scope stash and selection
// bookkeeping so state survives re-opening the same PR.
func (s ReviewSession) Key() SessionKey {
	return SessionKey{PRNumber: s.PRNumber, FileName: s.FileName}
}

// SessionKey is the (prNumber, fileName) composite identity of a session.
// Using a struct key instead of a concatenated string avoids collisions
// between file names containing separators.
type SessionKey struct {
	PRNumber int    `json:"prNumber"`
	FileName string `json:"fileName"`
}

func (k SessionKey) String() string {
	return fmt.Sprintf("%d:%s", k.PRNumber, k.FileName)
}

// IsZero reports whether the key identifies no session.
func (k SessionKey) IsZero() bool {
	return k.PRNumber == 0 && k.FileName == ""
}
