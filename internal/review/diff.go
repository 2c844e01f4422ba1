// Package review implements the review-session engine: snapshot diffing,
// report building, stash management, and the session lifecycle that ties them
// together.
package review

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sevigo/lyric-warden/internal/lyric"
)

// SyncChangeCandidate is one word whose timing differs between the frozen
// baseline and the staged snapshot. Candidates are derived, never persisted;
// they are recomputed from scratch on every staged update.
type SyncChangeCandidate struct {
	WordID     string `json:"wordId"`
	LineNumber int    `json:"lineNumber"`
	Word       string `json:"word"`
	OldStart   int64  `json:"oldStart"`
	OldEnd     int64  `json:"oldEnd"`
	NewStart   int64  `json:"newStart"`
	NewEnd     int64  `json:"newEnd"`
}

// StashField names which side of a word's time range a stash item refers to.
type StashField string

const (
	FieldStartTime StashField = "startTime"
	FieldEndTime   StashField = "endTime"
)

// StashItem is a single field-level pending-confirmation marker. A word can
// have up to two: one per field whose value changed.
type StashItem struct {
	WordID string     `json:"wordId"`
	Field  StashField `json:"field"`
}

type baseWord struct {
	start int64
	end   int64
}

// SyncChanges compares every word present in both documents by ID and emits a
// candidate for each word whose start or end time differs. Words missing from
// either side are the edit report's concern, not this one's. Line numbers are
// 1-based positions in the current document.
func SyncChanges(base, cur *lyric.Document) []SyncChangeCandidate {
	if base == nil || cur == nil {
		return nil
	}
	baseline := make(map[string]baseWord)
	for _, line := range base.Lines {
		for _, word := range line.Words {
			baseline[word.ID] = baseWord{start: word.StartTime, end: word.EndTime}
		}
	}
	var out []SyncChangeCandidate
	for lineIdx, line := range cur.Lines {
		for _, word := range line.Words {
			old, ok := baseline[word.ID]
			if !ok {
				continue
			}
			if old.start == word.StartTime && old.end == word.EndTime {
				continue
			}
			out = append(out, SyncChangeCandidate{
				WordID:     word.ID,
				LineNumber: lineIdx + 1,
				Word:       word.Text,
				OldStart:   old.start,
				OldEnd:     old.end,
				NewStart:   word.StartTime,
				NewEnd:     word.EndTime,
			})
		}
	}
	return out
}

// EditReport produces a one-directional, human-readable summary of structural
// edits between the baseline and the current document. Diffing a document
// against itself yields an empty report.
func EditReport(base, cur *lyric.Document) string {
	if base == nil || cur == nil {
		return ""
	}
	var entries []string
	if len(base.Lines) != len(cur.Lines) {
		entries = append(entries, fmt.Sprintf("行数变化:%d 行 → %d 行", len(base.Lines), len(cur.Lines)))
	}
	shared := len(base.Lines)
	if len(cur.Lines) < shared {
		shared = len(cur.Lines)
	}
	for i := 0; i < shared; i++ {
		entries = append(entries, diffLine(i+1, &base.Lines[i], &cur.Lines[i])...)
	}
	for i := shared; i < len(cur.Lines); i++ {
		entries = append(entries, fmt.Sprintf("第 %d 行:新增「%s」", i+1, cur.Lines[i].Text()))
	}
	for i := shared; i < len(base.Lines); i++ {
		entries = append(entries, fmt.Sprintf("第 %d 行:删除「%s」", i+1, base.Lines[i].Text()))
	}
	if len(entries) == 0 {
		return ""
	}
	return "【内容修改】\n" + strings.Join(entries, "\n")
}

func diffLine(lineNumber int, base, cur *lyric.Line) []string {
	var entries []string
	baseIDs := make(map[string]string, len(base.Words))
	for _, word := range base.Words {
		baseIDs[word.ID] = word.Text
	}
	curIDs := make(map[string]string, len(cur.Words))
	for _, word := range cur.Words {
		curIDs[word.ID] = word.Text
	}
	for _, word := range cur.Words {
		oldText, ok := baseIDs[word.ID]
		switch {
		case !ok:
			entries = append(entries, fmt.Sprintf("第 %d 行:新增单词「%s」", lineNumber, word.Text))
		case oldText != word.Text:
			entries = append(entries, fmt.Sprintf("第 %d 行:「%s」改为「%s」", lineNumber, oldText, word.Text))
		}
	}
	for _, word := range base.Words {
		if _, ok := curIDs[word.ID]; !ok {
			entries = append(entries, fmt.Sprintf("第 %d 行:删除单词「%s」", lineNumber, word.Text))
		}
	}
	if len(entries) == 0 && reordered(base.Words, cur.Words) {
		entries = append(entries, fmt.Sprintf("第 %d 行:单词顺序调整", lineNumber))
	}
	if base.TranslatedLyric != cur.TranslatedLyric {
		entries = append(entries, fmt.Sprintf("第 %d 行:翻译由「%s」改为「%s」", lineNumber, base.TranslatedLyric, cur.TranslatedLyric))
	}
	if base.RomanLyric != cur.RomanLyric {
		entries = append(entries, fmt.Sprintf("第 %d 行:音译由「%s」改为「%s」", lineNumber, base.RomanLyric, cur.RomanLyric))
	}
	return entries
}

// reordered reports whether two word sequences contain the same IDs in a
// different order. Called only when no words were added, removed, or edited.
func reordered(base, cur []lyric.Word) bool {
	if len(base) != len(cur) {
		return false
	}
	for i := range base {
		if base[i].ID != cur[i].ID {
			return true
		}
	}
	return false
}

func formatTimestamp(ms int64) string {
	neg := ""
	if ms < 0 {
		neg = "-"
		ms = -ms
	}
	return fmt.Sprintf("%s%02d:%02d.%03d", neg, ms/60000, (ms%60000)/1000, ms%1000)
}

func syncEntry(c SyncChangeCandidate, includeStart, includeEnd bool) string {
	word := c.Word
	if word == "" {
		word = "(空白)"
	}
	parts := []string{fmt.Sprintf("第 %d 行「%s」", c.LineNumber, word)}
	if includeStart && c.OldStart != c.NewStart {
		parts = append(parts, fmt.Sprintf("起点 %s → %s", formatTimestamp(c.OldStart), formatTimestamp(c.NewStart)))
	}
	if includeEnd && c.OldEnd != c.NewEnd {
		parts = append(parts, fmt.Sprintf("终点 %s → %s", formatTimestamp(c.OldEnd), formatTimestamp(c.NewEnd)))
	}
	if len(parts) == 1 {
		return ""
	}
	return strings.Join(parts, ",")
}

func renderSyncReport(cands []SyncChangeCandidate, include func(SyncChangeCandidate) (bool, bool)) string {
	sorted := make([]SyncChangeCandidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].LineNumber != sorted[j].LineNumber {
			return sorted[i].LineNumber < sorted[j].LineNumber
		}
		if sorted[i].NewStart != sorted[j].NewStart {
			return sorted[i].NewStart < sorted[j].NewStart
		}
		return sorted[i].WordID < sorted[j].WordID
	})
	var entries []string
	for _, c := range sorted {
		start, end := include(c)
		if !start && !end {
			continue
		}
		if entry := syncEntry(c, start, end); entry != "" {
			entries = append(entries, entry)
		}
	}
	if len(entries) == 0 {
		return ""
	}
	return "【时间轴调整】\n" + strings.Join(entries, "\n")
}

// SyncReport renders a time-axis report covering every candidate. The result
// depends only on the candidate set, not on input ordering.
func SyncReport(cands []SyncChangeCandidate) string {
	return renderSyncReport(cands, func(SyncChangeCandidate) (bool, bool) {
		return true, true
	})
}

// SyncReportFromStash renders a time-axis report restricted to the given
// stash items, at field granularity: a word whose start was stashed but whose
// end was not reports only the start change.
func SyncReportFromStash(cands []SyncChangeCandidate, items []StashItem) string {
	included := make(map[string]map[StashField]struct{})
	for _, item := range items {
		fields, ok := included[item.WordID]
		if !ok {
			fields = make(map[StashField]struct{})
			included[item.WordID] = fields
		}
		fields[item.Field] = struct{}{}
	}
	return renderSyncReport(cands, func(c SyncChangeCandidate) (bool, bool) {
		fields, ok := included[c.WordID]
		if !ok {
			return false, false
		}
		_, start := fields[FieldStartTime]
		_, end := fields[FieldEndTime]
		return start, end
	})
}
