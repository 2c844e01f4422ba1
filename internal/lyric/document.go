// Package lyric defines the timed lyric document model shared across the
// application, plus serializers for the supported export formats.
package lyric

// Word is a single timed token within a line. The ID is stable across timing
// edits, which is what makes word-level diffing between snapshots possible.
type Word struct {
	ID        string `json:"id"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime"`
	Text      string `json:"word"`
}

// Line is an ordered run of words with its own time range. Word order within a
// line is significant for positional comparisons.
type Line struct {
	StartTime       int64  `json:"startTime"`
	EndTime         int64  `json:"endTime"`
	Words           []Word `json:"words"`
	TranslatedLyric string `json:"translatedLyric,omitempty"`
	RomanLyric      string `json:"romanLyric,omitempty"`
	IsBG            bool   `json:"isBG,omitempty"`
	IsDuet          bool   `json:"isDuet,omitempty"`
}

// Metadata is a single key with one or more values attached to a document,
// carried through to the TTML export unchanged.
type Metadata struct {
	Key    string   `json:"key"`
	Values []string `json:"value"`
}

// Document is an ordered sequence of lines. Line order is significant.
type Document struct {
	Lines    []Line     `json:"lyricLines"`
	Metadata []Metadata `json:"metadata,omitempty"`
}

// Clone returns a deep copy of the document. Snapshots taken by the review
// session must not alias the live document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		Lines:    make([]Line, len(d.Lines)),
		Metadata: make([]Metadata, len(d.Metadata)),
	}
	for i, line := range d.Lines {
		cloned := line
		cloned.Words = make([]Word, len(line.Words))
		copy(cloned.Words, line.Words)
		out.Lines[i] = cloned
	}
	for i, meta := range d.Metadata {
		cloned := meta
		cloned.Values = make([]string, len(meta.Values))
		copy(cloned.Values, meta.Values)
		out.Metadata[i] = cloned
	}
	return out
}

// Text joins the word texts of a line without separators, the way karaoke
// formats store the display line.
func (l *Line) Text() string {
	var out string
	for _, w := range l.Words {
		out += w.Text
	}
	return out
}

// WordOrderIndex maps each word ID to its document-wide position, counting
// words line by line. Consumers use it to recover document order for
// candidates that were grouped by line.
func (d *Document) WordOrderIndex() map[string]int {
	index := make(map[string]int)
	order := 0
	for _, line := range d.Lines {
		for _, word := range line.Words {
			index[word.ID] = order
			order++
		}
	}
	return index
}
