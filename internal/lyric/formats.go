package lyric

import (
	"encoding/xml"
	"fmt"
	"path/filepath"
	"strings"
)

// Serialize renders the document in the format matching the file extension.
// Unknown extensions fall back to TTML, which is the repository's canonical
// storage format.
func Serialize(doc *Document, fileName string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	switch ext {
	case "lrc":
		return StringifyLRC(doc)
	case "eslrc":
		return StringifyESLRC(doc)
	case "qrc":
		return StringifyQRC(doc)
	case "yrc":
		return StringifyYRC(doc)
	case "lys":
		return StringifyLYS(doc)
	default:
		return StringifyTTML(doc)
	}
}

// formatLRCTime renders milliseconds as [mm:ss.xx].
func formatLRCTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	minutes := ms / 60000
	seconds := (ms % 60000) / 1000
	hundredths := (ms % 1000) / 10
	return fmt.Sprintf("[%02d:%02d.%02d]", minutes, seconds, hundredths)
}

// StringifyLRC renders plain line-timed LRC. Word timing is dropped; only the
// line start time survives.
func StringifyLRC(doc *Document) string {
	var sb strings.Builder
	for _, line := range doc.Lines {
		sb.WriteString(formatLRCTime(line.StartTime))
		sb.WriteString(line.Text())
		sb.WriteString("\n")
	}
	return sb.String()
}

// StringifyESLRC renders the ESLrc dialect: line timestamp followed by a
// word-level timestamp before each word.
func StringifyESLRC(doc *Document) string {
	var sb strings.Builder
	for _, line := range doc.Lines {
		sb.WriteString(formatLRCTime(line.StartTime))
		for _, word := range line.Words {
			sb.WriteString(formatLRCTime(word.StartTime))
			sb.WriteString(word.Text)
		}
		sb.WriteString(formatLRCTime(line.EndTime))
		sb.WriteString("\n")
	}
	return sb.String()
}

// StringifyQRC renders QQ Music QRC: [start,duration] per line and
// word(start,duration) per word, times in milliseconds.
func StringifyQRC(doc *Document) string {
	var sb strings.Builder
	for _, line := range doc.Lines {
		fmt.Fprintf(&sb, "[%d,%d]", line.StartTime, line.EndTime-line.StartTime)
		for _, word := range line.Words {
			fmt.Fprintf(&sb, "%s(%d,%d)", word.Text, word.StartTime, word.EndTime-word.StartTime)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// StringifyYRC renders Netease YRC, which differs from QRC only in the word
// tuple carrying a trailing zero field.
func StringifyYRC(doc *Document) string {
	var sb strings.Builder
	for _, line := range doc.Lines {
		fmt.Fprintf(&sb, "[%d,%d]", line.StartTime, line.EndTime-line.StartTime)
		for _, word := range line.Words {
			fmt.Fprintf(&sb, "%s(%d,%d,0)", word.Text, word.StartTime, word.EndTime-word.StartTime)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// StringifyLYS renders Lyricify Syllable: a line property tag followed by
// word(start,duration) pairs. Background and duet lines map onto the
// property values the format defines for them.
func StringifyLYS(doc *Document) string {
	var sb strings.Builder
	for _, line := range doc.Lines {
		prop := 0
		switch {
		case line.IsBG && line.IsDuet:
			prop = 7
		case line.IsBG:
			prop = 6
		case line.IsDuet:
			prop = 2
		}
		fmt.Fprintf(&sb, "[%d]", prop)
		for _, word := range line.Words {
			fmt.Fprintf(&sb, "%s(%d,%d)", word.Text, word.StartTime, word.EndTime-word.StartTime)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatTTMLTime renders milliseconds as h:mm:ss.mmm, dropping the hour part
// when zero, matching how the database stores timestamps.
func formatTTMLTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / 3600000
	minutes := (ms % 3600000) / 60000
	seconds := (ms % 60000) / 1000
	millis := ms % 1000
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%03d", hours, minutes, seconds, millis)
	}
	return fmt.Sprintf("%d:%02d.%03d", minutes, seconds, millis)
}

func xmlEscape(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}

// StringifyTTML renders the default TTML lyric format with word-level spans
// and the amll metadata block.
func StringifyTTML(doc *Document) string {
	var sb strings.Builder
	sb.WriteString(`<tt xmlns="http://www.w3.org/ns/ttml" xmlns:ttm="http://www.w3.org/ns/ttml#metadata" xmlns:amll="http://www.example.com/ns/amll" xmlns:itunes="http://music.apple.com/lyric-ttml-internal">`)
	sb.WriteString("<head><metadata>")
	sb.WriteString(`<ttm:agent type="person" xml:id="v1"/>`)
	if hasDuet(doc) {
		sb.WriteString(`<ttm:agent type="other" xml:id="v2"/>`)
	}
	for _, meta := range doc.Metadata {
		for _, value := range meta.Values {
			fmt.Fprintf(&sb, `<amll:meta key="%s" value="%s"/>`, xmlEscape(meta.Key), xmlEscape(value))
		}
	}
	sb.WriteString("</metadata></head><body")
	if len(doc.Lines) > 0 {
		last := doc.Lines[len(doc.Lines)-1]
		fmt.Fprintf(&sb, ` dur="%s"`, formatTTMLTime(last.EndTime))
	}
	sb.WriteString("><div>")
	for i, line := range doc.Lines {
		agent := "v1"
		if line.IsDuet {
			agent = "v2"
		}
		fmt.Fprintf(&sb, `<p begin="%s" end="%s" ttm:agent="%s" itunes:key="L%d">`,
			formatTTMLTime(line.StartTime), formatTTMLTime(line.EndTime), agent, i+1)
		for _, word := range line.Words {
			fmt.Fprintf(&sb, `<span begin="%s" end="%s">%s</span>`,
				formatTTMLTime(word.StartTime), formatTTMLTime(word.EndTime), xmlEscape(word.Text))
		}
		if line.TranslatedLyric != "" {
			fmt.Fprintf(&sb, `<span ttm:role="x-translation" xml:lang="zh-CN">%s</span>`, xmlEscape(line.TranslatedLyric))
		}
		if line.RomanLyric != "" {
			fmt.Fprintf(&sb, `<span ttm:role="x-roman">%s</span>`, xmlEscape(line.RomanLyric))
		}
		sb.WriteString("</p>")
	}
	sb.WriteString("</div></body></tt>")
	return sb.String()
}

func hasDuet(doc *Document) bool {
	for _, line := range doc.Lines {
		if line.IsDuet {
			return true
		}
	}
	return false
}
