package core

import (
	"regexp"
	"time"
)

// ReviewLabel is a label attached to a pull request in the lyric repository.
type ReviewLabel struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// PullRequest is a simplified, internal view of a pull request in the lyric
// repository, carrying only the fields the review workflow needs.
type PullRequest struct {
	Number    int           `json:"number"`
	Title     string        `json:"title"`
	Body      string        `json:"body"`
	Author    string        `json:"author"`
	Labels    []ReviewLabel `json:"labels"`
	HeadSHA   string        `json:"headSha"`
	HTMLURL   string        `json:"htmlUrl"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

var mentionRegex = regexp.MustCompile(`@([A-Za-z0-9](?:[A-Za-z0-9-]{0,37}[A-Za-z0-9])?)`)

// ExtractMentions returns the GitHub logins mentioned in a PR body, in order
// of first appearance.
func ExtractMentions(body string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, match := range mentionRegex.FindAllStringSubmatch(body, -1) {
		login := match[1]
		if _, ok := seen[login]; ok {
			continue
		}
		seen[login] = struct{}{}
		out = append(out, login)
	}
	return out
}
