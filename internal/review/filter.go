package review

import (
	"sort"
	"strings"

	"github.com/sevigo/lyric-warden/internal/core"
)

// FilterOptions narrows the review listing. Zero values disable the
// corresponding filter.
type FilterOptions struct {
	HiddenLabels   []string
	PendingOnly    bool
	UpdatedOnly    bool
	PendingLabel   string
	PostPendingMap map[int]bool
	SelectedLabels []string
	SelectedUser   string
}

func toLowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = struct{}{}
	}
	return set
}

func hasLabel(labels []core.ReviewLabel, name string) bool {
	for _, label := range labels {
		if strings.EqualFold(strings.TrimSpace(label.Name), name) {
			return true
		}
	}
	return false
}

// FilterPullRequests applies the review listing filters in order: hidden
// labels, pending/updated status, label selection, then mentioned user.
func FilterPullRequests(items []core.PullRequest, opts FilterOptions) []core.PullRequest {
	hidden := toLowerSet(opts.HiddenLabels)
	visible := make([]core.PullRequest, 0, len(items))
	for _, pr := range items {
		keep := true
		for _, label := range pr.Labels {
			if _, ok := hidden[strings.ToLower(label.Name)]; ok {
				keep = false
				break
			}
		}
		if keep {
			visible = append(visible, pr)
		}
	}

	if opts.PendingOnly || opts.UpdatedOnly {
		filtered := visible[:0]
		for _, pr := range visible {
			isPending := hasLabel(pr.Labels, opts.PendingLabel)
			isUpdated := isPending && opts.PostPendingMap[pr.Number]
			pendingMatch := isPending && !isUpdated
			switch {
			case opts.PendingOnly && opts.UpdatedOnly:
				if pendingMatch || isUpdated {
					filtered = append(filtered, pr)
				}
			case opts.PendingOnly:
				if pendingMatch {
					filtered = append(filtered, pr)
				}
			default:
				if isUpdated {
					filtered = append(filtered, pr)
				}
			}
		}
		visible = filtered
	}

	if len(opts.SelectedLabels) > 0 {
		selected := toLowerSet(opts.SelectedLabels)
		filtered := visible[:0]
		for _, pr := range visible {
			for _, label := range pr.Labels {
				if _, ok := selected[strings.ToLower(label.Name)]; ok {
					filtered = append(filtered, pr)
					break
				}
			}
		}
		visible = filtered
	}

	if opts.SelectedUser == "" {
		return visible
	}
	user := strings.ToLower(opts.SelectedUser)
	filtered := visible[:0]
	for _, pr := range visible {
		for _, mention := range core.ExtractMentions(pr.Body) {
			if strings.ToLower(mention) == user {
				filtered = append(filtered, pr)
				break
			}
		}
	}
	return filtered
}

// SortByPriority floats PRs carrying the priority label to the front while
// keeping the incoming order stable within each group.
func SortByPriority(items []core.PullRequest, priorityLabel string) []core.PullRequest {
	out := make([]core.PullRequest, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return hasLabel(out[i].Labels, priorityLabel) && !hasLabel(out[j].Labels, priorityLabel)
	})
	return out
}
