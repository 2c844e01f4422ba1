package review

import "strings"

// reportSeparator joins independent report fragments. Merging is associative
// because the separator is fixed and empty fragments contribute nothing:
// MergeReports(MergeReports(a, b), c) == MergeReports(a, b, c).
const reportSeparator = "\n\n"

// MergeReports concatenates report fragments in order, dropping empty ones.
// The session controller calls it incrementally across stash-confirmation
// rounds, so the result must not depend on how fragments were batched.
func MergeReports(fragments ...string) string {
	var kept []string
	for _, fragment := range fragments {
		trimmed := strings.TrimSpace(fragment)
		if trimmed == "" {
			continue
		}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, reportSeparator)
}
