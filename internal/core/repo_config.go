package core

// RepoConfig represents the structure of the .lyric-warden.yml file checked
// into the lyric repository. It drives review-listing behavior without
// requiring a service redeploy.
type RepoConfig struct {
	// Labels hidden from the review listing entirely (case-insensitive).
	HiddenLabels []string `yaml:"hidden_labels"`

	// Label marking a PR as waiting on the submitter.
	PendingLabel string `yaml:"pending_label"`

	// Label that floats a PR to the top of the review listing.
	PriorityLabel string `yaml:"priority_label"`

	// Login of the automation account whose comments carry update results.
	AutomationLogin string `yaml:"automation_login"`
}

// DefaultRepoConfig returns a config with default values.
func DefaultRepoConfig() *RepoConfig {
	return &RepoConfig{
		HiddenLabels:    []string{},
		PendingLabel:    "待修改",
		PriorityLabel:   "参与审核招募",
		AutomationLogin: "github-actions",
	}
}
