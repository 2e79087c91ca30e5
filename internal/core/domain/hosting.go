package domain

import "time"

// Pull-request and issue states as reported by the hosting service.
const (
	StateOpen   = "open"
	StateClosed = "closed"
)

// GitRef is a branch pointer on the hosting service.
type GitRef struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// PullRequest is the host-reported shape of a pull request.
// Mergeable is tri-state: nil means the host has not computed it yet.
type PullRequest struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	State     string `json:"state"`
	Head      GitRef `json:"head"`
	Base      GitRef `json:"base"`
	HTMLURL   string `json:"html_url"`
	Mergeable *bool  `json:"mergeable"`
	Merged    bool   `json:"merged"`
	Draft     bool   `json:"draft"`
}

// Issue is the host-reported shape of an issue, consumed read-only by the
// deduplicator. An empty Body means the host reported none.
type Issue struct {
	Number    int       `json:"number"     yaml:"number"`
	Title     string    `json:"title"      yaml:"title"`
	Body      string    `json:"body"       yaml:"body"`
	State     string    `json:"state"      yaml:"state"`
	Labels    []string  `json:"labels"     yaml:"labels"`
	HTMLURL   string    `json:"html_url"   yaml:"html_url"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Assignee  string    `json:"assignee"   yaml:"assignee"`
}
