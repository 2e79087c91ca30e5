// Package hosting defines the contracts for the remote Git-hosting
// service. The landing pipeline only ever talks to these interfaces;
// concrete API clients and the in-memory fake live in subpackages.
package hosting

import (
	"context"
	"errors"

	"github.com/forgeflow/autoland/internal/core/domain"
)

var (
	// ErrBranchNotFound is returned when a branch doesn't exist
	ErrBranchNotFound = errors.New("branch not found")

	// ErrPRNotFound is returned when a pull request doesn't exist
	ErrPRNotFound = errors.New("pull request not found")
)

// MergeMethod is how the host combines a pull request into its base.
type MergeMethod string

const (
	MethodMerge  MergeMethod = "merge"
	MethodSquash MergeMethod = "squash"
	MethodRebase MergeMethod = "rebase"
)

// MergeResult is the host's answer to a merge call.
type MergeResult struct {
	Merged  bool   `json:"merged"`
	SHA     string `json:"sha,omitempty"`
	Message string `json:"message,omitempty"`
}

// ChecksState summarizes CI check runs on a ref.
type ChecksState string

const (
	ChecksPassing ChecksState = "passing"
	ChecksFailing ChecksState = "failing"
	ChecksPending ChecksState = "pending"
)

// ChecksStatus reports CI progress for one ref.
type ChecksStatus struct {
	State   ChecksState `json:"state"`
	Total   int         `json:"total"`
	Passed  int         `json:"passed"`
	Failed  int         `json:"failed"`
	Pending int         `json:"pending"`
}

// CreatePRParams describes a pull request to open.
type CreatePRParams struct {
	Title string
	Body  string
	Head  string
	Base  string
	Draft bool
}

// PullRequestManager handles pull-request operations against the host.
type PullRequestManager interface {
	// FindPRForBranch returns the open PR whose head is branch, or
	// (nil, nil) when there is none.
	FindPRForBranch(ctx context.Context, branch string) (*domain.PullRequest, error)

	// GetPR retrieves a PR by number, or (nil, nil) when it doesn't exist.
	GetPR(ctx context.Context, number int) (*domain.PullRequest, error)

	// CreatePR opens a new pull request.
	CreatePR(ctx context.Context, params CreatePRParams) (*domain.PullRequest, error)

	// MergePR asks the host to merge the PR with the given method.
	MergePR(ctx context.Context, pr *domain.PullRequest, method MergeMethod) (*MergeResult, error)

	// ClosePR closes a PR without merging.
	ClosePR(ctx context.Context, number int) error

	// UpdatePRFromBase integrates the base branch into the PR head,
	// reporting whether the host accepted the update.
	UpdatePRFromBase(ctx context.Context, pr *domain.PullRequest) (bool, error)

	// WaitForMergeable blocks until the host has computed mergeability
	// for the PR and reports the result.
	WaitForMergeable(ctx context.Context, pr *domain.PullRequest) (bool, error)

	// GetChecksStatus summarizes CI checks on a ref.
	GetChecksStatus(ctx context.Context, ref string) (*ChecksStatus, error)
}

// BranchManager handles branch operations against the host.
type BranchManager interface {
	// GetBranch retrieves one branch ref.
	GetBranch(ctx context.Context, name string) (*domain.GitRef, error)

	// ListBranches lists all branch refs.
	ListBranches(ctx context.Context) ([]domain.GitRef, error)

	// CreateBranch creates a branch at the given commit.
	CreateBranch(ctx context.Context, name, fromSHA string) (*domain.GitRef, error)

	// DeleteBranch removes a branch. Callers landing a merged PR treat
	// a failure here as non-fatal.
	DeleteBranch(ctx context.Context, name string) error

	// BranchExists reports whether a branch exists.
	BranchExists(ctx context.Context, name string) (bool, error)
}
