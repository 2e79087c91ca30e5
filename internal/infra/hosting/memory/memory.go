// Package memory is an in-memory hosting service used by the demo
// command and the end-to-end tests. It models just enough host
// behavior to exercise the landing pipeline: mergeability flips,
// base-branch updates, merge SHAs, branch lifecycle.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/forgeflow/autoland/internal/core/domain"
	"github.com/forgeflow/autoland/internal/infra/hosting"
)

// Host implements hosting.PullRequestManager and hosting.BranchManager
// against maps.
type Host struct {
	mu       sync.RWMutex
	prs      map[int]*domain.PullRequest
	branches map[string]domain.GitRef
	issues   []domain.Issue
	checks   map[string]hosting.ChecksStatus
	nextPR   int

	// conflictsToClear maps a PR number to how many base updates it
	// takes before the host reports it mergeable.
	conflictsToClear map[int]int
}

// NewHost creates an empty host with a default base branch.
func NewHost() *Host {
	h := &Host{
		prs:              make(map[int]*domain.PullRequest),
		branches:         make(map[string]domain.GitRef),
		checks:           make(map[string]hosting.ChecksStatus),
		conflictsToClear: make(map[int]int),
		nextPR:           1,
	}
	h.branches["main"] = domain.GitRef{Ref: "main", SHA: newSHA()}
	return h
}

func newSHA() string {
	return uuid.NewString()[:8]
}

// -----------------------------------------------------------------------------
// Seeding helpers for demos and tests
// -----------------------------------------------------------------------------

// SeedBranch registers a branch with a fresh SHA and returns its ref.
func (h *Host) SeedBranch(name string) domain.GitRef {
	h.mu.Lock()
	defer h.mu.Unlock()
	ref := domain.GitRef{Ref: name, SHA: newSHA()}
	h.branches[name] = ref
	return ref
}

// SeedPR opens a PR from branch into base. conflicts is how many base
// updates the host will demand before reporting it mergeable; zero
// means mergeable right away.
func (h *Host) SeedPR(branch, base, title string, conflicts int) *domain.PullRequest {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.branches[branch]; !ok {
		h.branches[branch] = domain.GitRef{Ref: branch, SHA: newSHA()}
	}

	number := h.nextPR
	h.nextPR++
	mergeable := conflicts == 0
	pr := &domain.PullRequest{
		Number:    number,
		Title:     title,
		State:     domain.StateOpen,
		Head:      h.branches[branch],
		Base:      h.branches[base],
		HTMLURL:   fmt.Sprintf("https://example.test/pr/%d", number),
		Mergeable: &mergeable,
	}
	h.prs[number] = pr
	if conflicts > 0 {
		h.conflictsToClear[number] = conflicts
	}
	return pr
}

// SeedIssue registers an open issue visible to the deduplicator.
func (h *Host) SeedIssue(issue domain.Issue) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.issues = append(h.issues, issue)
}

// OpenIssues returns the seeded issues.
func (h *Host) OpenIssues() []domain.Issue {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]domain.Issue, len(h.issues))
	copy(out, h.issues)
	return out
}

// SetChecks sets the CI summary reported for a ref.
func (h *Host) SetChecks(ref string, status hosting.ChecksStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[ref] = status
}

// -----------------------------------------------------------------------------
// PullRequestManager
// -----------------------------------------------------------------------------

func (h *Host) FindPRForBranch(ctx context.Context, branch string) (*domain.PullRequest, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, pr := range h.prs {
		if pr.Head.Ref == branch && pr.State == domain.StateOpen {
			cp := *pr
			return &cp, nil
		}
	}
	return nil, nil
}

func (h *Host) GetPR(ctx context.Context, number int) (*domain.PullRequest, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	pr, ok := h.prs[number]
	if !ok {
		return nil, nil
	}
	cp := *pr
	return &cp, nil
}

func (h *Host) CreatePR(ctx context.Context, params hosting.CreatePRParams) (*domain.PullRequest, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	head, ok := h.branches[params.Head]
	if !ok {
		return nil, fmt.Errorf("create pr: %w: %s", hosting.ErrBranchNotFound, params.Head)
	}
	base, ok := h.branches[params.Base]
	if !ok {
		return nil, fmt.Errorf("create pr: %w: %s", hosting.ErrBranchNotFound, params.Base)
	}

	number := h.nextPR
	h.nextPR++
	mergeable := true
	pr := &domain.PullRequest{
		Number:    number,
		Title:     params.Title,
		Body:      params.Body,
		State:     domain.StateOpen,
		Head:      head,
		Base:      base,
		HTMLURL:   fmt.Sprintf("https://example.test/pr/%d", number),
		Mergeable: &mergeable,
		Draft:     params.Draft,
	}
	h.prs[number] = pr
	cp := *pr
	return &cp, nil
}

func (h *Host) MergePR(ctx context.Context, pr *domain.PullRequest, method hosting.MergeMethod) (*hosting.MergeResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	stored, ok := h.prs[pr.Number]
	if !ok {
		return nil, fmt.Errorf("merge pr %d: %w", pr.Number, hosting.ErrPRNotFound)
	}
	if stored.State != domain.StateOpen {
		return &hosting.MergeResult{Merged: false, Message: "pull request is not open"}, nil
	}
	if stored.Mergeable == nil || !*stored.Mergeable {
		return &hosting.MergeResult{Merged: false, Message: "pull request is not mergeable"}, nil
	}

	sha := newSHA()
	stored.Merged = true
	stored.State = domain.StateClosed
	h.branches[stored.Base.Ref] = domain.GitRef{Ref: stored.Base.Ref, SHA: sha}

	return &hosting.MergeResult{
		Merged:  true,
		SHA:     sha,
		Message: fmt.Sprintf("merged via %s", method),
	}, nil
}

func (h *Host) ClosePR(ctx context.Context, number int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	pr, ok := h.prs[number]
	if !ok {
		return fmt.Errorf("close pr %d: %w", number, hosting.ErrPRNotFound)
	}
	pr.State = domain.StateClosed
	return nil
}

func (h *Host) UpdatePRFromBase(ctx context.Context, pr *domain.PullRequest) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	stored, ok := h.prs[pr.Number]
	if !ok {
		return false, fmt.Errorf("update pr %d: %w", pr.Number, hosting.ErrPRNotFound)
	}

	// Each update integrates the current base; once every simulated
	// conflict is cleared the PR turns mergeable.
	if remaining := h.conflictsToClear[stored.Number]; remaining > 0 {
		h.conflictsToClear[stored.Number] = remaining - 1
	}
	mergeable := h.conflictsToClear[stored.Number] == 0
	stored.Mergeable = &mergeable
	stored.Head.SHA = newSHA()
	return true, nil
}

func (h *Host) WaitForMergeable(ctx context.Context, pr *domain.PullRequest) (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	stored, ok := h.prs[pr.Number]
	if !ok {
		return false, fmt.Errorf("wait for pr %d: %w", pr.Number, hosting.ErrPRNotFound)
	}
	return stored.Mergeable != nil && *stored.Mergeable, nil
}

func (h *Host) GetChecksStatus(ctx context.Context, ref string) (*hosting.ChecksStatus, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if status, ok := h.checks[ref]; ok {
		cp := status
		return &cp, nil
	}
	return &hosting.ChecksStatus{State: hosting.ChecksPassing}, nil
}

// -----------------------------------------------------------------------------
// BranchManager
// -----------------------------------------------------------------------------

func (h *Host) GetBranch(ctx context.Context, name string) (*domain.GitRef, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ref, ok := h.branches[name]
	if !ok {
		return nil, fmt.Errorf("get branch %s: %w", name, hosting.ErrBranchNotFound)
	}
	cp := ref
	return &cp, nil
}

func (h *Host) ListBranches(ctx context.Context) ([]domain.GitRef, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]domain.GitRef, 0, len(h.branches))
	for _, ref := range h.branches {
		out = append(out, ref)
	}
	return out, nil
}

func (h *Host) CreateBranch(ctx context.Context, name, fromSHA string) (*domain.GitRef, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.branches[name]; ok {
		return nil, fmt.Errorf("create branch %s: already exists", name)
	}
	ref := domain.GitRef{Ref: name, SHA: fromSHA}
	if fromSHA == "" {
		ref.SHA = newSHA()
	}
	h.branches[name] = ref
	cp := ref
	return &cp, nil
}

func (h *Host) DeleteBranch(ctx context.Context, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.branches[name]; !ok {
		return fmt.Errorf("delete branch %s: %w", name, hosting.ErrBranchNotFound)
	}
	delete(h.branches, name)
	return nil
}

func (h *Host) BranchExists(ctx context.Context, name string) (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.branches[name]
	return ok, nil
}
