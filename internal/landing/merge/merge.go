// Package merge drives pull requests into their base branch, one at a
// time, remediating conflicts along the way.
package merge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/forgeflow/autoland/internal/core/domain"
	"github.com/forgeflow/autoland/internal/infra/hosting"
	"github.com/forgeflow/autoland/internal/resilience/metrics"
)

// Strategy is the conflict-remediation approach.
type Strategy string

const (
	// StrategyRebase updates the PR head from base and retries.
	StrategyRebase Strategy = "rebase"

	// StrategyMerge integrates base via a merge commit and retries.
	StrategyMerge Strategy = "merge"

	// StrategyManual gives up on the first conflict and leaves the PR
	// for a human.
	StrategyManual Strategy = "manual"
)

// Config tunes the resolver. Zero fields take defaults.
type Config struct {
	// MaxRetries bounds merge attempts per branch, counting every
	// mergeability check (conflicted iterations included).
	MaxRetries int `yaml:"max_retries"`

	Strategy Strategy            `yaml:"strategy"`
	Method   hosting.MergeMethod `yaml:"method"`

	Owner      string `yaml:"owner"`
	Repo       string `yaml:"repo"`
	BaseBranch string `yaml:"base_branch"`
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.Strategy == "" {
		c.Strategy = StrategyRebase
	}
	if c.Method == "" {
		c.Method = hosting.MethodSquash
	}
	if c.BaseBranch == "" {
		c.BaseBranch = "main"
	}
	return c
}

// ManualResolutionMessage is the Result.Error value for conflicts the
// manual strategy hands to a human.
const ManualResolutionMessage = "Conflicts require manual resolution"

// Result is the outcome of landing one branch. The resolver reports
// every failure mode here rather than through an error return; only
// host-call errors escape as errors.
type Result struct {
	Success  bool                `json:"success"`
	Merged   bool                `json:"merged"`
	PR       *domain.PullRequest `json:"pr,omitempty"`
	SHA      string              `json:"sha,omitempty"`
	Error    string              `json:"error,omitempty"`
	Attempts int                 `json:"attempts"`
}

// Fatal reports whether retrying later cannot change the outcome: a
// branch with no PR, or conflicts routed to a human, is done.
func (r *Result) Fatal() bool {
	if r.Success {
		return false
	}
	return r.PR == nil || r.Error == ManualResolutionMessage
}

// BranchRequest names a branch to land, with an optional known PR
// number. PRNumber <= 0 means the resolver looks the PR up by branch.
type BranchRequest struct {
	Branch   string `json:"branch"   yaml:"branch"`
	PRNumber int    `json:"pr_number" yaml:"pr_number"`
}

// Resolver lands branches through the hosting service.
type Resolver struct {
	prs      hosting.PullRequestManager
	branches hosting.BranchManager
	cfg      Config
}

// NewResolver wires the resolver to its host collaborators.
func NewResolver(prs hosting.PullRequestManager, branches hosting.BranchManager, cfg Config) *Resolver {
	return &Resolver{
		prs:      prs,
		branches: branches,
		cfg:      cfg.withDefaults(),
	}
}

// AttemptMerge lands one branch. PR resolution failures, conflicts and
// retry exhaustion come back inside the Result; errors from the host
// itself propagate unmodified.
func (r *Resolver) AttemptMerge(ctx context.Context, branch string, prNumber int) (*Result, error) {
	pr, err := r.resolvePR(ctx, branch, prNumber)
	if err != nil {
		return nil, err
	}
	if pr == nil {
		slog.Warn("no PR found for branch", "branch", branch)
		metrics.MergeAttempts.WithLabelValues(string(r.cfg.Strategy), "no_pr").Inc()
		return &Result{
			Success:  false,
			Merged:   false,
			Error:    fmt.Sprintf("No PR found for branch %s", branch),
			Attempts: 0,
		}, nil
	}

	for attempt := 1; attempt <= r.cfg.MaxRetries; attempt++ {
		mergeable, err := r.prs.WaitForMergeable(ctx, pr)
		if err != nil {
			return nil, err
		}

		if !mergeable {
			if r.cfg.Strategy == StrategyManual {
				slog.Warn("conflicts require manual resolution",
					"branch", branch, "pr", pr.Number, "attempt", attempt)
				metrics.MergeAttempts.WithLabelValues(string(r.cfg.Strategy), "manual").Inc()
				return &Result{
					Success:  false,
					Merged:   false,
					PR:       pr,
					Error:    ManualResolutionMessage,
					Attempts: attempt,
				}, nil
			}

			updated, err := r.prs.UpdatePRFromBase(ctx, pr)
			if err != nil {
				return nil, err
			}
			slog.Info("updated PR from base",
				"branch", branch, "pr", pr.Number, "attempt", attempt, "accepted", updated)
			continue
		}

		res, err := r.prs.MergePR(ctx, pr, r.cfg.Method)
		if err != nil {
			return nil, err
		}
		if res.Merged {
			// Head-branch cleanup is best effort: a failed delete never
			// downgrades a landed merge.
			if err := r.branches.DeleteBranch(ctx, branch); err != nil {
				slog.Warn("failed to delete merged branch", "branch", branch, "error", err)
			}
			slog.Info("branch landed", "branch", branch, "pr", pr.Number, "sha", res.SHA, "attempts", attempt)
			metrics.MergeAttempts.WithLabelValues(string(r.cfg.Strategy), "merged").Inc()
			return &Result{
				Success:  true,
				Merged:   true,
				PR:       pr,
				SHA:      res.SHA,
				Attempts: attempt,
			}, nil
		}

		slog.Warn("host declined merge", "branch", branch, "pr", pr.Number,
			"attempt", attempt, "message", res.Message)
	}

	metrics.MergeAttempts.WithLabelValues(string(r.cfg.Strategy), "exhausted").Inc()
	return &Result{
		Success:  false,
		Merged:   false,
		PR:       pr,
		Error:    "merge attempts exhausted",
		Attempts: r.cfg.MaxRetries,
	}, nil
}

func (r *Resolver) resolvePR(ctx context.Context, branch string, prNumber int) (*domain.PullRequest, error) {
	if prNumber > 0 {
		return r.prs.GetPR(ctx, prNumber)
	}
	return r.prs.FindPRForBranch(ctx, branch)
}

// MergeSequentially lands branches strictly in input order, one at a
// time: later branches depend on the base-branch state earlier merges
// leave behind. One branch failing never stops the rest; host errors
// are folded into that branch's Result.
func (r *Resolver) MergeSequentially(ctx context.Context, requests []BranchRequest) map[string]*Result {
	results := make(map[string]*Result, len(requests))
	for _, req := range requests {
		res, err := r.AttemptMerge(ctx, req.Branch, req.PRNumber)
		if err != nil {
			slog.Error("host error while landing branch", "branch", req.Branch, "error", err)
			metrics.MergeAttempts.WithLabelValues(string(r.cfg.Strategy), "error").Inc()
			res = &Result{Success: false, Merged: false, Error: err.Error()}
		}
		results[req.Branch] = res
	}
	return results
}
