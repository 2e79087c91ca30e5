package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/forgeflow/autoland/internal/infra/hosting"
)

var (
	_ hosting.PullRequestManager = (*Host)(nil)
	_ hosting.BranchManager      = (*Host)(nil)
)

func TestFindPRForBranch(t *testing.T) {
	h := NewHost()
	seeded := h.SeedPR("feature/login", "main", "Add login flow", 0)

	pr, err := h.FindPRForBranch(context.Background(), "feature/login")
	if err != nil {
		t.Fatalf("FindPRForBranch returned error: %v", err)
	}
	if pr == nil || pr.Number != seeded.Number {
		t.Fatalf("FindPRForBranch = %+v, want PR %d", pr, seeded.Number)
	}

	missing, err := h.FindPRForBranch(context.Background(), "no-such-branch")
	if err != nil {
		t.Fatalf("FindPRForBranch returned error: %v", err)
	}
	if missing != nil {
		t.Errorf("FindPRForBranch for unknown branch = %+v, want nil", missing)
	}
}

func TestMergeLifecycle(t *testing.T) {
	h := NewHost()
	pr := h.SeedPR("feature/a", "main", "Feature A", 0)

	res, err := h.MergePR(context.Background(), pr, hosting.MethodSquash)
	if err != nil {
		t.Fatalf("MergePR returned error: %v", err)
	}
	if !res.Merged || res.SHA == "" {
		t.Fatalf("MergePR = %+v, want merged with SHA", res)
	}

	// Second merge is a no-op: the PR is closed.
	res, err = h.MergePR(context.Background(), pr, hosting.MethodSquash)
	if err != nil {
		t.Fatalf("MergePR returned error: %v", err)
	}
	if res.Merged {
		t.Error("merging a closed PR reported merged=true")
	}
}

func TestConflictClearsAfterBaseUpdates(t *testing.T) {
	h := NewHost()
	pr := h.SeedPR("feature/b", "main", "Feature B", 2)

	ctx := context.Background()
	if ok, _ := h.WaitForMergeable(ctx, pr); ok {
		t.Fatal("seeded conflicted PR reported mergeable")
	}

	if _, err := h.UpdatePRFromBase(ctx, pr); err != nil {
		t.Fatalf("UpdatePRFromBase returned error: %v", err)
	}
	if ok, _ := h.WaitForMergeable(ctx, pr); ok {
		t.Fatal("PR mergeable after 1 of 2 updates")
	}

	if _, err := h.UpdatePRFromBase(ctx, pr); err != nil {
		t.Fatalf("UpdatePRFromBase returned error: %v", err)
	}
	if ok, _ := h.WaitForMergeable(ctx, pr); !ok {
		t.Fatal("PR not mergeable after clearing both conflicts")
	}
}

func TestBranchLifecycle(t *testing.T) {
	h := NewHost()
	ctx := context.Background()

	if _, err := h.CreateBranch(ctx, "work", ""); err != nil {
		t.Fatalf("CreateBranch returned error: %v", err)
	}
	exists, err := h.BranchExists(ctx, "work")
	if err != nil || !exists {
		t.Fatalf("BranchExists = %v, %v, want true", exists, err)
	}

	if err := h.DeleteBranch(ctx, "work"); err != nil {
		t.Fatalf("DeleteBranch returned error: %v", err)
	}
	if err := h.DeleteBranch(ctx, "work"); !errors.Is(err, hosting.ErrBranchNotFound) {
		t.Errorf("second DeleteBranch error = %v, want ErrBranchNotFound", err)
	}
}

func TestMergeAdvancesBase(t *testing.T) {
	h := NewHost()
	ctx := context.Background()

	before, err := h.GetBranch(ctx, "main")
	if err != nil {
		t.Fatalf("GetBranch returned error: %v", err)
	}

	pr := h.SeedPR("feature/c", "main", "Feature C", 0)
	if _, err := h.MergePR(ctx, pr, hosting.MethodMerge); err != nil {
		t.Fatalf("MergePR returned error: %v", err)
	}

	after, err := h.GetBranch(ctx, "main")
	if err != nil {
		t.Fatalf("GetBranch returned error: %v", err)
	}
	if before.SHA == after.SHA {
		t.Error("base branch SHA unchanged after merge")
	}
}
