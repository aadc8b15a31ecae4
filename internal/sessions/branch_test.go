package sessions

import (
	"testing"
	"time"

	"github.com/nexus-orchestrator/core/pkg/models"
)

func TestManager_ForkCopiesAndTruncatesHistory(t *testing.T) {
	m := NewManager(t.TempDir())
	src := newFixture()

	if err := m.Save("proj1", "sess1", src); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	branch, err := m.Fork("proj1", "sess1", "alt-ending", 1)
	if err != nil {
		t.Fatalf("Fork error: %v", err)
	}

	if branch.ID == "" {
		t.Error("expected Fork to assign a branch id")
	}
	if branch.SessionID != "sess1__alt-ending" {
		t.Errorf("SessionID = %q, want sess1__alt-ending", branch.SessionID)
	}
	if branch.Name != "alt-ending" {
		t.Errorf("Name = %q, want alt-ending", branch.Name)
	}
	if branch.BranchPoint != 1 {
		t.Errorf("BranchPoint = %d, want 1", branch.BranchPoint)
	}
	if branch.IsPrimary {
		t.Error("expected forked branch not to be primary")
	}
	if branch.ParentBranchID != nil {
		t.Errorf("ParentBranchID = %v, want nil (no primary branch recorded for sess1)", branch.ParentBranchID)
	}

	child, err := m.Load("proj1", "sess1__alt-ending")
	if err != nil {
		t.Fatalf("Load of forked session failed: %v", err)
	}

	var a1 *AgentSnapshot
	for i := range child.Agents {
		if child.Agents[i].ID == "a1" {
			a1 = &child.Agents[i]
		}
	}
	if a1 == nil {
		t.Fatal("expected agent a1 in forked snapshot")
	}
	if len(a1.History) != 1 || a1.History[0].Content != "hello" {
		t.Errorf("History = %+v, want truncated to [hello]", a1.History)
	}
}

func TestManager_ForkWithNonPositivePointCopiesFullHistory(t *testing.T) {
	m := NewManager(t.TempDir())
	src := newFixture()

	if err := m.Save("proj1", "sess1", src); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	if _, err := m.Fork("proj1", "sess1", "full-copy", 0); err != nil {
		t.Fatalf("Fork error: %v", err)
	}

	child, err := m.Load("proj1", "sess1__full-copy")
	if err != nil {
		t.Fatalf("Load of forked session failed: %v", err)
	}

	var a1 *AgentSnapshot
	for i := range child.Agents {
		if child.Agents[i].ID == "a1" {
			a1 = &child.Agents[i]
		}
	}
	if a1 == nil || len(a1.History) != 2 {
		t.Fatalf("expected full history of 2 messages, got %+v", a1)
	}
}

func TestManager_ForkMissingParentFails(t *testing.T) {
	m := NewManager(t.TempDir())
	if _, err := m.Fork("proj1", "nope", "child", 0); err == nil {
		t.Error("expected Fork of a nonexistent parent session to fail")
	}
}

func TestManager_ForkUsesParentPrimaryBranchID(t *testing.T) {
	m := NewManager(t.TempDir())
	src := newFixture()

	if err := m.Save("proj1", "sess1", src); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	primary := models.NewPrimaryBranch("sess1")
	primary.ID = "primary-id"
	if err := m.writeBranchIndex("proj1", []models.Branch{*primary}); err != nil {
		t.Fatalf("writeBranchIndex error: %v", err)
	}

	branch, err := m.Fork("proj1", "sess1", "child", 0)
	if err != nil {
		t.Fatalf("Fork error: %v", err)
	}

	if branch.ParentBranchID == nil || *branch.ParentBranchID != "primary-id" {
		t.Errorf("ParentBranchID = %v, want pointer to %q", branch.ParentBranchID, "primary-id")
	}
}

func TestManager_ListBranchesEmptyWhenNoneRecorded(t *testing.T) {
	m := NewManager(t.TempDir())
	branches, err := m.ListBranches("proj1")
	if err != nil {
		t.Fatalf("ListBranches error: %v", err)
	}
	if len(branches) != 0 {
		t.Errorf("branches = %+v, want empty", branches)
	}
}

func TestManager_ListBranchesSortedByCreatedAt(t *testing.T) {
	m := NewManager(t.TempDir())

	older := models.NewBranch("sess1", "older")
	older.ID = "older-id"
	older.CreatedAt = time.Unix(1000, 0)

	newer := models.NewBranch("sess1", "newer")
	newer.ID = "newer-id"
	newer.CreatedAt = time.Unix(2000, 0)

	if err := m.writeBranchIndex("proj1", []models.Branch{*newer, *older}); err != nil {
		t.Fatalf("writeBranchIndex error: %v", err)
	}

	branches, err := m.ListBranches("proj1")
	if err != nil {
		t.Fatalf("ListBranches error: %v", err)
	}
	if len(branches) != 2 || branches[0].ID != "older-id" || branches[1].ID != "newer-id" {
		t.Fatalf("branches = %+v, want [older-id newer-id]", branches)
	}
}
