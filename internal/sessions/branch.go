package sessions

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"

	"github.com/nexus-orchestrator/core/pkg/models"
)

// branchIndexPath is the per-project file tracking every branch created
// under it, independent of which session snapshot file each branch's data
// actually lives in.
func (m *Manager) branchIndexPath(project string) string {
	return m.Path(project, "_branches")
}

func (m *Manager) loadBranchIndex(project string) ([]models.Branch, error) {
	data, err := os.ReadFile(m.branchIndexPath(project))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read branch index: %w", err)
	}
	var branches []models.Branch
	if err := json.Unmarshal(data, &branches); err != nil {
		return nil, fmt.Errorf("parse branch index: %w", err)
	}
	return branches, nil
}

func (m *Manager) writeBranchIndex(project string, branches []models.Branch) error {
	data, err := json.MarshalIndent(branches, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal branch index: %w", err)
	}
	return m.writeAtomicBytes(m.branchIndexPath(project), data)
}

// Fork creates a new branch of parentSession named name, diverging at
// branchPoint messages per agent (§D "session hierarchy/branching": a
// branch shares everything up to its branch point and diverges after it).
// branchPoint <= 0 means "at the current end" (a full copy). The new
// branch's data is saved as its own session snapshot, named
// "<parentSession>__<name>", so it round-trips through Load/Save like any
// other session.
func (m *Manager) Fork(project, parentSession, name string, branchPoint int) (*models.Branch, error) {
	parent, err := m.Load(project, parentSession)
	if err != nil {
		return nil, fmt.Errorf("load parent session: %w", err)
	}

	branches, err := m.loadBranchIndex(project)
	if err != nil {
		return nil, err
	}

	var parentBranchID *string
	for i := range branches {
		if branches[i].SessionID == parentSession && branches[i].IsPrimary {
			id := branches[i].ID
			parentBranchID = &id
			break
		}
	}

	childSession := parentSession + "__" + name
	child := *parent
	child.Session = childSession
	child.Agents = make([]AgentSnapshot, len(parent.Agents))
	for i, as := range parent.Agents {
		truncated := as
		if branchPoint > 0 && branchPoint < len(as.History) {
			truncated.History = append([]models.Message(nil), as.History[:branchPoint]...)
		} else {
			truncated.History = append([]models.Message(nil), as.History...)
		}
		child.Agents[i] = truncated
	}

	if err := m.writeAtomic(m.Path(project, childSession), child); err != nil {
		return nil, fmt.Errorf("save branch snapshot: %w", err)
	}

	branch := models.NewBranch(childSession, name)
	branch.ID = uuid.NewString()
	branch.ParentBranchID = parentBranchID
	branch.BranchPoint = branchPoint
	branch.IsPrimary = false

	branches = append(branches, *branch)
	if err := m.writeBranchIndex(project, branches); err != nil {
		return nil, fmt.Errorf("record branch: %w", err)
	}

	return branch, nil
}

// ListBranches returns every branch recorded for project, sorted by
// creation time.
func (m *Manager) ListBranches(project string) ([]models.Branch, error) {
	branches, err := m.loadBranchIndex(project)
	if err != nil {
		return nil, err
	}
	sort.Slice(branches, func(i, j int) bool { return branches[i].CreatedAt.Before(branches[j].CreatedAt) })
	return branches, nil
}
