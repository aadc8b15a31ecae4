package models

import "time"

// BranchStatus represents the current state of a session branch.
type BranchStatus string

const (
	BranchStatusActive   BranchStatus = "active"
	BranchStatusArchived BranchStatus = "archived"
)

// Branch is a conversation branch within a session: a named point from which
// agent histories can diverge while still sharing everything up to the
// branch point. This is additive to SessionManager (C10); it is not part of
// the mandatory snapshot/restore round trip and carries no invariant of its
// own beyond "ParentBranchID, if set, names an existing branch".
type Branch struct {
	ID             string  `json:"id"`
	SessionID      string  `json:"session_id"`
	ParentBranchID *string `json:"parent_branch_id,omitempty"`
	Name           string  `json:"name"`

	// BranchPoint is the message-count sequence in the parent branch where
	// this branch diverges; messages at or before it are inherited.
	BranchPoint int `json:"branch_point"`

	Status    BranchStatus `json:"status"`
	IsPrimary bool         `json:"is_primary"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewBranch creates a new branch with default values.
func NewBranch(sessionID, name string) *Branch {
	now := time.Now()
	return &Branch{
		SessionID: sessionID,
		Name:      name,
		Status:    BranchStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewPrimaryBranch creates the primary branch for a session.
func NewPrimaryBranch(sessionID string) *Branch {
	branch := NewBranch(sessionID, "main")
	branch.IsPrimary = true
	return branch
}

// IsRoot returns true if this is a root branch (no parent).
func (b *Branch) IsRoot() bool {
	return b.ParentBranchID == nil
}

// CanArchive reports whether this branch is eligible for archiving.
func (b *Branch) CanArchive() bool {
	return b.Status == BranchStatusActive && !b.IsPrimary
}
