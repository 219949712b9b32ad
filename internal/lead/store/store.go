// Package store persists leads, their append-only activity trail, and
// alignment calls. Implementations must make RunInTx atomic: either every
// write inside the closure lands or none do.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"leadgate/internal/lead"
)

// Sort orders lead listings.
type Sort string

const (
	SortNewest Sort = "newest" // created_at descending (default)
	SortScore  Sort = "score"  // qualification score descending
)

// ListFilter narrows lead listings. Nil/zero fields match everything.
type ListFilter struct {
	Status       lead.Status
	Tier         lead.Tier
	Industry     lead.Industry
	AssignedTo   string
	CreatedAfter time.Time
}

// Store is the durable collaborator behind the lead state machine.
type Store interface {
	// RunInTx executes fn atomically. Store methods called with the ctx passed
	// to fn join the same transaction.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error

	CreateLead(ctx context.Context, l *lead.Lead) error
	GetLead(ctx context.Context, id uuid.UUID) (*lead.Lead, error)
	UpdateLead(ctx context.Context, l *lead.Lead) error
	ListLeads(ctx context.Context, filter ListFilter, sort Sort) ([]*lead.Lead, error)

	AppendActivity(ctx context.Context, entry *lead.ActivityEntry) error
	ListActivities(ctx context.Context, leadID uuid.UUID) ([]*lead.ActivityEntry, error)

	CreateCall(ctx context.Context, call *lead.AlignmentCall) error
	ListCallsBetween(ctx context.Context, from, to time.Time) ([]*lead.AlignmentCall, error)
}
