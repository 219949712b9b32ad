package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"leadgate/internal/lead"
	"leadgate/pkg/platform/sentinel"
)

// InMemory implements Store with mutex-guarded maps. It backs unit tests and
// single-node deployments; production uses the Postgres store.
type InMemory struct {
	mu         sync.RWMutex
	leads      map[uuid.UUID]lead.Lead
	activities map[uuid.UUID][]lead.ActivityEntry
	calls      map[uuid.UUID]lead.AlignmentCall
}

func NewInMemory() *InMemory {
	return &InMemory{
		leads:      make(map[uuid.UUID]lead.Lead),
		activities: make(map[uuid.UUID][]lead.ActivityEntry),
		calls:      make(map[uuid.UUID]lead.AlignmentCall),
	}
}

type memTxKey struct{}

// RunInTx serializes the closure under the write lock so multi-write units
// (create+genesis activity, transition+activity) are observed atomically.
// Store methods detect the in-tx marker and skip re-locking.
func (s *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.clone()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		// Roll back to the pre-transaction state.
		s.leads, s.activities, s.calls = snapshot.leads, snapshot.activities, snapshot.calls
		return err
	}
	return nil
}

// clone copies the store maps for rollback. Called under the write lock.
func (s *InMemory) clone() *InMemory {
	c := NewInMemory()
	for id, l := range s.leads {
		c.leads[id] = l
	}
	for id, entries := range s.activities {
		c.activities[id] = append([]lead.ActivityEntry(nil), entries...)
	}
	for id, call := range s.calls {
		c.calls[id] = call
	}
	return c
}

func (s *InMemory) lock(ctx context.Context) func() {
	if ctx.Value(memTxKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *InMemory) rlock(ctx context.Context) func() {
	if ctx.Value(memTxKey{}) != nil {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *InMemory) CreateLead(ctx context.Context, l *lead.Lead) error {
	defer s.lock(ctx)()
	if _, exists := s.leads[l.ID]; exists {
		return sentinel.ErrConflict
	}
	s.leads[l.ID] = *l
	return nil
}

func (s *InMemory) GetLead(ctx context.Context, id uuid.UUID) (*lead.Lead, error) {
	defer s.rlock(ctx)()
	l, ok := s.leads[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &l, nil
}

func (s *InMemory) UpdateLead(ctx context.Context, l *lead.Lead) error {
	defer s.lock(ctx)()
	if _, ok := s.leads[l.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.leads[l.ID] = *l
	return nil
}

func (s *InMemory) ListLeads(ctx context.Context, filter ListFilter, sortBy Sort) ([]*lead.Lead, error) {
	defer s.rlock(ctx)()

	out := make([]*lead.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		if !matches(l, filter) {
			continue
		}
		copied := l
		out = append(out, &copied)
	}

	switch sortBy {
	case SortScore:
		sort.Slice(out, func(i, j int) bool {
			if out[i].QualificationScore != out[j].QualificationScore {
				return out[i].QualificationScore > out[j].QualificationScore
			}
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	default:
		sort.Slice(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out, nil
}

func matches(l lead.Lead, f ListFilter) bool {
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	if f.Tier != "" && l.PriorityTier != f.Tier {
		return false
	}
	if f.Industry != "" && l.Industry != f.Industry {
		return false
	}
	if f.AssignedTo != "" && l.AssignedTo != f.AssignedTo {
		return false
	}
	if !f.CreatedAfter.IsZero() && !l.CreatedAt.After(f.CreatedAfter) {
		return false
	}
	return true
}

func (s *InMemory) AppendActivity(ctx context.Context, entry *lead.ActivityEntry) error {
	defer s.lock(ctx)()
	if _, ok := s.leads[entry.LeadID]; !ok {
		return sentinel.ErrNotFound
	}
	s.activities[entry.LeadID] = append(s.activities[entry.LeadID], *entry)
	return nil
}

func (s *InMemory) ListActivities(ctx context.Context, leadID uuid.UUID) ([]*lead.ActivityEntry, error) {
	defer s.rlock(ctx)()
	entries := s.activities[leadID]
	out := make([]*lead.ActivityEntry, 0, len(entries))
	for i := range entries {
		copied := entries[i]
		out = append(out, &copied)
	}
	// Newest first, matching the admin feed.
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) CreateCall(ctx context.Context, call *lead.AlignmentCall) error {
	defer s.lock(ctx)()
	if _, ok := s.leads[call.LeadID]; !ok {
		return sentinel.ErrNotFound
	}
	s.calls[call.ID] = *call
	return nil
}

func (s *InMemory) ListCallsBetween(ctx context.Context, from, to time.Time) ([]*lead.AlignmentCall, error) {
	defer s.rlock(ctx)()
	var out []*lead.AlignmentCall
	for _, call := range s.calls {
		if call.ScheduledAt.Before(from) || call.ScheduledAt.After(to) {
			continue
		}
		copied := call
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	return out, nil
}
