// Package service implements the lead lifecycle: creation, status
// transitions, the append-only activity trail, and call scheduling. Every
// mutation pairs with its activity entry inside one storage transaction.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"leadgate/internal/lead"
	"leadgate/internal/lead/scoring"
	"leadgate/internal/lead/store"
	dErrors "leadgate/pkg/domain-errors"
	"leadgate/pkg/platform/sentinel"
	"leadgate/pkg/requestcontext"
)

// Service drives the lead state machine on top of the storage collaborator.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

func New(st store.Store, logger *slog.Logger) *Service {
	return &Service{store: st, logger: logger}
}

// Create allocates a lead in status "new" and appends its genesis
// status-change entry atomically. A lead without its genesis entry, or the
// entry without the lead, must never be visible.
func (s *Service) Create(ctx context.Context, app lead.Application, result scoring.Result) (*lead.Lead, error) {
	now := requestcontext.Now(ctx)
	l := &lead.Lead{
		ID:                 uuid.New(),
		OrganizationName:   app.OrganizationName,
		ContactName:        app.ContactName,
		ContactEmail:       app.ContactEmail,
		TeamSize:           app.TeamSize,
		Scope:              app.Scope,
		Industry:           app.Industry,
		Challenge:          app.Challenge,
		HasSampleReport:    app.HasSampleReport,
		SourceIP:           app.SourceIP,
		QualificationScore: result.Score,
		PriorityTier:       result.Tier,
		Breakdown:          result.Breakdown,
		Status:             lead.StatusNew,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.CreateLead(ctx, l); err != nil {
			return err
		}
		return s.store.AppendActivity(ctx, &lead.ActivityEntry{
			ID:        uuid.New(),
			LeadID:    l.ID,
			Type:      lead.ActivityStatusChange,
			Payload:   map[string]any{"from": nil, "to": string(lead.StatusNew)},
			Actor:     "system",
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create lead")
	}

	s.logger.InfoContext(ctx, "lead created",
		"lead_id", l.ID,
		"tier", l.PriorityTier,
		"score", l.QualificationScore,
		"request_id", requestcontext.RequestID(ctx),
	)
	return l, nil
}

// Transition moves a lead to newStatus if the step is legal, bumps
// updatedAt, and appends the status-change entry in the same transaction.
// The returned triggers are effects for the caller to dispatch after the
// commit.
func (s *Service) Transition(ctx context.Context, leadID uuid.UUID, newStatus lead.Status, actor string) (*lead.Lead, []lead.NotifyTrigger, error) {
	if !newStatus.Valid() {
		return nil, nil, dErrors.Newf(dErrors.CodeValidation, "unknown status %q", newStatus)
	}

	var updated *lead.Lead
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		l, err := s.store.GetLead(ctx, leadID)
		if err != nil {
			return err
		}
		if !l.Status.CanTransitionTo(newStatus) {
			return dErrors.Newf(dErrors.CodeInvalidTransition,
				"cannot move lead from %s to %s", l.Status, newStatus)
		}

		from := l.Status
		l.Status = newStatus
		l.UpdatedAt = requestcontext.Now(ctx)
		if err := s.store.UpdateLead(ctx, l); err != nil {
			return err
		}
		if err := s.store.AppendActivity(ctx, &lead.ActivityEntry{
			ID:        uuid.New(),
			LeadID:    l.ID,
			Type:      lead.ActivityStatusChange,
			Payload:   map[string]any{"from": string(from), "to": string(newStatus)},
			Actor:     actor,
			CreatedAt: l.UpdatedAt,
		}); err != nil {
			return err
		}
		updated = l
		return nil
	})
	if err != nil {
		return nil, nil, s.translate(err, "transition lead")
	}

	s.logger.InfoContext(ctx, "lead transitioned",
		"lead_id", leadID,
		"to", newStatus,
		"actor", actor,
		"request_id", requestcontext.RequestID(ctx),
	)
	return updated, lead.TriggersFor(newStatus), nil
}

// LogActivity appends a non-status entry (note, call scheduled, notification
// sent, assignment) without touching the lead's status.
func (s *Service) LogActivity(ctx context.Context, leadID uuid.UUID, entryType lead.ActivityType, payload map[string]any, actor string) (*lead.ActivityEntry, error) {
	if entryType == lead.ActivityStatusChange {
		return nil, dErrors.New(dErrors.CodeValidation, "status changes go through transitions, not logActivity")
	}

	entry := &lead.ActivityEntry{
		ID:        uuid.New(),
		LeadID:    leadID,
		Type:      entryType,
		Payload:   payload,
		Actor:     actor,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.store.AppendActivity(ctx, entry); err != nil {
		return nil, s.translate(err, "log activity")
	}
	return entry, nil
}

// ScheduleCall creates an alignment call and its call-scheduled entry as one
// atomic unit. scheduledAt must be strictly in the future.
func (s *Service) ScheduleCall(ctx context.Context, leadID uuid.UUID, scheduledAt time.Time, notes, actor string) (*lead.AlignmentCall, error) {
	now := requestcontext.Now(ctx)
	if !scheduledAt.After(now) {
		return nil, dErrors.New(dErrors.CodeValidation, "scheduled_at must be in the future")
	}

	call := &lead.AlignmentCall{
		ID:          uuid.New(),
		LeadID:      leadID,
		ScheduledAt: scheduledAt,
		Notes:       notes,
		CreatedAt:   now,
	}
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.CreateCall(ctx, call); err != nil {
			return err
		}
		return s.store.AppendActivity(ctx, &lead.ActivityEntry{
			ID:     uuid.New(),
			LeadID: leadID,
			Type:   lead.ActivityCallScheduled,
			Payload: map[string]any{
				"call_id":      call.ID.String(),
				"scheduled_at": scheduledAt.Format(time.RFC3339),
			},
			Actor:     actor,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, s.translate(err, "schedule call")
	}
	return call, nil
}

// Assign sets the lead's owner and logs an assignment entry. Assignment never
// rescores or changes status.
func (s *Service) Assign(ctx context.Context, leadID uuid.UUID, assignee, actor string) (*lead.Lead, error) {
	if assignee == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "assignee is required")
	}

	var updated *lead.Lead
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		l, err := s.store.GetLead(ctx, leadID)
		if err != nil {
			return err
		}
		previous := l.AssignedTo
		l.AssignedTo = assignee
		l.UpdatedAt = requestcontext.Now(ctx)
		if err := s.store.UpdateLead(ctx, l); err != nil {
			return err
		}
		if err := s.store.AppendActivity(ctx, &lead.ActivityEntry{
			ID:     uuid.New(),
			LeadID: l.ID,
			Type:   lead.ActivityAssigned,
			Payload: map[string]any{
				"from": previous,
				"to":   assignee,
			},
			Actor:     actor,
			CreatedAt: l.UpdatedAt,
		}); err != nil {
			return err
		}
		updated = l
		return nil
	})
	if err != nil {
		return nil, s.translate(err, "assign lead")
	}
	return updated, nil
}

// Get returns the full lead record.
func (s *Service) Get(ctx context.Context, leadID uuid.UUID) (*lead.Lead, error) {
	l, err := s.store.GetLead(ctx, leadID)
	if err != nil {
		return nil, s.translate(err, "get lead")
	}
	return l, nil
}

// List returns leads matching the filter in the requested order.
func (s *Service) List(ctx context.Context, filter store.ListFilter, sort store.Sort) ([]*lead.Lead, error) {
	leads, err := s.store.ListLeads(ctx, filter, sort)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list leads")
	}
	return leads, nil
}

// Pipeline groups all leads by status for the kanban board.
func (s *Service) Pipeline(ctx context.Context) (map[lead.Status][]*lead.Lead, error) {
	leads, err := s.store.ListLeads(ctx, store.ListFilter{}, store.SortNewest)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load pipeline")
	}

	grouped := map[lead.Status][]*lead.Lead{
		lead.StatusNew:            {},
		lead.StatusContacted:      {},
		lead.StatusQualified:      {},
		lead.StatusPilotScheduled: {},
		lead.StatusPilotActive:    {},
		lead.StatusWon:            {},
		lead.StatusLost:           {},
		lead.StatusDisqualified:   {},
	}
	for _, l := range leads {
		grouped[l.Status] = append(grouped[l.Status], l)
	}
	return grouped, nil
}

// Activities returns the lead's audit trail, newest first.
func (s *Service) Activities(ctx context.Context, leadID uuid.UUID) ([]*lead.ActivityEntry, error) {
	if _, err := s.store.GetLead(ctx, leadID); err != nil {
		return nil, s.translate(err, "get lead")
	}
	entries, err := s.store.ListActivities(ctx, leadID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list activities")
	}
	return entries, nil
}

// UpcomingCalls returns alignment calls scheduled inside the window.
func (s *Service) UpcomingCalls(ctx context.Context, from, to time.Time) ([]*lead.AlignmentCall, error) {
	calls, err := s.store.ListCallsBetween(ctx, from, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list calls")
	}
	return calls, nil
}

// translate maps store sentinels to domain errors, passing through errors
// that already carry a code.
func (s *Service) translate(err error, op string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "lead not found")
	case dErrors.HasCode(err, dErrors.CodeInvalidTransition),
		dErrors.HasCode(err, dErrors.CodeValidation):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, op)
	}
}
