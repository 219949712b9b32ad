package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"leadgate/internal/lead"
	"leadgate/internal/lead/store"
	"leadgate/internal/transport/http/shared"
	dErrors "leadgate/pkg/domain-errors"
	"leadgate/pkg/requestcontext"
)

// LeadService is the slice of the lead service the admin surface drives.
type LeadService interface {
	Get(ctx context.Context, leadID uuid.UUID) (*lead.Lead, error)
	List(ctx context.Context, filter store.ListFilter, sort store.Sort) ([]*lead.Lead, error)
	Pipeline(ctx context.Context) (map[lead.Status][]*lead.Lead, error)
	Activities(ctx context.Context, leadID uuid.UUID) ([]*lead.ActivityEntry, error)
	Transition(ctx context.Context, leadID uuid.UUID, newStatus lead.Status, actor string) (*lead.Lead, []lead.NotifyTrigger, error)
	LogActivity(ctx context.Context, leadID uuid.UUID, entryType lead.ActivityType, payload map[string]any, actor string) (*lead.ActivityEntry, error)
	ScheduleCall(ctx context.Context, leadID uuid.UUID, scheduledAt time.Time, notes, actor string) (*lead.AlignmentCall, error)
	Assign(ctx context.Context, leadID uuid.UUID, assignee, actor string) (*lead.Lead, error)
}

// TransitionNotifier dispatches the effects a committed transition returned.
type TransitionNotifier interface {
	NotifyTransition(ctx context.Context, l *lead.Lead, triggers []lead.NotifyTrigger) error
}

// AdminHandler serves the sales-team surface. Requests reach it only through
// the API-key middleware, which stamps the key's label as the acting user.
type AdminHandler struct {
	leads    LeadService
	notifier TransitionNotifier
	logger   *slog.Logger
}

func NewAdminHandler(leads LeadService, notifier TransitionNotifier, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{leads: leads, notifier: notifier, logger: logger}
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Get("/leads", h.handleList)
	r.Get("/leads/pipeline", h.handlePipeline)
	r.Get("/leads/{leadID}", h.handleGet)
	r.Patch("/leads/{leadID}", h.handleUpdate)
	r.Post("/leads/{leadID}/assign", h.handleAssign)
	r.Post("/leads/{leadID}/calls", h.handleScheduleCall)
	r.Get("/leads/{leadID}/activities", h.handleActivities)
}

func (h *AdminHandler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, sort, err := listQuery(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	leads, err := h.leads.List(r.Context(), filter, sort)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"leads": leads,
		"count": len(leads),
	})
}

func (h *AdminHandler) handlePipeline(w http.ResponseWriter, r *http.Request) {
	grouped, err := h.leads.Pipeline(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"pipeline": grouped})
}

func (h *AdminHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	leadID, ok := leadIDParam(w, r)
	if !ok {
		return
	}

	l, err := h.leads.Get(r.Context(), leadID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	entries, err := h.leads.Activities(r.Context(), leadID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"lead":       l,
		"activities": entries,
	})
}

type updateLeadRequest struct {
	Status *lead.Status `json:"status"`
	Note   *string      `json:"note"`
}

// handleUpdate applies a status change, a note, or both. The status change
// commits first; its notification effects dispatch in the background after
// the response is on its way.
func (h *AdminHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	leadID, ok := leadIDParam(w, r)
	if !ok {
		return
	}
	var req updateLeadRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if req.Status == nil && req.Note == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "nothing to update: provide status and/or note"))
		return
	}

	actor := requestcontext.Actor(r.Context())
	var updated *lead.Lead
	if req.Status != nil {
		l, triggers, err := h.leads.Transition(r.Context(), leadID, *req.Status, actor)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		updated = l
		if len(triggers) > 0 {
			notifyCtx := context.WithoutCancel(r.Context())
			go func() {
				if err := h.notifier.NotifyTransition(notifyCtx, l, triggers); err != nil {
					h.logger.ErrorContext(notifyCtx, "transition notification incomplete",
						"lead_id", l.ID, "error", err)
				}
			}()
		}
	}
	if req.Note != nil {
		if _, err := h.leads.LogActivity(r.Context(), leadID, lead.ActivityNote,
			map[string]any{"text": *req.Note}, actor); err != nil {
			shared.WriteError(w, err)
			return
		}
	}

	if updated == nil {
		l, err := h.leads.Get(r.Context(), leadID)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		updated = l
	}
	shared.WriteJSON(w, http.StatusOK, updated)
}

type assignRequest struct {
	Assignee string `json:"assignee"`
}

func (h *AdminHandler) handleAssign(w http.ResponseWriter, r *http.Request) {
	leadID, ok := leadIDParam(w, r)
	if !ok {
		return
	}
	var req assignRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	l, err := h.leads.Assign(r.Context(), leadID, req.Assignee, requestcontext.Actor(r.Context()))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, l)
}

type scheduleCallRequest struct {
	ScheduledAt time.Time `json:"scheduled_at"`
	Notes       string    `json:"notes"`
}

func (h *AdminHandler) handleScheduleCall(w http.ResponseWriter, r *http.Request) {
	leadID, ok := leadIDParam(w, r)
	if !ok {
		return
	}
	var req scheduleCallRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	call, err := h.leads.ScheduleCall(r.Context(), leadID, req.ScheduledAt, req.Notes, requestcontext.Actor(r.Context()))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, call)
}

func (h *AdminHandler) handleActivities(w http.ResponseWriter, r *http.Request) {
	leadID, ok := leadIDParam(w, r)
	if !ok {
		return
	}

	entries, err := h.leads.Activities(r.Context(), leadID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"activities": entries,
		"count":      len(entries),
	})
}

func leadIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	leadID, err := uuid.Parse(chi.URLParam(r, "leadID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "lead not found"))
		return uuid.Nil, false
	}
	return leadID, true
}

// listQuery builds the store filter from query parameters, rejecting unknown
// enum values instead of silently matching nothing.
func listQuery(r *http.Request) (store.ListFilter, store.Sort, error) {
	q := r.URL.Query()
	var filter store.ListFilter

	if v := q.Get("status"); v != "" {
		status := lead.Status(v)
		if !status.Valid() {
			return filter, "", dErrors.Newf(dErrors.CodeValidation, "unknown status %q", v)
		}
		filter.Status = status
	}
	if v := q.Get("tier"); v != "" {
		switch tier := lead.Tier(v); tier {
		case lead.TierHot, lead.TierWarm, lead.TierCool, lead.TierNurture:
			filter.Tier = tier
		default:
			return filter, "", dErrors.Newf(dErrors.CodeValidation, "unknown tier %q", v)
		}
	}
	if v := q.Get("industry"); v != "" {
		industry := lead.Industry(v)
		if !industry.Valid() {
			return filter, "", dErrors.Newf(dErrors.CodeValidation, "unknown industry %q", v)
		}
		filter.Industry = industry
	}
	filter.AssignedTo = q.Get("assigned_to")
	if v := q.Get("created_after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, "", dErrors.New(dErrors.CodeValidation, "created_after must be RFC3339")
		}
		filter.CreatedAfter = t
	}

	sort := store.SortNewest
	switch v := q.Get("sort"); v {
	case "", string(store.SortNewest):
	case string(store.SortScore):
		sort = store.SortScore
	default:
		return filter, "", dErrors.Newf(dErrors.CodeValidation, "unknown sort %q", v)
	}
	return filter, sort, nil
}
