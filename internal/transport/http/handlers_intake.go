package httptransport

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"leadgate/internal/intake"
	"leadgate/internal/lead"
	"leadgate/internal/ratelimit"
	"leadgate/internal/transport/http/shared"
	dErrors "leadgate/pkg/domain-errors"
	"leadgate/pkg/requestcontext"
)

// IntakeService is the slice of the intake orchestrator the public surface
// needs.
type IntakeService interface {
	Submit(ctx context.Context, app lead.Application) (*intake.Receipt, *ratelimit.Result, error)
	Status(ctx context.Context, leadID uuid.UUID) (*intake.StatusView, error)
}

// IntakeHandler serves the applicant-facing endpoints. It never exposes
// scores, tiers, or pipeline internals.
type IntakeHandler struct {
	intake IntakeService
}

func NewIntakeHandler(svc IntakeService) *IntakeHandler {
	return &IntakeHandler{intake: svc}
}

func (h *IntakeHandler) Register(r chi.Router) {
	r.Post("/pilot/applications", h.handleSubmit)
	r.Get("/pilot/applications/{leadID}/status", h.handleStatus)
}

type submitResponse struct {
	LeadID            uuid.UUID   `json:"lead_id"`
	TrackingReference string      `json:"tracking_reference"`
	Status            lead.Status `json:"status"`
	CreatedAt         time.Time   `json:"created_at"`
}

func (h *IntakeHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var app lead.Application
	if err := shared.DecodeJSON(r, &app); err != nil {
		shared.WriteError(w, err)
		return
	}
	app.SourceIP = requestcontext.ClientIP(r.Context())

	receipt, rl, err := h.intake.Submit(r.Context(), app)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeRateLimited) && rl != nil {
			shared.WriteRateLimited(w, err, rl.Limit, rl.Remaining, rl.RetryAfter)
			return
		}
		shared.WriteError(w, err)
		return
	}

	if rl != nil {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(rl.Remaining))
	}
	shared.WriteJSON(w, http.StatusCreated, submitResponse{
		LeadID:            receipt.Lead.ID,
		TrackingReference: receipt.TrackingRef,
		Status:            receipt.Lead.Status,
		CreatedAt:         receipt.Lead.CreatedAt,
	})
}

func (h *IntakeHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	leadID, err := uuid.Parse(chi.URLParam(r, "leadID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "lead not found"))
		return
	}

	view, err := h.intake.Status(r.Context(), leadID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, view)
}
