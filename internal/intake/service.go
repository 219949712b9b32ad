// Package intake orchestrates a pilot application's path from raw submission
// to committed lead: validation, rate limiting, scoring, persistence, and
// the asynchronous notification fan-out.
package intake

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"leadgate/internal/lead"
	"leadgate/internal/lead/scoring"
	"leadgate/internal/notify"
	"leadgate/internal/ratelimit"
	dErrors "leadgate/pkg/domain-errors"
	"leadgate/pkg/requestcontext"
)

// Limiter gates submissions per client identifier.
type Limiter interface {
	Check(ctx context.Context, clientID string) (*ratelimit.Result, error)
}

// Leads is the slice of the lead service the orchestrator drives.
type Leads interface {
	Create(ctx context.Context, app lead.Application, result scoring.Result) (*lead.Lead, error)
	Get(ctx context.Context, leadID uuid.UUID) (*lead.Lead, error)
}

// Notifier performs the post-commit channel fan-out.
type Notifier interface {
	NotifyCreated(ctx context.Context, l *lead.Lead) error
}

// Metrics records intake outcomes; satisfied by internal/platform/metrics.
type Metrics interface {
	RecordLeadCreated(tier string)
	ObserveIntakeDuration(d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) RecordLeadCreated(string)            {}
func (noopMetrics) ObserveIntakeDuration(time.Duration) {}

// Receipt is what a successful submission returns to the applicant.
type Receipt struct {
	Lead        *lead.Lead
	TrackingRef string
}

// StatusView is the narrow projection applicants may see of their own lead.
// Score, tier, and pipeline internals stay private to the sales team.
type StatusView struct {
	Status    lead.Status `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// Service runs the intake pipeline.
type Service struct {
	limiter  Limiter
	scorer   *scoring.Engine
	leads    Leads
	notifier Notifier

	logger  *slog.Logger
	metrics Metrics
	tracer  trace.Tracer
}

// Option configures the service.
type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(limiter Limiter, scorer *scoring.Engine, leads Leads, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		limiter:  limiter,
		scorer:   scorer,
		leads:    leads,
		notifier: notifier,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:  noopMetrics{},
		tracer:   otel.Tracer("leadgate/intake"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates and rate limits an application, scores it, commits the
// lead, and kicks off notifications in the background. The rate limit result
// is returned alongside either outcome so the transport can expose quota
// headers; it is nil when the request never reached the limiter.
func (s *Service) Submit(ctx context.Context, app lead.Application) (*Receipt, *ratelimit.Result, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "intake.submit")
	defer span.End()

	if fields := validate(app); len(fields) > 0 {
		return nil, nil, dErrors.WithFields(dErrors.CodeValidation, "invalid application", fields)
	}

	rl, err := s.limiter.Check(ctx, clientID(app))
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "rate limit check")
	}
	if !rl.Allowed {
		return nil, rl, dErrors.Newf(dErrors.CodeRateLimited,
			"submission limit reached, retry in %d seconds", rl.RetryAfter)
	}

	result := s.scorer.Score(app)
	span.SetAttributes(
		attribute.Int("lead.score", result.Score),
		attribute.String("lead.tier", string(result.Tier)),
	)

	l, err := s.leads.Create(ctx, app, result)
	if err != nil {
		return nil, rl, err
	}

	s.metrics.RecordLeadCreated(string(l.PriorityTier))
	s.metrics.ObserveIntakeDuration(time.Since(start))

	// Notification latency must not sit on the applicant's request. Detach
	// from the request context so cancellation on response write does not
	// abort delivery; the dispatcher handles and audits its own failures.
	notifyCtx := context.WithoutCancel(ctx)
	go func() {
		if err := s.notifier.NotifyCreated(notifyCtx, l); err != nil {
			s.logger.ErrorContext(notifyCtx, "post-intake notification incomplete",
				"lead_id", l.ID,
				"error", err,
				"request_id", requestcontext.RequestID(notifyCtx),
			)
		}
	}()

	return &Receipt{Lead: l, TrackingRef: notify.TrackingReference(l)}, rl, nil
}

// Status returns the applicant-safe view of a lead.
func (s *Service) Status(ctx context.Context, leadID uuid.UUID) (*StatusView, error) {
	l, err := s.leads.Get(ctx, leadID)
	if err != nil {
		return nil, err
	}
	return &StatusView{Status: l.Status, CreatedAt: l.CreatedAt}, nil
}

// clientID identifies the submitter for rate limiting. Submissions that
// arrive without a resolvable source share one bucket.
func clientID(app lead.Application) string {
	if app.SourceIP == "" {
		return "unknown"
	}
	return app.SourceIP
}

// validate checks the application field by field, collecting every problem
// so the applicant can fix the whole form in one pass.
func validate(app lead.Application) map[string]string {
	fields := make(map[string]string)
	if strings.TrimSpace(app.OrganizationName) == "" {
		fields["organization_name"] = "organization name is required"
	}
	if strings.TrimSpace(app.ContactName) == "" {
		fields["contact_name"] = "contact name is required"
	}
	email := strings.TrimSpace(app.ContactEmail)
	switch {
	case email == "":
		fields["contact_email"] = "contact email is required"
	case !strings.Contains(email, "@") || strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@"):
		fields["contact_email"] = "contact email is not a valid address"
	}
	if app.TeamSize < 1 {
		fields["team_size"] = "team size must be at least 1"
	}
	if !app.Scope.Valid() {
		fields["organizational_scope"] = "unknown organizational scope"
	}
	if !app.Industry.Valid() {
		fields["industry"] = "unknown industry"
	}
	if !app.Challenge.Valid() {
		fields["challenge_category"] = "unknown challenge category"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
