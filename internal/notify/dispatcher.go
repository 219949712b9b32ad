// Package notify routes lead events to the sales team and to applicants.
// Dispatch happens outside storage transactions; a failing transport is
// logged and audited but never aborts the business operation that caused it.
package notify

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"leadgate/internal/lead"
	"leadgate/internal/notify/sequence"
)

const (
	ChannelSlack          = "slack"
	ChannelEmail          = "email"
	ChannelSequence       = "sequence"
	ChannelApplicantEmail = "applicant_email"

	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
)

// SlackSender posts a message to the sales alert channel.
type SlackSender interface {
	SendSlack(ctx context.Context, message string) error
}

// EmailSender delivers a single plain-text email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// ActivityRecorder appends an audit entry to a lead's history. Satisfied by
// the lead service.
type ActivityRecorder interface {
	LogActivity(ctx context.Context, leadID uuid.UUID, entryType lead.ActivityType, payload map[string]any, actor string) (*lead.ActivityEntry, error)
}

// Metrics records dispatch attempt outcomes.
type Metrics interface {
	RecordNotification(channel, outcome string)
}

type noopMetrics struct{}

func (noopMetrics) RecordNotification(string, string) {}

// Dispatcher fans lead events out to channels according to the tier decision
// table and records every attempt, success or failure, on the audit trail.
type Dispatcher struct {
	slack      SlackSender
	email      EmailSender
	sequence   sequence.Publisher
	activities ActivityRecorder

	salesEmail     string
	attemptTimeout time.Duration
	maxAttempts    int
	backoffBase    time.Duration

	logger  *slog.Logger
	metrics Metrics
	tracer  trace.Tracer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

func WithMetrics(m Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithRetry overrides the per-attempt timeout and attempt cap.
func WithRetry(attemptTimeout time.Duration, maxAttempts int) Option {
	return func(d *Dispatcher) {
		if attemptTimeout > 0 {
			d.attemptTimeout = attemptTimeout
		}
		if maxAttempts > 0 {
			d.maxAttempts = maxAttempts
		}
	}
}

// withBackoffBase shortens retry sleeps in tests.
func withBackoffBase(base time.Duration) Option {
	return func(d *Dispatcher) { d.backoffBase = base }
}

// New builds a Dispatcher. salesEmail is the inbox that receives new-lead
// alerts for the email channel.
func New(slack SlackSender, email EmailSender, seq sequence.Publisher, activities ActivityRecorder, salesEmail string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		slack:          slack,
		email:          email,
		sequence:       seq,
		activities:     activities,
		salesEmail:     salesEmail,
		attemptTimeout: 10 * time.Second,
		maxAttempts:    3,
		backoffBase:    500 * time.Millisecond,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:        noopMetrics{},
		tracer:         otel.Tracer("leadgate/notify"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NotifyCreated performs the channel fan-out for a freshly created lead.
//
//	hot, warm  -> Slack alert + sales email + applicant confirmation
//	cool       -> sales email + applicant confirmation
//	nurture    -> automated sequence enqueue only
//
// Channels run in parallel and fail independently: one channel's failure
// must not cancel a sibling's delivery or its audit write, so the group
// deliberately shares no cancellation. The returned error aggregates
// delivery failures for logging; callers treat it as advisory, the lead is
// already committed.
func (d *Dispatcher) NotifyCreated(ctx context.Context, l *lead.Lead) error {
	ctx, span := d.tracer.Start(ctx, "notify.created", trace.WithAttributes(
		attribute.String("lead.id", l.ID.String()),
		attribute.String("lead.tier", string(l.PriorityTier)),
	))
	defer span.End()

	if l.PriorityTier == lead.TierNurture {
		return d.enqueueSequence(ctx, l)
	}

	var g errgroup.Group
	if l.PriorityTier == lead.TierHot || l.PriorityTier == lead.TierWarm {
		g.Go(func() error {
			return d.attemptSlack(ctx, l, string(lead.TriggerLeadCreated), newLeadSlackMessage(l))
		})
	}
	g.Go(func() error {
		return d.attemptEmail(ctx, l, string(lead.TriggerLeadCreated), ChannelEmail,
			d.salesEmail, newLeadEmailSubject(l), newLeadEmailBody(l))
	})
	g.Go(func() error {
		return d.attemptEmail(ctx, l, string(lead.TriggerLeadCreated), ChannelApplicantEmail,
			l.ContactEmail, confirmationEmailSubject(l), confirmationEmailBody(l))
	})
	return g.Wait()
}

// NotifyTransition handles the effects a status change returned. Transition
// alerts go to Slack only, regardless of tier.
func (d *Dispatcher) NotifyTransition(ctx context.Context, l *lead.Lead, triggers []lead.NotifyTrigger) error {
	if len(triggers) == 0 {
		return nil
	}
	ctx, span := d.tracer.Start(ctx, "notify.transition", trace.WithAttributes(
		attribute.String("lead.id", l.ID.String()),
	))
	defer span.End()

	var g errgroup.Group
	for _, trigger := range triggers {
		trigger := trigger
		g.Go(func() error {
			return d.attemptSlack(ctx, l, string(trigger), transitionSlackMessage(l, trigger))
		})
	}
	return g.Wait()
}

// NotifyFollowupDue posts a reminder for a hot lead that nobody has touched.
func (d *Dispatcher) NotifyFollowupDue(ctx context.Context, l *lead.Lead) error {
	return d.attemptSlack(ctx, l, "followup_reminder", followupReminderMessage(l))
}

// SendDigest posts a pre-built digest message. Digests are not tied to a
// single lead so no activity entry is recorded.
func (d *Dispatcher) SendDigest(ctx context.Context, message string) error {
	err := d.withRetries(ctx, func(ctx context.Context) error {
		return d.slack.SendSlack(ctx, message)
	})
	if err != nil {
		d.metrics.RecordNotification(ChannelSlack, OutcomeFailed)
		d.logger.ErrorContext(ctx, "digest delivery failed", "error", err)
		return err
	}
	d.metrics.RecordNotification(ChannelSlack, OutcomeSent)
	return nil
}

func (d *Dispatcher) enqueueSequence(ctx context.Context, l *lead.Lead) error {
	err := d.withRetries(ctx, func(ctx context.Context) error {
		return d.sequence.EnqueueNurture(ctx, l)
	})
	d.record(ctx, l, ChannelSequence, string(lead.TriggerLeadCreated), err)
	return err
}

func (d *Dispatcher) attemptSlack(ctx context.Context, l *lead.Lead, trigger, message string) error {
	err := d.withRetries(ctx, func(ctx context.Context) error {
		return d.slack.SendSlack(ctx, message)
	})
	d.record(ctx, l, ChannelSlack, trigger, err)
	return err
}

func (d *Dispatcher) attemptEmail(ctx context.Context, l *lead.Lead, trigger, channel, to, subject, body string) error {
	err := d.withRetries(ctx, func(ctx context.Context) error {
		return d.email.SendEmail(ctx, to, subject, body)
	})
	d.record(ctx, l, channel, trigger, err)
	return err
}

// withRetries runs fn with a per-attempt timeout, retrying with exponential
// backoff up to the attempt cap. The parent context cancelling stops retries.
func (d *Dispatcher) withRetries(ctx context.Context, fn func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, d.attemptTimeout)
		err = fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt == d.maxAttempts {
			break
		}
		backoff := d.backoffBase << (attempt - 1)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// record appends the audit entry for one dispatch attempt and bumps metrics.
// Audit failures are logged only; the delivery outcome already happened.
func (d *Dispatcher) record(ctx context.Context, l *lead.Lead, channel, trigger string, deliveryErr error) {
	outcome := OutcomeSent
	payload := map[string]any{
		"channel": channel,
		"trigger": trigger,
		"outcome": OutcomeSent,
	}
	if deliveryErr != nil {
		outcome = OutcomeFailed
		payload["outcome"] = OutcomeFailed
		payload["error"] = deliveryErr.Error()
		d.logger.ErrorContext(ctx, "notification delivery failed",
			"lead_id", l.ID, "channel", channel, "trigger", trigger, "error", deliveryErr)
	}
	d.metrics.RecordNotification(channel, outcome)

	if _, err := d.activities.LogActivity(ctx, l.ID, lead.ActivityNotificationSent, payload, "system"); err != nil {
		d.logger.ErrorContext(ctx, "failed to record notification activity",
			"lead_id", l.ID, "channel", channel, "error", err)
	}
}
