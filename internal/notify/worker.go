package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"leadgate/internal/lead"
	"leadgate/internal/lead/store"
)

// LeadDirectory is the read surface the worker needs. Satisfied by the lead
// service.
type LeadDirectory interface {
	List(ctx context.Context, filter store.ListFilter, sort store.Sort) ([]*lead.Lead, error)
	UpcomingCalls(ctx context.Context, from, to time.Time) ([]*lead.AlignmentCall, error)
}

// Worker runs the periodic sales hygiene jobs: the follow-up reminder sweep
// for hot leads nobody has contacted, and the daily pipeline digest.
type Worker struct {
	directory  LeadDirectory
	dispatcher *Dispatcher
	logger     *slog.Logger

	followupAfter  time.Duration
	sweepInterval  time.Duration
	digestInterval time.Duration

	now func() time.Time

	// reminded tracks leads already nagged about, once per process lifetime.
	// A restart re-arms reminders for leads that are still untouched, which
	// is the useful failure mode.
	reminded map[uuid.UUID]struct{}
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

func WithWorkerLogger(l *slog.Logger) WorkerOption {
	return func(w *Worker) { w.logger = l }
}

// WithWorkerClock injects the time source for tests.
func WithWorkerClock(now func() time.Time) WorkerOption {
	return func(w *Worker) { w.now = now }
}

// WithDigestInterval overrides the default 24h digest cadence.
func WithDigestInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.digestInterval = d
		}
	}
}

func NewWorker(directory LeadDirectory, dispatcher *Dispatcher, followupAfter, sweepInterval time.Duration, opts ...WorkerOption) *Worker {
	w := &Worker{
		directory:      directory,
		dispatcher:     dispatcher,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		followupAfter:  followupAfter,
		sweepInterval:  sweepInterval,
		digestInterval: 24 * time.Hour,
		now:            time.Now,
		reminded:       make(map[uuid.UUID]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run blocks driving both jobs until ctx is cancelled. Job failures are
// logged and retried next tick.
func (w *Worker) Run(ctx context.Context) {
	sweep := time.NewTicker(w.sweepInterval)
	defer sweep.Stop()
	digest := time.NewTicker(w.digestInterval)
	defer digest.Stop()

	w.logger.InfoContext(ctx, "notification worker started",
		"followup_after", w.followupAfter,
		"sweep_interval", w.sweepInterval,
	)
	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "notification worker stopped")
			return
		case <-sweep.C:
			if err := w.Sweep(ctx); err != nil {
				w.logger.ErrorContext(ctx, "follow-up sweep failed", "error", err)
			}
		case <-digest.C:
			if err := w.SendDailyDigest(ctx); err != nil {
				w.logger.ErrorContext(ctx, "daily digest failed", "error", err)
			}
		}
	}
}

// Sweep reminds the team about hot leads still sitting in "new" past the
// follow-up deadline. Each lead is reminded at most once.
func (w *Worker) Sweep(ctx context.Context) error {
	leads, err := w.directory.List(ctx, store.ListFilter{
		Status: lead.StatusNew,
		Tier:   lead.TierHot,
	}, store.SortNewest)
	if err != nil {
		return err
	}

	cutoff := w.now().Add(-w.followupAfter)
	for _, l := range leads {
		if l.CreatedAt.After(cutoff) {
			continue
		}
		if _, done := w.reminded[l.ID]; done {
			continue
		}
		if err := w.dispatcher.NotifyFollowupDue(ctx, l); err != nil {
			w.logger.ErrorContext(ctx, "follow-up reminder failed",
				"lead_id", l.ID, "error", err)
			continue
		}
		w.reminded[l.ID] = struct{}{}
	}
	return nil
}

// SendDailyDigest builds and posts the pipeline summary.
func (w *Worker) SendDailyDigest(ctx context.Context) error {
	message, err := w.BuildDigest(ctx)
	if err != nil {
		return err
	}
	return w.dispatcher.SendDigest(ctx, message)
}

// BuildDigest assembles the digest message: leads created in the last 24h by
// tier, hot and warm leads still awaiting first contact, and alignment calls
// in the next 24h.
func (w *Worker) BuildDigest(ctx context.Context) (string, error) {
	now := w.now()

	recent, err := w.directory.List(ctx, store.ListFilter{
		CreatedAfter: now.Add(-24 * time.Hour),
	}, store.SortNewest)
	if err != nil {
		return "", err
	}
	byTier := make(map[lead.Tier]int)
	for _, l := range recent {
		byTier[l.PriorityTier]++
	}

	pendingHot, err := w.directory.List(ctx, store.ListFilter{
		Status: lead.StatusNew, Tier: lead.TierHot,
	}, store.SortScore)
	if err != nil {
		return "", err
	}
	pendingWarm, err := w.directory.List(ctx, store.ListFilter{
		Status: lead.StatusNew, Tier: lead.TierWarm,
	}, store.SortScore)
	if err != nil {
		return "", err
	}

	calls, err := w.directory.UpcomingCalls(ctx, now, now.Add(24*time.Hour))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Daily Pipeline Digest* (%s)\n\n", now.Format("2006-01-02"))
	fmt.Fprintf(&b, "New applications (24h): %d", len(recent))
	if len(recent) > 0 {
		fmt.Fprintf(&b, " (🔥 %d / 🔆 %d / ❄️ %d / 🌱 %d)",
			byTier[lead.TierHot], byTier[lead.TierWarm], byTier[lead.TierCool], byTier[lead.TierNurture])
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Awaiting first contact: %d hot, %d warm\n", len(pendingHot), len(pendingWarm))
	for _, l := range pendingHot {
		fmt.Fprintf(&b, "  • 🔥 %s (%d/100)\n", l.OrganizationName, l.QualificationScore)
	}
	fmt.Fprintf(&b, "Alignment calls next 24h: %d\n", len(calls))
	for _, c := range calls {
		fmt.Fprintf(&b, "  • %s (lead %s)\n", c.ScheduledAt.Format("15:04 MST"), c.LeadID)
	}
	return b.String(), nil
}
