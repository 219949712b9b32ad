package intake

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"leadgate/internal/lead"
	"leadgate/internal/lead/scoring"
	"leadgate/internal/lead/service"
	"leadgate/internal/lead/store"
	"leadgate/internal/ratelimit"
	"leadgate/internal/ratelimit/bucket"
	dErrors "leadgate/pkg/domain-errors"
)

type captureNotifier struct {
	mu    sync.Mutex
	seen  []*lead.Lead
	ready chan struct{}
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{ready: make(chan struct{}, 16)}
}

func (c *captureNotifier) NotifyCreated(_ context.Context, l *lead.Lead) error {
	c.mu.Lock()
	c.seen = append(c.seen, l)
	c.mu.Unlock()
	c.ready <- struct{}{}
	return nil
}

func (c *captureNotifier) wait(t *testing.T) *lead.Lead {
	t.Helper()
	select {
	case <-c.ready:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier was never invoked")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen[len(c.seen)-1]
}

func newIntakeFixture(t *testing.T, limit int) (*Service, *service.Service, *captureNotifier) {
	t.Helper()
	leads := service.New(store.NewInMemory(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	limiter, err := ratelimit.New(bucket.NewInMemory(), limit, time.Hour)
	require.NoError(t, err)
	notifier := newCaptureNotifier()
	svc := New(limiter, scoring.NewEngine(scoring.DefaultThresholds()), leads, notifier)
	return svc, leads, notifier
}

func validApplication() lead.Application {
	return lead.Application{
		OrganizationName: "Meridian Health Group",
		ContactName:      "Asha Okafor",
		ContactEmail:     "asha@meridian.example",
		TeamSize:         640,
		Scope:            lead.ScopeMultiCountry,
		Industry:         lead.IndustryHealthcare,
		Challenge:        lead.ChallengeFragmentedReporting,
		HasSampleReport:  true,
		SourceIP:         "203.0.113.7",
	}
}

func TestSubmitCreatesScoredLead(t *testing.T) {
	svc, leads, notifier := newIntakeFixture(t, 5)

	receipt, rl, err := svc.Submit(context.Background(), validApplication())
	require.NoError(t, err)
	require.NotNil(t, rl)
	require.True(t, rl.Allowed)
	require.Equal(t, 4, rl.Remaining)

	require.Equal(t, 82, receipt.Lead.QualificationScore)
	require.Equal(t, lead.TierHot, receipt.Lead.PriorityTier)
	require.Equal(t, lead.StatusNew, receipt.Lead.Status)
	require.True(t, strings.HasPrefix(receipt.TrackingRef, "PILOT-"))

	stored, err := leads.Get(context.Background(), receipt.Lead.ID)
	require.NoError(t, err)
	require.Equal(t, receipt.Lead.ID, stored.ID)

	notified := notifier.wait(t)
	require.Equal(t, receipt.Lead.ID, notified.ID)
}

func TestSubmitRejectsInvalidApplicationWithFieldDetail(t *testing.T) {
	svc, _, notifier := newIntakeFixture(t, 5)

	app := validApplication()
	app.OrganizationName = "  "
	app.ContactEmail = "not-an-address"
	app.TeamSize = 0
	app.Industry = "agriculture"

	_, rl, err := svc.Submit(context.Background(), app)
	require.Error(t, err)
	require.Nil(t, rl)
	require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	fields := dErrors.FieldsOf(err)
	require.Contains(t, fields, "organization_name")
	require.Contains(t, fields, "contact_email")
	require.Contains(t, fields, "team_size")
	require.Contains(t, fields, "industry")
	require.NotContains(t, fields, "contact_name")
	require.Empty(t, notifier.seen)
}

func TestSubmitValidationRunsBeforeRateLimiting(t *testing.T) {
	svc, _, _ := newIntakeFixture(t, 1)

	bad := validApplication()
	bad.ContactEmail = ""
	for i := 0; i < 3; i++ {
		_, _, err := svc.Submit(context.Background(), bad)
		require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	}

	// Invalid submissions must not have consumed the quota.
	_, rl, err := svc.Submit(context.Background(), validApplication())
	require.NoError(t, err)
	require.True(t, rl.Allowed)
}

func TestSubmitDeniesOverQuota(t *testing.T) {
	svc, _, _ := newIntakeFixture(t, 2)

	for i := 0; i < 2; i++ {
		_, _, err := svc.Submit(context.Background(), validApplication())
		require.NoError(t, err)
	}

	_, rl, err := svc.Submit(context.Background(), validApplication())
	require.Error(t, err)
	require.True(t, dErrors.HasCode(err, dErrors.CodeRateLimited))
	require.NotNil(t, rl)
	require.False(t, rl.Allowed)
	require.Positive(t, rl.RetryAfter)
}

func TestSubmitQuotaIsPerSource(t *testing.T) {
	svc, _, _ := newIntakeFixture(t, 1)

	first := validApplication()
	_, _, err := svc.Submit(context.Background(), first)
	require.NoError(t, err)

	other := validApplication()
	other.SourceIP = "198.51.100.20"
	_, _, err = svc.Submit(context.Background(), other)
	require.NoError(t, err)

	_, _, err = svc.Submit(context.Background(), first)
	require.True(t, dErrors.HasCode(err, dErrors.CodeRateLimited))
}

func TestStatusExposesOnlyStatusAndCreatedAt(t *testing.T) {
	svc, _, _ := newIntakeFixture(t, 5)

	receipt, _, err := svc.Submit(context.Background(), validApplication())
	require.NoError(t, err)

	view, err := svc.Status(context.Background(), receipt.Lead.ID)
	require.NoError(t, err)
	require.Equal(t, lead.StatusNew, view.Status)
	require.Equal(t, receipt.Lead.CreatedAt, view.CreatedAt)
}

func TestStatusUnknownLeadIsNotFound(t *testing.T) {
	svc, _, _ := newIntakeFixture(t, 5)

	_, err := svc.Status(context.Background(), uuid.New())
	require.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
