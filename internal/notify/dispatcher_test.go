package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"leadgate/internal/lead"
)

type fakeSlack struct {
	mu       sync.Mutex
	messages []string
	failures int
}

func (f *fakeSlack) SendSlack(_ context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("slack: 500")
	}
	f.messages = append(f.messages, message)
	return nil
}

type sentEmail struct {
	to, subject, body string
}

type fakeEmail struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (f *fakeEmail) SendEmail(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{to, subject, body})
	return nil
}

type fakeSequence struct {
	mu       sync.Mutex
	enqueued []uuid.UUID
}

func (f *fakeSequence) EnqueueNurture(_ context.Context, l *lead.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, l.ID)
	return nil
}

type recordedActivity struct {
	leadID  uuid.UUID
	entry   lead.ActivityType
	payload map[string]any
	actor   string
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []recordedActivity
}

func (f *fakeRecorder) LogActivity(_ context.Context, leadID uuid.UUID, entryType lead.ActivityType, payload map[string]any, actor string) (*lead.ActivityEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, recordedActivity{leadID, entryType, payload, actor})
	return &lead.ActivityEntry{ID: uuid.New(), LeadID: leadID, Type: entryType}, nil
}

func (f *fakeRecorder) byChannel() map[string][]recordedActivity {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]recordedActivity)
	for _, e := range f.entries {
		ch, _ := e.payload["channel"].(string)
		out[ch] = append(out[ch], e)
	}
	return out
}

func testLead(tier lead.Tier) *lead.Lead {
	return &lead.Lead{
		ID:                 uuid.New(),
		OrganizationName:   "Meridian Health",
		ContactName:        "Asha Okafor",
		ContactEmail:       "asha@meridian.example",
		TeamSize:           640,
		Scope:              lead.ScopeMultiCountry,
		Industry:           lead.IndustryHealthcare,
		Challenge:          lead.ChallengeFragmentedReporting,
		QualificationScore: 92,
		PriorityTier:       tier,
		Status:             lead.StatusNew,
		CreatedAt:          time.Now().UTC(),
	}
}

func newTestDispatcher(slack *fakeSlack, email *fakeEmail, seq *fakeSequence, rec *fakeRecorder) *Dispatcher {
	return New(slack, email, seq, rec, "sales@leadgate.example",
		WithRetry(time.Second, 3), withBackoffBase(time.Millisecond))
}

func TestNotifyCreatedHotFansOutAllChannels(t *testing.T) {
	slack := &fakeSlack{}
	email := &fakeEmail{}
	seq := &fakeSequence{}
	rec := &fakeRecorder{}
	d := newTestDispatcher(slack, email, seq, rec)

	l := testLead(lead.TierHot)
	require.NoError(t, d.NotifyCreated(context.Background(), l))

	require.Len(t, slack.messages, 1)
	require.Contains(t, slack.messages[0], "Meridian Health")
	require.Contains(t, slack.messages[0], "respond within 4 hours")

	require.Len(t, email.sent, 2)
	recipients := []string{email.sent[0].to, email.sent[1].to}
	require.ElementsMatch(t, []string{"sales@leadgate.example", "asha@meridian.example"}, recipients)

	require.Empty(t, seq.enqueued)

	byChannel := rec.byChannel()
	require.Len(t, byChannel[ChannelSlack], 1)
	require.Len(t, byChannel[ChannelEmail], 1)
	require.Len(t, byChannel[ChannelApplicantEmail], 1)
	for _, entries := range byChannel {
		for _, e := range entries {
			require.Equal(t, lead.ActivityNotificationSent, e.entry)
			require.Equal(t, OutcomeSent, e.payload["outcome"])
			require.Equal(t, "system", e.actor)
			require.Equal(t, l.ID, e.leadID)
		}
	}
}

func TestNotifyCreatedWarmUsesSameDayFraming(t *testing.T) {
	slack := &fakeSlack{}
	email := &fakeEmail{}
	d := newTestDispatcher(slack, email, &fakeSequence{}, &fakeRecorder{})

	require.NoError(t, d.NotifyCreated(context.Background(), testLead(lead.TierWarm)))

	require.Len(t, slack.messages, 1)
	require.Contains(t, slack.messages[0], "respond same business day")
	require.Len(t, email.sent, 2)
}

func TestNotifyCreatedCoolSkipsSlack(t *testing.T) {
	slack := &fakeSlack{}
	email := &fakeEmail{}
	rec := &fakeRecorder{}
	d := newTestDispatcher(slack, email, &fakeSequence{}, rec)

	require.NoError(t, d.NotifyCreated(context.Background(), testLead(lead.TierCool)))

	require.Empty(t, slack.messages)
	require.Len(t, email.sent, 2)

	var salesBody string
	for _, e := range email.sent {
		if e.to == "sales@leadgate.example" {
			salesBody = e.body
		}
	}
	require.Contains(t, salesBody, "respond next business day")
	require.Empty(t, rec.byChannel()[ChannelSlack])
}

func TestNotifyCreatedNurtureEnqueuesOnly(t *testing.T) {
	slack := &fakeSlack{}
	email := &fakeEmail{}
	seq := &fakeSequence{}
	rec := &fakeRecorder{}
	d := newTestDispatcher(slack, email, seq, rec)

	l := testLead(lead.TierNurture)
	require.NoError(t, d.NotifyCreated(context.Background(), l))

	require.Empty(t, slack.messages)
	require.Empty(t, email.sent)
	require.Equal(t, []uuid.UUID{l.ID}, seq.enqueued)

	byChannel := rec.byChannel()
	require.Empty(t, byChannel[ChannelSlack])
	require.Empty(t, byChannel[ChannelEmail])
	require.Empty(t, byChannel[ChannelApplicantEmail])
	require.Len(t, byChannel[ChannelSequence], 1)
	require.Equal(t, OutcomeSent, byChannel[ChannelSequence][0].payload["outcome"])
}

func TestNotifyTransitionIsSlackOnly(t *testing.T) {
	slack := &fakeSlack{}
	email := &fakeEmail{}
	rec := &fakeRecorder{}
	d := newTestDispatcher(slack, email, &fakeSequence{}, rec)

	l := testLead(lead.TierHot)
	l.Status = lead.StatusWon
	err := d.NotifyTransition(context.Background(), l, []lead.NotifyTrigger{lead.TriggerWon})
	require.NoError(t, err)

	require.Len(t, slack.messages, 1)
	require.Contains(t, slack.messages[0], "paying engagement")
	require.Empty(t, email.sent)

	entries := rec.byChannel()[ChannelSlack]
	require.Len(t, entries, 1)
	require.Equal(t, string(lead.TriggerWon), entries[0].payload["trigger"])
}

func TestNotifyTransitionNoTriggersIsNoop(t *testing.T) {
	slack := &fakeSlack{}
	rec := &fakeRecorder{}
	d := newTestDispatcher(slack, &fakeEmail{}, &fakeSequence{}, rec)

	require.NoError(t, d.NotifyTransition(context.Background(), testLead(lead.TierHot), nil))
	require.Empty(t, slack.messages)
	require.Empty(t, rec.entries)
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	slack := &fakeSlack{failures: 2}
	rec := &fakeRecorder{}
	d := newTestDispatcher(slack, &fakeEmail{}, &fakeSequence{}, rec)

	l := testLead(lead.TierWarm)
	l.Status = lead.StatusPilotScheduled
	err := d.NotifyTransition(context.Background(), l, []lead.NotifyTrigger{lead.TriggerPilotScheduled})
	require.NoError(t, err)

	require.Len(t, slack.messages, 1)
	entries := rec.byChannel()[ChannelSlack]
	require.Len(t, entries, 1)
	require.Equal(t, OutcomeSent, entries[0].payload["outcome"])
}

func TestExhaustedRetriesRecordFailure(t *testing.T) {
	slack := &fakeSlack{failures: 10}
	rec := &fakeRecorder{}
	d := newTestDispatcher(slack, &fakeEmail{}, &fakeSequence{}, rec)

	l := testLead(lead.TierHot)
	l.Status = lead.StatusLost
	err := d.NotifyTransition(context.Background(), l, []lead.NotifyTrigger{lead.TriggerLost})
	require.Error(t, err)

	require.Empty(t, slack.messages)
	entries := rec.byChannel()[ChannelSlack]
	require.Len(t, entries, 1)
	require.Equal(t, OutcomeFailed, entries[0].payload["outcome"])
	require.Contains(t, entries[0].payload["error"], "slack: 500")
	// Two failures consumed by retries, a third by the final attempt.
	require.Equal(t, 7, slack.failures)
}

func TestEmailFailureDoesNotBlockSlack(t *testing.T) {
	slack := &fakeSlack{}
	email := &fakeEmail{err: errors.New("smtp: connection refused")}
	rec := &fakeRecorder{}
	d := newTestDispatcher(slack, email, &fakeSequence{}, rec)

	err := d.NotifyCreated(context.Background(), testLead(lead.TierHot))
	require.Error(t, err)

	require.Len(t, slack.messages, 1)
	byChannel := rec.byChannel()
	require.Equal(t, OutcomeSent, byChannel[ChannelSlack][0].payload["outcome"])
	require.Equal(t, OutcomeFailed, byChannel[ChannelEmail][0].payload["outcome"])
	require.Equal(t, OutcomeFailed, byChannel[ChannelApplicantEmail][0].payload["outcome"])
}

// slowSlack honors context cancellation, so a sibling channel cancelling the
// shared context would surface as a lost message here.
type slowSlack struct {
	mu       sync.Mutex
	delay    time.Duration
	messages []string
}

func (f *slowSlack) SendSlack(ctx context.Context, message string) error {
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

func TestChannelFailureDoesNotCancelSiblingDelivery(t *testing.T) {
	slack := &slowSlack{delay: 50 * time.Millisecond}
	email := &fakeEmail{err: errors.New("smtp: connection refused")}
	rec := &fakeRecorder{}
	d := New(slack, email, &fakeSequence{}, rec, "sales@leadgate.example",
		WithRetry(time.Second, 1), withBackoffBase(time.Millisecond))

	err := d.NotifyCreated(context.Background(), testLead(lead.TierHot))
	require.Error(t, err)

	// The email channel failed instantly; the slower Slack send must still
	// complete and its audit entry must not carry a cancellation.
	require.Len(t, slack.messages, 1)
	byChannel := rec.byChannel()
	require.Len(t, byChannel[ChannelSlack], 1)
	require.Equal(t, OutcomeSent, byChannel[ChannelSlack][0].payload["outcome"])
	for _, e := range byChannel[ChannelEmail] {
		require.NotContains(t, e.payload["error"], "context canceled")
	}
}

func TestTrackingReference(t *testing.T) {
	l := testLead(lead.TierHot)
	ref := TrackingReference(l)
	require.Contains(t, ref, "PILOT-")
	require.Len(t, ref, len("PILOT-")+8)
}
