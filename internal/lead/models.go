package lead

import (
	"time"

	"github.com/google/uuid"
)

// Tier is the priority band derived from the qualification score. It drives
// notification urgency and is immutable alongside the score.
type Tier string

const (
	TierHot     Tier = "hot"     // immediate response (4h)
	TierWarm    Tier = "warm"    // same business day
	TierCool    Tier = "cool"    // next business day
	TierNurture Tier = "nurture" // automated sequence
)

// Scope is the organizational reach of the applicant.
type Scope string

const (
	ScopeNationalLevel  Scope = "national_level"
	ScopeMultiCountry   Scope = "multi_country"
	ScopeMultiRegion    Scope = "multi_region"
	ScopeSingleLocation Scope = "single_location"
	ScopeOther          Scope = "other"
)

func (s Scope) Valid() bool {
	switch s {
	case ScopeNationalLevel, ScopeMultiCountry, ScopeMultiRegion, ScopeSingleLocation, ScopeOther:
		return true
	}
	return false
}

// Industry is the applicant's sector.
type Industry string

const (
	IndustryGovernment    Industry = "government"
	IndustryNGO           Industry = "ngo"
	IndustryHealthcare    Industry = "healthcare"
	IndustryFintech       Industry = "fintech"
	IndustryManufacturing Industry = "manufacturing"
	IndustryReligious     Industry = "religious"
	IndustryOther         Industry = "other"
)

func (i Industry) Valid() bool {
	switch i {
	case IndustryGovernment, IndustryNGO, IndustryHealthcare, IndustryFintech,
		IndustryManufacturing, IndustryReligious, IndustryOther:
		return true
	}
	return false
}

// Challenge is the primary operational pain the applicant reports.
type Challenge string

const (
	ChallengeRiskCompliance      Challenge = "risk_compliance"
	ChallengeFragmentedReporting Challenge = "fragmented_reporting"
	ChallengeKpiGaps             Challenge = "kpi_gaps"
	ChallengeSlowDecisions       Challenge = "slow_decisions"
	ChallengeComplexity          Challenge = "complexity"
	ChallengeOther               Challenge = "other"
)

func (c Challenge) Valid() bool {
	switch c {
	case ChallengeRiskCompliance, ChallengeFragmentedReporting, ChallengeKpiGaps,
		ChallengeSlowDecisions, ChallengeComplexity, ChallengeOther:
		return true
	}
	return false
}

// Application is the raw pilot-program submission, before scoring. It is
// transient; the Lead retains its fields as the system of record.
type Application struct {
	OrganizationName string    `json:"organization_name"`
	ContactName      string    `json:"contact_name"`
	ContactEmail     string    `json:"contact_email"`
	TeamSize         int       `json:"team_size"`
	Scope            Scope     `json:"organizational_scope"`
	Industry         Industry  `json:"industry"`
	Challenge        Challenge `json:"challenge_category"`
	HasSampleReport  bool      `json:"has_sample_report"`

	// SourceIP identifies the submitter for rate limiting only. Not scored.
	SourceIP string `json:"-"`
}

// Status is the lead's pipeline stage.
type Status string

const (
	StatusNew            Status = "new"
	StatusContacted      Status = "contacted"
	StatusQualified      Status = "qualified"
	StatusPilotScheduled Status = "pilot_scheduled"
	StatusPilotActive    Status = "pilot_active"
	StatusWon            Status = "won"
	StatusLost           Status = "lost"
	StatusDisqualified   Status = "disqualified"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusQualified, StatusPilotScheduled,
		StatusPilotActive, StatusWon, StatusLost, StatusDisqualified:
		return true
	}
	return false
}

// Lead is the persistent, scored, status-tracked record derived from an
// Application. QualificationScore, PriorityTier, Breakdown, and CreatedAt are
// immutable after creation; Status and AssignedTo mutate through the service.
type Lead struct {
	ID uuid.UUID `json:"id"`

	OrganizationName string    `json:"organization_name"`
	ContactName      string    `json:"contact_name"`
	ContactEmail     string    `json:"contact_email"`
	TeamSize         int       `json:"team_size"`
	Scope            Scope     `json:"organizational_scope"`
	Industry         Industry  `json:"industry"`
	Challenge        Challenge `json:"challenge_category"`
	HasSampleReport  bool      `json:"has_sample_report"`
	SourceIP         string    `json:"-"`

	QualificationScore int            `json:"qualification_score"`
	PriorityTier       Tier           `json:"priority_tier"`
	Breakdown          map[string]int `json:"score_breakdown"`

	Status     Status `json:"status"`
	AssignedTo string `json:"assigned_to,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ActivityType classifies an audit-trail entry.
type ActivityType string

const (
	ActivityStatusChange     ActivityType = "status_change"
	ActivityNote             ActivityType = "note"
	ActivityCallScheduled    ActivityType = "call_scheduled"
	ActivityNotificationSent ActivityType = "notification_sent"
	ActivityAssigned         ActivityType = "assigned"
)

// ActivityEntry is one immutable audit record in a lead's history. Entries
// reference their lead; the lead does not enumerate them.
type ActivityEntry struct {
	ID        uuid.UUID      `json:"id"`
	LeadID    uuid.UUID      `json:"lead_id"`
	Type      ActivityType   `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	Actor     string         `json:"actor"`
	CreatedAt time.Time      `json:"created_at"`
}

// AlignmentCall is a scheduled executive alignment meeting for a lead.
type AlignmentCall struct {
	ID          uuid.UUID `json:"id"`
	LeadID      uuid.UUID `json:"lead_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
