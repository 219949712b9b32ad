// Package scoring maps application attributes to a qualification score and
// priority tier. This is pure domain logic - no I/O, no side effects.
package scoring

import "leadgate/internal/lead"

// Component weights (0-100 total, clamped):
//   - team size        0-25
//   - org scope        0-25
//   - industry fit     0-20
//   - challenge        0-15
//   - sample report    +10 bonus
const (
	MaxScore          = 100
	sampleReportBonus = 10
)

// Breakdown component names, returned for transparency and audit.
const (
	ComponentTeamSize     = "team_size"
	ComponentScope        = "organizational_scope"
	ComponentIndustry     = "industry"
	ComponentChallenge    = "challenge_category"
	ComponentSampleReport = "sample_report"
)

var scopeScores = map[lead.Scope]int{
	lead.ScopeNationalLevel:  25,
	lead.ScopeMultiCountry:   20,
	lead.ScopeMultiRegion:    15,
	lead.ScopeSingleLocation: 5,
	lead.ScopeOther:          0,
}

var industryScores = map[lead.Industry]int{
	lead.IndustryGovernment:    20,
	lead.IndustryNGO:           18,
	lead.IndustryHealthcare:    15,
	lead.IndustryFintech:       15,
	lead.IndustryManufacturing: 10,
	lead.IndustryReligious:     12,
	lead.IndustryOther:         5,
}

var challengeScores = map[lead.Challenge]int{
	lead.ChallengeRiskCompliance:      15,
	lead.ChallengeFragmentedReporting: 12,
	lead.ChallengeKpiGaps:             12,
	lead.ChallengeSlowDecisions:       10,
	lead.ChallengeComplexity:          8,
	lead.ChallengeOther:               5,
}

// Thresholds are the inclusive lower bounds of each named tier. Everything
// below Cool is Nurture. Exposed as configuration so operators can retune
// without code changes.
type Thresholds struct {
	Hot  int
	Warm int
	Cool int
}

// DefaultThresholds matches the documented bands: Hot [80,100], Warm [60,79],
// Cool [40,59], Nurture [0,39].
func DefaultThresholds() Thresholds {
	return Thresholds{Hot: 80, Warm: 60, Cool: 40}
}

// Result is the scoring outcome. Breakdown maps component name to points
// awarded; it feeds the audit trail, not further decisions.
type Result struct {
	Score     int
	Tier      lead.Tier
	Breakdown map[string]int
}

// Engine computes qualification scores. Deterministic and safe for
// concurrent use.
type Engine struct {
	thresholds Thresholds
}

func NewEngine(thresholds Thresholds) *Engine {
	if thresholds.Hot == 0 && thresholds.Warm == 0 && thresholds.Cool == 0 {
		thresholds = DefaultThresholds()
	}
	return &Engine{thresholds: thresholds}
}

// Score sums the component points, clamps to MaxScore, and derives the tier.
func (e *Engine) Score(app lead.Application) Result {
	breakdown := map[string]int{
		ComponentTeamSize:     teamSizeScore(app.TeamSize),
		ComponentScope:        scopeScores[app.Scope],
		ComponentIndustry:     industryScores[app.Industry],
		ComponentChallenge:    challengeScores[app.Challenge],
		ComponentSampleReport: 0,
	}
	if app.HasSampleReport {
		breakdown[ComponentSampleReport] = sampleReportBonus
	}

	total := 0
	for _, points := range breakdown {
		total += points
	}
	if total > MaxScore {
		total = MaxScore
	}

	return Result{
		Score:     total,
		Tier:      e.tierFor(total),
		Breakdown: breakdown,
	}
}

func (e *Engine) tierFor(score int) lead.Tier {
	switch {
	case score >= e.thresholds.Hot:
		return lead.TierHot
	case score >= e.thresholds.Warm:
		return lead.TierWarm
	case score >= e.thresholds.Cool:
		return lead.TierCool
	default:
		return lead.TierNurture
	}
}

func teamSizeScore(size int) int {
	switch {
	case size >= 500:
		return 25
	case size >= 101:
		return 20
	case size >= 21:
		return 15
	case size >= 1:
		return 5
	default:
		return 0
	}
}
