package notify

import (
	"fmt"
	"strings"

	"leadgate/internal/lead"
)

// Urgency framing per tier, quoted in both Slack alerts and sales emails.
const (
	framingHot  = "respond within 4 hours"
	framingWarm = "respond same business day"
	framingCool = "respond next business day"
)

func framingFor(tier lead.Tier) string {
	switch tier {
	case lead.TierHot:
		return framingHot
	case lead.TierWarm:
		return framingWarm
	default:
		return framingCool
	}
}

func tierBadge(tier lead.Tier) string {
	switch tier {
	case lead.TierHot:
		return "🔥 HOT"
	case lead.TierWarm:
		return "🔆 WARM"
	case lead.TierCool:
		return "❄️ COOL"
	default:
		return "🌱 NURTURE"
	}
}

func newLeadSlackMessage(l *lead.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s NEW PILOT LEAD: *%s*\n", tierBadge(l.PriorityTier), l.OrganizationName)
	fmt.Fprintf(&b, "Score: %d/100\n", l.QualificationScore)
	fmt.Fprintf(&b, "Contact: %s <%s>\n", l.ContactName, l.ContactEmail)
	fmt.Fprintf(&b, "Industry: %s | Scope: %s | Team: %d\n", l.Industry, l.Scope, l.TeamSize)
	fmt.Fprintf(&b, "*Action Required:* %s", framingFor(l.PriorityTier))
	return b.String()
}

func newLeadEmailSubject(l *lead.Lead) string {
	return fmt.Sprintf("%s pilot lead: %s (%d/100)", tierBadge(l.PriorityTier), l.OrganizationName, l.QualificationScore)
}

func newLeadEmailBody(l *lead.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A new pilot application from %s scored %d/100 (%s tier).\n\n",
		l.OrganizationName, l.QualificationScore, l.PriorityTier)
	fmt.Fprintf(&b, "Contact: %s <%s>\n", l.ContactName, l.ContactEmail)
	fmt.Fprintf(&b, "Industry: %s\nScope: %s\nTeam size: %d\nChallenge: %s\n\n",
		l.Industry, l.Scope, l.TeamSize, l.Challenge)
	fmt.Fprintf(&b, "Action required: %s.\n", framingFor(l.PriorityTier))
	fmt.Fprintf(&b, "Lead ID: %s\n", l.ID)
	return b.String()
}

func transitionSlackMessage(l *lead.Lead, trigger lead.NotifyTrigger) string {
	switch trigger {
	case lead.TriggerPilotScheduled:
		return fmt.Sprintf("📅 Pilot scheduled for *%s* (score %d/100)", l.OrganizationName, l.QualificationScore)
	case lead.TriggerWon:
		return fmt.Sprintf("🎉 *%s* converted to a paying engagement", l.OrganizationName)
	case lead.TriggerLost:
		return fmt.Sprintf("📉 Lead lost: *%s* (was %s tier)", l.OrganizationName, l.PriorityTier)
	default:
		return fmt.Sprintf("Lead update for *%s*: %s", l.OrganizationName, trigger)
	}
}

func confirmationEmailSubject(l *lead.Lead) string {
	return fmt.Sprintf("We received your pilot application, %s", l.ContactName)
}

func confirmationEmailBody(l *lead.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", l.ContactName)
	fmt.Fprintf(&b, "Thanks for applying to the executive pilot program on behalf of %s.\n", l.OrganizationName)
	b.WriteString("Our team is reviewing your application and will be in touch shortly.\n\n")
	fmt.Fprintf(&b, "Your tracking reference: %s\n", TrackingReference(l))
	return b.String()
}

func followupReminderMessage(l *lead.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ FOLLOW-UP REMINDER\n\n")
	fmt.Fprintf(&b, "🔥 Hot lead still untouched: *%s*\n", l.OrganizationName)
	fmt.Fprintf(&b, "Score: %d/100, submitted %s\n", l.QualificationScore, l.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Contact: %s <%s>\n", l.ContactName, l.ContactEmail)
	fmt.Fprintf(&b, "*Action Required:* %s", framingHot)
	return b.String()
}

// TrackingReference is the public handle returned to applicants. The first
// UUID block is enough to quote in support conversations without exposing
// the full lead ID pattern.
func TrackingReference(l *lead.Lead) string {
	return "PILOT-" + strings.ToUpper(strings.SplitN(l.ID.String(), "-", 2)[0])
}
