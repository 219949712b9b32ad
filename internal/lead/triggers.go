package lead

// NotifyTrigger names an event that causes the notification dispatcher to
// act. Transitions return triggers as explicit effects; the caller performs
// them outside the storage transaction so a slow or failing transport can
// never roll back a committed status change.
type NotifyTrigger string

const (
	TriggerLeadCreated    NotifyTrigger = "lead_created"
	TriggerPilotScheduled NotifyTrigger = "pilot_scheduled"
	TriggerWon            NotifyTrigger = "won"
	TriggerLost           NotifyTrigger = "lost"
)

// TriggersFor returns the notification effects of entering status.
func TriggersFor(status Status) []NotifyTrigger {
	switch status {
	case StatusPilotScheduled:
		return []NotifyTrigger{TriggerPilotScheduled}
	case StatusWon:
		return []NotifyTrigger{TriggerWon}
	case StatusLost:
		return []NotifyTrigger{TriggerLost}
	}
	return nil
}
