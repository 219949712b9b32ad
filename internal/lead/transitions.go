package lead

// Forward pipeline order. Transitions may only advance one step at a time;
// skipping stages is rejected.
var forwardNext = map[Status]Status{
	StatusNew:            StatusContacted,
	StatusContacted:      StatusQualified,
	StatusQualified:      StatusPilotScheduled,
	StatusPilotScheduled: StatusPilotActive,
	StatusPilotActive:    StatusWon,
}

// IsTerminal reports whether no further transitions are allowed out of s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusWon, StatusLost, StatusDisqualified:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is legal:
//   - one forward step along the pipeline,
//   - Lost from any non-terminal state,
//   - Disqualified from New or Contacted.
func (s Status) CanTransitionTo(next Status) bool {
	if s.IsTerminal() || !next.Valid() {
		return false
	}
	if next == StatusLost {
		return true
	}
	if next == StatusDisqualified {
		return s == StatusNew || s == StatusContacted
	}
	return forwardNext[s] == next
}
