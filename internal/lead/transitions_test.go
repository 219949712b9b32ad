package lead

import "testing"

func TestForwardTransitionsAreSingleStep(t *testing.T) {
	steps := []Status{
		StatusNew, StatusContacted, StatusQualified,
		StatusPilotScheduled, StatusPilotActive, StatusWon,
	}

	for i := 0; i < len(steps)-1; i++ {
		if !steps[i].CanTransitionTo(steps[i+1]) {
			t.Fatalf("expected %s -> %s to be legal", steps[i], steps[i+1])
		}
	}

	// Skipping a stage is rejected.
	for i := 0; i < len(steps); i++ {
		for j := i + 2; j < len(steps); j++ {
			if steps[i].CanTransitionTo(steps[j]) {
				t.Fatalf("expected %s -> %s to be rejected (skips stages)", steps[i], steps[j])
			}
		}
	}

	// Moving backwards is rejected.
	if StatusQualified.CanTransitionTo(StatusContacted) {
		t.Fatalf("expected backward transition to be rejected")
	}
}

func TestLostReachableFromAnyNonTerminal(t *testing.T) {
	for _, s := range []Status{StatusNew, StatusContacted, StatusQualified, StatusPilotScheduled, StatusPilotActive} {
		if !s.CanTransitionTo(StatusLost) {
			t.Fatalf("expected %s -> lost to be legal", s)
		}
	}
	for _, s := range []Status{StatusWon, StatusLost, StatusDisqualified} {
		if s.CanTransitionTo(StatusLost) {
			t.Fatalf("expected terminal %s to reject lost", s)
		}
	}
}

func TestDisqualifiedOnlyFromEarlyStages(t *testing.T) {
	if !StatusNew.CanTransitionTo(StatusDisqualified) {
		t.Fatalf("expected new -> disqualified to be legal")
	}
	if !StatusContacted.CanTransitionTo(StatusDisqualified) {
		t.Fatalf("expected contacted -> disqualified to be legal")
	}
	for _, s := range []Status{StatusQualified, StatusPilotScheduled, StatusPilotActive, StatusWon, StatusLost} {
		if s.CanTransitionTo(StatusDisqualified) {
			t.Fatalf("expected %s -> disqualified to be rejected", s)
		}
	}
}

func TestTerminalStatesAreExitLocked(t *testing.T) {
	all := []Status{
		StatusNew, StatusContacted, StatusQualified, StatusPilotScheduled,
		StatusPilotActive, StatusWon, StatusLost, StatusDisqualified,
	}
	for _, terminal := range []Status{StatusWon, StatusLost, StatusDisqualified} {
		for _, next := range all {
			if terminal.CanTransitionTo(next) {
				t.Fatalf("expected terminal %s to reject transition to %s", terminal, next)
			}
		}
	}
}

func TestUnknownStatusRejected(t *testing.T) {
	if StatusNew.CanTransitionTo(Status("archived")) {
		t.Fatalf("expected unknown status to be rejected")
	}
	if Status("archived").Valid() {
		t.Fatalf("expected unknown status to be invalid")
	}
}
