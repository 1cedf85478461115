package hub

import (
	"strings"

	"github.com/owlcms/tracker-core/internal/domain"
)

// reduceDisplayMode computes the "what to show" reduction for a snapshot:
// decision beats break beats athlete. sessionDone suppresses the break
// display driven by the break flag or fopState so the scoreboard can show
// final results instead of a countdown; a started break clock still forces
// the break display.
func reduceDisplayMode(f *domain.FOPState, sessionDone bool) domain.DisplayMode {
	if f == nil {
		return domain.ShowNone
	}

	decisionVisible := f.Decision.DecisionsVisible ||
		f.Decision.EventType == domain.DecisionDown && f.Decision.Down

	if decisionVisible {
		return domain.ShowDecision
	}

	// A running break clock with no visible decision forces the break
	// display even when other flags disagree.
	if f.BreakTimer.EventType == domain.TimerStart {
		return domain.ShowBreak
	}

	athleteStarting := f.AthleteTimer.EventType == domain.TimerStart
	inBreak := f.Break || f.State == domain.FOPBreak
	if inBreak && !athleteStarting && !sessionDone &&
		f.BreakTimer.EventType != domain.TimerPause {
		return domain.ShowBreak
	}

	switch f.AthleteTimer.EventType {
	case domain.TimerStart, domain.TimerStop, domain.TimerSet:
		if f.CurrentAthleteKey != "" {
			return domain.ShowAthlete
		}
	}
	return domain.ShowNone
}

// breakDisplayText resolves the break panel's headline. An interruption
// shows the literal stop word instead of a countdown.
func breakDisplayText(f *domain.FOPState, locale string) string {
	if f == nil {
		return ""
	}
	if f.Mode == domain.BreakInterruption || f.BreakType == domain.BreakInterruption {
		if strings.HasPrefix(strings.ToLower(locale), "no") {
			return "STOPP"
		}
		return "STOP"
	}
	return ""
}
