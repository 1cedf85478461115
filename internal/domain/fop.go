package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Timer event types shared by the athlete and break clocks.
const (
	TimerStart = "StartTime"
	TimerStop  = "StopTime"
	TimerSet   = "SetTime"
	TimerPause = "Pause"
)

// Decision event types.
const (
	DecisionFull  = "FULL_DECISION"
	DecisionReset = "RESET"
	DecisionDown  = "DOWN_SIGNAL"
)

// FOP states reported by the producer.
const (
	FOPInactive       = "INACTIVE"
	FOPCurrentAthlete = "CURRENT_ATHLETE"
	FOPBreak          = "BREAK"
)

// Break types with lifecycle meaning.
const (
	BreakGroupDone    = "GROUP_DONE"
	BreakInterruption = "INTERRUPTION"
)

// UIEventGroupDone is the update sentinel that ends a session.
const UIEventGroupDone = "GroupDone"

// OrderKey is one entry of a start/lifting order: either an athlete key or a
// spacer sentinel. The wire sends plain keys, {athleteKey} objects, or
// {isSpacer:true} markers.
type OrderKey struct {
	AthleteKey string `json:"athleteKey,omitempty"`
	IsSpacer   bool   `json:"isSpacer,omitempty"`
}

func (o *OrderKey) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*o = OrderKey{}
		return nil
	}
	if trimmed[0] == '{' {
		var obj struct {
			AthleteKey *Key `json:"athleteKey"`
			Key        *Key `json:"key"`
			IsSpacer   bool `json:"isSpacer"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if obj.IsSpacer {
			*o = OrderKey{IsSpacer: true}
			return nil
		}
		k := obj.AthleteKey
		if k == nil {
			k = obj.Key
		}
		if k != nil {
			*o = OrderKey{AthleteKey: string(*k)}
		} else {
			*o = OrderKey{}
		}
		return nil
	}
	var k Key
	if err := json.Unmarshal(data, &k); err != nil {
		return err
	}
	*o = OrderKey{AthleteKey: string(k)}
	return nil
}

// OrderEntry is a resolved order row: a normalized athlete or a spacer.
type OrderEntry struct {
	IsSpacer bool     `json:"isSpacer,omitempty"`
	Athlete  *Athlete `json:"athlete,omitempty"`
}

// AthleteTimer is the per-FOP athlete clock slice.
type AthleteTimer struct {
	EventType       string `json:"athleteTimerEventType,omitempty"`
	MillisRemaining int64  `json:"athleteMillisRemaining,omitempty"`
	StartTimeMillis int64  `json:"athleteStartTimeMillis,omitempty"`
	TimeAllowed     int64  `json:"timeAllowed,omitempty"`
}

// BreakTimer is the per-FOP break clock slice. A Pause event clears it.
type BreakTimer struct {
	EventType       string `json:"breakTimerEventType,omitempty"`
	MillisRemaining int64  `json:"breakMillisRemaining,omitempty"`
	StartTimeMillis int64  `json:"breakStartTimeMillis,omitempty"`
}

// Decision is the per-FOP referee decision slice. Individual referee
// decisions are tristate: nil means undecided.
type Decision struct {
	EventType        string `json:"decisionEventType,omitempty"`
	DecisionsVisible bool   `json:"decisionsVisible,omitempty"`
	D1               *bool  `json:"d1,omitempty"`
	D2               *bool  `json:"d2,omitempty"`
	D3               *bool  `json:"d3,omitempty"`
	Down             bool   `json:"down,omitempty"`
}

// DisplayMode is the "what to show" reduction over a FOP snapshot.
type DisplayMode string

const (
	ShowDecision DisplayMode = "decision"
	ShowBreak    DisplayMode = "break"
	ShowAthlete  DisplayMode = "athlete"
	ShowNone     DisplayMode = "none"
)

// FOPState is the merged per-platform snapshot. All fields are folded in
// from successive update/timer/decision frames; readers receive copies.
type FOPState struct {
	FOPName string `json:"fopName"`

	UIEvent   string `json:"uiEvent,omitempty"`
	State     string `json:"fopState,omitempty"`
	Break     bool   `json:"break,omitempty"`
	BreakType string `json:"breakType,omitempty"`
	Mode      string `json:"mode,omitempty"`

	SessionName string `json:"sessionName,omitempty"`
	GroupInfo   string `json:"groupInfo,omitempty"`

	CurrentAthleteKey  string `json:"currentAthleteKey,omitempty"`
	NextAthleteKey     string `json:"nextAthleteKey,omitempty"`
	PreviousAthleteKey string `json:"previousAthleteKey,omitempty"`

	SessionAthletes  []Athlete  `json:"sessionAthletes,omitempty"`
	StartOrderKeys   []OrderKey `json:"startOrderKeys,omitempty"`
	LiftingOrderKeys []OrderKey `json:"liftingOrderKeys,omitempty"`

	StartOrderAthletes   []OrderEntry `json:"startOrderAthletes,omitempty"`
	LiftingOrderAthletes []OrderEntry `json:"liftingOrderAthletes,omitempty"`

	Leaders json.RawMessage `json:"leaders,omitempty"`
	Records json.RawMessage `json:"records,omitempty"`

	AthleteTimer AthleteTimer `json:"athleteTimer,omitempty"`
	BreakTimer   BreakTimer   `json:"breakTimer,omitempty"`
	Decision     Decision     `json:"decision,omitempty"`

	Extra map[string]json.RawMessage `json:"extra,omitempty"`

	LastUpdate     time.Time `json:"lastUpdate"`
	LastDataUpdate time.Time `json:"lastDataUpdate"`
	Version        uint64    `json:"version"`
}

// Clone returns a deep-enough copy for handing to readers: slices and maps
// are copied, athletes are value types.
func (f *FOPState) Clone() *FOPState {
	if f == nil {
		return nil
	}
	cp := *f
	cp.SessionAthletes = append([]Athlete(nil), f.SessionAthletes...)
	cp.StartOrderKeys = append([]OrderKey(nil), f.StartOrderKeys...)
	cp.LiftingOrderKeys = append([]OrderKey(nil), f.LiftingOrderKeys...)
	cp.StartOrderAthletes = append([]OrderEntry(nil), f.StartOrderAthletes...)
	cp.LiftingOrderAthletes = append([]OrderEntry(nil), f.LiftingOrderAthletes...)
	if f.Extra != nil {
		cp.Extra = make(map[string]json.RawMessage, len(f.Extra))
		for k, v := range f.Extra {
			cp.Extra[k] = v
		}
	}
	return &cp
}

// CurrentLift identifies the attempt an athlete is on.
type CurrentLift struct {
	LiftType string  `json:"currentLiftType"`
	Attempt  int     `json:"currentAttempt"`
	Weight   float64 `json:"currentWeight"`
}

// Lift types.
const (
	LiftTypeSnatch    = "snatch"
	LiftTypeCleanJerk = "cleanJerk"
)

// EnrichedAthlete is a session athlete annotated with its live attempt.
type EnrichedAthlete struct {
	Athlete
	CurrentLift
}
