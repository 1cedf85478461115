package hub

import (
	"encoding/json"
	"strings"

	"github.com/owlcms/tracker-core/internal/domain"
)

// jsonField tolerates payload fields that arrive either as JSON values or as
// JSON-encoded strings. The string form is unwrapped at the frame boundary;
// the core only ever sees the value form.
type jsonField []byte

func (f *jsonField) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*f = nil
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = nil
			return nil
		}
		*f = jsonField(s)
		return nil
	}
	*f = jsonField(data)
	return nil
}

// updatePayload carries the recognized fields of an update frame. Pointers
// distinguish absent from zero so the fold only overwrites what the frame
// carries.
type updatePayload struct {
	FOP     *string `json:"fop"`
	FOPName *string `json:"fopName"`

	UIEvent     *string `json:"uiEvent"`
	FOPState    *string `json:"fopState"`
	Break       *bool   `json:"break"`
	BreakType   *string `json:"breakType"`
	Mode        *string `json:"mode"`
	SessionName *string `json:"sessionName"`
	GroupName   *string `json:"groupName"`
	GroupInfo   *string `json:"groupInfo"`

	CurrentAthleteKey  *domain.Key `json:"currentAthleteKey"`
	NextAthleteKey     *domain.Key `json:"nextAthleteKey"`
	PreviousAthleteKey *domain.Key `json:"previousAthleteKey"`

	SessionAthletes      jsonField `json:"sessionAthletes"`
	StartOrderKeys       jsonField `json:"startOrderKeys"`
	LiftingOrderKeys     jsonField `json:"liftingOrderKeys"`
	StartOrderAthletes   jsonField `json:"startOrderAthletes"`
	LiftingOrderAthletes jsonField `json:"liftingOrderAthletes"`
	Leaders              jsonField `json:"leaders"`
	Records              jsonField `json:"records"`
}

// knownUpdateKeys are excluded when folding leftover display fields into the
// snapshot's extra map.
var knownUpdateKeys = map[string]bool{
	"fop": true, "fopName": true, "uiEvent": true, "fopState": true,
	"break": true, "breakType": true, "mode": true, "sessionName": true,
	"groupName": true, "groupInfo": true, "currentAthleteKey": true,
	"nextAthleteKey": true, "previousAthleteKey": true,
	"sessionAthletes": true, "startOrderKeys": true, "liftingOrderKeys": true,
	"startOrderAthletes": true, "liftingOrderAthletes": true,
	"leaders": true, "records": true, "updateKey": true,
}

// resolveFOPName implements the fop || fopName || "A" rule.
func resolveFOPName(fop, fopName *string) string {
	if fop != nil && *fop != "" {
		return *fop
	}
	if fopName != nil && *fopName != "" {
		return *fopName
	}
	return "A"
}

// foldResult summarizes a folded update for event emission.
type foldResult struct {
	FOPName   string
	UIEvent   string
	BreakType string
	Version   uint64
}

// foldUpdate merges an update frame into the platform snapshot, rebuilds the
// denormalized views, and bumps the version counter.
func (h *Hub) foldUpdate(raw json.RawMessage) (foldResult, error) {
	var p updatePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return foldResult{}, err
	}
	var extra map[string]json.RawMessage
	_ = json.Unmarshal(raw, &extra)

	h.mu.Lock()
	defer h.mu.Unlock()

	fopName := resolveFOPName(p.FOP, p.FOPName)
	h.confirmedFOPs[fopName] = true
	f := h.fopState(fopName)

	setString(&f.UIEvent, p.UIEvent)
	setString(&f.State, p.FOPState)
	setBool(&f.Break, p.Break)
	setString(&f.BreakType, p.BreakType)
	setString(&f.Mode, p.Mode)
	setString(&f.GroupInfo, p.GroupInfo)
	if p.SessionName != nil {
		f.SessionName = *p.SessionName
	} else if p.GroupName != nil {
		f.SessionName = *p.GroupName
	}

	// A frame that does not name a current athlete clears any stale one.
	if p.CurrentAthleteKey != nil {
		f.CurrentAthleteKey = string(*p.CurrentAthleteKey)
	} else {
		f.CurrentAthleteKey = ""
	}
	if p.NextAthleteKey != nil {
		f.NextAthleteKey = string(*p.NextAthleteKey)
	}
	if p.PreviousAthleteKey != nil {
		f.PreviousAthleteKey = string(*p.PreviousAthleteKey)
	}

	if len(p.SessionAthletes) > 0 {
		var rawAthletes []json.RawMessage
		if err := json.Unmarshal(p.SessionAthletes, &rawAthletes); err != nil {
			h.logger.Warn("sessionAthletes unparsable", "fop", fopName, "error", err)
		} else {
			athletes := make([]domain.Athlete, 0, len(rawAthletes))
			for _, ra := range rawAthletes {
				a, aerr := h.normalizeRawAthlete(ra)
				if aerr != nil {
					h.logger.Warn("session athlete skipped", "fop", fopName, "error", aerr)
					continue
				}
				athletes = append(athletes, a)
			}
			f.SessionAthletes = athletes
		}
	}

	if len(p.StartOrderKeys) > 0 {
		f.StartOrderKeys = decodeOrderKeys(p.StartOrderKeys)
	}
	if len(p.LiftingOrderKeys) > 0 {
		f.LiftingOrderKeys = decodeOrderKeys(p.LiftingOrderKeys)
	}
	if len(p.Leaders) > 0 {
		f.Leaders = json.RawMessage(p.Leaders)
	}
	if len(p.Records) > 0 {
		f.Records = json.RawMessage(p.Records)
	}

	for k, v := range extra {
		if knownUpdateKeys[k] {
			continue
		}
		if f.Extra == nil {
			f.Extra = make(map[string]json.RawMessage)
		}
		f.Extra[k] = v
	}

	markLiveStatuses(f.SessionAthletes, f.CurrentAthleteKey, f.NextAthleteKey)
	f.StartOrderAthletes = h.resolveOrder(f, f.StartOrderKeys, p.StartOrderAthletes)
	f.LiftingOrderAthletes = h.resolveOrder(f, f.LiftingOrderKeys, p.LiftingOrderAthletes)

	now := h.now()
	f.LastUpdate = now
	f.LastDataUpdate = now
	f.Version++

	h.mergeSessionAthletes(f.SessionAthletes)

	uiEvent := ""
	if p.UIEvent != nil {
		uiEvent = *p.UIEvent
	}
	breakType := ""
	if p.BreakType != nil {
		breakType = *p.BreakType
	}
	return foldResult{FOPName: fopName, UIEvent: uiEvent, BreakType: breakType, Version: f.Version}, nil
}

func decodeOrderKeys(raw jsonField) []domain.OrderKey {
	var keys []domain.OrderKey
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil
	}
	return keys
}

// resolveOrder materializes an order-key list into athlete entries. A
// producer-supplied resolved list wins when present; otherwise keys resolve
// against the session athletes, then the database.
func (h *Hub) resolveOrder(f *domain.FOPState, keys []domain.OrderKey, provided jsonField) []domain.OrderEntry {
	if len(provided) > 0 {
		var rawEntries []json.RawMessage
		if err := json.Unmarshal(provided, &rawEntries); err == nil {
			entries := make([]domain.OrderEntry, 0, len(rawEntries))
			for _, re := range rawEntries {
				var spacer struct {
					IsSpacer bool `json:"isSpacer"`
				}
				if err := json.Unmarshal(re, &spacer); err == nil && spacer.IsSpacer {
					entries = append(entries, domain.OrderEntry{IsSpacer: true})
					continue
				}
				a, aerr := h.normalizeRawAthlete(re)
				if aerr != nil {
					continue
				}
				entries = append(entries, domain.OrderEntry{Athlete: &a})
			}
			return entries
		}
	}

	if len(keys) == 0 {
		return nil
	}
	bySession := make(map[string]*domain.Athlete, len(f.SessionAthletes))
	for i := range f.SessionAthletes {
		bySession[f.SessionAthletes[i].AthleteKey] = &f.SessionAthletes[i]
	}
	entries := make([]domain.OrderEntry, 0, len(keys))
	for _, k := range keys {
		if k.IsSpacer {
			entries = append(entries, domain.OrderEntry{IsSpacer: true})
			continue
		}
		if a, ok := bySession[k.AthleteKey]; ok {
			cp := *a
			entries = append(entries, domain.OrderEntry{Athlete: &cp})
			continue
		}
		if idx, ok := h.athleteIndex[k.AthleteKey]; ok && h.db != nil {
			cp := h.db.Athletes[idx]
			entries = append(entries, domain.OrderEntry{Athlete: &cp})
		}
	}
	return entries
}

// timerPayload carries athlete- and break-clock fields of a timer frame.
type timerPayload struct {
	FOP     *string `json:"fop"`
	FOPName *string `json:"fopName"`

	AthleteTimerEventType  *string `json:"athleteTimerEventType"`
	AthleteMillisRemaining *int64  `json:"athleteMillisRemaining"`
	AthleteStartTimeMillis *int64  `json:"athleteStartTimeMillis"`
	TimeAllowed            *int64  `json:"timeAllowed"`

	BreakTimerEventType  *string `json:"breakTimerEventType"`
	BreakMillisRemaining *int64  `json:"breakMillisRemaining"`
	BreakStartTimeMillis *int64  `json:"breakStartTimeMillis"`
}

// foldTimer updates the clock slices in place. Timer frames never touch
// lastDataUpdate or the version counter.
func (h *Hub) foldTimer(raw json.RawMessage) (fopName string, err error) {
	var p timerPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	fopName = resolveFOPName(p.FOP, p.FOPName)
	h.confirmedFOPs[fopName] = true
	f := h.fopState(fopName)

	if p.AthleteTimerEventType != nil {
		f.AthleteTimer.EventType = *p.AthleteTimerEventType
		setInt64(&f.AthleteTimer.MillisRemaining, p.AthleteMillisRemaining)
		setInt64(&f.AthleteTimer.StartTimeMillis, p.AthleteStartTimeMillis)
		setInt64(&f.AthleteTimer.TimeAllowed, p.TimeAllowed)
		// A starting athlete clock supersedes any lingering break reading.
		if *p.AthleteTimerEventType == domain.TimerStart {
			f.Break = false
			if f.BreakTimer.EventType == domain.TimerStart {
				f.BreakTimer.EventType = domain.TimerStop
			}
		}
	}

	if p.BreakTimerEventType != nil {
		if *p.BreakTimerEventType == domain.TimerPause {
			f.BreakTimer = domain.BreakTimer{}
		} else {
			f.BreakTimer.EventType = *p.BreakTimerEventType
			setInt64(&f.BreakTimer.MillisRemaining, p.BreakMillisRemaining)
			setInt64(&f.BreakTimer.StartTimeMillis, p.BreakStartTimeMillis)
			if *p.BreakTimerEventType == domain.TimerStart {
				f.Break = true
			}
		}
	}

	f.LastUpdate = h.now()
	return fopName, nil
}

// decisionPayload carries the referee-decision fields of a decision frame.
type decisionPayload struct {
	FOP     *string `json:"fop"`
	FOPName *string `json:"fopName"`

	DecisionEventType *string `json:"decisionEventType"`
	DecisionsVisible  *bool   `json:"decisionsVisible"`
	D1                *bool   `json:"d1"`
	D2                *bool   `json:"d2"`
	D3                *bool   `json:"d3"`
	Down              *bool   `json:"down"`
}

// foldDecision updates the decision slice only.
func (h *Hub) foldDecision(raw json.RawMessage) (fopName string, err error) {
	var p decisionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	fopName = resolveFOPName(p.FOP, p.FOPName)
	h.confirmedFOPs[fopName] = true
	f := h.fopState(fopName)

	if p.DecisionEventType != nil {
		f.Decision.EventType = *p.DecisionEventType
		if *p.DecisionEventType == domain.DecisionReset {
			f.Decision = domain.Decision{EventType: domain.DecisionReset}
		}
	}
	setBool(&f.Decision.DecisionsVisible, p.DecisionsVisible)
	if p.D1 != nil {
		f.Decision.D1 = p.D1
	}
	if p.D2 != nil {
		f.Decision.D2 = p.D2
	}
	if p.D3 != nil {
		f.Decision.D3 = p.D3
	}
	setBool(&f.Decision.Down, p.Down)
	if p.DecisionEventType != nil && *p.DecisionEventType == domain.DecisionDown {
		f.Decision.Down = true
	}

	f.LastUpdate = h.now()
	return fopName, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setInt64(dst *int64, src *int64) {
	if src != nil {
		*dst = *src
	}
}
