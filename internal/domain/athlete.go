package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// LiftStatus is the closed set of states an attempt cell can display.
type LiftStatus string

const (
	LiftGood    LiftStatus = "good"
	LiftBad     LiftStatus = "bad"
	LiftCurrent LiftStatus = "current"
	LiftNext    LiftStatus = "next"
	LiftRequest LiftStatus = "request"
	LiftEmpty   LiftStatus = "empty"
)

// AttemptStatus is the normalized display form of one attempt.
type AttemptStatus struct {
	StringValue string     `json:"stringValue"`
	LiftStatus  LiftStatus `json:"liftStatus"`
}

// EmptyAttempt is the placeholder shown for an unattempted, undeclared lift.
func EmptyAttempt() AttemptStatus {
	return AttemptStatus{StringValue: "-", LiftStatus: LiftEmpty}
}

// AttemptCell accepts every wire shape an attempt arrives in: the normalized
// {stringValue, liftStatus} object, the {value, status} object, a bare
// number (negative means failed), a parenthesized string, or null.
type AttemptCell struct {
	status  AttemptStatus
	present bool
}

// NewAttemptCell builds a cell already in normalized form.
func NewAttemptCell(s AttemptStatus) AttemptCell {
	return AttemptCell{status: s, present: true}
}

// Status returns the normalized form; absent cells normalize to empty.
func (c AttemptCell) Status() AttemptStatus {
	if !c.present {
		return EmptyAttempt()
	}
	return c.status
}

func (c AttemptCell) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Status())
}

func (c *AttemptCell) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*c = AttemptCell{}
		return nil
	}
	switch trimmed[0] {
	case '{':
		var obj struct {
			StringValue *string     `json:"stringValue"`
			LiftStatus  *LiftStatus `json:"liftStatus"`
			Value       *FlexFloat  `json:"value"`
			Status      *LiftStatus `json:"status"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if obj.StringValue != nil {
			st := LiftRequest
			if obj.LiftStatus != nil {
				st = *obj.LiftStatus
			} else if *obj.StringValue == "-" || *obj.StringValue == "" {
				st = LiftEmpty
			}
			*c = NewAttemptCell(AttemptStatus{StringValue: *obj.StringValue, LiftStatus: st})
			return nil
		}
		if obj.Value == nil || !obj.Value.Set {
			*c = NewAttemptCell(EmptyAttempt())
			return nil
		}
		st := LiftRequest
		if obj.Status != nil && *obj.Status != "" {
			st = *obj.Status
		}
		*c = NewAttemptCell(AttemptStatus{StringValue: formatLift(obj.Value.Value), LiftStatus: st})
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = cellFromString(s)
		return nil
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*c = cellFromNumber(n)
		return nil
	}
}

func cellFromNumber(n float64) AttemptCell {
	switch {
	case n > 0:
		return NewAttemptCell(AttemptStatus{StringValue: formatLift(n), LiftStatus: LiftGood})
	case n < 0:
		return NewAttemptCell(AttemptStatus{StringValue: formatLift(-n), LiftStatus: LiftBad})
	default:
		return NewAttemptCell(EmptyAttempt())
	}
}

func cellFromString(s string) AttemptCell {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return NewAttemptCell(EmptyAttempt())
	}
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		inner := strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
		return NewAttemptCell(AttemptStatus{StringValue: inner, LiftStatus: LiftBad})
	}
	return NewAttemptCell(AttemptStatus{StringValue: s, LiftStatus: LiftRequest})
}

func formatLift(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FlexFloat decodes a number that producers occasionally quote as a string.
// Set is false when the wire value was null or an empty string.
type FlexFloat struct {
	Value float64
	Set   bool
}

func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*f = FlexFloat{}
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" || s == "-" {
			*f = FlexFloat{}
			return nil
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
		if err != nil {
			*f = FlexFloat{}
			return nil
		}
		*f = FlexFloat{Value: v, Set: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FlexFloat{Value: v, Set: true}
	return nil
}

// Display is a value rendered as-is on scoreboards; numbers and strings both
// appear on the wire.
type Display string

func (d Display) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(d))
}

func (d *Display) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*d = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = Display(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*d = Display(formatLift(n))
	return nil
}

// Participation is an athlete's membership in one category with the ranks
// earned there.
type Participation struct {
	CategoryCode  string `json:"categoryCode,omitempty"`
	CategoryName  string `json:"categoryName,omitempty"`
	SnatchRank    int    `json:"snatchRank,omitempty"`
	CleanJerkRank int    `json:"cleanJerkRank,omitempty"`
	TotalRank     int    `json:"totalRank,omitempty"`
	TeamMember    bool   `json:"teamMember,omitempty"`
}

// Athlete is the flattened wire + derived athlete record. Raw attempt
// columns keep their upstream names; the normalizer fills the derived
// fields when the producer did not.
type Athlete struct {
	Key        Key    `json:"key,omitempty"`
	AthleteKey string `json:"athleteKey,omitempty"`

	FirstName     string `json:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
	FullName      string `json:"fullName,omitempty"`
	Gender        string `json:"gender,omitempty"`
	FullBirthDate string `json:"fullBirthDate,omitempty"`
	YearOfBirth   string `json:"yearOfBirth,omitempty"`

	Team         *int   `json:"team,omitempty"`
	TeamName     string `json:"teamName,omitempty"`
	CategoryCode string `json:"categoryCode,omitempty"`
	Category     string `json:"category,omitempty"`
	Group        string `json:"group,omitempty"`
	StartNumber  int    `json:"startNumber,omitempty"`
	LotNumber    int    `json:"lotNumber,omitempty"`

	BodyWeight FlexFloat `json:"bodyWeight,omitempty"`

	Snatch1Declaration          FlexFloat `json:"snatch1Declaration,omitempty"`
	Snatch1Change1              FlexFloat `json:"snatch1Change1,omitempty"`
	Snatch1Change2              FlexFloat `json:"snatch1Change2,omitempty"`
	Snatch1ActualLift           FlexFloat `json:"snatch1ActualLift,omitempty"`
	Snatch1AutomaticProgression FlexFloat `json:"snatch1AutomaticProgression,omitempty"`
	Snatch2Declaration          FlexFloat `json:"snatch2Declaration,omitempty"`
	Snatch2Change1              FlexFloat `json:"snatch2Change1,omitempty"`
	Snatch2Change2              FlexFloat `json:"snatch2Change2,omitempty"`
	Snatch2ActualLift           FlexFloat `json:"snatch2ActualLift,omitempty"`
	Snatch2AutomaticProgression FlexFloat `json:"snatch2AutomaticProgression,omitempty"`
	Snatch3Declaration          FlexFloat `json:"snatch3Declaration,omitempty"`
	Snatch3Change1              FlexFloat `json:"snatch3Change1,omitempty"`
	Snatch3Change2              FlexFloat `json:"snatch3Change2,omitempty"`
	Snatch3ActualLift           FlexFloat `json:"snatch3ActualLift,omitempty"`
	Snatch3AutomaticProgression FlexFloat `json:"snatch3AutomaticProgression,omitempty"`

	CleanJerk1Declaration          FlexFloat `json:"cleanJerk1Declaration,omitempty"`
	CleanJerk1Change1              FlexFloat `json:"cleanJerk1Change1,omitempty"`
	CleanJerk1Change2              FlexFloat `json:"cleanJerk1Change2,omitempty"`
	CleanJerk1ActualLift           FlexFloat `json:"cleanJerk1ActualLift,omitempty"`
	CleanJerk1AutomaticProgression FlexFloat `json:"cleanJerk1AutomaticProgression,omitempty"`
	CleanJerk2Declaration          FlexFloat `json:"cleanJerk2Declaration,omitempty"`
	CleanJerk2Change1              FlexFloat `json:"cleanJerk2Change1,omitempty"`
	CleanJerk2Change2              FlexFloat `json:"cleanJerk2Change2,omitempty"`
	CleanJerk2ActualLift           FlexFloat `json:"cleanJerk2ActualLift,omitempty"`
	CleanJerk2AutomaticProgression FlexFloat `json:"cleanJerk2AutomaticProgression,omitempty"`
	CleanJerk3Declaration          FlexFloat `json:"cleanJerk3Declaration,omitempty"`
	CleanJerk3Change1              FlexFloat `json:"cleanJerk3Change1,omitempty"`
	CleanJerk3Change2              FlexFloat `json:"cleanJerk3Change2,omitempty"`
	CleanJerk3ActualLift           FlexFloat `json:"cleanJerk3ActualLift,omitempty"`
	CleanJerk3AutomaticProgression FlexFloat `json:"cleanJerk3AutomaticProgression,omitempty"`

	SAttempts []AttemptCell `json:"sattempts,omitempty"`
	CAttempts []AttemptCell `json:"cattempts,omitempty"`

	BestSnatch    string `json:"bestSnatch,omitempty"`
	BestCleanJerk string `json:"bestCleanJerk,omitempty"`

	Total    Display `json:"total,omitempty"`
	Sinclair Display `json:"sinclair,omitempty"`

	SnatchRank    int `json:"snatchRank,omitempty"`
	CleanJerkRank int `json:"cleanJerkRank,omitempty"`
	TotalRank     int `json:"totalRank,omitempty"`

	Participations []Participation `json:"participations,omitempty"`

	Classname string `json:"classname,omitempty"`
	Flag      string `json:"flagURL,omitempty"`
}

// AttemptColumns exposes one attempt's weight-request chain.
type AttemptColumns struct {
	Declaration          FlexFloat
	Change1              FlexFloat
	Change2              FlexFloat
	ActualLift           FlexFloat
	AutomaticProgression FlexFloat
}

// SnatchColumns returns the three snatch attempts in order.
func (a *Athlete) SnatchColumns() [3]AttemptColumns {
	return [3]AttemptColumns{
		{a.Snatch1Declaration, a.Snatch1Change1, a.Snatch1Change2, a.Snatch1ActualLift, a.Snatch1AutomaticProgression},
		{a.Snatch2Declaration, a.Snatch2Change1, a.Snatch2Change2, a.Snatch2ActualLift, a.Snatch2AutomaticProgression},
		{a.Snatch3Declaration, a.Snatch3Change1, a.Snatch3Change2, a.Snatch3ActualLift, a.Snatch3AutomaticProgression},
	}
}

// CleanJerkColumns returns the three clean-and-jerk attempts in order.
func (a *Athlete) CleanJerkColumns() [3]AttemptColumns {
	return [3]AttemptColumns{
		{a.CleanJerk1Declaration, a.CleanJerk1Change1, a.CleanJerk1Change2, a.CleanJerk1ActualLift, a.CleanJerk1AutomaticProgression},
		{a.CleanJerk2Declaration, a.CleanJerk2Change1, a.CleanJerk2Change2, a.CleanJerk2ActualLift, a.CleanJerk2AutomaticProgression},
		{a.CleanJerk3Declaration, a.CleanJerk3Change1, a.CleanJerk3Change2, a.CleanJerk3ActualLift, a.CleanJerk3AutomaticProgression},
	}
}

// Requested resolves the weight currently requested for the attempt.
// Change2 wins over change1, which wins over the declaration, which wins
// over the automatic progression.
func (c AttemptColumns) Requested() (float64, bool) {
	for _, f := range []FlexFloat{c.Change2, c.Change1, c.Declaration, c.AutomaticProgression} {
		if f.Set {
			return f.Value, true
		}
	}
	return 0, false
}

// Declared reports whether any weight request exists for the attempt.
func (c AttemptColumns) Declared() bool {
	_, ok := c.Requested()
	return ok
}
