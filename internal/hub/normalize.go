package hub

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/owlcms/tracker-core/internal/domain"
	"github.com/owlcms/tracker-core/internal/format"
)

// normalizeRawAthlete decodes one raw athlete record, tolerating the
// {athlete, displayInfo} wrapper (displayInfo wins on overlap), and fills
// the derived display fields. Callers hold mu for index access.
func (h *Hub) normalizeRawAthlete(raw json.RawMessage) (domain.Athlete, error) {
	var wrapper struct {
		Athlete     json.RawMessage `json:"athlete"`
		DisplayInfo json.RawMessage `json:"displayInfo"`
	}
	var a domain.Athlete

	if err := json.Unmarshal(raw, &wrapper); err == nil && len(wrapper.Athlete) > 0 {
		if err := json.Unmarshal(wrapper.Athlete, &a); err != nil {
			return domain.Athlete{}, fmt.Errorf("athlete record: %w", err)
		}
		if len(wrapper.DisplayInfo) > 0 {
			// Sequential decode into the same struct: displayInfo fields
			// overwrite only where present.
			if err := json.Unmarshal(wrapper.DisplayInfo, &a); err != nil {
				return domain.Athlete{}, fmt.Errorf("athlete displayInfo: %w", err)
			}
		}
	} else if err := json.Unmarshal(raw, &a); err != nil {
		return domain.Athlete{}, fmt.Errorf("athlete record: %w", err)
	}

	h.deriveAthlete(&a)
	return a, nil
}

// deriveAthlete computes the display fields the producer did not supply.
// Normalizing an already-normalized athlete leaves it unchanged.
func (h *Hub) deriveAthlete(a *domain.Athlete) {
	if a.AthleteKey == "" {
		a.AthleteKey = string(a.Key)
	}
	if a.Key == "" {
		a.Key = domain.Key(a.AthleteKey)
	}

	if a.FullName == "" {
		a.FullName = buildFullName(a.LastName, a.FirstName)
	}
	if a.TeamName == "" && a.Team != nil && h.teamsByID != nil {
		if team, ok := h.teamsByID[*a.Team]; ok {
			a.TeamName = team.Name
		}
	}
	if a.Category == "" && a.CategoryCode != "" {
		if entry, ok := h.categoryByCode[a.CategoryCode]; ok {
			a.Category = entry.Category.CategoryName
		} else {
			a.Category = format.FormatCategoryDisplay(a.CategoryCode)
		}
	}
	if a.YearOfBirth == "" && len(a.FullBirthDate) >= 4 {
		a.YearOfBirth = a.FullBirthDate[:4]
	}

	a.SAttempts = normalizeAttempts(a.SAttempts, a.SnatchColumns())
	a.CAttempts = normalizeAttempts(a.CAttempts, a.CleanJerkColumns())

	if a.BestSnatch == "" {
		a.BestSnatch = bestLift(a.SAttempts)
	}
	if a.BestCleanJerk == "" {
		a.BestCleanJerk = bestLift(a.CAttempts)
	}
	if a.Total == "" {
		a.Total = "-"
	}
}

func buildFullName(last, first string) string {
	last = strings.TrimSpace(last)
	first = strings.TrimSpace(first)
	switch {
	case last == "" && first == "":
		return ""
	case last == "":
		return first
	case first == "":
		return strings.ToUpper(last)
	default:
		return strings.ToUpper(last) + ", " + first
	}
}

// normalizeAttempts produces exactly three normalized cells. Cells supplied
// by the producer win; missing cells are rebuilt from the raw attempt
// columns.
func normalizeAttempts(cells []domain.AttemptCell, columns [3]domain.AttemptColumns) []domain.AttemptCell {
	out := make([]domain.AttemptCell, 3)
	for i := 0; i < 3; i++ {
		if i < len(cells) {
			out[i] = domain.NewAttemptCell(cells[i].Status())
			continue
		}
		out[i] = cellFromColumns(columns[i])
	}
	return out
}

// cellFromColumns renders one attempt from its weight-request chain: an
// actual lift shows its signed result, a pending declaration shows as a
// request, anything else is empty.
func cellFromColumns(c domain.AttemptColumns) domain.AttemptCell {
	if c.ActualLift.Set {
		v := c.ActualLift.Value
		switch {
		case v > 0:
			return domain.NewAttemptCell(domain.AttemptStatus{StringValue: formatWeight(v), LiftStatus: domain.LiftGood})
		case v < 0:
			return domain.NewAttemptCell(domain.AttemptStatus{StringValue: formatWeight(-v), LiftStatus: domain.LiftBad})
		default:
			return domain.NewAttemptCell(domain.EmptyAttempt())
		}
	}
	if w, ok := c.Requested(); ok {
		return domain.NewAttemptCell(domain.AttemptStatus{StringValue: formatWeight(w), LiftStatus: domain.LiftRequest})
	}
	return domain.NewAttemptCell(domain.EmptyAttempt())
}

// bestLift returns the heaviest good attempt as a display string, "-" when
// none succeeded.
func bestLift(cells []domain.AttemptCell) string {
	best := 0.0
	found := false
	for _, c := range cells {
		st := c.Status()
		if st.LiftStatus != domain.LiftGood {
			continue
		}
		v := format.ParseFormattedNumber(st.StringValue)
		if v > best {
			best = v
			found = true
		}
	}
	if !found {
		return "-"
	}
	return formatWeight(best)
}

func formatWeight(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
}

// currentLiftOf determines the live attempt for an athlete: the first
// unattempted snatch while any remain, then the first unattempted clean and
// jerk. Weight resolution follows change2 > change1 > declaration >
// automatic progression.
func currentLiftOf(a *domain.Athlete) (domain.CurrentLift, bool) {
	snatch := a.SnatchColumns()
	for i, c := range snatch {
		if c.ActualLift.Set {
			continue
		}
		w, _ := c.Requested()
		return domain.CurrentLift{LiftType: domain.LiftTypeSnatch, Attempt: i + 1, Weight: w}, true
	}
	cj := a.CleanJerkColumns()
	for i, c := range cj {
		if c.ActualLift.Set {
			continue
		}
		w, _ := c.Requested()
		return domain.CurrentLift{LiftType: domain.LiftTypeCleanJerk, Attempt: i + 1, Weight: w}, true
	}
	return domain.CurrentLift{}, false
}

// markLiveStatuses stamps the current and next athletes' classnames where
// the producer did not already provide them. Attempt cells keep their
// request status; scoreboards derive highlighting from the classname.
func markLiveStatuses(athletes []domain.Athlete, currentKey, nextKey string) {
	for i := range athletes {
		a := &athletes[i]
		switch a.AthleteKey {
		case "":
		case currentKey:
			if a.Classname == "" {
				a.Classname = "current"
			}
		case nextKey:
			if a.Classname == "" {
				a.Classname = "next"
			}
		}
	}
}
