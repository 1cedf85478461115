package hub

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/owlcms/tracker-core/internal/domain"
)

// databasePayload is the wire shape of a full snapshot, before athlete
// normalization.
type databasePayload struct {
	Competition domain.Competition `json:"competition"`
	Athletes    []json.RawMessage  `json:"athletes"`
	Teams       []domain.Team      `json:"teams"`
	AgeGroups   []domain.AgeGroup  `json:"ageGroups"`
	Records     []domain.Record    `json:"records"`
	Checksum    string             `json:"databaseChecksum"`
}

// decodeDatabasePayload handles both the {database:{...}} wrapper and the
// flat form.
func decodeDatabasePayload(raw json.RawMessage) (databasePayload, error) {
	var wrapper struct {
		Database json.RawMessage `json:"database"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil && len(wrapper.Database) > 0 {
		raw = wrapper.Database
	}
	var payload databasePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return databasePayload{}, fmt.Errorf("database payload: %w", err)
	}
	return payload, nil
}

func (p databasePayload) empty() bool {
	return len(p.Athletes) == 0 && len(p.Teams) == 0 && len(p.AgeGroups) == 0 &&
		len(p.Competition.FOPs) == 0 && len(p.Competition.Platforms) == 0
}

// assembleDatabase builds and commits a new database snapshot. It returns
// whether the snapshot replaced state (false on checksum dedupe).
func (h *Hub) assembleDatabase(raw json.RawMessage) (changed bool, err error) {
	payload, err := decodeDatabasePayload(raw)
	if err != nil {
		return false, err
	}

	checksum := payload.Checksum
	if checksum == "" {
		sum := sha256.Sum256(raw)
		checksum = hex.EncodeToString(sum[:])
	}

	h.mu.Lock()
	if h.db != nil && h.db.Initialized && h.db.Checksum == checksum {
		h.mu.Unlock()
		return false, nil
	}

	teamsByID := make(map[int]domain.Team, len(payload.Teams))
	for _, t := range payload.Teams {
		teamsByID[t.ID] = t
	}

	categoryByCode := make(map[string]categoryEntry)
	for _, ag := range payload.AgeGroups {
		for _, c := range ag.Categories {
			categoryByCode[domain.ComputedCode(ag.Code, c)] = categoryEntry{AgeGroupCode: ag.Code, Category: c}
		}
	}

	// Indexes must be in place before normalization resolves team and
	// category names.
	h.teamsByID = teamsByID
	h.categoryByCode = categoryByCode

	athletes := make([]domain.Athlete, 0, len(payload.Athletes))
	index := make(map[string]int, len(payload.Athletes))
	for _, rawAthlete := range payload.Athletes {
		a, aerr := h.normalizeRawAthlete(rawAthlete)
		if aerr != nil {
			h.logger.Warn("athlete record skipped", "error", aerr)
			continue
		}
		if _, dup := index[a.AthleteKey]; dup {
			h.logger.Warn("duplicate athlete key skipped", "key", a.AthleteKey)
			continue
		}
		index[a.AthleteKey] = len(athletes)
		athletes = append(athletes, a)
	}

	db := &domain.DatabaseState{
		Competition: payload.Competition,
		Athletes:    athletes,
		Teams:       payload.Teams,
		AgeGroups:   payload.AgeGroups,
		Records:     payload.Records,
		Checksum:    checksum,
		LastUpdate:  h.now(),
		Initialized: true,
	}

	h.db = db
	h.athleteIndex = index
	h.catAgeGroupMemo = nil
	h.catAgeGroupChecksum = ""

	for _, name := range h.databaseFOPs(payload.Competition) {
		h.confirmedFOPs[name] = true
		_ = h.fopState(name)
	}

	// A database change invalidates every denormalized view.
	for _, f := range h.fops {
		f.Version++
		f.LastDataUpdate = h.now()
	}

	h.databaseReady = len(athletes) > 0
	h.mu.Unlock()
	return true, nil
}

// databaseFOPs extracts the platform list, falling back to a singleton "A".
func (h *Hub) databaseFOPs(c domain.Competition) []string {
	if len(c.FOPs) > 0 {
		return c.FOPs
	}
	if len(c.Platforms) > 0 {
		return c.Platforms
	}
	return []string{"A"}
}

// mergeSessionAthletes folds session athletes back into the database between
// full refreshes, creating or updating by key. Callers hold mu.
func (h *Hub) mergeSessionAthletes(athletes []domain.Athlete) {
	if h.db == nil {
		return
	}
	for _, a := range athletes {
		if a.AthleteKey == "" {
			continue
		}
		if idx, ok := h.athleteIndex[a.AthleteKey]; ok {
			h.db.Athletes[idx] = a
		} else {
			h.athleteIndex[a.AthleteKey] = len(h.db.Athletes)
			h.db.Athletes = append(h.db.Athletes, a)
		}
	}
	h.db.LastUpdate = h.now()
}

// cloneDatabase returns a reader-safe copy of the snapshot. Callers hold mu
// (read side suffices).
func (h *Hub) cloneDatabase() *domain.DatabaseState {
	if h.db == nil {
		return nil
	}
	cp := *h.db
	cp.Athletes = append([]domain.Athlete(nil), h.db.Athletes...)
	cp.Teams = append([]domain.Team(nil), h.db.Teams...)
	cp.AgeGroups = append([]domain.AgeGroup(nil), h.db.AgeGroups...)
	cp.Records = append([]domain.Record(nil), h.db.Records...)
	return &cp
}
