package hub

import (
	"github.com/owlcms/tracker-core/internal/domain"
	"github.com/owlcms/tracker-core/internal/resources"
)

// GetDatabaseState returns a copy of the full snapshot, nil before the
// first ingest.
func (h *Hub) GetDatabaseState() *domain.DatabaseState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cloneDatabase()
}

// GetFopUpdate returns a copy of the platform snapshot, nil when unknown.
func (h *Hub) GetFopUpdate(fopName string) *domain.FOPState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if f, ok := h.fops[fopName]; ok {
		return f.Clone()
	}
	return nil
}

// GetSessionAthletes returns the platform's normalized session athletes.
// With includeSpacer, start-order category spacers are interleaved.
func (h *Hub) GetSessionAthletes(fopName string, includeSpacer bool) []domain.OrderEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	f, ok := h.fops[fopName]
	if !ok {
		return nil
	}
	entries := make([]domain.OrderEntry, 0, len(f.SessionAthletes))
	prevCategory := ""
	for i := range f.SessionAthletes {
		a := f.SessionAthletes[i]
		if includeSpacer && i > 0 && a.CategoryCode != prevCategory {
			entries = append(entries, domain.OrderEntry{IsSpacer: true})
		}
		prevCategory = a.CategoryCode
		cp := a
		entries = append(entries, domain.OrderEntry{Athlete: &cp})
	}
	return entries
}

// GetStartOrderEntries returns the resolved start order. With includeSpacer,
// category boundaries are marked; spacers already present are preserved.
func (h *Hub) GetStartOrderEntries(fopName string, includeSpacer bool) []domain.OrderEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	f, ok := h.fops[fopName]
	if !ok {
		return nil
	}
	return filterOrder(f.StartOrderAthletes, includeSpacer, func(prev, cur *domain.Athlete) bool {
		return prev != nil && cur != nil && prev.CategoryCode != cur.CategoryCode
	})
}

// GetLiftingOrderEntries returns the resolved lifting order. With
// includeSpacer, a marker separates the snatch and clean-and-jerk phases.
func (h *Hub) GetLiftingOrderEntries(fopName string, includeSpacer bool) []domain.OrderEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	f, ok := h.fops[fopName]
	if !ok {
		return nil
	}
	return filterOrder(f.LiftingOrderAthletes, includeSpacer, func(prev, cur *domain.Athlete) bool {
		if prev == nil || cur == nil {
			return false
		}
		prevLift, pok := currentLiftOf(prev)
		curLift, cok := currentLiftOf(cur)
		return pok && cok && prevLift.LiftType != curLift.LiftType
	})
}

// filterOrder strips or synthesizes spacers over a resolved order list.
func filterOrder(entries []domain.OrderEntry, includeSpacer bool, boundary func(prev, cur *domain.Athlete) bool) []domain.OrderEntry {
	out := make([]domain.OrderEntry, 0, len(entries))
	var prev *domain.Athlete
	sawSpacer := false
	for _, e := range entries {
		if e.IsSpacer {
			if includeSpacer {
				out = append(out, domain.OrderEntry{IsSpacer: true})
				sawSpacer = true
			}
			continue
		}
		if includeSpacer && !sawSpacer && prev != nil && boundary(prev, e.Athlete) {
			out = append(out, domain.OrderEntry{IsSpacer: true})
		}
		sawSpacer = false
		cp := *e.Athlete
		out = append(out, domain.OrderEntry{Athlete: &cp})
		prev = e.Athlete
	}
	return out
}

// GetCurrentAthlete returns the athlete on the platform, enriched with the
// live attempt, or nil.
func (h *Hub) GetCurrentAthlete(fopName string) *domain.EnrichedAthlete {
	return h.neighborAthlete(fopName, 0)
}

// GetNextAthlete returns the athlete called after the current one, or nil.
func (h *Hub) GetNextAthlete(fopName string) *domain.EnrichedAthlete {
	return h.neighborAthlete(fopName, 1)
}

// GetPreviousAthlete returns the athlete called before the current one, or
// nil.
func (h *Hub) GetPreviousAthlete(fopName string) *domain.EnrichedAthlete {
	return h.neighborAthlete(fopName, -1)
}

// neighborAthlete resolves the current athlete and its lifting-order
// neighbors: explicit keys win, then position in the despacered order.
func (h *Hub) neighborAthlete(fopName string, offset int) *domain.EnrichedAthlete {
	h.mu.RLock()
	defer h.mu.RUnlock()

	f, ok := h.fops[fopName]
	if !ok {
		return nil
	}

	if offset == 1 && f.NextAthleteKey != "" {
		return h.enrich(f, f.NextAthleteKey)
	}
	if offset == -1 && f.PreviousAthleteKey != "" {
		return h.enrich(f, f.PreviousAthleteKey)
	}
	if f.CurrentAthleteKey == "" {
		return nil
	}
	if offset == 0 {
		return h.enrich(f, f.CurrentAthleteKey)
	}

	order := despaceredKeys(f)
	for i, k := range order {
		if k == f.CurrentAthleteKey {
			j := i + offset
			if j < 0 || j >= len(order) {
				return nil
			}
			return h.enrich(f, order[j])
		}
	}
	return nil
}

func despaceredKeys(f *domain.FOPState) []string {
	keys := make([]string, 0, len(f.LiftingOrderKeys))
	for _, k := range f.LiftingOrderKeys {
		if !k.IsSpacer && k.AthleteKey != "" {
			keys = append(keys, k.AthleteKey)
		}
	}
	return keys
}

// enrich finds the athlete by key (session first, then database) and
// annotates the live attempt. Callers hold mu.
func (h *Hub) enrich(f *domain.FOPState, key string) *domain.EnrichedAthlete {
	var found *domain.Athlete
	for i := range f.SessionAthletes {
		if f.SessionAthletes[i].AthleteKey == key {
			found = &f.SessionAthletes[i]
			break
		}
	}
	if found == nil && h.db != nil {
		if idx, ok := h.athleteIndex[key]; ok {
			found = &h.db.Athletes[idx]
		}
	}
	if found == nil {
		return nil
	}

	cp := *found
	enriched := &domain.EnrichedAthlete{Athlete: cp}
	if lift, ok := currentLiftOf(&cp); ok {
		enriched.CurrentLift = lift
	}
	return enriched
}

// GetTranslations returns the locale map after fallback resolution.
func (h *Hub) GetTranslations(locale string) map[string]string {
	return h.trans.Get(locale)
}

// GetSessionStatus returns the platform's session tracker state.
func (h *Hub) GetSessionStatus(fopName string) domain.SessionStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if s, ok := h.sessions[fopName]; ok {
		return *s
	}
	return domain.SessionStatus{}
}

// IsSessionDone reports whether the platform's session has ended.
func (h *Hub) IsSessionDone(fopName string) bool {
	return h.GetSessionStatus(fopName).IsDone
}

// GetTeamNameById resolves a team id, "" when unknown.
func (h *Hub) GetTeamNameById(teamID int) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if t, ok := h.teamsByID[teamID]; ok {
		return t.Name
	}
	return ""
}

// IsReady reports whether both the database and translations have arrived.
func (h *Hub) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.databaseReady && h.translationsReady
}

// GetFopStateVersion returns the platform's monotonic version counter,
// usable as a cache key.
func (h *Hub) GetFopStateVersion(fopName string) uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if f, ok := h.fops[fopName]; ok {
		return f.Version
	}
	return 0
}

// GetCategoryToAgeGroupMap maps computed category codes to their age groups,
// memoized until the database checksum changes.
func (h *Hub) GetCategoryToAgeGroupMap() map[string]domain.AgeGroup {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.db == nil {
		return map[string]domain.AgeGroup{}
	}
	if h.catAgeGroupMemo != nil && h.catAgeGroupChecksum == h.db.Checksum {
		return h.catAgeGroupMemo
	}

	memo := make(map[string]domain.AgeGroup)
	for _, ag := range h.db.AgeGroups {
		for _, c := range ag.Categories {
			memo[domain.ComputedCode(ag.Code, c)] = ag
		}
	}
	h.catAgeGroupMemo = memo
	h.catAgeGroupChecksum = h.db.Checksum
	return memo
}

// GetAvailableFOPs lists every platform named by the database or seen in a
// frame.
func (h *Hub) GetAvailableFOPs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.confirmedFOPs))
	for name := range h.confirmedFOPs {
		out = append(out, name)
	}
	return out
}

// GetDisplayMode computes the "what to show" reduction for the platform.
func (h *Hub) GetDisplayMode(fopName string) domain.DisplayMode {
	h.mu.RLock()
	defer h.mu.RUnlock()
	f := h.fops[fopName]
	done := false
	if s, ok := h.sessions[fopName]; ok {
		done = s.IsDone
	}
	return reduceDisplayMode(f, done)
}

// GetBreakDisplayText returns the break panel headline for the locale, ""
// when a countdown should show instead.
func (h *Hub) GetBreakDisplayText(fopName, locale string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return breakDisplayText(h.fops[fopName], locale)
}

// GetLocalFilesDir returns the resource directory root.
func (h *Hub) GetLocalFilesDir() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.localFilesDir
}

// SetLocalFilesDir repoints the resource directory.
func (h *Hub) SetLocalFilesDir(dir string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.localFilesDir = dir
	h.extractor.SetBaseDir(dir)
	h.locator = resources.NewLocator(dir, h.localURLPrefix)
}

// GetLocalUrlPrefix returns the consumer-facing URL prefix.
func (h *Hub) GetLocalUrlPrefix() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.localURLPrefix
}

// SetLocalUrlPrefix changes the consumer-facing URL prefix.
func (h *Hub) SetLocalUrlPrefix(prefix string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.localURLPrefix = prefix
	h.locator = resources.NewLocator(h.localFilesDir, prefix)
}

// Locator exposes the URL probing helpers over the current directory and
// prefix.
func (h *Hub) Locator() *resources.Locator {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.locator
}
