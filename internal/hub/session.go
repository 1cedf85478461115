package hub

import (
	"github.com/owlcms/tracker-core/internal/domain"
)

// trackSessionUpdate advances the per-FOP done/active machine for an update
// frame and returns the lifecycle event to emit, if the state edged.
func (h *Hub) trackSessionUpdate(fopName, uiEvent, breakType string) *domain.Event {
	done := uiEvent == domain.UIEventGroupDone || breakType == domain.BreakGroupDone

	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.sessionStatus(fopName)
	s.LastActivity = h.now()
	if f, ok := h.fops[fopName]; ok {
		s.SessionName = f.SessionName
	}

	if done && !s.IsDone {
		s.IsDone = true
		return &domain.Event{Kind: domain.EventSessionDone, FOPName: fopName, SessionName: s.SessionName}
	}
	if !done && s.IsDone {
		s.IsDone = false
		return &domain.Event{Kind: domain.EventSessionReopened, FOPName: fopName, SessionName: s.SessionName}
	}
	return nil
}

// trackSessionActivity marks timer/decision traffic, which always reopens a
// done session.
func (h *Hub) trackSessionActivity(fopName string) *domain.Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.sessionStatus(fopName)
	s.LastActivity = h.now()
	if !s.IsDone {
		return nil
	}
	s.IsDone = false
	return &domain.Event{Kind: domain.EventSessionReopened, FOPName: fopName, SessionName: s.SessionName}
}
