package hub

import (
	"time"

	"github.com/owlcms/tracker-core/internal/protocol"
)

// databaseRequestDamp suppresses repeated database re-requests so a burst of
// data frames cannot trigger a 428 storm.
const databaseRequestDamp = 1000 * time.Millisecond

// missingPreconditions lists the frame types the producer must resend before
// the hub considers itself complete. Callers hold mu.
func (h *Hub) missingPreconditions() []string {
	var missing []string
	if h.db == nil || len(h.db.Athletes) == 0 {
		missing = append(missing, protocol.TypeDatabase)
	}
	if h.trans.Empty() {
		missing = append(missing, protocol.TypeTranslationsZip)
	}
	return missing
}

// negotiatePreconditions inspects required preconditions after a data frame
// has been merged. It returns nil when nothing is missing, a 428 listing the
// gaps, or a 202 while a requested database is already in flight.
func (h *Hub) negotiatePreconditions() *protocol.Response {
	h.mu.Lock()
	defer h.mu.Unlock()

	missing := h.missingPreconditions()
	if len(missing) == 0 {
		return nil
	}

	wantsDatabase := false
	for _, m := range missing {
		if m == protocol.TypeDatabase {
			wantsDatabase = true
		}
	}
	now := h.now()
	if wantsDatabase && !h.lastDatabaseRequest.IsZero() && now.Sub(h.lastDatabaseRequest) < databaseRequestDamp {
		resp := protocol.WaitingForDatabase()
		return &resp
	}
	if wantsDatabase {
		h.lastDatabaseRequest = now
	}
	resp := protocol.PreconditionsRequired(protocol.ReasonMissingPreconditions, missing)
	return &resp
}

// RequestResources fields plugin-initiated precondition requests: the
// registered transport callback forwards a 428 to the producer. Without an
// active connection the call is a logged no-op.
func (h *Hub) RequestResources(kinds []string) {
	h.mu.RLock()
	fn := h.requestResourcesFn
	h.mu.RUnlock()

	if fn == nil {
		h.logger.Info("resource request ignored, no producer connected", "missing", kinds)
		return
	}
	if err := fn(kinds); err != nil {
		h.logger.Warn("resource request failed", "missing", kinds, "error", err)
	}
}
