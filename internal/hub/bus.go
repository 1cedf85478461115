package hub

import (
	"sync"
	"time"

	"github.com/owlcms/tracker-core/internal/domain"
	"github.com/owlcms/tracker-core/internal/logging"
)

// debounceWindow suppresses repeat emissions of the same (FOP, kind) pair.
const debounceWindow = 100 * time.Millisecond

type subscriber struct {
	id   uint64
	kind domain.EventKind
	once bool
	fn   func(domain.Event)
}

// bus is the in-process publish-subscribe fan-out. Emission is synchronous
// with the ingest path; per-(FOP, event-kind) debouncing applies to the four
// data-bearing kinds, never to lifecycle edges.
type bus struct {
	mu          sync.Mutex
	nextID      uint64
	subscribers []subscriber
	lastEmit    map[debounceKey]time.Time
	now         func() time.Time
}

type debounceKey struct {
	fop  string
	kind string
}

func (b *bus) init(clock func() time.Time) {
	b.lastEmit = make(map[debounceKey]time.Time)
	b.now = clock
}

func (b *bus) subscribe(kind domain.EventKind, once bool, fn func(domain.Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subscribers = append(b.subscribers, subscriber{id: id, kind: kind, once: once, fn: fn})
	return func() { b.remove(id) }
}

func (b *bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(id)
}

func (b *bus) removeLocked(id uint64) {
	for i, s := range b.subscribers {
		if s.id == id {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			return
		}
	}
}

// debounced reports and records whether this emission falls inside the
// suppression window for its key. UPDATE events key on the uiEvent string so
// distinct UI transitions are tracked separately.
func (b *bus) debounced(ev domain.Event) bool {
	if !isDataEvent(ev.Kind) {
		return false
	}
	kindKey := string(ev.Kind)
	if ev.Kind == domain.EventUpdate && ev.UIEvent != "" {
		kindKey = ev.UIEvent
	}
	key := debounceKey{fop: ev.FOPName, kind: kindKey}

	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	if last, ok := b.lastEmit[key]; ok && now.Sub(last) < debounceWindow {
		return true
	}
	b.lastEmit[key] = now
	return false
}

func isDataEvent(kind domain.EventKind) bool {
	switch kind {
	case domain.EventDatabase, domain.EventUpdate, domain.EventTimer, domain.EventDecision:
		return true
	default:
		return false
	}
}

// dispatch delivers the event to matching subscribers in registration order.
// A panicking subscriber is removed; remaining subscribers still run.
func (b *bus) dispatch(ev domain.Event, logger logging.Logger) {
	b.mu.Lock()
	matched := make([]subscriber, 0, len(b.subscribers))
	for _, s := range b.subscribers {
		if s.kind == ev.Kind {
			matched = append(matched, s)
		}
	}
	b.mu.Unlock()

	for _, s := range matched {
		b.deliver(s, ev, logger)
	}
}

func (b *bus) deliver(s subscriber, ev domain.Event, logger logging.Logger) {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Warn("subscriber removed after panic",
					logging.FieldEvent, string(ev.Kind),
					logging.FieldError, r,
				)
			}
			b.remove(s.id)
		}
	}()
	s.fn(ev)
	if s.once {
		b.remove(s.id)
	}
}

// Subscribe registers a recurring subscriber for one event kind and returns
// its unsubscribe function.
func (h *Hub) Subscribe(kind domain.EventKind, fn func(domain.Event)) func() {
	return h.bus.subscribe(kind, false, fn)
}

// SubscribeOnce registers a subscriber that receives the next occurrence and
// is then removed.
func (h *Hub) SubscribeOnce(kind domain.EventKind, fn func(domain.Event)) func() {
	return h.bus.subscribe(kind, true, fn)
}

// publish runs the debouncer and fans the event out. Callers must not hold
// h.mu: subscribers may invoke queries.
func (h *Hub) publish(ev domain.Event) {
	if h.bus.debounced(ev) {
		if h.recorder != nil {
			h.recorder.RecordEvent(string(ev.Kind), true)
		}
		return
	}
	if h.recorder != nil {
		h.recorder.RecordEvent(string(ev.Kind), false)
	}
	h.bus.dispatch(ev, h.logger)
}
