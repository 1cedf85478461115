package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/owlcms/tracker-core/internal/domain"
	"github.com/owlcms/tracker-core/internal/logging"
	"github.com/owlcms/tracker-core/internal/metrics"
	"github.com/owlcms/tracker-core/internal/resources"
	"github.com/owlcms/tracker-core/internal/translations"
)

// Hub is the single-writer competition state store. All mutations happen on
// the frame dispatch path under mu; readers take copies under a read lock so
// subscribers may query from any goroutine.
type Hub struct {
	mu sync.RWMutex

	logger   logging.Logger
	recorder *metrics.Recorder
	now      func() time.Time

	db             *domain.DatabaseState
	athleteIndex   map[string]int
	teamsByID      map[int]domain.Team
	categoryByCode map[string]categoryEntry

	catAgeGroupMemo     map[string]domain.AgeGroup
	catAgeGroupChecksum string

	fops          map[string]*domain.FOPState
	sessions      map[string]*domain.SessionStatus
	confirmedFOPs map[string]bool

	trans *translations.Store

	databaseReady     bool
	translationsReady bool
	flagsReady        bool
	logosReady        bool
	picturesReady     bool
	hubReadyEmitted   bool

	loadingDatabase     bool
	pendingDatabaseZip  bool
	lastDatabaseRequest time.Time

	localFilesDir  string
	localURLPrefix string
	extractor      *resources.Extractor
	locator        *resources.Locator

	requestResourcesFn func(missing []string) error

	firstConnectionSeen bool

	dbWait chan struct{}

	bus bus
}

type categoryEntry struct {
	AgeGroupCode string
	Category     domain.Category
}

// Options configures a Hub.
type Options struct {
	Logger         logging.Logger
	Recorder       *metrics.Recorder
	LocalFilesDir  string
	LocalURLPrefix string
	Clock          func() time.Time
}

// New constructs an empty hub.
func New(opts Options) *Hub {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger(logging.Config{})
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	dir := opts.LocalFilesDir
	if dir == "" {
		dir = "local"
	}
	prefix := opts.LocalURLPrefix
	if prefix == "" {
		prefix = "/local"
	}

	h := &Hub{
		logger:         logger,
		recorder:       opts.Recorder,
		now:            clock,
		fops:           make(map[string]*domain.FOPState),
		sessions:       make(map[string]*domain.SessionStatus),
		confirmedFOPs:  make(map[string]bool),
		trans:          translations.NewStore(),
		localFilesDir:  dir,
		localURLPrefix: prefix,
		dbWait:         make(chan struct{}),
	}
	h.extractor = resources.NewExtractor(dir, logger)
	h.locator = resources.NewLocator(dir, prefix)
	h.bus.init(clock)
	return h
}

// SetLogger installs a logging facade; nil restores the default stdout
// logger.
func (h *Hub) SetLogger(logger logging.Logger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if logger == nil {
		logger = logging.NewLogger(logging.Config{})
	}
	h.logger = logger
	h.extractor = resources.NewExtractor(h.localFilesDir, logger)
}

// RegisterRequestResources installs the transport callback used to ask the
// producer for resource frames; the hub holds a function, not a connection.
func (h *Hub) RegisterRequestResources(fn func(missing []string) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requestResourcesFn = fn
}

// OnProducerConnected is called by the transport when a producer attaches.
// Exactly once per hub lifetime, the first connection wipes all state so the
// producer is guaranteed to re-send everything.
func (h *Hub) OnProducerConnected() {
	h.mu.Lock()
	first := !h.firstConnectionSeen
	h.firstConnectionSeen = true
	h.mu.Unlock()

	if first {
		h.resetState()
	}
	if h.recorder != nil {
		h.recorder.RecordConnection(1)
	}
}

// OnProducerDisconnected transitions the hub to the waiting state: database
// and translations are cleared, readiness drops, and in-flight database
// waits abort. The next connection re-sends via the 428 path.
func (h *Hub) OnProducerDisconnected() {
	h.resetState()
	h.publish(domain.Event{Kind: domain.EventWaiting})
	if h.recorder != nil {
		h.recorder.RecordConnection(-1)
	}
}

func (h *Hub) resetState() {
	h.mu.Lock()
	h.db = nil
	h.athleteIndex = nil
	h.teamsByID = nil
	h.categoryByCode = nil
	h.catAgeGroupMemo = nil
	h.catAgeGroupChecksum = ""
	h.fops = make(map[string]*domain.FOPState)
	h.sessions = make(map[string]*domain.SessionStatus)
	h.confirmedFOPs = make(map[string]bool)
	h.trans.Reset()
	h.databaseReady = false
	h.translationsReady = false
	h.flagsReady = false
	h.logosReady = false
	h.picturesReady = false
	h.hubReadyEmitted = false
	h.loadingDatabase = false
	h.pendingDatabaseZip = false
	h.lastDatabaseRequest = time.Time{}
	// Abort any in-flight WaitForDatabase, then arm a fresh gate.
	select {
	case <-h.dbWait:
	default:
		close(h.dbWait)
	}
	h.dbWait = make(chan struct{})
	h.mu.Unlock()
}

// WaitForDatabase blocks until the next DATABASE_READY or the timeout.
func (h *Hub) WaitForDatabase(ctx context.Context, timeout time.Duration) error {
	h.mu.RLock()
	ready := h.databaseReady
	wait := h.dbWait
	h.mu.RUnlock()
	if ready {
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-wait:
		h.mu.RLock()
		ready = h.databaseReady
		h.mu.RUnlock()
		if !ready {
			return fmt.Errorf("database wait aborted")
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("database not ready after %dms", timeout.Milliseconds())
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fopState returns (creating if needed) the snapshot for a platform.
// Callers hold mu.
func (h *Hub) fopState(name string) *domain.FOPState {
	f, ok := h.fops[name]
	if !ok {
		f = &domain.FOPState{FOPName: name}
		h.fops[name] = f
	}
	return f
}

// sessionStatus returns (creating if needed) the session tracker for a
// platform. Callers hold mu.
func (h *Hub) sessionStatus(name string) *domain.SessionStatus {
	s, ok := h.sessions[name]
	if !ok {
		s = &domain.SessionStatus{}
		h.sessions[name] = s
	}
	return s
}

// maybeEmitReady fires DATABASE_READY / HUB_READY edges. Callers must NOT
// hold mu.
func (h *Hub) maybeEmitReady(databaseJustLoaded bool) {
	h.mu.Lock()
	emitHubReady := false
	if h.databaseReady && h.translationsReady && !h.hubReadyEmitted {
		h.hubReadyEmitted = true
		emitHubReady = true
	}
	var wait chan struct{}
	if databaseJustLoaded {
		wait = h.dbWait
	}
	h.mu.Unlock()

	if databaseJustLoaded {
		select {
		case <-wait:
		default:
			close(wait)
		}
		h.publish(domain.Event{Kind: domain.EventDatabaseReady})
	}
	if emitHubReady {
		h.publish(domain.Event{Kind: domain.EventHubReady})
	}
}
