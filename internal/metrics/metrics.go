package metrics

import (
	"sync"
	"time"
)

type frameStats struct {
	frames      int
	errors      int
	lastLatency time.Duration
}

// Recorder captures lightweight, in-memory metrics about hub activity.
// It is intentionally simple so it can be swapped for a real backend later.
type Recorder struct {
	mu     sync.Mutex
	frames map[string]*frameStats

	eventsPublished int
	eventsDebounced int
	databaseLoads   int
	zipExtractions  int
	connections     int

	otel *otelInstruments
}

func NewRecorder() *Recorder {
	return newRecorder(nil)
}

func newRecorder(otel *otelInstruments) *Recorder {
	return &Recorder{
		frames: make(map[string]*frameStats),
		otel:   otel,
	}
}

// RecordFrame increments counters for a processed frame of the given type and
// response status, and stores the last observed handling latency.
func (r *Recorder) RecordFrame(frameType string, status int, duration time.Duration) {
	if r == nil {
		return
	}

	stats := r.ensureStats(frameType)
	r.mu.Lock()
	stats.frames++
	stats.lastLatency = duration
	if status >= 400 {
		stats.errors++
	}
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordFrame(frameType, status, duration)
	}
}

// RecordEvent tracks one bus publication; debounced emissions are counted
// separately so suppression stays observable.
func (r *Recorder) RecordEvent(kind string, debounced bool) {
	if r == nil {
		return
	}
	r.mu.Lock()
	if debounced {
		r.eventsDebounced++
	} else {
		r.eventsPublished++
	}
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordEvent(kind, debounced)
	}
}

// RecordDatabaseLoad tracks a successful full-snapshot ingest.
func (r *Recorder) RecordDatabaseLoad(duration time.Duration) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.databaseLoads++
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordDatabaseLoad(duration)
	}
}

// RecordZipExtraction tracks one binary resource extraction.
func (r *Recorder) RecordZipExtraction(kind string, files int, err error) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.zipExtractions++
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordZipExtraction(kind, files, err)
	}
}

// RecordConnection tracks producer connects (+1) and disconnects (-1).
func (r *Recorder) RecordConnection(delta int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.connections += delta
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordConnection(delta)
	}
}

// Snapshot is a copy of the counters for one frame type.
type Snapshot struct {
	Frames      int
	Errors      int
	LastLatency time.Duration
}

func (r *Recorder) FrameSnapshot(frameType string) Snapshot {
	if r == nil {
		return Snapshot{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if stats, ok := r.frames[frameType]; ok && stats != nil {
		return Snapshot{Frames: stats.frames, Errors: stats.errors, LastLatency: stats.lastLatency}
	}
	return Snapshot{}
}

// EventsPublished returns the number of non-debounced emissions.
func (r *Recorder) EventsPublished() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eventsPublished
}

// EventsDebounced returns the number of suppressed emissions.
func (r *Recorder) EventsDebounced() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eventsDebounced
}

// DatabaseLoads returns the number of full-snapshot ingests.
func (r *Recorder) DatabaseLoads() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.databaseLoads
}

// Connections returns the current producer connection count.
func (r *Recorder) Connections() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connections
}

func (r *Recorder) ensureStats(frameType string) *frameStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, ok := r.frames[frameType]
	if !ok {
		stats = &frameStats{}
		r.frames[frameType] = stats
	}
	return stats
}
