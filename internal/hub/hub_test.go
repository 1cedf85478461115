package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owlcms/tracker-core/internal/domain"
	"github.com/owlcms/tracker-core/internal/protocol"
	"github.com/owlcms/tracker-core/internal/testutil"
)

func newTestHub(t *testing.T) (*Hub, *testutil.Clock) {
	t.Helper()
	clock := testutil.NewClock()
	h := New(Options{
		Logger:        testutil.NewCaptureLogger(),
		LocalFilesDir: t.TempDir(),
		Clock:         clock.Now,
	})
	return h, clock
}

func envelope(frameType, payload string) protocol.Envelope {
	return protocol.Envelope{
		Version: "64.0.0",
		Type:    frameType,
		Payload: json.RawMessage(payload),
	}
}

const sampleDatabase = `{
	"competition": {"fops": ["A"]},
	"athletes": [{"key": "1", "firstName": "Jo", "lastName": "Doe", "team": 10, "categoryCode": "SR_M89"}],
	"teams": [{"id": 10, "name": "USA"}],
	"ageGroups": [{"code": "SR", "categories": [{"gender": "M", "maximumWeight": 89, "categoryName": "M89 Senior"}]}]
}`

func loadDatabase(t *testing.T, h *Hub) {
	t.Helper()
	resp := h.HandleTextFrame(envelope(protocol.TypeDatabase, sampleDatabase))
	require.Equal(t, 200, resp.Status, "database ingest: %+v", resp)
}

func loadTranslations(t *testing.T, h *Hub, payload string) {
	t.Helper()
	zipped := testutil.BuildZip(map[string][]byte{"translations.json": []byte(payload)})
	require.NoError(t, h.HandleBinaryFrame(protocol.BinaryFrame{Type: protocol.TypeTranslationsZip, Payload: zipped}))
}

func TestDatabaseIngest(t *testing.T) {
	h, _ := newTestHub(t)
	loadDatabase(t, h)

	assert.Nil(t, h.GetCurrentAthlete("A"), "no update yet")

	db := h.GetDatabaseState()
	require.NotNil(t, db)
	require.Len(t, db.Athletes, 1)
	assert.Equal(t, "USA", db.Athletes[0].TeamName)
	assert.Equal(t, "M89 Senior", db.Athletes[0].Category)
	assert.Equal(t, "DOE, Jo", db.Athletes[0].FullName)
	assert.True(t, db.Initialized)

	ag, ok := h.GetCategoryToAgeGroupMap()["SR_M89"]
	require.True(t, ok)
	assert.Equal(t, "SR", ag.Code)

	assert.Contains(t, h.GetAvailableFOPs(), "A")
	assert.Equal(t, "USA", h.GetTeamNameById(10))
	assert.Empty(t, h.GetTeamNameById(99))
}

func TestReadinessAndHubReadyOnce(t *testing.T) {
	h, clock := newTestHub(t)

	hubReady := 0
	h.Subscribe(domain.EventHubReady, func(domain.Event) { hubReady++ })

	assert.False(t, h.IsReady())
	loadDatabase(t, h)
	assert.False(t, h.IsReady(), "translations still missing")

	loadTranslations(t, h, `{"en":{"Snatch":"Snatch"}}`)
	assert.True(t, h.IsReady())
	assert.Equal(t, 1, hubReady)
	assert.Equal(t, "Snatch", h.GetTranslations("en")["Snatch"])

	// More translations must not re-fire the ready edge.
	clock.Advance(time.Second)
	loadTranslations(t, h, `{"fr":{"Snatch":"Arraché"}}`)
	assert.Equal(t, 1, hubReady)
}

const liftingUpdate = `{
	"fop": "A",
	"uiEvent": "LiftingOrderUpdated",
	"currentAthleteKey": "1",
	"sessionAthletes": [{"key": "1", "snatch1Declaration": 100, "snatch1ActualLift": -100, "snatch2Declaration": 100}],
	"liftingOrderKeys": ["1"]
}`

func TestUpdateFoldingCurrentAthlete(t *testing.T) {
	h, _ := newTestHub(t)
	loadDatabase(t, h)
	loadTranslations(t, h, `{"en":{"Snatch":"Snatch"}}`)

	resp := h.HandleTextFrame(envelope(protocol.TypeUpdate, liftingUpdate))
	require.Equal(t, 200, resp.Status, "%+v", resp)

	cur := h.GetCurrentAthlete("A")
	require.NotNil(t, cur)
	assert.Equal(t, 2, cur.Attempt)
	assert.Equal(t, domain.LiftTypeSnatch, cur.LiftType)
	assert.Equal(t, float64(100), cur.Weight)

	require.Len(t, cur.SAttempts, 3)
	assert.Equal(t, domain.AttemptStatus{StringValue: "100", LiftStatus: domain.LiftBad}, cur.SAttempts[0].Status())
	assert.Equal(t, domain.AttemptStatus{StringValue: "100", LiftStatus: domain.LiftRequest}, cur.SAttempts[1].Status())
	assert.Equal(t, domain.AttemptStatus{StringValue: "-", LiftStatus: domain.LiftEmpty}, cur.SAttempts[2].Status())
	require.Len(t, cur.CAttempts, 3)
}

func TestSessionLifecycleEdges(t *testing.T) {
	h, clock := newTestHub(t)
	loadDatabase(t, h)
	loadTranslations(t, h, `{"en":{"Snatch":"Snatch"}}`)

	var done, reopened int
	h.Subscribe(domain.EventSessionDone, func(domain.Event) { done++ })
	h.Subscribe(domain.EventSessionReopened, func(domain.Event) { reopened++ })

	groupDone := `{"fop":"A","uiEvent":"GroupDone","breakType":"GROUP_DONE"}`
	h.HandleTextFrame(envelope(protocol.TypeUpdate, groupDone))
	assert.True(t, h.IsSessionDone("A"))
	assert.Equal(t, 1, done)

	// A repeated done is not an edge.
	clock.Advance(time.Second)
	h.HandleTextFrame(envelope(protocol.TypeUpdate, groupDone))
	assert.Equal(t, 1, done)
	assert.Zero(t, reopened)

	// Any activity reopens once.
	h.HandleTextFrame(envelope(protocol.TypeTimer, `{"fop":"A","athleteTimerEventType":"StartTime","athleteMillisRemaining":60000}`))
	assert.False(t, h.IsSessionDone("A"))
	assert.Equal(t, 1, reopened)

	clock.Advance(time.Second)
	h.HandleTextFrame(envelope(protocol.TypeDecision, `{"fop":"A","decisionEventType":"DOWN_SIGNAL","down":true}`))
	assert.Equal(t, 1, reopened, "already open, no second edge")
}

func TestPreconditionNegotiation(t *testing.T) {
	h, clock := newTestHub(t)

	resp := h.HandleTextFrame(envelope(protocol.TypeUpdate, `{"fop":"A","uiEvent":"SwitchGroup"}`))
	require.Equal(t, 428, resp.Status)
	assert.Equal(t, protocol.ReasonMissingPreconditions, resp.Reason)
	assert.Equal(t, []string{protocol.TypeDatabase, protocol.TypeTranslationsZip}, resp.Missing)

	// Within the damp window further data frames are parked on 202.
	clock.Advance(200 * time.Millisecond)
	resp = h.HandleTextFrame(envelope(protocol.TypeUpdate, `{"fop":"A","uiEvent":"SwitchGroup2"}`))
	assert.Equal(t, 202, resp.Status)
	assert.Equal(t, protocol.ReasonWaitingForDatabase, resp.Reason)
	assert.True(t, resp.Retry)

	// Past the window the 428 re-arms.
	clock.Advance(2 * time.Second)
	resp = h.HandleTextFrame(envelope(protocol.TypeUpdate, `{"fop":"A","uiEvent":"SwitchGroup3"}`))
	assert.Equal(t, 428, resp.Status)
}

func TestPreconditionTranslationsOnly(t *testing.T) {
	h, _ := newTestHub(t)
	loadDatabase(t, h)

	resp := h.HandleTextFrame(envelope(protocol.TypeUpdate, `{"fop":"A","uiEvent":"SwitchGroup"}`))
	require.Equal(t, 428, resp.Status)
	assert.Equal(t, []string{protocol.TypeTranslationsZip}, resp.Missing)
}

func TestDuplicateDatabaseChecksum(t *testing.T) {
	h, clock := newTestHub(t)

	events := 0
	h.Subscribe(domain.EventDatabase, func(domain.Event) { events++ })

	withChecksum := `{"databaseChecksum":"abc","competition":{"fops":["A"]},"athletes":[{"key":"1","lastName":"Doe"}],"teams":[],"ageGroups":[]}`
	resp := h.HandleTextFrame(envelope(protocol.TypeDatabase, withChecksum))
	require.Equal(t, 200, resp.Status)
	assert.Equal(t, 1, events)
	v1 := h.GetFopStateVersion("A")

	clock.Advance(time.Second)
	resp = h.HandleTextFrame(envelope(protocol.TypeDatabase, withChecksum))
	assert.Equal(t, 200, resp.Status)
	assert.True(t, resp.Cached)
	assert.Equal(t, protocol.ReasonDuplicateChecksum, resp.Reason)
	assert.Equal(t, 1, events, "duplicate snapshot fires no events")
	assert.Equal(t, v1, h.GetFopStateVersion("A"), "duplicate snapshot bumps no versions")
}

func TestVersionAndLastDataUpdate(t *testing.T) {
	h, clock := newTestHub(t)
	loadDatabase(t, h)
	loadTranslations(t, h, `{"en":{"Snatch":"Snatch"}}`)

	h.HandleTextFrame(envelope(protocol.TypeUpdate, `{"fop":"A","uiEvent":"SwitchGroup"}`))
	v1 := h.GetFopStateVersion("A")
	f1 := h.GetFopUpdate("A")
	require.NotNil(t, f1)

	clock.Advance(time.Second)
	h.HandleTextFrame(envelope(protocol.TypeTimer, `{"fop":"A","athleteTimerEventType":"SetTime","athleteMillisRemaining":60000}`))
	h.HandleTextFrame(envelope(protocol.TypeDecision, `{"fop":"A","decisionEventType":"FULL_DECISION","d1":true,"d2":true,"d3":false,"decisionsVisible":true}`))

	f2 := h.GetFopUpdate("A")
	require.NotNil(t, f2)
	assert.Equal(t, v1, f2.Version, "timer/decision frames do not bump the version")
	assert.Equal(t, f1.LastDataUpdate, f2.LastDataUpdate, "timer/decision frames do not touch lastDataUpdate")
	assert.True(t, f2.LastUpdate.After(f1.LastUpdate))

	clock.Advance(time.Second)
	h.HandleTextFrame(envelope(protocol.TypeUpdate, `{"fop":"A","uiEvent":"SwitchGroup"}`))
	f3 := h.GetFopUpdate("A")
	assert.Equal(t, v1+1, f3.Version, "update frames strictly increase the version")
	assert.True(t, f3.LastDataUpdate.After(f2.LastDataUpdate))
}

func TestUpdateDebounceKeepsState(t *testing.T) {
	h, clock := newTestHub(t)
	loadDatabase(t, h)
	loadTranslations(t, h, `{"en":{"Snatch":"Snatch"}}`)

	var delivered int
	h.Subscribe(domain.EventUpdate, func(domain.Event) { delivered++ })

	h.HandleTextFrame(envelope(protocol.TypeUpdate, liftingUpdate))
	v1 := h.GetFopStateVersion("A")
	require.Equal(t, 1, delivered)

	// Same uiEvent inside the window: state advances, emission suppressed.
	clock.Advance(20 * time.Millisecond)
	h.HandleTextFrame(envelope(protocol.TypeUpdate, liftingUpdate))
	assert.Equal(t, v1+1, h.GetFopStateVersion("A"))
	assert.Equal(t, 1, delivered)

	// Past the window it fires again.
	clock.Advance(200 * time.Millisecond)
	h.HandleTextFrame(envelope(protocol.TypeUpdate, liftingUpdate))
	assert.Equal(t, 2, delivered)
}

func TestDebounceKeysOnUIEvent(t *testing.T) {
	h, _ := newTestHub(t)
	loadDatabase(t, h)
	loadTranslations(t, h, `{"en":{"Snatch":"Snatch"}}`)

	var delivered int
	h.Subscribe(domain.EventUpdate, func(domain.Event) { delivered++ })

	h.HandleTextFrame(envelope(protocol.TypeUpdate, `{"fop":"A","uiEvent":"LiftingOrderUpdated"}`))
	h.HandleTextFrame(envelope(protocol.TypeUpdate, `{"fop":"A","uiEvent":"SwitchGroup"}`))
	assert.Equal(t, 2, delivered, "distinct uiEvents are debounced independently")
}

func TestFopUnknownToDatabase(t *testing.T) {
	h, _ := newTestHub(t)
	loadDatabase(t, h)
	loadTranslations(t, h, `{"en":{"Snatch":"Snatch"}}`)

	h.HandleTextFrame(envelope(protocol.TypeUpdate, `{"fop":"B","uiEvent":"SwitchGroup"}`))

	assert.Contains(t, h.GetAvailableFOPs(), "B")
	require.NotNil(t, h.GetFopUpdate("B"))
	status := h.GetSessionStatus("B")
	assert.False(t, status.IsDone)
}

func TestOrderPermutationInvariant(t *testing.T) {
	h, _ := newTestHub(t)
	loadDatabase(t, h)
	loadTranslations(t, h, `{"en":{"Snatch":"Snatch"}}`)

	payload := `{
		"fop": "A",
		"uiEvent": "LiftingOrderUpdated",
		"sessionAthletes": [{"key":"1","snatch1Declaration":100},{"key":"2","snatch1Declaration":90}],
		"startOrderKeys": ["1", {"isSpacer":true}, "2"],
		"liftingOrderKeys": ["2", "1"]
	}`
	h.HandleTextFrame(envelope(protocol.TypeUpdate, payload))

	f := h.GetFopUpdate("A")
	require.NotNil(t, f)

	sessionKeys := map[string]bool{}
	for _, a := range f.SessionAthletes {
		sessionKeys[a.AthleteKey] = true
	}
	orderKeys := map[string]bool{}
	for _, k := range append(append([]domain.OrderKey{}, f.StartOrderKeys...), f.LiftingOrderKeys...) {
		if !k.IsSpacer {
			orderKeys[k.AthleteKey] = true
		}
	}
	assert.Equal(t, sessionKeys, orderKeys)

	// Spacers are preserved when asked for, stripped otherwise.
	withSpacers := h.GetStartOrderEntries("A", true)
	without := h.GetStartOrderEntries("A", false)
	assert.Len(t, withSpacers, 3)
	assert.Len(t, without, 2)
}

func TestSessionAthletesStringForm(t *testing.T) {
	h, _ := newTestHub(t)
	loadDatabase(t, h)
	loadTranslations(t, h, `{"en":{"Snatch":"Snatch"}}`)

	// sessionAthletes delivered as an embedded JSON string.
	payload := `{"fop":"A","uiEvent":"SwitchGroup","sessionAthletes":"[{\"key\":\"1\",\"snatch1Declaration\":95}]"}`
	h.HandleTextFrame(envelope(protocol.TypeUpdate, payload))

	f := h.GetFopUpdate("A")
	require.NotNil(t, f)
	require.Len(t, f.SessionAthletes, 1)
	assert.Equal(t, "1", f.SessionAthletes[0].AthleteKey)
}

func TestGhostCurrentAthleteCleared(t *testing.T) {
	h, clock := newTestHub(t)
	loadDatabase(t, h)
	loadTranslations(t, h, `{"en":{"Snatch":"Snatch"}}`)

	h.HandleTextFrame(envelope(protocol.TypeUpdate, liftingUpdate))
	require.NotNil(t, h.GetCurrentAthlete("A"))

	clock.Advance(time.Second)
	h.HandleTextFrame(envelope(protocol.TypeUpdate, `{"fop":"A","uiEvent":"GroupDone"}`))
	assert.Nil(t, h.GetCurrentAthlete("A"), "frame without currentAthleteKey clears the stale one")
}

func TestBestLiftsAllNull(t *testing.T) {
	h, _ := newTestHub(t)
	loadDatabase(t, h)

	db := h.GetDatabaseState()
	require.Len(t, db.Athletes, 1)
	a := db.Athletes[0]
	assert.Equal(t, "-", a.BestSnatch)
	assert.Equal(t, "-", a.BestCleanJerk)
	assert.Equal(t, domain.Display("-"), a.Total)
}

func TestRequestResources(t *testing.T) {
	h, _ := newTestHub(t)

	// Without a transport callback the call is a logged no-op.
	h.RequestResources([]string{protocol.TypeFlagsZip})

	var got []string
	h.RegisterRequestResources(func(missing []string) error {
		got = missing
		return nil
	})
	h.RequestResources([]string{protocol.TypeFlagsZip})
	assert.Equal(t, []string{protocol.TypeFlagsZip}, got)
}

func TestWaitForDatabase(t *testing.T) {
	h, _ := newTestHub(t)

	err := h.WaitForDatabase(context.Background(), 10*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not ready after 10ms")

	done := make(chan error, 1)
	go func() {
		done <- h.WaitForDatabase(context.Background(), 5*time.Second)
	}()
	time.Sleep(10 * time.Millisecond)
	loadDatabase(t, h)
	require.NoError(t, <-done)

	// Already ready resolves immediately.
	require.NoError(t, h.WaitForDatabase(context.Background(), time.Millisecond))
}

func TestTranslationsChecksumDedupe(t *testing.T) {
	h, clock := newTestHub(t)
	loadDatabase(t, h)

	loaded := 0
	h.Subscribe(domain.EventTranslationsLoaded, func(domain.Event) { loaded++ })

	wrapper := `{"locales":{"en":{"Snatch":"Snatch"}},"translationsChecksum":"t1"}`
	loadTranslations(t, h, wrapper)
	assert.Equal(t, 1, loaded)

	clock.Advance(time.Second)
	loadTranslations(t, h, wrapper)
	assert.Equal(t, 1, loaded, "identical checksum is a no-op")
}

func TestResourceZipLoadsAndFlags(t *testing.T) {
	h, _ := newTestHub(t)

	var events []domain.EventKind
	h.Subscribe(domain.EventFlagsLoaded, func(e domain.Event) { events = append(events, e.Kind) })

	payload := testutil.BuildZip(map[string][]byte{"USA.svg": []byte("<svg/>")})
	require.NoError(t, h.HandleBinaryFrame(protocol.BinaryFrame{Type: protocol.TypeFlagsZip, Payload: payload}))
	assert.Equal(t, []domain.EventKind{domain.EventFlagsLoaded}, events)
	assert.Equal(t, "/local/flags/USA.svg", h.Locator().FlagURL("USA"))
}

func TestUnknownBinaryTypeIgnored(t *testing.T) {
	h, _ := newTestHub(t)
	require.NoError(t, h.HandleBinaryFrame(protocol.BinaryFrame{Type: "mystery", Payload: []byte{1}}))
}

func TestDatabaseZipIngest(t *testing.T) {
	h, _ := newTestHub(t)

	// Empty database text frame announces a following ZIP.
	resp := h.HandleTextFrame(envelope(protocol.TypeDatabase, `{}`))
	assert.Equal(t, 202, resp.Status)
	assert.True(t, resp.Pending)
	assert.Equal(t, 5000, resp.Timeout)

	zipped := testutil.BuildZip(map[string][]byte{"competition.json": []byte(sampleDatabase)})
	require.NoError(t, h.HandleBinaryFrame(protocol.BinaryFrame{Type: protocol.TypeDatabaseZip, Payload: zipped}))

	db := h.GetDatabaseState()
	require.NotNil(t, db)
	assert.Equal(t, "USA", db.Athletes[0].TeamName)
}

func TestDisplayModeReduction(t *testing.T) {
	h, clock := newTestHub(t)
	loadDatabase(t, h)
	loadTranslations(t, h, `{"en":{"Snatch":"Snatch"}}`)

	assert.Equal(t, domain.ShowNone, h.GetDisplayMode("A"))

	h.HandleTextFrame(envelope(protocol.TypeUpdate, liftingUpdate))
	h.HandleTextFrame(envelope(protocol.TypeTimer, `{"fop":"A","athleteTimerEventType":"StartTime","athleteMillisRemaining":60000}`))
	assert.Equal(t, domain.ShowAthlete, h.GetDisplayMode("A"))

	clock.Advance(time.Second)
	h.HandleTextFrame(envelope(protocol.TypeDecision, `{"fop":"A","decisionEventType":"FULL_DECISION","decisionsVisible":true,"d1":true,"d2":true,"d3":true}`))
	assert.Equal(t, domain.ShowDecision, h.GetDisplayMode("A"))

	clock.Advance(time.Second)
	h.HandleTextFrame(envelope(protocol.TypeDecision, `{"fop":"A","decisionEventType":"RESET"}`))
	h.HandleTextFrame(envelope(protocol.TypeTimer, `{"fop":"A","breakTimerEventType":"StartTime","breakMillisRemaining":600000}`))
	assert.Equal(t, domain.ShowBreak, h.GetDisplayMode("A"))

	assert.Empty(t, h.GetBreakDisplayText("A", "en"))
	clock.Advance(time.Second)
	h.HandleTextFrame(envelope(protocol.TypeUpdate, `{"fop":"A","uiEvent":"BreakStarted","mode":"INTERRUPTION","break":true}`))
	assert.Equal(t, "STOP", h.GetBreakDisplayText("A", "en"))
	assert.Equal(t, "STOPP", h.GetBreakDisplayText("A", "no"))
}

func TestProducerLifecycleReset(t *testing.T) {
	h, _ := newTestHub(t)

	var waiting int
	h.Subscribe(domain.EventWaiting, func(domain.Event) { waiting++ })

	h.OnProducerConnected()
	loadDatabase(t, h)
	loadTranslations(t, h, `{"en":{"Snatch":"Snatch"}}`)
	require.True(t, h.IsReady())

	h.OnProducerDisconnected()
	assert.False(t, h.IsReady())
	assert.Nil(t, h.GetDatabaseState())
	assert.Empty(t, h.GetTranslations("en"))
	assert.Equal(t, 1, waiting)

	// Reconnect does not wipe state (the wipe happens only once, at the
	// first connection); readiness is re-driven by the 428 path.
	h.OnProducerConnected()
	resp := h.HandleTextFrame(envelope(protocol.TypeUpdate, `{"fop":"A","uiEvent":"SwitchGroup"}`))
	assert.Equal(t, 428, resp.Status)
}

func TestHubReadyFiresAgainAfterReset(t *testing.T) {
	h, _ := newTestHub(t)

	hubReady := 0
	h.Subscribe(domain.EventHubReady, func(domain.Event) { hubReady++ })

	h.OnProducerConnected()
	loadDatabase(t, h)
	loadTranslations(t, h, `{"en":{"Snatch":"Snatch"}}`)
	require.Equal(t, 1, hubReady)

	h.OnProducerDisconnected()
	h.OnProducerConnected()
	loadDatabase(t, h)
	loadTranslations(t, h, `{"en":{"Snatch":"Snatch"}}`)
	assert.Equal(t, 2, hubReady, "ready fires once per rebuild")
}
