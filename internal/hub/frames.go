package hub

import (
	"encoding/json"
	"fmt"

	"github.com/owlcms/tracker-core/internal/domain"
	"github.com/owlcms/tracker-core/internal/logging"
	"github.com/owlcms/tracker-core/internal/protocol"
	"github.com/owlcms/tracker-core/internal/resources"
)

// HandleTextFrame dispatches a decoded text envelope. Version and auth
// checks have already run in the transport; this path only folds state and
// negotiates preconditions.
func (h *Hub) HandleTextFrame(env protocol.Envelope) protocol.Response {
	start := h.now()
	var resp protocol.Response

	switch env.Type {
	case protocol.TypeDatabase:
		resp = h.handleDatabaseFrame(env.Payload)
	case protocol.TypeUpdate:
		resp = h.handleUpdateFrame(env.Payload)
	case protocol.TypeTimer:
		resp = h.handleTimerFrame(env.Payload)
	case protocol.TypeDecision:
		resp = h.handleDecisionFrame(env.Payload)
	default:
		h.logger.Warn("unknown frame type ignored", logging.FieldFrameType, env.Type)
		resp = protocol.Response{Status: 200, Message: env.Type + " ignored", Reason: "unknown_type"}
	}

	if h.recorder != nil {
		h.recorder.RecordFrame(env.Type, resp.Status, h.now().Sub(start))
	}
	return resp
}

func (h *Hub) handleDatabaseFrame(payload json.RawMessage) protocol.Response {
	decoded, err := decodeDatabasePayload(payload)
	if err != nil {
		h.logger.Warn("database frame unparsable", logging.FieldError, err)
		return protocol.InternalError("database parse failed", "parse_error")
	}
	if decoded.empty() {
		h.mu.Lock()
		h.pendingDatabaseZip = true
		h.mu.Unlock()
		return protocol.DatabasePending()
	}
	return h.ingestDatabase(payload)
}

// ingestDatabase is the shared text/ZIP path: it guards against concurrent
// loads, assembles, and emits the readiness edges.
func (h *Hub) ingestDatabase(payload json.RawMessage) protocol.Response {
	start := h.now()

	h.mu.Lock()
	if h.loadingDatabase {
		h.mu.Unlock()
		return protocol.AlreadyLoading()
	}
	h.loadingDatabase = true
	h.pendingDatabaseZip = false
	h.mu.Unlock()

	changed, err := h.assembleDatabase(payload)

	h.mu.Lock()
	h.loadingDatabase = false
	h.mu.Unlock()

	if err != nil {
		h.logger.Error("database ingest failed", logging.FieldError, err)
		return protocol.InternalError("database ingest failed", "ingest_error")
	}
	if !changed {
		h.logger.Debug("database unchanged, checksum match")
		return protocol.Duplicate(protocol.TypeDatabase)
	}

	if h.recorder != nil {
		h.recorder.RecordDatabaseLoad(h.now().Sub(start))
	}
	h.publish(domain.Event{Kind: domain.EventDatabase})
	h.maybeEmitReady(true)
	return protocol.OK(protocol.TypeDatabase)
}

func (h *Hub) handleUpdateFrame(payload json.RawMessage) protocol.Response {
	res, err := h.foldUpdate(payload)
	if err != nil {
		h.logger.Warn("update frame unparsable", logging.FieldError, err)
		return protocol.InternalError("update parse failed", "parse_error")
	}

	h.publish(domain.Event{
		Kind:    domain.EventUpdate,
		FOPName: res.FOPName,
		UIEvent: res.UIEvent,
		Version: res.Version,
	})
	if edge := h.trackSessionUpdate(res.FOPName, res.UIEvent, res.BreakType); edge != nil {
		h.publish(*edge)
	}

	if resp := h.negotiatePreconditions(); resp != nil {
		return *resp
	}
	return protocol.OK(protocol.TypeUpdate)
}

func (h *Hub) handleTimerFrame(payload json.RawMessage) protocol.Response {
	fopName, err := h.foldTimer(payload)
	if err != nil {
		h.logger.Warn("timer frame unparsable", logging.FieldError, err)
		return protocol.InternalError("timer parse failed", "parse_error")
	}

	h.publish(domain.Event{Kind: domain.EventTimer, FOPName: fopName})
	if edge := h.trackSessionActivity(fopName); edge != nil {
		h.publish(*edge)
	}

	if resp := h.negotiatePreconditions(); resp != nil {
		return *resp
	}
	return protocol.OK(protocol.TypeTimer)
}

func (h *Hub) handleDecisionFrame(payload json.RawMessage) protocol.Response {
	fopName, err := h.foldDecision(payload)
	if err != nil {
		h.logger.Warn("decision frame unparsable", logging.FieldError, err)
		return protocol.InternalError("decision parse failed", "parse_error")
	}

	h.publish(domain.Event{Kind: domain.EventDecision, FOPName: fopName})
	if edge := h.trackSessionActivity(fopName); edge != nil {
		h.publish(*edge)
	}

	if resp := h.negotiatePreconditions(); resp != nil {
		return *resp
	}
	return protocol.OK(protocol.TypeDecision)
}

// HandleBinaryFrame dispatches a decoded binary frame. Unknown types are
// ignored with a warning; malformed archives leave readiness untouched.
func (h *Hub) HandleBinaryFrame(frame protocol.BinaryFrame) error {
	frameType, known := protocol.NormalizeBinaryType(frame.Type)
	if !known {
		h.logger.Warn("unknown binary frame type ignored", logging.FieldFrameType, frame.Type)
		return nil
	}

	switch frameType {
	case protocol.TypeDatabaseZip:
		return h.handleDatabaseZip(frame.Payload)
	case protocol.TypeTranslationsZip:
		return h.handleTranslationsZip(frame.Payload)
	default:
		return h.handleResourceZip(frameType, frame.Payload)
	}
}

func (h *Hub) handleDatabaseZip(payload []byte) error {
	data, err := resources.ReadSingleEntry(payload, "competition.json")
	if err != nil {
		h.logger.Warn("database archive unreadable", logging.FieldError, err)
		return err
	}
	resp := h.ingestDatabase(data)
	if resp.Status >= 400 {
		return fmt.Errorf("database zip ingest: %s", resp.Message)
	}
	return nil
}

func (h *Hub) handleResourceZip(frameType string, payload []byte) error {
	files, err := h.extractor.Extract(frameType, payload)
	if h.recorder != nil {
		h.recorder.RecordZipExtraction(frameType, files, err)
	}
	if err != nil {
		h.logger.Warn("resource archive extraction failed",
			logging.FieldFrameType, frameType, logging.FieldError, err)
		return err
	}

	var kind domain.EventKind
	h.mu.Lock()
	switch frameType {
	case protocol.TypeFlagsZip:
		h.flagsReady = true
		kind = domain.EventFlagsLoaded
	case protocol.TypeLogosZip:
		h.logosReady = true
		kind = domain.EventLogosLoaded
	case protocol.TypePicturesZip:
		h.picturesReady = true
		kind = domain.EventPicturesLoaded
	}
	h.mu.Unlock()

	h.logger.Info("resource archive extracted",
		logging.FieldFrameType, frameType, logging.FieldCount, files)
	if kind != "" {
		h.publish(domain.Event{Kind: kind})
	}
	return nil
}

// translationsDocument is the archive's single JSON entry: either a wrapper
// with a checksum or a direct locale map.
type translationsDocument struct {
	Locales  map[string]map[string]string `json:"locales"`
	Checksum string                       `json:"translationsChecksum"`
}

func (h *Hub) handleTranslationsZip(payload []byte) error {
	data, err := resources.ReadSingleEntry(payload, "translations.json")
	if err != nil {
		h.logger.Warn("translations archive unreadable", logging.FieldError, err)
		return err
	}

	var doc translationsDocument
	if err := json.Unmarshal(data, &doc); err != nil || len(doc.Locales) == 0 {
		var direct map[string]map[string]string
		if derr := json.Unmarshal(data, &direct); derr != nil {
			h.logger.Warn("translations payload unparsable", logging.FieldError, derr)
			return derr
		}
		doc = translationsDocument{Locales: direct}
	}

	if doc.Checksum != "" && doc.Checksum == h.trans.Checksum() {
		h.logger.Debug("translations unchanged, checksum match")
		return nil
	}

	for locale, values := range doc.Locales {
		n := h.trans.Merge(locale, values)
		h.logger.Debug("locale merged", logging.FieldLocale, locale, logging.FieldCount, n)
	}
	if doc.Checksum != "" {
		h.trans.SetChecksum(doc.Checksum)
	}

	h.mu.Lock()
	h.translationsReady = !h.trans.Empty()
	h.mu.Unlock()

	h.publish(domain.Event{Kind: domain.EventTranslationsLoaded})
	h.maybeEmitReady(false)
	return nil
}
