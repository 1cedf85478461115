package transport

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/owlcms/tracker-core/internal/logging"
	"github.com/owlcms/tracker-core/internal/protocol"
)

var errNoProducer = errors.New("no producer connected")

const writeTimeout = 10 * time.Second

// producerConn is one upstream websocket connection. Binary frames carry no
// update key, so they are accepted only after this connection has passed at
// least one authenticated text frame.
type producerConn struct {
	id     string
	ws     *websocket.Conn
	server *Server

	writeMu       sync.Mutex
	authenticated bool
	closed        bool
}

func (c *producerConn) readLoop() {
	defer c.ws.Close()

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		switch msgType {
		case websocket.TextMessage:
			if !c.handleText(data) {
				return
			}
		case websocket.BinaryMessage:
			c.handleBinary(data)
		}
	}
}

// handleText runs the version gate and auth check, hands the envelope to
// the hub, and writes the response. Returns false when the connection must
// close (auth violation).
func (c *producerConn) handleText(data []byte) bool {
	log := c.server.logger

	env, err := protocol.ParseEnvelope(data)
	if err != nil {
		log.Warn("text frame rejected", logging.FieldConnID, c.id, logging.FieldError, err)
		c.respondVersionError(err, "")
		return true
	}
	if err := protocol.CheckVersion(env.Version); err != nil {
		log.Warn("protocol version rejected",
			logging.FieldConnID, c.id, "received", env.Version, logging.FieldError, err)
		c.respondVersionError(err, env.Version)
		return true
	}

	if c.server.updateKey != "" {
		if extractUpdateKey(env.Payload) != c.server.updateKey {
			log.Warn("unauthorized frame", logging.FieldConnID, c.id, logging.FieldFrameType, env.Type)
			_ = c.writeResponse(protocol.Unauthorized())
			c.close(websocket.ClosePolicyViolation, "invalid update key")
			return false
		}
		c.authenticated = true
	}

	resp := c.server.hub.HandleTextFrame(env)
	if err := c.writeResponse(resp); err != nil {
		log.Warn("response write failed", logging.FieldConnID, c.id, logging.FieldError, err)
	}
	return true
}

// handleBinary decodes and gates a binary frame, then hands it to the hub.
// Protocol errors never abort the connection; the frame is dropped.
func (c *producerConn) handleBinary(data []byte) {
	log := c.server.logger

	if c.server.updateKey != "" && !c.authenticated {
		log.Warn("binary frame before authenticated text frame, dropped", logging.FieldConnID, c.id)
		return
	}

	frame, err := protocol.ParseBinaryFrame(data)
	if err != nil {
		log.Warn("binary frame dropped", logging.FieldConnID, c.id, logging.FieldError, err)
		return
	}
	if frame.Version != "" && protocol.VersionTooOld(frame.Version) {
		log.Warn("binary frame below minimum protocol version, dropped",
			logging.FieldConnID, c.id, "received", frame.Version)
		return
	}

	if err := c.server.hub.HandleBinaryFrame(frame); err != nil {
		log.Warn("binary frame handling failed",
			logging.FieldConnID, c.id, logging.FieldFrameType, frame.Type, logging.FieldError, err)
	}
}

func (c *producerConn) respondVersionError(err error, received string) {
	_ = c.writeResponse(protocol.VersionRejected(received, err.Error()))
}

// writeResponse serializes a response envelope onto the socket. Writes are
// serialized; only the connection owner touches the producer socket.
func (c *producerConn) writeResponse(resp protocol.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return errNoProducer
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *producerConn) close(code int, reason string) {
	c.writeMu.Lock()
	if c.closed {
		c.writeMu.Unlock()
		return
	}
	c.closed = true
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	c.writeMu.Unlock()
	_ = c.ws.Close()
}
