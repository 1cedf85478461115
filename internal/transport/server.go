package transport

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/owlcms/tracker-core/internal/hub"
	"github.com/owlcms/tracker-core/internal/logging"
	"github.com/owlcms/tracker-core/internal/protocol"
)

// Server accepts the producer's websocket connection. At most one producer
// is held at a time; a newcomer replaces the predecessor.
type Server struct {
	hub       *hub.Hub
	logger    logging.Logger
	updateKey string

	upgrader websocket.Upgrader

	mu      sync.Mutex
	current *producerConn
}

// Options configures the transport.
type Options struct {
	Hub       *hub.Hub
	Logger    logging.Logger
	UpdateKey string
}

// NewServer constructs the producer endpoint and registers the hub's
// resource-request callback.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{
		hub:       opts.Hub,
		logger:    logger,
		updateKey: opts.UpdateKey,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 << 10,
			WriteBufferSize: 64 << 10,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	s.hub.RegisterRequestResources(s.requestResources)
	return s
}

// ServeHTTP upgrades the producer connection and runs its read loop.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.FieldError, err)
		return
	}

	conn := &producerConn{
		id:     uuid.NewString(),
		ws:     ws,
		server: s,
	}

	s.mu.Lock()
	prev := s.current
	s.current = conn
	s.mu.Unlock()

	if prev != nil {
		s.logger.Info("producer replaced", logging.FieldConnID, prev.id)
		prev.close(websocket.CloseNormalClosure, "replaced by new producer")
	}

	s.logger.Info("producer connected", logging.FieldConnID, conn.id)
	s.hub.OnProducerConnected()

	conn.readLoop()

	s.mu.Lock()
	active := s.current == conn
	if active {
		s.current = nil
	}
	s.mu.Unlock()

	if active {
		s.logger.Info("producer disconnected", logging.FieldConnID, conn.id)
		s.hub.OnProducerDisconnected()
	}
}

// requestResources forwards plugin precondition requests to the producer.
func (s *Server) requestResources(missing []string) error {
	s.mu.Lock()
	conn := s.current
	s.mu.Unlock()
	if conn == nil {
		return errNoProducer
	}
	return conn.writeResponse(protocol.PreconditionsRequired(protocol.ReasonPluginPreconditions, missing))
}

// Connected reports whether a producer is attached.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// authPayload is the slice of any text payload the auth check needs.
type authPayload struct {
	UpdateKey string `json:"updateKey"`
}

func extractUpdateKey(payload json.RawMessage) string {
	var p authPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return ""
	}
	return p.UpdateKey
}
