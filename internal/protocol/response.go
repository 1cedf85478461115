package protocol

// Response is the envelope written back to the producer after each text
// frame. Zero-valued optional fields are omitted on the wire.
type Response struct {
	Status  int              `json:"status"`
	Message string           `json:"message,omitempty"`
	Error   string           `json:"error,omitempty"`
	Reason  string           `json:"reason,omitempty"`
	Missing []string         `json:"missing,omitempty"`
	Details *ResponseDetails `json:"details,omitempty"`
	Pending bool             `json:"pending,omitempty"`
	Retry   bool             `json:"retry,omitempty"`
	Cached  bool             `json:"cached,omitempty"`
	Timeout int              `json:"timeout,omitempty"`
}

// ResponseDetails carries diagnostic context on 400 responses.
type ResponseDetails struct {
	Received string `json:"received,omitempty"`
	Info     string `json:"info,omitempty"`
}

// Well-known response reasons.
const (
	ReasonMissingPreconditions = "missing_preconditions"
	ReasonPluginPreconditions  = "plugin_preconditions"
	ReasonWaitingForDatabase   = "waiting_for_database"
	ReasonAlreadyLoading       = "already_loading"
	ReasonDuplicateChecksum    = "duplicate_checksum"
)

// OK builds the 200 envelope for a processed frame type.
func OK(frameType string) Response {
	return Response{Status: 200, Message: frameType + " processed"}
}

// Duplicate builds the 200 envelope for a checksum-deduplicated snapshot.
func Duplicate(frameType string) Response {
	return Response{Status: 200, Message: frameType + " unchanged", Reason: ReasonDuplicateChecksum, Cached: true}
}

// VersionRejected builds the 400 envelope for a failed version check.
func VersionRejected(received, info string) Response {
	return Response{
		Status:  400,
		Error:   "Protocol version check failed",
		Reason:  "protocol_version",
		Details: &ResponseDetails{Received: received, Info: info},
	}
}

// Unauthorized is the 401 envelope sent before closing the connection.
func Unauthorized() Response {
	return Response{Status: 401, Message: "Access not authorized"}
}

// PreconditionsRequired builds the 428 envelope listing the frame types the
// producer must resend. The connection stays open.
func PreconditionsRequired(reason string, missing []string) Response {
	return Response{
		Status:  428,
		Message: "Precondition Required: Missing required data",
		Reason:  reason,
		Missing: missing,
	}
}

// WaitingForDatabase is the 202 envelope used to damp a 428 storm while a
// requested database is in flight.
func WaitingForDatabase() Response {
	return Response{Status: 202, Message: "waiting for database", Reason: ReasonWaitingForDatabase, Retry: true}
}

// DatabasePending is the 202 envelope acknowledging an empty database text
// frame whose ZIP payload is expected to follow.
func DatabasePending() Response {
	return Response{Status: 202, Message: "database payload expected", Pending: true, Timeout: 5000}
}

// AlreadyLoading is the 202 envelope returned when a second database arrives
// while one is being ingested.
func AlreadyLoading() Response {
	return Response{Status: 202, Message: "database load in progress", Reason: ReasonAlreadyLoading, Retry: true}
}

// InternalError is the 500 envelope for ingest failures.
func InternalError(msg, reason string) Response {
	return Response{Status: 500, Message: msg, Reason: reason}
}
