package logging

import "log/slog"

// Common structured log field keys to keep logs searchable/consistent.
const (
	FieldService    = "service"
	FieldVersion    = "version"
	FieldFOP        = "fop"
	FieldFrameType  = "frame_type"
	FieldEvent      = "event"
	FieldUIEvent    = "ui_event"
	FieldLocale     = "locale"
	FieldConnID     = "conn_id"
	FieldStatusCode = "status_code"
	FieldCount      = "count"
	FieldDurationMS = "duration_ms"
	FieldError      = "error"
	FieldPath       = "path"
	FieldMethod     = "method"
	FieldRequestID  = "request_id"
)

// WithCommon appends service/version fields when provided.
func WithCommon(attrs []slog.Attr, service, version string) []slog.Attr {
	if service != "" {
		attrs = append(attrs, slog.String(FieldService, service))
	}
	if version != "" {
		attrs = append(attrs, slog.String(FieldVersion, version))
	}
	return attrs
}
