package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Frame type names carried by text envelopes.
const (
	TypeDatabase = "database"
	TypeUpdate   = "update"
	TypeTimer    = "timer"
	TypeDecision = "decision"
)

// Binary frame type names. The *_zip aliases and their short forms are
// interchangeable on the wire.
const (
	TypeDatabaseZip     = "database_zip"
	TypeFlagsZip        = "flags_zip"
	TypeFlags           = "flags"
	TypeLogosZip        = "logos_zip"
	TypePicturesZip     = "pictures_zip"
	TypePictures        = "pictures"
	TypeTranslationsZip = "translations_zip"
)

var (
	ErrMissingVersion = errors.New("missing version")
	ErrInvalidVersion = errors.New("invalid version")
)

// Envelope is a decoded text frame.
type Envelope struct {
	Version string          `json:"version"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ParseEnvelope decodes a text frame into its envelope. The version field is
// required; its semver validity is checked here so the caller only deals with
// well-formed envelopes.
func ParseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed envelope: %w", err)
	}
	if env.Version == "" {
		return Envelope{}, ErrMissingVersion
	}
	if _, err := parseVersion(env.Version); err != nil {
		return Envelope{}, ErrInvalidVersion
	}
	return env, nil
}

// NormalizeBinaryType folds the short binary type aliases onto their
// canonical *_zip names. Unknown names are returned unchanged with ok=false.
func NormalizeBinaryType(name string) (string, bool) {
	switch name {
	case TypeDatabaseZip, TypeDatabase:
		return TypeDatabaseZip, true
	case TypeFlagsZip, TypeFlags:
		return TypeFlagsZip, true
	case TypeLogosZip:
		return TypeLogosZip, true
	case TypePicturesZip, TypePictures:
		return TypePicturesZip, true
	case TypeTranslationsZip:
		return TypeTranslationsZip, true
	default:
		return name, false
	}
}
