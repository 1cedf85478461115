package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"
)

// BinaryFrame is a decoded length-prefixed binary frame. Version is empty
// for the legacy layout and the raw-ZIP fallback.
type BinaryFrame struct {
	Version string
	Type    string
	Payload []byte
}

var (
	ErrTruncatedFrame = errors.New("truncated binary frame")
	ErrZeroLength     = errors.New("zero-length field in binary frame")
	ErrInvalidUTF8    = errors.New("binary frame field is not valid UTF-8")
)

const maxHeaderField = 10 << 20 // 10 MiB

var zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}

// ParseBinaryFrame decodes the two recognized binary layouts:
//
//	versioned: [u32 BE len][version][u32 BE len][type][payload]
//	legacy:    [u32 BE len][type][payload]
//
// plus a historical fallback: frames whose leading length is implausibly
// large but which begin with the ZIP magic are whole flags archives.
func ParseBinaryFrame(data []byte) (BinaryFrame, error) {
	if len(data) < 4 {
		return BinaryFrame{}, ErrTruncatedFrame
	}

	first := binary.BigEndian.Uint32(data[:4])
	if first > maxHeaderField {
		if bytes.HasPrefix(data, zipMagic) {
			return BinaryFrame{Type: TypeFlagsZip, Payload: data}, nil
		}
		return BinaryFrame{}, fmt.Errorf("%w: header length %d", ErrTruncatedFrame, first)
	}
	if first == 0 {
		return BinaryFrame{}, ErrZeroLength
	}

	// A short leading field that parses as a semver selects the versioned
	// layout; anything else is the legacy layout with a leading type name.
	if first <= 20 && int(4+first) <= len(data) {
		candidate := string(data[4 : 4+first])
		if utf8.ValidString(candidate) {
			if _, err := parseVersion(candidate); err == nil {
				return parseVersionedFrame(candidate, data[4+first:])
			}
		}
	}

	return parseLegacyFrame(data)
}

func parseVersionedFrame(version string, rest []byte) (BinaryFrame, error) {
	name, payload, err := readLengthPrefixed(rest)
	if err != nil {
		return BinaryFrame{}, err
	}
	return BinaryFrame{Version: version, Type: name, Payload: payload}, nil
}

func parseLegacyFrame(data []byte) (BinaryFrame, error) {
	name, payload, err := readLengthPrefixed(data)
	if err != nil {
		return BinaryFrame{}, err
	}
	return BinaryFrame{Type: name, Payload: payload}, nil
}

func readLengthPrefixed(data []byte) (string, []byte, error) {
	if len(data) < 4 {
		return "", nil, ErrTruncatedFrame
	}
	n := binary.BigEndian.Uint32(data[:4])
	if n == 0 {
		return "", nil, ErrZeroLength
	}
	if n > maxHeaderField || int(4+n) > len(data) {
		return "", nil, ErrTruncatedFrame
	}
	raw := data[4 : 4+n]
	if !utf8.Valid(raw) {
		return "", nil, ErrInvalidUTF8
	}
	return string(raw), data[4+n:], nil
}

// EncodeBinaryFrame serializes a frame in the versioned layout; used by
// tests and producer simulators.
func EncodeBinaryFrame(version, frameType string, payload []byte) []byte {
	buf := make([]byte, 0, 8+len(version)+len(frameType)+len(payload))
	buf = appendLengthPrefixed(buf, version)
	buf = appendLengthPrefixed(buf, frameType)
	return append(buf, payload...)
}

// EncodeLegacyBinaryFrame serializes a frame in the unversioned layout.
func EncodeLegacyBinaryFrame(frameType string, payload []byte) []byte {
	buf := make([]byte, 0, 4+len(frameType)+len(payload))
	buf = appendLengthPrefixed(buf, frameType)
	return append(buf, payload...)
}

func appendLengthPrefixed(buf []byte, s string) []byte {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(s)))
	buf = append(buf, n[:]...)
	return append(buf, s...)
}
