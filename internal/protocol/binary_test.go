package protocol

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBinaryFrameVersioned(t *testing.T) {
	payload := []byte("zip-bytes")
	frame, err := ParseBinaryFrame(EncodeBinaryFrame("64.0.0", "flags_zip", payload))
	require.NoError(t, err)
	assert.Equal(t, "64.0.0", frame.Version)
	assert.Equal(t, "flags_zip", frame.Type)
	assert.Equal(t, payload, frame.Payload)
}

func TestParseBinaryFrameLegacy(t *testing.T) {
	payload := []byte{1, 2, 3}
	frame, err := ParseBinaryFrame(EncodeLegacyBinaryFrame("logos_zip", payload))
	require.NoError(t, err)
	assert.Empty(t, frame.Version)
	assert.Equal(t, "logos_zip", frame.Type)
	assert.Equal(t, payload, frame.Payload)
}

func TestParseBinaryFrameZipMagicFallback(t *testing.T) {
	// A raw ZIP archive: the magic reads as an absurd length field.
	raw := append([]byte{0x50, 0x4B, 0x03, 0x04}, []byte("rest of archive")...)
	frame, err := ParseBinaryFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeFlagsZip, frame.Type)
	assert.Equal(t, raw, frame.Payload)
}

func TestParseBinaryFrameZeroLength(t *testing.T) {
	data := make([]byte, 8)
	_, err := ParseBinaryFrame(data)
	require.True(t, errors.Is(err, ErrZeroLength))
}

func TestParseBinaryFrameTruncated(t *testing.T) {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], 100)
	_, err := ParseBinaryFrame(append(header[:], []byte("short")...))
	require.Error(t, err)
}

func TestParseBinaryFrameTooShort(t *testing.T) {
	_, err := ParseBinaryFrame([]byte{0x00, 0x01})
	require.True(t, errors.Is(err, ErrTruncatedFrame))
}

func TestParseBinaryFrameInvalidUTF8Type(t *testing.T) {
	var buf []byte
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], 2)
	buf = append(buf, n[:]...)
	buf = append(buf, 0xFF, 0xFE)
	buf = append(buf, []byte("payload")...)
	_, err := ParseBinaryFrame(buf)
	require.True(t, errors.Is(err, ErrInvalidUTF8))
}

func TestVersionGate(t *testing.T) {
	require.NoError(t, CheckVersion("64.0.0"))
	require.NoError(t, CheckVersion(MinimumVersion))
	// Prerelease suffixes are stripped before comparison.
	require.NoError(t, CheckVersion(MinimumVersion+"-rc1"))

	assert.Error(t, CheckVersion("1.0.0"))
	assert.ErrorIs(t, CheckVersion(""), ErrMissingVersion)
	assert.ErrorIs(t, CheckVersion("abc"), ErrInvalidVersion)

	assert.True(t, VersionTooOld("1.0.0"))
	assert.False(t, VersionTooOld("999.0.0"))
	assert.False(t, VersionTooOld("garbage"))
}
