package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"version":"64.0.0","type":"update","payload":{"fop":"A"}}`))
	require.NoError(t, err)
	assert.Equal(t, "64.0.0", env.Version)
	assert.Equal(t, TypeUpdate, env.Type)
	assert.JSONEq(t, `{"fop":"A"}`, string(env.Payload))
}

func TestParseEnvelopeMissingVersion(t *testing.T) {
	_, err := ParseEnvelope([]byte(`{"type":"update","payload":{}}`))
	require.True(t, errors.Is(err, ErrMissingVersion))
}

func TestParseEnvelopeInvalidVersion(t *testing.T) {
	_, err := ParseEnvelope([]byte(`{"version":"not-a-version","type":"update","payload":{}}`))
	require.True(t, errors.Is(err, ErrInvalidVersion))
}

func TestParseEnvelopeMalformedJSON(t *testing.T) {
	_, err := ParseEnvelope([]byte(`{"version":`))
	require.Error(t, err)
}

func TestNormalizeBinaryType(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		known bool
	}{
		{"database_zip", TypeDatabaseZip, true},
		{"database", TypeDatabaseZip, true},
		{"flags", TypeFlagsZip, true},
		{"flags_zip", TypeFlagsZip, true},
		{"logos_zip", TypeLogosZip, true},
		{"pictures", TypePicturesZip, true},
		{"translations_zip", TypeTranslationsZip, true},
		{"mystery", "mystery", false},
	}
	for _, tc := range tests {
		got, known := NormalizeBinaryType(tc.in)
		assert.Equal(t, tc.want, got, tc.in)
		assert.Equal(t, tc.known, known, tc.in)
	}
}
