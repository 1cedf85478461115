package protocol

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// MinimumVersion is the oldest producer protocol the hub accepts. Only the
// MAJOR.MINOR.PATCH core is compared; prerelease suffixes are ignored.
const MinimumVersion = "52.0.0"

var minimumVersion = semver.MustParse(MinimumVersion)

func parseVersion(raw string) (*semver.Version, error) {
	v, err := semver.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", raw, err)
	}
	return v, nil
}

// CheckVersion reports whether the given version string meets the minimum.
// The error distinguishes a malformed version from a too-old one.
func CheckVersion(raw string) error {
	if raw == "" {
		return ErrMissingVersion
	}
	v, err := parseVersion(raw)
	if err != nil {
		return ErrInvalidVersion
	}
	core := semver.New(v.Major(), v.Minor(), v.Patch(), "", "")
	if core.LessThan(minimumVersion) {
		return fmt.Errorf("protocol version %s below minimum %s", raw, MinimumVersion)
	}
	return nil
}

// VersionTooOld reports whether the version parses but fails the minimum.
func VersionTooOld(raw string) bool {
	v, err := parseVersion(raw)
	if err != nil {
		return false
	}
	core := semver.New(v.Major(), v.Minor(), v.Patch(), "", "")
	return core.LessThan(minimumVersion)
}
