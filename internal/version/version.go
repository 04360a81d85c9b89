// Package version detects which schema version raw test metadata conforms to.
package version

import (
	"encoding/json"
	"strings"

	"golang.org/x/mod/semver"
)

type Version int

const (
	Unknown Version = iota
	V1
	V2
	V3
)

func (v Version) String() string {
	switch v {
	case V1:
		return "v1"
	case V2:
		return "v2"
	case V3:
		return "v3"
	}

	return "unknown"
}

// Grouped classifies a grouped test cases value:
// v1 carries a numeric `version` of 1, v2 and v3 carry a `schemaVersion`
// in the semantic version ranges ^2.0.0 and ^3.0.0.
func Grouped(raw map[string]json.RawMessage) Version {
	if v, ok := raw["version"]; ok {
		var n float64
		if err := json.Unmarshal(v, &n); err == nil && n == 1 {
			return V1
		}
	}

	sv, ok := raw["schemaVersion"]
	if !ok {
		return Unknown
	}

	var schemaVersion string
	if err := json.Unmarshal(sv, &schemaVersion); err != nil {
		return Unknown
	}

	switch {
	case satisfiesCaret(schemaVersion, "v2"):
		return V2
	case satisfiesCaret(schemaVersion, "v3"):
		return V3
	}

	return Unknown
}

// Recording classifies a single test recording: v3 recordings carry a
// `timeStampedPointRange` (which may be null), v1 recordings carry `steps`.
func Recording(raw map[string]json.RawMessage) Version {
	if _, ok := raw["timeStampedPointRange"]; ok {
		return V3
	}
	if _, ok := raw["steps"]; ok {
		return V1
	}

	return V2
}

// satisfiesCaret reports whether version matches the range ^<major>.0.0,
// i.e. any stable release of that major version. Shorthands such as "2" or
// "2.1" are not versions.
func satisfiesCaret(version, major string) bool {
	v := "v" + version
	withoutBuild, _, _ := strings.Cut(v, "+")

	return semver.Canonical(v) == withoutBuild && semver.Major(v) == major && semver.Prerelease(v) == ""
}
