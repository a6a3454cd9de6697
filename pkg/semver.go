package autobump

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// normalizeVersion ensures the version string starts with a "v".
// An empty version or "dev" bumps from "v0.0.0".
func normalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || v == "dev" {
		return "v0.0.0"
	}
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}

// parseSemVer extracts the numerical components and prerelease from a
// canonical semver string (with a leading "v" and no build metadata).
func parseSemVer(version string) (major, minor, patch int, prerelease string, err error) {
	vWithoutPrefix := strings.TrimPrefix(version, "v")
	parts := strings.SplitN(vWithoutPrefix, "-", 2)
	numParts := strings.Split(parts[0], ".")
	if len(numParts) != 3 {
		err = fmt.Errorf("unexpected version format: %s", version)
		return
	}

	if major, err = strconv.Atoi(numParts[0]); err != nil {
		return
	}
	if minor, err = strconv.Atoi(numParts[1]); err != nil {
		return
	}
	if patch, err = strconv.Atoi(numParts[2]); err != nil {
		return
	}
	if len(parts) == 2 {
		prerelease = parts[1]
	}
	return
}

// formatSemVer builds a version string without the "v" prefix.
func formatSemVer(major, minor, patch int, prerelease string) string {
	base := fmt.Sprintf("%d.%d.%d", major, minor, patch)
	if prerelease != "" {
		return base + "-" + prerelease
	}
	return base
}

// BumpVersion applies d to current and returns the new version without a
// "v" prefix. It follows the increment rules of npm's version command, so a
// prerelease of the target release is finalized instead of skipped over.
func BumpVersion(current string, d Directive) (string, error) {
	v := normalizeVersion(current)
	if !semver.IsValid(v) || !hasFullCore(v) {
		return "", fmt.Errorf("current version %q is not valid semver", current)
	}
	major, minor, patch, prerelease, err := parseSemVer(semver.Canonical(v))
	if err != nil {
		return "", err
	}

	switch d.Kind {
	case KindMajor:
		if minor != 0 || patch != 0 || prerelease == "" {
			major++
		}
		minor, patch, prerelease = 0, 0, ""
	case KindMinor:
		if patch != 0 || prerelease == "" {
			minor++
		}
		patch, prerelease = 0, ""
	case KindPatch:
		if prerelease == "" {
			patch++
		}
		prerelease = ""
	case KindPrerelease:
		if prerelease == "" {
			patch++
		}
		prerelease = bumpPrerelease(prerelease, d.Preid)
	case KindNone:
		return "", errors.New("no bump requested")
	default:
		return "", fmt.Errorf("unknown bump kind: %d", d.Kind)
	}

	next := formatSemVer(major, minor, patch, prerelease)
	if !semver.IsValid("v" + next) {
		return "", fmt.Errorf("bumped version %q is not valid semver", next)
	}
	return next, nil
}

// bumpPrerelease increments the last numeric identifier of prerelease, or
// starts a new ".0" series. A preid different from the current leading
// identifier restarts the series at "<preid>.0".
func bumpPrerelease(prerelease, preid string) string {
	var ids []string
	if prerelease == "" {
		ids = []string{"0"}
	} else {
		ids = strings.Split(prerelease, ".")
		bumped := false
		for i := len(ids) - 1; i >= 0; i-- {
			if n, err := strconv.Atoi(ids[i]); err == nil {
				ids[i] = strconv.Itoa(n + 1)
				bumped = true
				break
			}
		}
		if !bumped {
			ids = append(ids, "0")
		}
	}

	if preid != "" {
		if ids[0] != preid || len(ids) < 2 || !isNumeric(ids[1]) {
			ids = []string{preid, "0"}
		}
	}
	return strings.Join(ids, ".")
}

// hasFullCore reports whether v spells out major, minor and patch. x/mod
// accepts shorthands like "v1.2" that npm rejects.
func hasFullCore(v string) bool {
	core := strings.TrimPrefix(v, "v")
	core, _, _ = strings.Cut(core, "+")
	core, _, _ = strings.Cut(core, "-")
	return strings.Count(core, ".") == 2
}

func isNumeric(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
