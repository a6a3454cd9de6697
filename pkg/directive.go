package autobump

import (
	"fmt"
	"strings"
)

// Kind is the kind of version bump a set of commits asks for.
type Kind int

const (
	// KindNone means no bump.
	KindNone Kind = iota
	// KindMajor increments the major version.
	KindMajor
	// KindMinor increments the minor version.
	KindMinor
	// KindPatch increments the patch version.
	KindPatch
	// KindPrerelease starts or advances a prerelease series.
	KindPrerelease
)

func (k Kind) String() string {
	switch k {
	case KindMajor:
		return "major"
	case KindMinor:
		return "minor"
	case KindPatch:
		return "patch"
	case KindPrerelease:
		return "prerelease"
	default:
		return "none"
	}
}

// ParseKind parses a bump keyword. The empty string means no bump.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return KindNone, nil
	case "major":
		return KindMajor, nil
	case "minor":
		return KindMinor, nil
	case "patch":
		return KindPatch, nil
	case "prerelease":
		return KindPrerelease, nil
	}
	return KindNone, fmt.Errorf("%w: unknown bump %q", ErrInvalidConfiguration, s)
}

// Directive is the decided bump. Preid is only meaningful for KindPrerelease.
type Directive struct {
	Kind  Kind
	Preid string
}

// IsNone reports whether no bump should happen.
func (d Directive) IsNone() bool {
	return d.Kind == KindNone
}

// String renders the directive the way npm's version command takes it,
// e.g. "minor" or "prerelease --preid=beta".
func (d Directive) String() string {
	if d.Kind == KindPrerelease && d.Preid != "" {
		return fmt.Sprintf("prerelease --preid=%s", d.Preid)
	}
	return d.Kind.String()
}
