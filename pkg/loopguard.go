package autobump

import (
	"regexp"
	"strings"
)

// VersionPlaceholder is replaced with the new tag in commit message templates.
const VersionPlaceholder = "{{version}}"

// DefaultCommitMessage is the template used when none is configured.
const DefaultCommitMessage = "ci: version bump to " + VersionPlaceholder

// LoopGuard recognizes commits created by a previous automated bump so a
// pushed bump commit does not trigger another bump.
type LoopGuard struct {
	re *regexp.Regexp
}

// NewLoopGuard builds a detector from the commit message template. Each
// placeholder becomes the quoted tag prefix followed by a dotted triple of
// integers; the rest of the template is used as expression text unchanged.
func NewLoopGuard(template, tagPrefix string) (*LoopGuard, error) {
	version := regexp.QuoteMeta(tagPrefix) + `\d+\.\d+\.\d+`
	expr := strings.ReplaceAll(template, VersionPlaceholder, version)
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, &PatternCompilationError{Name: "commit-message", Pattern: template, Err: err}
	}
	return &LoopGuard{re: re}, nil
}

// AlreadyBumped reports whether any message looks like a previous bump commit.
func (g *LoopGuard) AlreadyBumped(messages []string) bool {
	for _, m := range messages {
		if g.re.MatchString(m) {
			return true
		}
	}
	return false
}

// RenderCommitMessage substitutes every placeholder in template with tag.
func RenderCommitMessage(template, tag string) string {
	return strings.ReplaceAll(template, VersionPlaceholder, tag)
}
