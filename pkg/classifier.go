package autobump

import (
	"regexp"
	"strings"
)

// breakingChange matches the conventional commit "type(scope)!:" marker at the
// start of a message.
var breakingChange = regexp.MustCompile(`^([a-zA-Z]+)(\(.+\))?!:`)

// Words configures the classifier. Empty Patch and Prerelease words disable
// those rules; Major and Minor are always evaluated.
type Words struct {
	Major      string
	Minor      string
	Patch      string
	Prerelease string

	// Default is used when no rule fires.
	Default Kind
	// DefaultPreid is the prerelease identifier used when none is taken
	// from a commit message.
	DefaultPreid string
}

// Classifier decides the bump for a set of commit messages. It is immutable
// once built and safe for concurrent use.
type Classifier struct {
	words      Words
	major      Pattern
	minor      Pattern
	patch      Pattern
	prerelease Pattern
}

// NewClassifier compiles every configured word. Errors are
// *PatternCompilationError values naming the offending setting.
func NewClassifier(words Words) (*Classifier, error) {
	c := &Classifier{words: words}
	for _, w := range []struct {
		name string
		word string
		dst  *Pattern
	}{
		{"major-wording", words.Major, &c.major},
		{"minor-wording", words.Minor, &c.minor},
		{"patch-wording", words.Patch, &c.patch},
		{"rc-wording", words.Prerelease, &c.prerelease},
	} {
		p, err := CompilePattern(w.word)
		if err != nil {
			if pce, ok := err.(*PatternCompilationError); ok {
				pce.Name = w.name
			}
			return nil, err
		}
		*w.dst = p
	}
	return c, nil
}

// Classify is a convenience wrapper compiling words and classifying messages
// in one call.
func Classify(messages []string, words Words) (Directive, error) {
	c, err := NewClassifier(words)
	if err != nil {
		return Directive{}, err
	}
	return c.Classify(messages), nil
}

// rule yields a directive when it applies to the messages.
type rule struct {
	name   string
	decide func(c *Classifier, messages []string) (Directive, bool)
}

// rules are evaluated in order; the first one that applies wins.
var rules = []rule{
	{
		name: "breaking-change",
		decide: func(_ *Classifier, messages []string) (Directive, bool) {
			return Directive{Kind: KindMajor}, anyMatch(messages, breakingChange.MatchString)
		},
	},
	{
		name: "major",
		decide: func(c *Classifier, messages []string) (Directive, bool) {
			return Directive{Kind: KindMajor}, anyMatch(messages, c.major.MatchString)
		},
	},
	{
		name: "minor",
		decide: func(c *Classifier, messages []string) (Directive, bool) {
			return Directive{Kind: KindMinor}, anyMatch(messages, c.minor.MatchString)
		},
	},
	{
		name: "patch",
		decide: func(c *Classifier, messages []string) (Directive, bool) {
			if c.words.Patch == "" {
				return Directive{}, false
			}
			return Directive{Kind: KindPatch}, anyMatch(messages, c.patch.MatchString)
		},
	},
	{
		name: "prerelease",
		decide: func(c *Classifier, messages []string) (Directive, bool) {
			if c.words.Prerelease == "" {
				return Directive{}, false
			}
			for _, m := range messages {
				found, ok := c.prerelease.Find(m)
				if !ok {
					continue
				}
				return Directive{Kind: KindPrerelease, Preid: preidFrom(found)}, true
			}
			return Directive{}, false
		},
	},
}

// Classify returns the single bump directive for messages. An empty message
// list is valid and resolves through the default bump.
func (c *Classifier) Classify(messages []string) Directive {
	d, _ := c.Explain(messages)
	return d
}

// Explain is Classify that also names the rule that decided, or "default".
func (c *Classifier) Explain(messages []string) (Directive, string) {
	d, by := Directive{Kind: c.words.Default}, "default"
	for _, r := range rules {
		if rd, ok := r.decide(c, messages); ok {
			d, by = rd, r.name
			break
		}
	}
	d = c.dropUntriggeredPrerelease(d, messages)
	d = c.completePreid(d)
	return d, by
}

// dropUntriggeredPrerelease turns a prerelease into no bump when a prerelease
// word is configured but no message carries it.
func (c *Classifier) dropUntriggeredPrerelease(d Directive, messages []string) Directive {
	if d.Kind != KindPrerelease || c.words.Prerelease == "" {
		return d
	}
	if anyMatch(messages, c.prerelease.MatchString) {
		return d
	}
	return Directive{Kind: KindNone}
}

// completePreid fills in the default prerelease identifier.
func (c *Classifier) completePreid(d Directive) Directive {
	if d.Kind == KindPrerelease && d.Preid == "" {
		d.Preid = c.words.DefaultPreid
	}
	return d
}

// preidFrom takes the identifier after the first "-" of a matched word,
// e.g. "pre-beta" yields "beta".
func preidFrom(found string) string {
	parts := strings.Split(found, "-")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func anyMatch(messages []string, match func(string) bool) bool {
	for _, m := range messages {
		if match(m) {
			return true
		}
	}
	return false
}
