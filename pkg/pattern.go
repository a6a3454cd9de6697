package autobump

import (
	"fmt"
	"regexp"
	"strings"
)

// PatternKind tells how a word pattern was interpreted.
type PatternKind int

const (
	// PatternLiteral is a plain word compiled as a case-insensitive expression.
	PatternLiteral PatternKind = iota
	// PatternRegex is a delimited "/body/flags" expression.
	PatternRegex
)

func (k PatternKind) String() string {
	if k == PatternRegex {
		return "regex"
	}
	return "literal"
}

// regexFlagAlphabet lists every flag character accepted after the closing
// delimiter. Not all of them have an RE2 equivalent, see flagPrefix.
const regexFlagAlphabet = "gmixXsuUAJ"

var delimitedPattern = regexp.MustCompile(`^/.+/[` + regexFlagAlphabet + `]*$`)

// Pattern is a compiled word pattern. The zero value is not usable; build one
// with CompilePattern.
type Pattern struct {
	kind  PatternKind
	word  string
	body  string
	flags string
	re    *regexp.Regexp
}

// CompilePattern turns a configured word into a matcher.
//
// A word shaped like /body/flags, where every flag appears at most once, is
// compiled as a regular expression with those flags. Anything else, including
// a delimited word with a repeated flag, is compiled as is with case-insensitive
// matching. Metacharacters in a literal word are not escaped.
func CompilePattern(word string) (Pattern, error) {
	if body, flags, ok := splitDelimited(word); ok {
		prefix, err := flagPrefix(flags)
		if err != nil {
			return Pattern{}, &PatternCompilationError{Pattern: word, Err: err}
		}
		re, err := regexp.Compile(prefix + body)
		if err != nil {
			return Pattern{}, &PatternCompilationError{Pattern: word, Err: err}
		}
		return Pattern{kind: PatternRegex, word: word, body: body, flags: flags, re: re}, nil
	}

	re, err := regexp.Compile("(?i)" + word)
	if err != nil {
		return Pattern{}, &PatternCompilationError{Pattern: word, Err: err}
	}
	return Pattern{kind: PatternLiteral, word: word, body: word, re: re}, nil
}

// MustCompilePattern is like CompilePattern but panics on error.
func MustCompilePattern(word string) Pattern {
	p, err := CompilePattern(word)
	if err != nil {
		panic(err)
	}
	return p
}

// splitDelimited reports the body and flags of a /body/flags word. It returns
// ok=false for plain words and for flag sets with a repeated character.
func splitDelimited(word string) (body, flags string, ok bool) {
	if !delimitedPattern.MatchString(word) {
		return "", "", false
	}
	last := strings.LastIndex(word, "/")
	body, flags = word[1:last], word[last+1:]
	if hasRepeatedChar(flags) {
		return "", "", false
	}
	return body, flags, true
}

// hasRepeatedChar is true when any character occurs twice, adjacent or not.
func hasRepeatedChar(s string) bool {
	seen := make(map[rune]bool, len(s))
	for _, r := range s {
		if seen[r] {
			return true
		}
		seen[r] = true
	}
	return false
}

// flagPrefix maps delimiter flags onto an RE2 inline flag group.
func flagPrefix(flags string) (string, error) {
	var inline strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's', 'U':
			inline.WriteRune(f)
		case 'g', 'u':
			// every search already scans the whole text; RE2 is always unicode aware
		default:
			return "", fmt.Errorf("unsupported regex flag %q", f)
		}
	}
	if inline.Len() == 0 {
		return "", nil
	}
	return "(?" + inline.String() + ")", nil
}

// Kind reports whether the word was taken as a literal or a delimited regex.
func (p Pattern) Kind() PatternKind { return p.kind }

// Body is the expression text without delimiters and flags.
func (p Pattern) Body() string { return p.body }

// Flags are the delimiter flags, empty for literals.
func (p Pattern) Flags() string { return p.flags }

// String returns the word the pattern was compiled from.
func (p Pattern) String() string { return p.word }

// MatchString reports whether text contains a match.
func (p Pattern) MatchString(text string) bool {
	if p.re == nil {
		return false
	}
	return p.re.MatchString(text)
}

// Find returns the leftmost match in text.
func (p Pattern) Find(text string) (string, bool) {
	if p.re == nil {
		return "", false
	}
	loc := p.re.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	return text[loc[0]:loc[1]], true
}
