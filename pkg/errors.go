package autobump

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors usable with errors.Is.
var (
	// ErrInvalidConfiguration indicates a setting that cannot be used as given.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrGitOperationFailed indicates a git (or before-commit) command failed.
	ErrGitOperationFailed = errors.New("git operation failed")

	// ErrManifestNotFound indicates the project manifest does not exist.
	ErrManifestNotFound = errors.New("manifest not found")

	// ErrVersionNotFound indicates the manifest exists but carries no version.
	ErrVersionNotFound = errors.New("version not found in manifest")
)

// PatternCompilationError reports a word pattern (or commit message template)
// that could not be compiled into a regular expression.
type PatternCompilationError struct {
	Name    string // which setting the pattern came from, e.g. "major-wording"
	Pattern string
	Err     error
}

func (e *PatternCompilationError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("invalid %s pattern %q: %v", e.Name, e.Pattern, e.Err)
	}
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *PatternCompilationError) Unwrap() error {
	return e.Err
}

// GitError represents a failed subprocess run by the orchestrator.
// It captures the command, the underlying error and anything written to stderr.
type GitError struct {
	Command string
	Args    []string
	Err     error
	Output  string
}

func (e *GitError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Command, strings.Join(e.Args, " "))
	if e.Output != "" {
		msg = fmt.Sprintf("%s: %s", msg, strings.TrimSpace(e.Output))
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *GitError) Unwrap() error {
	return e.Err
}

// NewGitError wraps err with ErrGitOperationFailed and the command details.
// Arguments are redacted so tokens embedded in remote URLs never reach logs.
func NewGitError(command string, args []string, err error, output string) *GitError {
	return &GitError{
		Command: command,
		Args:    redactArgs(args),
		Err:     fmt.Errorf("%w: %v", ErrGitOperationFailed, err),
		Output:  output,
	}
}

// ConfigError represents a single invalid setting.
type ConfigError struct {
	Parameter string
	Value     interface{}
	Err       error
}

func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("configuration error for %s = %v: %v", e.Parameter, e.Value, e.Err)
	}
	return fmt.Sprintf("configuration error for %s: %v", e.Parameter, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a ConfigError wrapping ErrInvalidConfiguration when
// err does not already do so.
func NewConfigError(parameter string, value interface{}, err error) *ConfigError {
	if !errors.Is(err, ErrInvalidConfiguration) {
		err = fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return &ConfigError{
		Parameter: parameter,
		Value:     value,
		Err:       err,
	}
}

func redactArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = redactURL(a)
	}
	return out
}

// redactURL hides the userinfo part of an https remote.
func redactURL(s string) string {
	if !strings.HasPrefix(s, "https://") {
		return s
	}
	rest := strings.TrimPrefix(s, "https://")
	at := strings.Index(rest, "@")
	if at < 0 {
		return s
	}
	return "https://***@" + rest[at+1:]
}
