package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	autobump "github.com/bcomnes/autobump/pkg"
)

const (
	// DefaultMajorWording marks a breaking change in a commit message.
	DefaultMajorWording = "BREAKING CHANGE"

	// DefaultMinorWording marks a new feature.
	DefaultMinorWording = "feat"

	// DefaultBump applies when no word matches, including when there are no commits.
	DefaultBump = "patch"

	// DefaultManifest is the manifest file looked up in the workspace.
	DefaultManifest = "package.json"

	// DefaultUserName and DefaultUserEmail author the bump commit.
	DefaultUserName  = "Automated Version Bump"
	DefaultUserEmail = "gh-action-bump-version@users.noreply.github.com"
)

// Config holds every autobump setting. Values are layered: defaults, then an
// optional YAML file, then the GitHub Actions environment, then CLI flags.
type Config struct {
	// Inputs
	Workspace    string `yaml:"workspace"`
	Manifest     string `yaml:"manifest"`
	EventPath    string `yaml:"event-path"`
	FromGit      bool   `yaml:"from-git"`
	HistoryLimit int    `yaml:"history-limit"`

	// Words
	MajorWording string `yaml:"major-wording"`
	MinorWording string `yaml:"minor-wording"`
	PatchWording string `yaml:"patch-wording"`
	RCWording    string `yaml:"rc-wording"`
	Default      string `yaml:"default"`
	Preid        string `yaml:"preid"`

	// Git
	TagPrefix     string `yaml:"tag-prefix"`
	CommitMessage string `yaml:"commit-message"`
	CommitBefore  string `yaml:"commit-before"`
	Push          bool   `yaml:"push"`
	SkipCommit    bool   `yaml:"skip-commit"`
	SkipTag       bool   `yaml:"skip-tag"`
	SkipPush      bool   `yaml:"skip-push"`
	TargetBranch  string `yaml:"target-branch"`
	UserName      string `yaml:"user-name"`
	UserEmail     string `yaml:"user-email"`

	// Provided by the runner, never read from the file
	Ref        string `yaml:"-"`
	HeadRef    string `yaml:"-"`
	Actor      string `yaml:"-"`
	Token      string `yaml:"-"`
	Repository string `yaml:"-"`
	OutputFile string `yaml:"-"`

	LogLevel string `yaml:"log-level"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Workspace:     ".",
		Manifest:      DefaultManifest,
		HistoryLimit:  autobump.DefaultHistoryLimit,
		MajorWording:  DefaultMajorWording,
		MinorWording:  DefaultMinorWording,
		Default:       DefaultBump,
		CommitMessage: autobump.DefaultCommitMessage,
		Push:          true,
		UserName:      DefaultUserName,
		UserEmail:     DefaultUserEmail,
		LogLevel:      "info",
	}
}

// LoadFile overlays the YAML document at path. Keys absent from the file keep
// their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return autobump.NewConfigError("config", path, err)
	}
	return nil
}

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// LoadFromEnvironment overlays the GitHub Actions environment. Action inputs
// arrive as INPUT_<NAME>; an empty input keeps the current value.
func (c *Config) LoadFromEnvironment(lookup LookupFunc) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	// Only the exact string "true" (or "false" for push) flips a switch.
	flag := func(key, want string, dst *bool, set bool) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) == want {
			*dst = set
		}
	}

	str("GITHUB_WORKSPACE", &c.Workspace)
	if dir, ok := lookup("PACKAGEJSON_DIR"); ok && dir != "" {
		c.Workspace = filepath.Join(c.Workspace, dir)
	}
	str("GITHUB_EVENT_PATH", &c.EventPath)

	str("INPUT_MANIFEST", &c.Manifest)
	flag("INPUT_FROM-GIT", "true", &c.FromGit, true)
	str("INPUT_MAJOR-WORDING", &c.MajorWording)
	str("INPUT_MINOR-WORDING", &c.MinorWording)
	str("INPUT_PATCH-WORDING", &c.PatchWording)
	str("INPUT_RC-WORDING", &c.RCWording)
	str("INPUT_DEFAULT", &c.Default)
	str("INPUT_PREID", &c.Preid)

	str("INPUT_TAG-PREFIX", &c.TagPrefix)
	str("INPUT_COMMIT-MESSAGE", &c.CommitMessage)
	str("INPUT_COMMIT-BEFORE", &c.CommitBefore)
	flag("INPUT_PUSH", "false", &c.Push, false)
	flag("INPUT_SKIP-COMMIT", "true", &c.SkipCommit, true)
	flag("INPUT_SKIP-TAG", "true", &c.SkipTag, true)
	flag("INPUT_SKIP-PUSH", "true", &c.SkipPush, true)
	str("INPUT_TARGET-BRANCH", &c.TargetBranch)
	str("INPUT_LOG-LEVEL", &c.LogLevel)

	str("GITHUB_USER", &c.UserName)
	str("GITHUB_EMAIL", &c.UserEmail)
	str("GITHUB_REF", &c.Ref)
	str("GITHUB_HEAD_REF", &c.HeadRef)
	str("GITHUB_ACTOR", &c.Actor)
	str("GITHUB_TOKEN", &c.Token)
	str("GITHUB_REPOSITORY", &c.Repository)
	str("GITHUB_OUTPUT", &c.OutputFile)
}

// Words converts the word settings for the classifier.
func (c *Config) Words() (autobump.Words, error) {
	kind, err := autobump.ParseKind(c.Default)
	if err != nil {
		return autobump.Words{}, autobump.NewConfigError("default", c.Default, err)
	}
	return autobump.Words{
		Major:        c.MajorWording,
		Minor:        c.MinorWording,
		Patch:        c.PatchWording,
		Prerelease:   c.RCWording,
		Default:      kind,
		DefaultPreid: c.Preid,
	}, nil
}

// Validate checks every setting that can be checked before a run, including
// compiling all word patterns and the commit message template.
func (c *Config) Validate() error {
	var errs []error
	words, err := c.Words()
	if err != nil {
		errs = append(errs, err)
	} else if _, err := autobump.NewClassifier(words); err != nil {
		errs = append(errs, err)
	}
	if _, err := autobump.NewLoopGuard(c.CommitMessage, c.TagPrefix); err != nil {
		errs = append(errs, err)
	}
	if c.Manifest == "" {
		errs = append(errs, autobump.NewConfigError("manifest", nil, errors.New("must not be empty")))
	}
	if c.HistoryLimit < 0 {
		errs = append(errs, autobump.NewConfigError("history-limit", c.HistoryLimit, errors.New("must not be negative")))
	}
	return errors.Join(errs...)
}

// Options builds the run options for the given commit messages.
func (c *Config) Options(messages []string) (autobump.Options, error) {
	words, err := c.Words()
	if err != nil {
		return autobump.Options{}, err
	}
	return autobump.Options{
		Dir:           c.Workspace,
		Manifest:      c.Manifest,
		Messages:      messages,
		Words:         words,
		TagPrefix:     c.TagPrefix,
		CommitMessage: c.CommitMessage,
		BeforeCommit:  c.CommitBefore,
		Push:          c.Push,
		SkipCommit:    c.SkipCommit,
		SkipTag:       c.SkipTag,
		SkipPush:      c.SkipPush,
		UserName:      c.UserName,
		UserEmail:     c.UserEmail,
		Ref:           c.Ref,
		HeadRef:       c.HeadRef,
		TargetBranch:  c.TargetBranch,
		Actor:         c.Actor,
		Token:         c.Token,
		Repository:    c.Repository,
		OutputFile:    c.OutputFile,
	}, nil
}
