package autobump

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog"
)

// Reasons reported in Result.Reason when a run stops without bumping.
const (
	ReasonPreviousBump = "No action necessary because we found a previous bump!"
	ReasonNoKeywords   = "No version keywords found, skipping bump."
	ReasonPushDisabled = "User requested to skip pushing new tag and manifest. Finished."
)

// Options configures a bump run.
type Options struct {
	// Dir is the working directory for git commands; Manifest is resolved
	// against it when relative.
	Dir      string
	Manifest string

	// Messages are the commit messages of the change set being released.
	Messages []string
	Words    Words

	TagPrefix     string
	CommitMessage string // template with VersionPlaceholder; DefaultCommitMessage when empty
	BeforeCommit  string // command run before each commit, split on spaces

	Push       bool
	SkipCommit bool
	SkipTag    bool
	SkipPush   bool

	UserName  string
	UserEmail string

	Ref          string // e.g. refs/heads/main
	HeadRef      string // pull request source branch
	TargetBranch string

	Actor      string
	Token      string
	Repository string // owner/name

	// OutputFile receives "newTag=<tag>" lines; when empty the legacy
	// ::set-output command is written to Output (os.Stdout by default).
	OutputFile string
	Output     io.Writer

	Executor Executor        // NewExecExecutor() when nil
	Logger   *zerolog.Logger // disabled when nil
}

// Result describes what a run decided and did.
type Result struct {
	Skipped bool
	Reason  string

	Directive Directive
	Rule      string // classifier rule that decided, or "default"

	OldVersion string
	NewVersion string
	Tag        string
	Branch     string

	UpdatedFiles []string
}

func (o Options) logger() *zerolog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	nop := zerolog.Nop()
	return &nop
}

func (o Options) manifestPath() string {
	if o.Manifest == "" || filepath.IsAbs(o.Manifest) || o.Dir == "" {
		return o.Manifest
	}
	return filepath.Join(o.Dir, o.Manifest)
}

func (o Options) template() string {
	if o.CommitMessage == "" {
		return DefaultCommitMessage
	}
	return o.CommitMessage
}

// Decide runs the loop guard and the classifier. It never touches the file
// system; a skipped Result means no bump should happen.
func Decide(opts Options) (Result, error) {
	log := opts.logger()
	var res Result

	guard, err := NewLoopGuard(opts.template(), opts.TagPrefix)
	if err != nil {
		return res, err
	}
	log.Debug().Strs("messages", opts.Messages).Msg("commit messages")
	if guard.AlreadyBumped(opts.Messages) {
		res.Skipped, res.Reason = true, ReasonPreviousBump
		return res, nil
	}

	c, err := NewClassifier(opts.Words)
	if err != nil {
		return res, err
	}
	log.Debug().
		Str("major", opts.Words.Major).
		Str("minor", opts.Words.Minor).
		Str("patch", opts.Words.Patch).
		Str("prerelease", opts.Words.Prerelease).
		Str("beforeCommit", opts.BeforeCommit).
		Msg("config words")

	res.Directive, res.Rule = c.Explain(opts.Messages)
	log.Info().Str("rule", res.Rule).Stringer("directive", res.Directive).Msg("version action decided")
	if res.Directive.IsNone() {
		res.Skipped, res.Reason = true, ReasonNoKeywords
	}
	return res, nil
}

// plan computes the new version for a decided bump without mutating anything.
func plan(opts Options, res Result) (Result, Manifest, error) {
	manifest, err := OpenManifest(opts.manifestPath())
	if err != nil {
		return res, nil, err
	}
	current, err := manifest.Version()
	if err != nil {
		return res, nil, err
	}
	next, err := BumpVersion(current, res.Directive)
	if err != nil {
		return res, nil, fmt.Errorf("bumping %s: %w", current, err)
	}
	res.OldVersion = current
	res.NewVersion = next
	res.Tag = opts.TagPrefix + next

	branch, _ := ResolveBranch(opts.Ref, opts.HeadRef, opts.TargetBranch)
	res.Branch = branch
	return res, manifest, nil
}

// DryRun reports what Run would do without writing files or running git.
func DryRun(opts Options) (Result, error) {
	res, err := Decide(opts)
	if err != nil || res.Skipped {
		return res, err
	}
	res, manifest, err := plan(opts, res)
	if err != nil {
		return res, err
	}
	res.UpdatedFiles = []string{manifest.Path()}
	return res, nil
}

// Run decides the bump for opts.Messages and, when one is due, writes the new
// version to the manifest, commits, tags and pushes it.
func Run(ctx context.Context, opts Options) (Result, error) {
	log := opts.logger()

	res, err := Decide(opts)
	if err != nil || res.Skipped {
		return res, err
	}
	if !opts.Push {
		res.Skipped, res.Reason = true, ReasonPushDisabled
		return res, nil
	}

	res, manifest, err := plan(opts, res)
	if err != nil {
		return res, err
	}
	if res.Branch == "" {
		return res, NewConfigError("ref", opts.Ref, errors.New("cannot determine the branch to push to"))
	}

	executor := opts.Executor
	if executor == nil {
		executor = NewExecExecutor()
	}
	repo := gitRepo{exec: executor, dir: opts.Dir}
	if err := repo.checkGit(ctx); err != nil {
		return res, err
	}
	if err := repo.configUser(ctx, opts.UserName, opts.UserEmail); err != nil {
		return res, err
	}
	_, isPullRequest := ResolveBranch(opts.Ref, opts.HeadRef, opts.TargetBranch)
	log.Info().Str("branch", res.Branch).Bool("pullRequest", isPullRequest).Msg("current branch")
	log.Info().Str("current", res.OldVersion).Stringer("version", res.Directive).Str("new", res.NewVersion).Msg("bumping")

	message := RenderCommitMessage(opts.template(), res.Tag)

	// The checkout may be a detached HEAD; commit there first so the
	// manifest in the workspace carries the new version either way.
	if err := manifest.SetVersion(res.NewVersion); err != nil {
		return res, err
	}
	res.UpdatedFiles = manifest.Files()
	if !opts.SkipCommit {
		if err := repo.commitAll(ctx, opts.BeforeCommit, message); err != nil {
			return res, err
		}
	}

	if isPullRequest {
		if err := repo.fetch(ctx); err != nil {
			return res, err
		}
	}
	if err := repo.checkout(ctx, res.Branch); err != nil {
		return res, err
	}
	if err := manifest.SetVersion(res.NewVersion); err != nil {
		return res, err
	}
	for _, f := range manifest.Files() {
		if !slices.Contains(res.UpdatedFiles, f) {
			res.UpdatedFiles = append(res.UpdatedFiles, f)
		}
	}
	if !opts.SkipCommit {
		if err := repo.commitAll(ctx, opts.BeforeCommit, message); err != nil {
			log.Warn().Err(err).Msg("second commit failed; only needed when the branch was not checked out yet")
		}
	}

	if err := writeOutput(opts, "newTag", res.Tag); err != nil {
		return res, err
	}

	remote := RemoteURL(opts.Actor, opts.Token, opts.Repository)
	if !opts.SkipTag {
		if err := repo.tag(ctx, res.Tag); err != nil {
			return res, err
		}
		if !opts.SkipPush {
			if err := repo.push(ctx, remote, "--follow-tags"); err != nil {
				return res, err
			}
			if err := repo.push(ctx, remote, "--tags"); err != nil {
				return res, err
			}
		}
	} else if !opts.SkipPush {
		if err := repo.push(ctx, remote); err != nil {
			return res, err
		}
	}
	return res, nil
}

// writeOutput publishes a step output for later workflow steps.
func writeOutput(opts Options, name, value string) error {
	if opts.OutputFile != "" {
		f, err := os.OpenFile(opts.OutputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("opening output file: %w", err)
		}
		defer f.Close()
		_, err = fmt.Fprintf(f, "%s=%s\n", name, value)
		return err
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	_, err := fmt.Fprintf(out, "::set-output name=%s::%s\n", name, value)
	return err
}
