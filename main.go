package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bcomnes/autobump/internal/config"
	autobump "github.com/bcomnes/autobump/pkg"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr, os.LookupEnv).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer, lookup config.LookupFunc) *cobra.Command {
	var (
		configPath string
		dryRun     bool
	)
	// flags binds every flag; only flags the user set are copied over the
	// layered configuration.
	flags := config.New()

	cmd := &cobra.Command{
		Use:   "autobump",
		Short: "Bump the project version from commit messages",
		Long: `Reads the commit messages of a push (from the GitHub event payload, or from
local history with --from-git), decides whether a major, minor, patch or
prerelease bump is due, writes the new version to the manifest and commits,
tags and pushes it.

Words may be plain text ("feat") or delimited regular expressions
("/^feat(\(.+\))?:/m"). A commit subject like "feat(api)!: ..." always
triggers a major bump.

Settings come from defaults, an optional YAML file (--config or
INPUT_CONFIG), the GitHub Actions environment (INPUT_*, GITHUB_*) and flags,
later sources winning.`,
		Example: `  autobump --dry-run --event ./event.json
  autobump --from-git --manifest Cargo.toml --tag-prefix v --skip-push
  autobump --rc-wording 'pre-(alpha|beta|rc)' --default prerelease`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := run(cmd.Context(), stdout, stderr, lookup, configPath, flags, cmd.Flags().Changed, dryRun)
			if err != nil {
				fmt.Fprintf(stderr, "✖  fatal     %v\n", err)
			}
			return err
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&configPath, "config", "c", "", "YAML config file")
	fs.BoolVar(&dryRun, "dry-run", false, "Decide and compute the new version without writing files or running git")
	fs.StringVar(&flags.Workspace, "workspace", flags.Workspace, "Directory holding the manifest and git checkout")
	fs.StringVar(&flags.Manifest, "manifest", flags.Manifest, "Manifest carrying the version (package.json, Cargo.toml or a .go file)")
	fs.StringVar(&flags.EventPath, "event", flags.EventPath, "GitHub event payload to read commits from")
	fs.BoolVar(&flags.FromGit, "from-git", flags.FromGit, "Read commits since the last tag from local history instead of the event")
	fs.IntVar(&flags.HistoryLimit, "history-limit", flags.HistoryLimit, "Maximum commits read with --from-git")
	fs.StringVar(&flags.MajorWording, "major-wording", flags.MajorWording, "Word or /regex/ triggering a major bump")
	fs.StringVar(&flags.MinorWording, "minor-wording", flags.MinorWording, "Word or /regex/ triggering a minor bump")
	fs.StringVar(&flags.PatchWording, "patch-wording", flags.PatchWording, "Word or /regex/ triggering a patch bump (disabled when empty)")
	fs.StringVar(&flags.RCWording, "rc-wording", flags.RCWording, "Word or /regex/ triggering a prerelease, e.g. pre-(alpha|beta) (disabled when empty)")
	fs.StringVar(&flags.Default, "default", flags.Default, "Bump when no word matches: major, minor, patch, prerelease or none")
	fs.StringVar(&flags.Preid, "preid", flags.Preid, "Prerelease identifier used when none comes from a commit")
	fs.StringVar(&flags.TagPrefix, "tag-prefix", flags.TagPrefix, "Prefix for the version tag, e.g. v")
	fs.StringVar(&flags.CommitMessage, "commit-message", flags.CommitMessage, "Bump commit message template")
	fs.StringVar(&flags.CommitBefore, "commit-before", flags.CommitBefore, "Command run before each bump commit")
	fs.BoolVar(&flags.Push, "push", flags.Push, "Use --push=false to stop after deciding the bump")
	fs.BoolVar(&flags.SkipCommit, "skip-commit", flags.SkipCommit, "Do not commit the manifest change")
	fs.BoolVar(&flags.SkipTag, "skip-tag", flags.SkipTag, "Do not create a tag")
	fs.BoolVar(&flags.SkipPush, "skip-push", flags.SkipPush, "Do not push commits or tags")
	fs.StringVar(&flags.TargetBranch, "target-branch", flags.TargetBranch, "Branch to commit to instead of the event branch")
	fs.StringVar(&flags.Ref, "ref", flags.Ref, "Git ref of the event, e.g. refs/heads/main")
	fs.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the autobump version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "autobump CLI version", Version)
		},
	})

	return cmd
}

// loadConfig layers defaults, the config file, the environment and the flags
// the user changed.
func loadConfig(lookup config.LookupFunc, configPath string, flags *config.Config, changed func(string) bool) (*config.Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg := config.New()
	if configPath == "" {
		configPath, _ = lookup("INPUT_CONFIG")
	}
	if configPath != "" {
		if err := cfg.LoadFile(configPath); err != nil {
			return nil, err
		}
	}
	cfg.LoadFromEnvironment(lookup)
	overlayFlags(cfg, flags, changed)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overlayFlags(dst, src *config.Config, changed func(string) bool) {
	strs := map[string]struct{ dst, src *string }{
		"workspace":      {&dst.Workspace, &src.Workspace},
		"manifest":       {&dst.Manifest, &src.Manifest},
		"event":          {&dst.EventPath, &src.EventPath},
		"major-wording":  {&dst.MajorWording, &src.MajorWording},
		"minor-wording":  {&dst.MinorWording, &src.MinorWording},
		"patch-wording":  {&dst.PatchWording, &src.PatchWording},
		"rc-wording":     {&dst.RCWording, &src.RCWording},
		"default":        {&dst.Default, &src.Default},
		"preid":          {&dst.Preid, &src.Preid},
		"tag-prefix":     {&dst.TagPrefix, &src.TagPrefix},
		"commit-message": {&dst.CommitMessage, &src.CommitMessage},
		"commit-before":  {&dst.CommitBefore, &src.CommitBefore},
		"target-branch":  {&dst.TargetBranch, &src.TargetBranch},
		"ref":            {&dst.Ref, &src.Ref},
		"log-level":      {&dst.LogLevel, &src.LogLevel},
	}
	for name, f := range strs {
		if changed(name) {
			*f.dst = *f.src
		}
	}
	bools := map[string]struct{ dst, src *bool }{
		"from-git":    {&dst.FromGit, &src.FromGit},
		"push":        {&dst.Push, &src.Push},
		"skip-commit": {&dst.SkipCommit, &src.SkipCommit},
		"skip-tag":    {&dst.SkipTag, &src.SkipTag},
		"skip-push":   {&dst.SkipPush, &src.SkipPush},
	}
	for name, f := range bools {
		if changed(name) {
			*f.dst = *f.src
		}
	}
	if changed("history-limit") {
		dst.HistoryLimit = src.HistoryLimit
	}
}

// newLogger builds the console logger. Colors are off when NO_COLOR is set.
func newLogger(w io.Writer, level string, lookup config.LookupFunc) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), autobump.NewConfigError("log-level", level, err)
	}
	noColor, _ := lookup("NO_COLOR")
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: noColor != ""}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

// collectMessages gathers the commit messages of the change set.
func collectMessages(cfg *config.Config, log zerolog.Logger) ([]string, error) {
	if cfg.FromGit {
		messages, err := autobump.ReadHistoryMessages(cfg.Workspace, cfg.HistoryLimit)
		if err != nil {
			return nil, err
		}
		log.Info().Int("commits", len(messages)).Msg("read commits since the last tag")
		return messages, nil
	}
	messages, ok, err := autobump.ReadEventMessages(cfg.EventPath)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Warn().Str("default", cfg.Default).Msg("couldn't find any commits in this event, applying the default bump")
	}
	return messages, nil
}

func run(ctx context.Context, stdout, stderr io.Writer, lookup config.LookupFunc, configPath string, flags *config.Config, changed func(string) bool, dryRun bool) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg, err := loadConfig(lookup, configPath, flags, changed)
	if err != nil {
		return err
	}
	log, err := newLogger(stderr, cfg.LogLevel, lookup)
	if err != nil {
		return err
	}

	messages, err := collectMessages(cfg, log)
	if err != nil {
		return err
	}
	opts, err := cfg.Options(messages)
	if err != nil {
		return err
	}
	opts.Logger = &log
	opts.Output = stdout

	var res autobump.Result
	if dryRun {
		res, err = autobump.DryRun(opts)
	} else {
		res, err = autobump.Run(ctx, opts)
	}
	if err != nil {
		return err
	}

	if res.Skipped {
		fmt.Fprintf(stdout, "✔  success   %s\n", res.Reason)
		return nil
	}
	if dryRun {
		fmt.Fprintln(stdout, "✔  success   Dry run complete, no files were modified.")
	} else {
		fmt.Fprintln(stdout, "✔  success   Version bumped!")
	}
	fmt.Fprintf(stdout, "Old Version: %s\n", res.OldVersion)
	fmt.Fprintf(stdout, "New Version: %s\n", res.NewVersion)
	fmt.Fprintf(stdout, "Bump Type:   %s\n", res.Directive)
	fmt.Fprintf(stdout, "Tag:         %s\n", res.Tag)
	if len(res.UpdatedFiles) > 0 {
		if dryRun {
			fmt.Fprintln(stdout, "Files that would be updated:")
		} else {
			fmt.Fprintln(stdout, "Files updated:")
		}
		for _, f := range res.UpdatedFiles {
			fmt.Fprintf(stdout, "  %s\n", f)
		}
	}
	return nil
}
