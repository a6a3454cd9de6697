// main_test.go
package main

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcomnes/autobump/internal/config"
	autobump "github.com/bcomnes/autobump/pkg"
)

// TestMain triggers the CLI as a subprocess when GO_HELPER_PROCESS is set.
func TestMain(m *testing.M) {
	if os.Getenv("GO_HELPER_PROCESS") == "1" {
		main()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

// cleanEnv drops anything a CI runner sets that the CLI would pick up.
func cleanEnv() []string {
	var env []string
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "GITHUB_") || strings.HasPrefix(kv, "INPUT_") || strings.HasPrefix(kv, "PACKAGEJSON_DIR=") {
			continue
		}
		env = append(env, kv)
	}
	return append(env, "GIT_CONFIG_GLOBAL="+os.DevNull, "GIT_CONFIG_NOSYSTEM=1", "NO_COLOR=1")
}

// runCLI runs the CLI in helper process mode inside dir with optional extra environment vars.
func runCLI(dir string, args []string, extraEnv ...string) (string, error) {
	cmd := exec.Command(os.Args[0], args...)
	cmd.Dir = dir
	cmd.Env = append(cleanEnv(), "GO_HELPER_PROCESS=1")
	cmd.Env = append(cmd.Env, extraEnv...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

const featEvent = `{"ref": "refs/heads/main", "commits": [{"message": "feat: add widget"}, {"message": "docs: readme"}]}`

func TestCLIHelp(t *testing.T) {
	out, err := runCLI(t.TempDir(), []string{"--help"})
	require.NoError(t, err, out)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "--major-wording")
}

func TestCLIVersion(t *testing.T) {
	out, err := runCLI(t.TempDir(), []string{"version"})
	require.NoError(t, err, out)
	assert.Contains(t, out, "autobump CLI version "+Version)
}

func TestCLIRejectsArguments(t *testing.T) {
	_, err := runCLI(t.TempDir(), []string{"patch"})
	assert.Error(t, err)
}

func TestCLIDryRun(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "package.json")
	writeFile(t, manifest, `{"name": "widget", "version": "1.2.3"}`)
	writeFile(t, filepath.Join(dir, "event.json"), featEvent)

	out, err := runCLI(dir, []string{"--dry-run", "--event", "event.json", "--tag-prefix", "v"})
	require.NoError(t, err, out)

	assert.Contains(t, out, "Dry run complete, no files were modified.")
	assert.Contains(t, out, "Old Version: 1.2.3")
	assert.Contains(t, out, "New Version: 1.3.0")
	assert.Contains(t, out, "Bump Type:   minor")
	assert.Contains(t, out, "Tag:         v1.3.0")
	assert.Contains(t, out, "Files that would be updated:")
	assert.Equal(t, `{"name": "widget", "version": "1.2.3"}`, readFile(t, manifest))
}

func TestCLIInvalidWord(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"), `{"version": "1.2.3"}`)

	out, err := runCLI(dir, []string{"--dry-run", "--minor-wording", "/feat(/"})
	require.Error(t, err)
	assert.Contains(t, out, "fatal")
	assert.Contains(t, out, "minor-wording")
}

func TestCLIPreviousBump(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"), `{"version": "1.2.3"}`)
	writeFile(t, filepath.Join(dir, "event.json"), `{"commits": [{"message": "ci: version bump to 1.2.3"}]}`)

	out, err := runCLI(dir, nil, "GITHUB_EVENT_PATH="+filepath.Join(dir, "event.json"))
	require.NoError(t, err, out)
	assert.Contains(t, out, autobump.ReasonPreviousBump)
}

func TestCLIActionInputs(t *testing.T) {
	dir := t.TempDir()
	pkgDir := filepath.Join(dir, "packages", "app")
	writeFile(t, filepath.Join(pkgDir, "package.json"), `{"version": "1.2.3"}`)
	writeFile(t, filepath.Join(dir, "event.json"), `{"commits": [{"message": "docs: readme"}]}`)

	out, err := runCLI(t.TempDir(), []string{"--dry-run"},
		"GITHUB_WORKSPACE="+dir,
		"PACKAGEJSON_DIR=packages/app",
		"GITHUB_EVENT_PATH="+filepath.Join(dir, "event.json"),
		"INPUT_DEFAULT=none",
	)
	require.NoError(t, err, out)
	assert.Contains(t, out, autobump.ReasonNoKeywords)

	out, err = runCLI(t.TempDir(), []string{"--dry-run"},
		"GITHUB_WORKSPACE="+dir,
		"PACKAGEJSON_DIR=packages/app",
		"GITHUB_EVENT_PATH="+filepath.Join(dir, "event.json"),
		"INPUT_MINOR-WORDING=docs",
	)
	require.NoError(t, err, out)
	assert.Contains(t, out, "New Version: 1.3.0")
	assert.Contains(t, out, filepath.Join(pkgDir, "package.json"))
}

func TestCLIFromGitIntegration(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}
	dir := t.TempDir()

	runGit := func(args ...string) string {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = cleanEnv()
		out, err := cmd.CombinedOutput()
		if err != nil {
			t.Fatalf("git %v failed: %v\n%s", args, err, out)
		}
		return strings.TrimSpace(string(out))
	}

	runGit("init", "-q")
	runGit("checkout", "-q", "-b", "main")
	runGit("config", "user.email", "test@example.com")
	runGit("config", "user.name", "Test User")

	cargo := filepath.Join(dir, "Cargo.toml")
	writeFile(t, cargo, "[package]\nname = \"widget\"\nversion = \"0.1.0\"\n")
	runGit("add", ".")
	runGit("commit", "-q", "-m", "chore: init")
	runGit("tag", "v0.1.0")

	writeFile(t, filepath.Join(dir, "src", "lib.rs"), "pub fn widget() {}\n")
	runGit("add", ".")
	runGit("commit", "-q", "-m", "feat: add widget")

	output := filepath.Join(t.TempDir(), "github_output")
	out, err := runCLI(dir,
		[]string{"--from-git", "--manifest", "Cargo.toml", "--tag-prefix", "v", "--skip-push", "--ref", "refs/heads/main"},
		"GITHUB_OUTPUT="+output,
	)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Version bumped!")
	assert.Contains(t, out, "New Version: 0.2.0")

	assert.Contains(t, readFile(t, cargo), `version = "0.2.0"`)
	assert.Equal(t, "newTag=v0.2.0\n", readFile(t, output))
	assert.Equal(t, "v0.1.0\nv0.2.0", runGit("tag", "--list"))
	assert.Equal(t, "ci: version bump to v0.2.0", runGit("log", "-1", "--format=%s"))

	// HEAD is the tagged bump commit, so there is nothing to release.
	out, err = runCLI(dir, []string{"--from-git", "--manifest", "Cargo.toml", "--tag-prefix", "v", "--skip-push", "--ref", "refs/heads/main", "--default", "none"})
	require.NoError(t, err, out)
	assert.Contains(t, out, autobump.ReasonNoKeywords)
}

func mapLookup(env map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoadConfigLayering(t *testing.T) {
	file := filepath.Join(t.TempDir(), "autobump.yaml")
	writeFile(t, file, `
minor-wording: feature
tag-prefix: v
manifest: Cargo.toml
skip-tag: true
`)

	flags := config.New()
	flags.Manifest = "version.go"
	flags.PatchWording = "fix"
	changed := func(name string) bool { return name == "manifest" }

	cfg, err := loadConfig(mapLookup(map[string]string{
		"INPUT_CONFIG":     file,
		"INPUT_TAG-PREFIX": "release-",
		"GITHUB_REF":       "refs/heads/main",
	}), "", flags, changed)
	require.NoError(t, err)

	assert.Equal(t, "feature", cfg.MinorWording)
	assert.Equal(t, "release-", cfg.TagPrefix)
	assert.Equal(t, "version.go", cfg.Manifest)
	assert.Empty(t, cfg.PatchWording, "unchanged flags must not override")
	assert.True(t, cfg.SkipTag)
	assert.Equal(t, "refs/heads/main", cfg.Ref)
	assert.Equal(t, config.DefaultMajorWording, cfg.MajorWording)
}

func TestLoadConfigErrors(t *testing.T) {
	noFlags := func(string) bool { return false }

	_, err := loadConfig(mapLookup(nil), filepath.Join(t.TempDir(), "missing.yaml"), config.New(), noFlags)
	assert.Error(t, err)

	_, err = loadConfig(mapLookup(map[string]string{"INPUT_DEFAULT": "huge"}), "", config.New(), noFlags)
	assert.ErrorIs(t, err, autobump.ErrInvalidConfiguration)
}

func TestOverlayFlags(t *testing.T) {
	dst := config.New()
	src := config.New()
	src.Push = false
	src.HistoryLimit = 10
	src.RCWording = "pre-(alpha|beta)"
	src.Workspace = "/elsewhere"

	overlayFlags(dst, src, func(name string) bool {
		return name == "push" || name == "history-limit" || name == "rc-wording"
	})

	assert.False(t, dst.Push)
	assert.Equal(t, 10, dst.HistoryLimit)
	assert.Equal(t, "pre-(alpha|beta)", dst.RCWording)
	assert.Equal(t, ".", dst.Workspace)
}

func TestRootCommandInProcess(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"), `{"version": "2.0.0-rc.1"}`)
	writeFile(t, filepath.Join(dir, "event.json"), `{"commits": [{"message": "feat(core)!: new engine"}]}`)

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr, mapLookup(map[string]string{
		"GITHUB_WORKSPACE":  dir,
		"GITHUB_EVENT_PATH": filepath.Join(dir, "event.json"),
	}))
	cmd.SetArgs([]string{"--dry-run", "--log-level", "debug"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.Contains(t, stdout.String(), "New Version: 2.0.0")
	assert.Contains(t, stdout.String(), "Bump Type:   major")
	assert.Contains(t, stderr.String(), "breaking-change")
}

func TestRootCommandBadLogLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr, mapLookup(nil))
	cmd.SetArgs([]string{"--dry-run", "--log-level", "loud"})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, autobump.ErrInvalidConfiguration)
	assert.Contains(t, stderr.String(), "fatal")
}

func TestVersionCommandInProcess(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd(&out, &out, mapLookup(nil))
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "autobump CLI version "+Version+"\n", out.String())
}

func TestPushFlagSyntax(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"), `{"version": "1.2.3"}`)
	writeFile(t, filepath.Join(dir, "event.json"), featEvent)
	lookup := mapLookup(map[string]string{
		"GITHUB_WORKSPACE":  dir,
		"GITHUB_EVENT_PATH": filepath.Join(dir, "event.json"),
	})

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr, lookup)
	assert.Contains(t, cmd.Flags().Lookup("push").Usage, "--push=false")
	cmd.SetArgs([]string{"--push=false"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, stdout.String(), autobump.ReasonPushDisabled)
	assert.Equal(t, `{"version": "1.2.3"}`, readFile(t, filepath.Join(dir, "package.json")))

	cmd = newRootCmd(&stdout, &stderr, lookup)
	cmd.SetArgs([]string{"--push", "false"})
	assert.Error(t, cmd.ExecuteContext(context.Background()))
}

func TestNewLoggerNoColor(t *testing.T) {
	var plain, colored bytes.Buffer

	log, err := newLogger(&plain, "info", mapLookup(map[string]string{"NO_COLOR": "1"}))
	require.NoError(t, err)
	log.Info().Str("rule", "major").Msg("decided")
	assert.Contains(t, plain.String(), "rule=major")
	assert.NotContains(t, plain.String(), "\x1b[")

	log, err = newLogger(&colored, "info", mapLookup(nil))
	require.NoError(t, err)
	log.Info().Str("rule", "major").Msg("decided")
	assert.Contains(t, colored.String(), "\x1b[")

	_, err = newLogger(&plain, "loud", mapLookup(nil))
	assert.ErrorIs(t, err, autobump.ErrInvalidConfiguration)
}
