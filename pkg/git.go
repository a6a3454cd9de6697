package autobump

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// Executor runs external commands for the orchestrator.
type Executor interface {
	// Run executes name with args in dir and returns its stdout. A failing
	// command yields a *GitError carrying stderr.
	Run(ctx context.Context, dir, name string, args ...string) (string, error)
}

// ExecExecutor is the default Executor backed by os/exec.
type ExecExecutor struct{}

// NewExecExecutor creates a new ExecExecutor.
func NewExecExecutor() *ExecExecutor {
	return &ExecExecutor{}
}

// Run implements Executor.
func (e *ExecExecutor) Run(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), NewGitError(name, args, err, stderr.String())
	}
	return stdout.String(), nil
}

// gitRepo issues the git commands of a bump in one working directory.
type gitRepo struct {
	exec Executor
	dir  string
}

func (g gitRepo) git(ctx context.Context, args ...string) error {
	_, err := g.exec.Run(ctx, g.dir, "git", args...)
	return err
}

// checkGit verifies that git is available on the system.
func (g gitRepo) checkGit(ctx context.Context) error {
	if err := g.git(ctx, "--version"); err != nil {
		return fmt.Errorf("git is not available on the system: %w", err)
	}
	return nil
}

func (g gitRepo) configUser(ctx context.Context, name, email string) error {
	if err := g.git(ctx, "config", "user.name", name); err != nil {
		return err
	}
	return g.git(ctx, "config", "user.email", email)
}

// commitAll runs the optional before-commit command and commits every tracked
// change with message.
func (g gitRepo) commitAll(ctx context.Context, beforeCommit, message string) error {
	if fields := strings.Fields(beforeCommit); len(fields) > 0 {
		if _, err := g.exec.Run(ctx, g.dir, fields[0], fields[1:]...); err != nil {
			return err
		}
	}
	return g.git(ctx, "commit", "-a", "-m", message)
}

func (g gitRepo) fetch(ctx context.Context) error {
	return g.git(ctx, "fetch")
}

func (g gitRepo) checkout(ctx context.Context, branch string) error {
	return g.git(ctx, "checkout", branch)
}

func (g gitRepo) tag(ctx context.Context, name string) error {
	return g.git(ctx, "tag", name)
}

func (g gitRepo) push(ctx context.Context, remote string, extra ...string) error {
	args := append([]string{"push", remote}, extra...)
	return g.git(ctx, args...)
}

var refBranch = regexp.MustCompile(`refs/[a-zA-Z]+/(.*)`)

// ResolveBranch picks the branch to commit to. The name comes from ref
// (refs/heads/main → main); a pull request head ref overrides it and a
// configured target branch overrides both. isPullRequest reports whether the
// head ref was used.
func ResolveBranch(ref, headRef, target string) (branch string, isPullRequest bool) {
	if m := refBranch.FindStringSubmatch(ref); m != nil {
		branch = m[1]
	}
	if headRef != "" {
		branch, isPullRequest = headRef, true
	}
	if target != "" {
		branch = target
	}
	return branch, isPullRequest
}

// RemoteURL builds the authenticated https remote for a GitHub repository.
func RemoteURL(actor, token, repository string) string {
	return fmt.Sprintf("https://%s:%s@github.com/%s.git", actor, token, repository)
}
