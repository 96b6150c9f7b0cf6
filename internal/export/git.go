package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitDestination writes the payload to a file in a git clone, commits and
// pushes.
type GitDestination struct {
	repo    string // path to the local clone
	file    string // file path within the repo
	branch  string
	message string
}

// NewGitDestination creates a git destination. repo is the path to an
// existing local clone.
func NewGitDestination(repo, file, branch string) *GitDestination {
	return &GitDestination{
		repo:    repo,
		file:    file,
		branch:  branch,
		message: "export: update paymo snapshot",
	}
}

func (d *GitDestination) Write(ctx context.Context, data []byte) error {
	if err := d.git(ctx, "checkout", d.branch); err != nil {
		return fmt.Errorf("git checkout: %w", err)
	}

	// The remote might not have the branch yet.
	_ = d.git(ctx, "pull", "--ff-only", "origin", d.branch)

	path := filepath.Join(d.repo, d.file)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	if err := d.git(ctx, "add", d.file); err != nil {
		return fmt.Errorf("git add: %w", err)
	}
	if err := d.git(ctx, "diff", "--cached", "--quiet"); err == nil {
		return nil
	}
	if err := d.git(ctx, "commit", "-m", d.message); err != nil {
		return fmt.Errorf("git commit: %w", err)
	}
	if err := d.git(ctx, "push", "origin", d.branch); err != nil {
		return fmt.Errorf("git push: %w", err)
	}
	return nil
}

func (d *GitDestination) String() string { return "git:" + d.repo + "/" + d.file }

func (d *GitDestination) git(ctx context.Context, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.repo
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}
