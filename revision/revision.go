package revision

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/storage-layout/errors"
)

// Options configures a checkout.
type Options struct {
	// Compile is a shell command run in the project directory of the new worktree.
	Compile string
	// Shell runs Compile; empty means "sh".
	Shell string
	// Env is appended to the current environment for Compile.
	Env []string
}

// Worktree is a detached git worktree holding a past revision of the project.
type Worktree struct {
	top    string
	dir    string
	commit string
	rel    string

	closeOnce sync.Once
	closeErr  error
}

// Checkout creates a detached worktree of rev for the git repository containing
// projectDir and runs opts.Compile inside it. The caller must Close the worktree.
func Checkout(ctx context.Context, projectDir, rev string, opts Options) (*Worktree, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, errors.IO(errors.PhaseCheckout, projectDir, err)
	}

	top, err := git(ctx, abs, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, err
	}
	top = strings.TrimSpace(top)

	// git reports the resolved top level; resolve ours too so Rel works through symlinks
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, errors.IO(errors.PhaseCheckout, abs, err)
	}
	rel, err := filepath.Rel(top, resolved)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, errors.InvalidInput(errors.PhaseCheckout, "project directory "+abs+" is not inside repository "+top)
	}

	commit, err := git(ctx, top, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil {
		return nil, errors.NotFound(errors.PhaseCheckout, "revision", rev)
	}
	commit = strings.TrimSpace(commit)

	dir, err := os.MkdirTemp("", "storage-layout-*")
	if err != nil {
		return nil, errors.IO(errors.PhaseCheckout, os.TempDir(), err)
	}

	if _, err := git(ctx, top, "worktree", "add", "--detach", dir, commit); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	w := &Worktree{top: top, dir: dir, commit: commit, rel: rel}
	Logger().Debug("created worktree",
		zap.String("rev", rev),
		zap.String("commit", commit),
		zap.String("dir", dir))

	if opts.Compile != "" {
		if err := w.run(ctx, opts); err != nil {
			_ = w.Close()
			return nil, err
		}
	}
	return w, nil
}

// Dir returns the project directory inside the worktree.
func (w *Worktree) Dir() string {
	return filepath.Join(w.dir, w.rel)
}

// Commit returns the full hash the worktree was created at.
func (w *Worktree) Commit() string {
	return w.commit
}

// Close removes the worktree. It is safe to call more than once.
func (w *Worktree) Close() error {
	w.closeOnce.Do(func() {
		// the worktree may outlive a canceled command context
		ctx := context.Background()
		if _, err := git(ctx, w.top, "worktree", "remove", "--force", w.dir); err != nil {
			Logger().Warn("git worktree remove failed", zap.String("dir", w.dir), zap.Error(err))
			if rmErr := os.RemoveAll(w.dir); rmErr != nil {
				w.closeErr = errors.IO(errors.PhaseCheckout, w.dir, rmErr)
				return
			}
			_, _ = git(ctx, w.top, "worktree", "prune")
		}
		Logger().Debug("removed worktree", zap.String("dir", w.dir))
	})
	return w.closeErr
}

func (w *Worktree) run(ctx context.Context, opts Options) error {
	Logger().Info("compiling revision",
		zap.String("commit", w.commit),
		zap.String("command", opts.Compile))
	return Compile(ctx, w.Dir(), opts)
}

// Compile runs opts.Compile through opts.Shell in dir. An empty command does nothing.
func Compile(ctx context.Context, dir string, opts Options) error {
	if opts.Compile == "" {
		return nil
	}
	shell := opts.Shell
	if shell == "" {
		shell = "sh"
	}

	cmd := exec.CommandContext(ctx, shell, "-c", opts.Compile)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), opts.Env...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Command(errors.PhaseCheckout, opts.Compile, string(out), err)
	}
	Logger().Debug("compiled", zap.String("dir", dir))
	return nil
}

func git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", errors.Command(errors.PhaseCheckout, "git "+strings.Join(args, " "), string(out), err)
	}
	return string(out), nil
}
