// Package hooks runs the configured before/after build commands.
// Hooks execute strictly in order outside the worker pool; the first
// failure aborts the stage.
package hooks

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/uwe-app/app-sub001/internal/config"
)

// Run executes the hooks of one stage sequentially. Hooks without an
// explicit working directory run in baseDir.
func Run(ctx context.Context, stage string, hooks []config.Hook, baseDir string) error {
	for _, hook := range hooks {
		if err := run(ctx, hook, baseDir); err != nil {
			return fmt.Errorf("%s hook %s: %w", stage, hook.Command, err)
		}
	}
	return nil
}

func run(ctx context.Context, hook config.Hook, baseDir string) error {
	cmd := exec.CommandContext(ctx, hook.Command, hook.Args...)
	cmd.Dir = hook.Dir
	if cmd.Dir == "" {
		cmd.Dir = baseDir
	}

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	slog.Debug("Running hook", "command", hook.Command, "args", hook.Args, "dir", cmd.Dir)

	if err := cmd.Run(); err != nil {
		if out := strings.TrimSpace(output.String()); out != "" {
			return fmt.Errorf("%w: %s", err, out)
		}
		return err
	}
	return nil
}
