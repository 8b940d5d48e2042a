package keepalived

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

const unit = "keepalived.service"

// Systemctl supervises the daemon through systemd. A host without
// systemctl (config-only environments, containers) gets a warning, not
// a failure.
type Systemctl struct{}

func (Systemctl) Restart(ctx context.Context) error {
	if _, err := exec.LookPath("systemctl"); err != nil {
		slog.Warn("systemctl not found, skipping keepalived restart")
		return nil
	}
	return systemctl(ctx, "restart", unit)
}

func (Systemctl) Stop(ctx context.Context) error {
	if _, err := exec.LookPath("systemctl"); err != nil {
		slog.Warn("systemctl not found, skipping keepalived stop")
		return nil
	}
	return systemctl(ctx, "stop", unit)
}

// Active reports whether the daemon unit is currently running.
func (Systemctl) Active(ctx context.Context) bool {
	return exec.CommandContext(ctx, "systemctl", "is-active", "--quiet", unit).Run() == nil
}

// CheckInstalled verifies the keepalived binary is present. Called
// eagerly before any kernel mutation so a missing daemon fails with
// zero side effects.
func CheckInstalled() error {
	if _, err := exec.LookPath("keepalived"); err != nil {
		return fmt.Errorf("%w: %v", ErrDaemonMissing, err)
	}
	return nil
}

func systemctl(ctx context.Context, args ...string) error {
	out, err := exec.CommandContext(ctx, "systemctl", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return nil
}
