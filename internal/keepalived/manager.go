package keepalived

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/yvivekan79/vrrp/internal/config"
)

// DefaultPath is where the rendered daemon configuration lives.
const DefaultPath = "/etc/keepalived/keepalived.conf"

var (
	// ErrRestartFailed indicates the supervised daemon restart did not
	// succeed after the configuration was written.
	ErrRestartFailed = errors.New("keepalived restart failed")
	// ErrDaemonMissing indicates the keepalived binary is not installed.
	ErrDaemonMissing = errors.New("keepalived is not installed")
)

// Supervisor restarts and stops the failover daemon. The production
// implementation shells out to systemctl; tests substitute a recorder.
type Supervisor interface {
	Restart(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Manager owns the rendered configuration file and its activation.
type Manager struct {
	Path       string
	Supervisor Supervisor

	// now overrides the backup timestamp source for testing.
	now func() time.Time
}

func NewManager(path string, sup Supervisor) *Manager {
	if path == "" {
		path = DefaultPath
	}
	return &Manager{Path: path, Supervisor: sup, now: time.Now}
}

// Apply overwrites the configuration with the rendering for node and
// restarts the daemon. A failed restart is fatal; the engine maps it to
// its own exit code.
func (m *Manager) Apply(ctx context.Context, group config.Group, node config.Node) error {
	if err := os.WriteFile(m.Path, Render(group, node), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", m.Path, err)
	}
	slog.Info("rendered keepalived configuration", "path", m.Path, "vrid", group.VRID, "priority", node.Priority)

	if err := m.Supervisor.Restart(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRestartFailed, err)
	}
	return nil
}

// Clear backs the previous configuration up with a timestamp suffix,
// truncates the live file, and stops the daemon best-effort.
func (m *Manager) Clear(ctx context.Context) error {
	prev, err := os.ReadFile(m.Path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// nothing to back up
	case err != nil:
		return fmt.Errorf("read %s: %w", m.Path, err)
	case len(prev) > 0:
		backup := fmt.Sprintf("%s.%s.bak", m.Path, m.now().Format("20060102150405"))
		if err := os.WriteFile(backup, prev, 0o644); err != nil {
			return fmt.Errorf("write backup %s: %w", backup, err)
		}
		slog.Info("backed up keepalived configuration", "backup", backup)
	}

	if err := os.WriteFile(m.Path, nil, 0o644); err != nil {
		return fmt.Errorf("truncate %s: %w", m.Path, err)
	}

	if err := m.Supervisor.Stop(ctx); err != nil {
		slog.Warn("could not stop keepalived", "err", err)
	}
	return nil
}
