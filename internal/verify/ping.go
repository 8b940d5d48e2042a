package verify

import (
	"context"
	"fmt"
	"net/netip"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Ping sends a single ICMP echo via the system ping utility with a
// bounded wait. Raw sockets would need extra capabilities the tool
// otherwise does not require.
func Ping(ctx context.Context, target netip.Addr, timeout time.Duration) error {
	seconds := int(timeout.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	ctx, cancel := context.WithTimeout(ctx, timeout+time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ping", "-c", "1", "-W", strconv.Itoa(seconds), target.String())
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ping %s: %s: %w", target, strings.TrimSpace(string(out)), err)
	}
	return nil
}
