// Package verify probes peer and external reachability after the
// overlay and failover daemon are active. It is advisory: a failure
// signals degraded-but-applied state and rolls nothing back.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"time"

	"github.com/yvivekan79/vrrp/internal/config"
)

const (
	// DefaultExternalTarget is probed to confirm the node still has a
	// path out after enslaving the overlay.
	DefaultExternalTarget = "8.8.8.8"
	// EnvExternalTarget overrides the external probe target.
	EnvExternalTarget = "VRRP_PROBE_TARGET"

	defaultAttempts = 3
	defaultTimeout  = 2 * time.Second
)

// ErrUnreachable indicates at least one probe exhausted its attempts.
var ErrUnreachable = errors.New("connectivity check failed")

// Prober performs one bounded reachability attempt against target.
type Prober func(ctx context.Context, target netip.Addr, timeout time.Duration) error

// Checker runs the two post-activation probes.
type Checker struct {
	Probe    Prober
	Attempts int
	Timeout  time.Duration
	External netip.Addr
}

// New returns a Checker with the ICMP prober and the external target
// taken from the environment override, falling back to the default.
func New() *Checker {
	return &Checker{
		Probe:    Ping,
		Attempts: defaultAttempts,
		Timeout:  defaultTimeout,
		External: ExternalTarget(),
	}
}

// ExternalTarget resolves the external probe address, preferring the
// environment override when it parses.
func ExternalTarget() netip.Addr {
	if v := os.Getenv(EnvExternalTarget); v != "" {
		if a, err := netip.ParseAddr(v); err == nil {
			return a
		}
		slog.Warn("ignoring unparseable probe target override", "value", v)
	}
	return netip.MustParseAddr(DefaultExternalTarget)
}

// Check probes the peer WAN endpoint and the external target. Both
// probes run to completion even if the first fails, so the report
// always covers both outcomes.
func (c *Checker) Check(ctx context.Context, node config.Node) error {
	log := slog.With("component", "verify")

	peerErr := c.reach(ctx, node.RemoteIP)
	if peerErr != nil {
		log.Warn("peer unreachable", "target", node.RemoteIP, "err", peerErr)
	} else {
		log.Info("peer reachable", "target", node.RemoteIP)
	}

	extErr := c.reach(ctx, c.External)
	if extErr != nil {
		log.Warn("external target unreachable", "target", c.External, "err", extErr)
	} else {
		log.Info("external target reachable", "target", c.External)
	}

	if peerErr != nil || extErr != nil {
		return fmt.Errorf("%w: peer %s: %s, external %s: %s",
			ErrUnreachable, node.RemoteIP, outcome(peerErr), c.External, outcome(extErr))
	}
	return nil
}

func (c *Checker) reach(ctx context.Context, target netip.Addr) error {
	var err error
	for i := 0; i < c.Attempts; i++ {
		if err = c.Probe(ctx, target, c.Timeout); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("after %d attempts: %w", c.Attempts, err)
}

func outcome(err error) string {
	if err != nil {
		return "unreachable"
	}
	return "ok"
}
