// Package engine drives the reconciliation pipeline: Load → Resolve →
// Reconcile → Render → Verify for create, the mirrored walk for delete,
// and a best-effort report for status. Each invocation is a clean-slate
// transaction: everything is re-derived from the config file and
// current kernel state, nothing survives between runs.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"

	"github.com/yvivekan79/vrrp/internal/config"
	"github.com/yvivekan79/vrrp/internal/keepalived"
	"github.com/yvivekan79/vrrp/internal/overlay"
	"github.com/yvivekan79/vrrp/internal/resolve"
	"github.com/yvivekan79/vrrp/internal/verify"
)

// Engine wires the pipeline stages. All collaborators are injected so
// tests can run the full pipeline against fakes.
type Engine struct {
	ConfigPath string
	Lister     resolve.Lister
	Reconciler *overlay.Reconciler
	Keepalived *keepalived.Manager
	Checker    *verify.Checker

	// CheckDeps runs the eager dependency check before any mutation.
	CheckDeps func() error
	// DaemonActive reports failover daemon health for status.
	DaemonActive func(ctx context.Context) bool
}

// New returns the production wiring: netlink kernel access, systemd
// supervision, ICMP probing.
func New(configPath string) *Engine {
	sup := keepalived.Systemctl{}
	return &Engine{
		ConfigPath:   configPath,
		Lister:       resolve.KernelLister{},
		Reconciler:   &overlay.Reconciler{Kernel: overlay.NetlinkKernel{}},
		Keepalived:   keepalived.NewManager(keepalived.DefaultPath, sup),
		Checker:      verify.New(),
		CheckDeps:    keepalived.CheckInstalled,
		DaemonActive: sup.Active,
	}
}

// Create provisions the overlay and activates the failover daemon.
// Config and dependency problems fail before any kernel mutation; a
// kernel failure aborts the remaining stages with no rollback — a
// subsequent create or delete converges via the same idempotency
// checks. A connectivity failure arrives only after everything is
// applied and signals degraded state, not an aborted operation.
func (e *Engine) Create(ctx context.Context) error {
	group, node, err := e.loadAndResolve()
	if err != nil {
		return err
	}

	stages := []struct {
		name string
		run  func() error
	}{
		{"reconcile", func() error {
			_, err := e.Reconciler.Ensure(node)
			return err
		}},
		{"render", func() error {
			return e.Keepalived.Apply(ctx, group, node)
		}},
		{"verify", func() error {
			return e.Checker.Check(ctx, node)
		}},
	}
	for _, s := range stages {
		slog.Debug("running stage", "stage", s.name, "site", node.SiteID)
		if err := s.run(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	slog.Info("create complete", "site", node.SiteID, "vip", group.VIP, "vrid", group.VRID)
	return nil
}

// Delete walks the same resolution path to discover what to undo, then
// removes kernel state best-effort and clears the daemon config.
func (e *Engine) Delete(ctx context.Context) error {
	group, node, err := e.loadAndResolve()
	if err != nil {
		return err
	}

	if err := e.Reconciler.Teardown(node); err != nil {
		return fmt.Errorf("teardown: %w", err)
	}
	if err := e.Keepalived.Clear(ctx); err != nil {
		return fmt.Errorf("clear daemon config: %w", err)
	}
	slog.Info("delete complete", "site", node.SiteID, "vrid", group.VRID)
	return nil
}

func (e *Engine) loadAndResolve() (config.Group, config.Node, error) {
	group, err := config.Load(e.ConfigPath)
	if err != nil {
		return config.Group{}, config.Node{}, err
	}
	if e.CheckDeps != nil {
		if err := e.CheckDeps(); err != nil {
			return config.Group{}, config.Node{}, err
		}
	}
	node, err := resolve.Resolve(group, e.Lister)
	if err != nil {
		return config.Group{}, config.Node{}, err
	}
	return group, node, nil
}

// Report is the read-only status view. Every field is filled
// best-effort; absence of one piece never hides the others.
type Report struct {
	ConfigLoaded bool
	ConfigError  string
	Group        config.Group
	NodeResolved bool
	ResolveError string
	Node         config.Node
	Overlay      overlay.State
	OverlayUp    bool
	BridgeAddrs  []netip.Prefix
	DaemonActive bool
}

// Status reports config, overlay, bridge, and daemon state. It always
// succeeds: findings are reported, never validated.
func (e *Engine) Status(ctx context.Context) Report {
	var r Report

	group, err := config.Load(e.ConfigPath)
	if err != nil {
		r.ConfigError = err.Error()
		return r
	}
	r.ConfigLoaded = true
	r.Group = group

	node, err := resolve.Resolve(group, e.Lister)
	if err != nil {
		r.ResolveError = err.Error()
		return r
	}
	r.NodeResolved = true
	r.Node = node

	if st, ok, err := e.Reconciler.Observe(node); err == nil && ok {
		r.Overlay = st
		r.OverlayUp = st.Up
		r.BridgeAddrs = st.Addrs
	}
	if e.DaemonActive != nil {
		r.DaemonActive = e.DaemonActive(ctx)
	}
	return r
}
