// Package overlay reconciles the kernel VxLAN interface, its bridge
// membership, and the tunnel address against a resolved group member.
// Every step consults current kernel state before mutating, so create
// and teardown are safely re-runnable.
package overlay

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strconv"

	"github.com/yvivekan79/vrrp/internal/config"
)

var (
	// ErrInterfaceNotFound indicates the declared WAN address is not
	// bound to any local interface.
	ErrInterfaceNotFound = errors.New("no interface holds the declared WAN address")
	// ErrBridgeNotFound indicates the target bridge does not exist.
	// Bridges are consumed, never created here.
	ErrBridgeNotFound = errors.New("bridge interface not found")
)

// tunnelPrefixBits is the mask applied to the tunnel address on the
// bridge, matching the /24 the VIP is declared with.
const tunnelPrefixBits = 24

// InterfaceName derives the overlay device name from the VNI.
func InterfaceName(vni int) string {
	return "vxlan" + strconv.Itoa(vni)
}

// State is the observed shape of the overlay after reconciliation. The
// kernel is the source of truth; nothing here is persisted.
type State struct {
	Name   string
	Up     bool
	Master string
	Addrs  []netip.Prefix
}

// Reconciler nudges kernel state toward the declared member config.
type Reconciler struct {
	Kernel Kernel
}

// Ensure brings the overlay for node into existence: vxlan device bound
// to the WAN-holding interface, administratively up, enslaved to the
// declared bridge, tunnel /24 present on the bridge. Each step is
// skipped when the kernel already agrees. The first failing step aborts
// with no rollback; a later create or delete converges from whatever
// state was left behind.
func (r *Reconciler) Ensure(node config.Node) (State, error) {
	log := slog.With("component", "overlay", "vni", node.VNI)
	name := InterfaceName(node.VNI)

	wanLink, err := r.Kernel.LinkByAddr(node.WANIP)
	if err != nil {
		return State{}, err
	}

	link, ok, err := r.Kernel.Link(name)
	if err != nil {
		return State{}, err
	}
	if !ok {
		spec := VxlanSpec{
			Name:   name,
			VNI:    node.VNI,
			Local:  node.WANIP,
			Remote: node.RemoteIP,
			Port:   node.Port,
			Device: wanLink.Name,
		}
		if err := r.Kernel.CreateVxlan(spec); err != nil {
			return State{}, fmt.Errorf("create %s: %w", name, err)
		}
		log.Info("created overlay interface", "name", name, "dev", wanLink.Name, "remote", node.RemoteIP)
		if link, ok, err = r.Kernel.Link(name); err != nil || !ok {
			return State{}, fmt.Errorf("overlay interface %s vanished after creation: %w", name, err)
		}
	} else {
		// An existing device is kept as-is: attribute drift against the
		// declared VNI/port/remote is not detected or corrected.
		log.Debug("overlay interface already present", "name", name)
	}

	if !link.Up {
		if err := r.Kernel.LinkUp(name); err != nil {
			return State{}, fmt.Errorf("bring up %s: %w", name, err)
		}
		log.Info("brought overlay interface up", "name", name)
	}

	bridge, ok, err := r.Kernel.Link(node.Interface)
	if err != nil {
		return State{}, err
	}
	if !ok || !bridge.IsBridge {
		return State{}, fmt.Errorf("%w: %s", ErrBridgeNotFound, node.Interface)
	}

	if link.Master != node.Interface {
		if err := r.Kernel.SetMaster(name, node.Interface); err != nil {
			return State{}, fmt.Errorf("enslave %s to %s: %w", name, node.Interface, err)
		}
		log.Info("attached overlay interface to bridge", "name", name, "bridge", node.Interface)
	}

	tunnel := netip.PrefixFrom(node.TunnelIP, tunnelPrefixBits)
	present, err := r.hasAddr(node.Interface, tunnel)
	if err != nil {
		return State{}, err
	}
	if !present {
		if err := r.Kernel.AddrAdd(node.Interface, tunnel); err != nil {
			return State{}, fmt.Errorf("add %s to %s: %w", tunnel, node.Interface, err)
		}
		log.Info("added tunnel address to bridge", "addr", tunnel, "bridge", node.Interface)
	}

	return r.observe(node)
}

// Teardown removes the tunnel address and the overlay interface.
// Removals are best effort: the pieces may already be gone, and partial
// failure must not block converging toward "absent".
func (r *Reconciler) Teardown(node config.Node) error {
	log := slog.With("component", "overlay", "vni", node.VNI)
	name := InterfaceName(node.VNI)

	tunnel := netip.PrefixFrom(node.TunnelIP, tunnelPrefixBits)
	present, err := r.hasAddr(node.Interface, tunnel)
	if err != nil {
		log.Warn("could not inspect bridge addresses", "bridge", node.Interface, "err", err)
	} else if present {
		if err := r.Kernel.AddrDel(node.Interface, tunnel); err != nil {
			log.Warn("could not remove tunnel address", "addr", tunnel, "err", err)
		} else {
			log.Info("removed tunnel address from bridge", "addr", tunnel, "bridge", node.Interface)
		}
	}

	_, ok, err := r.Kernel.Link(name)
	if err != nil {
		log.Warn("could not inspect overlay interface", "name", name, "err", err)
		return nil
	}
	if !ok {
		log.Debug("overlay interface already absent", "name", name)
		return nil
	}
	if err := r.Kernel.LinkDown(name); err != nil {
		log.Warn("could not bring overlay interface down", "name", name, "err", err)
	}
	if err := r.Kernel.DeleteLink(name); err != nil {
		log.Warn("could not delete overlay interface", "name", name, "err", err)
		return nil
	}
	log.Info("deleted overlay interface", "name", name)
	return nil
}

// Observe reports the overlay's current kernel state without mutating
// anything. The bool is false when the overlay interface does not exist.
func (r *Reconciler) Observe(node config.Node) (State, bool, error) {
	_, ok, err := r.Kernel.Link(InterfaceName(node.VNI))
	if err != nil || !ok {
		return State{}, false, err
	}
	st, err := r.observe(node)
	return st, true, err
}

func (r *Reconciler) observe(node config.Node) (State, error) {
	name := InterfaceName(node.VNI)
	link, ok, err := r.Kernel.Link(name)
	if err != nil {
		return State{}, err
	}
	st := State{Name: name}
	if !ok {
		return st, nil
	}
	st.Up = link.Up
	st.Master = link.Master
	if addrs, err := r.Kernel.Addrs(node.Interface); err == nil {
		st.Addrs = addrs
	}
	return st, nil
}

func (r *Reconciler) hasAddr(link string, want netip.Prefix) (bool, error) {
	addrs, err := r.Kernel.Addrs(link)
	if err != nil {
		return false, fmt.Errorf("list addresses on %s: %w", link, err)
	}
	for _, a := range addrs {
		if a == want {
			return true, nil
		}
	}
	return false, nil
}
