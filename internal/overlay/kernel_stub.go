//go:build !linux

package overlay

import (
	"fmt"
	"net/netip"
	"runtime"
)

// NetlinkKernel is only functional on Linux.
type NetlinkKernel struct{}

func (NetlinkKernel) err() error {
	return fmt.Errorf("kernel network configuration is not supported on %s", runtime.GOOS)
}

func (k NetlinkKernel) LinkByAddr(netip.Addr) (LinkInfo, error)   { return LinkInfo{}, k.err() }
func (k NetlinkKernel) Link(string) (LinkInfo, bool, error)       { return LinkInfo{}, false, k.err() }
func (k NetlinkKernel) CreateVxlan(VxlanSpec) error               { return k.err() }
func (k NetlinkKernel) LinkUp(string) error                       { return k.err() }
func (k NetlinkKernel) LinkDown(string) error                     { return k.err() }
func (k NetlinkKernel) SetMaster(string, string) error            { return k.err() }
func (k NetlinkKernel) DeleteLink(string) error                   { return k.err() }
func (k NetlinkKernel) Addrs(string) ([]netip.Prefix, error)      { return nil, k.err() }
func (k NetlinkKernel) AddrAdd(string, netip.Prefix) error        { return k.err() }
func (k NetlinkKernel) AddrDel(string, netip.Prefix) error        { return k.err() }
