//go:build linux

package resolve

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// KernelLister enumerates addresses straight from the kernel via netlink.
type KernelLister struct{}

func (KernelLister) GlobalUnicastIPv4() ([]netip.Addr, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	var out []netip.Addr
	for _, link := range links {
		if link.Attrs().Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
		if err != nil {
			return nil, fmt.Errorf("list addresses on %s: %w", link.Attrs().Name, err)
		}
		for _, addr := range addrs {
			if addr.Scope != unix.RT_SCOPE_UNIVERSE {
				continue
			}
			a, ok := netip.AddrFromSlice(addr.IP.To4())
			if !ok || a.IsLoopback() || a.IsLinkLocalUnicast() {
				continue
			}
			out = append(out, a)
		}
	}
	return out, nil
}
