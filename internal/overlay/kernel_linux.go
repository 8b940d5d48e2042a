//go:build linux

package overlay

import (
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// NetlinkKernel implements Kernel directly against the kernel via
// netlink.
type NetlinkKernel struct{}

func (NetlinkKernel) LinkByAddr(addr netip.Addr) (LinkInfo, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return LinkInfo{}, fmt.Errorf("list links: %w", err)
	}
	for _, link := range links {
		addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
		if err != nil {
			return LinkInfo{}, fmt.Errorf("list addresses on %s: %w", link.Attrs().Name, err)
		}
		for _, a := range addrs {
			if got, ok := netip.AddrFromSlice(a.IP.To4()); ok && got == addr {
				return linkInfo(link), nil
			}
		}
	}
	return LinkInfo{}, fmt.Errorf("%w: %s", ErrInterfaceNotFound, addr)
}

func (NetlinkKernel) Link(name string) (LinkInfo, bool, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		var notFound netlink.LinkNotFoundError
		if errors.As(err, &notFound) {
			return LinkInfo{}, false, nil
		}
		return LinkInfo{}, false, fmt.Errorf("find link %q: %w", name, err)
	}
	return linkInfo(link), true, nil
}

func (NetlinkKernel) CreateVxlan(spec VxlanSpec) error {
	dev, err := netlink.LinkByName(spec.Device)
	if err != nil {
		return fmt.Errorf("find parent device %q: %w", spec.Device, err)
	}
	vxlan := &netlink.Vxlan{
		LinkAttrs:    netlink.LinkAttrs{Name: spec.Name},
		VxlanId:      spec.VNI,
		VtepDevIndex: dev.Attrs().Index,
		SrcAddr:      spec.Local.AsSlice(),
		Group:        spec.Remote.AsSlice(),
		Port:         spec.Port,
	}
	if err := netlink.LinkAdd(vxlan); err != nil && !errors.Is(err, unix.EEXIST) {
		return err
	}
	return nil
}

func (NetlinkKernel) LinkUp(name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return err
	}
	return netlink.LinkSetUp(link)
}

func (NetlinkKernel) LinkDown(name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return err
	}
	return netlink.LinkSetDown(link)
}

func (NetlinkKernel) SetMaster(name, master string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return err
	}
	bridge, err := netlink.LinkByName(master)
	if err != nil {
		return err
	}
	return netlink.LinkSetMaster(link, bridge)
}

func (NetlinkKernel) DeleteLink(name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		var notFound netlink.LinkNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return netlink.LinkDel(link)
}

func (NetlinkKernel) Addrs(name string) ([]netip.Prefix, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return nil, err
	}
	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return nil, err
	}
	out := make([]netip.Prefix, 0, len(addrs))
	for _, a := range addrs {
		ip, ok := netip.AddrFromSlice(a.IP.To4())
		if !ok {
			continue
		}
		ones, _ := a.Mask.Size()
		out = append(out, netip.PrefixFrom(ip, ones))
	}
	return out, nil
}

func (NetlinkKernel) AddrAdd(name string, prefix netip.Prefix) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return err
	}
	if err := netlink.AddrAdd(link, nlAddr(prefix)); err != nil && !errors.Is(err, unix.EEXIST) {
		return err
	}
	return nil
}

func (NetlinkKernel) AddrDel(name string, prefix netip.Prefix) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return err
	}
	if err := netlink.AddrDel(link, nlAddr(prefix)); err != nil && !errors.Is(err, unix.EADDRNOTAVAIL) {
		return err
	}
	return nil
}

func linkInfo(link netlink.Link) LinkInfo {
	attrs := link.Attrs()
	info := LinkInfo{
		Name:  attrs.Name,
		Index: attrs.Index,
		Up:    attrs.Flags&net.FlagUp != 0,
	}
	if _, ok := link.(*netlink.Bridge); ok {
		info.IsBridge = true
	}
	if attrs.MasterIndex != 0 {
		if master, err := netlink.LinkByIndex(attrs.MasterIndex); err == nil {
			info.Master = master.Attrs().Name
		}
	}
	return info
}

func nlAddr(prefix netip.Prefix) *netlink.Addr {
	return &netlink.Addr{IPNet: &net.IPNet{
		IP:   prefix.Addr().AsSlice(),
		Mask: net.CIDRMask(prefix.Bits(), 32),
	}}
}
