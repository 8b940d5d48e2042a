package overlay

import "net/netip"

// LinkInfo is the slice of kernel link state the reconciler consults.
type LinkInfo struct {
	Name     string
	Index    int
	Up       bool
	Master   string
	IsBridge bool
}

// VxlanSpec describes the overlay device to create: a point-to-point
// VxLAN bound to the WAN-holding device.
type VxlanSpec struct {
	Name   string
	VNI    int
	Local  netip.Addr
	Remote netip.Addr
	Port   int
	Device string
}

// Kernel is the narrow kernel-networking surface the reconciler and
// teardown need. The production implementation speaks netlink; tests
// substitute an in-memory fake and count mutations.
type Kernel interface {
	// LinkByAddr finds the link holding addr, or ErrInterfaceNotFound.
	LinkByAddr(addr netip.Addr) (LinkInfo, error)
	// Link looks a link up by name; the bool is false when absent.
	Link(name string) (LinkInfo, bool, error)
	CreateVxlan(spec VxlanSpec) error
	LinkUp(name string) error
	LinkDown(name string) error
	SetMaster(name, master string) error
	DeleteLink(name string) error
	Addrs(name string) ([]netip.Prefix, error)
	AddrAdd(name string, prefix netip.Prefix) error
	AddrDel(name string, prefix netip.Prefix) error
}
