// Package resolve maps "this machine" to exactly one member of a VRRP
// group by matching locally bound WAN addresses.
package resolve

import (
	"errors"
	"fmt"
	"net/netip"
	"sort"

	"github.com/yvivekan79/vrrp/internal/config"
)

// ErrNoLocalNode indicates no group member's WAN address is bound
// locally. Fatal and non-retryable: the machine is not part of the group.
var ErrNoLocalNode = errors.New("local node not found in group")

// Lister enumerates candidate local WAN identities: globally scoped,
// non-loopback IPv4 addresses bound to local interfaces.
type Lister interface {
	GlobalUnicastIPv4() ([]netip.Addr, error)
}

// Resolve returns the group member whose WAN address is bound to a local
// interface. When several local addresses match members, the lowest
// matching address wins, making resolution independent of kernel
// interface enumeration order. Resolution is performed fresh on every
// call so that teardown works without any state surviving between
// invocations.
func Resolve(group config.Group, lister Lister) (config.Node, error) {
	addrs, err := lister.GlobalUnicastIPv4()
	if err != nil {
		return config.Node{}, fmt.Errorf("enumerate local addresses: %w", err)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Less(addrs[j]) })

	for _, addr := range addrs {
		for _, n := range group.Nodes {
			if n.WANIP == addr {
				return n, nil
			}
		}
	}
	return config.Node{}, fmt.Errorf("%w: none of %d local addresses match a member WAN_IP", ErrNoLocalNode, len(addrs))
}
