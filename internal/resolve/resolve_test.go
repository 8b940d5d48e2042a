package resolve

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/yvivekan79/vrrp/internal/config"
)

type fakeLister struct {
	addrs []netip.Addr
	err   error
}

func (f fakeLister) GlobalUnicastIPv4() ([]netip.Addr, error) {
	return f.addrs, f.err
}

func twoMemberGroup() config.Group {
	return config.Group{
		GroupID: 1,
		VRID:    51,
		Nodes: []config.Node{
			{SiteID: "site-a", WANIP: netip.MustParseAddr("10.0.0.1"), Priority: 150},
			{SiteID: "site-b", WANIP: netip.MustParseAddr("10.0.0.2"), Priority: 100},
		},
	}
}

func TestResolve(t *testing.T) {
	t.Run("selects the matching member", func(t *testing.T) {
		lister := fakeLister{addrs: []netip.Addr{
			netip.MustParseAddr("203.0.113.9"),
			netip.MustParseAddr("10.0.0.1"),
		}}
		n, err := Resolve(twoMemberGroup(), lister)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if n.SiteID != "site-a" {
			t.Fatalf("expected site-a, got %s", n.SiteID)
		}
	})

	t.Run("zero matches is fatal", func(t *testing.T) {
		lister := fakeLister{addrs: []netip.Addr{netip.MustParseAddr("198.51.100.7")}}
		_, err := Resolve(twoMemberGroup(), lister)
		if !errors.Is(err, ErrNoLocalNode) {
			t.Fatalf("expected ErrNoLocalNode, got %v", err)
		}
	})

	t.Run("no local addresses is fatal", func(t *testing.T) {
		_, err := Resolve(twoMemberGroup(), fakeLister{})
		if !errors.Is(err, ErrNoLocalNode) {
			t.Fatalf("expected ErrNoLocalNode, got %v", err)
		}
	})

	t.Run("lowest matching address wins", func(t *testing.T) {
		// Both members' WAN addresses are bound locally; the lowest one
		// decides, regardless of enumeration order.
		lister := fakeLister{addrs: []netip.Addr{
			netip.MustParseAddr("10.0.0.2"),
			netip.MustParseAddr("10.0.0.1"),
		}}
		n, err := Resolve(twoMemberGroup(), lister)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if n.SiteID != "site-a" {
			t.Fatalf("expected site-a (10.0.0.1), got %s", n.SiteID)
		}
	})

	t.Run("lister failure propagates", func(t *testing.T) {
		_, err := Resolve(twoMemberGroup(), fakeLister{err: errors.New("netlink down")})
		if err == nil || errors.Is(err, ErrNoLocalNode) {
			t.Fatalf("expected enumeration error, got %v", err)
		}
	})
}
