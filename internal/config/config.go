// Package config loads and validates the declarative VRRP group
// description written by the front-end at a known path.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/netip"
	"os"
)

// DefaultPath is where the front-end stores the group description.
const DefaultPath = "/etc/vrrp/conf.d/conf.json"

var (
	// ErrMissing indicates the config file does not exist.
	ErrMissing = errors.New("config file not found")
	// ErrMalformed indicates the file is not valid JSON.
	ErrMalformed = errors.New("config file is not valid JSON")
	// ErrIncomplete indicates a required field is absent or unusable.
	ErrIncomplete = errors.New("config is incomplete")
)

// Group describes one VRRP group and its member nodes.
type Group struct {
	GroupID   int
	VIP       netip.Addr
	AuthPass  string
	VRID      int
	Preempt   bool
	AdvertInt int
	Nodes     []Node
}

// Node describes one member of a Group, identified within it by WANIP.
type Node struct {
	SiteID    string
	WANIP     netip.Addr
	RemoteIP  netip.Addr
	TunnelIP  netip.Addr
	VNI       int
	Port      int
	Interface string
	Priority  int
}

// Load reads and validates the group description at path. It has no
// side effects; validation happens before any caller touches the kernel.
func Load(path string) (Group, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Group{}, fmt.Errorf("%w: %s", ErrMissing, path)
		}
		return Group{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a raw group description document.
func Parse(data []byte) (Group, error) {
	var doc struct {
		VRRP *rawGroup `json:"vrrp"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Group{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.VRRP == nil {
		return Group{}, fmt.Errorf("%w: top-level vrrp object missing", ErrIncomplete)
	}
	return doc.VRRP.validate()
}

func (r *rawGroup) validate() (Group, error) {
	g := Group{AuthPass: r.AuthPass}

	id, ok := r.GroupID.value()
	if !ok {
		return Group{}, fmt.Errorf("%w: GroupID missing", ErrIncomplete)
	}
	g.GroupID = id

	vip, err := parseAddr(r.VIP)
	if err != nil {
		return Group{}, fmt.Errorf("%w: VIP: %v", ErrIncomplete, err)
	}
	g.VIP = vip

	vrid, ok := r.VRID.value()
	if !ok {
		return Group{}, fmt.Errorf("%w: VRID missing", ErrIncomplete)
	}
	if vrid < 0 || vrid > 255 {
		return Group{}, fmt.Errorf("%w: VRID %d out of range 0-255", ErrIncomplete, vrid)
	}
	g.VRID = vrid

	g.Preempt = r.Preempt.value()

	if v, ok := r.AdvertInt.value(); ok && v > 0 {
		g.AdvertInt = v
	} else {
		g.AdvertInt = 1
	}

	nodes, err := r.Nodes.ordered()
	if err != nil {
		return Group{}, fmt.Errorf("%w: Nodes: %v", ErrIncomplete, err)
	}
	for i, rn := range nodes {
		n, err := rn.validate()
		if err != nil {
			return Group{}, fmt.Errorf("%w: node %d: %v", ErrIncomplete, i, err)
		}
		g.Nodes = append(g.Nodes, n)
	}
	return g, nil
}

func (r *rawNode) validate() (Node, error) {
	n := Node{SiteID: r.SiteID, Interface: r.Interface}

	var err error
	if n.WANIP, err = parseAddr(r.WANIP); err != nil {
		return Node{}, fmt.Errorf("WAN_IP: %w", err)
	}
	if n.RemoteIP, err = parseAddr(r.RemoteIP); err != nil {
		return Node{}, fmt.Errorf("Remote_IP: %w", err)
	}
	if n.TunnelIP, err = parseAddr(r.TunnelIP); err != nil {
		return Node{}, fmt.Errorf("Tunnel_IP: %w", err)
	}

	if n.VNI, _ = r.VNI.value(); n.VNI <= 0 {
		return Node{}, fmt.Errorf("VNI missing")
	}
	if n.Port, _ = r.Port.value(); n.Port <= 0 {
		return Node{}, fmt.Errorf("PORT missing")
	}
	if n.Interface == "" {
		return Node{}, fmt.Errorf("Interface missing")
	}
	if n.Priority, _ = r.Priority.value(); n.Priority < 1 || n.Priority > 254 {
		return Node{}, fmt.Errorf("Priority %d out of range 1-254", n.Priority)
	}
	return n, nil
}

func parseAddr(s string) (netip.Addr, error) {
	if s == "" {
		return netip.Addr{}, fmt.Errorf("missing")
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("invalid address %q", s)
	}
	if !a.Is4() {
		return netip.Addr{}, fmt.Errorf("address %q is not IPv4", s)
	}
	return a, nil
}
