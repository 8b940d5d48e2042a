package overlay

import (
	"errors"
	"fmt"
	"net/netip"
	"testing"

	"github.com/yvivekan79/vrrp/internal/config"
)

// fakeKernel models links and addresses in memory and counts mutations
// so idempotency can be asserted directly.
type fakeKernel struct {
	links     map[string]*LinkInfo
	addrs     map[string][]netip.Prefix
	mutations int

	failSetMaster error
}

func newFakeKernel() *fakeKernel {
	return &fakeKernel{
		links: make(map[string]*LinkInfo),
		addrs: make(map[string][]netip.Prefix),
	}
}

func (f *fakeKernel) addLink(name string, bridge bool, up bool, addrs ...netip.Prefix) {
	f.links[name] = &LinkInfo{Name: name, Index: len(f.links) + 1, Up: up, IsBridge: bridge}
	f.addrs[name] = addrs
}

func (f *fakeKernel) LinkByAddr(addr netip.Addr) (LinkInfo, error) {
	for name, prefixes := range f.addrs {
		for _, p := range prefixes {
			if p.Addr() == addr {
				return *f.links[name], nil
			}
		}
	}
	return LinkInfo{}, fmt.Errorf("%w: %s", ErrInterfaceNotFound, addr)
}

func (f *fakeKernel) Link(name string) (LinkInfo, bool, error) {
	l, ok := f.links[name]
	if !ok {
		return LinkInfo{}, false, nil
	}
	return *l, true, nil
}

func (f *fakeKernel) CreateVxlan(spec VxlanSpec) error {
	f.mutations++
	f.links[spec.Name] = &LinkInfo{Name: spec.Name, Index: len(f.links) + 1}
	return nil
}

func (f *fakeKernel) LinkUp(name string) error {
	f.mutations++
	f.links[name].Up = true
	return nil
}

func (f *fakeKernel) LinkDown(name string) error {
	f.mutations++
	f.links[name].Up = false
	return nil
}

func (f *fakeKernel) SetMaster(name, master string) error {
	if f.failSetMaster != nil {
		return f.failSetMaster
	}
	f.mutations++
	f.links[name].Master = master
	return nil
}

func (f *fakeKernel) DeleteLink(name string) error {
	f.mutations++
	delete(f.links, name)
	delete(f.addrs, name)
	return nil
}

func (f *fakeKernel) Addrs(name string) ([]netip.Prefix, error) {
	if _, ok := f.links[name]; !ok {
		return nil, fmt.Errorf("link %q not found", name)
	}
	return f.addrs[name], nil
}

func (f *fakeKernel) AddrAdd(name string, prefix netip.Prefix) error {
	f.mutations++
	f.addrs[name] = append(f.addrs[name], prefix)
	return nil
}

func (f *fakeKernel) AddrDel(name string, prefix netip.Prefix) error {
	f.mutations++
	kept := f.addrs[name][:0]
	for _, p := range f.addrs[name] {
		if p != prefix {
			kept = append(kept, p)
		}
	}
	f.addrs[name] = kept
	return nil
}

func testNode() config.Node {
	return config.Node{
		SiteID:    "site-a",
		WANIP:     netip.MustParseAddr("10.0.0.1"),
		RemoteIP:  netip.MustParseAddr("10.0.0.2"),
		TunnelIP:  netip.MustParseAddr("192.168.193.11"),
		VNI:       100,
		Port:      4789,
		Interface: "br0",
		Priority:  150,
	}
}

// provisioned returns a fake kernel holding the WAN device and bridge
// the node declares, with nothing reconciled yet.
func provisioned() *fakeKernel {
	k := newFakeKernel()
	k.addLink("eth0", false, true, netip.MustParsePrefix("10.0.0.1/24"))
	k.addLink("br0", true, true)
	return k
}

func TestEnsure(t *testing.T) {
	t.Run("provisions the full overlay", func(t *testing.T) {
		k := provisioned()
		r := &Reconciler{Kernel: k}

		st, err := r.Ensure(testNode())
		if err != nil {
			t.Fatalf("ensure: %v", err)
		}
		if st.Name != "vxlan100" || !st.Up || st.Master != "br0" {
			t.Fatalf("unexpected state: %+v", st)
		}
		want := netip.MustParsePrefix("192.168.193.11/24")
		found := false
		for _, a := range st.Addrs {
			if a == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("tunnel address %s missing from bridge: %v", want, st.Addrs)
		}
		// create, up, enslave, addr add
		if k.mutations != 4 {
			t.Fatalf("expected 4 mutations, got %d", k.mutations)
		}
	})

	t.Run("second run is mutation-free", func(t *testing.T) {
		k := provisioned()
		r := &Reconciler{Kernel: k}

		first, err := r.Ensure(testNode())
		if err != nil {
			t.Fatalf("first ensure: %v", err)
		}
		before := k.mutations

		second, err := r.Ensure(testNode())
		if err != nil {
			t.Fatalf("second ensure: %v", err)
		}
		if k.mutations != before {
			t.Fatalf("second run mutated kernel: %d -> %d", before, k.mutations)
		}
		if second.Name != first.Name || second.Up != first.Up || second.Master != first.Master {
			t.Fatalf("state drifted between runs: %+v vs %+v", first, second)
		}
	})

	t.Run("WAN address not bound locally", func(t *testing.T) {
		k := newFakeKernel()
		k.addLink("br0", true, true)
		r := &Reconciler{Kernel: k}

		_, err := r.Ensure(testNode())
		if !errors.Is(err, ErrInterfaceNotFound) {
			t.Fatalf("expected ErrInterfaceNotFound, got %v", err)
		}
		if k.mutations != 0 {
			t.Fatalf("expected no mutations, got %d", k.mutations)
		}
	})

	t.Run("bridge absent aborts", func(t *testing.T) {
		k := newFakeKernel()
		k.addLink("eth0", false, true, netip.MustParsePrefix("10.0.0.1/24"))
		r := &Reconciler{Kernel: k}

		_, err := r.Ensure(testNode())
		if !errors.Is(err, ErrBridgeNotFound) {
			t.Fatalf("expected ErrBridgeNotFound, got %v", err)
		}
	})

	t.Run("non-bridge target rejected", func(t *testing.T) {
		k := newFakeKernel()
		k.addLink("eth0", false, true, netip.MustParsePrefix("10.0.0.1/24"))
		k.addLink("br0", false, true) // exists but is not a bridge
		r := &Reconciler{Kernel: k}

		_, err := r.Ensure(testNode())
		if !errors.Is(err, ErrBridgeNotFound) {
			t.Fatalf("expected ErrBridgeNotFound, got %v", err)
		}
	})

	t.Run("enslave failure aborts without rollback", func(t *testing.T) {
		k := provisioned()
		k.failSetMaster = errors.New("operation not permitted")
		r := &Reconciler{Kernel: k}

		if _, err := r.Ensure(testNode()); err == nil {
			t.Fatal("expected error")
		}
		// The created device stays behind; a re-run must converge.
		if _, ok := k.links["vxlan100"]; !ok {
			t.Fatal("expected vxlan100 to remain after abort")
		}
		k.failSetMaster = nil
		if _, err := r.Ensure(testNode()); err != nil {
			t.Fatalf("re-run did not converge: %v", err)
		}
	})
}

func TestTeardown(t *testing.T) {
	t.Run("round trip restores pre-create state", func(t *testing.T) {
		k := provisioned()
		r := &Reconciler{Kernel: k}

		if _, err := r.Ensure(testNode()); err != nil {
			t.Fatalf("ensure: %v", err)
		}
		if err := r.Teardown(testNode()); err != nil {
			t.Fatalf("teardown: %v", err)
		}
		if _, ok := k.links["vxlan100"]; ok {
			t.Fatal("overlay interface still present")
		}
		for _, a := range k.addrs["br0"] {
			if a == netip.MustParsePrefix("192.168.193.11/24") {
				t.Fatal("tunnel address still on bridge")
			}
		}
	})

	t.Run("overlay already gone is not an error", func(t *testing.T) {
		k := provisioned()
		r := &Reconciler{Kernel: k}
		if err := r.Teardown(testNode()); err != nil {
			t.Fatalf("teardown: %v", err)
		}
	})

	t.Run("bridge already gone is not an error", func(t *testing.T) {
		k := newFakeKernel()
		r := &Reconciler{Kernel: k}
		if err := r.Teardown(testNode()); err != nil {
			t.Fatalf("teardown: %v", err)
		}
	})
}

func TestObserve(t *testing.T) {
	k := provisioned()
	r := &Reconciler{Kernel: k}

	if _, ok, err := r.Observe(testNode()); err != nil || ok {
		t.Fatalf("expected absent overlay, got ok=%v err=%v", ok, err)
	}
	if _, err := r.Ensure(testNode()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	mutated := k.mutations
	st, ok, err := r.Observe(testNode())
	if err != nil || !ok {
		t.Fatalf("observe: ok=%v err=%v", ok, err)
	}
	if st.Master != "br0" {
		t.Fatalf("unexpected state: %+v", st)
	}
	if k.mutations != mutated {
		t.Fatalf("observe mutated kernel: %d -> %d", mutated, k.mutations)
	}
}
