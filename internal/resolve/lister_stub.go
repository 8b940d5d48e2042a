//go:build !linux

package resolve

import (
	"fmt"
	"net/netip"
	"runtime"
)

// KernelLister is only functional on Linux.
type KernelLister struct{}

func (KernelLister) GlobalUnicastIPv4() ([]netip.Addr, error) {
	return nil, fmt.Errorf("local address enumeration is not supported on %s", runtime.GOOS)
}
