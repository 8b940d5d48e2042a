// Package keepalived derives the failover daemon configuration from a
// group and its resolved local member, and activates it via a
// supervised restart.
package keepalived

import (
	"fmt"
	"strings"

	"github.com/yvivekan79/vrrp/internal/config"
)

// Render builds the daemon configuration for node's role in group. The
// instance always starts as BACKUP; mastership is negotiated at runtime
// by priority comparison, which avoids split-brain from two nodes both
// claiming MASTER at start. A preempt directive is emitted only when
// the group enables preemption; the daemon's implicit default covers
// the disabled case.
func Render(group config.Group, node config.Node) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "vrrp_instance VI_%d {\n", group.GroupID)
	b.WriteString("    state BACKUP\n")
	fmt.Fprintf(&b, "    interface %s\n", node.Interface)
	fmt.Fprintf(&b, "    virtual_router_id %d\n", group.VRID)
	fmt.Fprintf(&b, "    priority %d\n", node.Priority)
	fmt.Fprintf(&b, "    advert_int %d\n", group.AdvertInt)
	if group.Preempt {
		b.WriteString("    preempt\n")
	}
	b.WriteString("    authentication {\n")
	b.WriteString("        auth_type PASS\n")
	fmt.Fprintf(&b, "        auth_pass %s\n", group.AuthPass)
	b.WriteString("    }\n")
	b.WriteString("    virtual_ipaddress {\n")
	fmt.Fprintf(&b, "        %s/24 dev %s\n", group.VIP, node.Interface)
	b.WriteString("    }\n")
	b.WriteString("}\n")
	return []byte(b.String())
}
