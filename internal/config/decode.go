package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// The front-end stores whatever the client posted, so the wire shapes
// are loose: numbers arrive as JSON numbers or quoted strings, booleans
// as strings, and Nodes as either an array or an index-keyed object.

type rawGroup struct {
	GroupID   flexInt  `json:"GroupID"`
	VIP       string   `json:"VIP"`
	AuthPass  string   `json:"Auth_Pass"`
	VRID      flexInt  `json:"VRID"`
	Preempt   flexBool `json:"PREEMPT"`
	AdvertInt flexInt  `json:"ADVERT_INT"`
	Nodes     rawNodes `json:"Nodes"`
}

type rawNode struct {
	SiteID    string  `json:"siteID"`
	WANIP     string  `json:"WAN_IP"`
	RemoteIP  string  `json:"Remote_IP"`
	TunnelIP  string  `json:"Tunnel_IP"`
	VNI       flexInt `json:"VNI"`
	Port      flexInt `json:"PORT"`
	Interface string  `json:"Interface"`
	Priority  flexInt `json:"Priority"`
}

// flexInt decodes a JSON number or a string holding one. set
// distinguishes an absent field from an explicit zero.
type flexInt struct {
	n   int
	set bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(bytes.Trim(data, `"`)))
	if s == "" || s == "null" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not an integer: %q", s)
	}
	f.n, f.set = n, true
	return nil
}

func (f flexInt) value() (int, bool) { return f.n, f.set }

// flexBool decodes true/false as either a JSON bool or a string.
type flexBool struct {
	b bool
}

func (f *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(bytes.Trim(data, `"`))))
	f.b = s == "true" || s == "yes" || s == "1"
	return nil
}

func (f flexBool) value() bool { return f.b }

// rawNodes accepts a JSON array or an object keyed by member index.
type rawNodes struct {
	list []rawNode
	keys map[string]rawNode
}

func (r *rawNodes) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	if trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &r.list)
	}
	return json.Unmarshal(trimmed, &r.keys)
}

// ordered returns the members in declaration order; index-keyed objects
// are ordered by numeric key.
func (r rawNodes) ordered() ([]rawNode, error) {
	if r.list == nil && r.keys == nil {
		return nil, fmt.Errorf("no members declared")
	}
	if r.list != nil {
		return r.list, nil
	}
	keys := make([]string, 0, len(r.keys))
	for k := range r.keys {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}
		return a < b
	})
	out := make([]rawNode, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.keys[k])
	}
	return out, nil
}
