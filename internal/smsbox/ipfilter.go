package smsbox

import (
	"fmt"
	"net"
	"strings"
)

// IPFilter admits an inbound smsbox connection by source IP. The allow
// list is consulted first and, on a match, admits unconditionally; the
// deny list is consulted only when allow does not admit.
type IPFilter struct {
	allow []*net.IPNet
	deny  []*net.IPNet
}

// NewIPFilter builds an IPFilter from plain IPs or CIDR blocks.
func NewIPFilter(allow, deny []string) (*IPFilter, error) {
	f := &IPFilter{}
	var err error
	if f.allow, err = parseNets(allow); err != nil {
		return nil, fmt.Errorf("smsbox: allow list: %w", err)
	}
	if f.deny, err = parseNets(deny); err != nil {
		return nil, fmt.Errorf("smsbox: deny list: %w", err)
	}
	return f, nil
}

func parseNets(list []string) ([]*net.IPNet, error) {
	var out []*net.IPNet
	for _, s := range list {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !strings.Contains(s, "/") {
			if strings.Contains(s, ":") {
				s += "/128"
			} else {
				s += "/32"
			}
		}
		_, n, err := net.ParseCIDR(s)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func matchesAny(nets []*net.IPNet, ip net.IP) bool {
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Admit reports whether ip may connect.
func (f *IPFilter) Admit(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if matchesAny(f.allow, ip) {
		return true
	}
	if len(f.deny) > 0 && matchesAny(f.deny, ip) {
		return false
	}
	return true
}
