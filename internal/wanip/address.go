package wanip

import (
	"net/netip"
	"strings"
)

// IsPublicIPv4 reports whether s is a dotted-quad IPv4 address outside the
// RFC 1918 ranges and the 169.0.0.0/8 block.
func IsPublicIPv4(s string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil || !addr.Is4() {
		return false
	}

	octets := addr.As4()
	switch {
	case octets[0] == 10:
		return false
	case octets[0] == 172 && octets[1] >= 16 && octets[1] <= 31:
		return false
	case octets[0] == 192 && octets[1] == 168:
		return false
	case octets[0] == 169:
		return false
	}
	return true
}
