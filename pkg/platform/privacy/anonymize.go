// Package privacy holds helpers that keep client identifiers out of logs.
package privacy

import (
	"fmt"
	"net"
)

// AnonymizeIP truncates an address to its network prefix: /24 for IPv4 and
// /48 for IPv6. Empty input yields "unknown"; unparseable input yields
// "invalid".
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "invalid"
	}
	if v4 := parsed.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.0", v4[0], v4[1], v4[2])
	}
	return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x::",
		parsed[0], parsed[1], parsed[2], parsed[3], parsed[4], parsed[5])
}
