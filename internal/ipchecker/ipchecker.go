// Package ipchecker extracts client IP addresses from HTTP requests and
// checks them against a trusted subnet. The internal stats endpoint is
// gated on it.
package ipchecker

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// IPChecker validates client addresses against a trusted subnet given
// in CIDR notation. With an empty subnet the checker is disabled and
// rejects every address.
type IPChecker struct {
	trustedSubnet *net.IPNet
}

// New parses trustedSubnet ("192.168.1.0/24") into a checker. An empty
// string yields a disabled checker rather than an error.
func New(trustedSubnet string) (*IPChecker, error) {
	if trustedSubnet == "" {
		return &IPChecker{}, nil
	}
	_, allowedNet, err := net.ParseCIDR(trustedSubnet)
	if err != nil {
		return nil, fmt.Errorf("parsing trusted subnet: %w", err)
	}
	return &IPChecker{trustedSubnet: allowedNet}, nil
}

// Check reports whether clientIP falls inside the trusted subnet.
func (checker *IPChecker) Check(clientIP net.IP) bool {
	return checker.trustedSubnet != nil && checker.trustedSubnet.Contains(clientIP)
}

// GetClientIP extracts the client address from the request, preferring
// X-Real-IP, then the first X-Forwarded-For entry, then RemoteAddr.
func (checker *IPChecker) GetClientIP(request *http.Request) (net.IP, error) {
	if ip := net.ParseIP(request.Header.Get("X-Real-IP")); ip != nil {
		return ip, nil
	}
	if xff := request.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		return net.ParseIP(first), nil
	}
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return nil, fmt.Errorf("splitting remote address: %w", err)
	}
	return net.ParseIP(host), nil
}
