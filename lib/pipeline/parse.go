package pipeline

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ParseEndpoints parses a comma-separated endpoint list of the form
// "id=host[:port],id=host[:port],...". A missing port is stored as 0, so the
// selector falls back to the configured default port.
//
// Unix socket paths are accepted as host (e.g. "dn1=/tmp/dn1.sock").
func ParseEndpoints(s string) ([]Endpoint, error) {
	var endpoints []Endpoint
	for _, member := range strings.Split(s, ",") {
		member = strings.TrimSpace(member)
		if member == "" {
			continue
		}

		parts := strings.SplitN(member, "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid endpoint format: %s (expected ID=HOST[:PORT])", member)
		}

		id, addr := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

		// unix socket path, no port
		if strings.HasPrefix(addr, "/") || strings.HasPrefix(addr, ".") {
			endpoints = append(endpoints, NewEndpoint(id, addr, 0))
			continue
		}

		host, portStr, err := net.SplitHostPort(addr)
		if err != nil {
			// no port given
			endpoints = append(endpoints, NewEndpoint(id, strings.Trim(addr, "[]"), 0))
			continue
		}

		port, err := strconv.Atoi(portStr)
		if err != nil || port < 0 || port > 65535 {
			return nil, fmt.Errorf("invalid port %q for endpoint %s", portStr, id)
		}
		endpoints = append(endpoints, NewEndpoint(id, host, port))
	}

	if len(endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints given")
	}
	return endpoints, nil
}
