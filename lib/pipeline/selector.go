package pipeline

import (
	"net"
	"strconv"
)

// Selector resolves the address a stand-alone client dials for a pipeline:
// the leader's host and its standalone port, falling back to DefaultPort when
// the leader does not announce one.
//
// A Selector is a pure value, resolving never performs I/O.
type Selector struct {
	DefaultPort int
}

// NewSelector creates a selector with the configured default container port
func NewSelector(defaultPort int) Selector {
	return Selector{DefaultPort: defaultPort}
}

// Resolve returns the leader host and the port to dial
func (s Selector) Resolve(p *Pipeline) (host string, port int) {
	leader := p.endpoints[p.leader]
	port = leader.Port(PortStandalone)
	if port == 0 {
		port = s.DefaultPort
	}
	return leader.Host, port
}

// Target returns the resolved dial target as host:port
func (s Selector) Target(p *Pipeline) string {
	host, port := s.Resolve(p)
	return net.JoinHostPort(host, strconv.Itoa(port))
}
