package pipeline

import (
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Replication Type
// --------------------------------------------------------------------------

// ReplicationType describes how the replicas of a pipeline keep their data in sync.
type ReplicationType uint8

const (
	ReplicationUnknown    ReplicationType = iota
	ReplicationStandAlone                 // single direct connection, no consensus
	ReplicationRatis                      // consensus-replicated (raft)
	ReplicationChained                    // chain replication
)

// String returns the string representation of a ReplicationType.
func (t ReplicationType) String() string {
	switch t {
	case ReplicationStandAlone:
		return "STAND_ALONE"
	case ReplicationRatis:
		return "RATIS"
	case ReplicationChained:
		return "CHAINED"
	default:
		return "UNKNOWN"
	}
}

// --------------------------------------------------------------------------
// Endpoint
// --------------------------------------------------------------------------

// PortName identifies one of the ports a storage node listens on.
type PortName string

const (
	PortStandalone PortName = "STANDALONE"
	PortRatis      PortName = "RATIS"
	PortRest       PortName = "REST"
)

// Endpoint is one replica of a pipeline: a host plus a set of named ports.
// A missing port or a port value of 0 means "unspecified".
type Endpoint struct {
	ID    string
	Host  string
	Ports map[PortName]int
}

// NewEndpoint creates an endpoint that only announces its standalone port
func NewEndpoint(id, host string, standalonePort int) Endpoint {
	return Endpoint{
		ID:    id,
		Host:  host,
		Ports: map[PortName]int{PortStandalone: standalonePort},
	}
}

// Port returns the value of the named port, or 0 if the endpoint does not announce it.
func (e Endpoint) Port(name PortName) int {
	return e.Ports[name]
}

// String returns a short representation (id@host:standalonePort)
func (e Endpoint) String() string {
	return fmt.Sprintf("%s@%s:%d", e.ID, e.Host, e.Port(PortStandalone))
}

func (e Endpoint) clone() Endpoint {
	ports := make(map[PortName]int, len(e.Ports))
	for k, v := range e.Ports {
		ports[k] = v
	}
	return Endpoint{ID: e.ID, Host: e.Host, Ports: ports}
}

// --------------------------------------------------------------------------
// Pipeline
// --------------------------------------------------------------------------

// Pipeline is an immutable, already resolved group of replica endpoints with
// one designated leader.
type Pipeline struct {
	id              string
	endpoints       []Endpoint
	leader          int
	replicationType ReplicationType
}

// New creates a pipeline. If leaderID is empty the first endpoint is the leader.
// The endpoints are copied, later modifications by the caller are not visible.
func New(id string, endpoints []Endpoint, leaderID string, replicationType ReplicationType) (*Pipeline, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("pipeline %q: at least one endpoint is required", id)
	}

	p := &Pipeline{
		id:              id,
		endpoints:       make([]Endpoint, 0, len(endpoints)),
		leader:          -1,
		replicationType: replicationType,
	}

	seen := make(map[string]struct{}, len(endpoints))
	for i, ep := range endpoints {
		if ep.Host == "" {
			return nil, fmt.Errorf("pipeline %q: endpoint %q has no host", id, ep.ID)
		}
		if _, dup := seen[ep.ID]; dup {
			return nil, fmt.Errorf("pipeline %q: duplicate endpoint id %q", id, ep.ID)
		}
		seen[ep.ID] = struct{}{}

		if leaderID != "" && ep.ID == leaderID {
			p.leader = i
		}
		p.endpoints = append(p.endpoints, ep.clone())
	}

	switch {
	case leaderID == "":
		p.leader = 0
	case p.leader < 0:
		return nil, fmt.Errorf("pipeline %q: leader %q is not a member", id, leaderID)
	}

	return p, nil
}

// ID returns the pipeline id
func (p *Pipeline) ID() string {
	return p.id
}

// Type returns the replication type the pipeline was created with
func (p *Pipeline) Type() ReplicationType {
	return p.replicationType
}

// Leader returns the designated leader endpoint
func (p *Pipeline) Leader() Endpoint {
	return p.endpoints[p.leader].clone()
}

// Endpoints returns a copy of all endpoints in pipeline order
func (p *Pipeline) Endpoints() []Endpoint {
	out := make([]Endpoint, len(p.endpoints))
	for i, ep := range p.endpoints {
		out[i] = ep.clone()
	}
	return out
}

// String returns a formatted string representation of the pipeline
func (p *Pipeline) String() string {
	members := make([]string, len(p.endpoints))
	for i, ep := range p.endpoints {
		members[i] = ep.String()
		if i == p.leader {
			members[i] += "*"
		}
	}
	return fmt.Sprintf("pipeline(%s, %s, [%s])", p.id, p.replicationType, strings.Join(members, ", "))
}
