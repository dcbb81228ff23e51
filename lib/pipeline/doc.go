// Package pipeline models a storage pipeline as seen by a client: an immutable,
// already resolved list of replica endpoints with one designated leader.
//
// Membership and leader election happen elsewhere, this package only consumes
// their result.
//
// Key Components:
//
//   - Pipeline: ordered endpoints, leader and replication type. Immutable after New.
//
//   - Endpoint: host plus named ports. A port value of 0 means "unspecified".
//
//   - Selector: resolves the (host, port) a stand-alone client dials. The leader's
//     standalone port is used if set, the configured default port otherwise.
//
//   - ParseEndpoints: parses the "id=host:port,..." notation used on the command line.
package pipeline
