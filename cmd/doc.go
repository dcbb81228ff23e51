// Package cmd implements the command-line interface of xceiver. It provides a
// hierarchical command structure for running a datanode and for talking to the
// leader of a pipeline as a stand-alone client.
//
// The package is organized into several subpackages:
//
//   - container: Commands for container operations (echo, put, get, del, list, perf)
//   - serve: Command for starting the in-memory datanode
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set as environment variable XCEIVER_<FLAG>
// (e.g. XCEIVER_MAX_OUTSTANDING=16), .env and .env.local files are loaded on start.
//
// See xceiver -help for a list of all commands.
package cmd
