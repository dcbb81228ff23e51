// Package common provides core data structures and utilities shared across
// the container client and server. It defines the command protocol, the
// configuration structures, the error vocabulary and the logging setup.
//
// Key Components:
//
//   - Message: the container command used for requests and responses, with
//     factory functions per command type.
//
//   - CommandType / ResultCode: enumerations of the supported commands and of
//     the outcomes a server reports.
//
//   - ClientConfig / ServerConfig: configuration of clients (timeouts, admission
//     gate capacity, default container port, socket options) and servers.
//
//   - Errors: ErrClosed, ErrAlreadyConnected, TransportError, ProtocolError,
//     ConnectionUnavailableError, DispatchError and ContainerError. Structured
//     errors carry their cause and support errors.Is / errors.As.
//
//   - Logger: custom logging implementation registered as dragonboat's logger
//     factory, so every package logs through logger.GetLogger(name).
package common
