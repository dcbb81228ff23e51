// Package unix implements a transport over Unix domain sockets for clients
// and servers on the same machine. The socket path takes the place of the
// host, ports are ignored.
//
// The default server buffer size is 64 KB.
package unix
