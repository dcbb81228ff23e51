// Package tcp implements the TCP transport. The client connector dials
// host:port and applies TCP options (no delay, keep-alive, linger, buffer
// sizes) from common.TransportConfig; the server side builds on
// base.NewBaseServerTransport.
//
// The default server buffer size is 512 KB.
package tcp
