// Package tcp implements the TCP transport of the message socket. It provides concrete
// implementations of the base package's connector interfaces for plain TCP and TLS
// connections.
//
// This package builds on the base package's socket, inheriting framing, request
// correlation and reconnection. See the base package documentation for details.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector. Dials TLS
//     when common.Options.TLS is set.
//
//   - serverConnector: TCP-specific implementation of base.IServerConnector. Wraps the
//     listener with TLS when common.Options.TLS is set.
//
// Every connection is tuned with the values of common.TCPConf (no delay, keep-alive,
// linger, socket buffers).
package tcp
