// Package unix implements the message socket on Unix domain sockets, for workers
// running on the same machine as the process dispatching to them.
//
// This package extends the base socket with Unix socket-specific connectors while
// inheriting framing, request correlation and reconnection from the base package.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - serverConnector: Creates Unix socket listeners, a stale socket file left at the
//     path is removed first
//
// Performance Characteristics:
//
//   - Reduced overhead: Eliminates TCP/IP stack processing for better performance
//   - Lower latency: Direct kernel-mediated IPC avoids network subsystem overhead
package unix
