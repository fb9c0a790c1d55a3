// Package cmd implements the command-line interface for dSock. It provides
// a small echo server and client commands to exercise a running server.
//
// The package is organized into several subpackages:
//
//   - serve: Starts an echo server (optionally exposing prometheus metrics)
//   - client: Commands to send single messages and run performance tests
//   - keygen: Generates a self-signed certificate for TLS sockets
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dsock -help for a list of all commands.
package cmd
