// Package rpc provides the message transport used to dispatch jobs to remote
// workers and to receive their results. A socket acts either as a listening
// peer (server) or as a connecting peer (client) and exchanges length-prefixed
// JSON envelopes over TCP, TLS or Unix domain sockets.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the transport,
//     including the Envelope, configuration structures, errors and logging.
//
//   - serializer: Envelope serialization to and from the JSON text carried
//     inside a frame.
//
//   - transport: The socket abstraction with its event interface, the
//     protocol-agnostic base implementation (framing, request tracking,
//     reconnection) and the medium-specific connectors (tcp, unix).
package rpc
