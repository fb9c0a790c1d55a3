// Package common provides core data structures and utilities shared across
// the socket transport. It defines the envelope exchanged on the wire, the
// configuration structures, the error taxonomy and the logging setup.
//
// The package focuses on:
//   - Envelope definition for all messages exchanged between peers
//   - Configuration structures for sockets (timeouts, reconnect backoff, TLS)
//   - Sentinel errors shared by the client and server roles
//   - Custom logging implementation integrated with the Dragonboat logger package
//
// Key Components:
//
//   - Envelope: the {uid, data} wrapper of every frame. The data is kept as raw
//     JSON and never interpreted by the transport.
//
//   - ReceivedEnvelope: an envelope handed to message listeners together with a
//     Reply capability bound to the connection and uid it arrived with.
//
//   - Options / SocketConfig: socket configuration including request timeout,
//     reconnect backoff, queue bound, frame size limit and TLS material.
//
//   - Errors: ErrTimeout ("Timeout reached") for requests without a response,
//     ErrProtocol for malformed frames, ErrQueueFull, ErrStopped and the
//     lifecycle errors.
//
//   - Logger: custom logging implementation that plugs into the Dragonboat
//     logger factory while providing consistent formatting across the module.
package common
