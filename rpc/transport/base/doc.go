// Package base provides the transport independent implementation of a message socket,
// framing JSON envelopes on a byte stream, correlating requests with responses and
// recovering from connection loss. It serves as a base layer that is extended with
// protocol-specific connectors (see the tcp and unix packages).
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations
//     (dial, listen, connection tuning) that allow extending the base socket with
//     different network protocols.
//
//   - frameDecoder: Reassembles "<N>#<json>" frames from a byte stream. N is the byte
//     length of the json text. Every connection owns its own decoder.
//
//   - requestTracker: Keeps the in-flight requests of a client in insertion order and
//     evicts timed out requests using a single shared timer.
//
//   - clientTransport: Connects, reconnects with multiplicative backoff, queues frames
//     while disconnected and flushes them in order after the next connect.
//
//   - serverTransport: Accepts connections, decodes each connection independently and
//     hands every received envelope to the handlers together with a reply function.
//
// Events:
//
//	Sockets publish connect, close, error, message and connection events on an
//	event bus. Handlers run synchronously on the goroutine that reads the connection,
//	so a slow handler delays all further messages of that connection.
//
// Thread Safety:
//
//	All public methods are thread-safe. Writes on a connection are serialized, each
//	connection is read by a dedicated goroutine.
package base
