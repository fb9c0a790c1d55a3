// Package transport defines the socket abstraction of the message transport.
// A socket is either a connecting peer (client) or a listening peer (server)
// and exchanges JSON envelopes framed as "<length>#<json>".
//
// The package focuses on:
//   - Defining a single interface for both roles, with the role fixed at start
//   - Event registration with many handlers per event kind
//   - Enabling multiple transport implementations (TCP/TLS, Unix sockets)
//
// Key Components:
//
//   - ISocket: The socket interface (StartClient, StartServer, Send, Request,
//     Stop and the On* event registrations).
//
//   - IServerConn: One connection accepted by a server socket, with its own
//     message events and a Send bound to the connection.
//
//   - ResponseHandler / MessageHandler: Callback types for responses and
//     received envelopes.
//
// Implementations live in the base package (protocol-agnostic core) and are
// constructed through the tcp and unix packages.
package transport
