package transport

import (
	"context"
	"github.com/ValentinKolb/dSock/rpc/common"
	"net"
)

// --------------------------------------------------------------------------
// Handler Types
// --------------------------------------------------------------------------

// ResponseHandler is called once per request with either the response envelope
// or an error (common.ErrTimeout, common.ErrStopped)
type ResponseHandler func(resp *common.Envelope, err error)

// MessageHandler is called for every envelope received by a socket
type MessageHandler func(msg *common.ReceivedEnvelope)

// --------------------------------------------------------------------------
// Server Connection
// --------------------------------------------------------------------------

// IServerConn is one connection accepted by a server socket.
// Every connection decodes its frames independently of all other connections.
type IServerConn interface {
	// ID returns the server unique id of the connection
	ID() uint64
	// RemoteAddr returns the address of the peer
	RemoteAddr() net.Addr
	// Send writes the envelope {uid, data: payload} to the connection
	Send(payload any, uid string) error
	// OnMessage registers a handler for envelopes received on this connection only
	OnMessage(handler MessageHandler)
	// OnClose registers a handler called once the connection is closed
	OnClose(handler func())
	// Close closes the connection
	Close() error
}

// --------------------------------------------------------------------------
// Socket
// --------------------------------------------------------------------------

// ISocket is a message socket that acts either as a client or as a server.
// The role is fixed by the first call to StartClient, StartServer or Send and
// never changes for the lifetime of the socket.
//
// An error handler must be registered with OnError before the socket is started.
//
// Handlers run synchronously and one at a time per socket: a slow OnMessage handler
// of a server delays the messages of every connection, so long work belongs in a
// goroutine. Handlers must not register further handlers (On*) on the same socket
// or connection, this deadlocks. Send, Reply and Stop are safe to call from a handler.
type ISocket interface {
	// StartClient connects to the configured endpoint in the background and keeps
	// reconnecting with backoff until Stop is called. onFirstConnect (optional) is
	// called after the first successful connection only.
	StartClient(onFirstConnect func()) error

	// StartServer binds the configured endpoint and accepts connections in the
	// background. onListening (optional) is called once the listener is bound.
	StartServer(onListening func()) error

	// Send sends payload to the server. If cb is not nil it is called with the
	// response or with common.ErrTimeout. Send never blocks on the connection: frames
	// are queued and written in order, while disconnected after the next connect.
	Send(payload any, cb ResponseHandler) error

	// Request sends payload and blocks until the response arrived, the request
	// timed out or ctx is done
	Request(ctx context.Context, payload any) (*common.Envelope, error)

	// Stop closes the socket. Outstanding requests fail with common.ErrStopped.
	// onClosed (optional) is called once the socket is closed.
	Stop(onClosed func())

	// Addr returns the listen address of a server or the remote address of a
	// connected client (nil otherwise)
	Addr() net.Addr

	// State returns the current lifecycle state
	State() State

	// OnConnect registers a handler called on every (re)connection of a client
	OnConnect(handler func())
	// OnClose registers a handler called when a client connection closes or a
	// server stopped
	OnClose(handler func())
	// OnError registers a handler for connection level errors
	OnError(handler func(err error))
	// OnMessage registers a handler for every received envelope
	OnMessage(handler MessageHandler)
	// OnConnection registers a handler called for every connection accepted by a server
	OnConnection(handler func(conn IServerConn))
}
