package base

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dSock/rpc/common"
	"github.com/ValentinKolb/dSock/rpc/transport"
	"net"
	"sync"
)

// role of a socket, fixed by the first StartClient, StartServer or Send
type role uint8

const (
	roleNone role = iota
	roleClient
	roleServer
)

// socket implements transport.ISocket on top of the client and server roles.
// Both roles share the event bus of the socket.
type socket struct {
	clientConnector IClientConnector
	serverConnector IServerConnector
	config          common.SocketConfig
	events          *eventBus

	mu      sync.Mutex
	role    role
	client  *clientTransport
	server  *serverTransport
	stopped bool // only used while no role is set
}

// -----------------------------------------------------------
// Socket Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewSocket creates a socket using the given connectors. Zero options are replaced by
// their defaults (see common.DefaultOptions).
func NewSocket(cc IClientConnector, sc IServerConnector, config common.SocketConfig) transport.ISocket {
	config.Options = config.Options.WithDefaults()
	return &socket{
		clientConnector: cc,
		serverConnector: sc,
		config:          config,
		events:          newEventBus(),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.ISocket)
// --------------------------------------------------------------------------

func (s *socket) StartClient(onFirstConnect func()) error {
	if err := s.checkStart(); err != nil {
		return err
	}
	client, err := s.asClient(common.ErrRoleFixed)
	if err != nil {
		return err
	}
	return client.Start(onFirstConnect)
}

func (s *socket) StartServer(onListening func()) error {
	if err := s.checkStart(); err != nil {
		return err
	}
	server, err := s.asServer()
	if err != nil {
		return err
	}
	return server.Start(onListening)
}

func (s *socket) Send(payload any, cb transport.ResponseHandler) error {
	client, err := s.asClient(common.ErrNotClient)
	if err != nil {
		return err
	}
	return client.Send(payload, cb)
}

func (s *socket) Request(ctx context.Context, payload any) (*common.Envelope, error) {
	client, err := s.asClient(common.ErrNotClient)
	if err != nil {
		return nil, err
	}
	return client.Request(ctx, payload)
}

func (s *socket) Stop(onClosed func()) {
	s.mu.Lock()
	switch s.role {
	case roleClient:
		s.mu.Unlock()
		s.client.Stop(onClosed)
	case roleServer:
		s.mu.Unlock()
		s.server.Stop(onClosed)
	default:
		s.stopped = true
		s.mu.Unlock()
		go func() {
			if onClosed != nil {
				onClosed()
			}
		}()
	}
}

func (s *socket) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.role {
	case roleClient:
		return s.client.Addr()
	case roleServer:
		return s.server.Addr()
	default:
		return nil
	}
}

func (s *socket) State() transport.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.role {
	case roleClient:
		return s.client.State()
	case roleServer:
		return s.server.State()
	default:
		if s.stopped {
			return transport.StateClosed
		}
		return transport.StateDisconnected
	}
}

func (s *socket) OnConnect(handler func()) {
	if handler != nil {
		s.events.subscribe(topicConnect, handler)
	}
}

func (s *socket) OnClose(handler func()) {
	if handler != nil {
		s.events.subscribe(topicClose, handler)
	}
}

func (s *socket) OnError(handler func(err error)) {
	if handler != nil {
		s.events.subscribe(topicError, handler)
	}
}

func (s *socket) OnMessage(handler transport.MessageHandler) {
	if handler != nil {
		s.events.subscribe(topicMessage, handler)
	}
}

func (s *socket) OnConnection(handler func(conn transport.IServerConn)) {
	if handler != nil {
		s.events.subscribe(topicConnection, handler)
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// checkStart validates the configuration and requires an error handler
func (s *socket) checkStart() error {
	if err := s.config.Options.Validate(); err != nil {
		return fmt.Errorf("invalid socket options: %w", err)
	}
	if !s.events.hasHandler(topicError) {
		return common.ErrNoErrorHandler
	}
	return nil
}

// asClient fixes the client role (if no role is set yet) and returns the client.
// roleErr is returned if the socket already is a server.
func (s *socket) asClient(roleErr error) (*clientTransport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.role {
	case roleServer:
		return nil, roleErr
	case roleNone:
		if s.stopped {
			return nil, common.ErrStopped
		}
		if s.clientConnector == nil {
			return nil, fmt.Errorf("%w: no client connector", common.ErrNotClient)
		}
		s.role = roleClient
		s.client = newClientTransport(s.clientConnector, s.config, s.events)
	}
	return s.client, nil
}

// asServer fixes the server role (if no role is set yet) and returns the server
func (s *socket) asServer() (*serverTransport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.role {
	case roleClient:
		return nil, common.ErrRoleFixed
	case roleNone:
		if s.stopped {
			return nil, common.ErrStopped
		}
		if s.serverConnector == nil {
			return nil, fmt.Errorf("%w: no server connector", common.ErrRoleFixed)
		}
		s.role = roleServer
		s.server = newServerTransport(s.serverConnector, s.config, s.events)
	}
	return s.server, nil
}
