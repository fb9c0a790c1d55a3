package base

import (
	"fmt"
	"github.com/ValentinKolb/dSock/rpc/common"
	"github.com/ValentinKolb/dSock/rpc/serializer"
	"github.com/ValentinKolb/dSock/rpc/transport"
	"github.com/puzpuzpuz/xsync/v3"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// acceptRetryDelay is the pause after a failed accept
const acceptRetryDelay = 10 * time.Millisecond

// -----------------------------------------------------------
// Server Connection
// -----------------------------------------------------------

// serverConn is a single connection accepted by the server.
// It implements transport.IServerConn.
type serverConn struct {
	id      uint64
	conn    net.Conn
	parent  *serverTransport
	events  *eventBus
	writeMu sync.Mutex
}

func (c *serverConn) ID() uint64 {
	return c.id
}

func (c *serverConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *serverConn) Send(payload any, uid string) error {
	env, err := common.NewEnvelope(uid, payload)
	if err != nil {
		return err
	}
	frame, err := encodeFrame(c.parent.serializer, *env, c.parent.config.Options.MaxFrameSize)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	err = writeFrame(c.conn, frame, c.parent.config.Options.Timeout)
	c.writeMu.Unlock()

	if err != nil {
		// a broken connection is closed, the read loop publishes the close
		_ = c.conn.Close()
		return fmt.Errorf("failed to write to %s: %w", c.conn.RemoteAddr(), err)
	}
	serverFramesSent.Inc()
	return nil
}

func (c *serverConn) OnMessage(handler transport.MessageHandler) {
	if handler != nil {
		c.events.subscribe(topicMessage, handler)
	}
}

func (c *serverConn) OnClose(handler func()) {
	if handler != nil {
		c.events.subscribe(topicClose, handler)
	}
}

func (c *serverConn) Close() error {
	return c.conn.Close()
}

// -----------------------------------------------------------
// Server Transport
// -----------------------------------------------------------

// serverTransport implements the server role of a socket independent of the
// specific transport medium (unix, tcp, etc.)
type serverTransport struct {
	connector  IServerConnector
	config     common.SocketConfig
	serializer serializer.IRPCSerializer
	events     *eventBus

	mu       sync.Mutex
	state    transport.State
	listener net.Listener
	started  bool
	stopped  bool

	conns      *xsync.MapOf[uint64, *serverConn]
	nextConnID atomic.Uint64
	wg         sync.WaitGroup // accept loop and connection handlers

	stopDone chan struct{}
}

// newServerTransport creates the server role using the given connector
func newServerTransport(connector IServerConnector, config common.SocketConfig, events *eventBus) *serverTransport {
	return &serverTransport{
		connector:  connector,
		config:     config,
		serializer: serializer.NewJSONSerializer(),
		events:     events,
		state:      transport.StateDisconnected,
		conns:      xsync.NewMapOf[uint64, *serverConn](),
		stopDone:   make(chan struct{}),
	}
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Start binds the listener and accepts connections in the background
func (t *serverTransport) Start(onListening func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return common.ErrStopped
	}
	if t.started {
		return common.ErrAlreadyStarted
	}

	// Create listener using the connector
	listener, err := t.connector.Listen(t.config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	t.listener = listener
	t.started = true
	t.state = transport.StateListening

	Logger.Infof("Starting %s server on %s", t.connector.GetName(), listener.Addr())

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if onListening != nil {
			onListening()
		}
		t.acceptLoop(listener)
	}()
	return nil
}

// Stop closes the listener and all connections. It returns immediately, onClosed is
// called once every connection handler returned.
func (t *serverTransport) Stop(onClosed func()) {
	go t.stop(onClosed)
}

func (t *serverTransport) stop(onClosed func()) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		<-t.stopDone
		if onClosed != nil {
			onClosed()
		}
		return
	}
	t.stopped = true
	t.state = transport.StateClosing
	listener := t.listener
	t.mu.Unlock()

	if listener != nil {
		if err := listener.Close(); err != nil {
			Logger.Warningf("Failed to close listener: %v", err)
		}
	}

	t.conns.Range(func(_ uint64, c *serverConn) bool {
		_ = c.conn.Close()
		return true
	})
	t.wg.Wait()

	t.mu.Lock()
	t.state = transport.StateClosed
	t.mu.Unlock()
	close(t.stopDone)

	Logger.Infof("Server stopped")

	if onClosed != nil {
		onClosed()
	}
	t.events.publish(topicClose)
}

// State returns the current lifecycle state
func (t *serverTransport) State() transport.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Addr returns the bound listen address
func (t *serverTransport) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (t *serverTransport) acceptLoop(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if t.isStopped() || isClosedErr(err) {
				return
			}
			Logger.Errorf("Accept error: %v", err)
			t.events.publishError(fmt.Errorf("accept failed: %w", err))
			time.Sleep(acceptRetryDelay)
			continue
		}

		if err := t.connector.UpgradeConnection(conn, t.config); err != nil {
			Logger.Warningf("Failed to upgrade connection from %s: %v", conn.RemoteAddr(), err)
		}

		sc := &serverConn{
			id:     t.nextConnID.Add(1),
			conn:   conn,
			parent: t,
			events: newEventBus(),
		}

		// registered under mu, so stop either sees the connection or it is closed here
		t.mu.Lock()
		if t.stopped {
			t.mu.Unlock()
			_ = conn.Close()
			return
		}
		t.wg.Add(1)
		t.conns.Store(sc.id, sc)
		t.mu.Unlock()
		serverConnections.Inc()

		go t.handleConnection(sc)
	}
}

// handleConnection decodes the frames of one connection until it is closed
func (t *serverTransport) handleConnection(sc *serverConn) {
	defer t.wg.Done()

	Logger.Debugf("Accepted connection %d from %s", sc.id, sc.RemoteAddr())

	// handlers registered here see every message of the connection
	t.events.publish(topicConnection, transport.IServerConn(sc))

	decoder := newFrameDecoder(t.serializer, t.config.Options.MaxFrameSize)
	buf := make([]byte, readBufferSize)

	for {
		n, err := sc.conn.Read(buf)
		if n > 0 {
			envs, decErr := decoder.Feed(buf[:n])
			for i := range envs {
				t.dispatch(sc, envs[i])
			}
			if decErr != nil {
				protocolErrors.Inc()
				Logger.Warningf("Protocol error on connection %d from %s: %v", sc.id, sc.RemoteAddr(), decErr)
				t.events.publishError(decErr)
				break
			}
		}
		if err != nil {
			if !isClosedErr(err) && !t.isStopped() {
				t.events.publishError(fmt.Errorf("connection %d from %s failed: %w", sc.id, sc.RemoteAddr(), err))
			}
			break
		}
	}

	_ = sc.conn.Close()
	t.conns.Delete(sc.id)
	serverConnections.Dec()

	Logger.Debugf("Connection %d from %s closed", sc.id, sc.RemoteAddr())
	sc.events.publish(topicClose)
}

// dispatch publishes a received envelope on the connection and on the server
func (t *serverTransport) dispatch(sc *serverConn, env common.Envelope) {
	serverFramesReceived.Inc()

	msg := common.NewReceivedEnvelope(env, func(payload any) error {
		return sc.Send(payload, env.UID)
	})
	sc.events.publish(topicMessage, msg)
	t.events.publish(topicMessage, msg)
}

func (t *serverTransport) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}
