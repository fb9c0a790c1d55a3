package base

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dSock/rpc/common"
	"github.com/ValentinKolb/dSock/rpc/serializer"
	"github.com/ValentinKolb/dSock/rpc/transport"
	"github.com/google/uuid"
	"net"
	"sync"
	"time"
)

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// outboundFrame is an encoded frame waiting to be written
type outboundFrame struct {
	frame   wireFrame
	uid     string
	tracked bool // a response callback is registered in the tracker
}

// requestResult is the outcome of a blocking request
type requestResult struct {
	env *common.Envelope
	err error
}

// clientTransport implements the client role of a socket independent of the
// specific transport medium (unix, tcp, etc.)
//
// Frames are written by one writer goroutine per connection, Send only appends to
// the queue. Lock order: mu -> tracker.mu
type clientTransport struct {
	connector  IClientConnector
	config     common.SocketConfig
	serializer serializer.IRPCSerializer
	events     *eventBus
	tracker    *requestTracker
	backoff    *reconnectBackoff

	mu             sync.Mutex
	state          transport.State
	conn           net.Conn
	queue          []*outboundFrame
	started        bool
	stopped        bool
	dialing        bool
	reconnectTimer *time.Timer
	onFirstConnect func()
	closed         bool       // the final close after Stop has been published
	writerCond     *sync.Cond // signals the writer of the current connection, uses mu

	// stopCtx is cancelled by Stop and aborts a running dial
	stopCtx    context.Context
	cancelStop context.CancelFunc

	firstConnect sync.Once
	stopOnce     sync.Once
	stopDone     chan struct{}
}

// newClientTransport creates the client role using the given connector
func newClientTransport(connector IClientConnector, config common.SocketConfig, events *eventBus) *clientTransport {
	stopCtx, cancelStop := context.WithCancel(context.Background())
	t := &clientTransport{
		connector:  connector,
		config:     config,
		serializer: serializer.NewJSONSerializer(),
		events:     events,
		tracker:    newRequestTracker(config.Options.Timeout),
		backoff:    newReconnectBackoff(config.Options),
		state:      transport.StateDisconnected,
		stopCtx:    stopCtx,
		cancelStop: cancelStop,
		stopDone:   make(chan struct{}),
	}
	t.writerCond = sync.NewCond(&t.mu)
	return t
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Start connects in the background and keeps reconnecting until Stop is called
func (t *clientTransport) Start(onFirstConnect func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return common.ErrStopped
	}
	if t.started {
		return common.ErrAlreadyStarted
	}
	t.started = true
	t.onFirstConnect = onFirstConnect
	t.state = transport.StateConnecting

	Logger.Infof("Starting %s client for %s", t.connector.GetName(), t.endpoint())

	go t.connect()
	return nil
}

// Stop disables reconnection and closes the connection. Pending requests fail with
// common.ErrStopped and queued frames are dropped. It returns immediately, onClosed
// is called once the connection is closed.
func (t *clientTransport) Stop(onClosed func()) {
	go t.stop(onClosed)
}

func (t *clientTransport) stop(onClosed func()) {
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
	conn := t.conn
	dialing := t.dialing
	if t.reconnectTimer != nil {
		t.reconnectTimer.Stop()
		t.reconnectTimer = nil
	}
	dropped := len(t.queue)
	t.queue = nil
	t.writerCond.Broadcast()
	t.mu.Unlock()

	t.cancelStop()
	t.backoff.Stop()
	failed := t.tracker.FailAll(common.ErrStopped)
	Logger.Infof("Stopping client for %s (%d pending requests failed, %d queued frames dropped)",
		t.endpoint(), failed, dropped)

	switch {
	case conn != nil:
		// the read loop observes the close and finishes the stop
		_ = conn.Close()
	case !dialing:
		t.handleClose(nil)
	}

	<-t.stopDone
	if onClosed != nil {
		onClosed()
	}
}

// finishStop marks the client closed, it is idempotent
func (t *clientTransport) finishStop() {
	t.stopOnce.Do(func() {
		t.mu.Lock()
		t.state = transport.StateClosed
		t.mu.Unlock()

		Logger.Infof("Client for %s stopped", t.endpoint())
		close(t.stopDone)
	})
}

// State returns the current lifecycle state
func (t *clientTransport) State() transport.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Addr returns the remote address while connected
func (t *clientTransport) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	return t.conn.RemoteAddr()
}

// --------------------------------------------------------------------------
// Sending
// --------------------------------------------------------------------------

// Send sends the payload with a fresh uid, see transport.ISocket
func (t *clientTransport) Send(payload any, cb transport.ResponseHandler) error {
	return t.sendEnvelope(uuid.NewString(), payload, cb)
}

// Request sends the payload and waits for its response
func (t *clientTransport) Request(ctx context.Context, payload any) (*common.Envelope, error) {
	resCh := make(chan requestResult, 1)

	err := t.Send(payload, func(resp *common.Envelope, err error) {
		resCh <- requestResult{env: resp, err: err}
	})
	if err != nil {
		return nil, err
	}

	select {
	case res := <-resCh:
		return res.env, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// sendEnvelope queues {uid, data: payload} for the writer of the current connection.
// While disconnected the frame waits for the next connection. It never blocks on the
// connection.
func (t *clientTransport) sendEnvelope(uid string, payload any, cb transport.ResponseHandler) error {
	env, err := common.NewEnvelope(uid, payload)
	if err != nil {
		return err
	}
	frame, err := encodeFrame(t.serializer, *env, t.config.Options.MaxFrameSize)
	if err != nil {
		return err
	}
	out := &outboundFrame{frame: frame, uid: uid, tracked: cb != nil}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return common.ErrStopped
	}
	if limit := t.config.Options.MaxQueuedSends; limit > 0 && len(t.queue) >= limit {
		queueRejected.Inc()
		return common.ErrQueueFull
	}

	// track before queueing so that a fast response always finds its request
	if cb != nil {
		t.tracker.Track(&PendingRequest{UID: uid, Callback: cb})
	}
	t.queue = append(t.queue, out)
	if t.state == transport.StateConnected {
		t.writerCond.Signal()
	}
	return nil
}

// writeLoop drains the queue to conn until the connection is replaced, closed or the
// client is stopped. A failed write puts the unwritten frames back in front of the
// queue and resets the connection.
func (t *clientTransport) writeLoop(conn net.Conn) {
	for {
		t.mu.Lock()
		for len(t.queue) == 0 && t.conn == conn && !t.stopped {
			t.writerCond.Wait()
		}
		if t.conn != conn || t.stopped {
			t.mu.Unlock()
			return
		}
		batch := t.queue
		t.queue = nil
		t.mu.Unlock()

		remaining, err := t.writeFrames(conn, batch)
		if err != nil {
			t.mu.Lock()
			if !t.stopped {
				t.queue = append(remaining, t.queue...)
			}
			t.mu.Unlock()
			t.resetConn(conn, fmt.Errorf("failed to write to %s: %w", t.endpoint(), err))
			return
		}
	}
}

// writeFrames writes the frames in order and returns the frames that could not be
// written. Tracked frames whose request already timed out are skipped.
func (t *clientTransport) writeFrames(conn net.Conn, frames []*outboundFrame) ([]*outboundFrame, error) {
	for i, out := range frames {
		if out.tracked && !t.tracker.IsPending(out.uid) {
			continue
		}
		if err := writeFrame(conn, out.frame, t.config.Options.Timeout); err != nil {
			return frames[i:], err
		}
		clientFramesSent.Inc()
		if out.tracked {
			t.tracker.MarkSent(out.uid)
		}
	}
	return nil, nil
}

// resetConn publishes err and closes the connection, the read loop then handles the close
func (t *clientTransport) resetConn(conn net.Conn, err error) {
	Logger.Warningf("Resetting connection to %s: %v", t.endpoint(), err)
	if !t.isStopped() {
		t.events.publishError(err)
	}
	_ = conn.Close()
}

// --------------------------------------------------------------------------
// Connection Handling
// --------------------------------------------------------------------------

// connect dials the endpoint once. On success the queue is flushed and the read loop
// started, on failure the next attempt is scheduled by handleClose.
func (t *clientTransport) connect() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.state = transport.StateConnecting
	t.dialing = true
	t.reconnectTimer = nil
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(t.stopCtx, t.config.Options.DialTimeout)
	conn, err := t.connector.Connect(ctx, t.config)
	cancel()

	if err == nil {
		if upErr := t.connector.UpgradeConnection(conn, t.config); upErr != nil {
			Logger.Warningf("Failed to upgrade connection to %s: %v", t.endpoint(), upErr)
		}
	}

	t.mu.Lock()
	t.dialing = false

	if t.stopped {
		t.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		t.handleClose(nil)
		return
	}

	if err != nil {
		t.state = transport.StateDisconnected
		t.mu.Unlock()
		Logger.Warningf("Failed to connect to %s: %v", t.endpoint(), err)
		t.events.publishError(fmt.Errorf("failed to connect to %s: %w", t.endpoint(), err))
		t.handleClose(nil)
		return
	}

	t.conn = conn
	t.state = transport.StateConnected
	queued := len(t.queue)
	t.mu.Unlock()

	// the writer flushes the frames queued while disconnected first
	go t.writeLoop(conn)
	go t.readLoop(conn)

	Logger.Infof("Connected to %s using %s transport (%d queued frames)", t.endpoint(), t.connector.GetName(), queued)

	t.firstConnect.Do(func() {
		if t.onFirstConnect != nil {
			t.onFirstConnect()
		}
	})
	t.events.publish(topicConnect)
}

// readLoop decodes frames until the connection fails or the decoder reports a
// protocol error, then closes the connection
func (t *clientTransport) readLoop(conn net.Conn) {
	decoder := newFrameDecoder(t.serializer, t.config.Options.MaxFrameSize)
	buf := make([]byte, readBufferSize)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			envs, decErr := decoder.Feed(buf[:n])
			for i := range envs {
				t.dispatch(envs[i])
			}
			if decErr != nil {
				protocolErrors.Inc()
				Logger.Warningf("Protocol error on connection to %s: %v", t.endpoint(), decErr)
				t.events.publishError(decErr)
				break
			}
		}
		if err != nil {
			if !isClosedErr(err) && !t.isStopped() {
				t.events.publishError(fmt.Errorf("connection to %s failed: %w", t.endpoint(), err))
			}
			break
		}
	}

	_ = conn.Close()
	t.handleClose(conn)
}

// dispatch resolves a pending request and publishes the envelope as message
func (t *clientTransport) dispatch(env common.Envelope) {
	clientFramesReceived.Inc()
	t.tracker.Resolve(&env)

	msg := common.NewReceivedEnvelope(env, func(payload any) error {
		return t.sendEnvelope(env.UID, payload, nil)
	})
	t.events.publish(topicMessage, msg)
}

// handleClose is called once for every ended connection (conn) or failed or aborted
// connection attempt (nil). It publishes close and either schedules the next attempt
// or finishes a stop.
func (t *clientTransport) handleClose(conn net.Conn) {
	t.mu.Lock()
	if conn != nil && t.conn != conn {
		t.mu.Unlock()
		return
	}
	t.conn = nil
	t.writerCond.Broadcast()
	stopped := t.stopped
	if stopped {
		// a stop racing with a failed dial ends up here twice
		if t.closed {
			t.mu.Unlock()
			return
		}
		t.closed = true
	} else {
		t.state = transport.StateDisconnected
	}
	t.mu.Unlock()

	if conn != nil {
		Logger.Infof("Connection to %s closed", t.endpoint())
	}
	t.events.publish(topicClose)

	if stopped {
		t.finishStop()
		return
	}
	t.scheduleReconnect()
}

// scheduleReconnect arms the reconnect timer with the next backoff delay
func (t *clientTransport) scheduleReconnect() {
	delay := t.backoff.Next()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || !t.started {
		return
	}
	reconnects.Inc()
	Logger.Debugf("Reconnecting to %s in %s", t.endpoint(), delay)
	t.reconnectTimer = time.AfterFunc(delay, t.connect)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (t *clientTransport) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *clientTransport) endpoint() string {
	return t.connector.Endpoint(t.config)
}
