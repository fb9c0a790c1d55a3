package tcp

import (
	"crypto/tls"
	"fmt"
	"github.com/ValentinKolb/dSock/rpc/common"
	"net"
	"time"
)

// serverConnector implements the IServerConnector interface for TCP sockets.
// The listener is wrapped with TLS when the options carry a TLS configuration.
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "tcp"
}

func (c *serverConnector) Listen(config common.SocketConfig) (net.Listener, error) {
	// Create TCP socket listener
	listener, err := net.Listen("tcp", config.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to create TCP socket: %w", err)
	}

	if config.Options.TLS == nil {
		return listener, nil
	}

	tlsConfig, err := config.Options.TLS.ServerTLSConfig()
	if err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("failed to create tls config: %w", err)
	}
	return tls.NewListener(listener, tlsConfig), nil
}

func (c *serverConnector) UpgradeConnection(conn net.Conn, config common.SocketConfig) error {
	return upgradeConnection(conn, config.Options.TCP)
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// upgradeConnection applies performance optimizations to a TCP connection
// using configuration values from TCPConf
func upgradeConnection(conn net.Conn, conf common.TCPConf) error {
	if tlsConn, ok := conn.(*tls.Conn); ok {
		conn = tlsConn.NetConn()
	}

	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil // Not a TCP connection, nothing to upgrade
	}

	// Disable Nagle's algorithm (TCPNoDelay) if configured
	if err := tcpConn.SetNoDelay(conf.TCPNoDelay); err != nil {
		return err
	}

	// Set socket write buffer size if configured
	if conf.WriteBufferSize > 0 {
		if err := tcpConn.SetWriteBuffer(conf.WriteBufferSize); err != nil {
			return err
		}
	}

	// Set socket read buffer size if configured
	if conf.ReadBufferSize > 0 {
		if err := tcpConn.SetReadBuffer(conf.ReadBufferSize); err != nil {
			return err
		}
	}

	// Enable TCP keep-alive if configured
	if conf.TCPKeepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}

		keepAlivePeriod := time.Duration(conf.TCPKeepAliveSec) * time.Second
		if err := tcpConn.SetKeepAlivePeriod(keepAlivePeriod); err != nil {
			return err
		}
	}

	// Set TCP linger option if configured
	if conf.TCPLingerSec >= 0 {
		if err := tcpConn.SetLinger(conf.TCPLingerSec); err != nil {
			return err
		}
	}

	return nil
}
