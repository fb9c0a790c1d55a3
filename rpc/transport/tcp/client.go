package tcp

import (
	"context"
	"crypto/tls"
	"fmt"
	"github.com/ValentinKolb/dSock/rpc/common"
	"net"
)

// clientConnector implements the IClientConnector interface for TCP sockets.
// A TLS connection is dialed when the options carry a TLS configuration.
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "tcp"
}

func (c *clientConnector) Endpoint(config common.SocketConfig) string {
	return config.Address()
}

func (c *clientConnector) Connect(ctx context.Context, config common.SocketConfig) (net.Conn, error) {
	dialer := &net.Dialer{}

	if config.Options.TLS == nil {
		return dialer.DialContext(ctx, "tcp", config.Address())
	}

	tlsConfig, err := config.Options.TLS.ClientTLSConfig(config.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to create tls config: %w", err)
	}
	tlsDialer := &tls.Dialer{NetDialer: dialer, Config: tlsConfig}
	return tlsDialer.DialContext(ctx, "tcp", config.Address())
}

func (c *clientConnector) UpgradeConnection(conn net.Conn, config common.SocketConfig) error {
	return upgradeConnection(conn, config.Options.TCP)
}
