package unix

import (
	"context"
	"github.com/ValentinKolb/dSock/rpc/common"
	"net"
)

// clientConnector implements the IClientConnector interface for Unix sockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "unix"
}

func (c *clientConnector) Endpoint(config common.SocketConfig) string {
	return config.Path
}

func (c *clientConnector) Connect(ctx context.Context, config common.SocketConfig) (net.Conn, error) {
	var dialer net.Dialer
	return dialer.DialContext(ctx, "unix", config.Path)
}

func (c *clientConnector) UpgradeConnection(_ net.Conn, _ common.SocketConfig) error {
	return nil // nothing to tune for unix sockets
}
