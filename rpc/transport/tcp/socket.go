package tcp

import (
	"github.com/ValentinKolb/dSock/rpc/common"
	"github.com/ValentinKolb/dSock/rpc/transport"
	"github.com/ValentinKolb/dSock/rpc/transport/base"
)

// --------------------------------------------------------------------------
// Socket Factory Method
// --------------------------------------------------------------------------

// NewSocket creates a TCP socket for host:port. The socket uses TLS if opts.TLS is set.
func NewSocket(port int, host string, opts common.Options) transport.ISocket {
	return base.NewSocket(&clientConnector{}, &serverConnector{}, common.SocketConfig{
		Port:    port,
		Host:    host,
		Options: opts,
	})
}
