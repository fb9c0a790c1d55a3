package unix

import (
	"github.com/ValentinKolb/dSock/rpc/common"
	"github.com/ValentinKolb/dSock/rpc/transport"
	"github.com/ValentinKolb/dSock/rpc/transport/base"
)

// --------------------------------------------------------------------------
// Socket Factory Method
// --------------------------------------------------------------------------

// NewSocket creates a Unix domain socket for the given path. TLS options are ignored.
func NewSocket(path string, opts common.Options) transport.ISocket {
	opts.TLS = nil
	return base.NewSocket(&clientConnector{}, &serverConnector{}, common.SocketConfig{
		Path:    path,
		Options: opts,
	})
}
