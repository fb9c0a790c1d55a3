package base

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/dSock/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"net"
	"time"
)

var Logger = logger.GetLogger(common.LoggerTransport)

// readBufferSize is the size of the buffer used for a single read from a connection
const readBufferSize = 64 * 1024 // 64 KB

// writeFrame writes the frame to the connection using a single vectored write
func writeFrame(conn net.Conn, f wireFrame, timeout time.Duration) error {
	if timeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
	}

	bufs := net.Buffers{f.header, f.payload}
	if _, err := bufs.WriteTo(conn); err != nil {
		return err
	}
	return nil
}

// isClosedErr reports whether err only signals the regular end of a connection
func isClosedErr(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
