package base

import (
	"bytes"
	"fmt"
	"github.com/ValentinKolb/dSock/rpc/common"
	"github.com/ValentinKolb/dSock/rpc/serializer"
	"strconv"
)

// maxHeaderLen is the longest accepted length prefix (without the '#')
const maxHeaderLen = 20

// frameSeparator ends the decimal length prefix of a frame
const frameSeparator = '#'

// wireFrame is one encoded frame: "<N>#" followed by N bytes of json
type wireFrame struct {
	header  []byte
	payload []byte
}

// Bytes returns the frame as one contiguous byte slice
func (f wireFrame) Bytes() []byte {
	out := make([]byte, 0, len(f.header)+len(f.payload))
	out = append(out, f.header...)
	return append(out, f.payload...)
}

// Len returns the number of bytes of the frame on the wire
func (f wireFrame) Len() int {
	return len(f.header) + len(f.payload)
}

// encodeFrame serializes the envelope and prefixes it with its byte length
func encodeFrame(s serializer.IRPCSerializer, env common.Envelope, maxFrameSize int) (wireFrame, error) {
	payload, err := s.Serialize(env)
	if err != nil {
		return wireFrame{}, fmt.Errorf("failed to serialize envelope: %w", err)
	}
	if maxFrameSize > 0 && len(payload) > maxFrameSize {
		return wireFrame{}, fmt.Errorf("%w: frame of %d bytes exceeds the limit of %d bytes",
			common.ErrProtocol, len(payload), maxFrameSize)
	}

	header := strconv.AppendInt(make([]byte, 0, maxHeaderLen+1), int64(len(payload)), 10)
	header = append(header, frameSeparator)

	return wireFrame{header: header, payload: payload}, nil
}

// frameDecoder reassembles frames from a byte stream.
// Every connection owns its own decoder, it is not safe for concurrent use.
type frameDecoder struct {
	serializer    serializer.IRPCSerializer
	maxFrameSize  int
	buf           []byte
	contentLength int // -1 while the length prefix is incomplete
}

func newFrameDecoder(s serializer.IRPCSerializer, maxFrameSize int) *frameDecoder {
	return &frameDecoder{
		serializer:    s,
		maxFrameSize:  maxFrameSize,
		contentLength: -1,
	}
}

// Feed appends data to the buffer and returns every envelope completed by it, in
// stream order. A returned error wraps common.ErrProtocol; envelopes decoded before
// the malformed part are still returned and the decoder must not be used afterwards.
func (d *frameDecoder) Feed(data []byte) ([]common.Envelope, error) {
	d.buf = append(d.buf, data...)

	var out []common.Envelope
	for {
		if d.contentLength < 0 {
			i := bytes.IndexByte(d.buf, frameSeparator)
			if i == -1 {
				// the prefix may still be arriving
				if len(d.buf) > maxHeaderLen {
					return out, fmt.Errorf("%w: no frame length within %d bytes", common.ErrProtocol, maxHeaderLen)
				}
				if !isDigits(d.buf) {
					return out, fmt.Errorf("%w: invalid frame length %q", common.ErrProtocol, d.buf)
				}
				return out, nil
			}

			n, err := parseLength(d.buf[:i])
			if err != nil {
				return out, err
			}
			if d.maxFrameSize > 0 && n > d.maxFrameSize {
				return out, fmt.Errorf("%w: frame of %d bytes exceeds the limit of %d bytes",
					common.ErrProtocol, n, d.maxFrameSize)
			}

			d.contentLength = n
			d.buf = d.buf[i+1:]
		}

		// wait for the rest of the payload
		if len(d.buf) < d.contentLength {
			return out, nil
		}

		var env common.Envelope
		if err := d.serializer.Deserialize(d.buf[:d.contentLength], &env); err != nil {
			return out, fmt.Errorf("%w: invalid envelope: %v", common.ErrProtocol, err)
		}
		out = append(out, env)

		d.buf = d.buf[d.contentLength:]
		d.contentLength = -1
		if len(d.buf) == 0 {
			d.buf = nil
			return out, nil
		}
	}
}

// Buffered returns the number of bytes waiting for the rest of their frame
func (d *frameDecoder) Buffered() int {
	return len(d.buf)
}

func parseLength(header []byte) (int, error) {
	if len(header) == 0 || len(header) > maxHeaderLen || !isDigits(header) {
		return 0, fmt.Errorf("%w: invalid frame length %q", common.ErrProtocol, header)
	}
	n, err := strconv.Atoi(string(header))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid frame length %q: %v", common.ErrProtocol, header, err)
	}
	return n, nil
}

func isDigits(b []byte) bool {
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
