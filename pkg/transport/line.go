package transport

import (
	"context"
	"errors"
	"io"
	"net"
)

// lineReadChunk is the read buffer size for the raw PCM16 byte stream.
const lineReadChunk = 4096

// LineConnection is the line-oriented TCP transport: raw PCM16 bytes in,
// newline-terminated text lines out.
type LineConnection struct {
	conn net.Conn
	dedupe
}

// NewLineConnection wraps an already-accepted TCP connection.
func NewLineConnection(conn net.Conn) *LineConnection {
	return &LineConnection{conn: conn}
}

// ReceiveAudio performs one blocking read of raw PCM16 bytes. Context
// cancellation is honored via the connection's read deadline machinery
// where the caller has set one; this implementation performs a plain
// blocking read for the line transport.
func (c *LineConnection) ReceiveAudio(ctx context.Context) ([]byte, error) {
	buf := make([]byte, lineReadChunk)
	n, err := c.conn.Read(buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return buf[:n], nil
}

// Send writes text followed by a newline, unless it is byte-identical to
// the previous send.
func (c *LineConnection) Send(ctx context.Context, text string) error {
	if !c.shouldSend(text) {
		return nil
	}
	_, err := c.conn.Write([]byte(text + "\n"))
	return err
}

// Close closes the underlying TCP connection.
func (c *LineConnection) Close() error {
	return c.conn.Close()
}
