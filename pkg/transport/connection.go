// Package transport implements the two wire-level connection variants: a
// line-oriented TCP stream and a message-oriented WebSocket. Both satisfy
// the same Connection contract so the session loop above them is
// transport-agnostic.
package transport

import "context"

// Connection is the per-client abstraction the session loop drives. audio
// bytes are raw PCM16 little-endian mono @ 16 kHz; decoding to float32 is
// left to pkg/audio.
type Connection interface {
	// ReceiveAudio blocks until audio bytes are available, returns them,
	// or returns (nil, nil) on an orderly close. Any other error is
	// connection-fatal.
	ReceiveAudio(ctx context.Context) ([]byte, error)

	// Send delivers one textual message to the peer atomically.
	// Identical consecutive sends are suppressed.
	Send(ctx context.Context, text string) error

	// Close releases the underlying socket.
	Close() error
}

// dedupe tracks the last-sent string for a connection so Send can suppress
// repeats. Embed by value in each Connection implementation.
type dedupe struct {
	lastSent string
	hasSent  bool
}

// shouldSend reports whether text differs from the last one sent, and
// records it as sent if so.
func (d *dedupe) shouldSend(text string) bool {
	if d.hasSent && d.lastSent == text {
		return false
	}
	d.lastSent = text
	d.hasSent = true
	return true
}
