package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/coder/websocket"
)

// audioFrame is the JSON shape accepted for text-framed audio.
type audioFrame struct {
	Audio string `json:"audio"`
}

// minPCM16Bytes is the smallest audio payload treated as a real frame; a
// single PCM16 sample is 2 bytes.
const minPCM16Bytes = 2

// WSConnection is the message-oriented WebSocket transport. Audio arrives
// as either a binary frame or a JSON text frame carrying base64 PCM16;
// both are accepted.
type WSConnection struct {
	conn *websocket.Conn
	dedupe
}

// NewWSConnection wraps an already-accepted WebSocket connection.
func NewWSConnection(conn *websocket.Conn) *WSConnection {
	return &WSConnection{conn: conn}
}

// ReceiveAudio reads the next frame and extracts raw PCM16 bytes. A
// malformed text frame (invalid JSON, missing "audio" key, or an audio
// payload shorter than one PCM16 sample after decoding) is treated as an
// empty receive rather than a connection error, so one bad frame does not
// tear down the session.
func (c *WSConnection) ReceiveAudio(ctx context.Context) ([]byte, error) {
	typ, data, err := c.conn.Read(ctx)
	if err != nil {
		if websocket.CloseStatus(err) != -1 {
			return nil, nil
		}
		return nil, err
	}

	switch typ {
	case websocket.MessageBinary:
		if len(data) < minPCM16Bytes {
			return []byte{}, nil
		}
		return data, nil
	case websocket.MessageText:
		var frame audioFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Audio == "" {
			return []byte{}, nil
		}
		decoded, err := base64.StdEncoding.DecodeString(frame.Audio)
		if err != nil || len(decoded) < minPCM16Bytes {
			return []byte{}, nil
		}
		return decoded, nil
	default:
		return []byte{}, nil
	}
}

// Send writes text as a WebSocket text frame, unless it is byte-identical
// to the previous send.
func (c *WSConnection) Send(ctx context.Context, text string) error {
	if !c.shouldSend(text) {
		return nil
	}
	return c.conn.Write(ctx, websocket.MessageText, []byte(text))
}

// Close closes the underlying WebSocket connection with a normal closure.
func (c *WSConnection) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
