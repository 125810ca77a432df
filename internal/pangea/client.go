package pangea

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingInterval    = 50 * time.Second // keepalive toward the upstream
	readTimeout     = 90 * time.Second // ~2 missed pings triggers a reconnect
	writeTimeout    = 10 * time.Second // deadline for outgoing messages
	frameBufferSize = 256

	formatJSONStream = "json_stream"
)

// Bound marks one end of a block range: an exact block or an open-ended
// subscription.
type Bound struct {
	block     int64
	subscribe bool
}

func Exact(block int64) Bound { return Bound{block: block} }
func Subscribe() Bound        { return Bound{subscribe: true} }

func (b Bound) MarshalJSON() ([]byte, error) {
	if b.subscribe {
		return json.Marshal("subscribe")
	}
	return json.Marshal(b.block)
}

// StreamRequest is the single message sent after dialing. The server answers
// with one JSON event record per frame until to_block is reached or, in
// subscribe mode, indefinitely.
type StreamRequest struct {
	Chains     []string `json:"chains"`
	FromBlock  int64    `json:"from_block"`
	ToBlock    Bound    `json:"to_block"`
	MarketIDIn []string `json:"market_id__in"`
	Format     string   `json:"format"`
}

// Client dials the Pangea WebSocket endpoint with basic-auth credentials.
// Reconnect policy belongs to the caller; each Stream call is one upstream
// request.
type Client struct {
	url      string
	username string
	password string
	logger   *slog.Logger
}

func NewClient(host, username, password string, logger *slog.Logger) *Client {
	return &Client{
		url:      "wss://" + host + "/v1/websocket",
		username: username,
		password: password,
		logger:   logger.With("component", "pangea"),
	}
}

// Stream opens one upstream request. Frames are delivered until the server
// ends the range, the connection breaks, or ctx is cancelled.
func (c *Client) Stream(ctx context.Context, req StreamRequest) (*Stream, error) {
	header := http.Header{}
	header.Set("Authorization", "Basic "+basicAuth(c.username, c.password))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.url, err)
	}

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send stream request: %w", err)
	}

	s := &Stream{
		conn:   conn,
		frames: make(chan []byte, frameBufferSize),
		done:   make(chan struct{}),
	}
	go s.readLoop(ctx)
	go s.pingLoop(ctx)
	return s, nil
}

func basicAuth(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}

// Stream is one open upstream request.
type Stream struct {
	conn      *websocket.Conn
	frames    chan []byte
	err       error
	done      chan struct{}
	closeOnce sync.Once
}

// Frames returns the channel of raw event records. It closes when the
// stream ends for any reason.
func (s *Stream) Frames() <-chan []byte { return s.frames }

// Err reports why the stream ended. Only valid once Frames is closed; nil
// means the server closed the range normally.
func (s *Stream) Err() error { return s.err }

// Close tears the connection down early. Safe to call more than once.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.conn != nil {
			err = s.conn.Close()
		}
	})
	return err
}

func (s *Stream) readLoop(ctx context.Context) {
	defer close(s.frames)
	defer s.Close()
	defer close(s.done)

	// Unblock the read when the caller goes away.
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()

	for {
		s.conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			switch {
			case ctx.Err() != nil:
				s.err = ctx.Err()
			case websocket.IsCloseError(err, websocket.CloseNormalClosure):
				// Server finished the requested range.
			default:
				s.err = fmt.Errorf("read: %w", err)
			}
			return
		}

		select {
		case s.frames <- msg:
		case <-ctx.Done():
			s.err = ctx.Err()
			return
		}
	}
}

func (s *Stream) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(writeTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
