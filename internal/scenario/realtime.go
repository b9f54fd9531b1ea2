package scenario

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/surgekit/surgekit/internal/loadgen"
)

const (
	messageEndpoint = "/demo-realtime/message"

	// sseDataPrefix marks one inbound message in a server-push stream.
	// Several marker lines may arrive in one chunk; each is counted.
	sseDataPrefix = "data:"

	wsHandshakeTimeout = 10 * time.Second
)

func newWebSocket() *Definition {
	return &Definition{
		ID:   "ws",
		Name: "WebSocket",
		Stream: func(env *Env) (loadgen.DialFunc, loadgen.PublishFunc) {
			return dialWS, publishMessage(env, "benchmark message")
		},
	}
}

func newSSE() *Definition {
	return &Definition{
		ID:   "sse",
		Name: "SSE Streaming",
		Stream: func(env *Env) (loadgen.DialFunc, loadgen.PublishFunc) {
			return dialSSE, publishMessage(env, "benchmark sse message")
		},
	}
}

// publishMessage builds the publisher loop body: one POST emitting a
// broadcast message on the bench channel.
func publishMessage(env *Env, content string) loadgen.PublishFunc {
	return func(ctx context.Context) error {
		body := map[string]any{
			"id":      uuid.NewString(),
			"content": content,
			"channel": "bench",
		}
		_, err := env.Client.PostJSON(ctx, messageEndpoint, body)
		return err
	}
}

// ── WebSocket subscriber ──

func dialWS(ctx context.Context, wc *loadgen.WorkerContext) (loadgen.StreamConn, error) {
	wsURL := httpToWS(wc.Client.BaseURL()) + messageEndpoint + "?stream=ws"

	dialer := &websocket.Dialer{
		HandshakeTimeout: wsHandshakeTimeout,
	}
	if wc.Config.Insecure {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &wsConn{
		conn:  conn,
		msgCh: make(chan int64, 64),
		errCh: make(chan error, 1),
		done:  make(chan struct{}),
	}
	go c.readFrames()
	return c, nil
}

func httpToWS(base string) string {
	return strings.NewReplacer("https://", "wss://", "http://", "ws://").Replace(base)
}

type wsConn struct {
	conn  *websocket.Conn
	msgCh chan int64
	errCh chan error

	// done, closed exactly once by Close, unblocks the reader pump when
	// the subscriber has stopped draining msgCh.
	done      chan struct{}
	closeOnce sync.Once
}

// readFrames pumps inbound frames into msgCh. A single goroutine owns
// all reads; a read error latches the connection, so it ends the loop.
func (c *wsConn) readFrames() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = io.EOF
			}
			select {
			case c.errCh <- err:
			case <-c.done:
			}
			return
		}
		select {
		case c.msgCh <- int64(len(data)):
		case <-c.done:
			return
		}
	}
}

func (c *wsConn) Recv(timeout time.Duration) ([]int64, error) {
	// A closed conn wins over whatever teardown error the reader saw.
	select {
	case <-c.done:
		return nil, io.EOF
	default:
	}
	select {
	case size := <-c.msgCh:
		return []int64{size}, nil
	case err := <-c.errCh:
		return nil, err
	case <-c.done:
		return nil, io.EOF
	case <-time.After(timeout):
		// Still connected, nothing arrived in time.
		return nil, nil
	}
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, deadline)
	return c.conn.Close()
}

// ── SSE subscriber ──

func dialSSE(ctx context.Context, wc *loadgen.WorkerContext) (loadgen.StreamConn, error) {
	resp, err := wc.Client.OpenStream(ctx, messageEndpoint+"?stream=sse")
	if err != nil {
		return nil, fmt.Errorf("sse connect: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("sse connect: target returned %d", resp.StatusCode)
	}

	c := &sseConn{
		body:  resp.Body,
		msgCh: make(chan int64, 64),
		errCh: make(chan error, 1),
		done:  make(chan struct{}),
	}
	go c.readLines()
	return c, nil
}

type sseConn struct {
	body  io.ReadCloser
	msgCh chan int64
	errCh chan error

	done      chan struct{}
	closeOnce sync.Once
}

// readLines scans the chunked response and emits one size per marker
// line. It exits when the body is closed, the stream ends, or Close
// signals that nobody is draining msgCh anymore.
func (c *sseConn) readLines() {
	scanner := bufio.NewScanner(c.body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, sseDataPrefix) {
			select {
			case c.msgCh <- int64(len(line)):
			case <-c.done:
				return
			}
		}
	}
	select {
	case c.errCh <- scanner.Err():
	case <-c.done:
	}
}

func (c *sseConn) Recv(timeout time.Duration) ([]int64, error) {
	select {
	case <-c.done:
		return nil, io.EOF
	default:
	}
	select {
	case size := <-c.msgCh:
		return []int64{size}, nil
	case err := <-c.errCh:
		if err == nil {
			return nil, io.EOF
		}
		return nil, err
	case <-c.done:
		return nil, io.EOF
	case <-time.After(timeout):
		return nil, nil
	}
}

func (c *sseConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	// Also unblocks a read in flight inside the scanner.
	return c.body.Close()
}
