package ws

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"marketplace-chat/domain/chat"
	"marketplace-chat/errors"
	"marketplace-chat/services"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type Options struct {
	MaxMessageSize  int64
	BufferSize      int
	RateLimitBurst  int
	RateLimitRefill time.Duration
	// ReplyTimeout bounds the wait for buffer room before a completion is given up, writeWait when zero.
	ReplyTimeout    time.Duration
	AllowedOrigins  []string
}

// Connection is one websocket client of the hub, bound to the identity
// resolved at handshake. Pushes are queued FIFO and written by a single writer.
type Connection struct {
	id           chat.ConnectionID
	userID       string
	expiresAt    time.Time
	conn         *websocket.Conn
	send         chan []byte
	done         chan struct{}
	closeOnce    sync.Once
	limiter      *rate.Limiter
	replyTimeout time.Duration
	log          *slog.Logger
	now          func() time.Time
}

func newConnection(log *slog.Logger, conn *websocket.Conn, userID string, expiresAt time.Time, opts Options) *Connection {
	id := chat.NewConnectionID()
	replyTimeout := opts.ReplyTimeout
	if replyTimeout <= 0 {
		replyTimeout = writeWait
	}
	return &Connection{
		id:           id,
		userID:       userID,
		expiresAt:    expiresAt,
		conn:         conn,
		send:         make(chan []byte, opts.BufferSize),
		done:         make(chan struct{}),
		limiter:      newLimiter(opts.RateLimitBurst, opts.RateLimitRefill),
		replyTimeout: replyTimeout,
		log:          log.With("connection_id", id, "user_id", userID),
		now:          time.Now,
	}
}

// newLimiter refills burst tokens per interval.
func newLimiter(burst int, interval time.Duration) *rate.Limiter {
	if burst <= 0 {
		burst = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	return rate.NewLimiter(rate.Limit(float64(burst)/interval.Seconds()), burst)
}

func (c *Connection) ID() chat.ConnectionID { return c.id }

func (c *Connection) UserID() string { return c.userID }

// Authenticated is false once the handshake token has expired.
func (c *Connection) Authenticated() bool {
	return c.userID != "" && (c.expiresAt.IsZero() || c.now().Before(c.expiresAt))
}

// Consume queues a push. It waits for room in the buffer until ctx is done.
func (c *Connection) Consume(ctx context.Context, p chat.Push) error {
	payload, err := json.Marshal(pushFrame(p))
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return errors.ErrConnectionClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return errors.ErrConnectionClosed
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", errors.ErrBackpressure, ctx.Err())
	}
}

// Close stops the writer, which sends a close frame and releases the socket.
func (c *Connection) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// reply queues a completion, waiting up to the reply timeout for room in the buffer.
func (c *Connection) reply(f Frame) {
	payload, err := json.Marshal(f)
	if err != nil {
		c.log.Error("Unable to encode frame", "error", err)
		return
	}
	// Completions queue behind pushes already sent, so they keep the FIFO order
	timer := time.NewTimer(c.replyTimeout)
	defer timer.Stop()
	select {
	case c.send <- payload:
	case <-c.done:
	case <-timer.C:
		c.log.Warn("Send buffer stayed full, completion dropped", "invocation_id", f.InvocationID)
	}
}

func (c *Connection) readPump(ctx context.Context, maxMessageSize int64, hub services.IHubService) {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		frame, err := decodeFrame(raw)
		if err != nil {
			c.reply(completionFrame("", err))
			continue
		}

		switch frame.Type {
		case FramePing:
		case FrameInvocation:
			if !c.limiter.Allow() {
				c.log.Debug("Rate limit exceeded, invocation discarded", "target", frame.Target)
				c.reply(completionFrame(frame.InvocationID, errors.ErrRateLimited))
				continue
			}
			err = hub.Invoke(ctx, c, frame.Target, frame.Arguments)
			c.reply(completionFrame(frame.InvocationID, err))
		default:
			c.reply(completionFrame(frame.InvocationID, errors.ErrInvalidFrame))
		}
	}
}

func (c *Connection) logReadError(err error) {
	switch {
	case stderrors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("Message exceeded the maximum size")
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway),
		stderrors.Is(err, io.EOF):
		c.log.Debug("Client disconnected")
	default:
		c.log.Debug("Read failed", "error", err)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Debug("Write failed", "error", err)
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
