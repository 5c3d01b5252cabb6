package ws

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chargepilot/internal/ocpp"
	"chargepilot/internal/ocpp/protocol"
)

// ErrCallFailed is returned when a pending call is abandoned because the
// connection went away before the reply arrived.
var ErrCallFailed = errors.New("ws: call failed, connection closed")

var idGenerator = generateID

func generateID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

// MessageProcessor handles parsed inbound CALL frames.
type MessageProcessor interface {
	ProcessCall(ctx context.Context, identity string, msg *ocpp.Message) ([]byte, error)
}

type callOutcome struct {
	payload json.RawMessage
	err     error
}

// Connection represents an active charge point WebSocket connection. Inbound
// CALLs go to the processor; CALLRESULT/CALLERROR frames are routed back to
// the pending outbound call they answer.
type Connection struct {
	identity     string
	ws           *websocket.Conn
	send         chan []byte
	parser       *ocpp.Parser
	processor    MessageProcessor
	logger       *zap.Logger
	writeTimeout time.Duration
	onClose      func(*Connection)

	mu      sync.Mutex
	pending map[string]chan callOutcome
	closed  bool
}

// NewConnection builds connection wrapper.
func NewConnection(identity string, ws *websocket.Conn, processor MessageProcessor, writeTimeout time.Duration, logger *zap.Logger, onClose func(*Connection)) *Connection {
	return &Connection{
		identity:     identity,
		ws:           ws,
		send:         make(chan []byte, 16),
		parser:       ocpp.NewParser(),
		processor:    processor,
		logger:       logger,
		writeTimeout: writeTimeout,
		onClose:      onClose,
		pending:      make(map[string]chan callOutcome),
	}
}

// Identity returns the charger identity bound at handshake.
func (c *Connection) Identity() string {
	return c.identity
}

// Start launches read/write pumps.
func (c *Connection) Start(ctx context.Context) {
	go c.writePump(ctx)
	c.readPump(ctx)
}

// Close shuts the underlying socket; the read pump observes the closure and
// runs the usual teardown.
func (c *Connection) Close() {
	if c.ws != nil {
		_ = c.ws.Close()
	}
}

// Call issues an outbound CALL frame and awaits the matching reply. Network
// failure, connection loss, and ctx expiry all surface as errors; the device
// declining is a normal response the caller inspects.
func (c *Connection) Call(ctx context.Context, action string, payload interface{}) (json.RawMessage, error) {
	uid := idGenerator()
	frame, err := ocpp.BuildCall(uid, action, payload)
	if err != nil {
		return nil, err
	}

	ch := make(chan callOutcome, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrCallFailed
	}
	c.pending[uid] = ch
	c.mu.Unlock()

	c.Send(frame)

	select {
	case outcome := <-ch:
		return outcome.payload, outcome.err
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, uid)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (c *Connection) resolve(msg *ocpp.Message) {
	c.mu.Lock()
	ch, ok := c.pending[msg.UniqueID]
	delete(c.pending, msg.UniqueID)
	c.mu.Unlock()

	if !ok {
		c.logger.Warn("reply for unknown call",
			zap.String("identity", c.identity), zap.String("unique_id", msg.UniqueID))
		return
	}

	if msg.ErrorCode != "" {
		ch <- callOutcome{err: fmt.Errorf("ws: call error %s: %s", msg.ErrorCode, msg.ErrorDescription)}
		return
	}
	ch <- callOutcome{payload: msg.Payload}
}

func (c *Connection) readPump(ctx context.Context) {
	defer c.cleanup()
	c.ws.SetReadLimit(1024 * 1024)
	c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := c.ws.ReadMessage()
		if err != nil {
			c.logger.Info("connection read closed", zap.String("identity", c.identity), zap.Error(err))
			return
		}

		msg, err := c.parser.Parse(message)
		if err != nil {
			c.logger.Warn("malformed ocpp frame", zap.String("identity", c.identity), zap.Error(err))
			continue
		}

		switch msg.MessageType {
		case protocol.MessageTypeCall:
			response, err := c.processor.ProcessCall(ctx, c.identity, msg)
			if err != nil {
				c.logger.Warn("failed to process message", zap.String("identity", c.identity), zap.Error(err))
				continue
			}
			if response != nil {
				c.Send(response)
			}
		default:
			c.resolve(msg)
		}
	}
}

func (c *Connection) writePump(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, []byte("ping")); err != nil {
				return
			}
		}
	}
}

// Send enqueues a message for writing.
func (c *Connection) Send(msg []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("attempted to send on closed channel", zap.String("identity", c.identity))
		}
	}()
	select {
	case c.send <- msg:
	default:
		c.logger.Warn("dropping outgoing message, buffer full", zap.String("identity", c.identity))
	}
}

// Ping sends ping.
func (c *Connection) Ping() error {
	return c.write(websocket.PingMessage, []byte("ping"))
}

func (c *Connection) write(messageType int, data []byte) error {
	c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(messageType, data)
}

func (c *Connection) cleanup() {
	c.mu.Lock()
	c.closed = true
	for uid, ch := range c.pending {
		ch <- callOutcome{err: ErrCallFailed}
		delete(c.pending, uid)
	}
	c.mu.Unlock()

	close(c.send)
	if c.ws != nil {
		_ = c.ws.Close()
	}
	if c.onClose != nil {
		c.onClose(c)
	}
}
