// Package forward implements the connectionful client that pushes
// dump requests to the agent-facing forwarder sink.
package forward

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SendResult classifies the outcome of a Send call.
type SendResult int

const (
	// Success means the message was written to the socket.
	Success SendResult = iota
	// SizeTooLong means the message exceeded the configured maximum
	// and was never attempted on the wire.
	SizeTooLong
	// SocketError means the write failed at the transport layer.
	SocketError
)

func (r SendResult) String() string {
	switch r {
	case Success:
		return "success"
	case SizeTooLong:
		return "size_too_long"
	case SocketError:
		return "socket_error"
	default:
		return "unknown"
	}
}

// DefaultMaxMessageSize matches the wire limit of the agent-facing
// request queue this forwarder feeds into.
const DefaultMaxMessageSize = 212

// Config configures the forwarder client's connection to the dump sink.
type Config struct {
	// Network is "tcp" or "unix".
	Network        string
	Addr           string
	MaxMessageSize int
	DialTimeout    time.Duration
}

// Client is a connect-on-demand, newline-framed text client to the
// dump-request sink. It is write-only and reconnects after any socket
// error on the next send, mirroring the reconnect-on-error shape the
// style donor applies to its own outbound clients.
type Client struct {
	cfg Config
	log *logrus.Logger

	mu   sync.Mutex
	conn net.Conn
}

// New creates a forwarder client. No connection is made until the first send.
func New(cfg Config, log *logrus.Logger) *Client {
	if cfg.Network == "" {
		cfg.Network = "tcp"
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	return &Client{cfg: cfg, log: log}
}

// IsConnected reports whether the client currently believes it holds a
// live connection.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Connect dials the forwarder sink.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Client) connectLocked() error {
	conn, err := net.DialTimeout(c.cfg.Network, c.cfg.Addr, c.cfg.DialTimeout)
	if err != nil {
		return fmt.Errorf("forward: dial %s %s: %w", c.cfg.Network, c.cfg.Addr, err)
	}
	c.conn = conn
	return nil
}

// Disconnect closes the current connection, if any, forcing reconnection
// on the next PushDumpRequest.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectLocked()
}

func (c *Client) disconnectLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Send writes msg newline-framed to the sink. A message exceeding the
// configured maximum is classified SizeTooLong without attempting the
// write. A transport failure is classified SocketError and disconnects
// the client so the next PushDumpRequest redials. Send itself never
// dials; it expects a connection made by Connect or PushDumpRequest.
func (c *Client) Send(msg string) SendResult {
	if len(msg) > c.cfg.MaxMessageSize {
		return SizeTooLong
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.conn.Write([]byte(msg + "\n")); err != nil {
		c.disconnectLocked()
		return SocketError
	}
	return Success
}

// PushDumpRequest implements the forwarder's dump-request policy: if not
// connected, attempt to connect (logging and returning on failure, since
// the enclosing event must still succeed); send a message of the form
// "{agentID}:sca-dump:{policyID}:{0|1}"; log SizeTooLong and return; on
// SocketError, log and disconnect so the next call reconnects. Success
// is silent.
func (c *Client) PushDumpRequest(agentID, policyID string, firstScan bool) {
	if !c.IsConnected() {
		if err := c.Connect(); err != nil {
			c.log.WithError(err).Warn("forward: failed to connect for dump request")
			return
		}
	}

	flag := "0"
	if firstScan {
		flag = "1"
	}
	msg := fmt.Sprintf("%s:sca-dump:%s:%s", agentID, policyID, flag)

	switch c.Send(msg) {
	case SizeTooLong:
		c.log.WithFields(logrus.Fields{"agent_id": agentID, "policy_id": policyID}).
			Warn("forward: dump request exceeds max message size")
	case SocketError:
		c.log.WithFields(logrus.Fields{"agent_id": agentID, "policy_id": policyID}).
			Warn("forward: dump request send failed, disconnecting")
	}
}
