// Package store implements the text query/response client to the
// policy-monitoring store that backs SCA reconciliation.
package store

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SearchResult is the outcome of a store query as interpreted by the
// decoder, distinct from the raw wire response code.
type SearchResult int

const (
	// Found indicates the store returned "ok found {payload}".
	Found SearchResult = iota
	// NotFound indicates the store returned "ok not found".
	NotFound
	// Err indicates a transport failure or any response that is
	// neither a found nor a not-found reply.
	Err
)

func (r SearchResult) String() string {
	switch r {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	default:
		return "error"
	}
}

// Config configures the store client's connection to the store.
type Config struct {
	Addr        string
	DialTimeout time.Duration
}

// Client is a single-connection text client to the store. It owns one
// TCP connection, reconnecting lazily on the next query after a
// transport error, mirroring the connect-on-demand shape the style
// donor uses for its outbound API clients.
type Client struct {
	cfg Config
	log *logrus.Logger

	mu   sync.Mutex
	conn net.Conn
}

// New creates a store client. No connection is made until the first query.
func New(cfg Config, log *logrus.Logger) *Client {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	return &Client{cfg: cfg, log: log}
}

func (c *Client) dial() error {
	conn, err := net.DialTimeout("tcp", c.cfg.Addr, c.cfg.DialTimeout)
	if err != nil {
		return fmt.Errorf("store: dial %s: %w", c.cfg.Addr, err)
	}
	c.conn = conn
	return nil
}

// writeFramed writes a 4-byte little-endian length header followed by
// the payload, matching the binary little-endian framing convention the
// style donor applies to its own wire protocols.
func writeFramed(w *bufio.Writer, payload string) error {
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if _, err := w.WriteString(payload); err != nil {
		return err
	}
	return w.Flush()
}

func readFramed(r *bufio.Reader) (string, error) {
	var header [4]byte
	if _, err := readFull(r, header[:]); err != nil {
		return "", err
	}
	n := binary.LittleEndian.Uint32(header[:])
	buf := make([]byte, n)
	if _, err := readFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Query sends a raw query string and returns the raw response, dialing
// (or redialing) the connection as needed. Transport failures close the
// stale connection so the next Query redials.
func (c *Client) Query(query string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.dial(); err != nil {
			c.log.WithError(err).Warn("store: dial failed")
			return "", err
		}
	}

	rw := bufio.NewReadWriter(bufio.NewReader(c.conn), bufio.NewWriter(c.conn))
	if err := writeFramed(rw.Writer, query); err != nil {
		c.closeLocked()
		c.log.WithError(err).Warn("store: write failed")
		return "", err
	}
	resp, err := readFramed(rw.Reader)
	if err != nil {
		c.closeLocked()
		c.log.WithError(err).Warn("store: read failed")
		return "", err
	}
	c.log.WithFields(logrus.Fields{"query": query, "response": resp}).Debug("store: query complete")
	return resp, nil
}

func (c *Client) closeLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Close releases the underlying connection, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}

// SearchAndParse sends q and classifies the response per the store's
// "ok found {payload}" / "ok not found" / anything-else-is-error
// contract. When parseTail is true, the payload following "found " is
// returned alongside Found; otherwise the payload is empty.
func (c *Client) SearchAndParse(q string, parseTail bool) (SearchResult, string) {
	resp, err := c.Query(q)
	if err != nil {
		return Err, ""
	}
	return classify(resp, parseTail, c.log)
}

// Write sends a fire-and-forget write query (insert/update/delete) and
// classifies the response the way the original decoder checks
// QueryResultCodes::OK on every write: a transport failure or any
// response not prefixed "ok" is an error, logged at warn.
func (c *Client) Write(q string) error {
	resp, err := c.Query(q)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(resp, "ok") {
		c.log.WithFields(logrus.Fields{"query": q, "response": resp}).Warn("store: write returned a non-ok response")
		return fmt.Errorf("store: write %q: unexpected response %q", q, resp)
	}
	return nil
}

const foundPrefix = "found "

func classify(resp string, parseTail bool, log *logrus.Logger) (SearchResult, string) {
	if !strings.HasPrefix(resp, "ok ") {
		return Err, ""
	}
	payload := strings.TrimPrefix(resp, "ok ")

	if strings.HasPrefix(payload, "not found") {
		return NotFound, ""
	}
	if strings.HasPrefix(payload, foundPrefix) {
		if parseTail {
			return Found, payload[len(foundPrefix):]
		}
		return Found, ""
	}
	if payload == "found" || strings.HasPrefix(payload, "found") {
		// A truncated payload that starts with "found" but lacks the
		// space-terminated prefix is reported as an error.
		if log != nil {
			log.WithField("response", resp).Warn("store: truncated found payload")
		}
		return Err, ""
	}
	return Err, ""
}

// BuildQuery builds the canonical "agent {agentID} sca {verb} {args}" string
// with '|'-separated positional arguments.
func BuildQuery(agentID, verb string, args ...string) string {
	q := fmt.Sprintf("agent %s sca %s", agentID, verb)
	if len(args) > 0 {
		q += " " + strings.Join(args, "|")
	}
	return q
}
