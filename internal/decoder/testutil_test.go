package decoder

import (
	"bufio"
	"encoding/binary"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/invisible-tech/sca-event-decoder/internal/event"
	"github.com/invisible-tech/sca-event-decoder/internal/field"
	"github.com/invisible-tech/sca-event-decoder/internal/forward"
	"github.com/invisible-tech/sca-event-decoder/internal/store"
)

func testLog() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

// queryRecorder accumulates every query string a fake store server
// receives, in order, for assertions on verb sequencing.
type queryRecorder struct {
	mu      sync.Mutex
	queries []string
}

func (r *queryRecorder) record(q string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, q)
}

func (r *queryRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.queries))
	copy(out, r.queries)
	return out
}

// fakeStore runs a loopback server implementing the store wire protocol,
// dispatching each query to respond and recording it in rec.
func fakeStore(t *testing.T, rec *queryRecorder, respond func(query string) string) *store.Client {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot bind for test: %v", err)
	}
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		for {
			var header [4]byte
			if _, err := io.ReadFull(r, header[:]); err != nil {
				return
			}
			n := binary.LittleEndian.Uint32(header[:])
			buf := make([]byte, n)
			if _, err := io.ReadFull(r, buf); err != nil {
				return
			}
			q := string(buf)
			if rec != nil {
				rec.record(q)
			}
			resp := respond(q)
			var respHeader [4]byte
			binary.LittleEndian.PutUint32(respHeader[:], uint32(len(resp)))
			conn.Write(respHeader[:])
			conn.Write([]byte(resp))
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return store.New(store.Config{Addr: ln.Addr().String(), DialTimeout: time.Second}, testLog())
}

// fakeForwarder runs a loopback newline-framed sink, recording every
// message it receives.
func fakeForwarder(t *testing.T) (*forward.Client, *queryRecorder) {
	t.Helper()
	rec := &queryRecorder{}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot bind for test: %v", err)
	}
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			rec.record(scanner.Text())
		}
	}()
	t.Cleanup(func() { ln.Close() })
	c := forward.New(forward.Config{Network: "tcp", Addr: ln.Addr().String(), DialTimeout: time.Second}, testLog())
	return c, rec
}

// verbResponder dispatches a store query string to a canned response by
// its verb, defaulting to "ok not found" for unlisted verbs.
func verbResponder(byVerb map[string]string) func(string) string {
	return func(q string) string {
		for verb, resp := range byVerb {
			if strings.Contains(q, " sca "+verb+" ") || strings.HasSuffix(q, " sca "+verb) {
				return resp
			}
		}
		return "ok not found"
	}
}

func newDoc(t *testing.T, raw string) *event.Document {
	t.Helper()
	doc, err := event.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("event.Parse: %v", err)
	}
	return doc
}

func newCtx(doc *event.Document, agentID string, storeClient *store.Client, fwd *forward.Client) *DecodeContext {
	return &DecodeContext{
		Doc:       doc,
		AgentID:   agentID,
		Store:     storeClient,
		Forwarder: fwd,
		Log:       testLog(),
		SourcePath: func(f field.Name) string {
			return "/sca" + field.RelativePath(f)
		},
		DestPath: func(f field.Name) string {
			return "/sca" + field.RelativePath(f)
		},
	}
}
