// Package control receives display mode changes over a local TCP socket.
//
// The wire format has no framing: every chunk returned by a single read is
// decoded as one decimal integer.
package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultAddress is the loopback endpoint the voice control process dials
const DefaultAddress = "127.0.0.1:12345"

// maxMessageSize bounds one read. A read that fills it is an oversized
// message and is discarded along with its continuation.
const maxMessageSize = 64

var (
	// ErrMalformedMessage is returned for a chunk that is not a decimal integer
	ErrMalformedMessage = errors.New("malformed control message")

	// ErrListenerClosed is returned by Serve after Close
	ErrListenerClosed = errors.New("listener closed")
)

// ModeSetter receives decoded modes
type ModeSetter interface {
	Set(m int)
}

// Listener accepts one control connection at a time and forwards every
// decoded mode to a ModeSetter. It holds no lock while blocked on the socket.
type Listener struct {
	ln    net.Listener
	modes ModeSetter
	log   *logrus.Entry

	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

// Listen binds addr
func Listen(addr string, modes ModeSetter) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	l := &Listener{
		ln:    ln,
		modes: modes,
		log: logrus.WithFields(logrus.Fields{
			"component": "control",
			"addr":      ln.Addr().String(),
		}),
	}
	l.log.Info("control listener bound")
	return l, nil
}

// Addr returns the bound address
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Serve accepts connections until ctx is done or Close is called, serving
// each to completion before accepting the next. Peer disconnects and
// malformed messages never end Serve.
func (l *Listener) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if l.isClosed() {
				if ctx.Err() != nil {
					return nil
				}
				return ErrListenerClosed
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}

		if !l.track(conn) {
			conn.Close()
			return nil
		}
		l.serveConn(conn)
		l.track(nil)
	}
}

// track records the active connection so Close can interrupt its read
func (l *Listener) track(conn net.Conn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed && conn != nil {
		return false
	}
	l.conn = conn
	return true
}

func (l *Listener) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// serveConn reads chunks until the peer disconnects
func (l *Listener) serveConn(conn net.Conn) {
	defer conn.Close()

	log := l.log.WithFields(logrus.Fields{
		"session": uuid.NewString(),
		"peer":    conn.RemoteAddr().String(),
	})
	log.Info("control peer connected")

	buf := make([]byte, maxMessageSize)
	oversized := false
	for {
		n, err := conn.Read(buf)
		switch {
		case n == 0:
		case n == len(buf):
			// A chunk that fills the buffer may continue in the next read.
			// Drop it and everything up to the next short read.
			if !oversized {
				log.WithError(fmt.Errorf("%w: longer than %d bytes", ErrMalformedMessage, len(buf)-1)).
					Warn("discarding control message")
			}
			oversized = true
		case oversized:
			oversized = false
		default:
			l.apply(log, buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) || l.isClosed() {
				log.Info("control peer disconnected")
			} else {
				log.WithError(err).Warn("control connection failed")
			}
			return
		}
	}
}

func (l *Listener) apply(log *logrus.Entry, msg []byte) {
	m, err := ParseMode(msg)
	if err != nil {
		log.WithError(err).Warn("discarding control message")
		return
	}
	l.modes.Set(m)
	log.WithField("mode", m).Info("mode changed")
}

// ParseMode decodes one control message. Surrounding whitespace is ignored
// so tools that append a newline also work.
func ParseMode(msg []byte) (int, error) {
	s := strings.TrimSpace(string(msg))
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrMalformedMessage)
	}
	m, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedMessage, s)
	}
	return m, nil
}

// Close stops accepting and drops the active connection. It is safe to call
// more than once and from any goroutine.
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	conn := l.conn
	l.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	return l.ln.Close()
}
