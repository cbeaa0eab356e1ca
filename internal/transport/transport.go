// Package transport owns the TCP connection to the ADB server.
//
// One Transport is one session: strictly half-duplex, never shared
// between concurrent exchanges.
package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

var (
	ErrConnect    = errors.New("transport: connect failed")
	ErrClosed     = errors.New("transport: connection closed")
	ErrShortRead  = errors.New("transport: short read")
	ErrShortWrite = errors.New("transport: short write")
)

// Config carries socket-level deadlines. Zero values mean block forever;
// the protocol layers impose no timeout policy of their own.
type Config struct {
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		DialTimeout: 5 * time.Second,
	}
}

// Transport is the sole read/write surface for the protocol layers. The
// socket is always either freshly connected or has just been replaced by
// Reconnect; no partially-initialized state is observable.
type Transport struct {
	addr string
	cfg  Config
	conn net.Conn
}

// Dial opens a TCP connection to the ADB server.
func Dial(addr string, cfg Config) (*Transport, error) {
	conn, err := dial(addr, cfg)
	if err != nil {
		return nil, err
	}
	return &Transport{addr: addr, cfg: cfg, conn: conn}, nil
}

// Wrap adopts an already-connected net.Conn. Used by tests and by
// callers that manage their own dialing.
func Wrap(conn net.Conn, addr string, cfg Config) *Transport {
	return &Transport{addr: addr, cfg: cfg, conn: conn}
}

func dial(addr string, cfg Config) (net.Conn, error) {
	d := net.Dialer{Timeout: cfg.DialTimeout}
	conn, err := d.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConnect, addr, err)
	}
	return conn, nil
}

// Reconnect replaces the live socket with a new connection to the same
// peer, discarding any buffered state. On failure the Transport is
// unusable and must not be reused.
func (t *Transport) Reconnect() error {
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
	conn, err := dial(t.addr, t.cfg)
	if err != nil {
		return err
	}
	t.conn = conn
	return nil
}

func (t *Transport) Read(p []byte) (int, error) {
	if t.conn == nil {
		return 0, ErrClosed
	}
	if t.cfg.ReadTimeout > 0 {
		if err := t.conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout)); err != nil {
			return 0, err
		}
	}
	return t.conn.Read(p)
}

func (t *Transport) Write(p []byte) (int, error) {
	if t.conn == nil {
		return 0, ErrClosed
	}
	if t.cfg.WriteTimeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout)); err != nil {
			return 0, err
		}
	}
	return t.conn.Write(p)
}

// ReadFull fills p completely. A stream ending early is a transport
// fault, never silently treated as success.
func (t *Transport) ReadFull(p []byte) error {
	if _, err := io.ReadFull(t, p); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: want %d bytes: %v", ErrShortRead, len(p), err)
		}
		return err
	}
	return nil
}

// WriteFull writes p completely.
func (t *Transport) WriteFull(p []byte) error {
	n, err := t.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return fmt.Errorf("%w: wrote %d of %d bytes", ErrShortWrite, n, len(p))
	}
	return nil
}

func (t *Transport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// Addr returns the peer address this transport dials.
func (t *Transport) Addr() string { return t.addr }
