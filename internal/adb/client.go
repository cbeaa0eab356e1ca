// Package adb drives the host side of the ADB server protocol and hands
// out sync sessions.
//
// Ownership boundary:
// - host request/response exchange and error-body draining
// - reconnect between top-level commands
// - high-level device operations (version, devices, push, pull, ...)
package adb

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/adbctl/internal/protocol"
	adbsync "github.com/danmuck/adbctl/internal/protocol/sync"
	"github.com/danmuck/adbctl/internal/protocol/wire"
	"github.com/danmuck/adbctl/internal/transport"
)

// Client is one logical session against a local ADB server. It owns the
// transport exclusively; exchanges are strictly half-duplex and never
// pipelined.
type Client struct {
	t   *transport.Transport
	log zerolog.Logger

	// fresh marks a socket that has not carried a command yet. The
	// server tears the channel down after most top-level exchanges, so
	// a used socket is replaced before the next command.
	fresh bool
}

// Dial connects to the ADB server at addr.
func Dial(addr string, cfg transport.Config) (*Client, error) {
	t, err := transport.Dial(addr, cfg)
	if err != nil {
		return nil, err
	}
	return NewClient(t), nil
}

// NewClient adopts a freshly connected transport.
func NewClient(t *transport.Transport) *Client {
	return &Client{
		t:     t,
		log:   log.Logger.With().Str("component", "adb").Logger(),
		fresh: true,
	}
}

func (c *Client) Close() error { return c.t.Close() }

// begin readies the socket for a new top-level command, reconnecting if
// a previous exchange already consumed the channel.
func (c *Client) begin() error {
	if c.fresh {
		c.fresh = false
		return nil
	}
	c.log.Debug().Str("addr", c.t.Addr()).Msg("reopening connection for next command")
	return c.t.Reconnect()
}

// request sends one host command frame and decodes the 4-byte status.
// On FAIL the hex-length error body is fully drained before returning,
// so no code path leaves bytes of the current frame on the stream.
func (c *Client) request(cmd protocol.HostCommand) error {
	frame, err := wire.EncodeHostFrame([]byte(cmd.Token()))
	if err != nil {
		return err
	}
	if err := c.t.WriteFull(frame); err != nil {
		return err
	}
	return c.readStatus()
}

func (c *Client) readStatus() error {
	var status [4]byte
	if err := c.t.ReadFull(status[:]); err != nil {
		return err
	}
	st, err := protocol.ParseStatus(status[:])
	if err != nil {
		return err
	}
	if st == protocol.StatusOkay {
		return nil
	}
	body, err := c.readHexBody()
	if err != nil {
		return err
	}
	return &protocol.RejectedError{Message: string(body)}
}

// readHexBody reads a 4-hex-digit length and exactly that many bytes.
func (c *Client) readHexBody() ([]byte, error) {
	var lenBuf [4]byte
	if err := c.t.ReadFull(lenBuf[:]); err != nil {
		return nil, err
	}
	length, err := wire.DecodeHexLength(lenBuf[:])
	if err != nil {
		return nil, err
	}
	body := make([]byte, length)
	if length > 0 {
		if err := c.t.ReadFull(body); err != nil {
			return nil, err
		}
	}
	return body, nil
}

// HostVersion asks the server for its protocol version.
func (c *Client) HostVersion() (int, error) {
	if err := c.begin(); err != nil {
		return 0, err
	}
	if err := c.request(protocol.HostVersion()); err != nil {
		return 0, err
	}
	body, err := c.readHexBody()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(string(body), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("adb: malformed version body %q", body)
	}
	return int(v), nil
}

// Kill asks the server to exit. The server may close the channel
// instead of answering, which counts as success.
func (c *Client) Kill() error {
	if err := c.begin(); err != nil {
		return err
	}
	frame, err := wire.EncodeHostFrame([]byte(protocol.HostKill().Token()))
	if err != nil {
		return err
	}
	if err := c.t.WriteFull(frame); err != nil {
		return err
	}
	err = c.readStatus()
	if err != nil && isClosedByPeer(err) {
		return nil
	}
	return err
}

func isClosedByPeer(err error) bool {
	return errors.Is(err, transport.ErrShortRead) || errors.Is(err, io.EOF)
}

// selectTransport binds the channel to one device before a device-bound
// service request.
func (c *Client) selectTransport(serial string) error {
	if serial == "" {
		return c.request(protocol.TransportAny())
	}
	return c.request(protocol.TransportSerial(serial))
}

// SyncSession selects a transport and switches the channel into sync
// mode. The caller owns the returned session until Quit; the client's
// next top-level command reconnects.
func (c *Client) SyncSession(serial string) (*adbsync.Session, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	if err := c.selectTransport(serial); err != nil {
		return nil, err
	}
	if err := c.request(protocol.SyncMode()); err != nil {
		return nil, err
	}
	return adbsync.NewSession(c.t), nil
}

// Push uploads src to remotePath on the device identified by serial
// (empty selects any). The caller supplies the file metadata; the
// client never touches the filesystem itself.
func (c *Client) Push(serial, remotePath string, src io.Reader, mode fs.FileMode, mtime time.Time) error {
	s, err := c.SyncSession(serial)
	if err != nil {
		return err
	}
	if err := s.Send(remotePath, src, mode, mtime); err != nil {
		return err
	}
	return s.Quit()
}

// Pull downloads remotePath into dst.
func (c *Client) Pull(serial, remotePath string, dst io.Writer) error {
	s, err := c.SyncSession(serial)
	if err != nil {
		return err
	}
	if err := s.Recv(remotePath, dst); err != nil {
		return err
	}
	return s.Quit()
}

// List walks a remote directory, delivering entries to fn as they
// arrive.
func (c *Client) List(serial, remotePath string, fn func(adbsync.DirectoryEntry)) error {
	s, err := c.SyncSession(serial)
	if err != nil {
		return err
	}
	if err := s.List(remotePath, fn); err != nil {
		return err
	}
	return s.Quit()
}

// Stat fetches mode, size and mtime for one remote path.
func (c *Client) Stat(serial, remotePath string) (adbsync.FileStat, error) {
	s, err := c.SyncSession(serial)
	if err != nil {
		return adbsync.FileStat{}, err
	}
	st, err := s.Stat(remotePath)
	if err != nil {
		return adbsync.FileStat{}, err
	}
	return st, s.Quit()
}
