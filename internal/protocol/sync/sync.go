// Package sync implements the ADB file-sync sub-protocol.
//
// Ownership boundary:
// - LIST / SEND / RECV / STAT exchanges
// - DENT record and chunked DATA transfer decoding
//
// A Session is entered only after a successful "sync:" host request and
// owns the transport for the rest of sync mode. Every exchange either
// succeeds or fails with a decoded error, and never returns while bytes
// of the current frame remain unread; anything less desynchronizes the
// stream for the rest of the session.
package sync

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/adbctl/internal/protocol"
	"github.com/danmuck/adbctl/internal/protocol/wire"
	"github.com/danmuck/adbctl/internal/transport"
)

const (
	// MaxChunkSize bounds one DATA payload in either direction.
	MaxChunkSize = 64 * 1024

	// maxUnknownTagStreak aborts a listing when the peer emits this many
	// consecutive unrecognized tags, so a misbehaving server cannot hold
	// the loop forever.
	maxUnknownTagStreak = 8

	// maxDentNameLen rejects absurd name lengths before allocating.
	maxDentNameLen = 64 * 1024

	dentFixedLen = 16
)

// DirectoryEntry is one DENT record from a LIST exchange. Entries are
// delivered as they arrive and not retained by the session.
type DirectoryEntry struct {
	Mode    uint32
	Size    uint32
	ModTime uint32
	Name    string
}

// FileStat is the fixed STAT response: mode, size and mtime, no name.
type FileStat struct {
	Mode    uint32
	Size    uint32
	ModTime uint32
}

// Session drives the sync sub-protocol over one owned transport.
type Session struct {
	t   *transport.Transport
	log zerolog.Logger
}

// NewSession adopts t, which must already be switched into sync mode.
func NewSession(t *transport.Transport) *Session {
	return &Session{
		t:   t,
		log: log.Logger.With().Str("component", "sync").Logger(),
	}
}

// Quit ends sync mode. The server closes the channel afterwards, so the
// caller must reconnect before issuing another host command.
func (s *Session) Quit() error {
	head, err := wire.EncodeSyncHeader(wire.TagQuit, 0)
	if err != nil {
		return err
	}
	return writeAll(s.t, head)
}

// initiate writes the 8-byte sync header followed by the unterminated
// UTF-8 argument. Every sub-command exchange starts this way.
func initiate(w io.Writer, tag, arg string) error {
	head, err := wire.EncodeSyncHeader(tag, uint32(len(arg)))
	if err != nil {
		return err
	}
	if err := writeAll(w, head); err != nil {
		return err
	}
	return writeAll(w, []byte(arg))
}

func readFull(r io.Reader, p []byte) error {
	if _, err := io.ReadFull(r, p); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: want %d bytes: %v", transport.ErrShortRead, len(p), err)
		}
		return err
	}
	return nil
}

func writeAll(w io.Writer, p []byte) error {
	n, err := w.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return fmt.Errorf("%w: wrote %d of %d bytes", transport.ErrShortWrite, n, len(p))
	}
	return nil
}

func readTag(r io.Reader) (string, error) {
	var buf [wire.TagLen]byte
	if err := readFull(r, buf[:]); err != nil {
		return "", err
	}
	return string(buf[:]), nil
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if err := readFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// readSyncFail drains a sync-mode FAIL body. Sync failures carry a
// little-endian u32 length, not the hex encoding used by host responses.
func readSyncFail(r io.Reader) error {
	length, err := readU32(r)
	if err != nil {
		return err
	}
	msg := make([]byte, length)
	if length > 0 {
		if err := readFull(r, msg); err != nil {
			return err
		}
	}
	return &protocol.RejectedError{Message: string(msg)}
}
