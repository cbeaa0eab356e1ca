package sync

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/danmuck/adbctl/internal/protocol"
	"github.com/danmuck/adbctl/internal/protocol/wire"
)

// Send uploads src to remotePath. The initiating argument is the remote
// path with the octal file mode appended after a comma; a zero mode
// falls back to 0777. mtime stamps the file on the device and is
// mandatory: a missing time is a metadata error, never fabricated.
func (s *Session) Send(remotePath string, src io.Reader, mode fs.FileMode, mtime time.Time) error {
	return s.send(s.t, remotePath, src, mode, mtime)
}

func (s *Session) send(rw io.ReadWriter, remotePath string, src io.Reader, mode fs.FileMode, mtime time.Time) error {
	if mtime.IsZero() {
		return fmt.Errorf("%w: %s", protocol.ErrMissingModTime, remotePath)
	}

	perm := uint32(mode.Perm())
	if mode == 0 {
		perm = 0o777
	}
	arg := fmt.Sprintf("%s,%04o", remotePath, perm)
	if err := initiate(rw, wire.TagSend, arg); err != nil {
		return err
	}

	// Chunks are 'DATA' <length> <bytes>, at most 64 KiB each. A
	// zero-length trailing chunk is never emitted.
	buf := make([]byte, MaxChunkSize)
	for {
		n, err := io.ReadFull(src, buf)
		if n > 0 {
			head, herr := wire.EncodeSyncHeader(wire.TagData, uint32(n))
			if herr != nil {
				return herr
			}
			if werr := writeAll(rw, head); werr != nil {
				return werr
			}
			if werr := writeAll(rw, buf[:n]); werr != nil {
				return werr
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("sync: read source: %w", err)
		}
	}

	done, err := wire.EncodeSyncHeader(wire.TagDone, uint32(mtime.Unix()))
	if err != nil {
		return err
	}
	if err := writeAll(rw, done); err != nil {
		return err
	}

	// Terminal status. A failure body here uses the sync length
	// encoding, not the hex encoding of host responses.
	tag, err := readTag(rw)
	if err != nil {
		return err
	}
	switch tag {
	case wire.TagOkay:
		return nil
	case wire.TagFail:
		return readSyncFail(rw)
	}
	return &protocol.DesyncError{Tag: tag}
}
