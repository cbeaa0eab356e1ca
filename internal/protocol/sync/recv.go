package sync

import (
	"io"

	"github.com/danmuck/adbctl/internal/protocol"
	"github.com/danmuck/adbctl/internal/protocol/wire"
)

// Recv downloads remotePath into dst, the mirror of Send's chunk loop:
// DATA frames are appended to dst until a DONE tag, which carries no
// further payload from the server.
func (s *Session) Recv(remotePath string, dst io.Writer) error {
	return s.recv(s.t, remotePath, dst)
}

func (s *Session) recv(rw io.ReadWriter, remotePath string, dst io.Writer) error {
	if err := initiate(rw, wire.TagRecv, remotePath); err != nil {
		return err
	}

	buf := make([]byte, MaxChunkSize)
	for {
		tag, err := readTag(rw)
		if err != nil {
			return err
		}
		switch tag {
		case wire.TagData:
			length, err := readU32(rw)
			if err != nil {
				return err
			}
			if length > MaxChunkSize {
				return &protocol.DesyncError{Tag: wire.TagData}
			}
			chunk := buf[:length]
			if err := readFull(rw, chunk); err != nil {
				return err
			}
			if err := writeAll(dst, chunk); err != nil {
				return err
			}
		case wire.TagDone:
			return nil
		case wire.TagFail:
			return readSyncFail(rw)
		default:
			return &protocol.DesyncError{Tag: tag}
		}
	}
}
