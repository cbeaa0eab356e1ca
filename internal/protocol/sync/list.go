package sync

import (
	"encoding/binary"
	"io"

	"github.com/danmuck/adbctl/internal/protocol"
	"github.com/danmuck/adbctl/internal/protocol/wire"
)

// List walks the remote directory at path, delivering each entry to fn
// as it is decoded. Unknown tags are logged and skipped, mirroring real
// ADB servers that emit tags we do not know; a streak of them with no
// progress aborts the exchange instead of looping forever.
func (s *Session) List(path string, fn func(DirectoryEntry)) error {
	return s.list(s.t, path, fn)
}

func (s *Session) list(rw io.ReadWriter, path string, fn func(DirectoryEntry)) error {
	if err := initiate(rw, wire.TagList, path); err != nil {
		return err
	}

	unknown := 0
	for {
		tag, err := readTag(rw)
		if err != nil {
			return err
		}
		switch tag {
		case wire.TagDent:
			ent, err := readDent(rw)
			if err != nil {
				return err
			}
			fn(ent)
			unknown = 0
		case wire.TagDone:
			return nil
		case wire.TagFail:
			return readSyncFail(rw)
		default:
			unknown++
			s.log.Warn().Str("tag", tag).Str("path", path).Msg("ignoring unknown tag in listing")
			if unknown >= maxUnknownTagStreak {
				return &protocol.DesyncError{Tag: tag}
			}
		}
	}
}

func readDent(r io.Reader) (DirectoryEntry, error) {
	var fixed [dentFixedLen]byte
	if err := readFull(r, fixed[:]); err != nil {
		return DirectoryEntry{}, err
	}
	nameLen := binary.LittleEndian.Uint32(fixed[12:16])
	if nameLen > maxDentNameLen {
		return DirectoryEntry{}, &protocol.DesyncError{Tag: wire.TagDent}
	}
	name := make([]byte, nameLen)
	if err := readFull(r, name); err != nil {
		return DirectoryEntry{}, err
	}
	return DirectoryEntry{
		Mode:    binary.LittleEndian.Uint32(fixed[0:4]),
		Size:    binary.LittleEndian.Uint32(fixed[4:8]),
		ModTime: binary.LittleEndian.Uint32(fixed[8:12]),
		Name:    string(name),
	}, nil
}
