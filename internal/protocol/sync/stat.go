package sync

import (
	"encoding/binary"
	"io"

	"github.com/danmuck/adbctl/internal/protocol"
	"github.com/danmuck/adbctl/internal/protocol/wire"
)

// Stat fetches the fixed 'STAT' record for path: mode, size and mtime,
// each little-endian u32, with no name field.
func (s *Session) Stat(path string) (FileStat, error) {
	return s.stat(s.t, path)
}

func (s *Session) stat(rw io.ReadWriter, path string) (FileStat, error) {
	if err := initiate(rw, wire.TagStat, path); err != nil {
		return FileStat{}, err
	}

	tag, err := readTag(rw)
	if err != nil {
		return FileStat{}, err
	}
	switch tag {
	case wire.TagStat:
	case wire.TagFail:
		return FileStat{}, readSyncFail(rw)
	default:
		return FileStat{}, &protocol.DesyncError{Tag: tag}
	}

	var fixed [12]byte
	if err := readFull(rw, fixed[:]); err != nil {
		return FileStat{}, err
	}
	return FileStat{
		Mode:    binary.LittleEndian.Uint32(fixed[0:4]),
		Size:    binary.LittleEndian.Uint32(fixed[4:8]),
		ModTime: binary.LittleEndian.Uint32(fixed[8:12]),
	}, nil
}
