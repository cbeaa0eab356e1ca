package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
)

const (
	// TagLen is the size of every sync tag and of the host status word.
	TagLen = 4
	// SyncHeaderLen is tag plus little-endian length, always 8 bytes.
	SyncHeaderLen = 8
	// MaxHostPayload is the largest payload a 4-hex-digit prefix can carry.
	MaxHostPayload = 0xFFFF
)

// Sync sub-protocol tags. These are the wire contract.
const (
	TagList = "LIST"
	TagSend = "SEND"
	TagRecv = "RECV"
	TagStat = "STAT"
	TagDent = "DENT"
	TagDone = "DONE"
	TagData = "DATA"
	TagOkay = "OKAY"
	TagFail = "FAIL"
	TagQuit = "QUIT"
)

var (
	ErrPayloadTooLarge = errors.New("wire: payload exceeds 4 hex digits")
	ErrBadHexLength    = errors.New("wire: malformed hex length")
	ErrShortHeader     = errors.New("wire: short sync header")
	ErrBadTag          = errors.New("wire: tag must be 4 bytes")
)

// EncodeHostFrame prefixes payload with its length as exactly four
// lowercase hex digits.
func EncodeHostFrame(payload []byte) ([]byte, error) {
	if len(payload) > MaxHostPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}
	buf := make([]byte, 0, TagLen+len(payload))
	buf = append(buf, fmt.Sprintf("%04x", len(payload))...)
	return append(buf, payload...), nil
}

// DecodeHexLength parses a 4-digit base-16 ASCII length field.
func DecodeHexLength(b []byte) (uint32, error) {
	if len(b) != TagLen {
		return 0, fmt.Errorf("%w: %d bytes", ErrBadHexLength, len(b))
	}
	v, err := strconv.ParseUint(string(b), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadHexLength, b)
	}
	return uint32(v), nil
}

// EncodeSyncHeader builds the 8-byte sync frame header: tag followed by
// the payload length as little-endian u32.
func EncodeSyncHeader(tag string, length uint32) ([]byte, error) {
	if len(tag) != TagLen {
		return nil, fmt.Errorf("%w: %q", ErrBadTag, tag)
	}
	buf := make([]byte, SyncHeaderLen)
	copy(buf[:TagLen], tag)
	binary.LittleEndian.PutUint32(buf[TagLen:], length)
	return buf, nil
}

// DecodeSyncHeader splits an 8-byte sync frame header.
func DecodeSyncHeader(b []byte) (string, uint32, error) {
	if len(b) != SyncHeaderLen {
		return "", 0, fmt.Errorf("%w: %d bytes", ErrShortHeader, len(b))
	}
	return string(b[:TagLen]), binary.LittleEndian.Uint32(b[TagLen:]), nil
}
