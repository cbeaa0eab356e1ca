package protocol

import "errors"

var (
	ErrInvalidStatus  = errors.New("protocol: invalid status word")
	ErrDesync         = errors.New("protocol: sync stream desynchronized")
	ErrMissingModTime = errors.New("protocol: modification time unavailable")
)

// RejectedError carries the server's verbatim FAIL message. It is an
// expected outcome, not a transport fault.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return "protocol: request rejected"
	}
	return "protocol: request rejected: " + e.Message
}

// DesyncError reports an unrecognized tag in a context where only a
// closed set of tags is valid and no safe skip remains.
type DesyncError struct {
	Tag string
}

func (e *DesyncError) Error() string {
	return "protocol: unexpected tag " + e.Tag
}

func (e *DesyncError) Unwrap() error { return ErrDesync }
