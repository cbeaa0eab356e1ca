package protocol

import "fmt"

// RequestStatus is the server's answer to a host request. The wire knows
// exactly two words; anything else is a decode error, never a third status.
type RequestStatus int

const (
	StatusOkay RequestStatus = iota
	StatusFail
)

const statusLen = 4

// ParseStatus decodes exactly four status bytes.
func ParseStatus(b []byte) (RequestStatus, error) {
	if len(b) != statusLen {
		return StatusFail, fmt.Errorf("%w: %d bytes", ErrInvalidStatus, len(b))
	}
	switch string(b) {
	case "OKAY":
		return StatusOkay, nil
	case "FAIL":
		return StatusFail, nil
	}
	return StatusFail, fmt.Errorf("%w: %q", ErrInvalidStatus, b)
}
