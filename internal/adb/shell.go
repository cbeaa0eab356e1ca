package adb

import (
	"io"

	"github.com/danmuck/adbctl/internal/protocol"
)

// Shell runs a command on the device and streams its raw output to out
// until the server closes the channel. The exchange consumes the
// connection; the client's next command reconnects.
func (c *Client) Shell(serial string, out io.Writer, args ...string) error {
	if err := c.begin(); err != nil {
		return err
	}
	if err := c.selectTransport(serial); err != nil {
		return err
	}
	if err := c.request(protocol.Shell(args...)); err != nil {
		return err
	}
	_, err := io.Copy(out, c.t)
	return err
}
