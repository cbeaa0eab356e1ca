package adb

import (
	"strings"

	"github.com/danmuck/adbctl/internal/protocol"
)

// Device is one row of the server's device list.
type Device struct {
	Serial string
	State  string
}

// Devices fetches the device list tracked by the server.
func (c *Client) Devices() ([]Device, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	if err := c.request(protocol.HostDevices()); err != nil {
		return nil, err
	}
	body, err := c.readHexBody()
	if err != nil {
		return nil, err
	}
	return parseDevices(string(body)), nil
}

// parseDevices splits the "serial\tstate" lines of a host:devices body.
func parseDevices(body string) []Device {
	var out []Device
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		serial, state, found := strings.Cut(line, "\t")
		if !found {
			serial = line
			state = "unknown"
		}
		out = append(out, Device{Serial: serial, State: state})
	}
	return out
}
