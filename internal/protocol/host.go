package protocol

import "strings"

// HostCommandKind discriminates the top-level requests understood by the
// ADB server before any sync activity.
type HostCommandKind int

const (
	KindTransportAny HostCommandKind = iota
	KindTransportSerial
	KindSync
	KindShell
	KindHostVersion
	KindHostDevices
	KindHostKill
)

// HostCommand is one tagged top-level request. Serial and Args are only
// meaningful for the kinds that carry them.
type HostCommand struct {
	Kind   HostCommandKind
	Serial string
	Args   []string
}

func TransportAny() HostCommand { return HostCommand{Kind: KindTransportAny} }

func TransportSerial(serial string) HostCommand {
	return HostCommand{Kind: KindTransportSerial, Serial: serial}
}

func SyncMode() HostCommand { return HostCommand{Kind: KindSync} }

func Shell(args ...string) HostCommand {
	return HostCommand{Kind: KindShell, Args: args}
}

func HostVersion() HostCommand { return HostCommand{Kind: KindHostVersion} }

func HostDevices() HostCommand { return HostCommand{Kind: KindHostDevices} }

func HostKill() HostCommand { return HostCommand{Kind: KindHostKill} }

// Token maps a command to its canonical wire string. The mapping is the
// wire contract; keeping it in one exhaustive switch prevents drift
// between the vocabulary and the encoder.
func (c HostCommand) Token() string {
	switch c.Kind {
	case KindTransportAny:
		return "host:transport-any"
	case KindTransportSerial:
		return "host:transport:" + c.Serial
	case KindSync:
		return "sync:"
	case KindShell:
		return "shell:" + strings.Join(c.Args, " ")
	case KindHostVersion:
		return "host:version"
	case KindHostDevices:
		return "host:devices"
	case KindHostKill:
		return "host:kill"
	}
	return ""
}
