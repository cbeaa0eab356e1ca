package sync

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/adbctl/internal/protocol"
	"github.com/danmuck/adbctl/internal/protocol/wire"
)

// script is a fake half-duplex peer: Read consumes the scripted server
// bytes, Write collects everything the session sends.
type script struct {
	in  *bytes.Buffer
	out bytes.Buffer
}

func newScript(serverBytes []byte) *script {
	return &script{in: bytes.NewBuffer(serverBytes)}
}

func (s *script) Read(p []byte) (int, error)  { return s.in.Read(p) }
func (s *script) Write(p []byte) (int, error) { return s.out.Write(p) }

func newTestSession() *Session {
	return &Session{log: zerolog.Nop()}
}

func le(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func dent(mode, size, mtime uint32, name string) []byte {
	var b bytes.Buffer
	b.WriteString(wire.TagDent)
	b.Write(le(mode))
	b.Write(le(size))
	b.Write(le(mtime))
	b.Write(le(uint32(len(name))))
	b.WriteString(name)
	return b.Bytes()
}

func TestListSingleEntry(t *testing.T) {
	var server bytes.Buffer
	server.Write(dent(0o100644, 10, 0, "test"))
	server.WriteString(wire.TagDone)

	rw := newScript(server.Bytes())
	var got []DirectoryEntry
	err := newTestSession().list(rw, "/data", func(e DirectoryEntry) { got = append(got, e) })
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	want := DirectoryEntry{Mode: 0o100644, Size: 10, ModTime: 0, Name: "test"}
	if got[0] != want {
		t.Fatalf("entry mismatch: got %+v want %+v", got[0], want)
	}

	// The initiating frame must be LIST + length + path.
	sent := rw.out.Bytes()
	if string(sent[:4]) != wire.TagList || string(sent[8:]) != "/data" {
		t.Fatalf("unexpected request bytes %q", sent)
	}
	if binary.LittleEndian.Uint32(sent[4:8]) != uint32(len("/data")) {
		t.Fatalf("bad path length in header")
	}
}

func TestListRoundTripPreservesOrder(t *testing.T) {
	entries := []DirectoryEntry{
		{Mode: 0o040755, Size: 0, ModTime: 100, Name: "dir"},
		{Mode: 0o100644, Size: 42, ModTime: 200, Name: "a.txt"},
		{Mode: 0o100777, Size: 7, ModTime: 300, Name: "b.bin"},
	}
	var server bytes.Buffer
	for _, e := range entries {
		server.Write(dent(e.Mode, e.Size, e.ModTime, e.Name))
	}
	server.WriteString(wire.TagDone)

	var got []DirectoryEntry
	err := newTestSession().list(newScript(server.Bytes()), "/", func(e DirectoryEntry) { got = append(got, e) })
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("expected %d entries, got %d", len(entries), len(got))
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Fatalf("entry %d mismatch: got %+v want %+v", i, got[i], entries[i])
		}
	}
}

func TestListSkipsUnknownTagsAndContinues(t *testing.T) {
	var server bytes.Buffer
	server.WriteString("WHAT")
	server.Write(dent(0o100644, 1, 0, "x"))
	server.WriteString("HUH?")
	server.WriteString(wire.TagDone)

	var got []DirectoryEntry
	err := newTestSession().list(newScript(server.Bytes()), "/", func(e DirectoryEntry) { got = append(got, e) })
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Name != "x" {
		t.Fatalf("expected the DENT between unknown tags, got %+v", got)
	}
}

func TestListAbortsOnUnknownTagStreak(t *testing.T) {
	var server bytes.Buffer
	for i := 0; i < maxUnknownTagStreak+2; i++ {
		server.WriteString("JUNK")
	}

	err := newTestSession().list(newScript(server.Bytes()), "/", func(DirectoryEntry) {})
	if !errors.Is(err, protocol.ErrDesync) {
		t.Fatalf("expected desync abort, got %v", err)
	}
}

func TestListServerFailUsesSyncLength(t *testing.T) {
	var server bytes.Buffer
	server.WriteString(wire.TagFail)
	server.Write(le(uint32(len("no such dir"))))
	server.WriteString("no such dir")

	err := newTestSession().list(newScript(server.Bytes()), "/nope", func(DirectoryEntry) {})
	var rejected *protocol.RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
	if rejected.Message != "no such dir" {
		t.Fatalf("message %q", rejected.Message)
	}
}

// parseSendStream splits everything the session wrote during a SEND into
// the initiating argument, DATA chunk sizes and the DONE mtime.
func parseSendStream(t *testing.T, b []byte) (arg string, chunks []int, mtime uint32) {
	t.Helper()
	if len(b) < wire.SyncHeaderLen {
		t.Fatalf("stream too short: %d bytes", len(b))
	}
	if string(b[:4]) != wire.TagSend {
		t.Fatalf("expected SEND, got %q", b[:4])
	}
	argLen := binary.LittleEndian.Uint32(b[4:8])
	b = b[8:]
	arg = string(b[:argLen])
	b = b[argLen:]

	for {
		if len(b) < wire.SyncHeaderLen {
			t.Fatalf("truncated frame: %d bytes left", len(b))
		}
		tag := string(b[:4])
		length := binary.LittleEndian.Uint32(b[4:8])
		b = b[8:]
		switch tag {
		case wire.TagData:
			if uint32(len(b)) < length {
				t.Fatalf("truncated DATA chunk")
			}
			chunks = append(chunks, int(length))
			b = b[length:]
		case wire.TagDone:
			if len(b) != 0 {
				t.Fatalf("%d trailing bytes after DONE", len(b))
			}
			return arg, chunks, length
		default:
			t.Fatalf("unexpected tag %q in send stream", tag)
		}
	}
}

func TestSendChunksLargeSource(t *testing.T) {
	src := bytes.Repeat([]byte{0xab}, 130*1024)
	rw := newScript([]byte(wire.TagOkay))

	mtime := time.Unix(1700000000, 0)
	err := newTestSession().send(rw, "/sdcard/big", bytes.NewReader(src), fs.FileMode(0o644), mtime)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	arg, chunks, gotMtime := parseSendStream(t, rw.out.Bytes())
	if arg != "/sdcard/big,0644" {
		t.Fatalf("arg %q", arg)
	}
	want := []int{64 * 1024, 64 * 1024, 2 * 1024}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %v", len(want), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Fatalf("chunk %d: got %d want %d", i, chunks[i], want[i])
		}
	}
	if gotMtime != 1700000000 {
		t.Fatalf("mtime %d", gotMtime)
	}
}

func TestSendExactMultipleEmitsNoEmptyChunk(t *testing.T) {
	src := bytes.Repeat([]byte{0x01}, 128*1024)
	rw := newScript([]byte(wire.TagOkay))

	err := newTestSession().send(rw, "/f", bytes.NewReader(src), 0, time.Unix(5, 0))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	arg, chunks, _ := parseSendStream(t, rw.out.Bytes())
	if arg != "/f,0777" {
		t.Fatalf("default mode arg %q", arg)
	}
	if len(chunks) != 2 || chunks[0] != 64*1024 || chunks[1] != 64*1024 {
		t.Fatalf("expected two full chunks and no empty trailer, got %v", chunks)
	}
}

func TestSendMissingModTime(t *testing.T) {
	rw := newScript(nil)
	err := newTestSession().send(rw, "/f", bytes.NewReader(nil), 0, time.Time{})
	if !errors.Is(err, protocol.ErrMissingModTime) {
		t.Fatalf("expected ErrMissingModTime, got %v", err)
	}
	if rw.out.Len() != 0 {
		t.Fatalf("nothing should be written without metadata")
	}
}

func TestSendServerFailUsesSyncLengthNotHex(t *testing.T) {
	var server bytes.Buffer
	server.WriteString(wire.TagFail)
	server.Write(le(5))
	server.WriteString("error")
	// Sentinel byte: a correct reader stops exactly after the message.
	server.WriteByte(0xEE)

	rw := newScript(server.Bytes())
	err := newTestSession().send(rw, "/f", bytes.NewReader([]byte("hi")), 0, time.Unix(1, 0))
	var rejected *protocol.RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
	if rejected.Message != "error" {
		t.Fatalf("message %q", rejected.Message)
	}
	if rw.in.Len() != 1 || rw.in.Bytes()[0] != 0xEE {
		t.Fatalf("failure body not drained exactly: %d bytes left", rw.in.Len())
	}
}

func TestRecvAppendsChunksUntilDone(t *testing.T) {
	var server bytes.Buffer
	server.WriteString(wire.TagData)
	server.Write(le(5))
	server.WriteString("hello")
	server.WriteString(wire.TagData)
	server.Write(le(6))
	server.WriteString(" world")
	server.WriteString(wire.TagDone)

	var dst bytes.Buffer
	err := newTestSession().recv(newScript(server.Bytes()), "/remote/f", &dst)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if dst.String() != "hello world" {
		t.Fatalf("got %q", dst.String())
	}
}

func TestRecvRejectsOversizedChunk(t *testing.T) {
	var server bytes.Buffer
	server.WriteString(wire.TagData)
	server.Write(le(MaxChunkSize + 1))

	err := newTestSession().recv(newScript(server.Bytes()), "/f", &bytes.Buffer{})
	if !errors.Is(err, protocol.ErrDesync) {
		t.Fatalf("expected desync, got %v", err)
	}
}

func TestRecvUnexpectedTagDesyncs(t *testing.T) {
	err := newTestSession().recv(newScript([]byte("DENT")), "/f", &bytes.Buffer{})
	var desync *protocol.DesyncError
	if !errors.As(err, &desync) {
		t.Fatalf("expected DesyncError, got %v", err)
	}
	if desync.Tag != "DENT" {
		t.Fatalf("tag %q", desync.Tag)
	}
}

func TestStatFixedRecord(t *testing.T) {
	var server bytes.Buffer
	server.WriteString(wire.TagStat)
	server.Write(le(0o100600))
	server.Write(le(512))
	server.Write(le(1234567890))

	rw := newScript(server.Bytes())
	st, err := newTestSession().stat(rw, "/remote/f")
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	want := FileStat{Mode: 0o100600, Size: 512, ModTime: 1234567890}
	if st != want {
		t.Fatalf("got %+v want %+v", st, want)
	}
	if rw.in.Len() != 0 {
		t.Fatalf("STAT record not fully drained")
	}
}

func TestStatServerFail(t *testing.T) {
	var server bytes.Buffer
	server.WriteString(wire.TagFail)
	server.Write(le(0))

	_, err := newTestSession().stat(newScript(server.Bytes()), "/f")
	var rejected *protocol.RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
	if rejected.Message != "" {
		t.Fatalf("expected empty message, got %q", rejected.Message)
	}
}

// Two well-formed exchanges back to back succeed because each one fully
// drains what it declares; a reader that skips a declared body leaves
// the next exchange reading garbage. Documents why draining is
// mandatory.
func TestBackToBackExchangesStayInSync(t *testing.T) {
	var server bytes.Buffer
	server.WriteString(wire.TagFail)
	server.Write(le(4))
	server.WriteString("oops")
	server.Write(dent(0o100644, 1, 0, "f"))
	server.WriteString(wire.TagDone)

	rw := newScript(server.Bytes())
	sess := newTestSession()

	err := sess.list(rw, "/first", func(DirectoryEntry) {})
	var rejected *protocol.RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("first exchange: expected RejectedError, got %v", err)
	}

	var got []DirectoryEntry
	if err := sess.list(rw, "/second", func(e DirectoryEntry) { got = append(got, e) }); err != nil {
		t.Fatalf("second exchange desynchronized: %v", err)
	}
	if len(got) != 1 || got[0].Name != "f" {
		t.Fatalf("second exchange decoded wrong entries: %+v", got)
	}
}

func TestUndrainedBodyCorruptsNextExchange(t *testing.T) {
	var server bytes.Buffer
	server.WriteString(wire.TagFail)
	server.Write(le(4))
	server.WriteString("oops")
	server.Write(dent(0o100644, 1, 0, "f"))
	server.WriteString(wire.TagDone)

	rw := newScript(server.Bytes())

	// Simulate a buggy reader that sees FAIL but never drains the body.
	tag, err := readTag(rw)
	if err != nil || tag != wire.TagFail {
		t.Fatalf("setup: %q %v", tag, err)
	}

	// The next exchange now reads the stale length field as a tag and
	// must surface corruption instead of decoding phantom frames.
	err = newTestSession().recv(rw, "/next", &bytes.Buffer{})
	if !errors.Is(err, protocol.ErrDesync) {
		t.Fatalf("expected the undrained body to desync the next exchange, got %v", err)
	}
}
