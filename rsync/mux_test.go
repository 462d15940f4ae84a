package rsync

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func TestMuxRoundTrip(t *testing.T) {
	buf := new(bytes.Buffer)
	w := NewMuxWriter(nopWriteCloser{buf})
	payload := []byte("file list goes here")
	if _, err := w.Write(payload); err != nil {
		t.Fatal(err)
	}

	// header: 24-bit length, tag in the high byte
	hdr := buf.Bytes()[:4]
	if hdr[3] != MUX_BASE+MSG_DATA {
		t.Fatalf("tag = %d, want %d", hdr[3], MUX_BASE+MSG_DATA)
	}
	if got := int(hdr[0]) | int(hdr[1])<<8 | int(hdr[2])<<16; got != len(payload) {
		t.Fatalf("envelope size = %d, want %d", got, len(payload))
	}

	r := NewMuxReader(io.NopCloser(buf))
	got := make([]byte, len(payload))
	if _, err := io.ReadFull(r, got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("read %q, want %q", got, payload)
	}
}

func TestMuxReaderSpansEnvelopes(t *testing.T) {
	buf := new(bytes.Buffer)
	w := NewMuxWriter(nopWriteCloser{buf})
	for _, part := range []string{"first ", "second ", "third"} {
		if _, err := w.Write([]byte(part)); err != nil {
			t.Fatal(err)
		}
	}

	r := NewMuxReader(io.NopCloser(buf))
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "first second third" {
		t.Fatalf("read %q", got)
	}
}

func TestMuxReaderErrorMessage(t *testing.T) {
	buf := new(bytes.Buffer)
	msg := "some files vanished"
	buf.Write([]byte{byte(len(msg)), 0, 0, MUX_BASE + MSG_ERROR})
	buf.WriteString(msg)

	r := NewMuxReader(io.NopCloser(buf))
	_, err := r.Read(make([]byte, 1))
	if err == nil || !strings.Contains(err.Error(), msg) {
		t.Fatalf("got %v, want the server message surfaced", err)
	}
}
