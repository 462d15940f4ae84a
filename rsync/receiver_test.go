package rsync

import (
	"bytes"
	"testing"
)

func TestPlainStreamRoundTrip(t *testing.T) {
	buf := new(bytes.Buffer)
	c := pipeConn(buf)
	if err := sendPlainChunk(c, []byte("hello ")); err != nil {
		t.Fatal(err)
	}
	if err := sendPlainChunk(c, []byte("world")); err != nil {
		t.Fatal(err)
	}
	if err := c.WriteInt(0); err != nil {
		t.Fatal(err)
	}

	out := new(bytes.Buffer)
	if err := receivePlainStream(pipeConn(buf), out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "hello world" {
		t.Fatalf("got %q", out.String())
	}
}

func TestPlainStreamRejectsBlockMatch(t *testing.T) {
	buf := new(bytes.Buffer)
	c := pipeConn(buf)
	if err := c.WriteInt(-5); err != nil {
		t.Fatal(err)
	}
	if err := receivePlainStream(pipeConn(buf), new(bytes.Buffer)); err == nil {
		t.Fatal("negative token accepted")
	}
}

func TestTokenStreamReceive(t *testing.T) {
	buf := new(bytes.Buffer)
	enc, err := NewTokenEncoder(buf, CompressDefault)
	if err != nil {
		t.Fatal(err)
	}
	payload := bytes.Repeat([]byte("file content "), 5000)
	if err := enc.SendLiteral(payload); err != nil {
		t.Fatal(err)
	}
	if err := enc.Finish(); err != nil {
		t.Fatal(err)
	}

	out := new(bytes.Buffer)
	if err := receiveTokenStream(NewTokenDecoder(buf), out); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out.Bytes(), payload) {
		t.Fatalf("decoded %d bytes, want %d", out.Len(), len(payload))
	}
}

func TestTokenStreamRejectsBlockMatch(t *testing.T) {
	buf := new(bytes.Buffer)
	enc, err := NewTokenEncoder(buf, CompressDefault)
	if err != nil {
		t.Fatal(err)
	}
	if err := enc.SendMatch(3); err != nil {
		t.Fatal(err)
	}
	if err := enc.Finish(); err != nil {
		t.Fatal(err)
	}
	if err := receiveTokenStream(NewTokenDecoder(buf), new(bytes.Buffer)); err == nil {
		t.Fatal("block match accepted against an empty signature")
	}
}
