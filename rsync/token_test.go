package rsync

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
)

// one decoded stream item with adjacent literals coalesced
type streamItem struct {
	kind  TokenKind
	data  []byte
	index int32
}

func decodeStream(t *testing.T, wire []byte) []streamItem {
	t.Helper()
	dec := NewTokenDecoder(bytes.NewReader(wire))
	var items []streamItem
	for {
		tok, err := dec.ReadToken()
		if err != nil {
			t.Fatalf("ReadToken: %v", err)
		}
		switch tok.Kind {
		case TokenLiteral:
			if n := len(items); n > 0 && items[n-1].kind == TokenLiteral {
				items[n-1].data = append(items[n-1].data, tok.Data...)
			} else {
				items = append(items, streamItem{kind: TokenLiteral, data: append([]byte(nil), tok.Data...)})
			}
		case TokenMatch:
			items = append(items, streamItem{kind: TokenMatch, index: tok.Index})
		case TokenEnd:
			return items
		}
	}
}

func encodeStream(t *testing.T, items []streamItem) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	enc, err := NewTokenEncoder(buf, CompressDefault)
	if err != nil {
		t.Fatalf("NewTokenEncoder: %v", err)
	}
	for _, it := range items {
		switch it.kind {
		case TokenLiteral:
			err = enc.SendLiteral(it.data)
		case TokenMatch:
			err = enc.SendMatch(it.index)
		}
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	if err := enc.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return buf.Bytes()
}

func checkRoundTrip(t *testing.T, items []streamItem) []byte {
	t.Helper()
	wire := encodeStream(t, items)
	got := decodeStream(t, wire)
	if len(got) != len(items) {
		t.Fatalf("decoded %d items, want %d", len(got), len(items))
	}
	for i, want := range items {
		if got[i].kind != want.kind {
			t.Fatalf("item %d: kind %v, want %v", i, got[i].kind, want.kind)
		}
		if want.kind == TokenMatch && got[i].index != want.index {
			t.Fatalf("item %d: index %d, want %d", i, got[i].index, want.index)
		}
		if want.kind == TokenLiteral && !bytes.Equal(got[i].data, want.data) {
			t.Fatalf("item %d: literal mismatch (%d vs %d bytes)", i, len(got[i].data), len(want.data))
		}
	}
	return wire
}

func lit(data []byte) streamItem { return streamItem{kind: TokenLiteral, data: data} }
func match(i int32) streamItem   { return streamItem{kind: TokenMatch, index: i} }

func TestFlagConstants(t *testing.T) {
	checks := []struct {
		name string
		got  int
		want int
	}{
		{"END_FLAG", END_FLAG, 0x00},
		{"TOKEN_LONG", TOKEN_LONG, 0x20},
		{"TOKENRUN_LONG", TOKENRUN_LONG, 0x21},
		{"DEFLATED_DATA", DEFLATED_DATA, 0x40},
		{"TOKEN_REL", TOKEN_REL, 0x80},
		{"TOKENRUN_REL", TOKENRUN_REL, 0xc0},
		{"MAX_DATA_COUNT", MAX_DATA_COUNT, 16383},
		{"CHUNK_SIZE", CHUNK_SIZE, 32 * 1024},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %#x, want %#x", c.name, c.got, c.want)
		}
	}
}

func TestDataHeader(t *testing.T) {
	for _, n := range []int{0, 1, 100, 1000, 16383} {
		hdr := dataHeader(n)
		if hdr[0]&0xc0 != DEFLATED_DATA {
			t.Errorf("n=%d: flag %#x lacks DEFLATED_DATA bits", n, hdr[0])
		}
		if got := dataLength(hdr[0], hdr[1]); got != n {
			t.Errorf("n=%d: round trip gave %d", n, got)
		}
	}
	hdr := dataHeader(0x1234)
	if hdr[0] != 0x40|0x12 || hdr[1] != 0x34 {
		t.Errorf("dataHeader(0x1234) = %#x %#x, want 0x52 0x34", hdr[0], hdr[1])
	}
}

func TestLiteralRoundTrip(t *testing.T) {
	checkRoundTrip(t, []streamItem{
		lit([]byte("the quick brown fox jumps over the lazy dog\n")),
	})
}

func TestEmptyStream(t *testing.T) {
	wire := encodeStream(t, nil)
	if !bytes.Equal(wire, []byte{END_FLAG}) {
		t.Fatalf("empty stream = %x, want a lone END_FLAG", wire)
	}
	if items := decodeStream(t, wire); len(items) != 0 {
		t.Fatalf("decoded %d items from empty stream", len(items))
	}
}

// Splitting one SendLiteral into many must not change the wire bytes.
func TestChunkingInvariance(t *testing.T) {
	alphabet := []byte("abcdefghijklmnopqrstuvwxyz")

	whole := encodeStream(t, []streamItem{lit(alphabet)})

	buf := new(bytes.Buffer)
	enc, err := NewTokenEncoder(buf, CompressDefault)
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range alphabet {
		if err := enc.SendLiteral([]byte{b}); err != nil {
			t.Fatal(err)
		}
	}
	if err := enc.Finish(); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(whole, buf.Bytes()) {
		t.Fatalf("wire differs: one call %x, byte-at-a-time %x", whole, buf.Bytes())
	}
}

func TestRunCollapsing(t *testing.T) {
	wire := checkRoundTrip(t, []streamItem{match(0), match(1), match(2)})
	// one TOKENRUN_REL record (delta 0, length-1 = 2) plus END
	want := []byte{0xc0, 0x02, 0x00, 0x00}
	if !bytes.Equal(wire, want) {
		t.Fatalf("wire = %x, want %x", wire, want)
	}
}

func TestSingleRelativeToken(t *testing.T) {
	wire := checkRoundTrip(t, []streamItem{match(5)})
	want := []byte{TOKEN_REL + 5, 0x00}
	if !bytes.Equal(wire, want) {
		t.Fatalf("wire = %x, want %x", wire, want)
	}
}

func TestAbsoluteTokenEncoding(t *testing.T) {
	// first index 100 is beyond the 6-bit relative reach from position 0
	wire := checkRoundTrip(t, []streamItem{match(100), match(101)})
	want := []byte{TOKENRUN_LONG, 100, 0, 0, 0, 0x01, 0x00, 0x00}
	if !bytes.Equal(wire, want) {
		t.Fatalf("wire = %x, want %x", wire, want)
	}
}

func TestNonConsecutiveTokens(t *testing.T) {
	checkRoundTrip(t, []streamItem{match(0), match(10), match(20), match(19)})
}

func TestMixedLiteralsAndTokens(t *testing.T) {
	checkRoundTrip(t, []streamItem{
		lit([]byte("header block ")),
		match(5),
		lit([]byte(" middle section ")),
		match(10),
		match(11),
		match(12),
		lit([]byte(" trailer\n")),
	})
}

func TestRunSplitsAt65536(t *testing.T) {
	var items []streamItem
	for i := int32(0); i < 65536+10; i++ {
		items = append(items, match(i))
	}
	wire := encodeStream(t, items)
	got := decodeStream(t, wire)
	if len(got) != len(items) {
		t.Fatalf("decoded %d tokens, want %d", len(got), len(items))
	}
	for i, it := range got {
		if it.kind != TokenMatch || it.index != int32(i) {
			t.Fatalf("token %d decoded as kind=%v index=%d", i, it.kind, it.index)
		}
	}
	// two relative run records (both land exactly on the decoder's
	// position, delta 0) plus END
	if want := 3 + 3 + 1; len(wire) != want {
		t.Fatalf("wire is %d bytes, want %d", len(wire), want)
	}
}

func TestLiteralsAboveChunkSize(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789abcdef"), 8*1024) // 128 KiB
	checkRoundTrip(t, []streamItem{lit(data)})
}

func TestIncompressibleLiterals(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	data := make([]byte, 100000)
	rng.Read(data)
	// stored deflate blocks exceed MAX_DATA_COUNT, forcing frame splits
	// inside a block
	checkRoundTrip(t, []streamItem{
		lit(data[:60000]),
		match(3),
		lit(data[60000:]),
		match(4),
	})
}

func TestDictionaryPersistsAcrossTokens(t *testing.T) {
	page := bytes.Repeat([]byte("lorem ipsum dolor sit amet "), 600) // ~16 KiB
	wire := checkRoundTrip(t, []streamItem{
		lit(page),
		match(0),
		lit(page),
	})
	// the second copy compresses against the first through the shared
	// deflate history
	if len(wire) > 2000 {
		t.Fatalf("wire is %d bytes, dictionary reuse apparently lost", len(wire))
	}
}

func TestEncoderReuseAcrossFiles(t *testing.T) {
	first := new(bytes.Buffer)
	enc, err := NewTokenEncoder(first, CompressDefault)
	if err != nil {
		t.Fatal(err)
	}
	if err := enc.SendLiteral([]byte("file one")); err != nil {
		t.Fatal(err)
	}
	if err := enc.SendMatch(7); err != nil {
		t.Fatal(err)
	}
	if err := enc.Finish(); err != nil {
		t.Fatal(err)
	}

	second := new(bytes.Buffer)
	enc.Reset(second)
	if err := enc.SendMatch(7); err != nil {
		t.Fatal(err)
	}
	if err := enc.SendLiteral([]byte("file two")); err != nil {
		t.Fatal(err)
	}
	if err := enc.Finish(); err != nil {
		t.Fatal(err)
	}

	dec := NewTokenDecoder(bytes.NewReader(first.Bytes()))
	drain := func() (count int) {
		t.Helper()
		for {
			tok, err := dec.ReadToken()
			if err != nil {
				t.Fatalf("ReadToken: %v", err)
			}
			if tok.Kind == TokenEnd {
				return count
			}
			count++
		}
	}
	if n := drain(); n == 0 {
		t.Fatal("first stream decoded empty")
	}
	dec.Reset(bytes.NewReader(second.Bytes()))
	if n := drain(); n == 0 {
		t.Fatal("second stream decoded empty")
	}

	// run state must not leak between files: the token 7 in the second
	// stream starts a fresh run from position 0
	if second.Bytes()[0] != TOKEN_REL+7 {
		t.Fatalf("second stream starts with %#x, want %#x", second.Bytes()[0], TOKEN_REL+7)
	}
}

func TestBadTokenFlag(t *testing.T) {
	for _, flag := range []byte{0x01, 0x1f, 0x22, 0x3f} {
		dec := NewTokenDecoder(bytes.NewReader([]byte{flag}))
		_, err := dec.ReadToken()
		var bad *BadTokenError
		if !errors.As(err, &bad) {
			t.Fatalf("flag %#x: got %v, want BadTokenError", flag, err)
		}
		if bad.Flag != flag {
			t.Fatalf("BadTokenError carries %#x, want %#x", bad.Flag, flag)
		}
	}
}

func TestTruncatedStream(t *testing.T) {
	wire := encodeStream(t, []streamItem{
		lit(bytes.Repeat([]byte("truncate me "), 1000)),
		match(9),
	})
	dec := NewTokenDecoder(bytes.NewReader(wire[:len(wire)/2]))
	for {
		tok, err := dec.ReadToken()
		if err != nil {
			return // transport error surfaced, as it must
		}
		if tok.Kind == TokenEnd {
			t.Fatal("truncated stream decoded to a clean end")
		}
	}
}

func TestNegativeIndexRejected(t *testing.T) {
	enc, err := NewTokenEncoder(new(bytes.Buffer), CompressDefault)
	if err != nil {
		t.Fatal(err)
	}
	if err := enc.SendMatch(-1); err == nil {
		t.Fatal("SendMatch(-1) succeeded")
	}
}
