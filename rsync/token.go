package rsync

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

/*
	rsync uses zlib to do compression, the windowBits is -15: raw data

	With -z the file data travels as one interleaved stream of deflated
	literal segments and block-match tokens:

		stream := frame* END_FLAG
		frame  := DEFLATED_DATA(2-byte header + payload) | token-frame

	One deflate stream per file stays alive across all literal segments.
	Each run of literal bytes ends with a sync flush so the receiver can
	inflate it before the file is complete; the fixed 4-byte tail of a
	sync flush (00 00 ff ff) is stripped from the wire and appended again
	by the receiver. Consecutive DEFLATED_DATA frames are one continuous
	deflate stream split at the 16383-byte frame limit.
*/

const (
	END_FLAG      = 0
	TOKEN_LONG    = 0x20
	TOKENRUN_LONG = 0x21
	DEFLATED_DATA = 0x40
	TOKEN_REL     = 0x80
	TOKENRUN_REL  = 0xc0

	// Payload limit of one DEFLATED_DATA frame: 6 bits in the flag byte
	// plus one low byte
	MAX_DATA_COUNT = 16383

	// Literal bytes are fed to the compressor in chunks of this size
	CHUNK_SIZE = 32 * 1024
)

// Compression effort accepted by NewTokenEncoder, straight from
// compress/flate. Any explicit 1-9 level works as well.
const (
	CompressFast    = flate.BestSpeed
	CompressDefault = flate.DefaultCompression
	CompressBest    = flate.BestCompression
)

var syncFlushTail = []byte{0x00, 0x00, 0xff, 0xff}

// BadTokenError reports a flag byte that matches no frame type.
type BadTokenError struct {
	Flag byte
}

func (e *BadTokenError) Error() string {
	return fmt.Sprintf("rsync: invalid token flag 0x%02x", e.Flag)
}

type TokenKind int

const (
	TokenLiteral TokenKind = iota
	TokenMatch
	TokenEnd
)

// Token is one decoded item of a file's delta stream: a literal chunk, a
// reference to a basis-file block, or the end marker.
type Token struct {
	Kind  TokenKind
	Data  []byte // literal bytes, only valid until the next ReadToken
	Index int32  // basis block index for TokenMatch
}

// TokenEncoder serializes the delta stream of one file. The caller feeds
// literal ranges and block indices in file order and ends with Finish;
// Reset prepares the same instance for the next file.
type TokenEncoder struct {
	out     io.Writer
	lit     bytes.Buffer  // literal bytes not yet deflated
	comp    *flate.Writer // persistent raw deflate stream, survives flushes
	cbuf    bytes.Buffer  // compressed output not yet framed
	litOpen bool          // literals were deflated since the last sync flush

	// run bookkeeping, all in basis-block index space
	lastToken  int32 // last index handed to SendMatch, -1 before the first
	runStart   int32 // first index of the run being accumulated
	lastRunEnd int32 // decoder position after the previously written run

	scratch [8]byte
}

func NewTokenEncoder(w io.Writer, level int) (*TokenEncoder, error) {
	e := &TokenEncoder{out: w, lastToken: -1}
	comp, err := flate.NewWriter(&e.cbuf, level)
	if err != nil {
		return nil, errors.Wrap(err, "deflate init")
	}
	e.comp = comp
	return e, nil
}

// Reset drops the literal buffer, run counters and the deflate dictionary.
// Must be called between files (Finish does it implicitly).
func (e *TokenEncoder) Reset(w io.Writer) {
	e.out = w
	e.lit.Reset()
	e.cbuf.Reset()
	e.comp.Reset(&e.cbuf)
	e.litOpen = false
	e.lastToken = -1
	e.runStart = 0
	e.lastRunEnd = 0
}

// SendLiteral buffers file bytes; every 32 KiB of pending data is pushed
// through the compressor and any ready output is framed right away. A
// literal can never extend a token run, so an open run is written out
// first to keep the stream in file order.
func (e *TokenEncoder) SendLiteral(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if e.lastToken >= 0 {
		if err := e.writeRun(); err != nil {
			return err
		}
		e.lastToken = -1
	}
	e.lit.Write(data)
	for e.lit.Len() >= CHUNK_SIZE {
		if err := e.deflateChunk(CHUNK_SIZE); err != nil {
			return err
		}
	}
	return nil
}

// SendMatch records a basis-block reference. All pending literals go out
// first: the wire format is a strict literal/token interleaving. The token
// itself is held back while the run can still be extended.
func (e *TokenEncoder) SendMatch(index int32) error {
	if index < 0 {
		return errors.Errorf("rsync: block index %d overflows the signed wire encoding", index)
	}
	if err := e.endLiteralRun(); err != nil {
		return err
	}
	if e.lastToken < 0 {
		e.runStart = index
	} else if index != e.lastToken+1 || int64(index) >= int64(e.runStart)+65536 {
		if err := e.writeRun(); err != nil {
			return err
		}
		e.runStart = index
	}
	e.lastToken = index
	return nil
}

// Finish closes the open run, flushes pending literals, writes END_FLAG
// and resets the encoder for the next file.
func (e *TokenEncoder) Finish() error {
	if e.lastToken >= 0 {
		if err := e.writeRun(); err != nil {
			return err
		}
		e.lastToken = -1
	}
	if err := e.endLiteralRun(); err != nil {
		return err
	}
	e.scratch[0] = END_FLAG
	if _, err := e.out.Write(e.scratch[:1]); err != nil {
		return err
	}
	e.Reset(e.out)
	return nil
}

// deflateChunk feeds n pending literal bytes into the persistent deflate
// stream and frames whatever compressed output is ready. No sync flush,
// so nothing is stripped here.
func (e *TokenEncoder) deflateChunk(n int) error {
	if _, err := e.comp.Write(e.lit.Next(n)); err != nil {
		return errors.Wrap(err, "deflate")
	}
	e.litOpen = true
	return e.writeFrames()
}

// endLiteralRun deflates the remaining literal bytes, issues the sync
// flush that makes the run independently decodable, strips its 00 00 ff
// ff tail and frames the rest.
func (e *TokenEncoder) endLiteralRun() error {
	for e.lit.Len() > 0 {
		n := e.lit.Len()
		if n > CHUNK_SIZE {
			n = CHUNK_SIZE
		}
		if err := e.deflateChunk(n); err != nil {
			return err
		}
	}
	if !e.litOpen {
		return nil
	}
	if err := e.comp.Flush(); err != nil {
		return errors.Wrap(err, "deflate sync flush")
	}
	e.litOpen = false

	out := e.cbuf.Bytes()
	if tail := len(out) - len(syncFlushTail); tail >= 0 && bytes.Equal(out[tail:], syncFlushTail) {
		e.cbuf.Truncate(tail)
	}
	return e.writeFrames()
}

// writeFrames drains the compressed buffer into DEFLATED_DATA frames of
// at most MAX_DATA_COUNT bytes each.
func (e *TokenEncoder) writeFrames() error {
	out := e.cbuf.Bytes()
	for len(out) > 0 {
		piece := len(out)
		if piece > MAX_DATA_COUNT {
			piece = MAX_DATA_COUNT
		}
		hdr := dataHeader(piece)
		if _, err := e.out.Write(hdr[:]); err != nil {
			return err
		}
		if _, err := e.out.Write(out[:piece]); err != nil {
			return err
		}
		out = out[piece:]
	}
	e.cbuf.Reset()
	return nil
}

func (e *TokenEncoder) writeRun() error {
	r := e.runStart - e.lastRunEnd // gap to the decoder's expected position
	n := e.lastToken - e.runStart  // run length minus one

	if r >= 0 && r <= 63 {
		flag := byte(TOKEN_REL)
		if n != 0 {
			flag = TOKENRUN_REL
		}
		e.scratch[0] = flag + byte(r)
		if _, err := e.out.Write(e.scratch[:1]); err != nil {
			return err
		}
	} else {
		flag := byte(TOKEN_LONG)
		if n != 0 {
			flag = TOKENRUN_LONG
		}
		e.scratch[0] = flag
		binary.LittleEndian.PutUint32(e.scratch[1:5], uint32(e.runStart))
		if _, err := e.out.Write(e.scratch[:5]); err != nil {
			return err
		}
	}
	if n != 0 {
		binary.LittleEndian.PutUint16(e.scratch[:2], uint16(n))
		if _, err := e.out.Write(e.scratch[:2]); err != nil {
			return err
		}
	}

	// where the decoder's rx_token lands after replaying this run
	e.lastRunEnd = e.lastToken + 1
	return nil
}

// TokenDecoder reproduces the item sequence fed to a TokenEncoder. One
// instance handles one file's stream; Reset prepares it for the next.
type TokenDecoder struct {
	in  io.Reader
	inf io.ReadCloser // persistent inflater, re-armed per literal run
	src segmentSource // feeds the inflater payload bytes plus the tail

	window []byte // last 32 KiB of inflated output, the deflate dictionary
	rbuf   []byte // inflater read scratch, backs returned literal slices

	inflating bool  // a literal run is being drained from the inflater
	remain    int   // payload bytes left in the current frame
	tailPos   int   // 0..4 while replaying the sync flush tail, -1 otherwise
	savedFlag int16 // flag byte read past the end of a literal run, -1 if none

	rxToken int32 // next expected basis block index
	rxRun   int32 // tokens left in the run being replayed

	scratch [8]byte
}

func NewTokenDecoder(r io.Reader) *TokenDecoder {
	d := &TokenDecoder{
		in:        r,
		rbuf:      make([]byte, CHUNK_SIZE),
		tailPos:   -1,
		savedFlag: -1,
	}
	d.src.d = d
	d.inf = flate.NewReader(&d.src)
	return d
}

// Reset discards buffered state, run counters and the inflate dictionary.
// Must be called between files.
func (d *TokenDecoder) Reset(r io.Reader) {
	d.in = r
	d.window = d.window[:0]
	d.inflating = false
	d.remain = 0
	d.tailPos = -1
	d.savedFlag = -1
	d.rxToken = 0
	d.rxRun = 0
}

// ReadToken returns the next decoded item. A literal run being inflated
// wins over a pending token run, a pending token run wins over reading
// the wire.
func (d *TokenDecoder) ReadToken() (Token, error) {
	for {
		if d.inflating {
			tok, done, err := d.pullLiteral()
			if err != nil {
				return Token{}, err
			}
			if !done {
				return tok, nil
			}
			continue // run drained, the saved flag is pending
		}
		if d.rxRun > 0 {
			d.rxRun--
			tok := d.rxToken
			d.rxToken++
			return Token{Kind: TokenMatch, Index: tok}, nil
		}

		var flag byte
		if d.savedFlag >= 0 {
			flag = byte(d.savedFlag)
			d.savedFlag = -1
		} else {
			if _, err := io.ReadFull(d.in, d.scratch[:1]); err != nil {
				return Token{}, err
			}
			flag = d.scratch[0]
		}

		switch {
		case flag&0xc0 == DEFLATED_DATA:
			if _, err := io.ReadFull(d.in, d.scratch[1:2]); err != nil {
				return Token{}, err
			}
			d.remain = dataLength(flag, d.scratch[1])
			d.tailPos = -1
			// a sync flush leaves the deflate stream byte-aligned, so a
			// fresh inflater with the window as preset dictionary picks
			// up exactly where the previous run left off
			if err := d.inf.(flate.Resetter).Reset(&d.src, d.window); err != nil {
				return Token{}, errors.Wrap(err, "inflate reset")
			}
			d.inflating = true

		case flag == END_FLAG:
			return Token{Kind: TokenEnd}, nil

		case flag == TOKEN_LONG || flag == TOKENRUN_LONG:
			if _, err := io.ReadFull(d.in, d.scratch[:4]); err != nil {
				return Token{}, err
			}
			d.rxToken = int32(binary.LittleEndian.Uint32(d.scratch[:4]))
			if flag == TOKENRUN_LONG {
				if err := d.readRunLength(); err != nil {
					return Token{}, err
				}
			}
			tok := d.rxToken
			d.rxToken++
			return Token{Kind: TokenMatch, Index: tok}, nil

		case flag&0x80 != 0:
			d.rxToken += int32(flag & 0x3f)
			if flag&0xc0 == TOKENRUN_REL {
				if err := d.readRunLength(); err != nil {
					return Token{}, err
				}
			}
			tok := d.rxToken
			d.rxToken++
			return Token{Kind: TokenMatch, Index: tok}, nil

		default:
			return Token{}, &BadTokenError{Flag: flag}
		}
	}
}

// pullLiteral reads the next slice of inflated bytes out of the current
// literal run. done reports that the run is fully drained.
func (d *TokenDecoder) pullLiteral() (tok Token, done bool, err error) {
	for {
		m, rerr := d.inf.Read(d.rbuf)
		if m > 0 {
			d.window = slideWindow(d.window, d.rbuf[:m])
			if rerr != nil {
				if !segmentDone(rerr) {
					return Token{}, false, errors.Wrap(rerr, "inflate")
				}
				d.inflating = false
			}
			return Token{Kind: TokenLiteral, Data: d.rbuf[:m]}, false, nil
		}
		if segmentDone(rerr) {
			d.inflating = false
			return Token{}, true, nil
		}
		if rerr != nil {
			return Token{}, false, errors.Wrap(rerr, "inflate")
		}
	}
}

// The inflater runs out of input right after the re-appended tail; there
// is no final deflate block in an rsync stream.
func segmentDone(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}

func (d *TokenDecoder) readRunLength() error {
	if _, err := io.ReadFull(d.in, d.scratch[4:6]); err != nil {
		return err
	}
	d.rxRun = int32(binary.LittleEndian.Uint16(d.scratch[4:6]))
	return nil
}

// segmentSource is what the inflater reads from: the payload of the
// current DEFLATED_DATA frame, any directly following frames (one deflate
// stream may span several), then the stripped 00 00 ff ff tail. The flag
// byte that ends the run is stashed for the main dispatch.
type segmentSource struct {
	d *TokenDecoder
}

func (s *segmentSource) Read(p []byte) (int, error) {
	d := s.d
	for d.remain == 0 {
		if d.tailPos >= 0 {
			if d.tailPos < len(syncFlushTail) {
				n := copy(p, syncFlushTail[d.tailPos:])
				d.tailPos += n
				return n, nil
			}
			return 0, io.EOF // run complete
		}
		if _, err := io.ReadFull(d.in, d.scratch[6:7]); err != nil {
			return 0, err
		}
		flag := d.scratch[6]
		if flag&0xc0 == DEFLATED_DATA {
			if _, err := io.ReadFull(d.in, d.scratch[7:8]); err != nil {
				return 0, err
			}
			d.remain = dataLength(flag, d.scratch[7])
			continue
		}
		d.savedFlag = int16(flag)
		d.tailPos = 0
	}

	if len(p) > d.remain {
		p = p[:d.remain]
	}
	n, err := d.in.Read(p)
	d.remain -= n
	if err == io.EOF && d.remain > 0 {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

// slideWindow keeps the trailing 32 KiB of inflated output as the preset
// dictionary for the next literal run.
func slideWindow(window, produced []byte) []byte {
	const max = 32 << 10
	window = append(window, produced...)
	if len(window) > max {
		window = append(window[:0], window[len(window)-max:]...)
	}
	return window
}

// dataHeader packs a DEFLATED_DATA frame header: the flag byte carries the
// top 6 bits of the length, the second byte the low 8.
func dataHeader(n int) [2]byte {
	return [2]byte{DEFLATED_DATA | byte(n>>8), byte(n)}
}

// dataLength is the inverse of dataHeader.
func dataLength(flag, low byte) int {
	return int(flag&0x3f)<<8 | int(low)
}
