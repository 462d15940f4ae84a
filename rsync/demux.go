package rsync

import (
	"encoding/binary"
	"io"
	"log"

	"github.com/pkg/errors"
)

/*
	Most rsync transmissions are wrapped in a multiplexing envelope:

	1. envelope header (4 bytes): 24-bit payload length, 1-byte tag
	2. envelope payload (arbitrary length, up to 0x00ffffff)

	A tag of MUX_BASE carries normal protocol data; anything else is an
	out-of-band server message. Only the initial handshake travels
	outside the envelope.
*/

// MuxReader unwraps the envelope and exposes the data stream as a plain
// io.ReadCloser. Informational messages are logged as they arrive, error
// messages abort the read.
type MuxReader struct {
	in     io.ReadCloser
	remain uint32 // payload bytes left in the current data envelope
	header [4]byte
}

func NewMuxReader(reader io.ReadCloser) *MuxReader {
	return &MuxReader{in: reader}
}

func (r *MuxReader) Read(p []byte) (n int, err error) {
	if r.remain == 0 {
		if err := r.readHeader(); err != nil {
			return 0, err
		}
	}
	rlen := uint32(len(p))
	if rlen > r.remain { // Min(len(p), remain)
		rlen = r.remain
	}
	n, err = r.in.Read(p[:rlen])
	r.remain -= uint32(n)
	return
}

func (r *MuxReader) readHeader() error {
	for {
		if _, err := io.ReadFull(r.in, r.header[:]); err != nil {
			return err
		}
		tag := r.header[3] // Little Endian
		size := binary.LittleEndian.Uint32(r.header[:]) & 0xffffff

		if tag == MUX_BASE+MSG_DATA {
			r.remain = size
			return nil
		}

		// out-of-band data
		msg := make([]byte, size)
		if _, err := io.ReadFull(r.in, msg); err != nil {
			return err
		}
		switch tag - MUX_BASE {
		case MSG_INFO, MSG_WARNING:
			log.Printf("<DEMUX> %s", msg)
		case MSG_ERROR, MSG_ERROR_XFER:
			return errors.Errorf("server error: %s", msg)
		case MSG_NOOP:
			// keep-alive, nothing to do
		default:
			return errors.Errorf("unknown multiplex tag %d: %s", tag, msg)
		}
	}
}

func (r *MuxReader) Close() error {
	return r.in.Close()
}
