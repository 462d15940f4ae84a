package rsync

import (
	"encoding/binary"
	"io"
)

// MuxWriter wraps outgoing data in the multiplexing envelope, the write
// side of MuxReader. Each Write becomes one or more MSG_DATA envelopes of
// at most 0xffffff payload bytes.
type MuxWriter struct {
	out    io.WriteCloser
	header [4]byte
}

func NewMuxWriter(writer io.WriteCloser) *MuxWriter {
	return &MuxWriter{out: writer}
}

func (w *MuxWriter) Write(p []byte) (n int, err error) {
	for len(p) > 0 {
		chunk := len(p)
		if chunk > 0xffffff {
			chunk = 0xffffff
		}
		binary.LittleEndian.PutUint32(w.header[:], uint32(chunk)|uint32(MUX_BASE+MSG_DATA)<<24)
		if _, err := w.out.Write(w.header[:]); err != nil {
			return n, err
		}
		m, err := w.out.Write(p[:chunk])
		n += m
		if err != nil {
			return n, err
		}
		p = p[chunk:]
	}
	return n, nil
}

func (w *MuxWriter) Close() error {
	return w.out.Close()
}
