package rsync

import (
	"encoding/binary"
	"hash"

	"github.com/pkg/errors"
	"golang.org/x/crypto/md4"
)

// SumHead describes one file's signature: how the basis file was cut into
// blocks and how long the per-block strong checksum is.
type SumHead struct {
	Count     int32 // number of blocks
	Blklen    int32 // block length in the file
	Sum2len   int32 // long checksum length
	Remainder int32 // len of the final short block, fileLen % Blklen
}

func (h *SumHead) Read(c *Conn) (err error) {
	if h.Count, err = c.ReadInt(); err != nil {
		return
	}
	if h.Blklen, err = c.ReadInt(); err != nil {
		return
	}
	if h.Sum2len, err = c.ReadInt(); err != nil {
		return
	}
	if h.Sum2len > SUM_LENGTH {
		return errors.Errorf("invalid long checksum length %d", h.Sum2len)
	}
	h.Remainder, err = c.ReadInt()
	return
}

func (h *SumHead) Write(c *Conn) error {
	for _, v := range [4]int32{h.Count, h.Blklen, h.Sum2len, h.Remainder} {
		if err := c.WriteInt(v); err != nil {
			return err
		}
	}
	return nil
}

type SumStruct struct {
	FileLen uint64 // total file length
	Head    SumHead
	Sums    []SumChunk // chunks
}

type SumChunk struct {
	FileOffset int64
	ChunkLen   uint
	Sum1       uint32 // rolling checksum
	Sum2       []byte // long checksum
}

// Checksum1 is the weak rolling checksum: two 16-bit halves, the plain
// byte sum and the position-weighted sum.
func Checksum1(buf []byte) uint32 {
	var s1, s2 uint32
	n := len(buf)

	i := 0
	for ; i+4 <= n; i += 4 {
		s2 += 4*(s1+uint32(buf[i])) +
			3*uint32(buf[i+1]) +
			2*uint32(buf[i+2]) +
			uint32(buf[i+3])
		s1 += uint32(buf[i]) + uint32(buf[i+1]) + uint32(buf[i+2]) + uint32(buf[i+3])
	}
	for ; i < n; i++ {
		s1 += uint32(buf[i])
		s2 += s1
	}
	return (s1 & 0xffff) + (s2 << 16)
}

// Checksum2 is the strong per-block checksum: MD4 over the block with the
// session seed appended.
func Checksum2(seed int32, buf []byte) []byte {
	h := md4.New()
	h.Write(buf)
	_ = binary.Write(h, binary.LittleEndian, seed)
	return h.Sum(nil)
}

// NewFileSum returns the whole-file transfer checksum, MD4 seeded with the
// session seed. Both ends append it after the file data.
func NewFileSum(seed int32) hash.Hash {
	h := md4.New()
	_ = binary.Write(h, binary.LittleEndian, seed)
	return h
}
