package rsync

import (
	"io"
	"log"

	"github.com/pkg/errors"
)

type Sender struct {
	conn     *Conn
	module   string
	path     string
	seed     int32
	lVer     int32
	rVer     int32
	storage  FS
	compress bool
	level    int
}

/* Sync as the sending side:
1. send our file list
2. answer the generator's per-file requests: read the signature it sent,
   upload the file data, append the seeded checksum
3. run the redo phase and say goodbye
*/
func (s *Sender) Sync() error {
	defer s.conn.Close()

	list, err := s.storage.List()
	if err != nil {
		return err
	}
	if err := SendFileList(s.conn, list); err != nil {
		return err
	}
	log.Println("File list sent, total size is", len(list))

	var enc *TokenEncoder
	if s.compress {
		level := s.level
		if level == 0 {
			level = CompressDefault
		}
		if enc, err = NewTokenEncoder(s.conn, level); err != nil {
			return err
		}
	}

	phase := 0
	for phase < 2 {
		// Read filelist's index
		index, err := s.conn.ReadInt()
		if err != nil {
			return err
		}
		if index == INDEX_END {
			phase++
			continue
		}
		if index < 0 || int(index) >= len(list) {
			return errors.Errorf("receiver requested invalid index %d", index)
		}

		sums, err := recvSums(s.conn)
		if err != nil {
			return err
		}

		if err := s.sendFile(enc, index, &list[index], sums); err != nil {
			return err
		}
	}

	// goodbye
	return s.conn.WriteInt(INDEX_END)
}

// recvSums reads the signature the generator computed for its basis file.
// An empty head means it wants the whole file.
func recvSums(c *Conn) (*SumStruct, error) {
	sums := &SumStruct{}
	if err := sums.Head.Read(c); err != nil {
		return nil, err
	}

	var offset int64
	sums.Sums = make([]SumChunk, 0, sums.Head.Count)
	for i := int32(0); i < sums.Head.Count; i++ {
		var chunk SumChunk
		sum1, err := c.ReadInt() // short checksum
		if err != nil {
			return nil, err
		}
		chunk.Sum1 = uint32(sum1)

		chunk.Sum2 = make([]byte, sums.Head.Sum2len) // long checksum
		if _, err := io.ReadFull(c, chunk.Sum2); err != nil {
			return nil, err
		}

		chunk.FileOffset = offset
		if i == sums.Head.Count-1 && sums.Head.Remainder != 0 {
			chunk.ChunkLen = uint(sums.Head.Remainder)
		} else {
			chunk.ChunkLen = uint(sums.Head.Blklen)
		}
		offset += int64(chunk.ChunkLen)
		sums.Sums = append(sums.Sums, chunk)
	}
	sums.FileLen = uint64(offset)
	return sums, nil
}

// sendFile uploads one file as a pure literal stream. Delta encoding
// against the receiver's blocks is deliberately not attempted; every
// request carries an empty signature in this client anyway.
func (s *Sender) sendFile(enc *TokenEncoder, index int32, f *FileInfo, sums *SumStruct) error {
	content, _, _, err := s.storage.Get(string(f.Path))
	if err != nil {
		return errors.Wrapf(err, "opening %s", f.Path)
	}
	defer content.Close()

	if err := s.conn.WriteInt(index); err != nil {
		return err
	}
	// echo the signature head we diffed against
	if err := sums.Head.Write(s.conn); err != nil {
		return err
	}

	sum := NewFileSum(s.seed)
	buf := make([]byte, 32*1024)
	for {
		n, rerr := content.Read(buf)
		if n > 0 {
			sum.Write(buf[:n])
			if s.compress {
				err = enc.SendLiteral(buf[:n])
			} else {
				err = sendPlainChunk(s.conn, buf[:n])
			}
			if err != nil {
				return err
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}

	if s.compress {
		if err := enc.Finish(); err != nil {
			return err
		}
	} else {
		if err := s.conn.WriteInt(0); err != nil { // end of file data
			return err
		}
	}

	_, err = s.conn.Write(sum.Sum(nil))
	return err
}

// sendPlainChunk writes the uncompressed framing: byte count, then bytes.
func sendPlainChunk(c *Conn, data []byte) error {
	if err := c.WriteInt(int32(len(data))); err != nil {
		return err
	}
	_, err := c.Write(data)
	return err
}
