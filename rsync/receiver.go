package rsync

import (
	"bytes"
	"io"
	"log"
	"sort"

	"github.com/pkg/errors"
)

type Receiver struct {
	conn     *Conn
	module   string
	path     string
	seed     int32
	lVer     int32
	rVer     int32
	storage  FS
	callback Callback
	compress bool
	level    int
}

/* Sync as the receiving side:
1. receive the server's file list
2. let the callback pick the files to download, request them with empty
   signatures (we keep no basis files, the server sends them whole)
3. download the files, verify their seeded checksum, hand them to storage
4. delete local files that disappeared from the module
*/
func (r *Receiver) Sync() error {
	defer r.conn.Close()

	remote, err := RecvFileList(r.conn)
	if err != nil {
		return err
	}
	log.Println("File list received, total size is", len(remote))

	// Sort the filelist lexicographically
	sort.Sort(remote)

	wanted := make([]int, 0, len(remote))
	for i := range remote {
		if remote[i].Mode.IsREG() {
			wanted = append(wanted, i)
		}
	}
	wanted = r.callback.OnRequest(remote, wanted)

	if err := r.requestFiles(wanted); err != nil {
		return err
	}
	if err := r.receiveFiles(remote); err != nil {
		return err
	}
	if err := r.deletePass(remote); err != nil {
		return err
	}
	return r.finalPhase()
}

// requestFiles asks for each wanted file with an empty signature: zero
// blocks means the server transmits the whole file.
func (r *Receiver) requestFiles(wanted []int) error {
	empty := SumHead{Count: 0, Blklen: BLOCK_SIZE, Sum2len: SUM_LENGTH, Remainder: 0}
	for _, idx := range wanted {
		if err := r.conn.WriteInt(int32(idx)); err != nil {
			return err
		}
		if err := empty.Write(r.conn); err != nil {
			return err
		}
	}
	return r.conn.WriteInt(INDEX_END)
}

func (r *Receiver) receiveFiles(remote FileList) error {
	var dec *TokenDecoder
	if r.compress {
		dec = NewTokenDecoder(r.conn)
	}

	for {
		idx, err := r.conn.ReadInt()
		if err != nil {
			return err
		}
		if idx == INDEX_END {
			return nil
		}
		if idx < 0 || int(idx) >= len(remote) {
			return errors.Errorf("server sent invalid file index %d", idx)
		}

		// the server echoes the signature it diffed against
		var head SumHead
		if err := head.Read(r.conn); err != nil {
			return err
		}

		content := new(bytes.Buffer)
		sum := NewFileSum(r.seed)
		if r.compress {
			dec.Reset(r.conn)
			err = receiveTokenStream(dec, io.MultiWriter(content, sum))
		} else {
			err = receivePlainStream(r.conn, io.MultiWriter(content, sum))
		}
		if err != nil {
			return errors.Wrapf(err, "downloading %s", remote[idx].Path)
		}

		remoteSum := make([]byte, SUM_LENGTH)
		if _, err := io.ReadFull(r.conn, remoteSum); err != nil {
			return err
		}
		if !bytes.Equal(remoteSum, sum.Sum(nil)) {
			return errors.Errorf("checksum mismatch for %s", remote[idx].Path)
		}

		f := &remote[idx]
		if _, err := r.storage.Put(string(f.Path), content, int64(content.Len()), FileMetadata{
			Mtime: f.Mtime,
			Mode:  f.Mode,
		}); err != nil {
			return err
		}
		log.Printf("downloaded %s (%d bytes)", f.Path, f.Size)
	}
}

// receiveTokenStream drains one file from the compressed token codec. We
// announced an empty signature, so a block match is a protocol error.
func receiveTokenStream(dec *TokenDecoder, w io.Writer) error {
	for {
		tok, err := dec.ReadToken()
		if err != nil {
			return err
		}
		switch tok.Kind {
		case TokenLiteral:
			if _, err := w.Write(tok.Data); err != nil {
				return err
			}
		case TokenMatch:
			return errors.Errorf("unexpected block match %d against an empty signature", tok.Index)
		case TokenEnd:
			return nil
		}
	}
}

// receivePlainStream reads the uncompressed token framing: a positive
// int32 counts literal bytes, zero ends the file, negative references a
// basis block.
func receivePlainStream(c *Conn, w io.Writer) error {
	buf := make([]byte, 32*1024)
	for {
		token, err := c.ReadInt()
		if err != nil {
			return err
		}
		if token == 0 {
			return nil
		}
		if token < 0 {
			return errors.Errorf("unexpected block match %d against an empty signature", -(token + 1))
		}
		remaining := int(token)
		for remaining > 0 {
			n := remaining
			if n > len(buf) {
				n = len(buf)
			}
			if _, err := io.ReadFull(c, buf[:n]); err != nil {
				return err
			}
			if _, err := w.Write(buf[:n]); err != nil {
				return err
			}
			remaining -= n
		}
	}
}

// deletePass removes local files the module no longer has.
func (r *Receiver) deletePass(remote FileList) error {
	local, err := r.storage.List()
	if err != nil {
		return err
	}
	sort.Sort(local)

	_, removed := local.Diff(remote)
	removed = r.callback.OnDelete(local, removed)
	for _, idx := range removed {
		f := &local[idx]
		if err := r.storage.Delete(string(f.Path), f.Mode); err != nil {
			return err
		}
		log.Printf("deleted %s", f.Path)
	}
	return nil
}

// finalPhase runs the empty redo phase and the goodbye exchange.
func (r *Receiver) finalPhase() error {
	if err := r.conn.WriteInt(INDEX_END); err != nil {
		return err
	}
	if err := r.conn.WriteInt(INDEX_END); err != nil {
		return err
	}
	// the server's goodbye; EOF here is as good as the index
	if _, err := r.conn.ReadInt(); err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return err
	}
	return nil
}
