package rsync

import (
	"bytes"
	"io"
	"log"
	"sort"

	"github.com/pkg/errors"
)

type FileInfo struct {
	Path  []byte
	Size  int64
	Mtime int32
	Mode  FileMode
	Link  []byte // symlink target, nil otherwise
}

type FileList []FileInfo

func (L FileList) Len() int {
	return len(L)
}

func (L FileList) Less(i, j int) bool {
	return bytes.Compare(L[i].Path, L[j].Path) == -1
}

func (L FileList) Swap(i, j int) {
	L[i], L[j] = L[j], L[i]
}

/* Diff two sorted rsync file lists, return their difference
list changed: R has it and L doesn't, or it differs by size/mtime.
list removed: only L has.
*/
func (L FileList) Diff(R FileList) (changed []int, removed []int) {
	changed = make([]int, 0, len(R))
	removed = make([]int, 0, len(L))
	i := 0 // index of L
	j := 0 // index of R

	for i < len(L) && j < len(R) {
		// The result will be 0 if a==b, -1 if a < b, and +1 if a > b
		switch bytes.Compare(L[i].Path, R[j].Path) {
		case 0:
			if L[i].Mtime != R[j].Mtime || L[i].Size != R[j].Size {
				changed = append(changed, j)
			}
			i++
			j++
		case -1:
			removed = append(removed, i)
			i++
		case 1:
			changed = append(changed, j)
			j++
		}
	}

	for ; i < len(L); i++ {
		removed = append(removed, i)
	}
	for ; j < len(R); j++ {
		changed = append(changed, j)
	}

	return
}

/*
	Each entry starts with a flags byte; a zero byte ends the list. Path,
	mtime and mode inherit from the previous entry when the matching
	FLIST_*_SAME bit is set, names additionally share a prefix with the
	previous name (FLIST_NAME_SAME carries the shared byte count).
*/

// RecvFileList reads the complete file list and the trailing IO-error
// flag the server appends to it.
func RecvFileList(c *Conn) (FileList, error) {
	list := make(FileList, 0, 1024)
	var last *FileInfo

	for {
		flags, err := c.ReadByte()
		if err != nil {
			return nil, err
		}
		if flags == FLIST_END {
			break
		}

		info, err := recvFileEntry(c, flags, last)
		if err != nil {
			return nil, err
		}
		list = append(list, info)
		last = &list[len(list)-1]
	}

	ioerr, err := c.ReadInt()
	if err != nil {
		return nil, err
	}
	if ioerr != 0 {
		log.Println("IO error flag from sender:", ioerr)
	}

	return list, nil
}

func recvFileEntry(c *Conn, flags byte, last *FileInfo) (info FileInfo, err error) {
	/*
	 * Read our filename.
	 * If we have FLIST_NAME_SAME, we inherit some of the last
	 * transmitted name.
	 * If we have FLIST_NAME_LONG, then the string length is greater
	 * than byte-size.
	 */
	var partial, pathlen int32
	if flags&FLIST_NAME_SAME != 0 {
		if last == nil {
			return info, errors.New("name inheritance without a previous entry")
		}
		b, err := c.ReadByte()
		if err != nil {
			return info, err
		}
		partial = int32(b)
		if partial > int32(len(last.Path)) {
			return info, errors.Errorf("inherited %d bytes from a %d-byte name", partial, len(last.Path))
		}
	}

	/* Get the (possibly-remaining) filename length. */
	if flags&FLIST_NAME_LONG != 0 {
		if pathlen, err = c.ReadInt(); err != nil {
			return
		}
	} else {
		b, err := c.ReadByte()
		if err != nil {
			return info, err
		}
		pathlen = int32(b)
	}
	if pathlen < 0 || pathlen > 1<<16 {
		return info, errors.Errorf("implausible path length %d", pathlen)
	}

	path := make([]byte, partial+pathlen)
	if partial > 0 {
		copy(path, last.Path[:partial])
	}
	if _, err = io.ReadFull(c, path[partial:]); err != nil {
		return
	}
	info.Path = path

	if info.Size, err = c.ReadVarint(); err != nil {
		return
	}

	/* Read the modification time. */
	if flags&FLIST_TIME_SAME == 0 {
		if info.Mtime, err = c.ReadInt(); err != nil {
			return
		}
	} else {
		info.Mtime = last.Mtime
	}

	if flags&FLIST_MODE_SAME == 0 {
		var mode int32
		if mode, err = c.ReadInt(); err != nil {
			return
		}
		info.Mode = FileMode(mode)
	} else {
		info.Mode = last.Mode
	}

	if info.Mode.IsLNK() {
		var llen int32
		if llen, err = c.ReadInt(); err != nil {
			return
		}
		if llen < 0 || llen > 1<<16 {
			return info, errors.Errorf("implausible symlink length %d", llen)
		}
		link := make([]byte, llen)
		if _, err = io.ReadFull(c, link); err != nil {
			return
		}
		info.Link = link
	}

	return info, nil
}

// SendFileList writes a sorted file list followed by the end byte and the
// IO-error flag.
func SendFileList(c *Conn, list FileList) error {
	sort.Sort(list)

	var last *FileInfo
	for i := range list {
		if err := sendFileEntry(c, &list[i], last); err != nil {
			return err
		}
		last = &list[i]
	}

	if err := c.WriteByte(FLIST_END); err != nil {
		return err
	}
	return c.WriteInt(0) // no IO errors on our side
}

func sendFileEntry(c *Conn, f *FileInfo, last *FileInfo) error {
	var flags byte

	if bytes.Equal(f.Path, []byte(".")) && f.Mode.IsDIR() {
		flags |= FLIST_TOP_LEVEL
	}

	lPathCount := 0
	if last != nil {
		lPathCount = longestMatch(last.Path, f.Path)
		if lPathCount > 255 { // Limit to 255 chars
			lPathCount = 255
		}
		if lPathCount > 0 {
			flags |= FLIST_NAME_SAME
		}
		if last.Mode == f.Mode {
			flags |= FLIST_MODE_SAME
		}
		if last.Mtime == f.Mtime {
			flags |= FLIST_TIME_SAME
		}
	}

	rPathCount := int32(len(f.Path) - lPathCount)
	if rPathCount > 255 {
		flags |= FLIST_NAME_LONG
	}

	/* we must make sure we don't send a zero flags byte or the other
	   end will terminate the flist transfer */
	if flags == 0 && !f.Mode.IsDIR() {
		flags |= FLIST_TOP_LEVEL
	}
	if flags == 0 {
		flags |= FLIST_NAME_LONG
	}
	if err := c.WriteByte(flags); err != nil {
		return err
	}

	if flags&FLIST_NAME_SAME != 0 {
		if err := c.WriteByte(byte(lPathCount)); err != nil {
			return err
		}
	}
	if flags&FLIST_NAME_LONG != 0 {
		if err := c.WriteInt(rPathCount); err != nil {
			return err
		}
	} else {
		if err := c.WriteByte(byte(rPathCount)); err != nil {
			return err
		}
	}
	if _, err := c.Write(f.Path[lPathCount:]); err != nil {
		return err
	}

	if err := c.WriteVarint(f.Size); err != nil {
		return err
	}

	if flags&FLIST_TIME_SAME == 0 {
		if err := c.WriteInt(f.Mtime); err != nil {
			return err
		}
	}
	if flags&FLIST_MODE_SAME == 0 {
		if err := c.WriteInt(int32(f.Mode)); err != nil {
			return err
		}
	}

	if f.Mode.IsLNK() {
		if err := c.WriteInt(int32(len(f.Link))); err != nil {
			return err
		}
		if _, err := c.Write(f.Link); err != nil {
			return err
		}
	}

	return nil
}

// longestMatch counts the shared prefix bytes of two paths.
func longestMatch(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
