package rsync

import (
	"io"
	"os"
	"strconv"
)

// FileMode holds the unix mode bits exactly as they travel on the wire.
// os.FileMode scrambles the type bits into its own flag space, so the
// conversion is explicit in both directions.
type FileMode uint32

const (
	S_IFMT  FileMode = 0170000
	S_IFREG FileMode = 0100000
	S_IFDIR FileMode = 0040000
	S_IFLNK FileMode = 0120000
)

func (m FileMode) IsDIR() bool {
	return m&S_IFMT == S_IFDIR
}

func (m FileMode) IsREG() bool {
	return m&S_IFMT == S_IFREG
}

func (m FileMode) IsLNK() bool {
	return m&S_IFMT == S_IFLNK
}

// Convert returns the os.FileMode equivalent.
func (m FileMode) Convert() os.FileMode {
	mode := os.FileMode(m & 0777)
	switch m & S_IFMT {
	case S_IFDIR:
		mode |= os.ModeDir
	case S_IFLNK:
		mode |= os.ModeSymlink
	}
	return mode
}

// NewFileMode packs an os.FileMode back into unix bits.
func NewFileMode(mode os.FileMode) FileMode {
	m := FileMode(mode.Perm())
	switch {
	case mode.IsDir():
		m |= S_IFDIR
	case mode&os.ModeSymlink != 0:
		m |= S_IFLNK
	default:
		m |= S_IFREG
	}
	return m
}

func (m FileMode) String() string {
	return "0" + strconv.FormatUint(uint64(m), 8)
}

type FileMetadata struct {
	Mtime int32
	Mode  FileMode
}

// File System: need to handle all type of files: regular, folder, symlink, etc
type FS interface {
	Put(fileName string, content io.Reader, fileSize int64, metadata FileMetadata) (written int64, err error)
	Get(fileName string) (content io.ReadCloser, size int64, metadata FileMetadata, err error)
	Delete(fileName string, mode FileMode) error
	List() (FileList, error)
}
