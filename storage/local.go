package storage

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/oferchen/rsync-go/rsync"
)

type Local struct {
	workDir string // Module + Path
}

func NewLocal(module string, path string, topDir string) (*Local, error) {
	// First, creates a module folder under topDir
	workDir := filepath.Join(topDir, module, path)
	if err := os.MkdirAll(workDir, os.ModePerm); err != nil {
		return nil, err
	}
	return &Local{workDir: workDir}, nil
}

func (l *Local) Put(fileName string, content io.Reader, fileSize int64, metadata rsync.FileMetadata) (written int64, err error) {
	fpath := filepath.Join(l.workDir, fileName)
	// if the file is a folder, ignores content, just creates a folder under the workDir
	if metadata.Mode.IsDIR() {
		return 0, os.MkdirAll(fpath, metadata.Mode.Convert())
	}

	if metadata.Mode.IsREG() {
		f, err := os.OpenFile(fpath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, metadata.Mode.Convert())
		if err != nil {
			return -1, err
		}
		defer f.Close()

		fb := bufio.NewWriter(f)
		defer fb.Flush()

		return io.Copy(fb, content)
	}

	return -2, errors.Errorf("unsupported file type %s %s", fileName, metadata.Mode.String())
}

func (l *Local) Get(fileName string) (io.ReadCloser, int64, rsync.FileMetadata, error) {
	fpath := filepath.Join(l.workDir, fileName)
	f, err := os.Open(fpath)
	if err != nil {
		return nil, 0, rsync.FileMetadata{}, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, rsync.FileMetadata{}, err
	}
	meta := rsync.FileMetadata{
		Mtime: int32(st.ModTime().Unix()),
		Mode:  rsync.NewFileMode(st.Mode()),
	}
	return f, st.Size(), meta, nil
}

func (l *Local) Delete(fileName string, mode rsync.FileMode) error {
	fpath := filepath.Join(l.workDir, fileName)
	if mode.IsDIR() {
		return os.RemoveAll(fpath)
	}
	return os.Remove(fpath)
}

func (l *Local) List() (rsync.FileList, error) {
	filelist := make(rsync.FileList, 0, 1<<16)

	if err := filepath.Walk(l.workDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(l.workDir, path)
		if err != nil {
			return err
		}

		filelist = append(filelist, rsync.FileInfo{
			Path:  []byte(rel),
			Size:  info.Size(),
			Mtime: int32(info.ModTime().Unix()),
			Mode:  rsync.NewFileMode(info.Mode()),
		})

		return nil
	}); err != nil {
		return filelist, err
	}
	return filelist, nil
}
