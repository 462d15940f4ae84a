package storage

import (
	"bytes"
	"io"
	"testing"

	"github.com/oferchen/rsync-go/rsync"
)

func TestLocalPutGetList(t *testing.T) {
	l, err := NewLocal("debian", "pool", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	content := []byte("package data")
	meta := rsync.FileMetadata{Mtime: 1234, Mode: rsync.S_IFREG | 0644}
	n, err := l.Put("pkg.deb", bytes.NewReader(content), int64(len(content)), meta)
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(len(content)) {
		t.Fatalf("wrote %d bytes, want %d", n, len(content))
	}

	if _, err := l.Put("sub", nil, 0, rsync.FileMetadata{Mode: rsync.S_IFDIR | 0755}); err != nil {
		t.Fatal(err)
	}

	rc, size, gotMeta, err := l.Get("pkg.deb")
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) || size != int64(len(content)) {
		t.Fatalf("Get returned %q (%d bytes)", got, size)
	}
	if !gotMeta.Mode.IsREG() {
		t.Fatalf("mode = %s", gotMeta.Mode)
	}

	list, err := l.List()
	if err != nil {
		t.Fatal(err)
	}
	// ".", "pkg.deb" and "sub"
	if len(list) != 3 {
		t.Fatalf("listed %d entries, want 3", len(list))
	}

	if err := l.Delete("pkg.deb", rsync.S_IFREG|0644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := l.Get("pkg.deb"); err == nil {
		t.Fatal("Get succeeded after Delete")
	}
}
