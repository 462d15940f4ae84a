// Mirror an rsync module into local or object storage:
//
//	rsync-go [OPTION]... rsync://[USER@]HOST[:PORT]/SRC DEST
//
// DEST names a storage section in config.toml. The boltdb file-list cache
// makes repeated runs incremental: only files whose size or mtime changed
// are requested again.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/oferchen/rsync-go/fldb"
	"github.com/oferchen/rsync-go/rsync"
	"github.com/oferchen/rsync-go/storage"
)

type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

var (
	flagCompress      = flag.Bool("z", false, "compress file data during the transfer")
	flagCompressLevel = flag.Int("compress-level", 0, "explicitly set the compression level (1-9)")
	flagDryRun        = flag.Bool("n", false, "ask the server for a trial run")
	flagExcludes      multiFlag
)

// cacheCallback answers the receiver's download/delete questions from the
// boltdb snapshot and remembers the outcome so the snapshot can be
// updated after a successful sync.
type cacheCallback struct {
	cache    *fldb.Cache
	list     rsync.FileList
	download []int
	deleted  [][]byte
}

func (c *cacheCallback) OnRequest(remotefiles rsync.FileList, list []int) []int {
	download, deleted, err := c.cache.Diff(remotefiles)
	if err != nil {
		log.Println("cache diff failed, requesting everything:", err)
		c.list = remotefiles
		c.download = list
		return list
	}

	// only fetch what both the caller wants and the cache lacks
	wanted := make(map[int]bool, len(list))
	for _, idx := range list {
		wanted[idx] = true
	}
	picked := make([]int, 0, len(download))
	for _, idx := range download {
		if wanted[idx] {
			picked = append(picked, idx)
		}
	}

	c.list = remotefiles
	c.download = picked
	c.deleted = deleted
	return picked
}

func (c *cacheCallback) OnDelete(localfiles rsync.FileList, list []int) []int {
	return list
}

func newBackend(dest string, module string, ppath string) (rsync.FS, error) {
	conf := viper.GetStringMapString(dest)
	if conf == nil {
		return nil, errors.Errorf("no [%s] section in the config", dest)
	}
	switch conf["type"] {
	case "", "minio":
		return storage.NewMinio(module, ppath, viper.GetString(dest+".boltdb.path"),
			conf["endpoint"], conf["keyaccess"], conf["keysecret"], false)
	case "local":
		return storage.NewLocal(module, ppath, conf["topdir"])
	case "null":
		return &storage.NULL{}, nil
	}
	return nil, errors.Errorf("unknown storage type %q", conf["type"])
}

func run(uri string, dest string) error {
	addr, module, path, err := rsync.SplitURI(uri)
	if err != nil {
		return err
	}
	log.Println(module, path)
	ppath := rsync.TrimPrepath(path)

	cache, err := fldb.Open(viper.GetString(dest+".boltdb.path"), []byte(module), []byte(ppath))
	if err != nil {
		return err
	}
	defer cache.Close()

	stor, err := newBackend(dest, module, ppath)
	if err != nil {
		return err
	}

	exclusion := &rsync.Exclusion{}
	for _, p := range flagExcludes {
		exclusion.Add(p)
	}

	attribs := &rsync.Attribs{
		Server:        true,
		Sender:        true,
		Recursive:     true,
		DryRun:        *flagDryRun,
		HasModTime:    true,
		HasLinks:      true,
		HasPerms:      true,
		Compress:      *flagCompress,
		CompressLevel: *flagCompressLevel,
	}

	cb := &cacheCallback{cache: cache}
	client, err := rsync.SocketClient(stor, addr, module, ppath, attribs, cb, exclusion)
	if err != nil {
		return err
	}
	if err := client.Sync(); err != nil {
		return err
	}

	// the sync went through, persist the snapshot
	return cache.Update(cb.list, cb.download, cb.deleted)
}

func main() {
	loadConfigIfExists()
	flag.Var(&flagExcludes, "exclude", "exclude files matching PATTERN (repeatable)")
	flag.Parse()
	args := flag.Args()
	if len(args) < 2 {
		fmt.Println("Usage: rsync-go [OPTION]... rsync://[USER@]HOST[:PORT]/SRC DEST")
		return
	}
	startTime := time.Now()
	if err := run(args[0], args[1]); err != nil {
		log.Fatalln(err)
	}
	log.Println("Duration:", time.Since(startTime))
}
