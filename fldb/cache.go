package fldb

import (
	"bytes"

	"github.com/golang/protobuf/proto"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/oferchen/rsync-go/rsync"
)

// Cache remembers the last synced file list of one module in boltdb, one
// bucket per module, keys prefixed with the module sub-path. Diffing the
// server's list against it turns a full mirror run into an incremental
// one.
type Cache struct {
	db      *bolt.DB
	module  []byte
	prepath []byte
}

func Open(path string, module []byte, prepath []byte) (*Cache, error) {
	db, err := bolt.Open(path, 0666, nil)
	if err != nil {
		return nil, errors.Wrap(err, "opening file-list cache")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(module)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Cache{
		db:      db,
		module:  module,
		prepath: prepath,
	}, nil
}

func (cache *Cache) Close() error {
	return cache.db.Close()
}

func (cache *Cache) key(path []byte) []byte {
	key := make([]byte, 0, len(cache.prepath)+len(path))
	key = append(key, cache.prepath...)
	return append(key, path...)
}

// Diff compares a sorted remote list against the cached snapshot under
// prepath. It returns the list indices that need downloading and the
// cached keys (relative to prepath) that vanished from the module.
func (cache *Cache) Diff(list rsync.FileList) (download []int, deleted [][]byte, err error) {
	download = make([]int, 0, len(list))

	err = cache.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(cache.module).Cursor()

		i := 0
		k, v := c.Seek(cache.prepath)
		for i < len(list) && k != nil && bytes.HasPrefix(k, cache.prepath) {
			rel := k[len(cache.prepath):]
			switch bytes.Compare(list[i].Path, rel) {
			case 0:
				info := &FInfo{}
				if err := proto.Unmarshal(v, info); err != nil {
					return err
				}
				if list[i].Mtime != info.Mtime || list[i].Size != info.Size {
					download = append(download, i)
				}
				i++
				k, v = c.Next()
			case 1:
				deleted = append(deleted, append([]byte(nil), rel...))
				k, v = c.Next()
			case -1:
				download = append(download, i)
				i++
			}
		}

		for ; i < len(list); i++ {
			download = append(download, i)
		}
		for ; k != nil && bytes.HasPrefix(k, cache.prepath); k, _ = c.Next() {
			deleted = append(deleted, append([]byte(nil), k[len(cache.prepath):]...))
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return download, deleted, nil
}

// Update applies one sync's outcome to the snapshot: downloaded entries
// are inserted or refreshed, vanished keys are dropped.
func (cache *Cache) Update(list rsync.FileList, downloadList []int, deleteList [][]byte) error {
	return cache.db.Update(func(tx *bolt.Tx) error {
		mod := tx.Bucket(cache.module)

		// Insert new items in cache
		for _, idx := range downloadList {
			info := list[idx]
			value, err := proto.Marshal(&FInfo{
				Size:  info.Size,
				Mtime: info.Mtime,
				Mode:  int32(info.Mode),
			})
			if err != nil {
				return err
			}
			if err := mod.Put(cache.key(info.Path), value); err != nil {
				return err
			}
		}

		// Remove items in cache
		for _, rkey := range deleteList {
			if err := mod.Delete(cache.key(rkey)); err != nil {
				return err
			}
		}

		return nil
	})
}

// Get looks one path up in the snapshot.
func (cache *Cache) Get(path []byte) (*FInfo, error) {
	var info *FInfo
	err := cache.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(cache.module).Get(cache.key(path))
		if value == nil {
			return nil
		}
		info = &FInfo{}
		return proto.Unmarshal(value, info)
	})
	return info, err
}
