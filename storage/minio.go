package storage

import (
	"bytes"
	"io"
	"log"
	"path/filepath"
	"strconv"

	"github.com/golang/protobuf/proto"
	"github.com/minio/minio-go/v6"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/oferchen/rsync-go/fldb"
	"github.com/oferchen/rsync-go/rsync"
)

/*
Every object uploaded to minio carries its rsync metadata twice: as user
metadata on the object and as an FInfo record in a local boltdb bucket.
The bucket is what List reads; minio's own listing has no cheap way to
return mtimes in rsync's terms.
*/

// S3 with cache
type Minio struct {
	client     *minio.Client
	bucketName string
	prefix     string
	/* Cache */
	cache  *bolt.DB
	tx     *bolt.Tx
	bucket *bolt.Bucket
}

func NewMinio(bucket string, prefix string, cachePath string, endpoint string, accessKeyID string, secretAccessKey string, secure bool) (*Minio, error) {
	minioClient, err := minio.New(endpoint, accessKeyID, secretAccessKey, secure)
	if err != nil {
		return nil, errors.Wrap(err, "minio client")
	}
	// Create a bucket for the module
	err = minioClient.MakeBucket(bucket, "us-east-1")
	if err != nil {
		// Check to see if we already own this bucket (which happens if you run this twice)
		exists, errBucketExists := minioClient.BucketExists(bucket)
		if errBucketExists == nil && exists {
			log.Printf("We already own %s\n", bucket)
		} else {
			return nil, err
		}
	} else {
		log.Printf("Successfully created %s\n", bucket)
	}

	// Initialize cache
	db, err := bolt.Open(cachePath, 0666, nil)
	if err != nil {
		return nil, errors.Wrap(err, "metadata cache")
	}
	tx, err := db.Begin(true)
	if err != nil {
		db.Close()
		return nil, err
	}
	mod, err := tx.CreateBucketIfNotExists([]byte(bucket))
	if err != nil {
		tx.Rollback()
		db.Close()
		return nil, err
	}

	return &Minio{
		client:     minioClient,
		bucketName: bucket,
		prefix:     prefix,
		cache:      db,
		tx:         tx,
		bucket:     mod,
	}, nil
}

// object can be a regular file, folder or symlink
func (m *Minio) Put(fileName string, content io.Reader, fileSize int64, metadata rsync.FileMetadata) (written int64, err error) {
	data := map[string]string{
		"mtime": strconv.Itoa(int(metadata.Mtime)),
		"mode":  strconv.Itoa(int(metadata.Mode)),
	}

	value, err := proto.Marshal(&fldb.FInfo{
		Size:  fileSize,
		Mtime: metadata.Mtime,
		Mode:  int32(metadata.Mode),
	})
	if err != nil {
		return -1, err
	}
	if err := m.bucket.Put([]byte(fileName), value); err != nil {
		return -1, err
	}

	// folders and symlinks only live in the metadata bucket
	if !metadata.Mode.IsREG() {
		return 0, nil
	}
	return m.client.PutObject(m.bucketName, fileName, content, fileSize, minio.PutObjectOptions{UserMetadata: data})
}

func (m *Minio) Get(fileName string) (io.ReadCloser, int64, rsync.FileMetadata, error) {
	var meta rsync.FileMetadata
	info := &fldb.FInfo{}
	v := m.bucket.Get([]byte(fileName))
	if v == nil {
		return nil, 0, meta, errors.Errorf("%s not in the metadata cache", fileName)
	}
	if err := proto.Unmarshal(v, info); err != nil {
		return nil, 0, meta, err
	}
	meta.Mtime = info.Mtime
	meta.Mode = rsync.FileMode(info.Mode)

	obj, err := m.client.GetObject(m.bucketName, fileName, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, meta, err
	}
	return obj, info.Size, meta, nil
}

func (m *Minio) Delete(objectName string, mode rsync.FileMode) error {
	if err := m.bucket.Delete([]byte(objectName)); err != nil {
		return err
	}
	if !mode.IsREG() {
		return nil
	}
	return m.client.RemoveObject(m.bucketName, objectName)
}

func (m *Minio) List() (rsync.FileList, error) {
	filelist := make(rsync.FileList, 0, 1<<16)

	info := &fldb.FInfo{}

	// Add current dir as .
	workdir := []byte(filepath.Clean(m.prefix))
	v := m.bucket.Get(workdir)
	if v == nil {
		return filelist, errors.New("work dir's info does not exist")
	}
	if err := proto.Unmarshal(v, info); err != nil {
		return filelist, err
	}
	filelist = append(filelist, rsync.FileInfo{
		Path:  workdir,
		Size:  info.Size,
		Mtime: info.Mtime,
		Mode:  rsync.FileMode(info.Mode),
	})

	// Add files in the work dir
	c := m.bucket.Cursor()
	prefix := []byte(m.prefix)
	k, v := c.Seek(prefix)
	for k != nil && bytes.HasPrefix(k, prefix) {
		if err := proto.Unmarshal(v, info); err != nil {
			return filelist, err
		}
		filelist = append(filelist, rsync.FileInfo{
			Path:  append([]byte(nil), k[len(prefix):]...),
			Size:  info.Size,
			Mtime: info.Mtime,
			Mode:  rsync.FileMode(info.Mode),
		})
		k, v = c.Next()
	}

	return filelist, nil
}

func (m *Minio) Close() error {
	if err := m.tx.Commit(); err != nil {
		return err
	}
	return m.cache.Close()
}
