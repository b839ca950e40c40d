package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// KeyPrefix is prepended to every stored image key; media URLs are "/media/" + key.
const KeyPrefix = "posts/"

var (
	// ErrImageNotFound is returned by Open for unknown keys.
	ErrImageNotFound = errors.New("image not found")
	// ErrStorageDisabled is returned when no image backend is configured.
	ErrStorageDisabled = errors.New("image storage is not configured")
)

// Image is an opened stored image.
type Image struct {
	io.ReadCloser
	ContentType string
	Size        int64
}

// ImageStore persists uploaded post images.
type ImageStore interface {
	Save(ctx context.Context, filename, contentType string, r io.Reader) (string, error)
	Open(ctx context.Context, key string) (*Image, error)
}

// GridFSImageStore keeps images in a MongoDB GridFS bucket. Buckets carry their
// deadline as mutable state, so every call works on its own bucket handle.
type GridFSImageStore struct {
	db   *mongo.Database
	name string
}

// NewGridFSImageStore stores images in the "images" bucket on db.
func NewGridFSImageStore(db *mongo.Database) (*GridFSImageStore, error) {
	s := &GridFSImageStore{db: db, name: "images"}
	if _, err := s.openBucket(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *GridFSImageStore) openBucket() (*gridfs.Bucket, error) {
	bucket, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(s.name))
	if err != nil {
		return nil, fmt.Errorf("create gridfs bucket: %w", err)
	}
	return bucket, nil
}

// Save stores the image under a fresh key derived from an ObjectID and the upload's extension.
func (s *GridFSImageStore) Save(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	bucket, err := s.openBucket()
	if err != nil {
		return "", err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := bucket.SetWriteDeadline(deadline); err != nil {
			return "", err
		}
	}

	key := NewKey(primitive.NewObjectID().Hex(), filename, contentType)
	opts := options.GridFSUpload().SetMetadata(bson.M{"content_type": contentType})
	if _, err := bucket.UploadFromStream(key, r, opts); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}

func (s *GridFSImageStore) Open(ctx context.Context, key string) (*Image, error) {
	bucket, err := s.openBucket()
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := bucket.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
	}

	stream, err := bucket.OpenDownloadStreamByName(key)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("open %s: %w", key, err)
	}

	file := stream.GetFile()
	contentType := mime.TypeByExtension(path.Ext(key))
	if v, err := file.Metadata.LookupErr("content_type"); err == nil {
		if ct, ok := v.StringValueOK(); ok {
			contentType = ct
		}
	}
	return &Image{ReadCloser: stream, ContentType: contentType, Size: file.Length}, nil
}

// NewKey builds a storage key from a unique id, keeping the upload's extension or
// falling back to one matching contentType.
func NewKey(id, filename, contentType string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		}
	}
	return KeyPrefix + id + ext
}

// DisabledImageStore rejects every operation. It stands in when MongoDB is not configured.
type DisabledImageStore struct{}

func (DisabledImageStore) Save(context.Context, string, string, io.Reader) (string, error) {
	return "", ErrStorageDisabled
}

func (DisabledImageStore) Open(context.Context, string) (*Image, error) {
	return nil, ErrImageNotFound
}

// NewImage wraps in-memory content as an Image.
func NewImage(content []byte, contentType string) *Image {
	return &Image{
		ReadCloser:  io.NopCloser(bytes.NewReader(content)),
		ContentType: contentType,
		Size:        int64(len(content)),
	}
}
