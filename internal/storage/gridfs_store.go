package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const contentTypeKey = "content_type"

// GridFSStore stores media in a GridFS bucket, using the object path as the file name.
// Re-uploading a path adds a revision; Open returns the latest one.
type GridFSStore struct {
	bucket *mongo.GridFSBucket
}

// NewGridFSStore opens the named bucket in db
func NewGridFSStore(db *mongo.Database, bucketName string) *GridFSStore {
	return &GridFSStore{
		bucket: db.GridFSBucket(options.GridFSBucket().SetName(bucketName)),
	}
}

func (s *GridFSStore) Put(ctx context.Context, path, contentType string, r io.Reader) error {
	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: contentTypeKey, Value: contentType}})
	if _, err := s.bucket.UploadFromStream(ctx, path, r, opts); err != nil {
		return fmt.Errorf("failed to upload %s: %w", path, err)
	}
	return nil
}

func (s *GridFSStore) Open(ctx context.Context, path string) (*Object, error) {
	stream, err := s.bucket.OpenDownloadStreamByName(ctx, path)
	if err != nil {
		if errors.Is(err, mongo.ErrFileNotFound) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	obj := &Object{ReadCloser: stream, ContentType: "application/octet-stream"}
	if file := stream.GetFile(); file != nil {
		obj.Size = file.Length
		if ct, ok := file.Metadata.Lookup(contentTypeKey).StringValueOK(); ok && ct != "" {
			obj.ContentType = ct
		}
	}
	return obj, nil
}
