package mongo

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "github.com/Jis87-63/moz-digital-store/pkg/errors"
	"github.com/Jis87-63/moz-digital-store/pkg/database"
)

// MediaBucket is the GridFS bucket holding uploaded images.
const MediaBucket = "media"

// MediaStorage implements repository.MediaStorage on GridFS.
type MediaStorage struct {
	db *mongo.Database
}

func NewMediaStorage(db *mongo.Database) *MediaStorage {
	return &MediaStorage{db: db}
}

// bucket opens a bucket whose deadlines follow ctx. GridFS streams take no
// context, so a fresh bucket per call keeps deadlines from leaking between
// requests.
func (s *MediaStorage) bucket(ctx context.Context) (*gridfs.Bucket, error) {
	b, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(MediaBucket))
	if err != nil {
		return nil, fmt.Errorf("open media bucket: %w", err)
	}
	if dl, ok := ctx.Deadline(); ok {
		if err := b.SetReadDeadline(dl); err != nil {
			return nil, err
		}
		if err := b.SetWriteDeadline(dl); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Upload stores the content of r and returns its id.
func (s *MediaStorage) Upload(ctx context.Context, filename, contentType string, r io.Reader) (_ string, err error) {
	ctx, end := database.TraceOperation(ctx, database.SystemMongo, "gridfs.upload", MediaBucket)
	defer func() { end(err) }()

	b, err := s.bucket(ctx)
	if err != nil {
		return "", err
	}

	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: "contentType", Value: contentType}})
	id, err := b.UploadFromStream(filename, r, opts)
	if err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}
	return id.Hex(), nil
}

// Open returns a reader over the stored content and its content type.
func (s *MediaStorage) Open(ctx context.Context, id string) (_ io.ReadCloser, _ string, err error) {
	ctx, end := database.TraceOperation(ctx, database.SystemMongo, "gridfs.open", MediaBucket)
	defer func() { end(err) }()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, "", apperrors.NotFound("media", id)
	}

	b, err := s.bucket(ctx)
	if err != nil {
		return nil, "", err
	}

	stream, err := b.OpenDownloadStream(oid)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, "", apperrors.NotFound("media", id)
		}
		return nil, "", fmt.Errorf("open media: %w", err)
	}

	contentType := "application/octet-stream"
	if file := stream.GetFile(); file != nil && file.Metadata != nil {
		if v, ok := file.Metadata.Lookup("contentType").StringValueOK(); ok && v != "" {
			contentType = v
		}
	}
	return stream, contentType, nil
}
