// Package bucket stores uploaded images in S3 compatible object storage.
package bucket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MaxImageSize is the largest accepted upload in bytes
const MaxImageSize = 5 << 20

const (
	contentTypeJPEG = "image/jpeg"
	contentTypePNG  = "image/png"
	contentTypeWEBP = "image/webp"
	contentTypeGIF  = "image/gif"
)

// Upload folders
const (
	FolderCovers  = "covers"
	FolderItems   = "items"
	FolderAvatars = "avatars"
)

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("image too large")
	ErrUnknownFolder   = errors.New("unknown upload folder")
)

// Config holds the object storage connection settings
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	// PublicURL is the base under which uploaded objects are served. When
	// empty, the endpoint's path-style URL is used.
	PublicURL string
}

type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Store uploads images to one bucket
type Store struct {
	client    objectPutter
	bucket    string
	publicURL string
	now       func() time.Time
}

// New connects to the object store and ensures the bucket exists.
func New(ctx context.Context, c *Config) (*Store, error) {
	client, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, ""),
		Secure: c.UseSSL,
		Region: c.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, c.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, c.Bucket, minio.MakeBucketOptions{Region: c.Region}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return newStore(client, c), nil
}

func newStore(client objectPutter, c *Config) *Store {
	public := c.PublicURL
	if public == "" {
		scheme := "http"
		if c.UseSSL {
			scheme = "https"
		}
		public = fmt.Sprintf("%s://%s/%s", scheme, c.Endpoint, c.Bucket)
	}
	return &Store{
		client:    client,
		bucket:    c.Bucket,
		publicURL: strings.TrimRight(public, "/"),
		now:       time.Now,
	}
}

// UploadImage stores an image under folder and returns its public URL
func (s *Store) UploadImage(ctx context.Context, folder string, r io.Reader, size int64, contentType string) (string, error) {
	switch folder {
	case FolderCovers, FolderItems, FolderAvatars:
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFolder, folder)
	}
	ext, err := extension(contentType)
	if err != nil {
		return "", err
	}
	if size > MaxImageSize {
		return "", fmt.Errorf("%w: %d bytes", ErrTooLarge, size)
	}

	key := s.objectKey(folder, ext)
	_, err = s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return s.publicURL + "/" + key, nil
}

// objectKey returns folder/yyyy/mm/<uuid>.<ext>
func (s *Store) objectKey(folder, ext string) string {
	now := s.now().UTC()
	return path.Join(folder, now.Format("2006"), now.Format("01"), uuid.NewString()+"."+ext)
}

func extension(contentType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case contentTypeJPEG:
		return "jpg", nil
	case contentTypePNG:
		return "png", nil
	case contentTypeWEBP:
		return "webp", nil
	case contentTypeGIF:
		return "gif", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
}
