package minio

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-console/internal/config"
	"github.com/jwalitptl/clinic-console/internal/storage"
)

// Store is an ObjectStore backed by a MinIO (or any S3 compatible) bucket.
type Store struct {
	storage.URLScheme
	client *minio.Client
}

func NewClient(cfg config.StorageConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}
	return client, nil
}

func NewStore(client *minio.Client, cfg config.StorageConfig) *Store {
	return &Store{
		URLScheme: storage.URLScheme{BaseURL: cfg.PublicBaseURL, Bucket: cfg.Bucket},
		client:    client,
	}
}

// EnsureBucket creates the bucket on first start.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.Bucket)
	if err != nil {
		return wrap("bucket-exists", s.Bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.Bucket, minio.MakeBucketOptions{}); err != nil {
		return wrap("make-bucket", s.Bucket, err)
	}
	log.Info().Str("bucket", s.Bucket).Msg("created storage bucket")
	return nil
}

// Upload refuses to replace an object that already exists. The stat and the
// put are separate calls, so a writer racing for the same path between them
// can still be overwritten. Generated names make that collision unlikely.
func (s *Store) Upload(ctx context.Context, path string, body io.Reader, size int64, contentType string) error {
	_, err := s.client.StatObject(ctx, s.Bucket, path, minio.StatObjectOptions{})
	if err == nil {
		return storage.ErrObjectExists
	}
	if resp := minio.ToErrorResponse(err); resp.Code != "NoSuchKey" {
		return wrap("stat", path, err)
	}

	_, err = s.client.PutObject(ctx, s.Bucket, path, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return wrap("put", path, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, paths []string) []storage.RemoveResult {
	objects := make(chan minio.ObjectInfo, len(paths))
	for _, p := range paths {
		objects <- minio.ObjectInfo{Key: p}
	}
	close(objects)

	failed := make(map[string]error)
	for rerr := range s.client.RemoveObjects(ctx, s.Bucket, objects, minio.RemoveObjectsOptions{}) {
		if minio.ToErrorResponse(rerr.Err).Code == "NoSuchKey" {
			continue
		}
		failed[rerr.ObjectName] = wrap("remove", rerr.ObjectName, rerr.Err)
	}

	results := make([]storage.RemoveResult, len(paths))
	for i, p := range paths {
		results[i] = storage.RemoveResult{Path: p, Err: failed[p]}
	}
	return results
}

func wrap(op, path string, err error) error {
	status := minio.ToErrorResponse(err).StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return &storage.BackendError{Op: op, Path: path, StatusCode: status, Err: err}
}
