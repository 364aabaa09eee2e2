package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/jwalitptl/clinic-console/internal/config"
	"github.com/jwalitptl/clinic-console/internal/storage"
)

// Store is an ObjectStore backed by an S3 bucket.
type Store struct {
	storage.URLScheme
	client *s3.Client
}

func NewClient(ctx context.Context, cfg config.StorageConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) {
				return aws.Credentials{
					AccessKeyID:     cfg.AccessKey,
					SecretAccessKey: cfg.SecretKey,
					Source:          "clinic-console",
				}, nil
			})))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	client := s3.New(s3.Options{
		Region:       awsCfg.Region,
		Credentials:  awsCfg.Credentials,
		HTTPClient:   awsCfg.HTTPClient,
		BaseEndpoint: endpoint(cfg),
		UsePathStyle: cfg.Endpoint != "",
	})
	return client, nil
}

func endpoint(cfg config.StorageConfig) *string {
	if cfg.Endpoint == "" {
		return nil
	}
	scheme := "http://"
	if cfg.UseSSL {
		scheme = "https://"
	}
	return aws.String(scheme + cfg.Endpoint)
}

func NewStore(client *s3.Client, cfg config.StorageConfig) *Store {
	return &Store{
		URLScheme: storage.URLScheme{BaseURL: cfg.PublicBaseURL, Bucket: cfg.Bucket},
		client:    client,
	}
}

// Upload uses a conditional put so an existing key is never replaced.
func (s *Store) Upload(ctx context.Context, path string, body io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.Bucket),
		Key:           aws.String(path),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		IfNoneMatch:   aws.String("*"),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
			return storage.ErrObjectExists
		}
		return wrap("put", path, err)
	}
	return nil
}

// Remove issues one batch delete. S3 reports deleting a missing key as success.
func (s *Store) Remove(ctx context.Context, paths []string) []storage.RemoveResult {
	results := make([]storage.RemoveResult, len(paths))
	for i, p := range paths {
		results[i].Path = p
	}
	if len(paths) == 0 {
		return results
	}

	ids := make([]types.ObjectIdentifier, len(paths))
	for i, p := range paths {
		ids[i] = types.ObjectIdentifier{Key: aws.String(p)}
	}

	out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.Bucket),
		Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
	})
	if err != nil {
		for i := range results {
			results[i].Err = wrap("delete", results[i].Path, err)
		}
		return results
	}

	failed := make(map[string]error, len(out.Errors))
	for _, e := range out.Errors {
		key := aws.ToString(e.Key)
		failed[key] = &storage.BackendError{
			Op:         "delete",
			Path:       key,
			StatusCode: http.StatusInternalServerError,
			Err:        fmt.Errorf("%s: %s", aws.ToString(e.Code), aws.ToString(e.Message)),
		}
	}
	for i := range results {
		results[i].Err = failed[results[i].Path]
	}
	return results
}

func wrap(op, path string, err error) error {
	status := http.StatusInternalServerError
	var coder interface{ HTTPStatusCode() int }
	if errors.As(err, &coder) {
		status = coder.HTTPStatusCode()
	}
	return &storage.BackendError{Op: op, Path: path, StatusCode: status, Err: err}
}
