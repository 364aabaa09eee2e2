package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrObjectExists is returned by Upload when the target path is taken.
var ErrObjectExists = errors.New("object already exists")

// RemoveResult is the outcome of removing a single path.
type RemoveResult struct {
	Path string
	Err  error
}

// ObjectStore is the boundary to the bucket holding clinic media.
type ObjectStore interface {
	// Upload writes body to path. It returns ErrObjectExists instead of
	// replacing an object the backend reports as present.
	Upload(ctx context.Context, path string, body io.Reader, size int64, contentType string) error
	// Remove deletes every path and reports each outcome. Missing objects
	// are not an error.
	Remove(ctx context.Context, paths []string) []RemoveResult
	PublicURL(path string) string
	// PathFromURL returns the object path for a URL issued by PublicURL.
	// ok is false for URLs that do not point into this bucket.
	PathFromURL(url string) (path string, ok bool)
}

// URLScheme builds public URLs of the form {base}/{bucket}/{path}.
type URLScheme struct {
	BaseURL string
	Bucket  string
}

func (u URLScheme) prefix() string {
	return strings.TrimRight(u.BaseURL, "/") + "/" + u.Bucket + "/"
}

func (u URLScheme) PublicURL(path string) string {
	return u.prefix() + strings.TrimLeft(path, "/")
}

func (u URLScheme) PathFromURL(url string) (string, bool) {
	p := u.prefix()
	if !strings.HasPrefix(url, p) || len(url) == len(p) {
		return "", false
	}
	path := url[len(p):]
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return path, path != ""
}

// BackendError carries the HTTP status of a failed backend call so callers
// can tell gateway timeouts from other failures.
type BackendError struct {
	Op         string
	Path       string
	StatusCode int
	Err        error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func (e *BackendError) HTTPStatusCode() int {
	return e.StatusCode
}
