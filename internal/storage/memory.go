package storage

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryStore keeps objects in process. Hooks let tests fail chosen paths.
type MemoryStore struct {
	URLScheme

	mu         sync.Mutex
	objects    map[string]memoryObject
	uploadHook func(path string) error
	removeHook func(path string) error
	removed    []string
}

func NewMemoryStore(baseURL, bucket string) *MemoryStore {
	return &MemoryStore{
		URLScheme: URLScheme{BaseURL: baseURL, Bucket: bucket},
		objects:   make(map[string]memoryObject),
	}
}

// OnUpload installs a hook called before every upload; a non-nil return
// fails that upload.
func (s *MemoryStore) OnUpload(hook func(path string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadHook = hook
}

// OnRemove installs a hook called before every removal.
func (s *MemoryStore) OnRemove(hook func(path string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeHook = hook
}

func (s *MemoryStore) Upload(ctx context.Context, path string, body io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	hook := s.uploadHook
	s.mu.Unlock()
	if hook != nil {
		if err := hook(path); err != nil {
			return err
		}
	}

	s.mu.Lock()
	_, exists := s.objects[path]
	s.mu.Unlock()
	if exists {
		return ErrObjectExists
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[path]; ok {
		return ErrObjectExists
	}
	s.objects[path] = memoryObject{data: buf.Bytes(), contentType: contentType}
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, paths []string) []RemoveResult {
	results := make([]RemoveResult, 0, len(paths))
	for _, p := range paths {
		s.mu.Lock()
		hook := s.removeHook
		s.mu.Unlock()

		var err error
		if hook != nil {
			err = hook(p)
		}
		if err == nil {
			s.mu.Lock()
			delete(s.objects, p)
			s.removed = append(s.removed, p)
			s.mu.Unlock()
		}
		results = append(results, RemoveResult{Path: p, Err: err})
	}
	return results
}

func (s *MemoryStore) Exists(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[path]
	return ok
}

// Paths lists stored object paths in sorted order.
func (s *MemoryStore) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for p := range s.objects {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Removed lists every path passed to a successful removal, in call order.
func (s *MemoryStore) Removed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.removed...)
}

// Put seeds an object directly, bypassing hooks.
func (s *MemoryStore) Put(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = memoryObject{data: data}
}
