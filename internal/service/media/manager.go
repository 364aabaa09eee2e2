package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/clinic-console/internal/model"
	"github.com/jwalitptl/clinic-console/internal/storage"
	apperrors "github.com/jwalitptl/clinic-console/pkg/errors"
	"github.com/jwalitptl/clinic-console/pkg/logger"
	"github.com/jwalitptl/clinic-console/pkg/metrics"
)

// uploadAttempts bounds retries on generated-name collisions.
const uploadAttempts = 3

// Asset is one file to upload.
type Asset struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Limits struct {
	MaxFileBytes   int64
	AllowedTypes   []string
	GalleryMin     int
	GallerySoftMax int
}

// Manager owns the object storage side of clinic media.
type Manager struct {
	store   storage.ObjectStore
	limits  Limits
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	token   func() string
}

func NewManager(store storage.ObjectStore, limits Limits, logger *logger.Logger, m *metrics.Metrics) *Manager {
	return &Manager{
		store:   store,
		limits:  limits,
		logger:  logger,
		metrics: m,
		now:     time.Now,
		token:   randomToken,
	}
}

// ValidateAsset checks size and content type before any upload starts.
func (m *Manager) ValidateAsset(a Asset) error {
	if m.limits.MaxFileBytes > 0 && a.Size > m.limits.MaxFileBytes {
		return apperrors.Validationf("%s is larger than %d MB", a.Filename, m.limits.MaxFileBytes>>20)
	}
	if len(m.limits.AllowedTypes) == 0 {
		return nil
	}
	ct := contentType(a)
	for _, allowed := range m.limits.AllowedTypes {
		if strings.EqualFold(ct, allowed) {
			return nil
		}
	}
	return apperrors.Validationf("%s has unsupported type %q", a.Filename, ct)
}

func contentType(a Asset) string {
	ct := a.ContentType
	if ct == "" || ct == "application/octet-stream" {
		ct = mime.TypeByExtension(strings.ToLower(filepath.Ext(a.Filename)))
	}
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

// ValidateGallery enforces the minimum gallery size. Going over the soft
// maximum is allowed and only logged.
func (m *Manager) ValidateGallery(clinicID uuid.UUID, count int) error {
	if count < m.limits.GalleryMin {
		return apperrors.Validationf("at least %d gallery images are required", m.limits.GalleryMin)
	}
	if m.limits.GallerySoftMax > 0 && count > m.limits.GallerySoftMax {
		m.logger.Warn("gallery exceeds recommended size",
			"clinic_id", clinicID.String(),
			"count", count,
			"recommended_max", m.limits.GallerySoftMax)
	}
	return nil
}

// UploadAsset stores a under prefix with a generated name and returns its
// public URL. A taken name is retried under a fresh token.
func (m *Manager) UploadAsset(ctx context.Context, a Asset, prefix string) (string, error) {
	return m.upload(ctx, a, prefix, nil)
}

// upload reports through unsure the URL of every failed attempt whose object
// may have been stored anyway, such as a put that completed after ctx was
// cancelled.
func (m *Manager) upload(ctx context.Context, a Asset, prefix string, unsure func(url string)) (string, error) {
	if err := m.ValidateAsset(a); err != nil {
		return "", err
	}

	var err error
	for attempt := 0; attempt < uploadAttempts; attempt++ {
		if attempt > 0 {
			seeker, ok := a.Body.(io.Seeker)
			if !ok {
				break
			}
			if _, serr := seeker.Seek(0, io.SeekStart); serr != nil {
				break
			}
		}
		path := prefix + GenerateFileName(a.Filename, m.now(), m.token())
		err = m.store.Upload(ctx, path, a.Body, a.Size, contentType(a))
		if err == nil {
			m.metrics.Uploads.WithLabelValues("success").Inc()
			return m.store.PublicURL(path), nil
		}
		// Only a name collision is retried, under a fresh token.
		if !errors.Is(err, storage.ErrObjectExists) {
			if unsure != nil {
				unsure(m.store.PublicURL(path))
			}
			break
		}
	}

	m.metrics.Uploads.WithLabelValues("error").Inc()
	return "", apperrors.StorageUpload(fmt.Errorf("upload %s: %w", a.Filename, err))
}

// UploadBatch uploads assets concurrently and returns their URLs in input
// order. If any upload fails, the ones that succeeded are deleted before the
// error is returned.
func (m *Manager) UploadBatch(ctx context.Context, assets []Asset, prefix string) ([]string, error) {
	for _, a := range assets {
		if err := m.ValidateAsset(a); err != nil {
			return nil, err
		}
	}

	urls := make([]string, len(assets))
	var (
		mu     sync.Mutex
		unsure []string
	)
	record := func(url string) {
		mu.Lock()
		unsure = append(unsure, url)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, a := range assets {
		g.Go(func() error {
			url, err := m.upload(gctx, a, prefix, record)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// Siblings cut short by the cancelled context may still have landed.
		uploaded := unsure
		for _, u := range urls {
			if u != "" {
				uploaded = append(uploaded, u)
			}
		}
		if len(uploaded) > 0 {
			// The request context may already be done; cleanup must still run.
			m.DeleteAssets(context.WithoutCancel(ctx), uploaded)
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.StorageUpload(err)
	}
	return urls, nil
}

// DeleteAssets removes the objects behind urls. It is best effort: failures
// are logged and counted, never returned. Built-in portraits and URLs outside
// the bucket are skipped. It returns the number of objects removed.
func (m *Manager) DeleteAssets(ctx context.Context, urls []string) int {
	var paths []string
	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		if u == "" || model.IsDefaultPortrait(u) {
			continue
		}
		path, ok := m.store.PathFromURL(u)
		if !ok {
			m.logger.Warn("skipping delete of foreign media url", "url", u)
			m.metrics.OrphanDeletes.WithLabelValues("skipped").Inc()
			continue
		}
		if seen[path] {
			continue
		}
		seen[path] = true
		paths = append(paths, path)
	}
	if len(paths) == 0 {
		return 0
	}

	removed := 0
	for _, res := range m.store.Remove(ctx, paths) {
		if res.Err != nil {
			m.logger.Error(apperrors.StorageDelete(res.Path, res.Err), "orphan cleanup failed", "path", res.Path)
			m.metrics.OrphanDeletes.WithLabelValues("error").Inc()
			continue
		}
		removed++
		m.metrics.OrphanDeletes.WithLabelValues("success").Inc()
	}
	return removed
}

// RemoveAsset deletes the object behind one URL and reports a failure as a
// StorageDelete error. Default portraits and foreign URLs are no-ops.
func (m *Manager) RemoveAsset(ctx context.Context, url string) error {
	if url == "" || model.IsDefaultPortrait(url) {
		return nil
	}
	path, ok := m.store.PathFromURL(url)
	if !ok {
		return nil
	}
	for _, res := range m.store.Remove(ctx, []string{path}) {
		if res.Err != nil {
			return apperrors.StorageDelete(res.Path, res.Err)
		}
	}
	return nil
}
