package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/h2non/filetype"
	"github.com/maheshrc27/curapost/internal/models"
	"github.com/maheshrc27/curapost/internal/repository"
)

const maxMediaBytes = 20 << 20

type mediaService struct {
	mr         repository.MediaRepository
	dir        string
	timeout    time.Duration
	httpClient *http.Client
	mirror     ObjectMirror
}

// NewMediaService returns a MediaAcquirer writing files under dir. mirror may be nil.
func NewMediaService(mr repository.MediaRepository, dir string, timeout time.Duration, httpClient *http.Client, mirror ObjectMirror) MediaAcquirer {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &mediaService{
		mr:         mr,
		dir:        dir,
		timeout:    timeout,
		httpClient: httpClient,
		mirror:     mirror,
	}
}

// EnsureLocal downloads one media item unless a readable local copy already exists.
// Videos are only ever published by reference, so their bytes are not fetched.
func (s *mediaService) EnsureLocal(ctx context.Context, mediaID int64) bool {
	m, err := s.mr.GetByID(ctx, mediaID)
	if err != nil {
		slog.Error("failed to load media", "media_id", mediaID, "error", err)
		return false
	}
	if m == nil {
		slog.Warn("media not found", "media_id", mediaID)
		return false
	}

	if m.Downloaded && m.LocalPath != "" {
		if _, err := os.Stat(m.LocalPath); err == nil {
			return true
		}
		slog.Warn("media marked downloaded but file is missing", "media_id", m.ID, "path", m.LocalPath)
	}

	if m.Kind == models.MediaKindVideo {
		return true
	}

	path, mirrorURL, err := s.download(ctx, m)
	if err != nil {
		slog.Error("media download failed", "media_id", m.ID, "url", m.RemoteURL, "error", err)
		return false
	}

	if err := s.mr.MarkDownloaded(ctx, m.ID, path, mirrorURL); err != nil {
		slog.Error("failed to record download", "media_id", m.ID, "error", err)
		return false
	}
	slog.Info("media downloaded", "media_id", m.ID, "path", path)
	return true
}

func (s *mediaService) EnsureSelected(ctx context.Context, productID int64) int {
	selected, err := s.mr.ListSelectedByProductID(ctx, productID)
	if err != nil {
		slog.Error("failed to list selected media", "product_id", productID, "error", err)
		return 0
	}

	count := 0
	for _, m := range selected {
		if s.EnsureLocal(ctx, m.ID) {
			count++
		}
	}
	return count
}

// download writes the media file and returns its path and, when mirrored, the mirror location.
func (s *mediaService) download(ctx context.Context, m *models.Media) (string, string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.RemoteURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
	if err != nil {
		return "", "", fmt.Errorf("failed to read body: %w", err)
	}
	if len(content) > maxMediaBytes {
		return "", "", errors.New("media exceeds size limit")
	}

	if !filetype.IsImage(content) {
		return "", "", errors.New("downloaded content is not an image")
	}
	kind, err := filetype.Match(content)
	if err != nil {
		return "", "", err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create media directory %s: %w", s.dir, err)
	}

	filename := fmt.Sprintf("product_%d_%s_%d.%s", m.ProductID, m.Kind, m.ID, kind.Extension)
	path := filepath.Join(s.dir, filename)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	var location string
	if s.mirror != nil {
		location, err = s.mirror.Mirror(ctx, kind.Extension, content, kind.MIME.Value)
		if err != nil {
			slog.Warn("media mirror failed", "media_id", m.ID, "error", err)
			location = ""
		} else {
			slog.Info("media mirrored", "media_id", m.ID, "location", location)
		}
	}

	return path, location, nil
}
