package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexmu/montage-api/internal/timeline"
)

// browserHeaders makes fetches look like a regular browser client. Several
// stock hosts return 403 to default library user agents.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "*/*",
	"Accept-Language": "en-US,en;q=0.9",
}

// download fetches one task's payload to its output path and verifies it,
// returning the resulting media item.
func (s *Scheduler) download(ctx context.Context, t task) (timeline.MediaItem, error) {
	if err := s.downloadWithRetry(ctx, t); err != nil {
		return timeline.MediaItem{}, err
	}

	if t.itemType == timeline.TypeVideo {
		return s.verifyVideo(ctx, t)
	}
	return s.verifyImage(ctx, t)
}

// downloadWithRetry performs the fetch with exponential backoff plus jitter.
// Only transient failures are retried; 4xx responses fail immediately.
func (s *Scheduler) downloadWithRetry(ctx context.Context, t task) error {
	var lastErr error
	backoff := s.baseBackoff

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoff + time.Duration(rand.Float64()*float64(backoff))
			select {
			case <-ctx.Done():
				return fmt.Errorf("fetch: context cancelled: %w", ctx.Err())
			case <-time.After(delay):
				backoff *= 2
			}
		}

		err := s.downloadOnce(ctx, t)
		if err == nil {
			return nil
		}

		if !isRetryable(err) {
			return err
		}

		lastErr = err
	}

	return fmt.Errorf("fetch: max retries exceeded: %w", lastErr)
}

// downloadOnce performs a single fetch attempt, streaming the response body
// to the task's output path. Each attempt is bounded by the per-type timeout.
func (s *Scheduler) downloadOnce(ctx context.Context, t task) error {
	timeout := s.imageTimeout
	if t.itemType == timeline.TypeVideo {
		timeout = s.videoTimeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, t.sourceURL, nil)
	if err != nil {
		return fmt.Errorf("fetch: create request: %w", err)
	}
	for key, value := range browserHeaders {
		req.Header.Set(key, value)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &retryableError{err: fmt.Errorf("fetch: request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode >= 500 {
			return &retryableError{err: fmt.Errorf("%w %d", ErrServerError, resp.StatusCode)}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return &retryableError{err: ErrRateLimited}
		}
		return fmt.Errorf("%w with status %d", ErrRequestFailed, resp.StatusCode)
	}

	out, err := os.Create(t.outputPath)
	if err != nil {
		return fmt.Errorf("fetch: create output file: %w", err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(t.outputPath)
		return &retryableError{err: fmt.Errorf("fetch: copy download data: %w", err)}
	}

	if err := out.Close(); err != nil {
		_ = os.Remove(t.outputPath)
		return fmt.Errorf("fetch: close output file: %w", err)
	}

	return nil
}

// verifyVideo probes the downloaded file for a playable duration. The native
// duration is kept on the item for later loop/cut planning.
func (s *Scheduler) verifyVideo(ctx context.Context, t task) (timeline.MediaItem, error) {
	native, err := s.processor.Duration(ctx, t.outputPath)
	if err != nil {
		_ = os.Remove(t.outputPath)
		return timeline.MediaItem{}, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	if native <= 0 {
		_ = os.Remove(t.outputPath)
		return timeline.MediaItem{}, fmt.Errorf("%w: no playable duration", ErrVerificationFailed)
	}

	return timeline.MediaItem{
		Type:           timeline.TypeVideo,
		LocalPath:      t.outputPath,
		Duration:       t.duration,
		NativeDuration: native,
		OriginalIndex:  t.index,
	}, nil
}

// verifyImage checks that the downloaded file decodes to real dimensions.
// Vector images are rasterized to a bitmap first; the accepted file replaces
// the original download.
func (s *Scheduler) verifyImage(ctx context.Context, t task) (timeline.MediaItem, error) {
	path := t.outputPath

	if strings.EqualFold(filepath.Ext(path), ".svg") {
		rasterized := strings.TrimSuffix(path, filepath.Ext(path)) + ".png"
		if err := s.processor.RasterizeSVG(ctx, path, rasterized); err != nil {
			_ = os.Remove(path)
			return timeline.MediaItem{}, fmt.Errorf("%w: rasterize svg: %v", ErrVerificationFailed, err)
		}
		_ = os.Remove(path)
		path = rasterized
	}

	width, height, err := s.processor.Dimensions(ctx, path)
	if err != nil {
		_ = os.Remove(path)
		return timeline.MediaItem{}, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	return timeline.MediaItem{
		Type:          timeline.TypeImage,
		LocalPath:     path,
		Duration:      t.duration,
		Width:         width,
		Height:        height,
		OriginalIndex: t.index,
	}, nil
}

// retryableError wraps errors that should be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryable returns true if the error should be retried.
func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// urlHost extracts the hostname of a plain http(s) URL.
func urlHost(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q", ErrInvalidURL, parsed.Scheme)
	}
	if parsed.Hostname() == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return strings.ToLower(parsed.Hostname()), nil
}

// hostMatches reports whether host equals or is a subdomain of any entry.
func hostMatches(host string, domains []string) bool {
	for _, domain := range domains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// sourceExt picks the filename extension for a download, falling back to a
// sensible default for the content type when the URL path has none.
func sourceExt(itemType timeline.ItemType, rawURL string) string {
	if parsed, err := url.Parse(rawURL); err == nil {
		if ext := strings.ToLower(filepath.Ext(parsed.Path)); ext != "" && len(ext) <= 5 {
			return ext
		}
	}
	if itemType == timeline.TypeVideo {
		return ".mp4"
	}
	return ".jpg"
}
