package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"golang.org/x/time/rate"

	"github.com/joaovfcarvalho/robo-bordero/internal/competitions"
	"github.com/joaovfcarvalho/robo-bordero/internal/gcp"
	"github.com/joaovfcarvalho/robo-bordero/internal/pkg/logger"
)

// ErrDownloadCancelled is returned when the context is cancelled between fetches.
var ErrDownloadCancelled = errors.New("download cancelled")

// ProgressFunc receives the number of URLs handled so far and the total.
type ProgressFunc func(done, total int)

// DownloaderConfig holds configuration for the downloader.
type DownloaderConfig struct {
	DownloadDir       string
	Timeout           time.Duration
	RequestsPerSecond float64
	// ArchiveBucket, when set, receives a copy of every newly downloaded PDF.
	ArchiveBucket string
}

// Downloader fetches borderô PDFs into the download directory. A file that is
// already present is trusted as-is and never fetched again.
type Downloader struct {
	httpClient *http.Client
	deriver    *competitions.Deriver
	limiter    *rate.Limiter
	archive    *storage.BucketHandle
	config     DownloaderConfig
	log        *logger.Logger
}

// NewDownloader creates a Downloader. storageClient may be nil when no archive
// bucket is configured.
func NewDownloader(cfg DownloaderConfig, deriver *competitions.Deriver, storageClient *storage.Client, log *logger.Logger) *Downloader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	d := &Downloader{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		deriver:    deriver,
		limiter:    newLimiter(cfg.RequestsPerSecond),
		config:     cfg,
		log:        log,
	}
	if cfg.ArchiveBucket != "" && storageClient != nil {
		d.archive = storageClient.Bucket(cfg.ArchiveBucket)
	}
	return d
}

// newLimiter returns an unlimited limiter for rps <= 0.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// LocalFileName appends the year to the URL's base name before its extension:
// ".../142100b.pdf" for 2025 becomes "142100b_2025.pdf".
func LocalFileName(url string, year int) string {
	base := path.Base(url)
	ext := path.Ext(base)
	return strings.TrimSuffix(base, ext) + "_" + strconv.Itoa(year) + ext
}

// Download fetches every document of a competition that is not already on
// disk and returns the paths written by this call. Fetch failures are logged
// and skipped. When ctx is cancelled before a fetch, the files downloaded so
// far are returned together with ErrDownloadCancelled.
func (d *Downloader) Download(ctx context.Context, year int, competitionCode string, progress ProgressFunc) ([]string, error) {
	logCtx := d.log.With("year", year, "competition", competitionCode)

	if err := os.MkdirAll(d.config.DownloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download directory %s: %w", d.config.DownloadDir, err)
	}

	docs := d.deriver.Derive(year, competitionCode)
	total := len(docs)
	downloaded := []string{}
	logCtx.Info("Starting PDF downloads", "urlCount", total, "downloadDir", d.config.DownloadDir)

	for idx, doc := range docs {
		if progress != nil {
			progress(idx, total)
		}
		if idx%10 == 0 {
			logCtx.Info("Download progress", "current", idx, "total", total,
				"percentage", fmt.Sprintf("%.1f%%", float64(idx)/float64(total)*100))
		}

		fileName := LocalFileName(doc.URL, year)
		filePath := filepath.Join(d.config.DownloadDir, fileName)
		if _, err := os.Stat(filePath); err == nil {
			logCtx.Debug("File already exists", "filename", fileName)
			continue
		}

		if err := ctx.Err(); err != nil {
			logCtx.Warn("Download cancelled", "downloaded", len(downloaded), "remaining", total-idx)
			return downloaded, fmt.Errorf("%w: %w", ErrDownloadCancelled, err)
		}
		if err := d.limiter.Wait(ctx); err != nil {
			logCtx.Warn("Download cancelled", "downloaded", len(downloaded), "remaining", total-idx)
			return downloaded, fmt.Errorf("%w: %w", ErrDownloadCancelled, err)
		}

		body, err := d.fetch(ctx, doc.URL)
		if err != nil {
			// Borderôs of matches not yet played are simply missing; expected.
			logCtx.Warn("Failed to download file", "url", doc.URL, "filename", fileName, "error", err)
			continue
		}
		if err := writeFileAtomically(filePath, body); err != nil {
			logCtx.Error("Failed to save downloaded file", "filename", fileName, "error", err)
			continue
		}

		downloaded = append(downloaded, filePath)
		logCtx.Info("Downloaded file", "filename", fileName, "url", doc.URL, "sizeBytes", len(body))
		d.archiveFile(ctx, logCtx, year, fileName, body)
	}

	if progress != nil {
		progress(total, total)
	}
	logCtx.Info("Download completed", "totalDownloaded", len(downloaded), "totalAttempted", total)
	return downloaded, nil
}

func (d *Downloader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// archiveFile mirrors a new PDF to the archive bucket. Failures are logged only.
func (d *Downloader) archiveFile(ctx context.Context, logCtx *logger.Logger, year int, fileName string, body []byte) {
	if d.archive == nil {
		return
	}
	objectName := fmt.Sprintf("%d/%s", year, fileName)
	created, err := gcp.SaveToGCSAtomically(ctx, d.archive, objectName, "application/pdf", bytes.NewReader(body))
	if err != nil {
		logCtx.Warn("Failed to archive PDF to GCS", "object", objectName, "error", err)
		return
	}
	if !created {
		logCtx.Debug("PDF already archived", "object", objectName)
	}
}

// writeFileAtomically writes data to a temp file next to target and renames
// it into place. A partial file is never visible under the target name.
func writeFileAtomically(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".*.part")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
