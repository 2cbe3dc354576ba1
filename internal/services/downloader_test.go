package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaovfcarvalho/robo-bordero/internal/competitions"
)

var testRules = []competitions.Rule{
	{Code: "900", Kind: competitions.KindSequential, Start: 1, End: 4},
}

// borderoServer serves a fake PDF for every URL except the ones listed as missing.
func borderoServer(t *testing.T, missing ...string) (*httptest.Server, *int64) {
	t.Helper()
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		for _, m := range missing {
			if strings.HasSuffix(r.URL.Path, m) {
				http.NotFound(w, r)
				return
			}
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 " + r.URL.Path))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestDownloader(t *testing.T, baseURL, dir string) *Downloader {
	t.Helper()
	deriver := competitions.NewDeriver(baseURL, testRules, nil)
	return NewDownloader(DownloaderConfig{DownloadDir: dir}, deriver, nil, nil)
}

func TestLocalFileName(t *testing.T) {
	assert.Equal(t, "142100b_2025.pdf", LocalFileName("https://conteudo.cbf.com.br/sumulas/2025/142100b.pdf", 2025))
	assert.Equal(t, "4241b_2024.pdf", LocalFileName("http://127.0.0.1:1234/2024/4241b.pdf", 2024))
}

func TestDownloadFetchesEveryDocument(t *testing.T) {
	srv, hits := borderoServer(t)
	dir := t.TempDir()
	d := newTestDownloader(t, srv.URL, dir)

	var calls [][2]int
	files, err := d.Download(context.Background(), 2025, "900", func(done, total int) {
		calls = append(calls, [2]int{done, total})
	})
	require.NoError(t, err)
	require.Len(t, files, 4)
	assert.Equal(t, int64(4), atomic.LoadInt64(hits))
	assert.Equal(t, filepath.Join(dir, "9001b_2025.pdf"), files[0])

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 /2025/9001b.pdf", string(data))

	require.NotEmpty(t, calls)
	assert.Equal(t, [2]int{4, 4}, calls[len(calls)-1])

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.part"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestDownloadSecondRunMakesNoRequests(t *testing.T) {
	srv, hits := borderoServer(t)
	dir := t.TempDir()
	d := newTestDownloader(t, srv.URL, dir)

	_, err := d.Download(context.Background(), 2025, "900", nil)
	require.NoError(t, err)
	first := atomic.LoadInt64(hits)

	files, err := d.Download(context.Background(), 2025, "900", nil)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.NotNil(t, files)
	assert.Equal(t, first, atomic.LoadInt64(hits))
}

func TestDownloadSkipsMissingDocuments(t *testing.T) {
	srv, _ := borderoServer(t, "9002b.pdf", "9004b.pdf")
	dir := t.TempDir()
	d := newTestDownloader(t, srv.URL, dir)

	files, err := d.Download(context.Background(), 2025, "900", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "9001b_2025.pdf"),
		filepath.Join(dir, "9003b_2025.pdf"),
	}, files)

	_, err = os.Stat(filepath.Join(dir, "9002b_2025.pdf"))
	assert.True(t, os.IsNotExist(err))
}

func TestDownloadUnknownCompetition(t *testing.T) {
	srv, hits := borderoServer(t)
	d := newTestDownloader(t, srv.URL, t.TempDir())

	files, err := d.Download(context.Background(), 2025, "999", nil)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Zero(t, atomic.LoadInt64(hits))
}

func TestDownloadCancelled(t *testing.T) {
	srv, hits := borderoServer(t)
	dir := t.TempDir()
	d := newTestDownloader(t, srv.URL, dir)

	ctx, cancel := context.WithCancel(context.Background())
	files, err := d.Download(ctx, 2025, "900", func(done, _ int) {
		if done == 2 {
			cancel()
		}
	})
	require.ErrorIs(t, err, ErrDownloadCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, files, 2)
	assert.Equal(t, int64(2), atomic.LoadInt64(hits))
}

func TestDownloadCancelledStillSkipsExistingFiles(t *testing.T) {
	srv, hits := borderoServer(t)
	dir := t.TempDir()
	d := newTestDownloader(t, srv.URL, dir)

	_, err := d.Download(context.Background(), 2025, "900", nil)
	require.NoError(t, err)
	before := atomic.LoadInt64(hits)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	files, err := d.Download(ctx, 2025, "900", nil)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Equal(t, before, atomic.LoadInt64(hits))
}
