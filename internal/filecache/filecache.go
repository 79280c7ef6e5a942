// Package filecache resolves remote file URLs to local byte streams and
// content hashes. Each distinct URL is downloaded at most once per import
// run; the download streams through the MD5 accumulator and the local
// temp file in one pass. The cache owns a process-scoped temp directory
// that is removed on Close, success or failure.
package filecache

import (
	"context"
	"crypto/md5" //nolint:gosec // content fingerprint for dedup, not a security boundary
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	domerrors "github.com/oergraz/moodle-lom-go/internal/errors"
	"github.com/oergraz/moodle-lom-go/internal/logger"
	"github.com/oergraz/moodle-lom-go/internal/metrics"
)

var filenameRe = regexp.MustCompile(`filename="([^"]*)"`)

// Info holds a cached file's path and its MD5 content hash.
// Immutable once produced.
type Info struct {
	HashMD5 string
	Path    string
}

// Filename returns the base name of the cached file.
func (i Info) Filename() string {
	return filepath.Base(i.Path)
}

// Cache downloads and content-addresses the files of one import run.
type Cache struct {
	dir        string
	httpClient *http.Client
	chunkSize  int
	infos      map[string]Info // by URL
	nextIdx    int
	log        *logger.Logger
	metrics    *metrics.Metrics
}

// New creates a cache backed by a fresh temporary directory.
func New(timeout time.Duration, chunkSize int, log *logger.Logger, m *metrics.Metrics) (*Cache, error) {
	dir, err := os.MkdirTemp("", "moodle-import-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{
		dir:        dir,
		httpClient: &http.Client{Timeout: timeout},
		chunkSize:  chunkSize,
		infos:      make(map[string]Info),
		log:        log.WithModule("filecache"),
		metrics:    m,
	}, nil
}

// Close removes the cache directory and everything downloaded into it.
func (c *Cache) Close() error {
	return os.RemoveAll(c.dir)
}

// Get returns the cached info for a URL, if present.
func (c *Cache) Get(url string) (Info, bool) {
	info, ok := c.infos[url]
	return info, ok
}

// Provide registers an already-local file for a URL. The file is hashed
// in place and never downloaded.
func (c *Cache) Provide(url, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open provided file for %s: %w", url, err)
	}
	defer func() { _ = f.Close() }()

	hash := md5.New() //nolint:gosec
	if _, err := io.CopyBuffer(hash, f, make([]byte, c.chunkSize)); err != nil {
		return fmt.Errorf("failed to hash provided file %s: %w", path, err)
	}

	c.infos[url] = Info{
		HashMD5: hex.EncodeToString(hash.Sum(nil)),
		Path:    path,
	}
	return nil
}

// Fetch downloads a URL into the cache directory, returning its info.
// The URL is fetched at most once per run; repeated calls return the
// cached entry. A failed download is fatal to the run: the caller's
// dedup keys depend on completed hashes.
func (c *Cache) Fetch(ctx context.Context, url string) (Info, error) {
	if info, ok := c.infos[url]; ok {
		return info, nil
	}

	start := time.Now()
	info, size, err := c.download(ctx, url)
	if err != nil {
		if c.metrics != nil {
			c.metrics.DownloadsTotal.WithLabelValues("error").Inc()
		}
		return Info{}, err
	}

	if c.metrics != nil {
		c.metrics.DownloadsTotal.WithLabelValues("success").Inc()
		c.metrics.DownloadBytes.Add(float64(size))
	}
	c.log.Debug("file downloaded",
		"url", url,
		"hash_md5", info.HashMD5,
		"bytes", size,
		"duration_ms", time.Since(start).Milliseconds())

	c.infos[url] = info
	return info, nil
}

func (c *Cache) download(ctx context.Context, url string) (Info, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Info{}, 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Info{}, 0, domerrors.NewDownloadError(url, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Info{}, 0, domerrors.NewDownloadError(url, resp.StatusCode, fmt.Errorf("unexpected status"))
	}

	filename, err := filenameFromHeader(resp.Header.Get("Content-Disposition"))
	if err != nil {
		return Info{}, 0, domerrors.NewDownloadError(url, resp.StatusCode, err)
	}

	// files land under '<dir>/<idx>/<filename>' so equal filenames from
	// different URLs never collide
	dir := filepath.Join(c.dir, strconv.Itoa(c.nextIdx))
	c.nextIdx++
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Info{}, 0, fmt.Errorf("failed to create download directory: %w", err)
	}
	path := filepath.Join(dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return Info{}, 0, fmt.Errorf("failed to create download file: %w", err)
	}
	defer func() { _ = f.Close() }()

	// single pass: every chunk feeds the hash and the file together
	hash := md5.New() //nolint:gosec
	size, err := io.CopyBuffer(io.MultiWriter(hash, f), resp.Body, make([]byte, c.chunkSize))
	if err != nil {
		return Info{}, 0, domerrors.NewDownloadError(url, resp.StatusCode, err)
	}

	return Info{
		HashMD5: hex.EncodeToString(hash.Sum(nil)),
		Path:    path,
	}, size, nil
}

// filenameFromHeader parses the filename out of a Content-Disposition
// header. HTTP headers are nominally Latin-1 but Moodle puts UTF-8 bytes
// on the wire; net/http hands those bytes through untouched, so they
// already read as UTF-8. Only a header that is not valid UTF-8 gets
// re-decoded as Latin-1. Absence of a parsable filename is fatal for the
// URL.
func filenameFromHeader(disposition string) (string, error) {
	if !utf8.ValidString(disposition) {
		decoded, err := charmap.ISO8859_1.NewDecoder().String(disposition)
		if err == nil {
			disposition = decoded
		}
	}

	match := filenameRe.FindStringSubmatch(disposition)
	if match == nil {
		return "", fmt.Errorf("couldn't find filename in header %q", disposition)
	}
	return strings.ReplaceAll(match[1], " ", "_"), nil
}
