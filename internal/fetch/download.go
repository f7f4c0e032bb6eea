// Package fetch retrieves remote plan documents over HTTP.
//
// Plans referenced from an on-the-fly origin are downloaded next to the
// referencing template before they are read. When a keyring is configured,
// each document must come with an ASCII-armored detached OpenPGP signature
// published at "<url>.asc".
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 2 * time.Minute
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "kvirt/1.0"
	// SignatureSuffix is appended to a document URL to locate its signature.
	SignatureSuffix = ".asc"
)

// ErrUnexpectedStatus is returned for non-200 responses.
var ErrUnexpectedStatus = errors.New("unexpected status code")

// Downloader fetches documents over HTTP onto an afero filesystem.
type Downloader struct {
	client    *http.Client
	fs        afero.Fs
	userAgent string
	retries   int
	verifier  *Verifier
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) Option {
	return func(d *Downloader) { d.client = c }
}

// WithRetries sets how many times a failed request is retried. The default
// is zero.
func WithRetries(n int) Option {
	return func(d *Downloader) { d.retries = n }
}

// WithVerifier requires a valid detached signature for every document.
func WithVerifier(v *Verifier) Option {
	return func(d *Downloader) { d.verifier = v }
}

// NewDownloader creates a new downloader writing to fs.
func NewDownloader(fs afero.Fs, opts ...Option) *Downloader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	d := &Downloader{
		client: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		fs:        fs,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fetch downloads rawURL into destDir, keeping the last path element of the
// URL as file name, and returns the written path.
func (d *Downloader) Fetch(ctx context.Context, rawURL, destDir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("no file name in url %s", rawURL)
	}

	body, err := d.get(ctx, rawURL)
	if err != nil {
		return "", err
	}

	if d.verifier != nil {
		sig, err := d.get(ctx, rawURL+SignatureSuffix)
		if err != nil {
			return "", fmt.Errorf("download signature: %w", err)
		}
		if err := d.verifier.Verify(body, sig); err != nil {
			return "", err
		}
	}

	destPath := filepath.Join(destDir, name)
	if err := d.write(destPath, body); err != nil {
		return "", err
	}
	return destPath, nil
}

func (d *Downloader) get(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= d.retries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, err := d.getOnce(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	if d.retries > 0 {
		return nil, fmt.Errorf("download failed after %d retries: %w", d.retries, lastErr)
	}
	return nil, lastErr
}

func (d *Downloader) getOnce(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d fetching %s", ErrUnexpectedStatus, resp.StatusCode, rawURL)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf.Bytes(), nil
}

func (d *Downloader) write(destPath string, data []byte) error {
	if err := d.fs.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	tmpPath := fmt.Sprintf("%s.%s.tmp", destPath, uuid.New().String())
	if err := afero.WriteFile(d.fs, tmpPath, data, 0o644); err != nil {
		_ = d.fs.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := d.fs.Rename(tmpPath, destPath); err != nil {
		_ = d.fs.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
