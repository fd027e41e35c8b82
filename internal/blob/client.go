// Package blob publishes pipeline artifacts into a directory served over
// HTTP and resolves artifact references back into bytes, whether they
// point at remote URLs or locally published files.
package blob

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"powerplay/internal/config"
	"powerplay/internal/logging"
	"powerplay/internal/services"
)

// Client stores artifacts under a public directory and hands out the URLs
// the rest of the pipeline records on work items.
type Client struct {
	dir     string
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a blob client from configuration.
func NewClient(cfg config.Blob, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "blob", "init",
			"Blob directory is not configured", nil)
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Client{
		dir:     cfg.Dir,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logging.NewComponentLogger(logger, "blob"),
	}, nil
}

// Upload publishes data under name and returns the reference recorded on
// the work item. Names may contain slashes to namespace artifacts.
func (c *Client) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := path.Clean("/" + name)
	target := filepath.Join(c.dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", name, err)
	}
	ref := target
	if c.baseURL != "" {
		ref = c.baseURL + clean
	}
	c.logger.Debug("artifact published",
		logging.String("name", name),
		logging.Int("bytes", len(data)))
	return ref, nil
}

// UploadFile publishes an existing file under name.
func (c *Client) UploadFile(ctx context.Context, name, sourcePath string) (string, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return "", fmt.Errorf("read artifact source: %w", err)
	}
	return c.Upload(ctx, name, data)
}

// Download resolves an artifact reference into bytes. HTTP and HTTPS
// references are fetched remotely; published URLs under the public base
// resolve straight from the local directory; anything else is read as a
// filesystem path.
func (c *Client) Download(ctx context.Context, ref string) ([]byte, error) {
	if local, ok := c.localPath(ref); ok {
		data, err := os.ReadFile(local)
		if err != nil {
			return nil, fmt.Errorf("read artifact %s: %w", ref, err)
		}
		return data, nil
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return c.fetch(ctx, ref)
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", ref, err)
	}
	return data, nil
}

// DownloadToTemp fetches an artifact into a temp file and returns its
// path. Callers remove the file when done.
func (c *Client) DownloadToTemp(ctx context.Context, ref, pattern string) (string, error) {
	data, err := c.Download(ctx, ref)
	if err != nil {
		return "", err
	}
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("create temp artifact: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write temp artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close temp artifact: %w", err)
	}
	return f.Name(), nil
}

func (c *Client) localPath(ref string) (string, bool) {
	if c.baseURL == "" || !strings.HasPrefix(ref, c.baseURL+"/") {
		return "", false
	}
	rel, err := url.PathUnescape(strings.TrimPrefix(ref, c.baseURL))
	if err != nil {
		return "", false
	}
	return filepath.Join(c.dir, filepath.FromSlash(path.Clean("/"+rel))), true
}

func (c *Client) fetch(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("build artifact request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "blob", "download",
			"Artifact fetch failed; check connectivity to the artifact host", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrTransient, "blob", "download",
			fmt.Sprintf("Artifact host returned status %d", resp.StatusCode), nil)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "blob", "download",
			"Artifact body read failed", err)
	}
	return data, nil
}
