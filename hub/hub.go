package hub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/wippyai/tokenizer-ffi/errors"
)

const (
	DefaultEndpoint = "https://huggingface.co"
	DefaultRevision = "main"
	DefaultTimeout  = 5 * time.Minute

	// UserAgent is sent with every request. Callers cannot override it.
	UserAgent = "tokenizer-ffi/0.1"
)

// Config configures a Client. The zero value is usable.
type Config struct {
	Endpoint string        `yaml:"endpoint"`
	CacheDir string        `yaml:"cacheDir"`
	Token    string        `yaml:"token"`
	Timeout  time.Duration `yaml:"timeout"`
	Offline  bool          `yaml:"offline"`
}

// Params selects a revision and optional auth token for one resolution.
// An empty Revision means "main"; an empty Token falls back to Config.Token.
type Params struct {
	Revision string
	Token    string
}

// Client resolves named pretrained tokenizers to local files, downloading
// them into the cache when missing.
type Client struct {
	HTTP     *http.Client
	Progress io.Writer // optional; renders a progress bar while downloading
	cfg      Config
}

// New creates a client, filling unset config fields with defaults.
func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if cfg.CacheDir == "" {
		cfg.CacheDir = DefaultCacheDir()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		HTTP: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
	}
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// URL returns the download location of the tokenizer for name@revision.
func (c *Client) URL(name, revision string) string {
	if revision == "" {
		revision = DefaultRevision
	}
	return fmt.Sprintf("%s/%s/resolve/%s/%s",
		c.cfg.Endpoint, escapePath(name), url.PathEscape(revision), FileName)
}

// Resolve returns the local path of the tokenizer definition for name,
// fetching it when it is not cached yet.
func (c *Client) Resolve(ctx context.Context, name string, p Params) (string, error) {
	path, err := CachePath(c.cfg.CacheDir, name, p.Revision)
	if err != nil {
		return "", err
	}

	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		Logger().Debug("tokenizer cache hit", zap.String("name", name), zap.String("path", path))
		return path, nil
	}

	if c.cfg.Offline {
		return "", errors.New(errors.PhaseFetch, errors.KindNotFound).
			Value(name).
			Detail("%s not cached and offline mode is enabled", name).
			Build()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", errors.Wrap(errors.PhaseFetch, errors.KindInvalidInput, err, "failed to create cache dir")
	}

	token := p.Token
	if token == "" {
		token = c.cfg.Token
	}

	src := c.URL(name, p.Revision)
	// Every call stages into its own file; concurrent callers may race to
	// the rename and either copy wins.
	tmp, err := os.CreateTemp(filepath.Dir(path), FileName+".*.tmp")
	if err != nil {
		return "", errors.Wrap(errors.PhaseFetch, errors.KindInvalidInput, err, "failed to create file")
	}
	err = c.download(ctx, src, token, tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = errors.Wrap(errors.PhaseFetch, errors.KindInvalidInput, cerr, "failed to flush file")
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		if info, serr := os.Stat(path); serr == nil && !info.IsDir() {
			return path, nil
		}
		return "", errors.Wrap(errors.PhaseFetch, errors.KindInvalidInput, err, "failed to finalize download")
	}

	Logger().Info("tokenizer downloaded", zap.String("name", name), zap.String("url", src), zap.String("path", path))
	return path, nil
}

func (c *Client) download(ctx context.Context, src, token string, out *os.File) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return errors.Wrap(errors.PhaseFetch, errors.KindInvalidInput, err, "failed to build request")
	}
	req.Header.Set("User-Agent", UserAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return errors.Wrap(errors.PhaseFetch, errors.KindNetwork, err, "request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnauthorized:
		return errors.New(errors.PhaseFetch, errors.KindNotFound).
			Value(src).
			Detail("%s: status %d", src, resp.StatusCode).
			Build()
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return errors.New(errors.PhaseFetch, errors.KindNetwork).
			Value(src).
			Detail("%s: unexpected status %d", src, resp.StatusCode).
			Build()
	}

	var w io.Writer = out
	if c.Progress != nil {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetDescription("  Downloading "+FileName),
			progressbar.OptionSetWriter(c.Progress),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetRenderBlankState(true),
		)
		defer bar.Finish()
		w = io.MultiWriter(out, bar)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return errors.Wrap(errors.PhaseFetch, errors.KindNetwork, err, "download interrupted")
	}
	if err := out.Sync(); err != nil {
		return errors.Wrap(errors.PhaseFetch, errors.KindInvalidInput, err, "failed to flush file")
	}
	return nil
}

func escapePath(name string) string {
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
