package hub

import (
	"bytes"
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/wippyai/tokenizer-ffi/errors"
)

const payload = `{"model":{"type":"WordPiece"}}`

func newServer(t *testing.T, hits *atomic.Int32, check func(*http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if check != nil {
			check(r)
		}
		switch r.URL.Path {
		case "/org/model/resolve/main/tokenizer.json", "/plain/resolve/v2/tokenizer.json":
			_, _ = w.Write([]byte(payload))
		case "/broken/resolve/main/tokenizer.json":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolve_DownloadsThenCaches(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits, func(r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != UserAgent {
			t.Errorf("User-Agent = %q, want %q", ua, UserAgent)
		}
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("unexpected Authorization header %q", auth)
		}
	})

	dir := t.TempDir()
	c := New(Config{Endpoint: srv.URL + "/", CacheDir: dir})

	path, err := c.Resolve(context.Background(), "org/model", Params{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	want := filepath.Join(dir, "org--model", "main", FileName)
	if path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read cached file: %v", err)
	}
	if string(data) != payload {
		t.Fatalf("cached content = %q", data)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temporary file left behind")
	}

	// Second resolve is served from the cache
	if _, err := c.Resolve(context.Background(), "org/model", Params{}); err != nil {
		t.Fatalf("cached Resolve failed: %v", err)
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("server hit %d times, want 1", n)
	}
}

func TestResolve_RevisionAndToken(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits, func(r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("Authorization = %q", auth)
		}
	})

	c := New(Config{Endpoint: srv.URL, CacheDir: t.TempDir(), Token: "fallback"})
	path, err := c.Resolve(context.Background(), "plain", Params{Revision: "v2", Token: "secret"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if filepath.Base(filepath.Dir(path)) != "v2" {
		t.Fatalf("revision not reflected in path %q", path)
	}
}

func TestResolve_ConfigTokenFallback(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits, func(r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer fallback" {
			t.Errorf("Authorization = %q", auth)
		}
	})

	c := New(Config{Endpoint: srv.URL, CacheDir: t.TempDir(), Token: "fallback"})
	if _, err := c.Resolve(context.Background(), "org/model", Params{}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
}

func TestResolve_Errors(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits, nil)

	tests := []struct {
		name  string
		model string
		want  errors.Kind
	}{
		{"missing model", "nope/missing", errors.KindNotFound},
		{"server error", "broken", errors.KindNetwork},
		{"empty name", "", errors.KindInvalidInput},
		{"traversal", "../etc", errors.KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(Config{Endpoint: srv.URL, CacheDir: t.TempDir()})
			_, err := c.Resolve(context.Background(), tt.model, Params{})
			if err == nil {
				t.Fatal("expected error")
			}
			var e *errors.Error
			if !stderrors.As(err, &e) {
				t.Fatalf("expected *errors.Error, got %T", err)
			}
			if e.Phase != errors.PhaseFetch || e.Kind != tt.want {
				t.Fatalf("got [%s] %s, want [fetch] %s", e.Phase, e.Kind, tt.want)
			}
		})
	}
}

func TestResolve_Offline(t *testing.T) {
	dir := t.TempDir()
	c := New(Config{Endpoint: "http://127.0.0.1:1", CacheDir: dir, Offline: true})

	_, err := c.Resolve(context.Background(), "org/model", Params{})
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseFetch, Kind: errors.KindNotFound}) {
		t.Fatalf("expected fetch/not_found, got %v", err)
	}

	path, _ := CachePath(dir, "org/model", "")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(payload), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := c.Resolve(context.Background(), "org/model", Params{})
	if err != nil {
		t.Fatalf("offline cache hit failed: %v", err)
	}
	if got != path {
		t.Fatalf("path = %q, want %q", got, path)
	}
}

func TestResolve_Progress(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits, nil)

	var buf bytes.Buffer
	c := New(Config{Endpoint: srv.URL, CacheDir: t.TempDir()})
	c.Progress = &buf

	if _, err := c.Resolve(context.Background(), "org/model", Params{}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Downloading "+FileName) {
		t.Fatalf("expected progress output, got %q", buf.String())
	}
}

func TestResolve_Cancelled(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(Config{Endpoint: srv.URL, CacheDir: t.TempDir()})
	_, err := c.Resolve(ctx, "org/model", Params{})
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseFetch, Kind: errors.KindNetwork}) {
		t.Fatalf("expected fetch/network, got %v", err)
	}
}

func TestURL(t *testing.T) {
	c := New(Config{Endpoint: "https://example.test/"})
	if got := c.URL("org/model", ""); got != "https://example.test/org/model/resolve/main/tokenizer.json" {
		t.Fatalf("URL = %q", got)
	}
	if got := c.URL("m", "refs/pr/1"); got != "https://example.test/m/resolve/refs%2Fpr%2F1/tokenizer.json" {
		t.Fatalf("URL = %q", got)
	}
}

func TestDefaultCacheDir(t *testing.T) {
	t.Setenv("TOKENIZERS_CACHE", "/tmp/tok-cache")
	if got := DefaultCacheDir(); got != "/tmp/tok-cache" {
		t.Fatalf("DefaultCacheDir() = %q", got)
	}

	t.Setenv("TOKENIZERS_CACHE", "")
	t.Setenv("HF_HOME", "/tmp/hf")
	if got := DefaultCacheDir(); got != filepath.Join("/tmp/hf", "tokenizers") {
		t.Fatalf("DefaultCacheDir() = %q", got)
	}
}

func TestResolve_Concurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Two chunks keep both downloads in flight at the same time.
		_, _ = w.Write([]byte(payload[:10]))
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte(payload[10:]))
	}))
	t.Cleanup(srv.Close)

	for round := 0; round < 10; round++ {
		dir := t.TempDir()
		c := New(Config{Endpoint: srv.URL, CacheDir: dir})

		const workers = 4
		var wg sync.WaitGroup
		paths := make([]string, workers)
		errs := make([]error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				paths[i], errs[i] = c.Resolve(context.Background(), "org/model", Params{})
			}(i)
		}
		wg.Wait()

		want := filepath.Join(dir, "org--model", "main", FileName)
		for i := range errs {
			if errs[i] != nil {
				t.Fatalf("round %d: resolve %d failed: %v", round, i, errs[i])
			}
			if paths[i] != want {
				t.Fatalf("round %d: path = %q, want %q", round, paths[i], want)
			}
		}
		data, err := os.ReadFile(want)
		if err != nil || string(data) != payload {
			t.Fatalf("round %d: cached file = %q, %v", round, data, err)
		}
		left, _ := filepath.Glob(filepath.Join(dir, "org--model", "main", "*.tmp"))
		if len(left) != 0 {
			t.Fatalf("round %d: staging files left behind: %v", round, left)
		}
	}
}

func TestCachePath(t *testing.T) {
	tests := []struct {
		name, revision string
		want           string
		wantErr        bool
	}{
		{name: "org/model", want: filepath.Join("root", "org--model", "main", FileName)},
		{name: "model", revision: "refs/pr/1", want: filepath.Join("root", "model", "refs--pr--1", FileName)},
		{name: "org--model", wantErr: true},
		{name: "org/a--b", wantErr: true},
		{name: "org/model", revision: "refs--pr", wantErr: true},
		{name: "", wantErr: true},
		{name: "org/../x", wantErr: true},
		{name: "org//x", wantErr: true},
		{name: `c:\x`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name+"@"+tt.revision, func(t *testing.T) {
			got, err := CachePath("root", tt.name, tt.revision)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("CachePath = %q, want %q", got, tt.want)
			}
		})
	}
}
