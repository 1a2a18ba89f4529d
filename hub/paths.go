package hub

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/wippyai/tokenizer-ffi/errors"
)

// FileName is the tokenizer definition fetched for a named model.
const FileName = "tokenizer.json"

// DefaultCacheDir resolves the cache root: TOKENIZERS_CACHE, then
// $HF_HOME/tokenizers, then the user cache dir.
func DefaultCacheDir() string {
	if dir := strings.TrimSpace(os.Getenv("TOKENIZERS_CACHE")); dir != "" {
		return expandHome(dir)
	}
	if home := strings.TrimSpace(os.Getenv("HF_HOME")); home != "" {
		return filepath.Join(expandHome(home), "tokenizers")
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "tokenizer-ffi")
	}
	return filepath.Join(os.TempDir(), "tokenizer-ffi")
}

// CachePath returns where the tokenizer for name@revision is stored under root.
func CachePath(root, name, revision string) (string, error) {
	repo, err := repoDir(name)
	if err != nil {
		return "", err
	}
	rev, err := revisionDir(revision)
	if err != nil {
		return "", err
	}
	return filepath.Join(expandHome(root), repo, rev, FileName), nil
}

func repoDir(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.InvalidInput(errors.PhaseFetch, "model name is required")
	}
	// "--" stands for "/" on disk, so it cannot appear inside a segment.
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." || strings.Contains(part, "--") {
			return "", errors.New(errors.PhaseFetch, errors.KindInvalidInput).
				Value(name).
				Detail("invalid model name %q", name).
				Build()
		}
	}
	if strings.ContainsAny(name, `\:`) {
		return "", errors.New(errors.PhaseFetch, errors.KindInvalidInput).
			Value(name).
			Detail("invalid model name %q", name).
			Build()
	}
	return strings.ReplaceAll(name, "/", "--"), nil
}

func revisionDir(revision string) (string, error) {
	if revision == "" {
		revision = DefaultRevision
	}
	for _, part := range strings.Split(revision, "/") {
		if part == "" || part == "." || part == ".." || strings.Contains(part, "--") {
			return "", errors.New(errors.PhaseFetch, errors.KindInvalidInput).
				Value(revision).
				Detail("invalid revision %q", revision).
				Build()
		}
	}
	return strings.ReplaceAll(revision, "/", "--"), nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
