// Package configlists persists the editable string lists that tune the
// assessment rules, one JSON array per file.
package configlists

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"dqa/pkg/platform/sentinel"
	"dqa/pkg/requestcontext"
)

const fileExt = ".json"

// Store reads and rewrites lists under a data directory. Writes are
// serialised by a process-level mutex and land atomically via rename.
type Store struct {
	dir    string
	mu     sync.Mutex
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore returns a store rooted at dir.
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{dir: dir, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Names lists the available lists in sorted order.
func (s *Store) Names(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read data directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), fileExt))
	}
	slices.Sort(names)
	return names, nil
}

// Values returns the entries of the named list.
func (s *Store) Values(_ context.Context, name string) ([]string, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	return readList(path, name)
}

// Apply validates and applies edit to the named list and returns the result.
func (s *Store) Apply(ctx context.Context, name string, edit Edit) ([]string, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	edit.Normalize()
	if err := edit.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := readList(path, name)
	if err != nil {
		return nil, err
	}
	updated, err := edit.apply(values)
	if err != nil {
		return nil, err
	}
	if err := writeList(path, updated); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "config list updated",
		"config_name", name,
		"action", string(edit.Action),
		"count", len(updated),
		"request_id", requestcontext.RequestID(ctx),
	)
	return updated, nil
}

func (s *Store) path(name string) (string, error) {
	if !ValidName(name) {
		return "", fmt.Errorf("invalid config name: %w", sentinel.ErrInvalidInput)
	}
	path := filepath.Join(s.dir, name+fileExt)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return "", fmt.Errorf("config '%s' not found: %w", name, sentinel.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("stat config '%s': %w", name, err)
	}
	return path, nil
}

func readList(path, name string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config '%s' not found: %w", name, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read config '%s': %w", name, err)
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("decode config '%s': %w", name, err)
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

func writeList(path string, values []string) error {
	raw, err := json.MarshalIndent(values, "", "    ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}
