// Package file holds flat-file store implementations: the durable
// used-question fingerprint set and the per-sequence bundle directory.
// They are the zero-configuration defaults; Redis and Postgres back the
// same interfaces when configured.
package file

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// UsedStore keeps the cross-run fingerprint set in an append-only text
// file, one fingerprint per line. The whole set is loaded at pipeline start;
// Add appends and syncs before returning, so a fingerprint accepted once is
// never re-emitted even if the run dies right after.
type UsedStore struct {
	mu   sync.Mutex
	path string
}

func NewUsedStore(path string) *UsedStore {
	return &UsedStore{path: path}
}

func (s *UsedStore) Load(_ context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := make(map[string]struct{})
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}
		return nil, fmt.Errorf("open used set: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fp := strings.TrimSpace(scanner.Text())
		if fp != "" {
			set[fp] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read used set: %w", err)
	}
	return set, nil
}

func (s *UsedStore) Add(_ context.Context, fingerprints ...string) error {
	if len(fingerprints) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open used set: %w", err)
	}
	defer f.Close()

	for _, fp := range fingerprints {
		if _, err := fmt.Fprintln(f, fp); err != nil {
			return fmt.Errorf("append fingerprint: %w", err)
		}
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync used set: %w", err)
	}
	return nil
}
