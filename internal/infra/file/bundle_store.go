package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"

	"mcqbank-service/internal/domain"
)

var bundleFileRe = regexp.MustCompile(`^bundle-(\d+)\.json$`)

// BundleStore keeps one JSON file per bundle under a directory,
// named bundle-<seq>.json. It serves both the pipeline's writer side
// and the delivery side's loader.
type BundleStore struct {
	mu  sync.Mutex
	dir string
}

func NewBundleStore(dir string) *BundleStore {
	return &BundleStore{dir: dir}
}

// NextSeq scans the directory and returns one past the highest stored
// sequence number, or 1 for an empty/missing directory.
func (s *BundleStore) NextSeq(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 1, nil
		}
		return 0, fmt.Errorf("read bundle dir: %w", err)
	}

	max := 0
	for _, entry := range entries {
		m := bundleFileRe.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		seq, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if seq > max {
			max = seq
		}
	}
	return max + 1, nil
}

func (s *BundleStore) SaveBundle(_ context.Context, bundle domain.Bundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create bundle dir: %w", err)
	}
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("encode bundle %d: %w", bundle.Seq, err)
	}

	// write to a temp file then rename so readers never see a partial bundle
	path := s.bundlePath(bundle.Seq)
	tmp, err := os.CreateTemp(s.dir, "bundle-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp bundle: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write bundle %d: %w", bundle.Seq, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp bundle: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store bundle %d: %w", bundle.Seq, err)
	}
	return nil
}

func (s *BundleStore) LoadBundle(_ context.Context, seq int) (domain.Bundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.bundlePath(seq))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Bundle{}, domain.ErrBundleNotFound
		}
		return domain.Bundle{}, fmt.Errorf("read bundle %d: %w", seq, err)
	}
	var bundle domain.Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return domain.Bundle{}, fmt.Errorf("decode bundle %d: %w", seq, err)
	}
	return bundle, nil
}

func (s *BundleStore) bundlePath(seq int) string {
	return filepath.Join(s.dir, "bundle-"+strconv.Itoa(seq)+".json")
}
