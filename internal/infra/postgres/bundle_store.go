// Package postgres persists bundles as JSONB rows keyed by sequence number.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mcqbank-service/internal/domain"
)

// BundleStore reads and writes bundles in the bundles table. It serves both
// the pipeline's writer side and the delivery side's loader.
type BundleStore struct {
	pool *pgxpool.Pool
}

func NewBundleStore(pool *pgxpool.Pool) *BundleStore {
	return &BundleStore{pool: pool}
}

func (s *BundleStore) NextSeq(ctx context.Context) (int, error) {
	var next int
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM bundles`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next bundle seq: %w", err)
	}
	return next, nil
}

func (s *BundleStore) SaveBundle(ctx context.Context, bundle domain.Bundle) error {
	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("encode bundle %d: %w", bundle.Seq, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO bundles (seq, data) VALUES ($1, $2)
		 ON CONFLICT (seq) DO UPDATE SET data = EXCLUDED.data`,
		bundle.Seq, data)
	if err != nil {
		return fmt.Errorf("store bundle %d: %w", bundle.Seq, err)
	}
	return nil
}

func (s *BundleStore) LoadBundle(ctx context.Context, seq int) (domain.Bundle, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM bundles WHERE seq=$1`, seq).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Bundle{}, domain.ErrBundleNotFound
		}
		return domain.Bundle{}, fmt.Errorf("load bundle %d: %w", seq, err)
	}
	var bundle domain.Bundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return domain.Bundle{}, fmt.Errorf("decode bundle %d: %w", seq, err)
	}
	return bundle, nil
}
