package cli

import (
	"context"
	"path/filepath"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"mcqbank-service/internal/app"
	"mcqbank-service/internal/config"
	"mcqbank-service/internal/infra/file"
	"mcqbank-service/internal/infra/memory"
	pgstore "mcqbank-service/internal/infra/postgres"
	redisstore "mcqbank-service/internal/infra/redis"
	"mcqbank-service/internal/pipeline"
)

// deps holds the store wiring shared by the ingest and bot commands: Redis
// and Postgres when configured, flat files under data.dir otherwise.
type deps struct {
	redisClient *redis.Client
	pool        *pgxpool.Pool

	used    pipeline.UsedStore
	bundles *file.BundleStore // nil when Postgres backs bundles
	pg      *pgstore.BundleStore
}

func buildDeps(ctx context.Context, cfg config.Config) (*deps, error) {
	d := &deps{}

	if cfg.Redis.Addr != "" {
		d.redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		d.pool = pool
		d.pg = pgstore.NewBundleStore(pool)
	} else {
		d.bundles = file.NewBundleStore(filepath.Join(cfg.Data.Dir, "bundles"))
	}

	if d.redisClient != nil {
		d.used = redisstore.NewUsedStore(d.redisClient)
	} else {
		d.used = file.NewUsedStore(filepath.Join(cfg.Data.Dir, "used.txt"))
	}

	return d, nil
}

func (d *deps) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
	if d.redisClient != nil {
		d.redisClient.Close()
	}
}

// bundleWriter returns the pipeline's bundle sink.
func (d *deps) bundleWriter() pipeline.BundleWriter {
	if d.pg != nil {
		return d.pg
	}
	return d.bundles
}

// bundleLoader returns the delivery side's bundle source.
func (d *deps) bundleLoader() memory.BundleLoader {
	if d.pg != nil {
		return d.pg
	}
	return d.bundles
}

func buildPipeline(cfg config.Config, d *deps) *pipeline.Pipeline {
	var acquirer pipeline.Acquirer
	if !cfg.Generation.Disabled && cfg.Generation.APIKey != "" {
		acquirer = pipeline.NewOpenAIAcquirer(cfg.Generation.APIKey, cfg.Generation.BaseURL, cfg.Generation.Model)
	}

	return &pipeline.Pipeline{
		Extractor: pipeline.Extractor{DefaultAnswerIndex: cfg.Pipeline.DefaultAnswerIndex},
		Chunker:   pipeline.Chunker{Size: cfg.Pipeline.ChunkSize, MaxTotal: cfg.Pipeline.MaxChars},
		Validator: pipeline.Validator{
			OptionCount:    cfg.Pipeline.OptionCount,
			MaxQuestionLen: cfg.Pipeline.MaxQuestionLen,
			MaxOptionLen:   cfg.Pipeline.MaxOptionLen,
			Blocked:        cfg.Pipeline.BlockedKeywords,
		},
		Acquirer:     acquirer,
		Used:         d.used,
		Bundles:      d.bundleWriter(),
		Clock:        app.SystemClock(),
		PerChunk:     cfg.Generation.PerChunk,
		CallDelay:    cfg.CallDelayDuration(),
		MinTheoryLen: cfg.Pipeline.MinTheoryLen,
		BundleMin:    cfg.Bundle.Min,
		BundleMax:    cfg.Bundle.Max,
	}
}
