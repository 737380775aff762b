package pipeline

import (
	"context"
	"log"
	"strings"
	"time"

	"mcqbank-service/internal/domain"
)

// Acquirer produces the raw generation response for one chunk.
type Acquirer interface {
	Acquire(ctx context.Context, chunk string, count int) (string, error)
}

// UsedStore is the durable cross-run set of question fingerprints. Load is
// called once at pipeline start; Add must persist before returning.
type UsedStore interface {
	Load(ctx context.Context) (map[string]struct{}, error)
	Add(ctx context.Context, fingerprints ...string) error
}

// BundleWriter persists bundles under stable, monotonic sequence numbers.
type BundleWriter interface {
	NextSeq(ctx context.Context) (int, error)
	SaveBundle(ctx context.Context, b domain.Bundle) error
}

// Clock drives the inter-call pacing so tests can simulate elapsed time.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// Pipeline wires the full ingest flow: pattern extraction, chunked
// generation, response recovery, validation, cross-run dedup, bundling.
type Pipeline struct {
	Extractor Extractor
	Chunker   Chunker
	Validator Validator
	Acquirer  Acquirer // nil disables generation
	Used      UsedStore
	Bundles   BundleWriter
	Clock     Clock

	// PerChunk is the candidate count requested per generation call.
	PerChunk int
	// CallDelay is the fixed pause between generation calls, honouring the
	// service's implicit rate limit.
	CallDelay time.Duration
	// MinTheoryLen skips generation when the post-strip theory text is
	// shorter than this many characters.
	MinTheoryLen int

	BundleMin int
	BundleMax int
}

// Run processes one document's extracted text end to end and returns the
// aggregate report. Empty or whitespace-only input returns ErrNoContent.
// Generation call failures are chunk-level: logged, counted, skipped.
func (p *Pipeline) Run(ctx context.Context, rawText string) (domain.Report, error) {
	var report domain.Report

	if strings.TrimSpace(rawText) == "" {
		return report, domain.ErrNoContent
	}

	used, err := p.Used.Load(ctx)
	if err != nil {
		return report, err
	}

	candidates := p.Extractor.Extract(rawText)
	report.Extracted = len(candidates)

	if p.Acquirer != nil {
		generated, failed, chunks := p.generate(ctx, rawText)
		candidates = append(candidates, generated...)
		report.Generated = len(generated)
		report.FailedCalls = failed
		report.Chunks = chunks
	}

	accepted := make([]domain.MCQ, 0, len(candidates))
	for _, cand := range candidates {
		mcq, ok := p.Validator.Validate(cand)
		if !ok {
			report.Rejected++
			continue
		}
		mcq.Fingerprint = Fingerprint(mcq.Question)
		if _, dup := used[mcq.Fingerprint]; dup {
			report.Duplicates++
			continue
		}
		used[mcq.Fingerprint] = struct{}{}
		// Persist immediately: once a fingerprint is accepted it must never
		// come back, even if this run fails before bundling.
		if err := p.Used.Add(ctx, mcq.Fingerprint); err != nil {
			log.Printf("pipeline: persist fingerprint: %v", err)
		}
		accepted = append(accepted, mcq)
	}
	report.Accepted = len(accepted)

	if len(accepted) == 0 {
		return report, nil
	}

	firstSeq, err := p.Bundles.NextSeq(ctx)
	if err != nil {
		return report, err
	}
	bundles := BuildBundles(accepted, p.BundleMin, p.BundleMax, firstSeq, p.Clock.Now())
	for _, b := range bundles {
		if err := p.Bundles.SaveBundle(ctx, b); err != nil {
			return report, err
		}
	}
	report.Bundles = len(bundles)
	report.FirstSeq = firstSeq
	return report, nil
}

// generate strips already-matched MCQ blocks so the model sees theory text
// only, then walks the chunks sequentially with a fixed inter-call delay.
func (p *Pipeline) generate(ctx context.Context, rawText string) (cands []domain.Candidate, failed, chunkCount int) {
	theory := p.Extractor.StripMCQBlocks(rawText)
	if len(theory) < p.MinTheoryLen {
		return nil, 0, 0
	}

	chunks := p.Chunker.Split(theory)
	for i, chunk := range chunks {
		if i > 0 {
			if err := p.pause(ctx); err != nil {
				return cands, failed, len(chunks)
			}
		}
		raw, err := p.Acquirer.Acquire(ctx, chunk, p.PerChunk)
		if err != nil {
			log.Printf("pipeline: generation call failed for chunk %d/%d: %v", i+1, len(chunks), err)
			failed++
			continue
		}
		cands = append(cands, Recover(raw)...)
	}
	return cands, failed, len(chunks)
}

func (p *Pipeline) pause(ctx context.Context) error {
	if p.CallDelay <= 0 {
		return nil
	}
	select {
	case <-p.Clock.After(p.CallDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
