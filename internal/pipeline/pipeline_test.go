package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"mcqbank-service/internal/domain"
)

type fakeUsed struct {
	set  map[string]struct{}
	adds int
}

func newFakeUsed() *fakeUsed { return &fakeUsed{set: make(map[string]struct{})} }

func (f *fakeUsed) Load(context.Context) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(f.set))
	for k := range f.set {
		out[k] = struct{}{}
	}
	return out, nil
}

func (f *fakeUsed) Add(_ context.Context, fps ...string) error {
	for _, fp := range fps {
		f.set[fp] = struct{}{}
	}
	f.adds += len(fps)
	return nil
}

type fakeBundles struct {
	saved   []domain.Bundle
	nextSeq int
}

func (f *fakeBundles) NextSeq(context.Context) (int, error) {
	if f.nextSeq == 0 {
		f.nextSeq = 1
	}
	return f.nextSeq, nil
}

func (f *fakeBundles) SaveBundle(_ context.Context, b domain.Bundle) error {
	f.saved = append(f.saved, b)
	f.nextSeq = b.Seq + 1
	return nil
}

type instantClock struct{}

func (instantClock) Now() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

func (instantClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

// scriptedAcquirer returns one canned response per call, erroring where the
// script says so.
type scriptedAcquirer struct {
	responses []string
	errAt     map[int]bool
	calls     int
}

func (a *scriptedAcquirer) Acquire(_ context.Context, _ string, _ int) (string, error) {
	call := a.calls
	a.calls++
	if a.errAt[call] {
		return "", errors.New("upstream unavailable")
	}
	if call < len(a.responses) {
		return a.responses[call], nil
	}
	return "[]", nil
}

func generatedJSON(qs ...string) string {
	items := make([]string, len(qs))
	for i, q := range qs {
		items[i] = fmt.Sprintf(`{"question": %q, "options": ["A1", "B2", "C3", "D4"], "answer_index": 0}`, q)
	}
	return "[" + strings.Join(items, ",") + "]"
}

func newTestPipeline(used *fakeUsed, bundles *fakeBundles, acq Acquirer) *Pipeline {
	return &Pipeline{
		Extractor:    Extractor{},
		Chunker:      Chunker{Size: 4000},
		Validator:    Validator{OptionCount: 4, MaxQuestionLen: 300, MaxOptionLen: 100},
		Acquirer:     acq,
		Used:         used,
		Bundles:      bundles,
		Clock:        instantClock{},
		PerChunk:     10,
		CallDelay:    time.Millisecond,
		MinTheoryLen: 10,
		BundleMin:    2,
		BundleMax:    50,
	}
}

const extractOnlyDoc = `Some introductory theory to satisfy the minimum length floor.

1. What is two plus two?
a) Three
b) Four
c) Five
d) Six
Answer: B
`

func TestPipelineEmptyInput(t *testing.T) {
	p := newTestPipeline(newFakeUsed(), &fakeBundles{}, nil)
	_, err := p.Run(context.Background(), "   \n\t ")
	if !errors.Is(err, domain.ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
}

func TestPipelineExtractionOnly(t *testing.T) {
	used := newFakeUsed()
	bundles := &fakeBundles{}
	p := newTestPipeline(used, bundles, nil)

	report, err := p.Run(context.Background(), extractOnlyDoc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Extracted != 1 || report.Accepted != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Generated != 0 {
		t.Errorf("generation ran without an acquirer: %+v", report)
	}
	if len(bundles.saved) != 1 {
		t.Fatalf("expected 1 bundle, got %d", len(bundles.saved))
	}
	q := bundles.saved[0].Questions[0]
	if q.AnswerIndex != 1 {
		t.Errorf("expected answer index 1, got %d", q.AnswerIndex)
	}
	if q.Fingerprint == "" {
		t.Error("accepted question has no fingerprint")
	}
}

func TestPipelineGenerationMergesWithExtraction(t *testing.T) {
	used := newFakeUsed()
	bundles := &fakeBundles{}
	acq := &scriptedAcquirer{responses: []string{generatedJSON("Gen question one?", "Gen question two?")}}
	p := newTestPipeline(used, bundles, acq)

	report, err := p.Run(context.Background(), extractOnlyDoc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Extracted != 1 || report.Generated != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Accepted != 3 {
		t.Fatalf("expected 3 accepted, got %d", report.Accepted)
	}
	if acq.calls != 1 {
		t.Errorf("expected 1 generation call, got %d", acq.calls)
	}
}

func TestPipelineRunTwiceIsIdempotent(t *testing.T) {
	used := newFakeUsed()
	p := newTestPipeline(used, &fakeBundles{}, nil)

	first, err := p.Run(context.Background(), extractOnlyDoc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Accepted != 1 {
		t.Fatalf("expected 1 accepted on first run, got %d", first.Accepted)
	}

	second, err := p.Run(context.Background(), extractOnlyDoc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Accepted != 0 || second.Duplicates != 1 {
		t.Fatalf("expected full dedup on second run, got %+v", second)
	}
	if second.Bundles != 0 {
		t.Errorf("second run produced bundles: %+v", second)
	}
}

func TestPipelineChunkFailureSkipsAndContinues(t *testing.T) {
	used := newFakeUsed()
	bundles := &fakeBundles{}
	acq := &scriptedAcquirer{
		responses: []string{"", generatedJSON("Survivor question?", "Another survivor?")},
		errAt:     map[int]bool{0: true},
	}
	p := newTestPipeline(used, bundles, acq)
	p.Chunker = Chunker{Size: 400}

	theory := strings.Repeat("Plenty of theory text for two chunks. ", 20)
	report, err := p.Run(context.Background(), theory)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Chunks != 2 {
		t.Fatalf("expected 2 chunks, got %d", report.Chunks)
	}
	if report.FailedCalls != 1 {
		t.Errorf("expected 1 failed call, got %d", report.FailedCalls)
	}
	if report.Generated != 2 {
		t.Errorf("expected 2 generated from the surviving chunk, got %d", report.Generated)
	}
}

func TestPipelineShortTheorySkipsGeneration(t *testing.T) {
	acq := &scriptedAcquirer{}
	p := newTestPipeline(newFakeUsed(), &fakeBundles{}, acq)
	p.MinTheoryLen = 500

	_, err := p.Run(context.Background(), "short theory")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acq.calls != 0 {
		t.Errorf("generation ran below the theory floor: %d calls", acq.calls)
	}
}

func TestPipelineRejectedCandidatesCounted(t *testing.T) {
	used := newFakeUsed()
	acq := &scriptedAcquirer{responses: []string{
		`[{"question": "Bad count?", "options": ["A", "B"], "answer_index": 0}]`,
	}}
	p := newTestPipeline(used, &fakeBundles{}, acq)

	theory := strings.Repeat("Theory without any embedded questions. ", 5)
	report, err := p.Run(context.Background(), theory)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Rejected != 1 || report.Accepted != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if used.adds != 0 {
		t.Errorf("rejected candidate persisted a fingerprint")
	}
}

func TestPipelineFingerprintsPersistImmediately(t *testing.T) {
	used := newFakeUsed()
	p := newTestPipeline(used, &fakeBundles{}, nil)

	if _, err := p.Run(context.Background(), extractOnlyDoc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if used.adds != 1 {
		t.Fatalf("expected 1 persisted fingerprint, got %d", used.adds)
	}
}
