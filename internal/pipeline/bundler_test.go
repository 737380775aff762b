package pipeline

import (
	"fmt"
	"testing"
	"time"

	"mcqbank-service/internal/domain"
)

func makeQuestions(n int) []domain.MCQ {
	qs := make([]domain.MCQ, n)
	for i := range qs {
		qs[i] = domain.MCQ{
			Question:    fmt.Sprintf("Question %d?", i+1),
			Options:     []string{"A", "B", "C", "D"},
			AnswerIndex: 0,
		}
	}
	return qs
}

func TestBuildBundlesEmptyInput(t *testing.T) {
	if got := BuildBundles(nil, 20, 50, 1, time.Now()); got != nil {
		t.Fatalf("expected no bundles, got %d", len(got))
	}
}

func TestBuildBundlesSplitsAtMax(t *testing.T) {
	bundles := BuildBundles(makeQuestions(120), 20, 50, 1, time.Now())
	if len(bundles) != 3 {
		t.Fatalf("expected 3 bundles, got %d", len(bundles))
	}
	sizes := []int{50, 50, 20}
	for i, b := range bundles {
		if len(b.Questions) != sizes[i] {
			t.Errorf("bundle %d: expected %d questions, got %d", i, sizes[i], len(b.Questions))
		}
		if b.Seq != i+1 {
			t.Errorf("bundle %d: expected seq %d, got %d", i, i+1, b.Seq)
		}
	}
}

func TestBuildBundlesMergesShortTrailer(t *testing.T) {
	// 55 questions with max 50 would leave a trailing 5; it merges backwards.
	bundles := BuildBundles(makeQuestions(55), 20, 50, 7, time.Now())
	if len(bundles) != 1 {
		t.Fatalf("expected 1 bundle, got %d", len(bundles))
	}
	if len(bundles[0].Questions) != 55 {
		t.Errorf("expected 55 questions, got %d", len(bundles[0].Questions))
	}
	if bundles[0].Seq != 7 {
		t.Errorf("expected seq 7, got %d", bundles[0].Seq)
	}
}

func TestBuildBundlesLoneShortBundleShips(t *testing.T) {
	bundles := BuildBundles(makeQuestions(5), 20, 50, 1, time.Now())
	if len(bundles) != 1 {
		t.Fatalf("expected 1 bundle, got %d", len(bundles))
	}
	if len(bundles[0].Questions) != 5 {
		t.Errorf("expected 5 questions, got %d", len(bundles[0].Questions))
	}
}

func TestBuildBundlesNoQuestionLost(t *testing.T) {
	for _, n := range []int{1, 19, 20, 49, 50, 51, 70, 120, 149} {
		bundles := BuildBundles(makeQuestions(n), 20, 50, 1, time.Now())
		total := 0
		for _, b := range bundles {
			total += len(b.Questions)
		}
		if total != n {
			t.Errorf("n=%d: %d questions bundled", n, total)
		}
		// Every non-final bundle holds exactly max; only the final one may
		// exceed it (after a merge) or fall below min (when it is alone).
		for i, b := range bundles[:len(bundles)-1] {
			if len(b.Questions) != 50 {
				t.Errorf("n=%d: bundle %d has %d questions", n, i, len(b.Questions))
			}
		}
	}
}
