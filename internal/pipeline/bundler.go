package pipeline

import (
	"time"

	"mcqbank-service/internal/domain"
)

// BuildBundles groups questions into bundles of at most max, assigning
// sequence numbers from firstSeq. A trailing bundle smaller than min is
// merged into its predecessor; if there is no predecessor the short bundle
// ships alone rather than dropping questions.
func BuildBundles(questions []domain.MCQ, min, max, firstSeq int, now time.Time) []domain.Bundle {
	if len(questions) == 0 {
		return nil
	}
	if max <= 0 {
		max = len(questions)
	}

	var bundles []domain.Bundle
	for start := 0; start < len(questions); start += max {
		end := start + max
		if end > len(questions) {
			end = len(questions)
		}
		bundles = append(bundles, domain.Bundle{
			Seq:       firstSeq + len(bundles),
			Questions: append([]domain.MCQ(nil), questions[start:end]...),
			CreatedAt: now,
		})
	}

	last := len(bundles) - 1
	if last > 0 && len(bundles[last].Questions) < min {
		bundles[last-1].Questions = append(bundles[last-1].Questions, bundles[last].Questions...)
		bundles = bundles[:last]
	}
	return bundles
}
