// Package stats builds the set progress report.
package stats

import (
	"context"
	"fmt"

	"github.com/verte-zerg/flashvocab/internal/model"
)

// SetLister lists sets with their card counts.
type SetLister interface {
	ListSets(ctx context.Context) ([]model.SetSummary, error)
}

// SetProgress is one row of the report.
type SetProgress struct {
	model.SetSummary
	Ratio float64
}

// Report contains precomputed data for progress rendering.
type Report struct {
	Sets         []SetProgress
	TotalCards   int
	TotalLearned int
}

// Ratio returns the share of learned cards across all sets.
func (r Report) Ratio() float64 {
	return Completion(r.TotalLearned, r.TotalCards)
}

// Finished returns the number of non-empty sets with every card learned.
func (r Report) Finished() int {
	n := 0
	for _, s := range r.Sets {
		if s.CardCount > 0 && s.LearnedCount >= s.CardCount {
			n++
		}
	}
	return n
}

// BuildReport loads set summaries in list order and computes completion.
func BuildReport(ctx context.Context, st SetLister) (Report, error) {
	sets, err := st.ListSets(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list sets: %w", err)
	}
	report := Report{Sets: make([]SetProgress, 0, len(sets))}
	for _, s := range sets {
		report.Sets = append(report.Sets, SetProgress{
			SetSummary: s,
			Ratio:      Completion(s.LearnedCount, s.CardCount),
		})
		report.TotalCards += s.CardCount
		report.TotalLearned += s.LearnedCount
	}
	return report, nil
}

// Completion returns learned/total clamped to [0, 1]. An empty set is 0.
func Completion(learned, total int) float64 {
	if total <= 0 || learned <= 0 {
		return 0
	}
	if learned >= total {
		return 1
	}
	return float64(learned) / float64(total)
}
