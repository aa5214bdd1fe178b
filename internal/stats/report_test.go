package stats

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/verte-zerg/flashvocab/internal/model"
	"github.com/verte-zerg/flashvocab/internal/testutil"
)

func summary(id int64, name string, cards, learned int) model.SetSummary {
	return model.SetSummary{
		VocabularySet: model.VocabularySet{ID: id, Name: name},
		CardCount:     cards,
		LearnedCount:  learned,
	}
}

func TestBuildReport(t *testing.T) {
	st := &testutil.MockCardStore{}
	st.On("ListSets", mock.Anything).Return([]model.SetSummary{
		summary(1, "Kanji N5", 40, 12),
		summary(2, "Verbs", 8, 8),
		summary(3, "Empty", 0, 0),
	}, nil)

	report, err := BuildReport(context.Background(), st)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Sets) != 3 {
		t.Fatalf("expected 3 sets, got %d", len(report.Sets))
	}
	if report.Sets[0].Ratio != 0.3 || report.Sets[1].Ratio != 1 || report.Sets[2].Ratio != 0 {
		t.Fatalf("unexpected ratios: %+v", report.Sets)
	}
	if report.TotalCards != 48 || report.TotalLearned != 20 {
		t.Fatalf("unexpected totals: %d/%d", report.TotalLearned, report.TotalCards)
	}
	if report.Finished() != 1 {
		t.Fatalf("expected 1 finished set, got %d", report.Finished())
	}
}

func TestBuildReportWrapsStoreError(t *testing.T) {
	st := &testutil.MockCardStore{}
	st.On("ListSets", mock.Anything).Return(nil, &model.TransportError{Op: "list sets", Status: 502})

	_, err := BuildReport(context.Background(), st)
	var te *model.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestCompletion(t *testing.T) {
	cases := []struct {
		learned, total int
		want           float64
	}{
		{0, 0, 0},
		{3, 0, 0},
		{1, 4, 0.25},
		{5, 4, 1},
		{-1, 4, 0},
	}
	for _, tc := range cases {
		if got := Completion(tc.learned, tc.total); got != tc.want {
			t.Fatalf("Completion(%d, %d) = %v, want %v", tc.learned, tc.total, got, tc.want)
		}
	}
}

func TestProgressBar(t *testing.T) {
	if got := ProgressBar(0.5, 10); got != "[#####-----]" {
		t.Fatalf("unexpected bar: %q", got)
	}
	if got := ProgressBar(1.5, 4); got != "[####]" {
		t.Fatalf("unexpected bar: %q", got)
	}
	if got := ProgressBar(0, 0); got != "[-]" {
		t.Fatalf("unexpected bar: %q", got)
	}
}

func TestRender(t *testing.T) {
	report := Report{
		Sets: []SetProgress{
			{SetSummary: summary(1, "Kanji N5", 40, 12), Ratio: 0.3},
			{SetSummary: summary(2, "Verbs", 8, 0), Ratio: 0},
		},
		TotalCards:   48,
		TotalLearned: 12,
	}
	var buf bytes.Buffer
	if err := Render(&buf, report, 60); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	wantBar := "[" + strings.Repeat("#", 8) + strings.Repeat("-", 19) + "]  30%"
	for _, want := range []string{"ID Set      Cards Learned Progress", " 1 Kanji N5    40      12 ", wantBar, "Sets: 2 (0 finished)  Cards: 48  Learned: 12 (25%)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, Report{}, 80); err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.String() != "No sets found.\n" {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestBarWidthClamps(t *testing.T) {
	if got := barWidthFor(20, "ID Set Cards Learned"); got != minBarWidth {
		t.Fatalf("expected min width, got %d", got)
	}
	if got := barWidthFor(50, "ID Set Cards Learned"); got != 22 {
		t.Fatalf("expected 22, got %d", got)
	}
	if got := barWidthFor(500, "ID Set Cards Learned"); got != maxBarWidth {
		t.Fatalf("expected max width, got %d", got)
	}
}
