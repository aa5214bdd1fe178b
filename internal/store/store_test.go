package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/flashvocab/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "flashvocab.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func sampleRows(words ...string) []model.Row {
	rows := make([]model.Row, 0, len(words))
	for _, w := range words {
		rows = append(rows, model.Row{Headword: w, Meaning: w + "-meaning"})
	}
	return rows
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "flashvocab.db")
	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close()

	sets, err := st.ListSets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sets)
}

func TestImportAndGetSet(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	res, err := st.ImportSet(ctx, "  N5 verbs ", "basics", sampleRows("食べる", "飲む", "行く"))
	require.NoError(t, err)
	assert.Equal(t, 3, res.CardCount)

	detail, err := st.GetSet(ctx, res.SetID, false)
	require.NoError(t, err)
	assert.Equal(t, "N5 verbs", detail.Name)
	assert.Equal(t, "basics", detail.Description)
	assert.Equal(t, model.FaceHeadword, detail.DefaultFace)
	assert.Equal(t, 3, detail.TotalCount)
	assert.Equal(t, 0, detail.LearnedCount)
	require.Len(t, detail.Cards, 3)
	assert.Equal(t, "食べる", detail.Cards[0].Headword)
	assert.Equal(t, "飲む-meaning", detail.Cards[1].Meaning)
	assert.False(t, detail.Cards[2].Learned)
}

func TestImportRejectsEmptyInput(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	_, err := st.ImportSet(ctx, "empty", "", nil)
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = st.ImportSet(ctx, "   ", "", sampleRows("a"))
	assert.ErrorIs(t, err, model.ErrValidation)

	sets, err := st.ListSets(ctx)
	require.NoError(t, err)
	assert.Empty(t, sets)
}

func TestGetSetFiltersLearnedCards(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	res, err := st.ImportSet(ctx, "set", "", sampleRows("a", "b", "c"))
	require.NoError(t, err)

	all, err := st.GetSet(ctx, res.SetID, true)
	require.NoError(t, err)
	require.NoError(t, st.SetCardLearned(ctx, all.Cards[1].ID, true))

	unlearned, err := st.GetSet(ctx, res.SetID, false)
	require.NoError(t, err)
	require.Len(t, unlearned.Cards, 2)
	assert.Equal(t, "a", unlearned.Cards[0].Headword)
	assert.Equal(t, "c", unlearned.Cards[1].Headword)
	assert.Equal(t, 3, unlearned.TotalCount)
	assert.Equal(t, 1, unlearned.LearnedCount)

	all, err = st.GetSet(ctx, res.SetID, true)
	require.NoError(t, err)
	require.Len(t, all.Cards, 3)
	assert.True(t, all.Cards[1].Learned)
}

func TestGetSetMissing(t *testing.T) {
	st := openTestStore(t)
	_, err := st.GetSet(context.Background(), 42, false)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestListSetsOrdering(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var ids []int64
	for i, name := range []string{"first", "second", "third"} {
		created := base.Add(time.Duration(i) * time.Hour)
		st.now = func() time.Time { return created }
		res, err := st.ImportSet(ctx, name, "", sampleRows("x", "y"))
		require.NoError(t, err)
		ids = append(ids, res.SetID)
	}

	sets, err := st.ListSets(ctx)
	require.NoError(t, err)
	require.Len(t, sets, 3)
	// Same sort order: newest first.
	assert.Equal(t, []string{"third", "second", "first"}, setNames(sets))
	assert.Equal(t, 2, sets[0].CardCount)
	assert.True(t, base.Add(2*time.Hour).Equal(sets[0].CreatedAt))

	require.NoError(t, st.ReorderSets(ctx, []int64{ids[0], ids[2], ids[1]}))
	sets, err = st.ListSets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "third", "second"}, setNames(sets))
}

func TestListSetsCountsLearned(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	res, err := st.ImportSet(ctx, "set", "", sampleRows("a", "b"))
	require.NoError(t, err)
	detail, err := st.GetSet(ctx, res.SetID, true)
	require.NoError(t, err)
	require.NoError(t, st.SetCardLearned(ctx, detail.Cards[0].ID, true))

	sets, err := st.ListSets(ctx)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, 2, sets[0].CardCount)
	assert.Equal(t, 1, sets[0].LearnedCount)
}

func TestReorderSetsStrict(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	a, err := st.ImportSet(ctx, "a", "", sampleRows("1"))
	require.NoError(t, err)
	b, err := st.ImportSet(ctx, "b", "", sampleRows("1"))
	require.NoError(t, err)
	require.NoError(t, st.ReorderSets(ctx, []int64{a.SetID, b.SetID}))

	err = st.ReorderSets(ctx, []int64{b.SetID, 999, a.SetID})
	assert.ErrorIs(t, err, model.ErrNotFound)

	sets, err := st.ListSets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, setNames(sets), "failed reorder must not apply")

	err = st.ReorderSets(ctx, []int64{a.SetID, a.SetID})
	assert.ErrorIs(t, err, model.ErrValidation)

	assert.NoError(t, st.ReorderSets(ctx, nil))
}

func TestDeleteSetCascades(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	res, err := st.ImportSet(ctx, "set", "", sampleRows("a", "b"))
	require.NoError(t, err)

	require.NoError(t, st.DeleteSet(ctx, res.SetID))

	var remaining int
	require.NoError(t, st.db.QueryRow(`SELECT COUNT(*) FROM flashcards`).Scan(&remaining))
	assert.Equal(t, 0, remaining)

	err = st.DeleteSet(ctx, res.SetID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpdateSet(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	res, err := st.ImportSet(ctx, "old", "desc", sampleRows("a"))
	require.NoError(t, err)

	name := "new"
	face := model.FaceMeaning
	updated, err := st.UpdateSet(ctx, res.SetID, model.SetPatch{Name: &name, DefaultFace: &face})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Name)
	assert.Equal(t, "desc", updated.Description, "nil fields stay unchanged")
	assert.Equal(t, model.FaceMeaning, updated.DefaultFace)

	bad := model.Face(5)
	_, err = st.UpdateSet(ctx, res.SetID, model.SetPatch{DefaultFace: &bad})
	assert.ErrorIs(t, err, model.ErrValidation)

	blank := "  "
	_, err = st.UpdateSet(ctx, res.SetID, model.SetPatch{Name: &blank})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = st.UpdateSet(ctx, 999, model.SetPatch{Name: &name})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSetCardLearnedMissing(t *testing.T) {
	st := openTestStore(t)
	err := st.SetCardLearned(context.Background(), 12345, true)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestResetSet(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	res, err := st.ImportSet(ctx, "set", "", sampleRows("a", "b", "c"))
	require.NoError(t, err)
	all, err := st.GetSet(ctx, res.SetID, true)
	require.NoError(t, err)
	for _, card := range all.Cards {
		require.NoError(t, st.SetCardLearned(ctx, card.ID, true))
	}

	exhausted, err := st.GetSet(ctx, res.SetID, false)
	require.NoError(t, err)
	assert.Empty(t, exhausted.Cards)
	assert.Equal(t, 3, exhausted.LearnedCount)

	count, err := st.ResetSet(ctx, res.SetID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	restored, err := st.GetSet(ctx, res.SetID, false)
	require.NoError(t, err)
	assert.Len(t, restored.Cards, 3)
	assert.Equal(t, 0, restored.LearnedCount)

	_, err = st.ResetSet(ctx, 999)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func setNames(sets []model.SetSummary) []string {
	names := make([]string, len(sets))
	for i, s := range sets {
		names[i] = s.Name
	}
	return names
}
