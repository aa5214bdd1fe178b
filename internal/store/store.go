// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/verte-zerg/flashvocab/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Fixed-width so that timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const dsnPragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// Store wraps SQLite access for vocabulary sets and flashcards.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path+dsnPragmas)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	store := New(db)
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// New wraps an already opened database without running migrations.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := sqlitemigrate.WithInstance(s.db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			// Best-effort rollback.
			_ = rerr
		}
		return err
	}
	return tx.Commit()
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

const setColumns = `vs.id, vs.name, vs.description, vs.sort_order, vs.default_face, vs.created_at, vs.updated_at`

// ListSets returns every set with card counts, ordered by sort order then newest first.
func (s *Store) ListSets(ctx context.Context) ([]model.SetSummary, error) {
	query := `SELECT ` + setColumns + `, COUNT(f.id), COALESCE(SUM(f.learned), 0)
		FROM vocabulary_sets vs
		LEFT JOIN flashcards f ON f.set_id = vs.id
		GROUP BY vs.id
		ORDER BY vs.sort_order ASC, vs.created_at DESC, vs.id DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	sets := []model.SetSummary{}
	for rows.Next() {
		var sum model.SetSummary
		var createdAt, updatedAt string
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Description, &sum.SortOrder, &sum.DefaultFace,
			&createdAt, &updatedAt, &sum.CardCount, &sum.LearnedCount); err != nil {
			return nil, err
		}
		if err := parseTimes(&sum.VocabularySet, createdAt, updatedAt); err != nil {
			return nil, err
		}
		sets = append(sets, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sets, nil
}

// GetSet returns a set with its cards. Learned cards are skipped unless includeAll is set.
func (s *Store) GetSet(ctx context.Context, id int64, includeAll bool) (model.SetDetail, error) {
	set, err := s.getSet(ctx, s.db, id)
	if err != nil {
		return model.SetDetail{}, err
	}

	clauses := []string{"set_id = ?"}
	if !includeAll {
		clauses = append(clauses, "learned = 0")
	}
	query := fmt.Sprintf(`SELECT id, set_id, kanji, meaning, pronunciation, sino_vietnamese, example, learned, created_at
		FROM flashcards
		WHERE %s
		ORDER BY id ASC`, strings.Join(clauses, " AND "))
	cards, err := s.queryCards(ctx, query, id)
	if err != nil {
		return model.SetDetail{}, err
	}

	detail := model.SetDetail{VocabularySet: set, Cards: cards}
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(learned), 0) FROM flashcards WHERE set_id = ?`, id,
	).Scan(&detail.TotalCount, &detail.LearnedCount)
	if err != nil {
		return model.SetDetail{}, err
	}
	return detail, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) getSet(ctx context.Context, q queryer, id int64) (model.VocabularySet, error) {
	var set model.VocabularySet
	var createdAt, updatedAt string
	err := q.QueryRowContext(ctx,
		`SELECT `+setColumns+` FROM vocabulary_sets vs WHERE vs.id = ?`, id,
	).Scan(&set.ID, &set.Name, &set.Description, &set.SortOrder, &set.DefaultFace, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.VocabularySet{}, model.NotFoundf("vocabulary set %d", id)
	}
	if err != nil {
		return model.VocabularySet{}, err
	}
	if err := parseTimes(&set, createdAt, updatedAt); err != nil {
		return model.VocabularySet{}, err
	}
	return set, nil
}

func (s *Store) queryCards(ctx context.Context, query string, args ...any) ([]model.Flashcard, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	cards := []model.Flashcard{}
	for rows.Next() {
		var card model.Flashcard
		var createdAt string
		if err := rows.Scan(&card.ID, &card.SetID, &card.Headword, &card.Meaning, &card.Pronunciation,
			&card.Reading, &card.Example, &card.Learned, &createdAt); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, err
		}
		card.CreatedAt = parsed
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cards, nil
}

// ImportSet creates a set from parsed rows in a single transaction.
func (s *Store) ImportSet(ctx context.Context, name, description string, rows []model.Row) (model.ImportResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.ImportResult{}, model.Invalidf("set name is required")
	}
	if len(rows) == 0 {
		return model.ImportResult{}, model.Invalidf("spreadsheet is empty")
	}

	var result model.ImportResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := s.timestamp()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO vocabulary_sets (name, description, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			name, description, now, now)
		if err != nil {
			return err
		}
		setID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO flashcards (set_id, kanji, meaning, pronunciation, sino_vietnamese, example, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx, setID, row.Headword, row.Meaning, row.Pronunciation, row.Reading, row.Example, now); err != nil {
				return err
			}
		}
		result = model.ImportResult{SetID: setID, CardCount: len(rows)}
		return nil
	})
	if err != nil {
		return model.ImportResult{}, err
	}
	return result, nil
}

// DeleteSet removes a set and, through the foreign key, all of its cards.
func (s *Store) DeleteSet(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM vocabulary_sets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectAffected(res, model.NotFoundf("vocabulary set %d", id))
}

// UpdateSet applies the non-nil fields of patch and returns the updated set.
func (s *Store) UpdateSet(ctx context.Context, id int64, patch model.SetPatch) (model.VocabularySet, error) {
	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		if trimmed == "" {
			return model.VocabularySet{}, model.Invalidf("set name must not be empty")
		}
		patch.Name = &trimmed
	}
	if patch.DefaultFace != nil && !patch.DefaultFace.Valid() {
		return model.VocabularySet{}, model.Invalidf("default face must be between 0 and %d", model.FaceCount-1)
	}

	var updated model.VocabularySet
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE vocabulary_sets
			 SET name = COALESCE(?, name),
			     description = COALESCE(?, description),
			     default_face = COALESCE(?, default_face),
			     updated_at = ?
			 WHERE id = ?`,
			nullable(patch.Name), nullable(patch.Description), nullableFace(patch.DefaultFace), s.timestamp(), id)
		if err != nil {
			return err
		}
		if err := expectAffected(res, model.NotFoundf("vocabulary set %d", id)); err != nil {
			return err
		}
		updated, err = s.getSet(ctx, tx, id)
		return err
	})
	if err != nil {
		return model.VocabularySet{}, err
	}
	return updated, nil
}

// SetCardLearned sets the learned flag of one card.
func (s *Store) SetCardLearned(ctx context.Context, cardID int64, learned bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE flashcards SET learned = ? WHERE id = ?`, boolInt(learned), cardID)
	if err != nil {
		return err
	}
	return expectAffected(res, model.NotFoundf("flashcard %d", cardID))
}

// ResetSet marks every card of a set as not learned and returns the number of cards touched.
func (s *Store) ResetSet(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.getSet(ctx, tx, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `UPDATE flashcards SET learned = 0 WHERE set_id = ?`, id)
		if err != nil {
			return err
		}
		count, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ReorderSets assigns sort positions following orderedIDs. Unknown ids abort the whole reorder.
func (s *Store) ReorderSets(ctx context.Context, orderedIDs []int64) error {
	if len(orderedIDs) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(orderedIDs))
	for _, id := range orderedIDs {
		if _, ok := seen[id]; ok {
			return model.Invalidf("duplicate set id %d in order", id)
		}
		seen[id] = struct{}{}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `UPDATE vocabulary_sets SET sort_order = ? WHERE id = ?`)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for i, id := range orderedIDs {
			res, err := stmt.ExecContext(ctx, i, id)
			if err != nil {
				return err
			}
			if err := expectAffected(res, model.NotFoundf("vocabulary set %d", id)); err != nil {
				return err
			}
		}
		return nil
	})
}

func expectAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func parseTimes(set *model.VocabularySet, createdAt, updatedAt string) error {
	created, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return err
	}
	updated, err := time.Parse(timeLayout, updatedAt)
	if err != nil {
		return err
	}
	set.CreatedAt = created
	set.UpdatedAt = updated
	return nil
}

func nullable(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFace(f *model.Face) any {
	if f == nil {
		return nil
	}
	return int(*f)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
