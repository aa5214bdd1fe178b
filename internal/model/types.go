// Package model defines shared data structures.
package model

import "time"

// VocabularySet is a named, ordered collection of flashcards.
type VocabularySet struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	SortOrder   int       `json:"sort_order"`
	DefaultFace Face      `json:"default_face"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SetSummary is a set as shown in the set list.
type SetSummary struct {
	VocabularySet
	CardCount    int `json:"card_count"`
	LearnedCount int `json:"learned_count"`
}

// SetDetail is a set together with the cards selected for study.
type SetDetail struct {
	VocabularySet
	Cards        []Flashcard `json:"flashcards"`
	TotalCount   int         `json:"totalCount"`
	LearnedCount int         `json:"learnedCount"`
}

// Flashcard is a single vocabulary entry with five faces.
type Flashcard struct {
	ID            int64     `json:"id"`
	SetID         int64     `json:"set_id"`
	Headword      string    `json:"kanji"`
	Meaning       string    `json:"meaning"`
	Pronunciation string    `json:"pronunciation"`
	Reading       string    `json:"sino_vietnamese"`
	Example       string    `json:"example"`
	Learned       bool      `json:"learned"`
	CreatedAt     time.Time `json:"created_at"`
}

// SetPatch holds optional set fields. Nil means unchanged.
type SetPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	DefaultFace *Face   `json:"default_face,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p SetPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.DefaultFace == nil
}

// Row is one parsed spreadsheet entry.
type Row struct {
	Headword      string
	Meaning       string
	Pronunciation string
	Reading       string
	Example       string
}

// Blank reports whether every face of the row is empty.
func (r Row) Blank() bool {
	return r.Headword == "" && r.Meaning == "" && r.Pronunciation == "" && r.Reading == "" && r.Example == ""
}

// ImportResult describes a freshly imported set.
type ImportResult struct {
	SetID     int64 `json:"setId"`
	CardCount int   `json:"cardCount"`
}
