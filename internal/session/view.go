package session

import "github.com/verte-zerg/flashvocab/internal/model"

// View is an immutable snapshot of a session.
type View struct {
	Loaded       bool
	Busy         bool
	State        State
	Set          model.VocabularySet
	Card         model.Flashcard
	Cards        []model.Flashcard
	Position     int
	Face         model.Face
	Shuffled     bool
	TotalCount   int
	LearnedCount int
}

// Len returns the number of cards left in the session.
func (v View) Len() int {
	return len(v.Cards)
}

// FaceText returns the text of the current card on the current face.
func (v View) FaceText() string {
	return v.Face.Of(v.Card)
}

// Finished reports that every card of a non-empty set has been learned.
func (v View) Finished() bool {
	return v.State == Exhausted && v.TotalCount > 0
}

// Empty reports that the set has no cards at all.
func (v View) Empty() bool {
	return v.State == Exhausted && v.TotalCount == 0
}
