package testutil

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/flashvocab/internal/model"
)

// NewTestLogger creates a no-op logger for tests
func NewTestLogger() *zap.Logger {
	return zap.NewNop()
}

// NewTestCard creates a flashcard whose faces are derived from headword.
func NewTestCard(id, setID int64, headword string) model.Flashcard {
	return model.Flashcard{
		ID:            id,
		SetID:         setID,
		Headword:      headword,
		Meaning:       headword + " meaning",
		Pronunciation: headword + " pronunciation",
		Reading:       headword + " reading",
		Example:       headword + " example",
		CreatedAt:     time.Now(),
	}
}

// NewTestDetail creates a set with one unlearned card per headword. Card ids
// start at 1.
func NewTestDetail(setID int64, headwords ...string) model.SetDetail {
	cards := make([]model.Flashcard, 0, len(headwords))
	for i, h := range headwords {
		cards = append(cards, NewTestCard(int64(i+1), setID, h))
	}
	return model.SetDetail{
		VocabularySet: model.VocabularySet{
			ID:        setID,
			Name:      fmt.Sprintf("set %d", setID),
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
		Cards:      cards,
		TotalCount: len(cards),
	}
}
