package session

import (
	"math/rand"

	"github.com/verte-zerg/flashvocab/internal/model"
)

// State tags the two steady states of a session.
type State int

const (
	// Exhausted means there is no card left to study.
	Exhausted State = iota
	// Active means at least one card is in the sequence.
	Active
)

func (s State) String() string {
	switch s {
	case Active:
		return "Active"
	case Exhausted:
		return "Exhausted"
	default:
		return "State(?)"
	}
}

// deck is the value-typed study state. Transitions return a new deck and
// never modify the slices of the receiver.
type deck struct {
	set      model.VocabularySet
	cards    []model.Flashcard
	original []model.Flashcard
	position int
	face     model.Face
	shuffled bool
	total    int
	learned  int
}

func newDeck(detail model.SetDetail) deck {
	cards := append([]model.Flashcard(nil), detail.Cards...)
	face := detail.DefaultFace
	if !face.Valid() {
		face = model.FaceHeadword
	}
	return deck{
		set:      detail.VocabularySet,
		cards:    cards,
		original: cards,
		face:     face,
		total:    detail.TotalCount,
		learned:  detail.LearnedCount,
	}
}

func (d deck) state() State {
	if len(d.cards) == 0 {
		return Exhausted
	}
	return Active
}

func (d deck) current() (model.Flashcard, bool) {
	if len(d.cards) == 0 {
		return model.Flashcard{}, false
	}
	return d.cards[d.position], true
}

func (d deck) advanceFace() deck {
	d.face = d.face.Next()
	return d
}

func (d deck) withFace(f model.Face) (deck, bool) {
	if !f.Valid() {
		return d, false
	}
	d.face = f
	return d, true
}

func (d deck) skip() deck {
	if len(d.cards) == 0 {
		return d
	}
	d.position = (d.position + 1) % len(d.cards)
	d.face = model.FaceHeadword
	return d
}

func (d deck) start() deck {
	d.position = 0
	d.face = model.FaceHeadword
	return d
}

// markLearned drops the card from both sequences and keeps the position on
// the card that followed it.
func (d deck) markLearned(cardID int64) deck {
	idx := indexOf(d.cards, cardID)
	if idx < 0 {
		return d
	}
	d.cards = without(d.cards, idx)
	if origIdx := indexOf(d.original, cardID); origIdx >= 0 {
		d.original = without(d.original, origIdx)
	}
	if idx < d.position {
		d.position--
	}
	if d.position >= len(d.cards) {
		d.position = len(d.cards) - 1
	}
	if d.position < 0 {
		d.position = 0
	}
	d.learned++
	d.face = model.FaceHeadword
	return d
}

// shuffle applies a Fisher-Yates permutation.
func (d deck) shuffle(rnd *rand.Rand) deck {
	cards := append([]model.Flashcard(nil), d.cards...)
	for i := len(cards) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
	d.cards = cards
	d.position = 0
	d.face = model.FaceHeadword
	d.shuffled = true
	return d
}

func (d deck) unshuffle() deck {
	d.cards = d.original
	d.position = 0
	d.face = model.FaceHeadword
	d.shuffled = false
	return d
}

func indexOf(cards []model.Flashcard, id int64) int {
	for i, c := range cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func without(cards []model.Flashcard, idx int) []model.Flashcard {
	out := make([]model.Flashcard, 0, len(cards)-1)
	out = append(out, cards[:idx]...)
	return append(out, cards[idx+1:]...)
}
