// Package session implements the flashcard study session.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/verte-zerg/flashvocab/internal/model"
)

// Session errors. Store failures are reported as model.ErrNotFound,
// model.ErrValidation or *model.TransportError.
var (
	ErrBusy       = errors.New("session: another update is in flight")
	ErrSuperseded = errors.New("session: result discarded by a newer load")
)

// CardStore is the part of the card store a session needs.
type CardStore interface {
	GetSet(ctx context.Context, id int64, includeAll bool) (model.SetDetail, error)
	SetCardLearned(ctx context.Context, cardID int64, learned bool) error
	ResetSet(ctx context.Context, id int64) (int64, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithIncludeAll loads learned cards too.
func WithIncludeAll(includeAll bool) Option {
	return func(e *Engine) {
		e.includeAll = includeAll
	}
}

// WithRand sets the random source used by Shuffle.
func WithRand(rnd *rand.Rand) Option {
	return func(e *Engine) {
		e.rnd = rnd
	}
}

// Engine holds one study session. It is safe for concurrent use; store
// mutations are serialized by an in-flight latch.
type Engine struct {
	store      CardStore
	includeAll bool
	rnd        *rand.Rand

	mu      sync.Mutex
	deck    deck
	loaded  bool
	busy    bool
	loadSeq uint64 // latest Load request
	epoch   uint64 // bumped whenever a Load replaces the deck
}

// New returns an engine reading from and writing to store.
func New(store CardStore, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load fetches the set and starts a fresh session on it. On failure the
// previous session is left untouched.
func (e *Engine) Load(ctx context.Context, setID int64) error {
	e.mu.Lock()
	e.loadSeq++
	seq := e.loadSeq
	e.mu.Unlock()

	detail, err := e.store.GetSet(ctx, setID, e.includeAll)
	if err != nil {
		return classify("load set", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if seq != e.loadSeq {
		return ErrSuperseded
	}
	e.deck = newDeck(detail)
	e.loaded = true
	e.epoch++
	return nil
}

// MarkLearnedAndAdvance persists the current card as learned, then drops it
// from the session. The following card takes its place.
func (e *Engine) MarkLearnedAndAdvance(ctx context.Context) error {
	e.mu.Lock()
	card, ok := e.deck.current()
	if !ok {
		e.mu.Unlock()
		return nil
	}
	if e.busy {
		e.mu.Unlock()
		return ErrBusy
	}
	e.busy = true
	epoch := e.epoch
	e.mu.Unlock()

	err := e.store.SetCardLearned(ctx, card.ID, true)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.busy = false
	if err != nil {
		return classify("mark card learned", err)
	}
	if epoch != e.epoch {
		return ErrSuperseded
	}
	e.deck = e.deck.markLearned(card.ID)
	return nil
}

// ResetAllAndReload marks every card of the set as not learned and loads it again.
func (e *Engine) ResetAllAndReload(ctx context.Context, setID int64) error {
	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		return ErrBusy
	}
	e.busy = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.busy = false
		e.mu.Unlock()
	}()

	if _, err := e.store.ResetSet(ctx, setID); err != nil {
		return classify("reset set", err)
	}
	return e.Load(ctx, setID)
}

// AdvanceFace shows the next face, wrapping after the last.
func (e *Engine) AdvanceFace() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deck = e.deck.advanceFace()
}

// SetFace shows face f. Out-of-range faces are ignored and reported as false.
func (e *Engine) SetFace(f model.Face) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	var ok bool
	e.deck, ok = e.deck.withFace(f)
	return ok
}

// SkipToNext moves to the next card without changing its learned state.
func (e *Engine) SkipToNext() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deck = e.deck.skip()
}

// JumpToStart returns to the first card of the current order.
func (e *Engine) JumpToStart() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deck = e.deck.start()
}

// Shuffle randomizes the remaining cards.
func (e *Engine) Shuffle() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deck = e.deck.shuffle(e.rnd)
}

// Unshuffle restores the order the cards were loaded in.
func (e *Engine) Unshuffle() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deck = e.deck.unshuffle()
}

// ToggleShuffle shuffles an ordered session and restores a shuffled one.
func (e *Engine) ToggleShuffle() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deck.shuffled {
		e.deck = e.deck.unshuffle()
		return
	}
	e.deck = e.deck.shuffle(e.rnd)
}

// Snapshot returns a copy of the session state for rendering.
func (e *Engine) Snapshot() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.deck
	card, _ := d.current()
	return View{
		Loaded:       e.loaded,
		Busy:         e.busy,
		State:        d.state(),
		Set:          d.set,
		Card:         card,
		Cards:        append([]model.Flashcard(nil), d.cards...),
		Position:     d.position,
		Face:         d.face,
		Shuffled:     d.shuffled,
		TotalCount:   d.total,
		LearnedCount: d.learned,
	}
}

func classify(op string, err error) error {
	if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrValidation) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var te *model.TransportError
	if errors.As(err, &te) {
		return err
	}
	return &model.TransportError{Op: op, Err: err}
}
