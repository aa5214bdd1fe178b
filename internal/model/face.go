package model

import "fmt"

// Face selects one of the five textual attributes of a flashcard.
type Face int

// Faces in display order.
const (
	FaceHeadword Face = iota
	FaceMeaning
	FacePronunciation
	FaceReading
	FaceExample
)

// FaceCount is the number of faces on every card.
const FaceCount = 5

var faceLabels = [FaceCount]string{
	FaceHeadword:      "Headword",
	FaceMeaning:       "Meaning",
	FacePronunciation: "Pronunciation",
	FaceReading:       "Reading",
	FaceExample:       "Example",
}

// Valid reports whether f is within [0, FaceCount).
func (f Face) Valid() bool {
	return f >= 0 && f < FaceCount
}

// Next returns the following face, wrapping after the last one.
func (f Face) Next() Face {
	return (f + 1) % FaceCount
}

// String returns the display label of the face.
func (f Face) String() string {
	if f.Valid() {
		return faceLabels[f]
	}
	return fmt.Sprintf("Face(%d)", int(f))
}

// Of returns the card text shown on face f.
func (f Face) Of(card Flashcard) string {
	switch f {
	case FaceHeadword:
		return card.Headword
	case FaceMeaning:
		return card.Meaning
	case FacePronunciation:
		return card.Pronunciation
	case FaceReading:
		return card.Reading
	case FaceExample:
		return card.Example
	default:
		return ""
	}
}
