// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package book provides the domain models of the interactive textbook.

It defines the three entities the rest of the system is built around and the
persistence port the business layer consumes.

# Core Responsibility

  - Chapters: numbered, titled units with a publication lifecycle ([State]).
  - Content blocks: a closed union over four kinds ([Text], [Image], [Video], [Object3D]).
  - Assignments: the ordered link placing one content block inside one chapter.

Chapter and Content are independent roots. An [Assignment] only exists for a
(chapter, content) pair and never outlives its chapter.
*/
package book

import (
	"math"
	"strings"
	"time"

	"github.com/taibuivan/textbook/internal/platform/apperr"
	"github.com/taibuivan/textbook/internal/platform/validate"
)

// # Field Bounds

const (
	MaxTitleLen   = 255
	MaxTopicLen   = 100
	MaxFileURLLen = 500
	MaxFormatLen  = 20

	// MaxPosition bounds chapter numbers and display orders (INTEGER columns).
	MaxPosition = math.MaxInt32
)

// # Chapter Lifecycle

// State is the publication state of a [Chapter].
type State string

const (
	StateDraft     State = "DRAFT"
	StatePublished State = "PUBLISHED"
	StateArchived  State = "ARCHIVED"
)

// States lists every recognised state in lifecycle order.
var States = []State{StateDraft, StatePublished, StateArchived}

// ParseState resolves a client-supplied state. Surrounding blanks and letter
// case are ignored; anything outside [States] is an InvalidState error.
func ParseState(raw string) (State, error) {
	candidate := State(strings.ToUpper(strings.TrimSpace(raw)))
	for _, state := range States {
		if candidate == state {
			return state, nil
		}
	}
	return "", apperr.InvalidState(raw)
}

// # Chapter Aggregate

// Chapter is a numbered unit of the book.
type Chapter struct {
	ID           string    `json:"id"`
	Number       int       `json:"number"`
	Title        string    `json:"title"`
	Topic        string    `json:"topic"`
	Introduction string    `json:"introduction"`
	State        State     `json:"state"`
	CreatedAt    time.Time `json:"created_at"`
	ModifiedAt   time.Time `json:"modified_at"`
}

// IsPublished reports whether readers may see the chapter.
func (chapter *Chapter) IsPublished() bool {
	return chapter.State == StatePublished
}

// ValidateChapterFields checks the shape of the user-editable chapter fields.
func ValidateChapterFields(number int, title, topic string) error {
	validator := &validate.Validator{}
	validator.
		Range("number", number, 1, MaxPosition).
		Required("title", title).
		MaxLen("title", title, MaxTitleLen).
		Required("topic", topic).
		MaxLen("topic", topic, MaxTopicLen)
	return validator.Err()
}

// ChapterWithContents is a chapter followed by its blocks in display order.
type ChapterWithContents struct {
	*Chapter
	Contents []*Content `json:"contents"`
}

// # Filter Criteria

// ChapterFilter narrows chapter listings. Zero values mean "no constraint".
type ChapterFilter struct {
	Topic string // Case-insensitive substring
	State *State
}
