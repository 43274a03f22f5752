// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package book

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/taibuivan/textbook/internal/platform/apperr"
	"github.com/taibuivan/textbook/internal/platform/validate"
)

// # Content Kinds

// Kind discriminates the [Payload] of a [Content] block.
type Kind string

const (
	KindText     Kind = "TEXT"
	KindImage    Kind = "IMAGE"
	KindVideo    Kind = "VIDEO"
	KindObject3D Kind = "OBJECT3D"
)

// Kinds lists the closed set of content kinds.
var Kinds = []Kind{KindText, KindImage, KindVideo, KindObject3D}

// ParseKind resolves a client-supplied kind, ignoring blanks and letter case.
func ParseKind(raw string) (Kind, error) {
	candidate := Kind(strings.ToUpper(strings.TrimSpace(raw)))
	for _, kind := range Kinds {
		if candidate == kind {
			return kind, nil
		}
	}
	return "", apperr.InvalidKind(fmt.Sprintf("Invalid content kind %q (allowed: TEXT, IMAGE, VIDEO, OBJECT3D)", raw))
}

// IsMedia reports whether blocks of this kind point at an uploaded file.
func (kind Kind) IsMedia() bool {
	return kind == KindImage || kind == KindVideo || kind == KindObject3D
}

// # Payload Union

// Payload is the kind-specific part of a [Content] block.
// The set of implementations is closed: [Text], [Image], [Video], [Object3D].
type Payload interface {
	Kind() Kind
	fields() ContentFields
}

// Text is a block of prose.
type Text struct {
	Body string
}

// Image is a picture hosted in object storage.
type Image struct {
	FileURL string
	Format  string
}

// Video is a clip hosted in object storage.
type Video struct {
	FileURL         string
	Format          *string
	DurationSeconds *float64
}

// Object3D is a 3D model hosted in object storage.
type Object3D struct {
	FileURL string
	Format  string
}

func (Text) Kind() Kind     { return KindText }
func (Image) Kind() Kind    { return KindImage }
func (Video) Kind() Kind    { return KindVideo }
func (Object3D) Kind() Kind { return KindObject3D }

func (p Text) fields() ContentFields { return ContentFields{Body: &p.Body} }
func (p Image) fields() ContentFields {
	return ContentFields{FileURL: &p.FileURL, Format: &p.Format}
}
func (p Video) fields() ContentFields {
	return ContentFields{FileURL: &p.FileURL, Format: p.Format, DurationSeconds: p.DurationSeconds}
}
func (p Object3D) fields() ContentFields {
	return ContentFields{FileURL: &p.FileURL, Format: &p.Format}
}

// # Flat Projection

// ContentFields is the flat, nullable view of every variant column.
// It is what transports and row-oriented stores exchange.
type ContentFields struct {
	Body            *string
	FileURL         *string
	Format          *string
	DurationSeconds *float64
}

// Payload builds the variant for kind, enforcing its required-field set.
// Fields the kind does not use are dropped.
//
// Errors:
//   - MissingField naming the first absent required field.
//   - VALIDATION_ERROR for length or range violations.
func (f ContentFields) Payload(kind Kind) (Payload, error) {
	var payload Payload

	switch kind {
	case KindText:
		if blank(f.Body) {
			return nil, apperr.MissingField("body", string(kind))
		}
		payload = Text{Body: *f.Body}

	case KindImage:
		if blank(f.FileURL) {
			return nil, apperr.MissingField("file_url", string(kind))
		}
		if blank(f.Format) {
			return nil, apperr.MissingField("format", string(kind))
		}
		payload = Image{FileURL: strings.TrimSpace(*f.FileURL), Format: strings.TrimSpace(*f.Format)}

	case KindVideo:
		if blank(f.FileURL) {
			return nil, apperr.MissingField("file_url", string(kind))
		}
		video := Video{FileURL: strings.TrimSpace(*f.FileURL), DurationSeconds: f.DurationSeconds}
		if !blank(f.Format) {
			format := strings.TrimSpace(*f.Format)
			video.Format = &format
		}
		payload = video

	case KindObject3D:
		if blank(f.FileURL) {
			return nil, apperr.MissingField("file_url", string(kind))
		}
		if blank(f.Format) {
			return nil, apperr.MissingField("format", string(kind))
		}
		payload = Object3D{FileURL: strings.TrimSpace(*f.FileURL), Format: strings.TrimSpace(*f.Format)}

	default:
		return nil, apperr.InvalidKind(fmt.Sprintf("Invalid content kind %q (allowed: TEXT, IMAGE, VIDEO, OBJECT3D)", kind))
	}

	if err := validatePayload(payload.fields()); err != nil {
		return nil, err
	}
	return payload, nil
}

func validatePayload(f ContentFields) error {
	validator := &validate.Validator{}
	if f.FileURL != nil {
		validator.MaxLen("file_url", *f.FileURL, MaxFileURLLen)
	}
	if f.Format != nil {
		validator.MaxLen("format", *f.Format, MaxFormatLen)
	}
	if f.DurationSeconds != nil {
		validator.Custom("duration_seconds", *f.DurationSeconds < 0, "Cannot be negative")
	}
	return validator.Err()
}

func blank(value *string) bool {
	return value == nil || strings.TrimSpace(*value) == ""
}

// # Content Aggregate

// Content is a block of learning material. Its kind is fixed by its payload.
type Content struct {
	ID         string
	Topic      string
	Payload    Payload
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// Kind returns the discriminator of the block.
func (content *Content) Kind() Kind {
	return content.Payload.Kind()
}

// Fields returns the flat projection of the payload.
func (content *Content) Fields() ContentFields {
	return content.Payload.fields()
}

// ValidateTopic checks the shape of a content topic.
func ValidateTopic(topic string) error {
	validator := &validate.Validator{}
	validator.Required("topic", topic).MaxLen("topic", topic, MaxTopicLen)
	return validator.Err()
}

type contentJSON struct {
	ID              string    `json:"id"`
	Kind            Kind      `json:"kind"`
	Topic           string    `json:"topic"`
	Body            *string   `json:"body,omitempty"`
	FileURL         *string   `json:"file_url,omitempty"`
	Format          *string   `json:"format,omitempty"`
	DurationSeconds *float64  `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	ModifiedAt      time.Time `json:"modified_at"`
}

// MarshalJSON flattens the payload next to the common fields.
func (content *Content) MarshalJSON() ([]byte, error) {
	fields := content.Fields()
	return json.Marshal(contentJSON{
		ID:              content.ID,
		Kind:            content.Kind(),
		Topic:           content.Topic,
		Body:            fields.Body,
		FileURL:         fields.FileURL,
		Format:          fields.Format,
		DurationSeconds: fields.DurationSeconds,
		CreatedAt:       content.CreatedAt,
		ModifiedAt:      content.ModifiedAt,
	})
}

// # Filter Criteria

// ContentFilter narrows content listings. Zero values mean "no constraint".
type ContentFilter struct {
	Kind  *Kind
	Topic string // Case-insensitive substring
}
