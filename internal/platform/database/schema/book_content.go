// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// BookContentTable represents the 'contents' table.
// One row per block; variant columns are NULL when the kind does not use them.
type BookContentTable struct {
	Table           string
	ID              string
	Kind            string
	Topic           string
	Body            string
	FileURL         string
	Format          string
	DurationSeconds string
	CreatedAt       string
	ModifiedAt      string
}

// BookContent is the schema definition for contents
var BookContent = BookContentTable{
	Table:           "contents",
	ID:              "id",
	Kind:            "kind",
	Topic:           "topic",
	Body:            "body",
	FileURL:         "file_url",
	Format:          "format",
	DurationSeconds: "duration_seconds",
	CreatedAt:       "created_at",
	ModifiedAt:      "modified_at",
}

func (t BookContentTable) Columns() []string {
	return []string{
		t.ID, t.Kind, t.Topic, t.Body, t.FileURL, t.Format, t.DurationSeconds, t.CreatedAt, t.ModifiedAt,
	}
}
