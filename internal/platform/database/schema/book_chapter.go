// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// BookChapterTable represents the 'chapters' table
type BookChapterTable struct {
	Table        string
	ID           string
	Number       string
	Title        string
	Topic        string
	Introduction string
	State        string
	CreatedAt    string
	ModifiedAt   string
}

// BookChapter is the schema definition for chapters
var BookChapter = BookChapterTable{
	Table:        "chapters",
	ID:           "id",
	Number:       "number",
	Title:        "title",
	Topic:        "topic",
	Introduction: "introduction",
	State:        "state",
	CreatedAt:    "created_at",
	ModifiedAt:   "modified_at",
}

func (t BookChapterTable) Columns() []string {
	return []string{
		t.ID, t.Number, t.Title, t.Topic, t.Introduction, t.State, t.CreatedAt, t.ModifiedAt,
	}
}
