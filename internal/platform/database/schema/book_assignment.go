// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// BookAssignmentTable represents the 'chapter_content_assignments' junction table
type BookAssignmentTable struct {
	Table     string
	ID        string
	ChapterID string
	ContentID string
	Order     string
}

// BookAssignment is the schema definition for chapter_content_assignments
var BookAssignment = BookAssignmentTable{
	Table:     "chapter_content_assignments",
	ID:        "id",
	ChapterID: "chapter_id",
	ContentID: "content_id",
	Order:     `"order"`,
}

func (t BookAssignmentTable) Columns() []string {
	return []string{t.ID, t.ChapterID, t.ContentID, t.Order}
}
