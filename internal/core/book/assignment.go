// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package book

// Assignment places a content block at a position inside a chapter.
// Order is only meaningful among assignments of the same chapter; equal
// orders are displayed by ascending ID.
type Assignment struct {
	ID        int64  `json:"id"`
	ChapterID string `json:"chapter_id"`
	ContentID string `json:"content_id"`
	Order     int    `json:"order"`
}
