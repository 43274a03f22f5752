// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package pointer helps with the optional fields of inputs and patches, where
nil means "not provided".
*/
package pointer

// To returns a pointer to a copy of v (e.g. pointer.To("png") for a Format field).
func To[T any](v T) *T {
	return &v
}

// Fallback dereferences p, or returns fallback when p is nil.
// Patches use it to keep the current value of fields the client left out.
func Fallback[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
