// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pagination provides shared types and helpers for API list endpoints.
//
// # Overview
//
// It standardizes how offset-based navigation is requested via query parameters
// ("skip" and "limit") and how the resulting metadata is delivered in the API
// response envelope.
package pagination

import (
	"net/http"
	"strconv"

	"github.com/taibuivan/textbook/internal/platform/apperr"
)

const (
	// DefaultLimit is the number of items returned if not specified.
	DefaultLimit = 100
	// MaxLimit is the upper bound for items per request.
	MaxLimit = 500
)

// Params holds the parsed skip and limit from a request's query string.
type Params struct {
	Skip  int
	Limit int
}

// Meta is the pagination metadata included in API list responses.
type Meta struct {
	Skip     int  `json:"skip"`
	Limit    int  `json:"limit"`
	Total    int  `json:"total"`
	Returned int  `json:"returned"`
	HasMore  bool `json:"has_more"`
}

// NewMeta constructs pagination metadata for a response.
func NewMeta(params Params, returned, total int) Meta {
	return Meta{
		Skip:     params.Skip,
		Limit:    params.Limit,
		Total:    total,
		Returned: returned,
		HasMore:  params.Skip+returned < total,
	}
}

// FromRequest parses "skip" and "limit" query parameters from an HTTP request.
//
// # Rules
//
// Missing values fall back to 0 and [DefaultLimit]. A present value must be a
// non-negative integer and limit may not exceed [MaxLimit]; otherwise a 422
// validation error is returned. "limit=0" is honoured and yields an empty page.
func FromRequest(r *http.Request) (Params, error) {
	skip, err := parseIntParam(r, "skip", 0)
	if err != nil {
		return Params{}, err
	}

	limit, err := parseIntParam(r, "limit", DefaultLimit)
	if err != nil {
		return Params{}, err
	}

	if limit > MaxLimit {
		return Params{}, apperr.ValidationError("Invalid pagination",
			apperr.FieldError{Field: "limit", Message: "Must be at most " + strconv.Itoa(MaxLimit)})
	}

	return Params{Skip: skip, Limit: limit}, nil
}

// parseIntParam parses a single non-negative integer query parameter with a fallback default.
func parseIntParam(r *http.Request, key string, defaultVal int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultVal, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.ValidationError("Invalid pagination",
			apperr.FieldError{Field: key, Message: "Must be a non-negative integer"})
	}

	return n, nil
}
