// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/textbook/internal/platform/apperr"
	"github.com/taibuivan/textbook/internal/platform/validate"
)

// maxJSONBodyBytes bounds JSON request bodies.
const maxJSONBodyBytes = 1 << 20

/*
DecodeJSON reads the request body and decodes it into the target structure.
Unknown fields are rejected.

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target any) error {
	decoder := json.NewDecoder(io.LimitReader(request.Body, maxJSONBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.BadRequest("Request body is empty")
		}
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
ID retrieves a named URL parameter (UUID) from the request.
*/
func ID(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
QueryString returns a trimmed query parameter, or nil when absent or blank.
*/
func QueryString(request *http.Request, name string) *string {
	raw := strings.TrimSpace(request.URL.Query().Get(name))
	if raw == "" {
		return nil
	}
	return &raw
}

/*
QueryBool parses a boolean query parameter ("true", "1", "false", "0").
Absent means false; anything unparsable is a 422.
*/
func QueryBool(request *http.Request, name string) (bool, error) {
	raw := request.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, validate.RequiredError(name, "Must be a boolean")
	}
	return value, nil
}
