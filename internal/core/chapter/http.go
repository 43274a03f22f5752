// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/textbook/internal/core/book"
	"github.com/taibuivan/textbook/internal/platform/constants"
	requestutil "github.com/taibuivan/textbook/internal/platform/request"
	"github.com/taibuivan/textbook/internal/platform/respond"
	"github.com/taibuivan/textbook/pkg/pagination"
)

// # Handler Implementation

// Handler implements the HTTP layer for chapter management and the
// reader-facing published views.
type Handler struct {
	service *Service
	cache   *ReaderCache
}

// NewHandler constructs a new chapter [Handler].
func NewHandler(service *Service, cache *ReaderCache) *Handler {
	if cache == nil {
		cache = NewReaderCache(nil, 0)
	}
	return &Handler{service: service, cache: cache}
}

// RegisterRoutes attaches chapter endpoints to the versioned API router.
func (handler *Handler) RegisterRoutes(api chi.Router) {
	api.Post("/chapters", handler.CreateChapter)
	api.Get("/chapters", handler.ListChapters)
	api.Get("/chapters/count", handler.CountChapters)
	api.Get("/chapters/{id}", handler.GetChapter)
	api.Get("/chapters/{id}/full", handler.GetChapterFull)
	api.Patch("/chapters/{id}", handler.UpdateChapter)
	api.Put("/chapters/{id}/state", handler.ChangeState)
	api.Delete("/chapters/{id}", handler.DeleteChapter)

	// Reader endpoints
	api.Get("/published/chapters", handler.ListPublished)
	api.Get("/published/chapters/{id}", handler.GetPublished)
}

// # Chapter Management

type createChapterRequest struct {
	Number       int    `json:"number"`
	Title        string `json:"title"`
	Topic        string `json:"topic"`
	Introduction string `json:"introduction"`
	State        string `json:"state"`
}

/*
POST /api/v1/chapters.

Response:
  - 201: Chapter
  - 400: DUPLICATE_NUMBER / INVALID_STATE
  - 422: VALIDATION_ERROR
*/
func (handler *Handler) CreateChapter(writer http.ResponseWriter, request *http.Request) {
	var input createChapterRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	chapter, err := handler.service.Create(request.Context(), CreateChapterInput(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, chapter)
}

/*
GET /api/v1/chapters.

Request:
  - skip, limit: int
  - topic: string (case-insensitive substring)
  - state: DRAFT | PUBLISHED | ARCHIVED
  - published_only: bool (overrides state)

Response:
  - 200: []Chapter with pagination meta
*/
func (handler *Handler) ListChapters(writer http.ResponseWriter, request *http.Request) {
	publishedOnly, err := requestutil.QueryBool(request, "published_only")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.list(writer, request, publishedOnly)
}

/*
GET /api/v1/published/chapters.

Response:
  - 200: []Chapter (PUBLISHED only) with pagination meta
*/
func (handler *Handler) ListPublished(writer http.ResponseWriter, request *http.Request) {
	handler.list(writer, request, true)
}

func (handler *Handler) list(writer http.ResponseWriter, request *http.Request, publishedOnly bool) {
	page, err := pagination.FromRequest(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	params := ChapterListParams{
		Skip:          page.Skip,
		Limit:         page.Limit,
		State:         requestutil.QueryString(request, "state"),
		PublishedOnly: publishedOnly,
	}
	if topic := requestutil.QueryString(request, "topic"); topic != nil {
		params.Topic = *topic
	}

	chapters, total, err := handler.service.ListWithTotal(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, chapters, pagination.NewMeta(page, len(chapters), total))
}

/*
GET /api/v1/chapters/count.

Request:
  - state: optional lifecycle filter

Response:
  - 200: {"total": n}
*/
func (handler *Handler) CountChapters(writer http.ResponseWriter, request *http.Request) {
	var state *book.State
	if raw := requestutil.QueryString(request, "state"); raw != nil {
		parsed, err := book.ParseState(*raw)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}
		state = &parsed
	}

	total, err := handler.service.Count(request.Context(), state)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]int{constants.FieldTotal: total})
}

// GetChapter handles GET /api/v1/chapters/{id}.
func (handler *Handler) GetChapter(writer http.ResponseWriter, request *http.Request) {
	chapter, err := handler.service.GetByID(request.Context(), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, chapter)
}

// GetChapterFull handles GET /api/v1/chapters/{id}/full: the chapter with its
// ordered content blocks, in any state.
func (handler *Handler) GetChapterFull(writer http.ResponseWriter, request *http.Request) {
	full, err := handler.service.GetWithContents(request.Context(), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, full)
}

type patchChapterRequest struct {
	Number       *int    `json:"number"`
	Title        *string `json:"title"`
	Topic        *string `json:"topic"`
	Introduction *string `json:"introduction"`
	State        *string `json:"state"`
}

/*
PATCH /api/v1/chapters/{id}.

Description: Partial update; omitted fields keep their value.

Response:
  - 200: Chapter
  - 400: DUPLICATE_NUMBER / INVALID_STATE
  - 404: NOT_FOUND
*/
func (handler *Handler) UpdateChapter(writer http.ResponseWriter, request *http.Request) {
	var input patchChapterRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	id := requestutil.ID(request, "id")
	chapter, err := handler.service.Update(request.Context(), id, ChapterPatch(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.cache.InvalidateChapter(request.Context(), id)
	respond.OK(writer, chapter)
}

type changeStateRequest struct {
	State string `json:"state"`
}

// ChangeState handles PUT /api/v1/chapters/{id}/state.
func (handler *Handler) ChangeState(writer http.ResponseWriter, request *http.Request) {
	var input changeStateRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	id := requestutil.ID(request, "id")
	chapter, err := handler.service.ChangeState(request.Context(), id, input.State)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.cache.InvalidateChapter(request.Context(), id)
	respond.OK(writer, chapter)
}

/*
DELETE /api/v1/chapters/{id}.

Response:
  - 204: Chapter and its assignments removed
  - 404: NOT_FOUND
*/
func (handler *Handler) DeleteChapter(writer http.ResponseWriter, request *http.Request) {
	id := requestutil.ID(request, "id")
	if err := handler.service.Delete(request.Context(), id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.cache.InvalidateChapter(request.Context(), id)
	respond.NoContent(writer)
}

// # Reader Views

/*
GET /api/v1/published/chapters/{id}.

Description: The published chapter with its ordered blocks. Responses are
cached; the X-Cache header reports HIT or MISS.

Response:
  - 200: ChapterWithContents
  - 404: NOT_FOUND (also for drafts and archived chapters)
*/
func (handler *Handler) GetPublished(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	id := requestutil.ID(request, "id")

	if body, ok := handler.cache.get(ctx, id); ok {
		writer.Header().Set(constants.HeaderXCache, "HIT")
		respond.Raw(writer, http.StatusOK, body)
		return
	}

	seen := handler.cache.snapshot()
	full, err := handler.service.GetPublishedWithContents(ctx, id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	body, err := json.Marshal(respond.SuccessEnvelope{Data: full})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.cache.set(ctx, id, body, seen)
	writer.Header().Set(constants.HeaderXCache, "MISS")
	respond.Raw(writer, http.StatusOK, body)
}
