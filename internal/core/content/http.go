// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package content

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/textbook/internal/platform/apperr"
	"github.com/taibuivan/textbook/internal/platform/constants"
	requestutil "github.com/taibuivan/textbook/internal/platform/request"
	"github.com/taibuivan/textbook/internal/platform/respond"
	"github.com/taibuivan/textbook/internal/platform/validate"
	"github.com/taibuivan/textbook/pkg/pagination"
)

// multipartMemory is how much of an upload is buffered before spilling to disk.
const multipartMemory = 32 << 20

// ChapterCache drops cached reader views after content changes.
type ChapterCache interface {
	InvalidateChapter(ctx context.Context, chapterID string)
	InvalidateAll(ctx context.Context)
}

type noopCache struct{}

func (noopCache) InvalidateChapter(context.Context, string) {}
func (noopCache) InvalidateAll(context.Context)             {}

// # Handler Implementation

// Handler implements the HTTP layer for content blocks and chapter placement.
type Handler struct {
	service        *Service
	cache          ChapterCache
	maxUploadBytes int64
}

// NewHandler constructs a new content [Handler].
func NewHandler(service *Service, cache ChapterCache, maxUploadBytes int64) *Handler {
	if cache == nil {
		cache = noopCache{}
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = constants.DefaultMaxUploadBytes
	}
	return &Handler{service: service, cache: cache, maxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches content and placement endpoints to the versioned API router.
func (handler *Handler) RegisterRoutes(api chi.Router) {
	api.Post("/contents", handler.CreateContent)
	api.Get("/contents", handler.ListContents)
	api.Get("/contents/{id}", handler.GetContent)
	api.Patch("/contents/{id}/text", handler.UpdateText)
	api.Delete("/contents/{id}", handler.DeleteContent)

	// Placement inside chapters
	api.Get("/chapters/{id}/contents", handler.ListChapterContents)
	api.Post("/chapters/{id}/contents", handler.AssignContent)
	api.Put("/chapters/{id}/contents", handler.SetChapterOrder)
	api.Delete("/chapters/{id}/contents/{contentID}", handler.UnassignContent)
}

// RegisterUploadRoutes attaches the multipart upload endpoint. It is kept apart
// so the server can give it a longer request timeout.
func (handler *Handler) RegisterUploadRoutes(api chi.Router) {
	api.Post("/contents/upload", handler.UploadContent)
}

// # Content Blocks

type createContentRequest struct {
	Kind            string   `json:"kind"`
	Topic           string   `json:"topic"`
	Body            *string  `json:"body"`
	FileURL         *string  `json:"file_url"`
	Format          *string  `json:"format"`
	DurationSeconds *float64 `json:"duration_seconds"`
}

/*
POST /api/v1/contents.

Description: Creates a block from JSON. Media blocks reference a file that is
already hosted; use /contents/upload to send the file itself.

Response:
  - 201: Content
  - 400: INVALID_KIND / MISSING_FIELD
  - 422: VALIDATION_ERROR
*/
func (handler *Handler) CreateContent(writer http.ResponseWriter, request *http.Request) {
	var input createContentRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	content, err := handler.service.Create(request.Context(), CreateContentInput(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, content)
}

/*
POST /api/v1/contents/upload.

Request (multipart/form-data):
  - file: the media file
  - kind: IMAGE | VIDEO | OBJECT3D
  - topic: string
  - format: optional, defaults to the file extension
  - duration_seconds: optional, VIDEO only

Response:
  - 201: Content whose file_url points at the stored object
  - 413: VALIDATION_ERROR when the file exceeds the upload limit
  - 503: SERVICE_UNAVAILABLE when object storage is not configured
*/
func (handler *Handler) UploadContent(writer http.ResponseWriter, request *http.Request) {
	// Media files need longer than the server-wide read and write timeouts.
	deadline := time.Now().Add(constants.UploadReadTimeout)
	controller := http.NewResponseController(writer)
	_ = controller.SetReadDeadline(deadline)
	_ = controller.SetWriteDeadline(deadline.Add(constants.DefaultWriteTimeout))

	request.Body = http.MaxBytesReader(writer, request.Body, handler.maxUploadBytes)
	if err := request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(writer, request, &apperr.AppError{
				Code:       apperr.CodeValidation,
				Message:    "File exceeds the upload limit of " + strconv.FormatInt(handler.maxUploadBytes, 10) + " bytes",
				HTTPStatus: http.StatusRequestEntityTooLarge,
			})
			return
		}
		respond.Error(writer, request, apperr.BadRequest("Invalid multipart form"))
		return
	}
	defer func() { _ = request.MultipartForm.RemoveAll() }()

	file, header, err := request.FormFile("file")
	if err != nil {
		respond.Error(writer, request, validate.RequiredError("file", "This field is required"))
		return
	}
	defer file.Close()

	input := UploadInput{
		Kind:        request.FormValue("kind"),
		Topic:       request.FormValue("topic"),
		Filename:    header.Filename,
		ContentType: header.Header.Get(constants.HeaderContentType),
		Body:        file,
	}
	if format := strings.TrimSpace(request.FormValue("format")); format != "" {
		input.Format = &format
	}
	if raw := strings.TrimSpace(request.FormValue("duration_seconds")); raw != "" {
		duration, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respond.Error(writer, request, validate.RequiredError("duration_seconds", "Must be a number"))
			return
		}
		input.DurationSeconds = &duration
	}

	content, err := handler.service.CreateFromUpload(request.Context(), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, content)
}

/*
GET /api/v1/contents.

Request:
  - skip, limit: int
  - kind: TEXT | IMAGE | VIDEO | OBJECT3D
  - topic: string (case-insensitive substring)

Response:
  - 200: []Content with pagination meta
  - 400: INVALID_KIND
*/
func (handler *Handler) ListContents(writer http.ResponseWriter, request *http.Request) {
	page, err := pagination.FromRequest(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	contents, total, err := handler.service.ListWithTotal(request.Context(), ContentListParams{
		Skip:  page.Skip,
		Limit: page.Limit,
		Kind:  requestutil.QueryString(request, "kind"),
		Topic: requestutil.QueryString(request, "topic"),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, contents, pagination.NewMeta(page, len(contents), total))
}

// GetContent handles GET /api/v1/contents/{id}.
func (handler *Handler) GetContent(writer http.ResponseWriter, request *http.Request) {
	content, err := handler.service.GetByID(request.Context(), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, content)
}

type updateTextRequest struct {
	Body  *string `json:"body"`
	Topic *string `json:"topic"`
}

/*
PATCH /api/v1/contents/{id}/text.

Response:
  - 200: Content
  - 400: INVALID_KIND when the block is not TEXT
  - 404: NOT_FOUND
*/
func (handler *Handler) UpdateText(writer http.ResponseWriter, request *http.Request) {
	var input updateTextRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	content, err := handler.service.UpdateText(request.Context(), requestutil.ID(request, "id"), input.Body, input.Topic)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// The block may be shown in any number of chapters.
	handler.cache.InvalidateAll(request.Context())
	respond.OK(writer, content)
}

/*
DELETE /api/v1/contents/{id}.

Response:
  - 204: Deleted
  - 404: NOT_FOUND
  - 409: CONFLICT while assigned to a chapter
*/
func (handler *Handler) DeleteContent(writer http.ResponseWriter, request *http.Request) {
	if err := handler.service.Delete(request.Context(), requestutil.ID(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Chapter Placement

// ListChapterContents handles GET /api/v1/chapters/{id}/contents.
func (handler *Handler) ListChapterContents(writer http.ResponseWriter, request *http.Request) {
	contents, err := handler.service.ListForChapter(request.Context(), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, contents)
}

type assignRequest struct {
	ContentID string `json:"content_id"`
	Order     int    `json:"order"`
}

/*
POST /api/v1/chapters/{id}/contents.

Response:
  - 201: Assignment
  - 400: ALREADY_ASSIGNED
  - 404: NOT_FOUND for the chapter or the block
  - 422: VALIDATION_ERROR for order < 1
*/
func (handler *Handler) AssignContent(writer http.ResponseWriter, request *http.Request) {
	var input assignRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	chapterID := requestutil.ID(request, "id")
	assignment, err := handler.service.AssignToChapter(request.Context(), chapterID, input.ContentID, input.Order)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.cache.InvalidateChapter(request.Context(), chapterID)
	respond.Created(writer, assignment)
}

type setOrderRequest struct {
	ContentIDs []string `json:"content_ids"`
}

/*
PUT /api/v1/chapters/{id}/contents.

Description: Replaces the chapter's blocks with content_ids, in that order.

Response:
  - 200: []Content in the new order
  - 404: NOT_FOUND for the chapter or any block
  - 422: VALIDATION_ERROR for repeated ids
*/
func (handler *Handler) SetChapterOrder(writer http.ResponseWriter, request *http.Request) {
	var input setOrderRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	ctx := request.Context()
	chapterID := requestutil.ID(request, "id")
	if err := handler.service.SetOrderForChapter(ctx, chapterID, input.ContentIDs); err != nil {
		respond.Error(writer, request, err)
		return
	}
	handler.cache.InvalidateChapter(ctx, chapterID)

	contents, err := handler.service.ListForChapter(ctx, chapterID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, contents)
}

// UnassignContent handles DELETE /api/v1/chapters/{id}/contents/{contentID}.
func (handler *Handler) UnassignContent(writer http.ResponseWriter, request *http.Request) {
	chapterID := requestutil.ID(request, "id")
	if err := handler.service.Unassign(request.Context(), chapterID, requestutil.ID(request, "contentID")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.cache.InvalidateChapter(request.Context(), chapterID)
	respond.NoContent(writer)
}
