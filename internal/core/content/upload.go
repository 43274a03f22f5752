// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package content

import (
	"context"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/taibuivan/textbook/internal/core/book"
	"github.com/taibuivan/textbook/internal/platform/apperr"
	"github.com/taibuivan/textbook/internal/platform/constants"
	"github.com/taibuivan/textbook/internal/platform/dberr"
	"github.com/taibuivan/textbook/internal/platform/objectstore"
	"github.com/taibuivan/textbook/pkg/pointer"
	"github.com/taibuivan/textbook/pkg/slug"
	"github.com/taibuivan/textbook/pkg/uuid"
)

// maxKeyStemLen bounds the human-readable part of an object key.
const maxKeyStemLen = 60

// UploadInput is a media file together with the block that will point at it.
// Format defaults to the file extension.
type UploadInput struct {
	Kind            string
	Topic           string
	Filename        string
	ContentType     string
	Body            io.Reader
	Format          *string
	DurationSeconds *float64
}

/*
CreateFromUpload stores a media file and creates the IMAGE, VIDEO or OBJECT3D
block whose file_url points at it.

The block is validated before anything is uploaded. If the block cannot be
stored afterwards, the uploaded object is deleted again.

Returns:
  - error: SERVICE_UNAVAILABLE without a media store, INVALID_KIND for TEXT,
    MISSING_FIELD / VALIDATION_ERROR for the block fields
*/
func (service *Service) CreateFromUpload(ctx context.Context, input UploadInput) (*book.Content, error) {
	if service.media == nil {
		return nil, apperr.ServiceUnavailable("Media uploads are not configured")
	}

	kind, err := book.ParseKind(input.Kind)
	if err != nil {
		return nil, err
	}
	if !kind.IsMedia() {
		return nil, apperr.InvalidKind("Uploads create IMAGE, VIDEO or OBJECT3D blocks only")
	}

	extension := strings.ToLower(path.Ext(input.Filename))
	format := input.Format
	if format == nil && extension != "" {
		format = pointer.To(strings.TrimPrefix(extension, "."))
	}

	key := objectKey(input.Filename, extension)

	// Dry run with the key standing in for the URL, so a bad request uploads nothing.
	fields := book.ContentFields{
		FileURL:         pointer.To(key),
		Format:          format,
		DurationSeconds: input.DurationSeconds,
	}
	if _, err := service.build(kind, input.Topic, fields); err != nil {
		return nil, err
	}

	url, err := service.media.Put(ctx, objectstore.Object{
		Key:         key,
		ContentType: input.ContentType,
		Body:        input.Body,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	fields.FileURL = &url
	content, err := service.build(kind, input.Topic, fields)
	if err == nil {
		err = service.store.Contents().Create(ctx, content)
	}
	if err != nil {
		service.discard(ctx, key)
		return nil, dberr.Sanitize(err)
	}

	service.logger.Info("content_uploaded",
		slog.String("content_id", content.ID),
		slog.String("kind", string(kind)),
		slog.String("object_key", key),
	)

	return content, nil
}

// discard removes an object whose block could not be created.
func (service *Service) discard(ctx context.Context, key string) {
	// The request context may already be cancelled; the cleanup still has to run.
	if err := service.media.Delete(context.WithoutCancel(ctx), key); err != nil {
		service.logger.Error("content_upload_orphaned",
			slog.String("object_key", key),
			slog.Any("error", err),
		)
	}
}

// objectKey builds "contents/<uuid>-<slug><ext>"; the slug part is dropped
// when the file name has nothing ASCII-representable.
func objectKey(filename, extension string) string {
	stem := slug.Truncate(slug.From(strings.TrimSuffix(path.Base(filename), path.Ext(filename))), maxKeyStemLen)

	key := constants.MediaKeyPrefix + uuid.New()
	if stem != "" {
		key += "-" + stem
	}
	return key + extension
}
