package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/slms/leave-service/internal/apperr"
	"github.com/slms/leave-service/internal/middleware"
	"github.com/slms/leave-service/internal/model"
	"github.com/slms/leave-service/internal/upload"
)

// requestTimeout bounds the storage work of one request.
const requestTimeout = 5 * time.Second

// Uploader stores a profile image and returns its public URL, or nil when
// the upload failed.
type Uploader interface {
	Upload(ctx context.Context, fh *multipart.FileHeader) *string
}

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// bind decodes the body (JSON or form) into dst and validates it.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperr.Validation(apperr.MsgInvalidRequestBody)
	}
	return c.Validate(dst)
}

// actor returns the user bound by the guard.
func actor(c echo.Context) (*model.User, error) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return nil, apperr.Unauthorized(apperr.MsgSessionExpired)
	}
	return u, nil
}

func parseID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation(apperr.MsgInvalidID)
	}
	return id, nil
}

// profileImage uploads the optional multipart image.  No file means nil
// without error; a file that cannot be stored is a 400.
func profileImage(c echo.Context, up Uploader) (*string, error) {
	fh, err := c.FormFile(upload.FieldName)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Validation(apperr.MsgInvalidRequestBody)
	}
	if err := upload.CheckImage(fh); err != nil {
		return nil, err
	}
	if up == nil {
		return nil, apperr.Validation(apperr.MsgInvalidImage)
	}
	url := up.Upload(c.Request().Context(), fh)
	if url == nil {
		return nil, apperr.Validation(apperr.MsgInvalidImage)
	}
	return url, nil
}
