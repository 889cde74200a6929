package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ohfdesk/ohfdesk/internal/infra/ai"
	"github.com/ohfdesk/ohfdesk/internal/middleware"
	"github.com/ohfdesk/ohfdesk/internal/modules/model"
	"github.com/ohfdesk/ohfdesk/internal/modules/serializer"
	"github.com/ohfdesk/ohfdesk/internal/modules/service"
)

// maxUploadBytes caps multipart recordings read into memory.
const maxUploadBytes = 100 << 20

// actor returns the authenticated profile or writes a 401.
func actor(c *gin.Context) (*model.Profile, bool) {
	p, ok := middleware.CurrentProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, serializer.AuthErr("Unauthorized"))
		return nil, false
	}
	return p, true
}

// uuidParam parses a path parameter or writes a 400.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("invalid "+name, err))
		return uuid.Nil, false
	}
	return id, true
}

// respondErr maps service errors to HTTP responses.
func respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, serializer.ParamErr(err.Error(), nil))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, serializer.ForbiddenErr(""))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, serializer.NotFoundErr("", nil))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, serializer.ConflictErr(err.Error(), nil))
	case errors.Is(err, ai.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, serializer.Err(http.StatusServiceUnavailable, "ai provider not configured", nil))
	default:
		c.JSON(http.StatusInternalServerError, serializer.Err(http.StatusInternalServerError, "internal error", err))
	}
}

// readFormFile loads a multipart file into memory.
func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > maxUploadBytes {
		return nil, errors.New("file too large")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
}
