package fileobject

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dronewerx/internal/pkg/response"
	"dronewerx/internal/storage"
)

const (
	formField          = "file"
	defaultContentType = "application/octet-stream"
	// multipart envelope allowance on top of the per-file cap
	requestOverhead = 1 << 20
)

// Handler serves the upload and file metadata endpoints.
type Handler struct {
	service         *Service
	maxRequestBytes int64
}

// NewHandler returns a handler. maxUploadBytes <= 0 leaves request bodies unbounded.
func NewHandler(service *Service, maxUploadBytes int64) *Handler {
	h := &Handler{service: service}
	if maxUploadBytes > 0 {
		h.maxRequestBytes = maxUploadBytes + requestOverhead
	}
	return h
}

// Upload godoc
// @Summary Upload a file
// @Description Streams the multipart field "file" to disk and records its metadata.
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File to upload"
// @Success 201 {object} UploadResponse
// @Failure 400,413,500 {object} map[string]interface{}
// @Router /upload [post]
func (h *Handler) Upload(c *gin.Context) {
	if h.maxRequestBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxRequestBytes)
	}

	part, err := filePart(c.Request)
	if err != nil {
		if isBodyTooLarge(err) {
			response.Fail(c, http.StatusRequestEntityTooLarge, response.CodeTooLarge, ErrFileTooLarge)
			return
		}
		response.Fail(c, http.StatusBadRequest, response.CodeMissingFile, err)
		return
	}

	contentType := part.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}

	f, err := h.service.Upload(c.Request.Context(), UploadInput{
		Filename:    declaredFilename(part),
		ContentType: contentType,
		Body:        part,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrFileTooLarge), isBodyTooLarge(err):
			response.Fail(c, http.StatusRequestEntityTooLarge, response.CodeTooLarge, ErrFileTooLarge)
		case errors.Is(err, ErrStorage):
			response.Fail(c, http.StatusInternalServerError, response.CodeStorage, err)
		default:
			response.Fail(c, http.StatusInternalServerError, response.CodeDatabase, err)
		}
		return
	}

	response.Success(c, http.StatusCreated, toUploadResponse(f))
}

// List godoc
// @Summary List uploaded files
// @Description All file records, most recent first.
// @Tags Files
// @Produce json
// @Success 200 {array} FileObject
// @Failure 500 {object} map[string]interface{}
// @Router /files [get]
func (h *Handler) List(c *gin.Context) {
	files, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.CodeDatabase, err)
		return
	}
	response.Success(c, http.StatusOK, files)
}

// GetByID godoc
// @Summary Get file metadata by ID
// @Tags Files
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} FileObject
// @Failure 400,404,500 {object} map[string]interface{}
// @Router /files/{id} [get]
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	f, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeLookupError(c, err)
		return
	}
	response.Success(c, http.StatusOK, f)
}

// Content godoc
// @Summary Download a stored file
// @Tags Files
// @Produce octet-stream
// @Param id path string true "File ID"
// @Success 200 {file} file
// @Failure 400,404,500 {object} map[string]interface{}
// @Router /files/{id}/content [get]
func (h *Handler) Content(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	f, blob, err := h.service.Open(c.Request.Context(), id)
	if err != nil {
		writeLookupError(c, err)
		return
	}
	defer blob.Close()

	info, err := blob.Stat()
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.CodeStorage, err)
		return
	}

	c.Header("Content-Type", f.ContentType)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.OriginalName}))
	http.ServeContent(c.Writer, c.Request, f.OriginalName, info.ModTime(), blob)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidID, fmt.Sprintf("invalid file id %q", c.Param("id")))
		return uuid.Nil, false
	}
	return id, true
}

func writeLookupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrFileNotFound), errors.Is(err, storage.ErrBlobMissing):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
	default:
		response.Fail(c, http.StatusInternalServerError, response.CodeDatabase, err)
	}
}

// filePart advances the multipart stream to the "file" field without
// buffering the body.
func filePart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingFile, err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, ErrMissingFile
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMissingFile, err)
		}
		if part.FormName() == formField {
			return part, nil
		}
		if _, err := io.Copy(io.Discard, part); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMissingFile, err)
		}
		_ = part.Close()
	}
}

// declaredFilename returns the filename exactly as the client sent it.
// multipart.Part.FileName strips directories, which would alter original_name.
func declaredFilename(p *multipart.Part) string {
	_, params, err := mime.ParseMediaType(p.Header.Get("Content-Disposition"))
	if err != nil {
		return p.FileName()
	}
	return params["filename"]
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
