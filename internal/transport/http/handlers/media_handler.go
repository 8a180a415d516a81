package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/vedran77/devaura/internal/service"
	"github.com/vedran77/devaura/internal/transport/http/middleware"
	"go.uber.org/zap"
)

type MediaHandler struct {
	mediaService *service.MediaService
	log          *zap.Logger
}

func NewMediaHandler(mediaService *service.MediaService, log *zap.Logger) *MediaHandler {
	return &MediaHandler{mediaService: mediaService, log: log}
}

func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FORM", "Expected a multipart form with a file")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "MISSING_FILE", "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, service.MaxUploadSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FILE", "Could not read file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	up, err := h.mediaService.Upload(r.Context(), userID, r.FormValue("folder"), header.Filename, contentType, data)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidFolder):
			writeError(w, http.StatusBadRequest, "INVALID_FOLDER", "Unknown upload folder")
		case errors.Is(err, service.ErrEmptyFile):
			writeError(w, http.StatusBadRequest, "EMPTY_FILE", "File is empty")
		case errors.Is(err, service.ErrFileTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "File exceeds 10 MB")
		case errors.Is(err, service.ErrStorageUnavailable):
			writeError(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Media storage is temporarily unavailable")
		default:
			writeInternal(w, h.log, "upload media", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, up)
}
