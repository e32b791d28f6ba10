package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cardbox/service/internal/middleware"
	"github.com/cardbox/service/internal/response"
	"github.com/cardbox/service/internal/storage"
)

// allowedUploadTypes are the sniffed MIME types accepted for upload.
var allowedUploadTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
}

// Handler holds HTTP handlers for the media pipeline endpoints.
type Handler struct {
	svc       *Service
	maxUpload int64
}

// NewHandler creates a new files Handler. maxUpload caps multipart bodies.
func NewHandler(svc *Service, maxUpload int64) *Handler {
	return &Handler{svc: svc, maxUpload: maxUpload}
}

// UploadResult is the response body for a successful upload.
type UploadResult struct {
	Filename string `json:"filename"`
}

// ProcessResult is the response body for a successful processing run.
type ProcessResult struct {
	Filename string   `json:"filename"`
	Produced []string `json:"produced"`
}

// Upload godoc
//
//	@Summary		Upload an image
//	@Description	Stages a raster image (png or jpeg, up to 10 MiB) and returns its logical name for later processing.
//	@Tags			files
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			file	formData	file	true	"image file"
//	@Success		201	{object}	response.Envelope{data=UploadResult}
//	@Failure		400	{object}	response.Envelope
//	@Failure		401	{object}	response.Envelope
//	@Failure		413	{object}	response.Envelope
//	@Router			/files/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	data, fh, ok := h.readImageUpload(w, r)
	if !ok {
		return
	}

	name, err := h.svc.Upload(r.Context(), fh.Filename, bytes.NewReader(data), int64(len(data)), http.DetectContentType(data))
	if err != nil {
		log.Printf("files: upload: %v", err)
		response.InternalError(w)
		return
	}

	response.Created(w, UploadResult{Filename: name})
}

// Process godoc
//
//	@Summary		Generate derivatives for a staged upload
//	@Description	Renders the cover and slide derivatives for a previously uploaded file. Pass profiles=cover or profiles=slide to retry a subset after a partial failure.
//	@Tags			files
//	@Produce		json
//	@Security		BearerAuth
//	@Param			name		path	string	true	"logical file name"
//	@Param			profiles	query	string	false	"comma-separated subset of profiles to render"
//	@Success		200	{object}	response.Envelope{data=ProcessResult}
//	@Failure		400	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		502	{object}	response.Envelope
//	@Router			/files/{name}/process [post]
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var only []string
	if q := r.URL.Query().Get("profiles"); q != "" {
		only = strings.Split(q, ",")
	}

	produced, err := h.svc.Process(r.Context(), name, only...)
	if err != nil {
		var perr *ProfileError
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "file not found")
		case errors.Is(err, ErrInvalidImage):
			response.BadRequest(w, "uploaded file is not a valid image")
		case errors.As(err, &perr):
			log.Printf("files: process %s: %v", name, err)
			response.Error(w, http.StatusBadGateway, fmt.Sprintf(
				"failed profiles: %s; retry with ?profiles=%s",
				strings.Join(perr.Failed, ","), strings.Join(perr.Failed, ",")))
		default:
			log.Printf("files: process %s: %v", name, err)
			response.InternalError(w)
		}
		return
	}

	response.OK(w, ProcessResult{Filename: NormalizedName(name), Produced: produced})
}

// GetCover godoc
//
//	@Summary	Stream a card cover
//	@Tags		files
//	@Produce	image/webp
//	@Param		name	path	string	true	"normalized file name"
//	@Success	200
//	@Failure	404	{object}	response.Envelope
//	@Router		/files/covers/{name} [get]
func (h *Handler) GetCover(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, h.svc.OpenCover)
}

// GetSlide godoc
//
//	@Summary	Stream a card slide
//	@Tags		files
//	@Produce	image/webp
//	@Param		name	path	string	true	"normalized file name"
//	@Success	200
//	@Failure	404	{object}	response.Envelope
//	@Router		/files/slides/{name} [get]
func (h *Handler) GetSlide(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, h.svc.OpenSlide)
}

// GetAvatar godoc
//
//	@Summary	Stream a user avatar
//	@Tags		files
//	@Produce	image/webp
//	@Param		name	path	string	true	"avatar file name"
//	@Success	200
//	@Failure	404	{object}	response.Envelope
//	@Router		/files/avatar/{name} [get]
func (h *Handler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, h.svc.OpenAvatar)
}

// Remove godoc
//
//	@Summary	Delete card derivatives
//	@Tags		files
//	@Produce	json
//	@Security	BearerAuth
//	@Param		name	path	string	true	"logical or normalized file name"
//	@Success	200	{object}	response.Envelope
//	@Failure	401	{object}	response.Envelope
//	@Router		/files/{name} [delete]
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.svc.Remove(r.Context(), name); err != nil {
		log.Printf("files: remove %s: %v", name, err)
		response.InternalError(w)
		return
	}
	response.OK(w, fmt.Sprintf("file %s has been removed", name))
}

// UpdateAvatar godoc
//
//	@Summary		Replace the current user's avatar
//	@Description	Stores the new avatar, updates the user record, then removes the previous avatar object.
//	@Tags			users
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			file	formData	file	true	"image file"
//	@Success		200	{object}	response.Envelope{data=user.User}
//	@Failure		400	{object}	response.Envelope
//	@Failure		401	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/users/me/avatar [patch]
func (h *Handler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok || userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	data, fh, ok := h.readImageUpload(w, r)
	if !ok {
		return
	}

	u, err := h.svc.UpdateAvatar(r.Context(), userID, fh.Filename, bytes.NewReader(data))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "user not found")
		case errors.Is(err, ErrInvalidImage):
			response.BadRequest(w, "uploaded file is not a valid image")
		default:
			log.Printf("files: update avatar for %s: %v", userID, err)
			response.InternalError(w)
		}
		return
	}

	response.OK(w, u)
}

// stream copies a derivative to the client. Derivative objects never change
// once written (names are keyed by upload event), so responses carry a
// year-long immutable cache policy.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request, open func(context.Context, string) (io.ReadCloser, storage.ObjectInfo, error)) {
	name := chi.URLParam(r, "name")

	rc, info, err := open(r.Context(), name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "file not found")
			return
		}
		log.Printf("files: open %s: %v", name, err)
		response.InternalError(w)
		return
	}
	defer func() { _ = rc.Close() }()

	contentType := info.ContentType
	if contentType == "" {
		contentType = webpContentType
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if info.Size > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size))
	}

	if _, err := io.Copy(w, rc); err != nil {
		// Headers are already out; nothing to do but log.
		log.Printf("files: stream %s: %v", name, err)
	}
}

// readImageUpload parses the multipart "file" field, enforces the size limit
// and the sniffed MIME filter, and returns the buffered bytes. On failure the
// response is already written and ok is false.
func (h *Handler) readImageUpload(w http.ResponseWriter, r *http.Request) (data []byte, fh *multipart.FileHeader, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.TooLarge(w, "file exceeds the upload size limit")
		} else {
			response.BadRequest(w, "invalid multipart request")
		}
		return nil, nil, false
	}

	f, fh, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "file field is required")
		return nil, nil, false
	}
	defer func() { _ = f.Close() }()

	data, err = io.ReadAll(f)
	if err != nil {
		response.BadRequest(w, "could not read uploaded file")
		return nil, nil, false
	}

	if !allowedUploadTypes[http.DetectContentType(data)] {
		response.BadRequest(w, "only png and jpeg images are accepted")
		return nil, nil, false
	}
	return data, fh, true
}
