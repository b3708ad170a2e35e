package api

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"slidecast/internal/blob"
	"slidecast/internal/project"
)

// UploadMedia accepts one or more files in the "files" multipart
// field. Items are validated one at a time at the boundary: the first
// offending item is rejected with a user-visible message, items
// accepted before it stay added, nothing is silently truncated.
func (h *Handler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadProject(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid multipart body")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "No files provided")
		return
	}

	var added []project.MediaItem
	for _, fh := range files {
		item, err := h.addOne(r.Context(), p, fh)
		if err != nil {
			// Keep what was accepted so far.
			if len(added) > 0 {
				if !h.saveProject(w, p) {
					return
				}
				h.triggerAdjust(p)
			}
			writeJSON(w, http.StatusUnprocessableEntity, UploadErrorResponse{
				Error: ErrorDetail{Code: "VALIDATION_FAILED", Message: err.Error()},
				Added: added,
			})
			return
		}
		added = append(added, *item)
	}

	if !h.saveProject(w, p) {
		return
	}
	h.triggerAdjust(p)

	writeJSON(w, http.StatusCreated, UploadResponse{Added: added})
}

func (h *Handler) addOne(ctx context.Context, p *project.Project, fh *multipart.FileHeader) (*project.MediaItem, error) {
	var kind project.MediaKind
	switch {
	case blob.IsSupportedImage(fh.Filename):
		kind = project.KindImage
	case blob.IsSupportedVideo(fh.Filename):
		kind = project.KindVideo
	default:
		return nil, errors.New("unsupported media type: " + fh.Filename)
	}

	file, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	ref, err := h.blobs.Put(fh.Filename, file)
	if err != nil {
		return nil, err
	}

	item := project.MediaItem{
		ID:          uuid.NewString(),
		Kind:        kind,
		DisplayName: fh.Filename,
		ContentRef:  ref,
	}

	if kind == project.KindVideo {
		path, err := h.blobs.Path(ref)
		if err != nil {
			return nil, err
		}
		pctx, cancel := context.WithTimeout(ctx, h.probeTimeout)
		defer cancel()
		dur, err := h.prober.Duration(pctx, path)
		if err != nil {
			h.logger.Warn().Err(err).Str("file", fh.Filename).Msg("video probe failed at upload")
			return nil, errors.New("could not determine video duration: " + fh.Filename)
		}
		item.DurationSeconds = dur
	}

	if err := p.AddMedia(item, h.limits); err != nil {
		return nil, err
	}
	return &item, nil
}

func (h *Handler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadProject(w, r)
	if !ok {
		return
	}
	mediaID := chi.URLParam(r, "mediaID")

	item := p.FindMedia(mediaID)
	if err := p.RemoveMedia(mediaID); err != nil {
		writeError(w, http.StatusNotFound, "MEDIA_NOT_FOUND", "Media item not found")
		return
	}
	if !h.saveProject(w, p) {
		return
	}
	if h.thumbnails != nil && item != nil {
		h.thumbnails.Delete(item.ContentRef)
	}
	h.triggerAdjust(p)

	writeJSON(w, http.StatusOK, ProjectResponse{Project: p})
}

// ReorderMedia moves one item to a new position. Identities are
// unchanged and nothing is reprobed; the probe cache already holds
// every duration by content.
func (h *Handler) ReorderMedia(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadProject(w, r)
	if !ok {
		return
	}

	var req ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}
	if err := p.Reorder(req.From, req.To); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", err.Error())
		return
	}
	if !h.saveProject(w, p) {
		return
	}
	h.triggerAdjust(p)

	writeJSON(w, http.StatusOK, ProjectResponse{Project: p})
}

// SetAudio replaces the project's audio track.
func (h *Handler) SetAudio(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadProject(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid multipart body")
		return
	}
	files := r.MultipartForm.File["file"]
	if len(files) != 1 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Exactly one audio file required")
		return
	}
	fh := files[0]
	if !blob.IsSupportedAudio(fh.Filename) {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "unsupported audio type: "+fh.Filename)
		return
	}

	file, err := fh.Open()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read upload")
		return
	}
	defer file.Close()

	ref, err := h.blobs.Put(fh.Filename, file)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to store audio blob")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store audio")
		return
	}

	p.Audio = &project.AudioTrack{DisplayName: fh.Filename, ContentRef: ref}
	if !h.saveProject(w, p) {
		return
	}
	h.triggerAdjust(p)

	writeJSON(w, http.StatusOK, ProjectResponse{Project: p})
}

func (h *Handler) ClearAudio(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadProject(w, r)
	if !ok {
		return
	}
	p.Audio = nil
	if !h.saveProject(w, p) {
		return
	}
	// Without audio there is nothing to adjust against; this clears
	// any standing notice.
	h.triggerAdjust(p)

	writeJSON(w, http.StatusOK, ProjectResponse{Project: p})
}

func (h *Handler) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadProject(w, r)
	if !ok {
		return
	}
	if h.thumbnails == nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Thumbnails not available")
		return
	}

	mediaID := chi.URLParam(r, "mediaID")
	item := p.FindMedia(mediaID)
	if item == nil {
		writeError(w, http.StatusNotFound, "MEDIA_NOT_FOUND", "Media item not found")
		return
	}

	data, err := h.thumbnails.Get(*item)
	if err != nil {
		h.logger.Warn().Err(err).Str("media", mediaID).Msg("failed to get thumbnail")
		writeError(w, http.StatusNotFound, "THUMBNAIL_NOT_FOUND", "Thumbnail not available")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// StreamMedia serves a blob by ref with range support.
func (h *Handler) StreamMedia(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	path, err := h.blobs.Path(ref)
	if err != nil {
		writeError(w, http.StatusNotFound, "MEDIA_NOT_FOUND", "Media not found")
		return
	}
	h.streamer.ServeFile(w, r, path)
}
