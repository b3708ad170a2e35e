package api

import (
	"errors"
	"net/http"
	"time"

	"slidecast/internal/blob"
	"slidecast/internal/captions"
	"slidecast/internal/project"
)

// StartCaptions kicks off a caption pass over every image in the
// project that does not have one yet. Captions already written are
// never discarded, even when a later image fails.
func (h *Handler) StartCaptions(w http.ResponseWriter, r *http.Request) {
	if h.captioner == nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Caption service not configured")
		return
	}
	p, ok := h.loadProject(w, r)
	if !ok {
		return
	}

	var images []captions.ImageRef
	for _, m := range p.Media {
		if m.Kind != project.KindImage || m.Caption != "" {
			continue
		}
		path, err := h.blobs.Path(m.ContentRef)
		if err != nil {
			continue
		}
		images = append(images, captions.ImageRef{
			MediaID:     m.ID,
			Path:        path,
			ContentType: blob.ContentType(m.ContentRef),
		})
	}

	err := h.captioner.Start(p.ID, images, func(mediaID, caption string) error {
		return h.saveCaption(p.ID, mediaID, caption)
	})
	if err != nil {
		if errors.Is(err, captions.ErrRunning) {
			writeError(w, http.StatusConflict, "CAPTIONS_RUNNING", "Caption generation already in progress")
			return
		}
		h.logger.Error().Err(err).Str("id", p.ID).Msg("failed to start caption pass")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to start caption generation")
		return
	}

	writeJSON(w, http.StatusAccepted, CaptionStatusResponse{Run: h.captioner.Status(p.ID)})
}

func (h *Handler) GetCaptionStatus(w http.ResponseWriter, r *http.Request) {
	if h.captioner == nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Caption service not configured")
		return
	}
	p, ok := h.loadProject(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, CaptionStatusResponse{Run: h.captioner.Status(p.ID)})
}

// saveCaption persists one generated caption against the current
// stored project, so captions survive even when a later image in the
// same pass fails.
func (h *Handler) saveCaption(projectID, mediaID, caption string) error {
	p, err := h.storage.GetProject(projectID)
	if err != nil {
		return err
	}
	if p == nil {
		return errors.New("project deleted during caption pass")
	}
	item := p.FindMedia(mediaID)
	if item == nil {
		// The image was removed mid-pass; skip it without failing
		// the whole run.
		return nil
	}
	item.Caption = caption
	p.SavedAt = time.Now()
	return h.storage.SaveProject(p)
}
