package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"slidecast/internal/playback"
)

// StartPlayback snapshots the project and opens a session at slide 0.
func (h *Handler) StartPlayback(w http.ResponseWriter, r *http.Request) {
	var req StartPlaybackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	p, err := h.storage.GetProject(req.ProjectID)
	if err != nil {
		h.logger.Error().Err(err).Str("id", req.ProjectID).Msg("failed to get project for playback")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get project")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "PROJECT_NOT_FOUND", "Project not found")
		return
	}

	session, err := h.sessions.Start(p)
	if err != nil {
		if errors.Is(err, playback.ErrNoMedia) {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "Project has no media to play")
			return
		}
		h.logger.Error().Err(err).Str("id", req.ProjectID).Msg("failed to start playback")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to start playback")
		return
	}

	writeJSON(w, http.StatusCreated, PlaybackSessionResponse{Session: session.State()})
}

func (h *Handler) GetPlaybackState(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, PlaybackSessionResponse{Session: session.State()})
}

// SessionEvents streams slide, audio, and clock events as server-sent
// events until the session closes or the client disconnects.
func (h *Handler) SessionEvents(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	listener := session.Subscribe()
	defer session.Unsubscribe(listener)

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, open := <-listener.C:
			if !open {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
			flusher.Flush()
		}
	}
}

// VideoEnded is the client's report that the current video slide
// finished playing; it is what advances a video slide.
func (h *Handler) VideoEnded(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	if err := session.VideoEnded(); err != nil {
		writeError(w, http.StatusGone, "SESSION_CLOSED", "Playback session is closed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PlaybackError records an autoplay rejection reported by the client.
// Non-fatal: the session keeps advancing on its own contract.
func (h *Handler) PlaybackError(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	var req PlaybackErrorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}
	if err := session.ReportPlaybackError(req.Source, req.Message); err != nil {
		writeError(w, http.StatusGone, "SESSION_CLOSED", "Playback session is closed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ClosePlayback(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	session.Close()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) loadSession(w http.ResponseWriter, r *http.Request) (*playback.Session, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	session := h.sessions.Get(sessionID)
	if session == nil {
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "Playback session not found")
		return nil, false
	}
	return session, true
}
