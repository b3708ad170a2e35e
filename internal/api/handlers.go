package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"slidecast/internal/blob"
	"slidecast/internal/captions"
	"slidecast/internal/playback"
	"slidecast/internal/probe"
	"slidecast/internal/project"
	"slidecast/internal/storage"
	"slidecast/internal/streaming"
	"slidecast/internal/thumbs"
	"slidecast/internal/timing"
)

const Version = "0.1.0"

type Handler struct {
	storage      *storage.Store
	blobs        *blob.Store
	prober       probe.Prober
	probeTimeout time.Duration
	limits       project.Limits
	maxUpload    int64
	sessions     *playback.Manager
	captioner    *captions.Generator
	thumbnails   *thumbs.Service
	streamer     *streaming.Handler
	logger       zerolog.Logger

	ctrlMu      sync.Mutex
	controllers map[string]*timing.Controller
}

func NewHandler(
	store *storage.Store,
	blobs *blob.Store,
	prober probe.Prober,
	probeTimeout time.Duration,
	limits project.Limits,
	maxUpload int64,
	sessions *playback.Manager,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		storage:      store,
		blobs:        blobs,
		prober:       prober,
		probeTimeout: probeTimeout,
		limits:       limits,
		maxUpload:    maxUpload,
		sessions:     sessions,
		streamer:     streaming.NewHandler(),
		logger:       logger,
		controllers:  make(map[string]*timing.Controller),
	}
}

func (h *Handler) SetCaptioner(g *captions.Generator) {
	h.captioner = g
}

func (h *Handler) SetThumbnails(s *thumbs.Service) {
	h.thumbnails = s
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: Version,
	})
}

// Projects

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}
	if req.Name == "" {
		req.Name = "Untitled slideshow"
	}

	p := &project.Project{
		ID:       uuid.NewString(),
		Name:     req.Name,
		Media:    []project.MediaItem{},
		Settings: project.DefaultSettings(),
		SavedAt:  time.Now(),
	}
	if err := h.storage.SaveProject(p); err != nil {
		h.logger.Error().Err(err).Msg("failed to create project")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create project")
		return
	}

	writeJSON(w, http.StatusCreated, ProjectResponse{Project: p})
}

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.storage.ListProjects()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list projects")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list projects")
		return
	}
	if projects == nil {
		projects = []project.Project{}
	}
	writeJSON(w, http.StatusOK, ProjectListResponse{Projects: projects})
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadProject(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ProjectResponse{Project: p})
}

// UpdateProject replaces the stored project with the client's copy.
// Saves are last-writer-wins on saved_at; a stale copy gets a 409 and
// must be reloaded.
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")

	var p project.Project
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}
	p.ID = projectID
	if err := p.Settings.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", err.Error())
		return
	}
	// The client's saved_at is the write timestamp; a copy older than
	// what is stored loses.
	if p.SavedAt.IsZero() {
		p.SavedAt = time.Now()
	}

	if err := h.storage.SaveProject(&p); err != nil {
		if errors.Is(err, storage.ErrStaleWrite) {
			writeError(w, http.StatusConflict, "STALE_WRITE", "Project was saved by a newer writer; reload and retry")
			return
		}
		h.logger.Error().Err(err).Str("id", projectID).Msg("failed to save project")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save project")
		return
	}

	h.triggerAdjust(&p)
	writeJSON(w, http.StatusOK, ProjectResponse{Project: &p})
}

func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")

	if err := h.storage.DeleteProject(projectID); err != nil {
		h.logger.Error().Err(err).Str("id", projectID).Msg("failed to delete project")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete project")
		return
	}

	h.ctrlMu.Lock()
	delete(h.controllers, projectID)
	h.ctrlMu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

// Settings

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadProject(w, r)
	if !ok {
		return
	}

	var s project.Settings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}
	if err := s.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", err.Error())
		return
	}

	p.Settings = s
	if !h.saveProject(w, p) {
		return
	}

	// An explicit interval write is a genuine external change and
	// re-runs the adjustment.
	h.triggerAdjust(p)

	writeJSON(w, http.StatusOK, SettingsResponse{
		Settings: p.Settings,
		Notice:   noticePtr(h.controllerFor(p.ID).Notice()),
	})
}

func (h *Handler) GetAdjustment(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, AdjustmentResponse{
		Notice: noticePtr(h.controllerFor(projectID).Notice()),
	})
}

// Auto-adjustment plumbing

// controllerFor lazily creates the per-project adjustment controller.
// Its apply callback persists the corrected interval without going
// back through triggerAdjust: only external changes re-enter the
// controller, so a correction can never feed its own change-detector.
func (h *Handler) controllerFor(projectID string) *timing.Controller {
	h.ctrlMu.Lock()
	defer h.ctrlMu.Unlock()
	if c, ok := h.controllers[projectID]; ok {
		return c
	}
	c := timing.NewController(h.prober, h.probeTimeout, func(interval int) {
		h.applyInterval(projectID, interval)
	}, h.logger.With().Str("project", projectID).Logger())
	h.controllers[projectID] = c
	return c
}

func (h *Handler) applyInterval(projectID string, interval int) {
	p, err := h.storage.GetProject(projectID)
	if err != nil || p == nil {
		h.logger.Error().Err(err).Str("id", projectID).Msg("cannot apply adjusted interval")
		return
	}
	p.Settings.IntervalSeconds = interval
	p.SavedAt = time.Now()
	if err := h.storage.SaveProject(p); err != nil {
		h.logger.Error().Err(err).Str("id", projectID).Msg("failed to persist adjusted interval")
	}
}

// triggerAdjust snapshots the controller inputs from the project and
// reports the change.
func (h *Handler) triggerAdjust(p *project.Project) {
	snap := timing.Snapshot{
		Images:   p.CountImages(),
		Interval: p.Settings.IntervalSeconds,
	}
	for _, m := range p.Media {
		if m.Kind == project.KindVideo {
			if path, err := h.blobs.Path(m.ContentRef); err == nil {
				snap.VideoPaths = append(snap.VideoPaths, path)
			}
		}
	}
	if p.Audio != nil {
		if path, err := h.blobs.Path(p.Audio.ContentRef); err == nil {
			snap.AudioPath = path
		}
	}
	h.controllerFor(p.ID).Trigger(snap)
}

// Helpers

func (h *Handler) loadProject(w http.ResponseWriter, r *http.Request) (*project.Project, bool) {
	projectID := chi.URLParam(r, "id")

	p, err := h.storage.GetProject(projectID)
	if err != nil {
		h.logger.Error().Err(err).Str("id", projectID).Msg("failed to get project")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get project")
		return nil, false
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "PROJECT_NOT_FOUND", "Project not found")
		return nil, false
	}
	return p, true
}

func (h *Handler) saveProject(w http.ResponseWriter, p *project.Project) bool {
	p.SavedAt = time.Now()
	if err := h.storage.SaveProject(p); err != nil {
		h.logger.Error().Err(err).Str("id", p.ID).Msg("failed to save project")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save project")
		return false
	}
	return true
}

func noticePtr(notice string) *string {
	if notice == "" {
		return nil
	}
	return &notice
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
