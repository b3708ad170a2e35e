package api

import (
	"slidecast/internal/captions"
	"slidecast/internal/playback"
	"slidecast/internal/project"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateProjectRequest struct {
	Name string `json:"name"`
}

type ProjectResponse struct {
	Project *project.Project `json:"project"`
}

type ProjectListResponse struct {
	Projects []project.Project `json:"projects"`
}

type UploadResponse struct {
	Added []project.MediaItem `json:"added"`
}

// UploadErrorResponse reports a rejected item together with the items
// of the same batch that were accepted before it.
type UploadErrorResponse struct {
	Error ErrorDetail         `json:"error"`
	Added []project.MediaItem `json:"added"`
}

type ReorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// SettingsResponse echoes the saved settings. Notice is the
// adjustment notice standing at response time; the recomputation a
// settings write kicks off runs in the background (it probes media
// durations), so a notice born from this very write lands on a later
// GET /adjustment poll, not here.
type SettingsResponse struct {
	Settings project.Settings `json:"settings"`
	Notice   *string          `json:"notice"`
}

// AdjustmentResponse carries the auto-adjustment notice, null when
// there is nothing to tell the user.
type AdjustmentResponse struct {
	Notice *string `json:"notice"`
}

type CaptionStatusResponse struct {
	Run captions.RunState `json:"run"`
}

type StartPlaybackRequest struct {
	ProjectID string `json:"project_id"`
}

type PlaybackSessionResponse struct {
	Session playback.SessionState `json:"session"`
}

type PlaybackErrorRequest struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}
