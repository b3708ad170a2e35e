package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidecast/internal/api"
	"slidecast/internal/blob"
	"slidecast/internal/captions"
	"slidecast/internal/config"
	"slidecast/internal/playback"
	"slidecast/internal/project"
	"slidecast/internal/storage"
)

// stubProber parses the media file's content as its duration in
// seconds, so tests control durations through upload bytes.
type stubProber struct{}

func (stubProber) Duration(_ context.Context, path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("no duration in %s", path)
	}
	return d, nil
}

type env struct {
	ts      *httptest.Server
	handler *api.Handler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Limits.MaxImages = 3

	store, err := storage.NewStore(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	blobs, err := blob.NewStore(filepath.Join(dir, "blobs"))
	require.NoError(t, err)

	sessions := playback.NewManager(10*time.Millisecond, zerolog.Nop())
	t.Cleanup(sessions.CloseAll)

	handler := api.NewHandler(
		store,
		blobs,
		stubProber{},
		time.Second,
		project.Limits{
			MaxImages:       cfg.Limits.MaxImages,
			MaxVideos:       cfg.Limits.MaxVideos,
			MaxVideoSeconds: cfg.Limits.MaxVideoSeconds,
		},
		cfg.Limits.MaxUploadBytes,
		sessions,
		zerolog.Nop(),
	)

	srv := New(cfg, zerolog.Nop(), handler)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &env{ts: ts, handler: handler}
}

func (e *env) doJSON(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, respBody
}

type upload struct {
	name    string
	content string
}

func (e *env) doUpload(t *testing.T, path, field string, files []upload) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile(field, f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, e.ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, respBody
}

func (e *env) doUploadPut(t *testing.T, path, field string, f upload) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, f.name)
	require.NoError(t, err)
	_, err = part.Write([]byte(f.content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPut, e.ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, respBody
}

func (e *env) createProject(t *testing.T, name string) *project.Project {
	t.Helper()
	resp, body := e.doJSON(t, http.MethodPost, "/api/v1/projects", api.CreateProjectRequest{Name: name})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var pr api.ProjectResponse
	require.NoError(t, json.Unmarshal(body, &pr))
	return pr.Project
}

func (e *env) getProject(t *testing.T, id string) *project.Project {
	t.Helper()
	resp, body := e.doJSON(t, http.MethodGet, "/api/v1/projects/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var pr api.ProjectResponse
	require.NoError(t, json.Unmarshal(body, &pr))
	return pr.Project
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var er api.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &er))
	return er.Error.Code
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	resp, body := e.doJSON(t, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var hr api.HealthResponse
	require.NoError(t, json.Unmarshal(body, &hr))
	assert.Equal(t, "ok", hr.Status)
}

func TestProjectLifecycle(t *testing.T) {
	e := newEnv(t)

	p := e.createProject(t, "Summer trip")
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Summer trip", p.Name)
	assert.Equal(t, 5, p.Settings.IntervalSeconds)
	assert.Equal(t, project.TransitionFade, p.Settings.Transition)

	got := e.getProject(t, p.ID)
	assert.Equal(t, p.ID, got.ID)

	resp, body := e.doJSON(t, http.MethodGet, "/api/v1/projects", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list api.ProjectListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Projects, 1)

	resp, _ = e.doJSON(t, http.MethodDelete, "/api/v1/projects/"+p.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = e.doJSON(t, http.MethodGet, "/api/v1/projects/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "PROJECT_NOT_FOUND", errorCode(t, body))
}

func TestCreateProjectDefaultName(t *testing.T) {
	e := newEnv(t)
	p := e.createProject(t, "")
	assert.Equal(t, "Untitled slideshow", p.Name)
}

func TestGetUnknownProject(t *testing.T) {
	e := newEnv(t)
	resp, body := e.doJSON(t, http.MethodGet, "/api/v1/projects/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "PROJECT_NOT_FOUND", errorCode(t, body))
}

func TestUpdateProjectStaleWriteRejected(t *testing.T) {
	e := newEnv(t)
	p := e.createProject(t, "Doc")

	stale := *p
	stale.Name = "Old copy"
	stale.SavedAt = p.SavedAt.Add(-time.Hour)

	resp, body := e.doJSON(t, http.MethodPut, "/api/v1/projects/"+p.ID, stale)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "STALE_WRITE", errorCode(t, body))

	fresh := *p
	fresh.Name = "New copy"
	fresh.SavedAt = time.Now()

	resp, _ = e.doJSON(t, http.MethodPut, "/api/v1/projects/"+p.ID, fresh)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "New copy", e.getProject(t, p.ID).Name)
}

func TestUpdateSettings(t *testing.T) {
	e := newEnv(t)
	p := e.createProject(t, "Doc")

	s := project.Settings{IntervalSeconds: 8, Transition: project.TransitionZoomIn, ShowClock: true}
	resp, body := e.doJSON(t, http.MethodPut, "/api/v1/projects/"+p.ID+"/settings", s)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var sr api.SettingsResponse
	require.NoError(t, json.Unmarshal(body, &sr))
	assert.Equal(t, 8, sr.Settings.IntervalSeconds)
	assert.Nil(t, sr.Notice)

	assert.Equal(t, 8, e.getProject(t, p.ID).Settings.IntervalSeconds)
}

func TestUpdateSettingsRejectsInvalid(t *testing.T) {
	e := newEnv(t)
	p := e.createProject(t, "Doc")

	tests := []project.Settings{
		{IntervalSeconds: 0, Transition: project.TransitionFade},
		{IntervalSeconds: 5, Transition: "spin"},
	}
	for _, s := range tests {
		resp, body := e.doJSON(t, http.MethodPut, "/api/v1/projects/"+p.ID+"/settings", s)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))
	}
}

func TestUploadImages(t *testing.T) {
	e := newEnv(t)
	p := e.createProject(t, "Doc")

	resp, body := e.doUpload(t, "/api/v1/projects/"+p.ID+"/media", "files", []upload{
		{name: "beach.jpg", content: "img1"},
		{name: "sunset.png", content: "img2"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var ur api.UploadResponse
	require.NoError(t, json.Unmarshal(body, &ur))
	require.Len(t, ur.Added, 2)
	assert.Equal(t, project.KindImage, ur.Added[0].Kind)
	assert.Equal(t, "beach.jpg", ur.Added[0].DisplayName)
	assert.NotEmpty(t, ur.Added[0].ContentRef)

	assert.Len(t, e.getProject(t, p.ID).Media, 2)
}

func TestUploadBatchKeepsItemsBeforeFirstFailure(t *testing.T) {
	e := newEnv(t) // image limit is 3
	p := e.createProject(t, "Doc")

	resp, body := e.doUpload(t, "/api/v1/projects/"+p.ID+"/media", "files", []upload{
		{name: "a.jpg", content: "1"},
		{name: "b.jpg", content: "2"},
		{name: "c.jpg", content: "3"},
		{name: "d.jpg", content: "4"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(body))

	var ur api.UploadErrorResponse
	require.NoError(t, json.Unmarshal(body, &ur))
	assert.Equal(t, "VALIDATION_FAILED", ur.Error.Code)
	assert.Len(t, ur.Added, 3)

	// The accepted prefix is persisted, nothing is silently dropped.
	assert.Len(t, e.getProject(t, p.ID).Media, 3)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	e := newEnv(t)
	p := e.createProject(t, "Doc")

	resp, body := e.doUpload(t, "/api/v1/projects/"+p.ID+"/media", "files", []upload{
		{name: "notes.txt", content: "hello"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var ur api.UploadErrorResponse
	require.NoError(t, json.Unmarshal(body, &ur))
	assert.Contains(t, ur.Error.Message, "unsupported media type")
	assert.Empty(t, ur.Added)
}

func TestUploadVideoProbesDuration(t *testing.T) {
	e := newEnv(t)
	p := e.createProject(t, "Doc")

	resp, body := e.doUpload(t, "/api/v1/projects/"+p.ID+"/media", "files", []upload{
		{name: "clip.mp4", content: "12.5"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var ur api.UploadResponse
	require.NoError(t, json.Unmarshal(body, &ur))
	require.Len(t, ur.Added, 1)
	assert.Equal(t, project.KindVideo, ur.Added[0].Kind)
	assert.Equal(t, 12.5, ur.Added[0].DurationSeconds)
}

func TestUploadVideoTooLongRejected(t *testing.T) {
	e := newEnv(t) // max video length is 30s
	p := e.createProject(t, "Doc")

	resp, body := e.doUpload(t, "/api/v1/projects/"+p.ID+"/media", "files", []upload{
		{name: "clip.mp4", content: "45"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var ur api.UploadErrorResponse
	require.NoError(t, json.Unmarshal(body, &ur))
	assert.Contains(t, ur.Error.Message, "maximum allowed duration")
	assert.Empty(t, e.getProject(t, p.ID).Media)
}

func TestUploadSecondVideoRejected(t *testing.T) {
	e := newEnv(t)
	p := e.createProject(t, "Doc")

	resp, _ := e.doUpload(t, "/api/v1/projects/"+p.ID+"/media", "files", []upload{
		{name: "one.mp4", content: "10"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := e.doUpload(t, "/api/v1/projects/"+p.ID+"/media", "files", []upload{
		{name: "two.mp4", content: "10.1"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var ur api.UploadErrorResponse
	require.NoError(t, json.Unmarshal(body, &ur))
	assert.Contains(t, ur.Error.Message, "one video")
}

func TestUploadUnprobeableVideoRejected(t *testing.T) {
	e := newEnv(t)
	p := e.createProject(t, "Doc")

	resp, body := e.doUpload(t, "/api/v1/projects/"+p.ID+"/media", "files", []upload{
		{name: "broken.mp4", content: "not-a-number"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var ur api.UploadErrorResponse
	require.NoError(t, json.Unmarshal(body, &ur))
	assert.Contains(t, ur.Error.Message, "could not determine video duration")
}

func TestDeleteMedia(t *testing.T) {
	e := newEnv(t)
	p := e.createProject(t, "Doc")

	_, body := e.doUpload(t, "/api/v1/projects/"+p.ID+"/media", "files", []upload{
		{name: "a.jpg", content: "1"},
	})
	var ur api.UploadResponse
	require.NoError(t, json.Unmarshal(body, &ur))
	mediaID := ur.Added[0].ID

	resp, _ := e.doJSON(t, http.MethodDelete, "/api/v1/projects/"+p.ID+"/media/"+mediaID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, e.getProject(t, p.ID).Media)

	resp, body = e.doJSON(t, http.MethodDelete, "/api/v1/projects/"+p.ID+"/media/"+mediaID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "MEDIA_NOT_FOUND", errorCode(t, body))
}

func TestReorderMedia(t *testing.T) {
	e := newEnv(t)
	p := e.createProject(t, "Doc")

	e.doUpload(t, "/api/v1/projects/"+p.ID+"/media", "files", []upload{
		{name: "a.jpg", content: "1"},
		{name: "b.jpg", content: "2"},
		{name: "c.jpg", content: "3"},
	})

	resp, body := e.doJSON(t, http.MethodPost, "/api/v1/projects/"+p.ID+"/media/reorder", api.ReorderRequest{From: 2, To: 0})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	media := e.getProject(t, p.ID).Media
	require.Len(t, media, 3)
	assert.Equal(t, "c.jpg", media[0].DisplayName)
	assert.Equal(t, "a.jpg", media[1].DisplayName)
	assert.Equal(t, "b.jpg", media[2].DisplayName)

	resp, body = e.doJSON(t, http.MethodPost, "/api/v1/projects/"+p.ID+"/media/reorder", api.ReorderRequest{From: 0, To: 9})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))
}

func TestSetAndClearAudio(t *testing.T) {
	e := newEnv(t)
	p := e.createProject(t, "Doc")

	resp, body := e.doUploadPut(t, "/api/v1/projects/"+p.ID+"/audio", "file", upload{name: "song.mp3", content: "180"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	got := e.getProject(t, p.ID)
	require.NotNil(t, got.Audio)
	assert.Equal(t, "song.mp3", got.Audio.DisplayName)

	resp, _ = e.doJSON(t, http.MethodDelete, "/api/v1/projects/"+p.ID+"/audio", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, e.getProject(t, p.ID).Audio)
}

func TestSetAudioRejectsUnsupportedType(t *testing.T) {
	e := newEnv(t)
	p := e.createProject(t, "Doc")

	resp, body := e.doUploadPut(t, "/api/v1/projects/"+p.ID+"/audio", "file", upload{name: "song.exe", content: "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))
}

// TestAutoAdjustment drives the whole loop over HTTP: three images at
// 5s against a 6s song must settle on a 2s interval with a notice.
func TestAutoAdjustment(t *testing.T) {
	e := newEnv(t)
	p := e.createProject(t, "Doc")

	e.doUpload(t, "/api/v1/projects/"+p.ID+"/media", "files", []upload{
		{name: "a.jpg", content: "1"},
		{name: "b.jpg", content: "2"},
		{name: "c.jpg", content: "3"},
	})

	resp, _ := e.doUploadPut(t, "/api/v1/projects/"+p.ID+"/audio", "file", upload{name: "song.mp3", content: "6"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool {
		_, body := e.doJSON(t, http.MethodGet, "/api/v1/projects/"+p.ID+"/adjustment", nil)
		var ar api.AdjustmentResponse
		if err := json.Unmarshal(body, &ar); err != nil || ar.Notice == nil {
			return false
		}
		return e.getProject(t, p.ID).Settings.IntervalSeconds == 2
	}, 5*time.Second, 20*time.Millisecond)

	_, body := e.doJSON(t, http.MethodGet, "/api/v1/projects/"+p.ID+"/adjustment", nil)
	var ar api.AdjustmentResponse
	require.NoError(t, json.Unmarshal(body, &ar))
	require.NotNil(t, ar.Notice)
	assert.Equal(t, "Slide speed automatically adjusted to 2s to match song length.", *ar.Notice)
}

func TestAdjustmentClearedWhenAudioRemoved(t *testing.T) {
	e := newEnv(t)
	p := e.createProject(t, "Doc")

	e.doUpload(t, "/api/v1/projects/"+p.ID+"/media", "files", []upload{
		{name: "a.jpg", content: "1"},
		{name: "b.jpg", content: "2"},
	})
	e.doUploadPut(t, "/api/v1/projects/"+p.ID+"/audio", "file", upload{name: "song.mp3", content: "4"})

	require.Eventually(t, func() bool {
		_, body := e.doJSON(t, http.MethodGet, "/api/v1/projects/"+p.ID+"/adjustment", nil)
		var ar api.AdjustmentResponse
		return json.Unmarshal(body, &ar) == nil && ar.Notice != nil
	}, 5*time.Second, 20*time.Millisecond)

	e.doJSON(t, http.MethodDelete, "/api/v1/projects/"+p.ID+"/audio", nil)

	require.Eventually(t, func() bool {
		_, body := e.doJSON(t, http.MethodGet, "/api/v1/projects/"+p.ID+"/adjustment", nil)
		var ar api.AdjustmentResponse
		return json.Unmarshal(body, &ar) == nil && ar.Notice == nil
	}, 5*time.Second, 20*time.Millisecond)
}

func TestStartPlayback(t *testing.T) {
	e := newEnv(t)
	p := e.createProject(t, "Doc")
	e.doUpload(t, "/api/v1/projects/"+p.ID+"/media", "files", []upload{
		{name: "a.jpg", content: "1"},
	})

	resp, body := e.doJSON(t, http.MethodPost, "/api/v1/playback/sessions", api.StartPlaybackRequest{ProjectID: p.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var sr api.PlaybackSessionResponse
	require.NoError(t, json.Unmarshal(body, &sr))
	assert.NotEmpty(t, sr.Session.ID)
	assert.Equal(t, p.ID, sr.Session.ProjectID)
	assert.Equal(t, 0, sr.Session.Index)
	assert.Equal(t, 1, sr.Session.MediaCount)

	resp, body = e.doJSON(t, http.MethodGet, "/api/v1/playback/sessions/"+sr.Session.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, _ = e.doJSON(t, http.MethodDelete, "/api/v1/playback/sessions/"+sr.Session.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = e.doJSON(t, http.MethodGet, "/api/v1/playback/sessions/"+sr.Session.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "SESSION_NOT_FOUND", errorCode(t, body))
}

func TestStartPlaybackValidation(t *testing.T) {
	e := newEnv(t)

	resp, body := e.doJSON(t, http.MethodPost, "/api/v1/playback/sessions", api.StartPlaybackRequest{ProjectID: "nope"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "PROJECT_NOT_FOUND", errorCode(t, body))

	p := e.createProject(t, "Empty")
	resp, body = e.doJSON(t, http.MethodPost, "/api/v1/playback/sessions", api.StartPlaybackRequest{ProjectID: p.ID})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))
}

func TestSessionEventsStreamsFirstSlide(t *testing.T) {
	e := newEnv(t)
	p := e.createProject(t, "Doc")
	e.doUpload(t, "/api/v1/projects/"+p.ID+"/media", "files", []upload{
		{name: "a.jpg", content: "1"},
	})

	_, body := e.doJSON(t, http.MethodPost, "/api/v1/playback/sessions", api.StartPlaybackRequest{ProjectID: p.ID})
	var sr api.PlaybackSessionResponse
	require.NoError(t, json.Unmarshal(body, &sr))

	resp, err := http.Get(e.ts.URL + "/api/v1/playback/sessions/" + sr.Session.ID + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// The current slide is replayed to every new subscriber.
	reader := bufio.NewReader(resp.Body)
	var eventLine, dataLine string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "event: ") {
			eventLine = line
		}
		if strings.HasPrefix(line, "data: ") {
			dataLine = line
			break
		}
	}
	assert.Equal(t, "event: slide", eventLine)

	var evt playback.Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(dataLine, "data: ")), &evt))
	require.NotNil(t, evt.Slide)
	assert.Equal(t, 0, evt.Slide.Index)
	assert.Equal(t, project.KindImage, evt.Slide.Kind)
}

func TestVideoEndedAdvancesSlide(t *testing.T) {
	e := newEnv(t)
	p := e.createProject(t, "Doc")
	e.doUpload(t, "/api/v1/projects/"+p.ID+"/media", "files", []upload{
		{name: "clip.mp4", content: "10"},
		{name: "a.jpg", content: "1"},
	})

	_, body := e.doJSON(t, http.MethodPost, "/api/v1/playback/sessions", api.StartPlaybackRequest{ProjectID: p.ID})
	var sr api.PlaybackSessionResponse
	require.NoError(t, json.Unmarshal(body, &sr))
	require.Equal(t, 0, sr.Session.Index)

	resp, _ := e.doJSON(t, http.MethodPost, "/api/v1/playback/sessions/"+sr.Session.ID+"/video-ended", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, body = e.doJSON(t, http.MethodGet, "/api/v1/playback/sessions/"+sr.Session.ID, nil)
	require.NoError(t, json.Unmarshal(body, &sr))
	assert.Equal(t, 1, sr.Session.Index)
}

func TestPlaybackErrorAccepted(t *testing.T) {
	e := newEnv(t)
	p := e.createProject(t, "Doc")
	e.doUpload(t, "/api/v1/projects/"+p.ID+"/media", "files", []upload{
		{name: "a.jpg", content: "1"},
	})

	_, body := e.doJSON(t, http.MethodPost, "/api/v1/playback/sessions", api.StartPlaybackRequest{ProjectID: p.ID})
	var sr api.PlaybackSessionResponse
	require.NoError(t, json.Unmarshal(body, &sr))

	resp, _ := e.doJSON(t, http.MethodPost, "/api/v1/playback/sessions/"+sr.Session.ID+"/playback-error", api.PlaybackErrorRequest{
		Source:  "audio",
		Message: "autoplay rejected",
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestCaptionsUnconfigured(t *testing.T) {
	e := newEnv(t)
	p := e.createProject(t, "Doc")

	resp, body := e.doJSON(t, http.MethodPost, "/api/v1/projects/"+p.ID+"/captions", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "SERVICE_UNAVAILABLE", errorCode(t, body))
}

func TestCaptionsEndToEnd(t *testing.T) {
	vision := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"A sandy beach"}}]}`))
	}))
	t.Cleanup(vision.Close)

	e := newEnv(t)
	client := captions.NewClient("key", captions.WithBaseURL(vision.URL))
	e.handler.SetCaptioner(captions.NewGenerator(client, time.Second, zerolog.Nop()))

	p := e.createProject(t, "Doc")
	e.doUpload(t, "/api/v1/projects/"+p.ID+"/media", "files", []upload{
		{name: "a.jpg", content: "1"},
		{name: "b.jpg", content: "2"},
	})

	resp, body := e.doJSON(t, http.MethodPost, "/api/v1/projects/"+p.ID+"/captions", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	require.Eventually(t, func() bool {
		_, body := e.doJSON(t, http.MethodGet, "/api/v1/projects/"+p.ID+"/captions", nil)
		var cs api.CaptionStatusResponse
		return json.Unmarshal(body, &cs) == nil && cs.Run.Status == captions.StatusDone
	}, 5*time.Second, 20*time.Millisecond)

	for _, m := range e.getProject(t, p.ID).Media {
		assert.Equal(t, "A sandy beach", m.Caption)
	}
}

func TestStreamMedia(t *testing.T) {
	e := newEnv(t)
	p := e.createProject(t, "Doc")

	_, body := e.doUpload(t, "/api/v1/projects/"+p.ID+"/media", "files", []upload{
		{name: "a.jpg", content: "jpeg-bytes"},
	})
	var ur api.UploadResponse
	require.NoError(t, json.Unmarshal(body, &ur))
	ref := ur.Added[0].ContentRef

	resp, err := http.Get(e.ts.URL + "/api/v1/media/" + ref)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	resp, err = http.Get(e.ts.URL + "/api/v1/media/missing.jpg")
	require.NoError(t, err)
	resp.Body.Close()
	// The ref is shaped fine but nothing is stored under it.
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
