package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/intake/internal/backend"
	"github.com/ManuGH/intake/internal/pipeline"
	"github.com/ManuGH/intake/internal/session"
	"github.com/ManuGH/intake/internal/submission"
)

type stubBackend struct {
	submitErr error
	submits   atomic.Int32
	jobs      []pipeline.JobRecord
}

func (b *stubBackend) Submit(context.Context, submission.Payload) (*backend.SubmitResult, error) {
	b.submits.Add(1)
	if b.submitErr != nil {
		return nil, b.submitErr
	}
	return &backend.SubmitResult{Status: "queued", JobID: "job-1", ProjectID: "proj-1", ProjectSlug: "talk"}, nil
}

func (b *stubBackend) ListJobs(context.Context) (*pipeline.Snapshot, error) {
	return &pipeline.Snapshot{Jobs: b.jobs}, nil
}

func newTestServer(t *testing.T, b *stubBackend, cfg Config) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	sess := session.New(ctx, b, session.Options{
		TrackInterval:       time.Hour,
		DiagnosticsInterval: time.Hour,
		RefreshRate:         100,
		RefreshBurst:        10,
		MaxDraftBytes:       1 << 20,
	})
	t.Cleanup(func() {
		sess.Close()
		cancel()
	})
	return New(cfg, sess, nil).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func uploadRequest(t *testing.T, files map[string]string, lastModified int64) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile(formFiles, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
		if lastModified > 0 {
			require.NoError(t, mw.WriteField(formLastModified, strconv.FormatInt(lastModified, 10)))
		}
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/draft/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestOptions(t *testing.T) {
	h := newTestServer(t, &stubBackend{}, Config{})
	w := do(t, h, http.MethodGet, "/api/options", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[optionsResponse](t, w)
	assert.Len(t, resp.TagCategories, len(submission.TagCategories()))
	assert.Equal(t, "source", resp.DefaultTagCategory)
	assert.Equal(t, "standard", resp.DefaultNoteDetail)
}

func TestAddFilesAndRemove(t *testing.T) {
	h := newTestServer(t, &stubBackend{}, Config{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, uploadRequest(t, map[string]string{"talk.mp3": "audio"}, 1700000000000))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decode[addFilesResponse](t, w)
	require.Len(t, resp.IDs, 1)
	assert.True(t, strings.HasPrefix(resp.IDs[0], "talk.mp3-1700000000000-"))
	require.Len(t, resp.Draft.Entries, 1)
	assert.Equal(t, int64(5), resp.Draft.Entries[0].Size)

	w = do(t, h, http.MethodDelete, "/api/draft/files/"+resp.IDs[0], nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[session.DraftView](t, w).Entries)

	w = do(t, h, http.MethodDelete, "/api/draft/files/"+resp.IDs[0], nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "entry_not_found", decode[errorBody](t, w).Error)
}

func TestAddFilesTooLarge(t *testing.T) {
	h := newTestServer(t, &stubBackend{}, Config{MaxUploadBytes: 64})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, uploadRequest(t, map[string]string{"big.wav": strings.Repeat("x", 4096)}, 0))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestAddFilesRequiresParts(t *testing.T) {
	h := newTestServer(t, &stubBackend{}, Config{})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, uploadRequest(t, nil, 0))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateDraft(t *testing.T) {
	h := newTestServer(t, &stubBackend{}, Config{})

	w := do(t, h, http.MethodPut, "/api/draft", map[string]string{"tag_category": "edge", "url_text": "https://a.example"})
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[session.DraftView](t, w)
	assert.Equal(t, "edge", view.TagCategory)
	assert.Equal(t, "https://a.example", view.URLText)

	w = do(t, h, http.MethodPut, "/api/draft", map[string]string{"note_detail": "verbose"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "unknown_option", decode[errorBody](t, w).Error)

	w = do(t, h, http.MethodPut, "/api/draft", map[string]string{"colour": "red"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", decode[errorBody](t, w).Error)

	w = do(t, h, http.MethodPost, "/api/draft/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	view = decode[session.DraftView](t, w)
	assert.Empty(t, view.URLText)
	assert.Equal(t, "edge", view.TagCategory)
}

func TestUpdateDraftOversizedBody(t *testing.T) {
	h := newTestServer(t, &stubBackend{}, Config{})

	w := do(t, h, http.MethodPut, "/api/draft", map[string]string{"url_text": strings.Repeat("a", 2<<20)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "too_large", decode[errorBody](t, w).Error)
}

func TestSubmitEmpty(t *testing.T) {
	b := &stubBackend{}
	h := newTestServer(t, b, Config{})

	w := do(t, h, http.MethodPost, "/api/submit", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errorBody{Error: "empty_submission", Detail: session.MsgEmptySubmission}, decode[errorBody](t, w))
	assert.Zero(t, b.submits.Load())
}

func TestSubmitSuccessTracksProject(t *testing.T) {
	b := &stubBackend{jobs: []pipeline.JobRecord{{
		JobID: "job-1", ProjectID: "proj-1", Status: pipeline.JobProcessing,
		Stages: []pipeline.StageSnapshot{{Stage: pipeline.StageIngest, Status: pipeline.StageRunning}},
	}}}
	h := newTestServer(t, b, Config{})

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/api/draft", map[string]string{"url_text": "https://talk.example"}).Code)

	w := do(t, h, http.MethodPost, "/api/submit", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[submitResponse](t, w)
	assert.Equal(t, "job-1", resp.Result.JobID)
	require.NotNil(t, resp.Message)
	assert.Equal(t, "Queued job job-1 for project talk.", resp.Message.Text)

	// the first tracking poll runs immediately after the switch
	require.Eventually(t, func() bool {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/pipeline", nil))
		var v session.PipelineView
		return json.Unmarshal(w.Body.Bytes(), &v) == nil && !v.Default
	}, 2*time.Second, 10*time.Millisecond)

	v := decode[session.PipelineView](t, do(t, h, http.MethodGet, "/api/pipeline", nil))
	assert.Equal(t, "Tracking project proj-1 (status: processing)", v.Header)
	assert.Equal(t, "job-1", v.JobID)
}

func TestSubmitBackendFailure(t *testing.T) {
	b := &stubBackend{submitErr: &backend.Error{Sentinel: backend.ErrSubmissionFailed, Op: "submit", Status: 500}}
	h := newTestServer(t, b, Config{})
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/api/draft", map[string]string{"url_text": "https://x.example"}).Code)

	w := do(t, h, http.MethodPost, "/api/submit", nil)
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, session.MsgSubmitFailed, decode[errorBody](t, w).Detail)

	draft := decode[session.DraftView](t, do(t, h, http.MethodGet, "/api/draft", nil))
	assert.Equal(t, "https://x.example", draft.URLText)
}

func TestSetActiveProject(t *testing.T) {
	h := newTestServer(t, &stubBackend{}, Config{})

	w := do(t, h, http.MethodPut, "/api/pipeline/active", setActiveRequest{ProjectID: "proj-9"})
	require.Equal(t, http.StatusOK, w.Code)
	v := decode[session.PipelineView](t, w)
	assert.Equal(t, "proj-9", v.ProjectID)
	assert.True(t, v.Default)
	assert.Len(t, v.Stages, len(pipeline.Catalog()))

	w = do(t, h, http.MethodPut, "/api/pipeline/active", setActiveRequest{})
	v = decode[session.PipelineView](t, w)
	assert.Equal(t, session.MsgIdle, v.Header)
}

func TestDiagnosticsLifecycle(t *testing.T) {
	b := &stubBackend{jobs: []pipeline.JobRecord{{JobID: "j2", ProjectID: "p2"}, {JobID: "j1", ProjectID: "p1"}}}
	h := newTestServer(t, b, Config{})

	w := do(t, h, http.MethodPost, "/api/diagnostics/refresh", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "diagnostics_not_mounted", decode[errorBody](t, w).Error)

	w = do(t, h, http.MethodPost, "/api/diagnostics/mount", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[session.DiagnosticsView](t, w).Mounted)

	w = do(t, h, http.MethodPost, "/api/diagnostics/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[session.DiagnosticsView](t, w)
	require.Len(t, view.Jobs, 2)
	assert.Equal(t, "j2", view.Jobs[0].JobID)

	w = do(t, h, http.MethodDelete, "/api/diagnostics/mount", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[session.DiagnosticsView](t, w).Mounted)
}

func TestUnknownRoute(t *testing.T) {
	h := newTestServer(t, &stubBackend{}, Config{})
	w := do(t, h, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{submission.ErrEmptySubmission, http.StatusBadRequest},
		{session.ErrSubmitInFlight, http.StatusConflict},
		{session.ErrDraftTooLarge, http.StatusRequestEntityTooLarge},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{errors.Join(ErrBadRequest, &http.MaxBytesError{Limit: 1}), http.StatusRequestEntityTooLarge},
		{ErrBadRequest, http.StatusBadRequest},
		{errors.Join(errors.New("x"), errors.New("y")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		code, _, _ := classify(tt.err)
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}
