package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/intake/internal/backend"
	xglog "github.com/ManuGH/intake/internal/log"
	"github.com/ManuGH/intake/internal/pipeline"
	"github.com/ManuGH/intake/internal/submission"
)

type fakeBackend struct {
	mu       sync.Mutex
	submitFn func(ctx context.Context, p submission.Payload) (*backend.SubmitResult, error)
	listFn   func(ctx context.Context) (*pipeline.Snapshot, error)
	submits  atomic.Int32
	lists    atomic.Int32
	lastSent submission.Payload
}

func (f *fakeBackend) Submit(ctx context.Context, p submission.Payload) (*backend.SubmitResult, error) {
	f.submits.Add(1)
	f.mu.Lock()
	f.lastSent = p
	fn := f.submitFn
	f.mu.Unlock()
	return fn(ctx, p)
}

func (f *fakeBackend) ListJobs(ctx context.Context) (*pipeline.Snapshot, error) {
	f.lists.Add(1)
	f.mu.Lock()
	fn := f.listFn
	f.mu.Unlock()
	if fn == nil {
		return &pipeline.Snapshot{Jobs: []pipeline.JobRecord{}}, nil
	}
	return fn(ctx)
}

func (f *fakeBackend) setList(fn func(ctx context.Context) (*pipeline.Snapshot, error)) {
	f.mu.Lock()
	f.listFn = fn
	f.mu.Unlock()
}

func queued(projectID string) func(context.Context, submission.Payload) (*backend.SubmitResult, error) {
	return func(context.Context, submission.Payload) (*backend.SubmitResult, error) {
		return &backend.SubmitResult{Status: "queued", JobID: "job-" + projectID, ProjectID: projectID, ProjectSlug: "slug-" + projectID}, nil
	}
}

func jobSnapshot(projectID string, status pipeline.JobStatus, stages ...pipeline.StageSnapshot) *pipeline.Snapshot {
	return &pipeline.Snapshot{Jobs: []pipeline.JobRecord{{
		JobID:     "job-" + projectID,
		ProjectID: projectID,
		Status:    status,
		Stages:    stages,
		Errors:    []string{},
	}}}
}

func fastOptions() Options {
	return Options{TrackInterval: 10 * time.Millisecond, DiagnosticsInterval: 10 * time.Millisecond, RefreshRate: 1000, RefreshBurst: 100}
}

func TestSubmit_SuccessTracksNewProject(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fb := &fakeBackend{submitFn: queued("proj-1")}
	fb.setList(func(context.Context) (*pipeline.Snapshot, error) {
		return jobSnapshot("proj-1", pipeline.JobProcessing,
			pipeline.StageSnapshot{Stage: pipeline.StageIngest, Status: pipeline.StageSucceeded},
			pipeline.StageSnapshot{Stage: pipeline.StageTranscribe, Status: pipeline.StageRunning},
		), nil
	})
	s := New(context.Background(), fb, fastOptions())
	defer s.Close()

	assert.Equal(t, MsgIdle, s.Pipeline().Header)
	assert.Zero(t, fb.lists.Load(), "no polling without an active project")

	_, err := s.AddFiles([]submission.File{{Name: "a.pdf", Content: []byte("%PDF")}})
	require.NoError(t, err)
	_, err = s.UpdateDraft(DraftUpdate{URLText: ptr("https://a.example")})
	require.NoError(t, err)

	res, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "proj-1", res.ProjectID)
	assert.Equal(t, "proj-1", s.ActiveProject())

	d := s.Draft()
	assert.Empty(t, d.Entries)
	assert.Empty(t, d.URLText)
	assert.Equal(t, "source", d.TagCategory, "classification survives a successful submit")
	require.NotNil(t, d.Message)
	assert.Equal(t, Message{Kind: KindSuccess, Text: "Queued job job-proj-1 for project slug-proj-1."}, *d.Message)

	require.Eventually(t, func() bool { return !s.Pipeline().Default }, time.Second, 5*time.Millisecond)
	v := s.Pipeline()
	assert.Equal(t, "Tracking project proj-1 (status: processing)", v.Header)
	want := []pipeline.StageSnapshot{
		{Stage: pipeline.StageIngest, Status: pipeline.StageSucceeded},
		{Stage: pipeline.StageTranscribe, Status: pipeline.StageRunning},
	}
	if diff := cmp.Diff(want, v.Stages); diff != "" {
		t.Errorf("stages mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmit_EmptyNeverReachesBackend(t *testing.T) {
	fb := &fakeBackend{submitFn: queued("x")}
	s := New(context.Background(), fb, fastOptions())
	defer s.Close()

	_, err := s.UpdateDraft(DraftUpdate{URLText: ptr("   \n  "), ProjectLabel: ptr("label")})
	require.NoError(t, err)

	_, err = s.Submit(context.Background())
	require.ErrorIs(t, err, submission.ErrEmptySubmission)
	assert.Zero(t, fb.submits.Load())
	assert.Equal(t, &Message{Kind: KindError, Text: MsgEmptySubmission}, s.Draft().Message)
	assert.Empty(t, s.ActiveProject())
}

func TestSubmit_FailureKeepsDraft(t *testing.T) {
	fb := &fakeBackend{submitFn: func(context.Context, submission.Payload) (*backend.SubmitResult, error) {
		return nil, errors.New("connection reset")
	}}
	s := New(context.Background(), fb, fastOptions())
	defer s.Close()

	ids, err := s.AddFiles([]submission.File{{Name: "a.pdf"}, {Name: "b.pdf"}})
	require.NoError(t, err)
	_, err = s.UpdateDraft(DraftUpdate{URLText: ptr("https://a.example"), TagCategory: ptr("edge")})
	require.NoError(t, err)

	_, err = s.Submit(context.Background())
	require.ErrorIs(t, err, backend.ErrSubmissionFailed)

	d := s.Draft()
	require.Len(t, d.Entries, 2)
	assert.Equal(t, ids[0], d.Entries[0].ID)
	assert.Equal(t, "https://a.example", d.URLText)
	assert.Equal(t, "edge", d.TagCategory)
	assert.Equal(t, &Message{Kind: KindError, Text: MsgSubmitFailed}, d.Message)
	assert.False(t, d.Submitting)
	assert.Empty(t, s.ActiveProject(), "failed submission must not change tracking")
}

func TestSubmit_SecondSubmitWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	fb := &fakeBackend{submitFn: func(context.Context, submission.Payload) (*backend.SubmitResult, error) {
		close(entered)
		<-release
		return queued("proj-1")(context.Background(), submission.Payload{})
	}}
	s := New(context.Background(), fb, fastOptions())
	defer s.Close()

	_, err := s.AddFiles([]submission.File{{Name: "a.pdf"}})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		done <- err
	}()
	<-entered

	assert.True(t, s.Draft().Submitting)
	_, err = s.Submit(context.Background())
	require.ErrorIs(t, err, ErrSubmitInFlight)

	// Files added while the upload runs are not part of it and must survive.
	late, err := s.AddFiles([]submission.File{{Name: "late.pdf"}})
	require.NoError(t, err)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), fb.submits.Load())

	d := s.Draft()
	require.Len(t, d.Entries, 1)
	assert.Equal(t, late[0], d.Entries[0].ID)
}

func TestSubmit_CallerCancellationDoesNotAbortUpload(t *testing.T) {
	fb := &fakeBackend{submitFn: func(ctx context.Context, _ submission.Payload) (*backend.SubmitResult, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return queued("proj-1")(ctx, submission.Payload{})
	}}
	s := New(context.Background(), fb, fastOptions())
	defer s.Close()

	_, err := s.AddFiles([]submission.File{{Name: "a.pdf"}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Submit(ctx)
	require.NoError(t, err)
}

func TestSetActiveProject_UntrackStopsPollingAndDropsLateResponse(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	inFlight := make(chan struct{}, 1)
	fb := &fakeBackend{}
	fb.setList(func(ctx context.Context) (*pipeline.Snapshot, error) {
		inFlight <- struct{}{}
		<-ctx.Done()
		// The response lands just as the request is abandoned.
		return jobSnapshot("proj-1", pipeline.JobCompleted), nil
	})
	s := New(context.Background(), fb, fastOptions())
	defer s.Close()

	s.SetActiveProject("proj-1")
	<-inFlight

	s.SetActiveProject("")
	calls := fb.lists.Load()

	assert.Nil(t, s.tracking.State().Snapshot, "late response must be discarded")
	v := s.Pipeline()
	assert.True(t, v.Default)
	assert.Equal(t, MsgIdle, v.Header)
	assert.False(t, v.Fetching)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, fb.lists.Load(), "no requests while nothing is tracked")
}

func TestSetActiveProject_SwitchShowsNoStaleState(t *testing.T) {
	fb := &fakeBackend{}
	fb.setList(func(context.Context) (*pipeline.Snapshot, error) {
		snap := jobSnapshot("proj-a", pipeline.JobFailed,
			pipeline.StageSnapshot{Stage: pipeline.StageIngest, Status: pipeline.StageFailed})
		snap.Jobs[0].Errors = []string{"ingest: unreadable file"}
		return snap, nil
	})
	s := New(context.Background(), fb, fastOptions())
	defer s.Close()

	s.SetActiveProject("proj-a")
	require.Eventually(t, func() bool { return !s.Pipeline().Default }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"ingest: unreadable file"}, s.Pipeline().Errors)

	s.SetActiveProject("proj-b")
	v := s.Pipeline()
	assert.True(t, v.Default)
	assert.Equal(t, "proj-b", v.ProjectID)
	assert.Empty(t, v.Errors)
	assert.Equal(t, pipeline.DefaultStages(), v.Stages)
	assert.Equal(t, "Tracking project proj-b (status: n/a)", v.Header)
}

func TestSetActiveProject_SwitchClearsDegradedFlag(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	block := make(chan struct{})
	defer close(block)

	fb := &fakeBackend{}
	fb.setList(func(ctx context.Context) (*pipeline.Snapshot, error) {
		if failing.Load() {
			return nil, errors.New("p1 poll failed")
		}
		select {
		case <-block:
		case <-ctx.Done():
		}
		return jobSnapshot("p2", pipeline.JobQueued), nil
	})
	s := New(context.Background(), fb, fastOptions())
	defer s.Close()

	s.SetActiveProject("p1")
	require.Eventually(t, func() bool { return s.Pipeline().Degraded }, time.Second, 5*time.Millisecond)

	failing.Store(false)
	s.SetActiveProject("p2")
	v := s.Pipeline()
	assert.False(t, v.Degraded)
	assert.Empty(t, v.Error)
	assert.True(t, v.Default)
}

func TestPipeline_DegradedKeepsLastKnownGood(t *testing.T) {
	var fail atomic.Bool
	fb := &fakeBackend{}
	fb.setList(func(context.Context) (*pipeline.Snapshot, error) {
		if fail.Load() {
			return nil, errors.New("backend down")
		}
		return jobSnapshot("proj-1", pipeline.JobProcessing,
			pipeline.StageSnapshot{Stage: pipeline.StageIngest, Status: pipeline.StageSucceeded}), nil
	})
	s := New(context.Background(), fb, fastOptions())
	defer s.Close()

	s.SetActiveProject("proj-1")
	require.Eventually(t, func() bool { return !s.Pipeline().Default }, time.Second, 5*time.Millisecond)

	fail.Store(true)
	require.Eventually(t, func() bool { return s.Pipeline().Degraded }, time.Second, 5*time.Millisecond)

	v := s.Pipeline()
	assert.False(t, v.Default)
	assert.Equal(t, pipeline.JobProcessing, v.JobStatus)
	assert.Contains(t, v.Error, "backend down")
	assert.NotNil(t, v.LastUpdated)
}

func TestDiagnostics_MountRefreshUnmount(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fb := &fakeBackend{}
	fb.setList(func(context.Context) (*pipeline.Snapshot, error) {
		return &pipeline.Snapshot{Jobs: []pipeline.JobRecord{
			{JobID: "job-2", ProjectID: "proj-2"},
			{JobID: "job-1", ProjectID: "proj-1"},
		}}, nil
	})
	opts := fastOptions()
	opts.DiagnosticsInterval = time.Hour
	s := New(context.Background(), fb, opts)
	defer s.Close()

	_, err := s.RefreshDiagnostics(context.Background())
	require.ErrorIs(t, err, ErrNotMounted)
	assert.False(t, s.Diagnostics().Loaded)

	s.MountDiagnostics()
	require.Eventually(t, func() bool { return s.Diagnostics().Loaded }, time.Second, 5*time.Millisecond)

	before := fb.lists.Load()
	v, err := s.RefreshDiagnostics(context.Background())
	require.NoError(t, err)
	assert.Greater(t, fb.lists.Load(), before)
	require.Len(t, v.Jobs, 2)
	assert.Equal(t, "job-2", v.Jobs[0].JobID, "backend order is kept")
	assert.True(t, v.Mounted)

	v = s.UnmountDiagnostics()
	assert.False(t, v.Mounted)
	assert.True(t, v.Loaded, "last data stays available after unmount")
	assert.Empty(t, s.ActiveProject(), "diagnostics and tracking are independent")
}

func TestUpdateDraft_InvalidOptionChangesNothing(t *testing.T) {
	s := New(context.Background(), &fakeBackend{}, fastOptions())
	defer s.Close()

	_, err := s.UpdateDraft(DraftUpdate{URLText: ptr("https://a.example"), TagCategory: ptr("gossip")})
	require.ErrorIs(t, err, submission.ErrUnknownOption)

	d := s.Draft()
	assert.Empty(t, d.URLText)
	assert.Equal(t, "source", d.TagCategory)
}

func TestAddFiles_ByteBudget(t *testing.T) {
	opts := fastOptions()
	opts.MaxDraftBytes = 10
	s := New(context.Background(), &fakeBackend{}, opts)
	defer s.Close()

	_, err := s.AddFiles([]submission.File{{Name: "a", Content: make([]byte, 6)}})
	require.NoError(t, err)
	_, err = s.AddFiles([]submission.File{{Name: "b", Content: make([]byte, 2)}, {Name: "c", Content: make([]byte, 3)}})
	require.ErrorIs(t, err, ErrDraftTooLarge)
	assert.Len(t, s.Draft().Entries, 1, "a rejected batch adds nothing")
}

func TestRemoveFile(t *testing.T) {
	s := New(context.Background(), &fakeBackend{}, fastOptions())
	defer s.Close()

	ids, err := s.AddFiles([]submission.File{{Name: "a"}})
	require.NoError(t, err)
	require.NoError(t, s.RemoveFile(ids[0]))
	require.ErrorIs(t, s.RemoveFile(ids[0]), ErrEntryNotFound)
}

func TestObserveTracking_LogsRegressions(t *testing.T) {
	var buf bytes.Buffer
	xglog.Configure(xglog.Config{Output: &buf, Level: "debug"})
	defer xglog.Configure(xglog.Config{Output: io.Discard})

	s := New(context.Background(), &fakeBackend{}, fastOptions())
	defer s.Close()
	s.mu.Lock()
	s.active = "proj-1"
	s.mu.Unlock()

	prev := jobSnapshot("proj-1", pipeline.JobProcessing,
		pipeline.StageSnapshot{Stage: pipeline.StageIngest, Status: pipeline.StageSucceeded})
	next := jobSnapshot("proj-1", pipeline.JobProcessing,
		pipeline.StageSnapshot{Stage: pipeline.StageIngest, Status: pipeline.StageRunning})
	s.observeTracking(prev, next)

	var found bool
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["event"] == "pipeline.stage_regressed" {
			found = true
			assert.Equal(t, "ingest", entry["stage"])
			assert.Equal(t, "succeeded", entry["old_state"])
			assert.Equal(t, "running", entry["new_state"])
		}
	}
	assert.True(t, found, "regression must be logged")
	assert.Equal(t, pipeline.StageRunning, next.Jobs[0].Stages[0].Status, "data is never rewritten")
}

// Exercises the whole path against a real HTTP backend.
func TestSession_AgainstHTTPBackend(t *testing.T) {
	fieldsCh := make(chan map[string][]string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/ingest/submit":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			fieldsCh <- r.MultipartForm.Value
			_, _ = io.WriteString(w, `{"status":"queued","job_id":"job-9","project_id":"proj-9","project_slug":"talk","project_dir":"/v/talk","files":[],"references":[]}`)
		case "/api/diagnostics/jobs":
			_, _ = io.WriteString(w, `{"jobs":[{"job_id":"job-9","project_id":"proj-9","created_at":"2025-03-01T10:00:00","status":"queued","metadata":{},"stages":[{"stage":"ingest","status":"running","started_at":"2025-03-01T10:00:01"}],"errors":[]}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, err := backend.New(srv.URL + "/api")
	require.NoError(t, err)
	s := New(context.Background(), client, fastOptions())
	defer s.Close()

	_, err = s.UpdateDraft(DraftUpdate{URLText: ptr("https://a.example\n"), NoteDetail: ptr("deep"), ProjectLabel: ptr("  Talk ")})
	require.NoError(t, err)
	res, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "job-9", res.JobID)

	gotFields := <-fieldsCh
	assert.Equal(t, []string{"https://a.example\n"}, gotFields["reference_urls"])
	assert.Equal(t, []string{"deep"}, gotFields["note_detail"])
	assert.Equal(t, []string{"Talk"}, gotFields["project_label"])

	require.Eventually(t, func() bool { return !s.Pipeline().Default }, 2*time.Second, 10*time.Millisecond)
	v := s.Pipeline()
	assert.Equal(t, "job-9", v.JobID)
	require.Len(t, v.Stages, 1)
	assert.Equal(t, pipeline.StageRunning, v.Stages[0].Status)
}

func ptr(s string) *string { return &s }

func TestSchedulers(t *testing.T) {
	s := New(context.Background(), &fakeBackend{}, Options{TrackInterval: 4 * time.Second, DiagnosticsInterval: 8 * time.Second})
	defer s.Close()

	got := map[string]time.Duration{}
	for _, sc := range s.Schedulers() {
		got[sc.Name()] = sc.Interval()
	}
	assert.Equal(t, map[string]time.Duration{
		TrackingScheduler:    4 * time.Second,
		DiagnosticsScheduler: 8 * time.Second,
	}, got)
}
