package asr

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccp-p/conversation-annotator/pkg/models"
	"github.com/ccp-p/conversation-annotator/pkg/utils"
)

// fakeClock 每次 After 立即触发并推进时间
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	waits  []time.Duration
	onWait func()
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.waits = append(f.waits, d)
	now := f.now
	onWait := f.onWait
	f.mu.Unlock()
	if onWait != nil {
		onWait()
	}
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

// fakeSTTServer 按顺序返回预设的任务状态响应
type fakeSTTServer struct {
	mu           sync.Mutex
	t            *testing.T
	submitStatus int
	submitBody   string
	statuses     []string
	polls        int
	form         map[string]string
	fileName     string
	fileContent  string
	authHeader   string
}

func (s *fakeSTTServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/audio/speech_to_text_async", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		assert.Equal(s.t, http.MethodPost, r.Method)
		s.authHeader = r.Header.Get("Authorization")
		if !assert.NoError(s.t, r.ParseMultipartForm(1<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.form = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			s.form[k] = v[0]
		}
		if f, hdr, err := r.FormFile("file"); assert.NoError(s.t, err) {
			data, _ := io.ReadAll(f)
			s.fileName = hdr.Filename
			s.fileContent = string(data)
		}

		status := s.submitStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		io.WriteString(w, s.submitBody)
	})
	mux.HandleFunc("/v2/audio/speech_to_text_async/job-123", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		assert.Equal(s.t, http.MethodGet, r.Method)
		idx := s.polls
		if idx >= len(s.statuses) {
			idx = len(s.statuses) - 1
		}
		s.polls++
		io.WriteString(w, s.statuses[idx])
	})
	return mux
}

func (s *fakeSTTServer) pollCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

func newTestClient(t *testing.T, srv *httptest.Server, clock Clock, maxWait time.Duration) *JobClient {
	t.Helper()
	return NewJobClient(JobClientOptions{
		BaseURL:      srv.URL + "/v2",
		APIKey:       "test-key",
		Provider:     "deepgram",
		Language:     "en-US",
		Params:       DefaultProviderParams("general"),
		PollInterval: 5 * time.Second,
		MaxWait:      maxWait,
		HTTPClient:   srv.Client(),
		Clock:        clock,
	})
}

const finishedBody = `{"status":"finished","results":{"deepgram":{"text":"Hello world. Bye.","segments":[{"start":0,"end":10,"text":"Hello world."},{"start":10,"end":12.5,"text":"Bye."}]}}}`

func TestSubmitSendsProviderConfiguration(t *testing.T) {
	utils.InitLogger(utils.LogLevelQuiet, "")
	fake := &fakeSTTServer{t: t, submitBody: `{"public_id":"job-123"}`}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv, newFakeClock(), time.Minute)
	jobID, err := client.Submit(context.Background(), "talk.mp3", []byte("audio-bytes"))
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()

	assert.Equal(t, "job-123", jobID)
	assert.Equal(t, "Bearer test-key", fake.authHeader)
	assert.Equal(t, "deepgram", fake.form["providers"])
	assert.Equal(t, "en-US", fake.form["language"])
	assert.Equal(t, "false", fake.form["show_original_response"])
	assert.Equal(t, "talk.mp3", fake.fileName)
	assert.Equal(t, "audio-bytes", fake.fileContent)

	var params map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(fake.form["provider_params"]), &params))
	dg := params["deepgram"]
	assert.Equal(t, "general", dg["model"])
	assert.Equal(t, true, dg["punctuate"])
	assert.Equal(t, true, dg["diarize"])
	assert.Equal(t, false, dg["detect_topics"])
	assert.Equal(t, false, dg["auto_highlights"])
	assert.Equal(t, true, dg["smart_format"])
	assert.Equal(t, true, dg["utterances"])
	assert.Equal(t, true, dg["timestamps"])
}

func TestSubmitErrors(t *testing.T) {
	utils.InitLogger(utils.LogLevelQuiet, "")

	cases := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{name: "non-success status", status: http.StatusUnauthorized, body: `{"error":"bad key"}`, wantStatus: http.StatusUnauthorized},
		{name: "missing public_id", status: http.StatusOK, body: `{"id":"x"}`, wantStatus: http.StatusOK},
		{name: "invalid json", status: http.StatusOK, body: `not json`, wantStatus: http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeSTTServer{t: t, submitStatus: tc.status, submitBody: tc.body}
			srv := httptest.NewServer(fake.handler())
			defer srv.Close()

			client := newTestClient(t, srv, newFakeClock(), time.Minute)
			_, err := client.Submit(context.Background(), "a.mp3", []byte("x"))

			var subErr *SubmissionError
			require.True(t, errors.As(err, &subErr), "got %v", err)
			assert.Equal(t, tc.wantStatus, subErr.StatusCode)
			assert.Equal(t, tc.body, subErr.Body)
		})
	}
}

func TestSubmitTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	client := newTestClient(t, srv, newFakeClock(), time.Minute)
	srv.Close()

	_, err := client.Submit(context.Background(), "a.mp3", []byte("x"))
	var subErr *SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.Equal(t, 0, subErr.StatusCode)
	assert.NotNil(t, subErr.Cause)
}

func TestPollUntilFinished(t *testing.T) {
	utils.InitLogger(utils.LogLevelQuiet, "")
	fake := &fakeSTTServer{t: t, statuses: []string{
		`{"status":"queued"}`,
		`{"status":"processing"}`,
		finishedBody,
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	clock := newFakeClock()
	client := newTestClient(t, srv, clock, time.Hour)

	var progress []int
	result, err := client.Poll(context.Background(), "job-123", func(p int, _ string) {
		progress = append(progress, p)
	})
	require.NoError(t, err)

	assert.Equal(t, 3, fake.pollCount())
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 5 * time.Second}, clock.waits)
	assert.Equal(t, "job-123", result.JobID)
	assert.Equal(t, "deepgram", result.Provider)
	assert.Equal(t, "Hello world. Bye.", result.FullText())
	assert.Equal(t, []models.Segment{
		{Start: 0, End: 10, Text: "Hello world."},
		{Start: 10, End: 12.5, Text: "Bye."},
	}, result.Segments)
	require.NotEmpty(t, progress)
	assert.Equal(t, 100, progress[len(progress)-1])
}

func TestPollStopsOnFirstTerminalStatus(t *testing.T) {
	utils.InitLogger(utils.LogLevelQuiet, "")
	// 状态顺序乱序也只在终止状态停止
	fake := &fakeSTTServer{t: t, statuses: []string{
		`{"status":"processing"}`,
		`{"status":"queued"}`,
		`{"status":"something-new"}`,
		`{"status":"failed","error":"provider crashed"}`,
		finishedBody,
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv, newFakeClock(), time.Hour)
	_, err := client.Poll(context.Background(), "job-123", nil)

	var failed *JobFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, "job-123", failed.JobID)
	assert.Contains(t, failed.Body, "provider crashed")
	assert.Equal(t, 4, fake.pollCount())
}

func TestPollMalformedResults(t *testing.T) {
	utils.InitLogger(utils.LogLevelQuiet, "")

	cases := map[string]string{
		"missing results":     `{"status":"finished"}`,
		"empty results":       `{"status":"finished","results":{}}`,
		"provider not object": `{"status":"finished","results":{"deepgram":"oops"}}`,
		"bad segments":        `{"status":"finished","results":{"deepgram":{"segments":"nope"}}}`,
		"inverted segment":    `{"status":"finished","results":{"deepgram":{"segments":[{"start":5,"end":1,"text":"x"}]}}}`,
		"status not json":     `<html>`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			fake := &fakeSTTServer{t: t, statuses: []string{body}}
			srv := httptest.NewServer(fake.handler())
			defer srv.Close()

			client := newTestClient(t, srv, newFakeClock(), time.Hour)
			_, err := client.Poll(context.Background(), "job-123", nil)

			var malformed *MalformedResultError
			require.True(t, errors.As(err, &malformed), "got %v", err)
			assert.Equal(t, "job-123", malformed.JobID)
			assert.Equal(t, body, malformed.Body)
		})
	}
}

func TestPollFallsBackToFirstProviderKey(t *testing.T) {
	utils.InitLogger(utils.LogLevelQuiet, "")
	fake := &fakeSTTServer{t: t, statuses: []string{
		`{"status":"finished","results":{"zeta":{"text":"z"},"assembly":{"transcript":"from assembly"}}}`,
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv, newFakeClock(), time.Hour)
	result, err := client.Poll(context.Background(), "job-123", nil)
	require.NoError(t, err)
	assert.Equal(t, "assembly", result.Provider)
	assert.Equal(t, "from assembly", result.FullText())
	assert.False(t, result.HasSegments())
}

func TestPollDefaultsMissingSegmentTimesToZero(t *testing.T) {
	utils.InitLogger(utils.LogLevelQuiet, "")
	fake := &fakeSTTServer{t: t, statuses: []string{
		`{"status":"finished","results":{"deepgram":{"text":"hi","segments":[{"text":"hi"}]}}}`,
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv, newFakeClock(), time.Hour)
	result, err := client.Poll(context.Background(), "job-123", nil)
	require.NoError(t, err)
	assert.Equal(t, []models.Segment{{Start: 0, End: 0, Text: "hi"}}, result.Segments)
}

func TestPollHTTPError(t *testing.T) {
	utils.InitLogger(utils.LogLevelQuiet, "")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream down")
	}))
	defer srv.Close()

	client := newTestClient(t, srv, newFakeClock(), time.Hour)
	_, err := client.Poll(context.Background(), "job-123", nil)

	var pollErr *PollError
	require.True(t, errors.As(err, &pollErr))
	assert.Equal(t, http.StatusBadGateway, pollErr.StatusCode)
	assert.Equal(t, "upstream down", pollErr.Body)
}

func TestPollTimesOut(t *testing.T) {
	utils.InitLogger(utils.LogLevelQuiet, "")
	fake := &fakeSTTServer{t: t, statuses: []string{`{"status":"processing"}`}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv, newFakeClock(), 20*time.Second)
	_, err := client.Poll(context.Background(), "job-123", nil)

	assert.ErrorIs(t, err, ErrPollTimeout)
	assert.Equal(t, 4, fake.pollCount())
}

func TestPollHonoursCancellation(t *testing.T) {
	utils.InitLogger(utils.LogLevelQuiet, "")
	fake := &fakeSTTServer{t: t, statuses: []string{`{"status":"processing"}`}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := newFakeClock()
	client := newTestClient(t, srv, clock, time.Hour)
	clock.onWait = func() {
		if len(clock.waits) == 2 {
			cancel()
		}
	}

	_, err := client.Poll(ctx, "job-123", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, fake.pollCount(), 2)
}

func TestEdenAsyncASRGetResult(t *testing.T) {
	utils.InitLogger(utils.LogLevelQuiet, "")
	fake := &fakeSTTServer{t: t, submitBody: `{"public_id":"job-123"}`, statuses: []string{finishedBody}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	audio := filepath.Join(t.TempDir(), "interview.mp3")
	require.NoError(t, os.WriteFile(audio, []byte("ID3 fake mp3"), 0644))

	service, err := NewEdenAsyncASR(audio, newTestClient(t, srv, newFakeClock(), time.Hour))
	require.NoError(t, err)
	assert.Len(t, service.CRC32Hex, 8)

	result, err := service.GetResult(context.Background(), nil)
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, "interview.mp3", fake.fileName)
	assert.Equal(t, "ID3 fake mp3", fake.fileContent)
	assert.Len(t, result.Segments, 2)
}

func TestNewEdenAsyncASRInvalidInput(t *testing.T) {
	_, err := NewEdenAsyncASR("/definitely/missing.mp3", NewJobClient(JobClientOptions{}))
	assert.Error(t, err)

	_, err = NewEdenAsyncASR("whatever.mp3", nil)
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.mp3")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	_, err = NewBaseASR(empty)
	assert.Error(t, err)
}

func TestNewJobClientDefaults(t *testing.T) {
	cfg := models.NewDefaultConfig()
	client := NewJobClientFromConfig(cfg, nil)
	assert.Equal(t, DefaultPollInterval, client.pollInterval)
	assert.Equal(t, 30*time.Minute, client.maxWait)
	assert.Equal(t, "https://api.edenai.run/v2/", client.baseURL)

	bare := NewJobClient(JobClientOptions{BaseURL: "http://x"})
	assert.Equal(t, DefaultMaxWait, bare.maxWait)
	assert.Equal(t, "http://x/", bare.baseURL)
	assert.NotNil(t, bare.clock)
}
