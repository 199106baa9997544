package annotate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccp-p/conversation-annotator/pkg/models"
)

type capturedRequest struct {
	path   string
	auth   string
	ctype  string
	fields map[string]interface{}
}

func newAnalysisServer(t *testing.T, status int, body string) (*httptest.Server, func() capturedRequest) {
	t.Helper()
	var (
		mu       sync.Mutex
		captured capturedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		data, _ := io.ReadAll(r.Body)
		captured = capturedRequest{
			path:  r.URL.Path,
			auth:  r.Header.Get("Authorization"),
			ctype: r.Header.Get("Content-Type"),
		}
		assert.NoError(t, json.Unmarshal(data, &captured.fields))
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, func() capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return captured
	}
}

func TestDetectEmotions(t *testing.T) {
	srv, captured := newAnalysisServer(t, http.StatusOK,
		`{"results":{"openai":{"items":[{"emotion":"joy","start_time":1,"end_time":2},{"emotion":"fear","start_time":3.5,"end_time":4}]}}}`)

	client := NewTextAnalysisClient("key", srv.URL+"/v2", "openai", "en", srv.Client())
	spans, err := client.DetectEmotions(context.Background(), "Hello world")
	require.NoError(t, err)

	assert.Equal(t, []models.EmotionSpan{
		{Emotion: "joy", StartTime: 1, EndTime: 2},
		{Emotion: "fear", StartTime: 3.5, EndTime: 4},
	}, spans)

	req := captured()
	assert.Equal(t, "/v2/text/emotion_detection", req.path)
	assert.Equal(t, "Bearer key", req.auth)
	assert.Equal(t, "application/json", req.ctype)
	assert.Equal(t, "openai", req.fields["providers"])
	assert.Equal(t, "en", req.fields["language"])
	assert.Equal(t, "Hello world", req.fields["text"])
}

func TestDetectIndicatorsSendsVocabulary(t *testing.T) {
	srv, captured := newAnalysisServer(t, http.StatusOK,
		`{"results":{"openai":{"items":[{"entity":"Goal","start":3,"end":4},{"entity":"Money"}]}}}`)

	client := NewTextAnalysisClient("key", srv.URL+"/v2/", "openai", "en", srv.Client())
	spans, err := client.DetectIndicators(context.Background(), "We want to save money")
	require.NoError(t, err)

	// 缺失的时间字段默认为0
	assert.Equal(t, []models.IndicatorSpan{
		{Entity: "Goal", Start: 3, End: 4},
		{Entity: "Money", Start: 0, End: 0},
	}, spans)

	req := captured()
	assert.Equal(t, "/v2/text/custom_named_entity_recognition", req.path)
	assert.Equal(t, "openai", req.fields["providers"])
	assert.NotContains(t, req.fields, "language")

	entities, ok := req.fields["entities"].([]interface{})
	require.True(t, ok)
	require.Len(t, entities, 12)
	assert.Equal(t, "Excited", entities[0])
	assert.Equal(t, "Follow-up task", entities[11])
}

func TestDetectMissingResultPathIsEmpty(t *testing.T) {
	for _, body := range []string{`{}`, `{"results":{}}`, `{"results":{"other":{"items":[{"emotion":"joy"}]}}}`, `{"results":{"openai":{}}}`} {
		srv, _ := newAnalysisServer(t, http.StatusOK, body)
		client := NewTextAnalysisClient("key", srv.URL, "openai", "en", srv.Client())

		spans, err := client.DetectEmotions(context.Background(), "text")
		require.NoError(t, err, body)
		assert.NotNil(t, spans)
		assert.Empty(t, spans)
	}
}

func TestDetectNonSuccessStatus(t *testing.T) {
	srv, _ := newAnalysisServer(t, http.StatusInternalServerError, `{"error":"quota"}`)
	client := NewTextAnalysisClient("key", srv.URL, "openai", "en", srv.Client())

	_, err := client.DetectIndicators(context.Background(), "text")
	var annErr *AnnotationError
	require.True(t, errors.As(err, &annErr))
	assert.Equal(t, KindIndicator, annErr.Kind)
	assert.Equal(t, http.StatusInternalServerError, annErr.StatusCode)
	assert.Equal(t, `{"error":"quota"}`, annErr.Body)
	assert.Contains(t, annErr.Error(), "HTTP 500")
}

func TestDetectMalformedBody(t *testing.T) {
	srv, _ := newAnalysisServer(t, http.StatusOK, `{"results":{"openai":{"items":"nope"}}}`)
	client := NewTextAnalysisClient("key", srv.URL, "openai", "en", srv.Client())

	_, err := client.DetectEmotions(context.Background(), "text")
	var annErr *AnnotationError
	require.True(t, errors.As(err, &annErr))
	assert.Equal(t, KindEmotion, annErr.Kind)
	assert.NotNil(t, annErr.Cause)
}

func TestDetectTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	client := NewTextAnalysisClient("key", srv.URL, "openai", "en", srv.Client())
	srv.Close()

	_, err := client.DetectEmotions(context.Background(), "text")
	var annErr *AnnotationError
	require.True(t, errors.As(err, &annErr))
	assert.Equal(t, 0, annErr.StatusCode)
}

func TestIndicatorLabels(t *testing.T) {
	labels := IndicatorLabels()
	require.Len(t, labels, 12)
	labels[0] = "mutated"
	assert.Equal(t, "Excited", IndicatorLabels()[0])

	assert.True(t, IsIndicatorLabel("Feature request"))
	assert.True(t, IsIndicatorLabel("Mentioned specific person or company"))
	assert.False(t, IsIndicatorLabel("joy"))
}

func TestNewTextAnalysisClientFromConfig(t *testing.T) {
	cfg := models.NewDefaultConfig()
	cfg.APIKey = "abc"
	client := NewTextAnalysisClientFromConfig(cfg, nil)
	assert.Equal(t, "abc", client.APIKey)
	assert.Equal(t, "openai", client.Provider)
	assert.Equal(t, "en", client.Language)
	assert.Equal(t, models.DefaultBaseURL, client.BaseURL)
	assert.NotNil(t, client.HttpClient)
}
