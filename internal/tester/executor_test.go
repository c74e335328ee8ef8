package tester

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/moamenhredeen/apihacker/internal/config"
	"github.com/moamenhredeen/apihacker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordedRequest struct {
	Method  string
	Path    string
	Headers http.Header
	Body    map[string]int
}

// recordingServer answers every request with status and remembers what it received
type recordingServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
}

func newRecordingServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *recordingServer {
	t.Helper()
	rs := &recordingServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Headers: r.Header.Clone()}
		if r.ContentLength > 0 {
			_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		}
		rs.mu.Lock()
		rs.requests = append(rs.requests, rec)
		rs.mu.Unlock()

		if handler != nil {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *recordingServer) Requests() []recordedRequest {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]recordedRequest(nil), rs.requests...)
}

func newTestExecutor(t *testing.T, rawHeaders []string) (*Executor, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)

	cfg := config.Default()
	cfg.Timeout = 2 * time.Second
	client, err := NewClient(cfg)
	require.NoError(t, err)

	return NewExecutor(client, NewRequestBuilder(nil, rawHeaders), zap.New(core)), logs
}

func TestExecuteGETWithBody(t *testing.T) {
	server := newRecordingServer(t, nil)
	exec, _ := newTestExecutor(t, []string{"Authorization: Bearer abc"})

	outcome := exec.Execute(context.Background(), models.Operation{
		Path:       "/users/{userId}",
		Method:     "get",
		Parameters: []models.Parameter{{Name: "verbose"}},
	}, server.URL)

	assert.Equal(t, models.OutcomeSent, outcome.Kind)
	assert.Equal(t, http.StatusOK, outcome.StatusCode)

	reqs := server.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "GET", reqs[0].Method)
	assert.Regexp(t, `^/users/\d+$`, reqs[0].Path)
	assert.Equal(t, "Bearer abc", reqs[0].Headers.Get("Authorization"))
	assert.Equal(t, "application/json", reqs[0].Headers.Get("Content-Type"))
	assert.Equal(t, UserAgent, reqs[0].Headers.Get("User-Agent"))
	assert.Contains(t, reqs[0].Body, "verbose")
}

func TestExecuteMethodsBodyAsymmetry(t *testing.T) {
	server := newRecordingServer(t, nil)
	exec, _ := newTestExecutor(t, nil)
	params := []models.Parameter{{Name: "name"}}

	for _, method := range []string{"post", "put", "delete", "patch"} {
		outcome := exec.Execute(context.Background(), models.Operation{Path: "/pets", Method: method, Parameters: params}, server.URL)
		assert.Equal(t, models.OutcomeSent, outcome.Kind, method)
	}

	reqs := server.Requests()
	require.Len(t, reqs, 4)
	assert.Equal(t, "POST", reqs[0].Method)
	assert.Contains(t, reqs[0].Body, "name")
	for _, r := range reqs[1:] {
		assert.Nil(t, r.Body, "method %s must not carry a body", r.Method)
	}
}

func TestExecuteUnknownMethodIsSkipped(t *testing.T) {
	server := newRecordingServer(t, nil)
	exec, logs := newTestExecutor(t, nil)

	outcome := exec.Execute(context.Background(), models.Operation{Path: "/pets", Method: "head"}, server.URL)

	assert.Equal(t, models.OutcomeSkipped, outcome.Kind)
	assert.Empty(t, server.Requests())

	entries := logs.FilterMessageSnippet("Unknown method HEAD").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, server.URL+"/pets")
}

func TestExecuteUnauthorized(t *testing.T) {
	server := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		w.WriteHeader(http.StatusUnauthorized)
	})
	exec, logs := newTestExecutor(t, nil)

	outcome := exec.Execute(context.Background(), models.Operation{Path: "/secret", Method: "get"}, server.URL)

	assert.Equal(t, models.OutcomeSent, outcome.Kind)
	assert.True(t, outcome.Unauthorized())
	assert.Equal(t, "Bearer", outcome.WWWAuthenticate)

	found := false
	for _, entry := range logs.All() {
		if strings.Contains(entry.Message, "Bearer") {
			found = true
		}
	}
	assert.True(t, found, "expected a diagnostic mentioning the WWW-Authenticate value")
	assert.Equal(t, 1, logs.FilterMessageSnippet("did you provide authentication").Len())
}

func TestExecuteUnauthorizedWithoutChallenge(t *testing.T) {
	server := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	exec, logs := newTestExecutor(t, nil)

	exec.Execute(context.Background(), models.Operation{Path: "/secret", Method: "get"}, server.URL)

	assert.Zero(t, logs.FilterMessageSnippet("WWW-Authenticate").Len())
	assert.Equal(t, 1, logs.FilterMessageSnippet("did you provide authentication").Len())
}

func TestExecuteOtherStatusesAreNotDiagnosed(t *testing.T) {
	server := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	exec, logs := newTestExecutor(t, nil)

	outcome := exec.Execute(context.Background(), models.Operation{Path: "/boom", Method: "get"}, server.URL)

	assert.Equal(t, models.OutcomeSent, outcome.Kind)
	assert.Equal(t, http.StatusInternalServerError, outcome.StatusCode)
	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestExecuteTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	exec, logs := newTestExecutor(t, nil)
	outcome := exec.Execute(context.Background(), models.Operation{Path: "/pets", Method: "get"}, baseURL)

	assert.Equal(t, models.OutcomeFailed, outcome.Kind)
	assert.NotEmpty(t, outcome.Error)
	assert.Equal(t, 1, logs.FilterMessage("Request failed").Len())
}

func TestExecuteTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	cfg := config.Default()
	cfg.Timeout = 100 * time.Millisecond
	client, err := NewClient(cfg)
	require.NoError(t, err)

	exec := NewExecutor(client, NewRequestBuilder(nil, nil), nil)
	outcome := exec.Execute(context.Background(), models.Operation{Path: "/slow", Method: "get"}, server.URL)

	assert.Equal(t, models.OutcomeFailed, outcome.Kind)
}
