package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/groundwater-client/internal/credential"
	"github.com/couchcryptid/groundwater-client/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testToken         = "test-token"
	contentTypeHeader = "Content-Type"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(baseURL string, store credential.Store) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		store:      store,
		logger:     discardLogger(),
		metrics:    observability.NewMetricsForTesting(),
	}
}

// headerRecorder captures the headers of the most recent request.
type headerRecorder struct {
	last atomic.Pointer[http.Header]
}

func (h *headerRecorder) handler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hdr := r.Header.Clone()
		h.last.Store(&hdr)
		w.Header().Set(contentTypeHeader, "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func (h *headerRecorder) header() http.Header {
	return *h.last.Load()
}

type failingStore struct{}

func (failingStore) Load() (*oauth2.Token, error) { return nil, errors.New("storage unavailable") }
func (failingStore) Save(*oauth2.Token) error     { return errors.New("storage unavailable") }
func (failingStore) Clear() error                 { return errors.New("storage unavailable") }

func TestResolveBaseURL(t *testing.T) {
	assert.Equal(t, DefaultBaseURL, ResolveBaseURL(""))
	assert.Equal(t, DefaultBaseURL, ResolveBaseURL("   "))
	assert.Equal(t, "https://gw.example.org", ResolveBaseURL("https://gw.example.org/"))
	assert.Equal(t, "https://gw.example.org/v2", ResolveBaseURL("https://gw.example.org/v2//"))
}

func TestNewClient_DefaultsAndNoTimeout(t *testing.T) {
	c := NewClient("", nil, discardLogger(), nil)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Zero(t, c.httpClient.Timeout)
}

func TestClient_URL(t *testing.T) {
	c := testClient("http://api.local:8000", nil)

	assert.Equal(t, "http://api.local:8000/api/alerts", c.URL("/api/alerts"))
	assert.Equal(t, "http://api.local:8000/api/alerts", c.URL("api/alerts"))
	assert.Equal(t, "http://api.local:8000/api/alerts", c.URL("//api/alerts"))
	assert.Equal(t, "http://api.local:8000", c.URL(""))
	assert.Equal(t, "http://other.host/x?y=1", c.URL("http://other.host/x?y=1"))
	assert.Equal(t, "HTTPS://other.host/x", c.URL("HTTPS://other.host/x"))
}

func TestClient_Headers_NoCredential(t *testing.T) {
	rec := &headerRecorder{}
	srv := httptest.NewServer(rec.handler(http.StatusOK, `{}`))
	defer srv.Close()

	c := testClient(srv.URL, credential.NewMemoryStore())
	require.NoError(t, c.GetJSON(context.Background(), "/api/alerts", nil))

	assert.Empty(t, rec.header().Values("Authorization"))
	assert.Equal(t, "application/json", rec.header().Get(contentTypeHeader))
}

func TestClient_Headers_WithCredential(t *testing.T) {
	rec := &headerRecorder{}
	srv := httptest.NewServer(rec.handler(http.StatusOK, `{}`))
	defer srv.Close()

	c := testClient(srv.URL, credential.NewMemoryStoreWithToken(testToken, "refresh"))
	require.NoError(t, c.GetJSON(context.Background(), "/api/alerts", nil))

	assert.Equal(t, []string{"Bearer " + testToken}, rec.header().Values("Authorization"))
}

func TestClient_Headers_StoreErrorDegradesToNoToken(t *testing.T) {
	c := testClient("http://unused", failingStore{})
	h := c.Headers(context.Background())

	assert.Empty(t, h.Get("Authorization"))
	assert.Equal(t, "application/json", h.Get(contentTypeHeader))
}

func TestClient_Headers_NilStore(t *testing.T) {
	c := testClient("http://unused", nil)
	assert.Empty(t, c.Headers(context.Background()).Get("Authorization"))
}

func TestClient_Do_CallerHeadersOverrideDefaults(t *testing.T) {
	rec := &headerRecorder{}
	srv := httptest.NewServer(rec.handler(http.StatusOK, `{}`))
	defer srv.Close()

	c := testClient(srv.URL, credential.NewMemoryStoreWithToken(testToken, ""))
	resp, err := c.Do(context.Background(), "/api/location/report.pdf", Request{
		Method: http.MethodPost,
		Body:   strings.NewReader("latitude=1"),
		Header: http.Header{
			"content-type":  {"application/x-www-form-urlencoded"},
			"Authorization": {"Bearer override"},
			"X-Trace":       {"abc"},
		},
	})
	require.NoError(t, err)
	resp.Body.Close()

	got := rec.header()
	assert.Equal(t, []string{"application/x-www-form-urlencoded"}, got.Values(contentTypeHeader))
	assert.Equal(t, []string{"Bearer override"}, got.Values("Authorization"))
	assert.Equal(t, "abc", got.Get("X-Trace"))
}

func TestClient_Do_EmptyOverrideRemovesHeader(t *testing.T) {
	rec := &headerRecorder{}
	srv := httptest.NewServer(rec.handler(http.StatusOK, `{}`))
	defer srv.Close()

	c := testClient(srv.URL, credential.NewMemoryStoreWithToken(testToken, ""))
	resp, err := c.Do(context.Background(), "/api/auth/login", Request{
		Header: http.Header{"Authorization": nil},
	})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, rec.header().Values("Authorization"))
}

func TestClient_Do_AbsoluteURLIgnoresBase(t *testing.T) {
	var hits atomic.Int32
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/elsewhere", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer other.Close()

	c := testClient("http://127.0.0.1:1", nil) // base would refuse connections
	resp, err := c.Do(context.Background(), other.URL+"/elsewhere", Request{})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_Do_RelativePathJoinedOnce(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", nil, discardLogger(), observability.NewMetricsForTesting())
	resp, err := c.Do(context.Background(), "/api/forecast/history?limit=10", Request{})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "/api/forecast/history?limit=10", gotPath)
}

func TestClient_Do_NonSuccessIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"no forecasts yet"}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL, nil)
	resp, err := c.Do(context.Background(), "/api/forecast/history", Request{})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"detail":"no forecasts yet"}`, string(body))
}

func TestClient_Do_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close() // connection refused from here on

	c := testClient(url, nil)
	_, err := c.Do(context.Background(), "/api/alerts", Request{})
	require.Error(t, err)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.MethodGet, te.Method)
	assert.Equal(t, url+"/api/alerts", te.URL)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.ClientRequests.WithLabelValues("GET", "transport_error")))
}

func TestClient_GetJSON_Success(t *testing.T) {
	srv := httptest.NewServer((&headerRecorder{}).handler(http.StatusOK, `{"a":1}`))
	defer srv.Close()

	c := testClient(srv.URL, nil)
	var out map[string]any
	require.NoError(t, c.GetJSON(context.Background(), "/x", &out))

	assert.Equal(t, map[string]any{"a": float64(1)}, out)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.ClientRequests.WithLabelValues("GET", "success")))
}

func TestClient_GetJSON_DetailString(t *testing.T) {
	srv := httptest.NewServer((&headerRecorder{}).handler(http.StatusNotFound, `{"detail":"not found"}`))
	defer srv.Close()

	c := testClient(srv.URL, nil)
	err := c.GetJSON(context.Background(), "/x", &map[string]any{})
	require.Error(t, err)
	assert.Equal(t, "not found", err.Error())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.True(t, apiErr.FromBody)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.ClientRequests.WithLabelValues("GET", "http_error")))
}

func TestClient_GetJSON_UnparseableBodyUsesStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "<html>upstream exploded</html>")
	}))
	defer srv.Close()

	c := testClient(srv.URL, nil)
	err := c.GetJSON(context.Background(), "/x", nil)
	require.Error(t, err)
	assert.Equal(t, "Internal Server Error", err.Error())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.False(t, apiErr.FromBody)
}

func TestClient_GetJSON_StructuredDetailIsFlattened(t *testing.T) {
	body := `{"detail":[{"loc":["body","state"],"msg":"field required","type":"value_error.missing"}]}`
	srv := httptest.NewServer((&headerRecorder{}).handler(http.StatusUnprocessableEntity, body))
	defer srv.Close()

	c := testClient(srv.URL, nil)
	err := c.GetJSON(context.Background(), "/x", nil)
	require.Error(t, err)
	assert.Equal(t, `[{"loc":["body","state"],"msg":"field required","type":"value_error.missing"}]`, err.Error())
}

func TestClient_GetJSON_DecodeError(t *testing.T) {
	srv := httptest.NewServer((&headerRecorder{}).handler(http.StatusOK, `{"a":`))
	defer srv.Close()

	c := testClient(srv.URL, nil)
	err := c.GetJSON(context.Background(), "/x", &map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_PostJSON_PolicySimulationRoundTrip(t *testing.T) {
	input := map[string]any{
		"state":                 "Maharashtra",
		"pumping_change":        25,
		"recharge_structures":   10,
		"crop_intensity_change": 0,
		"months_ahead":          12,
	}
	echo := `{"baseline_trajectory":[{"month":1,"groundwater":10.5}],` +
		`"counterfactual_trajectory":[{"month":1,"groundwater":10.2}],` +
		`"mean_effect":-0.12,"final_effect":-0.3,"cumulative_effect":-2.1,"uncertainty_margin":0.05}`

	var gotAuth, gotMethod, gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set(contentTypeHeader, "application/json")
		_, _ = io.WriteString(w, echo)
	}))
	defer srv.Close()

	c := testClient(srv.URL, credential.NewMemoryStoreWithToken(testToken, ""))
	var out map[string]any
	require.NoError(t, c.PostJSON(context.Background(), "/api/policy/simulate", input, &out))

	assert.Equal(t, "Bearer "+testToken, gotAuth)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/policy/simulate", gotPath)

	wantBody, err := json.Marshal(input)
	require.NoError(t, err)
	assert.JSONEq(t, string(wantBody), string(gotBody))

	var want map[string]any
	require.NoError(t, json.Unmarshal([]byte(echo), &want))
	assert.Equal(t, want, out)
}

func TestClient_PostJSON_EncodeError(t *testing.T) {
	c := testClient("http://unused", nil)
	err := c.PostJSON(context.Background(), "/x", map[string]any{"bad": make(chan int)}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode request body")
}

func TestClient_NoStaleTokenAfterLogout(t *testing.T) {
	rec := &headerRecorder{}
	srv := httptest.NewServer(rec.handler(http.StatusOK, `{}`))
	defer srv.Close()

	store := credential.NewMemoryStoreWithToken(testToken, "")
	c := testClient(srv.URL, store)

	require.NoError(t, c.GetJSON(context.Background(), "/x", nil))
	assert.Equal(t, "Bearer "+testToken, rec.header().Get("Authorization"))

	require.NoError(t, store.Clear())

	require.NoError(t, c.GetJSON(context.Background(), "/x", nil))
	assert.Empty(t, rec.header().Values("Authorization"))
}

func TestClient_PendingUntilCallerCancels(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := testClient(srv.URL, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.GetJSON(ctx, "/api/validation/metrics", nil) }()

	select {
	case err := <-done:
		t.Fatalf("request completed without cancellation: %v", err)
	case <-time.After(300 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		var te *TransportError
		assert.ErrorAs(t, err, &te)
	case <-time.After(5 * time.Second):
		t.Fatal("request did not return after cancellation")
	}
}

func TestNewClient_NilLoggerAndMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(contentTypeHeader, "application/json")
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, credential.NewMemoryStoreWithToken(testToken, ""), nil, nil)

	var out map[string]bool
	require.NotPanics(t, func() {
		require.NoError(t, c.GetJSON(context.Background(), "/api/states", &out))
	})
	assert.True(t, out["ok"])

	_, err := NewClient("http://127.0.0.1:1", nil, nil, nil).Do(context.Background(), "/", Request{})
	var te *TransportError
	require.ErrorAs(t, err, &te)
}
