package torn

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	endpoint string
	failed   bool
}

type fakeTracker struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (f *fakeTracker) RecordCall(endpoint string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{endpoint: endpoint, failed: err != nil})
}

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *[]*http.Request) {
	t.Helper()
	var requests []*http.Request
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, r.Clone(context.Background()))
		mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func newTestClient(server *httptest.Server, opts ...Option) *Client {
	opts = append([]Option{WithBaseURL(server.URL), WithRequestsPerMinute(600000)}, opts...)
	return NewClient("test_api_key", opts...)
}

func TestNewClient(t *testing.T) {
	client := NewClient("test_api_key")

	assert.Equal(t, "test_api_key", client.apiKey)
	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.Equal(t, V2, client.Version())
	assert.Equal(t, int64(0), client.GetAPICallCount())
	assert.NotZero(t, client.client.Timeout)
}

func TestAPICallCounter(t *testing.T) {
	client := NewClient("test_api_key")

	client.IncrementAPICall()
	client.IncrementAPICall()
	assert.Equal(t, int64(2), client.GetAPICallCount())

	client.ResetAPICallCount()
	assert.Equal(t, int64(0), client.GetAPICallCount())
}

func TestRankedWarsEndpoints(t *testing.T) {
	tests := []struct {
		name          string
		version       APIVersion
		expectedPath  string
		expectedQuery string
	}{
		{"V2", V2, "/v2/faction/wars", ""},
		{"V1", V1, "/faction/1001", "rankedwars"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, requests := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"rankedwars": {}}`))
			})
			tracker := &fakeTracker{}
			client := newTestClient(server, WithVersion(tt.version), WithCallTracker(tracker))

			body, err := client.RankedWars(context.Background(), 1001)
			require.NoError(t, err)
			assert.JSONEq(t, `{"rankedwars": {}}`, string(body))

			require.Len(t, *requests, 1)
			req := (*requests)[0]
			assert.Equal(t, tt.expectedPath, req.URL.Path)
			assert.Equal(t, "test_api_key", req.URL.Query().Get("key"))
			assert.Equal(t, tt.expectedQuery, req.URL.Query().Get("selections"))
			assert.Equal(t, UserAgent, req.Header.Get("User-Agent"))

			assert.Equal(t, int64(1), client.GetAPICallCount())
			assert.Equal(t, []recordedCall{{endpoint: EndpointRankedWars}}, tracker.calls)
		})
	}
}

func TestUpstreamErrors(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		expectedCode int
	}{
		{"ServerError", http.StatusBadGateway, "bad gateway", 0},
		{"InBodyError", http.StatusOK, `{"error": {"code": 2, "error": "Incorrect key"}}`, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			tracker := &fakeTracker{}
			client := newTestClient(server, WithCallTracker(tracker))

			_, err := client.RankedWars(context.Background(), 1001)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUpstreamUnavailable))

			var upstream *UpstreamError
			require.True(t, errors.As(err, &upstream))
			assert.Equal(t, tt.status, upstream.StatusCode)
			assert.Equal(t, tt.expectedCode, upstream.Code)
			assert.Equal(t, []recordedCall{{endpoint: EndpointRankedWars, failed: true}}, tracker.calls)
		})
	}
}

func TestMembersBothShapes(t *testing.T) {
	tests := []struct {
		name    string
		version APIVersion
		path    string
		body    string
	}{
		{"V2List", V2, "/v2/faction/2002/members", `{"members": [{"id": 1, "name": "A"}, {"id": 2, "name": "B"}]}`},
		{"V1Map", V1, "/faction/2002", `{"ID": 2002, "members": {"1": {"name": "A"}, "2": {"name": "B"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, requests := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			client := newTestClient(server, WithVersion(tt.version))

			members, err := client.Members(context.Background(), 2002)
			require.NoError(t, err)
			assert.Equal(t, 2, members.Len())
			assert.Equal(t, tt.path, (*requests)[0].URL.Path)
		})
	}
}

func TestAttacksPageParams(t *testing.T) {
	server, requests := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"attacks": []}`))
	})
	client := newTestClient(server)

	_, err := client.AttacksPage(context.Background(), 100, 200)
	require.NoError(t, err)

	query := (*requests)[0].URL.Query()
	assert.Equal(t, "/v2/faction/attacks", (*requests)[0].URL.Path)
	assert.Equal(t, "100", query.Get("from"))
	assert.Equal(t, "200", query.Get("to"))
	assert.Equal(t, "DESC", query.Get("sort"))
}

func TestWarReport(t *testing.T) {
	server, requests := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rankedwarreport": {"id": 555, "start": 1, "end": 2, "factions": []}}`))
	})
	client := newTestClient(server)

	report, err := client.WarReport(context.Background(), "555")
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.True(t, report.Ended())
	assert.Equal(t, "/v2/faction/555/rankedwarreport", (*requests)[0].URL.Path)
}
