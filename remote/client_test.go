package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/smartcontractkit/batchops/batch"
	"github.com/smartcontractkit/batchops/pkg/logger"
	"github.com/smartcontractkit/batchops/value"
)

func TestNewClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		baseURL     string
		wantBaseURL string
		wantErr     string
	}{
		{
			name:        "valid",
			baseURL:     "https://api.example.com",
			wantBaseURL: "https://api.example.com",
		},
		{
			name:        "trailing slash is trimmed",
			baseURL:     "https://api.example.com/",
			wantBaseURL: "https://api.example.com",
		},
		{
			name:    "empty base URL",
			wantErr: "remote base URL is required",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client, err := NewClient(tt.baseURL, WithTimeout(time.Second))
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				assert.Nil(t, client)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantBaseURL, client.BaseURL())
		})
	}
}

func TestClient_Request(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/users":
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "u-1", "name": body["name"]})
		case r.Method == http.MethodGet && r.URL.Path == "/users/u-1":
			b, _ := io.ReadAll(r.Body)
			assert.Empty(t, b)
			_, _ = w.Write([]byte(`{"data":{"id":"u-1","roles":["admin"]}}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/users/u-1":
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/missing":
			http.Error(w, "no such thing", http.StatusNotFound)
		case r.URL.Path == "/busy":
			http.Error(w, "try later", http.StatusServiceUnavailable)
		case r.URL.Path == "/garbage":
			_, _ = w.Write([]byte("<html>"))
		default:
			http.Error(w, "unexpected request", http.StatusTeapot)
		}
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL,
		WithHeaders(map[string]string{"X-Api-Key": "secret"}),
		WithLogger(logger.Test(t)),
	)
	require.NoError(t, err)

	tests := []struct {
		name            string
		give            batch.Request
		want            value.Value
		wantStatus      int
		wantRecoverable bool
		wantErr         string
	}{
		{
			name: "create",
			give: batch.Request{Method: http.MethodPost, Endpoint: "/users", Data: value.MustFromAny(map[string]any{"name": "ann"})},
			want: value.MustFromAny(map[string]any{"id": "u-1", "name": "ann"}),
		},
		{
			name: "get without body",
			give: batch.Request{Method: http.MethodGet, Endpoint: "/users/u-1"},
			want: value.MustFromAny(map[string]any{"data": map[string]any{"id": "u-1", "roles": []any{"admin"}}}),
		},
		{
			name: "empty response is null",
			give: batch.Request{Method: http.MethodDelete, Endpoint: "/users/u-1"},
			want: value.Null(),
		},
		{
			name:       "client error",
			give:       batch.Request{Method: http.MethodGet, Endpoint: "/missing"},
			wantStatus: http.StatusNotFound,
			wantErr:    "returned status 404: no such thing",
		},
		{
			name:            "server error",
			give:            batch.Request{Method: http.MethodGet, Endpoint: "/busy"},
			wantStatus:      http.StatusServiceUnavailable,
			wantRecoverable: true,
			wantErr:         "returned status 503: try later",
		},
		{
			name:    "undecodable response",
			give:    batch.Request{Method: http.MethodGet, Endpoint: "/garbage"},
			wantErr: "failed to decode response of GET /garbage",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := client.Request(context.Background(), tt.give)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				if tt.wantStatus != 0 {
					var serr *StatusError
					require.ErrorAs(t, err, &serr)
					assert.Equal(t, tt.wantStatus, serr.StatusCode)
					assert.Equal(t, tt.wantRecoverable, retry.IsRecoverable(err))
				}

				return
			}

			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestClient_ClientCredentials(t *testing.T) {
	t.Parallel()

	var tokenRequests atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		tokenRequests.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/items", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"item-1"}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL,
		WithHTTPClient(server.Client()),
		WithClientCredentials(clientcredentials.Config{
			ClientID:     "batch",
			ClientSecret: "s3cret",
			TokenURL:     server.URL + "/oauth/token",
			Scopes:       []string{"items:write"},
		}),
	)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		got, err := client.Request(context.Background(), batch.Request{Method: http.MethodPost, Endpoint: "/items", Data: value.MustFromAny(map[string]any{"n": 1})})
		require.NoError(t, err)
		id, _ := got.Get("id")
		assert.Equal(t, "item-1", id.String())
	}

	// The token is cached between requests.
	assert.Equal(t, int64(1), tokenRequests.Load())
}

func TestClient_WithExecutor(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/projects":
			_, _ = w.Write([]byte(`{"id":"p-7"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/projects/p-7/tasks":
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "p-7", body["projectId"])
			_, _ = w.Write([]byte(`{"data":{"id":"t-1"}}`))
		case r.Method == http.MethodPut && r.URL.Path == "/tasks/t-1":
			// Fails once, then succeeds.
			if attempts.Add(1) == 1 {
				http.Error(w, "conflict, retry", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, r.Method+" "+r.URL.Path, http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	summary, err := batch.Execute(context.Background(), logger.Test(t), nil, client, []batch.Operation{
		{ID: "project", Type: "create", Endpoint: "/projects", Data: value.MustFromAny(map[string]any{"name": "demo"})},
		{ID: "task", Type: "create", Endpoint: "/projects/$0.id/tasks", Data: value.MustFromAny(map[string]any{"projectId": "$project.id"})},
		{ID: "done", Type: "update", Endpoint: "/tasks/$task.id", Data: value.MustFromAny(map[string]any{"done": true}), DependsOn: []string{"task"}},
		{ID: "nope", Type: "delete", Endpoint: "/unknown"},
	}, batch.WithRetry(batch.RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}))
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Successful)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, int64(2), attempts.Load())

	for _, r := range summary.Results {
		if r.Operation.ID != "nope" {
			continue
		}
		var serr *StatusError
		require.ErrorAs(t, r.Err, &serr)
		assert.Equal(t, http.StatusNotFound, serr.StatusCode)
		assert.False(t, errors.Is(r.Err, batch.ErrDependencyNotFound))
	}
}
