package memory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"ai-livestream-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientAddSendsMemoryRecord(t *testing.T) {
	var got addRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/memories/", r.URL.Path)
		assert.Equal(t, "Token test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", srv.URL, logger.NewNopLogger())
	err := c.Add(context.Background(), "At noon, Speaker 0 said: hello", "jarvis", map[string]interface{}{"type": "transcript"})
	require.NoError(t, err)

	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "At noon, Speaker 0 said: hello", got.Messages[0].Content)
	assert.Equal(t, "jarvis", got.UserId)
	assert.Equal(t, "transcript", got.Metadata["type"])
}

func TestClientSearchScopesToUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/memories/search/", r.URL.Path)

		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "what did I see", req.Query)
		assert.Equal(t, 5, req.Limit)

		and, ok := req.Filters["AND"].([]interface{})
		require.True(t, ok)
		first := and[0].(map[string]interface{})
		assert.Equal(t, "jarvis", first["user_id"])

		json.NewEncoder(w).Encode([]Record{
			{Id: "m1", Memory: "I observed a desk", Score: 0.92},
		})
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", srv.URL, logger.NewNopLogger())
	records, err := c.Search(context.Background(), "what did I see", "jarvis", 5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "I observed a desk", records[0].Memory)
	assert.InDelta(t, 0.92, records[0].Score, 0.001)
}

func TestClientDegradesWithoutKey(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("", srv.URL, logger.NewNopLogger())

	assert.NoError(t, c.Add(context.Background(), "content", "jarvis", nil))
	records, err := c.Search(context.Background(), "query", "jarvis", 10)
	assert.NoError(t, err)
	assert.Nil(t, records)
	assert.Equal(t, int32(0), calls.Load())
}

func TestClientSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("bad-key", srv.URL, logger.NewNopLogger())
	err := c.Add(context.Background(), "content", "jarvis", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
