package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSaver_Save(t *testing.T) {
	var got saveRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/subscriptions", r.URL.Path)
		assert.Equal(t, "Bearer session-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	saver := NewHTTPSaver(server.URL, "session-token")
	err := saver.Save(context.Background(), validSub(), "Firefox")
	require.NoError(t, err)

	assert.Equal(t, "https://push.example.com/ep", got.Endpoint)
	assert.Equal(t, "k", got.P256DH)
	assert.Equal(t, "a", got.Auth)
	assert.Equal(t, "Firefox", got.UA)
}

func TestHTTPSaver_Save_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	saver := NewHTTPSaver(server.URL, "session-token")
	err := saver.Save(context.Background(), validSub(), "Firefox")
	assert.Error(t, err)
}
