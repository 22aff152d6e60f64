package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-report-service/internal/config"
)

func assistantBackend(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestAssistantReplyRejectsEmptyMessage(t *testing.T) {
	svc := NewAssistantService(config.AssistantConfig{APIKey: "key"}, nil)

	for _, message := range []string{"", "   ", "\n\t"} {
		_, err := svc.Reply(context.Background(), message)
		require.Error(t, err)
		assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
	}
}

func TestAssistantWithoutKeyDegradesGracefully(t *testing.T) {
	svc := NewAssistantService(config.AssistantConfig{}, nil)

	reply, err := svc.Reply(context.Background(), "how do I track my report?")
	require.NoError(t, err)
	assert.Contains(t, reply, "not properly configured")
	assert.Contains(t, reply, "contact the administrator")
}

func TestAssistantReplyReturnsModelText(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	backend := assistantBackend(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  Use your 7-digit track number.  "}]}}]}`))
	})

	svc := NewAssistantService(config.AssistantConfig{
		APIKey:         "key",
		Model:          "gemini-pro",
		BaseURL:        backend.URL,
		TimeoutSeconds: 5,
	}, nil)

	reply, err := svc.Reply(context.Background(), "how do I check my report?")
	require.NoError(t, err)
	assert.Equal(t, "Use your 7-digit track number.", reply)
	assert.Equal(t, "/v1beta/models/gemini-pro:generateContent", gotPath)

	// The prompt wraps the user message in the support context.
	contents, ok := gotBody["contents"].([]any)
	require.True(t, ok)
	require.Len(t, contents, 1)
	parts := contents[0].(map[string]any)["parts"].([]any)
	text := parts[0].(map[string]any)["text"].(string)
	assert.Contains(t, text, "User: how do I check my report?")
	assert.True(t, strings.HasSuffix(text, "Assistant:"))

	genCfg, ok := gotBody["generationConfig"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(200), genCfg["maxOutputTokens"])
}

func TestAssistantReplySurfacesBackendFailure(t *testing.T) {
	backend := assistantBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	svc := NewAssistantService(config.AssistantConfig{
		APIKey:  "key",
		BaseURL: backend.URL,
		Model:   "gemini-pro",
	}, nil)

	_, err := svc.Reply(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, "INTERNAL_ERROR", domainCode(t, err))
}

func TestAssistantReplyEmptyCandidatesIsAnError(t *testing.T) {
	backend := assistantBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	svc := NewAssistantService(config.AssistantConfig{
		APIKey:  "key",
		BaseURL: backend.URL,
		Model:   "gemini-pro",
	}, nil)

	_, err := svc.Reply(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, "INTERNAL_ERROR", domainCode(t, err))
}

func TestAssistantReplyTimesOut(t *testing.T) {
	release := make(chan struct{})
	backend := assistantBackend(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	// Registered after assistantBackend so this cleanup runs (LIFO) before
	// srv.Close, which otherwise blocks on the still-parked handler.
	t.Cleanup(func() { close(release) })

	svc := NewAssistantService(config.AssistantConfig{
		APIKey:  "key",
		BaseURL: backend.URL,
		Model:   "gemini-pro",
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.Reply(ctx, "hello")
	require.Error(t, err)
	assert.Equal(t, "TIMEOUT", domainCode(t, err))
}
