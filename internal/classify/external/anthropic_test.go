package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourdesigncoza/get-insider-db/internal/classify"
	"github.com/yourdesigncoza/get-insider-db/internal/insider"
)

func messageResponse(text string) map[string]any {
	return map[string]any{
		"id":            "msg_test",
		"type":          "message",
		"role":          "assistant",
		"model":         "claude-test",
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
		"usage": map[string]any{"input_tokens": 12, "output_tokens": 34},
	}
}

func TestClassifierSuccess(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/messages") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(messageResponse("```json\n{\"entity_type\":\"trust_or_foundation\",\"is_fund_like\":true,\"confidence\":0.9,\"rationale\":\"family trust\"}\n```"))
	}))
	defer srv.Close()

	c := New(Options{APIKey: "test-key", BaseURL: srv.URL, Model: "claude-test"}, zerolog.Nop())
	got, err := c.Classify(context.Background(), classify.Input{
		Name:  "SMITH FAMILY",
		Title: "",
		Flags: insider.Flags{IsTenPercentOwner: true},
	})
	require.NoError(t, err)

	assert.Equal(t, classify.EntityTrust, got.EntityType)
	assert.True(t, got.IsFundLike)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)
	assert.Equal(t, classify.SourceExternal, got.Source)
	assert.Equal(t, "family trust", got.Rationale)
	assert.Equal(t, "claude-test", body["model"])
}

func TestClassifierHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"overloaded"}}`))
	}))
	defer srv.Close()

	c := New(Options{APIKey: "test-key", BaseURL: srv.URL, MaxRetries: 0}, zerolog.Nop())
	_, err := c.Classify(context.Background(), classify.Input{Name: "DOE JANE"})
	assert.Error(t, err)
}

func TestClassifierDisabledWithoutKey(t *testing.T) {
	c := New(Options{}, zerolog.Nop())
	_, err := c.Classify(context.Background(), classify.Input{Name: "DOE JANE"})
	assert.ErrorIs(t, err, classify.ErrFallbackUnavailable)
}

func TestParseAnswer(t *testing.T) {
	got, err := parseAnswer(`{"entity_type":"fund_or_investment_vehicle","rationale":"LP"}`)
	require.NoError(t, err)
	assert.True(t, got.IsFundLike)
	assert.InDelta(t, 0.75, got.Confidence, 1e-9)

	_, err = parseAnswer("I think this is a person.")
	assert.Error(t, err)

	_, err = parseAnswer(`{"entity_type":"alien"}`)
	assert.Error(t, err)
}
