package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourdesigncoza/get-insider-db/internal/cluster"
)

func sampleNote() Notification {
	people := make([]cluster.Participant, 0, 8)
	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G", "H"} {
		people = append(people, cluster.Participant{Name: name, Relationship: "Director"})
	}
	return Notification{
		AsOf: time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		Campaign: cluster.Campaign{
			Ticker:       "ABC",
			IssuerName:   "Abc Therapeutics Inc",
			WindowStart:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			WindowEnd:    time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC),
			ClusterScore: 29.9312,
			RoleScore:    8,
			KeyRoles:     []string{"CFO", "GC"},
			NumTrades:    4,
			TotalValue:   decimal.NewFromInt(2032700),
			People:       people,
			Funds:        []cluster.Participant{{Name: "RA CAPITAL MANAGEMENT LP"}},
		},
	}
}

func TestRenderMessage(t *testing.T) {
	msg := RenderMessage(sampleNote())

	assert.Contains(t, msg, "[Insider Cluster Buy] ABC (Abc Therapeutics Inc)")
	assert.Contains(t, msg, "Window: 2025-06-01 to 2025-06-05 (5 days)")
	assert.Contains(t, msg, "Score: 29.93")
	assert.Contains(t, msg, "Key roles: CFO, GC")
	assert.Contains(t, msg, "Value: $2,032,700 over 4 trades")
	assert.Contains(t, msg, "People (8): A (Director); ")
	assert.Contains(t, msg, "; +2 more")
	assert.Contains(t, msg, "Funds (1): RA CAPITAL MANAGEMENT LP\n")
	assert.Contains(t, msg, "Data as of 2025-06-30")
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/bottoken/sendMessage") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL+"/", time.Second, zerolog.Nop())
	require.NoError(t, notifier.Notify(context.Background(), sampleNote()))

	assert.Equal(t, "chat", received["chat_id"])
	assert.Contains(t, received["text"], "ABC")
}

func TestTelegramNotifierError(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "ok false",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "chat not found"})
			},
		},
		{
			name: "bad status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, zerolog.Nop())
			assert.Error(t, notifier.Notify(context.Background(), sampleNote()))
		})
	}
}
