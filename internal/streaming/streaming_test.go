package streaming

import (
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/TimurManjosov/fbgo-sdk/internal/category"
	"github.com/TimurManjosov/fbgo-sdk/internal/status"
	"github.com/TimurManjosov/fbgo-sdk/internal/store"
)

func testLogger() *log.Logger {
	return log.New(os.Stderr, "[streaming-test] ", 0)
}

// newFullSyncServer starts an httptest server that upgrades to a
// websocket, waits for the client's initial data-sync request, and then
// pushes a single full-sync envelope back.
func newFullSyncServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}

		full := map[string]any{
			"messageType": "data-sync",
			"data": map[string]any{
				"eventType": "full",
				"timestamp": 100,
				"featureFlags": []map[string]any{
					{
						"id":        "flag-a",
						"name":      "Flag A",
						"isEnabled": true,
						"updatedAt": "2024-01-01T00:00:00Z",
						"variations": []map[string]any{
							{"id": "v1", "value": "true"},
						},
					},
				},
				"segments": []map[string]any{},
			},
		}
		payload, _ := json.Marshal(full)
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}

		// Keep the connection open until the test closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestProcessorAppliesFullSyncAndReachesOK(t *testing.T) {
	srv := newFullSyncServer(t)
	defer srv.Close()

	mem := store.NewMemoryStore()
	provider := status.NewProvider(mem, testLogger())
	registry := store.NewRegistry()

	cfg := Config{
		StreamingURL:    srv.URL,
		EnvSecret:       "testsecret",
		Provider:        provider,
		Registry:        registry,
		Logger:          testLogger(),
		FirstRetryDelay: 50 * time.Millisecond,
	}
	p := NewProcessor(cfg)
	p.Start()
	defer p.Close()

	if !provider.WaitForOK(2 * time.Second) {
		t.Fatalf("expected provider to reach OK after a full sync")
	}

	entity := mem.Get(category.FeatureFlags, "flag-a")
	if entity.Key != "flag-a" {
		t.Fatalf("expected flag-a to be present in the store after full sync, got %+v", entity)
	}

	flag, ok := registry.GetFlag("flag-a")
	if !ok || flag.Name != "Flag A" {
		t.Fatalf("expected flag-a registered with its typed definition, got %+v ok=%v", flag, ok)
	}
}

func TestNullProcessorSignalsOKImmediately(t *testing.T) {
	mem := store.NewMemoryStore()
	provider := status.NewProvider(mem, testLogger())

	n := NewNullProcessor(provider)
	n.Start()
	defer n.Close()

	if !provider.WaitForOK(time.Second) {
		t.Fatalf("expected the null processor to signal OK immediately")
	}
}
