//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

var baseURL string

func TestMain(m *testing.M) {
	baseURL = os.Getenv("SPRITEDASH_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	// Wait for server readiness (up to 30s)
	ready := false
	for i := 0; i < 30; i++ {
		resp, err := http.Get(baseURL + "/api/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				ready = true
				break
			}
		}
		time.Sleep(1 * time.Second)
	}
	if !ready {
		fmt.Fprintf(os.Stderr, "server at %s not ready after 30s\n", baseURL)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// call sends a JSON request and decodes the reply into out when it is not nil.
func call(t *testing.T, method, path string, body, out any) int {
	t.Helper()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, baseURL+path, rd)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("unmarshal response: %v (body: %s)", err, string(raw))
		}
	}
	return resp.StatusCode
}

type sceneReply struct {
	Phase   string `json:"phase"`
	Workers []struct {
		ID      string `json:"id"`
		Manager bool   `json:"manager"`
	} `json:"workers"`
	Furniture []struct {
		ID string `json:"id"`
	} `json:"furniture"`
}

func TestSceneSnapshot(t *testing.T) {
	var snap sceneReply
	if code := call(t, http.MethodGet, "/api/scene", nil, &snap); code != http.StatusOK {
		t.Fatalf("GET /api/scene = %d", code)
	}
	if len(snap.Workers) == 0 || len(snap.Furniture) == 0 {
		t.Fatalf("empty office: %+v", snap)
	}
	managers := 0
	for _, w := range snap.Workers {
		if w.Manager {
			managers++
		}
	}
	if managers > 1 {
		t.Errorf("expected at most one manager, got %d", managers)
	}
	t.Logf("phase: %s, workers: %d", snap.Phase, len(snap.Workers))
}

func TestPutReport(t *testing.T) {
	report := map[string]any{"status": "working", "lastRun": time.Now().UTC().Format(time.RFC3339)}
	code := call(t, http.MethodPut, "/api/status/spoolprices-worker", report, nil)
	if code != http.StatusOK && code != http.StatusServiceUnavailable {
		t.Errorf("PUT report = %d", code)
	}
	if code := call(t, http.MethodPut, "/api/status/nobody", report, nil); code == http.StatusOK {
		t.Error("expected unknown worker to be rejected")
	}
}

func TestDispatchAndChat(t *testing.T) {
	var reply struct {
		Accepted bool `json:"accepted"`
	}
	if code := call(t, http.MethodPost, "/api/dispatch/oncstrata-worker", nil, &reply); code != http.StatusAccepted {
		t.Fatalf("POST dispatch = %d", code)
	}
	t.Logf("dispatch accepted: %v", reply.Accepted)

	// Whatever the office is doing, a second request is answered, not queued.
	if code := call(t, http.MethodPost, "/api/chat", nil, &reply); code != http.StatusAccepted {
		t.Fatalf("POST chat = %d", code)
	}
	if code := call(t, http.MethodPost, "/api/dispatch/nobody", nil, nil); code != http.StatusNotFound {
		t.Errorf("dispatch unknown = %d", code)
	}
}

func TestActivityFeed(t *testing.T) {
	var feed []map[string]any
	if code := call(t, http.MethodGet, "/api/activity", nil, &feed); code != http.StatusOK {
		t.Fatalf("GET /api/activity = %d", code)
	}
	if len(feed) > 5 {
		t.Errorf("feed should keep at most 5 entries, got %d", len(feed))
	}
}
