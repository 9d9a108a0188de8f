package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/averyc/sentinel/internal/collector"
	"github.com/averyc/sentinel/internal/store"
)

type mockRunner struct {
	summary   collector.Summary
	lastHours int
	calls     int
}

func (m *mockRunner) Collect(ctx context.Context, hoursBack int) collector.Summary {
	m.calls++
	m.lastHours = hoursBack
	return m.summary
}

type mockStatusStore struct {
	last   *store.APILog
	recent int
	err    error
}

func (m *mockStatusStore) LatestAPILog() (*store.APILog, error) {
	return m.last, m.err
}

func (m *mockStatusStore) CountIncidentsSince(since time.Time) (int, error) {
	return m.recent, m.err
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestHealthzOpenWithoutToken(t *testing.T) {
	srv := New(&mockRunner{}, &mockStatusStore{}, "secret", false, quietLogger())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", resp.StatusCode)
	}
}

func TestCollectRequiresToken(t *testing.T) {
	runner := &mockRunner{summary: collector.Summary{Success: true}}
	srv := New(runner, &mockStatusStore{}, "secret", false, quietLogger())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/admin/collect-news", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", resp.StatusCode)
	}
	if runner.calls != 0 {
		t.Errorf("runner ran %d times without a token", runner.calls)
	}

	req, _ = http.NewRequest(http.MethodPost, ts.URL+"/admin/collect-news", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", resp.StatusCode)
	}
}

func TestCollectReturnsSummary(t *testing.T) {
	runner := &mockRunner{summary: collector.Summary{
		Success:           true,
		ArticlesFound:     7,
		ArticlesProcessed: 3,
	}}
	srv := New(runner, &mockStatusStore{}, "secret", false, quietLogger())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/admin/collect-news?hours_back=6", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if runner.lastHours != 6 {
		t.Errorf("hours_back = %d, want 6", runner.lastHours)
	}

	var got collector.Summary
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if got.ArticlesFound != 7 || got.ArticlesProcessed != 3 {
		t.Errorf("summary = %+v", got)
	}
}

func TestCollectDefaultsHoursBack(t *testing.T) {
	runner := &mockRunner{summary: collector.Summary{Success: true}}
	srv := New(runner, &mockStatusStore{}, "", false, quietLogger())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/admin/collect-news", "application/json", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if runner.lastHours != defaultHoursBack {
		t.Errorf("hours_back = %d, want %d", runner.lastHours, defaultHoursBack)
	}
}

func TestCollectRejectsBadHoursBack(t *testing.T) {
	runner := &mockRunner{}
	srv := New(runner, &mockStatusStore{}, "", false, quietLogger())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	for _, raw := range []string{"abc", "-2", "0"} {
		resp, err := http.Post(ts.URL+"/admin/collect-news?hours_back="+raw, "application/json", nil)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("hours_back=%q status = %d, want 400", raw, resp.StatusCode)
		}
	}
	if runner.calls != 0 {
		t.Errorf("runner ran %d times on invalid input", runner.calls)
	}
}

func TestCollectFailureMapsTo502(t *testing.T) {
	runner := &mockRunner{summary: collector.Summary{
		Success: false,
		Errors:  []string{"API request failed: boom"},
	}}
	srv := New(runner, &mockStatusStore{}, "", false, quietLogger())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/admin/collect-news", "application/json", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestCollectionStatus(t *testing.T) {
	last := &store.APILog{
		ID:       1,
		Endpoint: "everything",
		Status:   200,
	}
	srv := New(&mockRunner{}, &mockStatusStore{last: last, recent: 4}, "secret", true, quietLogger())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/admin/collection-status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.CollectionActive {
		t.Error("collection_active = false, want true")
	}
	if got.LastRun == nil || got.LastRun.Endpoint != "everything" {
		t.Errorf("last_run = %+v", got.LastRun)
	}
	if got.IncidentsLastHour != 4 {
		t.Errorf("incidents_last_hour = %d, want 4", got.IncidentsLastHour)
	}
}

func TestCollectionStatusNoRuns(t *testing.T) {
	srv := New(&mockRunner{}, &mockStatusStore{}, "", false, quietLogger())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/admin/collection-status")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	var got statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.LastRun != nil {
		t.Errorf("last_run = %+v, want null", got.LastRun)
	}
}

func TestCollectionStatusStoreError(t *testing.T) {
	srv := New(&mockRunner{}, &mockStatusStore{err: errors.New("db closed")}, "", false, quietLogger())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/admin/collection-status")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}
