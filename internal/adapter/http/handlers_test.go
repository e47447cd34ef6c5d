package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/birdwork/roost/internal/adapter/postgres"
	"github.com/birdwork/roost/internal/adapter/ws"
	"github.com/birdwork/roost/internal/config"
	"github.com/birdwork/roost/internal/domain"
	"github.com/birdwork/roost/internal/domain/account"
	"github.com/birdwork/roost/internal/domain/report"
	"github.com/birdwork/roost/internal/port/authenticator"
	"github.com/birdwork/roost/internal/service"
)

type stubSession struct{ id string }

func (s stubSession) AccountID() string { return s.id }

type stubAuth struct{}

func (stubAuth) Authenticate(_ context.Context, acct account.Account) (authenticator.Session, error) {
	return stubSession{id: acct.ID}, nil
}

// fixedHistory serves canned persisted reports.
type fixedHistory struct {
	latest *report.Aggregate
	counts []postgres.PhaseCount
	err    error
}

func (f *fixedHistory) AccountMetrics(context.Context, string) ([]postgres.PhaseCount, error) {
	return f.counts, f.err
}

func (f *fixedHistory) LatestRun(context.Context) (*report.Aggregate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.latest, nil
}

// newTestServer wires a real orchestrator whose accounts have no enabled
// phases, so runs finish instantly with every phase skipped.
func newTestServer(t *testing.T, history RunHistory, accounts ...account.Account) *httptest.Server {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := service.SystemClock()
	limiter := service.NewRateLimiter()
	exec := service.NewPhaseExecutor(nil, service.NewRelevanceGate(nil), nil, limiter, nil, nil, nil, clock, log)
	runner := service.NewAccountRunner(stubAuth{}, exec, limiter, config.Phases{}, clock, log)
	orch := service.NewOrchestrator(runner, config.Orchestrator{MaxConcurrent: 2}, clock, log)

	h := NewHandlers(orch, accounts, history, log)
	r := chi.NewRouter()
	MountRoutes(r, h, ws.NewHub(log))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	return resp, body
}

func post(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", nil)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	return resp, body
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := get(t, srv.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var parsed map[string]string
	if err := json.Unmarshal(body, &parsed); err != nil || parsed["status"] != "ok" {
		t.Fatalf("body = %s, err = %v", body, err)
	}
}

func TestTriggerAccountRun(t *testing.T) {
	srv := newTestServer(t, nil, account.Account{ID: "a1"})

	resp, body := post(t, srv.URL+"/api/v1/accounts/a1/run")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, body)
	}
	var result report.RunResult
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.AccountID != "a1" || result.Status != report.StatusCompleted {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestTriggerAccountRunUnknown(t *testing.T) {
	srv := newTestServer(t, nil, account.Account{ID: "a1"})

	resp, _ := post(t, srv.URL+"/api/v1/accounts/nobody/run")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestTriggerRunAccepted(t *testing.T) {
	srv := newTestServer(t, nil, account.Account{ID: "a1"})

	resp, _ := post(t, srv.URL+"/api/v1/runs")
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
}

func TestLatestReportEmpty(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, _ := get(t, srv.URL+"/api/v1/runs/latest")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestLatestReportFromHistory(t *testing.T) {
	history := &fixedHistory{latest: &report.Aggregate{RunID: "persisted-run"}}
	srv := newTestServer(t, history)

	resp, body := get(t, srv.URL+"/api/v1/runs/latest")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, body)
	}
	var agg report.Aggregate
	if err := json.Unmarshal(body, &agg); err != nil || agg.RunID != "persisted-run" {
		t.Fatalf("body = %s, err = %v", body, err)
	}
}

func TestLatestReportHistoryMiss(t *testing.T) {
	srv := newTestServer(t, &fixedHistory{err: domain.ErrNotFound})

	resp, _ := get(t, srv.URL+"/api/v1/runs/latest")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestLatestReportPrefersInMemory(t *testing.T) {
	history := &fixedHistory{latest: &report.Aggregate{RunID: "persisted-run"}}
	srv := newTestServer(t, history, account.Account{ID: "a1"})

	// Run synchronously so the orchestrator has an in-memory report.
	if resp, _ := post(t, srv.URL+"/api/v1/accounts/a1/run"); resp.StatusCode != http.StatusOK {
		t.Fatalf("setup run failed: %d", resp.StatusCode)
	}
	// RunOne does not publish an aggregate; trigger a full run and wait.
	if resp, _ := post(t, srv.URL+"/api/v1/runs"); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("trigger failed")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, body := get(t, srv.URL+"/api/v1/runs/latest")
		if resp.StatusCode == http.StatusOK {
			var agg report.Aggregate
			if err := json.Unmarshal(body, &agg); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if agg.RunID != "persisted-run" {
				return // in-memory aggregate won
			}
		}
		if time.Now().After(deadline) {
			t.Fatal("in-memory aggregate never appeared")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestListAccounts(t *testing.T) {
	srv := newTestServer(t, nil, account.Account{ID: "a1"}, account.Account{ID: "a2"})

	resp, body := get(t, srv.URL+"/api/v1/accounts")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var accounts []account.Account
	if err := json.Unmarshal(body, &accounts); err != nil || len(accounts) != 2 {
		t.Fatalf("body = %s, err = %v", body, err)
	}
}

func TestAccountMetrics(t *testing.T) {
	history := &fixedHistory{counts: []postgres.PhaseCount{{Phase: "like", Action: "like", Outcome: "success", Count: 7}}}
	srv := newTestServer(t, history)

	resp, body := get(t, srv.URL+"/api/v1/accounts/a1/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, body)
	}
	var counts []postgres.PhaseCount
	if err := json.Unmarshal(body, &counts); err != nil || len(counts) != 1 || counts[0].Count != 7 {
		t.Fatalf("body = %s, err = %v", body, err)
	}
}

func TestAccountMetricsWithoutStorage(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, _ := get(t, srv.URL+"/api/v1/accounts/a1/metrics")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
