package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"github.com/birdwork/roost/internal/adapter/postgres"
	"github.com/birdwork/roost/internal/domain/account"
	"github.com/birdwork/roost/internal/domain/report"
	"github.com/birdwork/roost/internal/service"
)

// RunHistory is the persisted-report surface the handlers read from.
// Nil when the engine runs without a database.
type RunHistory interface {
	AccountMetrics(ctx context.Context, accountID string) ([]postgres.PhaseCount, error)
	LatestRun(ctx context.Context) (*report.Aggregate, error)
}

// Handlers holds dependencies for all admin API handlers.
type Handlers struct {
	orch     *service.Orchestrator
	accounts []account.Account
	history  RunHistory
	log      *slog.Logger

	running atomic.Bool
}

// NewHandlers creates the handler set. history may be nil.
func NewHandlers(orch *service.Orchestrator, accounts []account.Account, history RunHistory, log *slog.Logger) *Handlers {
	return &Handlers{
		orch:     orch,
		accounts: accounts,
		history:  history,
		log:      log,
	}
}

// TriggerRun starts a full engagement run in the background. Only one run
// may be in flight at a time.
func (h *Handlers) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if !h.running.CompareAndSwap(false, true) {
		writeError(w, http.StatusConflict, "a run is already in progress")
		return
	}

	go func() {
		defer h.running.Store(false)
		// Detached from the request: the run outlives the HTTP exchange.
		h.orch.RunAll(context.WithoutCancel(r.Context()), h.accounts)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// TriggerAccountRun starts an ad-hoc run for one account, synchronously.
func (h *Handlers) TriggerAccountRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var target *account.Account
	for i := range h.accounts {
		if h.accounts[i].ID == id {
			target = &h.accounts[i]
			break
		}
	}
	if target == nil {
		writeError(w, http.StatusNotFound, "unknown account")
		return
	}

	result := h.orch.RunOne(r.Context(), *target)
	writeJSON(w, http.StatusOK, result)
}

// LatestReport returns the most recent aggregate report, preferring the
// in-memory one and falling back to the database after a restart.
func (h *Handlers) LatestReport(w http.ResponseWriter, r *http.Request) {
	if agg := h.orch.Latest(); agg != nil {
		writeJSON(w, http.StatusOK, agg)
		return
	}
	if h.history != nil {
		agg, err := h.history.LatestRun(r.Context())
		if err != nil {
			writeDomainError(w, err, "no runs recorded")
			return
		}
		writeJSON(w, http.StatusOK, agg)
		return
	}
	writeError(w, http.StatusNotFound, "no runs recorded")
}

// ListAccounts returns the configured accounts.
func (h *Handlers) ListAccounts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.accounts)
}

// AccountMetrics returns cumulative action counters for one account.
func (h *Handlers) AccountMetrics(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, "metrics storage not configured")
		return
	}

	counts, err := h.history.AccountMetrics(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "account metrics not found")
		return
	}
	if counts == nil {
		counts = []postgres.PhaseCount{}
	}
	writeJSON(w, http.StatusOK, counts)
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
