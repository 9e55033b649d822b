// Package handlers implements the read-only transaction API plus the admin
// rebuild endpoint.
package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dvloznov/transaction-unifier/internal/api/middleware"
	"github.com/dvloznov/transaction-unifier/internal/jobs"
	"github.com/dvloznov/transaction-unifier/internal/query"
)

// TransactionsHandler serves queries over the final merged table.
type TransactionsHandler struct {
	store *query.Store
	log   zerolog.Logger
}

// NewTransactionsHandler creates a transactions handler.
func NewTransactionsHandler(store *query.Store, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{store: store, log: log}
}

// ListGrouped handles GET /api/users/transactions: every transaction grouped
// by user identifier.
func (h *TransactionsHandler) ListGrouped(w http.ResponseWriter, r *http.Request) {
	grouped := h.store.GroupedByUser()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"users":      grouped,
		"user_count": len(grouped),
	})
}

// UserTransactions handles GET /api/user/{id}/transactions.
func (h *TransactionsHandler) UserTransactions(w http.ResponseWriter, r *http.Request, userID string) {
	txs, ok := h.store.ForUser(userID)
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, fmt.Sprintf("no transactions found for user %s", userID))
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":      userID,
		"transactions": txs,
		"count":        len(txs),
	})
}

// TopTransactions handles GET /api/user/{id}/transactions/top?n=N: the most
// recent transactions by transaction date, N default 3.
func (h *TransactionsHandler) TopTransactions(w http.ResponseWriter, r *http.Request, userID string) {
	n := query.DefaultTopN
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			middleware.WriteError(w, http.StatusBadRequest, "n must be a positive integer")
			return
		}
		n = parsed
	}

	txs, ok := h.store.TopRecent(userID, n)
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, fmt.Sprintf("no transactions found for user %s", userID))
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":      userID,
		"transactions": txs,
		"count":        len(txs),
	})
}

// AdminHandler triggers pipeline rebuilds.
type AdminHandler struct {
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(publisher jobs.Publisher, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{publisher: publisher, log: log}
}

// Rebuild handles POST /api/admin/rebuild: enqueue a pipeline re-run.
func (h *AdminHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	job := &jobs.RebuildJob{}
	if err := h.publisher.PublishRebuild(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("failed to enqueue rebuild")
		middleware.WriteError(w, http.StatusInternalServerError, "failed to enqueue rebuild")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Msg("rebuild enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// JobsHandler serves job status queries.
type JobsHandler struct {
	store jobs.Store
	log   zerolog.Logger
}

// NewJobsHandler creates a jobs handler.
func NewJobsHandler(store jobs.Store, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// GetJob handles GET /api/jobs/{id}.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "job not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter := jobs.Filter{Status: jobs.JobStatus(r.URL.Query().Get("status"))}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			filter.Limit = limit
		}
	}

	list, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}
