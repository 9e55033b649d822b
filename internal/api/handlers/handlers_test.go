package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/transaction-unifier/internal/domain"
	"github.com/dvloznov/transaction-unifier/internal/jobs"
	"github.com/dvloznov/transaction-unifier/internal/jobs/inmemory"
	"github.com/dvloznov/transaction-unifier/internal/query"
)

func testStore(t *testing.T) *query.Store {
	t.Helper()

	txs := []domain.Transaction{
		{Date: civil.Date{Year: 2024, Month: 12, Day: 15}, Amount: decimal.NewFromInt(10), UserID: "USER__001", Merchant: "a"},
		{Date: civil.Date{Year: 2025, Month: 1, Day: 3}, Amount: decimal.NewFromInt(20), UserID: "USER__001", Merchant: "b"},
		{Date: civil.Date{Year: 2024, Month: 12, Day: 28}, Amount: decimal.NewFromInt(30), UserID: "USER__001", Merchant: "c"},
		{Date: civil.Date{Year: 2024, Month: 12, Day: 20}, Amount: decimal.NewFromInt(40), UserID: "USER__002", Merchant: "d"},
	}

	path := filepath.Join(t.TempDir(), "final.csv")
	if err := domain.WriteFile(path, txs); err != nil {
		t.Fatal(err)
	}
	store, err := query.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return body
}

func TestListGrouped(t *testing.T) {
	h := NewTransactionsHandler(testStore(t), zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/users/transactions", nil)
	rec := httptest.NewRecorder()
	h.ListGrouped(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if got := body["user_count"].(float64); got != 2 {
		t.Errorf("user_count = %v, want 2", got)
	}
	users := body["users"].(map[string]interface{})
	if len(users["USER__001"].([]interface{})) != 3 {
		t.Errorf("USER__001 group size = %d, want 3", len(users["USER__001"].([]interface{})))
	}
}

func TestUserTransactions(t *testing.T) {
	h := NewTransactionsHandler(testStore(t), zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/user/USER__002/transactions", nil)
	rec := httptest.NewRecorder()
	h.UserTransactions(rec, req, "USER__002")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if got := body["count"].(float64); got != 1 {
		t.Errorf("count = %v, want 1", got)
	}
}

func TestUserTransactions_Unknown(t *testing.T) {
	h := NewTransactionsHandler(testStore(t), zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/user/USER__999/transactions", nil)
	rec := httptest.NewRecorder()
	h.UserTransactions(rec, req, "USER__999")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	body := decodeBody(t, rec)
	if got := body["error"].(string); got != "no transactions found for user USER__999" {
		t.Errorf("error = %q", got)
	}
}

func TestTopTransactions(t *testing.T) {
	h := NewTransactionsHandler(testStore(t), zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/user/USER__001/transactions/top?n=2", nil)
	rec := httptest.NewRecorder()
	h.TopTransactions(rec, req, "USER__001")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	txs := body["transactions"].([]interface{})
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}
	first := txs[0].(map[string]interface{})
	if first["merchant"] != "b" {
		t.Errorf("most recent merchant = %v, want b (2025-01-03)", first["merchant"])
	}
}

func TestTopTransactions_BadN(t *testing.T) {
	h := NewTransactionsHandler(testStore(t), zerolog.Nop())

	for _, raw := range []string{"0", "-3", "many"} {
		req := httptest.NewRequest(http.MethodGet, "/api/user/USER__001/transactions/top?n="+raw, nil)
		rec := httptest.NewRecorder()
		h.TopTransactions(rec, req, "USER__001")

		if rec.Code != http.StatusBadRequest {
			t.Errorf("n=%s: status = %d, want 400", raw, rec.Code)
		}
	}
}

func TestAdminRebuild(t *testing.T) {
	store := inmemory.NewStore()
	queue := inmemory.NewQueue(1, store)
	defer queue.Close()

	h := NewAdminHandler(queue, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/rebuild", nil)
	rec := httptest.NewRecorder()
	h.Rebuild(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	body := decodeBody(t, rec)
	jobID := body["job_id"].(string)
	if jobID == "" {
		t.Fatal("response carries no job_id")
	}
	if body["status"] != string(jobs.JobStatusPending) {
		t.Errorf("status = %v, want pending", body["status"])
	}

	saved, err := store.GetJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("job not persisted: %v", err)
	}
	if saved.Status != jobs.JobStatusPending {
		t.Errorf("persisted status = %s, want pending", saved.Status)
	}
}

type failingPublisher struct{}

func (failingPublisher) PublishRebuild(ctx context.Context, job *jobs.RebuildJob) error {
	return fmt.Errorf("broker unavailable")
}
func (failingPublisher) Close() error { return nil }

func TestAdminRebuild_PublishFailure(t *testing.T) {
	h := NewAdminHandler(failingPublisher{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/rebuild", nil)
	rec := httptest.NewRecorder()
	h.Rebuild(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestJobsHandler(t *testing.T) {
	store := inmemory.NewStore()
	job := &jobs.RebuildJob{JobID: "job-1", Status: jobs.JobStatusCompleted}
	if err := store.SaveJob(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	h := NewJobsHandler(store, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.GetJob(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/job-1", nil), "job-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("GetJob status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.GetJob(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil), "nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("GetJob unknown status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ListJobs(rec, httptest.NewRequest(http.MethodGet, "/api/jobs?status=completed", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ListJobs status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if got := body["count"].(float64); got != 1 {
		t.Errorf("count = %v, want 1", got)
	}
}
