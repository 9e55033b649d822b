package inmemory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dvloznov/transaction-unifier/internal/jobs"
)

func TestStore_SaveAndGet(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	job := &jobs.RebuildJob{JobID: "j1", Status: jobs.JobStatusPending, CreatedAt: time.Now()}
	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}

	got, err := store.GetJob(ctx, "j1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Status != jobs.JobStatusPending {
		t.Errorf("status = %s, want pending", got.Status)
	}

	// Mutating the returned copy must not affect stored state.
	got.Status = jobs.JobStatusFailed
	again, _ := store.GetJob(ctx, "j1")
	if again.Status != jobs.JobStatusPending {
		t.Error("GetJob returned a live reference instead of a copy")
	}

	if _, err := store.GetJob(ctx, "missing"); err == nil {
		t.Error("expected error for unknown job")
	}
}

func TestStore_SaveRequiresID(t *testing.T) {
	store := NewStore()
	if err := store.SaveJob(context.Background(), &jobs.RebuildJob{}); err == nil {
		t.Error("expected error for job without an ID")
	}
}

func TestStore_ListJobs(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	base := time.Now()
	statuses := []jobs.JobStatus{
		jobs.JobStatusCompleted,
		jobs.JobStatusFailed,
		jobs.JobStatusCompleted,
	}
	for i, status := range statuses {
		job := &jobs.RebuildJob{
			JobID:     fmt.Sprintf("j%d", i),
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.SaveJob(ctx, job); err != nil {
			t.Fatal(err)
		}
	}

	all, err := store.ListJobs(ctx, jobs.Filter{})
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d jobs, want 3", len(all))
	}
	// Newest first.
	if all[0].JobID != "j2" || all[2].JobID != "j0" {
		t.Errorf("order = [%s %s %s], want newest first", all[0].JobID, all[1].JobID, all[2].JobID)
	}

	completed, err := store.ListJobs(ctx, jobs.Filter{Status: jobs.JobStatusCompleted})
	if err != nil {
		t.Fatal(err)
	}
	if len(completed) != 2 {
		t.Errorf("got %d completed jobs, want 2", len(completed))
	}

	limited, err := store.ListJobs(ctx, jobs.Filter{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].JobID != "j2" {
		t.Errorf("limited list = %v, want just j2", limited)
	}
}
