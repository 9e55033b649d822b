package query

import (
	"path/filepath"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/transaction-unifier/internal/domain"
)

func storeFixture(t *testing.T) *Store {
	t.Helper()

	txs := []domain.Transaction{
		{Date: civil.Date{Year: 2024, Month: 12, Day: 20}, Amount: decimal.NewFromInt(10), UserID: "USER__002", Merchant: "a"},
		{Date: civil.Date{Year: 2024, Month: 12, Day: 15}, Amount: decimal.NewFromInt(20), UserID: "USER__001", Merchant: "b"},
		{Date: civil.Date{Year: 2025, Month: 1, Day: 3}, Amount: decimal.NewFromInt(30), UserID: "USER__001", Merchant: "c"},
		{Date: civil.Date{Year: 2024, Month: 12, Day: 28}, Amount: decimal.NewFromInt(40), UserID: "USER__001", Merchant: "d"},
		{Date: civil.Date{Year: 2025, Month: 1, Day: 1}, Amount: decimal.NewFromInt(50), UserID: "USER__001", Merchant: "e"},
	}

	path := filepath.Join(t.TempDir(), "final.csv")
	if err := domain.WriteFile(path, txs); err != nil {
		t.Fatal(err)
	}

	store, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return store
}

func TestStore_GroupedByUser(t *testing.T) {
	store := storeFixture(t)

	grouped := store.GroupedByUser()
	if len(grouped) != 2 {
		t.Fatalf("got %d users, want 2", len(grouped))
	}
	if len(grouped["USER__001"]) != 4 {
		t.Errorf("USER__001 has %d transactions, want 4", len(grouped["USER__001"]))
	}
	if len(grouped["USER__002"]) != 1 {
		t.Errorf("USER__002 has %d transactions, want 1", len(grouped["USER__002"]))
	}
}

func TestStore_Users(t *testing.T) {
	store := storeFixture(t)

	users := store.Users()
	if len(users) != 2 || users[0] != "USER__001" || users[1] != "USER__002" {
		t.Errorf("Users() = %v, want sorted [USER__001 USER__002]", users)
	}
}

func TestStore_ForUser(t *testing.T) {
	store := storeFixture(t)

	txs, ok := store.ForUser("USER__001")
	if !ok {
		t.Fatal("expected USER__001 to be known")
	}
	if len(txs) != 4 {
		t.Fatalf("got %d transactions, want 4", len(txs))
	}
	// File order is preserved.
	if txs[0].Merchant != "b" || txs[3].Merchant != "e" {
		t.Errorf("file order not preserved: %v, %v", txs[0].Merchant, txs[3].Merchant)
	}

	if _, ok := store.ForUser("USER__999"); ok {
		t.Error("unknown user reported as present")
	}
}

func TestStore_TopRecent(t *testing.T) {
	store := storeFixture(t)

	txs, ok := store.TopRecent("USER__001", 2)
	if !ok {
		t.Fatal("expected USER__001 to be known")
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}
	// Most recent first: 2025-01-03 then 2025-01-01.
	if txs[0].Merchant != "c" || txs[1].Merchant != "e" {
		t.Errorf("top-recent order wrong: got %s, %s", txs[0].Merchant, txs[1].Merchant)
	}

	// n <= 0 falls back to the default.
	txs, _ = store.TopRecent("USER__001", 0)
	if len(txs) != DefaultTopN {
		t.Errorf("default top size = %d, want %d", len(txs), DefaultTopN)
	}

	if _, ok := store.TopRecent("USER__999", 2); ok {
		t.Error("unknown user reported as present")
	}
}

func TestStore_Reload(t *testing.T) {
	store := storeFixture(t)

	path := filepath.Join(t.TempDir(), "final.csv")
	replacement := []domain.Transaction{
		{Date: civil.Date{Year: 2025, Month: 2, Day: 1}, Amount: decimal.NewFromInt(1), UserID: "USER__003"},
	}
	if err := domain.WriteFile(path, replacement); err != nil {
		t.Fatal(err)
	}

	if err := store.Reload(path); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if users := store.Users(); len(users) != 1 || users[0] != "USER__003" {
		t.Errorf("Users() after reload = %v, want [USER__003]", users)
	}
}
