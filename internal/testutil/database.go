// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/Veraticus/salary-disbursement/internal/model"
	"github.com/Veraticus/salary-disbursement/internal/storage"
)

// TestDB is a migrated in-memory store closed at test cleanup.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a migrated in-memory database seeded with employees.
//
// Example:
//
//	db := testutil.SetupTestDB(t, testutil.Employee("E001", "1234567890"))
func SetupTestDB(t *testing.T, employees ...model.Employee) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	for i := range employees {
		if err := store.SaveEmployee(ctx, &employees[i]); err != nil {
			t.Fatalf("failed to seed employee %q: %v", employees[i].EmployeeID, err)
		}
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// MustLatest returns the latest acknowledgement for a batch or fails the test.
func (db *TestDB) MustLatest(batchID string) *model.Acknowledgement {
	db.t.Helper()
	ack, err := db.Storage.FindByBatchID(context.Background(), batchID)
	if err != nil {
		db.t.Fatalf("no acknowledgement for %s: %v", batchID, err)
	}
	return ack
}

// MustHistory returns every acknowledgement for a batch.
func (db *TestDB) MustHistory(batchID string) []model.Acknowledgement {
	db.t.Helper()
	history, err := db.Storage.History(context.Background(), batchID)
	if err != nil {
		db.t.Fatalf("failed to load history for %s: %v", batchID, err)
	}
	return history
}

// Employee builds an active roster entry.
func Employee(id, account string) model.Employee {
	return model.Employee{
		EmployeeID:    id,
		Name:          fmt.Sprintf("Employee %s", id),
		AccountNumber: account,
		BankCode:      "001",
		Active:        true,
	}
}
