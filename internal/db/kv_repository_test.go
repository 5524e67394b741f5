package db

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestDatabase(t *testing.T) *KVRepository {
	t.Helper()

	database, err := OpenSQLite(filepath.Join(t.TempDir(), "isolog-test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("load sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return NewRepositories(database).KV
}

func TestKVRepositoryGetMissingKey(t *testing.T) {
	t.Parallel()

	repo := openTestDatabase(t)
	value, found, err := repo.Get(context.Background(), "adherence")
	if err != nil {
		t.Fatalf("get missing key: %v", err)
	}
	if found {
		t.Fatalf("expected missing key, got %q", string(value))
	}
}

func TestKVRepositorySetOverwritesExistingValue(t *testing.T) {
	t.Parallel()

	repo := openTestDatabase(t)
	ctx := context.Background()

	if err := repo.Set(ctx, "conflict_dates", []byte(`["2025-03-10"]`)); err != nil {
		t.Fatalf("first set: %v", err)
	}
	if err := repo.Set(ctx, "conflict_dates", []byte(`["2025-03-10","2025-03-20"]`)); err != nil {
		t.Fatalf("second set: %v", err)
	}

	value, found, err := repo.Get(ctx, "conflict_dates")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found {
		t.Fatal("expected key to exist")
	}
	if got := string(value); got != `["2025-03-10","2025-03-20"]` {
		t.Fatalf("expected overwritten value, got %s", got)
	}
}

func TestOpenSQLiteRecordsEmbeddedMigrationsOnce(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "isolog-reopen.db")
	for attempt := 0; attempt < 2; attempt++ {
		database, err := OpenSQLite(path)
		if err != nil {
			t.Fatalf("open sqlite attempt %d: %v", attempt, err)
		}

		var count int64
		if err := database.Raw(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count).Error; err != nil {
			t.Fatalf("count migrations: %v", err)
		}
		if count != 1 {
			t.Fatalf("expected exactly one recorded migration, got %d", count)
		}

		sqlDB, err := database.DB()
		if err != nil {
			t.Fatalf("load sql db: %v", err)
		}
		_ = sqlDB.Close()
	}
}

func TestSplitSQLStatementsDropsBlankStatements(t *testing.T) {
	t.Parallel()

	statements := splitSQLStatements("CREATE TABLE a (x INT);\n\n ; CREATE TABLE b (y INT);")
	if len(statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %#v", len(statements), statements)
	}
}
