// Package repotest opens a migrated Postgres database for repository tests
package repotest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/reed/pkg/database"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// DSNEnv names the connection string of a disposable test database
const DSNEnv = "REED_TEST_DATABASE_DSN"

func Logger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// Open connects to the test database, applies the migrations and empties the catalog
// tables once the test ends. The test is skipped when no database is configured.
func Open(t *testing.T) database.DB {
	t.Helper()
	dsn := os.Getenv(DSNEnv)
	if dsn == "" || testing.Short() {
		t.Skipf("%s not set", DSNEnv)
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	logger := Logger()
	migrations := database.NewMigrationService(logger, &database.MigrationConfig{MigrationFolderPath: migrationFolder()})
	if err := migrations.MigratePostgres(db.DB, ""); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		_, _ = db.Exec("TRUNCATE collection_pieces, collections, pieces, categories, authors, composers CASCADE")
		_ = db.Close()
	})
	return database.NewDatabaseInstance(db, logger)
}

func migrationFolder() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "db", "pg")
}
