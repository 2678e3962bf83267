package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/freightdesk/freightdesk-backend/pkg/migrate"
)

func writeMigration(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestValidateDirRejectsUndroppedTable(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20260201000000_create_waybills.sql",
		"-- +goose Up\nCREATE TABLE IF NOT EXISTS waybills (id uuid PRIMARY KEY);\n\n-- +goose Down\nDROP TABLE IF EXISTS trips;\n")

	err := migrate.ValidateDir(dir)
	if err == nil || !strings.Contains(err.Error(), "creates table waybills") {
		t.Fatalf("expected undropped table error, got %v", err)
	}
}

func TestValidateDirRejectsBadNamesAndDuplicates(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "create_trips.sql", "-- +goose Up\n-- +goose Down\n")
	if err := migrate.ValidateDir(dir); err == nil || !strings.Contains(err.Error(), "invalid migration filename") {
		t.Fatalf("expected filename error, got %v", err)
	}

	dir = t.TempDir()
	writeMigration(t, dir, "20260201000000_a.sql", "-- +goose Up\n-- +goose Down\n")
	writeMigration(t, dir, "20260201000000_b.sql", "-- +goose Up\n-- +goose Down\n")
	if err := migrate.ValidateDir(dir); err == nil || !strings.Contains(err.Error(), "duplicate migration version") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestRequireTablesNamesMissingTables(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20260201000000_create_trips.sql",
		"-- +goose Up\nCREATE TABLE trips (id uuid);\n-- +goose Down\nDROP TABLE trips;\n")

	err := migrate.RequireTables(dir, "trips", "trip_payments")
	if err == nil || !strings.Contains(err.Error(), "trip_payments") || strings.Contains(err.Error(), "trips,") {
		t.Fatalf("expected only trip_payments missing, got %v", err)
	}
}

func TestCreateSQLMigrationOrdersAfterNewestVersion(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "29991231235959_far_future.sql", "-- +goose Up\n-- +goose Down\n")

	path, err := migrate.CreateSQLMigration(dir, "Add POD Photos!")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Base(path) != "30000101000000_add_pod_photos.sql" {
		t.Fatalf("unexpected file %s", filepath.Base(path))
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func TestCreateSQLMigrationRejectsEmptyName(t *testing.T) {
	if _, err := migrate.CreateSQLMigration(t.TempDir(), " !! "); err == nil {
		t.Fatalf("expected error for empty name")
	}
}
