// Package dbtest opens isolated in-memory sqlite databases carrying the freight schema.
//
// The tables below are a sqlite rendering of pkg/migrate/migrations, which
// stays the source of truth. Postgres enum columns become TEXT, uuid and
// jsonb become TEXT and BLOB. Add a column here whenever a migration adds one;
// TestSchemaCoversModels fails when a model field has no column.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/freightdesk/freightdesk-backend/pkg/db"
)

var schema = []string{
	`CREATE TABLE users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  name TEXT NOT NULL,
  phone TEXT,
  role TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE clients (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  company_name TEXT NOT NULL,
  contact_name TEXT NOT NULL,
  phone TEXT NOT NULL,
  gstin TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE truck_owners (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  name TEXT NOT NULL,
  phone TEXT NOT NULL,
  pan TEXT,
  bank_account TEXT,
  ifsc TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE trucks (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  vehicle_number TEXT NOT NULL UNIQUE,
  vehicle_type TEXT NOT NULL,
  capacity_tons TEXT NOT NULL DEFAULT '0',
  permit_states TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE indents (
  id TEXT PRIMARY KEY,
  short_id TEXT NOT NULL UNIQUE,
  client_id TEXT NOT NULL,
  origin TEXT NOT NULL,
  destination TEXT NOT NULL,
  vehicle_type TEXT NOT NULL,
  trip_cost TEXT NOT NULL DEFAULT '0',
  tat_hours INTEGER NOT NULL DEFAULT 0,
  load_material TEXT,
  load_weight_kg TEXT NOT NULL DEFAULT '0',
  pickup_at DATETIME NOT NULL,
  contact_phone TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'open',
  vehicle_number TEXT,
  driver_phone TEXT,
  created_by TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE indent_status_history (
  id TEXT PRIMARY KEY,
  indent_id TEXT NOT NULL,
  to_status TEXT NOT NULL,
  changed_by TEXT NOT NULL,
  remark TEXT NOT NULL,
  changed_at DATETIME NOT NULL
);`,
	`CREATE TABLE trips (
  id TEXT PRIMARY KEY,
  short_id TEXT NOT NULL UNIQUE,
  indent_id TEXT NOT NULL UNIQUE,
  truck_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'created',
  start_time DATETIME,
  end_time DATETIME,
  current_location TEXT,
  driver_phone TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE trip_status_history (
  id TEXT PRIMARY KEY,
  trip_id TEXT NOT NULL,
  to_status TEXT NOT NULL,
  changed_by TEXT NOT NULL,
  remark TEXT NOT NULL,
  changed_at DATETIME NOT NULL
);`,
	`CREATE TABLE trip_payments (
  trip_id TEXT PRIMARY KEY,
  trip_cost TEXT NOT NULL DEFAULT '0',
  client_cost TEXT NOT NULL DEFAULT '0',
  advance_payment TEXT NOT NULL DEFAULT '0',
  final_payment TEXT NOT NULL DEFAULT '0',
  toll_charges TEXT NOT NULL DEFAULT '0',
  halting_charges TEXT NOT NULL DEFAULT '0',
  traffic_fines TEXT NOT NULL DEFAULT '0',
  handling_charges TEXT NOT NULL DEFAULT '0',
  platform_fees TEXT NOT NULL DEFAULT '0',
  platform_fines TEXT NOT NULL DEFAULT '0',
  payment_status TEXT NOT NULL DEFAULT 'Pending',
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload BLOB NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
}

// Open returns a fresh database private to the calling test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

// Client wraps Open in a db.Client for services that need WithTx.
func Client(t *testing.T) *db.Client {
	t.Helper()
	return db.NewFromConn(Open(t))
}
