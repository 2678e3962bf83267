package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

// FreightTables must all be created by the migration set before the api,
// cron-worker or outbox-publisher can start against it.
var FreightTables = []string{
	"users",
	"clients",
	"truck_owners",
	"trucks",
	"indents",
	"indent_status_history",
	"trips",
	"trip_status_history",
	"trip_payments",
	"outbox_events",
}

var (
	fileNameRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	unsafeRe   = regexp.MustCompile(`[^a-z0-9_]+`)
	createRe   = regexp.MustCompile(`(?i)\bCREATE\s+(TABLE|TYPE)\s+(?:IF\s+NOT\s+EXISTS\s+)?"?([a-z_][a-z0-9_]*)`)
	dropRe     = regexp.MustCompile(`(?i)\bDROP\s+(TABLE|TYPE)\s+(?:IF\s+EXISTS\s+)?"?([a-z_][a-z0-9_]*)`)
)

type migrationFile struct {
	version string
	name    string
	up      string
	down    string
}

// objects returns "table:x" / "type:x" keys matched by re in sql.
func objects(re *regexp.Regexp, sql string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(sql, -1) {
		out = append(out, strings.ToLower(m[1])+":"+strings.ToLower(m[2]))
	}
	return out
}

func readMigrations(dir string) ([]migrationFile, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	var files []migrationFile
	seen := map[string]string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		m := fileNameRe.FindStringSubmatch(e.Name())
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", e.Name())
		}
		if prev, ok := seen[m[1]]; ok {
			return nil, fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, e.Name())
		}
		seen[m[1]] = e.Name()

		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %q: %w", e.Name(), err)
		}
		txt := string(b)
		upAt := strings.Index(txt, "-- +goose Up")
		downAt := strings.Index(txt, "-- +goose Down")
		switch {
		case upAt < 0:
			return nil, fmt.Errorf("migration %q missing \"-- +goose Up\"", e.Name())
		case downAt < 0:
			return nil, fmt.Errorf("migration %q missing \"-- +goose Down\"", e.Name())
		case downAt < upAt:
			return nil, fmt.Errorf("migration %q has its Down section before Up", e.Name())
		}
		files = append(files, migrationFile{
			version: m[1],
			name:    e.Name(),
			up:      txt[upAt:downAt],
			down:    txt[downAt:],
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].version < files[j].version })
	return files, nil
}

// ValidateDir checks filenames, version uniqueness and goose markers, and
// that every table or enum type an Up section creates is dropped again by
// the same file's Down section. An empty dir is valid.
func ValidateDir(dir string) error {
	files, err := readMigrations(dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		dropped := map[string]bool{}
		for _, obj := range objects(dropRe, f.down) {
			dropped[obj] = true
		}
		for _, obj := range objects(createRe, f.up) {
			if !dropped[obj] {
				return fmt.Errorf("migration %q creates %s but its Down section never drops it", f.name, strings.Replace(obj, ":", " ", 1))
			}
		}
	}
	return nil
}

// RequireTables fails when no migration in dir creates one of tables.
func RequireTables(dir string, tables ...string) error {
	files, err := readMigrations(dir)
	if err != nil {
		return err
	}
	created := map[string]bool{}
	for _, f := range files {
		for _, obj := range objects(createRe, f.up) {
			created[obj] = true
		}
	}
	var missing []string
	for _, table := range tables {
		if !created["table:"+strings.ToLower(table)] {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("no migration creates %s", strings.Join(missing, ", "))
	}
	return nil
}

// CreateSQLMigration writes an empty goose migration named
// <version>_<name>.sql. The version is the current UTC time, pushed one
// second past the newest existing version so goose order always follows
// creation order.
func CreateSQLMigration(dir string, name string) (string, error) {
	safe := strings.Trim(unsafeRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_"), "_")
	if safe == "" {
		return "", fmt.Errorf("migration name %q is empty once sanitized", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}
	files, err := readMigrations(dir)
	if err != nil {
		return "", err
	}

	version := time.Now().UTC().Truncate(time.Second)
	if len(files) > 0 {
		latest, err := time.Parse(versionLayout, files[len(files)-1].version)
		if err != nil {
			return "", fmt.Errorf("parse version %q: %w", files[len(files)-1].version, err)
		}
		if !version.After(latest) {
			version = latest.Add(time.Second)
		}
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", version.Format(versionLayout), safe))
	body := fmt.Sprintf("-- +goose Up\n-- %s\n\n-- +goose Down\n", safe)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("write migration %q: %w", path, err)
	}
	return path, nil
}
