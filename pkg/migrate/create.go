package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

const versionLayout = "20060102150405"

// create_<table>_table or create_<table>_tables scaffolds a table.
var createTableRe = regexp.MustCompile(`^create_([a-z0-9_]+?)_tables?$`)

// CreateSQLMigration writes <dir>/<version>_<name>.sql. The version is never
// older than the newest migration already in dir so goose applies files in
// creation order even when clocks drift between developers.
func CreateSQLMigration(dir string, name string) (string, error) {
	return createSQLMigration(dir, name, time.Now())
}

func createSQLMigration(dir, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	safe := migrationName(name)
	if safe == "" {
		return "", fmt.Errorf("name %q results in empty sanitized filename", name)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	latest, err := latestVersion(dir)
	if err != nil {
		return "", err
	}
	version := nextVersion(now.UTC(), latest)
	fullpath := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", version, safe))
	if _, err := os.Stat(fullpath); err == nil {
		return "", fmt.Errorf("migration already exists: %s", fullpath)
	}

	if err := os.WriteFile(fullpath, []byte(migrationTemplate(safe)), 0o644); err != nil {
		return "", fmt.Errorf("write migration %q: %w", fullpath, err)
	}
	return fullpath, nil
}

// migrationName reduces free text to the snake_case form ValidateDir accepts.
func migrationName(name string) string {
	return strings.ReplaceAll(slug.Make(name), "-", "_")
}

func latestVersion(dir string) (int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read dir %q: %w", dir, err)
	}
	var latest int64
	for _, e := range entries {
		m := sqlFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		v, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		if v > latest {
			latest = v
		}
	}
	return latest, nil
}

func nextVersion(now time.Time, latest int64) string {
	candidate := now.Format(versionLayout)
	if v, _ := strconv.ParseInt(candidate, 10, 64); v > latest || latest == 0 {
		return candidate
	}
	prev, err := time.Parse(versionLayout, strconv.FormatInt(latest, 10))
	if err != nil {
		return strconv.FormatInt(latest+1, 10)
	}
	return prev.Add(time.Second).Format(versionLayout)
}

func migrationTemplate(name string) string {
	if m := createTableRe.FindStringSubmatch(name); m != nil {
		table := m[1]
		return fmt.Sprintf(`-- +goose Up
-- +goose StatementBegin
CREATE TABLE IF NOT EXISTS %[1]s (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    created_at timestamptz NOT NULL DEFAULT now(),
    updated_at timestamptz NOT NULL DEFAULT now()
);
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
DROP TABLE IF EXISTS %[1]s;
-- +goose StatementEnd
`, table)
	}
	return fmt.Sprintf(`-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback %[1]s
-- +goose StatementEnd
`, name)
}
