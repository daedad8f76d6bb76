package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	upMarker   = "-- +goose Up"
	downMarker = "-- +goose Down"
	stmtBegin  = "-- +goose StatementBegin"
	stmtEnd    = "-- +goose StatementEnd"
)

// ValidateDir checks every .sql file in dir and reports all problems at once
// so CI shows the full list rather than the first broken file.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	var errs error
	seen := map[string]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			errs = multierr.Append(errs, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name))
			continue
		}
		if prev, ok := seen[m[1]]; ok {
			errs = multierr.Append(errs, fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name))
			continue
		}
		seen[m[1]] = name

		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("read file %q: %w", name, err))
			continue
		}
		errs = multierr.Append(errs, checkSections(name, string(b)))
	}
	return errs
}

// checkSections requires Up before Down and balanced statement blocks.
func checkSections(name, txt string) error {
	up := strings.Index(txt, upMarker)
	down := strings.Index(txt, downMarker)
	switch {
	case up < 0:
		return fmt.Errorf("migration %q missing %q", name, upMarker)
	case down < 0:
		return fmt.Errorf("migration %q missing %q", name, downMarker)
	case down < up:
		return fmt.Errorf("migration %q has Down before Up", name)
	}
	if begins, ends := strings.Count(txt, stmtBegin), strings.Count(txt, stmtEnd); begins != ends {
		return fmt.Errorf("migration %q has %d StatementBegin and %d StatementEnd", name, begins, ends)
	}
	return nil
}
