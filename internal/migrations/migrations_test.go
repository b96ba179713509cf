package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestDriverURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@h:5432/db":   "pgx5://u:p@h:5432/db",
		"postgresql://u:p@h:5432/db": "pgx5://u:p@h:5432/db",
		"pgx://u@h/db":               "pgx5://u@h/db",
		"pgx5://u@h/db":              "pgx5://u@h/db",
	}
	for in, want := range cases {
		if got := DriverURL(in); got != want {
			t.Errorf("DriverURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(files, "sql")
	if err != nil {
		t.Fatal(err)
	}
	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file %s", name)
		}
	}
	if len(ups) == 0 {
		t.Fatal("no migrations embedded")
	}
	for v := range ups {
		if !downs[v] {
			t.Errorf("%s has no down migration", v)
		}
	}
}

func TestSnapshotCheckpointIndexExists(t *testing.T) {
	raw, err := fs.ReadFile(files, "sql/000004_location_snapshots.up.sql")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "location_snapshots_checkpoint_key") {
		t.Fatal("checkpoint uniqueness index missing")
	}
}
