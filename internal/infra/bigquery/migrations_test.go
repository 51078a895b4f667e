package bigquery

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  int
		name     string
	}{
		{"0001_create_extraction_runs.sql", true, 1, "create_extraction_runs"},
		{"0042_add_index.sql", true, 42, "add_index"},
		{"001_invalid.sql", false, 0, ""},
		{"0001_test", false, 0, ""},
		{"0001.sql", false, 0, ""},
		{"invalid_0001_test.sql", false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, ok := ParseMigrationFilename(tt.filename)
			if ok != tt.valid {
				t.Fatalf("ok = %v, want %v", ok, tt.valid)
			}
			if version != tt.version || name != tt.name {
				t.Errorf("got (%d, %q), want (%d, %q)", version, name, tt.version, tt.name)
			}
		})
	}
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0002_second.sql": {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.b` (id INT64);")},
		"m/0001_first.sql":  {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.a` (id INT64);")},
		"m/README.md":       {Data: []byte("notes")},
	}

	migrations, err := LoadMigrations(fsys, "m", "proj", "ds")
	if err != nil {
		t.Fatalf("LoadMigrations() error = %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("got %d migrations, want 2", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Errorf("versions = %d, %d, want 1, 2", migrations[0].Version, migrations[1].Version)
	}
	if want := "CREATE TABLE `proj.ds.a` (id INT64);"; migrations[0].SQL != want {
		t.Errorf("SQL = %q, want %q", migrations[0].SQL, want)
	}

	// The checksum covers the raw file, so it does not depend on the target.
	other, err := LoadMigrations(fsys, "m", "other-proj", "other-ds")
	if err != nil {
		t.Fatalf("LoadMigrations() error = %v", err)
	}
	if other[0].Checksum != migrations[0].Checksum {
		t.Error("checksum changed with project/dataset")
	}
	if migrations[0].Checksum == migrations[1].Checksum {
		t.Error("different files share a checksum")
	}
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0001_a.sql": {Data: []byte("SELECT 1")},
		"m/0001_b.sql": {Data: []byte("SELECT 2")},
	}
	if _, err := LoadMigrations(fsys, "m", "p", "d"); err == nil {
		t.Fatal("expected duplicate version error")
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := EmbeddedMigrations("proj", "ds")
	if err != nil {
		t.Fatalf("EmbeddedMigrations() error = %v", err)
	}
	if len(migrations) < 3 {
		t.Fatalf("got %d embedded migrations, want at least 3", len(migrations))
	}
	for i, m := range migrations {
		if m.Version != i+1 {
			t.Errorf("migration %d has version %d", i, m.Version)
		}
		if strings.Contains(m.SQL, "{{") {
			t.Errorf("%s still has placeholders", m.Filename)
		}
		if !strings.Contains(m.SQL, "`proj.ds.") {
			t.Errorf("%s does not target proj.ds", m.Filename)
		}
	}
}

func TestPendingAndChangedMigrations(t *testing.T) {
	all := []Migration{
		{Version: 1, Checksum: "aaa"},
		{Version: 2, Checksum: "bbb"},
		{Version: 3, Checksum: "ccc"},
	}
	applied := []AppliedMigration{
		{Version: 1, Checksum: "aaa"},
		{Version: 2, Checksum: "old"},
	}

	pending := PendingMigrations(all, applied)
	if len(pending) != 1 || pending[0].Version != 3 {
		t.Errorf("pending = %+v, want version 3", pending)
	}

	changed := ChangedMigrations(all, applied)
	if len(changed) != 1 || changed[0].Version != 2 {
		t.Errorf("changed = %+v, want version 2", changed)
	}

	if got := PendingMigrations(all, nil); len(got) != 3 {
		t.Errorf("pending with nothing applied = %d, want 3", len(got))
	}
}
