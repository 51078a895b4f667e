package bigquery

import (
	"context"
	"crypto/sha256"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/statement-extractor/internal/logger"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

const (
	schemaMigrationsTable = "schema_migrations"
	migrationsDir         = "migrations"

	projectPlaceholder = "{{PROJECT_ID}}"
	datasetPlaceholder = "{{DATASET_ID}}"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Migration is one versioned SQL file, with placeholders already replaced.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// ParseMigrationFilename splits NNNN_name.sql into its version and name.
func ParseMigrationFilename(filename string) (int, string, bool) {
	m := migrationPattern.FindStringSubmatch(filename)
	if m == nil {
		return 0, "", false
	}
	version, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return version, m[2], true
}

// LoadMigrations reads every NNNN_name.sql file in dir, sorted by version.
// Files that do not match the pattern are ignored. The checksum covers the
// file as written, so the same migration hashes identically in every
// project and dataset.
func LoadMigrations(fsys fs.FS, dir, projectID, dataset string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("LoadMigrations: reading %s: %w", dir, err)
	}

	seen := make(map[int]string)
	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version, name, ok := ParseMigrationFilename(entry.Name())
		if !ok {
			continue
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("LoadMigrations: version %04d used by %s and %s", version, prev, entry.Name())
		}
		seen[version] = entry.Name()

		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("LoadMigrations: reading %s: %w", entry.Name(), err)
		}

		sql := strings.ReplaceAll(string(content), projectPlaceholder, projectID)
		sql = strings.ReplaceAll(sql, datasetPlaceholder, dataset)

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     name,
			Filename: entry.Name(),
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// EmbeddedMigrations returns the migrations compiled into the binary.
func EmbeddedMigrations(projectID, dataset string) ([]Migration, error) {
	return LoadMigrations(embeddedMigrations, migrationsDir, projectID, dataset)
}

// PendingMigrations returns the migrations whose version has not been applied.
func PendingMigrations(all []Migration, applied []AppliedMigration) []Migration {
	done := make(map[int]bool, len(applied))
	for _, a := range applied {
		done[a.Version] = true
	}
	var pending []Migration
	for _, m := range all {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending
}

// ChangedMigrations returns applied migrations whose file no longer matches
// the recorded checksum.
func ChangedMigrations(all []Migration, applied []AppliedMigration) []Migration {
	recorded := make(map[int]string, len(applied))
	for _, a := range applied {
		recorded[a.Version] = a.Checksum
	}
	var changed []Migration
	for _, m := range all {
		sum, ok := recorded[m.Version]
		if ok && sum != "" && sum != m.Checksum {
			changed = append(changed, m)
		}
	}
	return changed
}

// EnsureSchemaMigrationsTableWithClient creates schema_migrations if needed.
func EnsureSchemaMigrationsTableWithClient(ctx context.Context, client *bigquery.Client, dataset string) error {
	err := runDML(ctx, client, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version    INT64 NOT NULL,
			name       STRING NOT NULL,
			applied_at TIMESTAMP NOT NULL,
			checksum   STRING,
			applied_by STRING
		)
	`, tableRef(client, dataset, schemaMigrationsTable)), nil)
	if err != nil {
		return fmt.Errorf("EnsureSchemaMigrationsTable: %w", err)
	}
	return nil
}

// AppliedMigrationsWithClient lists recorded migrations. A missing table
// means nothing has been applied yet.
func AppliedMigrationsWithClient(ctx context.Context, client *bigquery.Client, dataset string) ([]AppliedMigration, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM %s
		ORDER BY version ASC
	`, tableRef(client, dataset, schemaMigrationsTable)))

	it, err := q.Read(ctx)
	if err != nil {
		if isNotFound(err) {
			return []AppliedMigration{}, nil
		}
		return nil, fmt.Errorf("AppliedMigrations: query read: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64               `bigquery:"version"`
			Name      string              `bigquery:"name"`
			AppliedAt time.Time           `bigquery:"applied_at"`
			Checksum  bigquery.NullString `bigquery:"checksum"`
			AppliedBy bigquery.NullString `bigquery:"applied_by"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("AppliedMigrations: iter next: %w", err)
		}
		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}
	return applied, nil
}

// ApplyMigrationWithClient runs one migration and records it.
func ApplyMigrationWithClient(ctx context.Context, client *bigquery.Client, dataset string, m Migration, appliedBy string) error {
	if err := runDML(ctx, client, m.SQL, nil); err != nil {
		return fmt.Errorf("ApplyMigration %s: executing: %w", m.Filename, err)
	}

	err := runDML(ctx, client, fmt.Sprintf(`
		INSERT INTO %s (version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, tableRef(client, dataset, schemaMigrationsTable)), []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: appliedBy},
	})
	if err != nil {
		return fmt.Errorf("ApplyMigration %s: recording: %w", m.Filename, err)
	}
	return nil
}

// MigrateWithClient brings the dataset up to date with the embedded
// migrations and returns the ones it applied.
func MigrateWithClient(ctx context.Context, client *bigquery.Client, dataset, appliedBy string) ([]Migration, error) {
	log := logger.FromContext(ctx)

	if err := EnsureSchemaMigrationsTableWithClient(ctx, client, dataset); err != nil {
		return nil, err
	}
	all, err := EmbeddedMigrations(client.Project(), dataset)
	if err != nil {
		return nil, err
	}
	applied, err := AppliedMigrationsWithClient(ctx, client, dataset)
	if err != nil {
		return nil, err
	}

	for _, m := range ChangedMigrations(all, applied) {
		log.Warn().Str("migration", m.Filename).Msg("applied migration has changed since it ran")
	}

	pending := PendingMigrations(all, applied)
	for i, m := range pending {
		log.Info().Str("migration", m.Filename).Msg("applying migration")
		if err := ApplyMigrationWithClient(ctx, client, dataset, m, appliedBy); err != nil {
			return pending[:i], err
		}
	}
	return pending, nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
