package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pevans/authorsync/article"
)

// Custom errors for article operations
var (
	ErrDuplicateID = errors.New("article with this id already exists")
	ErrEmptyDSN    = errors.New("database connection string is empty")
)

// Dialect names the SQL flavour behind a store.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

// ArticleStore persists scraped records in the "Article" table.
type ArticleStore struct {
	db      *sql.DB
	dialect Dialect
}

// DialectFor picks the driver for a connection string. Postgres URLs go to
// lib/pq; everything else is treated as a SQLite path or URI.
func DialectFor(dsn string) Dialect {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// Open connects to the database named by dsn and creates the table if it
// doesn't exist.
func Open(dsn string) (*ArticleStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, ErrEmptyDSN
	}

	dialect := DialectFor(dsn)
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &ArticleStore{db: db, dialect: dialect}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the Article table if it doesn't exist. An existing
// table is never altered, so a role limited to DELETE and INSERT can run.
func (s *ArticleStore) initSchema() error {
	if s.dialect == DialectPostgres {
		exists, err := s.postgresTableExists()
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS "Article" (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL,
		headline TEXT NOT NULL,
		summary TEXT NOT NULL,
		body TEXT NOT NULL,
		author TEXT NOT NULL,
		resource TEXT NOT NULL,
		media TEXT NOT NULL,
		link TEXT NOT NULL,
		date TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// postgresTableExists looks the table up without needing CREATE rights on
// the schema.
func (s *ArticleStore) postgresTableExists() (bool, error) {
	var name sql.NullString
	if err := s.db.QueryRow(`SELECT to_regclass('"Article"')::text`).Scan(&name); err != nil {
		return false, fmt.Errorf("failed to look up Article table: %w", err)
	}
	return name.Valid, nil
}

// Dialect returns the SQL flavour of the store.
func (s *ArticleStore) Dialect() Dialect {
	return s.dialect
}

// Ping verifies the database is reachable.
func (s *ArticleStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *ArticleStore) Close() error {
	return s.db.Close()
}

// Purge deletes every record of the given resource and returns how many
// rows were removed. Purging an empty resource is not an error.
func (s *ArticleStore) Purge(ctx context.Context, resource string) (int64, error) {
	query := s.rebind(`DELETE FROM "Article" WHERE resource = ?`)

	result, err := s.db.ExecContext(ctx, query, resource)
	if err != nil {
		return 0, fmt.Errorf("failed to purge articles: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// Insert stores one record.
func (s *ArticleStore) Insert(ctx context.Context, rec *article.Record) error {
	query := s.rebind(`
		INSERT INTO "Article" (id, slug, headline, summary, body, author, resource, media, link, date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := s.db.ExecContext(ctx, query,
		rec.ID.String(),
		rec.Slug,
		rec.Headline,
		rec.Summary,
		rec.Body,
		rec.Author,
		rec.Resource,
		rec.Media,
		rec.Link,
		rec.FormattedDate(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateID
		}
		return fmt.Errorf("failed to insert article: %w", err)
	}

	return nil
}

// ListByResource returns the stored records of a resource in listing
// order. Slugs of one resource share a prefix and grow by letter, so
// ordering by length and then value recovers the listing position without
// an extra column.
func (s *ArticleStore) ListByResource(ctx context.Context, resource string) ([]article.Record, error) {
	query := s.rebind(`
		SELECT id, slug, headline, summary, body, author, resource, media, link, date
		FROM "Article"
		WHERE resource = ?
		ORDER BY LENGTH(slug), slug`)

	rows, err := s.db.QueryContext(ctx, query, resource)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	records := []article.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate articles: %w", err)
	}

	return records, nil
}

func scanRecord(rows *sql.Rows) (*article.Record, error) {
	var rec article.Record
	var idStr string
	var date any

	err := rows.Scan(
		&idStr, &rec.Slug, &rec.Headline, &rec.Summary, &rec.Body,
		&rec.Author, &rec.Resource, &rec.Media, &rec.Link, &date,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan article: %w", err)
	}

	rec.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse id: %w", err)
	}

	rec.Date, err = parseDate(date)
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// parseDate accepts the date column as written by Insert or as a native
// timestamp, which is what lib/pq returns for timestamp columns.
func parseDate(value any) (time.Time, error) {
	var text string
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		return time.Time{}, fmt.Errorf("failed to parse date: unexpected type %T", value)
	}

	for _, layout := range []string{article.DateLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, text); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse date: %q", text)
}

// rebind rewrites ? placeholders as $1, $2, ... for Postgres.
func (s *ArticleStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	return Rebind(query)
}

// Rebind replaces each ? in query with a numbered Postgres placeholder.
func Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isUniqueViolation matches the duplicate key errors of both drivers.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
