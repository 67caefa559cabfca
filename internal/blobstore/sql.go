package blobstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/cockroachdb/errors"
	"github.com/lehigh-university-libraries/wikiblob/internal/metadata"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultTablePrefix is the prefix of the MediaWiki tables in the export.
const DefaultTablePrefix = "zweig_"

var validPrefix = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// dialect holds the SQL that differs between drivers. Offsets in SQL are
// 1-based; the Store interface is 0-based.
type dialect struct {
	index      string
	window     string
	upsert     string
	castText   string
	random     string
	ensureText string
}

var dialects = map[string]dialect{
	"mysql": {
		index:      "SELECT LOCATE(?, old_text, ?) FROM %stext WHERE old_id = ?",
		window:     "SELECT SUBSTRING(old_text, ?, ?) FROM %stext WHERE old_id = ?",
		upsert:     "INSERT INTO %stext (old_id, old_text, old_flags) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE old_text = VALUES(old_text), old_flags = VALUES(old_flags)",
		castText:   "CAST(%s AS CHAR)",
		random:     "RAND()",
		ensureText: "ALTER TABLE %stext MODIFY old_text LONGBLOB NOT NULL",
	},
	"sqlite3": {
		// instr has no start position, so search the tail and shift back.
		index:      "SELECT instr(substr(old_text, ?), ?) FROM %stext WHERE old_id = ?",
		window:     "SELECT substr(old_text, ?, ?) FROM %stext WHERE old_id = ?",
		upsert:     "INSERT INTO %stext (old_id, old_text, old_flags) VALUES (?, ?, ?) ON CONFLICT(old_id) DO UPDATE SET old_text = excluded.old_text, old_flags = excluded.old_flags",
		castText:   "CAST(%s AS TEXT)",
		random:     "RANDOM()",
		ensureText: "CREATE TABLE IF NOT EXISTS %stext (old_id INTEGER PRIMARY KEY, old_text BLOB NOT NULL, old_flags BLOB NOT NULL)",
	},
}

// SQLStore reads blobs from the text table of a MediaWiki export. Searches
// and windows run inside the database; only windows cross the connection.
type SQLStore struct {
	db      *sql.DB
	driver  string
	prefix  string
	dialect dialect
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, driver, dsn, prefix string) (*SQLStore, error) {
	if _, ok := dialects[driver]; !ok {
		return nil, fmt.Errorf("unsupported driver %q (supported: mysql, sqlite3)", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, storeError(err, "open %s database", driver)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, storeError(err, "connect to %s database", driver)
	}
	s, err := NewSQLStore(db, driver, prefix)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("Database connection established", "driver", driver, "table_prefix", prefix)
	return s, nil
}

// NewSQLStore wraps an open database handle. The store owns db and closes it
// in Close.
func NewSQLStore(db *sql.DB, driver, prefix string) (*SQLStore, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported driver %q (supported: mysql, sqlite3)", driver)
	}
	if !validPrefix.MatchString(prefix) {
		return nil, fmt.Errorf("invalid table prefix %q", prefix)
	}
	return &SQLStore{db: db, driver: driver, prefix: prefix, dialect: d}, nil
}

func (s *SQLStore) query(q string) string {
	return fmt.Sprintf(q, s.prefix)
}

func (s *SQLStore) BlobIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, s.query("SELECT old_id FROM %stext ORDER BY old_id"))
	if err != nil {
		return nil, storeError(err, "list blobs")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, storeError(err, "scan blob id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, "list blobs")
	}
	return ids, nil
}

func (s *SQLStore) Index(ctx context.Context, blobID int64, needle []byte, from int64) (int64, error) {
	if from < 0 {
		from = 0
	}
	var pos sql.NullInt64
	var err error
	if s.driver == "mysql" {
		err = s.db.QueryRowContext(ctx, s.query(s.dialect.index), needle, from+1, blobID).Scan(&pos)
	} else {
		err = s.db.QueryRowContext(ctx, s.query(s.dialect.index), from+1, needle, blobID).Scan(&pos)
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return -1, nil
	case err != nil:
		return -1, storeError(err, "locate %q in blob %d", needle, blobID)
	case !pos.Valid || pos.Int64 == 0:
		return -1, nil
	}
	if s.driver == "mysql" {
		return pos.Int64 - 1, nil
	}
	return from + pos.Int64 - 1, nil
}

func (s *SQLStore) Window(ctx context.Context, blobID int64, offset, n int64) ([]byte, error) {
	if offset < 0 {
		offset = 0
	}
	if n <= 0 {
		return nil, nil
	}
	var window []byte
	err := s.db.QueryRowContext(ctx, s.query(s.dialect.window), offset+1, n, blobID).Scan(&window)
	if err != nil {
		return nil, storeError(err, "read %d bytes at %d from blob %d", n, offset, blobID)
	}
	return window, nil
}

// Size returns the length of a blob in bytes.
func (s *SQLStore) Size(ctx context.Context, blobID int64) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, s.query("SELECT LENGTH(old_text) FROM %stext WHERE old_id = ?"), blobID).Scan(&n); err != nil {
		return 0, storeError(err, "size of blob %d", blobID)
	}
	return n, nil
}

// PutBlob inserts or replaces a blob row.
func (s *SQLStore) PutBlob(ctx context.Context, blobID int64, data []byte) error {
	if _, err := s.db.ExecContext(ctx, s.query(s.dialect.upsert), blobID, data, []byte{}); err != nil {
		return storeError(err, "store blob %d", blobID)
	}
	return nil
}

// EnsureTextTable prepares the text table for large blobs: on MySQL the
// column is widened to LONGBLOB, on SQLite the table is created if missing.
func (s *SQLStore) EnsureTextTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.query(s.dialect.ensureText)); err != nil {
		return storeError(err, "prepare %stext table", s.prefix)
	}
	return nil
}

// CountBlobs returns the number of rows in the text table.
func (s *SQLStore) CountBlobs(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.query("SELECT COUNT(*) FROM %stext")).Scan(&n); err != nil {
		return 0, storeError(err, "count blobs")
	}
	return n, nil
}

func (s *SQLStore) Pages(ctx context.Context, q PageQuery) ([]metadata.Page, error) {
	p := s.prefix
	query := fmt.Sprintf(`SELECT p.page_id, p.page_title, %s
		FROM %spage p
		JOIN %srevision r ON p.page_latest = r.rev_id
		JOIN %sslots sl ON r.rev_id = sl.slot_revision_id
		JOIN %scontent c ON sl.slot_content_id = c.content_id
		WHERE p.page_namespace = ?`,
		fmt.Sprintf(s.dialect.castText, "c.content_address"), p, p, p, p)

	args := []interface{}{q.Namespace}
	switch {
	case q.Sample > 0:
		query += " ORDER BY " + s.dialect.random + " LIMIT ?"
		args = append(args, q.Sample*2)
	case q.Limit > 0:
		query += " ORDER BY p.page_id LIMIT ?"
		args = append(args, q.Limit)
	default:
		query += " ORDER BY p.page_id"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError(err, "query pages")
	}
	defer rows.Close()

	var pages []metadata.Page
	for rows.Next() {
		var (
			page    metadata.Page
			title   []byte
			address sql.NullString
		)
		if err := rows.Scan(&page.ID, &title, &address); err != nil {
			return nil, storeError(err, "scan page row")
		}
		page.Title = metadata.DecodeTitle(title)
		page.Address = address.String
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, "query pages")
	}
	return pages, nil
}

func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		return storeError(err, "close database")
	}
	slog.Info("Database connection closed")
	return nil
}
