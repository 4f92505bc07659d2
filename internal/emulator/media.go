package emulator

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// MediaURIPrefix prefixes the content URI of every image index entry.
const MediaURIPrefix = "content://media/external/images/media/"

// ErrMediaNotFound is returned for URIs that name no index entry.
var ErrMediaNotFound = stderrors.New("media entry not found")

// MediaRow is one entry of the image index.
type MediaRow struct {
	ID          int64
	DisplayName string
	MimeType    string
	Pending     bool
	Path        string
	DateAdded   time.Time
}

// URI returns the content URI of the entry.
func (r MediaRow) URI() string {
	return MediaURIPrefix + strconv.FormatInt(r.ID, 10)
}

// MediaIndex is the shared image index, stored in SQLite with the image
// files under the pictures directory.
type MediaIndex struct {
	db       *sql.DB
	pictures string
	logger   *slog.Logger
}

// OpenMediaIndex opens or creates the index database at path. Images are
// stored in pictures.
func OpenMediaIndex(path, pictures string) (*MediaIndex, error) {
	logger := slog.Default().With("component", "mediaindex")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	if err := os.MkdirAll(pictures, 0o755); err != nil {
		return nil, fmt.Errorf("creating pictures directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	m := &MediaIndex{db: db, pictures: pictures, logger: logger}
	if err := m.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	logger.Debug("media index opened", "path", path)
	return m, nil
}

func (m *MediaIndex) createSchema() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS images (
			_id INTEGER PRIMARY KEY AUTOINCREMENT,
			_display_name TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			is_pending INTEGER NOT NULL DEFAULT 0,
			_data TEXT NOT NULL,
			date_added INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_images_mime_name
			ON images(mime_type, _display_name);
	`)
	return err
}

// Close closes the database.
func (m *MediaIndex) Close() error {
	return m.db.Close()
}

// Query returns the visible entries with mimeType ordered by display name.
// Pending entries are hidden.
func (m *MediaIndex) Query(ctx context.Context, mimeType string) ([]MediaRow, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT _id, _display_name, mime_type, is_pending, _data, date_added
		FROM images
		WHERE mime_type = ? AND is_pending = 0
		ORDER BY _display_name ASC
	`, mimeType)
	if err != nil {
		return nil, fmt.Errorf("querying images: %w", err)
	}
	defer rows.Close()

	var out []MediaRow
	for rows.Next() {
		r, err := scanMediaRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Insert adds an entry. Pending entries are backed by a hidden file name
// until SetPending clears the flag.
func (m *MediaIndex) Insert(ctx context.Context, displayName, mimeType string, pending bool) (MediaRow, error) {
	if displayName == "" || strings.ContainsAny(displayName, `/\`) {
		return MediaRow{}, fmt.Errorf("invalid display name %q", displayName)
	}
	r := MediaRow{
		DisplayName: displayName,
		MimeType:    mimeType,
		Pending:     pending,
		DateAdded:   time.Now().UTC().Truncate(time.Second),
	}
	if pending {
		r.Path = m.pendingPath(displayName)
	} else {
		var err error
		if r.DisplayName, r.Path, err = m.reserve(displayName); err != nil {
			return MediaRow{}, err
		}
	}
	res, err := m.db.ExecContext(ctx, `
		INSERT INTO images (_display_name, mime_type, is_pending, _data, date_added)
		VALUES (?, ?, ?, ?, ?)
	`, r.DisplayName, r.MimeType, r.Pending, r.Path, r.DateAdded.Unix())
	if err != nil {
		return MediaRow{}, fmt.Errorf("inserting image: %w", err)
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return MediaRow{}, err
	}
	m.logger.Debug("image inserted", "id", r.ID, "name", displayName, "pending", pending)
	return r, nil
}

func (m *MediaIndex) pendingPath(displayName string) string {
	return filepath.Join(m.pictures, ".pending-"+uuid.NewString()+"-"+displayName)
}

// reserve creates an empty file for displayName in the pictures directory
// and returns the name it got. A taken name becomes "name (n).ext" with
// the lowest free n.
func (m *MediaIndex) reserve(displayName string) (name, path string, err error) {
	ext := filepath.Ext(displayName)
	base := strings.TrimSuffix(displayName, ext)
	name = displayName
	for n := 1; ; n++ {
		path = filepath.Join(m.pictures, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return name, path, f.Close()
		}
		if !stderrors.Is(err, fs.ErrExist) {
			return "", "", fmt.Errorf("reserving image file: %w", err)
		}
		name = fmt.Sprintf("%s (%d)%s", base, n, ext)
	}
}

// Get returns the entry with id, pending or not.
func (m *MediaIndex) Get(ctx context.Context, id int64) (MediaRow, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT _id, _display_name, mime_type, is_pending, _data, date_added
		FROM images WHERE _id = ?
	`, id)
	r, err := scanMediaRow(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return MediaRow{}, ErrMediaNotFound
	}
	return r, err
}

// Write replaces the content of the entry with id.
func (m *MediaIndex) Write(ctx context.Context, id int64, data []byte) error {
	r, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	return os.WriteFile(r.Path, data, 0o644)
}

// SetPending sets the pending flag of the entry with id. Clearing it
// moves the file to its display name, renamed if that name is taken.
func (m *MediaIndex) SetPending(ctx context.Context, id int64, pending bool) error {
	r, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if r.Pending == pending {
		return nil
	}

	name, path := r.DisplayName, m.pendingPath(r.DisplayName)
	if !pending {
		if name, path, err = m.reserve(r.DisplayName); err != nil {
			return err
		}
	}
	// Renaming replaces the empty reserved file.
	if err := os.Rename(r.Path, path); err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("moving image: %w", err)
	}
	_, err = m.db.ExecContext(ctx, `UPDATE images SET _display_name = ?, is_pending = ?, _data = ? WHERE _id = ?`,
		name, pending, path, id)
	if err != nil {
		return fmt.Errorf("updating image: %w", err)
	}
	return nil
}

// ParseMediaURI extracts the entry ID from a media content URI.
func ParseMediaURI(uri string) (int64, error) {
	rest, ok := strings.CutPrefix(uri, MediaURIPrefix)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMediaNotFound, uri)
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrMediaNotFound, uri)
	}
	return id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMediaRow(s rowScanner) (MediaRow, error) {
	var (
		r     MediaRow
		added int64
	)
	if err := s.Scan(&r.ID, &r.DisplayName, &r.MimeType, &r.Pending, &r.Path, &added); err != nil {
		return MediaRow{}, err
	}
	r.DateAdded = time.Unix(added, 0).UTC()
	return r, nil
}
