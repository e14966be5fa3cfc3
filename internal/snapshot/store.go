// Package snapshot saves typed-array contents to SQLite and restores them
// into live views. Each record is canonical CBOR compressed with brotli.
package snapshot

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	// Pure-Go SQLite driver for database/sql.
	_ "github.com/glebarez/sqlite"

	"github.com/cryguy/typedarray/internal/buffer"
	"github.com/cryguy/typedarray/internal/core"
)

// ErrNotFound is returned when no snapshot has the requested name.
var ErrNotFound = errors.New("snapshot not found")

const schema = `CREATE TABLE IF NOT EXISTS snapshots (
	name        TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	byte_length INTEGER NOT NULL,
	payload     BLOB NOT NULL,
	updated_at  INTEGER NOT NULL
)`

// Store is a SQLite-backed snapshot table.
type Store struct {
	db *sql.DB
}

// ValidateName rejects snapshot names that are empty, too long, or contain
// null bytes.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("snapshot name must not be empty")
	}
	if len(name) > 128 {
		return fmt.Errorf("snapshot name too long")
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("snapshot name contains null byte")
	}
	return nil
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating snapshot directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot store %q: %w", path, err)
	}
	// Enable WAL mode for better concurrent access.
	_, _ = db.Exec("PRAGMA journal_mode=WAL")
	return newStore(db)
}

// OpenMemory opens an in-memory store.
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory snapshot store: %w", err)
	}
	// Every pooled connection would get its own :memory: database.
	db.SetMaxOpenConns(1)
	return newStore(db)
}

func newStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating snapshot table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save copies the bytes of ta and stores them under name, replacing any
// previous snapshot with that name.
func (s *Store) Save(name string, ta *buffer.TypedArray) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if !ta.IsValid() {
		return fmt.Errorf("saving %q: %s is not a typed array", name, ta)
	}

	var data []byte
	err := withBuffer(ta, func(buf *buffer.ArrayBuffer) error {
		var rerr error
		data, rerr = buf.ToBytes()
		return rerr
	})
	if err != nil {
		return fmt.Errorf("saving %q: %w", name, err)
	}

	rec := &Record{
		Kind:       ta.Name(),
		ByteLength: len(data),
		Order:      buffer.OrderName(),
		Data:       data,
	}
	payload, err := encode(rec)
	if err != nil {
		return fmt.Errorf("saving %q: %w", name, err)
	}
	_, err = s.db.Exec(`INSERT INTO snapshots (name, kind, byte_length, payload, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			kind = excluded.kind,
			byte_length = excluded.byte_length,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		name, rec.Kind, rec.ByteLength, payload, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("saving %q: %w", name, err)
	}
	core.Logger().Debug("snapshot: saved",
		zap.String("name", name),
		zap.String("kind", rec.Kind),
		zap.Int("bytes", rec.ByteLength),
		zap.Int("stored", len(payload)))
	return nil
}

// Load returns the record stored under name.
func (s *Store) Load(name string) (*Record, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	var payload []byte
	err := s.db.QueryRow("SELECT payload FROM snapshots WHERE name = ?", name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("loading %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", name, err)
	}
	rec, err := decode(payload)
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", name, err)
	}
	return rec, nil
}

// Restore writes the snapshot stored under name into ta. The view must have
// the saved kind and byte length.
func (s *Store) Restore(name string, ta *buffer.TypedArray) error {
	rec, err := s.Load(name)
	if err != nil {
		return err
	}
	if want := core.KindOf(rec.Kind); ta.Kind() != want {
		return core.KindMismatch(core.PhaseStore, ta.Handle(), ta.Kind(), want)
	}
	if rec.Order != buffer.OrderName() {
		return fmt.Errorf("restoring %q: saved with %s-endian byte order", name, rec.Order)
	}
	err = withBuffer(ta, func(buf *buffer.ArrayBuffer) error {
		if buf.ByteLength() != rec.ByteLength {
			return core.LengthMismatch(core.PhaseStore, ta.Handle(), rec.ByteLength, buf.ByteLength())
		}
		return buf.FromBytes(rec.Data)
	})
	if err != nil {
		return fmt.Errorf("restoring %q: %w", name, err)
	}
	return nil
}

// List returns the stored snapshot names in order.
func (s *Store) List() ([]string, error) {
	rows, err := s.db.Query("SELECT name FROM snapshots ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("listing snapshots: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Delete removes the snapshot stored under name. Deleting a missing name
// is not an error.
func (s *Store) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if _, err := s.db.Exec("DELETE FROM snapshots WHERE name = ?", name); err != nil {
		return fmt.Errorf("deleting %q: %w", name, err)
	}
	return nil
}

func withBuffer(ta *buffer.TypedArray, fn func(*buffer.ArrayBuffer) error) error {
	buf, err := ta.Buffer()
	if err != nil {
		return err
	}
	defer buf.Close()
	return fn(buf)
}
