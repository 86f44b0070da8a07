// Package attrstore persists per-shape attribute streams in SQLite. A stream
// is an opaque blob keyed by the shape it belongs to and a stream type UUID,
// mirroring how a host attaches plugin data to scene objects.
package attrstore

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Faultbox/morphutil/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MorphStreamID identifies the morph record stream.
var MorphStreamID = uuid.MustParse("53DEDAFF-6CE4-4D66-8A3F-D046C5246F9C")

// ErrNotFound is returned when a shape has no stream of the requested type.
var ErrNotFound = errors.New("attribute stream not found")

// Entry describes one stored stream without its payload.
type Entry struct {
	Shape     uuid.UUID
	Stream    uuid.UUID
	ShapeName string
	Size      int
	UpdatedAt time.Time
}

// Store is a SQLite-backed stream store. It is meant to be used from one
// goroutine.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens or creates the database at path and applies pending
// migrations. Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases alive and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000; PRAGMA foreign_keys = ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}

	s := &Store{db: db, log: logger.Named("attrstore")}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// m is not closed: that would close the shared *sql.DB.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Version returns the applied schema version.
func (s *Store) Version() (uint, bool, error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{log: s.log}
	return m, nil
}

// migrateLogger implements migrate.Logger on top of zap.
type migrateLogger struct {
	log *zap.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.log.Sugar().Debugf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}

// Put stores data as the stream of the given type on shape, replacing any
// previous payload.
func (s *Store) Put(shape, stream uuid.UUID, data []byte) error {
	return s.PutNamed(shape, stream, "", data)
}

// PutNamed is Put with a display name for the shape.
func (s *Store) PutNamed(shape, stream uuid.UUID, name string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.Exec(`
		INSERT INTO streams (shape_id, stream_id, shape_name, data, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (shape_id, stream_id) DO UPDATE SET
			shape_name = CASE WHEN excluded.shape_name = '' THEN streams.shape_name ELSE excluded.shape_name END,
			data       = excluded.data,
			updated_at = excluded.updated_at`,
		shape.String(), stream.String(), name, data, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("writing stream %s on %s: %w", stream, shape, err)
	}
	s.log.Debug("stream written", zap.Stringer("shape", shape), zap.Stringer("stream", stream), zap.Int("bytes", len(data)))
	return nil
}

// Get returns the payload of a stream, or ErrNotFound.
func (s *Store) Get(shape, stream uuid.UUID) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM streams WHERE shape_id = ? AND stream_id = ?`,
		shape.String(), stream.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s on %s", ErrNotFound, stream, shape)
	}
	if err != nil {
		return nil, fmt.Errorf("reading stream %s on %s: %w", stream, shape, err)
	}
	return data, nil
}

// Has reports whether shape carries a stream of the given type.
func (s *Store) Has(shape, stream uuid.UUID) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM streams WHERE shape_id = ? AND stream_id = ?`,
		shape.String(), stream.String()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking stream %s on %s: %w", stream, shape, err)
	}
	return n > 0, nil
}

// Delete removes a stream. Deleting an absent stream is not an error.
func (s *Store) Delete(shape, stream uuid.UUID) error {
	_, err := s.db.Exec(`DELETE FROM streams WHERE shape_id = ? AND stream_id = ?`,
		shape.String(), stream.String())
	if err != nil {
		return fmt.Errorf("deleting stream %s on %s: %w", stream, shape, err)
	}
	return nil
}

// List returns every stored stream of the given type, oldest shape first.
func (s *Store) List(stream uuid.UUID) ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT shape_id, stream_id, shape_name, length(data), updated_at
		FROM streams WHERE stream_id = ?
		ORDER BY rowid`, stream.String())
	if err != nil {
		return nil, fmt.Errorf("listing streams: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			shapeID, streamID string
			updated           int64
			e                 Entry
		)
		if err := rows.Scan(&shapeID, &streamID, &e.ShapeName, &e.Size, &updated); err != nil {
			return nil, fmt.Errorf("scanning stream row: %w", err)
		}
		e.UpdatedAt = time.Unix(updated, 0)
		if e.Shape, err = uuid.Parse(shapeID); err != nil {
			return nil, fmt.Errorf("bad shape id %q: %w", shapeID, err)
		}
		if e.Stream, err = uuid.Parse(streamID); err != nil {
			return nil, fmt.Errorf("bad stream id %q: %w", streamID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
