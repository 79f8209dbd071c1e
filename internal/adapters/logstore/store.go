// Package logstore implements ports.Store as an append-only SQLite log.
//
// Every write appends a row to the entries table; its rowid is the log
// position. The heads table indexes the newest entry of each key, so iteration
// by key prefix never scans the whole log.
//
// A store is either the writer of the shared log or a sparse replica of it.
// The writer appends with Put and Delete. A replica only receives entries
// through Import, at the position the writer gave them, so a position names
// the same entry on every node.
package logstore

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.trai.ch/ims/internal/adapters/logstore/migrations"
	"go.trai.ch/ims/internal/adapters/wire"
	"go.trai.ch/ims/internal/core/domain"
	"go.trai.ch/ims/internal/core/ports"
	"go.trai.ch/zerr"

	// Import SQLite driver for database/sql
	_ "modernc.org/sqlite"
)

// DefaultPageSize is the number of keys fetched per iterator round trip.
const DefaultPageSize = 64

var _ ports.Store = (*Store)(nil)

// Store is a SQLite-backed append-only log with a key index.
type Store struct {
	db       *sql.DB
	pageSize int

	mu sync.Mutex
	// length is the highest position held.
	length uint64
	// contiguous is the length of the unbroken run of entries from position 1.
	contiguous uint64
	// sparse holds the positions above contiguous that are present.
	sparse map[uint64]struct{}
	// replica is set once any entry was imported.
	replica bool
}

// Option configures a Store.
type Option func(*Store)

// WithPageSize sets the number of keys an iterator fetches at once.
func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// Open opens the log at path, creating and migrating it if needed.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return nil, zerr.With(errors.Join(domain.ErrStoreOpenFailed, err), "path", path)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, zerr.With(errors.Join(domain.ErrStoreOpenFailed, err), "path", path)
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(ON)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		filepath.ToSlash(absPath),
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, zerr.With(errors.Join(domain.ErrStoreOpenFailed, err), "path", path)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, zerr.With(errors.Join(domain.ErrStoreOpenFailed, err), "path", path)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, zerr.With(err, "path", path)
	}

	s := &Store{db: db, pageSize: DefaultPageSize, sparse: make(map[uint64]struct{})}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.Update(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func runMigrations(db *sql.DB) error {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return errors.Join(domain.ErrStoreMigrationFailed, err)
	}

	sourceDriver, err := iofs.New(migrations.Files, ".")
	if err != nil {
		return errors.Join(domain.ErrStoreMigrationFailed, err)
	}
	defer func() {
		_ = sourceDriver.Close()
	}()

	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return errors.Join(domain.ErrStoreMigrationFailed, err)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Join(domain.ErrStoreMigrationFailed, err)
	}

	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ready checks that the database answers.
func (s *Store) Ready(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.Join(domain.ErrStoreReadFailed, err)
	}
	return nil
}

// Update reloads the set of held positions from disk.
func (s *Store) Update(ctx context.Context) error {
	var length, count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0), COUNT(*) FROM entries`).Scan(&length, &count)
	if err != nil {
		return errors.Join(domain.ErrStoreReadFailed, err)
	}

	var replica bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM entries WHERE imported = 1)`).Scan(&replica)
	if err != nil {
		return errors.Join(domain.ErrStoreReadFailed, err)
	}

	contiguous := length
	var held []uint64
	if count != length {
		if contiguous, err = s.firstGap(ctx); err != nil {
			return err
		}
		if held, err = s.positionsAbove(ctx, contiguous); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replica = s.replica || replica
	s.length = max(s.length, uint64(length))             //nolint:gosec // rowids are positive
	s.contiguous = max(s.contiguous, uint64(contiguous)) //nolint:gosec // rowids are positive
	for _, position := range held {
		s.sparse[position] = struct{}{}
	}
	s.compactLocked()
	return nil
}

// firstGap returns the length of the run of entries starting at position 1.
func (s *Store) firstGap(ctx context.Context) (int64, error) {
	var end int64
	err := s.db.QueryRowContext(ctx, `
		SELECT CASE WHEN EXISTS (SELECT 1 FROM entries WHERE position = 1) THEN (
			SELECT MIN(e.position) FROM entries e
			WHERE NOT EXISTS (SELECT 1 FROM entries n WHERE n.position = e.position + 1)
		) ELSE 0 END`).Scan(&end)
	if err != nil {
		return 0, errors.Join(domain.ErrStoreReadFailed, err)
	}
	return end, nil
}

func (s *Store) positionsAbove(ctx context.Context, floor int64) ([]uint64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT position FROM entries WHERE position > ?`, floor)
	if err != nil {
		return nil, errors.Join(domain.ErrStoreReadFailed, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []uint64
	for rows.Next() {
		var position int64
		if err := rows.Scan(&position); err != nil {
			return nil, errors.Join(domain.ErrStoreReadFailed, err)
		}
		out = append(out, uint64(position)) //nolint:gosec // rowids are positive
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(domain.ErrStoreReadFailed, err)
	}
	return out, nil
}

// Version returns the highest position held locally.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.length
}

// Contiguous returns how many entries from position 1 on are held without a
// gap. This is what the node advertises to peers.
func (s *Store) Contiguous() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contiguous
}

// Has reports whether the entry at position is held locally.
func (s *Store) Has(position uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if position == 0 {
		return false
	}
	if position <= s.contiguous {
		return true
	}
	_, ok := s.sparse[position]
	return ok
}

// IsReplica reports whether the store holds imported entries.
func (s *Store) IsReplica() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replica
}

func (s *Store) hold(position uint64, imported bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if imported {
		s.replica = true
	}
	s.length = max(s.length, position)
	if position > s.contiguous {
		s.sparse[position] = struct{}{}
	}
	s.compactLocked()
}

func (s *Store) compactLocked() {
	for position := range s.sparse {
		if position <= s.contiguous {
			delete(s.sparse, position)
		}
	}
	for {
		next := s.contiguous + 1
		if _, ok := s.sparse[next]; !ok {
			return
		}
		delete(s.sparse, next)
		s.contiguous = next
	}
}

// Get returns the live record under key, or nil if there is none.
func (s *Store) Get(ctx context.Context, key string) (*domain.Node, error) {
	var (
		position int64
		value    []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT e.position, e.value
		FROM heads h JOIN entries e ON e.position = h.position
		WHERE h.key = ? AND h.tombstone = 0`, key).Scan(&position, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, zerr.With(errors.Join(domain.ErrStoreReadFailed, err), "key", key)
	}

	return decodeNode(key, position, value)
}

// Put appends record under key and makes it the live entry for that key.
func (s *Store) Put(ctx context.Context, key string, record domain.Record) (uint64, error) {
	position, err := s.append(ctx, key, wire.EncodeRecord(record), false)
	if err != nil {
		return 0, err
	}
	return position, nil
}

// Delete appends a tombstone for key. The key no longer resolves afterwards.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.append(ctx, key, nil, true)
	return err
}

func (s *Store) append(ctx context.Context, key string, value []byte, tombstone bool) (uint64, error) {
	if s.IsReplica() {
		return 0, zerr.With(zerr.Wrap(domain.ErrReplicaReadOnly, "replicas only import entries"), "key", key)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, zerr.With(errors.Join(domain.ErrStoreWriteFailed, err), "key", key)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO entries (key, value, tombstone) VALUES (?, ?, ?)`,
		key, value, tombstone)
	if err != nil {
		return 0, zerr.With(errors.Join(domain.ErrStoreWriteFailed, err), "key", key)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, zerr.With(errors.Join(domain.ErrStoreWriteFailed, err), "key", key)
	}

	if err := setHead(ctx, tx, key, id, tombstone); err != nil {
		return 0, zerr.With(errors.Join(domain.ErrStoreWriteFailed, err), "key", key)
	}

	if err := tx.Commit(); err != nil {
		return 0, zerr.With(errors.Join(domain.ErrStoreWriteFailed, err), "key", key)
	}

	position := uint64(id) //nolint:gosec // rowids are positive
	s.hold(position, false)
	return position, nil
}

// setHead points key at position unless a newer entry for key is already
// indexed. Entries may be imported out of order, so an older put must not
// replace a newer tombstone.
func setHead(ctx context.Context, tx *sql.Tx, key string, position int64, tombstone bool) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO heads (key, position, tombstone) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET position = excluded.position, tombstone = excluded.tombstone
		WHERE excluded.position > heads.position`, key, position, tombstone)
	return err
}

// Import stores an entry of the shared log at the position it has there.
// Importing an entry that is already held is a no-op; a different entry at
// the same position means the two logs diverged.
func (s *Store) Import(ctx context.Context, node *domain.Node) error {
	if node.Position == 0 || node.Position > math.MaxInt64 {
		return zerr.With(zerr.Wrap(domain.ErrPositionOutOfRange, "invalid position"), "position", node.Position)
	}
	position := int64(node.Position)

	var value []byte
	if !node.Tombstone {
		value = wire.EncodeRecord(node.Record)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return zerr.With(errors.Join(domain.ErrStoreWriteFailed, err), "position", node.Position)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var (
		key       string
		existing  []byte
		tombstone bool
	)
	err = tx.QueryRowContext(ctx,
		`SELECT key, value, tombstone FROM entries WHERE position = ?`, position,
	).Scan(&key, &existing, &tombstone)
	switch {
	case err == nil:
		if key == node.Key && tombstone == node.Tombstone && bytes.Equal(existing, value) {
			return nil
		}
		err = zerr.With(zerr.Wrap(domain.ErrReplicaConflict, "position holds a different entry"), "position", node.Position)
		return zerr.With(err, "key", node.Key)
	case !errors.Is(err, sql.ErrNoRows):
		return zerr.With(errors.Join(domain.ErrStoreReadFailed, err), "position", node.Position)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO entries (position, key, value, tombstone, imported) VALUES (?, ?, ?, ?, 1)`,
		position, node.Key, value, node.Tombstone)
	if err != nil {
		return zerr.With(errors.Join(domain.ErrStoreWriteFailed, err), "position", node.Position)
	}

	if err := setHead(ctx, tx, node.Key, position, node.Tombstone); err != nil {
		return zerr.With(errors.Join(domain.ErrStoreWriteFailed, err), "position", node.Position)
	}

	if err := tx.Commit(); err != nil {
		return zerr.With(errors.Join(domain.ErrStoreWriteFailed, err), "position", node.Position)
	}

	s.hold(node.Position, true)
	return nil
}

// ReadByPosition returns the entry at position, tombstones included.
// A position that is not held locally yields domain.ErrPositionOutOfRange.
func (s *Store) ReadByPosition(ctx context.Context, position uint64) (*domain.Node, error) {
	var (
		key       string
		value     []byte
		tombstone bool
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT key, value, tombstone FROM entries WHERE position = ?`,
		int64(position), //nolint:gosec // positions stay far below MaxInt64
	).Scan(&key, &value, &tombstone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, zerr.With(zerr.Wrap(domain.ErrPositionOutOfRange, "no entry at position"), "position", position)
	}
	if err != nil {
		return nil, zerr.With(errors.Join(domain.ErrStoreReadFailed, err), "position", position)
	}

	if tombstone {
		return &domain.Node{Key: key, Position: position, Tombstone: true}, nil
	}
	return decodeNode(key, int64(position), value) //nolint:gosec // see above
}

func decodeNode(key string, position int64, value []byte) (*domain.Node, error) {
	record, err := wire.DecodeRecord(value)
	if err != nil {
		err = zerr.With(err, "key", key)
		return nil, zerr.With(err, "position", position)
	}
	return &domain.Node{
		Key:      key,
		Record:   record,
		Position: uint64(position), //nolint:gosec // rowids are positive
	}, nil
}
