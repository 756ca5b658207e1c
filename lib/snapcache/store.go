// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

package snapcache

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/DavidCapener182/compact-event-control/lib/sqlitepool"
)

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding: same logical snapshot always produces identical bytes, so
// the digest comparison in Put is a reliable change check.
var encMode cbor.EncMode

// zstdEncoder and zstdDecoder are reused across calls. Both are safe
// for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("snapcache: CBOR encoder initialization failed: " + err.Error())
	}
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("snapcache: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("snapcache: zstd decoder initialization failed: " + err.Error())
	}
}

// Store is the on-disk snapshot cache. Safe for concurrent use.
type Store struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
	path   string
}

// Open opens (or creates) the cache database at path. Use ":memory:"
// in tests. The caller must call Close when done.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("snapcache: path is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	poolSize := 2
	if path == ":memory:" {
		// Each in-memory connection is an independent database.
		poolSize = 1
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:      path,
		PoolSize:  poolSize,
		Logger:    logger,
		OnConnect: createSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("snapcache: opening %s: %w", path, err)
	}

	logger.Info("snapshot cache opened", "path", path)
	return &Store{pool: pool, logger: logger, path: path}, nil
}

// createSchema runs once per connection, on first use. Pragmas come
// from the pool.
func createSchema(conn *sqlite.Conn) error {
	return sqlitex.ExecuteScript(conn, `
		CREATE TABLE IF NOT EXISTS snapshots (
			event_id TEXT PRIMARY KEY,
			digest   BLOB NOT NULL,
			payload  BLOB NOT NULL,
			saved_at INTEGER NOT NULL
		);
	`, nil)
}

// Close closes the cache database.
func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("snapcache: closing %s: %w", s.path, err)
	}
	return nil
}

// Put stores snapshot as the last-known state for eventID. A snapshot
// whose encoding is unchanged from the stored row only refreshes the
// saved-at timestamp.
func (s *Store) Put(ctx context.Context, eventID string, snapshot any, savedAt time.Time) error {
	if eventID == "" {
		return fmt.Errorf("snapcache: event ID is required")
	}

	encoded, err := encMode.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("snapcache: encoding snapshot for %s: %w", eventID, err)
	}
	digest := blake3.Sum256(encoded)

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("snapcache: take: %w", err)
	}
	defer s.pool.Put(conn)

	var existing []byte
	err = sqlitex.Execute(conn, "SELECT digest FROM snapshots WHERE event_id = ?", &sqlitex.ExecOptions{
		Args: []any{eventID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			existing = make([]byte, stmt.ColumnLen(0))
			stmt.ColumnBytes(0, existing)
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("snapcache: reading digest for %s: %w", eventID, err)
	}

	if bytes.Equal(existing, digest[:]) {
		err = sqlitex.Execute(conn, "UPDATE snapshots SET saved_at = ? WHERE event_id = ?", &sqlitex.ExecOptions{
			Args: []any{savedAt.UnixMilli(), eventID},
		})
		if err != nil {
			return fmt.Errorf("snapcache: touching %s: %w", eventID, err)
		}
		return nil
	}

	payload := zstdEncoder.EncodeAll(encoded, nil)
	err = sqlitex.Execute(conn, `
		INSERT INTO snapshots (event_id, digest, payload, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (event_id) DO UPDATE SET
			digest = excluded.digest,
			payload = excluded.payload,
			saved_at = excluded.saved_at`, &sqlitex.ExecOptions{
		Args: []any{eventID, digest[:], payload, savedAt.UnixMilli()},
	})
	if err != nil {
		return fmt.Errorf("snapcache: writing %s: %w", eventID, err)
	}

	s.logger.Debug("snapshot cached",
		"event_id", eventID,
		"encoded_bytes", len(encoded),
		"stored_bytes", len(payload),
	)
	return nil
}

// Get loads the cached snapshot for eventID into dest. The second
// return is false when no snapshot is cached. A row whose payload
// fails digest verification is treated as absent and deleted.
func (s *Store) Get(ctx context.Context, eventID string, dest any) (time.Time, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("snapcache: take: %w", err)
	}
	defer s.pool.Put(conn)

	var digest, payload []byte
	var savedAtMilli int64
	found := false
	err = sqlitex.Execute(conn, "SELECT digest, payload, saved_at FROM snapshots WHERE event_id = ?", &sqlitex.ExecOptions{
		Args: []any{eventID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			digest = make([]byte, stmt.ColumnLen(0))
			stmt.ColumnBytes(0, digest)
			payload = make([]byte, stmt.ColumnLen(1))
			stmt.ColumnBytes(1, payload)
			savedAtMilli = stmt.ColumnInt64(2)
			return nil
		},
	})
	if err != nil {
		return time.Time{}, false, fmt.Errorf("snapcache: reading %s: %w", eventID, err)
	}
	if !found {
		return time.Time{}, false, nil
	}

	encoded, err := zstdDecoder.DecodeAll(payload, nil)
	if err != nil {
		s.dropCorrupt(conn, eventID, err)
		return time.Time{}, false, nil
	}
	computed := blake3.Sum256(encoded)
	if !bytes.Equal(computed[:], digest) {
		s.dropCorrupt(conn, eventID, fmt.Errorf("digest mismatch"))
		return time.Time{}, false, nil
	}
	if err := cbor.Unmarshal(encoded, dest); err != nil {
		return time.Time{}, false, fmt.Errorf("snapcache: decoding %s: %w", eventID, err)
	}
	return time.UnixMilli(savedAtMilli), true, nil
}

// dropCorrupt removes a row that failed decompression or digest
// verification. A cache miss is always recoverable; a corrupt row
// that lingers is not.
func (s *Store) dropCorrupt(conn *sqlite.Conn, eventID string, cause error) {
	s.logger.Warn("dropping corrupt cached snapshot",
		"event_id", eventID,
		"error", cause,
	)
	err := sqlitex.Execute(conn, "DELETE FROM snapshots WHERE event_id = ?", &sqlitex.ExecOptions{
		Args: []any{eventID},
	})
	if err != nil {
		s.logger.Error("deleting corrupt snapshot failed",
			"event_id", eventID,
			"error", err,
		)
	}
}
