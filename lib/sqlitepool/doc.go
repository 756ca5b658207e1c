// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the SQLite connection pool used for
// Event Control's local storage (the snapshot cache).
//
// It wraps zombiezen.com/go/sqlite with production defaults: WAL
// journal mode, NORMAL synchronous for process-crash durability
// without fsync-per-commit overhead, memory-mapped I/O for reads, and
// a busy timeout so write contention waits instead of failing.
//
// The pool is built on zombiezen's sqlitex.Pool. Callers [Pool.Take]
// a connection, perform work, and [Pool.Put] it back. Connections are
// NOT safe for concurrent use — each goroutine must hold its own
// connection for the duration of its work.
//
// # Pragmas
//
// Every connection in the pool is initialized with these pragmas:
//
//   - journal_mode=WAL: write-ahead logging for concurrent readers
//     and a single writer.
//   - synchronous=NORMAL: transactions survive process crashes. Not
//     durable across power failure — acceptable for a cache whose
//     source of truth is the backend.
//   - busy_timeout=5000: wait up to 5 seconds for a write lock
//     instead of returning SQLITE_BUSY immediately.
//   - foreign_keys=OFF: referential integrity is managed explicitly.
//   - cache_size=-8192: 8 MB page cache per connection.
//   - mmap_size=268435456: 256 MB memory-mapped I/O for reads.
//   - temp_store=MEMORY: temporary tables and indexes in memory.
//
// # Usage
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:   "/var/cache/event-control/snapshots.db",
//	    Logger: logger,
//	    OnConnect: func(conn *sqlite.Conn) error {
//	        return sqlitex.ExecuteScript(conn, schema, nil)
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
// This package is intentionally thin: it applies standard pragmas and
// exposes the underlying zombiezen types directly. Callers write SQL
// and use sqlitex.Execute for cached statements; there is no query
// builder layer.
package sqlitepool
