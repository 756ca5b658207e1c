// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package snapcache persists the last good snapshot per event so the
// dashboard can render something immediately on startup or during a
// backend outage. Snapshots are CBOR-encoded, zstd-compressed, and
// stored in a local SQLite file keyed by event ID. A BLAKE3 digest of
// the raw encoding detects both corruption on read and no-op writes:
// a Put whose payload digest matches the stored row only refreshes
// the timestamp.
//
// Cached snapshots are always presented as stale data. The cache is
// an availability aid, never a source of truth.
package snapcache
