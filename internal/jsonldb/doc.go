// Package jsonldb provides a generic, concurrent-safe, JSONL-backed data store.
//
// # Overview
//
// [Table] stores rows in a JSONL (JSON Lines) file with full in-memory caching
// for fast reads. Tables are safe for concurrent use by multiple goroutines.
// Every row is identified by a [ksid.ID] returned by its GetID method.
//
// # Secondary Indexes
//
// [UniqueIndex] and [Index] provide O(1) lookups by arbitrary keys, staying
// synchronized with table mutations via [TableObserver].
//
// # File Format
//
// Line 1 is a schema header holding the format version and the JSON Schema of
// the row type. Subsequent lines are JSON rows. Files written without a header
// are still readable; the header is added on the next rewrite.
//
// # Blobs
//
// [BlobStore] keeps binary payloads out of the JSONL file in a
// content-addressed directory. Rows reference them by [BlobRef].
package jsonldb
