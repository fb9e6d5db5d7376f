// Copyright (c) HashiCorp, Inc
// SPDX-License-Identifier: MPL-2.0

// Package types contains the shared value types, interfaces and sentinel
// errors that the segment, metadb and client packages traffic in.
package types

import (
	"io"
	"time"
)

// LogEntry is one raft log record as stored in and returned from a segment.
// Index and Term are assigned by the replicated-log layer above; this module
// treats them as opaque monotonic coordinates.
type LogEntry struct {
	Index uint64
	Term  uint64
	Data  []byte
}

// SegmentInfo is the metadata describing one segment file. It is the unit
// that the Filer hands out and the MetaStore persists. The fields other than
// ID and BaseIndex are owned by the layer managing segment lifecycles; the
// segment itself only ever reads MaxCount at creation.
type SegmentInfo struct {
	// ID uniquely identifies this segment file for its whole life. IDs are
	// never reused even if the file is deleted.
	ID uint64

	// BaseIndex is the raft index the first entry in this segment is expected
	// to carry.
	BaseIndex uint64

	// MaxCount is the entry capacity written into the file header at
	// creation. Ignored when reopening an existing file.
	MaxCount int

	// CreateTime is when the segment file was first created.
	CreateTime time.Time

	// SealTime is zero while the segment is still the writable tail. Clients
	// set it when they stop appending to the segment for good.
	SealTime time.Time
}

// PersistentState is the state a client durably commits to a MetaStore after
// every change to its set of segments.
type PersistentState struct {
	NextSegmentID uint64
	Segments      []SegmentInfo
}

// SegmentWriter is the interface appending clients hold on a segment opened
// in append mode.
type SegmentWriter interface {
	io.Closer

	// Append stores one entry. Returns ErrFull once every index slot is
	// occupied; the file is untouched in that case.
	Append(index, term uint64, data []byte) error

	// Sync flushes all outstanding writes to durable storage. Append never
	// syncs implicitly; callers must Sync before acknowledging entries.
	Sync() error

	// LastIndex returns the raft index of the most recently appended entry,
	// or 0 if the segment is empty.
	LastIndex() uint64

	// Full reports whether every index slot is occupied.
	Full() bool
}

// SegmentReader is the interface reading clients hold on a segment opened in
// read mode.
type SegmentReader interface {
	io.Closer

	// Read returns the entries with raft indices in [start, start+count), in
	// ascending index order. Indices not present in the segment are skipped.
	Read(start uint64, count int) ([]LogEntry, error)
}

// MetaStore persists the small amount of metadata clients need to track
// their segment files reliably.
type MetaStore interface {
	io.Closer

	// Load reads the persisted state from dir, creating an empty store if
	// none exists yet.
	Load(dir string) (PersistentState, error)

	// CommitState atomically replaces the persisted state. It must not
	// return until the state is durable.
	CommitState(state PersistentState) error

	// GetStable returns the value stored for key, or nil.
	GetStable(key []byte) ([]byte, error)

	// SetStable durably stores value under key.
	SetStable(key, value []byte) error
}
