// Copyright (c) HashiCorp, Inc
// SPDX-License-Identifier: MPL-2.0

package types

import "errors"

var (
	// ErrFull is returned by Append when every index slot in the segment is
	// occupied. It is the only expected, recoverable error: the caller rolls
	// over to a new segment file and retries there.
	ErrFull = errors.New("segment full")

	// ErrInvalidVersion is returned when opening a file whose header carries
	// an unknown format version. The segment is unusable.
	ErrInvalidVersion = errors.New("invalid segment version")

	// ErrCorrupt is returned when a payload read from disk fails checksum
	// validation. Corruption is fatal for the affected segment.
	ErrCorrupt = errors.New("checksum mismatch")

	// ErrNotFound identifies a named segment file that does not exist. No
	// function in this module returns it: Open and the Filer report a missing
	// file with os.ErrNotExist in the error chain.
	ErrNotFound = errors.New("segment not found")

	// ErrClosed is returned for operations on a closed segment.
	ErrClosed = errors.New("segment closed")

	// ErrReadOnly is returned when Append is called on a segment opened in
	// read mode.
	ErrReadOnly = errors.New("segment opened read-only")

	// ErrAppendOnly is returned when Read is called on a segment opened in
	// append mode, which does not retain the in-memory index.
	ErrAppendOnly = errors.New("segment opened append-only")

	// ErrTooLarge is returned when a payload's length does not fit in the
	// 32-bit on-disk length field, or when appending it would carry the data
	// region past the 32-bit offset range. Treated like an I/O failure: the
	// entry cannot be represented and nothing was written.
	ErrTooLarge = errors.New("entry larger than maximum encodable size")
)
