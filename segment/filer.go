// Copyright (c) HashiCorp, Inc
// SPDX-License-Identifier: MPL-2.0

package segment

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/benbjohnson/immutable"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreamsxin/logseg/types"
)

const segmentFileSuffix = ".seg"

// FileName returns the on-disk name for a segment: zero-padded base index,
// then the segment ID in hex, so lexical order matches base index order.
func FileName(info types.SegmentInfo) string {
	return fmt.Sprintf("%020d-%016x%s", info.BaseIndex, info.ID, segmentFileSuffix)
}

// Filer hands out segment handles within one directory and owns the mapping
// between SegmentInfo metadata and file names. It deliberately knows nothing
// about ordering entries across segments; chaining segments into a log is
// the caller's business.
type Filer struct {
	dir     string
	logger  log.Logger
	metrics *segmentMetrics
}

// FilerOption configures a Filer.
type FilerOption func(*Filer)

// WithFilerLogger sets the logger passed on to every segment the Filer
// opens.
func WithFilerLogger(logger log.Logger) FilerOption {
	return func(f *Filer) { f.logger = logger }
}

// WithFilerMetricsRegisterer registers one shared set of segment collectors
// that every segment opened through this Filer feeds.
func WithFilerMetricsRegisterer(reg prometheus.Registerer) FilerOption {
	return func(f *Filer) { f.metrics = newSegmentMetrics(reg) }
}

// NewFiler creates a Filer for dir. The directory must already exist.
func NewFiler(dir string, opts ...FilerOption) *Filer {
	f := &Filer{dir: dir}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = log.NewNopLogger()
	}
	if f.metrics == nil {
		f.metrics = newSegmentMetrics(nil)
	}
	return f
}

// Create creates the file for a brand new segment in append mode. It fails
// if the file already exists; IDs are never reused so a pre-existing file
// means the caller's metadata is out of sync with the directory.
func (f *Filer) Create(info types.SegmentInfo) (*Segment, error) {
	fname := filepath.Join(f.dir, FileName(info))
	if _, err := os.Stat(fname); err == nil {
		return nil, fmt.Errorf("segment file %q already exists", fname)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat segment file: %w", err)
	}

	maxCount := info.MaxCount
	if maxCount == 0 {
		maxCount = DefaultMaxCount
	}
	return Open(fname,
		WithMaxCount(maxCount),
		WithLogger(f.logger),
		withMetrics(f.metrics),
	)
}

// RecoverTail reopens an existing segment for appending, recovering the
// write cursors from its index table. Unlike Create it requires the file to
// exist already: a missing tail file is a condition the caller handles
// (e.g. a crash between committing metadata and creating the file), so the
// os.ErrNotExist is preserved in the returned error chain.
func (f *Filer) RecoverTail(info types.SegmentInfo) (*Segment, error) {
	fname := filepath.Join(f.dir, FileName(info))
	if _, err := os.Stat(fname); err != nil {
		return nil, fmt.Errorf("failed to recover segment tail: %w", err)
	}
	return Open(fname,
		WithLogger(f.logger),
		withMetrics(f.metrics),
	)
}

// Open opens an existing segment read-only.
func (f *Filer) Open(info types.SegmentInfo) (*Segment, error) {
	fname := filepath.Join(f.dir, FileName(info))
	return Open(fname,
		WithMode(ModeRead),
		WithLogger(f.logger),
		withMetrics(f.metrics),
	)
}

// List scans the directory and returns the segments found, keyed and sorted
// by base index. Only ID and BaseIndex are populated since only they are
// encoded in the file name. Files that don't look like segments are
// ignored.
func (f *Filer) List() (*immutable.SortedMap[uint64, types.SegmentInfo], error) {
	des, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list segment dir: %w", err)
	}

	segs := &immutable.SortedMap[uint64, types.SegmentInfo]{}
	for _, de := range des {
		if de.IsDir() {
			continue
		}
		info, ok := parseFileName(de.Name())
		if !ok {
			level.Debug(f.logger).Log("msg", "ignoring non-segment file", "name", de.Name())
			continue
		}
		segs = segs.Set(info.BaseIndex, info)
	}
	return segs, nil
}

// Delete removes the file for the segment with the given base index and ID.
// Deleting a file that is already gone is not an error.
func (f *Filer) Delete(baseIndex, ID uint64) error {
	fname := filepath.Join(f.dir, FileName(types.SegmentInfo{BaseIndex: baseIndex, ID: ID}))
	if err := os.Remove(fname); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete segment file: %w", err)
	}
	return nil
}

func parseFileName(name string) (types.SegmentInfo, bool) {
	if !strings.HasSuffix(name, segmentFileSuffix) {
		return types.SegmentInfo{}, false
	}
	base := strings.TrimSuffix(name, segmentFileSuffix)
	parts := strings.SplitN(base, "-", 2)
	if len(parts) != 2 || len(parts[0]) != 20 || len(parts[1]) != 16 {
		return types.SegmentInfo{}, false
	}
	baseIndex, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return types.SegmentInfo{}, false
	}
	id, err := strconv.ParseUint(parts[1], 16, 64)
	if err != nil {
		return types.SegmentInfo{}, false
	}
	return types.SegmentInfo{ID: id, BaseIndex: baseIndex}, true
}
