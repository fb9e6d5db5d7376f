// Copyright (c) HashiCorp, Inc
// SPDX-License-Identifier: MPL-2.0

package segment

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type segmentMetrics struct {
	appends           prometheus.Counter
	entryBytesWritten prometheus.Counter
	entriesRead       prometheus.Counter
	entryBytesRead    prometheus.Counter
	syncs             prometheus.Counter
	recoveries        prometheus.Counter
	recoveredEntries  prometheus.Counter
	checksumFailures  prometheus.Counter
}

func newSegmentMetrics(reg prometheus.Registerer) *segmentMetrics {
	return &segmentMetrics{
		appends: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "segment_appends",
			Help: "segment_appends counts the number of entries appended.",
		}),
		entryBytesWritten: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "segment_entry_bytes_written",
			Help: "segment_entry_bytes_written counts payload bytes appended." +
				" Actual bytes written to disk are slightly higher as each entry" +
				" also writes a fixed-width index record.",
		}),
		entriesRead: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "segment_entries_read",
			Help: "segment_entries_read counts the entries returned by reads.",
		}),
		entryBytesRead: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "segment_entry_bytes_read",
			Help: "segment_entry_bytes_read counts payload bytes returned by reads.",
		}),
		syncs: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "segment_syncs",
			Help: "segment_syncs counts explicit sync calls, i.e. fsyncs issued.",
		}),
		recoveries: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "segment_recoveries",
			Help: "segment_recoveries counts index table scans performed when" +
				" opening existing segment files.",
		}),
		recoveredEntries: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "segment_recovered_entries",
			Help: "segment_recovered_entries counts index records accepted" +
				" during recovery scans.",
		}),
		checksumFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "segment_checksum_failures",
			Help: "segment_checksum_failures counts reads that detected a" +
				" payload whose checksum did not match its index record.",
		}),
	}
}
