// Copyright (c) HashiCorp, Inc
// SPDX-License-Identifier: MPL-2.0

package segment

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dreamsxin/logseg/types"
)

func TestFileNameRoundTrip(t *testing.T) {
	info := types.SegmentInfo{ID: 0xabcdef, BaseIndex: 12345}
	name := FileName(info)
	require.Equal(t, "00000000000000012345-0000000000abcdef.seg", name)

	parsed, ok := parseFileName(name)
	require.True(t, ok)
	require.Equal(t, info.ID, parsed.ID)
	require.Equal(t, info.BaseIndex, parsed.BaseIndex)

	for _, bad := range []string{
		"wal-meta.db",
		"00000000000000012345.seg",
		"0000000012345-0000000000abcdef.seg",
		"00000000000000012345-0000000000abcdef.tmp",
	} {
		_, ok := parseFileName(bad)
		require.False(t, ok, "expected %q to be rejected", bad)
	}
}

func TestFilerLifecycle(t *testing.T) {
	dir := t.TempDir()
	f := NewFiler(dir)

	one := types.SegmentInfo{ID: 1, BaseIndex: 1, MaxCount: 8, CreateTime: time.Now()}
	w, err := f.Create(one)
	require.NoError(t, err)
	require.NoError(t, w.Append(1, 1, []byte("a")))
	require.NoError(t, w.Append(2, 1, []byte("bb")))
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	// IDs are never reused; a colliding file means corrupt metadata.
	_, err = f.Create(one)
	require.Error(t, err)

	two := types.SegmentInfo{ID: 2, BaseIndex: 100, MaxCount: 8}
	w, err = f.Create(two)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	segs, err := f.List()
	require.NoError(t, err)
	require.Equal(t, 2, segs.Len())

	// Sorted by base index.
	it := segs.Iterator()
	base, info, _ := it.Next()
	require.Equal(t, uint64(1), base)
	require.Equal(t, uint64(1), info.ID)
	base, info, _ = it.Next()
	require.Equal(t, uint64(100), base)
	require.Equal(t, uint64(2), info.ID)

	// Recover the tail for appending and carry on where it left off.
	w, err = f.RecoverTail(one)
	require.NoError(t, err)
	require.Equal(t, uint64(2), w.LastIndex())
	require.NoError(t, w.Append(3, 1, []byte("ccc")))
	require.NoError(t, w.Close())

	r, err := f.Open(one)
	require.NoError(t, err)
	entries, err := r.Read(1, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.NoError(t, r.Close())

	require.NoError(t, f.Delete(two.BaseIndex, two.ID))
	// Idempotent: the file is already gone.
	require.NoError(t, f.Delete(two.BaseIndex, two.ID))

	segs, err = f.List()
	require.NoError(t, err)
	require.Equal(t, 1, segs.Len())
}

func TestFilerRecoverTailMissing(t *testing.T) {
	f := NewFiler(t.TempDir())
	_, err := f.RecoverTail(types.SegmentInfo{ID: 9, BaseIndex: 9})
	require.Error(t, err)
	require.True(t, errors.Is(err, os.ErrNotExist))
}
