// Copyright (c) HashiCorp, Inc
// SPDX-License-Identifier: MPL-2.0

package metadb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dreamsxin/logseg/types"
)

func TestLoadFresh(t *testing.T) {
	var db BoltMetaDB
	state, err := db.Load(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, types.PersistentState{}, state)
	require.NoError(t, db.Close())
}

func TestCommitAndReload(t *testing.T) {
	dir := t.TempDir()

	state := types.PersistentState{
		NextSegmentID: 3,
		Segments: []types.SegmentInfo{
			{ID: 1, BaseIndex: 1, MaxCount: 4096, CreateTime: time.Now().UTC(), SealTime: time.Now().UTC()},
			{ID: 2, BaseIndex: 5000, MaxCount: 4096, CreateTime: time.Now().UTC()},
		},
	}

	var db BoltMetaDB
	_, err := db.Load(dir)
	require.NoError(t, err)
	require.NoError(t, db.CommitState(state))
	require.NoError(t, db.SetStable([]byte("current-term"), []byte{0x07}))
	require.NoError(t, db.Close())

	// A second process opening the same dir sees the committed state.
	var db2 BoltMetaDB
	loaded, err := db2.Load(dir)
	require.NoError(t, err)
	defer db2.Close()
	require.Equal(t, state, loaded)

	val, err := db2.GetStable([]byte("current-term"))
	require.NoError(t, err)
	require.Equal(t, []byte{0x07}, val)

	missing, err := db2.GetStable([]byte("nope"))
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestLoadTwice(t *testing.T) {
	dir := t.TempDir()

	var db BoltMetaDB
	_, err := db.Load(dir)
	require.NoError(t, err)
	defer db.Close()

	// Same dir is fine, a different dir is not.
	_, err = db.Load(dir)
	require.NoError(t, err)
	_, err = db.Load(t.TempDir())
	require.Error(t, err)
}

func TestCommitBeforeLoad(t *testing.T) {
	var db BoltMetaDB
	require.Error(t, db.CommitState(types.PersistentState{}))
	require.Error(t, db.SetStable([]byte("k"), []byte("v")))
	_, err := db.GetStable([]byte("k"))
	require.Error(t, err)
}
