package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wowsreplays/ingest/internal/match"
	"github.com/wowsreplays/ingest/internal/repcore"
	"github.com/wowsreplays/ingest/pkg/wowsreplay"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleMatch(arenaID string) *wowsreplay.Match {
	return &wowsreplay.Match{
		ArenaUniqueID:    arenaID,
		ListingKey:       "ACTIVE",
		UnixTime:         1000,
		DateTime:         "03.01.2026 23:28:22",
		DateTimeSortable: "20260103232822",
		MapID:            "spaces/19_OC_prey",
		GameType:         repcore.GameTypeClan,
		Allies:           []wowsreplay.Player{{Name: "_meteor0090", ShipName: "Khabarovsk", ClanTag: "OZEKI"}},
		Enemies:          []wowsreplay.Player{{Name: "EnemyOne", ShipName: "Shimakaze", ClanTag: "FOO"}},
		Uploaders: []wowsreplay.Uploader{
			{PlayerID: "p1", PlayerName: "_meteor0090", Team: repcore.TeamAlly},
		},
	}
}

func TestPersist_FirstUploadCreatesSingleMatch(t *testing.T) {
	db := openTestDB(t)
	p := NewPersister(db)

	m := sampleMatch("arena-1")
	stats := &wowsreplay.Stats{ArenaUniqueID: "arena-1", AllPlayersStats: []wowsreplay.PlayerStats{{PlayerID: "p1", Name: "_meteor0090"}}}
	upload := &wowsreplay.Upload{ArenaUniqueID: "arena-1", PlayerID: "p1"}

	result, err := p.Persist(repcore.GameTypeClan, m, stats, upload, repcore.TeamAlly)
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.False(t, result.HasDualReplay)

	q := NewQueryGateway(db)
	detail, err := q.MatchDetail(repcore.GameTypeClan, "arena-1")
	require.NoError(t, err)
	assert.Len(t, detail.Uploads, 1)
	require.NotNil(t, detail.Stats)
}

func TestPersist_DualUploadMergesIntoSingleMatch(t *testing.T) {
	db := openTestDB(t)
	p := NewPersister(db)

	m1 := sampleMatch("arena-2")
	stats := &wowsreplay.Stats{ArenaUniqueID: "arena-2"}
	upload1 := &wowsreplay.Upload{ArenaUniqueID: "arena-2", PlayerID: "p1"}
	_, err := p.Persist(repcore.GameTypeClan, m1, stats, upload1, repcore.TeamAlly)
	require.NoError(t, err)

	m2 := sampleMatch("arena-2")
	m2.Uploaders = []wowsreplay.Uploader{{PlayerID: "p2", PlayerName: "EnemyOne", Team: repcore.TeamEnemy}}
	upload2 := &wowsreplay.Upload{ArenaUniqueID: "arena-2", PlayerID: "p2"}

	result, err := p.Persist(repcore.GameTypeClan, m2, stats, upload2, repcore.TeamEnemy)
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.True(t, result.HasDualReplay)
	assert.True(t, result.DualFlipped, "second team's first upload is the flip")

	q := NewQueryGateway(db)
	detail, err := q.MatchDetail(repcore.GameTypeClan, "arena-2")
	require.NoError(t, err)
	assert.Len(t, detail.Uploads, 2)
	assert.True(t, detail.Match.HasDualReplay)
	assert.Len(t, detail.Match.Uploaders, 2)

	// A third upload from either team must not report the flip again —
	// the dual render fires exactly once per arena-id.
	m3 := sampleMatch("arena-2")
	m3.Uploaders = []wowsreplay.Uploader{{PlayerID: "p3", PlayerName: "ThirdGuy", Team: repcore.TeamAlly}}
	upload3 := &wowsreplay.Upload{ArenaUniqueID: "arena-2", PlayerID: "p3"}
	result, err = p.Persist(repcore.GameTypeClan, m3, stats, upload3, repcore.TeamAlly)
	require.NoError(t, err)
	assert.True(t, result.HasDualReplay)
	assert.False(t, result.DualFlipped)
}

func TestPersist_StatsWrittenOnceNeverOverwritten(t *testing.T) {
	db := openTestDB(t)
	p := NewPersister(db)

	m := sampleMatch("arena-3")
	firstStats := &wowsreplay.Stats{ArenaUniqueID: "arena-3", AllPlayersStats: []wowsreplay.PlayerStats{{PlayerID: "p1", Kills: 1}}}
	upload := &wowsreplay.Upload{ArenaUniqueID: "arena-3", PlayerID: "p1"}
	_, err := p.Persist(repcore.GameTypeClan, m, firstStats, upload, repcore.TeamAlly)
	require.NoError(t, err)

	secondStats := &wowsreplay.Stats{ArenaUniqueID: "arena-3", AllPlayersStats: []wowsreplay.PlayerStats{{PlayerID: "p1", Kills: 99}}}
	upload2 := &wowsreplay.Upload{ArenaUniqueID: "arena-3", PlayerID: "p2"}
	_, err = p.Persist(repcore.GameTypeClan, m, secondStats, upload2, repcore.TeamAlly)
	require.NoError(t, err)

	q := NewQueryGateway(db)
	detail, err := q.MatchDetail(repcore.GameTypeClan, "arena-3")
	require.NoError(t, err)
	require.NotNil(t, detail.Stats)
	require.Len(t, detail.Stats.AllPlayersStats, 1)
	assert.Equal(t, 1, detail.Stats.AllPlayersStats[0].Kills, "first uploader's stats win, never overwritten")
}

func TestPersist_ReuploadSamePlayerOverwritesOnlyOwnUploadRecord(t *testing.T) {
	db := openTestDB(t)
	p := NewPersister(db)

	m := sampleMatch("arena-4")
	upload := &wowsreplay.Upload{ArenaUniqueID: "arena-4", PlayerID: "p1", FileSize: 100}
	_, err := p.Persist(repcore.GameTypeClan, m, nil, upload, repcore.TeamAlly)
	require.NoError(t, err)

	reupload := &wowsreplay.Upload{ArenaUniqueID: "arena-4", PlayerID: "p1", FileSize: 200}
	_, err = p.Persist(repcore.GameTypeClan, m, nil, reupload, repcore.TeamAlly)
	require.NoError(t, err)

	q := NewQueryGateway(db)
	detail, err := q.MatchDetail(repcore.GameTypeClan, "arena-4")
	require.NoError(t, err)
	require.Len(t, detail.Uploads, 1, "same player re-uploading must not duplicate UPLOAD records")
	assert.Equal(t, int64(200), detail.Uploads[0].FileSize)
}

func TestMergeUpload_ViaAssembler(t *testing.T) {
	existing := sampleMatch("arena-5")
	match.MergeUpload(existing, repcore.TeamEnemy, match.UploadInput{PlayerID: "p2", PlayerName: "EnemyOne"})
	assert.True(t, existing.HasDualReplay)
	assert.Len(t, existing.Uploaders, 2)
}
