package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wowsreplays/ingest/internal/repcore"
	"github.com/wowsreplays/ingest/pkg/wowsreplay"
)

func TestAssemble_ClanBattleSingleUploaderWin(t *testing.T) {
	replay := &wowsreplay.DecodedReplay{
		ClientVersion:  "14.11.0",
		MapID:          "spaces/19_OC_prey",
		MapDisplayName: "Greece",
		DateTime:       "03.01.2026 23:28:22",
		GameType:       "CLAN",
		ArenaUniqueID:  "arena-1",
		OwnPlayer:      wowsreplay.Player{Name: "_meteor0090", ShipName: "Chung Mu", ClanTag: "OZEKI"},
		OwnTeamRawID:   0,
		Allies: []wowsreplay.Player{
			{Name: "AllyOne", ShipName: "Shimakaze", ClanTag: "OZEKI"},
			{Name: "AllyTwo", ShipName: "Gearing", ClanTag: "OZEKI"},
		},
		Enemies: []wowsreplay.Player{
			{Name: "EnemyOne", ShipName: "Yamato", ClanTag: "PREY"},
			{Name: "EnemyTwo", ShipName: "Montana", ClanTag: "PREY"},
		},
		Hidden: wowsreplay.Hidden{BattleResult: &wowsreplay.BattleResult{WinnerTeamID: 0}},
	}
	stats := []wowsreplay.PlayerStats{{PlayerID: "p1", Name: "_meteor0090", IsOwn: true, Kills: 2}}
	upload := UploadInput{PlayerID: "p1", PlayerName: "_meteor0090", DiscordID: "d1", ObjectKey: "replays/p1/x.wowsreplay", FileSize: 42, UploadedAt: 1767000000}

	m, s, u := Assemble(replay, stats, upload)

	assert.Equal(t, repcore.GameTypeClan, m.GameType)
	assert.Equal(t, repcore.WinLossWin, m.WinLoss)
	assert.Equal(t, "ACTIVE", m.ListingKey)
	assert.Equal(t, "20260103232822", m.DateTimeSortable)
	assert.Equal(t, "Greece", m.MapDisplayName)
	assert.Equal(t, "OZEKI", m.AllyMainClanTag)
	assert.Equal(t, "PREY", m.EnemyMainClanTag)
	assert.Equal(t, "p1", m.AllyPerspectivePlayerID)

	// The uploader is a first-class participant of the MATCH roster: the
	// reverse indexes walk Allies/Enemies, so their ship and name must be
	// present there, not only in AllyPerspectivePlayerID.
	require.Len(t, m.Allies, 3)
	assert.Equal(t, "_meteor0090", m.Allies[0].Name)
	assert.Equal(t, "Chung Mu", m.Allies[0].ShipName)

	require.Len(t, m.Uploaders, 1)
	assert.Equal(t, repcore.TeamAlly, m.Uploaders[0].Team)
	assert.False(t, m.HasDualReplay)

	// matchKey is re-computable from the record's own fields.
	names := []string{"_meteor0090", "AllyOne", "AllyTwo", "EnemyOne", "EnemyTwo"}
	assert.Equal(t, matchKey(m.DateTime, m.MapID, replay.GameType, names), m.MatchKey)

	require.NotNil(t, s)
	assert.Equal(t, "arena-1", s.ArenaUniqueID)
	require.NotNil(t, u)
	assert.Equal(t, 2, u.OwnStats.Kills, "uploader's own stats copied onto the upload record")
}

func TestAssemble_IncompleteReplayHasNoStatsRecord(t *testing.T) {
	replay := &wowsreplay.DecodedReplay{
		DateTime:      "03.01.2026 23:28:22",
		GameType:      "RANDOM",
		ArenaUniqueID: "arena-2",
		Incomplete:    true,
	}

	m, s, u := Assemble(replay, nil, UploadInput{PlayerID: "p1"})
	assert.NotNil(t, m)
	assert.Nil(t, s, "no STATS record for an incomplete replay")
	assert.NotNil(t, u)
	assert.Equal(t, repcore.WinLossUnknown, m.WinLoss)
}

func TestMajorityClanTag_TieBreaksLexicographically(t *testing.T) {
	// Two tags tied at 2 occurrences each: "ALFA" sorts before "ZULU".
	tags := []string{"ZULU", "ZULU", "ALFA", "ALFA"}
	assert.Equal(t, "ALFA", majorityClanTag(tags))
}

func TestMajorityClanTag_OmittedWhenNoTagSharedByTwo(t *testing.T) {
	assert.Equal(t, "", majorityClanTag([]string{"ALFA", "BRAVO", "CHARLIE"}))
	assert.Equal(t, "", majorityClanTag(nil))
}

func TestMajorityClanTag_ClearMajority(t *testing.T) {
	tags := []string{"OZEKI", "OZEKI", "OZEKI", "BRAVO"}
	assert.Equal(t, "OZEKI", majorityClanTag(tags))
}

func TestDetermineWinLoss_BattleResultPrimary(t *testing.T) {
	replay := &wowsreplay.DecodedReplay{
		Hidden: wowsreplay.Hidden{BattleResult: &wowsreplay.BattleResult{WinnerTeamID: int(repcore.TeamAlly.ID)}},
	}
	assert.Equal(t, repcore.WinLossWin, determineWinLoss(replay, nil))

	replay.Hidden.BattleResult.WinnerTeamID = int(repcore.TeamEnemy.ID)
	assert.Equal(t, repcore.WinLossLoss, determineWinLoss(replay, nil))

	replay.Hidden.BattleResult.WinnerTeamID = -1
	assert.Equal(t, repcore.WinLossDraw, determineWinLoss(replay, nil))
}

func TestDetermineWinLoss_XPFallbackForClanBattle(t *testing.T) {
	replay := &wowsreplay.DecodedReplay{GameType: "CLAN"}

	win := []wowsreplay.PlayerStats{{IsOwn: true, BaseXP: clanBattleVictoryXP}}
	assert.Equal(t, repcore.WinLossWin, determineWinLoss(replay, win))

	loss := []wowsreplay.PlayerStats{{IsOwn: true, BaseXP: clanBattleDefeatXP}}
	assert.Equal(t, repcore.WinLossLoss, determineWinLoss(replay, loss))

	unknown := []wowsreplay.PlayerStats{{IsOwn: true, BaseXP: 42}}
	assert.Equal(t, repcore.WinLossUnknown, determineWinLoss(replay, unknown))
}

func TestDetermineWinLoss_UnknownWhenNoSignal(t *testing.T) {
	replay := &wowsreplay.DecodedReplay{GameType: "RANDOM"}
	assert.Equal(t, repcore.WinLossUnknown, determineWinLoss(replay, nil))
}

func TestMergeUpload_FlipsHasDualReplay(t *testing.T) {
	m := &wowsreplay.Match{
		Uploaders: []wowsreplay.Uploader{{PlayerID: "p1", Team: repcore.TeamAlly}},
	}
	MergeUpload(m, repcore.TeamEnemy, UploadInput{PlayerID: "p2", PlayerName: "Bravo"})

	assert.Len(t, m.Uploaders, 2)
	assert.True(t, m.HasDualReplay)
}

func TestMergeUpload_SameTeamDoesNotFlip(t *testing.T) {
	m := &wowsreplay.Match{
		Uploaders: []wowsreplay.Uploader{{PlayerID: "p1", Team: repcore.TeamAlly}},
	}
	MergeUpload(m, repcore.TeamAlly, UploadInput{PlayerID: "p2", PlayerName: "Bravo"})

	assert.Len(t, m.Uploaders, 2)
	assert.False(t, m.HasDualReplay)
}
