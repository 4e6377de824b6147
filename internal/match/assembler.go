// Package match implements MatchAssembler: projecting a DecodedReplay and
// its parsed stats into the three persistence records (MATCH, STATS,
// UPLOAD) the Persister writes, plus the derived fields (matchKey,
// dateTimeSortable, majority clan tags) those records depend on.
package match

import (
	"github.com/wowsreplays/ingest/internal/repcore"
	"github.com/wowsreplays/ingest/pkg/wowsreplay"
)

// clanBattleVictoryXP and clanBattleDefeatXP are the known constant XP
// pair used by the win/loss XP fallback for clan battles: the uploader's
// own baseXP matches one of the two.
const (
	clanBattleVictoryXP = 300000
	clanBattleDefeatXP  = 150000
)

// UploadInput carries the per-upload metadata MatchAssembler needs but
// that the replay itself doesn't record: who uploaded it and where the
// blob and Discord identity live.
type UploadInput struct {
	PlayerID   string
	PlayerName string
	DiscordID  string
	ObjectKey  string
	FileSize   int64
	UploadedAt int64
}

// Assemble builds MATCH, STATS (nil when replay.Incomplete) and UPLOAD
// records from a decoded replay, its parsed per-player stats (nil when
// replay.Incomplete) and the uploader's own metadata.
func Assemble(replay *wowsreplay.DecodedReplay, stats []wowsreplay.PlayerStats, upload UploadInput) (*wowsreplay.Match, *wowsreplay.Stats, *wowsreplay.Upload) {
	gameType := repcore.GameTypeBucketByRaw(replay.GameType)

	// The decoder's roster split excludes the own player from Allies; the
	// MATCH record has no separate own-player slot, so fold them back in
	// here — otherwise the uploader's ship, name and clan tag would be
	// invisible to the reverse indexes and the clan-tag tally.
	allies := replay.Allies
	if replay.OwnPlayer.Name != "" {
		allies = make([]wowsreplay.Player, 0, 1+len(replay.Allies))
		allies = append(allies, replay.OwnPlayer)
		allies = append(allies, replay.Allies...)
	}

	allPlayerNames := make([]string, 0, len(allies)+len(replay.Enemies))
	for _, p := range allies {
		allPlayerNames = append(allPlayerNames, p.Name)
	}
	for _, p := range replay.Enemies {
		allPlayerNames = append(allPlayerNames, p.Name)
	}

	m := &wowsreplay.Match{
		ArenaUniqueID:           replay.ArenaUniqueID,
		ListingKey:              "ACTIVE",
		UnixTime:                unixTime(replay.DateTime),
		DateTime:                replay.DateTime,
		DateTimeSortable:        dateTimeSortable(replay.DateTime),
		MapID:                   replay.MapID,
		MapDisplayName:          replay.MapDisplayName,
		ClientVersion:           replay.ClientVersion,
		GameType:                gameType,
		MatchKey:                matchKey(replay.DateTime, replay.MapID, replay.GameType, allPlayerNames),
		AllyPerspectivePlayerID: upload.PlayerID,
		WinLoss:                 determineWinLoss(replay, stats),
		Allies:                  allies,
		Enemies:                 replay.Enemies,
		Uploaders: []wowsreplay.Uploader{
			{PlayerID: upload.PlayerID, PlayerName: upload.PlayerName, Team: repcore.TeamAlly},
		},
	}

	m.AllyMainClanTag = majorityClanTag(clanTagsOf(allies))
	m.EnemyMainClanTag = majorityClanTag(clanTagsOf(replay.Enemies))

	var statsRecord *wowsreplay.Stats
	var ownStats wowsreplay.PlayerStats
	if !replay.Incomplete && stats != nil {
		statsRecord = &wowsreplay.Stats{
			ArenaUniqueID:   replay.ArenaUniqueID,
			AllPlayersStats: stats,
		}
		for _, s := range stats {
			if s.IsOwn {
				ownStats = s
				break
			}
		}
	}

	uploadRecord := &wowsreplay.Upload{
		ArenaUniqueID: replay.ArenaUniqueID,
		PlayerID:      upload.PlayerID,
		ObjectKey:     upload.ObjectKey,
		FileSize:      upload.FileSize,
		DiscordID:     upload.DiscordID,
		UploadedAt:    upload.UploadedAt,
		OwnStats:      ownStats,
	}

	return m, statsRecord, uploadRecord
}

// MergeUpload applies a subsequent uploader's arrival into an existing
// MATCH record: appends to Uploaders and flips HasDualReplay when the new
// uploader's team differs from any team already represented. This is the
// "merge" branch of the Persister's conditional MATCH write; the
// "create" branch is Assemble above.
func MergeUpload(existing *wowsreplay.Match, uploaderTeam repcore.Team, u UploadInput) {
	already := false
	for _, up := range existing.Uploaders {
		if up.PlayerID == u.PlayerID {
			already = true
			break
		}
	}
	if !already {
		existing.Uploaders = append(existing.Uploaders, wowsreplay.Uploader{
			PlayerID:   u.PlayerID,
			PlayerName: u.PlayerName,
			Team:       uploaderTeam,
		})
	}

	hasAlly, hasEnemy := false, false
	for _, up := range existing.Uploaders {
		if up.Team == repcore.TeamAlly {
			hasAlly = true
		}
		if up.Team == repcore.TeamEnemy {
			hasEnemy = true
		}
	}
	if hasAlly && hasEnemy {
		existing.HasDualReplay = true
	}
}

func clanTagsOf(players []wowsreplay.Player) []string {
	tags := make([]string, 0, len(players))
	for _, p := range players {
		if p.ClanTag != "" {
			tags = append(tags, p.ClanTag)
		}
	}
	return tags
}

// majorityClanTag tallies tag occurrences and returns the mode, breaking
// ties lexicographically so the result never depends on map order. A tag
// shared by fewer than two players doesn't make the team a clan battle
// even if the raw game type claimed so — omitted in that case.
func majorityClanTag(tags []string) string {
	counts := make(map[string]int)
	for _, t := range tags {
		counts[t]++
	}

	best := ""
	bestCount := 1 // must be shared by at least two players
	for tag, count := range counts {
		if count > bestCount || (count == bestCount && best != "" && tag < best) {
			best, bestCount = tag, count
		}
	}
	return best
}

// determineWinLoss implements the primary/fallback win-loss rule:
// compare hidden.battle_result.winner_team_id to the own player's team;
// if battle_result is absent, fall back to the clan-battle XP heuristic;
// otherwise unknown.
func determineWinLoss(replay *wowsreplay.DecodedReplay, stats []wowsreplay.PlayerStats) repcore.WinLoss {
	if replay.Hidden.BattleResult != nil {
		switch {
		case replay.Hidden.BattleResult.WinnerTeamID == -1:
			return repcore.WinLossDraw
		case replay.Hidden.BattleResult.WinnerTeamID == replay.OwnTeamRawID:
			return repcore.WinLossWin
		default:
			return repcore.WinLossLoss
		}
	}

	if repcore.GameTypeBucketByRaw(replay.GameType) == repcore.GameTypeClan {
		for _, s := range stats {
			if !s.IsOwn {
				continue
			}
			switch s.BaseXP {
			case clanBattleVictoryXP:
				return repcore.WinLossWin
			case clanBattleDefeatXP:
				return repcore.WinLossLoss
			}
		}
	}

	return repcore.WinLossUnknown
}
