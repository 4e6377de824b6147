package statsparser

import (
	"sort"

	"github.com/wowsreplays/ingest/internal/repcore"
	"github.com/wowsreplays/ingest/internal/shipdata"
	"github.com/wowsreplays/ingest/pkg/wowsreplay"
)

// Parse decodes a DecodedReplay's BattleStats positional rows into named
// PlayerStats, one per participating player. It returns IndexMissingError
// if clientVersion has no index table, and NoBattleStats-equivalent
// behavior is the caller's job: Parse assumes replay.BattleStats != nil.
func Parse(replay *wowsreplay.DecodedReplay, clientVersion repcore.ClientVersion) ([]wowsreplay.PlayerStats, error) {
	table, err := lookup(clientVersion)
	if err != nil {
		return nil, err
	}

	ownTeamID := ownPlayerTeamID(replay)
	ownID := ownPlayerID(replay)

	// Map iteration order must not leak into the STATS record: rows are
	// decoded in sorted playerId order so the same replay always parses
	// into the same slice.
	playerIDs := make([]string, 0, len(replay.BattleStats.PlayersPublicInfo))
	for playerID := range replay.BattleStats.PlayersPublicInfo {
		playerIDs = append(playerIDs, playerID)
	}
	sort.Strings(playerIDs)

	out := make([]wowsreplay.PlayerStats, 0, len(playerIDs))
	for _, playerID := range playerIDs {
		row := replay.BattleStats.PlayersPublicInfo[playerID]

		ps := decodeRow(table, row)
		ps.PlayerID = playerID
		ps.IsOwn = playerID == ownID

		teamID := fieldInt(table, row, "teamId")
		ps.Team = repcore.TeamFromRaw(teamID, ownTeamID)

		params := shipdata.Lookup(ps.ShipID)
		ps.ShipClass = params.Class
		if ps.ShipName == "" {
			ps.ShipName = params.Name
		}

		// Skill resolution keys on the player's actual ship class, never a
		// positional fallback into some other class's sub-list: the wrong
		// sub-list yields a plausible-looking but incorrect skill set.
		ps.CaptainSkills = skillDisplayNames(replay.Hidden.LearnedSkills[ps.ShipClass.Name])

		if hd, ok := replay.Hidden.PlayerHidden[playerID]; ok && len(hd.ShipConfigDump) > 0 {
			ps.Upgrades = upgradesFromConfigDump(hd.ShipConfigDump)
		} else if priv, ok := replay.BattleStats.PrivateDataList[playerID]; ok {
			ps.Upgrades = upgradesFromPrivateData(priv)
		}

		out = append(out, ps)
	}

	return out, nil
}

// decodeRow applies table to one positional row, producing a PlayerStats
// with every FieldSpec-named field populated. Unknown/missing slots are
// left at their zero value rather than erroring — partial rows are still
// useful (the same leniency the decoder applies to truncated streams).
func decodeRow(table indexTable, row []any) wowsreplay.PlayerStats {
	var ps wowsreplay.PlayerStats
	for _, f := range table {
		if f.Slot >= len(row) {
			continue
		}
		v := f.Decode(row[f.Slot])
		applyField(&ps, f.Name, v)
	}
	return ps
}

func fieldInt(table indexTable, row []any, name string) int {
	for _, f := range table {
		if f.Name == name && f.Slot < len(row) {
			if n, ok := f.Decode(row[f.Slot]).(int); ok {
				return n
			}
		}
	}
	return 0
}

func applyField(ps *wowsreplay.PlayerStats, name string, v any) {
	switch name {
	case "name":
		ps.Name, _ = v.(string)
	case "clanTag":
		ps.ClanTag, _ = v.(string)
	case "shipId":
		ps.ShipID, _ = v.(int)
	case "damageAP":
		ps.DamageAP, _ = v.(int)
	case "damageHE":
		ps.DamageHE, _ = v.(int)
	case "damageHESecondaries":
		ps.DamageHESecondaries, _ = v.(int)
	case "damageTorps":
		ps.DamageTorps, _ = v.(int)
	case "damageDeepWaterTorps":
		ps.DamageDeepWaterTorps, _ = v.(int)
	case "damageFire":
		ps.DamageFire, _ = v.(int)
	case "damageFlooding":
		ps.DamageFlooding, _ = v.(int)
	case "damageOther":
		ps.DamageOther, _ = v.(int)
	case "spottingDamage":
		ps.SpottingDamage, _ = v.(int)
	case "potentialDamage":
		ps.PotentialDamage, _ = v.(int)
	case "damageReceived":
		ps.DamageReceived, _ = v.(int)
	case "hitsAP":
		ps.HitsAP, _ = v.(int)
	case "hitsHE":
		ps.HitsHE, _ = v.(int)
	case "hitsSAP":
		ps.HitsSAP, _ = v.(int)
	case "kills":
		ps.Kills, _ = v.(int)
	case "fires":
		ps.Fires, _ = v.(int)
	case "floods":
		ps.Floods, _ = v.(int)
	case "citadels":
		ps.Citadels, _ = v.(int)
	case "crits":
		ps.Crits, _ = v.(int)
	case "baseXP":
		ps.BaseXP, _ = v.(int)
	}
	ps.Damage = ps.DamageAP + ps.DamageHE + ps.DamageHESecondaries +
		ps.DamageTorps + ps.DamageDeepWaterTorps + ps.DamageFire +
		ps.DamageFlooding + ps.DamageOther
}

func ownPlayerID(replay *wowsreplay.DecodedReplay) string {
	for pid, p := range playersByID(replay) {
		if p.Name == replay.OwnPlayer.Name {
			return pid
		}
	}
	return ""
}

func ownPlayerTeamID(replay *wowsreplay.DecodedReplay) int {
	// The own player is always on team 0 of the normalized Allies/Enemies
	// split performed during decode; BattleStats rows carry the replay's
	// own raw teamId numbering, which this function resolves by matching
	// on the own player's row instead of assuming a fixed numeric value.
	if replay.BattleStats == nil {
		return -1
	}
	id := ownPlayerID(replay)
	row, ok := replay.BattleStats.PlayersPublicInfo[id]
	if !ok {
		return -1
	}
	table, err := lookup(repcore.ClientVersion(replay.ClientVersion))
	if err != nil {
		return -1
	}
	return fieldInt(table, row, "teamId")
}

// playersByID decodes each BattleStats row into a minimal Player (name,
// ship id, clan tag) keyed by the row's playerId. It is only used to
// recover which playerId belongs to replay.OwnPlayer, matched by name.
func playersByID(replay *wowsreplay.DecodedReplay) map[string]wowsreplay.Player {
	m := make(map[string]wowsreplay.Player)
	if replay.BattleStats == nil {
		return m
	}
	table, err := lookup(repcore.ClientVersion(replay.ClientVersion))
	if err != nil {
		return m
	}
	for pid, row := range replay.BattleStats.PlayersPublicInfo {
		ps := decodeRow(table, row)
		m[pid] = wowsreplay.Player{Name: ps.Name, ShipID: ps.ShipID, ClanTag: ps.ClanTag}
	}
	return m
}
