package statsparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wowsreplays/ingest/internal/repcore"
	"github.com/wowsreplays/ingest/pkg/wowsreplay"
)

func sampleRow(playerID, name, clanTag string, teamID, shipID int) []any {
	return []any{
		playerID, name, clanTag, float64(teamID), float64(shipID),
		float64(1000), float64(2000), float64(300), float64(4000), float64(500),
		float64(600), float64(700), float64(100),
		float64(9000), float64(8000), float64(7000),
		float64(5), float64(10), float64(1),
		float64(2), float64(3), float64(1), float64(1), float64(2),
		float64(250000),
	}
}

func sampleReplay() *wowsreplay.DecodedReplay {
	return &wowsreplay.DecodedReplay{
		ClientVersion: string(repcore.ClientVersion14_11_0),
		OwnPlayer:     wowsreplay.Player{Name: "_meteor0090"},
		BattleStats: &wowsreplay.BattleStats{
			ArenaUniqueID: "arena-1",
			PlayersPublicInfo: map[string][]any{
				"p1": sampleRow("p1", "_meteor0090", "OZEKI", 0, 3761555456),
				"p2": sampleRow("p2", "EnemyOne", "FOO", 1, 3762604032),
			},
		},
		Hidden: wowsreplay.Hidden{
			LearnedSkills: map[string][]int{
				"Destroyer": {1, 2, 3},
				"Cruiser":   {9, 9, 9},
			},
		},
	}
}

func TestParse_DamageSumInvariant(t *testing.T) {
	stats, err := Parse(sampleReplay(), repcore.ClientVersion14_11_0)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	for _, s := range stats {
		sum := s.DamageAP + s.DamageHE + s.DamageHESecondaries + s.DamageTorps +
			s.DamageDeepWaterTorps + s.DamageFire + s.DamageFlooding + s.DamageOther
		assert.Equal(t, sum, s.Damage)
	}
}

func TestParse_CaptainSkillsResolvedByShipClassNotPosition(t *testing.T) {
	stats, err := Parse(sampleReplay(), repcore.ClientVersion14_11_0)
	require.NoError(t, err)

	// Both players sail destroyers; the learned-skills fixture also carries
	// a Cruiser sub-list whose entries must never leak in. IDs 1, 2, 3 are
	// the Destroyer list; ID 9 ("Grease the Gears") is the Cruiser list.
	for _, s := range stats {
		require.Equal(t, repcore.ShipClassDestroyer, s.ShipClass)
		assert.Equal(t, []string{"Gun Feeder", "Demolition Expert", "Fill the Tubes"}, s.CaptainSkills)
		assert.NotContains(t, s.CaptainSkills, "Grease the Gears")
	}
}

func TestParse_UpgradesDecodedFromConfigDump(t *testing.T) {
	replay := sampleReplay()
	replay.Hidden.PlayerHidden = map[string]wowsreplay.PlayerHiddenData{
		// count=3, codes 1, 0 (empty slot), 24
		"p1": {ShipConfigDump: []byte{
			3, 0, 0, 0,
			1, 0, 0, 0,
			0, 0, 0, 0,
			24, 0, 0, 0,
		}},
	}

	stats, err := Parse(replay, repcore.ClientVersion14_11_0)
	require.NoError(t, err)

	byID := map[string]wowsreplay.PlayerStats{}
	for _, s := range stats {
		byID[s.PlayerID] = s
	}

	assert.Equal(t, []string{"Main Armaments Modification 1", "Concealment Modification 1"}, byID["p1"].Upgrades)
	assert.Empty(t, byID["p2"].Upgrades, "no configDump and no privateDataList row for p2")
}

func TestParse_OutputOrderDeterministic(t *testing.T) {
	first, err := Parse(sampleReplay(), repcore.ClientVersion14_11_0)
	require.NoError(t, err)
	second, err := Parse(sampleReplay(), repcore.ClientVersion14_11_0)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "p1", first[0].PlayerID)
	assert.Equal(t, "p2", first[1].PlayerID)
}

func TestParse_TeamAssignment(t *testing.T) {
	stats, err := Parse(sampleReplay(), repcore.ClientVersion14_11_0)
	require.NoError(t, err)

	byID := map[string]wowsreplay.PlayerStats{}
	for _, s := range stats {
		byID[s.PlayerID] = s
	}

	assert.Equal(t, repcore.TeamAlly, byID["p1"].Team)
	assert.True(t, byID["p1"].IsOwn)
	assert.Equal(t, repcore.TeamEnemy, byID["p2"].Team)
	assert.False(t, byID["p2"].IsOwn)
}

func TestParse_UnknownClientVersionFails(t *testing.T) {
	_, err := Parse(sampleReplay(), repcore.ClientVersion("99.0.0"))
	require.Error(t, err)
	var indexMissing *repcore.IndexMissingError
	assert.ErrorAs(t, err, &indexMissing)
}
