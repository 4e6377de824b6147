// Package wowsreplay models a single decoded World of Warships replay and
// the records derived from it.
package wowsreplay

import "github.com/wowsreplays/ingest/internal/repcore"

// Player is a participant as recorded by the replay's EntityCreate packets,
// or by its JSON metadata block when no such packet was decoded (not the
// decoded BattleStats payload — see PlayerStats for that).
type Player struct {
	Name     string `json:"name"`
	ShipID   int    `json:"shipId"`
	ShipName string `json:"shipName"`
	ClanTag  string `json:"clanTag"`
}

// Hidden carries the decoded "hidden" state dictionary: battle result,
// learned skills keyed by ship class, and per-player ship component /
// config-dump data.
type Hidden struct {
	BattleResult  *BattleResult               `json:"battleResult,omitempty"`
	LearnedSkills map[string][]int            `json:"learnedSkills,omitempty"` // keyed by ship class name
	PlayerHidden  map[string]PlayerHiddenData `json:"players,omitempty"`       // keyed by playerId
}

// BattleResult is the decoded hidden.battle_result block.
type BattleResult struct {
	WinnerTeamID int `json:"winnerTeamId"`
}

// PlayerHiddenData is per-player hidden data not present in playersPublicInfo.
type PlayerHiddenData struct {
	ShipComponents map[string]int `json:"shipComponents,omitempty"`
	ShipConfigDump []byte         `json:"shipConfigDump,omitempty"`
}

// BattleStats is the terminal packet's payload: a positional-array record
// per participating player, plus the raw server data it was extracted from.
type BattleStats struct {
	ArenaUniqueID     string                 `json:"arenaUniqueID"`
	PlayersPublicInfo map[string][]any       `json:"playersPublicInfo"`
	PrivateDataList   map[string][]any       `json:"privateDataList,omitempty"`
}

// DecodedReplay is the transient output of the ReplayDecoder. It is never
// persisted verbatim; MatchAssembler projects it into MATCH/STATS/UPLOAD
// records.
type DecodedReplay struct {
	ClientVersion  string
	MapID          string
	MapDisplayName string
	DateTime       string // "DD.MM.YYYY HH:MM:SS"
	GameType       string // raw game type string as recorded by the client
	ArenaUniqueID  string

	OwnPlayer    Player
	OwnTeamRawID int // raw teamId the replay recorded for the own player
	Allies       []Player
	Enemies      []Player

	BattleStats *BattleStats // nil when the replay ended before BattleStats (NoBattleStats)
	Hidden      Hidden

	Incomplete bool // true when BattleStats is nil
}

// PlayerStats is one entry of the decoded, named per-player statistics —
// the output of StatsParser.
type PlayerStats struct {
	PlayerID string       `json:"playerId"`
	Name     string       `json:"name"`
	ClanTag  string       `json:"clanTag"`
	Team     repcore.Team `json:"team"`
	IsOwn    bool         `json:"isOwn"`

	ShipID    int               `json:"shipId"`
	ShipName  string            `json:"shipName"`
	ShipClass repcore.ShipClass `json:"shipClass"`

	DamageAP             int `json:"damageAP"`
	DamageHE             int `json:"damageHE"`
	DamageHESecondaries  int `json:"damageHESecondaries"`
	DamageTorps          int `json:"damageTorps"`
	DamageDeepWaterTorps int `json:"damageDeepWaterTorps"`
	DamageFire           int `json:"damageFire"`
	DamageFlooding       int `json:"damageFlooding"`
	DamageOther          int `json:"damageOther"`
	Damage               int `json:"damage"`

	SpottingDamage  int `json:"spottingDamage"`
	PotentialDamage int `json:"potentialDamage"`
	DamageReceived  int `json:"damageReceived"`

	HitsAP  int `json:"hitsAP"`
	HitsHE  int `json:"hitsHE"`
	HitsSAP int `json:"hitsSAP"`

	Kills    int `json:"kills"`
	Fires    int `json:"fires"`
	Floods   int `json:"floods"`
	Citadels int `json:"citadels"`
	Crits    int `json:"crits"`

	BaseXP int `json:"baseXP"`

	CaptainSkills []string `json:"captainSkills,omitempty"`
	Upgrades      []string `json:"upgrades,omitempty"`
}
