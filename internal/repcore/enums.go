// Package repcore holds the closed, named enumerations shared across the
// decode/parse/assemble pipeline: game-type buckets, teams, win/loss
// outcomes, ship classes and the client-version registry key.
//
// Each type embeds a small Enum base carrying a Name and has a fixed set
// of named values. Lookups never error on unrecognized input:
// GameTypeBucketByRaw buckets it to "other", and ShipClassByID returns an
// "Unknown(id)" class that preserves the raw ID. Rejecting a value outright
// (e.g. UnsupportedVersion) is left to something downstream.
package repcore

import "fmt"

// Enum is the base/common part of the enum types in this package.
type Enum struct {
	Name string
}

// String returns the enum's display name.
func (e Enum) String() string {
	return e.Name
}

// unknownEnum builds an Enum for an unrecognized raw value, preserving it
// in the name so it's visible in logs/JSON without panicking.
func unknownEnum(raw any) Enum {
	return Enum{fmt.Sprintf("Unknown(%v)", raw)}
}

// Team is which side of the battle a player fought on, relative to the
// uploader's own player.
type Team struct {
	Enum
	ID byte // 0 = ally, 1 = enemy in this package's normalized numbering
}

var (
	TeamAlly  = Team{Enum{"ally"}, 0}
	TeamEnemy = Team{Enum{"enemy"}, 1}
)

// TeamFromRaw maps a raw teamId slot against the own player's teamId.
func TeamFromRaw(teamID, ownTeamID int) Team {
	if teamID == ownTeamID {
		return TeamAlly
	}
	return TeamEnemy
}

// WinLoss is the outcome of a battle from the uploader's perspective.
type WinLoss struct {
	Enum
}

var (
	WinLossWin     = WinLoss{Enum{"win"}}
	WinLossLoss    = WinLoss{Enum{"loss"}}
	WinLossDraw    = WinLoss{Enum{"draw"}}
	WinLossUnknown = WinLoss{Enum{"unknown"}}
)

// GameTypeBucket is the normalized partitioning of raw WoWS game types used
// to pick which per-game-type table a match is written to.
type GameTypeBucket struct {
	Enum
}

var (
	GameTypeClan   = GameTypeBucket{Enum{"clan"}}
	GameTypeRanked = GameTypeBucket{Enum{"ranked"}}
	GameTypeRandom = GameTypeBucket{Enum{"random"}}
	GameTypeOther  = GameTypeBucket{Enum{"other"}}
)

// gameTypeTable maps raw WoWS gameType strings (as they appear in the
// replay's JSON metadata block) to a normalized bucket. Unknown raw values
// bucket to "other" rather than failing — this only controls which table a
// match lands in, it must never block ingest.
var gameTypeTable = map[string]GameTypeBucket{
	"CLAN":        GameTypeClan,
	"BRAWL_RATED": GameTypeClan,
	"RANKED":      GameTypeRanked,
	"RANKED_TEAM": GameTypeRanked,
	"RANDOM":      GameTypeRandom,
	"PVP":         GameTypeRandom,
	"COOPERATIVE": GameTypeOther,
	"EVENT":       GameTypeOther,
	"PVE":         GameTypeOther,
	"PVE_PREMADE": GameTypeOther,
}

// GameTypeBucketByRaw normalizes a raw gameType string. Unknown values
// bucket to GameTypeOther.
func GameTypeBucketByRaw(raw string) GameTypeBucket {
	if b, ok := gameTypeTable[raw]; ok {
		return b
	}
	return GameTypeOther
}

// TableName returns the per-game-type table name this bucket is stored in.
func (b GameTypeBucket) TableName() string {
	return "matches_" + b.Name
}

// ShipClass is the normalized class of a ship.
type ShipClass struct {
	Enum
	ID byte
}

var (
	ShipClassDestroyer  = ShipClass{Enum{"Destroyer"}, 0}
	ShipClassCruiser    = ShipClass{Enum{"Cruiser"}, 1}
	ShipClassBattleship = ShipClass{Enum{"Battleship"}, 2}
	ShipClassCarrier    = ShipClass{Enum{"AirCarrier"}, 3}
	ShipClassSubmarine  = ShipClass{Enum{"Submarine"}, 4}
	ShipClassAuxiliary  = ShipClass{Enum{"Auxiliary"}, 5}
)

// ShipClasses enumerates all known ship classes, in fixed ID order —
// used by statsparser to resolve hidden.crew.learned_skills sub-lists by
// class name, never by positional index into this slice.
var ShipClasses = []ShipClass{
	ShipClassDestroyer, ShipClassCruiser, ShipClassBattleship,
	ShipClassCarrier, ShipClassSubmarine, ShipClassAuxiliary,
}

// ShipClassByID returns the ShipClass for a raw ship-params class ID.
// An unknown ID yields a ShipClass carrying an "Unknown(id)" name while
// preserving the ID so it stays visible in logs and JSON.
func ShipClassByID(id byte) ShipClass {
	for _, c := range ShipClasses {
		if c.ID == id {
			return c
		}
	}
	return ShipClass{unknownEnum(id), id}
}
