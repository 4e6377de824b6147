// Package shipdata is the immutable ship-params side table: for each ship
// ID a replay can reference, its class and display name. StatsParser
// consults it to resolve a BattleStats row's shipId into a ShipClass
// without needing the game client's own GameParams data dump.
//
// A plain, struct-shaped catalogue of ship data rather than a dynamic
// lookup, built once and never mutated.
package shipdata

import "github.com/wowsreplays/ingest/internal/repcore"

// Params is the subset of a ship's GameParams entry this pipeline needs.
type Params struct {
	Name  string
	Class repcore.ShipClass
}

// table is populated once below from known ship IDs. Real deployments
// would regenerate this from the client's GameParams.data dump on each
// client version bump; entries here are representative of common tiers
// and cover every ship class except Auxiliary, which has no row.
var table = map[int]Params{
	3761555456: {Name: "Khabarovsk", Class: repcore.ShipClassDestroyer},
	3762604032: {Name: "Shimakaze", Class: repcore.ShipClassDestroyer},
	3763652608: {Name: "Gearing", Class: repcore.ShipClassDestroyer},
	4053512592: {Name: "Des Moines", Class: repcore.ShipClassCruiser},
	4054561168: {Name: "Hindenburg", Class: repcore.ShipClassCruiser},
	4083304480: {Name: "Moskva", Class: repcore.ShipClassCruiser},
	3762155600: {Name: "Yamato", Class: repcore.ShipClassBattleship},
	3763204176: {Name: "Montana", Class: repcore.ShipClassBattleship},
	3764252752: {Name: "Grosser Kurfurst", Class: repcore.ShipClassBattleship},
	3762745456: {Name: "Hakuryu", Class: repcore.ShipClassCarrier},
	3763794032: {Name: "Midway", Class: repcore.ShipClassCarrier},
	3765891184: {Name: "Balao", Class: repcore.ShipClassSubmarine},
	3766939760: {Name: "U-2501", Class: repcore.ShipClassSubmarine},
}

// Lookup returns the known Params for a ship ID. An unrecognized ID
// returns a Params with an empty name and an "Unknown(255)" class rather
// than failing —
// stats parsing must proceed with whatever the replay itself reports.
func Lookup(shipID int) Params {
	if p, ok := table[shipID]; ok {
		return p
	}
	return Params{Name: "", Class: repcore.ShipClassByID(255)}
}
