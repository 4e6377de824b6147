// Package statsparser turns a replay's positional-array BattleStats rows
// into named wowsreplay.PlayerStats. Each supported client version owns its
// own index table — a []FieldSpec naming which slot holds which stat — so
// a client patch that reorders the array only requires a new table, never
// a change to the decode logic that walks it.
package statsparser

import "github.com/wowsreplays/ingest/internal/repcore"

// FieldSpec names one slot of a playersPublicInfo row: which field it
// feeds, and how to decode the raw `any` found there.
type FieldSpec struct {
	Name   string
	Slot   int
	Decode func(raw any) any
}

// indexTable is one client version's full row layout.
type indexTable []FieldSpec

// registry is the closed, version-indexed set of index tables, built once
// below. A client version not present here cannot be parsed and yields
// IndexMissingError — the same "registry consulted once, never mutated"
// shape as internal/repdecoder's variant registry.
var registry = map[repcore.ClientVersion]indexTable{
	repcore.ClientVersion13_5_0:  defaultTable,
	repcore.ClientVersion14_10_0: defaultTable,
	repcore.ClientVersion14_11_0: defaultTable,
}

func lookup(v repcore.ClientVersion) (indexTable, error) {
	t, ok := registry[v]
	if !ok {
		return nil, repcore.NewIndexMissingError(v)
	}
	return t, nil
}

func asInt(raw any) any {
	switch n := raw.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

func asString(raw any) any {
	if s, ok := raw.(string); ok {
		return s
	}
	return ""
}

// defaultTable is the slot layout shared by every currently supported
// client version. A future version that reorders the row gets its own
// table literal in the registry above.
var defaultTable = indexTable{
	{Name: "playerId", Slot: 0, Decode: asString},
	{Name: "name", Slot: 1, Decode: asString},
	{Name: "clanTag", Slot: 2, Decode: asString},
	{Name: "teamId", Slot: 3, Decode: asInt},
	{Name: "shipId", Slot: 4, Decode: asInt},
	{Name: "damageAP", Slot: 5, Decode: asInt},
	{Name: "damageHE", Slot: 6, Decode: asInt},
	{Name: "damageHESecondaries", Slot: 7, Decode: asInt},
	{Name: "damageTorps", Slot: 8, Decode: asInt},
	{Name: "damageDeepWaterTorps", Slot: 9, Decode: asInt},
	{Name: "damageFire", Slot: 10, Decode: asInt},
	{Name: "damageFlooding", Slot: 11, Decode: asInt},
	{Name: "damageOther", Slot: 12, Decode: asInt},
	{Name: "spottingDamage", Slot: 13, Decode: asInt},
	{Name: "potentialDamage", Slot: 14, Decode: asInt},
	{Name: "damageReceived", Slot: 15, Decode: asInt},
	{Name: "hitsAP", Slot: 16, Decode: asInt},
	{Name: "hitsHE", Slot: 17, Decode: asInt},
	// Slot 18 is WG's SAP-secondary slot. Known exports disagree on
	// whether it's hit count or accumulated damage for this client
	// version; surfaced as hitsSAP (the more common reading) pending
	// re-validation against a known-good export.
	{Name: "hitsSAP", Slot: 18, Decode: asInt},
	{Name: "kills", Slot: 19, Decode: asInt},
	{Name: "fires", Slot: 20, Decode: asInt},
	{Name: "floods", Slot: 21, Decode: asInt},
	{Name: "citadels", Slot: 22, Decode: asInt},
	{Name: "crits", Slot: 23, Decode: asInt},
	{Name: "baseXP", Slot: 24, Decode: asInt},
}
