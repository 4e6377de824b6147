package statsparser

import (
	"encoding/binary"
	"fmt"
)

// upgradeNames maps a raw upgrade/module PCM code (as decoded from a
// player's shipConfigDump) to its display name: a fixed table from a
// small raw ID to a human name, with an explicit fallback for codes the
// table doesn't yet know about rather than dropping them silently.
var upgradeNames = map[int]string{
	1:  "Main Armaments Modification 1",
	2:  "Magazine Modification 1",
	3:  "Secondary Armaments Modification 1",
	4:  "AA Guns Modification 1",
	11: "Main Armaments Modification 2",
	12: "Aiming Systems Modification 1",
	13: "Damage Control System Modification 1",
	14: "Engine Boost Modification 1",
	21: "Steering Gears Modification 1",
	22: "Propulsion Modification 1",
	23: "Damage Control System Modification 2",
	24: "Concealment Modification 1",
}

// upgradeName resolves a raw upgrade code, falling back to a code-carrying
// placeholder name for anything not yet catalogued.
func upgradeName(code int) string {
	if name, ok := upgradeNames[code]; ok {
		return name
	}
	return fmt.Sprintf("Upgrade(%d)", code)
}

// decodeConfigDump extracts the mounted-upgrade PCM codes from a player's
// shipConfigDump: a little-endian u32 sequence, `count` followed by
// `count` codes. A zero code marks an empty upgrade slot and is skipped.
// Dumps too short for their own count are truncated, not rejected — the
// replay already decoded, partial upgrade data is still worth surfacing.
func decodeConfigDump(dump []byte) []int {
	if len(dump) < 4 {
		return nil
	}
	count := int(binary.LittleEndian.Uint32(dump[0:4]))
	codes := make([]int, 0, count)
	for i := 0; i < count; i++ {
		off := 4 + i*4
		if off+4 > len(dump) {
			break
		}
		code := int(binary.LittleEndian.Uint32(dump[off : off+4]))
		if code == 0 {
			continue
		}
		codes = append(codes, code)
	}
	return codes
}

// upgradesFromConfigDump is the primary path: shipConfigDump bytes -> PCM
// codes -> display names.
func upgradesFromConfigDump(dump []byte) []string {
	codes := decodeConfigDump(dump)
	if len(codes) == 0 {
		return nil
	}
	names := make([]string, len(codes))
	for i, code := range codes {
		names[i] = upgradeName(code)
	}
	return names
}

// upgradesFromPrivateData is the fallback when a replay carries no
// shipConfigDump for a player but its privateDataList row still lists raw
// upgrade codes (ints or float64s depending on the JSON source).
func upgradesFromPrivateData(raw []any) []string {
	names := make([]string, 0, len(raw))
	for _, v := range raw {
		switch n := v.(type) {
		case float64:
			names = append(names, upgradeName(int(n)))
		case int:
			names = append(names, upgradeName(n))
		}
	}
	if len(names) == 0 {
		return nil
	}
	return names
}
