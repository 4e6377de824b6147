package statsparser

import "fmt"

// skillNames maps a raw learned-skill ID (as recorded in the replay's
// hidden crew state) to its display name. Same shape as the upgrade table
// below it: a fixed catalogue with a code-carrying fallback for IDs a
// newer client added before this table learned them.
var skillNames = map[int]string{
	1:  "Gun Feeder",
	2:  "Demolition Expert",
	3:  "Fill the Tubes",
	4:  "Consumables Specialist",
	5:  "Priority Target",
	6:  "Incoming Fire Alert",
	7:  "Preventive Maintenance",
	8:  "Last Stand",
	9:  "Grease the Gears",
	10: "Main Battery and AA Specialist",
	11: "Superintendent",
	12: "Survivability Expert",
	13: "Adrenaline Rush",
	14: "Concealment Expert",
	15: "Radio Location",
	16: "Fearless Brawler",
	17: "Liquidator",
	18: "Dazzle",
	19: "Swift Fish",
	20: "Extra-Heavy Ammunition",
	21: "Fire Prevention Expert",
	22: "Furious",
	23: "Emergency Repair Specialist",
	24: "Top Grade Gunner",
	25: "Swift in Silence",
	26: "Enhanced Aircraft Armor",
	27: "Torpedo Bomber",
	28: "Sight Stabilization",
	29: "Enhanced Reactions",
	30: "Close Quarters Combat",
}

func skillName(id int) string {
	if name, ok := skillNames[id]; ok {
		return name
	}
	return fmt.Sprintf("Skill(%d)", id)
}

// skillDisplayNames resolves a class's learned-skill ID list into display
// names, preserving the recorded order.
func skillDisplayNames(ids []int) []string {
	if len(ids) == 0 {
		return nil
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = skillName(id)
	}
	return names
}
