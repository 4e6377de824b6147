package store

import "golang.org/x/text/cases"

// dimensionCaser folds a reverse-index dimension value (ship/player/clan
// name) to a single canonical case before it's used as a lookup key.
// strings.ToLower is ASCII-only; ship and clan names in this game's
// playerbase routinely carry non-ASCII Unicode (Cyrillic clan tags,
// accented player names), so a Unicode-aware caser is used instead of a
// byte-wise one.
var dimensionCaser = cases.Fold()

// normalizeDimension canonicalizes a search-dimension value so that the
// same ship/player/clan name written and queried in different cases hits
// the same reverse-index row.
func normalizeDimension(v string) string {
	return dimensionCaser.String(v)
}
