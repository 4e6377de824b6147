package match

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// dateTimeLayout is the replay client's own datetime format.
const dateTimeLayout = "02.01.2006 15:04:05"

// emptySortable is returned for empty or malformed dateTime input so the
// record still sorts, to the bottom of any descending-time listing.
const emptySortable = "00000000000000"

// dateTimeSortable converts the client's "DD.MM.YYYY HH:MM:SS" string into
// the lexicographically sortable "YYYYMMDDHHMMSS" form used as the GSI
// sort key on every MATCH record (dateTime itself isn't sortable across
// year boundaries).
func dateTimeSortable(dateTime string) string {
	t, ok := parseDateTime(dateTime)
	if !ok {
		return emptySortable
	}
	return t.Format("20060102150405")
}

// parseDateTimeSortable inverts dateTimeSortable, used by the round-trip
// law in tests: parseDateTimeSortable(dateTimeSortable(dt)) == dt.
func parseDateTimeSortable(sortable string) (time.Time, bool) {
	t, err := time.Parse("20060102150405", sortable)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func parseDateTime(dateTime string) (time.Time, bool) {
	if dateTime == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateTimeLayout, dateTime)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// unixTime returns the epoch seconds for a MATCH record's dateTime, or 0
// when dateTime is empty/malformed.
func unixTime(dateTime string) int64 {
	t, ok := parseDateTime(dateTime)
	if !ok {
		return 0
	}
	return t.Unix()
}

// roundDownTo5Minutes truncates t to the previous 5-minute boundary. The
// "5-minute rounding" used by matchKey has no documented tie-break for a
// timestamp that already sits exactly on a boundary; this rounds
// down in that case too (truncation is idempotent on an exact boundary).
func roundDownTo5Minutes(t time.Time) time.Time {
	return t.Truncate(5 * time.Minute)
}

// matchKey computes the stable cross-uploader dedupe key: a hash of the
// 5-minute-rounded dateTime, mapId, gameType and the sorted list of
// participating player names. Deterministic regardless of upload order.
func matchKey(dateTime, mapID, gameType string, playerNames []string) string {
	sorted := append([]string(nil), playerNames...)
	sort.Strings(sorted)

	rounded := dateTime
	if t, ok := parseDateTime(dateTime); ok {
		rounded = roundDownTo5Minutes(t).Format(dateTimeLayout)
	}

	parts := []string{rounded, mapID, gameType, strings.Join(sorted, ",")}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
