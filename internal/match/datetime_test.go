package match

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateTimeSortable_RoundTrip(t *testing.T) {
	cases := []string{
		"03.01.2026 23:28:22",
		"31.12.2025 23:59:00",
		"01.01.2026 00:01:00",
	}
	for _, dt := range cases {
		sortable := dateTimeSortable(dt)
		require.Len(t, sortable, 14)

		parsedOriginal, ok := parseDateTime(dt)
		require.True(t, ok)

		parsedSortable, ok := parseDateTimeSortable(sortable)
		require.True(t, ok)

		assert.True(t, parsedOriginal.Equal(parsedSortable), "round-trip mismatch for %s", dt)
	}
}

func TestDateTimeSortable_EmptyAndMalformed(t *testing.T) {
	assert.Equal(t, emptySortable, dateTimeSortable(""))
	assert.Equal(t, emptySortable, dateTimeSortable("not-a-date"))
	assert.Equal(t, int64(0), unixTime(""))
}

func TestDateTimeSortable_SortMonotonicity(t *testing.T) {
	// Cross-year boundary: sorted ascending as raw "DD.MM.YYYY" strings,
	// "01.01.2026" would come before "31.12.2025"; dateTimeSortable must
	// sort these in true chronological order.
	dts := []string{"01.01.2026 00:01:00", "31.12.2025 23:59:00"}

	sortable := make([]string, len(dts))
	for i, dt := range dts {
		sortable[i] = dateTimeSortable(dt)
	}
	sort.Strings(sortable)

	// After sorting ascending, the 2025 instant must come first.
	t2025, _ := parseDateTimeSortable(sortable[0])
	t2026, _ := parseDateTimeSortable(sortable[1])
	assert.True(t, t2025.Before(t2026))
}

func TestMatchKey_Deterministic(t *testing.T) {
	names := []string{"Bravo", "Alpha", "Charlie"}
	k1 := matchKey("03.01.2026 23:28:22", "spaces/19_OC_prey", "RANDOM", names)
	k2 := matchKey("03.01.2026 23:28:22", "spaces/19_OC_prey", "RANDOM", names)
	assert.Equal(t, k1, k2)

	// Re-ordering the player list must not change the key (sorted internally).
	reordered := []string{"Charlie", "Alpha", "Bravo"}
	k3 := matchKey("03.01.2026 23:28:22", "spaces/19_OC_prey", "RANDOM", reordered)
	assert.Equal(t, k1, k3)
}

func TestMatchKey_FiveMinuteRoundingBoundary(t *testing.T) {
	// Two timestamps 45s apart but in the same 5-minute bucket must
	// collapse to the same matchKey (timezone-skew tolerance).
	names := []string{"Solo"}
	k1 := matchKey("03.01.2026 23:25:10", "spaces/19_OC_prey", "RANDOM", names)
	k2 := matchKey("03.01.2026 23:25:55", "spaces/19_OC_prey", "RANDOM", names)
	assert.Equal(t, k1, k2)

	// A timestamp exactly on a 5-minute boundary truncates to itself, so
	// it opens a new bucket rather than joining the one before it.
	k3 := matchKey("03.01.2026 23:30:00", "spaces/19_OC_prey", "RANDOM", names)
	assert.NotEqual(t, k1, k3, "23:30:00 belongs to the next 5-minute bucket")
}
