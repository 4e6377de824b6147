package store

import (
	"fmt"
	"sort"

	"github.com/goccy/go-json"

	"github.com/wowsreplays/ingest/internal/repcore"
	"github.com/wowsreplays/ingest/pkg/wowsreplay"
)

const defaultLimit = 30

// SearchFilter is the full filter set POST /api/search accepts.
type SearchFilter struct {
	GameType       string
	MapID          string
	AllyClanTag    string
	EnemyClanTag   string
	ShipName       string
	ShipTeam       string // "ally" | "enemy" | ""
	ShipMinCount   int
	PlayerName     string
	WinLoss        string
	DateFrom       int64
	DateTo         int64
	CursorUnixTime int64
	Limit          int
}

// SearchResult is the search response shape.
type SearchResult struct {
	Items          []wowsreplay.Match
	Count          int
	CursorUnixTime int64
	HasMore        bool
}

// QueryGateway is the read-only side: search and match-detail.
type QueryGateway struct {
	db *DB
}

func NewQueryGateway(db *DB) *QueryGateway {
	return &QueryGateway{db: db}
}

// Search picks the most selective index for the given filter set:
// ship filter -> ship_index, player filter -> player_index, clan
// filter -> clan_index, else the gameType table's (listingKey, unixTime)
// GSI. Remaining filters are applied as post-scan predicates in Go.
func (q *QueryGateway) Search(f SearchFilter) (*SearchResult, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var arenaIDs []string
	var err error

	switch {
	case f.ShipName != "":
		arenaIDs, err = q.arenaIDsFromIndex("ship_index", normalizeDimension(f.ShipName), f, limit*4)
	case f.PlayerName != "":
		arenaIDs, err = q.arenaIDsFromIndex("player_index", normalizeDimension(f.PlayerName), f, limit*4)
	case f.AllyClanTag != "":
		arenaIDs, err = q.arenaIDsFromIndex("clan_index", normalizeDimension(f.AllyClanTag), f, limit*4)
	case f.EnemyClanTag != "":
		arenaIDs, err = q.arenaIDsFromIndex("clan_index", normalizeDimension(f.EnemyClanTag), f, limit*4)
	default:
		return q.searchByTable(f, limit)
	}
	if err != nil {
		return nil, err
	}

	matches := make([]wowsreplay.Match, 0, len(arenaIDs))
	for _, table := range gameTypeTablesFor(f.GameType) {
		for _, id := range arenaIDs {
			m, ok, err := q.loadMatch(table, id)
			if err != nil {
				return nil, err
			}
			if ok && matchesFilter(m, f) {
				matches = append(matches, *m)
			}
		}
	}

	sortNewestFirst(matches)
	return paginate(matches, limit), nil
}

// sortNewestFirst orders a result page the way every listing surface
// expects: most recent battle first. UnixTime descending matches sorting
// by dateTimeSortable descending for every valid record.
func sortNewestFirst(matches []wowsreplay.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].UnixTime > matches[j].UnixTime
	})
}

func (q *QueryGateway) searchByTable(f SearchFilter, limit int) (*SearchResult, error) {
	var matches []wowsreplay.Match
	for _, table := range gameTypeTablesFor(f.GameType) {
		query := fmt.Sprintf(`SELECT payload FROM %s WHERE sort_key = ? AND listing_key = 'ACTIVE'`, table)
		args := []any{sortKeyMatch}
		if f.CursorUnixTime > 0 {
			query += ` AND unix_time < ?`
			args = append(args, f.CursorUnixTime)
		}
		if f.DateFrom > 0 {
			query += ` AND unix_time >= ?`
			args = append(args, f.DateFrom)
		}
		if f.DateTo > 0 {
			query += ` AND unix_time <= ?`
			args = append(args, f.DateTo)
		}
		query += ` ORDER BY unix_time DESC`

		rows, err := q.db.conn.Query(query, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var payload string
			if err := rows.Scan(&payload); err != nil {
				rows.Close()
				return nil, err
			}
			var m wowsreplay.Match
			if err := json.Unmarshal([]byte(payload), &m); err != nil {
				continue
			}
			if matchesFilter(&m, f) {
				matches = append(matches, m)
			}
		}
		rows.Close()
	}

	sortNewestFirst(matches)
	return paginate(matches, limit), nil
}

// arenaIDsFromIndex scans one reverse-index dimension newest-first. The
// cursor and date range lower to range bounds on unix_time, so the LIMIT
// always takes the most recent qualifying rows — never an arbitrary
// oldest slice of a popular ship or clan.
func (q *QueryGateway) arenaIDsFromIndex(table, dimensionValue string, f SearchFilter, limit int) ([]string, error) {
	query := fmt.Sprintf(`SELECT arena_unique_id FROM %s WHERE dimension_value = ?`, table)
	args := []any{dimensionValue}
	if f.CursorUnixTime > 0 {
		// The cursor points at the oldest row of the previous page; only
		// strictly older rows belong to the next one.
		query += ` AND unix_time < ?`
		args = append(args, f.CursorUnixTime)
	}
	if f.DateFrom > 0 {
		query += ` AND unix_time >= ?`
		args = append(args, f.DateFrom)
	}
	if f.DateTo > 0 {
		query += ` AND unix_time <= ?`
		args = append(args, f.DateTo)
	}
	query += ` ORDER BY unix_time DESC LIMIT ?`
	args = append(args, limit)

	rows, err := q.db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var arenaID string
		if err := rows.Scan(&arenaID); err != nil {
			return nil, err
		}
		ids = append(ids, arenaID)
	}
	return ids, nil
}

func (q *QueryGateway) loadMatch(table, arenaUniqueID string) (*wowsreplay.Match, bool, error) {
	var payload string
	err := q.db.conn.QueryRow(
		fmt.Sprintf(`SELECT payload FROM %s WHERE arena_unique_id = ? AND sort_key = ?`, table),
		arenaUniqueID, sortKeyMatch,
	).Scan(&payload)
	if err != nil {
		return nil, false, nil
	}
	var m wowsreplay.Match
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return nil, false, err
	}
	return &m, true, nil
}

func gameTypeTablesFor(gameType string) []string {
	if gameType == "" {
		return gameTypeTables
	}
	return []string{repcore.GameTypeBucketByRaw(gameType).TableName()}
}

func matchesFilter(m *wowsreplay.Match, f SearchFilter) bool {
	if f.MapID != "" && m.MapID != f.MapID {
		return false
	}
	// The date range is also lowered into the index/table scans; checking
	// it here keeps every search strategy honest about it.
	if f.DateFrom > 0 && m.UnixTime < f.DateFrom {
		return false
	}
	if f.DateTo > 0 && m.UnixTime > f.DateTo {
		return false
	}
	if f.WinLoss != "" && m.WinLoss.Name != f.WinLoss {
		return false
	}
	if f.AllyClanTag != "" && m.AllyMainClanTag != f.AllyClanTag {
		return false
	}
	if f.EnemyClanTag != "" && m.EnemyMainClanTag != f.EnemyClanTag {
		return false
	}
	if f.ShipMinCount > 0 && !shipCountAtLeast(m, f.ShipName, f.ShipTeam, f.ShipMinCount) {
		return false
	}
	return true
}

func shipCountAtLeast(m *wowsreplay.Match, shipName, team string, min int) bool {
	count := 0
	if team != "enemy" {
		for _, p := range m.Allies {
			if p.ShipName == shipName {
				count++
			}
		}
	}
	if team != "ally" {
		for _, p := range m.Enemies {
			if p.ShipName == shipName {
				count++
			}
		}
	}
	return count >= min
}

func paginate(matches []wowsreplay.Match, limit int) *SearchResult {
	hasMore := len(matches) > limit
	if hasMore {
		matches = matches[:limit]
	}
	cursor := int64(0)
	if len(matches) > 0 {
		cursor = matches[len(matches)-1].UnixTime
	}
	return &SearchResult{Items: matches, Count: len(matches), CursorUnixTime: cursor, HasMore: hasMore}
}

// Uploads lists every UPLOAD record in a bucket's table — the retention
// compactor walks these to find replay blobs old enough for its policy.
func (q *QueryGateway) Uploads(gameType repcore.GameTypeBucket) ([]wowsreplay.Upload, error) {
	rows, err := q.db.conn.Query(
		fmt.Sprintf(`SELECT payload FROM %s WHERE sort_key LIKE 'UPLOAD#%%'`, gameType.TableName()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uploads []wowsreplay.Upload
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var u wowsreplay.Upload
		if err := json.Unmarshal([]byte(payload), &u); err != nil {
			continue
		}
		uploads = append(uploads, u)
	}
	return uploads, nil
}

// MatchDetail assembles the merged MATCH/STATS/UPLOAD view for
// GET /api/match/{arenaUniqueID}: one read of MATCH + one of STATS + up to
// N reads of UPLOAD under the same partition key.
type MatchDetail struct {
	Match   wowsreplay.Match
	Stats   *wowsreplay.Stats
	Uploads []wowsreplay.Upload
}

func (q *QueryGateway) MatchDetail(gameType repcore.GameTypeBucket, arenaUniqueID string) (*MatchDetail, error) {
	table := gameType.TableName()

	m, ok, err := q.loadMatch(table, arenaUniqueID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no match found for arena %s", arenaUniqueID)
	}

	detail := &MatchDetail{Match: *m}

	var statsPayload string
	err = q.db.conn.QueryRow(
		fmt.Sprintf(`SELECT payload FROM %s WHERE arena_unique_id = ? AND sort_key = ?`, table),
		arenaUniqueID, sortKeyStats,
	).Scan(&statsPayload)
	if err == nil {
		var s wowsreplay.Stats
		if jerr := json.Unmarshal([]byte(statsPayload), &s); jerr == nil {
			detail.Stats = &s
		}
	}

	rows, err := q.db.conn.Query(
		fmt.Sprintf(`SELECT payload FROM %s WHERE arena_unique_id = ? AND sort_key LIKE 'UPLOAD#%%'`, table),
		arenaUniqueID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var u wowsreplay.Upload
		if err := json.Unmarshal([]byte(payload), &u); err == nil {
			detail.Uploads = append(detail.Uploads, u)
		}
	}

	return detail, nil
}
