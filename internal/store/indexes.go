package store

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/wowsreplays/ingest/internal/repcore"
	"github.com/wowsreplays/ingest/pkg/wowsreplay"
)

// writeIndexes computes and writes the ship/player/clan reverse-index rows
// for a freshly created MATCH, one upsert per row outside any transaction;
// a failure part-way leaves the rows already written in place. This only ever
// runs on the "created" branch of the conditional MATCH write, never on
// merge — a second uploader's arrival doesn't rewrite the indexes. It is
// also exposed as Reindex for admin backfill, where "created" doesn't
// apply and every MATCH row is eligible.
func (p *Persister) writeIndexes(bucket repcore.GameTypeBucket, m *wowsreplay.Match) error {
	sortKey := fmt.Sprintf("%s#%d#%s", bucket.Name, m.UnixTime, m.ArenaUniqueID)

	if err := p.writeShipIndex(m, sortKey); err != nil {
		return fmt.Errorf("ship index: %w", err)
	}
	if err := p.writePlayerIndex(m, sortKey); err != nil {
		return fmt.Errorf("player index: %w", err)
	}
	if err := p.writeClanIndex(m, sortKey); err != nil {
		return fmt.Errorf("clan index: %w", err)
	}
	return nil
}

// Reindex recomputes and upserts reverse-index rows for every MATCH
// record in bucket's table — an idempotent admin backfill operation
// (re-computing indexes is an idempotent upsert), exposed to
// cmd/wowsreplctl's reindex subcommand.
func (p *Persister) Reindex(bucket repcore.GameTypeBucket) (int, error) {
	table := bucket.TableName()
	rows, err := p.db.conn.Query(
		fmt.Sprintf(`SELECT payload FROM %s WHERE sort_key = ?`, table), sortKeyMatch)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var payloads []string
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return 0, err
		}
		payloads = append(payloads, payload)
	}

	count := 0
	for _, payload := range payloads {
		var m wowsreplay.Match
		if err := json.Unmarshal([]byte(payload), &m); err != nil {
			continue
		}
		if err := p.writeIndexes(bucket, &m); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (p *Persister) writeShipIndex(m *wowsreplay.Match, sortKey string) error {
	type tally struct{ ally, enemy int }
	byShip := make(map[string]*tally)

	for _, pl := range m.Allies {
		if pl.ShipName == "" {
			continue
		}
		t := byShip[pl.ShipName]
		if t == nil {
			t = &tally{}
			byShip[pl.ShipName] = t
		}
		t.ally++
	}
	for _, pl := range m.Enemies {
		if pl.ShipName == "" {
			continue
		}
		t := byShip[pl.ShipName]
		if t == nil {
			t = &tally{}
			byShip[pl.ShipName] = t
		}
		t.enemy++
	}

	for shipName, t := range byShip {
		row := wowsreplay.ShipIndexRow{
			ShipName:      shipName,
			SortKey:       sortKey,
			ArenaUniqueID: m.ArenaUniqueID,
			AllyCount:     t.ally,
			EnemyCount:    t.enemy,
			TotalCount:    t.ally + t.enemy,
		}
		if err := p.upsertIndexRow("ship_index", normalizeDimension(shipName), sortKey, m.ArenaUniqueID, m.UnixTime, row); err != nil {
			return err
		}
	}
	return nil
}

func (p *Persister) writePlayerIndex(m *wowsreplay.Match, sortKey string) error {
	write := func(pl wowsreplay.Player, team repcore.Team) error {
		if pl.Name == "" {
			return nil
		}
		row := wowsreplay.PlayerIndexRow{
			PlayerName:    pl.Name,
			SortKey:       sortKey,
			ArenaUniqueID: m.ArenaUniqueID,
			Team:          team,
			ClanTag:       pl.ClanTag,
			ShipName:      pl.ShipName,
		}
		return p.upsertIndexRow("player_index", normalizeDimension(pl.Name), sortKey, m.ArenaUniqueID, m.UnixTime, row)
	}

	for _, pl := range m.Allies {
		if err := write(pl, repcore.TeamAlly); err != nil {
			return err
		}
	}
	for _, pl := range m.Enemies {
		if err := write(pl, repcore.TeamEnemy); err != nil {
			return err
		}
	}
	return nil
}

func (p *Persister) writeClanIndex(m *wowsreplay.Match, sortKey string) error {
	type tally struct {
		team    repcore.Team
		members int
	}
	byClan := make(map[string]*tally)

	count := func(players []wowsreplay.Player, team repcore.Team) {
		for _, pl := range players {
			if pl.ClanTag == "" {
				continue
			}
			t := byClan[pl.ClanTag]
			if t == nil {
				t = &tally{team: team}
				byClan[pl.ClanTag] = t
			}
			t.members++
		}
	}
	count(m.Allies, repcore.TeamAlly)
	count(m.Enemies, repcore.TeamEnemy)

	for clanTag, t := range byClan {
		isMain := clanTag == m.AllyMainClanTag || clanTag == m.EnemyMainClanTag
		row := wowsreplay.ClanIndexRow{
			ClanTag:       clanTag,
			SortKey:       sortKey,
			ArenaUniqueID: m.ArenaUniqueID,
			Team:          t.team,
			MemberCount:   t.members,
			IsMainClan:    isMain,
		}
		if err := p.upsertIndexRow("clan_index", normalizeDimension(clanTag), sortKey, m.ArenaUniqueID, m.UnixTime, row); err != nil {
			return err
		}
	}
	return nil
}

// upsertIndexRow keeps admin backfill re-computation of indexes
// idempotent.
func (p *Persister) upsertIndexRow(table, dimensionValue, sortKey, arenaUniqueID string, unixTime int64, row any) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return err
	}
	_, err = p.db.conn.Exec(
		fmt.Sprintf(`INSERT INTO %s (dimension_value, sort_key, arena_unique_id, unix_time, payload) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(dimension_value, sort_key) DO UPDATE SET unix_time = excluded.unix_time, payload = excluded.payload`, table),
		dimensionValue, sortKey, arenaUniqueID, unixTime, payload,
	)
	return err
}
