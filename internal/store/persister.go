package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/wowsreplays/ingest/internal/applog"
	"github.com/wowsreplays/ingest/internal/match"
	"github.com/wowsreplays/ingest/internal/repcore"
	"github.com/wowsreplays/ingest/pkg/wowsreplay"
)

const (
	sortKeyMatch = "MATCH"
	sortKeyStats = "STATS"
)

func sortKeyUpload(playerID string) string { return "UPLOAD#" + playerID }

// PersistConflict is returned when the conditional MATCH write's
// compare-and-set loses a race with a concurrent writer after exhausting
// its retry budget. The caller (orchestrator) treats it as transient and
// re-triggers on the next storage event.
type PersistConflict struct {
	ArenaUniqueID string
}

func (e *PersistConflict) Error() string {
	return fmt.Sprintf("persist conflict on arena %s: exhausted retries", e.ArenaUniqueID)
}

// Persister implements the match write protocol against one game-type table
// at a time.
type Persister struct {
	db  *DB
	log *applog.Logger
}

func NewPersister(db *DB) *Persister {
	return &Persister{db: db, log: applog.New("persister")}
}

// WriteResult reports which branch the conditional MATCH write took, so
// callers can decide whether to fire reverse-index writes and dual-render.
type WriteResult struct {
	Match         *wowsreplay.Match
	Created       bool // true only the first time this arena-id's MATCH is written
	HasDualReplay bool
	DualFlipped   bool // true only on the write that flipped HasDualReplay; dual-render fires exactly once
}

// Persist runs the full write protocol for one decoded+assembled replay:
// conditional MATCH write, conditional STATS write, unconditional UPLOAD
// write, and (only on MATCH "created") the reverse-index writes.
func (p *Persister) Persist(bucket repcore.GameTypeBucket, m *wowsreplay.Match, stats *wowsreplay.Stats, upload *wowsreplay.Upload, uploaderTeam repcore.Team) (*WriteResult, error) {
	table := bucket.TableName()

	result, err := p.writeMatchWithRetry(table, m, uploaderTeam)
	if err != nil {
		return nil, err
	}

	if stats != nil {
		if err := p.writeStatsIfAbsent(table, stats); err != nil {
			p.log.Printf("stats write failed for %s: %v", m.ArenaUniqueID, err)
		}
	}

	if err := p.writeUpload(table, upload); err != nil {
		p.log.Printf("upload write failed for %s/%s: %v", m.ArenaUniqueID, upload.PlayerID, err)
	}

	if result.Created {
		if err := p.writeIndexes(bucket, result.Match); err != nil {
			p.log.Printf("index write failed for %s: %v", m.ArenaUniqueID, err)
		}
	}

	return result, nil
}

// writeMatchWithRetry implements the compare-and-set: create if absent,
// else merge uploaders/hasDualReplay into the existing row. Retried with
// a small bounded exponential backoff on a conflicting concurrent writer.
func (p *Persister) writeMatchWithRetry(table string, m *wowsreplay.Match, uploaderTeam repcore.Team) (*WriteResult, error) {
	const maxAttempts = 5
	backoff := 10 * time.Millisecond

	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := p.tryWriteMatch(table, m, uploaderTeam)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, errBusy) {
			return nil, err
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	return nil, &PersistConflict{ArenaUniqueID: m.ArenaUniqueID}
}

var errBusy = errors.New("sqlite busy")

func (p *Persister) tryWriteMatch(table string, m *wowsreplay.Match, uploaderTeam repcore.Team) (*WriteResult, error) {
	tx, err := p.db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var existingPayload string
	err = tx.QueryRow(
		fmt.Sprintf(`SELECT payload FROM %s WHERE arena_unique_id = ? AND sort_key = ?`, table),
		m.ArenaUniqueID, sortKeyMatch,
	).Scan(&existingPayload)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		payload, jerr := json.Marshal(m)
		if jerr != nil {
			return nil, jerr
		}
		_, err = tx.Exec(
			fmt.Sprintf(`INSERT INTO %s (arena_unique_id, sort_key, listing_key, unix_time, map_id, payload) VALUES (?, ?, ?, ?, ?, ?)`, table),
			m.ArenaUniqueID, sortKeyMatch, m.ListingKey, m.UnixTime, m.MapID, payload,
		)
		if err != nil {
			return nil, busyOrErr(err)
		}
		if err := tx.Commit(); err != nil {
			return nil, busyOrErr(err)
		}
		return &WriteResult{Match: m, Created: true, HasDualReplay: m.HasDualReplay}, nil

	case err != nil:
		return nil, err

	default:
		var existing wowsreplay.Match
		if err := json.Unmarshal([]byte(existingPayload), &existing); err != nil {
			return nil, err
		}
		hadDual := existing.HasDualReplay
		uploader := lastUploader(m)
		match.MergeUpload(&existing, teamRelativeTo(&existing, uploader.PlayerName, uploaderTeam), match.UploadInput{
			PlayerID:   uploader.PlayerID,
			PlayerName: uploader.PlayerName,
		})

		payload, jerr := json.Marshal(&existing)
		if jerr != nil {
			return nil, jerr
		}
		_, err = tx.Exec(
			fmt.Sprintf(`UPDATE %s SET payload = ? WHERE arena_unique_id = ? AND sort_key = ?`, table),
			payload, m.ArenaUniqueID, sortKeyMatch,
		)
		if err != nil {
			return nil, busyOrErr(err)
		}
		if err := tx.Commit(); err != nil {
			return nil, busyOrErr(err)
		}
		return &WriteResult{
			Match:         &existing,
			Created:       false,
			HasDualReplay: existing.HasDualReplay,
			DualFlipped:   existing.HasDualReplay && !hadDual,
		}, nil
	}
}

// teamRelativeTo resolves which side of the pinned (first-upload)
// perspective a later uploader fought on: their own replay always calls
// them "ally", but the MATCH record's teams are fixed by the first upload,
// so the name is looked up in the stored rosters. Falls back to the
// caller-supplied team when the name isn't found (e.g. a roster truncated
// by an incomplete first replay).
func teamRelativeTo(existing *wowsreplay.Match, uploaderName string, fallback repcore.Team) repcore.Team {
	for _, p := range existing.Allies {
		if p.Name == uploaderName {
			return repcore.TeamAlly
		}
	}
	for _, p := range existing.Enemies {
		if p.Name == uploaderName {
			return repcore.TeamEnemy
		}
	}
	return fallback
}

// lastUploader returns the uploader Assemble() attached to a fresh Match
// (always exactly one, since Assemble only ever builds a first-upload
// record); the merge path needs it to append onto the pre-existing row.
func lastUploader(m *wowsreplay.Match) wowsreplay.Uploader {
	if len(m.Uploaders) == 0 {
		return wowsreplay.Uploader{}
	}
	return m.Uploaders[len(m.Uploaders)-1]
}

func busyOrErr(err error) error {
	if err == nil {
		return nil
	}
	// mattn/go-sqlite3 surfaces SQLITE_BUSY as a plain string-matched
	// error; a single-connection DB (see Open) makes this path rare, but
	// the retry loop above still needs to recognize it.
	if sqliteErr, ok := asSQLiteBusy(err); ok {
		return sqliteErr
	}
	return err
}

func asSQLiteBusy(err error) (error, bool) {
	if err == nil {
		return nil, false
	}
	msg := err.Error()
	if msg == "database is locked" || msg == "database table is locked" {
		return errBusy, true
	}
	return nil, false
}

// writeStatsIfAbsent implements "create if not exists, never overwrite":
// the first uploader's decoded stats win.
func (p *Persister) writeStatsIfAbsent(table string, s *wowsreplay.Stats) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = p.db.conn.Exec(
		fmt.Sprintf(`INSERT OR IGNORE INTO %s (arena_unique_id, sort_key, payload) VALUES (?, ?, ?)`, table),
		s.ArenaUniqueID, sortKeyStats, payload,
	)
	return err
}

// writeUpload writes UPLOAD#{playerID} unconditionally: re-upload by the
// same player overwrites only their own row.
func (p *Persister) writeUpload(table string, u *wowsreplay.Upload) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return err
	}
	_, err = p.db.conn.Exec(
		fmt.Sprintf(`INSERT INTO %s (arena_unique_id, sort_key, payload) VALUES (?, ?, ?)
			ON CONFLICT(arena_unique_id, sort_key) DO UPDATE SET payload = excluded.payload`, table),
		u.ArenaUniqueID, sortKeyUpload(u.PlayerID), payload,
	)
	return err
}

// UpdateVideo applies the VideoRenderer's side effect: stamping mp4S3Key
// and mp4GeneratedAt (or dualMp4S3Key) onto an existing MATCH row.
func (p *Persister) UpdateVideo(bucket repcore.GameTypeBucket, arenaUniqueID, mp4Key string, generatedAt int64, dual bool) error {
	table := bucket.TableName()

	var payload string
	if err := p.db.conn.QueryRow(
		fmt.Sprintf(`SELECT payload FROM %s WHERE arena_unique_id = ? AND sort_key = ?`, table),
		arenaUniqueID, sortKeyMatch,
	).Scan(&payload); err != nil {
		return fmt.Errorf("load match for video update: %w", err)
	}

	var m wowsreplay.Match
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return err
	}

	if dual {
		m.DualMP4S3Key = mp4Key
	} else {
		m.MP4S3Key = mp4Key
	}
	m.MP4GeneratedAt = generatedAt

	newPayload, err := json.Marshal(&m)
	if err != nil {
		return err
	}
	_, err = p.db.conn.Exec(
		fmt.Sprintf(`UPDATE %s SET payload = ? WHERE arena_unique_id = ? AND sort_key = ?`, table),
		newPayload, arenaUniqueID, sortKeyMatch,
	)
	return err
}
