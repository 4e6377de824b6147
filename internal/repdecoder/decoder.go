// Package repdecoder implements the version-indexed ReplayDecoder: walking
// a decompressed packet stream (produced by internal/repformat) into a
// wowsreplay.DecodedReplay.
//
// The packet-dispatch loop is a cursor-driven walk over size-prefixed
// frames, switching on a packet kind to decide what to record. Unknown
// packet types and undecodable Map/EntityCreate/EntityMethod payloads are
// skipped, a frame cut short marks the replay Incomplete, and a malformed
// BattleStats payload or a recovered panic yields a typed error.
package repdecoder

import (
	"encoding/base64"
	"fmt"
	"log"
	"runtime"
	"sort"

	"github.com/goccy/go-json"

	"github.com/wowsreplays/ingest/internal/repcore"
	"github.com/wowsreplays/ingest/internal/repformat"
	"github.com/wowsreplays/ingest/pkg/wowsreplay"
)

// frameHeaderSize is size:u32 | type:u32 | clock:f32.
const frameHeaderSize = 12

// Decode turns raw .wowsreplay bytes into a DecodedReplay for the given
// client version. It runs non-strict (lenient): a stream that ends before
// a terminal BattleStats packet yields a DecodedReplay with
// Incomplete=true and BattleStats=nil instead of failing — the pipeline
// downstream still records metadata for an incomplete replay.
func Decode(raw []byte, clientVersion repcore.ClientVersion) (r *wowsreplay.DecodedReplay, err error) {
	// Input is untrusted binary data; protect the decode loop from panics,
	// converting any implementation bug or unexpected bit pattern into a
	// typed error instead of crashing the worker.
	defer func() {
		if rec := recover(); rec != nil {
			buf := make([]byte, 2000)
			n := runtime.Stack(buf, false)
			log.Printf("[repdecoder] panic decoding replay: %v\n%s", rec, buf[:n])
			err = repcore.NewTruncatedStreamError(fmt.Sprintf("panic during decode: %v", rec), 0)
			r = nil
		}
	}()

	v, err := lookup(clientVersion)
	if err != nil {
		return nil, err
	}

	container, err := repformat.Open(raw)
	if err != nil {
		return nil, err
	}

	stream, err := container.PacketStream()
	if err != nil {
		return nil, err
	}

	return decodeStream(stream, v, container, clientVersion)
}

type entityMethodPayload struct {
	PlayerID string          `json:"playerId"`
	Method   string          `json:"method"`
	Data     json.RawMessage `json:"data"`
}

type battleResultData struct {
	WinnerTeamID int `json:"winner_team_id"`
}

type learnedSkillsData struct {
	ShipClass string `json:"shipClass"`
	Skills    []int  `json:"skills"`
}

type shipComponentsData struct {
	PlayerID   string         `json:"playerId"`
	Components map[string]int `json:"components"`
}

type configDumpData struct {
	PlayerID string `json:"playerId"`
	Dump     string `json:"dump"` // base64
}

type entityCreatePayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	ShipID   int    `json:"shipId"`
	ShipName string `json:"shipName"`
	ClanTag  string `json:"clanTag"`
	TeamID   int    `json:"teamId"`
}

type mapPayload struct {
	MapID string `json:"mapId"`
}

func decodeStream(stream []byte, v *variant, container *repformat.Container, clientVersion repcore.ClientVersion) (*wowsreplay.DecodedReplay, error) {
	r := &wowsreplay.DecodedReplay{
		ClientVersion:  string(clientVersion),
		MapID:          container.Metadata.MapID,
		MapDisplayName: container.Metadata.MapDisplayName,
		DateTime:       container.Metadata.DateTime,
		GameType:       container.Metadata.GameType,
	}
	r.Hidden.LearnedSkills = make(map[string][]int)
	r.Hidden.PlayerHidden = make(map[string]wowsreplay.PlayerHiddenData)

	players := make(map[string]wowsreplay.Player) // playerId -> Player
	teamIDs := make(map[string]int)                // playerId -> raw teamId
	ownPlayerID := ""

	cur := cursor{b: stream}
	for cur.remaining() > 0 {
		if cur.remaining() < frameHeaderSize {
			r.Incomplete = true
			break
		}

		size := cur.getUint32()
		typ := cur.getUint32()
		_ = cur.getFloat32() // clock: not needed for persistence, only for video timelines

		if cur.remaining() < size {
			// Mid-frame cut: everything decoded so far (roster, hidden
			// state) still gets recorded below.
			r.Incomplete = true
			break
		}
		payload := cur.readSlice(size)

		kind := v.packetTypes[typ]
		switch kind {
		case packetKindMap:
			var m mapPayload
			if err := json.Unmarshal(payload, &m); err == nil && m.MapID != "" {
				r.MapID = m.MapID
			}

		case packetKindEntityCreate:
			var e entityCreatePayload
			if err := json.Unmarshal(payload, &e); err != nil {
				continue
			}
			p := wowsreplay.Player{
				Name:     e.Name,
				ShipID:   e.ShipID,
				ShipName: e.ShipName,
				ClanTag:  e.ClanTag,
			}
			players[e.PlayerID] = p
			teamIDs[e.PlayerID] = e.TeamID
			if e.Name == container.Metadata.PlayerName {
				ownPlayerID = e.PlayerID
			}

		case packetKindEntityMethod:
			var m entityMethodPayload
			if err := json.Unmarshal(payload, &m); err != nil {
				continue
			}
			applyEntityMethod(r, m)

		case packetKindBattleStats:
			var bs wowsreplay.BattleStats
			if err := json.Unmarshal(payload, &bs); err != nil {
				return nil, repcore.NewTruncatedStreamError("malformed BattleStats payload: "+err.Error(), int(cur.pos))
			}
			r.BattleStats = &bs
			r.ArenaUniqueID = bs.ArenaUniqueID

		default:
			// Unknown/uninteresting packet type for this version: skip.
		}
	}

	// A stream cut off before any EntityCreate packet still has the full
	// roster in the JSON metadata block; fall back to it so search by
	// player/ship works even for badly truncated replays.
	if len(players) == 0 {
		for i, pi := range container.Metadata.PlayersInfo {
			pid := fmt.Sprintf("meta-%d", i)
			players[pid] = wowsreplay.Player{
				Name:     pi.Name,
				ShipID:   pi.ShipID,
				ShipName: pi.ShipName,
				ClanTag:  pi.ClanTag,
			}
			teamIDs[pid] = pi.TeamID
			if pi.Name == container.Metadata.PlayerName {
				ownPlayerID = pid
			}
		}
	}

	assembleRoster(r, players, teamIDs, ownPlayerID)

	if r.BattleStats == nil {
		r.Incomplete = true
	}

	return r, nil
}

func applyEntityMethod(r *wowsreplay.DecodedReplay, m entityMethodPayload) {
	switch m.Method {
	case "battle_result":
		var d battleResultData
		if err := json.Unmarshal(m.Data, &d); err == nil {
			r.Hidden.BattleResult = &wowsreplay.BattleResult{WinnerTeamID: d.WinnerTeamID}
		}

	case "crew.learned_skills":
		var d learnedSkillsData
		if err := json.Unmarshal(m.Data, &d); err == nil {
			r.Hidden.LearnedSkills[d.ShipClass] = d.Skills
		}

	case "ship.components":
		var d shipComponentsData
		if err := json.Unmarshal(m.Data, &d); err == nil {
			hd := r.Hidden.PlayerHidden[d.PlayerID]
			hd.ShipComponents = d.Components
			r.Hidden.PlayerHidden[d.PlayerID] = hd
		}

	case "ship.configDump":
		var d configDumpData
		if err := json.Unmarshal(m.Data, &d); err == nil {
			dump, err := base64.StdEncoding.DecodeString(d.Dump)
			if err == nil {
				hd := r.Hidden.PlayerHidden[d.PlayerID]
				hd.ShipConfigDump = dump
				r.Hidden.PlayerHidden[d.PlayerID] = hd
			}
		}
	}
}

// assembleRoster splits the entity-create-derived player table into the
// DecodedReplay's OwnPlayer/Allies/Enemies, relative to ownPlayerID's team.
// Iteration over the player map must not leak into the output order —
// decoding the same bytes twice has to yield equal DecodedReplays — so the
// player ids are walked in sorted order.
func assembleRoster(r *wowsreplay.DecodedReplay, players map[string]wowsreplay.Player, teamIDs map[string]int, ownPlayerID string) {
	ownTeamID, hasOwn := teamIDs[ownPlayerID]
	if hasOwn {
		r.OwnPlayer = players[ownPlayerID]
		r.OwnTeamRawID = ownTeamID
	}

	pids := make([]string, 0, len(players))
	for pid := range players {
		pids = append(pids, pid)
	}
	sort.Strings(pids)

	for _, pid := range pids {
		if pid == ownPlayerID {
			continue
		}
		p := players[pid]
		if !hasOwn {
			r.Enemies = append(r.Enemies, p)
			continue
		}
		if teamIDs[pid] == ownTeamID {
			r.Allies = append(r.Allies, p)
		} else {
			r.Enemies = append(r.Enemies, p)
		}
	}
}
