package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wowsreplays/ingest/internal/applog"
	"github.com/wowsreplays/ingest/internal/config"
	"github.com/wowsreplays/ingest/internal/match"
	"github.com/wowsreplays/ingest/internal/repcore"
	"github.com/wowsreplays/ingest/internal/repdecoder"
	"github.com/wowsreplays/ingest/internal/statsparser"
	"github.com/wowsreplays/ingest/internal/store"
	"github.com/wowsreplays/ingest/internal/video"
	"github.com/wowsreplays/ingest/pkg/wowsreplay"
)

// Orchestrator wires every component into the pipeline. It holds no
// per-request mutable state; every exported method is safe to call
// concurrently for different uploads.
type Orchestrator struct {
	cfg       *config.Config
	persister *store.Persister
	queries   *store.QueryGateway
	blobs     *store.BlobStore
	renderer  video.Renderer
	dual      *video.DualRenderer
	notifier  *Notifier
	log       *applog.Logger
}

func New(cfg *config.Config, persister *store.Persister, queries *store.QueryGateway, blobs *store.BlobStore, renderer video.Renderer) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		persister: persister,
		queries:   queries,
		blobs:     blobs,
		renderer:  renderer,
		dual:      video.NewDualRenderer(renderer),
		notifier:  NewNotifier(cfg.WebhookURL),
		log:       applog.New("orchestrator"),
	}
}

// ProcessUploadInput is what the storage-event handler / interactive
// upload handler hands to ProcessUpload.
type ProcessUploadInput struct {
	ReplayBytes   []byte
	ClientVersion repcore.ClientVersion
	Upload        match.UploadInput
	UploaderTeam  repcore.Team
}

// ProcessUploadOutput reports the pipeline's outcome for the upload
// handler / storage-event handler to act on.
type ProcessUploadOutput struct {
	State            State
	ArenaUniqueID    string
	Match            *wowsreplay.Match
	RenderQueued     bool
	DualRenderQueued bool
}

// ProcessUpload runs Decoder -> Parser -> Assembler -> Persister for one
// uploaded replay: the DECODING -> PERSISTED | DECODE_FAILED transition of
// the per-upload state machine.
func (o *Orchestrator) ProcessUpload(in ProcessUploadInput) (*ProcessUploadOutput, error) {
	replay, err := repdecoder.Decode(in.ReplayBytes, in.ClientVersion)
	if err != nil {
		o.log.Printf("decode failed: %v", err)
		return &ProcessUploadOutput{State: StateDecodeFailed}, err
	}

	var stats []wowsreplay.PlayerStats
	if !replay.Incomplete {
		stats, err = statsparser.Parse(replay, in.ClientVersion)
		if err != nil {
			// IndexMissing is handled the same as UnsupportedVersion:
			// treat as a decode failure, no MATCH row written.
			o.log.Printf("stats parse failed: %v", err)
			return &ProcessUploadOutput{State: StateDecodeFailed}, err
		}
	} else {
		o.log.Printf("arena %s incomplete replay (NoBattleStats), persisting metadata only", replay.ArenaUniqueID)
	}

	// The async storage-event path knows only the uploader's player id
	// (from the object key); the display name comes from the replay itself.
	if in.Upload.PlayerName == "" {
		in.Upload.PlayerName = replay.OwnPlayer.Name
	}

	m, statsRecord, uploadRecord := match.Assemble(replay, stats, in.Upload)
	bucket := repcore.GameTypeBucketByRaw(replay.GameType)

	result, err := o.persister.Persist(bucket, m, statsRecord, uploadRecord, in.UploaderTeam)
	if err != nil {
		return &ProcessUploadOutput{State: StateDecodeFailed, ArenaUniqueID: replay.ArenaUniqueID}, err
	}

	out := &ProcessUploadOutput{
		State:         StatePersisted,
		ArenaUniqueID: replay.ArenaUniqueID,
		Match:         result.Match,
	}

	// A fresh MATCH gets its single-perspective render queued; the dual
	// render is queued only on the write that flipped HasDualReplay, so it
	// fires exactly once per arena-id no matter how many uploads arrive.
	if result.Created {
		out.State = StateRenderQueued
		out.RenderQueued = true
	}
	if result.DualFlipped {
		out.State = StateRenderQueued
		out.DualRenderQueued = true
	}

	return out, nil
}

// HandleUploadEvent is the storage-event entry point (the
// UPLOADED -> DECODING transition): fired when a new object lands under
// the uploads prefix, it loads the blob back out of object storage,
// recovers the uploader's player id from the key's
// "replays/{uploader-id}/{fname}" layout, and runs the decode pipeline.
// It is stateless across invocations — re-delivery of the same event
// re-runs the pipeline and lands on the idempotent write paths.
func (o *Orchestrator) HandleUploadEvent(objectKey string, clientVersion repcore.ClientVersion) (*ProcessUploadOutput, error) {
	data, err := o.blobs.Get(objectKey)
	if err != nil {
		return nil, fmt.Errorf("load uploaded blob %s: %w", objectKey, err)
	}

	playerID := uploaderFromKey(objectKey)

	out, err := o.ProcessUpload(ProcessUploadInput{
		ReplayBytes:   data,
		ClientVersion: clientVersion,
		Upload: match.UploadInput{
			PlayerID:   playerID,
			ObjectKey:  objectKey,
			FileSize:   int64(len(data)),
			UploadedAt: time.Now().Unix(),
		},
		UploaderTeam: repcore.TeamAlly,
	})
	if err != nil {
		return out, err
	}

	// The async path has no caller waiting, so render jobs run inline in
	// this worker invocation rather than being handed back.
	o.runQueuedRenders(out, objectKey)

	return out, nil
}

// runQueuedRenders executes whatever render jobs ProcessUpload queued:
// the single-perspective render for a fresh MATCH, and the dual render on
// the write that flipped HasDualReplay. Render failures are logged, never
// retried automatically; the match stays video-less until a
// regenerate request.
func (o *Orchestrator) runQueuedRenders(out *ProcessUploadOutput, objectKey string) {
	if out == nil || out.Match == nil || (!out.RenderQueued && !out.DualRenderQueued) {
		return
	}

	meta := video.RenderMeta{
		ArenaUniqueID: out.ArenaUniqueID,
		MapID:         out.Match.MapID,
		ClientVersion: out.Match.ClientVersion,
		Allies:        out.Match.Allies,
		Enemies:       out.Match.Enemies,
	}

	if out.RenderQueued {
		ctx, cancel := context.WithTimeout(context.Background(), renderDeadline)
		if state, err := o.RenderVideo(ctx, out.Match.GameType, out.ArenaUniqueID, objectKey, meta); err != nil {
			o.log.Printf("render for %s ended in %s: %v", out.ArenaUniqueID, state, err)
		}
		cancel()
	}

	if out.DualRenderQueued {
		allyKey, enemyKey, err := o.uploadKeysByTeam(out.Match)
		if err != nil || allyKey == "" || enemyKey == "" {
			o.log.Printf("dual render for %s skipped: missing a team's upload key (%v)", out.ArenaUniqueID, err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), renderDeadline)
		if state, err := o.RenderDualVideo(ctx, out.Match.GameType, out.ArenaUniqueID, allyKey, enemyKey, meta); err != nil {
			o.log.Printf("dual render for %s ended in %s: %v", out.ArenaUniqueID, state, err)
		}
		cancel()
	}
}

// uploadKeysByTeam resolves one stored upload's object key per team by
// joining the MATCH record's uploaders (which know teams) against the
// UPLOAD records (which know object keys).
func (o *Orchestrator) uploadKeysByTeam(m *wowsreplay.Match) (allyKey, enemyKey string, err error) {
	detail, err := o.queries.MatchDetail(m.GameType, m.ArenaUniqueID)
	if err != nil {
		return "", "", err
	}

	teamByPlayer := make(map[string]repcore.Team, len(m.Uploaders))
	for _, up := range m.Uploaders {
		teamByPlayer[up.PlayerID] = up.Team
	}

	for _, u := range detail.Uploads {
		switch teamByPlayer[u.PlayerID] {
		case repcore.TeamAlly:
			if allyKey == "" {
				allyKey = u.ObjectKey
			}
		case repcore.TeamEnemy:
			if enemyKey == "" {
				enemyKey = u.ObjectKey
			}
		}
	}
	return allyKey, enemyKey, nil
}

// uploaderFromKey recovers the uploader id segment of a
// "replays/{uploader-id}/{fname}" object key.
func uploaderFromKey(key string) string {
	parts := strings.Split(key, "/")
	if len(parts) >= 3 && parts[0] == "replays" {
		return parts[1]
	}
	return ""
}

// RenderVideo runs VideoRenderer for one arena-id: the
// RENDER_QUEUED -> RENDERED | RENDER_FAILED transition.
func (o *Orchestrator) RenderVideo(ctx context.Context, bucket repcore.GameTypeBucket, arenaUniqueID, replayKey string, meta video.RenderMeta) (State, error) {
	replayBytes, err := o.blobs.Get(replayKey)
	if err != nil {
		return StateRenderFailed, &video.RenderFailure{ArenaUniqueID: arenaUniqueID, Cause: err.Error()}
	}

	mp4, err := o.renderer.Render(ctx, replayBytes, meta)
	if err != nil {
		o.log.Printf("render failed for %s: %v", arenaUniqueID, err)
		return StateRenderFailed, err
	}

	key := store.VideoKey(arenaUniqueID, "single")
	if err := o.blobs.Put(key, mp4); err != nil {
		return StateRenderFailed, err
	}
	if err := o.persister.UpdateVideo(bucket, arenaUniqueID, key, time.Now().Unix(), false); err != nil {
		return StateRenderFailed, err
	}

	if bucket == repcore.GameTypeClan {
		o.notifier.NotifyMatchReady(ctx, arenaUniqueID)
	}

	return StateRendered, nil
}

// RenderDualVideo runs the dual-team render variant once both teams have
// an UPLOAD record under the same arena-id.
func (o *Orchestrator) RenderDualVideo(ctx context.Context, bucket repcore.GameTypeBucket, arenaUniqueID, allyReplayKey, enemyReplayKey string, meta video.RenderMeta) (State, error) {
	allyBytes, err := o.blobs.Get(allyReplayKey)
	if err != nil {
		return StateRenderFailed, fmt.Errorf("load ally replay: %w", err)
	}
	enemyBytes, err := o.blobs.Get(enemyReplayKey)
	if err != nil {
		return StateRenderFailed, fmt.Errorf("load enemy replay: %w", err)
	}

	mp4, err := o.dual.Render(ctx, allyBytes, enemyBytes, meta)
	if err != nil {
		return StateRenderFailed, err
	}

	key := store.VideoKey(arenaUniqueID, "dual")
	if err := o.blobs.Put(key, mp4); err != nil {
		return StateRenderFailed, err
	}
	if err := o.persister.UpdateVideo(bucket, arenaUniqueID, key, time.Now().Unix(), true); err != nil {
		return StateRenderFailed, err
	}

	if bucket == repcore.GameTypeClan {
		o.notifier.NotifyMatchReady(ctx, arenaUniqueID)
	}

	return StateRendered, nil
}

// interactiveDecodeDeadline bounds how long the upload HTTP handler will
// wait for a synchronous decode before falling back to queuing it for
// async processing: decoding must complete within the interactive
// handler's deadline or get out of its way.
const interactiveDecodeDeadline = 30 * time.Second

// renderDeadline bounds a video render invocation; rendering gets its
// own long deadline, minutes rather than seconds.
const renderDeadline = 10 * time.Minute

func withInteractiveDeadline(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, interactiveDecodeDeadline)
}
