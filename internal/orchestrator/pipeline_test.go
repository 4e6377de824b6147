package orchestrator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wowsreplays/ingest/internal/config"
	"github.com/wowsreplays/ingest/internal/repcore"
	"github.com/wowsreplays/ingest/internal/store"
	"github.com/wowsreplays/ingest/internal/video"
	"github.com/wowsreplays/ingest/pkg/wowsreplay"
)

// fakeRenderer satisfies video.Renderer without shelling out.
type fakeRenderer struct {
	calls int32
	fail  bool
}

func (f *fakeRenderer) Render(ctx context.Context, replayBytes []byte, meta video.RenderMeta) ([]byte, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.fail {
		return nil, &video.RenderFailure{ArenaUniqueID: meta.ArenaUniqueID, Cause: "boom"}
	}
	return []byte("mp4"), nil
}

func newTestOrchestrator(t *testing.T, renderer video.Renderer, webhookURL string) (*Orchestrator, *store.DB, *store.BlobStore) {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	blobs, err := store.NewBlobStore(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{WebhookURL: webhookURL}
	o := New(cfg, store.NewPersister(db), store.NewQueryGateway(db), blobs, renderer)
	return o, db, blobs
}

func seedPersistedMatch(t *testing.T, o *Orchestrator, arenaID string) {
	t.Helper()
	m := &wowsreplay.Match{
		ArenaUniqueID: arenaID,
		ListingKey:    "ACTIVE",
		UnixTime:      1000,
		MapID:         "spaces/19_OC_prey",
		GameType:      repcore.GameTypeClan,
		Uploaders:     []wowsreplay.Uploader{{PlayerID: "p1", PlayerName: "Own", Team: repcore.TeamAlly}},
	}
	upload := &wowsreplay.Upload{ArenaUniqueID: arenaID, PlayerID: "p1", ObjectKey: store.ReplayKey("p1", "a.wowsreplay")}
	_, err := o.persister.Persist(repcore.GameTypeClan, m, nil, upload, repcore.TeamAlly)
	require.NoError(t, err)
}

func TestRenderVideo_WritesBlobAndStampsMatch(t *testing.T) {
	notified := int32(0)
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&notified, 1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer webhook.Close()

	renderer := &fakeRenderer{}
	o, db, blobs := newTestOrchestrator(t, renderer, webhook.URL)
	seedPersistedMatch(t, o, "arena-r")

	replayKey := store.ReplayKey("p1", "a.wowsreplay")
	require.NoError(t, blobs.Put(replayKey, []byte("replay-bytes")))

	state, err := o.RenderVideo(context.Background(), repcore.GameTypeClan, "arena-r", replayKey,
		video.RenderMeta{ArenaUniqueID: "arena-r", MapID: "spaces/19_OC_prey"})
	require.NoError(t, err)
	assert.Equal(t, StateRendered, state)
	assert.EqualValues(t, 1, atomic.LoadInt32(&renderer.calls))

	assert.True(t, blobs.Exists(store.VideoKey("arena-r", "single")))

	q := store.NewQueryGateway(db)
	detail, err := q.MatchDetail(repcore.GameTypeClan, "arena-r")
	require.NoError(t, err)
	assert.Equal(t, store.VideoKey("arena-r", "single"), detail.Match.MP4S3Key)
	assert.NotZero(t, detail.Match.MP4GeneratedAt)

	// Clan game type: the match-ready webhook fired.
	assert.EqualValues(t, 1, atomic.LoadInt32(&notified))
}

func TestRenderVideo_FailureLeavesMatchVideoless(t *testing.T) {
	renderer := &fakeRenderer{fail: true}
	o, db, blobs := newTestOrchestrator(t, renderer, "")
	seedPersistedMatch(t, o, "arena-f")

	replayKey := store.ReplayKey("p1", "a.wowsreplay")
	require.NoError(t, blobs.Put(replayKey, []byte("replay-bytes")))

	state, err := o.RenderVideo(context.Background(), repcore.GameTypeClan, "arena-f", replayKey, video.RenderMeta{ArenaUniqueID: "arena-f"})
	require.Error(t, err)
	assert.Equal(t, StateRenderFailed, state)

	var failure *video.RenderFailure
	assert.ErrorAs(t, err, &failure)

	q := store.NewQueryGateway(db)
	detail, err := q.MatchDetail(repcore.GameTypeClan, "arena-f")
	require.NoError(t, err)
	assert.Empty(t, detail.Match.MP4S3Key, "failed render must not stamp a video key")
}

func TestUploaderFromKey(t *testing.T) {
	assert.Equal(t, "1234", uploaderFromKey("replays/1234/battle.wowsreplay"))
	assert.Equal(t, "", uploaderFromKey("videos/arena/single.mp4"))
	assert.Equal(t, "", uploaderFromKey("garbage"))
}
