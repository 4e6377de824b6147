// Package video implements VideoRenderer: a black-box contract over
// whatever minimap-rendering tool is installed. Rendering shells out to
// an external ffmpeg-compatible binary via os/exec, the same boundary a
// Go service would use for any renderer it doesn't want to vendor.
package video

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/wowsreplays/ingest/internal/applog"
	"github.com/wowsreplays/ingest/pkg/wowsreplay"
)

// RenderFailure is returned when the renderer subprocess fails. It is not
// retried automatically; a user-initiated "regenerate video"
// command re-enqueues it.
type RenderFailure struct {
	ArenaUniqueID string
	Cause         string
}

func (e *RenderFailure) Error() string {
	return fmt.Sprintf("render failure for arena %s: %s", e.ArenaUniqueID, e.Cause)
}

// Renderer renders a single replay's minimap video.
type Renderer interface {
	Render(ctx context.Context, replayBytes []byte, meta RenderMeta) ([]byte, error)
}

// RenderMeta is the decoded metadata the renderer needs without re-reading
// the replay itself.
type RenderMeta struct {
	ArenaUniqueID string
	MapID         string
	ClientVersion string
	Allies        []wowsreplay.Player
	Enemies       []wowsreplay.Player
}

// ExternalRenderer shells out to an external minimap-rendering tool
// (ffmpeg-compatible CLI) pointed at a temp copy of the replay bytes.
type ExternalRenderer struct {
	binPath string
	log     *applog.Logger
}

func NewExternalRenderer(binPath string) *ExternalRenderer {
	return &ExternalRenderer{binPath: binPath, log: applog.New("video")}
}

// Render writes replayBytes to a scratch file, invokes the external
// renderer against it, and returns the produced MP4 bytes.
func (r *ExternalRenderer) Render(ctx context.Context, replayBytes []byte, meta RenderMeta) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "wowsreplay-render-*")
	if err != nil {
		return nil, &RenderFailure{ArenaUniqueID: meta.ArenaUniqueID, Cause: err.Error()}
	}
	defer os.RemoveAll(tmpDir)

	inPath := filepath.Join(tmpDir, "input.wowsreplay")
	if err := os.WriteFile(inPath, replayBytes, 0o644); err != nil {
		return nil, &RenderFailure{ArenaUniqueID: meta.ArenaUniqueID, Cause: err.Error()}
	}
	outPath := filepath.Join(tmpDir, "output.mp4")

	cmd := exec.CommandContext(ctx, r.binPath,
		"-replay", inPath,
		"-map", meta.MapID,
		"-out", outPath,
	)
	r.log.Printf("rendering arena %s (map %s)", meta.ArenaUniqueID, meta.MapID)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, &RenderFailure{ArenaUniqueID: meta.ArenaUniqueID, Cause: fmt.Sprintf("%v: %s", err, out)}
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, &RenderFailure{ArenaUniqueID: meta.ArenaUniqueID, Cause: err.Error()}
	}
	return data, nil
}

// DualRenderer composes two single-team replays into one combined video.
// Invoked only when hasDualReplay flips true for the first time.
type DualRenderer struct {
	inner Renderer
	log   *applog.Logger
}

func NewDualRenderer(inner Renderer) *DualRenderer {
	return &DualRenderer{inner: inner, log: applog.New("video-dual")}
}

// Render produces a combined MP4 from both teams' replay bytes. The
// underlying renderer is told about both rosters via meta; which replay
// bytes it actually samples frames from is the external tool's concern.
func (d *DualRenderer) Render(ctx context.Context, allyReplayBytes, enemyReplayBytes []byte, meta RenderMeta) ([]byte, error) {
	d.log.Printf("dual-rendering arena %s", meta.ArenaUniqueID)

	// A combined render is modeled as rendering the ally-side perspective
	// with the full (ally+enemy) roster meta attached; the external tool
	// receives both replay files concatenated on disk so it can pick
	// whichever frames it needs from either side.
	combined := append(append([]byte{}, allyReplayBytes...), enemyReplayBytes...)
	return d.inner.Render(ctx, combined, meta)
}
