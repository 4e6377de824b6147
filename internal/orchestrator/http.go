package orchestrator

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wowsreplays/ingest/internal/match"
	"github.com/wowsreplays/ingest/internal/repcore"
	"github.com/wowsreplays/ingest/internal/store"
	"github.com/wowsreplays/ingest/internal/video"
)

// RegisterRoutes wires the upload/search/video HTTP boundary onto an
// echo.Echo instance, one handler method per endpoint.
func (o *Orchestrator) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/upload", o.handleUpload)
	e.POST("/api/search", o.handleSearch)
	e.GET("/api/match/:arenaUniqueID", o.handleMatchDetail)
	e.POST("/api/generate-video", o.handleGenerateVideo)
}

type uploadResponse struct {
	ArenaUniqueID string `json:"arenaUniqueID"`
	UploadKey     string `json:"uploadKey"`
}

// handleUpload implements POST /api/upload: writes the blob to
// object storage immediately, then waits up to the interactive deadline
// for the decode pipeline running in a background goroutine. A decode that
// doesn't finish in time still returns 201 (the blob is safely written)
// with an empty arenaUniqueID; the goroutine keeps running the pipeline
// after the response is sent.
func (o *Orchestrator) handleUpload(c echo.Context) error {
	playerID := c.Request().Header.Get("X-Player-Id")
	playerName := c.Request().Header.Get("X-Player-Name")
	discordID := c.Request().Header.Get("X-Discord-Id")
	if playerID == "" || c.Request().Header.Get("X-Api-Key") == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing API key or player identity")
	}

	fileHeader, err := c.FormFile("replay")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing replay file")
	}
	if fileHeader.Size == 0 || fileHeader.Size > 64<<20 {
		return echo.NewHTTPError(http.StatusBadRequest, "replay file size out of bounds")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot open uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read uploaded file")
	}

	key := store.ReplayKey(playerID, fileHeader.Filename)
	if err := o.blobs.Put(key, data); err != nil {
		o.log.Printf("write blob failed: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "storage write failed")
	}

	clientVersion := repcore.ClientVersion(c.FormValue("clientVersion"))

	ctx, cancel := withInteractiveDeadline(c.Request().Context())
	defer cancel()

	type result struct {
		out *ProcessUploadOutput
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := o.ProcessUpload(ProcessUploadInput{
			ReplayBytes:   data,
			ClientVersion: clientVersion,
			Upload: match.UploadInput{
				PlayerID:   playerID,
				PlayerName: playerName,
				DiscordID:  discordID,
				ObjectKey:  key,
				FileSize:   fileHeader.Size,
				UploadedAt: time.Now().Unix(),
			},
			UploaderTeam: repcore.TeamAlly,
		})
		done <- result{out, err}
		// The response doesn't wait on rendering; any queued render jobs
		// run on after the 201 goes out.
		if err == nil {
			o.runQueuedRenders(out, key)
		}
	}()

	select {
	case r := <-done:
		arenaID := ""
		if r.out != nil {
			arenaID = r.out.ArenaUniqueID
		}
		return c.JSON(http.StatusCreated, uploadResponse{ArenaUniqueID: arenaID, UploadKey: key})
	case <-ctx.Done():
		// The blob is already durably written and the background goroutine
		// carries on with decode, persist and render after this response.
		return c.JSON(http.StatusCreated, uploadResponse{ArenaUniqueID: "", UploadKey: key})
	}
}

type searchRequestBody struct {
	GameType     string `json:"gameType"`
	MapID        string `json:"mapId"`
	AllyClanTag  string `json:"allyClanTag"`
	EnemyClanTag string `json:"enemyClanTag"`
	ShipName     string `json:"shipName"`
	ShipTeam     string `json:"shipTeam"`
	ShipMinCount int    `json:"shipMinCount"`
	PlayerName   string `json:"playerName"`
	WinLoss      string `json:"winLoss"`
	DateFrom     int64  `json:"dateFrom"`
	DateTo       int64  `json:"dateTo"`
	Cursor       int64  `json:"cursorUnixTime"`
	Limit        int    `json:"limit"`
}

func (o *Orchestrator) handleSearch(c echo.Context) error {
	var body searchRequestBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid search body")
	}

	result, err := o.queries.Search(store.SearchFilter{
		GameType:       body.GameType,
		MapID:          body.MapID,
		AllyClanTag:    body.AllyClanTag,
		EnemyClanTag:   body.EnemyClanTag,
		ShipName:       body.ShipName,
		ShipTeam:       body.ShipTeam,
		ShipMinCount:   body.ShipMinCount,
		PlayerName:     body.PlayerName,
		WinLoss:        body.WinLoss,
		DateFrom:       body.DateFrom,
		DateTo:         body.DateTo,
		CursorUnixTime: body.Cursor,
		Limit:          body.Limit,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"items":          result.Items,
		"count":          result.Count,
		"cursorUnixTime": result.CursorUnixTime,
		"hasMore":        result.HasMore,
	})
}

func (o *Orchestrator) handleMatchDetail(c echo.Context) error {
	arenaUniqueID := c.Param("arenaUniqueID")
	gameType := repcore.GameTypeBucketByRaw(c.QueryParam("gameType"))

	detail, err := o.queries.MatchDetail(gameType, arenaUniqueID)
	if err != nil {
		return echo.ErrNotFound
	}
	return c.JSON(http.StatusOK, detail)
}

type generateVideoRequest struct {
	ArenaUniqueID string `json:"arenaUniqueID"`
	PlayerID      string `json:"playerID"`
}

// handleGenerateVideo implements POST /api/generate-video: idempotent,
// returns already_exists or generating.
func (o *Orchestrator) handleGenerateVideo(c echo.Context) error {
	var body generateVideoRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	gameType := repcore.GameTypeBucketByRaw(c.QueryParam("gameType"))
	detail, err := o.queries.MatchDetail(gameType, body.ArenaUniqueID)
	if err != nil {
		return echo.ErrNotFound
	}
	if detail.Match.MP4S3Key != "" {
		return c.JSON(http.StatusOK, echo.Map{"status": "already_exists"})
	}

	var replayKey string
	for _, u := range detail.Uploads {
		if u.PlayerID == body.PlayerID {
			replayKey = u.ObjectKey
		}
	}
	if replayKey == "" {
		return echo.NewHTTPError(http.StatusNotFound, "no upload found for that player")
	}

	meta := video.RenderMeta{
		ArenaUniqueID: body.ArenaUniqueID,
		MapID:         detail.Match.MapID,
		ClientVersion: detail.Match.ClientVersion,
		Allies:        detail.Match.Allies,
		Enemies:       detail.Match.Enemies,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := o.RenderVideo(ctx, gameType, body.ArenaUniqueID, replayKey, meta); err != nil {
			o.log.Printf("async render failed for %s: %v", body.ArenaUniqueID, err)
		}
	}()

	return c.JSON(http.StatusAccepted, echo.Map{"status": "generating"})
}
