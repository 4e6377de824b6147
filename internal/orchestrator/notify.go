package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/wowsreplays/ingest/internal/applog"
)

// Notifier posts a "match ready" embed to an external messaging webhook
// when a clan-battle render completes. It is a plain net/http client —
// the Discord gateway itself is out of scope of this service, this only
// has to hit whatever URL a webhook config points at.
type Notifier struct {
	url    string
	client *http.Client
	log    *applog.Logger
}

func NewNotifier(url string) *Notifier {
	return &Notifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    applog.New("notifier"),
	}
}

type matchReadyPayload struct {
	ArenaUniqueID string `json:"arenaUniqueID"`
	MatchURL      string `json:"matchUrl"`
}

// NotifyMatchReady fires the outbound webhook. Failures are logged, not
// returned — a missed notification doesn't affect any persisted record.
func (n *Notifier) NotifyMatchReady(ctx context.Context, arenaUniqueID string) {
	if n.url == "" {
		return
	}

	body, err := json.Marshal(matchReadyPayload{
		ArenaUniqueID: arenaUniqueID,
		MatchURL:      fmt.Sprintf("/api/match/%s", arenaUniqueID),
	})
	if err != nil {
		n.log.Printf("marshal webhook payload: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.log.Printf("build webhook request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Printf("webhook post failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.log.Printf("webhook post returned %s", resp.Status)
	}
}
