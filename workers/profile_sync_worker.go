// workers/profile_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"strik-trivia/models"
	"strik-trivia/services"

	"github.com/sirupsen/logrus"
)

// RemoteProfile is one entry of the identity provider's change feed.
type RemoteProfile struct {
	ExternalID string    `json:"external_id"`
	Email      string    `json:"email"`
	FirstName  *string   `json:"first_name,omitempty"`
	LastName   *string   `json:"last_name,omitempty"`
	ImageURL   *string   `json:"image_url,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type profileChangesResponse struct {
	Users []RemoteProfile `json:"users"`
}

// ProfileSyncWorker pulls profile changes from the identity provider so
// leaderboard names and avatars follow edits made outside the game.
type ProfileSyncWorker struct {
	users        *services.UserService
	interval     time.Duration
	baseURL      string
	endpointPath string
	serviceToken string
	httpClient   *http.Client

	since time.Time
}

func NewProfileSyncWorker(users *services.UserService, baseURL, endpointPath, serviceToken string, interval time.Duration) *ProfileSyncWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ProfileSyncWorker{
		users:        users,
		interval:     interval,
		baseURL:      baseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (w *ProfileSyncWorker) Start(ctx context.Context) {
	logrus.WithField("url", w.baseURL).Info("🔁 [SYNC] starting profile sync worker")
	go w.run(ctx)
}

func (w *ProfileSyncWorker) run(ctx context.Context) {
	if _, err := w.SyncOnce(ctx); err != nil {
		logrus.WithError(err).Warn("[SYNC] initial sync failed")
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.SyncOnce(ctx); err != nil {
				logrus.WithError(err).Error("[SYNC] sync batch failed")
			}
		case <-ctx.Done():
			logrus.Info("⏹️ [SYNC] profile sync worker stopped")
			return
		}
	}
}

// SyncOnce fetches every change since the last successful batch and applies
// it. It returns how many local profiles were updated.
func (w *ProfileSyncWorker) SyncOnce(ctx context.Context) (int, error) {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return 0, fmt.Errorf("invalid profile sync URL %q: %w", w.baseURL, err)
	}
	endpoint := base.JoinPath(w.endpointPath)
	q := endpoint.Query()
	q.Set("since", w.since.UTC().Format(time.RFC3339))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("build profile sync request: %w", err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("profile sync request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("profile sync returned %d: %s", resp.StatusCode, body)
	}

	var changes profileChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&changes); err != nil {
		return 0, fmt.Errorf("decode profile sync response: %w", err)
	}

	// The cursor stops before the first entry that failed so the next batch
	// retries it. Later entries are still applied.
	updated, failed := 0, 0
	latest := w.since
	for _, p := range changes.Users {
		u, err := w.users.SyncProfile(ctx, p.ExternalID, models.UserProfile{
			Email:     p.Email,
			FirstName: p.FirstName,
			LastName:  p.LastName,
			ImageURL:  p.ImageURL,
		})
		if err != nil {
			failed++
			logrus.WithError(err).WithField("external_id", p.ExternalID).Warn("⚠️ [SYNC] failed to apply profile")
			continue
		}
		if u != nil {
			updated++
		}
		if failed == 0 && p.UpdatedAt.After(latest) {
			latest = p.UpdatedAt
		}
	}
	w.since = latest

	if len(changes.Users) > 0 {
		logrus.WithFields(logrus.Fields{
			"received": len(changes.Users),
			"updated":  updated,
			"failed":   failed,
		}).Info("✅ [SYNC] applied profile changes")
	}
	return updated, nil
}
