package workers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"strik-trivia/models"
	"strik-trivia/services"
	"strik-trivia/store"
)

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (f *fakeUploader) Upload(_ context.Context, key string, body []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = body
	return "https://cdn.example.com/" + key, nil
}

func seedPlayer(t *testing.T, st store.Store, identity string, streak int) {
	t.Helper()
	ctx := context.Background()
	users := services.NewUserService(st)
	if _, err := users.UpsertUser(ctx, identity, models.UserProfile{Email: identity + "@example.com"}); err != nil {
		t.Fatal(err)
	}
	rec := services.NewSessionRecorder(st)
	id, err := rec.StartSession(ctx, identity, models.GameModeStreak)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rec.CompleteSession(ctx, identity, id, models.SessionCompletion{
		Score: int64(streak * 10), Streak: streak, QuestionsAnswered: streak + 1, CorrectAnswers: streak,
	}); err != nil {
		t.Fatal(err)
	}
}

func TestLeaderboardExporter(t *testing.T) {
	st := store.NewMemoryStore()
	seedPlayer(t, st, "ext-1", 3)
	seedPlayer(t, st, "ext-2", 8)

	up := &fakeUploader{}
	exp := NewLeaderboardExporter(services.NewLeaderboardService(st, time.UTC, nil), up, nil)
	if err := exp.ExportOnce(context.Background()); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"leaderboards/all-time.json", "leaderboards/today.json"} {
		raw, ok := up.objects[key]
		if !ok {
			t.Fatalf("%s not uploaded", key)
		}
		var snap LeaderboardSnapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			t.Fatal(err)
		}
		if len(snap.Entries) != 2 || snap.Entries[0].BestStreak != 8 || snap.SortBy != services.SortByStreak {
			t.Errorf("%s: %+v", key, snap)
		}
	}
}

func TestLeaderboardExporterReportsFailures(t *testing.T) {
	boom := errors.New("bucket gone")
	exp := NewLeaderboardExporter(services.NewLeaderboardService(store.NewMemoryStore(), time.UTC, nil), &fakeUploader{err: boom}, nil)

	if err := exp.ExportOnce(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestProfileSyncWorker(t *testing.T) {
	st := store.NewMemoryStore()
	users := services.NewUserService(st)
	if _, err := users.UpsertUser(context.Background(), "ext-1", models.UserProfile{Email: "old@example.com"}); err != nil {
		t.Fatal(err)
	}

	changedAt := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	var sinces []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Service-Token") != "svc-token" || r.URL.Path != "/api/v1/public/profiles" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		sinces = append(sinces, r.URL.Query().Get("since"))
		name := "Erling"
		json.NewEncoder(w).Encode(profileChangesResponse{Users: []RemoteProfile{
			{ExternalID: "ext-1", Email: "new@example.com", FirstName: &name, UpdatedAt: changedAt},
			{ExternalID: "ext-never-played", Email: "x@example.com", UpdatedAt: changedAt},
		}})
	}))
	defer srv.Close()

	w := NewProfileSyncWorker(users, srv.URL, "/api/v1/public/profiles", "svc-token", time.Minute)
	n, err := w.SyncOnce(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("updated=%d err=%v", n, err)
	}
	u, _ := users.CurrentUser(context.Background(), "ext-1")
	if u.Email != "new@example.com" || u.FirstName == nil || *u.FirstName != "Erling" {
		t.Errorf("profile = %+v", u)
	}
	if u, _ := users.CurrentUser(context.Background(), "ext-never-played"); u != nil {
		t.Errorf("sync created a player: %+v", u)
	}

	w.SyncOnce(context.Background())
	if len(sinces) != 2 || sinces[1] != changedAt.Format(time.RFC3339) {
		t.Errorf("since cursor not advanced: %v", sinces)
	}

	bad := NewProfileSyncWorker(users, srv.URL, "/api/v1/public/profiles", "wrong", time.Minute)
	if _, err := bad.SyncOnce(context.Background()); err == nil {
		t.Error("expected error on 401")
	}
}

func TestProfileSyncCursorStopsAtFailure(t *testing.T) {
	ctx := context.Background()
	users := services.NewUserService(store.NewMemoryStore())
	for _, id := range []string{"ext-1", "ext-2", "ext-3"} {
		if _, err := users.UpsertUser(ctx, id, models.UserProfile{Email: id + "@example.com"}); err != nil {
			t.Fatal(err)
		}
	}

	t1 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	var sinces []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sinces = append(sinces, r.URL.Query().Get("since"))
		json.NewEncoder(w).Encode(profileChangesResponse{Users: []RemoteProfile{
			{ExternalID: "ext-1", Email: "one@example.com", UpdatedAt: t1},
			{ExternalID: "ext-2", Email: "not-an-email", UpdatedAt: t1.Add(time.Minute)},
			{ExternalID: "ext-3", Email: "three@example.com", UpdatedAt: t1.Add(2 * time.Minute)},
		}})
	}))
	defer srv.Close()

	w := NewProfileSyncWorker(users, srv.URL, "/profiles", "svc-token", time.Minute)
	n, err := w.SyncOnce(ctx)
	if err != nil || n != 2 {
		t.Fatalf("updated=%d err=%v", n, err)
	}
	if u, _ := users.CurrentUser(ctx, "ext-3"); u.Email != "three@example.com" {
		t.Errorf("entry after the failure not applied: %+v", u)
	}

	w.SyncOnce(ctx)
	if len(sinces) != 2 || sinces[1] != t1.Format(time.RFC3339) {
		t.Errorf("cursor moved past the failed entry: %v", sinces)
	}
}

type countingSweeper struct{ n atomic.Int32 }

func (c *countingSweeper) SweepIdle() int { c.n.Add(1); return 0 }

func TestSchedulerRunsSweep(t *testing.T) {
	sweeper := &countingSweeper{}
	sched, err := StartScheduler(context.Background(), SchedulerConfig{
		Rounds:        sweeper,
		SweepInterval: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sched.Shutdown()

	deadline := time.Now().Add(2 * time.Second)
	for sweeper.n.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if sweeper.n.Load() == 0 {
		t.Fatal("sweep job never ran")
	}
}
