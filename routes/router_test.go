package routes

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spotme/spotme/coach"
	"github.com/spotme/spotme/config"
	"github.com/spotme/spotme/events"
	"github.com/spotme/spotme/posts"
	"github.com/spotme/spotme/services"
	"github.com/spotme/spotme/store"
	"github.com/spotme/spotme/streak"
	"github.com/spotme/spotme/utils"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T, llmURL string) *testServer {
	t.Helper()
	dir := t.TempDir()
	config.Set(config.AppConfig{
		JWTSecret:          "test-secret",
		GinMode:            "test",
		GinPath:            filepath.Join(dir, "gin.log"),
		UploadDir:          filepath.Join(dir, "uploads"),
		UploadMaxSizeMB:    1,
		RateLimitPerMinute: 6000,
		TimeZone:           "UTC",
	})
	cfg := config.Get()

	kv := store.NewMemoryStore()
	users := services.NewUserService(kv, time.UTC)
	engine := streak.NewEngine(kv, streak.WithZone(users.Location))
	ps := posts.NewStore(kv)
	bus := events.New(nil)
	board := services.NewLeaderboardService(users, ps, engine, utils.NewCache(nil))
	bus.Subscribe(board.OnPostedToday)

	r := SetupRouter(cfg, Dependencies{
		Engine:      engine,
		Users:       users,
		CheckIns:    services.NewCheckInService(engine, ps, bus),
		Feed:        services.NewFeedService(engine, ps, users.Location),
		Leaderboard: board,
		Badges:      services.NewBadgeService(users, ps, engine),
		Routines:    services.NewRoutineService(kv),
		Coach:       services.NewCoachService(coach.NewClient(coach.Options{BaseURL: llmURL}), users, ps),
		Stats:       services.NewStatsService(users, ps),
		Blacklist:   utils.NewTokenBlacklist(kv),
	})
	return &testServer{t: t, router: r}
}

func (s *testServer) do(method, path, token string, body any) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (s *testServer) onboard(username string) (token, userID string) {
	s.t.Helper()
	status, env := s.do(http.MethodPost, "/api/v1/auth/onboard", "", gin.H{
		"name": "Test " + username, "username": username, "weeklyGoal": 3, "password": "correct-horse",
	})
	require.Equal(s.t, http.StatusCreated, status, env.Message)
	var out struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &out))
	return out.Token, out.User.ID
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestCheckInUnlocksFeed(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")
	alice, _ := s.onboard("alice")
	bob, _ := s.onboard("bob")

	status, env := s.do(http.MethodPost, "/api/v1/checkins", alice, gin.H{
		"imageUri": "/uploads/a.jpg", "workoutType": "Legs", "duration": 50, "caption": "leg day",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	res := decode[services.CheckInResult](t, env.Data)
	assert.Equal(t, 1, res.Streak)

	status, env = s.do(http.MethodGet, "/api/v1/feed", bob, nil)
	require.Equal(t, http.StatusOK, status)
	feed := decode[services.FeedView](t, env.Data)
	assert.True(t, feed.Locked)
	assert.Empty(t, feed.Posts)

	status, env = s.do(http.MethodPost, "/api/v1/posts/"+res.Post.ID+"/like", bob, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, 40310, env.Code)

	status, env = s.do(http.MethodPost, "/api/v1/checkins", bob, gin.H{
		"imageUri": "/uploads/b.jpg", "workoutType": "Other", "customType": "Rowing", "duration": 30,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)

	status, env = s.do(http.MethodGet, "/api/v1/feed", bob, nil)
	require.Equal(t, http.StatusOK, status)
	feed = decode[services.FeedView](t, env.Data)
	assert.False(t, feed.Locked)
	assert.Len(t, feed.Posts, 2)
	require.NotNil(t, feed.TodayPost)
	assert.Equal(t, "Rowing", feed.TodayPost.Meta.WorkoutType)

	status, _ = s.do(http.MethodPost, "/api/v1/posts/"+res.Post.ID+"/like", bob, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = s.do(http.MethodPost, "/api/v1/posts/"+res.Post.ID+"/comments", bob, gin.H{"text": "strong"})
	assert.Equal(t, http.StatusCreated, status)
	status, env = s.do(http.MethodPost, "/api/v1/posts/missing/like", bob, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 40420, env.Code)

	status, env = s.do(http.MethodGet, "/api/v1/streak", bob, nil)
	require.Equal(t, http.StatusOK, status)
	st := decode[streak.Status](t, env.Data)
	assert.Equal(t, streak.PostedToday, st.State)
	assert.Equal(t, 1, st.Streak)

	status, env = s.do(http.MethodGet, "/api/v1/leaderboard?period=weekly", bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"myRank"`)
}

func TestInvalidCheckInRejected(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")
	token, _ := s.onboard("alice")

	status, env := s.do(http.MethodPost, "/api/v1/checkins", token, gin.H{"workoutType": "Legs", "duration": 20})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 40001, env.Code)
	assert.Equal(t, "photo required", env.Message)

	status, env = s.do(http.MethodGet, "/api/v1/streak", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, streak.NoHistory, decode[streak.Status](t, env.Data).State)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")
	token, userID := s.onboard("alice")

	status, env := s.do(http.MethodPost, "/api/v1/auth/onboard", "", gin.H{
		"name": "Again", "username": "alice", "weeklyGoal": 3, "password": "correct-horse",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, 40910, env.Code)

	status, _ = s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "alice", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "alice", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, string(env.Data), "passwordHash")

	status, env = s.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), userID)

	status, env = s.do(http.MethodPatch, "/api/v1/auth/profile", token, gin.H{"weeklyGoal": 5, "timeZone": "Asia/Tokyo"})
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Contains(t, string(env.Data), `"weeklyGoal":5`)

	status, _ = s.do(http.MethodGet, "/api/v1/feed", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, status)
	status, env = s.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 40104, env.Code)
}

func TestCoachRequiresAPIKey(t *testing.T) {
	llm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(gin.H{"choices": []gin.H{{"message": gin.H{
			"content": `{"title":"Full Body","duration":30,"exercises":[{"name":"Burpee","sets":3,"reps":12}]}`,
		}}}})
	}))
	defer llm.Close()

	s := newTestServer(t, llm.URL)
	token, _ := s.onboard("alice")
	prefs := gin.H{"goal": "fitness", "experience": "beginner", "frequency": "3", "duration": 30}

	status, env := s.do(http.MethodPost, "/api/v1/coach/routines", token, prefs)
	assert.Equal(t, http.StatusPreconditionRequired, status)
	assert.JSONEq(t, `{"reason":"setup_required"}`, string(env.Data))

	status, env = s.do(http.MethodPut, "/api/v1/settings/apikey", token, gin.H{"apiKey": "not-a-key"})
	assert.Equal(t, http.StatusBadRequest, status, env.Message)
	status, _ = s.do(http.MethodPut, "/api/v1/settings/apikey", token, gin.H{"apiKey": "sk-test-key"})
	require.Equal(t, http.StatusOK, status)

	status, env = s.do(http.MethodPost, "/api/v1/coach/routines?save=true", token, prefs)
	require.Equal(t, http.StatusCreated, status, env.Message)
	assert.Contains(t, string(env.Data), `"source":"ai"`)

	status, env = s.do(http.MethodGet, "/api/v1/routines", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "Burpee")
}

func TestUploadPhoto(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")
	token, _ := s.onboard("alice")

	upload := func(name string, content []byte) (int, envelope) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, err := mw.CreateFormFile("photo", name)
		require.NoError(t, err)
		_, _ = fw.Write(content)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		var env envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		return w.Code, env
	}

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	status, env := upload("lift.png", img.Bytes())
	require.Equal(t, http.StatusCreated, status, env.Message)
	url := decode[map[string]string](t, env.Data)["url"]
	assert.Regexp(t, `^/uploads/\d{4}/\d{2}/\d{2}/[0-9a-f-]+\.png$`, url)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	status, env = upload("notes.txt", []byte("just some text"))
	assert.Equal(t, http.StatusUnsupportedMediaType, status)
	assert.Equal(t, 41501, env.Code)
}
