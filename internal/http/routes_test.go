package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundrise/creator-api/internal/adapters/memsession"
	"github.com/soundrise/creator-api/internal/adapters/scheduler"
	"github.com/soundrise/creator-api/internal/data/memstore"
	domainauth "github.com/soundrise/creator-api/internal/domain/auth"
	"github.com/soundrise/creator-api/internal/domain/model"
	"github.com/soundrise/creator-api/internal/invalidation"
	"github.com/soundrise/creator-api/internal/ratelimit"
	"github.com/soundrise/creator-api/internal/service"
)

// apiFixture wires a full in-memory stack behind the real router.
type apiFixture struct {
	srv      *httptest.Server
	sessions *memsession.Store
	ledger   *service.LedgerService
	token    string
}

func newAPIFixture(t *testing.T, limits RateLimits) *apiFixture {
	t.Helper()

	bus := invalidation.NewBus()
	repos := service.LedgerRepos{
		Profiles:   memstore.NewProfileRepo(nil),
		Activities: memstore.NewActivityRepo(),
	}
	ledger := service.NewLedgerService(service.LedgerServiceOptions{Repos: repos, Bus: bus})

	sched := scheduler.NewTimerScheduler()
	t.Cleanup(sched.Stop)
	jobs := service.NewJobService(service.JobServiceOptions{
		Deps: service.JobDeps{
			Jobs:      memstore.NewJobRepo(),
			Ledger:    ledger,
			Scheduler: sched,
		},
	})

	badges := service.NewBadgeService(service.BadgeServiceOptions{Ledger: ledger})
	boards := service.NewLeaderboardService(service.LeaderboardServiceOptions{
		Repos: service.LeaderboardRepos(repos),
		Bus:   bus,
	})
	referrals := service.NewReferralService(service.ReferralServiceOptions{
		Referrals: memstore.NewReferralRepo(),
		Ledger:    ledger,
	})
	creations := service.NewCreationService(service.CreationServiceOptions{
		Creations: memstore.NewCreationRepo(),
		Ledger:    ledger,
	})

	sessions := memsession.New()
	token, err := sessions.Mint(context.Background(), domainauth.Identity{
		UserID: "user-1",
		Handle: "dj-nova",
		Tier:   domainauth.TierFree,
	}, time.Hour)
	require.NoError(t, err)

	router := NewRouter(RouterServices{
		Jobs:         jobs,
		Ledger:       ledger,
		Badges:       badges,
		Leaderboards: boards,
		Referrals:    referrals,
		Creations:    creations,
		Sessions:     sessions,
		Limiter:      ratelimit.New(ratelimit.Config{}),
		Limits:       limits,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &apiFixture{srv: srv, sessions: sessions, ledger: ledger, token: token}
}

// do issues an authenticated request and decodes the JSON response.
func (f *apiFixture) do(t *testing.T, method, path string, body, out any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, f.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+f.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestRouter_HealthzIsPublic(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, DefaultRateLimits())

	resp, err := http.Get(f.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_APIRequiresSession(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, DefaultRateLimits())

	resp, err := http.Get(f.srv.URL + "/api/profile")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "authentication_required", body["error"])
}

func TestRouter_RejectsUnknownToken(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, DefaultRateLimits())

	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/api/profile", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer bogus")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_SessionCookieAuth(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, DefaultRateLimits())

	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/api/profile", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: f.token})

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_GetProfileProvisionsOnFirstRead(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, DefaultRateLimits())

	var body struct {
		Profile            model.Profile `json:"profile"`
		NextLevelThreshold int64         `json:"next_level_threshold"`
	}
	resp := f.do(t, http.MethodGet, "/api/profile", nil, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "user-1", body.Profile.UserID)
	assert.Zero(t, body.Profile.PointsTotal)
	assert.Equal(t, int64(100), body.NextLevelThreshold)
}

func TestRouter_CreateJobAccepted(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, DefaultRateLimits())

	var job model.Job
	resp := f.do(t, http.MethodPost, "/api/jobs", map[string]any{
		"type":               "enhance",
		"input_duration_sec": 120,
	}, &job)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, model.JobStatusQueued, job.Status)
	assert.Equal(t, "user-1", job.UserID)
	assert.NotEmpty(t, job.ID)

	// The session decides the identity even when the body claims otherwise.
	resp = f.do(t, http.MethodPost, "/api/jobs", map[string]any{
		"user_id":            "someone-else",
		"type":               "enhance",
		"input_duration_sec": 60,
	}, &job)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "user-1", job.UserID)
}

func TestRouter_CreateJobValidation(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, DefaultRateLimits())

	var body map[string]string
	resp := f.do(t, http.MethodPost, "/api/jobs", map[string]any{
		"type":               "summon",
		"input_duration_sec": 60,
	}, &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation", body["error"])
}

func TestRouter_CreateJobRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, DefaultRateLimits())

	var body map[string]string
	resp := f.do(t, http.MethodPost, "/api/jobs", map[string]any{
		"type":       "enhance",
		"durationMs": 5000,
	}, &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_json", body["error"])
}

func TestRouter_GetJobScopedToCaller(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, DefaultRateLimits())

	var job model.Job
	f.do(t, http.MethodPost, "/api/jobs", map[string]any{
		"type":               "transcribe",
		"input_duration_sec": 300,
	}, &job)

	var got model.Job
	resp := f.do(t, http.MethodGet, "/api/jobs/"+job.ID, nil, &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, job.ID, got.ID)

	resp = f.do(t, http.MethodGet, "/api/jobs/no-such-job", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_CancelJob(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, DefaultRateLimits())

	var job model.Job
	f.do(t, http.MethodPost, "/api/jobs", map[string]any{
		"type":               "enhance",
		"input_duration_sec": 60,
	}, &job)

	var canceled model.Job
	resp := f.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/cancel", nil, &canceled)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.JobStatusFailed, canceled.Status)
}

func TestRouter_ListJobsAndStats(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, DefaultRateLimits())

	for i := 0; i < 3; i++ {
		f.do(t, http.MethodPost, "/api/jobs", map[string]any{
			"type":               "enhance",
			"input_duration_sec": 60,
		}, nil)
	}

	var list struct {
		Jobs []model.Job `json:"jobs"`
	}
	resp := f.do(t, http.MethodGet, "/api/jobs?limit=2", nil, &list)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, list.Jobs, 2)

	var stats model.JobStats
	resp = f.do(t, http.MethodGet, "/api/jobs/stats", nil, &stats)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, stats.Total)
}

func TestRouter_BadgesAndProgress(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, DefaultRateLimits())

	var badges struct {
		Badges []model.EarnedBadge `json:"badges"`
	}
	resp := f.do(t, http.MethodGet, "/api/badges", nil, &badges)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, badges.Badges)

	// A caller with no ledger profile yet has nothing in progress either.
	var progress struct {
		Progress []model.BadgeProgress `json:"progress"`
	}
	resp = f.do(t, http.MethodGet, "/api/badges/progress", nil, &progress)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, progress.Progress)

	// The dashboard profile read provisions the ledger row; progress
	// toward the catalog shows up from then on.
	f.do(t, http.MethodGet, "/api/profile", nil, nil)
	resp = f.do(t, http.MethodGet, "/api/badges/progress", nil, &progress)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, progress.Progress)
}

func TestRouter_Leaderboard(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, DefaultRateLimits())

	var board model.Leaderboard
	resp := f.do(t, http.MethodGet, "/api/leaderboards/popularity/alltime", nil, &board)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.LeaderboardPopularity, board.Type)

	resp = f.do(t, http.MethodGet, "/api/leaderboards/fame/alltime", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_ReferralFlow(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, DefaultRateLimits())

	var ref model.Referral
	resp := f.do(t, http.MethodPost, "/api/referrals", map[string]any{
		"referred_id": "friend-1",
	}, &ref)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "user-1", ref.ReferrerID, "referrer comes from the session")
	assert.Equal(t, model.ReferralStatusPending, ref.Status)

	var credited model.Referral
	resp = f.do(t, http.MethodPost, "/api/referrals/"+ref.ID+"/complete", nil, &credited)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.ReferralStatusCredited, credited.Status)

	resp = f.do(t, http.MethodPost, "/api/referrals/"+ref.ID+"/complete", nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var list struct {
		Referrals []model.Referral `json:"referrals"`
	}
	resp = f.do(t, http.MethodGet, "/api/referrals", nil, &list)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, list.Referrals, 1)
}

func TestRouter_CreationFlow(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, DefaultRateLimits())

	var creation model.Creation
	resp := f.do(t, http.MethodPost, "/api/creations", map[string]any{
		"title": "Morning mix",
	}, &creation)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "user-1", creation.UserID)

	var list struct {
		Creations []model.Creation `json:"creations"`
	}
	resp = f.do(t, http.MethodGet, "/api/creations", nil, &list)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, list.Creations, 1)
}

func TestRouter_RateLimitReturns429WithRetryAfter(t *testing.T) {
	t.Parallel()
	limits := DefaultRateLimits()
	limits.JobCreate = ratelimit.Rule{Max: 2, Window: time.Minute}
	f := newAPIFixture(t, limits)

	payload := map[string]any{"type": "enhance", "input_duration_sec": 60}
	for i := 0; i < 2; i++ {
		resp := f.do(t, http.MethodPost, "/api/jobs", payload, nil)
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
	}

	var body map[string]string
	resp := f.do(t, http.MethodPost, "/api/jobs", payload, &body)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate_limited", body["error"])
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	// Other action classes keep their own budget.
	resp = f.do(t, http.MethodGet, "/api/leaderboards/popularity/alltime", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
