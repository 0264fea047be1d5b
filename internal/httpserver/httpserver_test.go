package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/tg_landing/internal/cache"
	"github.com/Skotchmaster/tg_landing/internal/conversions"
	"github.com/Skotchmaster/tg_landing/internal/metrics"
	"github.com/Skotchmaster/tg_landing/internal/repo"
	"github.com/Skotchmaster/tg_landing/internal/service"
	"github.com/Skotchmaster/tg_landing/internal/storage"
	"github.com/Skotchmaster/tg_landing/internal/testutil"
	middleware "github.com/Skotchmaster/tg_landing/pkg/middleware/auth"
	"github.com/Skotchmaster/tg_landing/pkg/middleware/ratelimit"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type graphCall struct {
	Path  string
	Auth  string
	Event map[string]any
}

type fakeGraph struct {
	mu     sync.Mutex
	calls  []graphCall
	status int
	body   string
}

func (g *fakeGraph) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Data []map[string]any `json:"data"`
	}
	_ = json.NewDecoder(r.Body).Decode(&payload)

	g.mu.Lock()
	call := graphCall{Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
	if len(payload.Data) > 0 {
		call.Event = payload.Data[0]
	}
	g.calls = append(g.calls, call)
	status, body := g.status, g.body
	g.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
		body = `{"events_received":1}`
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (g *fakeGraph) Calls() []graphCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]graphCall(nil), g.calls...)
}

type testEnv struct {
	e         *echo.Echo
	graph     *fakeGraph
	uploadDir string
}

func newEnv(t *testing.T, limiter *ratelimit.Store) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	r := &repo.GormRepo{DB: db}
	secret := []byte("test-secret")

	graph := &fakeGraph{}
	graphSrv := httptest.NewServer(graph)
	t.Cleanup(graphSrv.Close)

	uploadDir := t.TempDir()
	local, err := storage.NewLocalProvider(uploadDir)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	authSvc := &service.AuthService{Repo: r, Secret: secret}
	_, err = authSvc.EnsureAdmin(context.Background(), "admin", "admin-pass")
	require.NoError(t, err)

	channelCache := cache.NewLRU(100, time.Minute)
	t.Cleanup(func() { _ = channelCache.Close() })

	e := echo.New()
	e.Use(m.Middleware())
	Register(e, &Deps{
		Auth:  &AuthHTTP{Svc: authSvc},
		Pixel: &PixelHTTP{Svc: &service.PixelService{Repo: r}},
		Channels: &ChannelHTTP{
			Svc: &service.ChannelService{
				Repo:    r,
				Logos:   storage.NewLogoStore(local, "/uploads"),
				Cache:   channelCache,
				Metrics: m,
			},
			MaxLogoBytes: 1024,
		},
		Tracking: &TrackingHTTP{Svc: &service.TrackingService{
			Repo:    r,
			Sender:  conversions.NewClient(graphSrv.URL, "", time.Second),
			Metrics: m,
		}},
		SessionSecret: secret,
		TrackLimiter:  limiter,
		Gatherer:      reg,
		UploadDir:     uploadDir,
	})

	return &testEnv{e: e, graph: graph, uploadDir: uploadDir}
}

func (env *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) doJSON(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return env.do(t, method, path, bytes.NewReader(raw), echo.MIMEApplicationJSON, cookies...)
}

func (env *testEnv) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	rec := env.doJSON(t, http.MethodPost, "/api/login", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.DefaultCookieName {
			assert.True(t, c.HttpOnly)
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func (env *testEnv) register(t *testing.T, admin *http.Cookie, username, password string) uint {
	t.Helper()
	rec := env.doJSON(t, http.MethodPost, "/api/register", map[string]string{"username": username, "password": password}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var u struct {
		ID uint `json:"id"`
	}
	decode(t, rec, &u)
	return u.ID
}

func multipartBody(t *testing.T, fields map[string]string, logoName string, logo []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if logo != nil {
		fw, err := w.CreateFormFile("logo", logoName)
		require.NoError(t, err)
		_, err = fw.Write(logo)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func (env *testEnv) createChannel(t *testing.T, owner *http.Cookie, fields map[string]string) map[string]any {
	t.Helper()
	body, ct := multipartBody(t, fields, "alpha.png", pngBytes)
	rec := env.do(t, http.MethodPost, "/api/channels", body, ct, owner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var ch map[string]any
	decode(t, rec, &ch)
	return ch
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func channelPath(ch map[string]any, suffix string) string {
	return "/api/channels/" + jsonID(ch) + suffix
}

func jsonID(ch map[string]any) string {
	raw, _ := json.Marshal(ch["id"])
	return string(raw)
}

func alphaFields() map[string]string {
	return map[string]string{"name": "Alpha", "subscribers": "100", "inviteLink": "https://t.me/x"}
}

func TestChannelLifecycle(t *testing.T) {
	env := newEnv(t, nil)
	admin := env.login(t, "admin", "admin-pass")

	fields := alphaFields()
	fields["description"] = "daily news"
	fields["customPixelId"] = "px-alpha"
	ch := env.createChannel(t, admin, fields)
	uuid, _ := ch["uuid"].(string)
	require.NotEmpty(t, uuid)
	assert.Equal(t, "Alpha", ch["name"])
	assert.EqualValues(t, 100, ch["subscribers"])

	logo, _ := ch["logo"].(string)
	require.True(t, strings.HasPrefix(logo, "/uploads/logos/"), logo)
	_, err := os.Stat(filepath.Join(env.uploadDir, strings.TrimPrefix(logo, "/uploads/")))
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, logo, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/channels", nil, "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	decode(t, rec, &list)
	require.Len(t, list, 1)
	for _, key := range []string{"uuid", "name", "subscribers", "inviteLink", "description", "customPixelId", "logo"} {
		assert.Equal(t, ch[key], list[0][key], key)
	}

	rec = env.do(t, http.MethodGet, "/api/channels/"+uuid, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var public map[string]any
	decode(t, rec, &public)
	assert.Equal(t, uuid, public["uuid"])
	assert.Equal(t, "Alpha", public["name"])
	assert.EqualValues(t, 100, public["subscribers"])
	assert.Equal(t, "https://t.me/x", public["inviteLink"])
	assert.Equal(t, "daily news", public["description"])
	assert.Equal(t, "px-alpha", public["customPixelId"])
	assert.Equal(t, logo, public["logo"])
	assert.NotContains(t, public, "customAccessToken")
	assert.NotContains(t, public, "userId")

	rec = env.do(t, http.MethodDelete, channelPath(ch, ""), nil, "", admin)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/channels/"+uuid, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, channelPath(ch, ""), nil, "", admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/channels", nil, "", admin)
	decode(t, rec, &list)
	assert.Empty(t, list)
}

func TestCreateChannel_Validation(t *testing.T) {
	env := newEnv(t, nil)
	admin := env.login(t, "admin", "admin-pass")

	fieldsOf := func(rec *httptest.ResponseRecorder) map[string]string {
		var out struct {
			Fields map[string]string `json:"fields"`
		}
		decode(t, rec, &out)
		return out.Fields
	}

	body, ct := multipartBody(t, alphaFields(), "", nil)
	rec := env.do(t, http.MethodPost, "/api/channels", body, ct, admin)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, fieldsOf(rec), "logo")

	body, ct = multipartBody(t, alphaFields(), "notes.txt", []byte("plain text, not an image"))
	rec = env.do(t, http.MethodPost, "/api/channels", body, ct, admin)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, fieldsOf(rec), "logo")

	big := append(append([]byte{}, pngBytes...), make([]byte, 2048)...)
	body, ct = multipartBody(t, alphaFields(), "big.png", big)
	rec = env.do(t, http.MethodPost, "/api/channels", body, ct, admin)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, fieldsOf(rec), "logo")

	bad := alphaFields()
	bad["inviteLink"] = "not a link"
	bad["name"] = ""
	body, ct = multipartBody(t, bad, "alpha.png", pngBytes)
	rec = env.do(t, http.MethodPost, "/api/channels", body, ct, admin)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := fieldsOf(rec)
	assert.Contains(t, fields, "inviteLink")
	assert.Contains(t, fields, "name")

	bad = alphaFields()
	bad["subscribers"] = "many"
	body, ct = multipartBody(t, bad, "alpha.png", pngBytes)
	rec = env.do(t, http.MethodPost, "/api/channels", body, ct, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, ct = multipartBody(t, alphaFields(), "alpha.png", pngBytes)
	rec = env.do(t, http.MethodPost, "/api/channels", body, ct)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPatchChannel(t *testing.T) {
	env := newEnv(t, nil)
	admin := env.login(t, "admin", "admin-pass")

	fields := alphaFields()
	fields["description"] = "daily news"
	fields["customPixelId"] = "px-1"
	ch := env.createChannel(t, admin, fields)
	uuid := ch["uuid"].(string)
	oldLogo := ch["logo"].(string)

	// Warm the public cache so the patch has something to invalidate.
	rec := env.do(t, http.MethodGet, "/api/channels/"+uuid, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body, ct := multipartBody(t, map[string]string{"name": "Beta", "description": ""}, "beta.png", pngBytes)
	rec = env.do(t, http.MethodPatch, channelPath(ch, ""), body, ct, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var patched map[string]any
	decode(t, rec, &patched)
	assert.Equal(t, "Beta", patched["name"])
	assert.Nil(t, patched["description"])
	assert.Equal(t, "px-1", patched["customPixelId"], "absent fields are untouched")
	assert.EqualValues(t, 100, patched["subscribers"])
	assert.Equal(t, uuid, patched["uuid"])
	assert.NotEqual(t, oldLogo, patched["logo"])

	_, err := os.Stat(filepath.Join(env.uploadDir, strings.TrimPrefix(oldLogo, "/uploads/")))
	assert.True(t, os.IsNotExist(err), "old logo is removed")

	rec = env.do(t, http.MethodGet, "/api/channels/"+uuid, nil, "")
	var public map[string]any
	decode(t, rec, &public)
	assert.Equal(t, "Beta", public["name"])

	body, ct = multipartBody(t, map[string]string{"subscribers": "-1"}, "", nil)
	rec = env.do(t, http.MethodPatch, channelPath(ch, ""), body, ct, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.register(t, admin, "bob", "bob-pass")
	bob := env.login(t, "bob", "bob-pass")

	body, ct = multipartBody(t, map[string]string{"name": "Hijacked"}, "", nil)
	rec = env.do(t, http.MethodPatch, channelPath(ch, ""), body, ct, bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, channelPath(ch, ""), nil, "", bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/channels/abc", nil, "", admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchChannels(t *testing.T) {
	env := newEnv(t, nil)
	admin := env.login(t, "admin", "admin-pass")

	env.createChannel(t, admin, alphaFields())
	other := alphaFields()
	other["name"] = "Crypto Daily"
	other["description"] = "100% signals"
	env.createChannel(t, admin, other)

	var found []map[string]any
	rec := env.do(t, http.MethodGet, "/api/channels/search?q=alp", nil, "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &found)
	require.Len(t, found, 1)
	assert.Equal(t, "Alpha", found[0]["name"])

	rec = env.do(t, http.MethodGet, "/api/channels/search?q=100%25", nil, "", admin)
	decode(t, rec, &found)
	require.Len(t, found, 1)
	assert.Equal(t, "Crypto Daily", found[0]["name"])

	rec = env.do(t, http.MethodGet, "/api/channels/search?q=crypto&page=2&size=1", nil, "", admin)
	decode(t, rec, &found)
	assert.Empty(t, found)

	rec = env.do(t, http.MethodGet, "/api/channels/search?q=alpha", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTrackSubscribe_CustomCredentialsWin(t *testing.T) {
	env := newEnv(t, nil)
	admin := env.login(t, "admin", "admin-pass")

	rec := env.doJSON(t, http.MethodPost, "/api/pixel-settings", map[string]string{"pixelId": "default-px", "accessToken": "default-token"}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	fields := alphaFields()
	fields["customPixelId"] = "custom-px"
	fields["customAccessToken"] = "custom-token"
	custom := env.createChannel(t, admin, fields)

	half := alphaFields()
	half["customPixelId"] = "lonely-px"
	fallback := env.createChannel(t, admin, half)

	req := httptest.NewRequest(http.MethodPost, "/api/channels/"+custom["uuid"].(string)+"/track-subscribe", nil)
	req.Header.Set("User-Agent", "landing-test")
	req.Header.Set("Referer", "https://landing.example/c")
	req.AddCookie(&http.Cookie{Name: "_fbp", Value: "fb.1.123.456"})
	trackRec := httptest.NewRecorder()
	env.e.ServeHTTP(trackRec, req)
	require.Equal(t, http.StatusOK, trackRec.Code, trackRec.Body.String())
	assert.JSONEq(t, `{"success":true}`, trackRec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/channels/"+fallback["uuid"].(string)+"/track-subscribe", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	calls := env.graph.Calls()
	require.Len(t, calls, 2)

	assert.Equal(t, "/v18.0/custom-px/events", calls[0].Path)
	assert.Equal(t, "Bearer custom-token", calls[0].Auth)
	ev := calls[0].Event
	assert.Equal(t, "Contact", ev["event_name"])
	assert.Equal(t, "website", ev["action_source"])
	assert.Equal(t, "https://landing.example/c", ev["event_source_url"])
	userData, _ := ev["user_data"].(map[string]any)
	assert.Equal(t, "landing-test", userData["client_user_agent"])
	assert.Equal(t, "fb.1.123.456", userData["fbp"])
	assert.NotContains(t, userData, "fbc")
	customData, _ := ev["custom_data"].(map[string]any)
	assert.Equal(t, "Alpha", customData["content_name"])
	assert.Equal(t, []any{custom["uuid"]}, customData["content_ids"])

	assert.Equal(t, "/v18.0/default-px/events", calls[1].Path)
	assert.Equal(t, "Bearer default-token", calls[1].Auth)
}

func TestTrackSubscribe_Failures(t *testing.T) {
	env := newEnv(t, nil)
	admin := env.login(t, "admin", "admin-pass")
	ch := env.createChannel(t, admin, alphaFields())
	trackPath := "/api/channels/" + ch["uuid"].(string) + "/track-subscribe"

	rec := env.do(t, http.MethodPost, trackPath, nil, "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Pixel settings not configured"}`, rec.Body.String())
	assert.Empty(t, env.graph.Calls(), "no upstream call without credentials")

	rec = env.doJSON(t, http.MethodPost, "/api/pixel-settings", map[string]string{"pixelId": "px", "accessToken": "bad"}, admin)
	require.Equal(t, http.StatusOK, rec.Code)

	env.graph.mu.Lock()
	env.graph.status = http.StatusBadRequest
	env.graph.body = `{"error":{"message":"Invalid OAuth access token"}}`
	env.graph.mu.Unlock()

	rec = env.do(t, http.MethodPost, trackPath, nil, "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var out map[string]string
	decode(t, rec, &out)
	assert.Equal(t, "Failed to track event", out["error"])
	assert.Contains(t, out["details"], "Invalid OAuth access token")
	assert.Len(t, env.graph.Calls(), 1, "no retries")

	rec = env.do(t, http.MethodPost, "/api/channels/00000000-0000-0000-0000-000000000000/track-subscribe", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTrackSubscribe_RateLimited(t *testing.T) {
	env := newEnv(t, ratelimit.NewStore(0.001, 2))
	admin := env.login(t, "admin", "admin-pass")
	ch := env.createChannel(t, admin, alphaFields())
	trackPath := "/api/channels/" + ch["uuid"].(string) + "/track-subscribe"

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodPost, trackPath, nil, "")
		assert.NotEqual(t, http.StatusTooManyRequests, rec.Code)
	}
	rec := env.do(t, http.MethodPost, trackPath, nil, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestAuthFlow(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/user", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/channels", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/pixel-settings", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.doJSON(t, http.MethodPost, "/api/login", map[string]string{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = env.doJSON(t, http.MethodPost, "/api/login", map[string]string{"username": "ghost", "password": "whatever"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	admin := env.login(t, "admin", "admin-pass")

	rec = env.do(t, http.MethodGet, "/api/user", nil, "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var me map[string]any
	decode(t, rec, &me)
	assert.Equal(t, "admin", me["username"])
	assert.Equal(t, "admin", me["role"])
	assert.NotContains(t, me, "passwordHash")

	rec = env.do(t, http.MethodGet, "/api/pixel-settings", nil, "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))

	rec = env.doJSON(t, http.MethodPost, "/api/pixel-settings", map[string]string{"pixelId": "px"}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	bobID := env.register(t, admin, "bob", "bob-pass")

	rec = env.doJSON(t, http.MethodPost, "/api/register", map[string]string{"username": "bob", "password": "another"}, admin)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "username")

	rec = env.doJSON(t, http.MethodPost, "/api/register", map[string]string{"username": "al", "password": "123"}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	bob := env.login(t, "bob", "bob-pass")

	rec = env.do(t, http.MethodGet, "/api/users", nil, "", bob)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.doJSON(t, http.MethodPost, "/api/register", map[string]string{"username": "eve", "password": "eve-pass"}, bob)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.doJSON(t, http.MethodPost, "/api/users/1/role", map[string]string{"role": "employee"}, bob)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/users", nil, "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []map[string]any
	decode(t, rec, &users)
	assert.Len(t, users, 2)

	rec = env.doJSON(t, http.MethodPost, "/api/users/999/role", map[string]string{"role": "admin"}, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.doJSON(t, http.MethodPost, "/api/users/1/role", map[string]string{"role": "owner"}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.doJSON(t, http.MethodPost, "/api/users/"+jsonID(map[string]any{"id": bobID})+"/role", map[string]string{"role": "admin"}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/users", nil, "", bob)
	assert.Equal(t, http.StatusOK, rec.Code, "role is read on every request")

	rec = env.do(t, http.MethodPost, "/api/logout", nil, "", bob)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/user", nil, "", bob)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/logout", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/logout", nil, "", &http.Cookie{Name: middleware.DefaultCookieName, Value: "garbage"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tg_landing_http_requests_total")
}

func TestReadyReportsFailure(t *testing.T) {
	e := echo.New()
	e.GET("/health/ready", readyHandler(func(context.Context) error { return assert.AnError }))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
