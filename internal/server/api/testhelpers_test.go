package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/intelvis/intelvis/internal/server/config"
	"github.com/intelvis/intelvis/internal/server/metrics"
	"github.com/intelvis/intelvis/internal/server/services"
	"github.com/intelvis/intelvis/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testAPIKey = "test-provisioning-key"

type testEnv struct {
	handler http.Handler
	cfg     *config.Config
	tdb     *testutil.TestDB
	metrics *metrics.Metrics
	now     time.Time
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:          "test-secret-key-for-testing",
		SessionTTL:         7 * 24 * time.Hour,
		BcryptCost:         bcrypt.MinCost,
		ProvisioningAPIKey: testAPIKey,
		PingRequireAPIKey:  true,
		CORSOrigins:        []string{"https://app.example.com"},
		OnlineWindow:       5 * time.Minute,
		MetricsEnabled:     true,
		Cookie: config.CookieConfig{
			Name:     config.DefaultCookieName,
			Domain:   "example.com",
			Path:     "/",
			SameSite: http.SameSiteNoneMode,
			Secure:   true,
			MaxAge:   7 * 24 * time.Hour,
		},
	}
	for _, m := range mutate {
		m(cfg)
	}

	env := &testEnv{
		cfg:     cfg,
		tdb:     testutil.GetTestDB(t),
		metrics: metrics.New(),
		now:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	repos := env.tdb.Repositories()
	email := services.NewEmailService(config.EmailConfig{}, "")
	authService := services.NewAuthService(repos.Users, email, cfg)
	deviceService := services.NewDeviceService(repos.Devices, repos.Users, email, cfg.OnlineWindow).
		WithClock(func() time.Time { return env.now })

	env.handler = NewRouter(Deps{
		Config:        cfg,
		Logger:        zerolog.New(io.Discard),
		AuthService:   authService,
		DeviceService: deviceService,
		Metrics:       env.metrics,
	})
	return env
}

type reqOption func(*http.Request)

func withCookie(c *http.Cookie) reqOption {
	return func(r *http.Request) { r.AddCookie(c) }
}

func withAPIKey(key string) reqOption {
	return func(r *http.Request) { r.Header.Set(APIKeyHeader, key) }
}

func withHeader(name, value string) reqOption {
	return func(r *http.Request) { r.Header.Set(name, value) }
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, opts ...reqOption) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// login registers the user if needed and returns the session cookie.
func (e *testEnv) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()

	creds := map[string]string{"email": email, "password": password}
	e.do(t, http.MethodPost, "/api/auth/register", creds)

	rec := e.do(t, http.MethodPost, "/api/auth/login", creds)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return sessionCookie(t, rec)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == config.DefaultCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", config.DefaultCookieName)
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
