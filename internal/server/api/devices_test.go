package api

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/intelvis/intelvis/internal/server/config"
	"github.com/intelvis/intelvis/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairingScenario(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/provision", map[string]string{"mac": "aa:bb:cc:dd:ee:ff"}, withAPIKey(testAPIKey))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var provisioned models.ProvisionResponse
	decodeBody(t, rec, &provisioned)
	require.NotEmpty(t, provisioned.DeviceID)

	creds := map[string]string{"email": "u@example.com", "password": "password123"}
	rec = env.do(t, http.MethodPost, "/api/auth/register", creds)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/login", creds)
	require.Equal(t, http.StatusOK, rec.Code)
	session := sessionCookie(t, rec)

	rec = env.do(t, http.MethodPost, "/api/devices", map[string]string{"mac": "AA:BB:CC:DD:EE:FF"}, withCookie(session))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var claimed models.DeviceResponse
	decodeBody(t, rec, &claimed)
	assert.Equal(t, provisioned.DeviceID, claimed.ID)
	require.NotNil(t, claimed.NIC)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", claimed.NIC.MAC)

	other := env.login(t, "other@example.com", "password123")
	rec = env.do(t, http.MethodPost, "/api/devices", map[string]string{"mac": "aa:bb:cc:dd:ee:ff"}, withCookie(other))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestProvision_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]string{"mac": "AA:BB:CC:DD:EE:FF"}

	rec := env.do(t, http.MethodPost, "/api/provision", body, withAPIKey(testAPIKey))
	require.Equal(t, http.StatusCreated, rec.Code)
	var first models.ProvisionResponse
	decodeBody(t, rec, &first)

	rec = env.do(t, http.MethodPost, "/api/provision", map[string]string{"mac": "aa-bb-cc-dd-ee-ff"}, withAPIKey(testAPIKey))
	require.Equal(t, http.StatusOK, rec.Code)
	var second models.ProvisionResponse
	decodeBody(t, rec, &second)

	assert.Equal(t, first.DeviceID, second.DeviceID)
	assert.Equal(t, "Device already provisioned", second.Message)
}

func TestProvision_Rejections(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/provision", map[string]string{"mac": "aa:bb:cc:dd:ee:ff"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/provision", map[string]string{"mac": "aa:bb:cc:dd:ee:ff"}, withAPIKey("wrong"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	for _, body := range []interface{}{
		map[string]string{},
		map[string]string{"mac": "   "},
		map[string]string{"mac": "not-a-mac"},
		map[string]interface{}{"mac": 42},
	} {
		rec = env.do(t, http.MethodPost, "/api/provision", body, withAPIKey(testAPIKey))
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	}
}

func TestProvision_UnconfiguredKey(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.ProvisioningAPIKey = ""
		c.PingRequireAPIKey = false
	})

	rec := env.do(t, http.MethodPost, "/api/provision", map[string]string{"mac": "aa:bb:cc:dd:ee:ff"}, withAPIKey(""))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body models.ErrorResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, "server configuration error", body.Message)
}

func TestClaim_Errors(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t, "user@example.com", "password123")

	rec := env.do(t, http.MethodPost, "/api/devices", map[string]string{"mac": "aa:bb:cc:dd:ee:ff"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/devices", map[string]string{"mac": "aa:bb:cc:dd:ee:ff"}, withCookie(session))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/devices", map[string]string{"mac": "zz"}, withCookie(session))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClaim_ConcurrentSessions(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/provision", map[string]string{"mac": "aa:bb:cc:dd:ee:ff"}, withAPIKey(testAPIKey))

	sessions := []*http.Cookie{
		env.login(t, "a@example.com", "password123"),
		env.login(t, "b@example.com", "password123"),
		env.login(t, "c@example.com", "password123"),
	}

	codes := make([]int, len(sessions))
	var wg sync.WaitGroup
	for i, s := range sessions {
		wg.Add(1)
		go func(i int, s *http.Cookie) {
			defer wg.Done()
			codes[i] = env.do(t, http.MethodPost, "/api/devices", map[string]string{"mac": "aa:bb:cc:dd:ee:ff"}, withCookie(s)).Code
		}(i, s)
	}
	wg.Wait()

	created, conflicts := 0, 0
	for _, c := range codes {
		switch c {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		}
	}
	assert.Equal(t, 1, created, "codes: %v", codes)
	assert.Equal(t, len(sessions)-1, conflicts, "codes: %v", codes)
}

func TestRename(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/provision", map[string]string{"mac": "aa:bb:cc:dd:ee:ff"}, withAPIKey(testAPIKey))
	owner := env.login(t, "owner@example.com", "password123")
	intruder := env.login(t, "intruder@example.com", "password123")

	rec := env.do(t, http.MethodPost, "/api/devices", map[string]string{"mac": "aa:bb:cc:dd:ee:ff"}, withCookie(owner))
	require.Equal(t, http.StatusCreated, rec.Code)
	var device models.DeviceResponse
	decodeBody(t, rec, &device)
	path := "/api/devices/" + device.ID

	rec = env.do(t, http.MethodPut, path, map[string]string{"alias": "Hacked"}, withCookie(intruder))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPut, path, map[string]string{"alias": ""}, withCookie(owner))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	long := make([]byte, 51)
	for i := range long {
		long[i] = 'x'
	}
	rec = env.do(t, http.MethodPut, path, map[string]string{"alias": string(long)}, withCookie(owner))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/devices/not-a-uuid", map[string]string{"alias": "x"}, withCookie(owner))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/devices/00000000-0000-0000-0000-000000000001", map[string]string{"alias": "x"}, withCookie(owner))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, path, map[string]string{"alias": "Living room"}, withCookie(owner))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/devices", nil, withCookie(owner))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.DeviceResponse
	decodeBody(t, rec, &list)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Alias)
	assert.Equal(t, "Living room", *list[0].Alias)

	rec = env.do(t, http.MethodGet, "/api/devices", nil, withCookie(intruder))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestPing_Connectivity(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/provision", map[string]string{"mac": "aa:bb:cc:dd:ee:ff"}, withAPIKey(testAPIKey))
	session := env.login(t, "user@example.com", "password123")
	env.do(t, http.MethodPost, "/api/devices", map[string]string{"mac": "aa:bb:cc:dd:ee:ff"}, withCookie(session))

	connectivity := func() (string, string) {
		rec := env.do(t, http.MethodGet, "/api/devices", nil, withCookie(session))
		require.Equal(t, http.StatusOK, rec.Code)
		var list []models.DeviceResponse
		decodeBody(t, rec, &list)
		require.Len(t, list, 1)
		return list[0].Connectivity, list[0].Status
	}

	env.now = env.now.Add(time.Hour)
	conn, status := connectivity()
	assert.Equal(t, models.ConnectivityOffline, conn)
	assert.Equal(t, models.DeviceStatusInactive, status)

	rec := env.do(t, http.MethodPost, "/api/devices/ping", map[string]string{"mac": "AA:BB:CC:DD:EE:FF"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "ping requires the provisioning key")

	rec = env.do(t, http.MethodPost, "/api/devices/ping", map[string]string{"mac": "AA:BB:CC:DD:EE:FF"}, withAPIKey(testAPIKey))
	require.Equal(t, http.StatusOK, rec.Code)
	var ping models.PingResponse
	decodeBody(t, rec, &ping)
	assert.Equal(t, models.DeviceStatusActive, ping.Status)

	env.now = env.now.Add(5 * time.Minute)
	conn, status = connectivity()
	assert.Equal(t, models.ConnectivityOnline, conn)
	assert.Equal(t, models.DeviceStatusActive, status)

	env.now = env.now.Add(time.Second)
	conn, _ = connectivity()
	assert.Equal(t, models.ConnectivityOffline, conn)

	rec = env.do(t, http.MethodPost, "/api/devices/ping", map[string]string{"mac": "00:00:00:00:00:01"}, withAPIKey(testAPIKey))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPing_WithoutKeyWhenDisabled(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.PingRequireAPIKey = false })
	env.do(t, http.MethodPost, "/api/provision", map[string]string{"mac": "aa:bb:cc:dd:ee:ff"}, withAPIKey(testAPIKey))

	rec := env.do(t, http.MethodPost, "/api/devices/ping", map[string]string{"mac": "aa:bb:cc:dd:ee:ff"})
	assert.Equal(t, http.StatusOK, rec.Code)
}
