package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/broadcast/configs"
	"github.com/maheshrc27/broadcast/pkg/utils"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	return config.Config{
		SecretKey:  "test-secret",
		CookieName: "broadcast_session",
		CronSecret: "cron-secret",
	}
}

func newApp(m *AuthMiddleware) *fiber.App {
	app := fiber.New()
	app.Get("/me", m.AuthMiddleware(), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("user_id").(string))
	})
	app.Post("/cron", m.CronSecret(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func errorBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body["error"]
}

func TestAuthMiddleware(t *testing.T) {
	cfg := testConfig()
	app := newApp(NewAuthMiddleware(cfg))

	token, err := utils.GenerateToken(cfg.SecretKey, "7", time.Hour)
	require.NoError(t, err)

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: cfg.CookieName, Value: token})
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("missing", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Unauthorized", errorBody(t, resp))
	})

	t.Run("invalid cookie is cleared", func(t *testing.T) {
		forged, err := utils.GenerateToken("other-secret", "7", time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: cfg.CookieName, Value: forged})
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Invalid or expired token", errorBody(t, resp))
		assert.Contains(t, resp.Header.Get("Set-Cookie"), cfg.CookieName+"=;")
	})

	t.Run("expired bearer", func(t *testing.T) {
		expired, err := utils.GenerateToken(cfg.SecretKey, "7", -time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+expired)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Empty(t, resp.Header.Get("Set-Cookie"))
	})
}

func TestCronSecret(t *testing.T) {
	app := newApp(NewAuthMiddleware(testConfig()))

	cases := map[string]struct {
		header string
		value  string
		want   int
	}{
		"header":       {"X-Cron-Secret", "cron-secret", http.StatusNoContent},
		"bearer":       {"Authorization", "Bearer cron-secret", http.StatusNoContent},
		"wrong secret": {"X-Cron-Secret", "guess", http.StatusUnauthorized},
		"missing":      {"", "", http.StatusUnauthorized},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/cron", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestCronSecretUnsetRejectsEverything(t *testing.T) {
	cfg := testConfig()
	cfg.CronSecret = ""
	app := newApp(NewAuthMiddleware(cfg))

	req := httptest.NewRequest(http.MethodPost, "/cron", nil)
	req.Header.Set("X-Cron-Secret", "")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRateLimitPassesThrough(t *testing.T) {
	ok := func(c *fiber.Ctx) error { return c.SendString("ok") }

	disabled := fiber.New()
	disabled.Get("/", RateLimit(config.RateLimit{Enabled: false}, nil), ok)
	resp, err := disabled.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// an unreachable redis must not block requests
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()

	app := fiber.New()
	app.Get("/", RateLimit(config.RateLimit{Enabled: true, Capacity: 1, RefillInterval: time.Second, TTL: time.Minute, Prefix: "rl"}, rdb), ok)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, resp.Header.Get("X-RateLimit-Limit"))
	}
}
