package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"ibc-intranet/internal/adapters/http/middleware"
	"ibc-intranet/internal/adapters/session"
	"ibc-intranet/internal/config"
	"ibc-intranet/internal/core/services"
	"ibc-intranet/internal/pkg/clock"
	"ibc-intranet/internal/pkg/testdb"
)

const (
	cookieName  = "intranet_session"
	adminSecret = "admin-secret"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	cfg := &config.Config{
		AppMode: "dev",
		Session: config.SessionConfig{
			CookieName:  cookieName,
			Store:       "memory",
			IdleTimeout: 30 * time.Minute,
			SameSite:    "Lax",
		},
		Security: config.SecurityConfig{
			BcryptCost:       bcrypt.MinCost,
			LockoutThreshold: 5,
			LockoutDuration:  15 * time.Minute,
		},
		Invitation: config.InvitationConfig{
			Secret:  "test-secret",
			TTL:     7 * 24 * time.Hour,
			BaseURL: "https://intranet.example.org/register",
		},
		Inventory: config.InventoryConfig{
			DefaultLoanDays:  14,
			DefaultMinStock:  1,
			ReminderCooldown: 72 * time.Hour,
		},
	}

	db := testdb.New(t)
	clk := clock.NewMock(time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC))
	store := session.NewMemoryStore(zap.NewNop(), clk, 24*time.Hour)
	svc := services.NewContainer(db, store, nil, clk, nil, zap.NewNop(), cfg)

	_, _, err := svc.Users.EnsureAdmin(context.Background(), "admin", "admin@example.org", adminSecret)
	require.NoError(t, err)

	app := fiber.New(fiber.Config{ErrorHandler: middleware.CustomErrorHandler})
	Setup(app, db, store, svc, nil, zap.NewNop(), cfg)
	return app
}

// client keeps the session cookie and csrf token between requests
type client struct {
	t      *testing.T
	app    *fiber.App
	cookie string
	csrf   string
}

func newClient(t *testing.T, app *fiber.App) *client {
	return &client{t: t, app: app}
}

func (c *client) do(method, path string, body interface{}) (int, envelope) {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if c.cookie != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: c.cookie})
	}
	if c.csrf != "" {
		req.Header.Set("X-CSRF-Token", c.csrf)
	}

	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	for _, ck := range resp.Cookies() {
		if ck.Name == cookieName {
			c.cookie = ck.Value
		}
	}

	var env envelope
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (c *client) refreshCSRF() {
	c.t.Helper()
	code, env := c.do(fiber.MethodGet, "/api/v1/auth/csrf", nil)
	require.Equal(c.t, fiber.StatusOK, code)

	var data struct {
		Token string `json:"csrf_token"`
	}
	require.NoError(c.t, json.Unmarshal(env.Data, &data))
	require.Len(c.t, data.Token, 64)
	c.csrf = data.Token
}

func (c *client) login(identifier, secret string) {
	c.t.Helper()
	c.refreshCSRF()
	code, env := c.do(fiber.MethodPost, "/api/v1/auth/login", map[string]string{
		"identifier": identifier,
		"password":   secret,
	})
	require.Equal(c.t, fiber.StatusOK, code, env.Error)
	// login starts a fresh session, so the old token is gone
	c.refreshCSRF()
}

func decodeID(t *testing.T, env envelope) uint {
	t.Helper()
	var v struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &v))
	require.NotZero(t, v.ID)
	return v.ID
}

func TestLoginLogoutFlow(t *testing.T) {
	app := newTestApp(t)
	c := newClient(t, app)
	creds := map[string]string{"identifier": "admin", "password": adminSecret}

	code, env := c.do(fiber.MethodPost, "/api/v1/auth/login", creds)
	assert.Equal(t, fiber.StatusForbidden, code)
	assert.Equal(t, "CSRF_MISMATCH", env.Code)

	c.refreshCSRF()
	anonymous := c.cookie
	require.NotEmpty(t, anonymous)

	code, env = c.do(fiber.MethodPost, "/api/v1/auth/login", map[string]string{"identifier": "admin", "password": "wrong-secret"})
	assert.Equal(t, fiber.StatusUnauthorized, code)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Code)

	code, _ = c.do(fiber.MethodPost, "/api/v1/auth/login", creds)
	require.Equal(t, fiber.StatusOK, code)
	assert.NotEqual(t, anonymous, c.cookie, "session id must change on login")

	code, env = c.do(fiber.MethodGet, "/api/v1/auth/me", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Contains(t, string(env.Data), `"username":"admin"`)

	// the pre-login token no longer matches
	code, _ = c.do(fiber.MethodPost, "/api/v1/auth/logout", nil)
	assert.Equal(t, fiber.StatusForbidden, code)

	c.refreshCSRF()
	code, _ = c.do(fiber.MethodPost, "/api/v1/auth/logout", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Empty(t, c.cookie)

	code, env = c.do(fiber.MethodGet, "/api/v1/auth/me", nil)
	assert.Equal(t, fiber.StatusUnauthorized, code)
	assert.Equal(t, "SESSION_EXPIRED", env.Code)
}

func TestInvitationAndInventoryFlow(t *testing.T) {
	app := newTestApp(t)

	admin := newClient(t, app)
	admin.login("admin", adminSecret)

	code, env := admin.do(fiber.MethodPost, "/api/v1/invitations", map[string]string{
		"email": "newbie@example.org",
		"role":  "member",
	})
	require.Equal(t, fiber.StatusCreated, code, env.Error)

	var issued struct {
		Link string `json:"link"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &issued))
	link, err := url.Parse(issued.Link)
	require.NoError(t, err)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)

	member := newClient(t, app)
	member.refreshCSRF()
	registration := map[string]string{"token": token, "username": "newbie", "password": "newbie-secret"}
	code, env = member.do(fiber.MethodPost, "/api/v1/invitations/register", registration)
	require.Equal(t, fiber.StatusCreated, code, env.Error)
	assert.Contains(t, string(env.Data), `"role":"member"`)

	code, env = member.do(fiber.MethodPost, "/api/v1/invitations/register", registration)
	assert.Equal(t, fiber.StatusConflict, code)
	assert.Equal(t, "INVITATION_USED", env.Code)

	member.login("newbie", "newbie-secret")

	code, _ = member.do(fiber.MethodGet, "/api/v1/users", nil)
	assert.Equal(t, fiber.StatusForbidden, code)
	code, _ = member.do(fiber.MethodGet, "/api/v1/dashboard", nil)
	assert.Equal(t, fiber.StatusForbidden, code)

	item := map[string]interface{}{"name": "Projector", "initial_stock": 3, "unit_value": "390.00"}
	code, _ = member.do(fiber.MethodPost, "/api/v1/inventory/items", item)
	assert.Equal(t, fiber.StatusForbidden, code)

	code, env = admin.do(fiber.MethodPost, "/api/v1/inventory/items", item)
	require.Equal(t, fiber.StatusCreated, code, env.Error)
	itemID := decodeID(t, env)

	code, env = member.do(fiber.MethodPost, "/api/v1/inventory/checkouts", map[string]interface{}{"item_id": itemID, "quantity": 5})
	assert.Equal(t, fiber.StatusConflict, code)
	assert.Equal(t, "INSUFFICIENT_STOCK", env.Code)

	code, env = member.do(fiber.MethodPost, "/api/v1/inventory/checkouts", map[string]interface{}{"item_id": itemID, "quantity": 2})
	require.Equal(t, fiber.StatusCreated, code, env.Error)
	checkoutID := decodeID(t, env)

	assertStock(t, admin, itemID, 1)

	code, env = member.do(fiber.MethodPost, fmt.Sprintf("/api/v1/inventory/checkouts/%d/checkin", checkoutID), map[string]int{"returned": 2, "defective": 1})
	require.Equal(t, fiber.StatusOK, code, env.Error)

	code, env = member.do(fiber.MethodPost, fmt.Sprintf("/api/v1/inventory/checkouts/%d/checkin", checkoutID), map[string]int{"returned": 2})
	assert.Equal(t, fiber.StatusConflict, code)
	assert.Equal(t, "CHECKOUT_ALREADY_CLOSED", env.Code)

	assertStock(t, admin, itemID, 2)

	code, env = admin.do(fiber.MethodGet, fmt.Sprintf("/api/v1/inventory/items/%d/history", itemID), nil)
	require.Equal(t, fiber.StatusOK, code)
	var history []struct {
		ChangeAmount int `json:"change_amount"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &history))
	sum := 0
	for _, h := range history {
		sum += h.ChangeAmount
	}
	assert.Len(t, history, 4)
	assert.Equal(t, 2, sum)

	code, _ = admin.do(fiber.MethodGet, "/api/v1/dashboard", nil)
	assert.Equal(t, fiber.StatusOK, code)
}

func TestCheckinRequiresLogin(t *testing.T) {
	app := newTestApp(t)
	admin := newClient(t, app)
	admin.login("admin", adminSecret)

	code, env := admin.do(fiber.MethodPost, "/api/v1/inventory/items", map[string]interface{}{"name": "Ladder", "initial_stock": 1})
	require.Equal(t, fiber.StatusCreated, code, env.Error)
	itemID := decodeID(t, env)

	code, env = admin.do(fiber.MethodPost, "/api/v1/inventory/checkouts", map[string]interface{}{"item_id": itemID, "quantity": 1})
	require.Equal(t, fiber.StatusCreated, code, env.Error)
	checkoutID := decodeID(t, env)

	anon := newClient(t, app)
	anon.refreshCSRF()
	code, env = anon.do(fiber.MethodPost, fmt.Sprintf("/api/v1/inventory/checkouts/%d/checkin", checkoutID), map[string]int{"returned": 1})
	assert.Equal(t, fiber.StatusUnauthorized, code)
	assert.Equal(t, "SESSION_EXPIRED", env.Code)
}

func assertStock(t *testing.T, c *client, itemID uint, want int) {
	t.Helper()
	code, env := c.do(fiber.MethodGet, fmt.Sprintf("/api/v1/inventory/items/%d", itemID), nil)
	require.Equal(t, fiber.StatusOK, code)
	var item struct {
		CurrentStock int `json:"current_stock"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &item))
	assert.Equal(t, want, item.CurrentStock)
}
