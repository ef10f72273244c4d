package wire

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/memstore"
	"event-ticketing/internal/data/repository"
	"event-ticketing/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

type testApp struct {
	t      *testing.T
	repo   *repository.Repository
	router http.Handler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	config := &utils.Config{
		App: utils.AppConfig{
			Name:           "event-ticketing-test",
			BaseURL:        "http://localhost:8080",
			MetricsEnabled: true,
		},
		Session: utils.SessionConfig{ExpiryHours: 1, BcryptCost: 4},
		QR: utils.QRConfig{
			Dir:        t.TempDir(),
			URLPrefix:  "/qr-codes/",
			Size:       128,
			Timeout:    5 * time.Second,
			SigningKey: "wire-test-key",
			Storage:    "local",
		},
		Payment: utils.PaymentConfig{DefaultProvider: "mock", Currency: "RUB"},
		Tickets: utils.TicketConfig{CodeMaxAttempts: 20, MaxPerPurchase: 10},
	}

	repo := memstore.NewRepository()
	app, err := Wiring(repo, config, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(app.Close)

	return &testApp{t: t, repo: repo, router: app.Router}
}

func (a *testApp) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (a *testApp) register(username string) string {
	a.t.Helper()

	rec, env := a.do(http.MethodPost, "/api/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())

	var auth struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &auth))
	require.NotEmpty(a.t, auth.Token)
	return auth.Token
}

func (a *testApp) userID(token string) string {
	a.t.Helper()

	rec, env := a.do(http.MethodGet, "/api/user/profile", token, nil)
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var profile struct {
		ID string `json:"id"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &profile))
	return profile.ID
}

func (a *testApp) admin() string {
	a.t.Helper()

	hash, err := utils.HashPassword("secret123", 4)
	require.NoError(a.t, err)
	now := time.Now()
	require.NoError(a.t, a.repo.User.Create(context.Background(), &entity.User{
		BaseNoDelete: entity.BaseNoDelete{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Username:     "root",
		Email:        "root@example.com",
		PasswordHash: hash,
		Role:         entity.RoleAdmin,
		IsActive:     true,
	}))

	rec, env := a.do(http.MethodPost, "/api/login", "", map[string]string{
		"username": "root",
		"password": "secret123",
	})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())

	var auth struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &auth))
	return auth.Token
}

func (a *testApp) createEvent(token string, capacity int) string {
	a.t.Helper()

	rec, env := a.do(http.MethodPost, "/api/events", token, map[string]any{
		"title":    "Night Jazz",
		"category": "concert",
		"date":     time.Now().AddDate(0, 1, 0).Format("2006-01-02"),
		"time":     "20:00",
		"venue":    "Blue Room",
		"city":     "Moscow",
		"capacity": capacity,
		"seating":  map[string]any{"type": "free", "price": "500"},
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())

	var ev struct {
		Code string `json:"code"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &ev))
	return ev.Code
}

type purchased struct {
	Tickets []struct {
		Code      string  `json:"code"`
		Status    string  `json:"status"`
		QRCodeURL *string `json:"qrCodeUrl"`
		QRStatus  string  `json:"qrStatus"`
		OwnerID   string  `json:"ownerId"`
	} `json:"tickets"`
	Total string `json:"total"`
}

func TestRouter_HealthAndPreflight(t *testing.T) {
	app := newTestApp(t)

	rec, _ := app.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	req := httptest.NewRequest(http.MethodOptions, "/api/tickets/purchase", nil)
	req.Header.Set("Origin", "https://tickets.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec = httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://tickets.example.com")
	rec = httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec, _ = app.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_AuthRequired(t *testing.T) {
	app := newTestApp(t)

	rec, _ := app.do(http.MethodPost, "/api/tickets/purchase", "", map[string]any{"eventId": "X", "quantity": 1})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = app.do(http.MethodGet, "/api/tickets/my", uuid.NewString(), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := app.register("carol")
	rec, _ = app.do(http.MethodGet, "/api/admin/tickets", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = app.do(http.MethodPost, "/api/logout", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = app.do(http.MethodGet, "/api/user/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_PurchaseAndRedeem(t *testing.T) {
	app := newTestApp(t)
	organizer := app.register("alice")
	buyer := app.register("bob")
	code := app.createEvent(organizer, 3)

	// buy two of three
	rec, env := app.do(http.MethodPost, "/api/tickets/purchase", buyer, map[string]any{
		"eventId":  code,
		"quantity": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var bought purchased
	require.NoError(t, json.Unmarshal(env.Data, &bought))
	require.Len(t, bought.Tickets, 2)
	assert.Equal(t, "1000", bought.Total)
	require.NotNil(t, bought.Tickets[0].QRCodeURL)
	assert.Equal(t, "ready", bought.Tickets[0].QRStatus)
	assert.Equal(t, app.userID(buyer), bought.Tickets[0].OwnerID)

	// the QR image is served from the local store
	rec, _ = app.do(http.MethodGet, *bought.Tickets[0].QRCodeURL, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	// not enough left
	rec, env = app.do(http.MethodPost, "/api/tickets/purchase", buyer, map[string]any{
		"eventId":  code,
		"quantity": 2,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INSUFFICIENT_CAPACITY", env.Code)

	// buyer cannot redeem, organizer can
	ticketCode := bought.Tickets[0].Code
	rec, _ = app.do(http.MethodPost, "/api/tickets/validate", buyer, map[string]any{"code": ticketCode, "redeem": true})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = app.do(http.MethodPost, "/api/tickets/validate", organizer, map[string]any{"code": ticketCode, "redeem": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var scan struct {
		IsValid  bool `json:"isValid"`
		Redeemed bool `json:"redeemed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &scan))
	assert.True(t, scan.IsValid)
	assert.True(t, scan.Redeemed)

	// public check sees the redeemed ticket
	rec, env = app.do(http.MethodGet, "/api/tickets/check/"+ticketCode, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &scan))
	assert.False(t, scan.IsValid)

	// owner invalidates the other ticket, freeing capacity
	rec, _ = app.do(http.MethodPatch, "/api/tickets/"+bought.Tickets[1].Code+"/status", buyer, map[string]string{"status": "Invalid"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = app.do(http.MethodGet, "/api/events/"+code, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ev struct {
		TicketsAvailable int `json:"tickets_available"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &ev))
	assert.Equal(t, 2, ev.TicketsAvailable)
}

func TestRouter_MockPaymentIssuesTickets(t *testing.T) {
	app := newTestApp(t)
	organizer := app.register("alice")
	buyer := app.register("bob")
	code := app.createEvent(organizer, 5)

	rec, env := app.do(http.MethodPost, "/api/payments", buyer, map[string]any{
		"eventId":  code,
		"quantity": 2,
		"method":   "mock",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var pending struct {
		ID         string  `json:"id"`
		Status     string  `json:"status"`
		PaymentURL *string `json:"paymentUrl"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &pending))
	assert.Equal(t, "pending", pending.Status)
	require.NotNil(t, pending.PaymentURL)

	// the redirect confirms; a second hit is a no-op
	for i := 0; i < 2; i++ {
		rec, env = app.do(http.MethodGet, "/payment/success?paymentId="+pending.ID, "", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	var confirmed struct {
		Status    string   `json:"status"`
		TicketIDs []string `json:"ticket_ids"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &confirmed))
	assert.Equal(t, "succeeded", confirmed.Status)
	assert.Len(t, confirmed.TicketIDs, 2)

	rec, env = app.do(http.MethodGet, "/api/tickets/my", buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &mine))
	assert.Len(t, mine, 2)
}

func TestRouter_AdminDeletesEvent(t *testing.T) {
	app := newTestApp(t)
	organizer := app.register("alice")
	admin := app.admin()
	code := app.createEvent(organizer, 5)

	rec, env := app.do(http.MethodGet, "/api/events/"+code, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ev struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &ev))

	rec, _ = app.do(http.MethodDelete, "/api/admin/events/"+ev.ID, organizer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = app.do(http.MethodDelete, "/api/admin/events/"+ev.ID, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = app.do(http.MethodGet, "/api/events/"+code, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "EVENT_NOT_FOUND", env.Code)
}

func TestRouter_OrganizerEventsAndUserStats(t *testing.T) {
	app := newTestApp(t)
	organizer := app.register("alice")
	buyer := app.register("bob")
	admin := app.admin()
	organizerID := app.userID(organizer)

	code := app.createEvent(organizer, 5)
	app.createEvent(organizer, 3)

	rec, env := app.do(http.MethodPost, "/api/tickets/purchase", buyer, map[string]any{
		"eventId":  code,
		"quantity": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var bought purchased
	require.NoError(t, json.Unmarshal(env.Data, &bought))
	rec, _ = app.do(http.MethodPatch, "/api/tickets/"+bought.Tickets[0].Code+"/status", buyer, map[string]string{"status": "Invalid"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// own events, owner or admin only
	rec, _ = app.do(http.MethodGet, "/api/events/user/"+organizerID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env = app.do(http.MethodGet, "/api/events/user/"+organizerID, buyer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "NOT_OWNER", env.Code)

	for _, token := range []string{organizer, admin} {
		rec, env = app.do(http.MethodGet, "/api/events/user/"+organizerID, token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var events []struct {
			Code             string `json:"code"`
			OrganizerID      string `json:"organizer_id"`
			TicketsAvailable int    `json:"tickets_available"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &events))
		require.Len(t, events, 2)
		for _, ev := range events {
			assert.Equal(t, organizerID, ev.OrganizerID)
			if ev.Code == code {
				assert.Equal(t, 4, ev.TicketsAvailable)
			}
		}
	}

	type userStats struct {
		TicketsCount int64  `json:"ticketsCount"`
		Active       int64  `json:"active"`
		Invalid      int64  `json:"invalid"`
		EventsCount  int64  `json:"eventsCount"`
		TotalSpent   string `json:"totalSpent"`
	}

	rec, env = app.do(http.MethodGet, "/api/user/stats", buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var stats userStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, userStats{TicketsCount: 2, Active: 1, Invalid: 1, EventsCount: 0, TotalSpent: "1000"}, stats)

	rec, env = app.do(http.MethodGet, "/api/user/stats", organizer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stats = userStats{}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, int64(2), stats.EventsCount)
	assert.Equal(t, int64(0), stats.TicketsCount)
	assert.Equal(t, "0", stats.TotalSpent)
}

func TestRouter_AdminCannotDeleteOrganizer(t *testing.T) {
	app := newTestApp(t)
	organizer := app.register("alice")
	buyer := app.register("bob")
	admin := app.admin()
	code := app.createEvent(organizer, 5)

	rec, _ := app.do(http.MethodPost, "/api/tickets/purchase", buyer, map[string]any{"eventId": code, "quantity": 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env := app.do(http.MethodDelete, "/api/admin/users/"+app.userID(organizer), admin, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ORGANIZER_HAS_EVENTS", env.Code)

	// the buyer can go; their tickets go with them
	rec, _ = app.do(http.MethodDelete, "/api/admin/users/"+app.userID(buyer), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = app.do(http.MethodGet, "/api/events/"+code, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ev struct {
		TicketsAvailable int `json:"tickets_available"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &ev))
	assert.Equal(t, 5, ev.TicketsAvailable)
}
