package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"attendance-backend/config"
	"attendance-backend/internal/attendance"
	"attendance-backend/internal/bus"
	"attendance-backend/internal/db"
	"attendance-backend/internal/model"
	"attendance-backend/internal/scheduler"
	"attendance-backend/internal/store"
)

type testApp struct {
	router *gin.Engine
	store  store.Store
	hub    *bus.Hub
	token  string
}

// newTestApp wires a full router against an in-memory database with one
// admin account already provisioned.
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))

	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Auth.SigningKey = "test-signing-key"
	cfg.Auth.Issuer = "attendance-backend-test"
	// Tests fire requests back to back; the default limiter would 429 them.
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000

	appStore := store.NewGormStore(gormDB)
	hub := bus.NewHub()
	engine := attendance.NewEngine(appStore, hub)
	sched := scheduler.NewService(&cfg.Scheduler, appStore, hub)

	handler := NewHandler(cfg, appStore, engine, sched, hub, nil)
	router := NewRouter(handler)

	app := &testApp{router: router, store: appStore, hub: hub}

	// Provision the first admin through the API and log in.
	resp := app.request(t, http.MethodPost, "/api/setup-admin", gin.H{
		"username":  "admin",
		"password":  "test-password-1",
		"full_name": "Test Admin",
	}, "")
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = app.request(t, http.MethodPost, "/api/login", gin.H{
		"username": "admin",
		"password": "test-password-1",
	}, "")
	require.Equal(t, http.StatusOK, resp.Code)

	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &tokens))
	require.NotEmpty(t, tokens.AccessToken)
	app.token = tokens.AccessToken
	return app
}

func (a *testApp) request(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(payload)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) enroll(t *testing.T, uid string) model.Member {
	t.Helper()
	resp := a.request(t, http.MethodPost, "/api/members", gin.H{
		"card_uid":   uid,
		"name":       "Member " + uid,
		"student_id": "sid-" + uid,
		"email":      uid + "@example.org",
	}, a.token)
	require.Equal(t, http.StatusCreated, resp.Code)

	var member model.Member
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &member))
	return member
}

func TestAdminRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)

	resp := app.request(t, http.MethodGet, "/api/members", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = app.request(t, http.MethodGet, "/api/members", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = app.request(t, http.MethodGet, "/api/members", nil, app.token)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestSetupAdminOnlyOnce(t *testing.T) {
	app := newTestApp(t)

	resp := app.request(t, http.MethodPost, "/api/setup-admin", gin.H{
		"username":  "second",
		"password":  "test-password-2",
		"full_name": "Second Admin",
	}, "")
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	app := newTestApp(t)

	resp := app.request(t, http.MethodPost, "/api/login", gin.H{
		"username": "admin",
		"password": "wrong",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = app.request(t, http.MethodPost, "/api/login", gin.H{
		"username": "nobody",
		"password": "wrong",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestScanEndpointToggles(t *testing.T) {
	app := newTestApp(t)
	app.enroll(t, "api-card")

	resp := app.request(t, http.MethodPost, "/api/scan", gin.H{"card_uid": "api-card"}, app.token)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"outcome":"checkin"`)

	resp = app.request(t, http.MethodPost, "/api/scan", gin.H{"card_uid": "api-card"}, app.token)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"outcome":"checkout"`)

	resp = app.request(t, http.MethodPost, "/api/scan", gin.H{"card_uid": "ghost-card"}, app.token)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCurrentCheckins(t *testing.T) {
	app := newTestApp(t)
	member := app.enroll(t, "occupancy-card")

	resp := app.request(t, http.MethodPost, "/api/scan", gin.H{"card_uid": "occupancy-card"}, app.token)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = app.request(t, http.MethodGet, "/api/checkins/current", nil, "")
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Checkins []struct {
			MemberID int64  `json:"member_id"`
			Name     string `json:"name"`
		} `json:"checkins"`
		Count        int `json:"count"`
		MaxOccupancy int `json:"max_occupancy"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Checkins, 1)
	assert.Equal(t, member.ID, body.Checkins[0].MemberID)
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, 30, body.MaxOccupancy, "default max_occupancy should be seeded")
}

func TestCurrentCheckinsLogsMissingOccupancyCap(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.store.DB().Delete(&model.Setting{Key: model.SettingMaxOccupancy}).Error)

	var logs bytes.Buffer
	log.SetOutput(&logs)
	defer log.SetOutput(os.Stderr)

	resp := app.request(t, http.MethodGet, "/api/checkins/current", nil, "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"max_occupancy":0`)
	assert.Contains(t, logs.String(), "Error reading max occupancy")
}

func TestManualCheckinConflicts(t *testing.T) {
	app := newTestApp(t)
	member := app.enroll(t, "manual-api-card")

	resp := app.request(t, http.MethodPost, "/api/checkins/manual", gin.H{
		"member_id": member.ID, "action": "checkout",
	}, app.token)
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = app.request(t, http.MethodPost, "/api/checkins/manual", gin.H{
		"member_id": member.ID, "action": "checkin",
	}, app.token)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = app.request(t, http.MethodPost, "/api/checkins/manual", gin.H{
		"member_id": member.ID, "action": "checkin",
	}, app.token)
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = app.request(t, http.MethodPost, "/api/checkins/manual", gin.H{
		"member_id": member.ID, "action": "flip",
	}, app.token)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTriggerAutoCheckout(t *testing.T) {
	app := newTestApp(t)
	app.enroll(t, "sweep-api-card")

	resp := app.request(t, http.MethodPost, "/api/scan", gin.H{"card_uid": "sweep-api-card"}, app.token)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = app.request(t, http.MethodPost, "/api/auto-checkout", nil, app.token)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"count":1}`, resp.Body.String())

	resp = app.request(t, http.MethodPost, "/api/auto-checkout", nil, app.token)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"count":0}`, resp.Body.String())
}

func TestSettingsRoundTrip(t *testing.T) {
	app := newTestApp(t)

	resp := app.request(t, http.MethodGet, "/api/settings", nil, app.token)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"auto_checkout_time":"17:00"`)

	resp = app.request(t, http.MethodPost, "/api/settings", gin.H{
		"auto_checkout_time":    "18:30",
		"max_occupancy":         25,
		"auto_checkout_enabled": false,
	}, app.token)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = app.request(t, http.MethodGet, "/api/settings", nil, app.token)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"auto_checkout_time":"18:30"`)
	assert.Contains(t, resp.Body.String(), `"max_occupancy":"25"`)
	assert.Contains(t, resp.Body.String(), `"auto_checkout_enabled":"0"`)
}

func TestSettingsValidation(t *testing.T) {
	app := newTestApp(t)

	resp := app.request(t, http.MethodPost, "/api/settings", gin.H{
		"auto_checkout_time": "25:99",
	}, app.token)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	occupancy := -1
	resp = app.request(t, http.MethodPost, "/api/settings", gin.H{
		"max_occupancy": occupancy,
	}, app.token)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestMemberHistoryEndpoint(t *testing.T) {
	app := newTestApp(t)
	member := app.enroll(t, "history-api-card")

	for i := 0; i < 2; i++ {
		resp := app.request(t, http.MethodPost, "/api/scan", gin.H{"card_uid": "history-api-card"}, app.token)
		require.Equal(t, http.StatusOK, resp.Code)
		time.Sleep(5 * time.Millisecond)
		resp = app.request(t, http.MethodPost, "/api/scan", gin.H{"card_uid": "history-api-card"}, app.token)
		require.Equal(t, http.StatusOK, resp.Code)
	}

	resp := app.request(t, http.MethodGet, fmt.Sprintf("/api/members/%d/history", member.ID), nil, app.token)
	require.Equal(t, http.StatusOK, resp.Code)

	var entries []struct {
		CheckIn      time.Time  `json:"check_in"`
		CheckOut     *time.Time `json:"check_out"`
		AutoCheckout bool       `json:"auto_checkout"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.NotNil(t, entry.CheckOut)
		assert.False(t, entry.AutoCheckout)
	}
}

func TestUpdateMemberPartialKeepsAdminFlag(t *testing.T) {
	app := newTestApp(t)

	resp := app.request(t, http.MethodPost, "/api/members", gin.H{
		"card_uid":   "partial-card",
		"name":       "Partial Member",
		"student_id": "sid-partial",
		"email":      "partial@example.org",
		"admin":      true,
	}, app.token)
	require.Equal(t, http.StatusCreated, resp.Code)
	var member model.Member
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &member))
	require.True(t, member.Admin)

	resp = app.request(t, http.MethodPut, fmt.Sprintf("/api/members/%d", member.ID), gin.H{
		"assigned_task": "inventory",
	}, app.token)
	require.Equal(t, http.StatusOK, resp.Code)

	got, err := app.store.MemberByID(context.Background(), member.ID)
	require.NoError(t, err)
	assert.True(t, got.Admin, "partial update must not clear the admin flag")
	assert.Equal(t, "inventory", got.AssignedTask)

	// An explicit false still demotes.
	resp = app.request(t, http.MethodPut, fmt.Sprintf("/api/members/%d", member.ID), gin.H{
		"admin": false,
	}, app.token)
	require.Equal(t, http.StatusOK, resp.Code)

	got, err = app.store.MemberByID(context.Background(), member.ID)
	require.NoError(t, err)
	assert.False(t, got.Admin)
}

func TestDeleteMemberCascades(t *testing.T) {
	app := newTestApp(t)
	member := app.enroll(t, "delete-api-card")

	resp := app.request(t, http.MethodPost, "/api/scan", gin.H{"card_uid": "delete-api-card"}, app.token)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = app.request(t, http.MethodDelete, fmt.Sprintf("/api/members/%d", member.ID), nil, app.token)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = app.request(t, http.MethodGet, "/api/checkins/current", nil, "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"count":0`)
}
