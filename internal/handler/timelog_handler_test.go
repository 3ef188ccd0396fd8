package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/huntlog/internal/db"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func setupTestDB(t *testing.T) (*API, func()) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(&db.User{}, &db.TimeEntryLog{}, &db.TimeEntry{}, &db.ProductivityAnalysis{}, &db.Goal{}, &db.SystemSetting{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	db.DB = gdb

	return NewAPI(db.DB, nil), func() {
		sqlDB, err := db.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}

// authedContext 构造挂好会话中间件并写入 user_id 的测试上下文。
func authedContext(t *testing.T, w *httptest.ResponseRecorder, req *http.Request, userID uint) *gin.Context {
	t.Helper()

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	sessions.Sessions("huntlog_session", cookie.NewStore([]byte("test-secret")))(c)
	if userID > 0 {
		session := sessions.Default(c)
		session.Set("user_id", userID)
	}
	return c
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func jsonNumber(v float64) string {
	return strconv.FormatUint(uint64(v), 10)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var result map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return result
}

func TestGetDayLogCreatesEmptyLog(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/timelogs/2025-06-02", nil)
	w := httptest.NewRecorder()
	c := authedContext(t, w, req, 1)
	c.Params = gin.Params{{Key: "date", Value: "2025-06-02"}}

	api.GetDayLog(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	result := decodeBody(t, w)
	if result["log_date"] != "2025-06-02" {
		t.Fatalf("unexpected log_date: %v", result["log_date"])
	}
	if entries, ok := result["entries"].([]any); !ok || len(entries) != 0 {
		t.Fatalf("expected empty entries, got %v", result["entries"])
	}
	if _, present := result["summary"]; present {
		t.Fatalf("empty log must not carry a summary: %v", result)
	}
}

func TestGetDayLogRejectsBadDate(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/timelogs/not-a-date", nil)
	w := httptest.NewRecorder()
	c := authedContext(t, w, req, 1)
	c.Params = gin.Params{{Key: "date", Value: "not-a-date"}}

	api.GetDayLog(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestAddEntryReturnsUpdatedLog(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	payload := map[string]any{
		"activity":     "Job Search",
		"start_time":   "2025-06-02T09:00:00Z",
		"end_time":     "2025-06-02T10:30:00Z",
		"energy_level": "High",
		"productivity": 8,
		"outcomes": []map[string]any{
			{"type": "Application Sent", "description": "投了两个岗位"},
		},
	}
	req := jsonRequest(t, http.MethodPost, "/api/timelogs/2025-06-02/entries", payload)
	w := httptest.NewRecorder()
	c := authedContext(t, w, req, 1)
	c.Params = gin.Params{{Key: "date", Value: "2025-06-02"}}

	api.AddEntry(c)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	result := decodeBody(t, w)
	entries, ok := result["entries"].([]any)
	if !ok || len(entries) != 1 {
		t.Fatalf("expected 1 entry in response, got %v", result["entries"])
	}
	entry := entries[0].(map[string]any)
	if entry["duration"] != float64(90) {
		t.Fatalf("expected derived duration 90, got %v", entry["duration"])
	}
	summary, ok := result["summary"].(map[string]any)
	if !ok {
		t.Fatalf("expected summary in response, got %v", result)
	}
	if summary["total_hours"] != 1.5 {
		t.Fatalf("expected 1.5 total hours, got %v", summary["total_hours"])
	}
}

func TestAddEntryRejectsUnknownActivity(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	payload := map[string]any{
		"activity":   "Gaming",
		"start_time": "2025-06-02T09:00:00Z",
	}
	req := jsonRequest(t, http.MethodPost, "/api/timelogs/2025-06-02/entries", payload)
	w := httptest.NewRecorder()
	c := authedContext(t, w, req, 1)
	c.Params = gin.Params{{Key: "date", Value: "2025-06-02"}}

	api.AddEntry(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestAddEntryRejectsBadTimestamp(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	payload := map[string]any{
		"activity":   "Job Search",
		"start_time": "昨天早上",
	}
	req := jsonRequest(t, http.MethodPost, "/api/timelogs/2025-06-02/entries", payload)
	w := httptest.NewRecorder()
	c := authedContext(t, w, req, 1)
	c.Params = gin.Params{{Key: "date", Value: "2025-06-02"}}

	api.AddEntry(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestUpdateEntryNotFound(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	req := jsonRequest(t, http.MethodPut, "/api/timelogs/2025-06-02/entries/42", map[string]any{})
	w := httptest.NewRecorder()
	c := authedContext(t, w, req, 1)
	c.Params = gin.Params{{Key: "date", Value: "2025-06-02"}, {Key: "entryId", Value: "42"}}

	api.UpdateEntry(c)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

func TestStopEntryCompletesSession(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	// 先开一条进行中的条目
	payload := map[string]any{
		"activity":   "Interview Preparation",
		"start_time": time.Now().UTC().Add(-time.Hour).Format(time.RFC3339),
	}
	date := time.Now().UTC().Format("2006-01-02")
	req := jsonRequest(t, http.MethodPost, "/api/timelogs/"+date+"/entries", payload)
	w := httptest.NewRecorder()
	c := authedContext(t, w, req, 1)
	c.Params = gin.Params{{Key: "date", Value: date}}
	api.AddEntry(c)
	if w.Code != http.StatusCreated {
		t.Fatalf("seed entry failed: %d %s", w.Code, w.Body.String())
	}
	created := decodeBody(t, w)
	entryID := created["entries"].([]any)[0].(map[string]any)["id"].(float64)

	req = httptest.NewRequest(http.MethodPost, "/api/timelogs/"+date+"/entries/1/stop", nil)
	w = httptest.NewRecorder()
	c = authedContext(t, w, req, 1)
	c.Params = gin.Params{
		{Key: "date", Value: date},
		{Key: "entryId", Value: jsonNumber(entryID)},
	}

	api.StopEntry(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	result := decodeBody(t, w)
	entry := result["entries"].([]any)[0].(map[string]any)
	if entry["completed"] != true {
		t.Fatalf("entry should be completed after stop: %v", entry)
	}
	if _, present := result["summary"]; !present {
		t.Fatalf("stopping the only entry should produce a summary: %v", result)
	}
}

func TestDeleteEntryRemovesFromLog(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	payload := map[string]any{
		"activity":   "Networking",
		"start_time": "2025-06-02T09:00:00Z",
		"end_time":   "2025-06-02T09:30:00Z",
	}
	req := jsonRequest(t, http.MethodPost, "/api/timelogs/2025-06-02/entries", payload)
	w := httptest.NewRecorder()
	c := authedContext(t, w, req, 1)
	c.Params = gin.Params{{Key: "date", Value: "2025-06-02"}}
	api.AddEntry(c)
	if w.Code != http.StatusCreated {
		t.Fatalf("seed entry failed: %d", w.Code)
	}
	created := decodeBody(t, w)
	entryID := created["entries"].([]any)[0].(map[string]any)["id"].(float64)

	req = httptest.NewRequest(http.MethodDelete, "/api/timelogs/2025-06-02/entries/1", nil)
	w = httptest.NewRecorder()
	c = authedContext(t, w, req, 1)
	c.Params = gin.Params{
		{Key: "date", Value: "2025-06-02"},
		{Key: "entryId", Value: jsonNumber(entryID)},
	}

	api.DeleteEntry(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	result := decodeBody(t, w)
	if entries, ok := result["entries"].([]any); !ok || len(entries) != 0 {
		t.Fatalf("expected empty log after delete, got %v", result["entries"])
	}
	if _, present := result["summary"]; present {
		t.Fatalf("log without completed entries must not carry a summary: %v", result)
	}
}

func TestGetStatsRequiresDateRange(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	w := httptest.NewRecorder()
	c := authedContext(t, w, req, 1)

	api.GetStats(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without range, got %d", w.Code)
	}
}

func TestGetStatsReturnsAggregate(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	payload := map[string]any{
		"activity":   "Job Search",
		"start_time": "2025-06-02T09:00:00Z",
		"end_time":   "2025-06-02T11:00:00Z",
	}
	req := jsonRequest(t, http.MethodPost, "/api/timelogs/2025-06-02/entries", payload)
	w := httptest.NewRecorder()
	c := authedContext(t, w, req, 1)
	c.Params = gin.Params{{Key: "date", Value: "2025-06-02"}}
	api.AddEntry(c)
	if w.Code != http.StatusCreated {
		t.Fatalf("seed entry failed: %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/stats?start_date=2025-06-01&end_date=2025-06-08", nil)
	w = httptest.NewRecorder()
	c = authedContext(t, w, req, 1)

	api.GetStats(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	result := decodeBody(t, w)
	if result["total_hours"] != 2.0 {
		t.Fatalf("expected 2.0 total hours, got %v", result["total_hours"])
	}
	if result["days_tracked"] != float64(1) {
		t.Fatalf("expected 1 tracked day, got %v", result["days_tracked"])
	}
}

func TestTimeLogRequiresLogin(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/timelogs/2025-06-02", nil)
	w := httptest.NewRecorder()
	c := authedContext(t, w, req, 0)
	c.Params = gin.Params{{Key: "date", Value: "2025-06-02"}}

	api.GetDayLog(c)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}
