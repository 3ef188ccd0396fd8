package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huntlog/internal/db"
	"github.com/huntlog/internal/service"
)

// seedTrackedDay 写入一条已完成条目，让分析有数据可用。
func seedTrackedDay(t *testing.T, userID uint, date time.Time) {
	t.Helper()

	timelogs := service.NewTimeLogService(db.DB, nil)
	end := date.Add(11 * time.Hour)
	productivity := 7
	_, err := timelogs.AddEntry(userID, date, service.EntryInput{
		Activity:     db.ActivityJobSearch,
		StartTime:    date.Add(9 * time.Hour),
		EndTime:      &end,
		Productivity: &productivity,
		Outcomes:     []db.Outcome{{Type: db.OutcomeApplicationSent}},
	})
	if err != nil {
		t.Fatalf("failed to seed tracked day: %v", err)
	}
}

func TestGenerateAnalysisEndpoint(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()
	api.WithRecommender(nil, nil)

	seedTrackedDay(t, 1, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))

	payload := map[string]any{
		"start_date":  "2025-06-02",
		"end_date":    "2025-06-08",
		"period_type": "weekly",
	}
	req := jsonRequest(t, http.MethodPost, "/api/analyses", payload)
	w := httptest.NewRecorder()
	c := authedContext(t, w, req, 1)

	api.GenerateAnalysis(c)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	result := decodeBody(t, w)
	if result["report_code"] == "" || result["report_code"] == nil {
		t.Fatalf("expected report_code, got %v", result)
	}
	if result["period_type"] != "weekly" {
		t.Fatalf("unexpected period_type: %v", result["period_type"])
	}
	investment, ok := result["time_investment"].(map[string]any)
	if !ok {
		t.Fatalf("expected time_investment section, got %v", result)
	}
	if investment["total_hours"] != 2.0 {
		t.Fatalf("expected 2.0 total hours, got %v", investment["total_hours"])
	}
	for _, section := range []string{"productivity_metrics", "performance_patterns", "outcome_analysis", "efficiency_metrics", "burnout_indicators"} {
		if _, ok := result[section]; !ok {
			t.Fatalf("missing section %s in response", section)
		}
	}
}

func TestGenerateAnalysisDefaultsToCustomPeriod(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()
	api.WithRecommender(nil, nil)

	seedTrackedDay(t, 1, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))

	payload := map[string]any{
		"start_date": "2025-06-01",
		"end_date":   "2025-06-10",
	}
	req := jsonRequest(t, http.MethodPost, "/api/analyses", payload)
	w := httptest.NewRecorder()
	c := authedContext(t, w, req, 1)

	api.GenerateAnalysis(c)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if result := decodeBody(t, w); result["period_type"] != db.PeriodCustom {
		t.Fatalf("expected custom period, got %v", result["period_type"])
	}
}

func TestGenerateAnalysisWithoutData(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()
	api.WithRecommender(nil, nil)

	payload := map[string]any{
		"start_date":  "2025-06-02",
		"end_date":    "2025-06-08",
		"period_type": "weekly",
	}
	req := jsonRequest(t, http.MethodPost, "/api/analyses", payload)
	w := httptest.NewRecorder()
	c := authedContext(t, w, req, 1)

	api.GenerateAnalysis(c)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGenerateAnalysisRejectsBadInput(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()
	api.WithRecommender(nil, nil)

	cases := []map[string]any{
		{"start_date": "06/02/2025", "end_date": "2025-06-08"},
		{"start_date": "2025-06-08", "end_date": "2025-06-02"},
		{"start_date": "2025-06-02", "end_date": "2025-06-08", "period_type": "hourly"},
	}
	for _, payload := range cases {
		req := jsonRequest(t, http.MethodPost, "/api/analyses", payload)
		w := httptest.NewRecorder()
		c := authedContext(t, w, req, 1)

		api.GenerateAnalysis(c)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("payload %v: expected status 400, got %d", payload, w.Code)
		}
	}
}

func TestGetAnalysisHidesOtherUsersReports(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()
	api.WithRecommender(nil, nil)

	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	seedTrackedDay(t, 1, date)

	analyses := service.NewAnalysisService(db.DB, nil, nil)
	report, err := analyses.Generate(context.Background(), 1, date, date, db.PeriodDaily)
	if err != nil {
		t.Fatalf("failed to generate report: %v", err)
	}

	// 本人可以读取
	req := httptest.NewRequest(http.MethodGet, "/api/analyses/1", nil)
	w := httptest.NewRecorder()
	c := authedContext(t, w, req, 1)
	c.Params = gin.Params{{Key: "id", Value: jsonNumber(float64(report.ID))}}
	api.GetAnalysis(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 for owner, got %d", w.Code)
	}

	// 其他用户拿到的是 404 而不是 403，避免暴露资源存在性
	req = httptest.NewRequest(http.MethodGet, "/api/analyses/1", nil)
	w = httptest.NewRecorder()
	c = authedContext(t, w, req, 2)
	c.Params = gin.Params{{Key: "id", Value: jsonNumber(float64(report.ID))}}
	api.GetAnalysis(c)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for other user, got %d", w.Code)
	}
}

func TestListAnalysesEndpoint(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()
	api.WithRecommender(nil, nil)

	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	seedTrackedDay(t, 1, date)

	analyses := service.NewAnalysisService(db.DB, nil, nil)
	if _, err := analyses.Generate(context.Background(), 1, date, date, db.PeriodDaily); err != nil {
		t.Fatalf("failed to generate daily report: %v", err)
	}
	if _, err := analyses.Generate(context.Background(), 1, date, date.AddDate(0, 0, 6), db.PeriodWeekly); err != nil {
		t.Fatalf("failed to generate weekly report: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/analyses?period_type=weekly", nil)
	w := httptest.NewRecorder()
	c := authedContext(t, w, req, 1)

	api.ListAnalyses(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	result := decodeBody(t, w)
	items, ok := result["analyses"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("expected 1 weekly report, got %v", result["analyses"])
	}
	if items[0].(map[string]any)["period_type"] != db.PeriodWeekly {
		t.Fatalf("unexpected item: %v", items[0])
	}

	req = httptest.NewRequest(http.MethodGet, "/api/analyses?limit=abc", nil)
	w = httptest.NewRecorder()
	c = authedContext(t, w, req, 1)
	api.ListAnalyses(c)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for bad limit, got %d", w.Code)
	}
}
