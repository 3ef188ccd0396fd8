package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/huntlog/internal/db"
)

type fakeRecommender struct {
	recommendations []db.Recommendation
	err             error
	lastInput       RecommendationInput
	calls           int
}

func (f *fakeRecommender) GenerateRecommendations(_ context.Context, input RecommendationInput) ([]db.Recommendation, error) {
	f.calls++
	f.lastInput = input
	return f.recommendations, f.err
}

// seedAnalysisDay 通过时间日志服务写入一天的三条已完成条目，
// 让日汇总走正常的重算路径。
func seedAnalysisDay(t *testing.T, date time.Time) {
	t.Helper()
	timelogs := NewTimeLogService(db.DB, nil)

	prod8 := 8
	input := entryInputAt(db.ActivityJobSearch, date.Add(9*time.Hour), 120)
	input.Productivity = &prod8
	input.EnergyLevel = db.EnergyHigh
	input.Outcomes = []db.Outcome{
		{Type: db.OutcomeApplicationSent, Description: "applied to two roles"},
		{Type: db.OutcomeApplicationSent, Description: "tailored cover letter"},
	}
	if _, err := timelogs.AddEntry(1, date, input); err != nil {
		t.Fatalf("seed job search entry: %v", err)
	}

	if _, err := timelogs.AddEntry(1, date, entryInputAt(db.ActivityBreak, date.Add(11*time.Hour), 30)); err != nil {
		t.Fatalf("seed break entry: %v", err)
	}

	prod6 := 6
	input = entryInputAt(db.ActivityNetworking, date.Add(14*time.Hour), 60)
	input.Productivity = &prod6
	input.Outcomes = []db.Outcome{{Type: db.OutcomeConnectionMade}}
	if _, err := timelogs.AddEntry(1, date, input); err != nil {
		t.Fatalf("seed networking entry: %v", err)
	}
}

func TestGenerateBuildsAllSections(t *testing.T) {
	cleanup := setupServiceTestDB(t)
	defer cleanup()

	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	seedAnalysisDay(t, date)

	svc := NewAnalysisService(db.DB, nil, nil)
	report, err := svc.Generate(context.Background(), 1, date, date, db.PeriodDaily)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if report.ReportCode == "" {
		t.Fatal("report code must be assigned")
	}

	// 时间投入
	if report.TimeInvestment.TotalHours != 3.5 {
		t.Fatalf("expected 3.5 total hours, got %v", report.TimeInvestment.TotalHours)
	}
	if report.TimeInvestment.ProductiveHours != 3.0 || report.TimeInvestment.BreakHours != 0.5 {
		t.Fatalf("unexpected productive/break split: %+v", report.TimeInvestment)
	}
	if len(report.TimeInvestment.TopActivities) != 3 {
		t.Fatalf("expected 3 top activities, got %d", len(report.TimeInvestment.TopActivities))
	}
	top := report.TimeInvestment.TopActivities[0]
	if top.Activity != db.ActivityJobSearch || top.Minutes != 120 || top.Percentage != 57.14 {
		t.Fatalf("unexpected top activity: %+v", top)
	}

	// 效率指标：评分 (8 + 5 + 6) / 3 = 6.3，峰值时段为 9 点
	metrics := report.ProductivityMetrics
	if metrics.AverageProductivity != 6.3 {
		t.Fatalf("expected average productivity 6.3, got %v", metrics.AverageProductivity)
	}
	if metrics.EfficiencyRating != "Average" {
		t.Fatalf("expected Average rating, got %s", metrics.EfficiencyRating)
	}
	if metrics.PeakProductivityTime != "9 AM" {
		t.Fatalf("expected peak at 9 AM, got %s", metrics.PeakProductivityTime)
	}
	if metrics.OptimalWorkingHours.Start != 7 || metrics.OptimalWorkingHours.End != 15 {
		t.Fatalf("expected optimal hours 7-15, got %+v", metrics.OptimalWorkingHours)
	}
	if metrics.ConsistencyScore != 100 {
		t.Fatalf("expected consistency 100, got %d", metrics.ConsistencyScore)
	}

	// 表现模式
	patterns := report.PerformancePatterns
	if patterns.EnergyDistribution[db.EnergyHigh] != 1 {
		t.Fatalf("unexpected energy distribution: %v", patterns.EnergyDistribution)
	}
	if patterns.ProductivityByWeekday["Monday"] != 6.3 {
		t.Fatalf("unexpected weekday means: %v", patterns.ProductivityByWeekday)
	}
	if len(patterns.ProductivityByTimeOfDay) != 3 {
		t.Fatalf("expected 3 active hours, got %d", len(patterns.ProductivityByTimeOfDay))
	}
	if len(patterns.BestPerformingActivities) == 0 || patterns.BestPerformingActivities[0].Activity != db.ActivityJobSearch {
		t.Fatalf("unexpected best activities: %+v", patterns.BestPerformingActivities)
	}

	// 成果分析：3 个成果 / 3 条已完成条目
	outcomes := report.OutcomeAnalysis
	if outcomes.TotalOutcomes != 3 {
		t.Fatalf("expected 3 outcomes, got %d", outcomes.TotalOutcomes)
	}
	if outcomes.SuccessRate != 100 {
		t.Fatalf("expected success rate 100, got %d", outcomes.SuccessRate)
	}
	if outcomes.OutcomesPerHour != 0.86 {
		t.Fatalf("expected 0.86 outcomes/hour, got %v", outcomes.OutcomesPerHour)
	}
	if outcomes.OutcomeTypes[db.OutcomeApplicationSent] != 2 {
		t.Fatalf("unexpected outcome types: %v", outcomes.OutcomeTypes)
	}

	// 效率度量：参与分析的条目都已完成
	efficiency := report.EfficiencyMetrics
	if efficiency.TaskCompletionRate != 100 {
		t.Fatalf("expected completion rate 100, got %v", efficiency.TaskCompletionRate)
	}
	if efficiency.AverageTaskDuration != 70 {
		t.Fatalf("expected average duration 70, got %v", efficiency.AverageTaskDuration)
	}
	if efficiency.ImprovementTrend != "Stable" {
		t.Fatalf("expected Stable trend, got %s", efficiency.ImprovementTrend)
	}

	// 倦怠指标：单日 3.5 小时，低风险
	if report.BurnoutIndicators.RiskLevel != db.RiskLow {
		t.Fatalf("expected Low burnout risk, got %s", report.BurnoutIndicators.RiskLevel)
	}
}

func TestGenerateRejectsEmptyRange(t *testing.T) {
	cleanup := setupServiceTestDB(t)
	defer cleanup()

	svc := NewAnalysisService(db.DB, nil, nil)
	start := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)

	_, err := svc.Generate(context.Background(), 1, start, start.AddDate(0, 0, 6), db.PeriodWeekly)
	if !errors.Is(err, ErrNoTrackingData) {
		t.Fatalf("expected ErrNoTrackingData, got %v", err)
	}

	// 失败的生成不得留下任何报告
	var count int64
	db.DB.Model(&db.ProductivityAnalysis{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no persisted reports, got %d", count)
	}
}

func TestGenerateRejectsUnknownPeriodType(t *testing.T) {
	cleanup := setupServiceTestDB(t)
	defer cleanup()

	svc := NewAnalysisService(db.DB, nil, nil)
	now := time.Now()

	if _, err := svc.Generate(context.Background(), 1, now, now, "hourly"); !errors.Is(err, ErrInvalidPeriodType) {
		t.Fatalf("expected ErrInvalidPeriodType, got %v", err)
	}
}

func TestOutcomeSuccessRateCanExceedHundred(t *testing.T) {
	// 单条目记录多个成果时成功率会超过 100，保持原样不截断
	entry := &db.TimeEntry{
		Outcomes: []db.Outcome{
			{Type: db.OutcomeApplicationSent},
			{Type: db.OutcomeConnectionMade},
			{Type: db.OutcomeInterviewScheduled},
		},
	}
	analysis := buildOutcomeAnalysis(nil, []*db.TimeEntry{entry}, 1)

	if analysis.SuccessRate != 300 {
		t.Fatalf("expected success rate 300, got %d", analysis.SuccessRate)
	}
}

func TestGenerateAttachesRecommendations(t *testing.T) {
	cleanup := setupServiceTestDB(t)
	defer cleanup()

	date := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	seedAnalysisDay(t, date)

	goal := db.Goal{UserID: 1, Title: "Land an offer", Status: "active"}
	if err := db.DB.Create(&goal).Error; err != nil {
		t.Fatalf("seed goal: %v", err)
	}

	recommender := &fakeRecommender{
		recommendations: []db.Recommendation{{
			Category: "time_management",
			Priority: "high",
			Title:    "Protect your morning block",
		}},
	}
	svc := NewAnalysisService(db.DB, nil, recommender)

	report, err := svc.Generate(context.Background(), 1, date, date, db.PeriodDaily)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if recommender.calls != 1 {
		t.Fatalf("expected 1 recommender call, got %d", recommender.calls)
	}
	if len(recommender.lastInput.Goals) != 1 || recommender.lastInput.Goals[0].Title != "Land an offer" {
		t.Fatalf("active goals must be passed to the recommender, got %+v", recommender.lastInput.Goals)
	}
	if len(report.Recommendations) != 1 || report.Recommendations[0].Title != "Protect your morning block" {
		t.Fatalf("unexpected recommendations: %+v", report.Recommendations)
	}

	// 建议要落库，而不是只挂在内存对象上
	var stored db.ProductivityAnalysis
	if err := db.DB.First(&stored, report.ID).Error; err != nil {
		t.Fatalf("reload report: %v", err)
	}
	if len(stored.Recommendations) != 1 {
		t.Fatalf("expected persisted recommendations, got %+v", stored.Recommendations)
	}
}

func TestGenerateToleratesRecommenderFailure(t *testing.T) {
	cleanup := setupServiceTestDB(t)
	defer cleanup()

	date := time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)
	seedAnalysisDay(t, date)

	recommender := &fakeRecommender{err: errors.New("provider unavailable")}
	svc := NewAnalysisService(db.DB, nil, recommender)

	report, err := svc.Generate(context.Background(), 1, date, date, db.PeriodDaily)
	if err != nil {
		t.Fatalf("recommender failure must not block the report: %v", err)
	}
	if len(report.Recommendations) != 0 {
		t.Fatalf("expected no recommendations, got %+v", report.Recommendations)
	}
	if report.ID == 0 {
		t.Fatal("report must still be persisted")
	}
}

func TestGetAndListAnalyses(t *testing.T) {
	cleanup := setupServiceTestDB(t)
	defer cleanup()

	date := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
	seedAnalysisDay(t, date)

	svc := NewAnalysisService(db.DB, nil, nil)
	daily, err := svc.Generate(context.Background(), 1, date, date, db.PeriodDaily)
	if err != nil {
		t.Fatalf("generate daily: %v", err)
	}
	if _, err := svc.Generate(context.Background(), 1, date, date, db.PeriodCustom); err != nil {
		t.Fatalf("generate custom: %v", err)
	}

	got, err := svc.Get(daily.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ReportCode != daily.ReportCode {
		t.Fatalf("expected report %s, got %s", daily.ReportCode, got.ReportCode)
	}

	if _, err := svc.Get(9999); !errors.Is(err, ErrAnalysisNotFound) {
		t.Fatalf("expected ErrAnalysisNotFound, got %v", err)
	}

	all, err := svc.List(1, "", 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(all))
	}

	onlyDaily, err := svc.List(1, db.PeriodDaily, 0)
	if err != nil {
		t.Fatalf("filtered List failed: %v", err)
	}
	if len(onlyDaily) != 1 || onlyDaily[0].PeriodType != db.PeriodDaily {
		t.Fatalf("unexpected filtered result: %+v", onlyDaily)
	}

	if _, err := svc.List(1, "hourly", 0); !errors.Is(err, ErrInvalidPeriodType) {
		t.Fatalf("expected ErrInvalidPeriodType on list, got %v", err)
	}

	// 其他用户看不到这些报告
	other, err := svc.List(2, "", 0)
	if err != nil {
		t.Fatalf("List for other user failed: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no reports for other user, got %d", len(other))
	}
}
