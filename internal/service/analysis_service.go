package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/huntlog/internal/cache"
	"github.com/huntlog/internal/db"
)

var (
	// ErrNoTrackingData 在请求区间内没有任何日志时返回，调用方需先积累数据
	ErrNoTrackingData = errors.New("no time tracking data in range")
	// ErrAnalysisNotFound 在指定报告不存在时返回
	ErrAnalysisNotFound = errors.New("analysis not found")
	// ErrInvalidPeriodType 在周期类型不在闭集内时返回
	ErrInvalidPeriodType = errors.New("invalid period type")
)

const defaultAnalysisListLimit = 20

// AnalysisService 负责周期分析报告的生成、持久化与查询。
// 报告是不可变快照：生成后唯一允许的写入是补充 AI 建议；
// 重叠区间的多次生成会各自落库，互不影响。
type AnalysisService struct {
	db          *gorm.DB
	cache       *cache.Cache
	recommender RecommendationGenerator
}

// NewAnalysisService 构造 AnalysisService。
// recommender 为可选协作方，传 nil 时跳过建议生成；cache 可为 nil。
func NewAnalysisService(gdb *gorm.DB, c *cache.Cache, recommender RecommendationGenerator) *AnalysisService {
	return &AnalysisService{db: gdb, cache: c, recommender: recommender}
}

// Generate 对区间内的全部日志执行一次完整分析并落库。
// 建议生成失败只记日志，不会阻断报告产出。
func (s *AnalysisService) Generate(ctx context.Context, userID uint, start, end time.Time, periodType string) (*db.ProductivityAnalysis, error) {
	if !db.ValidPeriodTypes[periodType] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriodType, periodType)
	}

	var logs []db.TimeEntryLog
	if err := s.db.Preload("Entries").
		Where("user_id = ?", userID).
		Where("log_date BETWEEN ? AND ?", normalizeToDate(start), normalizeToDate(end)).
		Order("log_date ASC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("load day logs: %w", err)
	}

	if len(logs) == 0 {
		return nil, ErrNoTrackingData
	}

	entries := completedEntries(logs)

	investment := buildTimeInvestment(logs)
	report := &db.ProductivityAnalysis{
		ReportCode:          uuid.NewString(),
		UserID:              userID,
		PeriodType:          periodType,
		StartDate:           normalizeToDate(start),
		EndDate:             normalizeToDate(end),
		TimeInvestment:      investment,
		ProductivityMetrics: buildProductivityMetrics(logs, entries),
		PerformancePatterns: buildPerformancePatterns(entries),
		OutcomeAnalysis:     buildOutcomeAnalysis(logs, entries, investment.TotalHours),
		EfficiencyMetrics:   buildEfficiencyMetrics(entries),
		BurnoutIndicators:   evaluateBurnout(logs, entries),
	}

	if err := s.db.Create(report).Error; err != nil {
		return nil, fmt.Errorf("persist analysis: %w", err)
	}

	s.attachRecommendations(ctx, report)

	s.cache.SetForever(analysisCacheKey(report.ID), report, 1)
	return report, nil
}

// attachRecommendations 调用外部建议协作方并把结果追加到报告上。
// 协作方失败视为"暂无建议"，报告保持已落库状态。
func (s *AnalysisService) attachRecommendations(ctx context.Context, report *db.ProductivityAnalysis) {
	if s.recommender == nil {
		return
	}

	var goals []db.Goal
	if err := s.db.Where("user_id = ? AND status = ?", report.UserID, "active").Find(&goals).Error; err != nil {
		log.Warn().Err(err).Uint("user_id", report.UserID).Msg("load active goals for recommendations")
		goals = nil
	}

	recommendations, err := s.recommender.GenerateRecommendations(ctx, RecommendationInput{
		Analysis: report,
		Goals:    goals,
	})
	if err != nil {
		log.Warn().Err(err).Str("report_code", report.ReportCode).Msg("recommendation generation failed")
		return
	}
	if len(recommendations) == 0 {
		return
	}

	report.Recommendations = recommendations
	if err := s.db.Model(report).Update("recommendations", report.Recommendations).Error; err != nil {
		log.Warn().Err(err).Str("report_code", report.ReportCode).Msg("persist recommendations")
		report.Recommendations = nil
	}
}

// Get 按 ID 读取报告，优先命中缓存（报告不可变，可长期缓存）。
func (s *AnalysisService) Get(id uint) (*db.ProductivityAnalysis, error) {
	if cached, ok := s.cache.Get(analysisCacheKey(id)); ok {
		if report, ok := cached.(*db.ProductivityAnalysis); ok {
			return report, nil
		}
	}

	var report db.ProductivityAnalysis
	if err := s.db.First(&report, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAnalysisNotFound
		}
		return nil, fmt.Errorf("get analysis: %w", err)
	}

	s.cache.SetForever(analysisCacheKey(id), &report, 1)
	return &report, nil
}

// List 返回某用户的报告，periodType 为空时不过滤，按创建时间倒序。
func (s *AnalysisService) List(userID uint, periodType string, limit int) ([]db.ProductivityAnalysis, error) {
	if limit <= 0 {
		limit = defaultAnalysisListLimit
	}

	query := s.db.Where("user_id = ?", userID)
	if periodType != "" {
		if !db.ValidPeriodTypes[periodType] {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPeriodType, periodType)
		}
		query = query.Where("period_type = ?", periodType)
	}

	var reports []db.ProductivityAnalysis
	if err := query.Order("created_at DESC").Limit(limit).Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	return reports, nil
}

func analysisCacheKey(id uint) string {
	return fmt.Sprintf("analysis:%d", id)
}

// completedEntries 展平所有日志中已完成的条目，保持日期序。
func completedEntries(logs []db.TimeEntryLog) []*db.TimeEntry {
	var entries []*db.TimeEntry
	for i := range logs {
		for j := range logs[i].Entries {
			entry := &logs[i].Entries[j]
			if entry.Completed() {
				entries = append(entries, entry)
			}
		}
	}
	return entries
}

// buildTimeInvestment 汇总区间内的时间投入并挑出投入最多的五项活动。
func buildTimeInvestment(logs []db.TimeEntryLog) db.TimeInvestment {
	var totalHours, productiveHours, breakHours float64
	breakdown := make(map[string]int)

	for i := range logs {
		summary := logs[i].Summary
		if summary == nil {
			continue
		}
		totalHours += summary.TotalHours
		productiveHours += summary.ProductiveHours
		breakHours += summary.BreakHours
		for activity, minutes := range summary.ActivityBreakdown {
			breakdown[activity] += minutes
		}
	}

	type activityMinutes struct {
		activity string
		minutes  int
	}
	ranked := make([]activityMinutes, 0, len(breakdown))
	for activity, minutes := range breakdown {
		ranked = append(ranked, activityMinutes{activity: activity, minutes: minutes})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].minutes != ranked[j].minutes {
			return ranked[i].minutes > ranked[j].minutes
		}
		return ranked[i].activity < ranked[j].activity
	})
	if len(ranked) > 5 {
		ranked = ranked[:5]
	}

	totalMinutes := totalHours * 60
	top := make([]db.TopActivity, 0, len(ranked))
	for _, item := range ranked {
		percentage := 0.0
		if totalMinutes > 0 {
			percentage = round2(float64(item.minutes) / totalMinutes * 100)
		}
		top = append(top, db.TopActivity{
			Activity:   item.activity,
			Minutes:    item.minutes,
			Hours:      round2(float64(item.minutes) / 60),
			Percentage: percentage,
		})
	}

	return db.TimeInvestment{
		TotalHours:        round2(totalHours),
		ProductiveHours:   round2(productiveHours),
		BreakHours:        round2(breakHours),
		ActivityBreakdown: breakdown,
		TopActivities:     top,
	}
}

func buildProductivityMetrics(logs []db.TimeEntryLog, entries []*db.TimeEntry) db.ProductivityMetrics {
	metrics := db.ProductivityMetrics{
		AverageProductivity: float64(defaultProductivity),
		OptimalWorkingHours: db.WorkingHours{Start: 9, End: 17},
		FocusScore:          50,
	}

	if len(entries) > 0 {
		productivitySum := 0
		focusSum := 0
		hourly := make(map[int]*hourlyAccumulator)
		for _, entry := range entries {
			productivitySum += productivityOf(entry)
			focusSum += db.FocusOrdinal(entry.FocusQuality)
			hour := entry.StartTime.Hour()
			if hourly[hour] == nil {
				hourly[hour] = &hourlyAccumulator{}
			}
			hourly[hour].add(productivityOf(entry))
		}

		metrics.AverageProductivity = round1(float64(productivitySum) / float64(len(entries)))
		metrics.FocusScore = roundInt(100 * float64(focusSum) / float64(len(entries)*4))

		peakHour := -1
		peakMean := 0.0
		for hour := 0; hour < 24; hour++ {
			acc := hourly[hour]
			if acc == nil {
				continue
			}
			if mean := acc.mean(); peakHour < 0 || mean > peakMean {
				peakHour = hour
				peakMean = mean
			}
		}
		if peakHour >= 0 {
			metrics.PeakProductivityTime = hourLabel(peakHour)
			metrics.OptimalWorkingHours = db.WorkingHours{
				Start: maxInt(6, peakHour-2),
				End:   minInt(22, peakHour+6),
			}
		}
	}

	daysWithHours := 0
	for i := range logs {
		if summary := logs[i].Summary; summary != nil && summary.TotalHours > 0 {
			daysWithHours++
		}
	}
	if len(logs) > 0 {
		metrics.ConsistencyScore = roundInt(100 * float64(daysWithHours) / float64(len(logs)))
	}

	metrics.EfficiencyRating = efficiencyRating(metrics.AverageProductivity)
	return metrics
}

// efficiencyRating 是 averageProductivity 的单调分级函数。
func efficiencyRating(averageProductivity float64) string {
	switch {
	case averageProductivity >= 8:
		return "Very High"
	case averageProductivity >= 6.5:
		return "High"
	case averageProductivity >= 5:
		return "Average"
	case averageProductivity >= 3.5:
		return "Low"
	default:
		return "Very Low"
	}
}

func buildPerformancePatterns(entries []*db.TimeEntry) db.PerformancePatterns {
	energyDistribution := make(map[string]int)
	focusDistribution := make(map[string]int)
	weekday := make(map[string]*hourlyAccumulator)
	hourly := make(map[int]*hourlyAccumulator)

	type activityAccumulator struct {
		productivitySum int
		count           int
		outcomes        int
	}
	byActivity := make(map[string]*activityAccumulator)

	for _, entry := range entries {
		if entry.EnergyLevel != "" {
			energyDistribution[entry.EnergyLevel]++
		}
		if entry.FocusQuality != "" {
			focusDistribution[entry.FocusQuality]++
		}

		day := entry.StartTime.Weekday().String()
		if weekday[day] == nil {
			weekday[day] = &hourlyAccumulator{}
		}
		weekday[day].add(productivityOf(entry))

		hour := entry.StartTime.Hour()
		if hourly[hour] == nil {
			hourly[hour] = &hourlyAccumulator{}
		}
		hourly[hour].add(productivityOf(entry))

		key := entry.ActivityKey()
		if byActivity[key] == nil {
			byActivity[key] = &activityAccumulator{}
		}
		byActivity[key].productivitySum += productivityOf(entry)
		byActivity[key].count++
		byActivity[key].outcomes += len(entry.Outcomes)
	}

	productivityByWeekday := make(map[string]float64, len(weekday))
	for day, acc := range weekday {
		productivityByWeekday[day] = round1(acc.mean())
	}

	var byTimeOfDay []db.HourlyProductivity
	for hour := 0; hour < 24; hour++ {
		acc := hourly[hour]
		if acc == nil {
			continue
		}
		byTimeOfDay = append(byTimeOfDay, db.HourlyProductivity{
			Hour:                hour,
			AverageProductivity: round1(acc.mean()),
			EntryCount:          acc.count,
		})
	}

	best := make([]db.ActivityPerformance, 0, len(byActivity))
	for activity, acc := range byActivity {
		best = append(best, db.ActivityPerformance{
			Activity:            activity,
			AverageProductivity: round1(float64(acc.productivitySum) / float64(acc.count)),
			TotalOutcomes:       acc.outcomes,
		})
	}
	sort.Slice(best, func(i, j int) bool {
		if best[i].AverageProductivity != best[j].AverageProductivity {
			return best[i].AverageProductivity > best[j].AverageProductivity
		}
		return best[i].Activity < best[j].Activity
	})
	if len(best) > 5 {
		best = best[:5]
	}

	return db.PerformancePatterns{
		EnergyDistribution:       energyDistribution,
		FocusDistribution:        focusDistribution,
		ProductivityByWeekday:    productivityByWeekday,
		ProductivityByTimeOfDay:  byTimeOfDay,
		BestPerformingActivities: best,
		// 描述性结论，作为固定文案输出，不做统计检验
		Correlations: db.Correlations{
			EnergyProductivity: "Sessions logged at higher energy levels tend to carry higher productivity scores",
			FocusProductivity:  "Good or Excellent focus sessions consistently rate above the overall average",
			TimeOfDay:          "Morning sessions tend to outperform late-evening ones",
		},
	}
}

// buildOutcomeAnalysis 汇总成果产出。
// SuccessRate 可能超过 100（单条目可记录多个成果），保持原样不截断。
func buildOutcomeAnalysis(logs []db.TimeEntryLog, entries []*db.TimeEntry, totalHours float64) db.OutcomeAnalysis {
	totalOutcomes := 0
	for i := range logs {
		if summary := logs[i].Summary; summary != nil {
			totalOutcomes += summary.TotalOutcomes
		}
	}

	outcomeTypes := make(map[string]int)
	outcomesByActivity := make(map[string]int)
	outcomesLogged := 0
	for _, entry := range entries {
		for _, outcome := range entry.Outcomes {
			outcomeTypes[outcome.Type]++
		}
		if len(entry.Outcomes) > 0 {
			outcomesByActivity[entry.ActivityKey()] += len(entry.Outcomes)
			outcomesLogged += len(entry.Outcomes)
		}
	}

	outcomesPerHour := 0.0
	if totalHours > 0 {
		outcomesPerHour = round2(float64(totalOutcomes) / totalHours)
	}

	successRate := 0
	if len(entries) > 0 {
		successRate = roundInt(100 * float64(outcomesLogged) / float64(len(entries)))
	}

	return db.OutcomeAnalysis{
		TotalOutcomes:      totalOutcomes,
		OutcomeTypes:       outcomeTypes,
		OutcomesPerHour:    outcomesPerHour,
		OutcomesByActivity: outcomesByActivity,
		SuccessRate:        successRate,
	}
}

func buildEfficiencyMetrics(entries []*db.TimeEntry) db.EfficiencyMetrics {
	metrics := db.EfficiencyMetrics{
		// 预留：与上一周期对比后给出 Improving/Declining
		ImprovementTrend: "Stable",
	}
	if len(entries) == 0 {
		return metrics
	}

	totalMinutes := 0
	distractions := 0
	for _, entry := range entries {
		totalMinutes += entry.DurationMinutes
		distractions += entry.Distractions
	}

	// 参与分析的条目都已完成，完成率恒为 100
	metrics.TaskCompletionRate = 100
	metrics.AverageTaskDuration = round2(float64(totalMinutes) / float64(len(entries)))
	metrics.DistractionRate = round2(100 * float64(distractions) / float64(len(entries)))
	return metrics
}

type hourlyAccumulator struct {
	sum   int
	count int
}

func (a *hourlyAccumulator) add(productivity int) {
	a.sum += productivity
	a.count++
}

func (a *hourlyAccumulator) mean() float64 {
	if a.count == 0 {
		return 0
	}
	return float64(a.sum) / float64(a.count)
}

// hourLabel 将小时数映射为固定的展示名称（0→Midnight … 23→11 PM）。
func hourLabel(hour int) string {
	switch {
	case hour == 0:
		return "Midnight"
	case hour == 12:
		return "Noon"
	case hour < 12:
		return fmt.Sprintf("%d AM", hour)
	default:
		return fmt.Sprintf("%d PM", hour-12)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
