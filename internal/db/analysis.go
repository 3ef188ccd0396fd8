package db

import (
	"time"

	"gorm.io/gorm"
)

// 报告周期类型。
const (
	PeriodDaily     = "daily"
	PeriodWeekly    = "weekly"
	PeriodMonthly   = "monthly"
	PeriodQuarterly = "quarterly"
	PeriodCustom    = "custom"
)

// ValidPeriodTypes 是允许的周期类型集合。
var ValidPeriodTypes = map[string]bool{
	PeriodDaily:     true,
	PeriodWeekly:    true,
	PeriodMonthly:   true,
	PeriodQuarterly: true,
	PeriodCustom:    true,
}

// 倦怠风险等级。
const (
	RiskLow      = "Low"
	RiskModerate = "Moderate"
	RiskHigh     = "High"
	RiskCritical = "Critical"
)

// TopActivity 描述时间投入排名前列的活动。
type TopActivity struct {
	Activity   string  `json:"activity"`
	Minutes    int     `json:"minutes"`
	Hours      float64 `json:"hours"`
	Percentage float64 `json:"percentage"`
}

// TimeInvestment 汇总周期内的时间投入分布。
type TimeInvestment struct {
	TotalHours        float64        `json:"total_hours"`
	ProductiveHours   float64        `json:"productive_hours"`
	BreakHours        float64        `json:"break_hours"`
	ActivityBreakdown map[string]int `json:"activity_breakdown"`
	TopActivities     []TopActivity  `json:"top_activities"`
}

// WorkingHours 表示建议工作时段（24 小时制小时数）。
type WorkingHours struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ProductivityMetrics 汇总周期内的效率指标。
type ProductivityMetrics struct {
	AverageProductivity  float64      `json:"average_productivity"`
	PeakProductivityTime string       `json:"peak_productivity_time"`
	OptimalWorkingHours  WorkingHours `json:"optimal_working_hours"`
	ConsistencyScore     int          `json:"consistency_score"`
	FocusScore           int          `json:"focus_score"`
	EfficiencyRating     string       `json:"efficiency_rating"`
}

// HourlyProductivity 描述某一小时的平均效率与样本数。
type HourlyProductivity struct {
	Hour                int     `json:"hour"`
	AverageProductivity float64 `json:"average_productivity"`
	EntryCount          int     `json:"entry_count"`
}

// ActivityPerformance 描述某活动的平均效率与成果数。
type ActivityPerformance struct {
	Activity            string  `json:"activity"`
	AverageProductivity float64 `json:"average_productivity"`
	TotalOutcomes       int     `json:"total_outcomes"`
}

// Correlations 是固定的描述性相关结论，不做统计计算。
type Correlations struct {
	EnergyProductivity string `json:"energy_productivity"`
	FocusProductivity  string `json:"focus_productivity"`
	TimeOfDay          string `json:"time_of_day"`
}

// PerformancePatterns 汇总周期内的表现模式。
type PerformancePatterns struct {
	EnergyDistribution       map[string]int        `json:"energy_distribution"`
	FocusDistribution        map[string]int        `json:"focus_distribution"`
	ProductivityByWeekday    map[string]float64    `json:"productivity_by_weekday"`
	ProductivityByTimeOfDay  []HourlyProductivity  `json:"productivity_by_time_of_day"`
	BestPerformingActivities []ActivityPerformance `json:"best_performing_activities"`
	Correlations             Correlations          `json:"correlations"`
}

// OutcomeAnalysis 汇总周期内的成果产出。
// SuccessRate 按条目均摊成果数折算，单条目多成果时会超过 100，保持原样存储。
type OutcomeAnalysis struct {
	TotalOutcomes      int            `json:"total_outcomes"`
	OutcomeTypes       map[string]int `json:"outcome_types"`
	OutcomesPerHour    float64        `json:"outcomes_per_hour"`
	OutcomesByActivity map[string]int `json:"outcomes_by_activity"`
	SuccessRate        int            `json:"success_rate"`
}

// EfficiencyMetrics 汇总周期内的执行效率。
type EfficiencyMetrics struct {
	TaskCompletionRate  int     `json:"task_completion_rate"`
	AverageTaskDuration float64 `json:"average_task_duration"`
	DistractionRate     float64 `json:"distraction_rate"`
	ImprovementTrend    string  `json:"improvement_trend"`
}

// BreakFrequency 描述休息是否充足及对应建议。
type BreakFrequency struct {
	Adequate       bool   `json:"adequate"`
	Recommendation string `json:"recommendation"`
}

// BurnoutIndicators 是倦怠风险检测的输出。
type BurnoutIndicators struct {
	RiskLevel           string         `json:"risk_level"`
	Warnings            []string       `json:"warnings"`
	AvgDailyHours       float64        `json:"avg_daily_hours"`
	BreakRatio          float64        `json:"break_ratio"`
	LowEnergyPercentage float64        `json:"low_energy_percentage"`
	ConsecutiveWorkDays int            `json:"consecutive_work_days"`
	WorkloadBalance     string         `json:"workload_balance"`
	EnergyTrend         string         `json:"energy_trend"`
	BreakFrequency      BreakFrequency `json:"break_frequency"`
}

// Recommendation 是外部 AI 协作方生成的改进建议。
type Recommendation struct {
	Category       string   `json:"category"`
	Priority       string   `json:"priority"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	ExpectedImpact string   `json:"expected_impact"`
	ActionItems    []string `json:"action_items"`
}

// ProductivityAnalysis 是一次生成的周期分析报告快照。
// 生成后不可变，唯一允许的后续写入是补充 Recommendations。
// 同一用户允许存在区间重叠的多份报告，每次生成都是新快照。
type ProductivityAnalysis struct {
	gorm.Model
	ReportCode          string `gorm:"size:36;uniqueIndex"`
	UserID              uint   `gorm:"index"`
	PeriodType          string `gorm:"size:16;index"`
	StartDate           time.Time
	EndDate             time.Time
	TimeInvestment      TimeInvestment      `gorm:"serializer:json"`
	ProductivityMetrics ProductivityMetrics `gorm:"serializer:json"`
	PerformancePatterns PerformancePatterns `gorm:"serializer:json"`
	OutcomeAnalysis     OutcomeAnalysis     `gorm:"serializer:json"`
	EfficiencyMetrics   EfficiencyMetrics   `gorm:"serializer:json"`
	BurnoutIndicators   BurnoutIndicators   `gorm:"serializer:json"`
	Recommendations     []Recommendation    `gorm:"serializer:json"`
}

// TableName 指定自定义表名。
func (ProductivityAnalysis) TableName() string {
	return "productivity_analyses"
}
