package db

import (
	"time"

	"gorm.io/gorm"
)

// 活动类型闭集，录入时校验。自定义活动通过 Other + CustomActivity 表达。
const (
	ActivityJobSearch             = "Job Search"
	ActivityResumeWriting         = "Resume Writing"
	ActivityCoverLetterWriting    = "Cover Letter Writing"
	ActivityApplicationSubmission = "Application Submission"
	ActivityNetworking            = "Networking"
	ActivitySkillDevelopment      = "Skill Development"
	ActivityInterviewPreparation  = "Interview Preparation"
	ActivityMockInterviews        = "Mock Interviews"
	ActivityCompanyResearch       = "Company Research"
	ActivityPortfolioWork         = "Portfolio Work"
	ActivityLinkedIn              = "LinkedIn Activity"
	ActivityFollowUps             = "Follow-ups"
	ActivityCareerPlanning        = "Career Planning"
	ActivityBreak                 = "Break"
	ActivityOther                 = "Other"
)

// ValidActivities 是允许的活动类型集合。
var ValidActivities = map[string]bool{
	ActivityJobSearch:             true,
	ActivityResumeWriting:         true,
	ActivityCoverLetterWriting:    true,
	ActivityApplicationSubmission: true,
	ActivityNetworking:            true,
	ActivitySkillDevelopment:      true,
	ActivityInterviewPreparation:  true,
	ActivityMockInterviews:        true,
	ActivityCompanyResearch:       true,
	ActivityPortfolioWork:         true,
	ActivityLinkedIn:              true,
	ActivityFollowUps:             true,
	ActivityCareerPlanning:        true,
	ActivityBreak:                 true,
	ActivityOther:                 true,
}

// 能量等级，序数 1-4。
const (
	EnergyLow    = "Low"
	EnergyMedium = "Medium"
	EnergyHigh   = "High"
	EnergyPeak   = "Peak"
)

// 专注质量，序数 1-4。
const (
	FocusPoor      = "Poor"
	FocusFair      = "Fair"
	FocusGood      = "Good"
	FocusExcellent = "Excellent"
)

// energyLevels/focusQualities 按序数升序排列，索引+1 即序数值。
var (
	energyLevels   = []string{EnergyLow, EnergyMedium, EnergyHigh, EnergyPeak}
	focusQualities = []string{FocusPoor, FocusFair, FocusGood, FocusExcellent}
)

// EnergyOrdinal 返回能量等级的序数（1-4），未知标签返回 0。
func EnergyOrdinal(level string) int {
	return ordinalOf(energyLevels, level)
}

// EnergyLabel 将序数映射回能量标签，越界返回空串。
func EnergyLabel(ordinal int) string {
	return labelOf(energyLevels, ordinal)
}

// FocusOrdinal 返回专注质量的序数（1-4），未知标签返回 0。
func FocusOrdinal(quality string) int {
	return ordinalOf(focusQualities, quality)
}

// FocusLabel 将序数映射回专注标签，越界返回空串。
func FocusLabel(ordinal int) string {
	return labelOf(focusQualities, ordinal)
}

func ordinalOf(scale []string, label string) int {
	for i, candidate := range scale {
		if candidate == label {
			return i + 1
		}
	}
	return 0
}

func labelOf(scale []string, ordinal int) string {
	if ordinal < 1 || ordinal > len(scale) {
		return ""
	}
	return scale[ordinal-1]
}

// 成果类型闭集。
const (
	OutcomeApplicationSent    = "Application Sent"
	OutcomeInterviewScheduled = "Interview Scheduled"
	OutcomeResponseReceived   = "Response Received"
	OutcomeConnectionMade     = "Connection Made"
	OutcomeReferralObtained   = "Referral Obtained"
	OutcomeSkillLearned       = "Skill Learned"
	OutcomeTaskCompleted      = "Task Completed"
	OutcomeOfferReceived      = "Offer Received"
	OutcomeOther              = "Other"
)

// ValidOutcomeTypes 是允许的成果类型集合。
var ValidOutcomeTypes = map[string]bool{
	OutcomeApplicationSent:    true,
	OutcomeInterviewScheduled: true,
	OutcomeResponseReceived:   true,
	OutcomeConnectionMade:     true,
	OutcomeReferralObtained:   true,
	OutcomeSkillLearned:       true,
	OutcomeTaskCompleted:      true,
	OutcomeOfferReceived:      true,
	OutcomeOther:              true,
}

// Outcome 描述一次时间块中产出的具体成果。
type Outcome struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// TimeEntry 记录一段活动时间块。
// EndTime 为空表示仍在进行中，只有结束后的条目才参与汇总。
// DurationMinutes 永远由 StartTime/EndTime 推导，不接受外部赋值。
// JobID/ApplicationID/GoalID 为弱引用，仅用于展示关联，不参与聚合。
type TimeEntry struct {
	gorm.Model
	LogID           uint   `gorm:"index"`
	Activity        string `gorm:"size:64"`
	CustomActivity  string `gorm:"size:128"`
	StartTime       time.Time
	EndTime         *time.Time
	DurationMinutes int
	EnergyLevel     string `gorm:"size:16"`
	FocusQuality    string `gorm:"size:16"`
	Distractions    int
	Productivity    *int
	Outcomes        []Outcome `gorm:"serializer:json"`
	JobID           *uint
	ApplicationID   *uint
	GoalID          *uint
}

// Completed 返回条目是否已结束。
func (e *TimeEntry) Completed() bool {
	return e.EndTime != nil
}

// ActivityKey 返回聚合使用的活动键：Other 且填写了自定义活动时用自定义名。
func (e *TimeEntry) ActivityKey() string {
	if e.Activity == ActivityOther && e.CustomActivity != "" {
		return e.CustomActivity
	}
	return e.Activity
}

// DailySummary 是单日已完成条目的派生汇总，整体以 JSON 存储在日志行上。
type DailySummary struct {
	TotalHours          float64        `json:"total_hours"`
	ProductiveHours     float64        `json:"productive_hours"`
	BreakHours          float64        `json:"break_hours"`
	AverageEnergy       string         `json:"average_energy"`
	AverageFocus        string         `json:"average_focus"`
	AverageProductivity float64        `json:"average_productivity"`
	TotalOutcomes       int            `json:"total_outcomes"`
	ActivityBreakdown   map[string]int `json:"activity_breakdown"`
}

// TimeEntryLog 是某用户某自然日的时间日志。
// UserID + LogDate 唯一，LogDate 归一化到当日零点。
// Summary 为派生字段，条目每次变动后整体重算；当日无完成条目时保持为空。
type TimeEntryLog struct {
	gorm.Model
	UserID  uint          `gorm:"index;index:idx_time_entry_logs_user_date,unique"`
	LogDate time.Time     `gorm:"index:idx_time_entry_logs_user_date,unique"`
	Entries []TimeEntry   `gorm:"foreignKey:LogID;constraint:OnDelete:CASCADE"`
	Summary *DailySummary `gorm:"serializer:json"`
}

// TableName 指定表名，保证唯一索引作用在 user_id + log_date。
func (TimeEntryLog) TableName() string {
	return "time_entry_logs"
}
