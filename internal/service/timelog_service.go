package service

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/huntlog/internal/cache"
	"github.com/huntlog/internal/db"
)

var (
	// ErrEntryNotFound 在指定条目不存在于当日日志时返回
	ErrEntryNotFound = errors.New("time entry not found")
	// ErrInvalidEntry 在条目字段未通过校验时返回，任何状态都不会写入
	ErrInvalidEntry = errors.New("invalid time entry")
)

// TimeLogService 负责按 (用户, 自然日) 维护时间日志及其派生的日汇总
// 每次条目变动都会基于全部完成条目整体重算汇总，单日条目数量很小，
// 不做增量维护；同一日志的并发写入按后写覆盖处理
type TimeLogService struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewTimeLogService 构造 TimeLogService，cache 可为 nil。
func NewTimeLogService(gdb *gorm.DB, c *cache.Cache) *TimeLogService {
	return &TimeLogService{db: gdb, cache: c}
}

// EntryInput 定义新建条目时可配置字段。
type EntryInput struct {
	Activity       string
	CustomActivity string
	StartTime      time.Time
	EndTime        *time.Time
	EnergyLevel    string
	FocusQuality   string
	Distractions   int
	Productivity   *int
	Outcomes       []db.Outcome
	JobID          *uint
	ApplicationID  *uint
	GoalID         *uint
}

// EntryPatch 定义更新条目时的可选字段，nil 表示保持原值。
type EntryPatch struct {
	Activity       *string
	CustomActivity *string
	StartTime      *time.Time
	EndTime        *time.Time
	EnergyLevel    *string
	FocusQuality   *string
	Distractions   *int
	Productivity   *int
	Outcomes       *[]db.Outcome
	JobID          *uint
	ApplicationID  *uint
	GoalID         *uint
}

// StatsResult 是面向仪表盘的轻量区间汇总，只依赖各日志的日汇总。
type StatsResult struct {
	TotalHours          float64        `json:"total_hours"`
	ProductiveHours     float64        `json:"productive_hours"`
	AverageHoursPerDay  float64        `json:"average_hours_per_day"`
	AverageProductivity float64        `json:"average_productivity"`
	TotalOutcomes       int            `json:"total_outcomes"`
	ActivityTotals      map[string]int `json:"activity_totals"`
	DaysTracked         int            `json:"days_tracked"`
}

// UpsertDayLog 取出某用户某日的日志，不存在则惰性创建空日志。
func (s *TimeLogService) UpsertDayLog(userID uint, date time.Time) (*db.TimeEntryLog, error) {
	logDate := normalizeToDate(date)

	record := db.TimeEntryLog{UserID: userID, LogDate: logDate}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "log_date"}},
		DoNothing: true,
	}).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("upsert day log: %w", err)
	}

	return s.loadDayLog(userID, logDate)
}

// AddEntry 校验并追加一条时间条目，随后整体重算日汇总。
func (s *TimeLogService) AddEntry(userID uint, date time.Time, input EntryInput) (*db.TimeEntryLog, error) {
	if err := validateEntryInput(input); err != nil {
		return nil, err
	}

	logDate := normalizeToDate(date)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		record := db.TimeEntryLog{UserID: userID, LogDate: logDate}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "log_date"}},
			DoNothing: true,
		}).Create(&record).Error; err != nil {
			return fmt.Errorf("upsert day log: %w", err)
		}
		if record.ID == 0 {
			if err := tx.Where("user_id = ? AND log_date = ?", userID, logDate).First(&record).Error; err != nil {
				return fmt.Errorf("reload day log: %w", err)
			}
		}

		entry := db.TimeEntry{
			LogID:          record.ID,
			Activity:       input.Activity,
			CustomActivity: strings.TrimSpace(input.CustomActivity),
			StartTime:      input.StartTime,
			EndTime:        input.EndTime,
			EnergyLevel:    input.EnergyLevel,
			FocusQuality:   input.FocusQuality,
			Distractions:   input.Distractions,
			Productivity:   input.Productivity,
			Outcomes:       input.Outcomes,
			JobID:          input.JobID,
			ApplicationID:  input.ApplicationID,
			GoalID:         input.GoalID,
		}
		entry.DurationMinutes = durationMinutes(entry.StartTime, entry.EndTime)

		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("create time entry: %w", err)
		}

		return s.recomputeSummary(tx, &record)
	})
	if err != nil {
		return nil, err
	}

	s.bumpStatsGeneration(userID)
	return s.loadDayLog(userID, logDate)
}

// UpdateEntry 将补丁字段合并进条目；时间戳变化时重算时长，随后整体重算日汇总。
func (s *TimeLogService) UpdateEntry(userID uint, date time.Time, entryID uint, patch EntryPatch) (*db.TimeEntryLog, error) {
	logDate := normalizeToDate(date)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		record, entry, err := s.findEntry(tx, userID, logDate, entryID)
		if err != nil {
			return err
		}

		applyPatch(entry, patch)
		entry.DurationMinutes = durationMinutes(entry.StartTime, entry.EndTime)

		if err := validateEntry(entry); err != nil {
			return err
		}

		if err := tx.Save(entry).Error; err != nil {
			return fmt.Errorf("update time entry: %w", err)
		}

		return s.recomputeSummary(tx, record)
	})
	if err != nil {
		return nil, err
	}

	s.bumpStatsGeneration(userID)
	return s.loadDayLog(userID, logDate)
}

// StopEntry 结束一条进行中的条目，结束时间取 at，并重算时长与日汇总。
func (s *TimeLogService) StopEntry(userID uint, date time.Time, entryID uint, at time.Time) (*db.TimeEntryLog, error) {
	logDate := normalizeToDate(date)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		record, entry, err := s.findEntry(tx, userID, logDate, entryID)
		if err != nil {
			return err
		}

		if entry.Completed() {
			return fmt.Errorf("%w: entry already completed", ErrInvalidEntry)
		}
		if at.Before(entry.StartTime) {
			return fmt.Errorf("%w: end time before start time", ErrInvalidEntry)
		}

		entry.EndTime = &at
		entry.DurationMinutes = durationMinutes(entry.StartTime, entry.EndTime)

		if err := tx.Save(entry).Error; err != nil {
			return fmt.Errorf("stop time entry: %w", err)
		}

		return s.recomputeSummary(tx, record)
	})
	if err != nil {
		return nil, err
	}

	s.bumpStatsGeneration(userID)
	return s.loadDayLog(userID, logDate)
}

// DeleteEntry 删除条目并重算日汇总；日志行本身保留，即使已无任何条目。
func (s *TimeLogService) DeleteEntry(userID uint, date time.Time, entryID uint) (*db.TimeEntryLog, error) {
	logDate := normalizeToDate(date)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		record, entry, err := s.findEntry(tx, userID, logDate, entryID)
		if err != nil {
			return err
		}

		if err := tx.Unscoped().Delete(entry).Error; err != nil {
			return fmt.Errorf("delete time entry: %w", err)
		}

		return s.recomputeSummary(tx, record)
	})
	if err != nil {
		return nil, err
	}

	s.bumpStatsGeneration(userID)
	return s.loadDayLog(userID, logDate)
}

// LogsBetween 返回区间内的全部日志（含条目），按日期升序。
func (s *TimeLogService) LogsBetween(userID uint, start, end time.Time) ([]db.TimeEntryLog, error) {
	var logs []db.TimeEntryLog
	if err := s.db.Preload("Entries").
		Where("user_id = ?", userID).
		Where("log_date BETWEEN ? AND ?", normalizeToDate(start), normalizeToDate(end)).
		Order("log_date ASC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list day logs: %w", err)
	}
	return logs, nil
}

// StatsBetween 折叠区间内各日志的日汇总，产出仪表盘用的轻量统计。
// 结果按用户级代号做短 TTL 缓存，任何条目变动都会使旧代号失效。
func (s *TimeLogService) StatsBetween(userID uint, start, end time.Time) (*StatsResult, error) {
	key := s.statsCacheKey(userID, start, end)
	if cached, ok := s.cache.Get(key); ok {
		if stats, ok := cached.(*StatsResult); ok {
			return stats, nil
		}
	}

	var logs []db.TimeEntryLog
	if err := s.db.
		Where("user_id = ?", userID).
		Where("log_date BETWEEN ? AND ?", normalizeToDate(start), normalizeToDate(end)).
		Order("log_date ASC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("load day logs: %w", err)
	}

	stats := &StatsResult{ActivityTotals: make(map[string]int)}
	var productivitySum float64

	for i := range logs {
		summary := logs[i].Summary
		if summary == nil {
			continue
		}
		stats.DaysTracked++
		stats.TotalHours += summary.TotalHours
		stats.ProductiveHours += summary.ProductiveHours
		stats.TotalOutcomes += summary.TotalOutcomes
		productivitySum += summary.AverageProductivity
		for activity, minutes := range summary.ActivityBreakdown {
			stats.ActivityTotals[activity] += minutes
		}
	}

	if stats.DaysTracked > 0 {
		stats.AverageHoursPerDay = round2(stats.TotalHours / float64(stats.DaysTracked))
		stats.AverageProductivity = round1(productivitySum / float64(stats.DaysTracked))
	}
	stats.TotalHours = round2(stats.TotalHours)
	stats.ProductiveHours = round2(stats.ProductiveHours)

	s.cache.Set(key, stats, 1)
	return stats, nil
}

func (s *TimeLogService) loadDayLog(userID uint, logDate time.Time) (*db.TimeEntryLog, error) {
	var record db.TimeEntryLog
	if err := s.db.Preload("Entries", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("start_time ASC, id ASC")
	}).Where("user_id = ? AND log_date = ?", userID, logDate).First(&record).Error; err != nil {
		return nil, fmt.Errorf("load day log: %w", err)
	}
	return &record, nil
}

func (s *TimeLogService) findEntry(tx *gorm.DB, userID uint, logDate time.Time, entryID uint) (*db.TimeEntryLog, *db.TimeEntry, error) {
	var record db.TimeEntryLog
	if err := tx.Where("user_id = ? AND log_date = ?", userID, logDate).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrEntryNotFound
		}
		return nil, nil, fmt.Errorf("find day log: %w", err)
	}

	var entry db.TimeEntry
	if err := tx.Where("log_id = ? AND id = ?", record.ID, entryID).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrEntryNotFound
		}
		return nil, nil, fmt.Errorf("find time entry: %w", err)
	}

	return &record, &entry, nil
}

// recomputeSummary 基于日志的全部条目重建日汇总并保存。
func (s *TimeLogService) recomputeSummary(tx *gorm.DB, record *db.TimeEntryLog) error {
	var entries []db.TimeEntry
	if err := tx.Where("log_id = ?", record.ID).Find(&entries).Error; err != nil {
		return fmt.Errorf("load entries: %w", err)
	}

	record.Summary = BuildDailySummary(entries)
	if err := tx.Save(record).Error; err != nil {
		return fmt.Errorf("save daily summary: %w", err)
	}
	return nil
}

func (s *TimeLogService) statsCacheKey(userID uint, start, end time.Time) string {
	return fmt.Sprintf("stats:%d:%d:%s:%s",
		userID, s.statsGeneration(userID),
		normalizeToDate(start).Format(dateKeyFormat),
		normalizeToDate(end).Format(dateKeyFormat))
}

func (s *TimeLogService) statsGeneration(userID uint) uint64 {
	if cached, ok := s.cache.Get(statsGenKey(userID)); ok {
		if gen, ok := cached.(uint64); ok {
			return gen
		}
	}
	return 0
}

// bumpStatsGeneration 使该用户的全部统计缓存键失效。
func (s *TimeLogService) bumpStatsGeneration(userID uint) {
	s.cache.SetForever(statsGenKey(userID), s.statsGeneration(userID)+1, 1)
}

func statsGenKey(userID uint) string {
	return fmt.Sprintf("stats:gen:%d", userID)
}

const dateKeyFormat = "2006-01-02"

func validateEntryInput(input EntryInput) error {
	if !db.ValidActivities[input.Activity] {
		return fmt.Errorf("%w: unknown activity %q", ErrInvalidEntry, input.Activity)
	}
	if input.StartTime.IsZero() {
		return fmt.Errorf("%w: start time is required", ErrInvalidEntry)
	}
	if input.EndTime != nil && input.EndTime.Before(input.StartTime) {
		return fmt.Errorf("%w: end time before start time", ErrInvalidEntry)
	}
	if input.Productivity != nil && (*input.Productivity < 1 || *input.Productivity > 10) {
		return fmt.Errorf("%w: productivity must be between 1 and 10", ErrInvalidEntry)
	}
	if input.EnergyLevel != "" && db.EnergyOrdinal(input.EnergyLevel) == 0 {
		return fmt.Errorf("%w: unknown energy level %q", ErrInvalidEntry, input.EnergyLevel)
	}
	if input.FocusQuality != "" && db.FocusOrdinal(input.FocusQuality) == 0 {
		return fmt.Errorf("%w: unknown focus quality %q", ErrInvalidEntry, input.FocusQuality)
	}
	if input.Distractions < 0 {
		return fmt.Errorf("%w: distractions must not be negative", ErrInvalidEntry)
	}
	for _, outcome := range input.Outcomes {
		if !db.ValidOutcomeTypes[outcome.Type] {
			return fmt.Errorf("%w: unknown outcome type %q", ErrInvalidEntry, outcome.Type)
		}
	}
	return nil
}

func validateEntry(entry *db.TimeEntry) error {
	return validateEntryInput(EntryInput{
		Activity:     entry.Activity,
		StartTime:    entry.StartTime,
		EndTime:      entry.EndTime,
		EnergyLevel:  entry.EnergyLevel,
		FocusQuality: entry.FocusQuality,
		Distractions: entry.Distractions,
		Productivity: entry.Productivity,
		Outcomes:     entry.Outcomes,
	})
}

func applyPatch(entry *db.TimeEntry, patch EntryPatch) {
	if patch.Activity != nil {
		entry.Activity = *patch.Activity
	}
	if patch.CustomActivity != nil {
		entry.CustomActivity = strings.TrimSpace(*patch.CustomActivity)
	}
	if patch.StartTime != nil {
		entry.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		entry.EndTime = patch.EndTime
	}
	if patch.EnergyLevel != nil {
		entry.EnergyLevel = *patch.EnergyLevel
	}
	if patch.FocusQuality != nil {
		entry.FocusQuality = *patch.FocusQuality
	}
	if patch.Distractions != nil {
		entry.Distractions = *patch.Distractions
	}
	if patch.Productivity != nil {
		entry.Productivity = patch.Productivity
	}
	if patch.Outcomes != nil {
		entry.Outcomes = *patch.Outcomes
	}
	if patch.JobID != nil {
		entry.JobID = patch.JobID
	}
	if patch.ApplicationID != nil {
		entry.ApplicationID = patch.ApplicationID
	}
	if patch.GoalID != nil {
		entry.GoalID = patch.GoalID
	}
}

// durationMinutes 由起止时间推导条目时长，开放条目时长记 0。
func durationMinutes(start time.Time, end *time.Time) int {
	if end == nil || start.IsZero() {
		return 0
	}
	return int(math.Round(end.Sub(start).Minutes()))
}

func normalizeToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
