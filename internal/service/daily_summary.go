package service

import (
	"math"

	"github.com/huntlog/internal/db"
)

// defaultProductivity 在条目未评分时参与均值计算。
const defaultProductivity = 5

// BuildDailySummary 将一天的条目折叠为日汇总。
// 只统计已完成（EndTime 非空）的条目；当日没有任何完成条目时返回 nil，
// 调用方据此保持日志行上的汇总为空。
func BuildDailySummary(entries []db.TimeEntry) *db.DailySummary {
	var (
		count             int
		totalMinutes      int
		productiveMinutes int
		breakMinutes      int
		energySum         int
		focusSum          int
		productivitySum   int
		outcomeCount      int
	)
	breakdown := make(map[string]int)

	for i := range entries {
		entry := &entries[i]
		if !entry.Completed() {
			continue
		}

		count++
		totalMinutes += entry.DurationMinutes
		if entry.Activity == db.ActivityBreak {
			breakMinutes += entry.DurationMinutes
		} else {
			productiveMinutes += entry.DurationMinutes
		}

		energySum += db.EnergyOrdinal(entry.EnergyLevel)
		focusSum += db.FocusOrdinal(entry.FocusQuality)
		productivitySum += productivityOf(entry)
		outcomeCount += len(entry.Outcomes)
		breakdown[entry.ActivityKey()] += entry.DurationMinutes
	}

	if count == 0 {
		return nil
	}

	return &db.DailySummary{
		TotalHours:          round2(float64(totalMinutes) / 60),
		ProductiveHours:     round2(float64(productiveMinutes) / 60),
		BreakHours:          round2(float64(breakMinutes) / 60),
		AverageEnergy:       db.EnergyLabel(roundInt(float64(energySum) / float64(count))),
		AverageFocus:        db.FocusLabel(roundInt(float64(focusSum) / float64(count))),
		AverageProductivity: round1(float64(productivitySum) / float64(count)),
		TotalOutcomes:       outcomeCount,
		ActivityBreakdown:   breakdown,
	}
}

func productivityOf(entry *db.TimeEntry) int {
	if entry.Productivity == nil {
		return defaultProductivity
	}
	return *entry.Productivity
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func roundInt(v float64) int {
	return int(math.Round(v))
}
