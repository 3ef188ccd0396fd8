package service

import (
	"github.com/huntlog/internal/db"
)

// 倦怠规则触发时写入报告的警告文案。
const (
	warningOverwork           = "Overwork: averaging more than 10 hours of tracked work per day"
	warningHighWorkload       = "High Workload: averaging more than 8 hours of tracked work per day"
	warningInsufficientBreaks = "Insufficient Breaks: less than 10% of tracked time spent on breaks"
	warningLowEnergy          = "Low Energy Levels: more than 40% of sessions logged at Low energy"
	warningNoRestDays         = "No Rest Days: more than 14 consecutive days without a rest day"
)

const (
	breakRecommendationAdequate = "Break cadence looks healthy, keep taking regular pauses"
	breakRecommendationLacking  = "Schedule a short break after every couple of hours of focused work"
)

// evaluateBurnout 从同一遍扫描产出的日志与条目推导倦怠指标。
//
// 规则按固定顺序逐条求值并直接改写风险等级，不做最大值合并：
// 连续工作天数规则最后求值且无条件覆盖为 High，因此会把此前的
// Critical 改写为 High。
func evaluateBurnout(logs []db.TimeEntryLog, entries []*db.TimeEntry) db.BurnoutIndicators {
	var totalHours, breakHours float64
	consecutive := 0

	for i := range logs {
		summary := logs[i].Summary
		hours := 0.0
		if summary != nil {
			hours = summary.TotalHours
			totalHours += summary.TotalHours
			breakHours += summary.BreakHours
		}
		// 有记录的日子累计连续工作天数，空档日清零；
		// 最终值即截至区间末尾的连续天数
		if hours > 0 {
			consecutive++
		} else {
			consecutive = 0
		}
	}

	avgDailyHours := 0.0
	if len(logs) > 0 {
		avgDailyHours = totalHours / float64(len(logs))
	}

	breakRatio := 0.0
	if totalHours > 0 {
		breakRatio = breakHours / totalHours
	}

	lowEnergy := 0
	energyTagged := 0
	for _, entry := range entries {
		if entry.EnergyLevel == "" {
			continue
		}
		energyTagged++
		if entry.EnergyLevel == db.EnergyLow {
			lowEnergy++
		}
	}
	lowEnergyPercentage := 0.0
	if energyTagged > 0 {
		lowEnergyPercentage = 100 * float64(lowEnergy) / float64(energyTagged)
	}

	risk := db.RiskLow
	var warnings []string

	if avgDailyHours > 10 {
		warnings = append(warnings, warningOverwork)
		risk = db.RiskCritical
	} else if avgDailyHours > 8 {
		warnings = append(warnings, warningHighWorkload)
		if risk == db.RiskLow {
			risk = db.RiskModerate
		}
	}

	if breakRatio < 0.1 && totalHours > 0 {
		warnings = append(warnings, warningInsufficientBreaks)
		if risk == db.RiskLow {
			risk = db.RiskModerate
		}
	}

	if lowEnergyPercentage > 40 {
		warnings = append(warnings, warningLowEnergy)
		if risk == db.RiskLow {
			risk = db.RiskModerate
		}
	}

	if consecutive > 14 {
		warnings = append(warnings, warningNoRestDays)
		risk = db.RiskHigh
	}

	adequate := breakRatio >= 0.1
	recommendation := breakRecommendationLacking
	if adequate {
		recommendation = breakRecommendationAdequate
	}

	return db.BurnoutIndicators{
		RiskLevel:           risk,
		Warnings:            warnings,
		AvgDailyHours:       round2(avgDailyHours),
		BreakRatio:          round2(breakRatio),
		LowEnergyPercentage: round2(lowEnergyPercentage),
		ConsecutiveWorkDays: consecutive,
		WorkloadBalance:     workloadBalance(avgDailyHours),
		EnergyTrend:         energyTrend(lowEnergyPercentage),
		BreakFrequency: db.BreakFrequency{
			Adequate:       adequate,
			Recommendation: recommendation,
		},
	}
}

func workloadBalance(avgDailyHours float64) string {
	switch {
	case avgDailyHours <= 6:
		return "Balanced"
	case avgDailyHours <= 8:
		return "Slightly High"
	case avgDailyHours <= 10:
		return "High"
	default:
		return "Overworked"
	}
}

func energyTrend(lowEnergyPercentage float64) string {
	switch {
	case lowEnergyPercentage < 20:
		return "Stable"
	case lowEnergyPercentage < 35:
		return "Declining"
	default:
		return "Critical"
	}
}
