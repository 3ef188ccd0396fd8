package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huntlog/internal/db"
	"github.com/huntlog/internal/service"
)

type generateAnalysisPayload struct {
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	PeriodType string `json:"period_type"`
}

// GenerateAnalysis 对指定区间执行一次周期分析并返回完整报告。
func (a *API) GenerateAnalysis(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "未登录")
		return
	}

	var payload generateAnalysisPayload
	if !bindJSON(c, &payload, "请求体格式错误") {
		return
	}

	start, err := time.Parse(dateFormat, strings.TrimSpace(payload.StartDate))
	if err != nil {
		respondError(c, http.StatusBadRequest, "开始日期格式错误")
		return
	}
	end, err := time.Parse(dateFormat, strings.TrimSpace(payload.EndDate))
	if err != nil {
		respondError(c, http.StatusBadRequest, "结束日期格式错误")
		return
	}
	if end.Before(start) {
		respondError(c, http.StatusBadRequest, "结束日期早于开始日期")
		return
	}

	periodType := strings.TrimSpace(strings.ToLower(payload.PeriodType))
	if periodType == "" {
		periodType = db.PeriodCustom
	}

	report, err := a.analyses.Generate(c.Request.Context(), userID, start, end, periodType)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPeriodType):
			respondError(c, http.StatusBadRequest, "周期类型不合法")
		case errors.Is(err, service.ErrNoTrackingData):
			respondError(c, http.StatusUnprocessableEntity, "该区间内没有时间记录，请先积累数据")
		default:
			respondError(c, http.StatusInternalServerError, "生成分析报告失败")
		}
		return
	}

	c.JSON(http.StatusCreated, analysisToPayload(report))
}

// GetAnalysis 按 ID 返回历史报告快照。
func (a *API) GetAnalysis(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "未登录")
		return
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "报告 ID 格式错误")
		return
	}

	report, err := a.analyses.Get(id)
	if err != nil {
		if errors.Is(err, service.ErrAnalysisNotFound) {
			respondError(c, http.StatusNotFound, "报告不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取报告失败")
		return
	}

	// 报告按用户隔离，避免越权读取
	if report.UserID != userID {
		respondError(c, http.StatusNotFound, "报告不存在")
		return
	}

	c.JSON(http.StatusOK, analysisToPayload(report))
}

// ListAnalyses 返回当前用户的报告列表，支持按周期类型过滤。
func (a *API) ListAnalyses(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "未登录")
		return
	}

	periodType := strings.TrimSpace(strings.ToLower(c.Query("period_type")))
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(c, http.StatusBadRequest, "limit 格式错误")
			return
		}
		limit = parsed
	}

	reports, err := a.analyses.List(userID, periodType, limit)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPeriodType) {
			respondError(c, http.StatusBadRequest, "周期类型不合法")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取报告列表失败")
		return
	}

	items := make([]gin.H, 0, len(reports))
	for i := range reports {
		items = append(items, analysisSummaryPayload(&reports[i]))
	}
	c.JSON(http.StatusOK, gin.H{"analyses": items})
}

func analysisToPayload(report *db.ProductivityAnalysis) gin.H {
	return gin.H{
		"id":                   report.ID,
		"report_code":          report.ReportCode,
		"period_type":          report.PeriodType,
		"start_date":           report.StartDate.Format(dateFormat),
		"end_date":             report.EndDate.Format(dateFormat),
		"generated_at":         report.CreatedAt.Format(time.RFC3339),
		"time_investment":      report.TimeInvestment,
		"productivity_metrics": report.ProductivityMetrics,
		"performance_patterns": report.PerformancePatterns,
		"outcome_analysis":     report.OutcomeAnalysis,
		"efficiency_metrics":   report.EfficiencyMetrics,
		"burnout_indicators":   report.BurnoutIndicators,
		"recommendations":      report.Recommendations,
	}
}

func analysisSummaryPayload(report *db.ProductivityAnalysis) gin.H {
	return gin.H{
		"id":           report.ID,
		"report_code":  report.ReportCode,
		"period_type":  report.PeriodType,
		"start_date":   report.StartDate.Format(dateFormat),
		"end_date":     report.EndDate.Format(dateFormat),
		"generated_at": report.CreatedAt.Format(time.RFC3339),
		"risk_level":   report.BurnoutIndicators.RiskLevel,
		"total_hours":  report.TimeInvestment.TotalHours,
	}
}
