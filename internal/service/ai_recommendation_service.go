package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/huntlog/internal/db"
)

// RecommendationInput 描述生成改进建议所需的上下文。
type RecommendationInput struct {
	Analysis *db.ProductivityAnalysis
	Goals    []db.Goal
}

// RecommendationGenerator 定义建议生成能力，便于在业务层注入不同实现。
type RecommendationGenerator interface {
	GenerateRecommendations(ctx context.Context, input RecommendationInput) ([]db.Recommendation, error)
}

const (
	defaultOpenAIRecommendationModel   = "gpt-4o-mini"
	defaultDeepSeekRecommendationModel = "deepseek-chat"
	defaultRecommendationMaxTokens     = 1200
	defaultRecommendationTemperature   = 0.4
	maxRecommendationCount             = 8
)

const defaultRecommendationSystemPrompt = `You are a career coach reviewing a job seeker's weekly productivity report. ` +
	`Based on the report figures and the active goals, produce practical recommendations. ` +
	`Respond with a JSON array only, no prose. Each element must have the fields ` +
	`"category", "priority" (low/medium/high), "title", "description", ` +
	`"expected_impact" and "action_items" (array of short strings).`

// AIRecommendationService 基于大模型接口为分析报告生成改进建议。
// 模型输出在入库前统一经过 bluemonday 严格策略清洗。
type AIRecommendationService struct {
	client    *aiChatClient
	sanitizer *bluemonday.Policy
}

// NewAIRecommendationService 构造默认的 AIRecommendationService。
func NewAIRecommendationService(settings *SystemSettingService) *AIRecommendationService {
	return &AIRecommendationService{
		client:    newAIChatClient(settings, defaultOpenAIRecommendationModel, defaultDeepSeekRecommendationModel),
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// SetHTTPClient 覆盖默认 HTTP 客户端，主要用于测试。
func (s *AIRecommendationService) SetHTTPClient(client httpDoer) {
	s.client.SetHTTPClient(client)
}

// SetOpenAIBaseURL 覆盖默认的 OpenAI API 地址。
func (s *AIRecommendationService) SetOpenAIBaseURL(base string) {
	s.client.SetOpenAIBaseURL(base)
}

// SetDeepSeekBaseURL 覆盖默认的 DeepSeek API 地址。
func (s *AIRecommendationService) SetDeepSeekBaseURL(base string) {
	s.client.SetDeepSeekBaseURL(base)
}

// SetOpenAIModel 指定 OpenAI 所使用的模型名称。
func (s *AIRecommendationService) SetOpenAIModel(model string) {
	s.client.SetOpenAIModel(model)
}

// SetDeepSeekModel 指定 DeepSeek 所使用的模型名称。
func (s *AIRecommendationService) SetDeepSeekModel(model string) {
	s.client.SetDeepSeekModel(model)
}

// GenerateRecommendations 调用当前配置的 AI 平台生成建议列表。
// 未配置 API Key 时返回 ErrAIAPIKeyMissing，由调用方决定是否降级。
func (s *AIRecommendationService) GenerateRecommendations(ctx context.Context, input RecommendationInput) ([]db.Recommendation, error) {
	if input.Analysis == nil {
		return nil, fmt.Errorf("analysis is required")
	}

	userPrompt := buildRecommendationPrompt(input)
	logAIExchange("RECOMMEND", "prompt", userPrompt)

	settings, err := s.client.settings.GetSettings()
	if err != nil {
		return nil, fmt.Errorf("读取系统设置失败: %w", err)
	}

	systemPrompt := strings.TrimSpace(settings.AIRecommendationPrompt)
	if systemPrompt == "" {
		systemPrompt = defaultRecommendationSystemPrompt
	}

	result, err := s.client.callWithSettings(ctx, settings, aiChatRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		MaxTokens:    defaultRecommendationMaxTokens,
		Temperature:  defaultRecommendationTemperature,
	})
	if err != nil {
		return nil, err
	}
	logAIExchange("RECOMMEND", "response", result.Content)

	recommendations, err := parseRecommendations(result.Content)
	if err != nil {
		return nil, err
	}

	for i := range recommendations {
		s.sanitizeRecommendation(&recommendations[i])
	}
	return recommendations, nil
}

// buildRecommendationPrompt 把报告关键数字与活跃目标拼为用户提示词。
func buildRecommendationPrompt(input RecommendationInput) string {
	analysis := input.Analysis
	var builder strings.Builder

	fmt.Fprintf(&builder, "Report period: %s (%s to %s)\n",
		analysis.PeriodType,
		analysis.StartDate.Format(dateKeyFormat),
		analysis.EndDate.Format(dateKeyFormat))
	fmt.Fprintf(&builder, "Total hours: %.2f (productive %.2f, breaks %.2f)\n",
		analysis.TimeInvestment.TotalHours,
		analysis.TimeInvestment.ProductiveHours,
		analysis.TimeInvestment.BreakHours)
	fmt.Fprintf(&builder, "Average productivity: %.1f/10, efficiency rating: %s\n",
		analysis.ProductivityMetrics.AverageProductivity,
		analysis.ProductivityMetrics.EfficiencyRating)
	fmt.Fprintf(&builder, "Consistency score: %d, focus score: %d\n",
		analysis.ProductivityMetrics.ConsistencyScore,
		analysis.ProductivityMetrics.FocusScore)
	fmt.Fprintf(&builder, "Outcomes: %d total, %.2f per hour\n",
		analysis.OutcomeAnalysis.TotalOutcomes,
		analysis.OutcomeAnalysis.OutcomesPerHour)
	fmt.Fprintf(&builder, "Burnout risk: %s (avg %.2f h/day, %d consecutive work days)\n",
		analysis.BurnoutIndicators.RiskLevel,
		analysis.BurnoutIndicators.AvgDailyHours,
		analysis.BurnoutIndicators.ConsecutiveWorkDays)
	for _, warning := range analysis.BurnoutIndicators.Warnings {
		fmt.Fprintf(&builder, "Warning: %s\n", warning)
	}

	if len(analysis.TimeInvestment.TopActivities) > 0 {
		builder.WriteString("Top activities:\n")
		for _, activity := range analysis.TimeInvestment.TopActivities {
			fmt.Fprintf(&builder, "- %s: %.2f h (%.1f%%)\n", activity.Activity, activity.Hours, activity.Percentage)
		}
	}

	if len(input.Goals) > 0 {
		builder.WriteString("Active goals:\n")
		for _, goal := range input.Goals {
			fmt.Fprintf(&builder, "- %s (%s, %d%% done)\n", goal.Title, goal.Category, goal.Progress)
		}
	}

	return builder.String()
}

// parseRecommendations 解析模型返回的 JSON 数组，容忍 markdown 代码块包裹。
func parseRecommendations(content string) ([]db.Recommendation, error) {
	trimmed := strings.TrimSpace(content)
	if after, found := strings.CutPrefix(trimmed, "```json"); found {
		trimmed = after
	} else if after, found := strings.CutPrefix(trimmed, "```"); found {
		trimmed = after
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	trimmed = strings.TrimSpace(trimmed)

	var recommendations []db.Recommendation
	if err := json.Unmarshal([]byte(trimmed), &recommendations); err != nil {
		return nil, fmt.Errorf("解析建议 JSON 失败: %w", err)
	}

	if len(recommendations) > maxRecommendationCount {
		recommendations = recommendations[:maxRecommendationCount]
	}
	return recommendations, nil
}

func (s *AIRecommendationService) sanitizeRecommendation(rec *db.Recommendation) {
	rec.Category = s.sanitizeLine(rec.Category)
	rec.Priority = normalizePriority(rec.Priority)
	rec.Title = s.sanitizeLine(rec.Title)
	rec.Description = s.sanitizeLine(rec.Description)
	rec.ExpectedImpact = s.sanitizeLine(rec.ExpectedImpact)
	items := rec.ActionItems[:0]
	for _, item := range rec.ActionItems {
		if cleaned := s.sanitizeLine(item); cleaned != "" {
			items = append(items, cleaned)
		}
	}
	rec.ActionItems = items
}

func (s *AIRecommendationService) sanitizeLine(value string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(value))
}

func normalizePriority(priority string) string {
	switch strings.TrimSpace(strings.ToLower(priority)) {
	case "low":
		return "low"
	case "high":
		return "high"
	default:
		return "medium"
	}
}
