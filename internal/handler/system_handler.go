package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/huntlog/internal/service"
)

type settingsPayload struct {
	AIProvider             string `json:"ai_provider"`
	OpenAIAPIKey           string `json:"openai_api_key"`
	DeepSeekAPIKey         string `json:"deepseek_api_key"`
	AIRecommendationPrompt string `json:"ai_recommendation_prompt"`
}

type testConnectionPayload struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
}

// maskAPIKey 只回显 Key 的尾部 4 位，避免完整密钥出现在响应里。
func maskAPIKey(key string) string {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return "****"
	}
	return "****" + trimmed[len(trimmed)-4:]
}

// GetSettings 返回系统设置，密钥做掩码处理。
func (a *API) GetSettings(c *gin.Context) {
	settings, err := a.system.GetSettings()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取系统设置失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ai_provider":              settings.AIProvider,
		"openai_api_key":           maskAPIKey(settings.OpenAIAPIKey),
		"deepseek_api_key":         maskAPIKey(settings.DeepSeekAPIKey),
		"ai_recommendation_prompt": settings.AIRecommendationPrompt,
	})
}

// UpdateSettings 保存系统设置。
func (a *API) UpdateSettings(c *gin.Context) {
	var payload settingsPayload
	if !bindJSON(c, &payload, "请求体格式错误") {
		return
	}

	settings, err := a.system.UpdateSettings(service.SystemSettingsInput{
		AIProvider:             payload.AIProvider,
		OpenAIAPIKey:           payload.OpenAIAPIKey,
		DeepSeekAPIKey:         payload.DeepSeekAPIKey,
		AIRecommendationPrompt: payload.AIRecommendationPrompt,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "保存系统设置失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ai_provider":              settings.AIProvider,
		"openai_api_key":           maskAPIKey(settings.OpenAIAPIKey),
		"deepseek_api_key":         maskAPIKey(settings.DeepSeekAPIKey),
		"ai_recommendation_prompt": settings.AIRecommendationPrompt,
	})
}

// TestAIConnection 验证 AI 平台密钥是否可用。
func (a *API) TestAIConnection(c *gin.Context) {
	var payload testConnectionPayload
	if !bindJSON(c, &payload, "请求体格式错误") {
		return
	}

	err := a.system.TestAIConnection(c.Request.Context(), payload.Provider, payload.APIKey)
	if err != nil {
		if errors.Is(err, service.ErrAIAPIKeyMissing) {
			respondError(c, http.StatusBadRequest, "请先填写 API Key")
			return
		}
		respondError(c, http.StatusBadGateway, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "连接正常"})
}
