package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huntlog/internal/db"
	"github.com/huntlog/internal/service"
)

type goalPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	TargetDate  string `json:"target_date"`
}

// ListGoals 返回当前用户的目标列表
func (a *API) ListGoals(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "未登录")
		return
	}

	filter := service.GoalFilter{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}

	goals, err := a.goals.List(userID, filter)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取目标列表失败")
		return
	}

	items := make([]gin.H, 0, len(goals))
	for i := range goals {
		items = append(items, goalToPayload(&goals[i]))
	}
	c.JSON(http.StatusOK, gin.H{"goals": items})
}

// GetGoal 返回单个目标
func (a *API) GetGoal(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "未登录")
		return
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "目标 ID 格式错误")
		return
	}

	goal, err := a.goals.Get(userID, id)
	if err != nil {
		respondGoalError(c, err, "获取目标失败")
		return
	}

	c.JSON(http.StatusOK, goalToPayload(goal))
}

// CreateGoal 新建目标
func (a *API) CreateGoal(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "未登录")
		return
	}

	var payload goalPayload
	if !bindJSON(c, &payload, "请求体格式错误") {
		return
	}

	input, err := payload.toInput()
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	goal, err := a.goals.Create(userID, input)
	if err != nil {
		respondGoalError(c, err, "创建目标失败")
		return
	}

	c.JSON(http.StatusCreated, goalToPayload(goal))
}

// UpdateGoal 更新目标
func (a *API) UpdateGoal(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "未登录")
		return
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "目标 ID 格式错误")
		return
	}

	var payload goalPayload
	if !bindJSON(c, &payload, "请求体格式错误") {
		return
	}

	input, err := payload.toInput()
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	goal, err := a.goals.Update(userID, id, input)
	if err != nil {
		respondGoalError(c, err, "更新目标失败")
		return
	}

	c.JSON(http.StatusOK, goalToPayload(goal))
}

// DeleteGoal 删除目标
func (a *API) DeleteGoal(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "未登录")
		return
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "目标 ID 格式错误")
		return
	}

	if err := a.goals.Delete(userID, id); err != nil {
		respondGoalError(c, err, "删除目标失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "目标已删除"})
}

func respondGoalError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrGoalInvalid):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrGoalNotFound):
		respondError(c, http.StatusNotFound, "目标不存在")
	default:
		respondError(c, http.StatusInternalServerError, fallback)
	}
}

func (p goalPayload) toInput() (service.GoalInput, error) {
	input := service.GoalInput{
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Status:      p.Status,
		Progress:    p.Progress,
	}

	if strings.TrimSpace(p.TargetDate) != "" {
		parsed, err := time.Parse(dateFormat, strings.TrimSpace(p.TargetDate))
		if err != nil {
			return service.GoalInput{}, errors.New("目标日期格式错误")
		}
		input.TargetDate = &parsed
	}

	return input, nil
}

func goalToPayload(goal *db.Goal) gin.H {
	payload := gin.H{
		"id":          goal.ID,
		"title":       goal.Title,
		"description": goal.Description,
		"category":    goal.Category,
		"status":      goal.Status,
		"progress":    goal.Progress,
	}
	if goal.TargetDate != nil {
		payload["target_date"] = goal.TargetDate.Format(dateFormat)
	}
	return payload
}
