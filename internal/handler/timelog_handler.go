package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huntlog/internal/db"
	"github.com/huntlog/internal/service"
)

type outcomePayload struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type entryPayload struct {
	Activity       string           `json:"activity"`
	CustomActivity string           `json:"custom_activity"`
	StartTime      string           `json:"start_time"`
	EndTime        string           `json:"end_time"`
	EnergyLevel    string           `json:"energy_level"`
	FocusQuality   string           `json:"focus_quality"`
	Distractions   int              `json:"distractions"`
	Productivity   *int             `json:"productivity"`
	Outcomes       []outcomePayload `json:"outcomes"`
	JobID          *uint            `json:"job_id"`
	ApplicationID  *uint            `json:"application_id"`
	GoalID         *uint            `json:"goal_id"`
}

// entryPatchPayload 的字段均为指针，缺省字段不参与更新。
type entryPatchPayload struct {
	Activity       *string           `json:"activity"`
	CustomActivity *string           `json:"custom_activity"`
	StartTime      *string           `json:"start_time"`
	EndTime        *string           `json:"end_time"`
	EnergyLevel    *string           `json:"energy_level"`
	FocusQuality   *string           `json:"focus_quality"`
	Distractions   *int              `json:"distractions"`
	Productivity   *int              `json:"productivity"`
	Outcomes       *[]outcomePayload `json:"outcomes"`
	JobID          *uint             `json:"job_id"`
	ApplicationID  *uint             `json:"application_id"`
	GoalID         *uint             `json:"goal_id"`
}

// GetDayLog 取出（必要时创建）当前用户某日的时间日志。
func (a *API) GetDayLog(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "未登录")
		return
	}

	date, err := parseDateParam(c, "date")
	if err != nil {
		respondError(c, http.StatusBadRequest, "日期格式错误")
		return
	}

	record, err := a.timelogs.UpsertDayLog(userID, date)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取时间日志失败")
		return
	}

	c.JSON(http.StatusOK, dayLogToPayload(record))
}

// AddEntry 向某日日志追加一条时间条目。
func (a *API) AddEntry(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "未登录")
		return
	}

	date, err := parseDateParam(c, "date")
	if err != nil {
		respondError(c, http.StatusBadRequest, "日期格式错误")
		return
	}

	var payload entryPayload
	if !bindJSON(c, &payload, "请求体格式错误") {
		return
	}

	input, err := payload.toInput()
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	record, err := a.timelogs.AddEntry(userID, date, input)
	if err != nil {
		respondTimeLogError(c, err, "创建时间条目失败")
		return
	}

	c.JSON(http.StatusCreated, dayLogToPayload(record))
}

// UpdateEntry 将补丁合并到指定条目。
func (a *API) UpdateEntry(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "未登录")
		return
	}

	date, err := parseDateParam(c, "date")
	if err != nil {
		respondError(c, http.StatusBadRequest, "日期格式错误")
		return
	}

	entryID, err := parseUintParam(c, "entryId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "条目 ID 格式错误")
		return
	}

	var payload entryPatchPayload
	if !bindJSON(c, &payload, "请求体格式错误") {
		return
	}

	patch, err := payload.toPatch()
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	record, err := a.timelogs.UpdateEntry(userID, date, entryID, patch)
	if err != nil {
		respondTimeLogError(c, err, "更新时间条目失败")
		return
	}

	c.JSON(http.StatusOK, dayLogToPayload(record))
}

// StopEntry 结束一条进行中的条目。
func (a *API) StopEntry(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "未登录")
		return
	}

	date, err := parseDateParam(c, "date")
	if err != nil {
		respondError(c, http.StatusBadRequest, "日期格式错误")
		return
	}

	entryID, err := parseUintParam(c, "entryId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "条目 ID 格式错误")
		return
	}

	record, err := a.timelogs.StopEntry(userID, date, entryID, time.Now())
	if err != nil {
		respondTimeLogError(c, err, "结束时间条目失败")
		return
	}

	c.JSON(http.StatusOK, dayLogToPayload(record))
}

// DeleteEntry 删除指定条目。
func (a *API) DeleteEntry(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "未登录")
		return
	}

	date, err := parseDateParam(c, "date")
	if err != nil {
		respondError(c, http.StatusBadRequest, "日期格式错误")
		return
	}

	entryID, err := parseUintParam(c, "entryId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "条目 ID 格式错误")
		return
	}

	record, err := a.timelogs.DeleteEntry(userID, date, entryID)
	if err != nil {
		respondTimeLogError(c, err, "删除时间条目失败")
		return
	}

	c.JSON(http.StatusOK, dayLogToPayload(record))
}

// GetStats 返回区间内的轻量统计汇总。
func (a *API) GetStats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "未登录")
		return
	}

	start, end, err := parseDateRangeQuery(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := a.timelogs.StatsBetween(userID, start, end)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取统计数据失败")
		return
	}

	c.JSON(http.StatusOK, stats)
}

func respondTimeLogError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrInvalidEntry):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrEntryNotFound):
		respondError(c, http.StatusNotFound, "条目不存在")
	default:
		respondError(c, http.StatusInternalServerError, fallback)
	}
}

func (p entryPayload) toInput() (service.EntryInput, error) {
	start, err := parseRFC3339("start_time", p.StartTime)
	if err != nil {
		return service.EntryInput{}, err
	}

	var end *time.Time
	if p.EndTime != "" {
		parsed, err := parseRFC3339("end_time", p.EndTime)
		if err != nil {
			return service.EntryInput{}, err
		}
		end = &parsed
	}

	return service.EntryInput{
		Activity:       p.Activity,
		CustomActivity: p.CustomActivity,
		StartTime:      start,
		EndTime:        end,
		EnergyLevel:    p.EnergyLevel,
		FocusQuality:   p.FocusQuality,
		Distractions:   p.Distractions,
		Productivity:   p.Productivity,
		Outcomes:       toOutcomes(p.Outcomes),
		JobID:          p.JobID,
		ApplicationID:  p.ApplicationID,
		GoalID:         p.GoalID,
	}, nil
}

func (p entryPatchPayload) toPatch() (service.EntryPatch, error) {
	patch := service.EntryPatch{
		Activity:       p.Activity,
		CustomActivity: p.CustomActivity,
		EnergyLevel:    p.EnergyLevel,
		FocusQuality:   p.FocusQuality,
		Distractions:   p.Distractions,
		Productivity:   p.Productivity,
		JobID:          p.JobID,
		ApplicationID:  p.ApplicationID,
		GoalID:         p.GoalID,
	}

	if p.StartTime != nil {
		parsed, err := parseRFC3339("start_time", *p.StartTime)
		if err != nil {
			return service.EntryPatch{}, err
		}
		patch.StartTime = &parsed
	}
	if p.EndTime != nil {
		parsed, err := parseRFC3339("end_time", *p.EndTime)
		if err != nil {
			return service.EntryPatch{}, err
		}
		patch.EndTime = &parsed
	}
	if p.Outcomes != nil {
		outcomes := toOutcomes(*p.Outcomes)
		patch.Outcomes = &outcomes
	}

	return patch, nil
}

func parseRFC3339(field, value string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, errors.New("时间字段 " + field + " 须为 RFC3339 格式")
	}
	return parsed, nil
}

func toOutcomes(payloads []outcomePayload) []db.Outcome {
	if len(payloads) == 0 {
		return nil
	}
	outcomes := make([]db.Outcome, 0, len(payloads))
	for _, item := range payloads {
		outcomes = append(outcomes, db.Outcome{Type: item.Type, Description: item.Description})
	}
	return outcomes
}

func dayLogToPayload(record *db.TimeEntryLog) gin.H {
	entries := make([]gin.H, 0, len(record.Entries))
	for i := range record.Entries {
		entries = append(entries, entryToPayload(&record.Entries[i]))
	}

	payload := gin.H{
		"id":       record.ID,
		"log_date": record.LogDate.Format(dateFormat),
		"entries":  entries,
	}
	if record.Summary != nil {
		payload["summary"] = record.Summary
	}
	return payload
}

func entryToPayload(entry *db.TimeEntry) gin.H {
	payload := gin.H{
		"id":              entry.ID,
		"activity":        entry.Activity,
		"custom_activity": entry.CustomActivity,
		"start_time":      entry.StartTime.Format(time.RFC3339),
		"duration":        entry.DurationMinutes,
		"energy_level":    entry.EnergyLevel,
		"focus_quality":   entry.FocusQuality,
		"distractions":    entry.Distractions,
		"outcomes":        entry.Outcomes,
		"completed":       entry.Completed(),
	}
	if entry.EndTime != nil {
		payload["end_time"] = entry.EndTime.Format(time.RFC3339)
	}
	if entry.Productivity != nil {
		payload["productivity"] = *entry.Productivity
	}
	if entry.JobID != nil {
		payload["job_id"] = *entry.JobID
	}
	if entry.ApplicationID != nil {
		payload["application_id"] = *entry.ApplicationID
	}
	if entry.GoalID != nil {
		payload["goal_id"] = *entry.GoalID
	}
	return payload
}
