package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/huntlog/internal/db"
)

var (
	// ErrGoalNotFound 在指定目标不存在时返回
	ErrGoalNotFound = errors.New("goal not found")
	// ErrGoalInvalid 当目标字段校验失败时返回
	ErrGoalInvalid = errors.New("invalid goal")
)

// GoalService 负责求职目标的增删改查
// 目标以 user_id 隔离，状态仅使用 active/completed/abandoned，默认 active
// 活跃目标同时作为建议生成的上下文输入

type GoalService struct {
	db *gorm.DB
}

// GoalFilter 描述列表过滤条件
type GoalFilter struct {
	Status   string
	Category string
	Search   string
}

// GoalInput 定义创建/更新目标时可配置字段
type GoalInput struct {
	Title       string
	Description string
	Category    string
	Status      string
	Progress    int
	TargetDate  *time.Time
}

// NewGoalService 构造 GoalService
func NewGoalService(gdb *gorm.DB) *GoalService {
	return &GoalService{db: gdb}
}

// List 返回目标集合，支持基本筛选
func (s *GoalService) List(userID uint, filter GoalFilter) ([]db.Goal, error) {
	var goals []db.Goal

	query := s.db.Model(&db.Goal{}).Where("user_id = ?", userID)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Search != "" {
		like := fmt.Sprintf("%%%s%%", strings.TrimSpace(filter.Search))
		query = query.Where("title LIKE ? OR description LIKE ?", like, like)
	}

	if err := query.Order("created_at DESC").Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}

	return goals, nil
}

// ActiveGoals 返回用户的全部活跃目标。
func (s *GoalService) ActiveGoals(userID uint) ([]db.Goal, error) {
	return s.List(userID, GoalFilter{Status: "active"})
}

// Get 根据 ID 获取目标
func (s *GoalService) Get(userID, id uint) (*db.Goal, error) {
	var goal db.Goal
	if err := s.db.Where("user_id = ?", userID).First(&goal, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGoalNotFound
		}
		return nil, fmt.Errorf("get goal: %w", err)
	}
	return &goal, nil
}

// Create 新建目标
func (s *GoalService) Create(userID uint, input GoalInput) (*db.Goal, error) {
	if err := validateGoalInput(input); err != nil {
		return nil, err
	}

	goal := db.Goal{
		UserID:      userID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Category:    strings.TrimSpace(input.Category),
		Status:      normalizeGoalStatus(input.Status),
		Progress:    input.Progress,
		TargetDate:  input.TargetDate,
	}

	if err := s.db.Create(&goal).Error; err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}
	return &goal, nil
}

// Update 更新目标
func (s *GoalService) Update(userID, id uint, input GoalInput) (*db.Goal, error) {
	if err := validateGoalInput(input); err != nil {
		return nil, err
	}

	existing, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}

	existing.Title = strings.TrimSpace(input.Title)
	existing.Description = strings.TrimSpace(input.Description)
	existing.Category = strings.TrimSpace(input.Category)
	existing.Status = normalizeGoalStatus(input.Status)
	existing.Progress = input.Progress
	existing.TargetDate = input.TargetDate

	if err := s.db.Save(existing).Error; err != nil {
		return nil, fmt.Errorf("update goal: %w", err)
	}
	return existing, nil
}

// Delete 删除目标
func (s *GoalService) Delete(userID, id uint) error {
	result := s.db.Where("user_id = ?", userID).Delete(&db.Goal{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete goal: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrGoalNotFound
	}
	return nil
}

func validateGoalInput(input GoalInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrGoalInvalid)
	}
	if input.Progress < 0 || input.Progress > 100 {
		return fmt.Errorf("%w: progress must be between 0 and 100", ErrGoalInvalid)
	}
	return nil
}

func normalizeGoalStatus(status string) string {
	switch strings.TrimSpace(strings.ToLower(status)) {
	case "completed":
		return "completed"
	case "abandoned":
		return "abandoned"
	default:
		return "active"
	}
}
