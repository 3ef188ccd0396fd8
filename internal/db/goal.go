package db

import (
	"time"

	"gorm.io/gorm"
)

// Goal 定义求职目标模型
// Category 用于区分目标类别（applications/networking/skills 等），便于筛选
// Status 仅使用 active/completed/abandoned，默认 active
// Progress 取值 0-100，由用户手工维护
// TargetDate 可空，便于开放式目标
type Goal struct {
	gorm.Model
	UserID      uint   `gorm:"index"`
	Title       string `gorm:"size:200"`
	Description string
	Category    string `gorm:"size:64"`
	Status      string `gorm:"size:16"`
	Progress    int
	TargetDate  *time.Time
}
