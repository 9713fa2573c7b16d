package infrastructure

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"promohub/internal/service/promotion/domain"
)

// PromotionModel 对应数据库中的 promotions 表
// 布尔列不设 default 标签：gorm 会跳过零值字段，isActive=false 会被数据库默认值覆盖。
type PromotionModel struct {
	ID            string    `gorm:"type:char(36);primaryKey"`
	Name          string    `gorm:"type:varchar(100);not null;index"`
	UserGroupName string    `gorm:"type:varchar(100);not null;index"`
	Type          string    `gorm:"type:varchar(16);not null;index"`
	StartDate     time.Time `gorm:"type:datetime(3);not null;index"`
	EndDate       time.Time `gorm:"type:datetime(3);not null"`
	IsActive      bool      `gorm:"not null;index"`
	IsDeleted     bool      `gorm:"not null;index"`
	CreatedAt     time.Time `gorm:"type:datetime(3)"`
	UpdatedAt     time.Time `gorm:"type:datetime(3)"`
}

// TableName 指定 GORM 应该使用的表名
func (PromotionModel) TableName() string {
	return "promotions"
}

// BeforeCreate 在插入前分配 UUID 主键
func (m *PromotionModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// BeforeSave 在持久化层再次保证 startDate < endDate
func (m *PromotionModel) BeforeSave(tx *gorm.DB) error {
	if !m.StartDate.IsZero() && !m.EndDate.IsZero() && !m.StartDate.Before(m.EndDate) {
		return domain.InvalidDateRange(m.StartDate, m.EndDate)
	}
	return nil
}

// columnNames 把规范字段名映射为表列名。
var columnNames = map[string]string{
	"createdAt":     "created_at",
	"updatedAt":     "updated_at",
	"startDate":     "start_date",
	"endDate":       "end_date",
	"name":          "name",
	"userGroupName": "user_group_name",
	"type":          "type",
	"isActive":      "is_active",
}
