// internal/service/promotion/domain/promotion.go
package domain

import "time"

// PromotionType 是促销活动的类型，取值为封闭集合，调用方不可扩展。
type PromotionType string

const (
	PromotionTypeEvent PromotionType = "event"
	PromotionTypeSale  PromotionType = "sale"
	PromotionTypeBonus PromotionType = "bonus"
)

// MaxNameLength 限制 name 与 userGroupName 的字符数。
const MaxNameLength = 100

// ResourcePromotion 用于 NotFound 错误的 resourceType。
const ResourcePromotion = "promotion"

// PromotionTypes 按固定顺序返回所有合法类型。
func PromotionTypes() []PromotionType {
	return []PromotionType{PromotionTypeEvent, PromotionTypeSale, PromotionTypeBonus}
}

// IsValid 判断类型是否属于枚举集合。
func (t PromotionType) IsValid() bool {
	switch t {
	case PromotionTypeEvent, PromotionTypeSale, PromotionTypeBonus:
		return true
	}
	return false
}

// Promotion 是促销记录聚合根。ID 由存储层分配，创建后不可变。
type Promotion struct {
	ID            string
	Name          string
	UserGroupName string
	Type          PromotionType
	StartDate     time.Time
	EndDate       time.Time
	IsActive      bool
	IsDeleted     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsValidAt 判断促销在给定时刻是否可用：已启用、未删除且处于有效期窗口内。
func (p *Promotion) IsValidAt(now time.Time) bool {
	if !p.IsActive || p.IsDeleted {
		return false
	}
	return !now.Before(p.StartDate) && !now.After(p.EndDate)
}

// HasValidWindow 校验 startDate < endDate。
func (p *Promotion) HasValidWindow() bool {
	return p.StartDate.Before(p.EndDate)
}

// Patch 描述一次部分更新，nil 字段表示保持原值。
type Patch struct {
	Name          *string
	UserGroupName *string
	Type          *PromotionType
	StartDate     *time.Time
	EndDate       *time.Time
	IsActive      *bool
}

// IsEmpty 当没有任何字段需要更新时返回 true。
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.UserGroupName == nil && p.Type == nil &&
		p.StartDate == nil && p.EndDate == nil && p.IsActive == nil
}

// ApplyTo 返回合并后的副本，原对象不变。
func (p Patch) ApplyTo(src Promotion) Promotion {
	merged := src
	if p.Name != nil {
		merged.Name = *p.Name
	}
	if p.UserGroupName != nil {
		merged.UserGroupName = *p.UserGroupName
	}
	if p.Type != nil {
		merged.Type = *p.Type
	}
	if p.StartDate != nil {
		merged.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		merged.EndDate = *p.EndDate
	}
	if p.IsActive != nil {
		merged.IsActive = *p.IsActive
	}
	return merged
}
