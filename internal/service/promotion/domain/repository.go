// internal/service/promotion/domain/repository.go
package domain

import "context"

// PromotionRepository 定义了促销记录的持久化接口
// 它位于领域层，由基础设施层（gorm / mongo / memory）实现。
//
// 约定：记录不存在时返回 PromotionNotFound；其余故障返回 Infrastructure 错误。
type PromotionRepository interface {
	// Create 持久化一条新记录，并回填 ID 与时间戳。
	Create(ctx context.Context, p *Promotion) error

	// FindByID 根据 ID 查找，includeDeleted 为 false 时软删除记录视为不存在。
	FindByID(ctx context.Context, id string, includeDeleted bool) (*Promotion, error)

	// Find 按谓词、排序与窗口查询。
	Find(ctx context.Context, c Criteria, o Order, w Window) ([]*Promotion, error)

	// Count 统计满足谓词的记录数，忽略窗口。
	Count(ctx context.Context, c Criteria) (int64, error)

	// Update 对未删除的记录应用部分更新并返回更新后的记录。
	Update(ctx context.Context, id string, patch Patch) (*Promotion, error)

	// SoftDelete 将记录标记为已删除并停用。
	SoftDelete(ctx context.Context, id string) (*Promotion, error)

	// Restore 恢复一条软删除记录。
	Restore(ctx context.Context, id string) (*Promotion, error)

	// HardDelete 永久删除记录，无论其是否已被软删除。
	HardDelete(ctx context.Context, id string) error
}
