package infrastructure

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"promohub/internal/service/promotion/domain"
)

// GormPromotionRepository 是 PromotionRepository 的 GORM 实现
type GormPromotionRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormPromotionRepository 创建一个新的 GORM 仓储实例
func NewGormPromotionRepository(db *gorm.DB) *GormPromotionRepository {
	return &GormPromotionRepository{db: db, now: time.Now}
}

func (r *GormPromotionRepository) timestamp() time.Time {
	// datetime(3) 只保留毫秒
	return r.now().UTC().Truncate(time.Millisecond)
}

// Create 插入一条新记录，主键由 BeforeCreate 钩子分配
func (r *GormPromotionRepository) Create(ctx context.Context, p *domain.Promotion) error {
	model := FromDomainPromotion(p)
	now := r.timestamp()
	model.CreatedAt, model.UpdatedAt = now, now

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return storeError(err, "Failed to create promotion")
	}
	*p = *ToDomainPromotion(model)
	return nil
}

// FindByID 使用 GORM 从数据库中查找促销
func (r *GormPromotionRepository) FindByID(ctx context.Context, id string, includeDeleted bool) (*domain.Promotion, error) {
	var model PromotionModel
	tx := r.db.WithContext(ctx).Where("id = ?", id)
	if !includeDeleted {
		tx = tx.Where("is_deleted = ?", false)
	}
	if err := tx.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.PromotionNotFound(id)
		}
		return nil, storeError(err, "Failed to load promotion")
	}
	return ToDomainPromotion(&model), nil
}

// Find 按谓词、排序与窗口查询
func (r *GormPromotionRepository) Find(ctx context.Context, c domain.Criteria, o domain.Order, w domain.Window) ([]*domain.Promotion, error) {
	tx := applyCriteria(r.db.WithContext(ctx).Model(&PromotionModel{}), c)
	if col, ok := columnNames[o.Column]; ok {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: o.Direction < 0})
	}
	if w.Skip > 0 {
		tx = tx.Offset(w.Skip)
	}
	if w.Limit > 0 {
		tx = tx.Limit(w.Limit)
	}

	var models []PromotionModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, storeError(err, "Failed to query promotions")
	}
	out := make([]*domain.Promotion, 0, len(models))
	for i := range models {
		out = append(out, ToDomainPromotion(&models[i]))
	}
	return out, nil
}

// Count 使用与 Find 相同的谓词计数
func (r *GormPromotionRepository) Count(ctx context.Context, c domain.Criteria) (int64, error) {
	var n int64
	if err := applyCriteria(r.db.WithContext(ctx).Model(&PromotionModel{}), c).Count(&n).Error; err != nil {
		return 0, storeError(err, "Failed to count promotions")
	}
	return n, nil
}

// Update 先读取原记录校验合并后的日期区间，再只更新提供的列
func (r *GormPromotionRepository) Update(ctx context.Context, id string, patch domain.Patch) (*domain.Promotion, error) {
	current, err := r.FindByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	merged := patch.ApplyTo(*current)
	if !merged.HasValidWindow() {
		return nil, domain.InvalidDateRange(merged.StartDate, merged.EndDate)
	}

	cols := patchColumns(patch)
	merged.UpdatedAt = r.timestamp()
	cols["updated_at"] = merged.UpdatedAt

	res := r.db.WithContext(ctx).Model(&PromotionModel{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(cols)
	if res.Error != nil {
		return nil, storeError(res.Error, "Failed to update promotion")
	}
	if res.RowsAffected == 0 {
		return nil, domain.PromotionNotFound(id)
	}
	return &merged, nil
}

// SoftDelete 将记录标记为已删除并停用
func (r *GormPromotionRepository) SoftDelete(ctx context.Context, id string) (*domain.Promotion, error) {
	return r.setDeleted(ctx, id, true)
}

// Restore 恢复软删除记录并重新启用
func (r *GormPromotionRepository) Restore(ctx context.Context, id string) (*domain.Promotion, error) {
	return r.setDeleted(ctx, id, false)
}

func (r *GormPromotionRepository) setDeleted(ctx context.Context, id string, deleted bool) (*domain.Promotion, error) {
	res := r.db.WithContext(ctx).Model(&PromotionModel{}).
		Where("id = ? AND is_deleted = ?", id, !deleted).
		Updates(map[string]interface{}{
			"is_deleted": deleted,
			"is_active":  !deleted,
			"updated_at": r.timestamp(),
		})
	if res.Error != nil {
		return nil, storeError(res.Error, "Failed to update promotion state")
	}
	if res.RowsAffected == 0 {
		return nil, domain.PromotionNotFound(id)
	}
	return r.FindByID(ctx, id, true)
}

// HardDelete 永久删除记录
func (r *GormPromotionRepository) HardDelete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&PromotionModel{})
	if res.Error != nil {
		return storeError(res.Error, "Failed to delete promotion")
	}
	if res.RowsAffected == 0 {
		return domain.PromotionNotFound(id)
	}
	return nil
}

// applyCriteria 把存储无关的谓词翻译为 WHERE 子句
func applyCriteria(tx *gorm.DB, c domain.Criteria) *gorm.DB {
	switch c.Deleted {
	case domain.ExcludeDeleted:
		tx = tx.Where("is_deleted = ?", false)
	case domain.OnlyDeleted:
		tx = tx.Where("is_deleted = ?", true)
	}
	if c.Type != nil {
		tx = tx.Where("type = ?", string(*c.Type))
	}
	if c.UserGroupName != nil {
		tx = tx.Where("user_group_name = ?", *c.UserGroupName)
	}
	if c.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(c.Search)) + "%"
		tx = tx.Where("(LOWER(name) LIKE ? OR LOWER(user_group_name) LIKE ?)", pattern, pattern)
	}
	if c.StartFrom != nil {
		tx = tx.Where("start_date >= ?", c.StartFrom.UTC())
	}
	if c.StartTo != nil {
		tx = tx.Where("start_date <= ?", c.StartTo.UTC())
	}
	if c.IsActive != nil {
		tx = tx.Where("is_active = ?", *c.IsActive)
	}
	if c.ActiveAt != nil {
		at := c.ActiveAt.UTC()
		tx = tx.Where("start_date <= ? AND end_date >= ?", at, at)
	}
	return tx
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// storeError 把驱动错误包装为基础设施错误；钩子返回的领域错误原样透传。
func storeError(err error, msg string) error {
	if _, ok := domain.AsError(err); ok {
		return err
	}
	return domain.Infrastructure(errors.Wrap(err, "gorm"), msg)
}
