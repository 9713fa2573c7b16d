package infrastructure

import (
	"promohub/internal/service/promotion/domain"
)

// ToDomainPromotion 将数据库模型转换为领域模型
func ToDomainPromotion(model *PromotionModel) *domain.Promotion {
	if model == nil {
		return nil
	}
	return &domain.Promotion{
		ID:            model.ID,
		Name:          model.Name,
		UserGroupName: model.UserGroupName,
		Type:          domain.PromotionType(model.Type),
		StartDate:     model.StartDate.UTC(),
		EndDate:       model.EndDate.UTC(),
		IsActive:      model.IsActive,
		IsDeleted:     model.IsDeleted,
		CreatedAt:     model.CreatedAt.UTC(),
		UpdatedAt:     model.UpdatedAt.UTC(),
	}
}

// FromDomainPromotion 将领域模型转换为数据库模型 (用于插入)
func FromDomainPromotion(p *domain.Promotion) *PromotionModel {
	if p == nil {
		return nil
	}
	return &PromotionModel{
		ID:            p.ID,
		Name:          p.Name,
		UserGroupName: p.UserGroupName,
		Type:          string(p.Type),
		StartDate:     p.StartDate.UTC(),
		EndDate:       p.EndDate.UTC(),
		IsActive:      p.IsActive,
		IsDeleted:     p.IsDeleted,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// patchColumns 把 Patch 转换为待更新的列，只包含已提供的字段。
func patchColumns(patch domain.Patch) map[string]interface{} {
	cols := make(map[string]interface{}, 7)
	if patch.Name != nil {
		cols["name"] = *patch.Name
	}
	if patch.UserGroupName != nil {
		cols["user_group_name"] = *patch.UserGroupName
	}
	if patch.Type != nil {
		cols["type"] = string(*patch.Type)
	}
	if patch.StartDate != nil {
		cols["start_date"] = patch.StartDate.UTC()
	}
	if patch.EndDate != nil {
		cols["end_date"] = patch.EndDate.UTC()
	}
	if patch.IsActive != nil {
		cols["is_active"] = *patch.IsActive
	}
	return cols
}
