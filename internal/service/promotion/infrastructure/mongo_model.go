package infrastructure

import (
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"promohub/internal/service/promotion/domain"
)

// PromotionCollection 是 MongoDB 中的集合名。
const PromotionCollection = "promotions"

// promotionDocument 是 promotions 集合中的文档结构。
type promotionDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Name          string             `bson:"name"`
	UserGroupName string             `bson:"userGroupName"`
	Type          string             `bson:"type"`
	StartDate     time.Time          `bson:"startDate"`
	EndDate       time.Time          `bson:"endDate"`
	IsActive      bool               `bson:"isActive"`
	IsDeleted     bool               `bson:"isDeleted"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
}

func (d *promotionDocument) toDomain() *domain.Promotion {
	return &domain.Promotion{
		ID:            d.ID.Hex(),
		Name:          d.Name,
		UserGroupName: d.UserGroupName,
		Type:          domain.PromotionType(d.Type),
		StartDate:     d.StartDate.UTC(),
		EndDate:       d.EndDate.UTC(),
		IsActive:      d.IsActive,
		IsDeleted:     d.IsDeleted,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

func documentFromDomain(p *domain.Promotion) *promotionDocument {
	return &promotionDocument{
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

// mongoFilter 把谓词翻译为 bson 过滤器。
// 历史文档可能没有 isDeleted 字段，所以排除已删除记录使用 $ne: true。
func mongoFilter(c domain.Criteria) bson.M {
	f := bson.M{}
	switch c.Deleted {
	case domain.ExcludeDeleted:
		f["isDeleted"] = bson.M{"$ne": true}
	case domain.OnlyDeleted:
		f["isDeleted"] = true
	}
	if c.Type != nil {
		f["type"] = string(*c.Type)
	}
	if c.UserGroupName != nil {
		f["userGroupName"] = *c.UserGroupName
	}
	if c.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(c.Search), Options: "i"}
		f["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"userGroupName": re},
		}
	}

	start := bson.M{}
	if c.StartFrom != nil {
		start["$gte"] = c.StartFrom.UTC()
	}
	if c.StartTo != nil {
		start["$lte"] = c.StartTo.UTC()
	}
	if c.ActiveAt != nil {
		at := c.ActiveAt.UTC()
		// 同时存在 StartTo 时取更严格的上界
		if c.StartTo == nil || at.Before(c.StartTo.UTC()) {
			start["$lte"] = at
		}
		f["endDate"] = bson.M{"$gte": at}
	}
	if len(start) > 0 {
		f["startDate"] = start
	}

	if c.IsActive != nil {
		f["isActive"] = *c.IsActive
	}
	return f
}

// mongoSort 生成排序文档，Column 为空时返回 nil，沿用集合的自然顺序。
func mongoSort(o domain.Order) bson.D {
	if o.Column == "" {
		return nil
	}
	return bson.D{{Key: o.Column, Value: o.Direction}}
}
