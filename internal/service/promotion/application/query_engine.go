package application

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"promohub/internal/service/promotion/domain"
)

// sortableFields 把对外字段名映射为存储无关的规范字段名。
// 不在表中的字段不会报错，只是不产生排序。
var sortableFields = map[string]string{
	"createdat":     "createdAt",
	"updatedat":     "updatedAt",
	"startdate":     "startDate",
	"enddate":       "endDate",
	"name":          "name",
	"promotionname": "name",
	"usergroupname": "userGroupName",
	"type":          "type",
	"isactive":      "isActive",
}

// QueryEngine 把规范查询描述翻译为存储谓词并计算分页元数据。
type QueryEngine struct {
	repo domain.PromotionRepository
}

func NewQueryEngine(repo domain.PromotionRepository) *QueryEngine {
	return &QueryEngine{repo: repo}
}

// BuildCriteria 组合过滤条件，所有条件之间为 AND。
func BuildCriteria(q domain.Query) domain.Criteria {
	c := domain.Criteria{
		Type:          q.Filters.Type,
		UserGroupName: q.Filters.UserGroupName,
		StartFrom:     q.Filters.StartDate,
		StartTo:       q.Filters.EndDate,
		IsActive:      q.Filters.IsActive,
		Deleted:       domain.ExcludeDeleted,
	}
	if q.Filters.Search != nil {
		c.Search = *q.Filters.Search
	}
	if q.IncludeDeleted {
		c.Deleted = domain.IncludeDeleted
	}
	return c
}

// BuildOrder 生成单字段排序指令，asc -> 1，desc -> -1。
func BuildOrder(s domain.Sort) domain.Order {
	col, ok := sortableFields[strings.ToLower(s.Field)]
	if !ok {
		return domain.Order{}
	}
	return domain.Order{Column: col, Direction: s.Order.Direction()}
}

// TotalPages = ceil(total/limit)，total 为 0 时返回 0。
func TotalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	l := int64(limit)
	return int((total + l - 1) / l)
}

// Execute 并发执行查询与计数，两者之间的读偏差是可接受的。
func (e *QueryEngine) Execute(ctx context.Context, q domain.Query) (*domain.Page, error) {
	criteria := BuildCriteria(q)
	return e.run(ctx, criteria, BuildOrder(q.Sort), q.Page, q.Limit)
}

func (e *QueryEngine) run(ctx context.Context, c domain.Criteria, o domain.Order, page, limit int) (*domain.Page, error) {
	var (
		items []*domain.Promotion
		total int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = e.repo.Find(gctx, c, o, domain.Window{Skip: (page - 1) * limit, Limit: limit})
		return err
	})
	g.Go(func() error {
		var err error
		total, err = e.repo.Count(gctx, c)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, asInfrastructure(err)
	}

	if items == nil {
		items = []*domain.Promotion{}
	}
	return &domain.Page{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: TotalPages(total, limit),
	}, nil
}

// asInfrastructure 保证存储层返回的未分类错误统一为基础设施错误。
func asInfrastructure(err error) error {
	if _, ok := domain.AsError(err); ok {
		return err
	}
	return domain.Infrastructure(err, "Failed to query promotions")
}
