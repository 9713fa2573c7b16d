package application

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"promohub/internal/pkg/logger"
	"promohub/internal/service/promotion/domain"
	"promohub/internal/service/promotion/port"
)

// PromotionService 定义了促销服务提供的所有业务用例
type PromotionService struct {
	repo      domain.PromotionRepository
	engine    *QueryEngine
	publisher port.EventPublisher
	tracer    trace.Tracer
	maxLimit  int
	now       func() time.Time
}

// Option 用于定制 PromotionService。
type Option func(*PromotionService)

// WithMaxLimit 设置单页条数上限。
func WithMaxLimit(n int) Option {
	return func(s *PromotionService) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithClock 替换时间源，测试中使用。
func WithClock(now func() time.Time) Option {
	return func(s *PromotionService) { s.now = now }
}

// NewPromotionService 创建一个新的促销服务实例
func NewPromotionService(repo domain.PromotionRepository, publisher port.EventPublisher, tracer trace.Tracer, opts ...Option) *PromotionService {
	if publisher == nil {
		publisher = port.NopPublisher{}
	}
	s := &PromotionService{
		repo:      repo,
		engine:    NewQueryEngine(repo),
		publisher: publisher,
		tracer:    tracer,
		maxLimit:  DefaultMaxLimit,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now 返回服务使用的当前时间，响应中的 isValid 以此为准。
func (s *PromotionService) Now() time.Time { return s.now() }

// List 校验查询参数并执行分页查询
func (s *PromotionService) List(ctx context.Context, params ListParams) (*domain.Page, error) {
	ctx, span := s.tracer.Start(ctx, "service.List")
	defer span.End()

	q, err := ParseListQuery(params, s.maxLimit)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("query.page", q.Page),
		attribute.Int("query.limit", q.Limit),
		attribute.String("query.sort", q.Sort.Field+":"+string(q.Sort.Order)),
	)

	page, err := s.engine.Execute(ctx, q)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int64("query.total", page.Total))
	return page, nil
}

// Get 根据 ID 获取一条促销
func (s *PromotionService) Get(ctx context.Context, id string, includeDeleted bool) (*domain.Promotion, error) {
	ctx, span := s.tracer.Start(ctx, "service.Get")
	defer span.End()
	span.SetAttributes(attribute.String("promotion.id", id))

	p, err := s.repo.FindByID(ctx, id, includeDeleted)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return p, nil
}

// Create 校验并创建促销，提交后发布 promotion_created 事件
func (s *PromotionService) Create(ctx context.Context, req CreatePromotionRequest) (*domain.Promotion, error) {
	ctx, span := s.tracer.Start(ctx, "service.Create")
	defer span.End()

	p, err := ValidateCreate(req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("promotion.id", p.ID))
	logger.Ctx(ctx).Info().Str("promotion_id", p.ID).Str("type", string(p.Type)).Msg("promotion created")
	s.publish(ctx, domain.EventPromotionCreated, p)
	return p, nil
}

// Update 部分更新。与原记录合并后的日期区间由仓储校验。
func (s *PromotionService) Update(ctx context.Context, id string, req UpdatePromotionRequest) (*domain.Promotion, error) {
	ctx, span := s.tracer.Start(ctx, "service.Update")
	defer span.End()
	span.SetAttributes(attribute.String("promotion.id", id))

	patch, err := ValidateUpdate(req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	p, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Ctx(ctx).Info().Str("promotion_id", id).Msg("promotion updated")
	s.publish(ctx, domain.EventPromotionUpdated, p)
	return p, nil
}

// Delete 软删除：记录保留，但默认查询不可见
func (s *PromotionService) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "service.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("promotion.id", id))

	if _, err := s.repo.SoftDelete(ctx, id); err != nil {
		span.RecordError(err)
		return err
	}

	logger.Ctx(ctx).Info().Str("promotion_id", id).Msg("promotion soft deleted")
	s.publishDeleted(ctx, id)
	return nil
}

// HardDelete 永久删除，无论记录是否已被软删除
func (s *PromotionService) HardDelete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "service.HardDelete")
	defer span.End()
	span.SetAttributes(attribute.String("promotion.id", id))

	if err := s.repo.HardDelete(ctx, id); err != nil {
		span.RecordError(err)
		return err
	}

	logger.Ctx(ctx).Warn().Str("promotion_id", id).Msg("promotion permanently deleted")
	s.publishDeleted(ctx, id)
	return nil
}

// Restore 恢复一条软删除的促销并重新启用
func (s *PromotionService) Restore(ctx context.Context, id string) (*domain.Promotion, error) {
	ctx, span := s.tracer.Start(ctx, "service.Restore")
	defer span.End()
	span.SetAttributes(attribute.String("promotion.id", id))

	p, err := s.repo.Restore(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Ctx(ctx).Info().Str("promotion_id", id).Msg("promotion restored")
	s.publish(ctx, domain.EventPromotionUpdated, p)
	return p, nil
}

// ListActive 返回当前时刻有效的促销，按创建时间倒序
func (s *PromotionService) ListActive(ctx context.Context, params ListParams) (*domain.Page, error) {
	ctx, span := s.tracer.Start(ctx, "service.ListActive")
	defer span.End()

	return s.listFixed(ctx, params, s.activeCriteria(), domain.Order{Column: "createdAt", Direction: -1})
}

// ListByUserGroup 返回指定用户组当前有效的促销
func (s *PromotionService) ListByUserGroup(ctx context.Context, group string, params ListParams) (*domain.Page, error) {
	ctx, span := s.tracer.Start(ctx, "service.ListByUserGroup")
	defer span.End()

	group = strings.TrimSpace(group)
	if group == "" {
		err := domain.InvalidField("userGroupName", "required", "userGroupName is required")
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("promotion.user_group", group))

	c := s.activeCriteria()
	c.UserGroupName = &group
	return s.listFixed(ctx, params, c, domain.Order{Column: "createdAt", Direction: -1})
}

// ListDeleted 返回已软删除的促销，按最近更新时间倒序
func (s *PromotionService) ListDeleted(ctx context.Context, params ListParams) (*domain.Page, error) {
	ctx, span := s.tracer.Start(ctx, "service.ListDeleted")
	defer span.End()

	return s.listFixed(ctx, params, domain.Criteria{Deleted: domain.OnlyDeleted}, domain.Order{Column: "updatedAt", Direction: -1})
}

// Count 统计促销数量
func (s *PromotionService) Count(ctx context.Context, includeDeleted bool) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "service.Count")
	defer span.End()

	c := domain.Criteria{Deleted: domain.ExcludeDeleted}
	if includeDeleted {
		c.Deleted = domain.IncludeDeleted
	}
	n, err := s.repo.Count(ctx, c)
	if err != nil {
		span.RecordError(err)
		return 0, asInfrastructure(err)
	}
	return n, nil
}

func (s *PromotionService) activeCriteria() domain.Criteria {
	active := true
	now := s.now().UTC()
	return domain.Criteria{IsActive: &active, ActiveAt: &now, Deleted: domain.ExcludeDeleted}
}

// listFixed 用于谓词和排序固定的列表用例，只接受分页参数。
func (s *PromotionService) listFixed(ctx context.Context, params ListParams, c domain.Criteria, o domain.Order) (*domain.Page, error) {
	page, limit, err := ParsePagination(params.Page, params.Limit, s.maxLimit)
	if err != nil {
		trace.SpanFromContext(ctx).RecordError(err)
		return nil, err
	}
	result, err := s.engine.run(ctx, c, o, page, limit)
	if err != nil {
		trace.SpanFromContext(ctx).RecordError(err)
		return nil, err
	}
	return result, nil
}

// publish 在变更提交后投递事件，不等待结果，也不影响调用方。
func (s *PromotionService) publish(ctx context.Context, event domain.EventType, p *domain.Promotion) {
	s.publisher.Publish(context.WithoutCancel(ctx), port.Notification{
		Event:       event,
		Promotion:   ToPromotionResponse(p, s.now()),
		PromotionID: p.ID,
		Timestamp:   s.now().UTC(),
	})
}

func (s *PromotionService) publishDeleted(ctx context.Context, id string) {
	s.publisher.Publish(context.WithoutCancel(ctx), port.Notification{
		Event:       domain.EventPromotionDeleted,
		PromotionID: id,
		Timestamp:   s.now().UTC(),
	})
}
