package infrastructure

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"promohub/internal/service/promotion/domain"
)

// MemoryRepository 是进程内实现，store.driver=memory 时使用，也用于测试。
// 未指定排序时按插入顺序返回，与数据库的自然顺序对应。
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*domain.Promotion
	order []string
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		items: make(map[string]*domain.Promotion),
		now:   time.Now,
	}
}

// WithClock 替换时间源，返回自身便于链式调用。
func (r *MemoryRepository) WithClock(now func() time.Time) *MemoryRepository {
	r.now = now
	return r
}

func (r *MemoryRepository) Create(_ context.Context, p *domain.Promotion) error {
	if !p.HasValidWindow() {
		return domain.InvalidDateRange(p.StartDate, p.EndDate)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	r.items[p.ID] = &cp
	r.order = append(r.order, p.ID)
	return nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string, includeDeleted bool) (*domain.Promotion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok || (p.IsDeleted && !includeDeleted) {
		return nil, domain.PromotionNotFound(id)
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryRepository) Find(_ context.Context, c domain.Criteria, o domain.Order, w domain.Window) ([]*domain.Promotion, error) {
	r.mu.RLock()
	matched := make([]*domain.Promotion, 0)
	for _, id := range r.order {
		if p := r.items[id]; matchCriteria(c, p) {
			cp := *p
			matched = append(matched, &cp)
		}
	}
	r.mu.RUnlock()

	if o.Column != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			cmp := compareField(o.Column, matched[i], matched[j])
			if o.Direction < 0 {
				return cmp > 0
			}
			return cmp < 0
		})
	}

	skip := max(w.Skip, 0)
	if skip >= len(matched) {
		return []*domain.Promotion{}, nil
	}
	matched = matched[skip:]
	if w.Limit > 0 && w.Limit < len(matched) {
		matched = matched[:w.Limit]
	}
	return matched, nil
}

func (r *MemoryRepository) Count(_ context.Context, c domain.Criteria) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, p := range r.items {
		if matchCriteria(c, p) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) Update(_ context.Context, id string, patch domain.Patch) (*domain.Promotion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok || p.IsDeleted {
		return nil, domain.PromotionNotFound(id)
	}
	merged := patch.ApplyTo(*p)
	if !merged.HasValidWindow() {
		return nil, domain.InvalidDateRange(merged.StartDate, merged.EndDate)
	}
	merged.UpdatedAt = r.now().UTC()
	*p = merged
	cp := merged
	return &cp, nil
}

func (r *MemoryRepository) SoftDelete(_ context.Context, id string) (*domain.Promotion, error) {
	return r.flip(id, false, func(p *domain.Promotion) {
		p.IsDeleted = true
		p.IsActive = false
	})
}

func (r *MemoryRepository) Restore(_ context.Context, id string) (*domain.Promotion, error) {
	return r.flip(id, true, func(p *domain.Promotion) {
		p.IsDeleted = false
		p.IsActive = true
	})
}

// flip 只作用于 IsDeleted == deleted 的记录，否则视为不存在。
func (r *MemoryRepository) flip(id string, deleted bool, fn func(*domain.Promotion)) (*domain.Promotion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok || p.IsDeleted != deleted {
		return nil, domain.PromotionNotFound(id)
	}
	fn(p)
	p.UpdatedAt = r.now().UTC()
	cp := *p
	return &cp, nil
}

func (r *MemoryRepository) HardDelete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.PromotionNotFound(id)
	}
	delete(r.items, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func matchCriteria(c domain.Criteria, p *domain.Promotion) bool {
	switch c.Deleted {
	case domain.ExcludeDeleted:
		if p.IsDeleted {
			return false
		}
	case domain.OnlyDeleted:
		if !p.IsDeleted {
			return false
		}
	}
	if c.Type != nil && p.Type != *c.Type {
		return false
	}
	if c.UserGroupName != nil && p.UserGroupName != *c.UserGroupName {
		return false
	}
	if c.Search != "" {
		s := strings.ToLower(c.Search)
		if !strings.Contains(strings.ToLower(p.Name), s) && !strings.Contains(strings.ToLower(p.UserGroupName), s) {
			return false
		}
	}
	if c.StartFrom != nil && p.StartDate.Before(*c.StartFrom) {
		return false
	}
	if c.StartTo != nil && p.StartDate.After(*c.StartTo) {
		return false
	}
	if c.IsActive != nil && p.IsActive != *c.IsActive {
		return false
	}
	if c.ActiveAt != nil && (c.ActiveAt.Before(p.StartDate) || c.ActiveAt.After(p.EndDate)) {
		return false
	}
	return true
}

func compareField(column string, a, b *domain.Promotion) int {
	switch column {
	case "createdAt":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updatedAt":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "startDate":
		return a.StartDate.Compare(b.StartDate)
	case "endDate":
		return a.EndDate.Compare(b.EndDate)
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "userGroupName":
		return strings.Compare(a.UserGroupName, b.UserGroupName)
	case "type":
		return strings.Compare(string(a.Type), string(b.Type))
	case "isActive":
		return boolRank(a.IsActive) - boolRank(b.IsActive)
	}
	return 0
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
