// internal/service/promotion/domain/query.go
package domain

import "time"

// SortOrder 是对外的排序方向字面量。
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Direction 是存储层使用的排序方向：asc -> 1, desc -> -1。
func (o SortOrder) Direction() int {
	if o == SortAsc {
		return 1
	}
	return -1
}

const (
	DefaultPage      = 1
	DefaultLimit     = 10
	DefaultSortField = "createdAt"
	DefaultSortOrder = SortDesc
)

// Filters 是列表查询的可选过滤条件，nil 表示未提供。
type Filters struct {
	Type          *PromotionType
	UserGroupName *string
	Search        *string
	StartDate     *time.Time
	EndDate       *time.Time
	IsActive      *bool
}

// Sort 是单字段排序描述。
type Sort struct {
	Field string
	Order SortOrder
}

// Query 是经过校验的规范查询描述，只能由校验层构造。
type Query struct {
	Filters        Filters
	IncludeDeleted bool
	Page           int
	Limit          int
	Sort           Sort
}

// Skip 返回分页窗口的偏移量。
func (q Query) Skip() int {
	return (q.Page - 1) * q.Limit
}

// DeletedVisibility 控制软删除记录的可见性。
type DeletedVisibility int

const (
	ExcludeDeleted DeletedVisibility = iota
	IncludeDeleted
	OnlyDeleted
)

// Criteria 是与存储无关的查询谓词，所有条件之间为 AND。
// Search 在 name 与 userGroupName 上做不区分大小写的子串匹配（两者之间为 OR）。
// StartFrom/StartTo 只约束 startDate 字段。
type Criteria struct {
	Type          *PromotionType
	UserGroupName *string
	Search        string
	StartFrom     *time.Time
	StartTo       *time.Time
	IsActive      *bool
	// ActiveAt 非空时要求 startDate <= ActiveAt <= endDate。
	ActiveAt *time.Time
	Deleted  DeletedVisibility
}

// Order 是存储层排序指令。Column 为空表示不排序，沿用存储的自然顺序。
type Order struct {
	Column    string
	Direction int
}

// Window 是 skip/limit 窗口，Limit <= 0 表示不限制。
type Window struct {
	Skip  int
	Limit int
}

// Page 是查询引擎的输出。
type Page struct {
	Items      []*Promotion
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}
