package application

// ListParams 是列表接口的原始查询参数，全部保持字符串形态，由校验层负责解析。
type ListParams struct {
	Page           string `form:"page"`
	Limit          string `form:"limit"`
	SortBy         string `form:"sortBy"`
	SortOrder      string `form:"sortOrder"`
	Type           string `form:"type"`
	UserGroupName  string `form:"userGroupName"`
	Search         string `form:"search"`
	StartDate      string `form:"startDate"`
	EndDate        string `form:"endDate"`
	IsActive       string `form:"isActive"`
	IncludeDeleted string `form:"includeDeleted"`
}

// CreatePromotionRequest 是创建促销的请求体。
// promotionName 是 name 的历史别名，两者同时出现时以 name 为准。
type CreatePromotionRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	PromotionName string `json:"promotionName,omitempty" validate:"-"`
	UserGroupName string `json:"userGroupName" validate:"required,max=100"`
	Type          string `json:"type" validate:"required,oneof=event sale bonus"`
	StartDate     string `json:"startDate" validate:"required"`
	EndDate       string `json:"endDate" validate:"required"`
	IsActive      *bool  `json:"isActive,omitempty"`
}

// UpdatePromotionRequest 是部分更新的请求体，nil 表示字段未提供。
type UpdatePromotionRequest struct {
	Name          *string `json:"name,omitempty"`
	PromotionName *string `json:"promotionName,omitempty"`
	UserGroupName *string `json:"userGroupName,omitempty"`
	Type          *string `json:"type,omitempty"`
	StartDate     *string `json:"startDate,omitempty"`
	EndDate       *string `json:"endDate,omitempty"`
	IsActive      *bool   `json:"isActive,omitempty"`
}

// PromotionResponse 是对外暴露的促销结构。
type PromotionResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	UserGroupName string `json:"userGroupName"`
	Type          string `json:"type"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	IsActive      bool   `json:"isActive"`
	IsValid       bool   `json:"isValid"`
	IsDeleted     bool   `json:"isDeleted,omitempty"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
}

// Pagination 是列表响应中的分页元数据。
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	TotalPages int   `json:"totalPages"`
	Limit      int   `json:"limit"`
}

// ListResponse 是列表接口的响应体。
type ListResponse struct {
	Success    bool                 `json:"success"`
	Data       []*PromotionResponse `json:"data"`
	Pagination Pagination           `json:"pagination"`
}

// ItemResponse 是单条记录接口的响应体。
type ItemResponse struct {
	Success bool               `json:"success"`
	Data    *PromotionResponse `json:"data"`
}

// CountResponse 是计数接口的响应体。
type CountResponse struct {
	Success bool  `json:"success"`
	Count   int64 `json:"count"`
}

// ErrorResponse 是统一的错误信封。
type ErrorResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Stack   string         `json:"stack,omitempty"`
}
