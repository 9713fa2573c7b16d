package application

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"promohub/internal/service/promotion/domain"
)

// DefaultMaxLimit 是单页条数上限的默认值，超过时被截断而不是报错。
const DefaultMaxLimit = 100

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// 错误里使用 json 字段名，与请求体保持一致
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParsePagination 解析分页参数。缺省或无法解析时使用默认值，解析后小于 1 则报错。
// 偏移量 (page-1)*limit 溢出 int 的页码同样报错。
func ParsePagination(pageRaw, limitRaw string, maxLimit int) (int, int, error) {
	page := parseIntOr(pageRaw, domain.DefaultPage)
	limit := parseIntOr(limitRaw, domain.DefaultLimit)
	if page < 1 || limit < 1 {
		return 0, 0, domain.InvalidPagination(page, limit)
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	if page-1 > math.MaxInt/limit {
		return 0, 0, domain.InvalidPagination(page, limit)
	}
	return page, limit, nil
}

func parseIntOr(raw string, def int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// ParseSort 解析排序参数。字段名原样透传，未知字段由查询引擎按“不排序”处理。
func ParseSort(sortByRaw, sortOrderRaw string) (domain.Sort, error) {
	s := domain.Sort{Field: domain.DefaultSortField, Order: domain.DefaultSortOrder}
	if f := strings.TrimSpace(sortByRaw); f != "" {
		s.Field = f
	}
	if sortOrderRaw == "" {
		return s, nil
	}
	switch o := domain.SortOrder(strings.ToLower(strings.TrimSpace(sortOrderRaw))); o {
	case domain.SortAsc, domain.SortDesc:
		s.Order = o
	default:
		return domain.Sort{}, domain.InvalidSortOrder(sortOrderRaw)
	}
	return s, nil
}

// ParseDate 按支持的格式依次尝试解析，结果统一为 UTC。
func ParseDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, domain.InvalidDate(field, raw)
}

func parseBool(field, raw string) (*bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, domain.InvalidField(field, "boolean", fmt.Sprintf("%s must be a boolean, received: %s", field, raw))
	}
	return &b, nil
}

func optString(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return &raw
}

// ParseFilters 解析过滤条件。日期无法解析时立即失败。
func ParseFilters(p ListParams) (domain.Filters, error) {
	var f domain.Filters
	if t := optString(p.Type); t != nil {
		pt := domain.PromotionType(*t)
		if err := ValidateType(&pt); err != nil {
			return f, err
		}
		f.Type = &pt
	}
	f.UserGroupName = optString(p.UserGroupName)
	f.Search = optString(p.Search)

	if s := optString(p.StartDate); s != nil {
		t, err := ParseDate("startDate", *s)
		if err != nil {
			return f, err
		}
		f.StartDate = &t
	}
	if s := optString(p.EndDate); s != nil {
		t, err := ParseDate("endDate", *s)
		if err != nil {
			return f, err
		}
		f.EndDate = &t
	}
	if err := ValidateDateRange(f.StartDate, f.EndDate); err != nil {
		return f, err
	}

	active, err := parseBool("isActive", p.IsActive)
	if err != nil {
		return f, err
	}
	f.IsActive = active
	return f, nil
}

// ValidateDateRange 两端都存在且 start >= end 时报错。
func ValidateDateRange(start, end *time.Time) error {
	if start == nil || end == nil {
		return nil
	}
	if !start.Before(*end) {
		return domain.InvalidDateRange(*start, *end)
	}
	return nil
}

// ValidateType 类型存在时必须属于枚举集合。
func ValidateType(t *domain.PromotionType) error {
	if t == nil || t.IsValid() {
		return nil
	}
	return domain.InvalidType(string(*t))
}

// ParseListQuery 是列表请求的唯一入口，产出经过校验的规范查询描述。
func ParseListQuery(p ListParams, maxLimit int) (domain.Query, error) {
	page, limit, err := ParsePagination(p.Page, p.Limit, maxLimit)
	if err != nil {
		return domain.Query{}, err
	}
	sort, err := ParseSort(p.SortBy, p.SortOrder)
	if err != nil {
		return domain.Query{}, err
	}
	filters, err := ParseFilters(p)
	if err != nil {
		return domain.Query{}, err
	}
	includeDeleted, err := parseBool("includeDeleted", p.IncludeDeleted)
	if err != nil {
		return domain.Query{}, err
	}
	return domain.Query{
		Filters:        filters,
		IncludeDeleted: includeDeleted != nil && *includeDeleted,
		Page:           page,
		Limit:          limit,
		Sort:           sort,
	}, nil
}

// ValidateCreate 校验创建请求并转换为领域对象，ID 与时间戳留给存储层填充。
func ValidateCreate(req CreatePromotionRequest) (*domain.Promotion, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		req.Name = strings.TrimSpace(req.PromotionName)
	}
	req.UserGroupName = strings.TrimSpace(req.UserGroupName)
	req.Type = strings.TrimSpace(req.Type)
	req.StartDate = strings.TrimSpace(req.StartDate)
	req.EndDate = strings.TrimSpace(req.EndDate)

	if err := validate.Struct(req); err != nil {
		return nil, translateValidation(err)
	}

	start, err := ParseDate("startDate", req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := ParseDate("endDate", req.EndDate)
	if err != nil {
		return nil, err
	}
	if err := ValidateDateRange(&start, &end); err != nil {
		return nil, err
	}

	p := &domain.Promotion{
		Name:          req.Name,
		UserGroupName: req.UserGroupName,
		Type:          domain.PromotionType(req.Type),
		StartDate:     start,
		EndDate:       end,
		IsActive:      true,
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	return p, nil
}

// ValidateUpdate 逐个校验已提供的字段并转换为 Patch。
// 日期区间需要与原记录合并后才能判断，这一步留给调用方。
func ValidateUpdate(req UpdatePromotionRequest) (domain.Patch, error) {
	var patch domain.Patch

	name := req.Name
	if name == nil {
		name = req.PromotionName
	}
	if name != nil {
		v, err := checkText("name", *name)
		if err != nil {
			return patch, err
		}
		patch.Name = &v
	}
	if req.UserGroupName != nil {
		v, err := checkText("userGroupName", *req.UserGroupName)
		if err != nil {
			return patch, err
		}
		patch.UserGroupName = &v
	}
	if req.Type != nil {
		t := domain.PromotionType(strings.TrimSpace(*req.Type))
		if err := ValidateType(&t); err != nil {
			return patch, err
		}
		patch.Type = &t
	}
	if req.StartDate != nil {
		t, err := ParseDate("startDate", *req.StartDate)
		if err != nil {
			return patch, err
		}
		patch.StartDate = &t
	}
	if req.EndDate != nil {
		t, err := ParseDate("endDate", *req.EndDate)
		if err != nil {
			return patch, err
		}
		patch.EndDate = &t
	}
	if err := ValidateDateRange(patch.StartDate, patch.EndDate); err != nil {
		return patch, err
	}
	patch.IsActive = req.IsActive

	if patch.IsEmpty() {
		return patch, domain.InvalidField("body", "required", "At least one field must be provided for update")
	}
	return patch, nil
}

func checkText(field, raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if err := validate.Var(v, fmt.Sprintf("required,max=%d", domain.MaxNameLength)); err != nil {
		return "", translateFieldError(field, err)
	}
	return v, nil
}

func translateFieldError(field string, err error) error {
	var verrs validator.ValidationErrors
	if ok := asValidationErrors(err, &verrs); ok && len(verrs) > 0 {
		return fieldError(field, verrs[0].Tag(), verrs[0].Param(), verrs[0].Value())
	}
	return domain.InvalidField(field, "invalid", err.Error())
}

// translateValidation 把 validator 的第一个失败翻译为领域校验错误。
func translateValidation(err error) error {
	var verrs validator.ValidationErrors
	if !asValidationErrors(err, &verrs) || len(verrs) == 0 {
		return domain.InvalidField("body", "invalid", err.Error())
	}
	fe := verrs[0]
	return fieldError(fe.Field(), fe.Tag(), fe.Param(), fe.Value())
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}

func fieldError(field, tag, param string, value any) error {
	switch tag {
	case "required":
		return domain.InvalidField(field, tag, fmt.Sprintf("%s is required", field))
	case "max":
		return domain.InvalidField(field, tag, fmt.Sprintf("%s cannot exceed %s characters", field, param))
	case "oneof":
		if field == "type" {
			return domain.InvalidType(fmt.Sprint(value))
		}
		return domain.InvalidField(field, tag, fmt.Sprintf("%s must be one of [%s]", field, param))
	default:
		return domain.InvalidField(field, tag, fmt.Sprintf("%s failed on the %q rule", field, tag))
	}
}
