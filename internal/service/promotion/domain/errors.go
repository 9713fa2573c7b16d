// internal/service/promotion/domain/errors.go
package domain

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Kind 是错误的分类标签，决定了对外暴露的状态码。
type Kind string

const (
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindInfrastructure Kind = "infrastructure"
)

// Status 将错误分类映射为 HTTP 状态码。
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error 是整个服务唯一的结构化错误类型。
// 校验、查找、存储层都返回它，由接口层统一翻译成响应信封。
type Error struct {
	Kind    Kind
	Message string
	// Details 会原样暴露给调用方，只放字段名、非法值这类信息。
	Details map[string]any
	Cause   error

	stack error
}

func newError(kind Kind, msg string, details map[string]any) *Error {
	return &Error{
		Kind:    kind,
		Message: msg,
		Details: details,
		stack:   errors.New(msg),
	}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Status 返回该错误对应的 HTTP 状态码。
func (e *Error) Status() int { return e.Kind.Status() }

// Stack 返回创建错误时捕获的调用栈，仅在开发模式下输出。
func (e *Error) Stack() string {
	if e.Cause != nil {
		return fmt.Sprintf("%+v", e.Cause)
	}
	if e.stack == nil {
		return ""
	}
	return fmt.Sprintf("%+v", e.stack)
}

// WithDetail 返回追加了一个 detail 的副本，Details 被视为不可变。
func (e *Error) WithDetail(k string, v any) *Error {
	cp := *e
	m := make(map[string]any, len(e.Details)+1)
	for k0, v0 := range e.Details {
		m[k0] = v0
	}
	m[k] = v
	cp.Details = m
	return &cp
}

// ---- Validation ----

// InvalidPagination 分页参数越界。
func InvalidPagination(page, limit int) *Error {
	return newError(KindValidation,
		fmt.Sprintf("Invalid pagination parameters: page=%d, limit=%d. Both must be positive numbers.", page, limit),
		map[string]any{"page": page, "limit": limit})
}

// InvalidSortOrder 排序方向既不是 asc 也不是 desc。
func InvalidSortOrder(order string) *Error {
	return newError(KindValidation,
		fmt.Sprintf(`Sort order must be either "asc" or "desc", received: %s`, order),
		map[string]any{"sortOrder": order})
}

// InvalidDateRange startDate 不早于 endDate。
func InvalidDateRange(start, end time.Time) *Error {
	s, e := start.UTC().Format(time.RFC3339Nano), end.UTC().Format(time.RFC3339Nano)
	return newError(KindValidation,
		fmt.Sprintf("End date (%s) must be after start date (%s)", e, s),
		map[string]any{"startDate": s, "endDate": e})
}

// InvalidDate 日期字符串无法解析。
func InvalidDate(field, value string) *Error {
	return newError(KindValidation,
		fmt.Sprintf("%s is not a valid date: %q", field, value),
		map[string]any{"field": field, "value": value})
}

// InvalidType 类型不在枚举集合内。
func InvalidType(value string) *Error {
	allowed := make([]string, 0, 3)
	for _, t := range PromotionTypes() {
		allowed = append(allowed, string(t))
	}
	return newError(KindValidation,
		fmt.Sprintf("Type must be one of %s, received: %s", strings.Join(allowed, ", "), value),
		map[string]any{"field": "type", "value": value, "allowed": allowed})
}

// InvalidField 通用的字段校验失败。
func InvalidField(field, rule, msg string) *Error {
	return newError(KindValidation, msg, map[string]any{"field": field, "rule": rule})
}

// ---- NotFound ----

// NotFound 标识符无法解析到一条存活记录。
func NotFound(resourceType, identifier string) *Error {
	return newError(KindNotFound,
		fmt.Sprintf("%s with identifier %q not found", resourceType, identifier),
		map[string]any{"resourceType": resourceType, "identifier": identifier})
}

// PromotionNotFound 是 NotFound 的促销专用版本。
func PromotionNotFound(id string) *Error {
	e := NotFound(ResourcePromotion, id)
	e.Message = fmt.Sprintf("Promotion with id %q not found", id)
	return e
}

// ---- Infrastructure ----

// Infrastructure 包装存储或传输层故障。cause 会被附带调用栈。
func Infrastructure(cause error, msg string) *Error {
	e := newError(KindInfrastructure, msg, nil)
	if cause != nil {
		e.Cause = errors.WithStack(cause)
	}
	return e
}

// AsError 提取错误链上的 *Error。
func AsError(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

func isKind(err error, k Kind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == k
}

func IsValidation(err error) bool     { return isKind(err, KindValidation) }
func IsNotFound(err error) bool       { return isKind(err, KindNotFound) }
func IsInfrastructure(err error) bool { return isKind(err, KindInfrastructure) }
