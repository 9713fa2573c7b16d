package application

import (
	"net/http"
	"time"

	"promohub/internal/service/promotion/domain"
)

// ISOLayout 与 JavaScript Date.toISOString 的输出一致，精确到毫秒。
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

const genericErrorMessage = "Internal Server Error"

// Response 是与传输层无关的响应：状态码加响应体，Body 为 nil 表示空响应。
type Response struct {
	StatusCode int
	Body       any
}

func formatTime(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// ToPromotionResponse 把领域对象映射为对外结构，isValid 以 now 为准计算。
func ToPromotionResponse(p *domain.Promotion, now time.Time) *PromotionResponse {
	if p == nil {
		return nil
	}
	return &PromotionResponse{
		ID:            p.ID,
		Name:          p.Name,
		UserGroupName: p.UserGroupName,
		Type:          string(p.Type),
		StartDate:     formatTime(p.StartDate),
		EndDate:       formatTime(p.EndDate),
		IsActive:      p.IsActive,
		IsValid:       p.IsValidAt(now),
		IsDeleted:     p.IsDeleted,
		CreatedAt:     formatTime(p.CreatedAt),
		UpdatedAt:     formatTime(p.UpdatedAt),
	}
}

func toResponses(items []*domain.Promotion, now time.Time) []*PromotionResponse {
	out := make([]*PromotionResponse, 0, len(items))
	for _, p := range items {
		out = append(out, ToPromotionResponse(p, now))
	}
	return out
}

// ListResult 包装分页结果。
func ListResult(page *domain.Page, now time.Time) Response {
	return Response{
		StatusCode: http.StatusOK,
		Body: ListResponse{
			Success: true,
			Data:    toResponses(page.Items, now),
			Pagination: Pagination{
				Total:      page.Total,
				Page:       page.Page,
				TotalPages: page.TotalPages,
				Limit:      page.Limit,
			},
		},
	}
}

// ItemResult 包装单条记录，用于查询、更新和恢复。
func ItemResult(p *domain.Promotion, now time.Time) Response {
	return Response{
		StatusCode: http.StatusOK,
		Body:       ItemResponse{Success: true, Data: ToPromotionResponse(p, now)},
	}
}

// CreatedResult 与 ItemResult 相同，但状态码为 201。
func CreatedResult(p *domain.Promotion, now time.Time) Response {
	r := ItemResult(p, now)
	r.StatusCode = http.StatusCreated
	return r
}

// DeletedResult 删除成功返回 204 与空响应体。
func DeletedResult() Response {
	return Response{StatusCode: http.StatusNoContent}
}

// CountResult 包装计数结果。
func CountResult(n int64) Response {
	return Response{StatusCode: http.StatusOK, Body: CountResponse{Success: true, Count: n}}
}

// ErrorResult 把任意错误渲染为统一错误信封。
// 非 *domain.Error 一律视为基础设施错误，消息使用通用文案；调用栈只在开发模式输出。
func ErrorResult(err error, development bool) Response {
	e, ok := domain.AsError(err)
	if !ok {
		body := ErrorResponse{Success: false, Message: genericErrorMessage}
		if development && err != nil {
			body.Stack = domain.Infrastructure(err, genericErrorMessage).Stack()
		}
		return Response{StatusCode: http.StatusInternalServerError, Body: body}
	}

	body := ErrorResponse{Success: false, Message: e.Message}
	if e.Kind != domain.KindInfrastructure && len(e.Details) > 0 {
		body.Details = e.Details
	}
	if development {
		body.Stack = e.Stack()
	}
	return Response{StatusCode: e.Status(), Body: body}
}
