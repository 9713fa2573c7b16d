package application

import (
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"promohub/internal/service/promotion/domain"
)

func ptr[T any](v T) *T { return &v }

func TestParsePagination(t *testing.T) {
	cases := []struct {
		name, page, limit string
		wantPage, wantLim int
		wantErr           bool
	}{
		{"defaults", "", "", 1, 10, false},
		{"explicit", "3", "25", 3, 25, false},
		{"unparseable falls back", "abc", "1.5", 1, 10, false},
		{"clamped", "1", "500", 1, DefaultMaxLimit, false},
		{"zero page", "0", "10", 0, 0, true},
		{"negative limit", "1", "-1", 0, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, limit, err := ParsePagination(tc.page, tc.limit, DefaultMaxLimit)
			if tc.wantErr {
				if !domain.IsValidation(err) {
					t.Fatalf("err = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if page != tc.wantPage || limit != tc.wantLim {
				t.Fatalf("got (%d, %d), want (%d, %d)", page, limit, tc.wantPage, tc.wantLim)
			}
		})
	}
}

func TestParsePaginationDetails(t *testing.T) {
	_, _, err := ParsePagination("0", "-1", DefaultMaxLimit)
	e, ok := domain.AsError(err)
	if !ok {
		t.Fatalf("err = %v", err)
	}
	if e.Details["page"] != 0 || e.Details["limit"] != -1 {
		t.Fatalf("details = %v", e.Details)
	}
}

func TestParsePaginationOffsetOverflow(t *testing.T) {
	// 最大合法页码：(page-1)*limit 恰好不溢出
	edge := strconv.Itoa(math.MaxInt/100 + 1)
	if page, _, err := ParsePagination(edge, "100", DefaultMaxLimit); err != nil || page != math.MaxInt/100+1 {
		t.Fatalf("edge page = %d, %v", page, err)
	}

	for _, tc := range []struct{ page, limit string }{
		{"100000000000000000", "100"},
		{strconv.Itoa(math.MaxInt/100 + 2), "100"},
		{strconv.Itoa(math.MaxInt), "2"},
		// limit 先被截断到 100，再判断溢出
		{"100000000000000000", "1000"},
	} {
		_, _, err := ParsePagination(tc.page, tc.limit, DefaultMaxLimit)
		if !domain.IsValidation(err) {
			t.Errorf("page=%s limit=%s: err = %v", tc.page, tc.limit, err)
		}
	}
	if _, _, err := ParsePagination(strconv.Itoa(math.MaxInt), "1", DefaultMaxLimit); err != nil {
		t.Errorf("limit 1 never overflows: %v", err)
	}
}

func TestParseSort(t *testing.T) {
	s, err := ParseSort("", "")
	if err != nil || s.Field != "createdAt" || s.Order != domain.SortDesc {
		t.Fatalf("default sort = %+v, %v", s, err)
	}

	s, err = ParseSort("name", " ASC ")
	if err != nil || s.Field != "name" || s.Order != domain.SortAsc {
		t.Fatalf("sort = %+v, %v", s, err)
	}

	_, err = ParseSort("name", "up")
	e, ok := domain.AsError(err)
	if !ok || e.Kind != domain.KindValidation || e.Details["sortOrder"] != "up" {
		t.Fatalf("err = %v", err)
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{"2025-06-01", "2025-06-01T00:00:00", "2025-06-01T00:00:00Z", "2025-06-01T02:00:00+02:00", "2025-06-01T00:00:00.000Z"} {
		got, err := ParseDate("startDate", raw)
		if err != nil {
			t.Errorf("%s: %v", raw, err)
			continue
		}
		if !got.Equal(want) || got.Location() != time.UTC {
			t.Errorf("%s: got %v", raw, got)
		}
	}

	if _, err := ParseDate("startDate", "06/01/2025"); !domain.IsValidation(err) {
		t.Fatalf("err = %v", err)
	}
}

func TestParseListQuery(t *testing.T) {
	q, err := ParseListQuery(ListParams{
		Page:           "2",
		Limit:          "5",
		SortBy:         "startDate",
		SortOrder:      "asc",
		Type:           "bonus",
		UserGroupName:  " vip ",
		Search:         "summer",
		StartDate:      "2025-01-01",
		EndDate:        "2025-12-31",
		IsActive:       "true",
		IncludeDeleted: "1",
	}, DefaultMaxLimit)
	if err != nil {
		t.Fatal(err)
	}
	if q.Page != 2 || q.Limit != 5 || q.Skip() != 5 || !q.IncludeDeleted {
		t.Errorf("query = %+v", q)
	}
	f := q.Filters
	if *f.Type != domain.PromotionTypeBonus || *f.UserGroupName != "vip" || *f.Search != "summer" || !*f.IsActive {
		t.Errorf("filters = %+v", f)
	}
	if f.StartDate == nil || f.EndDate == nil {
		t.Errorf("date filters missing")
	}

	bad := []ListParams{
		{Type: "coupon"},
		{StartDate: "2025-12-31", EndDate: "2025-01-01"},
		{StartDate: "2025-01-01", EndDate: "2025-01-01"},
		{EndDate: "not-a-date"},
		{IsActive: "perhaps"},
		{IncludeDeleted: "nah"},
		{SortOrder: "random"},
	}
	for _, p := range bad {
		if _, err := ParseListQuery(p, DefaultMaxLimit); !domain.IsValidation(err) {
			t.Errorf("%+v: err = %v", p, err)
		}
	}
}

func validCreate() CreatePromotionRequest {
	return CreatePromotionRequest{
		Name:          "Summer Sale",
		UserGroupName: "vip",
		Type:          "sale",
		StartDate:     "2025-06-01T00:00:00Z",
		EndDate:       "2025-06-30T00:00:00Z",
	}
}

func TestValidateCreate(t *testing.T) {
	p, err := ValidateCreate(validCreate())
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsActive || p.Type != domain.PromotionTypeSale || p.ID != "" {
		t.Fatalf("promotion = %+v", p)
	}

	req := validCreate()
	req.IsActive = ptr(false)
	req.Name = "  padded  "
	p, err = ValidateCreate(req)
	if err != nil || p.IsActive || p.Name != "padded" {
		t.Fatalf("promotion = %+v, err = %v", p, err)
	}

	req = validCreate()
	req.Name = ""
	req.PromotionName = "Legacy Name"
	if p, err = ValidateCreate(req); err != nil || p.Name != "Legacy Name" {
		t.Fatalf("alias: %+v, %v", p, err)
	}
}

func TestValidateCreateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CreatePromotionRequest)
		field  string
	}{
		{"missing name", func(r *CreatePromotionRequest) { r.Name = "   " }, "name"},
		{"long name", func(r *CreatePromotionRequest) { r.Name = strings.Repeat("x", 101) }, "name"},
		{"missing group", func(r *CreatePromotionRequest) { r.UserGroupName = "" }, "userGroupName"},
		{"bad type", func(r *CreatePromotionRequest) { r.Type = "coupon" }, "type"},
		{"missing start", func(r *CreatePromotionRequest) { r.StartDate = "" }, "startDate"},
		{"unparseable end", func(r *CreatePromotionRequest) { r.EndDate = "soon" }, "endDate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validCreate()
			tc.mutate(&req)
			_, err := ValidateCreate(req)
			e, ok := domain.AsError(err)
			if !ok || e.Kind != domain.KindValidation {
				t.Fatalf("err = %v", err)
			}
			if e.Details["field"] != tc.field {
				t.Fatalf("details = %v, want field %s", e.Details, tc.field)
			}
		})
	}

	t.Run("window", func(t *testing.T) {
		req := validCreate()
		req.EndDate = req.StartDate
		_, err := ValidateCreate(req)
		e, ok := domain.AsError(err)
		if !ok || e.Details["startDate"] == nil || e.Details["endDate"] == nil {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("name exactly at limit", func(t *testing.T) {
		req := validCreate()
		req.Name = strings.Repeat("é", 100)
		if _, err := ValidateCreate(req); err != nil {
			t.Fatal(err)
		}
	})
}

func TestValidateUpdate(t *testing.T) {
	if _, err := ValidateUpdate(UpdatePromotionRequest{}); !domain.IsValidation(err) {
		t.Fatalf("empty patch err = %v", err)
	}

	patch, err := ValidateUpdate(UpdatePromotionRequest{PromotionName: ptr(" New "), IsActive: ptr(false)})
	if err != nil {
		t.Fatal(err)
	}
	if *patch.Name != "New" || *patch.IsActive || patch.Type != nil {
		t.Fatalf("patch = %+v", patch)
	}

	bad := []UpdatePromotionRequest{
		{Name: ptr("")},
		{UserGroupName: ptr(strings.Repeat("g", 101))},
		{Type: ptr("voucher")},
		{StartDate: ptr("yesterday")},
		{StartDate: ptr("2025-02-01"), EndDate: ptr("2025-01-01")},
	}
	for _, req := range bad {
		if _, err := ValidateUpdate(req); !domain.IsValidation(err) {
			t.Errorf("%+v: err = %v", req, err)
		}
	}
}
