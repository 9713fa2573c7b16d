package notify

import (
	"testing"
	"time"

	"promohub/internal/service/promotion/domain"
	"promohub/internal/service/promotion/port"
)

func created(promotionType string) port.Notification {
	return port.Notification{
		Event:       domain.EventPromotionCreated,
		PromotionID: "p-1",
		Promotion: map[string]any{
			"id":            "p-1",
			"name":          "Summer Sale",
			"userGroupName": "VIP",
			"type":          promotionType,
			"isActive":      true,
		},
		Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCompileFilter(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
		wantNil bool
	}{
		{name: "empty", expr: "", wantNil: true},
		{name: "bool", expr: `event == "promotion_created"`},
		{name: "map access", expr: `promotion.type == "sale"`},
		{name: "syntax error", expr: `event ==`, wantErr: true},
		{name: "unknown variable", expr: `order == 1`, wantErr: true},
		{name: "not bool", expr: `promotionId`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := CompileFilter(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CompileFilter(%q) err = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
			if tt.wantNil && f != nil {
				t.Fatalf("CompileFilter(%q) = %v, want nil", tt.expr, f)
			}
		})
	}
}

func TestFilterMatch(t *testing.T) {
	deleted := port.Notification{Event: domain.EventPromotionDeleted, PromotionID: "p-9", Timestamp: time.Now()}

	tests := []struct {
		name string
		expr string
		n    port.Notification
		want bool
	}{
		{name: "type matches", expr: `promotion.type == "sale"`, n: created("sale"), want: true},
		{name: "type differs", expr: `promotion.type == "sale"`, n: created("bonus"), want: false},
		{name: "event and group", expr: `event == "promotion_created" && promotion.userGroupName == "VIP"`, n: created("event"), want: true},
		{name: "missing key on delete", expr: `promotion.type == "sale"`, n: deleted, want: false},
		{name: "guarded delete", expr: `event == "promotion_deleted" || promotion.type == "sale"`, n: deleted, want: true},
		{name: "id on delete", expr: `promotionId == "p-9"`, n: deleted, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := CompileFilter(tt.expr)
			if err != nil {
				t.Fatalf("CompileFilter: %v", err)
			}
			vars, err := Activation(tt.n)
			if err != nil {
				t.Fatalf("Activation: %v", err)
			}
			if got := f.Match(vars); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNilFilterMatchesEverything(t *testing.T) {
	var f *Filter
	if !f.Match(nil) {
		t.Fatal("nil filter should match")
	}
}
