package infrastructure

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"promohub/internal/service/promotion/domain"
)

func TestMongoFilterDeletedVisibility(t *testing.T) {
	f := mongoFilter(domain.Criteria{})
	ne, ok := f["isDeleted"].(bson.M)
	if !ok || ne["$ne"] != true {
		t.Fatalf("exclude = %v", f)
	}
	if f := mongoFilter(domain.Criteria{Deleted: domain.OnlyDeleted}); f["isDeleted"] != true {
		t.Fatalf("only = %v", f)
	}
	if f := mongoFilter(domain.Criteria{Deleted: domain.IncludeDeleted}); len(f) != 0 {
		t.Fatalf("include = %v", f)
	}
}

func TestMongoFilterSearchEscapesPattern(t *testing.T) {
	f := mongoFilter(domain.Criteria{Deleted: domain.IncludeDeleted, Search: "50% (off)"})
	or, ok := f["$or"].(bson.A)
	if !ok || len(or) != 2 {
		t.Fatalf("$or = %v", f["$or"])
	}
	re := or[0].(bson.M)["name"].(primitive.Regex)
	if re.Pattern != `50% \(off\)` || re.Options != "i" {
		t.Fatalf("regex = %+v", re)
	}
}

func TestMongoFilterDateBounds(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	f := mongoFilter(domain.Criteria{StartFrom: &from, StartTo: &to})
	start := f["startDate"].(bson.M)
	if start["$gte"] != from || start["$lte"] != to {
		t.Fatalf("startDate = %v", start)
	}

	f = mongoFilter(domain.Criteria{StartTo: &to, ActiveAt: &now})
	start = f["startDate"].(bson.M)
	if start["$lte"] != now {
		t.Fatalf("tighter bound not used: %v", start)
	}
	if end := f["endDate"].(bson.M); end["$gte"] != now {
		t.Fatalf("endDate = %v", end)
	}
}

func TestMongoFilterEquality(t *testing.T) {
	bonus := domain.PromotionTypeBonus
	group := "vip"
	active := false
	f := mongoFilter(domain.Criteria{Type: &bonus, UserGroupName: &group, IsActive: &active})
	if f["type"] != "bonus" || f["userGroupName"] != "vip" || f["isActive"] != false {
		t.Fatalf("filter = %v", f)
	}
}

func TestMongoSort(t *testing.T) {
	if mongoSort(domain.Order{}) != nil {
		t.Fatal("empty order should not sort")
	}
	got := mongoSort(domain.Order{Column: "createdAt", Direction: -1})
	if len(got) != 1 || got[0].Key != "createdAt" || got[0].Value != -1 {
		t.Fatalf("sort = %v", got)
	}
}

func TestIDFilter(t *testing.T) {
	oid := primitive.NewObjectID()
	f, err := idFilter(oid.Hex())
	if err != nil || f["_id"] != oid {
		t.Fatalf("filter = %v, err = %v", f, err)
	}
	if _, err := idFilter("not-an-object-id"); !domain.IsNotFound(err) {
		t.Fatalf("err = %v", err)
	}
}

func TestPromotionDocumentRoundTrip(t *testing.T) {
	p := &domain.Promotion{
		Name:          "Summer Sale",
		UserGroupName: "vip",
		Type:          domain.PromotionTypeSale,
		StartDate:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		IsActive:      true,
	}
	doc := documentFromDomain(p)
	doc.ID = primitive.NewObjectID()
	got := doc.toDomain()
	if got.ID != doc.ID.Hex() || got.Name != p.Name || !got.StartDate.Equal(p.StartDate) || got.Type != p.Type {
		t.Fatalf("round trip = %+v", got)
	}
}
