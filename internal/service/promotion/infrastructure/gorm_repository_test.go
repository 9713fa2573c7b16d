package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"promohub/internal/service/promotion/domain"
)

var promotionColumns = []string{
	"id", "name", "user_group_name", "type", "start_date", "end_date",
	"is_active", "is_deleted", "created_at", "updated_at",
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *gorm.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	mock.MatchExpectationsInOrder(false)

	gdb, err := gorm.Open(mysql.New(mysql.Config{Conn: db, SkipInitializeWithVersion: true}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("gorm open: %v", err)
	}
	return db, mock, gdb
}

func newMockRepo(t *testing.T) (sqlmock.Sqlmock, *GormPromotionRepository) {
	t.Helper()
	_, mock, gdb := newMockDB(t)
	repo := NewGormPromotionRepository(gdb)
	repo.now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 987654321, time.UTC) }
	return mock, repo
}

func promotionRow(rows *sqlmock.Rows, id string, deleted bool) *sqlmock.Rows {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	return rows.AddRow(id, "Summer Sale", "vip", "sale", start, end, !deleted, deleted, created, created)
}

func TestGormCreate(t *testing.T) {
	mock, repo := newMockRepo(t)
	mock.ExpectExec("INSERT INTO `promotions`").WillReturnResult(sqlmock.NewResult(0, 1))

	p := &domain.Promotion{
		Name:          "Summer Sale",
		UserGroupName: "vip",
		Type:          domain.PromotionTypeSale,
		StartDate:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		IsActive:      true,
	}
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(p.ID) != 36 {
		t.Errorf("id = %q, want uuid", p.ID)
	}
	if p.CreatedAt.Nanosecond() != 987000000 {
		t.Errorf("created_at not truncated to millis: %v", p.CreatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGormCreateRejectsReversedWindow(t *testing.T) {
	_, repo := newMockRepo(t)
	p := &domain.Promotion{
		Name:      "Broken",
		Type:      domain.PromotionTypeEvent,
		StartDate: time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.Create(context.Background(), p); !domain.IsValidation(err) {
		t.Fatalf("err = %v, want validation error from hook", err)
	}
}

func TestGormFindByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery("SELECT \\* FROM `promotions` WHERE id = \\? AND is_deleted = \\?").
			WillReturnRows(promotionRow(sqlmock.NewRows(promotionColumns), "p-1", false))

		p, err := repo.FindByID(context.Background(), "p-1", false)
		if err != nil {
			t.Fatal(err)
		}
		if p.ID != "p-1" || p.Type != domain.PromotionTypeSale || !p.IsActive {
			t.Fatalf("promotion = %+v", p)
		}
	})

	t.Run("missing", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery("SELECT \\* FROM `promotions`").WillReturnRows(sqlmock.NewRows(promotionColumns))
		if _, err := repo.FindByID(context.Background(), "nope", false); !domain.IsNotFound(err) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("include deleted drops the filter", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery("SELECT \\* FROM `promotions` WHERE id = \\? ORDER BY").
			WillReturnRows(promotionRow(sqlmock.NewRows(promotionColumns), "p-2", true))
		p, err := repo.FindByID(context.Background(), "p-2", true)
		if err != nil || !p.IsDeleted {
			t.Fatalf("promotion = %+v, err = %v", p, err)
		}
	})

	t.Run("driver failure", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection refused"))
		_, err := repo.FindByID(context.Background(), "p-1", false)
		if !domain.IsInfrastructure(err) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestGormFindAppliesCriteria(t *testing.T) {
	mock, repo := newMockRepo(t)
	mock.ExpectQuery("SELECT \\* FROM `promotions` WHERE is_deleted = \\? AND type = \\? " +
		"AND \\(+LOWER\\(name\\) LIKE \\? OR LOWER\\(user_group_name\\) LIKE \\?\\)+ " +
		"AND start_date >= \\? ORDER BY `start_date` DESC LIMIT").
		WillReturnRows(promotionRow(sqlmock.NewRows(promotionColumns), "p-1", false))

	sale := domain.PromotionTypeSale
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	items, err := repo.Find(context.Background(),
		domain.Criteria{Type: &sale, Search: "Sum", StartFrom: &from},
		domain.Order{Column: "startDate", Direction: -1},
		domain.Window{Skip: 10, Limit: 10},
	)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d", len(items))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGormCount(t *testing.T) {
	mock, repo := newMockRepo(t)
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `promotions` WHERE is_deleted = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := repo.Count(context.Background(), domain.Criteria{Deleted: domain.OnlyDeleted})
	if err != nil || n != 7 {
		t.Fatalf("count = %d, err = %v", n, err)
	}
}

func TestGormUpdate(t *testing.T) {
	t.Run("partial", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery("SELECT \\* FROM `promotions`").
			WillReturnRows(promotionRow(sqlmock.NewRows(promotionColumns), "p-1", false))
		mock.ExpectExec("UPDATE `promotions` SET").WillReturnResult(sqlmock.NewResult(0, 1))

		name := "Mega Sale"
		p, err := repo.Update(context.Background(), "p-1", domain.Patch{Name: &name})
		if err != nil {
			t.Fatal(err)
		}
		if p.Name != "Mega Sale" || p.UserGroupName != "vip" {
			t.Fatalf("merged = %+v", p)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet expectations: %v", err)
		}
	})

	t.Run("merged window invalid", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery("SELECT \\* FROM `promotions`").
			WillReturnRows(promotionRow(sqlmock.NewRows(promotionColumns), "p-1", false))

		end := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
		if _, err := repo.Update(context.Background(), "p-1", domain.Patch{EndDate: &end}); !domain.IsValidation(err) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery("SELECT \\* FROM `promotions`").WillReturnRows(sqlmock.NewRows(promotionColumns))
		active := false
		if _, err := repo.Update(context.Background(), "nope", domain.Patch{IsActive: &active}); !domain.IsNotFound(err) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestGormSoftDeleteAndRestore(t *testing.T) {
	t.Run("soft delete", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectExec("UPDATE `promotions` SET").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT \\* FROM `promotions` WHERE id = \\?").
			WillReturnRows(promotionRow(sqlmock.NewRows(promotionColumns), "p-1", true))

		p, err := repo.SoftDelete(context.Background(), "p-1")
		if err != nil || !p.IsDeleted || p.IsActive {
			t.Fatalf("promotion = %+v, err = %v", p, err)
		}
	})

	t.Run("restore of live record", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectExec("UPDATE `promotions` SET").WillReturnResult(sqlmock.NewResult(0, 0))
		if _, err := repo.Restore(context.Background(), "p-1"); !domain.IsNotFound(err) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestGormHardDelete(t *testing.T) {
	mock, repo := newMockRepo(t)
	mock.ExpectExec("DELETE FROM `promotions` WHERE id = \\?").WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.HardDelete(context.Background(), "p-1"); err != nil {
		t.Fatal(err)
	}

	mock.ExpectExec("DELETE FROM `promotions`").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.HardDelete(context.Background(), "p-1"); !domain.IsNotFound(err) {
		t.Fatalf("err = %v", err)
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Fatalf("escapeLike = %q", got)
	}
}
