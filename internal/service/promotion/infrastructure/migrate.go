package infrastructure

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"promohub/internal/pkg/logger"
	"promohub/internal/service/promotion/domain"
)

const migrateBatchSize = 200

// legacyTypes 是旧版本类型取值到现有枚举的映射，未列出的一律归为 event。
var legacyTypes = map[string]domain.PromotionType{
	"discount": domain.PromotionTypeSale,
	"reward":   domain.PromotionTypeBonus,
	"campaign": domain.PromotionTypeEvent,
}

// SchemaIssue 描述一条不符合当前约束的记录。
type SchemaIssue struct {
	ID      string `json:"id"`
	Field   string `json:"field"`
	Problem string `json:"problem"`
	Value   string `json:"value"`
}

// MigrationReport 汇总一次检查或修复的结果。
type MigrationReport struct {
	Total   int           `json:"total"`
	Updated int           `json:"updated"`
	Issues  []SchemaIssue `json:"issues"`
}

// RepairLegacyRows 扫描 promotions 表，修正旧数据中的类型与日期区间。
// dryRun 为 true 时只报告问题，不写库。
func RepairLegacyRows(ctx context.Context, db *gorm.DB, now time.Time, dryRun bool) (*MigrationReport, error) {
	report := &MigrationReport{Issues: []SchemaIssue{}}
	now = now.UTC().Truncate(time.Millisecond)

	var batch []PromotionModel
	res := db.WithContext(ctx).FindInBatches(&batch, migrateBatchSize, func(tx *gorm.DB, _ int) error {
		for i := range batch {
			m := &batch[i]
			report.Total++

			cols, issues := inspectRow(m, now)
			report.Issues = append(report.Issues, issues...)
			if len(cols) == 0 || dryRun {
				continue
			}
			cols["updated_at"] = now
			if err := db.WithContext(ctx).Model(&PromotionModel{}).Where("id = ?", m.ID).Updates(cols).Error; err != nil {
				return errors.Wrapf(err, "repair promotion %s", m.ID)
			}
			report.Updated++
			logger.Ctx(ctx).Info().Str("promotion_id", m.ID).Int("columns", len(cols)).Msg("promotion repaired")
		}
		return nil
	})
	if res.Error != nil {
		return report, errors.Wrap(res.Error, "scan promotions")
	}
	return report, nil
}

// inspectRow 返回需要修正的列以及发现的问题。
func inspectRow(m *PromotionModel, now time.Time) (map[string]interface{}, []SchemaIssue) {
	cols := map[string]interface{}{}
	var issues []SchemaIssue
	report := func(field, problem, value string) {
		issues = append(issues, SchemaIssue{ID: m.ID, Field: field, Problem: problem, Value: value})
	}

	if t := domain.PromotionType(m.Type); !t.IsValid() {
		report("type", "invalid enum value", m.Type)
		mapped, ok := legacyTypes[m.Type]
		if !ok {
			mapped = domain.PromotionTypeEvent
		}
		cols["type"] = string(mapped)
	}
	if m.Name == "" {
		report("name", "missing", "")
	}
	if m.UserGroupName == "" {
		report("userGroupName", "missing", "")
	}

	start, end := m.StartDate, m.EndDate
	if start.IsZero() {
		report("startDate", "invalid date", "")
		start = now
		cols["start_date"] = start
	}
	if end.IsZero() {
		report("endDate", "invalid date", "")
		end = now.Add(24 * time.Hour)
		cols["end_date"] = end
	}
	if !start.Before(end) {
		report("endDate", "not after startDate", end.UTC().Format(time.RFC3339))
		cols["end_date"] = start.Add(24 * time.Hour)
	}
	return cols, issues
}
