package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ssebin/pandagrad-sub000/internal/model"
)

// CalendarRepository 学期日历数据访问接口
type CalendarRepository interface {
	List(ctx context.Context) ([]model.CalendarEntry, error)
	Upsert(ctx context.Context, entries []model.CalendarEntry) error
}

type calendarRepo struct {
	db *gorm.DB
}

// NewCalendarRepo 创建 CalendarRepository 实例
func NewCalendarRepo(db *gorm.DB) CalendarRepository {
	return &calendarRepo{db: db}
}

func (r *calendarRepo) List(ctx context.Context) ([]model.CalendarEntry, error) {
	var entries []model.CalendarEntry
	err := r.db.WithContext(ctx).
		Order("academic_year ASC, semester_parity ASC").
		Find(&entries).Error
	return entries, err
}

// Upsert 按 (academic_year, semester_parity) 覆盖写入
func (r *calendarRepo) Upsert(ctx context.Context, entries []model.CalendarEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "academic_year"}, {Name: "semester_parity"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"start_date": gorm.Expr("EXCLUDED.start_date"),
				"end_date":   gorm.Expr("EXCLUDED.end_date"),
				"updated_at": gorm.Expr("NOW()"),
			}),
		}).
		Create(&entries).Error
}
