package dao

import (
	"context"
	"errors"
	"time"

	"github.com/JrMarcco/jreward/internal/errs"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DailyStats 当日计数持久化实体，Counts 为 json 字符串。
type DailyStats struct {
	Id        uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	StatsKey  string `gorm:"column:stats_key;type:varchar(128);uniqueIndex"`
	Date      string `gorm:"column:date;type:char(10)"`
	Counts    string `gorm:"column:counts;type:text"`
	CreatedAt int64  `gorm:"column:created_at"`
	UpdatedAt int64  `gorm:"column:updated_at"`
}

func (ds DailyStats) TableName() string {
	return "daily_stats"
}

// DailyStatsDAO 当日计数的持久化接口，记录不存在时返回 errs.ErrDailyStatsNotFound。
type DailyStatsDAO interface {
	GetByKey(ctx context.Context, key string) (DailyStats, error)
	Upsert(ctx context.Context, entity DailyStats) error
}

var _ DailyStatsDAO = (*DefaultDailyStatsDAO)(nil)

// DefaultDailyStatsDAO 基于 gorm 的实现。
type DefaultDailyStatsDAO struct {
	db *gorm.DB
}

func (d *DefaultDailyStatsDAO) GetByKey(ctx context.Context, key string) (DailyStats, error) {
	var entity DailyStats
	err := d.db.WithContext(ctx).Where("stats_key = ?", key).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DailyStats{}, errs.ErrDailyStatsNotFound
		}
		return DailyStats{}, err
	}
	return entity, nil
}

// Upsert 按 stats_key 覆盖写入。
func (d *DefaultDailyStatsDAO) Upsert(ctx context.Context, entity DailyStats) error {
	now := time.Now().UnixMilli()
	entity.CreatedAt = now
	entity.UpdatedAt = now

	return d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stats_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"date", "counts", "updated_at"}),
	}).Create(&entity).Error
}

// InitTables 初始化表结构。
func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(&DailyStats{})
}

func NewDefaultDailyStatsDAO(db *gorm.DB) *DefaultDailyStatsDAO {
	return &DefaultDailyStatsDAO{
		db: db,
	}
}
