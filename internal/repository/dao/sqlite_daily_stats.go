package dao

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/JrMarcco/jreward/internal/errs"
	_ "modernc.org/sqlite"
)

const (
	sqliteCreateTable = `CREATE TABLE IF NOT EXISTS daily_stats (
	stats_key  TEXT PRIMARY KEY,
	date       TEXT NOT NULL,
	counts     TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
)`

	sqliteSelectByKey = `SELECT stats_key, date, counts, created_at, updated_at FROM daily_stats WHERE stats_key = ?`

	sqliteUpsert = `INSERT INTO daily_stats (stats_key, date, counts, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(stats_key) DO UPDATE SET date = excluded.date, counts = excluded.counts, updated_at = excluded.updated_at`
)

var _ DailyStatsDAO = (*SqliteDailyStatsDAO)(nil)

// SqliteDailyStatsDAO 单机文件存储，适用于客户端宿主进程。
type SqliteDailyStatsDAO struct {
	db *sql.DB
}

func (d *SqliteDailyStatsDAO) GetByKey(ctx context.Context, key string) (DailyStats, error) {
	var entity DailyStats
	err := d.db.QueryRowContext(ctx, sqliteSelectByKey, key).Scan(
		&entity.StatsKey, &entity.Date, &entity.Counts, &entity.CreatedAt, &entity.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DailyStats{}, errs.ErrDailyStatsNotFound
		}
		return DailyStats{}, err
	}
	return entity, nil
}

func (d *SqliteDailyStatsDAO) Upsert(ctx context.Context, entity DailyStats) error {
	now := time.Now().UnixMilli()
	_, err := d.db.ExecContext(ctx, sqliteUpsert, entity.StatsKey, entity.Date, entity.Counts, now, now)
	return err
}

// OpenSqlite 打开 sqlite 文件，单连接写入保证串行。
func OpenSqlite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("[jreward] open sqlite %s error: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func NewSqliteDailyStatsDAO(ctx context.Context, db *sql.DB) (*SqliteDailyStatsDAO, error) {
	if _, err := db.ExecContext(ctx, sqliteCreateTable); err != nil {
		return nil, fmt.Errorf("[jreward] create sqlite daily_stats table error: %w", err)
	}
	return &SqliteDailyStatsDAO{
		db: db,
	}, nil
}
