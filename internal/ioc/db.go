package ioc

import (
	"context"
	"database/sql"

	"github.com/JrMarcco/jreward/internal/repository/dao"
	"github.com/spf13/viper"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// initMysql 打开 mysql 并建表，返回 db 与关闭函数。
func initMysql(ctx context.Context) (*gorm.DB, func() error, error) {
	type config struct {
		DSN string `mapstructure:"dsn"`
	}
	cfg := &config{}
	if err := viper.UnmarshalKey("db.mysql", cfg); err != nil {
		return nil, nil, err
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, nil, err
	}
	closeFn, err := initTables(ctx, db)
	if err != nil {
		return nil, nil, err
	}
	return db, closeFn, nil
}

// initTables 建表失败时关闭连接池。
func initTables(ctx context.Context, db *gorm.DB) (func() error, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err = dao.InitTables(db.WithContext(ctx)); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return sqlDB.Close, nil
}

// initSqlite 打开本地 sqlite 文件，表由 dao 创建。
func initSqlite() (*sql.DB, error) {
	type config struct {
		Path string `mapstructure:"path"`
	}
	cfg := &config{Path: "jreward.db"}
	if err := viper.UnmarshalKey("db.sqlite", cfg); err != nil {
		return nil, err
	}
	return dao.OpenSqlite(cfg.Path)
}
