// Package dbtest 为仓储测试提供隔离的 SQLite 内存库。
package dbtest

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var memSeq atomic.Int64

// OpenInMemory 打开一个独立的 SQLite 内存库。
// 连接池固定为 1，所以并发事务会在连接上排队，行为等价于串行化的行锁。
func OpenInMemory(models ...any) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:storefront_%d?mode=memory&cache=shared&_busy_timeout=5000", memSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sql.DB")
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			return nil, errors.Wrap(err, "auto migrate")
		}
	}
	return db, nil
}
