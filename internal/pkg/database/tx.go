package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront/internal/pkg/errs"
)

// ErrTxConflict 是所有锁冲突类失败的统一表示，调用方可以整体重试一次。
var ErrTxConflict = errs.New(errs.KindConcurrency, "tx_conflict", "the operation conflicted with a concurrent update")

type txKey struct{}

// Transactor 负责开启事务，并把事务句柄放进 context 里向下传递。
// 仓储通过 Conn(ctx, db) 取得句柄，因此同一个 context 内的所有读写都落在同一个事务中。
type Transactor struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewTransactor 创建事务管理器。timeout 为 0 表示不额外限制事务时长。
func NewTransactor(db *gorm.DB, timeout time.Duration) *Transactor {
	return &Transactor{db: db, timeout: timeout}
}

// InTx 在一个事务中执行 fn。fn 返回错误时整个事务回滚。
// 如果 ctx 已经处于事务中，则直接复用外层事务。
func (t *Transactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
	return Classify(ctx, err)
}

// Conn 返回 ctx 中的事务句柄；不在事务中时返回绑定了 ctx 的普通连接。
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

// InTransaction 报告 ctx 是否携带事务。
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok
}

// ForUpdate 给查询加上行级排他锁 (SELECT ... FOR UPDATE)。
func ForUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Classify 把驱动层错误归类。业务错误原样返回；死锁、锁等待超时和事务超时
// 统一转换为 ErrTxConflict；其余错误带上堆栈后返回。
func Classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var bizErr *errs.Error
	if errors.As(err, &bizErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || (ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return ErrTxConflict.Withf("transaction timed out").WithCause(err)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1213, 1205: // deadlock / lock wait timeout
			return ErrTxConflict.WithCause(err)
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03": // serialization_failure / deadlock_detected / lock_not_available
			return ErrTxConflict.WithCause(err)
		}
	}

	// SQLite 只有库级锁
	if strings.Contains(err.Error(), "database is locked") {
		return ErrTxConflict.WithCause(err)
	}

	return pkgerrors.Wrap(err, "transaction failed")
}
