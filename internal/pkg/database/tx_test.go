package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/pkg/database"
	"storefront/internal/pkg/database/dbtest"
	"storefront/internal/pkg/errs"
)

type widget struct {
	ID    uint `gorm:"primaryKey"`
	Name  string
	Count int
}

func TestInTxCommitsAndRollsBack(t *testing.T) {
	db, err := dbtest.OpenInMemory(&widget{})
	require.NoError(t, err)
	tx := database.NewTransactor(db, time.Second)
	ctx := context.Background()

	require.NoError(t, tx.InTx(ctx, func(ctx context.Context) error {
		assert.True(t, database.InTransaction(ctx))
		return database.Conn(ctx, db).Create(&widget{Name: "kept"}).Error
	}))

	boom := errs.New(errs.KindAvailability, "boom", "boom")
	err = tx.InTx(ctx, func(ctx context.Context) error {
		if err := database.Conn(ctx, db).Create(&widget{Name: "discarded"}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var names []string
	require.NoError(t, db.Model(&widget{}).Order("id").Pluck("name", &names).Error)
	assert.Equal(t, []string{"kept"}, names)
}

func TestInTxJoinsOuterTransaction(t *testing.T) {
	db, err := dbtest.OpenInMemory(&widget{})
	require.NoError(t, err)
	tx := database.NewTransactor(db, 0)
	ctx := context.Background()

	err = tx.InTx(ctx, func(outer context.Context) error {
		require.NoError(t, tx.InTx(outer, func(inner context.Context) error {
			return database.Conn(inner, db).Create(&widget{Name: "inner"}).Error
		}))
		return errors.New("abort outer")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&widget{}).Count(&count).Error)
	assert.Zero(t, count, "inner write must roll back with the outer transaction")
}

func TestForUpdateReadsInsideTransaction(t *testing.T) {
	db, err := dbtest.OpenInMemory(&widget{})
	require.NoError(t, err)
	require.NoError(t, db.Create(&widget{Name: "w", Count: 3}).Error)
	tx := database.NewTransactor(db, 0)

	err = tx.InTx(context.Background(), func(ctx context.Context) error {
		var w widget
		if err := database.ForUpdate(database.Conn(ctx, db)).First(&w).Error; err != nil {
			return err
		}
		return database.Conn(ctx, db).Model(&w).Update("count", w.Count-1).Error
	})
	require.NoError(t, err)

	var w widget
	require.NoError(t, db.First(&w).Error)
	assert.Equal(t, 2, w.Count)
}

func TestClassify(t *testing.T) {
	ctx := context.Background()
	biz := errs.New(errs.KindValidation, "bad", "bad input")

	assert.Nil(t, database.Classify(ctx, nil))
	assert.Same(t, biz, database.Classify(ctx, biz))
	assert.ErrorIs(t, database.Classify(ctx, &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}), errs.ErrConcurrency)
	assert.ErrorIs(t, database.Classify(ctx, &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout"}), errs.ErrConcurrency)
	assert.ErrorIs(t, database.Classify(ctx, &pgconn.PgError{Code: "40P01"}), errs.ErrConcurrency)
	assert.ErrorIs(t, database.Classify(ctx, context.DeadlineExceeded), database.ErrTxConflict)

	other := database.Classify(ctx, &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	assert.NotErrorIs(t, other, errs.ErrConcurrency)
	assert.Equal(t, errs.KindInternal, errs.KindOf(other))
}
