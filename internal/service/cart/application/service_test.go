package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"storefront/internal/pkg/database"
	"storefront/internal/pkg/database/dbtest"
	"storefront/internal/pkg/errs"
	"storefront/internal/service/cart/application"
	"storefront/internal/service/cart/domain"
	cartinfra "storefront/internal/service/cart/infrastructure"
	catalog "storefront/internal/service/catalog/domain"
	cataloginfra "storefront/internal/service/catalog/infrastructure"
)

type fixture struct {
	db       *gorm.DB
	svc      *application.CartService
	products *cataloginfra.GormProductRepository
	carts    *cartinfra.GormCartRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := dbtest.OpenInMemory(&cataloginfra.ProductModel{}, &cartinfra.CartModel{}, &cartinfra.CartLineModel{})
	require.NoError(t, err)
	products := cataloginfra.NewGormProductRepository(db)
	carts := cartinfra.NewGormCartRepository(db)
	svc := application.NewCartService(carts, products, database.NewTransactor(db, 0), otel.Tracer("test"))
	return &fixture{db: db, svc: svc, products: products, carts: carts}
}

func (f *fixture) product(t *testing.T, name, price string, stock int, active bool) *catalog.Product {
	t.Helper()
	p := &catalog.Product{SKU: name, Name: name, Price: decimal.RequireFromString(price), Stock: stock, IsActive: active}
	require.NoError(t, f.products.Create(context.Background(), p))
	return p
}

func (f *fixture) deactivate(id int64) error {
	return f.db.Model(&cataloginfra.ProductModel{}).Where("id = ?", id).Update("is_active", false).Error
}

func TestAddItemCreatesCartAndCapsAtStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "mug", "12.00", 5, true)
	owner := domain.AnonymousOwner("sess-1")

	res, err := f.svc.AddItem(ctx, owner, p.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, application.AddResult{ProductID: p.ID, Quantity: 3}, res)

	res, err = f.svc.AddItem(ctx, owner, p.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Quantity)
	assert.True(t, res.Capped)

	view, err := f.svc.View(ctx, owner)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 5, view.TotalItems)
	assert.Equal(t, "60.00", view.Subtotal.StringFixed(2))
	assert.True(t, view.Lines[0].Available)
}

func TestAddItemRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := domain.UserOwner(1)
	inactive := f.product(t, "old", "5.00", 10, false)
	empty := f.product(t, "empty", "5.00", 0, true)

	_, err := f.svc.AddItem(ctx, owner, inactive.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = f.svc.AddItem(ctx, owner, inactive.ID, 100)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.svc.AddItem(ctx, owner, inactive.ID, 1)
	assert.ErrorIs(t, err, domain.ErrProductUnavailable)
	_, err = f.svc.AddItem(ctx, owner, empty.ID, 1)
	assert.ErrorIs(t, err, domain.ErrProductUnavailable)
	_, err = f.svc.AddItem(ctx, owner, 9999, 1)
	assert.ErrorIs(t, err, domain.ErrProductUnavailable)
	assert.Equal(t, errs.KindAvailability, errs.KindOf(err))

	_, err = f.svc.AddItem(ctx, domain.CartOwner{}, empty.ID, 1)
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestUpdateAndRemoveItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := domain.UserOwner(2)
	p := f.product(t, "pen", "1.50", 4, true)
	other := f.product(t, "ink", "3.00", 4, true)

	_, err := f.svc.UpdateItem(ctx, owner, p.ID, 1)
	assert.ErrorIs(t, err, domain.ErrLineNotFound)

	_, err = f.svc.AddItem(ctx, owner, p.ID, 1)
	require.NoError(t, err)

	res, err := f.svc.UpdateItem(ctx, owner, p.ID, 9)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Quantity)
	assert.True(t, res.Capped)

	_, err = f.svc.UpdateItem(ctx, owner, other.ID, 1)
	assert.ErrorIs(t, err, domain.ErrLineNotFound)

	assert.ErrorIs(t, f.svc.RemoveItem(ctx, owner, other.ID), domain.ErrLineNotFound)
	require.NoError(t, f.svc.RemoveItem(ctx, owner, p.ID))

	view, err := f.svc.View(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
}

func TestPriceAtAdditionIsKeptButViewUsesLivePrice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := domain.UserOwner(3)
	p := f.product(t, "hat", "20.00", 10, true)

	_, err := f.svc.AddItem(ctx, owner, p.ID, 2)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&cataloginfra.ProductModel{}).Where("id = ?", p.ID).Update("price", decimal.RequireFromString("25.00")).Error)

	view, err := f.svc.View(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, "20.00", view.Lines[0].PriceAtAddition.StringFixed(2))
	assert.Equal(t, "25.00", view.Lines[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "50.00", view.Subtotal.StringFixed(2))
}

func TestMergeAnonymousIntoUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	anon := domain.AnonymousOwner("sess-merge")
	user := domain.UserOwner(42)

	shared := f.product(t, "shared", "10.00", 5, true)
	onlyAnon := f.product(t, "only-anon", "4.00", 10, true)
	gone := f.product(t, "gone", "7.00", 10, true)

	_, err := f.svc.AddItem(ctx, user, shared.ID, 3)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, anon, shared.ID, 4)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, anon, onlyAnon.ID, 2)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, anon, gone.ID, 1)
	require.NoError(t, err)
	require.NoError(t, f.deactivate(gone.ID))

	res, err := f.svc.MergeAnonymousIntoUser(ctx, "sess-merge", 42)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Merged)
	assert.Equal(t, []int64{gone.ID}, res.Skipped)

	cart, err := f.carts.FindByOwner(ctx, user)
	require.NoError(t, err)
	line, ok := cart.Line(shared.ID)
	require.True(t, ok)
	assert.Equal(t, 5, line.Quantity, "3 + 4 capped at stock 5")
	line, ok = cart.Line(onlyAnon.ID)
	require.True(t, ok)
	assert.Equal(t, 2, line.Quantity)
	_, ok = cart.Line(gone.ID)
	assert.False(t, ok)

	_, err = f.carts.FindByOwner(ctx, anon)
	assert.ErrorIs(t, err, domain.ErrCartNotFound)
}

func TestResolveForLoginWithoutAnonymousCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cart, err := f.svc.ResolveForLogin(ctx, 9, "no-such-session")
	require.NoError(t, err)
	id, ok := cart.Owner.UserID()
	assert.True(t, ok)
	assert.EqualValues(t, 9, id)
}

func TestMergeConcurrentWithAdd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "sock", "2.00", 50, true)
	user := domain.UserOwner(77)

	_, err := f.svc.AddItem(ctx, domain.AnonymousOwner("sess-race"), p.ID, 5)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, user, p.ID, 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := f.svc.MergeAnonymousIntoUser(ctx, "sess-race", 77)
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := f.svc.AddItem(ctx, user, p.ID, 2)
		assert.NoError(t, err)
	}()
	wg.Wait()

	cart, err := f.carts.FindByOwner(ctx, user)
	require.NoError(t, err)
	line, ok := cart.Line(p.ID)
	require.True(t, ok)
	assert.Equal(t, 8, line.Quantity, "no update may be lost")
}
