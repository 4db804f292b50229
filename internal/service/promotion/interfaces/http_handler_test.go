package interfaces_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"storefront/internal/pkg/database"
	"storefront/internal/pkg/database/dbtest"
	"storefront/internal/pkg/httpx"
	cartapp "storefront/internal/service/cart/application"
	cart "storefront/internal/service/cart/domain"
	cartinfra "storefront/internal/service/cart/infrastructure"
	catalog "storefront/internal/service/catalog/domain"
	cataloginfra "storefront/internal/service/catalog/infrastructure"
	"storefront/internal/service/promotion/application"
	"storefront/internal/service/promotion/domain"
	"storefront/internal/service/promotion/infrastructure"
	"storefront/internal/service/promotion/infrastructure/rule"
	"storefront/internal/service/promotion/interfaces"
)

func TestCouponPreviewUsesCartSubtotal(t *testing.T) {
	ctx := context.Background()
	db, err := dbtest.OpenInMemory(
		&infrastructure.CouponModel{}, &infrastructure.CouponUsageModel{},
		&cataloginfra.ProductModel{}, &cartinfra.CartModel{}, &cartinfra.CartLineModel{},
	)
	require.NoError(t, err)
	tracer := otel.Tracer("test")
	engine, err := rule.NewCELRuleEngine()
	require.NoError(t, err)
	coupons := application.NewCouponService(infrastructure.NewGormCouponRepository(db), engine, tracer, nil)
	products := cataloginfra.NewGormProductRepository(db)
	carts := cartapp.NewCartService(cartinfra.NewGormCartRepository(db), products, database.NewTransactor(db, 0), tracer)

	now := time.Now()
	require.NoError(t, coupons.Create(ctx, &domain.Coupon{
		Code:          "WELCOME5",
		DiscountType:  domain.DiscountFixed,
		DiscountValue: decimal.RequireFromString("5.00"),
		MinimumOrder:  decimal.RequireFromString("50.00"),
		ValidFrom:     now.Add(-time.Hour),
		ValidUntil:    now.Add(time.Hour),
		IsActive:      true,
	}))
	p := &catalog.Product{SKU: "tea", Name: "tea", Price: decimal.RequireFromString("20.00"), Stock: 10, IsActive: true}
	require.NoError(t, products.Create(ctx, p))
	_, err = carts.AddItem(ctx, cart.UserOwner(3), p.ID, 2)
	require.NoError(t, err)

	mux := http.NewServeMux()
	interfaces.NewPromotionHandler(coupons, carts).RegisterRoutes(mux)
	preview := func() application.PreviewResponse {
		r := httptest.NewRequest(http.MethodPost, "/coupons/preview", strings.NewReader(`{"code":"welcome5"}`))
		r.Header.Set(httpx.HeaderUserID, "3")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, r)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp application.PreviewResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		return resp
	}

	resp := preview()
	assert.False(t, resp.Valid)
	assert.Equal(t, "minimum order amount is 50.00", resp.Message)

	_, err = carts.AddItem(ctx, cart.UserOwner(3), p.ID, 1)
	require.NoError(t, err)
	resp = preview()
	assert.True(t, resp.Valid)
	assert.Equal(t, "5.00", resp.Discount.StringFixed(2))
}
