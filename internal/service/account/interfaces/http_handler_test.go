package interfaces_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/pkg/counter"
	"storefront/internal/pkg/database"
	"storefront/internal/pkg/database/dbtest"
	"storefront/internal/pkg/httpx"
	"storefront/internal/service/account/application"
	"storefront/internal/service/account/domain"
	accountinfra "storefront/internal/service/account/infrastructure"
	"storefront/internal/service/account/interfaces"
	cartapp "storefront/internal/service/cart/application"
	cart "storefront/internal/service/cart/domain"
	cartinfra "storefront/internal/service/cart/infrastructure"
	catalog "storefront/internal/service/catalog/domain"
	cataloginfra "storefront/internal/service/catalog/infrastructure"
	"storefront/internal/service/ratelimit"
)

type server struct {
	mux      *http.ServeMux
	carts    *cartapp.CartService
	products *cataloginfra.GormProductRepository
}

func newServer(t *testing.T) *server {
	t.Helper()
	db, err := dbtest.OpenInMemory(
		&accountinfra.UserModel{}, &accountinfra.AddressModel{},
		&cataloginfra.ProductModel{}, &cartinfra.CartModel{}, &cartinfra.CartLineModel{},
	)
	require.NoError(t, err)
	tx := database.NewTransactor(db, 0)
	tracer := otel.Tracer("test")

	users := accountinfra.NewGormUserRepository(db)
	hasher, err := accountinfra.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	limiter := ratelimit.NewLimiter(counter.NewMemoryStore(nil), nil)
	guard := application.NewSecurityGuard(users, tx, domain.DefaultLockoutPolicy(), tracer, nil)
	auth := application.NewAuthenticator(users, guard, limiter, hasher, tracer, nil)
	accounts := application.NewAccountService(users, accountinfra.NewGormAddressRepository(db), hasher, limiter, tx, tracer)

	products := cataloginfra.NewGormProductRepository(db)
	carts := cartapp.NewCartService(cartinfra.NewGormCartRepository(db), products, tx, tracer)

	mux := http.NewServeMux()
	interfaces.NewAccountHandler(accounts, auth, carts).RegisterRoutes(mux)
	return &server{mux: mux, carts: carts, products: products}
}

func (s *server) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	r.RemoteAddr = "192.0.2.10:51000"
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, r)
	return rec
}

func TestRegisterLoginMergesAnonymousCart(t *testing.T) {
	ctx := context.Background()
	s := newServer(t)

	rec := s.do(http.MethodPost, "/accounts", `{"username":"ada","email":"ada@example.com","password":"correct-horse"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	p := &catalog.Product{SKU: "lamp", Name: "lamp", Price: decimal.RequireFromString("30.00"), Stock: 4, IsActive: true}
	require.NoError(t, s.products.Create(ctx, p))
	_, err := s.carts.AddItem(ctx, cart.AnonymousOwner("anon-1"), p.ID, 2)
	require.NoError(t, err)

	rec = s.do(http.MethodPost, "/auth/login", `{"identity":"ADA@example.com","password":"correct-horse"}`,
		map[string]string{httpx.HeaderSessionToken: "anon-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		UserID int64 `json:"user_id"`
		CartID int64 `json:"cart_id"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.NotZero(t, res.CartID)

	view, err := s.carts.View(ctx, cart.UserOwner(res.UserID))
	require.NoError(t, err)
	assert.Equal(t, 2, view.TotalItems)
}

func TestLoginRejectionsShareOneResponse(t *testing.T) {
	s := newServer(t)
	rec := s.do(http.MethodPost, "/accounts", `{"username":"bob","email":"bob@example.com","password":"correct-horse"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	unknown := s.do(http.MethodPost, "/auth/login", `{"identity":"nobody","password":"x"}`, nil)
	wrong := s.do(http.MethodPost, "/auth/login", `{"identity":"bob","password":"wrong-password"}`, nil)

	assert.Equal(t, http.StatusForbidden, unknown.Code)
	assert.Equal(t, unknown.Code, wrong.Code)
	assert.Equal(t, unknown.Body.String(), wrong.Body.String())
}

func TestAddressBook(t *testing.T) {
	s := newServer(t)
	rec := s.do(http.MethodPost, "/accounts", `{"username":"cy","email":"cy@example.com","password":"correct-horse"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var u struct {
		UserID int64 `json:"user_id"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&u))
	me := map[string]string{httpx.HeaderUserID: itoa(u.UserID)}

	body := `{"type":"shipping","full_name":"Cy","address_line1":"1 Main St","city":"Springfield",` +
		`"state":"IL","postal_code":"62701","country":"US","phone":"555-0100","is_default":true}`
	rec = s.do(http.MethodPost, "/accounts/addresses", body, me)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/accounts/addresses", `{"type":"shipping"}`, me)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/accounts/addresses", "", me)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Addresses []struct {
			ID        int64 `json:"id"`
			IsDefault bool  `json:"is_default"`
		} `json:"addresses"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list.Addresses, 1)
	assert.True(t, list.Addresses[0].IsDefault)

	rec = s.do(http.MethodGet, "/accounts/addresses", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
