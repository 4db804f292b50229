package interfaces

import (
	"context"
	"net/http"

	"storefront/internal/pkg/httpx"
	"storefront/internal/service/account/application"
	"storefront/internal/service/account/domain"
	cart "storefront/internal/service/cart/domain"
)

// CartResolver 在登录成功后确定用户的购物车，必要时合并匿名购物车。
type CartResolver interface {
	ResolveForLogin(ctx context.Context, userID int64, sessionToken string) (*cart.Cart, error)
}

// AccountHandler 封装了注册、登录判定和地址簿的 HTTP 处理器。
// 会话的签发由网关负责，这里只返回判定结果。
type AccountHandler struct {
	accounts *application.AccountService
	auth     *application.Authenticator
	carts    CartResolver
}

func NewAccountHandler(accounts *application.AccountService, auth *application.Authenticator, carts CartResolver) *AccountHandler {
	return &AccountHandler{accounts: accounts, auth: auth, carts: carts}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *AccountHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /accounts", h.register)
	mux.HandleFunc("POST /auth/login", h.login)
	mux.HandleFunc("GET /accounts/addresses", h.listAddresses)
	mux.HandleFunc("POST /accounts/addresses", h.addAddress)
	mux.HandleFunc("POST /accounts/addresses/{id}/default", h.setDefault)
}

type registerBody struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginBody struct {
	Identity string `json:"identity"`
	Password string `json:"password"`
}

type loginResult struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	CartID   int64  `json:"cart_id"`
}

type addressBody struct {
	Type         domain.AddressType `json:"type"`
	FullName     string             `json:"full_name"`
	AddressLine1 string             `json:"address_line1"`
	AddressLine2 string             `json:"address_line2"`
	City         string             `json:"city"`
	State        string             `json:"state"`
	PostalCode   string             `json:"postal_code"`
	Country      string             `json:"country"`
	Phone        string             `json:"phone"`
	IsDefault    bool               `json:"is_default"`
}

type addressView struct {
	ID int64 `json:"id"`
	addressBody
}

func toAddressView(a *domain.Address) addressView {
	return addressView{ID: a.ID, addressBody: addressBody{
		Type: a.Type, FullName: a.FullName, AddressLine1: a.AddressLine1, AddressLine2: a.AddressLine2,
		City: a.City, State: a.State, PostalCode: a.PostalCode, Country: a.Country, Phone: a.Phone,
		IsDefault: a.IsDefault,
	}}
}

func (h *AccountHandler) register(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.Extract(r)
	var body registerBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	u, err := h.accounts.Register(ctx, application.RegisterRequest{
		Username: body.Username,
		Email:    body.Email,
		Password: body.Password,
		IP:       httpx.ClientIP(r),
	})
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"user_id": u.ID, "username": u.Username})
}

func (h *AccountHandler) login(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.Extract(r)
	var body loginBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	u, err := h.auth.Authenticate(ctx, application.LoginAttempt{
		Identity: body.Identity,
		Password: body.Password,
		IP:       httpx.ClientIP(r),
	})
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	c, err := h.carts.ResolveForLogin(ctx, u.ID, httpx.SessionToken(r))
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, loginResult{UserID: u.ID, Username: u.Username, CartID: c.ID})
}

func (h *AccountHandler) listAddresses(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.Extract(r)
	userID := httpx.UserID(r)
	if userID == 0 {
		httpx.WriteError(ctx, w, domain.ErrAuthenticationFailed)
		return
	}
	list, err := h.accounts.Addresses(ctx, userID)
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	views := make([]addressView, 0, len(list))
	for _, a := range list {
		views = append(views, toAddressView(a))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string][]addressView{"addresses": views})
}

func (h *AccountHandler) addAddress(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.Extract(r)
	userID := httpx.UserID(r)
	if userID == 0 {
		httpx.WriteError(ctx, w, domain.ErrAuthenticationFailed)
		return
	}
	var body addressBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	a := &domain.Address{
		UserID: userID, Type: body.Type, FullName: body.FullName,
		AddressLine1: body.AddressLine1, AddressLine2: body.AddressLine2,
		City: body.City, State: body.State, PostalCode: body.PostalCode,
		Country: body.Country, Phone: body.Phone, IsDefault: body.IsDefault,
	}
	if err := h.accounts.AddAddress(ctx, a); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toAddressView(a))
}

func (h *AccountHandler) setDefault(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.Extract(r)
	userID := httpx.UserID(r)
	if userID == 0 {
		httpx.WriteError(ctx, w, domain.ErrAuthenticationFailed)
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	if err := h.accounts.SetDefaultAddress(ctx, userID, id); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
