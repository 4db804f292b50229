package interfaces

import (
	"net/http"

	"storefront/internal/pkg/httpx"
	"storefront/internal/service/cart/application"
	"storefront/internal/service/cart/domain"
	"storefront/internal/service/ratelimit"
)

// CartHandler 封装了购物车的 HTTP 处理器
type CartHandler struct {
	service *application.CartService
	limiter *ratelimit.Limiter
}

func NewCartHandler(service *application.CartService, limiter *ratelimit.Limiter) *CartHandler {
	return &CartHandler{service: service, limiter: limiter}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *CartHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /cart", h.view)
	mux.HandleFunc("DELETE /cart", h.clear)
	mux.HandleFunc("POST /cart/items", h.addItem)
	mux.HandleFunc("PUT /cart/items/{product_id}", h.updateItem)
	mux.HandleFunc("DELETE /cart/items/{product_id}", h.removeItem)
}

type itemBody struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// owner 登录用户优先，否则使用匿名会话。
func owner(r *http.Request) domain.CartOwner {
	if id := httpx.UserID(r); id > 0 {
		return domain.UserOwner(id)
	}
	return domain.AnonymousOwner(httpx.SessionToken(r))
}

func (h *CartHandler) view(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.Extract(r)
	v, err := h.service.View(ctx, owner(r))
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, v)
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.Extract(r)
	if err := h.limiter.Check(ctx, ratelimit.ActionCartAdd, httpx.ClientIP(r)); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	var body itemBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	if body.Quantity == 0 {
		body.Quantity = 1
	}
	res, err := h.service.AddItem(ctx, owner(r), body.ProductID, body.Quantity)
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *CartHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.Extract(r)
	productID, err := httpx.PathID(r, "product_id")
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	var body itemBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	res, err := h.service.UpdateItem(ctx, owner(r), productID, body.Quantity)
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.Extract(r)
	productID, err := httpx.PathID(r, "product_id")
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	if err := h.service.RemoveItem(ctx, owner(r), productID); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.Extract(r)
	if err := h.service.Clear(ctx, owner(r)); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
