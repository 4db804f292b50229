package interfaces

import (
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/pkg/httpx"
	"storefront/internal/service/order/application"
	"storefront/internal/service/order/domain"
	"storefront/internal/service/ratelimit"
)

// OrderHandler 封装了订单服务的 HTTP 处理器
type OrderHandler struct {
	service *application.OrderApplicationService
	limiter *ratelimit.Limiter
}

// NewOrderHandler 创建一个新的 HTTP 处理器实例
func NewOrderHandler(service *application.OrderApplicationService, limiter *ratelimit.Limiter) *OrderHandler {
	return &OrderHandler{service: service, limiter: limiter}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /orders", h.placeOrder)
	mux.HandleFunc("GET /orders", h.listOrders)
	mux.HandleFunc("GET /orders/{id}", h.getOrder)
	mux.HandleFunc("POST /orders/{id}/cancel", h.cancelOrder)
	mux.HandleFunc("GET /orders/{id}/verify", h.verifyOrder)
}

type placeOrderBody struct {
	ShippingAddressID int64  `json:"shipping_address_id"`
	BillingAddressID  int64  `json:"billing_address_id"`
	PaymentMethod     string `json:"payment_method"`
	CouponCode        string `json:"coupon_code"`
	Notes             string `json:"notes"`
}

type placeOrderResult struct {
	Order         OrderView `json:"order"`
	CouponMessage string    `json:"coupon_message,omitempty"`
}

func (h *OrderHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.Extract(r)

	userID := httpx.UserID(r)
	if userID == 0 {
		httpx.WriteError(ctx, w, domain.ErrLoginRequired)
		return
	}
	if err := h.limiter.Check(ctx, ratelimit.ActionCheckout, strconv.FormatInt(userID, 10)); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}

	var body placeOrderBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	billing := body.BillingAddressID
	if billing == 0 {
		billing = body.ShippingAddressID
	}

	resp, err := h.service.PlaceOrder(ctx, &application.PlaceOrderRequest{
		UserID:            userID,
		ShippingAddressID: body.ShippingAddressID,
		BillingAddressID:  billing,
		PaymentMethod:     body.PaymentMethod,
		CouponCode:        body.CouponCode,
		Notes:             body.Notes,
		IPAddress:         httpx.ClientIP(r),
		UserAgent:         r.UserAgent(),
	})
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, placeOrderResult{Order: toView(resp.Order), CouponMessage: resp.CouponMessage})
}

func (h *OrderHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.Extract(r)
	userID := httpx.UserID(r)
	if userID == 0 {
		httpx.WriteError(ctx, w, domain.ErrLoginRequired)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	orders, err := h.service.ListOrders(ctx, userID, limit)
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toView(o))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string][]OrderView{"orders": views})
}

func (h *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.Extract(r)
	userID, id, ok := h.owned(w, r)
	if !ok {
		return
	}
	o, err := h.service.GetOrder(ctx, userID, id)
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toView(o))
}

func (h *OrderHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.Extract(r)
	userID, id, ok := h.owned(w, r)
	if !ok {
		return
	}
	o, err := h.service.CancelOrder(ctx, userID, id)
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toView(o))
}

// verifyOrder 走与读取相同的校验路径，不一致时订单已被标记并告警。
func (h *OrderHandler) verifyOrder(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.Extract(r)
	userID, id, ok := h.owned(w, r)
	if !ok {
		return
	}
	_, err := h.service.GetOrder(ctx, userID, id)
	switch {
	case errors.Is(err, domain.ErrIntegrityViolation), errors.Is(err, domain.ErrOrderFlagged):
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"order_id": id, "intact": false})
	case err != nil:
		httpx.WriteError(ctx, w, err)
	default:
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"order_id": id, "intact": true})
	}
}

func (h *OrderHandler) owned(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	ctx := r.Context()
	userID := httpx.UserID(r)
	if userID == 0 {
		httpx.WriteError(ctx, w, domain.ErrLoginRequired)
		return 0, 0, false
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return 0, 0, false
	}
	return userID, id, true
}
