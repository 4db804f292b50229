package interfaces

import (
	"context"
	"net/http"

	"storefront/internal/pkg/httpx"
	cartapp "storefront/internal/service/cart/application"
	cart "storefront/internal/service/cart/domain"
	"storefront/internal/service/promotion/application"
)

// CartViewer 提供试算所需的购物车金额。
type CartViewer interface {
	View(ctx context.Context, owner cart.CartOwner) (*cartapp.CartView, error)
}

// PromotionHandler 封装了 promotion 服务的 HTTP 处理器
type PromotionHandler struct {
	service *application.CouponService
	carts   CartViewer
}

// NewPromotionHandler 创建一个新的 HTTP 处理器实例
func NewPromotionHandler(service *application.CouponService, carts CartViewer) *PromotionHandler {
	return &PromotionHandler{service: service, carts: carts}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *PromotionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /coupons/preview", h.handlePreview)
}

type previewBody struct {
	Code          string `json:"code"`
	PaymentMethod string `json:"payment_method"`
}

// handlePreview 是结算页的"使用优惠券"按钮，只做试算，下单时会重新校验。
func (h *PromotionHandler) handlePreview(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.Extract(r)

	var body previewBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}

	userID := httpx.UserID(r)
	owner := cart.UserOwner(userID)
	if userID == 0 {
		owner = cart.AnonymousOwner(httpx.SessionToken(r))
	}
	view, err := h.carts.View(ctx, owner)
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}

	resp, err := h.service.Preview(ctx, body.Code, application.CouponContext{
		UserID:        userID,
		Subtotal:      view.Subtotal,
		PaymentMethod: body.PaymentMethod,
		ItemCount:     view.TotalItems,
	})
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
