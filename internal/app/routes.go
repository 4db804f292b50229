package app

import (
	"net/http"

	accounthttp "storefront/internal/service/account/interfaces"
	carthttp "storefront/internal/service/cart/interfaces"
	orderhttp "storefront/internal/service/order/interfaces"
	promohttp "storefront/internal/service/promotion/interfaces"
)

// RegisterRoutes 注册所有对外接口。/healthz 和 /metrics 由 bootstrap 注册。
func (c *Container) RegisterRoutes(mux *http.ServeMux) {
	orderhttp.NewOrderHandler(c.Orders, c.Limiter).RegisterRoutes(mux)
	carthttp.NewCartHandler(c.Carts, c.Limiter).RegisterRoutes(mux)
	promohttp.NewPromotionHandler(c.Coupons, c.Carts).RegisterRoutes(mux)
	accounthttp.NewAccountHandler(c.Accounts, c.Auth, c.Carts).RegisterRoutes(mux)
}
