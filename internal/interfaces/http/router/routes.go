package router

import (
	"github.com/flipflop/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Handlers are the API handlers mounted under /api/v1
type Handlers struct {
	Auth            *handler.AuthHandler
	User            *handler.UserHandler
	Product         *handler.ProductHandler
	Category        *handler.CategoryHandler
	Cart            *handler.CartHandler
	Order           *handler.OrderHandler
	PaymentWebhook  *handler.PaymentWebhookHandler
	CompanySettings *handler.CompanySettingsHandler
	Supplier        *handler.SupplierHandler
	Assistant       *handler.AssistantHandler
	Outbox          *handler.OutboxHandler
	System          *handler.SystemHandler
}

// Guards are the per-route access middlewares
type Guards struct {
	// Auth requires a valid access token
	Auth gin.HandlerFunc
	// OptionalAuth reads a token when present so admins see hidden catalogue entries
	OptionalAuth gin.HandlerFunc
	// Admin requires the administrator role; always chained after Auth
	Admin gin.HandlerFunc
	// AuthRateLimit throttles credential endpoints per client IP
	AuthRateLimit gin.HandlerFunc
}

func passThrough(c *gin.Context) { c.Next() }

func (g Guards) withDefaults() Guards {
	if g.OptionalAuth == nil {
		g.OptionalAuth = passThrough
	}
	if g.AuthRateLimit == nil {
		g.AuthRateLimit = passThrough
	}
	return g
}

// APIGroups builds the shop route table
func APIGroups(h Handlers, g Guards) []*DomainGroup {
	g = g.withDefaults()
	admin := []gin.HandlerFunc{g.Auth, g.Admin}
	with := func(mw []gin.HandlerFunc, fn gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, mw...), fn)
	}

	authRoutes := NewDomainGroup("auth", "/auth").Use(g.AuthRateLimit)
	authRoutes.POST("/register", h.Auth.Register).
		POST("/login", h.Auth.Login).
		POST("/refresh", h.Auth.Refresh).
		POST("/logout", g.Auth, h.Auth.Logout)

	userRoutes := NewDomainGroup("users", "/users/me").Use(g.Auth)
	userRoutes.GET("", h.User.GetProfile).
		PUT("", h.User.UpdateProfile).
		DELETE("", h.Auth.DeleteAccount).
		PUT("/password", h.Auth.ChangePassword).
		GET("/addresses", h.User.ListAddresses).
		POST("/addresses", h.User.AddAddress).
		PUT("/addresses/:id", h.User.UpdateAddress).
		DELETE("/addresses/:id", h.User.DeleteAddress).
		GET("/payment-methods", h.User.ListPaymentMethods).
		POST("/payment-methods", h.User.AddPaymentMethod).
		DELETE("/payment-methods/:id", h.User.DeletePaymentMethod)

	productRoutes := NewDomainGroup("products", "/products")
	productRoutes.GET("", g.OptionalAuth, h.Product.List).
		GET("/:id", g.OptionalAuth, h.Product.Get).
		POST("", with(admin, h.Product.Create)...).
		PUT("/:id", with(admin, h.Product.Update)...).
		DELETE("/:id", with(admin, h.Product.Delete)...).
		POST("/:id/variants", with(admin, h.Product.AddVariant)...).
		PUT("/:id/variants/:variantId", with(admin, h.Product.UpdateVariant)...).
		DELETE("/:id/variants/:variantId", with(admin, h.Product.RemoveVariant)...).
		POST("/:id/images", with(admin, h.Product.UploadImage)...).
		DELETE("/:id/images", with(admin, h.Product.DeleteImage)...)

	categoryRoutes := NewDomainGroup("categories", "/categories")
	categoryRoutes.GET("", g.OptionalAuth, h.Category.List).
		GET("/tree", g.OptionalAuth, h.Category.Tree).
		GET("/:id", g.OptionalAuth, h.Category.Get).
		POST("", with(admin, h.Category.Create)...).
		PUT("/:id", with(admin, h.Category.Update)...).
		DELETE("/:id", with(admin, h.Category.Delete)...)

	cartRoutes := NewDomainGroup("cart", "/cart").Use(g.Auth)
	cartRoutes.GET("", h.Cart.Get).
		DELETE("", h.Cart.Clear).
		POST("/items", h.Cart.AddItem).
		PUT("/items/:id", h.Cart.UpdateItem).
		DELETE("/items/:id", h.Cart.RemoveItem)

	orderRoutes := NewDomainGroup("orders", "/orders").Use(g.Auth)
	orderRoutes.POST("", h.Order.Checkout).
		GET("", h.Order.List).
		GET("/:id", h.Order.Get).
		POST("/:id/cancel", h.Order.Cancel).
		GET("/:id/invoices", h.Order.Invoices)

	paymentRoutes := NewDomainGroup("payu", "/payu").Use(g.Auth)
	paymentRoutes.POST("/create-payment/:orderId", h.Order.CreatePayment)

	webhookRoutes := NewDomainGroup("payments", "/payments")
	webhookRoutes.POST("/webhook", h.PaymentWebhook.Handle)

	adminRoutes := NewDomainGroup("admin", "/admin").Use(admin...)
	adminRoutes.GET("/orders", h.Order.AdminList).
		PUT("/orders/:id/status", h.Order.ChangeStatus).
		GET("/company-settings", h.CompanySettings.Get).
		PUT("/company-settings", h.CompanySettings.Update).
		GET("/suppliers", h.Supplier.List).
		POST("/suppliers", h.Supplier.Create).
		GET("/suppliers/:id", h.Supplier.Get).
		PUT("/suppliers/:id", h.Supplier.Update).
		DELETE("/suppliers/:id", h.Supplier.Delete).
		POST("/suppliers/:id/sync", h.Supplier.Sync).
		GET("/suppliers/:id/products", h.Supplier.ListProducts).
		PUT("/suppliers/:id/products/:sku", h.Supplier.LinkProduct).
		GET("/outbox/dead", h.Outbox.GetDeadLetterEntries).
		POST("/outbox/dead/retry-all", h.Outbox.RetryAllDeadEntries).
		GET("/outbox/stats", h.Outbox.GetStats).
		GET("/outbox/:id", h.Outbox.GetEntry).
		POST("/outbox/:id/retry", h.Outbox.RetryDeadEntry)

	aiRoutes := NewDomainGroup("ai", "/ai").Use(g.Auth)
	aiRoutes.POST("/chat", h.Assistant.Chat)

	systemRoutes := NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", h.System.GetSystemInfo)

	return []*DomainGroup{
		authRoutes, userRoutes, productRoutes, categoryRoutes, cartRoutes, orderRoutes,
		paymentRoutes, webhookRoutes, adminRoutes, aiRoutes, systemRoutes,
	}
}
