package handler

import (
	"context"

	"github.com/flipflop/backend/internal/application/billing"
	"github.com/flipflop/backend/internal/application/sales"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderService is the order surface used by OrderHandler
type OrderService interface {
	Get(ctx context.Context, userID, orderID uuid.UUID, isAdmin bool) (*sales.OrderResponse, error)
	List(ctx context.Context, userID uuid.UUID, q sales.OrderListQuery) (*shared.Paginated[sales.OrderResponse], error)
	AdminList(ctx context.Context, q sales.OrderListQuery) (*shared.Paginated[sales.OrderResponse], error)
	Checkout(ctx context.Context, userID uuid.UUID, req sales.CheckoutRequest) (*sales.OrderResponse, error)
	InitiatePayment(ctx context.Context, userID, orderID uuid.UUID, customerIP string) (*sales.PaymentInitResponse, error)
	ChangeStatus(ctx context.Context, adminID, orderID uuid.UUID, req sales.ChangeStatusRequest) (*sales.OrderResponse, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID, req sales.CancelOrderRequest) (*sales.OrderResponse, error)
}

// InvoiceService resolves the billing documents of an order
type InvoiceService interface {
	ForOrder(ctx context.Context, userID, orderID uuid.UUID, isAdmin bool) (*billing.OrderDocumentsResponse, error)
}

// OrderHandler serves checkout, order history and the admin order desk
type OrderHandler struct {
	BaseHandler
	orderService   OrderService
	invoiceService InvoiceService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService OrderService, invoiceService InvoiceService) *OrderHandler {
	return &OrderHandler{orderService: orderService, invoiceService: invoiceService}
}

// IdempotencyKeyHeader lets a client retry a checkout safely
const IdempotencyKeyHeader = "Idempotency-Key"

// Checkout godoc
// @ID           checkout
// @Summary      Place an order from the cart
// @Description  Reserves stock, snapshots prices and clears the cart. A failed step rolls back the earlier ones.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        request body sales.CheckoutRequest true "Checkout"
// @Param        Idempotency-Key header string false "Client key; a repeated key is rejected with 409"
// @Success      201 {object} Envelope[sales.OrderResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      404 {object} ErrorEnvelope
// @Failure      409 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /orders [post]
func (h *OrderHandler) Checkout(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	var req sales.CheckoutRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.IdempotencyKey = c.GetHeader(IdempotencyKeyHeader)
	order, err := h.orderService.Checkout(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// List godoc
// @ID           listMyOrders
// @Summary      List the caller's orders
// @Tags         orders
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Param        status query string false "Order status"
// @Param        payment_status query string false "Payment status"
// @Success      200 {object} Envelope[[]sales.OrderResponse]
// @Failure      401 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	var q sales.OrderListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.orderService.List(c.Request.Context(), userID, q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	successPage(&h.BaseHandler, c, page)
}

// Get godoc
// @ID           getOrder
// @Summary      Get an order
// @Description  Customers only see their own orders
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} Envelope[sales.OrderResponse]
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	order, err := h.orderService.Get(c.Request.Context(), userID, orderID, middleware.IsAdmin(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Cancel godoc
// @ID           cancelOrder
// @Summary      Cancel an order
// @Description  Releases reserved stock and refunds a captured payment
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body sales.CancelOrderRequest false "Reason"
// @Success      200 {object} Envelope[sales.OrderResponse]
// @Failure      404 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req sales.CancelOrderRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	order, err := h.orderService.Cancel(c.Request.Context(), userID, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Invoices godoc
// @ID           getOrderInvoices
// @Summary      Billing documents of an order
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} Envelope[billing.OrderDocumentsResponse]
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /orders/{id}/invoices [get]
func (h *OrderHandler) Invoices(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	docs, err := h.invoiceService.ForOrder(c.Request.Context(), userID, orderID, middleware.IsAdmin(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, docs)
}

// CreatePayment godoc
// @ID           createPayment
// @Summary      Start the provider payment for an order
// @Description  Repeated calls for a pending payment return the same redirect
// @Tags         payments
// @Produce      json
// @Param        orderId path string true "Order ID" format(uuid)
// @Success      200 {object} Envelope[sales.PaymentInitResponse]
// @Failure      404 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Failure      502 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /payu/create-payment/{orderId} [post]
func (h *OrderHandler) CreatePayment(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "orderId")
	if !ok {
		return
	}
	redirect, err := h.orderService.InitiatePayment(c.Request.Context(), userID, orderID, c.ClientIP())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, redirect)
}

// AdminList godoc
// @ID           adminListOrders
// @Summary      List all orders
// @Tags         admin
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Param        search query string false "Order number search"
// @Param        status query string false "Order status"
// @Param        payment_status query string false "Payment status"
// @Success      200 {object} Envelope[[]sales.OrderResponse]
// @Failure      403 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /admin/orders [get]
func (h *OrderHandler) AdminList(c *gin.Context) {
	var q sales.OrderListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.orderService.AdminList(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	successPage(&h.BaseHandler, c, page)
}

// ChangeStatus godoc
// @ID           changeOrderStatus
// @Summary      Move an order to another status
// @Description  Only transitions allowed by the order lifecycle are accepted. Shipping requires a tracking number.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body sales.ChangeStatusRequest true "Target status"
// @Success      200 {object} Envelope[sales.OrderResponse]
// @Failure      404 {object} ErrorEnvelope
// @Failure      409 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /admin/orders/{id}/status [put]
func (h *OrderHandler) ChangeStatus(c *gin.Context) {
	adminID, ok := h.requireUser(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req sales.ChangeStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	order, err := h.orderService.ChangeStatus(c.Request.Context(), adminID, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}
