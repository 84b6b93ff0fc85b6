package handler

import (
	"fmt"
	"net/http"
	"time"

	"storefront-admin/internal/middleware"
	"storefront-admin/internal/service"
	"storefront-admin/pkg/pagination"
	"storefront-admin/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimePDF  = "application/pdf"
)

type OrderHandler struct {
	orderService   service.OrderService
	exportService  service.ExportService
	receiptService service.ReceiptService
	auth           *middleware.Auth
	idempotency    gin.HandlerFunc
}

// NewOrderHandler wires order endpoints. idempotency guards order creation and
// may be nil.
func NewOrderHandler(
	orderService service.OrderService,
	exportService service.ExportService,
	receiptService service.ReceiptService,
	auth *middleware.Auth,
	idempotency gin.HandlerFunc,
) *OrderHandler {
	if idempotency == nil {
		idempotency = func(c *gin.Context) { c.Next() }
	}
	return &OrderHandler{
		orderService:   orderService,
		exportService:  exportService,
		receiptService: receiptService,
		auth:           auth,
		idempotency:    idempotency,
	}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/api/orders")
	{
		orders.GET("", h.auth.RequirePermission("orders.read"), h.GetOrders)
		orders.GET("/export", h.auth.RequirePermission("orders.export"), h.ExportOrders)
		orders.GET("/:id", h.auth.RequirePermission("orders.read"), h.GetOrder)
		orders.GET("/:id/receipt", h.auth.RequirePermission("orders.read"), h.GetReceipt)
		orders.POST("", h.auth.RequirePermission("orders.write"), h.idempotency, h.CreateOrder)
		orders.PATCH("/:id/status", h.auth.RequirePermission("orders.write"), h.UpdateOrderStatus)
	}
}

func orderFilter(c *gin.Context) service.OrderListFilter {
	return service.OrderListFilter{
		ChannelID:  c.Query("channel_id"),
		CustomerID: c.Query("customer_id"),
		Status:     c.Query("status"),
		From:       c.Query("from"),
		To:         c.Query("to"),
	}
}

// CreateOrder prices the cart and persists it as a pending order
// @Summary      Create order
// @Description  Re-runs the quote server side and stores the result. Send Idempotency-Key to make retries safe.
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string                      false  "Client generated retry key"
// @Param        payload          body      service.CreateOrderRequest  true   "Order"
// @Success      201              {object}  response.Response{data=service.OrderResponse}
// @Failure      400              {object}  response.Response
// @Failure      409              {object}  response.Response
// @Router       /api/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.orderService.CreateOrder(c.Request.Context(), req, middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// GetOrders
// @Summary      List orders
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Items per page (default 20)"
// @Param        channel_id   query     string  false  "Channel ID"
// @Param        customer_id  query     string  false  "Customer ID"
// @Param        status       query     string  false  "pending, paid, shipped, delivered or cancelled"
// @Param        from         query     string  false  "Order date from (YYYY-MM-DD)"
// @Param        to           query     string  false  "Order date to (YYYY-MM-DD)"
// @Success      200          {object}  response.Response{data=[]service.OrderResponse}
// @Failure      400          {object}  response.Response
// @Router       /api/orders [get]
func (h *OrderHandler) GetOrders(c *gin.Context) {
	p := pagination.Parse(c)
	orders, total, err := h.orderService.GetOrders(c.Request.Context(), orderFilter(c), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, orders, p.Page, p.Limit, total))
}

// GetOrder returns an order with its items and tax lines
// @Summary      Get order
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.OrderResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// UpdateOrderStatus moves an order along pending, paid, shipped, delivered
// @Summary      Update order status
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                            true  "Order ID"
// @Param        payload  body      service.UpdateOrderStatusRequest  true  "New status"
// @Success      200      {object}  response.Response{data=service.OrderResponse}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response  "Transition not allowed"
// @Router       /api/orders/{id}/status [patch]
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	var req service.UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.orderService.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req, middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// ExportOrders streams the filtered orders as a spreadsheet
// @Summary      Export orders
// @Tags         orders
// @Security     BearerAuth
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        channel_id   query     string  false  "Channel ID"
// @Param        customer_id  query     string  false  "Customer ID"
// @Param        status       query     string  false  "Order status"
// @Param        from         query     string  false  "Order date from (YYYY-MM-DD)"
// @Param        to           query     string  false  "Order date to (YYYY-MM-DD)"
// @Success      200          {file}    file
// @Failure      400          {object}  response.Response
// @Router       /api/orders/export [get]
func (h *OrderHandler) ExportOrders(c *gin.Context) {
	data, err := h.exportService.ExportOrders(c.Request.Context(), orderFilter(c))
	if err != nil {
		writeError(c, err)
		return
	}
	name := fmt.Sprintf("orders-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, mimeXLSX, data)
}

// GetReceipt renders a PDF receipt for one order
// @Summary      Order receipt
// @Tags         orders
// @Security     BearerAuth
// @Produce      application/pdf
// @Param        id   path      string  true  "Order ID"
// @Success      200  {file}    file
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id}/receipt [get]
func (h *OrderHandler) GetReceipt(c *gin.Context) {
	data, name, err := h.receiptService.OrderReceipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, name))
	c.Data(http.StatusOK, mimePDF, data)
}
