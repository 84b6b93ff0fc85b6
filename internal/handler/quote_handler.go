package handler

import (
	"net/http"

	"storefront-admin/internal/middleware"
	"storefront-admin/internal/service"
	"storefront-admin/pkg/response"

	"github.com/gin-gonic/gin"
)

type QuoteHandler struct {
	quoteService service.QuoteService
	auth         *middleware.Auth
}

func NewQuoteHandler(quoteService service.QuoteService, auth *middleware.Auth) *QuoteHandler {
	return &QuoteHandler{quoteService: quoteService, auth: auth}
}

func (h *QuoteHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/api/channels/:id/quote", h.auth.RequirePermission("quotes.create"), h.Quote)
}

// Quote prices a cart without persisting anything
// @Summary      Quote a cart
// @Description  Groups lines by category, resolves one tax rule per group and returns the order breakdown
// @Tags         quotes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Channel ID"
// @Param        payload  body      service.QuoteRequest  true  "Cart"
// @Success      200      {object}  response.Response{data=service.QuoteResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response  "Ambiguous tax rules"
// @Router       /api/channels/{id}/quote [post]
func (h *QuoteHandler) Quote(c *gin.Context) {
	var req service.QuoteRequest
	if !bindJSON(c, &req) {
		return
	}
	quote, err := h.quoteService.Quote(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, quote))
}
