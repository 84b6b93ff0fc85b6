package handler

import (
	"net/http"

	"storefront-admin/internal/middleware"
	"storefront-admin/internal/service"
	"storefront-admin/pkg/response"

	"github.com/gin-gonic/gin"
)

type TaxRuleHandler struct {
	taxRuleService service.TaxRuleService
	quoteService   service.QuoteService
	auth           *middleware.Auth
}

func NewTaxRuleHandler(taxRuleService service.TaxRuleService, quoteService service.QuoteService, auth *middleware.Auth) *TaxRuleHandler {
	return &TaxRuleHandler{taxRuleService: taxRuleService, quoteService: quoteService, auth: auth}
}

func (h *TaxRuleHandler) RegisterRoutes(router *gin.RouterGroup) {
	rules := router.Group("/api/channels/:id/tax-rules")
	{
		rules.GET("", h.auth.RequirePermission("tax_rules.read"), h.GetTaxRules)
		rules.GET("/:ruleId", h.auth.RequirePermission("tax_rules.read"), h.GetTaxRule)
		rules.POST("", h.auth.RequirePermission("tax_rules.write"), h.CreateTaxRule)
		rules.PUT("/:ruleId", h.auth.RequirePermission("tax_rules.write"), h.UpdateTaxRule)
		rules.DELETE("/:ruleId", h.auth.RequirePermission("tax_rules.write"), h.DeleteTaxRule)
		rules.POST("/match", h.auth.RequirePermission("tax_rules.read"), h.MatchRules)
	}
}

// GetTaxRules returns every rule of a channel, active or not
// @Summary      List tax rules
// @Tags         tax-rules
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Channel ID"
// @Success      200  {object}  response.Response{data=[]service.TaxRuleResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/channels/{id}/tax-rules [get]
func (h *TaxRuleHandler) GetTaxRules(c *gin.Context) {
	rules, err := h.taxRuleService.GetTaxRules(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rules))
}

// GetTaxRule
// @Summary      Get tax rule
// @Tags         tax-rules
// @Security     BearerAuth
// @Produce      json
// @Param        id      path      string  true  "Channel ID"
// @Param        ruleId  path      string  true  "Tax rule ID"
// @Success      200     {object}  response.Response{data=service.TaxRuleResponse}
// @Failure      404     {object}  response.Response
// @Router       /api/channels/{id}/tax-rules/{ruleId} [get]
func (h *TaxRuleHandler) GetTaxRule(c *gin.Context) {
	rule, err := h.taxRuleService.GetTaxRule(c.Request.Context(), c.Param("id"), c.Param("ruleId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// CreateTaxRule adds a conditional override of the channel's default rate
// @Summary      Create tax rule
// @Tags         tax-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Channel ID"
// @Param        payload  body      service.TaxRuleRequest  true  "Rule"
// @Success      201      {object}  response.Response{data=service.TaxRuleResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/channels/{id}/tax-rules [post]
func (h *TaxRuleHandler) CreateTaxRule(c *gin.Context) {
	var req service.TaxRuleRequest
	if !bindJSON(c, &req) {
		return
	}
	rule, err := h.taxRuleService.CreateTaxRule(c.Request.Context(), c.Param("id"), req, middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rule))
}

// UpdateTaxRule replaces a rule's definition
// @Summary      Update tax rule
// @Tags         tax-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Channel ID"
// @Param        ruleId   path      string                  true  "Tax rule ID"
// @Param        payload  body      service.TaxRuleRequest  true  "Rule"
// @Success      200      {object}  response.Response{data=service.TaxRuleResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/channels/{id}/tax-rules/{ruleId} [put]
func (h *TaxRuleHandler) UpdateTaxRule(c *gin.Context) {
	var req service.TaxRuleRequest
	if !bindJSON(c, &req) {
		return
	}
	rule, err := h.taxRuleService.UpdateTaxRule(c.Request.Context(), c.Param("id"), c.Param("ruleId"), req, middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// DeleteTaxRule
// @Summary      Delete tax rule
// @Tags         tax-rules
// @Security     BearerAuth
// @Produce      json
// @Param        id      path      string  true  "Channel ID"
// @Param        ruleId  path      string  true  "Tax rule ID"
// @Success      200     {object}  response.Response
// @Failure      404     {object}  response.Response
// @Router       /api/channels/{id}/tax-rules/{ruleId} [delete]
func (h *TaxRuleHandler) DeleteTaxRule(c *gin.Context) {
	if err := h.taxRuleService.DeleteTaxRule(c.Request.Context(), c.Param("id"), c.Param("ruleId"), middleware.UserID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Tax rule deleted successfully"}))
}

// MatchRules shows which active rules apply to a context and which one wins
// @Summary      Match tax rules
// @Description  Runs the channel's matcher and resolution strategy for one context without pricing a cart
// @Tags         tax-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Channel ID"
// @Param        payload  body      service.MatchRequest  true  "Context"
// @Success      200      {object}  response.Response{data=service.MatchResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/channels/{id}/tax-rules/match [post]
func (h *TaxRuleHandler) MatchRules(c *gin.Context) {
	var req service.MatchRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.quoteService.MatchRules(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
