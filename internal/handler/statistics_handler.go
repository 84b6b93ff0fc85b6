package handler

import (
	"net/http"
	"time"

	"storefront-admin/internal/middleware"
	"storefront-admin/internal/pricing"
	"storefront-admin/internal/service"
	"storefront-admin/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	auth              *middleware.Auth
	now               func() time.Time
}

func NewStatisticsHandler(statisticsService service.StatisticsService, auth *middleware.Auth) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService, auth: auth, now: time.Now}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/channels/:id/statistics/sales", h.auth.RequirePermission("statistics.read"), h.GetSalesSummary)
}

// GetSalesSummary
// @Summary      Channel sales summary
// @Description  Revenue and tax of non-cancelled orders, bucketed by day or month. Defaults to the current month.
// @Tags         statistics
// @Security     BearerAuth
// @Produce      json
// @Param        id          path      string  true   "Channel ID"
// @Param        start_date  query     string  false  "Start date (YYYY-MM-DD)"
// @Param        end_date    query     string  false  "End date (YYYY-MM-DD)"
// @Param        group_by    query     string  false  "day or month"
// @Success      200         {object}  response.Response{data=model.SalesSummary}
// @Failure      400         {object}  response.Response
// @Failure      404         {object}  response.Response
// @Router       /api/channels/{id}/statistics/sales [get]
func (h *StatisticsHandler) GetSalesSummary(c *gin.Context) {
	now := h.now().UTC()
	start := c.DefaultQuery("start_date", time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).Format(pricing.DateLayout))
	end := c.DefaultQuery("end_date", now.Format(pricing.DateLayout))

	summary, err := h.statisticsService.GetSalesSummary(c.Request.Context(), c.Param("id"), start, end, c.Query("group_by"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}
