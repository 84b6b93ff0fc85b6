package handler

import (
	"net/http"

	"storefront-admin/internal/middleware"
	"storefront-admin/internal/service"
	"storefront-admin/pkg/pagination"
	"storefront-admin/pkg/response"

	"github.com/gin-gonic/gin"
)

type ChannelHandler struct {
	channelService service.ChannelService
	auth           *middleware.Auth
}

func NewChannelHandler(channelService service.ChannelService, auth *middleware.Auth) *ChannelHandler {
	return &ChannelHandler{channelService: channelService, auth: auth}
}

func (h *ChannelHandler) RegisterRoutes(router *gin.RouterGroup) {
	channels := router.Group("/api/channels")
	{
		channels.GET("", h.auth.RequirePermission("channels.read"), h.GetChannels)
		channels.GET("/:id", h.auth.RequirePermission("channels.read"), h.GetChannel)
		channels.POST("", h.auth.RequirePermission("channels.write"), h.CreateChannel)
		channels.PUT("/:id", h.auth.RequirePermission("channels.write"), h.UpdateChannel)
		channels.DELETE("/:id", h.auth.RequirePermission("channels.write"), h.DeleteChannel)
	}
}

// GetChannels lists channels
// @Summary      List channels
// @Tags         channels
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Param        search  query     string  false  "Name or code contains"
// @Success      200     {object}  response.Response{data=[]service.ChannelResponse}
// @Router       /api/channels [get]
func (h *ChannelHandler) GetChannels(c *gin.Context) {
	p := pagination.Parse(c)
	channels, total, err := h.channelService.GetChannels(c.Request.Context(), p.Search, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, channels, p.Page, p.Limit, total))
}

// GetChannel returns one channel
// @Summary      Get channel
// @Tags         channels
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Channel ID"
// @Success      200  {object}  response.Response{data=service.ChannelResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/channels/{id} [get]
func (h *ChannelHandler) GetChannel(c *gin.Context) {
	channel, err := h.channelService.GetChannel(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, channel))
}

// CreateChannel adds a sales channel
// @Summary      Create channel
// @Description  Creates a channel with its currency, default tax rate and rule resolution strategy
// @Tags         channels
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateChannelRequest  true  "Channel"
// @Success      201      {object}  response.Response{data=service.ChannelResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/channels [post]
func (h *ChannelHandler) CreateChannel(c *gin.Context) {
	var req service.CreateChannelRequest
	if !bindJSON(c, &req) {
		return
	}
	channel, err := h.channelService.CreateChannel(c.Request.Context(), req, middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, channel))
}

// UpdateChannel changes the supplied fields only
// @Summary      Update channel
// @Tags         channels
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Channel ID"
// @Param        payload  body      service.UpdateChannelRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=service.ChannelResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/channels/{id} [put]
func (h *ChannelHandler) UpdateChannel(c *gin.Context) {
	var req service.UpdateChannelRequest
	if !bindJSON(c, &req) {
		return
	}
	channel, err := h.channelService.UpdateChannel(c.Request.Context(), c.Param("id"), req, middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, channel))
}

// DeleteChannel soft-deletes a channel
// @Summary      Delete channel
// @Tags         channels
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Channel ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/channels/{id} [delete]
func (h *ChannelHandler) DeleteChannel(c *gin.Context) {
	if err := h.channelService.DeleteChannel(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Channel deleted successfully"}))
}
