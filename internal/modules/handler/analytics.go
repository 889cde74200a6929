package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ohfdesk/ohfdesk/internal/modules/serializer"
	"github.com/ohfdesk/ohfdesk/internal/modules/service"
)

type AnalyticsHandler struct {
	svc service.AnalyticsService
}

func NewAnalyticsHandler(s service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{svc: s}
}

type DashboardReq struct {
	ProjectID string `form:"project_id" json:"project_id" binding:"omitempty,uuid"`
}

// GetDashboard godoc
//
//	@Summary		Analytics dashboard
//	@Description	Ticket totals by status and priority, open urgent tickets, resolutions in the last 7 days, average resolution time, open workload per assignee and tickets created per day. Results are cached briefly.
//	@Tags			analytics
//	@Produce		json
//	@Param			project_id	query	string	false	"Limit to one project"	format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.Dashboard}
//	@Router			/analytics/dashboard [get]
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	req := DashboardReq{}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	out, err := h.svc.Dashboard(c.Request.Context(), p, optUUID(req.ProjectID))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}
