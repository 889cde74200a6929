package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ohfdesk/ohfdesk/internal/modules/serializer"
	"github.com/ohfdesk/ohfdesk/internal/modules/service"
)

type ProfileHandler struct {
	svc      service.ProfileService
	notifier service.Notifier
}

func NewProfileHandler(s service.ProfileService, notifier service.Notifier) *ProfileHandler {
	return &ProfileHandler{svc: s, notifier: notifier}
}

// GetMe godoc
//
//	@Summary		Current profile
//	@Tags			profile
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.Profile}
//	@Router			/me [get]
func (h *ProfileHandler) GetMe(c *gin.Context) {
	p, ok := actor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: p})
}

type UpdateMeReq struct {
	FullName        *string `json:"full_name" binding:"omitempty,max=200" example:"Ana Lima"`
	DigestEnabled   *bool   `json:"digest_enabled" example:"true"`
	DigestFrequency *string `json:"digest_frequency" binding:"omitempty,oneof=daily weekly" example:"weekly"`
}

// UpdateMe godoc
//
//	@Summary		Update current profile
//	@Description	Change display name and email digest preferences.
//	@Tags			profile
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.UpdateMeReq	true	"UpdateMe payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.Profile}
//	@Router			/me [patch]
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	req := UpdateMeReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	out, err := h.svc.UpdateMe(c.Request.Context(), p, service.UpdateProfileInput{
		FullName:        req.FullName,
		DigestEnabled:   req.DigestEnabled,
		DigestFrequency: req.DigestFrequency,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

type ListProfilesReq struct {
	Role   string `form:"role" json:"role" binding:"omitempty,profile_role" example:"employee"`
	Limit  int    `form:"limit,default=50" json:"limit" binding:"required,min=1,max=200" example:"50"`
	Cursor string `form:"cursor" json:"cursor"`
}

// GetProfiles godoc
//
//	@Summary		List profiles
//	@Tags			admin
//	@Produce		json
//	@Param			role	query	string	false	"Filter by role"	Enums(admin, employee, client)
//	@Param			limit	query	integer	false	"Limit of profiles to return, default 50. Max 200."
//	@Param			cursor	query	string	false	"Cursor for pagination"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.ListProfilesOutput}
//	@Router			/admin/profiles [get]
func (h *ProfileHandler) GetProfiles(c *gin.Context) {
	req := ListProfilesReq{}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	out, err := h.svc.List(c.Request.Context(), service.ListProfilesInput{
		Role:   req.Role,
		Limit:  req.Limit,
		Cursor: req.Cursor,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

type UpdateRoleReq struct {
	Role string `json:"role" binding:"required,profile_role" example:"employee"`
}

// UpdateProfileRole godoc
//
//	@Summary		Change profile role
//	@Description	Promote or demote a user. Admins cannot demote themselves.
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string					true	"Profile ID"	format(uuid)
//	@Param			payload	body	handler.UpdateRoleReq	true	"UpdateRole payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.Profile}
//	@Router			/admin/profiles/{id}/role [patch]
func (h *ProfileHandler) UpdateProfileRole(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	req := UpdateRoleReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	out, err := h.svc.UpdateRole(c.Request.Context(), p, id, req.Role)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// SendDigests godoc
//
//	@Summary		Send email digests now
//	@Description	Queue a digest run for the worker. Only profiles whose digest is due receive mail.
//	@Tags			admin
//	@Produce		json
//	@Security		BearerAuth
//	@Success		202	{object}	serializer.Response{}
//	@Router			/admin/digests/send [post]
func (h *ProfileHandler) SendDigests(c *gin.Context) {
	job := service.Job{Type: service.JobDigest, At: time.Now().UTC()}
	if err := h.notifier.Enqueue(c.Request.Context(), job); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusAccepted, serializer.Response{Msg: "digest queued"})
}
