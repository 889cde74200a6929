package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ohfdesk/ohfdesk/internal/modules/serializer"
	"github.com/ohfdesk/ohfdesk/internal/modules/service"
)

type ProjectHandler struct {
	svc service.ProjectService
}

func NewProjectHandler(s service.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: s}
}

// GetProjects godoc
//
//	@Summary		List projects
//	@Description	Admins see every project, everyone else the projects they are a member of.
//	@Tags			project
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]model.Project}
//	@Router			/projects [get]
func (h *ProjectHandler) GetProjects(c *gin.Context) {
	p, ok := actor(c)
	if !ok {
		return
	}

	items, err := h.svc.List(c.Request.Context(), p)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: items})
}

type CreateProjectReq struct {
	Name        string `json:"name" binding:"required,max=200" example:"Office IT"`
	Description string `json:"description" binding:"max=2000"`
}

// CreateProject godoc
//
//	@Summary		Create project
//	@Tags			project
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.CreateProjectReq	true	"CreateProject payload"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=model.Project}
//	@Router			/projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	req := CreateProjectReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	project, err := h.svc.Create(c.Request.Context(), p, service.ProjectInput{Name: req.Name, Description: req.Description})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: project})
}

// GetProject godoc
//
//	@Summary		Get project
//	@Tags			project
//	@Produce		json
//	@Param			id	path	string	true	"Project ID"	format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.Project}
//	@Router			/projects/{id} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	project, err := h.svc.Get(c.Request.Context(), p, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: project})
}

type UpdateProjectReq struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

// UpdateProject godoc
//
//	@Summary		Update project
//	@Tags			project
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string						true	"Project ID"	format(uuid)
//	@Param			payload	body	handler.UpdateProjectReq	true	"UpdateProject payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.Project}
//	@Router			/projects/{id} [patch]
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	req := UpdateProjectReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	project, err := h.svc.Update(c.Request.Context(), p, id, service.UpdateProjectInput{Name: req.Name, Description: req.Description})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: project})
}

// DeleteProject godoc
//
//	@Summary		Delete project
//	@Description	Delete a project together with its members, invites and tickets.
//	@Tags			project
//	@Produce		json
//	@Param			id	path	string	true	"Project ID"	format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{}
//	@Router			/projects/{id} [delete]
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), p, id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{})
}

// GetMembers godoc
//
//	@Summary		List project members
//	@Tags			project
//	@Produce		json
//	@Param			id	path	string	true	"Project ID"	format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]model.ProjectMember}
//	@Router			/projects/{id}/members [get]
func (h *ProjectHandler) GetMembers(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	items, err := h.svc.ListMembers(c.Request.Context(), p, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: items})
}

type AddMemberReq struct {
	UserID uuid.UUID `json:"user_id" binding:"required" swaggertype:"string" format:"uuid"`
	Role   string    `json:"role" binding:"required,member_role" example:"employee"`
}

// AddMember godoc
//
//	@Summary		Add project member
//	@Tags			project
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string				true	"Project ID"	format(uuid)
//	@Param			payload	body	handler.AddMemberReq	true	"AddMember payload"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=model.ProjectMember}
//	@Router			/projects/{id}/members [post]
func (h *ProjectHandler) AddMember(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	req := AddMemberReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	m, err := h.svc.AddMember(c.Request.Context(), p, id, req.UserID, req.Role)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: m})
}

type MemberRoleReq struct {
	Role string `json:"role" binding:"required,member_role" example:"viewer"`
}

// UpdateMember godoc
//
//	@Summary		Change member role
//	@Tags			project
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string					true	"Project ID"	format(uuid)
//	@Param			user_id	path	string					true	"User ID"		format(uuid)
//	@Param			payload	body	handler.MemberRoleReq	true	"MemberRole payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{}
//	@Router			/projects/{id}/members/{user_id} [patch]
func (h *ProjectHandler) UpdateMember(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	userID, ok := uuidParam(c, "user_id")
	if !ok {
		return
	}
	req := MemberRoleReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	if err := h.svc.UpdateMemberRole(c.Request.Context(), p, id, userID, req.Role); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{})
}

// RemoveMember godoc
//
//	@Summary		Remove project member
//	@Tags			project
//	@Produce		json
//	@Param			id		path	string	true	"Project ID"	format(uuid)
//	@Param			user_id	path	string	true	"User ID"		format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{}
//	@Router			/projects/{id}/members/{user_id} [delete]
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	userID, ok := uuidParam(c, "user_id")
	if !ok {
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	if err := h.svc.RemoveMember(c.Request.Context(), p, id, userID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{})
}

// GetProjectInvites godoc
//
//	@Summary		List project invites
//	@Tags			invite
//	@Produce		json
//	@Param			id	path	string	true	"Project ID"	format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]model.PendingInvite}
//	@Router			/projects/{id}/invites [get]
func (h *ProjectHandler) GetProjectInvites(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	items, err := h.svc.ListInvites(c.Request.Context(), p, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: items})
}

type InviteReq struct {
	Email string `json:"email" binding:"required,email" example:"new.hire@example.com"`
	Role  string `json:"role" binding:"required,member_role" example:"employee"`
}

// CreateInvite godoc
//
//	@Summary		Invite to project
//	@Description	Create a pending invite and email the invitee a link. A pending invite for the same email and project returns 409.
//	@Tags			invite
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string				true	"Project ID"	format(uuid)
//	@Param			payload	body	handler.InviteReq	true	"Invite payload"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=model.PendingInvite}
//	@Router			/projects/{id}/invites [post]
func (h *ProjectHandler) CreateInvite(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	req := InviteReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	inv, err := h.svc.Invite(c.Request.Context(), p, id, req.Email, req.Role)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: inv})
}

// GetMyInvites godoc
//
//	@Summary		List my invites
//	@Description	Pending invites addressed to the caller's email.
//	@Tags			invite
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=[]model.PendingInvite}
//	@Router			/invites [get]
func (h *ProjectHandler) GetMyInvites(c *gin.Context) {
	p, ok := actor(c)
	if !ok {
		return
	}

	items, err := h.svc.ListMyInvites(c.Request.Context(), p)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: items})
}

// AcceptInvite godoc
//
//	@Summary		Accept invite
//	@Tags			invite
//	@Produce		json
//	@Param			id	path	string	true	"Invite ID"	format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.ProjectMember}
//	@Router			/invites/{id}/accept [post]
func (h *ProjectHandler) AcceptInvite(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	m, err := h.svc.AcceptInvite(c.Request.Context(), p, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: m})
}

// RejectInvite godoc
//
//	@Summary		Reject invite
//	@Tags			invite
//	@Produce		json
//	@Param			id	path	string	true	"Invite ID"	format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{}
//	@Router			/invites/{id}/reject [post]
func (h *ProjectHandler) RejectInvite(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	if err := h.svc.RejectInvite(c.Request.Context(), p, id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{})
}

type AcceptTokenReq struct {
	Token string `json:"token" binding:"required" example:"inv_Zm9vYmFy"`
}

// AcceptInviteToken godoc
//
//	@Summary		Accept invite by token
//	@Description	Accept the invite identified by the token from an invite email.
//	@Tags			invite
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.AcceptTokenReq	true	"AcceptToken payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.ProjectMember}
//	@Router			/invites/accept_token [post]
func (h *ProjectHandler) AcceptInviteToken(c *gin.Context) {
	req := AcceptTokenReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	m, err := h.svc.AcceptInviteByToken(c.Request.Context(), p, req.Token)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: m})
}
