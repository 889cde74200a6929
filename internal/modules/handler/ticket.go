package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ohfdesk/ohfdesk/internal/modules/model"
	"github.com/ohfdesk/ohfdesk/internal/modules/serializer"
	"github.com/ohfdesk/ohfdesk/internal/modules/service"
	"github.com/ohfdesk/ohfdesk/internal/pkg/chat"
)

type TicketHandler struct {
	svc service.TicketService
}

func NewTicketHandler(s service.TicketService) *TicketHandler {
	return &TicketHandler{svc: s}
}

type ListTicketsReq struct {
	Status     string `form:"status" json:"status" binding:"omitempty,ticket_status" example:"new"`
	Priority   string `form:"priority" json:"priority" binding:"omitempty,ticket_priority" example:"urgent"`
	ProjectID  string `form:"project_id" json:"project_id" binding:"omitempty,uuid"`
	AssigneeID string `form:"assignee_id" json:"assignee_id" binding:"omitempty,uuid"`
	ClientID   string `form:"client_id" json:"client_id" binding:"omitempty,uuid"`
	Unassigned bool   `form:"unassigned" json:"unassigned"`
	Query      string `form:"q" json:"q" binding:"max=200"`
	Archived   bool   `form:"archived,default=false" json:"archived"`
	Limit      int    `form:"limit,default=20" json:"limit" binding:"required,min=1,max=200" example:"20"`
	Cursor     string `form:"cursor" json:"cursor"`
	TimeDesc   bool   `form:"time_desc,default=true" json:"time_desc" example:"true"`
}

func (r ListTicketsReq) input() service.ListTicketsInput {
	return service.ListTicketsInput{
		Status:     r.Status,
		Priority:   r.Priority,
		ProjectID:  optUUID(r.ProjectID),
		AssigneeID: optUUID(r.AssigneeID),
		ClientID:   optUUID(r.ClientID),
		Unassigned: r.Unassigned,
		Query:      r.Query,
		Archived:   r.Archived,
		Limit:      r.Limit,
		Cursor:     r.Cursor,
		TimeDesc:   r.TimeDesc,
	}
}

// optUUID parses an already validated optional uuid.
func optUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

// GetTickets godoc
//
//	@Summary		List tickets
//	@Description	List the tickets visible to the caller. Clients see their own tickets, employees the tickets of their projects plus unassigned ones, admins everything.
//	@Tags			ticket
//	@Accept			json
//	@Produce		json
//	@Param			status		query	string	false	"Filter by status"	Enums(new, in_progress, resolved)
//	@Param			priority	query	string	false	"Filter by priority"	Enums(low, medium, high, urgent)
//	@Param			project_id	query	string	false	"Filter by project"	format(uuid)
//	@Param			assignee_id	query	string	false	"Filter by assignee"	format(uuid)
//	@Param			client_id	query	string	false	"Filter by client"	format(uuid)
//	@Param			unassigned	query	boolean	false	"Only unassigned tickets"
//	@Param			q			query	string	false	"Search title and description"
//	@Param			archived	query	boolean	false	"List archived tickets instead of active ones"
//	@Param			limit		query	integer	false	"Limit of tickets to return, default 20. Max 200."
//	@Param			cursor		query	string	false	"Cursor for pagination. Use the cursor from the previous response to get the next page."
//	@Param			time_desc	query	boolean	false	"Newest first when true (default true)"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.ListTicketsOutput}
//	@Router			/tickets [get]
func (h *TicketHandler) GetTickets(c *gin.Context) {
	req := ListTicketsReq{}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	out, err := h.svc.List(c.Request.Context(), p, req.input())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// GetBoard godoc
//
//	@Summary		Ticket board
//	@Description	Group the filtered tickets into the new, in_progress and resolved columns. All three columns are always present.
//	@Tags			ticket
//	@Produce		json
//	@Param			priority	query	string	false	"Filter by priority"
//	@Param			project_id	query	string	false	"Filter by project"	format(uuid)
//	@Param			assignee_id	query	string	false	"Filter by assignee"	format(uuid)
//	@Param			q			query	string	false	"Search title and description"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=service.BoardOutput}
//	@Router			/tickets/board [get]
func (h *TicketHandler) GetBoard(c *gin.Context) {
	req := ListTicketsReq{}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	out, err := h.svc.Board(c.Request.Context(), p, req.input())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

type CreateTicketReq struct {
	Title       string     `json:"title" binding:"required,max=300" example:"Printer offline"`
	Description string     `json:"description" binding:"required" example:"The office printer stopped responding this morning."`
	Priority    string     `json:"priority" binding:"omitempty,ticket_priority" example:"high"`
	ProjectID   *uuid.UUID `json:"project_id" swaggertype:"string" format:"uuid"`
	ClientID    *uuid.UUID `json:"client_id" swaggertype:"string" format:"uuid"`
}

// CreateTicket godoc
//
//	@Summary		Create ticket
//	@Description	Open a ticket. Staff may open a ticket on behalf of a client by passing client_id.
//	@Tags			ticket
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.CreateTicketReq	true	"CreateTicket payload"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=model.Ticket}
//	@Router			/tickets [post]
func (h *TicketHandler) CreateTicket(c *gin.Context) {
	req := CreateTicketReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	t, err := h.svc.Create(c.Request.Context(), p, service.CreateTicketInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		ProjectID:   req.ProjectID,
		ClientID:    req.ClientID,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: t})
}

// CreateVoiceTicket godoc
//
//	@Summary		Create ticket from voice
//	@Description	Upload a voice recording. It is transcribed, drafted into a ticket by the LLM and attached as an audio activity.
//	@Tags			ticket
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			audio		formData	file	true	"Voice recording"
//	@Param			project_id	formData	string	false	"Project"	format(uuid)
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=model.Ticket}
//	@Router			/tickets/voice [post]
func (h *TicketHandler) CreateVoiceTicket(c *gin.Context) {
	fh, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("audio is required", err))
		return
	}
	var projectID *uuid.UUID
	if s := c.PostForm("project_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, serializer.ParamErr("invalid project_id", err))
			return
		}
		projectID = &id
	}
	p, ok := actor(c)
	if !ok {
		return
	}
	data, err := readFormFile(fh)
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("unreadable audio", err))
		return
	}

	t, err := h.svc.CreateFromVoice(c.Request.Context(), p, service.VoiceTicketInput{
		Filename:  fh.Filename,
		Data:      data,
		ProjectID: projectID,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: t})
}

type CreateChatTicketReq struct {
	Messages  []chat.Message `json:"messages" binding:"required,min=1,dive"`
	ProjectID *uuid.UUID     `json:"project_id" swaggertype:"string" format:"uuid"`
}

// CreateChatTicket godoc
//
//	@Summary		Create ticket from AI chat
//	@Description	Draft a ticket from an AI-assisted chat transcript and keep the conversation as an ai_chat activity.
//	@Tags			ticket
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.CreateChatTicketReq	true	"CreateChatTicket payload"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=model.Ticket}
//	@Router			/tickets/chat [post]
func (h *TicketHandler) CreateChatTicket(c *gin.Context) {
	req := CreateChatTicketReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	t, err := h.svc.CreateFromChat(c.Request.Context(), p, service.ChatTicketInput{
		Messages:  req.Messages,
		ProjectID: req.ProjectID,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: t})
}

// GetTicket godoc
//
//	@Summary		Get ticket
//	@Tags			ticket
//	@Produce		json
//	@Param			id	path	string	true	"Ticket ID"	format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.Ticket}
//	@Router			/tickets/{id} [get]
func (h *TicketHandler) GetTicket(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	t, err := h.svc.Get(c.Request.Context(), p, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: t})
}

type UpdateTicketReq struct {
	Title        *string    `json:"title" binding:"omitempty,min=1,max=300"`
	Description  *string    `json:"description" binding:"omitempty,min=1"`
	Priority     *string    `json:"priority" binding:"omitempty,ticket_priority"`
	ProjectID    *uuid.UUID `json:"project_id" swaggertype:"string" format:"uuid"`
	ClearProject bool       `json:"clear_project"`
}

// UpdateTicket godoc
//
//	@Summary		Update ticket
//	@Description	Patch title, description, priority or project. Omitted fields are left unchanged.
//	@Tags			ticket
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string					true	"Ticket ID"	format(uuid)
//	@Param			payload	body	handler.UpdateTicketReq	true	"UpdateTicket payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.Ticket}
//	@Router			/tickets/{id} [patch]
func (h *TicketHandler) UpdateTicket(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	req := UpdateTicketReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	t, err := h.svc.Update(c.Request.Context(), p, id, service.UpdateTicketInput{
		Title:        req.Title,
		Description:  req.Description,
		Priority:     req.Priority,
		ProjectID:    req.ProjectID,
		ClearProject: req.ClearProject,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: t})
}

type UpdateStatusReq struct {
	Status string `json:"status" binding:"required,ticket_status" example:"in_progress"`
}

// UpdateTicketStatus godoc
//
//	@Summary		Update ticket status
//	@Description	Set the status. Any status may move to any other; resolved stamps resolved_at.
//	@Tags			ticket
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string					true	"Ticket ID"	format(uuid)
//	@Param			payload	body	handler.UpdateStatusReq	true	"UpdateStatus payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.Ticket}
//	@Router			/tickets/{id}/status [patch]
func (h *TicketHandler) UpdateTicketStatus(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	req := UpdateStatusReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	p, ok := actor(c)
	if !ok {
		return
	}
	t, err := h.svc.UpdateStatus(c.Request.Context(), p, id, req.Status)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: t})
}

type MoveTicketReq struct {
	ToStatus string `json:"to_status" binding:"required,ticket_status" example:"resolved"`
}

// MoveTicket godoc
//
//	@Summary		Move ticket on the board
//	@Description	Drop a ticket into another board column.
//	@Tags			ticket
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string					true	"Ticket ID"	format(uuid)
//	@Param			payload	body	handler.MoveTicketReq	true	"MoveTicket payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.Ticket}
//	@Router			/tickets/{id}/move [post]
func (h *TicketHandler) MoveTicket(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	req := MoveTicketReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	p, ok := actor(c)
	if !ok {
		return
	}
	t, err := h.svc.Move(c.Request.Context(), p, id, req.ToStatus)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: t})
}

// ClaimTicket godoc
//
//	@Summary		Claim ticket
//	@Description	Assign an unassigned ticket to the calling employee. A ticket already assigned to someone else returns 409.
//	@Tags			ticket
//	@Produce		json
//	@Param			id	path	string	true	"Ticket ID"	format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.Ticket}
//	@Router			/tickets/{id}/claim [post]
func (h *TicketHandler) ClaimTicket(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	t, err := h.svc.Claim(c.Request.Context(), p, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: t})
}

type AssignTicketReq struct {
	// AssigneeID null clears the assignee.
	AssigneeID *uuid.UUID `json:"assignee_id" swaggertype:"string" format:"uuid"`
}

// AssignTicket godoc
//
//	@Summary		Assign ticket
//	@Description	Set or clear the assignee of a ticket.
//	@Tags			ticket
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string					true	"Ticket ID"	format(uuid)
//	@Param			payload	body	handler.AssignTicketReq	true	"AssignTicket payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.Ticket}
//	@Router			/tickets/{id}/assign [patch]
func (h *TicketHandler) AssignTicket(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	req := AssignTicketReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	t, err := h.svc.Assign(c.Request.Context(), p, id, req.AssigneeID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: t})
}

type BulkReq struct {
	IDs []uuid.UUID `json:"ids" binding:"required,min=1,max=500" swaggertype:"array,string"`
}

type BulkStatusReq struct {
	IDs    []uuid.UUID `json:"ids" binding:"required,min=1,max=500" swaggertype:"array,string"`
	Status string      `json:"status" binding:"required,ticket_status" example:"resolved"`
}

type BulkResp struct {
	IDs []uuid.UUID `json:"ids" swaggertype:"array,string"`
}

// BulkUpdateStatus godoc
//
//	@Summary		Bulk update status
//	@Description	Set the status of all selected tickets in one update. On failure nothing changes.
//	@Tags			ticket
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.BulkStatusReq	true	"BulkStatus payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=handler.BulkResp}
//	@Router			/tickets/bulk/status [post]
func (h *TicketHandler) BulkUpdateStatus(c *gin.Context) {
	req := BulkStatusReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	p, ok := actor(c)
	if !ok {
		return
	}
	ids, err := h.svc.BulkUpdateStatus(c.Request.Context(), p, req.IDs, req.Status)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: BulkResp{IDs: ids}})
}

// BulkArchive godoc
//
//	@Summary		Bulk archive
//	@Tags			ticket
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.BulkReq	true	"Bulk payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=handler.BulkResp}
//	@Router			/tickets/bulk/archive [post]
func (h *TicketHandler) BulkArchive(c *gin.Context) {
	h.bulk(c, h.svc.BulkArchive)
}

// BulkUnarchive godoc
//
//	@Summary		Bulk unarchive
//	@Tags			ticket
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.BulkReq	true	"Bulk payload"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=handler.BulkResp}
//	@Router			/tickets/bulk/unarchive [post]
func (h *TicketHandler) BulkUnarchive(c *gin.Context) {
	h.bulk(c, h.svc.BulkUnarchive)
}

func (h *TicketHandler) bulk(c *gin.Context, fn func(context.Context, *model.Profile, []uuid.UUID) ([]uuid.UUID, error)) {
	req := BulkReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	p, ok := actor(c)
	if !ok {
		return
	}

	ids, err := fn(c.Request.Context(), p, req.IDs)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: BulkResp{IDs: ids}})
}
